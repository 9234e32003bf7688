package wallet

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mr-tron/base58"
)

func TestGenerate(t *testing.T) {
	kp, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	raw, err := base58.Decode(kp.PublicKey())
	if err != nil {
		t.Fatalf("decode public key: %v", err)
	}
	if len(raw) != 32 {
		t.Errorf("expected 32-byte public key, got %d", len(raw))
	}

	other, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if kp.PublicKey() == other.PublicKey() {
		t.Error("two generated keypairs share a public key")
	}
}

func TestFromSecret_RoundTrip(t *testing.T) {
	kp, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	imported, err := FromSecret(kp.Secret())
	if err != nil {
		t.Fatalf("FromSecret: %v", err)
	}
	if imported.PublicKey() != kp.PublicKey() {
		t.Errorf("round trip changed public key: %s != %s", imported.PublicKey(), kp.PublicKey())
	}
}

func TestFromSecret_TrimsWhitespace(t *testing.T) {
	kp, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	imported, err := FromSecret("  " + kp.Secret() + "\n")
	if err != nil {
		t.Fatalf("FromSecret: %v", err)
	}
	if imported.PublicKey() != kp.PublicKey() {
		t.Error("whitespace-padded secret imported wrong key")
	}
}

func TestFromSecret_WrongLength(t *testing.T) {
	short := base58.Encode([]byte{1, 2, 3})
	if _, err := FromSecret(short); err == nil {
		t.Error("expected error for short secret")
	}
}

func TestFromSecret_NotBase58(t *testing.T) {
	if _, err := FromSecret("not-valid-0OIl"); err == nil {
		t.Error("expected error for invalid base58")
	}
}

func TestSigner(t *testing.T) {
	kp, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	signer := kp.Signer()
	if signer.PubKey != kp.PublicKey() {
		t.Errorf("signer pubkey %s != keypair pubkey %s", signer.PubKey, kp.PublicKey())
	}
	if len(signer.PrivKey) != 64 {
		t.Errorf("expected 64-byte private key, got %d", len(signer.PrivKey))
	}
}

func TestReadSecrets(t *testing.T) {
	a, _ := Generate()
	b, _ := Generate()

	input := strings.Join([]string{
		"# swarm accounts",
		a.Secret(),
		"",
		"   ",
		b.Secret(),
	}, "\n")

	pairs, err := ReadSecrets(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadSecrets: %v", err)
	}
	if len(pairs) != 2 {
		t.Fatalf("expected 2 keypairs, got %d", len(pairs))
	}
	if pairs[0].PublicKey() != a.PublicKey() || pairs[1].PublicKey() != b.PublicKey() {
		t.Error("imported keys do not match input order")
	}
}

func TestReadSecrets_BadLine(t *testing.T) {
	_, err := ReadSecrets(strings.NewReader("garbage\n"))
	if err == nil {
		t.Fatal("expected error for invalid secret line")
	}
	if !strings.Contains(err.Error(), "line 1") {
		t.Errorf("expected line number in error, got %v", err)
	}
}

func TestReadSecrets_Empty(t *testing.T) {
	pairs, err := ReadSecrets(bytes.NewReader(nil))
	if err != nil {
		t.Fatalf("ReadSecrets: %v", err)
	}
	if len(pairs) != 0 {
		t.Errorf("expected no keypairs, got %d", len(pairs))
	}
}
