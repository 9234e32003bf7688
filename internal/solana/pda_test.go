package solana

import (
	"crypto/rand"
	"testing"

	"github.com/mr-tron/base58"
)

func randomSeed(t *testing.T) []byte {
	t.Helper()
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		t.Fatalf("random seed: %v", err)
	}
	return raw
}

func TestFindProgramAddress_Deterministic(t *testing.T) {
	seed := randomSeed(t)

	addr1, bump1, err := FindProgramAddress([][]byte{[]byte("bonding-curve"), seed}, TokenProgramID)
	if err != nil {
		t.Fatalf("FindProgramAddress: %v", err)
	}
	addr2, bump2, err := FindProgramAddress([][]byte{[]byte("bonding-curve"), seed}, TokenProgramID)
	if err != nil {
		t.Fatalf("FindProgramAddress: %v", err)
	}

	if addr1 != addr2 || bump1 != bump2 {
		t.Errorf("derivation is not deterministic: %s/%d vs %s/%d", addr1, bump1, addr2, bump2)
	}

	raw, err := base58.Decode(addr1)
	if err != nil || len(raw) != 32 {
		t.Errorf("derived address is not a 32-byte key: %s", addr1)
	}
}

func TestFindProgramAddress_OffCurve(t *testing.T) {
	addr, _, err := FindProgramAddress([][]byte{randomSeed(t)}, TokenProgramID)
	if err != nil {
		t.Fatalf("FindProgramAddress: %v", err)
	}

	raw, _ := base58.Decode(addr)
	if isOnCurve(raw) {
		t.Error("derived address lies on the curve; it must not be signable")
	}
}

func TestFindProgramAddress_SeedSensitivity(t *testing.T) {
	a, _, err := FindProgramAddress([][]byte{[]byte("seed-a")}, TokenProgramID)
	if err != nil {
		t.Fatalf("FindProgramAddress: %v", err)
	}
	b, _, err := FindProgramAddress([][]byte{[]byte("seed-b")}, TokenProgramID)
	if err != nil {
		t.Fatalf("FindProgramAddress: %v", err)
	}
	if a == b {
		t.Error("different seeds derived the same address")
	}

	c, _, err := FindProgramAddress([][]byte{[]byte("seed-a")}, AssociatedTokenProgramID)
	if err != nil {
		t.Fatalf("FindProgramAddress: %v", err)
	}
	if a == c {
		t.Error("different programs derived the same address")
	}
}

func TestFindProgramAddress_InvalidProgram(t *testing.T) {
	if _, _, err := FindProgramAddress([][]byte{[]byte("x")}, "short"); err == nil {
		t.Error("expected error for invalid program id")
	}
}

func TestAssociatedTokenAddress(t *testing.T) {
	wallet := base58.Encode(randomSeed(t))
	mint := base58.Encode(randomSeed(t))

	ata1, err := AssociatedTokenAddress(wallet, mint)
	if err != nil {
		t.Fatalf("AssociatedTokenAddress: %v", err)
	}
	ata2, err := AssociatedTokenAddress(wallet, mint)
	if err != nil {
		t.Fatalf("AssociatedTokenAddress: %v", err)
	}
	if ata1 != ata2 {
		t.Error("derivation is not deterministic")
	}
	if ata1 == wallet || ata1 == mint {
		t.Error("derived address collides with an input")
	}

	otherWallet := base58.Encode(randomSeed(t))
	ata3, err := AssociatedTokenAddress(otherWallet, mint)
	if err != nil {
		t.Fatalf("AssociatedTokenAddress: %v", err)
	}
	if ata3 == ata1 {
		t.Error("different wallets derived the same token account")
	}
}

func TestAssociatedTokenAddress_InvalidInput(t *testing.T) {
	mint := base58.Encode(randomSeed(t))
	if _, err := AssociatedTokenAddress("0invalid", mint); err == nil {
		t.Error("expected error for invalid wallet")
	}
}

func TestIsOnCurve(t *testing.T) {
	// The ed25519 identity point encoding decodes successfully.
	identity := make([]byte, 32)
	identity[0] = 1
	if !isOnCurve(identity) {
		t.Error("identity point should decode onto the curve")
	}

	if isOnCurve([]byte{1, 2, 3}) {
		t.Error("short input cannot be on the curve")
	}
}
