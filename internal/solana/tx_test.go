package solana

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"testing"

	"github.com/mr-tron/base58"
)

func testKeypair(t *testing.T) (string, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return base58.Encode(pub), priv
}

func testAddress(t *testing.T) string {
	t.Helper()
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		t.Fatalf("random address: %v", err)
	}
	return base58.Encode(raw)
}

func TestBuildTransaction_SignatureVerifies(t *testing.T) {
	fromPub, fromPriv := testKeypair(t)
	to := testAddress(t)
	blockhash := testAddress(t)

	tx, err := BuildTransaction(
		[]Instruction{SystemTransfer(fromPub, to, 1_000)},
		blockhash,
		Signer{PubKey: fromPub, PrivKey: fromPriv},
	)
	if err != nil {
		t.Fatalf("BuildTransaction: %v", err)
	}

	raw, err := base64.StdEncoding.DecodeString(tx.Base64)
	if err != nil {
		t.Fatalf("decode transaction: %v", err)
	}

	// One signature: single-byte compact length, then 64 signature bytes,
	// then the message.
	if raw[0] != 1 {
		t.Fatalf("expected 1 signature, got %d", raw[0])
	}
	sig := raw[1:65]
	msg := raw[65:]

	pubRaw, _ := base58.Decode(fromPub)
	if !ed25519.Verify(ed25519.PublicKey(pubRaw), msg, sig) {
		t.Error("fee payer signature does not verify over the message")
	}

	if tx.Signature != base58.Encode(sig) {
		t.Errorf("Signature field %s does not match wire signature", tx.Signature)
	}
}

func TestBuildTransaction_MessageHeader(t *testing.T) {
	fromPub, fromPriv := testKeypair(t)
	to := testAddress(t)
	blockhash := testAddress(t)

	tx, err := BuildTransaction(
		[]Instruction{SystemTransfer(fromPub, to, 1_000)},
		blockhash,
		Signer{PubKey: fromPub, PrivKey: fromPriv},
	)
	if err != nil {
		t.Fatalf("BuildTransaction: %v", err)
	}

	raw, _ := base64.StdEncoding.DecodeString(tx.Base64)
	msg := raw[65:]

	// Accounts: fee payer (writable signer), recipient (writable), system
	// program (readonly).
	if msg[0] != 1 {
		t.Errorf("expected 1 signer, got %d", msg[0])
	}
	if msg[1] != 0 {
		t.Errorf("expected 0 readonly signers, got %d", msg[1])
	}
	if msg[2] != 1 {
		t.Errorf("expected 1 readonly unsigned account, got %d", msg[2])
	}
	if msg[3] != 3 {
		t.Fatalf("expected 3 account keys, got %d", msg[3])
	}

	// The fee payer is always the first account key.
	fromRaw, _ := base58.Decode(fromPub)
	if !bytes.Equal(msg[4:36], fromRaw) {
		t.Error("fee payer is not the first account key")
	}

	// The blockhash follows the account keys.
	bhRaw, _ := base58.Decode(blockhash)
	if !bytes.Equal(msg[4+3*32:4+3*32+32], bhRaw) {
		t.Error("blockhash not found after account keys")
	}
}

func TestBuildTransaction_MultipleSigners(t *testing.T) {
	feePub, feePriv := testKeypair(t)
	otherPub, otherPriv := testKeypair(t)
	blockhash := testAddress(t)

	ix := Instruction{
		ProgramID: SystemProgramID,
		Accounts: []AccountMeta{
			{PubKey: feePub, IsSigner: true, IsWritable: true},
			{PubKey: otherPub, IsSigner: true, IsWritable: true},
		},
		Data: []byte{0},
	}

	tx, err := BuildTransaction([]Instruction{ix}, blockhash,
		Signer{PubKey: feePub, PrivKey: feePriv},
		Signer{PubKey: otherPub, PrivKey: otherPriv},
	)
	if err != nil {
		t.Fatalf("BuildTransaction: %v", err)
	}

	raw, _ := base64.StdEncoding.DecodeString(tx.Base64)
	if raw[0] != 2 {
		t.Fatalf("expected 2 signatures, got %d", raw[0])
	}
	msg := raw[1+2*64:]

	feeRaw, _ := base58.Decode(feePub)
	otherRaw, _ := base58.Decode(otherPub)
	firstSig := raw[1:65]
	secondSig := raw[65:129]

	// Key order determines which signature slot belongs to which signer;
	// the fee payer occupies slot zero.
	if !bytes.Equal(msg[4:36], feeRaw) {
		t.Fatal("fee payer is not the first account key")
	}
	if !ed25519.Verify(ed25519.PublicKey(feeRaw), msg, firstSig) {
		t.Error("fee payer signature invalid")
	}
	if !bytes.Equal(msg[36:68], otherRaw) {
		t.Fatal("second signer is not the second account key")
	}
	if !ed25519.Verify(ed25519.PublicKey(otherRaw), msg, secondSig) {
		t.Error("second signature invalid")
	}
}

func TestBuildTransaction_MissingSigner(t *testing.T) {
	feePub, feePriv := testKeypair(t)
	strangerPub, _ := testKeypair(t)
	blockhash := testAddress(t)

	ix := Instruction{
		ProgramID: SystemProgramID,
		Accounts: []AccountMeta{
			{PubKey: feePub, IsSigner: true, IsWritable: true},
			{PubKey: strangerPub, IsSigner: true, IsWritable: true},
		},
		Data: []byte{0},
	}

	_, err := BuildTransaction([]Instruction{ix}, blockhash,
		Signer{PubKey: feePub, PrivKey: feePriv})
	if err == nil {
		t.Fatal("expected error for unsatisfied signer account")
	}
}

func TestBuildTransaction_SignatureCountMatchesHeader(t *testing.T) {
	fromPub, fromPriv := testKeypair(t)
	sparePub, sparePriv := testKeypair(t)
	to := testAddress(t)
	blockhash := testAddress(t)

	// The spare keypair signs nothing; the signature list must follow the
	// message header's signer count, not the supplied keypair count.
	tx, err := BuildTransaction(
		[]Instruction{SystemTransfer(fromPub, to, 1_000)},
		blockhash,
		Signer{PubKey: fromPub, PrivKey: fromPriv},
		Signer{PubKey: sparePub, PrivKey: sparePriv},
	)
	if err != nil {
		t.Fatalf("BuildTransaction: %v", err)
	}

	raw, _ := base64.StdEncoding.DecodeString(tx.Base64)
	if raw[0] != 1 {
		t.Fatalf("expected 1 signature, got %d", raw[0])
	}
	msg := raw[1+int(raw[0])*64:]
	if msg[0] != raw[0] {
		t.Errorf("header declares %d signers but transaction carries %d signatures", msg[0], raw[0])
	}
}

func TestBuildTransaction_Validation(t *testing.T) {
	fromPub, fromPriv := testKeypair(t)
	signer := Signer{PubKey: fromPub, PrivKey: fromPriv}

	if _, err := BuildTransaction(nil, testAddress(t), signer); err == nil {
		t.Error("expected error for empty instruction list")
	}

	ix := SystemTransfer(fromPub, testAddress(t), 1)
	if _, err := BuildTransaction([]Instruction{ix}, testAddress(t)); err == nil {
		t.Error("expected error for missing signers")
	}
	if _, err := BuildTransaction([]Instruction{ix}, "bad-blockhash", signer); err == nil {
		t.Error("expected error for invalid blockhash")
	}
}

func TestWriteCompactU16(t *testing.T) {
	cases := []struct {
		value uint16
		want  []byte
	}{
		{0x0000, []byte{0x00}},
		{0x0001, []byte{0x01}},
		{0x007f, []byte{0x7f}},
		{0x0080, []byte{0x80, 0x01}},
		{0x00ff, []byte{0xff, 0x01}},
		{0x3fff, []byte{0xff, 0x7f}},
		{0x4000, []byte{0x80, 0x80, 0x01}},
	}

	for _, tc := range cases {
		var buf bytes.Buffer
		writeCompactU16(&buf, tc.value)
		if !bytes.Equal(buf.Bytes(), tc.want) {
			t.Errorf("compact(%#x): expected %v, got %v", tc.value, tc.want, buf.Bytes())
		}
	}
}

func TestSystemTransfer(t *testing.T) {
	ix := SystemTransfer("from", "to", 123_456)

	if ix.ProgramID != SystemProgramID {
		t.Errorf("unexpected program %s", ix.ProgramID)
	}
	if len(ix.Data) != 12 {
		t.Fatalf("expected 12-byte data, got %d", len(ix.Data))
	}
	if binary.LittleEndian.Uint32(ix.Data[0:4]) != 2 {
		t.Error("expected transfer instruction index 2")
	}
	if binary.LittleEndian.Uint64(ix.Data[4:12]) != 123_456 {
		t.Error("lamport amount not encoded")
	}
	if !ix.Accounts[0].IsSigner || !ix.Accounts[0].IsWritable {
		t.Error("sender must be a writable signer")
	}
	if ix.Accounts[1].IsSigner || !ix.Accounts[1].IsWritable {
		t.Error("recipient must be writable, not a signer")
	}
}

func TestComputeBudgetInstructions(t *testing.T) {
	limit := SetComputeUnitLimit(200_000)
	if limit.Data[0] != 2 {
		t.Errorf("expected limit instruction index 2, got %d", limit.Data[0])
	}
	if binary.LittleEndian.Uint32(limit.Data[1:5]) != 200_000 {
		t.Error("unit limit not encoded")
	}

	price := SetComputeUnitPrice(500_000)
	if price.Data[0] != 3 {
		t.Errorf("expected price instruction index 3, got %d", price.Data[0])
	}
	if binary.LittleEndian.Uint64(price.Data[1:9]) != 500_000 {
		t.Error("unit price not encoded")
	}
}
