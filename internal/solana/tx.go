package solana

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"github.com/mr-tron/base58"
)

// Well-known program IDs.
const (
	SystemProgramID          = "11111111111111111111111111111111"
	TokenProgramID           = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	AssociatedTokenProgramID = "ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL"
	ComputeBudgetProgramID   = "ComputeBudget111111111111111111111111111111"
	RentSysvarID             = "SysvarRent111111111111111111111111111111111"
)

// AccountMeta describes how one account participates in an instruction.
type AccountMeta struct {
	PubKey     string
	IsSigner   bool
	IsWritable bool
}

// Instruction is one program invocation inside a transaction.
type Instruction struct {
	ProgramID string
	Accounts  []AccountMeta
	Data      []byte
}

// Signer pairs a base58 public key with its ed25519 private key.
type Signer struct {
	PubKey  string
	PrivKey ed25519.PrivateKey
}

// SignedTx is a fully signed, wire-encoded transaction.
type SignedTx struct {
	// Base64 is the transaction as accepted by sendTransaction.
	Base64 string

	// Signature is the base58 fee-payer signature, which is also the
	// transaction identifier.
	Signature string
}

// BuildTransaction compiles instructions into a legacy message, signs it
// with every required signer, and returns the encoded transaction.
// The first signer is the fee payer.
func BuildTransaction(instructions []Instruction, blockhash string, signers ...Signer) (*SignedTx, error) {
	if len(instructions) == 0 {
		return nil, fmt.Errorf("no instructions")
	}
	if len(signers) == 0 {
		return nil, fmt.Errorf("no signers")
	}

	msg, keys, numSigners, err := compileMessage(instructions, blockhash, signers)
	if err != nil {
		return nil, err
	}

	// Signatures in account-key order; every key the message header
	// declares as a signer must be covered, including accounts an
	// instruction marks IsSigner without a supplied keypair.
	sigs := make([][]byte, 0, numSigners)
	for i := 0; i < numSigners; i++ {
		signer, ok := signerFor(keys[i], signers)
		if !ok {
			return nil, fmt.Errorf("missing signer for %s", keys[i])
		}
		sigs = append(sigs, ed25519.Sign(signer.PrivKey, msg))
	}

	var tx bytes.Buffer
	writeCompactU16(&tx, uint16(len(sigs)))
	for _, s := range sigs {
		tx.Write(s)
	}
	tx.Write(msg)

	return &SignedTx{
		Base64:    base64.StdEncoding.EncodeToString(tx.Bytes()),
		Signature: base58.Encode(sigs[0]),
	}, nil
}

// compileMessage builds the serialized legacy message, the ordered
// account key list, and the number of signer-class keys. Ordering:
// writable signers, readonly signers, writable non-signers, readonly
// non-signers.
func compileMessage(instructions []Instruction, blockhash string, signers []Signer) ([]byte, []string, int, error) {
	type meta struct {
		signer   bool
		writable bool
		order    int
	}
	metas := make(map[string]*meta)
	order := 0
	touch := func(pk string, signer, writable bool) {
		m, ok := metas[pk]
		if !ok {
			m = &meta{order: order}
			order++
			metas[pk] = m
		}
		m.signer = m.signer || signer
		m.writable = m.writable || writable
	}

	// The fee payer is always the first writable signer.
	touch(signers[0].PubKey, true, true)
	for _, ix := range instructions {
		for _, a := range ix.Accounts {
			touch(a.PubKey, a.IsSigner, a.IsWritable)
		}
		touch(ix.ProgramID, false, false)
	}

	var keys []string
	for pk := range metas {
		keys = append(keys, pk)
	}
	// Stable ordering within each class follows first-touch order.
	class := func(m *meta) int {
		switch {
		case m.signer && m.writable:
			return 0
		case m.signer:
			return 1
		case m.writable:
			return 2
		default:
			return 3
		}
	}
	for i := 0; i < len(keys); i++ {
		for j := i + 1; j < len(keys); j++ {
			mi, mj := metas[keys[i]], metas[keys[j]]
			ci, cj := class(mi), class(mj)
			if cj < ci || (cj == ci && mj.order < mi.order) {
				keys[i], keys[j] = keys[j], keys[i]
			}
		}
	}

	index := make(map[string]int, len(keys))
	for i, k := range keys {
		index[k] = i
	}

	var numSigners, numReadonlySigned, numReadonlyUnsigned int
	for _, k := range keys {
		m := metas[k]
		if m.signer {
			numSigners++
			if !m.writable {
				numReadonlySigned++
			}
		} else if !m.writable {
			numReadonlyUnsigned++
		}
	}

	var msg bytes.Buffer
	msg.WriteByte(byte(numSigners))
	msg.WriteByte(byte(numReadonlySigned))
	msg.WriteByte(byte(numReadonlyUnsigned))

	writeCompactU16(&msg, uint16(len(keys)))
	for _, k := range keys {
		raw, err := base58.Decode(k)
		if err != nil || len(raw) != 32 {
			return nil, nil, 0, fmt.Errorf("invalid account key %s", k)
		}
		msg.Write(raw)
	}

	bh, err := base58.Decode(blockhash)
	if err != nil || len(bh) != 32 {
		return nil, nil, 0, fmt.Errorf("invalid blockhash %s", blockhash)
	}
	msg.Write(bh)

	writeCompactU16(&msg, uint16(len(instructions)))
	for _, ix := range instructions {
		msg.WriteByte(byte(index[ix.ProgramID]))
		writeCompactU16(&msg, uint16(len(ix.Accounts)))
		for _, a := range ix.Accounts {
			msg.WriteByte(byte(index[a.PubKey]))
		}
		writeCompactU16(&msg, uint16(len(ix.Data)))
		msg.Write(ix.Data)
	}

	return msg.Bytes(), keys, numSigners, nil
}

func signerFor(pubkey string, signers []Signer) (Signer, bool) {
	for _, s := range signers {
		if s.PubKey == pubkey {
			return s, true
		}
	}
	return Signer{}, false
}

// writeCompactU16 writes the shortvec length encoding.
func writeCompactU16(buf *bytes.Buffer, v uint16) {
	for {
		if v < 0x80 {
			buf.WriteByte(byte(v))
			return
		}
		buf.WriteByte(byte(v&0x7f) | 0x80)
		v >>= 7
	}
}

// SystemTransfer builds a system-program lamport transfer instruction.
func SystemTransfer(from, to string, lamports uint64) Instruction {
	data := make([]byte, 12)
	binary.LittleEndian.PutUint32(data[0:4], 2) // Transfer
	binary.LittleEndian.PutUint64(data[4:12], lamports)
	return Instruction{
		ProgramID: SystemProgramID,
		Accounts: []AccountMeta{
			{PubKey: from, IsSigner: true, IsWritable: true},
			{PubKey: to, IsWritable: true},
		},
		Data: data,
	}
}

// SetComputeUnitLimit builds a compute-budget limit instruction.
func SetComputeUnitLimit(units uint32) Instruction {
	data := make([]byte, 5)
	data[0] = 2
	binary.LittleEndian.PutUint32(data[1:5], units)
	return Instruction{ProgramID: ComputeBudgetProgramID, Data: data}
}

// SetComputeUnitPrice builds a compute-budget price instruction.
// The price is in micro-lamports per compute unit.
func SetComputeUnitPrice(microLamports uint64) Instruction {
	data := make([]byte, 9)
	data[0] = 3
	binary.LittleEndian.PutUint64(data[1:9], microLamports)
	return Instruction{ProgramID: ComputeBudgetProgramID, Data: data}
}
