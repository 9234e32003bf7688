// Package wallet handles swarm keypair material: generation, import from
// base58 secrets, and transaction signing.
package wallet

import (
	"bufio"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"io"
	"strings"

	"github.com/mr-tron/base58"

	"solana-swarm-lab/internal/solana"
)

// Keypair is an ed25519 signing identity.
type Keypair struct {
	pub  ed25519.PublicKey
	priv ed25519.PrivateKey
}

// Generate creates a new random keypair.
func Generate() (*Keypair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate keypair: %w", err)
	}
	return &Keypair{pub: pub, priv: priv}, nil
}

// FromSecret imports a keypair from a base58-encoded 64-byte secret
// (private seed followed by public key, the conventional export format).
func FromSecret(secret string) (*Keypair, error) {
	raw, err := base58.Decode(strings.TrimSpace(secret))
	if err != nil {
		return nil, fmt.Errorf("decode secret: %w", err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("secret must be %d bytes, got %d", ed25519.PrivateKeySize, len(raw))
	}
	priv := ed25519.PrivateKey(raw)
	pub, ok := priv.Public().(ed25519.PublicKey)
	if !ok {
		return nil, fmt.Errorf("derive public key")
	}
	return &Keypair{pub: pub, priv: priv}, nil
}

// PublicKey returns the base58 account identifier.
func (k *Keypair) PublicKey() string {
	return base58.Encode(k.pub)
}

// Secret returns the base58-encoded 64-byte secret.
func (k *Keypair) Secret() string {
	return base58.Encode(k.priv)
}

// Signer returns the keypair as a transaction signer.
func (k *Keypair) Signer() solana.Signer {
	return solana.Signer{PubKey: k.PublicKey(), PrivKey: k.priv}
}

// ReadSecrets parses one base58 secret per line, skipping blanks and
// lines starting with '#'.
func ReadSecrets(r io.Reader) ([]*Keypair, error) {
	var pairs []*Keypair
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		kp, err := FromSecret(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		pairs = append(pairs, kp)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read secrets: %w", err)
	}
	return pairs, nil
}
