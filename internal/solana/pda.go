package solana

import (
	"crypto/sha256"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

const pdaMarker = "ProgramDerivedAddress"

// FindProgramAddress derives the first off-curve address for the seeds and
// program, searching bump seeds from 255 downward.
func FindProgramAddress(seeds [][]byte, programID string) (string, uint8, error) {
	program, err := base58.Decode(programID)
	if err != nil || len(program) != 32 {
		return "", 0, fmt.Errorf("invalid program id %s", programID)
	}

	for bump := 255; bump >= 0; bump-- {
		h := sha256.New()
		for _, seed := range seeds {
			h.Write(seed)
		}
		h.Write([]byte{byte(bump)})
		h.Write(program)
		h.Write([]byte(pdaMarker))
		candidate := h.Sum(nil)

		if !isOnCurve(candidate) {
			return base58.Encode(candidate), uint8(bump), nil
		}
	}

	return "", 0, fmt.Errorf("no viable program address for %s", programID)
}

// AssociatedTokenAddress derives the associated token account for a wallet
// and mint.
func AssociatedTokenAddress(wallet, mint string) (string, error) {
	walletRaw, err := base58.Decode(wallet)
	if err != nil {
		return "", fmt.Errorf("decode wallet %s: %w", wallet, err)
	}
	mintRaw, err := base58.Decode(mint)
	if err != nil {
		return "", fmt.Errorf("decode mint %s: %w", mint, err)
	}
	tokenProgram, err := base58.Decode(TokenProgramID)
	if err != nil {
		return "", err
	}

	addr, _, err := FindProgramAddress(
		[][]byte{walletRaw, tokenProgram, mintRaw},
		AssociatedTokenProgramID,
	)
	return addr, err
}

// isOnCurve reports whether a 32-byte point decodes onto the ed25519
// curve. Program-derived addresses must be off-curve so no private key
// can ever sign for them.
func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
