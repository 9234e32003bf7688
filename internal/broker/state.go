package broker

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"github.com/mr-tron/base58"

	"solana-swarm-lab/internal/domain"
	"solana-swarm-lab/internal/solana"
)

// On-chain program addresses the brokers trade against.
const (
	// CurveProgramID runs the bonding curves.
	CurveProgramID = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"

	// AMMProgramID runs the pools curves graduate into.
	AMMProgramID = "pAMMBay6oceH9fJKBRHGP5D4bD4sWpmSwMn52FMfXEA"

	// LaunchpadProgramID runs launch-pad pools.
	LaunchpadProgramID = "LanMV9sAd7wArD4vJFi2qDdfnVhFxYSUg6eADduJ3uj"

	// WrappedSolMint is the native token's SPL wrapper, the quote side
	// of every pool we trade.
	WrappedSolMint = "So11111111111111111111111111111111111111112"

	curveGlobalAccount   = "4wTV1YmiEkRvAtNtsSGPtUrqRYQMe5SKy2uB4Jjaxnjf"
	curveFeeRecipient    = "CebN5WGQ4jvEPvsVU4EoHEpgzq1VV7AbicfhtW4xC9iM"
	curveEventAuthority  = "Ce6TQqeHC9p8KetsN6JsjHK7UTZk7nasjjnr7XxXp9F1"
	curveMigrationSigner = "39azUYFWPz3VHgKCf3VChUwbpURdCHRxjWVowf5jUJjg"
)

const (
	// curveAccountSize is the serialized bonding-curve account:
	// 8-byte discriminator, five u64 reserves/supply fields, the
	// completion flag, and the 32-byte creator.
	curveAccountSize = 8 + 5*8 + 1 + 32

	// poolAccountMinSize covers the AMM pool fields through the two
	// vault addresses.
	poolAccountMinSize = 8 + 1 + 2 + 32 + 5*32
)

var (
	// ErrNoCurve is returned when the asset has no bonding-curve
	// account on chain.
	ErrNoCurve = fmt.Errorf("no bonding curve for asset")

	// ErrNoPool is returned when the canonical pool for the asset does
	// not exist.
	ErrNoPool = fmt.Errorf("no pool for asset")
)

// CurveAddress derives the bonding-curve account for a mint.
func CurveAddress(mint string) (string, error) {
	raw, err := base58.Decode(mint)
	if err != nil {
		return "", fmt.Errorf("decode mint %s: %w", mint, err)
	}
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("bonding-curve"), raw},
		CurveProgramID,
	)
	return addr, err
}

// creatorVaultAddress derives the creator fee vault a curve trade pays
// into.
func creatorVaultAddress(creator string) (string, error) {
	raw, err := base58.Decode(creator)
	if err != nil {
		return "", fmt.Errorf("decode creator %s: %w", creator, err)
	}
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("creator-vault"), raw},
		CurveProgramID,
	)
	return addr, err
}

// canonicalPoolAddress derives the AMM pool a graduated curve migrates
// into: index 0, created by the migration signer, asset against the
// wrapped native token.
func canonicalPoolAddress(mint string) (string, error) {
	mintRaw, err := base58.Decode(mint)
	if err != nil {
		return "", fmt.Errorf("decode mint %s: %w", mint, err)
	}
	creatorRaw, err := base58.Decode(curveMigrationSigner)
	if err != nil {
		return "", err
	}
	quoteRaw, err := base58.Decode(WrappedSolMint)
	if err != nil {
		return "", err
	}
	index := make([]byte, 2)
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("pool"), index, creatorRaw, mintRaw, quoteRaw},
		AMMProgramID,
	)
	return addr, err
}

// StateFetcher reads curve, pool, and mint state through the endpoint
// pool. One instance is shared by every broker variant.
type StateFetcher struct {
	pool Acquirer
}

// NewStateFetcher creates a fetcher backed by the endpoint pool.
func NewStateFetcher(pool Acquirer) *StateFetcher {
	return &StateFetcher{pool: pool}
}

// CurveState fetches and decodes the bonding-curve account for a mint.
// Returns ErrNoCurve if the account does not exist.
func (f *StateFetcher) CurveState(ctx context.Context, mint string) (*domain.CurveState, error) {
	addr, err := CurveAddress(mint)
	if err != nil {
		return nil, err
	}

	client, err := f.pool.Acquire()
	if err != nil {
		return nil, err
	}

	info, err := client.GetAccountInfo(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("fetch curve %s: %w", addr, err)
	}
	if info == nil {
		return nil, ErrNoCurve
	}
	return parseCurveAccount(info.Data)
}

// parseCurveAccount decodes the base64 bonding-curve account layout.
func parseCurveAccount(dataBase64 string) (*domain.CurveState, error) {
	raw, err := base64.StdEncoding.DecodeString(dataBase64)
	if err != nil {
		return nil, fmt.Errorf("decode curve account: %w", err)
	}
	if len(raw) < curveAccountSize {
		return nil, fmt.Errorf("curve account too short: %d bytes", len(raw))
	}

	state := &domain.CurveState{
		VirtualTokenReserves: binary.LittleEndian.Uint64(raw[8:16]),
		VirtualSolReserves:   binary.LittleEndian.Uint64(raw[16:24]),
		RealTokenReserves:    binary.LittleEndian.Uint64(raw[24:32]),
		RealSolReserves:      binary.LittleEndian.Uint64(raw[32:40]),
		TokenTotalSupply:     binary.LittleEndian.Uint64(raw[40:48]),
		Complete:             raw[48] != 0,
		Creator:              base58.Encode(raw[49:81]),
	}
	return state, nil
}

// PoolState fetches the canonical pool for a mint and the balances of
// its two vaults. Returns ErrNoPool if the pool account does not exist.
func (f *StateFetcher) PoolState(ctx context.Context, mint string) (*domain.PoolState, *poolAccounts, error) {
	addr, err := canonicalPoolAddress(mint)
	if err != nil {
		return nil, nil, err
	}

	client, err := f.pool.Acquire()
	if err != nil {
		return nil, nil, err
	}

	info, err := client.GetAccountInfo(ctx, addr)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch pool %s: %w", addr, err)
	}
	if info == nil {
		return nil, nil, ErrNoPool
	}

	accounts, err := parsePoolAccount(info.Data)
	if err != nil {
		return nil, nil, err
	}

	baseReserves, err := client.GetTokenAccountBalance(ctx, accounts.baseVault)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch pool base vault: %w", err)
	}
	quoteReserves, err := client.GetTokenAccountBalance(ctx, accounts.quoteVault)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch pool quote vault: %w", err)
	}

	state := &domain.PoolState{
		Address:       addr,
		BaseMint:      accounts.baseMint,
		QuoteMint:     accounts.quoteMint,
		BaseReserves:  baseReserves,
		QuoteReserves: quoteReserves,
		FeeBps:        ammFeeBps,
	}
	return state, accounts, nil
}

// poolAccounts carries the pool-owned addresses a swap instruction
// references.
type poolAccounts struct {
	baseMint   string
	quoteMint  string
	lpMint     string
	baseVault  string
	quoteVault string
}

// parsePoolAccount decodes the base64 pool account layout: 8-byte
// discriminator, bump, u16 index, creator, then five 32-byte addresses.
func parsePoolAccount(dataBase64 string) (*poolAccounts, error) {
	raw, err := base64.StdEncoding.DecodeString(dataBase64)
	if err != nil {
		return nil, fmt.Errorf("decode pool account: %w", err)
	}
	if len(raw) < poolAccountMinSize {
		return nil, fmt.Errorf("pool account too short: %d bytes", len(raw))
	}

	return &poolAccounts{
		baseMint:   base58.Encode(raw[43:75]),
		quoteMint:  base58.Encode(raw[75:107]),
		lpMint:     base58.Encode(raw[107:139]),
		baseVault:  base58.Encode(raw[139:171]),
		quoteVault: base58.Encode(raw[171:203]),
	}, nil
}

// MintAuthority fetches the mint account and returns its authority, or
// empty when the authority is revoked or the mint does not exist.
func (f *StateFetcher) MintAuthority(ctx context.Context, mint string) (string, error) {
	client, err := f.pool.Acquire()
	if err != nil {
		return "", err
	}

	info, err := client.GetAccountInfo(ctx, mint)
	if err != nil {
		return "", fmt.Errorf("fetch mint %s: %w", mint, err)
	}
	if info == nil {
		return "", nil
	}

	raw, err := base64.StdEncoding.DecodeString(info.Data)
	if err != nil {
		return "", fmt.Errorf("decode mint account: %w", err)
	}
	// SPL mint layout: COption<Pubkey> authority, u64 supply, u8
	// decimals, bool initialized, COption<Pubkey> freeze authority.
	if len(raw) < 36 {
		return "", fmt.Errorf("mint account too short: %d bytes", len(raw))
	}
	if binary.LittleEndian.Uint32(raw[0:4]) == 0 {
		return "", nil
	}
	return base58.Encode(raw[4:36]), nil
}
