package domain

// CurveState is a snapshot of one bonding-curve account. All reserve
// values are in base units and may exceed 2^53; arithmetic on them must
// stay integer.
type CurveState struct {
	VirtualTokenReserves uint64
	VirtualSolReserves   uint64
	RealTokenReserves    uint64
	RealSolReserves      uint64
	TokenTotalSupply     uint64

	// Complete marks a graduated curve: trading has moved to the pool.
	Complete bool

	// Creator is the base58 curve creator, needed to derive the fee
	// vault on trades.
	Creator string
}

// PoolState is a snapshot of one AMM pool holding the asset against the
// ledger's native token.
type PoolState struct {
	// Address is the base58 pool account.
	Address string

	// BaseMint is the traded asset; QuoteMint is the native token side.
	BaseMint  string
	QuoteMint string

	// BaseReserves and QuoteReserves are vault balances in base units.
	BaseReserves  uint64
	QuoteReserves uint64

	// FeeBps is the pool trading fee in basis points.
	FeeBps uint64
}

// Quote is the pricing engine's answer for one prospective trade.
type Quote struct {
	// AmountIn is the spend side in its native unit (lamports for a
	// buy, token base units for a sell).
	AmountIn uint64

	// ExpectedOut is the output at the current reserves.
	ExpectedOut uint64

	// WorstOut is the slippage-bounded limit the transaction enforces:
	// the maximum cost for a buy, the minimum proceeds for a sell.
	WorstOut uint64
}
