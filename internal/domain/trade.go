package domain

import "time"

// TradeSide distinguishes buys from sells.
type TradeSide string

const (
	TradeBuy  TradeSide = "BUY"
	TradeSell TradeSide = "SELL"
)

// TradeOutcome reports a submitted trade. It is created by a broker after
// submission, consumed once by event-bus subscribers, then discarded.
type TradeOutcome struct {
	// Signature is the base58 transaction signature.
	Signature string

	// Account is the acting account, base58.
	Account string

	// Mint is the traded asset, base58.
	Mint string

	Side TradeSide

	// LamportsDelta is the realized ledger-amount change (negative for
	// a buy's cost, positive for sell proceeds).
	LamportsDelta int64

	// TokensDelta is the realized asset change in base units.
	TokensDelta int64

	Success bool

	SubmittedAt time.Time
}

// TradeInfo is the TradeInfoFetched payload: the market snapshot the
// pricing engine worked from.
type TradeInfo struct {
	Mint              string
	PriceLamports     uint64 // lamports per whole token
	MarketCapLamports uint64
	CurveComplete     bool
}
