package domain

import "time"

// TradeLogEntry is the persisted form of a submitted trade, keyed by
// transaction signature.
type TradeLogEntry struct {
	Signature     string
	Account       string
	Mint          string
	Side          TradeSide
	LamportsDelta int64
	TokensDelta   int64
	Success       bool
	SubmittedAt   time.Time
}

// LogEntry converts a consumed outcome into its persisted form.
func (o *TradeOutcome) LogEntry() *TradeLogEntry {
	return &TradeLogEntry{
		Signature:     o.Signature,
		Account:       o.Account,
		Mint:          o.Mint,
		Side:          o.Side,
		LamportsDelta: o.LamportsDelta,
		TokensDelta:   o.TokensDelta,
		Success:       o.Success,
		SubmittedAt:   o.SubmittedAt,
	}
}

// BalanceEvent is the persisted form of one observed balance delta.
type BalanceEvent struct {
	Account    string
	Lamports   int64
	Tokens     int64
	Signature  string
	ObservedAt time.Time
}
