package domain

import "sync/atomic"

// OperationKind names a run-to-exhaustion operation.
type OperationKind string

const (
	OpBuyRunOut  OperationKind = "BUY_RUN_OUT"
	OpSellRunOut OperationKind = "SELL_RUN_OUT"
)

// OperationHandle identifies a running run-to-exhaustion operation.
// The stopped flag is its only mutable field; it is flipped exactly once
// by a StopSignal and observed cooperatively by the operation loop.
type OperationHandle struct {
	// Owner identifies the component that started the operation.
	Owner string

	Kind OperationKind

	stopped atomic.Bool
}

// NewOperationHandle creates a handle in the running state.
func NewOperationHandle(owner string, kind OperationKind) *OperationHandle {
	return &OperationHandle{Owner: owner, Kind: kind}
}

// Stop flips the stopped flag. Safe to call more than once.
func (h *OperationHandle) Stop() {
	h.stopped.Store(true)
}

// Stopped reports whether a stop signal has been observed.
func (h *OperationHandle) Stopped() bool {
	return h.stopped.Load()
}

// Matches reports whether a stop request addressed to (owner, kind)
// targets this handle. Empty owner or kind acts as a wildcard.
func (h *OperationHandle) Matches(owner string, kind OperationKind) bool {
	if owner != "" && owner != h.Owner {
		return false
	}
	if kind != "" && kind != h.Kind {
		return false
	}
	return true
}
