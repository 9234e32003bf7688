package broker

import (
	"context"
	"errors"
	"log"
)

// Selector resolves which broker variant must handle the next trade for
// an asset by probing its on-chain state.
type Selector struct {
	logger  *log.Logger
	fetcher *StateFetcher

	curve     Broker
	amm       Broker
	launchpad Broker
}

// NewSelector creates a selector over the three broker variants.
func NewSelector(logger *log.Logger, fetcher *StateFetcher, curve, amm, launchpad Broker) *Selector {
	if logger == nil {
		logger = log.Default()
	}
	return &Selector{
		logger:    logger,
		fetcher:   fetcher,
		curve:     curve,
		amm:       amm,
		launchpad: launchpad,
	}
}

// Resolve picks the broker for a mint. A launch-pad mint authority wins;
// otherwise a live bonding curve routes to the curve broker and a
// completed or absent curve routes to the pool broker. A failed probe
// falls back to the curve broker, the common case, rather than aborting
// the trade.
func (s *Selector) Resolve(ctx context.Context, mint string) Broker {
	authority, err := s.fetcher.MintAuthority(ctx, mint)
	if err != nil {
		s.logger.Printf("resolve %s: authority probe failed, defaulting to curve: %v", mint, err)
		return s.curve
	}
	if authority != "" && isLaunchpadAuthority(authority) {
		return s.launchpad
	}

	state, err := s.fetcher.CurveState(ctx, mint)
	switch {
	case errors.Is(err, ErrNoCurve):
		return s.amm
	case err != nil:
		s.logger.Printf("resolve %s: curve probe failed, defaulting to curve: %v", mint, err)
		return s.curve
	case state.Complete:
		return s.amm
	default:
		return s.curve
	}
}

// isLaunchpadAuthority reports whether the mint authority is the
// launch-pad program's vault authority.
func isLaunchpadAuthority(authority string) bool {
	derived, err := launchpadAuthority()
	if err != nil {
		return false
	}
	return authority == derived
}
