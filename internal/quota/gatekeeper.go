package quota

import "doc-translator/internal/domain"

// Gatekeeper makes the single yes/no admission decision for a submission
// attempt. It must be consulted exactly once per attempt.
type Gatekeeper struct {
	ledger Ledger
}

// NewGatekeeper creates a gatekeeper over the given guest ledger.
func NewGatekeeper(ledger Ledger) *Gatekeeper {
	return &Gatekeeper{ledger: ledger}
}

// Admit decides whether a submission may proceed for the tier. Guests are
// admitted only while the ledger holds an unspent use; admission consumes
// it immediately and the consumption is never rolled back on a later
// submission failure. Free and paid tiers are always admitted locally.
func (g *Gatekeeper) Admit(tier domain.Tier) (bool, error) {
	if tier != domain.TierGuest {
		return true, nil
	}

	remaining, err := g.ledger.Peek()
	if err != nil {
		return false, err
	}
	if remaining <= 0 {
		return false, nil
	}

	if err := g.ledger.Consume(); err != nil {
		return false, err
	}
	return true, nil
}
