package surety

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/yegors/flightsurety/pkg/logger"
)

// Owner is the address allowed to pause the ledger and manage the allowlist.
func (l *Ledger) Owner() common.Address {
	return l.owner
}

// IsOperational reports whether mutating operations are accepted.
func (l *Ledger) IsOperational() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.operational
}

// SetOperatingStatus pauses or resumes the ledger. Only the owner may call it;
// setting the current value again is accepted.
func (l *Ledger) SetOperatingStatus(tx Tx, operational bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if tx.Caller != l.owner {
		return Errorf(CodeUnauthorized, "caller is not the ledger owner")
	}

	changed := l.operational != operational
	l.operational = operational
	l.state.height++

	if changed {
		l.logger.Info("Operating status changed",
			logger.Bool("operational", operational),
			logger.Address("by", tx.Caller))
		l.events.Publish(OperatingStatusChanged{Operational: operational, ChangedBy: tx.Caller})
	}
	return nil
}

// AuthorizeCaller adds addr to the allowlist of apps that may mutate the ledger.
func (l *Ledger) AuthorizeCaller(tx Tx, addr common.Address) error {
	return l.setAuthorized(tx, addr, true)
}

// DeauthorizeCaller removes addr from the allowlist.
func (l *Ledger) DeauthorizeCaller(tx Tx, addr common.Address) error {
	return l.setAuthorized(tx, addr, false)
}

func (l *Ledger) setAuthorized(tx Tx, addr common.Address, allowed bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if tx.Caller != l.owner {
		return Errorf(CodeUnauthorized, "caller is not the ledger owner")
	}
	if allowed {
		l.authorized[addr] = true
	} else {
		delete(l.authorized, addr)
	}

	l.logger.Debug("Allowlist updated",
		logger.Address("caller", addr),
		logger.Bool("authorized", allowed))
	return nil
}

// IsAuthorized reports whether addr is on the allowlist.
func (l *Ledger) IsAuthorized(addr common.Address) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.authorized[addr]
}

// requireOperational must be called with l.mu held.
func (l *Ledger) requireOperational() error {
	if !l.operational {
		return ErrNotOperational
	}
	return nil
}

// requireAuthorized must be called with l.mu held.
func (l *Ledger) requireAuthorized(addr common.Address) error {
	if !l.authorized[addr] {
		return ErrUnauthorized
	}
	return nil
}
