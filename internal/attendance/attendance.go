// Package attendance implements the per-day login/logout state machine.
// For each (identity, date) a record moves NoRecord -> OpenLogin ->
// Closed; every other transition is rejected with a reason, not an
// error. Atomicity per key is delegated to the ledger's conditional
// writes, so two concurrent logins can never both create the record.
package attendance

import (
	"fmt"
	"strings"
)

// Mode is the requested attendance transition.
type Mode string

const (
	ModeLogin  Mode = "Login"
	ModeLogout Mode = "Logout"
)

// ParseMode accepts the mode strings the web form sends ("Login",
// "logout", ...) case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "login":
		return ModeLogin, nil
	case "logout":
		return ModeLogout, nil
	default:
		return "", fmt.Errorf("invalid mode %q", s)
	}
}

// Reason explains why a mark request was accepted or rejected.
type Reason string

const (
	// ReasonMarked means the transition was applied.
	ReasonMarked Reason = "marked"
	// ReasonAlreadyMarked covers a duplicate login and any request
	// against a closed day.
	ReasonAlreadyMarked Reason = "already marked"
	// ReasonNoOpenLogin means a logout arrived with no login that day.
	ReasonNoOpenLogin Reason = "no login found"
)
