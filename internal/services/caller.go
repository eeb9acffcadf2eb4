package services

import "fmt"

// Capability names as carried in the "caps" token claim
const (
	CapManageDraws   = "draws:manage"
	CapRunSelection  = "selection:run"
	CapAssignManual  = "winners:assign"
	CapRunExpiry     = "expiry:run"
	CapManagePayouts = "payouts:manage"
)

// CallerCapabilities is the authorization decision made outside the engine
type CallerCapabilities struct {
	CanManageDraws   bool
	CanRunSelection  bool
	CanAssignManual  bool
	CanRunExpiry     bool
	CanManagePayouts bool
}

// Caller identifies who invokes an engine operation.
// ID is the operator or system identity; MemberID is set for member callers.
type Caller struct {
	ID           string
	MemberID     string
	Capabilities CallerCapabilities
}

// SystemCaller is used by the scheduled sweep
var SystemCaller = Caller{
	ID: "system",
	Capabilities: CallerCapabilities{
		CanRunSelection: true,
		CanRunExpiry:    true,
	},
}

// CapabilitiesFromClaims maps capability names to flags; unknown names are ignored
func CapabilitiesFromClaims(caps []string) CallerCapabilities {
	var c CallerCapabilities
	for _, name := range caps {
		switch name {
		case CapManageDraws:
			c.CanManageDraws = true
		case CapRunSelection:
			c.CanRunSelection = true
		case CapAssignManual:
			c.CanAssignManual = true
		case CapRunExpiry:
			c.CanRunExpiry = true
		case CapManagePayouts:
			c.CanManagePayouts = true
		}
	}
	return c
}

func require(allowed bool, capability string) error {
	if !allowed {
		return fmt.Errorf("%w: missing capability %s", ErrForbidden, capability)
	}
	return nil
}
