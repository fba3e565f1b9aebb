package core

import "fmt"

// Role names the identity an operation requires.
type Role int

const (
	RoleAnyone Role = iota
	RoleSelf
	RoleOperator
	RoleAdministrator
)

func (r Role) String() string {
	switch r {
	case RoleAnyone:
		return "anyone"
	case RoleSelf:
		return "player"
	case RoleOperator:
		return "trusted operator"
	case RoleAdministrator:
		return "administrator"
	default:
		return "unknown"
	}
}

var requiredRoles = map[TxType]Role{
	TxInitialize:  RoleAnyone,
	TxDeposit:     RoleSelf,
	TxWithdraw:    RoleSelf,
	TxCreateGame:  RoleOperator,
	TxPayout:      RoleOperator,
	TxSetOperator: RoleAdministrator,
	TxPause:       RoleAdministrator,
	TxUnpause:     RoleAdministrator,
}

// RequiredRole returns the identity op must be invoked by.
func RequiredRole(op TxType) (Role, bool) {
	r, ok := requiredRoles[op]
	return r, ok
}

// Authorize decides whether caller may perform op. subject is the player the
// operation acts on for self-authorizing operations and ignored otherwise.
// cfg may be nil only for TxInitialize.
func Authorize(op TxType, caller, subject string, cfg *LedgerConfig) error {
	role, ok := RequiredRole(op)
	if !ok {
		return fmt.Errorf("%w: unknown operation %q", ErrUnauthorized, op)
	}
	if caller == "" {
		return fmt.Errorf("%w: empty caller", ErrUnauthorized)
	}
	var want string
	switch role {
	case RoleAnyone:
		return nil
	case RoleSelf:
		want = subject
	case RoleOperator, RoleAdministrator:
		if cfg == nil {
			return ErrNotInitialized
		}
		want = cfg.TrustedOperator
		if role == RoleAdministrator {
			want = cfg.Administrator
		}
	}
	if caller != want {
		return fmt.Errorf("%w: %s requires %s", ErrUnauthorized, op, role)
	}
	return nil
}
