package authctx

import (
	"context"
	"errors"

	"idstation-backend/internal/domain"
)

type contextKey string

const userContextKey contextKey = "currentUser"

// ErrStationRequired is returned when a station-bound role carries no station.
var ErrStationRequired = errors.New("account is not assigned to a station")

// CurrentUser is the per-request authorization context. It is resolved once
// by the auth middleware; every repository call receives its station scope
// from here instead of re-deriving it per operation.
type CurrentUser struct {
	ID        int64
	Username  string
	Role      domain.UserRole
	StationID *int64
}

// StationScope returns the station id queries must be scoped to.
// superAdmin and developer accounts are unscoped (nil means all stations).
// Printers come in two flavors: station-bound, and cross-station printers
// with no station assignment, who see every station. Every other role must
// belong to exactly one station.
func (u CurrentUser) StationScope() (*int64, error) {
	switch u.Role {
	case domain.RoleSuperAdmin, domain.RoleDeveloper, domain.RolePrinter:
		return u.StationID, nil
	}
	if u.StationID == nil {
		return nil, ErrStationRequired
	}
	return u.StationID, nil
}

// Is reports whether the user holds one of the given roles.
func (u CurrentUser) Is(roles ...domain.UserRole) bool {
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}

func WithCurrentUser(ctx context.Context, user CurrentUser) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

func FromContext(ctx context.Context) *CurrentUser {
	val, ok := ctx.Value(userContextKey).(CurrentUser)
	if !ok {
		return nil
	}
	return &val
}
