// Package access carries the requesting user through a request and holds
// the permission predicates evaluated against it.
package access

import (
	"context"

	"github.com/Formula-SAE/bugreport/internal/db"
)

type ctxKey struct{}

// WithUser returns a copy of ctx carrying the authenticated user.
func WithUser(ctx context.Context, user *db.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, user)
}

// UserFrom returns the authenticated user, or nil for anonymous requests.
func UserFrom(ctx context.Context) *db.User {
	user, _ := ctx.Value(ctxKey{}).(*db.User)
	return user
}

func IsAuthenticated(user *db.User) bool {
	return user != nil
}

func IsAdmin(user *db.User) bool {
	return user != nil && user.IsStaff
}

func IsSelfOrAdmin(user *db.User, target *db.User) bool {
	if user == nil {
		return false
	}
	return (target != nil && user.ID == target.ID) || user.IsStaff
}

func IsAssigneeOrAdmin(user *db.User, bug *db.Bug) bool {
	if user == nil {
		return false
	}
	if user.IsStaff {
		return true
	}
	return bug != nil && bug.AssignedToID != nil && *bug.AssignedToID == user.ID
}

// Scope selects which rows a list endpoint returns for a requester.
type Scope interface {
	scope()
}

// ScopeAll returns every row.
type ScopeAll struct{}

// ScopeByMembership returns the rows the user is a member of.
type ScopeByMembership struct {
	UserID uint
}

func (ScopeAll) scope()          {}
func (ScopeByMembership) scope() {}

// ProjectScope picks the project listing scope once per request.
func ProjectScope(user *db.User) Scope {
	if IsAdmin(user) {
		return ScopeAll{}
	}
	return ScopeByMembership{UserID: user.ID}
}
