// Package guard gates operations on the caller's identity, role and ownership.
package guard

import (
	"context"

	"workorder-tracker/internal/domain"
	"workorder-tracker/internal/token"
)

// Request is the explicit per-request input to every guard.
// Viewer is nil for anonymous callers.
type Request struct {
	Viewer     *token.Claims
	ResourceID int64
}

// Guard returns nil to allow, or a tagged error to deny.
type Guard func(ctx context.Context, req Request) error

// OwnerLookup resolves the id of the user owning a resource.
type OwnerLookup func(ctx context.Context, resourceID int64) (int64, error)

// Chain evaluates guards left to right and stops at the first denial.
// An empty chain allows.
func Chain(guards ...Guard) Guard {
	return func(ctx context.Context, req Request) error {
		for _, g := range guards {
			if err := g(ctx, req); err != nil {
				return err
			}
		}
		return nil
	}
}

// IsAuthenticated allows any caller presenting valid claims.
func IsAuthenticated(_ context.Context, req Request) error {
	if req.Viewer == nil {
		return domain.E(domain.KindUnauthenticated, "not authenticated as user", nil)
	}
	return nil
}

// IsAdmin allows authenticated callers carrying the admin role.
func IsAdmin(ctx context.Context, req Request) error {
	if err := IsAuthenticated(ctx, req); err != nil {
		return err
	}
	if !req.Viewer.IsAdmin() {
		return domain.E(domain.KindForbidden, "not authorized as admin", nil)
	}
	return nil
}

// IsOwner allows authenticated callers owning the resource named by req.ResourceID.
// Lookup errors, including domain.ErrNotFound, are returned unchanged.
func IsOwner(lookup OwnerLookup) Guard {
	return func(ctx context.Context, req Request) error {
		if err := IsAuthenticated(ctx, req); err != nil {
			return err
		}
		ownerID, err := lookup(ctx, req.ResourceID)
		if err != nil {
			return err
		}
		if ownerID != req.Viewer.UserID {
			return domain.E(domain.KindForbidden, "not authenticated as owner", nil)
		}
		return nil
	}
}
