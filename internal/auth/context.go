package auth

import (
	"context"
	"errors"
)

var ErrNoIdentity = errors.New("identity not in context")

// Identity is the authenticated caller.
type Identity struct {
	UserID      string
	WorkspaceID string
	Role        string
}

type identityKey struct{}

func WithIdentity(ctx context.Context, userID, workspaceID, role string) context.Context {
	return context.WithValue(ctx, identityKey{}, Identity{UserID: userID, WorkspaceID: workspaceID, Role: role})
}

func identity(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// FromContext returns the caller injected by RequireAccessToken. A missing
// workspace is an error; user and role may be empty for internal callers.
func FromContext(ctx context.Context) (Identity, error) {
	id, ok := identity(ctx)
	if !ok || id.WorkspaceID == "" {
		return Identity{}, ErrNoIdentity
	}
	return id, nil
}

func UserID(ctx context.Context) (string, error) {
	if id, ok := identity(ctx); ok && id.UserID != "" {
		return id.UserID, nil
	}
	return "", errors.New("user_id not in context")
}

func WorkspaceID(ctx context.Context) (string, error) {
	if id, ok := identity(ctx); ok && id.WorkspaceID != "" {
		return id.WorkspaceID, nil
	}
	return "", errors.New("workspace_id not in context")
}

func Role(ctx context.Context) (string, error) {
	if id, ok := identity(ctx); ok && id.Role != "" {
		return id.Role, nil
	}
	return "", errors.New("role not in context")
}
