package auth

import "context"

type contextKey string

const contextKeyUser contextKey = "auth.user"

// AnonymousUser is recorded when no identity accompanies a request.
const AnonymousUser = "anonymous"

// WithUser stores the acting user in the context.
func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, contextKeyUser, user)
}

// UserFromContext extracts the acting user, falling back to AnonymousUser.
func UserFromContext(ctx context.Context) string {
	if ctx == nil {
		return AnonymousUser
	}
	if user, ok := ctx.Value(contextKeyUser).(string); ok && user != "" {
		return user
	}
	return AnonymousUser
}
