package auth

import "context"

type contextKey struct{}

// UserContext identifies the authenticated caller and the household they
// belonged to when the request started.
type UserContext struct {
	UserID      int64
	HouseholdID int64
}

func WithUser(ctx context.Context, uc UserContext) context.Context {
	return context.WithValue(ctx, contextKey{}, uc)
}

func FromContext(ctx context.Context) (UserContext, bool) {
	uc, ok := ctx.Value(contextKey{}).(UserContext)
	return uc, ok
}

func HouseholdID(ctx context.Context) int64 {
	uc, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return uc.HouseholdID
}

func UserID(ctx context.Context) int64 {
	uc, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return uc.UserID
}
