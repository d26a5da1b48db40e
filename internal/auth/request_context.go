package auth

import "context"

type claimsKey struct{}

// SetUserClaims attaches verified claims to ctx
func SetUserClaims(ctx context.Context, claims UserClaims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// GetUserClaims returns the claims set by the auth middleware, or nil
func GetUserClaims(ctx context.Context) UserClaims {
	claims, _ := ctx.Value(claimsKey{}).(UserClaims)
	return claims
}

// UserIDFromContext reports the authenticated user id. Claims with an empty subject count as absent.
func UserIDFromContext(ctx context.Context) (string, bool) {
	claims := GetUserClaims(ctx)
	if claims == nil || claims.UserID() == "" {
		return "", false
	}
	return claims.UserID(), true
}
