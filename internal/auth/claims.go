package auth

// UserClaims is what handlers know about the caller
type UserClaims interface {
	UserID() string
	Role() string
	Source() string
}

type JWTClaims struct {
	UserUUID  string
	RoleValue string
	TokenID   string
}

func (c *JWTClaims) UserID() string { return c.UserUUID }
func (c *JWTClaims) Role() string   { return c.RoleValue }
func (c *JWTClaims) Source() string { return "JWT" }
