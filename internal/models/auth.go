package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims is the payload of externally issued access tokens. The subject is the user id.
type JWTClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the token subject.
func (c *JWTClaims) UserID() string {
	if c == nil {
		return ""
	}
	return c.Subject
}

// Identity is the signed-in user as seen by the services.
type Identity struct {
	UserID  string
	Profile *Profile
}

// Authenticated reports whether a user id is present.
func (i *Identity) Authenticated() bool {
	return i != nil && i.UserID != ""
}

// Role returns the profile role, defaulting to visitor.
func (i *Identity) Role() Role {
	if i == nil || i.Profile == nil || !i.Profile.Role.Valid() {
		return RoleVisitor
	}
	return i.Profile.Role
}

// CanEdit reports whether the identity may write notes.
func (i *Identity) CanEdit() bool {
	return i.Authenticated() && i.Role().CanEdit()
}

// AssignedPack returns the profile pack number, if any.
func (i *Identity) AssignedPack() *int {
	if i == nil || i.Profile == nil {
		return nil
	}
	return i.Profile.PackNumber
}
