package domain

// User is the signed-in identity reported by the identity provider.
type User struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
}
