package auth

// Credentials is the record remembered between runs so the login form can be
// pre-filled.
type Credentials struct {
	Server   string `json:"server" yaml:"server"`
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
	Remember bool   `json:"remember" yaml:"remember"`
}

// IsZero reports whether every field still holds its default value.
func (c Credentials) IsZero() bool {
	return c == Credentials{}
}

// Masked returns a copy safe for display, with the password replaced by a
// short hint.
func (c Credentials) Masked() Credentials {
	c.Password = MaskSecret(c.Password)
	return c
}

// MaskSecret hides all but the edges of a secret.
func MaskSecret(secret string) string {
	switch {
	case secret == "":
		return ""
	case len(secret) > 8:
		return secret[:2] + "..." + secret[len(secret)-2:]
	default:
		return "********"
	}
}
