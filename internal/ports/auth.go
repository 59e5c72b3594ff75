package ports

type AuthClaims struct {
	SubjectID string
	Role      string
}

type TokenVerifier interface {
	Verify(raw string) (AuthClaims, error)
}
