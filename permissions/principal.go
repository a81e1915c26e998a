package permissions

// Principal is the authenticated identity of a request. It is built once,
// after the token has been verified, and is read-only afterwards.
type Principal struct {
	PrincipalID string `json:"principalId"`
	Permissions Set    `json:"permissions"`
	AuthToken   string `json:"authToken"`
}

// NewPrincipal returns a Principal with the given permissions.
func NewPrincipal(principalID string, permissions []string, authToken string) *Principal {
	return &Principal{
		PrincipalID: principalID,
		Permissions: NewSet(permissions...),
		AuthToken:   authToken,
	}
}
