package domain

// Identity is the authenticated caller passed into every core operation.
// It is supplied by the session layer; the core never manages tokens itself.
type Identity struct {
	UserID   int64
	Username string
	IsAdmin  bool
}

// RequireAdmin returns an AuthorizationError unless the identity is an admin.
func (id Identity) RequireAdmin(op string) error {
	if !id.IsAdmin {
		return &AuthorizationError{Op: op}
	}
	return nil
}
