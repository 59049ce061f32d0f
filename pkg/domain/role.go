package domain

import domerrors "verza/pkg/domain-errors"

// Role is the coarse actor classification carried in access tokens. The
// engine, not the front end, is the authority on what each role may do.
type Role string

const (
	RoleRequester Role = "requester"
	RoleVerifier  Role = "verifier"
	RoleAdmin     Role = "admin"
)

// ParseRole validates a role claim from its string form.
func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleRequester, RoleVerifier, RoleAdmin:
		return Role(raw), nil
	}
	return "", domerrors.Newf(domerrors.CodeInvalidInput, "unknown role %q", raw)
}
