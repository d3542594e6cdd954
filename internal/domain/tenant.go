package domain

// Role is the caller's role inside its organization.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

// AnonymousUser is the actor id used when a request does not name one.
const AnonymousUser = "anonymous"

// TenantContext identifies the organization, actor and role of one request.
// It is built once per request from unverified headers and never shared across requests.
type TenantContext struct {
	OrganizationID string
	UserID         string
	Role           Role
}

// NewTenantContext builds a TenantContext, applying the anonymous user and
// MEMBER role defaults. An empty organization id is rejected.
func NewTenantContext(organizationID, userID, role string) (TenantContext, error) {
	if organizationID == "" {
		return TenantContext{}, ErrMissingTenant
	}
	if userID == "" {
		userID = AnonymousUser
	}
	if role == "" {
		role = string(RoleMember)
	}
	return TenantContext{
		OrganizationID: organizationID,
		UserID:         userID,
		Role:           Role(role),
	}, nil
}

// RequireRole returns a *ForbiddenError unless tc.Role exactly equals required.
func RequireRole(tc TenantContext, required Role) error {
	if tc.Role != required {
		return &ForbiddenError{Required: required}
	}
	return nil
}
