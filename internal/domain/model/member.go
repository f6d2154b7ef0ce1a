package model

// Role is the dashboard persona of a roster member.
type Role string

// Known roles.
const (
	RoleMarketing      Role = "marketing"
	RoleSales          Role = "sales"
	RoleProjectManager Role = "project_manager"
	RoleCollaborator   Role = "collaborator"
)

// Roles returns all known roles.
func Roles() []Role {
	return []Role{RoleMarketing, RoleSales, RoleProjectManager, RoleCollaborator}
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleMarketing, RoleSales, RoleProjectManager, RoleCollaborator:
		return true
	}
	return false
}

// Member is one roster entry.
type Member struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name" validate:"required,max=200"`
	Role Role   `json:"role" validate:"member_role"`
}

// Validate checks the member against its declared constraints.
func (m Member) Validate() error {
	return validateStruct("member", m)
}

// ScopeKind names what a scope groups: a team, a project or a collaboration.
type ScopeKind string

// Known scope kinds.
const (
	ScopeTeam          ScopeKind = "team"
	ScopeProject       ScopeKind = "project"
	ScopeCollaboration ScopeKind = "collaboration"
)

// Scope is the unit performance is computed for.
type Scope struct {
	ID   string    `json:"id" validate:"required"`
	Name string    `json:"name" validate:"max=200"`
	Kind ScopeKind `json:"kind" validate:"oneof=team project collaboration"`
}

// Validate checks the scope against its declared constraints.
func (s Scope) Validate() error {
	return validateStruct("scope", s)
}

// Normalize fills in the default kind.
func (s *Scope) Normalize() {
	if s.Kind == "" {
		s.Kind = ScopeTeam
	}
}
