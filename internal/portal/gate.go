package portal

import (
	"fmt"

	"github.com/SaiWorkProfile/manortha-website/internal/entity"
)

type Registry interface {
	IsAllowed(id entity.ScreenID, role entity.Role) bool
	DefaultScreen(role entity.Role) entity.ScreenID
	Items(role entity.Role, active entity.ScreenID) []entity.NavigationItem
}

// Gate applies role and screen transitions to a session. It holds no state
// of its own; callers serialize access to each session.
type Gate struct {
	registry Registry
}

func NewGate(registry Registry) *Gate {
	return &Gate{registry: registry}
}

func (g *Gate) RequestRole(s *entity.Session, role entity.Role) error {
	if s.VerificationInProgress {
		return fmt.Errorf("%w: verification for %s already in progress", entity.ErrConflict, s.PendingRole)
	}

	if s.ActiveRole != entity.RoleNone {
		return fmt.Errorf("%w: role %s is active, sign out first", entity.ErrConflict, s.ActiveRole)
	}

	if !role.Valid() {
		return fmt.Errorf("%w: %w: %q", entity.ErrValidation, entity.ErrRoleUnknown, role)
	}

	s.PendingRole = role
	s.VerificationInProgress = true

	return nil
}

// OnVerificationSuccess promotes the pending role. The returned flag is true
// when the router had to redirect.
func (g *Gate) OnVerificationSuccess(s *entity.Session) (bool, error) {
	if s.PendingRole == entity.RoleNone {
		return false, fmt.Errorf("%w: no pending role", entity.ErrState)
	}

	s.ActiveRole = s.PendingRole
	s.PendingRole = entity.RoleNone
	s.VerificationInProgress = false
	s.ActiveScreenID = g.registry.DefaultScreen(s.ActiveRole)

	return g.Revalidate(s), nil
}

func (g *Gate) CancelVerification(s *entity.Session) {
	s.PendingRole = entity.RoleNone
	s.VerificationInProgress = false
}

func (g *Gate) SignOut(s *entity.Session) {
	s.ActiveRole = entity.RoleNone
	s.PendingRole = entity.RoleNone
	s.VerificationInProgress = false
	s.ActiveScreenID = entity.ScreenWebsite
}

func (g *Gate) SelectScreen(s *entity.Session, id entity.ScreenID) error {
	if !g.registry.IsAllowed(id, s.ActiveRole) {
		return fmt.Errorf("%w: screen %q is not available for role %q", entity.ErrForbidden, id, s.ActiveRole)
	}

	s.ActiveScreenID = id

	return nil
}

// Revalidate redirects to the role's default screen when the active screen
// is not permitted. It reports whether a redirect happened.
func (g *Gate) Revalidate(s *entity.Session) bool {
	if s.ActiveRole == entity.RoleNone {
		if s.ActiveScreenID != entity.ScreenWebsite {
			s.ActiveScreenID = entity.ScreenWebsite
			return true
		}

		return false
	}

	if g.registry.IsAllowed(s.ActiveScreenID, s.ActiveRole) {
		return false
	}

	s.ActiveScreenID = g.registry.DefaultScreen(s.ActiveRole)

	return true
}

func (g *Gate) Navigation(s *entity.Session) []entity.NavigationItem {
	return g.registry.Items(s.ActiveRole, s.ActiveScreenID)
}

// Authorize checks that the session may read data scoped to a screen.
func (g *Gate) Authorize(s *entity.Session, id entity.ScreenID) error {
	if s.ActiveRole == entity.RoleNone {
		return entity.ErrUnauthorized
	}

	if !g.registry.IsAllowed(id, s.ActiveRole) {
		return fmt.Errorf("%w: screen %q", entity.ErrForbidden, id)
	}

	return nil
}
