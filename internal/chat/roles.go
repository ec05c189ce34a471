package chat

import "strings"

// Role tags stored with messages.
const (
	RoleDev = "Dev"
	RoleMod = "Mod"
)

// RoleClassifier maps platform role names onto the Dev and Mod tags.
// Matching is case-insensitive.
type RoleClassifier struct {
	dev map[string]struct{}
	mod map[string]struct{}
}

// NewRoleClassifier builds a classifier from the configured role names.
func NewRoleClassifier(devRoles, modRoles []string) RoleClassifier {
	toSet := func(names []string) map[string]struct{} {
		set := make(map[string]struct{}, len(names))
		for _, n := range names {
			if n = strings.ToLower(strings.TrimSpace(n)); n != "" {
				set[n] = struct{}{}
			}
		}
		return set
	}
	return RoleClassifier{dev: toSet(devRoles), mod: toSet(modRoles)}
}

func hasAny(set map[string]struct{}, names []string) bool {
	for _, n := range names {
		if _, ok := set[strings.ToLower(n)]; ok {
			return true
		}
	}
	return false
}

// Role returns RoleDev, RoleMod or "" for a set of role names. Dev wins.
func (c RoleClassifier) Role(roleNames []string) string {
	switch {
	case hasAny(c.dev, roleNames):
		return RoleDev
	case hasAny(c.mod, roleNames):
		return RoleMod
	default:
		return ""
	}
}

// Privileged reports whether m may run operator commands: a Dev or Mod role,
// the manage-messages permission, or ownership of the guild or chat.
func (c RoleClassifier) Privileged(m *Member) bool {
	if m == nil {
		return false
	}
	return m.Owner || m.ManageMessages || c.Role(m.Roles) != ""
}
