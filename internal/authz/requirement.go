package authz

import (
	"fmt"
	"strings"
)

// Kind selects how a Requirement is evaluated.
type Kind int

const (
	// KindNone lets every authenticated principal pass.
	KindNone Kind = iota
	// KindRoles requires any of Requirement.Roles.
	KindRoles
	// KindPermission requires Requirement.Permission.
	KindPermission
	// KindCategory requires a permission in Requirement.Category, optionally with Requirement.Action.
	KindCategory
	// KindSelfOrPermission passes the owner of a resource and otherwise requires Requirement.Permission.
	KindSelfOrPermission
)

// Requirement is what a route demands from its caller.
type Requirement struct {
	Kind       Kind
	Roles      []string
	Permission string
	Category   string
	Action     string
	OwnerID    uint64
}

// Roles requires any of names.
func Roles(names ...string) Requirement {
	return Requirement{Kind: KindRoles, Roles: names}
}

// Permission requires key.
func Permission(key string) Requirement {
	return Requirement{Kind: KindPermission, Permission: key}
}

// Category requires a permission in category. An empty action matches any action.
func Category(category, action string) Requirement {
	return Requirement{Kind: KindCategory, Category: category, Action: action}
}

// SelfOrPermission passes when the caller is ownerID and otherwise requires key.
func SelfOrPermission(ownerID uint64, key string) Requirement {
	return Requirement{Kind: KindSelfOrPermission, OwnerID: ownerID, Permission: key}
}

func (r Requirement) String() string {
	switch r.Kind {
	case KindNone:
		return "none"
	case KindRoles:
		return "roles:" + strings.Join(r.Roles, ",")
	case KindPermission:
		return "permission:" + r.Permission
	case KindCategory:
		if r.Action == "" {
			return "category:" + r.Category
		}

		return "category:" + r.Category + "/" + r.Action
	case KindSelfOrPermission:
		return fmt.Sprintf("self(%d)|permission:%s", r.OwnerID, r.Permission)
	default:
		return fmt.Sprintf("kind(%d)", int(r.Kind))
	}
}
