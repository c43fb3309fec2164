package relation

import (
	"errors"
	"fmt"
	"strings"
)

// Role is a lane assignment
type Role string

const (
	Top     Role = "top"
	Jungle  Role = "jungle"
	Middle  Role = "middle"
	Bottom  Role = "bottom"
	Support Role = "support"
)

// Roles lists every role in lane order (top to support)
var Roles = []Role{Top, Jungle, Middle, Bottom, Support}

// ErrUnknownRole is returned when a role name cannot be mapped to a Role
var ErrUnknownRole = errors.New("unknown role")

// ParseRole converts a role name (or a common alias) to a Role
func ParseRole(name string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "top":
		return Top, nil
	case "jungle", "jg":
		return Jungle, nil
	case "middle", "mid":
		return Middle, nil
	case "bottom", "bot", "adc":
		return Bottom, nil
	case "support", "utility", "sup":
		return Support, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, name)
	}
}

// Index returns the role's position in Roles, or -1 for an invalid role
func (r Role) Index() int {
	for i, role := range Roles {
		if role == r {
			return i
		}
	}
	return -1
}

// Valid reports whether r is one of the five roles
func (r Role) Valid() bool {
	return r.Index() >= 0
}

func (r Role) String() string {
	return string(r)
}

// Kind distinguishes matchup tables (vs opponents) from synergy tables (with allies)
type Kind string

const (
	Matchup Kind = "matchup"
	Synergy Kind = "synergy"
)

// Kinds lists both relation kinds
var Kinds = []Kind{Matchup, Synergy}

func (k Kind) String() string {
	return string(k)
}

// Plural returns the directory-style name ("matchups", "synergies")
func (k Kind) Plural() string {
	if k == Synergy {
		return "synergies"
	}
	return "matchups"
}

// TableID identifies the table owned by one of my characters in one role
type TableID struct {
	Role      Role
	Character string
	Kind      Kind
}

func (id TableID) String() string {
	return fmt.Sprintf("%s %s %s", id.Character, id.Role, id.Kind)
}
