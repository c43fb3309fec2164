// Package roster holds the caller-supplied draft state: my role, the pool I
// pick from, bans and both teams' known picks.
package roster

import (
	"fmt"

	"bestpick/internal/champ"
	"bestpick/internal/relation"
)

// Slot is one occupied role on a team
type Slot struct {
	Role      relation.Role
	Character string
}

// State is the draft state for one ranking run. Team maps only hold occupied
// roles; unset slots are absent rather than empty strings.
type State struct {
	MyRole relation.Role
	Pool   []string
	Bans   map[string]bool
	Enemy  map[relation.Role]string
	Ally   map[relation.Role]string
}

// Input is the raw, unnormalized draft state as a caller provides it
type Input struct {
	MyRole string
	Pool   []string
	Bans   []string
	Enemy  map[string]string
	Ally   map[string]string
}

// New normalizes in into a State. Empty names are dropped; pool duplicates
// collapse onto their first occurrence.
func New(in Input) (*State, error) {
	myRole, err := relation.ParseRole(in.MyRole)
	if err != nil {
		return nil, fmt.Errorf("invalid my_role: %w", err)
	}

	s := &State{
		MyRole: myRole,
		Pool:   dedupe(champ.NormalizeAll(in.Pool)),
		Bans:   make(map[string]bool, len(in.Bans)),
	}
	for _, b := range champ.NormalizeAll(in.Bans) {
		s.Bans[b] = true
	}

	if s.Enemy, err = team(in.Enemy); err != nil {
		return nil, fmt.Errorf("invalid enemy_team: %w", err)
	}
	if s.Ally, err = team(in.Ally); err != nil {
		return nil, fmt.Errorf("invalid ally_team: %w", err)
	}
	return s, nil
}

func team(raw map[string]string) (map[relation.Role]string, error) {
	out := make(map[relation.Role]string, len(raw))
	for roleName, name := range raw {
		role, err := relation.ParseRole(roleName)
		if err != nil {
			return nil, err
		}
		key := champ.Normalize(name)
		if key == "" {
			continue
		}
		if prev, ok := out[role]; ok && prev != key {
			return nil, fmt.Errorf("role %s given twice (%s, %s)", role, prev, key)
		}
		out[role] = key
	}
	return out, nil
}

func dedupe(keys []string) []string {
	seen := make(map[string]bool, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

// Opponents returns the occupied enemy slots in role order
func (s *State) Opponents() []Slot {
	return slots(s.Enemy)
}

// Allies returns the occupied ally slots in role order
func (s *State) Allies() []Slot {
	return slots(s.Ally)
}

func slots(t map[relation.Role]string) []Slot {
	out := make([]Slot, 0, len(t))
	for _, role := range relation.Roles {
		if c, ok := t[role]; ok {
			out = append(out, Slot{Role: role, Character: c})
		}
	}
	return out
}

// Picked reports whether character is already taken by either team
func (s *State) Picked(character string) bool {
	for _, c := range s.Enemy {
		if c == character {
			return true
		}
	}
	for _, c := range s.Ally {
		if c == character {
			return true
		}
	}
	return false
}

// Available reports whether character may still be picked
func (s *State) Available(character string) bool {
	return !s.Bans[character] && !s.Picked(character)
}

// FilterAvailable returns the pool characters that are neither banned nor
// picked, in pool order
func (s *State) FilterAvailable() []string {
	out := make([]string, 0, len(s.Pool))
	for _, c := range s.Pool {
		if s.Available(c) {
			out = append(out, c)
		}
	}
	return out
}

// Characters returns every character named anywhere in the state
func (s *State) Characters() []string {
	var out []string
	out = append(out, s.Pool...)
	for b := range s.Bans {
		out = append(out, b)
	}
	for _, slot := range s.Opponents() {
		out = append(out, slot.Character)
	}
	for _, slot := range s.Allies() {
		out = append(out, slot.Character)
	}
	return out
}
