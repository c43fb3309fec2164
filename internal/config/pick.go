package config

import (
	"fmt"
	"os"
	"sort"

	"bestpick/internal/champ"
	"bestpick/internal/relation"
	"bestpick/internal/roster"

	"github.com/goccy/go-yaml"
)

// DefaultPickPath is the pick config read when no --config is given
const DefaultPickPath = "bestpick.yaml"

// Pick is the YAML draft description:
//
//	my_role: middle
//	champ_pool:
//	  middle: [ahri, "Vel'Koz"]
//	bans: [yasuo]
//	enemy_team: {middle: vex, top: ""}
//	ally_team: {support: sona}
type Pick struct {
	MyRole    string              `yaml:"my_role"`
	ChampPool map[string][]string `yaml:"champ_pool"`
	Bans      []string            `yaml:"bans"`
	EnemyTeam map[string]string   `yaml:"enemy_team"`
	AllyTeam  map[string]string   `yaml:"ally_team"`
}

// LoadPick reads and parses the pick config at path
func LoadPick(path string) (*Pick, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pick config: %w", err)
	}
	p, err := ParsePick(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return p, nil
}

// ParsePick parses a YAML pick config
func ParsePick(data []byte) (*Pick, error) {
	var p Pick
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// pool returns the pool entries listed under role. Aliases of the same role
// ("mid" and "middle") are merged in key order.
func (p *Pick) pool(role relation.Role) ([]string, error) {
	keys := make([]string, 0, len(p.ChampPool))
	for key := range p.ChampPool {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var out []string
	for _, key := range keys {
		parsed, err := relation.ParseRole(key)
		if err != nil {
			return nil, fmt.Errorf("champ_pool: %w", err)
		}
		if parsed == role {
			out = append(out, p.ChampPool[key]...)
		}
	}
	return out, nil
}

// State converts the config into the draft state for my_role
func (p *Pick) State() (*roster.State, error) {
	myRole, err := relation.ParseRole(p.MyRole)
	if err != nil {
		return nil, fmt.Errorf("my_role: %w", err)
	}
	pool, err := p.pool(myRole)
	if err != nil {
		return nil, err
	}
	return roster.New(roster.Input{
		MyRole: p.MyRole,
		Pool:   pool,
		Bans:   p.Bans,
		Enemy:  p.EnemyTeam,
		Ally:   p.AllyTeam,
	})
}

// Owners lists every (role, champion) in the pool, in role order, for updating
func (p *Pick) Owners() ([]roster.Slot, error) {
	var owners []roster.Slot
	seen := make(map[roster.Slot]bool)
	for _, role := range relation.Roles {
		names, err := p.pool(role)
		if err != nil {
			return nil, err
		}
		for _, c := range champ.NormalizeAll(names) {
			slot := roster.Slot{Role: role, Character: c}
			if !seen[slot] {
				seen[slot] = true
				owners = append(owners, slot)
			}
		}
	}
	return owners, nil
}
