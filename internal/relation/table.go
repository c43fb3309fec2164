package relation

// MinGames is the smallest sample size treated as a real signal
const MinGames = 33

const (
	neutralWinRate = 50.0
)

// Record is one observed relation between my character and a counterpart in a role
type Record struct {
	Role       Role    `json:"role"`
	Character  string  `json:"character"`
	WinRate    float64 `json:"win_rate"`
	Delta1     float64 `json:"delta1"`
	Delta2     float64 `json:"delta2"`
	PickRate   float64 `json:"pick_rate"`
	SampleSize int     `json:"sample_size"`
}

// Key returns the record's identity within a table
func (r Record) Key() Key {
	return Key{Role: r.Role, Character: r.Character}
}

// Neutral returns the zero-signal substitute used when data is absent or too thin
func Neutral(role Role, character string) Record {
	return Record{
		Role:      role,
		Character: character,
		WinRate:   neutralWinRate,
	}
}

// SufficientSample reports whether r has at least minGames games behind it
func SufficientSample(r Record, minGames int) bool {
	return r.SampleSize >= minGames
}

// Key is the (role, character) identity of a record
type Key struct {
	Role      Role
	Character string
}

// Table holds at most one record per (role, character), in insertion order
type Table struct {
	records map[Key]Record
	order   []Key
}

// NewTable creates an empty table
func NewTable() *Table {
	return &Table{records: make(map[Key]Record)}
}

// Add inserts r unless its key is already present. Returns false for a duplicate.
func (t *Table) Add(r Record) bool {
	k := r.Key()
	if _, exists := t.records[k]; exists {
		return false
	}
	t.records[k] = r
	t.order = append(t.order, k)
	return true
}

// Get looks up the record for character playing role
func (t *Table) Get(character string, role Role) (Record, bool) {
	if t == nil {
		return Record{}, false
	}
	r, ok := t.records[Key{Role: role, Character: character}]
	return r, ok
}

// Len returns the number of records
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.order)
}

// Records returns all records in insertion order
func (t *Table) Records() []Record {
	if t == nil {
		return nil
	}
	out := make([]Record, 0, len(t.order))
	for _, k := range t.order {
		out = append(out, t.records[k])
	}
	return out
}
