package champ

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/antzucaro/matchr"
	json "github.com/goccy/go-json"
)

// DefaultDataDragonURL is the Data Dragon API root
const DefaultDataDragonURL = "https://ddragon.leagueoflegends.com"

// minSuggestSimilarity is the Jaro-Winkler score below which no suggestion is made
const minSuggestSimilarity = 0.85

// championData is one entry of Data Dragon's champion.json
type championData struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name"`
}

// Registry maps normalized champion keys to display names
type Registry struct {
	baseURL string
	client  *http.Client

	mu      sync.RWMutex
	names   map[string]string // normalized key -> display name
	version string
	loaded  bool
}

// NewRegistry creates an empty registry reading from baseURL (DefaultDataDragonURL if empty)
func NewRegistry(baseURL string) *Registry {
	if baseURL == "" {
		baseURL = DefaultDataDragonURL
	}
	return &Registry{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
		names:   make(map[string]string),
	}
}

// Load fetches the champion list for the latest Data Dragon version
func (r *Registry) Load(ctx context.Context) error {
	var versions []string
	if err := r.getJSON(ctx, r.baseURL+"/api/versions.json", &versions); err != nil {
		return fmt.Errorf("failed to fetch versions: %w", err)
	}
	if len(versions) == 0 {
		return fmt.Errorf("no versions available")
	}
	latestVersion := versions[0]

	var champData struct {
		Data map[string]championData `json:"data"`
	}
	champURL := fmt.Sprintf("%s/cdn/%s/data/en_US/champion.json", r.baseURL, latestVersion)
	if err := r.getJSON(ctx, champURL, &champData); err != nil {
		return fmt.Errorf("failed to fetch champions: %w", err)
	}

	names := make(map[string]string, len(champData.Data))
	for _, c := range champData.Data {
		if key := Normalize(c.Name); key != "" {
			names[key] = c.Name
		}
	}

	r.mu.Lock()
	r.names = names
	r.version = latestVersion
	r.loaded = true
	r.mu.Unlock()
	return nil
}

func (r *Registry) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("data dragon returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Add registers a display name without going to the network
func (r *Registry) Add(displayName string) {
	key := Normalize(displayName)
	if key == "" {
		return
	}
	r.mu.Lock()
	r.names[key] = displayName
	r.loaded = true
	r.mu.Unlock()
}

// IsLoaded returns whether the registry holds any champions
func (r *Registry) IsLoaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loaded
}

// Version returns the Data Dragon version the registry was loaded from
func (r *Registry) Version() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// Known reports whether key is a registered champion
func (r *Registry) Known(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.names[key]
	return ok
}

// DisplayName returns the display name for key, or the key capitalized if unknown
func (r *Registry) DisplayName(key string) string {
	r.mu.RLock()
	name, ok := r.names[key]
	r.mu.RUnlock()
	if ok {
		return name
	}
	if key == "" {
		return ""
	}
	return strings.ToUpper(key[:1]) + key[1:]
}

// Suggest returns the known champion closest to key. ok is false when key is
// already known or nothing is similar enough.
func (r *Registry) Suggest(key string) (name string, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, known := r.names[key]; known || key == "" {
		return "", false
	}

	best := 0.0
	for candidate, display := range r.names {
		sim := matchr.JaroWinkler(key, candidate, false)
		if sim > best || (sim == best && display < name) {
			best = sim
			name = display
		}
	}
	if best < minSuggestSimilarity {
		return "", false
	}
	return name, true
}
