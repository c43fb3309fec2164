package lolalytics

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"bestpick/internal/champ"
	"bestpick/internal/relation"

	"github.com/PuerkitoBio/goquery"
)

// cellSelector matches one counterpart cell in a counters/teammates panel
const cellSelector = "div.Cell_cell__383UV"

// fieldCount is the number of divs inside a cell: wr, delta1, delta2, pick rate, games
const fieldCount = 5

// ErrLayoutChanged means the page no longer has the cell structure the extractor expects
var ErrLayoutChanged = errors.New("page layout changed")

// laneParams is the query parameter that encodes the counterpart's role on each kind of page
var laneParams = map[relation.Kind]string{
	relation.Matchup: "vslane",
	relation.Synergy: "lane",
}

// rolePatterns[kind][role] matches hrefs pointing at a counterpart in role
var rolePatterns = buildRolePatterns()

func buildRolePatterns() map[relation.Kind]map[relation.Role]*regexp.Regexp {
	patterns := make(map[relation.Kind]map[relation.Role]*regexp.Regexp, len(laneParams))
	for kind, param := range laneParams {
		byRole := make(map[relation.Role]*regexp.Regexp, len(relation.Roles))
		for _, role := range relation.Roles {
			byRole[role] = regexp.MustCompile(`[?&]` + param + `=` + string(role) + `\b`)
		}
		patterns[kind] = byRole
	}
	return patterns
}

// CellError describes a cell that could not be parsed
type CellError struct {
	Role      relation.Role
	Character string
	Err       error
}

func (e *CellError) Error() string {
	if e.Character == "" {
		return fmt.Sprintf("%s cell: %v", e.Role, e.Err)
	}
	return fmt.Sprintf("%s %s cell: %v", e.Role, e.Character, e.Err)
}

func (e *CellError) Unwrap() error {
	return e.Err
}

// ExtractError ties an extraction failure to the table being refreshed
type ExtractError struct {
	Table relation.TableID
	Err   error
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("failed to extract %s: %v", e.Table, e.Err)
}

func (e *ExtractError) Unwrap() error {
	return e.Err
}

// ExtractTable extracts the page of id's kind, wrapping any failure in an ExtractError
func ExtractTable(id relation.TableID, html string) (*relation.Table, error) {
	t, err := Extract(id.Kind, html)
	if err != nil {
		return nil, &ExtractError{Table: id, Err: err}
	}
	return t, nil
}

// ExtractMatchups parses a matchup page (counterparts linked with vslane=<role>)
func ExtractMatchups(html string) (*relation.Table, error) {
	return Extract(relation.Matchup, html)
}

// ExtractSynergies parses a synergy page (teammates linked with lane=<role>)
func ExtractSynergies(html string) (*relation.Table, error) {
	return Extract(relation.Synergy, html)
}

// Extract parses every role's cells out of a page of the given kind. The
// first cell seen for a (role, champion) wins; later duplicates are dropped.
// Any malformed cell fails the whole page, and so does a page without cells.
func Extract(kind relation.Kind, html string) (*relation.Table, error) {
	patterns, ok := rolePatterns[kind]
	if !ok {
		return nil, fmt.Errorf("unknown relation kind %q", kind)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	cells := doc.Find(cellSelector)
	if cells.Length() == 0 {
		return nil, fmt.Errorf("%w: no %s cells on page", ErrLayoutChanged, cellSelector)
	}

	table := relation.NewTable()
	for _, role := range relation.Roles {
		pattern := patterns[role]
		var parseErr error
		cells.EachWithBreak(func(_ int, cell *goquery.Selection) bool {
			if !linksTo(cell, pattern) {
				return true
			}
			parseErr = parseCell(cell, role, table)
			return parseErr == nil
		})
		if parseErr != nil {
			return nil, parseErr
		}
	}
	return table, nil
}

func linksTo(cell *goquery.Selection, pattern *regexp.Regexp) bool {
	found := false
	cell.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		found = pattern.MatchString(href)
		return !found
	})
	return found
}

// parseCell adds the cell's record to table unless its key is already present
func parseCell(cell *goquery.Selection, role relation.Role, table *relation.Table) error {
	alt, ok := cell.Find("img[alt]").First().Attr("alt")
	character := champ.Normalize(alt)
	if !ok || character == "" {
		return &CellError{Role: role, Err: fmt.Errorf("%w: cell has no champion image", ErrLayoutChanged)}
	}

	if _, exists := table.Get(character, role); exists {
		return nil
	}

	fields := cell.Find("div")
	if fields.Length() != fieldCount {
		return &CellError{Role: role, Character: character,
			Err: fmt.Errorf("%w: found %d fields, want %d", ErrLayoutChanged, fields.Length(), fieldCount)}
	}

	texts := fields.Map(func(_ int, s *goquery.Selection) string {
		return strings.TrimSpace(s.Text())
	})

	rec := relation.Record{Role: role, Character: character}
	floats := []*float64{&rec.WinRate, &rec.Delta1, &rec.Delta2, &rec.PickRate}
	for i, dst := range floats {
		v, err := strconv.ParseFloat(texts[i], 64)
		if err != nil {
			return &CellError{Role: role, Character: character, Err: fmt.Errorf("field %d: %w", i, err)}
		}
		*dst = v
	}

	games, err := strconv.Atoi(strings.ReplaceAll(texts[4], ",", ""))
	if err != nil {
		return &CellError{Role: role, Character: character, Err: fmt.Errorf("games: %w", err)}
	}
	if games < 0 {
		return &CellError{Role: role, Character: character, Err: fmt.Errorf("negative games %d", games)}
	}
	rec.SampleSize = games

	table.Add(rec)
	return nil
}
