package schedule

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DateLayout is the calendar-date format used in the table file and on the card.
const DateLayout = "2006-01-02"

//go:embed schedule.yaml
var defaultTable []byte

// Entry is one exam sitting.
type Entry struct {
	Subject string
	Day     string
	Date    time.Time
}

// Table maps canonical class keys to their exam sittings plus one global time window.
type Table struct {
	StartTime string
	EndTime   string
	classes   map[string][]Entry
}

type fileEntry struct {
	Subject string `yaml:"subject"`
	Day     string `yaml:"day"`
	Date    string `yaml:"date"`
}

type fileTable struct {
	StartTime string                 `yaml:"start_time"`
	EndTime   string                 `yaml:"end_time"`
	Classes   map[string][]fileEntry `yaml:"classes"`
}

// Default returns the table compiled into the binary.
func Default() (*Table, error) {
	return Parse(defaultTable)
}

// Load reads a table from path, or returns the compiled-in table when path is empty.
func Load(path string) (*Table, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schedule file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML schedule table. Keys are normalized so that the file may use
// any spelling an admin would ("11 - Arts").
func Parse(data []byte) (*Table, error) {
	var ft fileTable
	if err := yaml.Unmarshal(data, &ft); err != nil {
		return nil, fmt.Errorf("decode schedule: %w", err)
	}
	if ft.StartTime == "" || ft.EndTime == "" {
		return nil, errors.New("schedule: start_time and end_time are required")
	}
	t := &Table{StartTime: ft.StartTime, EndTime: ft.EndTime, classes: make(map[string][]Entry, len(ft.Classes))}
	for key, rows := range ft.Classes {
		norm := NormalizeClassKey(key)
		if norm == "" {
			return nil, fmt.Errorf("schedule: empty class key %q", key)
		}
		if _, dup := t.classes[norm]; dup {
			return nil, fmt.Errorf("schedule: class key %q defined twice", norm)
		}
		entries := make([]Entry, 0, len(rows))
		for i, r := range rows {
			d, err := time.Parse(DateLayout, r.Date)
			if err != nil {
				return nil, fmt.Errorf("schedule: %s row %d: bad date %q: %w", norm, i+1, r.Date, err)
			}
			entries = append(entries, Entry{Subject: r.Subject, Day: r.Day, Date: d})
		}
		t.classes[norm] = entries
	}
	return t, nil
}

// Lookup resolves a free-form class label to its sittings in table order.
func (t *Table) Lookup(classLabel string) ([]Entry, bool) {
	if t == nil {
		return nil, false
	}
	entries, ok := t.classes[NormalizeClassKey(classLabel)]
	return entries, ok
}

// Keys returns the canonical keys present in the table.
func (t *Table) Keys() []string {
	keys := make([]string, 0, len(t.classes))
	for k := range t.classes {
		keys = append(keys, k)
	}
	return keys
}

// Timing is the line printed above the schedule on every card.
func (t *Table) Timing() string {
	return fmt.Sprintf("Timing: %s - %s", t.StartTime, t.EndTime)
}

var hyphenRun = regexp.MustCompile(`\s*-\s*`)

// NormalizeClassKey maps an admin-entered class label onto the canonical schedule key:
// lower-cased, trimmed, with any whitespace around a hyphen removed.
// "11 - Arts", "11-ARTS" and "11 -arts" all become "11-arts".
func NormalizeClassKey(label string) string {
	return hyphenRun.ReplaceAllString(strings.ToLower(strings.TrimSpace(label)), "-")
}
