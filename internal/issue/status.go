package issue

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Status is the lifecycle state of an issue.
type Status int

const (
	Open Status = iota
	InProgress
	Done
	WontFix
)

// statusNames maps each status to its canonical kebab-case spelling.
var statusNames = map[Status]string{
	Open:       "open",
	InProgress: "in-progress",
	Done:       "done",
	WontFix:    "wont-fix",
}

// statusSynonyms accepts the spellings seen in the wild alongside the
// canonical ones. Parsing is liberal, display is canonical.
var statusSynonyms = map[string]Status{
	"open":        Open,
	"in-progress": InProgress,
	"in_progress": InProgress,
	"inprogress":  InProgress,
	"wip":         InProgress,
	"done":        Done,
	"closed":      Done,
	"wont-fix":    WontFix,
	"wont_fix":    WontFix,
	"wontfix":     WontFix,
}

// ParseStatus parses a status token. It accepts synonyms and is
// case-insensitive.
func ParseStatus(s string) (Status, error) {
	st, ok := statusSynonyms[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return Open, fmt.Errorf("unknown status %q", s)
	}
	return st, nil
}

// String returns the canonical spelling.
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// SortPriority orders statuses for listing: in-progress first, then
// open, done, wont-fix. Independent of creation order.
func (s Status) SortPriority() int {
	switch s {
	case InProgress:
		return 0
	case Open:
		return 1
	case Done:
		return 2
	case WontFix:
		return 3
	}
	return 4
}

// MarshalYAML emits the canonical spelling.
func (s Status) MarshalYAML() (any, error) {
	name, ok := statusNames[s]
	if !ok {
		return nil, fmt.Errorf("invalid status %d", int(s))
	}
	return name, nil
}

// UnmarshalYAML parses a status token, accepting synonyms.
func (s *Status) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	st, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = st
	return nil
}
