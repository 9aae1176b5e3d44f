package issue

import (
	"fmt"
	"slices"
	"time"
)

// Issue is one tracked record. The identifier is assigned once by the
// ledger and never reused. Optional fields use the zero value for
// "absent" and are omitted from the front matter when empty.
//
// Fields are declared in alphabetical order; the codec emits them in
// declaration order, which keeps the encoded form stable.
type Issue struct {
	Assignee  string    `yaml:"assignee,omitempty"`
	Branch    string    `yaml:"branch,omitempty"`
	Created   time.Time `yaml:"-"`
	DependsOn []int     `yaml:"depends_on,omitempty"`
	Epic      string    `yaml:"epic,omitempty"`
	ID        int       `yaml:"id"`
	Session   string    `yaml:"session,omitempty"`
	Status    Status    `yaml:"status"`
}

// New creates an open issue with the given id, stamped now.
// The timestamp is truncated to whole seconds so that the encoded
// RFC 3339 form round-trips exactly.
func New(id int) *Issue {
	return &Issue{
		ID:      id,
		Status:  Open,
		Created: time.Now().UTC().Truncate(time.Second),
	}
}

// AddDependency records that this issue depends on dep. Duplicates and
// self-references are skipped. The list stays sorted.
func (is *Issue) AddDependency(dep int) {
	if dep == is.ID || slices.Contains(is.DependsOn, dep) {
		return
	}
	is.DependsOn = append(is.DependsOn, dep)
	slices.Sort(is.DependsOn)
}

// RemoveDependency drops dep from the dependency list if present.
func (is *Issue) RemoveDependency(dep int) {
	is.DependsOn = slices.DeleteFunc(is.DependsOn, func(d int) bool {
		return d == dep
	})
	if len(is.DependsOn) == 0 {
		is.DependsOn = nil
	}
}

// Filename returns the canonical file name for an issue:
// <creation date>-issue-<zero-padded id>.md
func Filename(id int, created time.Time) string {
	return fmt.Sprintf("%s-issue-%03d.md", created.UTC().Format("2006-01-02"), id)
}

// LegacyFilename returns the pre-dated bare-numeric name. Still
// readable for old projects, never written.
func LegacyFilename(id int) string {
	return fmt.Sprintf("%d.md", id)
}

// IDSuffix returns the trailing part of a canonical file name used to
// locate an issue by id without knowing its creation date.
func IDSuffix(id int) string {
	return fmt.Sprintf("-issue-%03d.md", id)
}
