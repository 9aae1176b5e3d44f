package issue

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const frontMatterDelimiter = "---"

// FormatError reports a record that cannot be decoded. It is never
// repaired silently; callers surface it or run explicit migration.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return "invalid issue format: " + e.Reason
}

// frontMatter mirrors Issue for serialization, with the creation
// timestamp pinned to one RFC 3339 rendering. Field order is the
// contract: alphabetical, stable across encode/decode cycles.
type frontMatter struct {
	Assignee  string  `yaml:"assignee,omitempty"`
	Branch    string  `yaml:"branch,omitempty"`
	Created   string  `yaml:"created"`
	DependsOn []int   `yaml:"depends_on,omitempty,flow"`
	Epic      string  `yaml:"epic,omitempty"`
	ID        int     `yaml:"id"`
	Session   string  `yaml:"session,omitempty"`
	Status    *Status `yaml:"status"`
}

// Encode renders an issue as YAML front matter, a blank line, the
// title as an H1 heading, and the body. The output is deterministic:
// re-encoding a decoded record is byte-identical, which the git layer
// relies on to skip commits when nothing changed.
func Encode(is *Issue, title, body string) ([]byte, error) {
	fm := frontMatter{
		Assignee:  is.Assignee,
		Branch:    is.Branch,
		Created:   is.Created.UTC().Format(time.RFC3339),
		DependsOn: is.DependsOn,
		Epic:      is.Epic,
		ID:        is.ID,
		Session:   is.Session,
		Status:    &is.Status,
	}

	var buf bytes.Buffer
	buf.WriteString(frontMatterDelimiter)
	buf.WriteByte('\n')

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(fm); err != nil {
		return nil, fmt.Errorf("encode front matter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode front matter: %w", err)
	}

	buf.WriteString(frontMatterDelimiter)
	buf.WriteString("\n\n# ")
	buf.WriteString(title)
	buf.WriteByte('\n')

	if body != "" {
		buf.WriteByte('\n')
		buf.WriteString(body)
		if !strings.HasSuffix(body, "\n") {
			buf.WriteByte('\n')
		}
	}

	return buf.Bytes(), nil
}

// Decode parses an encoded record, returning the issue, its title and
// its body. The front matter must be the first non-whitespace content,
// must be closed, and the body must open with an H1 title heading.
func Decode(data []byte) (*Issue, string, string, error) {
	yamlPart, body, err := splitFrontMatter(data)
	if err != nil {
		return nil, "", "", err
	}

	var fm frontMatter
	if err := yaml.Unmarshal([]byte(yamlPart), &fm); err != nil {
		return nil, "", "", &FormatError{Reason: err.Error()}
	}
	is, err := fm.toIssue()
	if err != nil {
		return nil, "", "", err
	}

	title, body, err := splitTitleHeading(body)
	if err != nil {
		return nil, "", "", err
	}
	return is, title, body, nil
}

// splitFrontMatter cuts data into the YAML between the delimiters and
// the remaining body with leading blank lines dropped.
func splitFrontMatter(data []byte) (string, string, error) {
	content := strings.TrimLeftFunc(string(data), func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})

	if !strings.HasPrefix(content, frontMatterDelimiter) {
		return "", "", &FormatError{Reason: "missing front matter"}
	}

	rest := content[len(frontMatterDelimiter):]
	end := strings.Index(rest, frontMatterDelimiter)
	if end < 0 {
		return "", "", &FormatError{Reason: "unclosed front matter"}
	}

	body := strings.TrimLeft(rest[end+len(frontMatterDelimiter):], "\n")
	return rest[:end], body, nil
}

// toIssue validates the parsed front matter and builds the issue.
func (fm frontMatter) toIssue() (*Issue, error) {
	if fm.ID <= 0 {
		return nil, &FormatError{Reason: "missing or invalid id"}
	}
	if fm.Created == "" {
		return nil, &FormatError{Reason: "missing created timestamp"}
	}
	if fm.Status == nil {
		return nil, &FormatError{Reason: "missing status"}
	}
	created, err := time.Parse(time.RFC3339, fm.Created)
	if err != nil {
		return nil, &FormatError{Reason: "bad created timestamp: " + err.Error()}
	}

	return &Issue{
		Assignee:  fm.Assignee,
		Branch:    fm.Branch,
		Created:   created.UTC(),
		DependsOn: fm.DependsOn,
		Epic:      fm.Epic,
		ID:        fm.ID,
		Session:   fm.Session,
		Status:    *fm.Status,
	}, nil
}

// splitTitleHeading extracts the H1 title from the start of the body.
// A record without a title heading is not decodable: every stored
// record must read as standalone markdown.
func splitTitleHeading(body string) (string, string, error) {
	rest, ok := strings.CutPrefix(body, "# ")
	if !ok {
		return "", "", &FormatError{Reason: "missing title heading"}
	}
	title, remainder, found := strings.Cut(rest, "\n")
	if !found {
		return title, "", nil
	}
	return title, strings.TrimLeft(remainder, "\n"), nil
}
