package issue

import (
	"errors"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTime(t *testing.T) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, "2024-01-15T10:30:00Z")
	require.NoError(t, err)
	return ts
}

func TestDecode_Basic(t *testing.T) {
	content := `---
assignee: agent-1
created: 2024-01-15T10:30:00Z
id: 1
status: open
---

# Test issue

This is the body.
`
	is, title, body, err := Decode([]byte(content))
	require.NoError(t, err)
	assert.Equal(t, 1, is.ID)
	assert.Equal(t, Open, is.Status)
	assert.Equal(t, "agent-1", is.Assignee)
	assert.Equal(t, "Test issue", title)
	assert.Equal(t, "This is the body.\n", body)
}

func TestDecode_NoBody(t *testing.T) {
	content := `---
created: 2024-01-15T10:30:00Z
id: 1
status: open
---

# Just a title
`
	is, title, body, err := Decode([]byte(content))
	require.NoError(t, err)
	assert.Equal(t, 1, is.ID)
	assert.Equal(t, "Just a title", title)
	assert.Empty(t, body)
}

func TestDecode_InvalidFormat(t *testing.T) {
	cases := map[string]string{
		"no front matter":  "just some text",
		"unclosed":         "---\nid: 1\n",
		"no title heading": "---\ncreated: 2024-01-15T10:30:00Z\nid: 1\nstatus: open\n---\n\nNo heading here.\n",
		"missing id":       "---\ncreated: 2024-01-15T10:30:00Z\nstatus: open\n---\n\n# T\n",
		"missing created":  "---\nid: 1\nstatus: open\n---\n\n# T\n",
		"missing status":   "---\ncreated: 2024-01-15T10:30:00Z\nid: 1\n---\n\n# T\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, _, err := Decode([]byte(content))
			require.Error(t, err)
			var fe *FormatError
			assert.True(t, errors.As(err, &fe), "want FormatError, got %T", err)
		})
	}
}

func TestEncode_TitleNotInFrontMatter(t *testing.T) {
	is := &Issue{ID: 1, Status: Open, Created: testTime(t)}
	out, err := Encode(is, "Test issue", "This is the body.")
	require.NoError(t, err)

	s := string(out)
	assert.Contains(t, s, "id: 1")
	assert.Contains(t, s, "status: open")
	assert.NotContains(t, s, "title:")
	assert.Contains(t, s, "\n# Test issue\n")
	assert.True(t, len(s) > 0 && s[len(s)-1] == '\n', "trailing newline guaranteed")
}

func TestRoundTrip_AllFieldCombinations(t *testing.T) {
	base := func() *Issue {
		return &Issue{ID: 42, Status: Open, Created: testTime(t)}
	}

	cases := map[string]struct {
		issue *Issue
		title string
		body  string
	}{
		"all absent": {
			issue: base(),
			title: "Minimal",
			body:  "",
		},
		"all present": {
			issue: &Issue{
				Assignee:  "agent-1",
				Branch:    "feature/x",
				Created:   testTime(t),
				DependsOn: []int{2, 7, 13},
				Epic:      "MVP",
				ID:        42,
				Session:   "sess-abc",
				Status:    InProgress,
			},
			title: "Everything set",
			body:  "Body text.\n\nSecond paragraph.\n",
		},
		"unicode": {
			issue: base(),
			title: "Ünïcödé — 日本語タイトル",
			body:  "Körper mit Emoji 🎯 und 中文.\n",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			encoded, err := Encode(tc.issue, tc.title, tc.body)
			require.NoError(t, err)

			decoded, title, body, err := Decode(encoded)
			require.NoError(t, err)
			assert.Equal(t, tc.issue, decoded)
			assert.Equal(t, tc.title, title)

			// Re-encode must be byte-identical: the no-op write
			// optimization depends on it.
			reencoded, err := Encode(decoded, title, body)
			require.NoError(t, err)
			assert.Equal(t, string(encoded), string(reencoded))
		})
	}
}

func TestEncode_Golden(t *testing.T) {
	is := &Issue{
		Assignee:  "agent-1",
		Branch:    "feature/login",
		Created:   testTime(t),
		DependsOn: []int{2, 3},
		Epic:      "MVP",
		ID:        7,
		Session:   "sess-001",
		Status:    InProgress,
	}
	out, err := Encode(is, "Implement login flow", "Details about the login flow.\n")
	require.NoError(t, err)

	g := goldie.New(t)
	g.Assert(t, "issue_full", out)
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "2024-01-15-issue-007.md", Filename(7, testTime(t)))
	assert.Equal(t, "2024-01-15-issue-123.md", Filename(123, testTime(t)))
	assert.Equal(t, "7.md", LegacyFilename(7))
	assert.Equal(t, "-issue-007.md", IDSuffix(7))
}

func TestAddDependency(t *testing.T) {
	is := &Issue{ID: 5}
	is.AddDependency(3)
	is.AddDependency(1)
	is.AddDependency(3) // duplicate
	is.AddDependency(5) // self-reference
	assert.Equal(t, []int{1, 3}, is.DependsOn)

	is.RemoveDependency(1)
	assert.Equal(t, []int{3}, is.DependsOn)
	is.RemoveDependency(3)
	assert.Nil(t, is.DependsOn)
}
