package issue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus_Canonical(t *testing.T) {
	cases := map[string]Status{
		"open":        Open,
		"in-progress": InProgress,
		"done":        Done,
		"wont-fix":    WontFix,
	}
	for input, want := range cases {
		got, err := ParseStatus(input)
		require.NoError(t, err, "ParseStatus(%q)", input)
		assert.Equal(t, want, got)
	}
}

func TestParseStatus_Synonyms(t *testing.T) {
	cases := map[string]Status{
		"WIP":         InProgress,
		"in_progress": InProgress,
		"inprogress":  InProgress,
		"wontfix":     WontFix,
		"wont_fix":    WontFix,
		"closed":      Done,
		"  Open  ":    Open,
	}
	for input, want := range cases {
		got, err := ParseStatus(input)
		require.NoError(t, err, "ParseStatus(%q)", input)
		assert.Equal(t, want, got)
	}
}

func TestParseStatus_Unknown(t *testing.T) {
	_, err := ParseStatus("bogus")
	assert.Error(t, err)
}

func TestStatus_String_Canonical(t *testing.T) {
	assert.Equal(t, "open", Open.String())
	assert.Equal(t, "in-progress", InProgress.String())
	assert.Equal(t, "done", Done.String())
	assert.Equal(t, "wont-fix", WontFix.String())
}

func TestStatus_SortPriority(t *testing.T) {
	// Listing order: in-progress < open < done < wont-fix.
	assert.Equal(t, 0, InProgress.SortPriority())
	assert.Equal(t, 1, Open.SortPriority())
	assert.Equal(t, 2, Done.SortPriority())
	assert.Equal(t, 3, WontFix.SortPriority())
}

func TestStatus_ParseDisplayRoundTrip(t *testing.T) {
	for _, st := range []Status{Open, InProgress, Done, WontFix} {
		parsed, err := ParseStatus(st.String())
		require.NoError(t, err)
		assert.Equal(t, st, parsed, "display %q should parse back", st)
	}
}
