package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitError_Codes(t *testing.T) {
	assert.Equal(t, ExitConflict, GetExitCode(NewExitError(ExitConflict, "claimed")))
	assert.Equal(t, ExitFailure, GetExitCode(NewExitError(ExitFailure, "boom")))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain error")))
}

func TestExitError_Unwrap(t *testing.T) {
	inner := errors.New("inner")
	err := WrapExitError(ExitConflict, "outer", inner)
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "outer: inner", err.Error())

	wrapped := fmt.Errorf("context: %w", err)
	assert.Equal(t, ExitConflict, GetExitCode(wrapped))
}

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "json", Writer: &buf}
	require.NoError(t, f.Success(map[string]int{"id": 7}, nil))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Nil(t, resp.Error)
}

func TestOutputFormatter_TextUsesRenderer(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "text", Writer: &buf}
	require.NoError(t, f.Success(nil, func(w io.Writer) {
		fmt.Fprintln(w, "rendered")
	}))
	assert.Equal(t, "rendered\n", buf.String())
}

func TestOutputFormatter_JSONError(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "json", Writer: &buf}
	require.NoError(t, f.Error("conflict", "issue 7 already claimed", nil))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "conflict", resp.Error.Code)
}
