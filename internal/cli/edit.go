package cli

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// EditOptions holds flags for the edit command.
type EditOptions struct {
	*RootOptions
}

// NewEditCommand creates the edit command.
func NewEditCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EditOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit an issue's title and body in your editor",
		Long: `Open the issue's title and body in an editor, then commit the result
to the data branch. The editor is taken from the editor config key,
then EDITOR, then VISUAL, falling back to vi.

The buffer starts with the title as an H1 heading; everything after it
is the body.

Example:
  grit edit 7`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(opts, args[0], cmd)
		},
	}

	return cmd
}

func runEdit(opts *EditOptions, arg string, cmd *cobra.Command) error {
	id, err := parseID(arg)
	if err != nil {
		return err
	}

	tr, err := openTracker()
	if err != nil {
		return err
	}
	defer tr.Close()

	info, err := tr.Load(id)
	if err != nil {
		return commandError("failed to load issue", err)
	}

	buffer := "# " + info.Title + "\n"
	if info.Body != "" {
		buffer += "\n" + info.Body
	}
	edited, err := runEditor(tr.Project().Config.ResolvedEditor(), id, buffer)
	if err != nil {
		return WrapExitError(ExitFailure, "editor failed", err)
	}

	title, body, err := splitEditedBuffer(edited)
	if err != nil {
		return WrapExitError(ExitFailure, "invalid edit", err)
	}

	info, err = tr.SetBody(cmd.Context(), id, title, body)
	if err != nil {
		return commandError("failed to save issue", err)
	}

	out := formatter(opts.RootOptions, cmd)
	return out.Success(viewOf(info), func(w io.Writer) {
		fmt.Fprintf(w, "Updated issue #%d\n", info.Issue.ID)
	})
}

// runEditor writes content to a scratch file, runs the editor on it
// interactively, and returns the edited content.
func runEditor(editor string, id int, content string) (string, error) {
	path := filepath.Join(os.TempDir(), fmt.Sprintf("grit-edit-%d-%d.md", id, os.Getpid()))
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return "", err
	}
	defer os.Remove(path)

	ed := exec.Command(editor, path)
	ed.Stdin = os.Stdin
	ed.Stdout = os.Stdout
	ed.Stderr = os.Stderr
	if err := ed.Run(); err != nil {
		return "", err
	}

	edited, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(edited), nil
}

// splitEditedBuffer parses the edited buffer back into title and body.
func splitEditedBuffer(content string) (string, string, error) {
	content = strings.TrimLeft(content, "\n")
	rest, ok := strings.CutPrefix(content, "# ")
	if !ok {
		return "", "", fmt.Errorf("buffer must start with an H1 title heading")
	}
	title, body, _ := strings.Cut(rest, "\n")
	title = strings.TrimSpace(title)
	if title == "" {
		return "", "", fmt.Errorf("title heading is empty")
	}
	return title, strings.TrimLeft(body, "\n"), nil
}
