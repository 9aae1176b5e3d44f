package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/grit-vcs/grit/internal/issue"
	"github.com/grit-vcs/grit/internal/tracker"
)

// issueView is the JSON projection of a record.
type issueView struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Status    string `json:"status"`
	Assignee  string `json:"assignee,omitempty"`
	Branch    string `json:"branch,omitempty"`
	Session   string `json:"session,omitempty"`
	Epic      string `json:"epic,omitempty"`
	DependsOn []int  `json:"depends_on,omitempty"`
	Created   string `json:"created"`
	Path      string `json:"path"`
	Body      string `json:"body,omitempty"`
}

func viewOf(info *tracker.IssueInfo) issueView {
	return issueView{
		ID:        info.Issue.ID,
		Title:     info.Title,
		Status:    info.Issue.Status.String(),
		Assignee:  info.Issue.Assignee,
		Branch:    info.Issue.Branch,
		Session:   info.Issue.Session,
		Epic:      info.Issue.Epic,
		DependsOn: info.Issue.DependsOn,
		Created:   info.Issue.Created.Format(time.RFC3339),
		Path:      info.Path,
		Body:      info.Body,
	}
}

func viewsOf(infos []tracker.IssueInfo) []issueView {
	views := make([]issueView, 0, len(infos))
	for i := range infos {
		views = append(views, viewOf(&infos[i]))
	}
	return views
}

func statusColor(s issue.Status) *color.Color {
	switch s {
	case issue.InProgress:
		return color.New(color.FgYellow)
	case issue.Open:
		return color.New(color.FgCyan)
	case issue.Done:
		return color.New(color.FgGreen)
	default:
		return color.New(color.FgHiBlack)
	}
}

// renderIssueTable writes one row per record. Status stays uncolored
// here so tabwriter column widths come out right.
func renderIssueTable(w io.Writer, infos []tracker.IssueInfo) {
	if len(infos) == 0 {
		fmt.Fprintln(w, "No issues found.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tTITLE\tASSIGNEE\tEPIC")
	for i := range infos {
		info := &infos[i]
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			info.Issue.ID, info.Issue.Status, info.Title, info.Issue.Assignee, info.Issue.Epic)
	}
	tw.Flush()
}

// renderIssueDetail writes the full record, used by show and by
// mutation commands in text mode.
func renderIssueDetail(w io.Writer, info *tracker.IssueInfo) {
	fmt.Fprintf(w, "#%d %s\n", info.Issue.ID, info.Title)
	fmt.Fprintf(w, "Status:   %s\n", statusColor(info.Issue.Status).Sprint(info.Issue.Status))
	fmt.Fprintf(w, "Created:  %s\n", info.Issue.Created.Format(time.RFC3339))
	if info.Issue.Assignee != "" {
		fmt.Fprintf(w, "Assignee: %s\n", info.Issue.Assignee)
	}
	if info.Issue.Branch != "" {
		fmt.Fprintf(w, "Branch:   %s\n", info.Issue.Branch)
	}
	if info.Issue.Session != "" {
		fmt.Fprintf(w, "Session:  %s\n", info.Issue.Session)
	}
	if info.Issue.Epic != "" {
		fmt.Fprintf(w, "Epic:     %s\n", info.Issue.Epic)
	}
	if len(info.Issue.DependsOn) > 0 {
		deps := make([]string, len(info.Issue.DependsOn))
		for i, d := range info.Issue.DependsOn {
			deps[i] = fmt.Sprintf("#%d", d)
		}
		fmt.Fprintf(w, "Depends:  %s\n", strings.Join(deps, ", "))
	}
	if info.Body != "" {
		fmt.Fprintf(w, "\n%s", info.Body)
	}
}

// renderBoard writes records grouped into one column block per status.
func renderBoard(w io.Writer, infos []tracker.IssueInfo) {
	order := []issue.Status{issue.InProgress, issue.Open, issue.Done, issue.WontFix}
	for _, status := range order {
		var group []tracker.IssueInfo
		for _, info := range infos {
			if info.Issue.Status == status {
				group = append(group, info)
			}
		}
		if len(group) == 0 {
			continue
		}
		header := fmt.Sprintf("%s (%d)", strings.ToUpper(status.String()), len(group))
		fmt.Fprintln(w, statusColor(status).Sprint(header))
		for i := range group {
			suffix := ""
			if group[i].Issue.Assignee != "" {
				suffix = " (" + group[i].Issue.Assignee + ")"
			}
			fmt.Fprintf(w, "  #%d %s%s\n", group[i].Issue.ID, group[i].Title, suffix)
		}
		fmt.Fprintln(w)
	}
}
