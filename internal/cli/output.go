// Package cli renders search results, answers and build reports for the command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hyperjump/modulator/internal/models"
	"github.com/hyperjump/modulator/internal/search"
	"github.com/hyperjump/modulator/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

const snippetLength = 200

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("invalid output format %q (use text or json)", s)
	}
}

// WriteSearchResults writes search results to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	fmt.Fprintf(w, "\nFound %d %s for %q\n\n", response.Total, utils.Plural(response.Total, "result"), response.Query)
	keywords := search.Keywords(response.Query, 1)
	for i, result := range response.Results {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "#%d | %s | matched %d %s\n", i+1, result.Source, result.Score, utils.Plural(result.Score, "keyword"))
		fmt.Fprintf(w, "\n%s\n\n", search.Highlight(result.Text, keywords, snippetLength))
	}
	return nil
}

// WriteAnswer writes a grounded answer and its sources.
func WriteAnswer(w io.Writer, response *models.AskResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	fmt.Fprintf(w, "\n%s\n", response.Answer)
	if len(response.Sources) > 0 {
		fmt.Fprintf(w, "\nSources: %s\n", strings.Join(response.Sources, ", "))
	}
	return nil
}

// WriteBuildReport writes the outcome of one index build.
func WriteBuildReport(w io.Writer, report *models.BuildReport, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, report)
	}
	status := "ok"
	if !report.Succeeded() {
		status = "failed: " + report.Err
	}
	fmt.Fprintf(w, "Build %s (%s)\n", report.ID, status)
	fmt.Fprintf(w, "  Root:     %s\n", report.Root)
	fmt.Fprintf(w, "  Files:    %d found, %d indexed, %d failed\n", report.Files, report.Indexed, len(report.Failed))
	fmt.Fprintf(w, "  Chunks:   %d\n", report.Chunks)
	fmt.Fprintf(w, "  Duration: %s\n", report.Duration().Round(time.Millisecond))
	for _, f := range report.Failed {
		fmt.Fprintf(w, "  ! %s: %s\n", f.Path, utils.Truncate(f.Error, 120))
	}
	return nil
}

// WriteBuilds writes a build history listing, newest first.
func WriteBuilds(w io.Writer, builds []*models.BuildReport, format OutputFormat) error {
	if format == OutputJSON {
		if builds == nil {
			builds = []*models.BuildReport{}
		}
		return writeJSON(w, builds)
	}
	if len(builds) == 0 {
		fmt.Fprintln(w, "No builds recorded.")
		return nil
	}
	fmt.Fprintf(w, "%-36s  %-19s  %6s  %7s  %6s  %s\n", "ID", "STARTED", "FILES", "CHUNKS", "FAILED", "STATUS")
	for _, b := range builds {
		status := "ok"
		if !b.Succeeded() {
			status = utils.Truncate(b.Err, 40)
		}
		fmt.Fprintf(w, "%-36s  %-19s  %6d  %7d  %6d  %s\n",
			b.ID, b.StartedAt.Local().Format("2006-01-02 15:04:05"), b.Files, b.Chunks, len(b.Failed), status)
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
