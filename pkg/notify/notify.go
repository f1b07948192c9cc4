package notify

import (
	"encoding/json"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/umputun/feedscout/pkg/domain"
)

// Notifier renders discovery results into a report document and delivers it
// to a file or stdout.
type Notifier struct {
	format string // markdown, json, text or html
	file   string // empty means stdout
}

// New creates a notifier for the given format and destination file
func New(format, file string) (*Notifier, error) {
	switch format {
	case "markdown", "json", "text", "html":
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
	return &Notifier{format: format, file: file}, nil
}

// Notify renders the recommendations and writes the report.
// An empty list still produces a document stating nothing new was found.
func (n *Notifier) Notify(recs []domain.Recommendation, generatedAt time.Time) error {
	report, err := n.Render(recs, generatedAt)
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}

	if n.file == "" {
		fmt.Println(report)
		return nil
	}

	if dir := filepath.Dir(n.file); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report directory: %w", err)
		}
	}
	if err := os.WriteFile(n.file, []byte(report), 0o644); err != nil {
		return fmt.Errorf("write report to %s: %w", n.file, err)
	}
	lgr.Printf("[INFO] report with %d recommendations written to %s", len(recs), n.file)
	return nil
}

// Render produces the report document without delivering it
func (n *Notifier) Render(recs []domain.Recommendation, generatedAt time.Time) (string, error) {
	switch n.format {
	case "json":
		return renderJSON(recs, generatedAt)
	case "text":
		return renderText(recs, generatedAt), nil
	case "html":
		return renderHTML(recs, generatedAt), nil
	default:
		return renderMarkdown(recs, generatedAt), nil
	}
}

func renderMarkdown(recs []domain.Recommendation, generatedAt time.Time) string {
	var sb strings.Builder
	sb.WriteString("# Recommended Sources\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", generatedAt.Format("2006-01-02 15:04 MST")))

	if len(recs) == 0 {
		sb.WriteString("No new sources found this run.\n")
		return sb.String()
	}

	for _, rec := range recs {
		sb.WriteString(fmt.Sprintf("## %d. %s\n\n", rec.Rank, displayTitle(rec)))
		sb.WriteString(fmt.Sprintf("- **Identity**: %s\n", rec.Identity))
		sb.WriteString(fmt.Sprintf("- **Type**: %s\n", rec.Kind))
		sb.WriteString(fmt.Sprintf("- **Relevance**: %.0f%%\n", rec.Score*100))
		sb.WriteString(fmt.Sprintf("- **Citations**: %d\n", rec.CitationCount()))
		sb.WriteString(fmt.Sprintf("- **Why**: %s\n\n", rec.Reasoning))
	}
	return sb.String()
}

func renderText(recs []domain.Recommendation, generatedAt time.Time) string {
	var sb strings.Builder
	sb.WriteString("Recommended Sources\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", generatedAt.Format("2006-01-02 15:04 MST")))

	if len(recs) == 0 {
		sb.WriteString("No new sources found this run.\n")
		return sb.String()
	}

	for _, rec := range recs {
		sb.WriteString(fmt.Sprintf("%d. %s (%s, %s)\n", rec.Rank, displayTitle(rec), rec.Identity, rec.Kind))
		sb.WriteString(fmt.Sprintf("   relevance %.0f%%, cited %d times\n", rec.Score*100, rec.CitationCount()))
		sb.WriteString(fmt.Sprintf("   %s\n\n", rec.Reasoning))
	}
	return sb.String()
}

func renderJSON(recs []domain.Recommendation, generatedAt time.Time) (string, error) {
	type entry struct {
		Rank          int     `json:"rank"`
		Name          string  `json:"name"`
		Identity      string  `json:"identity"`
		Kind          string  `json:"kind"`
		Score         float64 `json:"score"`
		CitationCount int     `json:"citation_count"`
		Reasoning     string  `json:"reasoning"`
	}
	out := struct {
		GeneratedAt     time.Time `json:"generated_at"`
		Recommendations []entry   `json:"recommendations"`
	}{GeneratedAt: generatedAt, Recommendations: make([]entry, 0, len(recs))}

	for _, rec := range recs {
		out.Recommendations = append(out.Recommendations, entry{
			Rank:          rec.Rank,
			Name:          displayTitle(rec),
			Identity:      rec.Identity,
			Kind:          string(rec.Kind),
			Score:         rec.Score,
			CitationCount: rec.CitationCount(),
			Reasoning:     rec.Reasoning,
		})
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal recommendations: %w", err)
	}
	return string(data), nil
}

func renderHTML(recs []domain.Recommendation, generatedAt time.Time) string {
	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html>\n<head><title>Recommended Sources</title></head>\n<body>\n")
	sb.WriteString("<h1>Recommended Sources</h1>\n")
	sb.WriteString(fmt.Sprintf("<p>Generated: %s</p>\n", generatedAt.Format("2006-01-02 15:04 MST")))

	if len(recs) == 0 {
		sb.WriteString("<p>No new sources found this run.</p>\n</body>\n</html>\n")
		return sb.String()
	}

	sb.WriteString("<table>\n<tr><th>#</th><th>Source</th><th>Type</th><th>Relevance</th><th>Citations</th><th>Why</th></tr>\n")
	for _, rec := range recs {
		sb.WriteString(fmt.Sprintf("<tr><td>%d</td><td>%s<br><small>%s</small></td><td>%s</td><td>%.0f%%</td><td>%d</td><td>%s</td></tr>\n",
			rec.Rank, html.EscapeString(displayTitle(rec)), html.EscapeString(rec.Identity),
			rec.Kind, rec.Score*100, rec.CitationCount(), html.EscapeString(rec.Reasoning)))
	}
	sb.WriteString("</table>\n</body>\n</html>\n")
	return sb.String()
}

func displayTitle(rec domain.Recommendation) string {
	if rec.Name != "" {
		return rec.Name
	}
	return rec.Identity
}
