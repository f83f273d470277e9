// Package render writes the document view to a terminal.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/starford/docview/internal/docview"
	"github.com/starford/docview/internal/models"
)

// Format is the output format of the view.
type Format string

const (
	// FormatText is human-readable text (default).
	FormatText Format = "text"
	// FormatJSON is structured JSON for machine consumption.
	FormatJSON Format = "json"
)

// ParseFormat maps a flag value onto a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown format %q (want text or json)", s)
}

// Tab selects which part of the view is written.
type Tab string

const (
	TabAll      Tab = "all"
	TabSummary  Tab = "summary"
	TabDocument Tab = "document"
	TabHistory  Tab = "history"
)

const dateLayout = "02/01/2006" // en-GB
const timeLayout = "15:04:05"

const rule = "─────────────────────────────────────────────────────────"

// viewJSON is the JSON shape of a full view.
type viewJSON struct {
	Document  *models.Document  `json:"document,omitempty"`
	LoadError string            `json:"loadError,omitempty"`
	Session   *docview.Snapshot `json:"session,omitempty"`
}

// WriteView writes the loader state and session snapshot to w.
func WriteView(w io.Writer, st docview.LoadState, snap docview.Snapshot, tab Tab, format Format) error {
	if format == FormatJSON {
		out := viewJSON{LoadError: st.Err}
		if st.Loaded {
			doc := st.Document
			out.Document = &doc
			out.Session = &snap
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	if st.Err != "" {
		fmt.Fprintf(w, "error: %s\n", st.Err)
		return nil
	}
	if st.Loading {
		fmt.Fprintln(w, "Loading document...")
		return nil
	}
	writeHeader(w, st.Document)
	switch tab {
	case TabSummary:
		writeSection(w, "AI-Generated Summary", st.Document.Summary)
	case TabDocument:
		writeSection(w, "Document Content", st.Document.Content)
	case TabHistory:
		WriteHistory(w, snap)
	default:
		writeSection(w, "AI-Generated Summary", st.Document.Summary)
		writeSection(w, "Document Content", st.Document.Content)
		WriteHistory(w, snap)
	}
	return nil
}

func writeHeader(w io.Writer, doc models.Document) {
	fmt.Fprintf(w, "\n%s\n", doc.Title)
	if doc.Subject != "" {
		fmt.Fprintf(w, "Subject: %s\n", doc.Subject)
	}
	fmt.Fprintf(w, "Uploaded %s • Last viewed %s\n\n",
		doc.UploadedDate.Local().Format(dateLayout),
		doc.LastViewed.Local().Format(dateLayout))
}

func writeSection(w io.Writer, title, body string) {
	fmt.Fprintf(w, "── %s ──\n", title)
	if strings.TrimSpace(body) == "" {
		fmt.Fprintln(w, "(empty)")
	} else {
		fmt.Fprintln(w, body)
	}
	fmt.Fprintln(w)
}

// WriteHistory writes the query log. Only the expanded entry shows its answer.
func WriteHistory(w io.Writer, snap docview.Snapshot) {
	fmt.Fprintln(w, "── Query History ──")
	if len(snap.Queries) == 0 {
		fmt.Fprintln(w, "No query history yet")
		return
	}
	for i, q := range snap.Queries {
		fmt.Fprintln(w, rule)
		fmt.Fprintf(w, "[%d] %s\n", i, q.Question)
		fmt.Fprintf(w, "    %s\n", FormatTimestamp(q.Timestamp.Time))
		if snap.IsExpanded(i) {
			fmt.Fprintf(w, "\n%s\n", q.Answer)
		}
	}
	fmt.Fprintln(w, rule)
}

// WriteAnswer writes a single question and answer.
func WriteAnswer(w io.Writer, q models.Query) {
	fmt.Fprintf(w, "Q: %s\n", q.Question)
	fmt.Fprintf(w, "A: %s\n", q.Answer)
	fmt.Fprintf(w, "   %s\n", FormatTimestamp(q.Timestamp.Time))
}

// WriteStatus writes the submission line shown under the input.
func WriteStatus(w io.Writer, snap docview.Snapshot) {
	switch {
	case snap.Submitting():
		fmt.Fprintln(w, "Processing...")
	case snap.Err != "":
		fmt.Fprintf(w, "error: %s\n", snap.Err)
	}
}

// FormatTimestamp renders t as local time of day followed by the en-GB date.
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	lt := t.Local()
	return lt.Format(timeLayout) + " " + lt.Format(dateLayout)
}
