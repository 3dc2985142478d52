// package formatter renders transcription results and history for the terminal and exports them (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/transcribeflow/internal/models"
	"github.com/desertthunder/transcribeflow/internal/shared"
)

// Placeholders for missing data.
const (
	NoTranscript = "No transcript generated."
	NoSummary    = "No summary available."
	NoHighlights = "No highlights extracted."
	NoKeywords   = "No keywords found"
	NoConfidence = "N/A"
)

// Export formats.
const (
	FormatText     = "txt"
	FormatMarkdown = "markdown"
	FormatCSV      = "csv"
	FormatJSON     = "json"
)

// Document is the printable view of a transcription, built from an upload result or a history item.
type Document struct {
	ID           int64           `json:"id,omitempty"`
	Filename     string          `json:"filename"`
	Timestamp    string          `json:"timestamp,omitempty"`
	Transcript   string          `json:"transcript"`
	Summary      string          `json:"summary"`
	Original     string          `json:"original_transcript,omitempty"`
	BulletPoints []string        `json:"bullet_points"`
	Keywords     []string        `json:"keywords"`
	Confidence   *float64        `json:"confidence_score,omitempty"`
	WordCount    int             `json:"word_count"`
	NumSpeakers  int             `json:"num_speakers,omitempty"`
	SonicDNA     models.SonicDNA `json:"sonic_dna"`
	AudioURL     string          `json:"audio_url,omitempty"`
}

// FromResult builds a [Document] for a fresh upload.
func FromResult(filename string, r *models.UploadResult) Document {
	doc := Document{
		Filename:     filename,
		Timestamp:    time.Now().Format(models.HistoryTimeLayout),
		Transcript:   r.Transcript,
		Summary:      r.Summary,
		BulletPoints: r.BulletPoints,
		Keywords:     r.Keywords,
		Confidence:   r.ConfidenceScore,
		WordCount:    r.WordCount,
		NumSpeakers:  r.NumSpeakers,
		SonicDNA:     r.SonicDNA,
		AudioURL:     r.AudioURL,
	}
	if r.Translated() {
		doc.Original = r.OriginalTranscript
	}
	return doc
}

// FromHistory builds a [Document] for a stored transcription.
func FromHistory(item models.HistoryItem) Document {
	return Document{
		ID:           item.ID,
		Filename:     item.Filename,
		Timestamp:    item.Timestamp,
		Transcript:   item.Transcript,
		Summary:      item.Summary,
		BulletPoints: item.BulletPoints,
		Keywords:     item.Keywords,
		Confidence:   item.ConfidenceScore,
		WordCount:    item.WordCount,
		SonicDNA:     item.SonicDNA,
		AudioURL:     audioURL(item.Filename),
	}
}

func audioURL(filename string) string {
	if filename == "" {
		return ""
	}
	return "/uploads/" + url.PathEscape(filename)
}

// FormatDuration renders seconds as m:ss.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// FormatConfidence renders a confidence score as a percentage with one decimal.
//
// Upload responses report a percentage while history stores a 0-1 fraction; both render the same.
func FormatConfidence(score *float64) string {
	if score == nil {
		return NoConfidence
	}
	v := *score
	if v <= 1 {
		v *= 100
	}
	return strconv.FormatFloat(v, 'f', 1, 64) + "%"
}

// FormatTimestamp renders a history timestamp for display, passing unparseable values through.
func FormatTimestamp(ts string) string {
	t, err := time.ParseInLocation(models.HistoryTimeLayout, ts, time.Local)
	if err != nil {
		return ts
	}
	return t.Format("Jan 2, 2006 3:04 PM")
}

// Bar renders a 0-100 value as a fixed-width bar.
func Bar(value, width int) string {
	value = min(max(value, 0), 100)
	filled := value * width / 100
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func orPlaceholder(s, placeholder string) string {
	if strings.TrimSpace(s) == "" {
		return placeholder
	}
	return s
}

// ExportToText renders a document as a plain-text report.
func ExportToText(doc Document) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "%s\n", doc.Filename)
	if doc.Timestamp != "" {
		fmt.Fprintf(&buf, "%s\n", FormatTimestamp(doc.Timestamp))
	}
	fmt.Fprintf(&buf, "Words: %d  Confidence: %s  Duration: %s", doc.WordCount, FormatConfidence(doc.Confidence), FormatDuration(doc.SonicDNA.Duration))
	if doc.NumSpeakers > 1 {
		fmt.Fprintf(&buf, "  Speakers: %d", doc.NumSpeakers)
	}
	buf.WriteString("\n\n")

	buf.WriteString("TRANSCRIPT\n")
	buf.WriteString(orPlaceholder(doc.Transcript, NoTranscript))
	buf.WriteString("\n\n")

	if doc.Original != "" {
		buf.WriteString("ORIGINAL TRANSCRIPT\n")
		buf.WriteString(doc.Original)
		buf.WriteString("\n\n")
	}

	buf.WriteString("SUMMARY\n")
	buf.WriteString(orPlaceholder(doc.Summary, NoSummary))
	buf.WriteString("\n\n")

	buf.WriteString("HIGHLIGHTS\n")
	if len(doc.BulletPoints) == 0 {
		buf.WriteString(NoHighlights + "\n")
	}
	for _, b := range doc.BulletPoints {
		fmt.Fprintf(&buf, "  • %s\n", b)
	}
	buf.WriteString("\n")

	buf.WriteString("KEYWORDS\n")
	if len(doc.Keywords) == 0 {
		buf.WriteString(NoKeywords)
	} else {
		buf.WriteString(strings.Join(doc.Keywords, ", "))
	}
	buf.WriteString("\n\n")

	buf.WriteString("SONIC DNA\n")
	writeDNA(&buf, doc.SonicDNA)

	return buf.Bytes(), nil
}

func writeDNA(w io.Writer, dna models.SonicDNA) {
	fmt.Fprintf(w, "  Energy   %s %3d\n", Bar(dna.Energy, 20), dna.Energy)
	fmt.Fprintf(w, "  Pace     %s %3d\n", Bar(dna.Pace, 20), dna.Pace)
	fmt.Fprintf(w, "  Clarity  %s %3d\n", Bar(dna.Clarity, 20), dna.Clarity)
	fmt.Fprintf(w, "  Duration %s\n", FormatDuration(dna.Duration))
}

// ExportToMarkdown renders a document as Markdown.
func ExportToMarkdown(doc Document) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", doc.Filename)
	if doc.Timestamp != "" {
		fmt.Fprintf(&buf, "_%s_\n\n", FormatTimestamp(doc.Timestamp))
	}

	buf.WriteString("| Words | Confidence | Duration | Energy | Pace | Clarity |\n")
	buf.WriteString("|---|---|---|---|---|---|\n")
	fmt.Fprintf(&buf, "| %d | %s | %s | %d | %d | %d |\n\n",
		doc.WordCount, FormatConfidence(doc.Confidence), FormatDuration(doc.SonicDNA.Duration),
		doc.SonicDNA.Energy, doc.SonicDNA.Pace, doc.SonicDNA.Clarity)

	buf.WriteString("## Summary\n\n")
	buf.WriteString(orPlaceholder(doc.Summary, NoSummary))
	buf.WriteString("\n\n## Highlights\n\n")
	if len(doc.BulletPoints) == 0 {
		fmt.Fprintf(&buf, "_%s_\n", NoHighlights)
	}
	for _, b := range doc.BulletPoints {
		fmt.Fprintf(&buf, "- %s\n", b)
	}

	buf.WriteString("\n## Keywords\n\n")
	if len(doc.Keywords) == 0 {
		fmt.Fprintf(&buf, "_%s_\n", NoKeywords)
	} else {
		for i, k := range doc.Keywords {
			if i > 0 {
				buf.WriteString(" ")
			}
			fmt.Fprintf(&buf, "`%s`", k)
		}
		buf.WriteString("\n")
	}

	buf.WriteString("\n## Transcript\n\n")
	buf.WriteString(orPlaceholder(doc.Transcript, NoTranscript))
	buf.WriteString("\n")

	if doc.Original != "" {
		buf.WriteString("\n## Original Transcript\n\n")
		buf.WriteString(doc.Original)
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// ExportToCSV converts documents to CSV with columns: ID, Filename, Timestamp, Words, Confidence, Duration, Energy, Pace, Clarity, Keywords, Summary, Transcript
func ExportToCSV(docs []Document) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Filename", "Timestamp", "Words", "Confidence", "Duration", "Energy", "Pace", "Clarity", "Keywords", "Summary", "Transcript"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, doc := range docs {
		record := []string{
			strconv.FormatInt(doc.ID, 10),
			doc.Filename,
			doc.Timestamp,
			strconv.Itoa(doc.WordCount),
			FormatConfidence(doc.Confidence),
			FormatDuration(doc.SonicDNA.Duration),
			strconv.Itoa(doc.SonicDNA.Energy),
			strconv.Itoa(doc.SonicDNA.Pace),
			strconv.Itoa(doc.SonicDNA.Clarity),
			strings.Join(doc.Keywords, "; "),
			doc.Summary,
			doc.Transcript,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// Export renders docs in format. Text, Markdown and JSON of several documents are concatenated.
func Export(docs []Document, format string) ([]byte, error) {
	switch format {
	case FormatCSV:
		return ExportToCSV(docs)
	case FormatJSON:
		if len(docs) == 1 {
			return shared.MarshalJSON(docs[0], true)
		}
		return shared.MarshalJSON(docs, true)
	case FormatMarkdown, "md":
		return joinEach(docs, ExportToMarkdown, "\n---\n\n")
	case FormatText, "text", "":
		return joinEach(docs, ExportToText, "\n"+strings.Repeat("=", 60)+"\n\n")
	default:
		return nil, fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidFlag, format)
	}
}

func joinEach(docs []Document, render func(Document) ([]byte, error), sep string) ([]byte, error) {
	var buf bytes.Buffer
	for i, doc := range docs {
		if i > 0 {
			buf.WriteString(sep)
		}
		data, err := render(doc)
		if err != nil {
			return nil, err
		}
		buf.Write(data)
	}
	return buf.Bytes(), nil
}

// Extension returns the file extension for format.
func Extension(format string) string {
	switch format {
	case FormatMarkdown, "md":
		return ".md"
	case FormatCSV:
		return ".csv"
	case FormatJSON:
		return ".json"
	default:
		return ".txt"
	}
}

// WriteExport renders doc in format and writes it to path, creating parent directories.
func WriteExport(doc Document, format, path string) (string, error) {
	data, err := Export([]Document{doc}, format)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	return path, nil
}

// WriteManifest writes data as indented JSON to path.
func WriteManifest(data any, path string) error {
	b, err := shared.MarshalJSON(data, true)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, b, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// SafeFilename strips path separators and characters that are awkward in filenames.
func SafeFilename(name string) string {
	name = strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "transcript"
	}
	return b.String()
}

// WriteHistoryTable writes one line per history item.
func WriteHistoryTable(w io.Writer, items []models.HistoryItem) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, "No transcriptions yet.")
		return err
	}
	for _, item := range items {
		_, err := fmt.Fprintf(w, "%-12d %-20s %-32s %5d words  %s\n",
			item.ID, FormatTimestamp(item.Timestamp), truncate(item.Filename, 32), item.WordCount, FormatDuration(item.SonicDNA.Duration))
		if err != nil {
			return err
		}
	}
	return nil
}

// WriteUploadJournal writes one line per local upload record.
func WriteUploadJournal(w io.Writer, records []*models.UploadRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No uploads recorded on this device.")
		return err
	}
	for _, r := range records {
		line := fmt.Sprintf("%s  %-10s %-13s %-32s %s", r.CreatedAt().Local().Format("2006-01-02 15:04"), r.Status, r.Mode, truncate(r.Filename, 32), r.TargetLanguage)
		if r.Error != "" {
			line += "  (" + r.Error + ")"
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
