package report

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"screenreview/internal/correlate"
	"screenreview/internal/recording"
	"screenreview/internal/regionocr"
	"screenreview/internal/transcribe"
)

// maxScreenTextRows bounds the recognized-text table for busy screens.
const maxScreenTextRows = 50

// Input collects everything the document shows.
type Input struct {
	Screen      recording.Screen
	Meta        recording.Metadata
	GeneratedAt time.Time
	Transcript  transcribe.Result
	ScreenText  []regionocr.Result
	Annotations []correlate.Annotation
	Summary     string
	Degraded    []string
	CostEuro    float64
}

// Assemble renders the markdown document.
func Assemble(in Input) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Screen Review: %s (%s)\n\n", in.Screen.Route, in.Screen.Viewport)

	writeHeader(&b, in)
	writeTranscript(&b, in)
	writeAnnotations(&b, in.Annotations)
	writeScreenText(&b, in.ScreenText)
	if summary := strings.TrimSpace(in.Summary); summary != "" {
		b.WriteString("## AI Analysis\n\n")
		b.WriteString(summary)
		b.WriteString("\n\n")
	}
	writeNotes(&b, in)

	return b.String()
}

func writeHeader(b *strings.Builder, in Input) {
	fmt.Fprintf(b, "- Route: `%s`\n", in.Screen.Route)
	viewport := in.Screen.Viewport
	if in.Meta.ViewportSize.W > 0 && in.Meta.ViewportSize.H > 0 {
		viewport = fmt.Sprintf("%s (%dx%d)", viewport, in.Meta.ViewportSize.W, in.Meta.ViewportSize.H)
	}
	fmt.Fprintf(b, "- Viewport: %s\n", viewport)
	if in.Meta.Browser != "" {
		fmt.Fprintf(b, "- Browser: %s\n", in.Meta.Browser)
	}
	if in.Meta.Git.Branch != "" || in.Meta.Git.Commit != "" {
		fmt.Fprintf(b, "- Git: %s @ %s\n", in.Meta.Git.Branch, shortCommit(in.Meta.Git.Commit))
	}
	if in.Meta.TimestampUTC != "" {
		fmt.Fprintf(b, "- Recorded: %s\n", in.Meta.TimestampUTC)
	}
	if !in.GeneratedAt.IsZero() {
		fmt.Fprintf(b, "- Generated: %s\n", in.GeneratedAt.UTC().Format(time.RFC3339))
	}
	b.WriteString("\n")
}

func writeTranscript(b *strings.Builder, in Input) {
	b.WriteString("## Transcript\n\n")
	text := strings.TrimSpace(in.Transcript.Text)
	if text == "" {
		text = transcribe.GapMarker
	}
	b.WriteString(text)
	b.WriteString("\n\n")
}

func writeAnnotations(b *strings.Builder, annotations []correlate.Annotation) {
	b.WriteString("## Annotations\n\n")
	if len(annotations) == 0 {
		b.WriteString("No annotations were produced for this screen.\n\n")
		return
	}
	for _, ann := range annotations {
		fmt.Fprintf(b, "### %d. %s\n\n", ann.Index, annotationTitle(ann))
		if ann.Position != nil {
			fmt.Fprintf(b, "- Position: (%d, %d)\n", ann.Position.X, ann.Position.Y)
		}
		if ann.OCRText != nil {
			fmt.Fprintf(b, "- UI text: %q\n", *ann.OCRText)
		}
		if ann.SpokenText != nil {
			fmt.Fprintf(b, "- Spoken: %q\n", *ann.SpokenText)
		}
		if ann.RegionImage != nil {
			fmt.Fprintf(b, "- Region image: %s\n", filepath.Base(*ann.RegionImage))
		}
		b.WriteString("\n")
	}
}

func annotationTitle(ann correlate.Annotation) string {
	trigger := "note"
	if ann.TriggerType != nil {
		trigger = *ann.TriggerType
	}
	if ann.Timestamp == nil {
		return fmt.Sprintf("[%s]", trigger)
	}
	return fmt.Sprintf("[%s] at %.1fs", trigger, *ann.Timestamp)
}

func writeScreenText(b *strings.Builder, results []regionocr.Result) {
	if len(results) == 0 {
		return
	}
	b.WriteString("## Recognized Screen Text\n\n")
	b.WriteString("| Text | Position | Confidence |\n")
	b.WriteString("| --- | --- | --- |\n")
	shown := results
	if len(shown) > maxScreenTextRows {
		shown = shown[:maxScreenTextRows]
	}
	for _, res := range shown {
		fmt.Fprintf(b, "| %s | (%d, %d) | %.2f |\n",
			escapeCell(res.Text), res.BBox.X1, res.BBox.Y1, res.Confidence)
	}
	if omitted := len(results) - len(shown); omitted > 0 {
		fmt.Fprintf(b, "\n%d additional lines omitted.\n", omitted)
	}
	b.WriteString("\n")
}

func escapeCell(text string) string {
	return strings.ReplaceAll(strings.TrimSpace(text), "|", "\\|")
}

func writeNotes(b *strings.Builder, in Input) {
	if len(in.Degraded) == 0 && in.CostEuro == 0 {
		return
	}
	b.WriteString("## Processing Notes\n\n")
	for _, note := range in.Degraded {
		fmt.Fprintf(b, "- %s\n", note)
	}
	if in.CostEuro > 0 {
		fmt.Fprintf(b, "- Provider cost: %.4f EUR\n", in.CostEuro)
	}
	b.WriteString("\n")
}

func shortCommit(commit string) string {
	if len(commit) > 8 {
		return commit[:8]
	}
	return commit
}
