package pipeline

import (
	"context"
	"fmt"
	"strings"

	"screenreview/internal/correlate"
	"screenreview/internal/logging"
	"screenreview/internal/recording"
	"screenreview/internal/transcribe"
)

const analysisSystemPrompt = `You are a frontend QA assistant. You receive the review of one
application screen: the spoken feedback of a reviewer plus the UI elements
they pointed at. Write a concise bug report in markdown with the sections
"Findings" and "Suggested fixes". Keep each finding to one bullet. Answer in
the language of the spoken feedback.`

// runAnalysis produces the optional AI summary. It never aborts the screen;
// failures degrade the stage and the export continues without a summary.
func (r *Runner) runAnalysis(ctx context.Context, t *tracker, label string, meta recording.Metadata, annotations []correlate.Annotation, transcript transcribe.Result) string {
	if !r.cfg.Analysis.Enabled || r.providers.Analyzer == nil {
		r.report(t, label, StageAnalyze, StatusSkipped, "analysis disabled")
		return ""
	}
	if ctx.Err() != nil {
		r.report(t, label, StageAnalyze, StatusAborted, "cancelled")
		return ""
	}
	if r.ledger != nil && r.cfg.Cost.AutoStopAtLimit && r.ledger.OverBudget() {
		r.report(t, label, StageAnalyze, StatusSkipped, "budget limit reached")
		return ""
	}
	if len(annotations) == 0 && strings.TrimSpace(transcript.Text) == "" {
		r.report(t, label, StageAnalyze, StatusSkipped, "nothing to analyze")
		return ""
	}

	r.announce(label, StageAnalyze, "summarizing findings")
	userPrompt := buildAnalysisPrompt(label, meta, annotations, transcript)
	sctx, cancel := r.stageContext(ctx)
	summary, err := r.providers.Analyzer.Complete(sctx, analysisSystemPrompt, userPrompt)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			r.report(t, label, StageAnalyze, StatusAborted, "cancelled")
			return ""
		}
		r.logger.Warn("analysis failed",
			logging.String(logging.FieldScreen, label),
			logging.Error(err))
		r.report(t, label, StageAnalyze, StatusDegraded, err.Error())
		return ""
	}

	if r.ledger != nil {
		tokens := float64(len(analysisSystemPrompt)+len(userPrompt)+len(summary)) / 4
		r.ledger.Record(label, "llm", r.providers.Analyzer.Model(), tokens/1000)
	}
	r.report(t, label, StageAnalyze, StatusSuccess, fmt.Sprintf("%d characters", len(summary)))
	return summary
}

func buildAnalysisPrompt(label string, meta recording.Metadata, annotations []correlate.Annotation, transcript transcribe.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Screen: %s\n", label)
	if meta.Browser != "" {
		fmt.Fprintf(&b, "Browser: %s\n", meta.Browser)
	}
	if meta.ViewportSize.W > 0 {
		fmt.Fprintf(&b, "Viewport: %dx%d\n", meta.ViewportSize.W, meta.ViewportSize.H)
	}

	b.WriteString("\nTranscript:\n")
	if text := strings.TrimSpace(transcript.Text); text != "" {
		b.WriteString(text)
	} else {
		b.WriteString(transcribe.GapMarker)
	}
	b.WriteString("\n\nAnnotations:\n")
	if len(annotations) == 0 {
		b.WriteString("(none)\n")
	}
	for _, ann := range annotations {
		fmt.Fprintf(&b, "%d.", ann.Index)
		if ann.Timestamp != nil {
			fmt.Fprintf(&b, " at %.1fs", *ann.Timestamp)
		}
		if ann.TriggerType != nil {
			fmt.Fprintf(&b, " [%s]", *ann.TriggerType)
		}
		if ann.OCRText != nil {
			fmt.Fprintf(&b, " near UI text %q", *ann.OCRText)
		}
		if ann.SpokenText != nil {
			fmt.Fprintf(&b, ": %s", *ann.SpokenText)
		}
		b.WriteString("\n")
	}
	return b.String()
}
