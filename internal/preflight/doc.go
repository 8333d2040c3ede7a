// Package preflight provides readiness checks for the external tools and
// filesystem paths screen processing depends on.
//
// The CLI "screenreview preflight" command runs the full set before a batch
// so operators learn about a missing tesseract or a full disk up front
// instead of after minutes of frame extraction. Each check is gated by its
// config toggle, so disabled features are skipped.
package preflight
