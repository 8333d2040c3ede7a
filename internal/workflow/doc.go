// Package workflow drains the screen queue through the processing pipeline.
//
// The Manager claims pending screens FIFO from the queue store and feeds them
// to a shared pipeline runner on a bounded worker pool. Pipeline progress is
// written back to the queue so `screenreview queue status` reflects the stage
// each screen is in, and completion, failure, and budget events are pushed
// through the notifications service.
//
// Cancellation is cooperative: an interrupted run marks in-flight screens
// cancelled, and ResetStale on the next start returns any stranded processing
// rows to pending.
package workflow
