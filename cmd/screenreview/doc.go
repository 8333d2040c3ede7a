// Command screenreview turns recorded review sessions into annotated bug
// report documents.
//
// The CLI enqueues the screens of a session directory, drains the queue
// through the processing pipeline, and offers queue inspection, environment
// checks, and configuration utilities.
package main
