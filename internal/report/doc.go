// Package report renders the final per-screen markdown document from the
// correlated annotations and the processing artifacts.
package report
