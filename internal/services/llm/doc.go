// Package llm wraps an OpenRouter-compatible chat completion API used for
// the optional AI analysis of a reviewed screen.
package llm
