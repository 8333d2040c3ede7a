// Package triggers classifies transcript segments by the review keywords
// they contain. Categories are ranked; when a segment matches several, the
// highest-ranked one becomes its primary trigger.
package triggers
