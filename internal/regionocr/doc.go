// Package regionocr extracts text from the reference screenshot, both as a
// whole and from crops around pointing gestures and user-marked regions.
// Box coordinates of crop results are translated back into screenshot space.
package regionocr
