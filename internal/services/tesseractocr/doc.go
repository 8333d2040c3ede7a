// Package tesseractocr wraps the tesseract binary and parses its TSV output
// into text lines with bounding boxes.
package tesseractocr
