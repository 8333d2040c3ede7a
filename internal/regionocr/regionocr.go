package regionocr

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"

	"screenreview/internal/gestures"
)

// Crop side lengths are clamped to this range so the OCR engine gets enough
// context without swallowing half the screenshot.
const (
	minRegionSize = 100
	maxRegionSize = 200
)

// Box is a text bounding box in screenshot pixel coordinates.
type Box struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Result is one recognized text line.
type Result struct {
	Text       string  `json:"text"`
	BBox       Box     `json:"bbox"`
	Confidence float64 `json:"confidence"`
}

// Engine recognizes text in a single image file.
type Engine interface {
	Recognize(ctx context.Context, imagePath string) ([]Result, error)
}

// Region is the OCR output for one screenshot crop. Origin is the crop's
// top-left corner in screenshot space; Results are already translated back.
type Region struct {
	Index     int            `json:"index"`
	Origin    gestures.Point `json:"origin"`
	ImagePath string         `json:"image_path"`
	Results   []Result       `json:"results"`
}

// Processor runs the engine over the screenshot and its crops. WorkDir
// receives the crop images, named so the report can reference them.
type Processor struct {
	Engine     Engine
	RegionSize int
	WorkDir    string
}

// FullScreenshot recognizes text across the whole reference screenshot.
func (p Processor) FullScreenshot(ctx context.Context, screenshotPath string) ([]Result, error) {
	return p.Engine.Recognize(ctx, screenshotPath)
}

// GestureRegions crops a square around each gesture position, recognizes the
// crop, and translates boxes back by the crop origin. One failed crop fails
// the call; the caller decides whether that degrades or aborts the screen.
func (p Processor) GestureRegions(ctx context.Context, screenshotPath string, events []gestures.Event) ([]Region, error) {
	if len(events) == 0 {
		return nil, nil
	}
	img, err := loadImage(screenshotPath)
	if err != nil {
		return nil, err
	}
	regions := make([]Region, 0, len(events))
	for i, ev := range events {
		rect := p.squareAround(ev.Screenshot, img.Bounds())
		region, err := p.recognizeCrop(ctx, img, rect, fmt.Sprintf("region_%03d.png", i))
		if err != nil {
			return nil, err
		}
		region.Index = i
		regions = append(regions, region)
	}
	return regions, nil
}

// MarkedRegions recognizes rectangles the reviewer marked in the capture UI.
func (p Processor) MarkedRegions(ctx context.Context, screenshotPath string, boxes []Box) ([]Region, error) {
	if len(boxes) == 0 {
		return nil, nil
	}
	img, err := loadImage(screenshotPath)
	if err != nil {
		return nil, err
	}
	regions := make([]Region, 0, len(boxes))
	for i, b := range boxes {
		rect := image.Rect(b.X1, b.Y1, b.X2, b.Y2).Intersect(img.Bounds())
		if rect.Empty() {
			continue
		}
		region, err := p.recognizeCrop(ctx, img, rect, fmt.Sprintf("marked_%03d.png", i))
		if err != nil {
			return nil, err
		}
		region.Index = i
		regions = append(regions, region)
	}
	return regions, nil
}

func (p Processor) recognizeCrop(ctx context.Context, img image.Image, rect image.Rectangle, name string) (Region, error) {
	path, err := p.writeCrop(img, rect, name)
	if err != nil {
		return Region{}, err
	}
	results, err := p.Engine.Recognize(ctx, path)
	if err != nil {
		return Region{}, err
	}
	origin := gestures.Point{X: rect.Min.X, Y: rect.Min.Y}
	for j := range results {
		results[j].BBox.X1 += origin.X
		results[j].BBox.X2 += origin.X
		results[j].BBox.Y1 += origin.Y
		results[j].BBox.Y2 += origin.Y
	}
	return Region{Origin: origin, ImagePath: path, Results: results}, nil
}

// squareAround centers a clamped square on pt and shifts it to stay inside
// bounds. Screenshots smaller than the minimum crop are used whole.
func (p Processor) squareAround(pt gestures.Point, bounds image.Rectangle) image.Rectangle {
	size := p.RegionSize
	if size < minRegionSize {
		size = minRegionSize
	}
	if size > maxRegionSize {
		size = maxRegionSize
	}
	if size > bounds.Dx() || size > bounds.Dy() {
		return bounds
	}
	x0 := pt.X - size/2
	y0 := pt.Y - size/2
	if x0 < bounds.Min.X {
		x0 = bounds.Min.X
	}
	if y0 < bounds.Min.Y {
		y0 = bounds.Min.Y
	}
	if x0+size > bounds.Max.X {
		x0 = bounds.Max.X - size
	}
	if y0+size > bounds.Max.Y {
		y0 = bounds.Max.Y - size
	}
	return image.Rect(x0, y0, x0+size, y0+size)
}

func (p Processor) writeCrop(img image.Image, rect image.Rectangle, name string) (string, error) {
	crop := image.NewNRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(crop, crop.Bounds(), img, rect.Min, draw.Src)

	if err := os.MkdirAll(p.WorkDir, 0o755); err != nil {
		return "", fmt.Errorf("create region directory: %w", err)
	}
	path := filepath.Join(p.WorkDir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create crop %s: %w", name, err)
	}
	defer f.Close()
	if err := png.Encode(f, crop); err != nil {
		return "", fmt.Errorf("encode crop %s: %w", name, err)
	}
	return path, nil
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open screenshot: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}
	return img, nil
}
