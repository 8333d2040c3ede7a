package recording

import (
	"encoding/json"
	"fmt"
	"os"
)

// Marking is a rectangle the reviewer drew on the reference screenshot in
// the capture UI.
type Marking struct {
	X     int    `json:"x"`
	Y     int    `json:"y"`
	W     int    `json:"w"`
	H     int    `json:"h"`
	Label string `json:"label,omitempty"`
}

// LoadMarkings reads the optional markings.json. A missing file means the
// reviewer marked nothing.
func (s Screen) LoadMarkings() ([]Marking, error) {
	data, err := os.ReadFile(s.MarkingsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read markings: %w", err)
	}
	var markings []Marking
	if err := json.Unmarshal(data, &markings); err != nil {
		return nil, fmt.Errorf("parse markings: %w", err)
	}
	return markings, nil
}
