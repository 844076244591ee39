// Package content serves the static compliance reference material shown next
// to the live readings.
package content

import (
	_ "embed"
	"errors"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

// ErrUnknownItem is returned when an evaluation names an item not in the checklist.
var ErrUnknownItem = errors.New("unknown checklist item")

//go:embed checklist.yaml
var checklistYAML []byte

//go:embed guidelines.yaml
var guidelinesYAML []byte

// Service describes the offering attached to a checklist item.
type Service struct {
	Title   string   `yaml:"title" json:"title"`
	Details string   `yaml:"details" json:"details"`
	Specs   []string `yaml:"specs" json:"specs"`
}

// ChecklistItem is one site compliance measure.
type ChecklistItem struct {
	ID          string  `yaml:"id" json:"id"`
	Label       string  `yaml:"label" json:"label"`
	Description string  `yaml:"description" json:"description"`
	HowItHelps  string  `yaml:"howItHelps" json:"howItHelps"`
	Service     Service `yaml:"service" json:"service"`
}

// Guideline is one row of the regulatory standards table.
type Guideline struct {
	Parameter string `yaml:"parameter" json:"parameter"`
	Limit     string `yaml:"limit" json:"limit"`
	Action    string `yaml:"action" json:"action"`
	Source    string `yaml:"source" json:"source"`
}

// Evaluation summarises how much of the checklist a site satisfies.
type Evaluation struct {
	Checked        int     `json:"checked"`
	Total          int     `json:"total"`
	Rate           float64 `json:"rate"`
	FullyCompliant bool    `json:"fullyCompliant"`
}

var (
	loadOnce   sync.Once
	checklist  []ChecklistItem
	guidelines []Guideline
	loadErr    error
)

func load() error {
	loadOnce.Do(func() {
		if err := yaml.Unmarshal(checklistYAML, &checklist); err != nil {
			loadErr = fmt.Errorf("parsing checklist: %w", err)
			return
		}
		if err := yaml.Unmarshal(guidelinesYAML, &guidelines); err != nil {
			loadErr = fmt.Errorf("parsing guidelines: %w", err)
		}
	})
	return loadErr
}

// Checklist returns a copy of the compliance checklist.
func Checklist() ([]ChecklistItem, error) {
	if err := load(); err != nil {
		return nil, err
	}
	out := make([]ChecklistItem, len(checklist))
	copy(out, checklist)
	return out, nil
}

// Guidelines returns a copy of the regulatory guideline table.
func Guidelines() ([]Guideline, error) {
	if err := load(); err != nil {
		return nil, err
	}
	out := make([]Guideline, len(guidelines))
	copy(out, guidelines)
	return out, nil
}

// Evaluate scores the checked item ids. Duplicate ids count once.
func Evaluate(checkedIDs []string) (Evaluation, error) {
	if err := load(); err != nil {
		return Evaluation{}, err
	}

	known := make(map[string]bool, len(checklist))
	for _, item := range checklist {
		known[item.ID] = true
	}

	seen := make(map[string]bool, len(checkedIDs))
	for _, id := range checkedIDs {
		if !known[id] {
			return Evaluation{}, fmt.Errorf("%w: %q", ErrUnknownItem, id)
		}
		seen[id] = true
	}

	total := len(checklist)
	ev := Evaluation{Checked: len(seen), Total: total}
	if total > 0 {
		ev.Rate = float64(len(seen)) / float64(total) * 100
	}
	ev.FullyCompliant = total > 0 && len(seen) == total
	return ev, nil
}
