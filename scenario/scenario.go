// Package scenario holds the predefined conversation prompts used by the
// practice session.
package scenario

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

type Scenario struct {
	ID          string     `yaml:"id"`
	Title       string     `yaml:"title"`
	Description string     `yaml:"description"`
	Difficulty  Difficulty `yaml:"difficulty"`
}

//go:embed scenarios.yaml
var catalogYAML []byte

var catalog []Scenario

func init() {
	var err error
	catalog, err = Parse(catalogYAML)
	if err != nil {
		panic(fmt.Sprintf("scenario: embedded catalog: %v", err))
	}
}

// Parse decodes a scenario list and checks ids are unique and difficulties known.
func Parse(data []byte) ([]Scenario, error) {
	var list []Scenario
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(list))
	for _, s := range list {
		if s.ID == "" || s.Title == "" {
			return nil, fmt.Errorf("scenario missing id or title: %+v", s)
		}
		if seen[s.ID] {
			return nil, fmt.Errorf("duplicate scenario id %q", s.ID)
		}
		seen[s.ID] = true
		switch s.Difficulty {
		case Easy, Medium, Hard:
		default:
			return nil, fmt.Errorf("scenario %s: unknown difficulty %q", s.ID, s.Difficulty)
		}
	}
	return list, nil
}

// All returns a copy of the catalog in display order.
func All() []Scenario {
	return append([]Scenario(nil), catalog...)
}

func ByDifficulty(d Difficulty) []Scenario {
	var out []Scenario
	for _, s := range catalog {
		if s.Difficulty == d {
			out = append(out, s)
		}
	}
	return out
}

// Find looks a scenario up by id or case-insensitive title.
func Find(key string) (Scenario, bool) {
	for _, s := range catalog {
		if s.ID == key || strings.EqualFold(s.Title, key) {
			return s, true
		}
	}
	return Scenario{}, false
}
