package main

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Fixtures is the seed file layout. JSON files parse too.
type Fixtures struct {
	Teams   []TeamFixture  `yaml:"teams" json:"teams" validate:"dive"`
	Matches []MatchFixture `yaml:"matches" json:"matches" validate:"dive"`
}

type TeamFixture struct {
	ID      string          `yaml:"id" json:"id" validate:"required"`
	Name    string          `yaml:"name" json:"name" validate:"required"`
	Players []PlayerFixture `yaml:"players" json:"players" validate:"dive"`
}

type PlayerFixture struct {
	ID     string `yaml:"id" json:"id" validate:"required"`
	Name   string `yaml:"name" json:"name" validate:"required"`
	Number int    `yaml:"number" json:"number" validate:"gte=0,lte=99"`
}

type MatchFixture struct {
	ID    string `yaml:"id" json:"id" validate:"required"`
	TeamA string `yaml:"team_a" json:"team_a" validate:"required"`
	TeamB string `yaml:"team_b" json:"team_b" validate:"required,nefield=TeamA"`
}

func loadFixtures(path string) (Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Fixtures{}, fmt.Errorf("read fixtures: %w", err)
	}
	return parseFixtures(data)
}

func parseFixtures(data []byte) (Fixtures, error) {
	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Fixtures{}, fmt.Errorf("parse fixtures: %w", err)
	}
	if err := validator.New().Struct(f); err != nil {
		return Fixtures{}, fmt.Errorf("invalid fixtures: %w", err)
	}

	teams := make(map[string]struct{}, len(f.Teams))
	for _, t := range f.Teams {
		if _, dup := teams[t.ID]; dup {
			return Fixtures{}, fmt.Errorf("duplicate team %q", t.ID)
		}
		teams[t.ID] = struct{}{}
	}
	for _, m := range f.Matches {
		for _, id := range []string{m.TeamA, m.TeamB} {
			if _, ok := teams[id]; !ok {
				return Fixtures{}, fmt.Errorf("match %q references unknown team %q", m.ID, id)
			}
		}
	}
	return f, nil
}
