package bot

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DelayPreset bounds the simulated thinking pause before a bot move is
// submitted. Wider and longer ranges read as a stronger opponent.
type DelayPreset struct {
	MinMillis int `yaml:"min_millis"`
	MaxMillis int `yaml:"max_millis"`
}

var defaultDelays = map[Skill]DelayPreset{
	SkillEasy:   {MinMillis: 800, MaxMillis: 2000},
	SkillMedium: {MinMillis: 1200, MaxMillis: 3000},
	SkillHard:   {MinMillis: 2000, MaxMillis: 4000},
}

// Delays maps skill levels to thinking-delay presets.
type Delays map[Skill]DelayPreset

// DefaultDelays returns a copy of the built-in delay table.
func DefaultDelays() Delays {
	out := make(Delays, len(defaultDelays))
	for k, v := range defaultDelays {
		out[k] = v
	}
	return out
}

// LoadDelays reads a YAML preset file and overlays it on the defaults.
// Unknown skills in the file are rejected, missing skills keep defaults.
func LoadDelays(path string) (Delays, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read delay presets: %w", err)
	}
	var file map[string]DelayPreset
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse delay presets: %w", err)
	}
	out := DefaultDelays()
	for name, preset := range file {
		skill := Skill(name)
		if _, ok := defaultDelays[skill]; !ok {
			return nil, fmt.Errorf("unknown skill %q in delay presets", name)
		}
		if preset.MinMillis <= 0 || preset.MaxMillis < preset.MinMillis {
			return nil, fmt.Errorf("invalid range for skill %q: %d..%d", name, preset.MinMillis, preset.MaxMillis)
		}
		out[skill] = preset
	}
	return out, nil
}

// Pick draws a thinking delay for the given skill.
func (d Delays) Pick(skill Skill, r *rand.Rand) time.Duration {
	preset, ok := d[skill]
	if !ok {
		return time.Second
	}
	span := preset.MaxMillis - preset.MinMillis
	ms := preset.MinMillis
	if span > 0 {
		ms += r.Intn(span + 1)
	}
	return time.Duration(ms) * time.Millisecond
}
