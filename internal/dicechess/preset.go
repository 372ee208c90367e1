package dicechess

import (
	"fmt"
	"strings"
	"sync"

	yaml "gopkg.in/yaml.v3"
)

// Difficulty selects a bot preset.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// BotPreset tunes move scoring and selection.
type BotPreset struct {
	Name             Difficulty `yaml:"name"`
	PrimaryChoices   int        `yaml:"primary_choices"`
	CandidateWeights []float64  `yaml:"candidate_weights,omitempty"`
	Noise            float64    `yaml:"noise"`
	CenterWeight     float64    `yaml:"center_weight"`
	SafetyCheck      bool       `yaml:"safety_check"`
	SafetyWeight     float64    `yaml:"safety_weight"`
}

var presetMu sync.RWMutex

var DefaultBotPresets = map[Difficulty]BotPreset{
	DifficultyEasy: {
		Name:           DifficultyEasy,
		PrimaryChoices: 8,
		Noise:          4,
		CenterWeight:   0.1,
	},
	DifficultyMedium: {
		Name:           DifficultyMedium,
		PrimaryChoices: 3,
		Noise:          1.5,
		CenterWeight:   0.1,
		SafetyCheck:    true,
		SafetyWeight:   10,
	},
	DifficultyHard: {
		Name:           DifficultyHard,
		PrimaryChoices: 1,
		Noise:          0.05,
		CenterWeight:   0.1,
		SafetyCheck:    true,
		SafetyWeight:   10,
	},
}

// ParseDifficulty accepts the preset names and a few aliases.
func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy", "beginner":
		return DifficultyEasy, nil
	case "medium", "normal", "":
		return DifficultyMedium, nil
	case "hard", "expert":
		return DifficultyHard, nil
	}
	return "", fmt.Errorf("%w: unknown difficulty %q", ErrInvalidConfig, s)
}

func GetBotPreset(d Difficulty) (BotPreset, error) {
	presetMu.RLock()
	p, ok := DefaultBotPresets[d]
	presetMu.RUnlock()
	if !ok {
		return BotPreset{}, fmt.Errorf("unknown bot preset: %s", d)
	}
	p.CandidateWeights = append([]float64(nil), p.CandidateWeights...)
	return p, nil
}

// SetBotPreset replaces the preset registered under p.Name.
func SetBotPreset(p BotPreset) error {
	if err := ValidateBotPreset(p); err != nil {
		return err
	}
	presetMu.Lock()
	DefaultBotPresets[p.Name] = p
	presetMu.Unlock()
	return nil
}

func ValidateBotPreset(p BotPreset) error {
	switch {
	case p.Name != DifficultyEasy && p.Name != DifficultyMedium && p.Name != DifficultyHard:
		return fmt.Errorf("unknown preset name %q", p.Name)
	case p.PrimaryChoices <= 0:
		return fmt.Errorf("primary choices must be > 0: %d", p.PrimaryChoices)
	case p.Noise < 0:
		return fmt.Errorf("noise must be >= 0: %f", p.Noise)
	case p.CenterWeight < 0:
		return fmt.Errorf("center weight must be >= 0: %f", p.CenterWeight)
	case p.SafetyWeight < 0:
		return fmt.Errorf("safety weight must be >= 0: %f", p.SafetyWeight)
	case len(p.CandidateWeights) > 0 && len(p.CandidateWeights) < p.PrimaryChoices:
		return fmt.Errorf("candidate weights (%d) must cover primary choices (%d)", len(p.CandidateWeights), p.PrimaryChoices)
	}
	if len(p.CandidateWeights) == 0 {
		return nil
	}
	sum := 0.0
	for i := 0; i < p.PrimaryChoices; i++ {
		w := p.CandidateWeights[i]
		if w < 0 {
			return fmt.Errorf("candidate weight at index %d is negative: %f", i, w)
		}
		sum += w
	}
	if sum == 0 {
		return fmt.Errorf("candidate weights sum to zero")
	}
	return nil
}

// presetOverride keeps unset fields apart from explicit zeros.
type presetOverride struct {
	PrimaryChoices   *int      `yaml:"primary_choices"`
	CandidateWeights []float64 `yaml:"candidate_weights"`
	Noise            *float64  `yaml:"noise"`
	CenterWeight     *float64  `yaml:"center_weight"`
	SafetyCheck      *bool     `yaml:"safety_check"`
	SafetyWeight     *float64  `yaml:"safety_weight"`
}

type presetFile struct {
	Presets map[string]presetOverride `yaml:"presets"`
}

// ParseBotPresetsYAML reads a presets file:
//
//	presets:
//	  easy:
//	    primary_choices: 10
//	    noise: 5
//
// Keys name the difficulty; fields not set fall back to the built-in preset.
func ParseBotPresetsYAML(raw []byte) ([]BotPreset, error) {
	var f presetFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse bot presets: %w", err)
	}
	out := make([]BotPreset, 0, len(f.Presets))
	for key, override := range f.Presets {
		d, err := ParseDifficulty(key)
		if err != nil {
			return nil, err
		}
		base, err := GetBotPreset(d)
		if err != nil {
			return nil, err
		}
		merged := mergePreset(base, override)
		if err := ValidateBotPreset(merged); err != nil {
			return nil, fmt.Errorf("preset %s: %w", key, err)
		}
		out = append(out, merged)
	}
	return out, nil
}

// ApplyBotPresetsYAML parses raw and registers every preset in it.
func ApplyBotPresetsYAML(raw []byte) error {
	presets, err := ParseBotPresetsYAML(raw)
	if err != nil {
		return err
	}
	for _, p := range presets {
		if err := SetBotPreset(p); err != nil {
			return err
		}
	}
	return nil
}

func mergePreset(base BotPreset, o presetOverride) BotPreset {
	if o.PrimaryChoices != nil {
		base.PrimaryChoices = *o.PrimaryChoices
	}
	if o.CandidateWeights != nil {
		base.CandidateWeights = append([]float64(nil), o.CandidateWeights...)
	}
	if o.Noise != nil {
		base.Noise = *o.Noise
	}
	if o.CenterWeight != nil {
		base.CenterWeight = *o.CenterWeight
	}
	if o.SafetyCheck != nil {
		base.SafetyCheck = *o.SafetyCheck
	}
	if o.SafetyWeight != nil {
		base.SafetyWeight = *o.SafetyWeight
	}
	return base
}
