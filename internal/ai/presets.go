package ai

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed levels.yaml
var levelsYAML []byte

// Preset maps a difficulty label to concrete search parameters.
type Preset struct {
	Depth int `yaml:"depth"`
	Skill int `yaml:"skill"`
}

type presetFile struct {
	Levels map[string]Preset `yaml:"levels"`
}

const DefaultLevel = "medium"

var presets map[string]Preset

func init() {
	var f presetFile
	if err := yaml.Unmarshal(levelsYAML, &f); err != nil {
		panic(fmt.Sprintf("parse embedded level presets: %v", err))
	}
	if _, ok := f.Levels[DefaultLevel]; !ok {
		panic("embedded level presets missing default level")
	}
	presets = f.Levels
}

// PresetFor resolves a difficulty label. Unknown or empty labels fall back to
// the default level.
func PresetFor(level string) Preset {
	if p, ok := presets[strings.ToLower(strings.TrimSpace(level))]; ok {
		return p
	}
	return presets[DefaultLevel]
}

// Levels returns the known difficulty labels.
func Levels() []string {
	out := make([]string, 0, len(presets))
	for name := range presets {
		out = append(out, name)
	}
	return out
}
