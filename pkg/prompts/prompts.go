// Package prompts resolves agent names to their instruction text.
//
// Instructions live in YAML files embedded at compile time, one file per
// agent, under the key "instruction". A missing or malformed file yields an
// empty instruction and a warning rather than an error: an agent with no
// instruction still runs, it just has no system prompt.
package prompts

import (
	"embed"

	"gopkg.in/yaml.v3"

	"synergy/pkg/logx"
)

//go:embed *.yaml
var promptFS embed.FS

type promptFile struct {
	Instruction string `yaml:"instruction"`
}

//nolint:gochecknoglobals // package logger
var logger = logx.NewLogger("prompts")

// Load returns the instruction text from the named embedded YAML file.
func Load(filename string) string {
	data, err := promptFS.ReadFile(filename)
	if err != nil {
		logger.Warn("prompt file %s not found", filename)
		return ""
	}

	var pf promptFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		logger.Warn("failed to parse prompt %s: %v", filename, err)
		return ""
	}
	return pf.Instruction
}
