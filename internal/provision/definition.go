// Package provision builds and pushes the voice assistant configuration to
// the provider. It is a one-shot setup tool, not a runtime component: the
// webhook server never imports it.
package provision

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Definition is the operator-editable part of the assistant, loaded from a
// yaml file. Brokerage-dependent strings may reference {brokerage}, replaced
// at build time.
type Definition struct {
	Name string `yaml:"name"`

	Model struct {
		Provider    string  `yaml:"provider"`
		Model       string  `yaml:"model"`
		Temperature float64 `yaml:"temperature"`
	} `yaml:"model"`

	Voice struct {
		Provider string `yaml:"provider"`
		VoiceID  string `yaml:"voice_id"`
		Model    string `yaml:"model"`
		Language string `yaml:"language"`
	} `yaml:"voice"`

	Transcriber struct {
		Provider    string `yaml:"provider"`
		Model       string `yaml:"model"`
		Language    string `yaml:"language"`
		SmartFormat bool   `yaml:"smart_format"`
	} `yaml:"transcriber"`

	SystemPrompt   string   `yaml:"system_prompt"`
	FirstMessage   string   `yaml:"first_message"`
	EndCallMessage string   `yaml:"end_call_message"`
	EndCallPhrases []string `yaml:"end_call_phrases"`

	MaxDurationSeconds int      `yaml:"max_duration_seconds"`
	BackgroundSound    string   `yaml:"background_sound"`
	ServerMessages     []string `yaml:"server_messages"`
	ClientMessages     []string `yaml:"client_messages"`
}

// LoadDefinition reads and validates an assistant definition file.
func LoadDefinition(path string) (Definition, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, fmt.Errorf("read definition: %w", err)
	}
	var def Definition
	if err := yaml.Unmarshal(raw, &def); err != nil {
		return Definition{}, fmt.Errorf("parse definition: %w", err)
	}
	if err := def.validate(); err != nil {
		return Definition{}, err
	}
	def.applyDefaults()
	return def, nil
}

func (d Definition) validate() error {
	var errs []string
	if d.Name == "" {
		errs = append(errs, "name is required")
	}
	if d.SystemPrompt == "" {
		errs = append(errs, "system_prompt is required")
	}
	if d.Model.Provider == "" || d.Model.Model == "" {
		errs = append(errs, "model.provider and model.model are required")
	}
	if len(errs) > 0 {
		return errors.New("definition errors: " + strings.Join(errs, "; "))
	}
	return nil
}

func (d *Definition) applyDefaults() {
	if d.MaxDurationSeconds <= 0 {
		d.MaxDurationSeconds = 600
	}
	if len(d.ServerMessages) == 0 {
		d.ServerMessages = []string{"end-of-call-report", "status-update", "hang", "function-call"}
	}
	if len(d.ClientMessages) == 0 {
		d.ClientMessages = []string{"transcript", "hang", "function-call", "speech-update", "metadata", "conversation-update"}
	}
}

// expand substitutes the {brokerage} placeholder.
func expand(s, brokerage string) string {
	return strings.ReplaceAll(s, "{brokerage}", brokerage)
}
