package manifest

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"codegen-pipeline/internal/helper"
)

// File is a parsed pipeline manifest.
type File struct {
	Version      string                   `yaml:"version"`
	Lifecycles   []string                 `yaml:"lifecycles,omitempty"`
	ProvidedKeys map[string]StringOrArray `yaml:"provided_keys,omitempty"`
	Helpers      []Helper                 `yaml:"helpers"`
	Extensions   []Extension              `yaml:"extensions,omitempty"`
}

// Helper declares one helper.
type Helper struct {
	Key       string        `yaml:"key"`
	Kind      string        `yaml:"kind"`
	Mode      string        `yaml:"mode,omitempty"`
	Priority  int           `yaml:"priority,omitempty"`
	DependsOn StringOrArray `yaml:"depends_on,omitempty"`
	Optional  bool          `yaml:"optional,omitempty"`
	Origin    string        `yaml:"origin,omitempty"`
	// Output is the file a builder writes, relative to the output directory.
	Output string `yaml:"output,omitempty"`
}

// Descriptor converts h to a helper descriptor.
func (h Helper) Descriptor() (helper.Descriptor, error) {
	mode, err := helper.ParseMode(h.Mode)
	if err != nil {
		return helper.Descriptor{}, fmt.Errorf("helper %q: %w", h.Key, err)
	}

	return helper.Descriptor{
		Key:       h.Key,
		Kind:      helper.Kind(h.Kind),
		Mode:      mode,
		Priority:  h.Priority,
		DependsOn: []string(h.DependsOn),
		Optional:  h.Optional,
		Origin:    h.Origin,
	}, nil
}

// Extension declares a hook attached to a lifecycle.
type Extension struct {
	Key       string `yaml:"key"`
	Lifecycle string `yaml:"lifecycle,omitempty"`
	// Annotation is appended to the artifact when the hook runs.
	Annotation string `yaml:"annotation,omitempty"`
	// Index makes the hook write an index of generated files on commit.
	Index bool `yaml:"index,omitempty"`
}

// StringOrArray accepts either a single string or a list of strings.
type StringOrArray []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *StringOrArray) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var str string
		if err := node.Decode(&str); err != nil {
			return err
		}

		if str != "" {
			*s = StringOrArray{str}
		} else {
			*s = StringOrArray{}
		}

		return nil

	case yaml.SequenceNode:
		var arr []string
		if err := node.Decode(&arr); err != nil {
			return err
		}

		*s = arr

		return nil

	default:
		return fmt.Errorf("line %d: expected string or list of strings", node.Line)
	}
}

// MarshalYAML writes a single element as a plain string.
func (s StringOrArray) MarshalYAML() (any, error) {
	if len(s) == 1 {
		return s[0], nil
	}

	return []string(s), nil
}
