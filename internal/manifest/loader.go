package manifest

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"codegen-pipeline/internal/extension"
	"codegen-pipeline/internal/helper"
)

// DefaultOrigin tags helpers declared without an origin.
const DefaultOrigin = "manifest"

// LoadFile loads and parses a manifest from path.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}

	return Parse(data)
}

// Parse parses YAML data into a File and applies defaults.
func Parse(data []byte) (*File, error) {
	var f File

	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse manifest YAML: %w", err)
	}

	applyDefaults(&f)

	return &f, nil
}

func applyDefaults(f *File) {
	if f.Version == "" {
		f.Version = "1"
	}

	for i := range f.Helpers {
		h := &f.Helpers[i]
		if h.Kind == "" {
			h.Kind = string(helper.KindFragment)
		}

		if h.Origin == "" {
			h.Origin = DefaultOrigin
		}

		if h.Kind == string(helper.KindBuilder) && h.Output == "" && h.Key != "" {
			h.Output = h.Key + ".txt"
		}
	}

	for i := range f.Extensions {
		e := &f.Extensions[i]
		if e.Key == "" {
			e.Key = fmt.Sprintf("extension-%d", i+1)
		}

		if e.Lifecycle == "" {
			e.Lifecycle = extension.DefaultLifecycle
		}
	}
}

// Validate checks the structure of f. Dependency resolution is left to the
// pipeline, which reports it with diagnostics.
func Validate(f *File) error {
	if f == nil {
		return errors.New("manifest is nil")
	}

	var errs []error

	if f.Version != "1" {
		errs = append(errs, fmt.Errorf("unsupported manifest version %q", f.Version))
	}

	outputs := map[string]string{}

	for i, h := range f.Helpers {
		if h.Key == "" {
			errs = append(errs, fmt.Errorf("helpers[%d]: key is required", i))
			continue
		}

		if _, err := h.Descriptor(); err != nil {
			errs = append(errs, err)
		}

		if h.Output == "" {
			continue
		}

		if other, ok := outputs[h.Output]; ok && other != h.Key {
			errs = append(errs, fmt.Errorf("helpers %q and %q write the same output %q", other, h.Key, h.Output))
		}

		outputs[h.Output] = h.Key
	}

	seen := map[string]struct{}{}

	for _, e := range f.Extensions {
		if _, ok := seen[e.Key]; ok {
			errs = append(errs, fmt.Errorf("duplicate extension %q", e.Key))
		}

		seen[e.Key] = struct{}{}

		if len(f.Lifecycles) > 0 && !slices.Contains(f.Lifecycles, e.Lifecycle) {
			errs = append(errs, fmt.Errorf("extension %q uses lifecycle %q which is not listed in lifecycles", e.Key, e.Lifecycle))
		}
	}

	return errors.Join(errs...)
}

// Marshal serializes f to YAML.
func Marshal(f *File) ([]byte, error) {
	return yaml.Marshal(f)
}

// WriteFile writes f to path.
func WriteFile(f *File, path string) error {
	data, err := Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest %s: %w", path, err)
	}

	return nil
}
