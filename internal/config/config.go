// Package config loads engine options from a YAML file so CLI-adjacent
// callers can keep one options document per project. The engines themselves
// take plain structs; nothing in the core reads files.
package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/BayFX/omts/internal/merge"
	"github.com/BayFX/omts/internal/validation"
)

// DefaultMaxDecompressedBytes caps zstd decompression when the options file
// does not set a limit (64 MiB).
const DefaultMaxDecompressedBytes = 64 << 20

// Options is the on-disk options document.
type Options struct {
	// MaxDecompressedBytes bounds zstd decompression.
	MaxDecompressedBytes int `yaml:"max_decompressed_bytes"`

	Validation struct {
		L1 *bool `yaml:"l1"`
		L2 *bool `yaml:"l2"`
		L3 *bool `yaml:"l3"`
	} `yaml:"validation"`

	Merge struct {
		GroupSizeLimit     int    `yaml:"group_size_limit"`
		SameAsThreshold    string `yaml:"same_as_threshold"`
		DefaultSourceLabel string `yaml:"default_source_label"`
	} `yaml:"merge"`
}

// Parse decodes an options document, rejecting unknown keys.
func Parse(data []byte) (*Options, error) {
	var opts Options
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&opts); err != nil {
		return nil, fmt.Errorf("parsing options: %w", err)
	}
	if err := opts.check(); err != nil {
		return nil, err
	}
	return &opts, nil
}

// Load reads and parses an options file.
func Load(path string) (*Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading options file: %w", err)
	}
	return Parse(data)
}

func (o *Options) check() error {
	switch o.Merge.SameAsThreshold {
	case "", "definite", "probable", "possible":
	default:
		return fmt.Errorf("merge.same_as_threshold %q is not one of definite, probable, possible",
			o.Merge.SameAsThreshold)
	}
	if o.MaxDecompressedBytes < 0 {
		return fmt.Errorf("max_decompressed_bytes must not be negative")
	}
	if o.Merge.GroupSizeLimit < 0 {
		return fmt.Errorf("merge.group_size_limit must not be negative")
	}
	return nil
}

// MaxDecompressed returns the configured decompression cap, or the default.
func (o *Options) MaxDecompressed() int {
	if o.MaxDecompressedBytes > 0 {
		return o.MaxDecompressedBytes
	}
	return DefaultMaxDecompressedBytes
}

// ValidationConfig maps the options onto a validation config. Unset levels
// keep the defaults (L1 and L2 on, L3 off).
func (o *Options) ValidationConfig() validation.Config {
	cfg := validation.DefaultConfig()
	if o.Validation.L1 != nil {
		cfg.L1 = *o.Validation.L1
	}
	if o.Validation.L2 != nil {
		cfg.L2 = *o.Validation.L2
	}
	if o.Validation.L3 != nil {
		cfg.L3 = *o.Validation.L3
	}
	return cfg
}

// MergeConfig maps the options onto a merge config, filling defaults for
// unset fields.
func (o *Options) MergeConfig() merge.Config {
	cfg := merge.DefaultConfig()
	if o.Merge.GroupSizeLimit > 0 {
		cfg.GroupSizeLimit = o.Merge.GroupSizeLimit
	}
	if o.Merge.SameAsThreshold != "" {
		cfg.SameAsThreshold = merge.SameAsThreshold(o.Merge.SameAsThreshold)
	}
	if o.Merge.DefaultSourceLabel != "" {
		cfg.DefaultSourceLabel = o.Merge.DefaultSourceLabel
	}
	return cfg
}
