package config

import (
	"strings"
	"testing"

	"github.com/BayFX/omts/internal/merge"
)

func TestParseDefaults(t *testing.T) {
	opts, err := Parse([]byte("{}"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if opts.MaxDecompressed() != DefaultMaxDecompressedBytes {
		t.Errorf("default max decompressed = %d", opts.MaxDecompressed())
	}
	vcfg := opts.ValidationConfig()
	if !vcfg.L1 || !vcfg.L2 || vcfg.L3 {
		t.Errorf("default validation config should be L1+L2: %+v", vcfg)
	}
	mcfg := opts.MergeConfig()
	if mcfg.GroupSizeLimit != 50 || mcfg.SameAsThreshold != merge.ThresholdDefinite {
		t.Errorf("default merge config: %+v", mcfg)
	}
}

func TestParseFull(t *testing.T) {
	src := `
max_decompressed_bytes: 1048576
validation:
  l1: true
  l2: false
  l3: true
merge:
  group_size_limit: 10
  same_as_threshold: probable
  default_source_label: unnamed
`
	opts, err := Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if opts.MaxDecompressed() != 1048576 {
		t.Errorf("max decompressed = %d", opts.MaxDecompressed())
	}
	vcfg := opts.ValidationConfig()
	if !vcfg.L1 || vcfg.L2 || !vcfg.L3 {
		t.Errorf("validation config: %+v", vcfg)
	}
	mcfg := opts.MergeConfig()
	if mcfg.GroupSizeLimit != 10 || mcfg.SameAsThreshold != merge.ThresholdProbable || mcfg.DefaultSourceLabel != "unnamed" {
		t.Errorf("merge config: %+v", mcfg)
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{name: "unknown key", src: "surprise: 1\n"},
		{name: "bad threshold", src: "merge:\n  same_as_threshold: certainly\n"},
		{name: "negative cap", src: "max_decompressed_bytes: -1\n"},
		{name: "negative group limit", src: "merge:\n  group_size_limit: -5\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.src)); err == nil {
				t.Error("expected parse error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/omts-options.yaml"); err == nil || !strings.Contains(err.Error(), "reading options file") {
		t.Errorf("missing file should fail with a read error, got %v", err)
	}
}
