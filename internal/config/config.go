// Package config handles loading composetags settings from TOML files.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileName is the project configuration file looked up under the root.
const FileName = ".composetags.toml"

// ErrInvalidConfig is returned for configuration files that fail to decode
// or validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the root configuration structure.
type Config struct {
	Analysis   AnalysisConfig   `toml:"analysis"`
	PageObject PageObjectConfig `toml:"page_object"`
	Discovery  DiscoveryConfig  `toml:"discovery"`
}

// AnalysisConfig holds the naming conventions of the UI framework.
type AnalysisConfig struct {
	// StopNamespacePrefixes lists package prefixes whose functions are never
	// descended into.
	StopNamespacePrefixes []string `toml:"stop_namespace_prefixes"`
	ModifierType          string   `toml:"modifier_type"`
	TagMember             string   `toml:"tag_member"`
	UIAnnotation          string   `toml:"ui_annotation"`
}

// PageObjectConfig holds the generated page-object template settings.
type PageObjectConfig struct {
	Format      string `toml:"format"`       // kotlin or toon
	ClassSuffix string `toml:"class_suffix"` // appended to the function name
	BaseClass   string `toml:"base_class"`
	NodeType    string `toml:"node_type"`
	Matcher     string `toml:"matcher"`
}

// FormatOrDefault returns the configured output format or "kotlin" if unset.
func (p PageObjectConfig) FormatOrDefault() string {
	if p.Format == "" {
		return "kotlin"
	}
	return p.Format
}

// DiscoveryConfig holds source discovery settings.
type DiscoveryConfig struct {
	MaxFileSize  int64  `toml:"max_file_size"`
	StubsDir     string `toml:"stubs_dir"`
	IncludeTests bool   `toml:"include_tests"`
	Workers      int    `toml:"workers"`
}

// MaxFileSizeOrDefault returns the configured size limit or 1 MB if unset.
func (d DiscoveryConfig) MaxFileSizeOrDefault() int64 {
	if d.MaxFileSize <= 0 {
		return 1_000_000
	}
	return d.MaxFileSize
}

// Default returns the Jetpack Compose defaults.
func Default() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			StopNamespacePrefixes: []string{
				"androidx.compose.foundation",
				"androidx.compose.material",
				"androidx.compose.material3",
				"androidx.compose.runtime",
				"com.google.samples.apps.nowinandroid.core.designsystem.component",
			},
			ModifierType: "Modifier",
			TagMember:    "testTag",
			UIAnnotation: "androidx.compose.runtime.Composable",
		},
		PageObject: PageObjectConfig{
			Format:      "kotlin",
			ClassSuffix: "PageObject",
			BaseClass:   "ru.hh.shared.core.tests.PageObject",
			NodeType:    "com.kakao.compose.nodes.KNode",
			Matcher:     "hasTestTag",
		},
		Discovery: DiscoveryConfig{
			MaxFileSize: 1_000_000,
		},
	}
}

// Load reads configuration from a TOML file on top of the defaults. Keys the
// file sets replace the defaults; unknown keys are rejected.
func Load(path string) (*Config, error) {
	cfg := Default()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		var perr *fs.PathError
		if errors.As(err, &perr) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("%w: %s: unknown keys: %s", ErrInvalidConfig, path, strings.Join(keys, ", "))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Find loads the configuration for a project. An explicit path must exist;
// otherwise FileName under root is used when present, else the defaults.
// The returned path is empty when the defaults are used.
func Find(explicit, root string) (*Config, string, error) {
	if explicit != "" {
		cfg, err := Load(explicit)
		return cfg, explicit, err
	}

	path := filepath.Join(root, FileName)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), "", nil
		}
		return nil, "", fmt.Errorf("checking config: %w", err)
	}
	cfg, err := Load(path)
	return cfg, path, err
}

// Validate returns an error wrapping ErrInvalidConfig if the configuration
// is invalid.
func (c *Config) Validate() error {
	var errs []error

	if c.Analysis.ModifierType == "" {
		errs = append(errs, errors.New("analysis.modifier_type is required"))
	}
	if c.Analysis.TagMember == "" {
		errs = append(errs, errors.New("analysis.tag_member is required"))
	}
	if c.Analysis.UIAnnotation == "" {
		errs = append(errs, errors.New("analysis.ui_annotation is required"))
	}
	for i, p := range c.Analysis.StopNamespacePrefixes {
		if strings.TrimSpace(p) == "" {
			errs = append(errs, fmt.Errorf("analysis.stop_namespace_prefixes[%d] is empty", i))
		}
	}

	switch c.PageObject.FormatOrDefault() {
	case "kotlin", "toon":
	default:
		errs = append(errs, fmt.Errorf("page_object.format=%q must be kotlin or toon", c.PageObject.Format))
	}
	if c.PageObject.NodeType == "" {
		errs = append(errs, errors.New("page_object.node_type is required"))
	}
	if c.PageObject.Matcher == "" {
		errs = append(errs, errors.New("page_object.matcher is required"))
	}

	if c.Discovery.MaxFileSize < 0 {
		errs = append(errs, fmt.Errorf("discovery.max_file_size=%d must not be negative", c.Discovery.MaxFileSize))
	}
	if c.Discovery.Workers < 0 {
		errs = append(errs, fmt.Errorf("discovery.workers=%d must not be negative", c.Discovery.Workers))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Encode writes cfg as TOML.
func Encode(w io.Writer, cfg *Config) error {
	return toml.NewEncoder(w).Encode(cfg)
}
