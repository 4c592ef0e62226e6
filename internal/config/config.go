// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/graviton-app/graviton/internal/cueutil"
	"github.com/graviton-app/graviton/internal/issue"
	"github.com/graviton-app/graviton/internal/platform"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes environment overrides, e.g. GRAVITON_REPOSITORY_URL.
	EnvPrefix = "GRAVITON"
)

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the graviton configuration directory.
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir(dirs platform.DirResolver) (string, error) {
	if dirs == nil {
		dirs = platform.DefaultDirs()
	}
	dir, err := dirs.ConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}
	return dir, nil
}

// ConfigFilePath returns the path of config.cue inside dir.
func ConfigFilePath(dir string) string {
	return filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
}

// ResolvedCachePath returns the cache directory: cache_path when set,
// the platform cache directory otherwise.
func (c *Config) ResolvedCachePath(dirs platform.DirResolver) (string, error) {
	if c.CachePath != "" {
		return filepath.Abs(c.CachePath)
	}
	if dirs == nil {
		dirs = platform.DefaultDirs()
	}
	dir, err := dirs.CacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate cache directory: %w", err)
	}
	return dir, nil
}

// loadWithOptions performs option-driven config loading. It returns the
// effective configuration and the file it was read from ("" for defaults).
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := newViper()

	resolvedPath := ""

	// A config file given with --config is used exclusively and must exist.
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Use 'graviton config show' to see the default configuration").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		resolvedPath = opts.ConfigFilePath
	} else {
		cfgDir := opts.ConfigDirPath
		if cfgDir == "" {
			var err error
			if cfgDir, err = ConfigDir(opts.Dirs); err != nil {
				return nil, "", err
			}
		}
		if cuePath := ConfigFilePath(cfgDir); fileExists(cuePath) {
			resolvedPath = cuePath
		}
		// No config file means defaults plus environment.
	}

	if resolvedPath != "" {
		if err := loadCUEIntoViper(v, resolvedPath); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(resolvedPath).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	if _, errs := cfg.IsValid(); len(errs) > 0 {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolvedPath).
			WithSuggestion("Check GRAVITON_* environment variables as well as the config file").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(errors.Join(errs...)).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

// newViper returns a viper instance holding the defaults and bound to
// GRAVITON_* environment variables.
func newViper() *viper.Viper {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("cache_path", defaults.CachePath)
	v.SetDefault("repository.url", defaults.Repository.URL)
	v.SetDefault("repository.timeout", defaults.Repository.Timeout)
	v.SetDefault("repository.artifact_timeout", defaults.Repository.ArtifactTimeout)
	v.SetDefault("repository.max_parallel_downloads", defaults.Repository.MaxParallelDownloads)
	v.SetDefault("repository.user_agent", defaults.Repository.UserAgent)
	v.SetDefault("history.freshness_window", defaults.History.FreshnessWindow)
	v.SetDefault("update.url", defaults.Update.URL)
	v.SetDefault("runtime.kind", string(defaults.Runtime.Kind))
	v.SetDefault("runtime.java_home", defaults.Runtime.JavaHome)
	v.SetDefault("runtime.jvm_args", defaults.Runtime.JVMArgs)
	v.SetDefault("runtime.container.engine", string(defaults.Runtime.Container.Engine))
	v.SetDefault("runtime.container.image", defaults.Runtime.Container.Image)
	v.SetDefault("ui.verbose", defaults.UI.Verbose)
	v.SetDefault("ui.plain", defaults.UI.Plain)
	v.SetDefault("ui.default_coordinate", defaults.UI.DefaultCoordinate)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config schema,
// and merges its contents into Viper.
//
// Note: This uses manual CUE parsing instead of cueutil.ParseAndDecode because
// the result is merged into Viper's map (keeping defaults and env overrides)
// rather than decoded into a struct, and every field is optional.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, path); err != nil {
		return err
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return cueutil.FormatError(userValue.Err(), path)
	}

	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return cueutil.FormatError(err, path)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return cueutil.FormatError(err, path)
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}

	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// CreateDefaultConfig writes a default config file into dir unless one
// exists. It returns the file path and whether it was created.
func CreateDefaultConfig(dir string) (string, bool, error) {
	cfgPath := ConfigFilePath(dir)
	if fileExists(cfgPath) {
		return cfgPath, false, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", false, fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(cfgPath, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return "", false, fmt.Errorf("failed to write config file: %w", err)
	}

	return cfgPath, true, nil
}

// GenerateCUE generates a CUE representation of the configuration
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// Graviton Configuration File\n")
	sb.WriteString("// Every field is optional. Environment variables such as\n")
	sb.WriteString("// GRAVITON_REPOSITORY_URL override the values below.\n\n")

	if cfg.CachePath != "" {
		fmt.Fprintf(&sb, "cache_path: %q\n\n", cfg.CachePath)
	}

	sb.WriteString("repository: {\n")
	fmt.Fprintf(&sb, "\turl:                    %q\n", cfg.Repository.URL)
	fmt.Fprintf(&sb, "\ttimeout:                %q\n", cfg.Repository.Timeout.String())
	fmt.Fprintf(&sb, "\tartifact_timeout:       %q\n", cfg.Repository.ArtifactTimeout.String())
	fmt.Fprintf(&sb, "\tmax_parallel_downloads: %d\n", cfg.Repository.MaxParallelDownloads)
	fmt.Fprintf(&sb, "\tuser_agent:             %q\n", cfg.Repository.UserAgent)
	sb.WriteString("}\n")

	sb.WriteString("\nhistory: {\n")
	fmt.Fprintf(&sb, "\tfreshness_window: %q\n", cfg.History.FreshnessWindow.String())
	sb.WriteString("}\n")

	sb.WriteString("\nupdate: {\n")
	fmt.Fprintf(&sb, "\turl: %q\n", cfg.Update.URL)
	sb.WriteString("}\n")

	sb.WriteString("\nruntime: {\n")
	fmt.Fprintf(&sb, "\tkind: %q\n", cfg.Runtime.Kind)
	if cfg.Runtime.JavaHome != "" {
		fmt.Fprintf(&sb, "\tjava_home: %q\n", cfg.Runtime.JavaHome)
	}
	if len(cfg.Runtime.JVMArgs) > 0 {
		sb.WriteString("\tjvm_args: [")
		for i, arg := range cfg.Runtime.JVMArgs {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%q", arg)
		}
		sb.WriteString("]\n")
	}
	sb.WriteString("\tcontainer: {\n")
	fmt.Fprintf(&sb, "\t\tengine: %q\n", cfg.Runtime.Container.Engine)
	fmt.Fprintf(&sb, "\t\timage:  %q\n", cfg.Runtime.Container.Image)
	sb.WriteString("\t}\n")
	sb.WriteString("}\n")

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tverbose: %v\n", cfg.UI.Verbose)
	fmt.Fprintf(&sb, "\tplain:   %v\n", cfg.UI.Plain)
	if cfg.UI.DefaultCoordinate != "" {
		fmt.Fprintf(&sb, "\tdefault_coordinate: %q\n", cfg.UI.DefaultCoordinate)
	}
	sb.WriteString("}\n")

	return sb.String()
}
