package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/matzehuels/bpdoc/pkg/errors"
	"github.com/matzehuels/bpdoc/pkg/pipeline"
	"github.com/matzehuels/bpdoc/pkg/thumbnail"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bpdoc.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
assets = ["Content/Blueprints"]
output = "site"

[generate]
title = "Shooter"
output_format = "both"
render_timeout_ms = 2500
excluded_classes = ["BP_DebugHelper"]

[thumbnails]
format = "svg"
cache = "none"
`)

	cfg, err := loadConfig(path, true)
	require.NoError(t, err)
	require.Equal(t, []string{"Content/Blueprints"}, cfg.Assets)
	require.Equal(t, "site", cfg.Output)
	require.Equal(t, "Shooter", cfg.Generate.Title)
	require.Equal(t, pipeline.FormatBoth, cfg.Generate.OutputFormat)
	require.Equal(t, []string{"BP_DebugHelper"}, cfg.Generate.ExcludedClasses)
	require.Equal(t, thumbnail.FormatSVG, cfg.Thumbnails.Format)
	require.Equal(t, cacheNone, cfg.Thumbnails.Cache)
	require.Equal(t, thumbnail.DefaultWorkers, cfg.Thumbnails.Workers, "unset keys keep defaults")

	opts := cfg.Generate
	require.NoError(t, opts.ValidateAndSetDefaults())
	require.Equal(t, 2500*time.Millisecond, opts.RenderTimeout)
}

func TestLoadConfigMissing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "bpdoc.toml")

	cfg, err := loadConfig(missing, false)
	require.NoError(t, err)
	require.Equal(t, defaultConfig(), cfg)

	_, err = loadConfig(missing, true)
	require.True(t, errors.Is(err, errors.ErrCodeInvalidConfig))
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown key", "outptu = \"docs\"\n"},
		{"unknown section key", "[generate]\ntitel = \"x\"\n"},
		{"syntax", "assets = [\n"},
		{"thumbnail format", "[thumbnails]\nformat = \"gif\"\n"},
		{"negative workers", "[thumbnails]\nworkers = -1\n"},
		{"cache backend", "[thumbnails]\ncache = \"memcached://x\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadConfig(writeConfig(t, tt.body), true)
			require.Error(t, err)
			require.True(t, errors.Is(err, errors.ErrCodeInvalidConfig), "got %v", err)
		})
	}
}

func TestApplyGenerateFlags(t *testing.T) {
	c := New(&testWriter{t}, LogInfo)
	cmd := c.generateCommand()
	require.NoError(t, cmd.ParseFlags([]string{
		"-o", "out", "-f", "html", "--strict", "--no-cache", "--render-timeout", "3s",
	}))

	cfg := defaultConfig()
	cfg.Generate.Title = "From File"

	var flags generateFlags
	flags.output, _ = cmd.Flags().GetString("output")
	flags.format, _ = cmd.Flags().GetString("format")
	flags.strict, _ = cmd.Flags().GetBool("strict")
	flags.noCache, _ = cmd.Flags().GetBool("no-cache")
	flags.renderTimeout, _ = cmd.Flags().GetDuration("render-timeout")

	applyGenerateFlags(cmd, &cfg, flags, nil)
	require.Equal(t, "out", cfg.Output)
	require.Equal(t, pipeline.FormatHTML, cfg.Generate.OutputFormat)
	require.Equal(t, pipeline.PolicyError, cfg.Generate.UnresolvedPolicy)
	require.Equal(t, cacheNone, cfg.Thumbnails.Cache)
	require.Equal(t, 3*time.Second, cfg.Generate.RenderTimeout)
	require.Equal(t, "From File", cfg.Generate.Title, "unset flags keep file values")
	require.Equal(t, []string{"."}, cfg.Assets)
}
