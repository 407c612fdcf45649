package cli

import (
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/bpdoc/pkg/errors"
	"github.com/matzehuels/bpdoc/pkg/manifest"
	"github.com/matzehuels/bpdoc/pkg/pipeline"
	"github.com/matzehuels/bpdoc/pkg/thumbnail"
)

// Config is the contents of bpdoc.toml:
//
//	assets = ["Content/Blueprints"]
//	output = "docs"
//
//	[generate]
//	title = "My Game"
//	output_format = "both"
//	render_timeout_ms = 10000
//	excluded_classes = ["BP_DebugHelper"]
//
//	[thumbnails]
//	format = "svg"
//	cache = "redis://localhost:6379/0"
//
//	[mongo]
//	uri = "mongodb://localhost:27017"
//	database = "bpdoc"
type Config struct {
	// Assets are the files or directories to document.
	Assets []string `toml:"assets"`

	// Output is the documentation directory.
	Output string `toml:"output"`

	// Manifest is the SQLite file recording runs. Empty disables it.
	Manifest string `toml:"manifest"`

	Generate   pipeline.Options `toml:"generate"`
	Thumbnails ThumbnailConfig  `toml:"thumbnails"`
	Mongo      MongoConfig      `toml:"mongo"`
}

// ThumbnailConfig configures rendering.
type ThumbnailConfig struct {
	// Format is png or svg.
	Format string `toml:"format"`

	// Workers is the number of concurrent renders.
	Workers int `toml:"workers"`

	// Cache is "file" (default), "none", or a redis:// URL.
	Cache string `toml:"cache"`
}

// MongoConfig selects the MongoDB sink. Documents go to MongoDB instead of
// the output directory when URI is set.
type MongoConfig struct {
	URI      string `toml:"uri"`
	Database string `toml:"database"`
}

// Cache settings.
const (
	cacheFile = "file"
	cacheNone = "none"
)

func defaultConfig() Config {
	return Config{
		Output:   "docs",
		Manifest: manifest.DefaultFile,
		Thumbnails: ThumbnailConfig{
			Format:  thumbnail.FormatPNG,
			Workers: thumbnail.DefaultWorkers,
			Cache:   cacheFile,
		},
		Mongo: MongoConfig{Database: appName},
	}
}

// loadConfig reads path on top of the defaults. A missing file is only an
// error when the path was given explicitly.
func loadConfig(path string, explicit bool) (Config, error) {
	cfg := defaultConfig()
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return cfg, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read config %s", path)
	}

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return cfg, errors.New(errors.ErrCodeInvalidConfig, "%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.Thumbnails.Format {
	case thumbnail.FormatPNG, thumbnail.FormatSVG:
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "thumbnails.format must be png or svg, got %q", c.Thumbnails.Format)
	}
	if c.Thumbnails.Workers < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "thumbnails.workers must not be negative")
	}
	cache := c.Thumbnails.Cache
	if cache != cacheFile && cache != cacheNone && !strings.HasPrefix(cache, "redis://") && !strings.HasPrefix(cache, "rediss://") {
		return errors.New(errors.ErrCodeInvalidConfig, "thumbnails.cache must be file, none or a redis:// URL, got %q", cache)
	}
	return nil
}
