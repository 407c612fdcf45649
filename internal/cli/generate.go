package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/matzehuels/bpdoc/pkg/asset"
	"github.com/matzehuels/bpdoc/pkg/cache"
	"github.com/matzehuels/bpdoc/pkg/errors"
	"github.com/matzehuels/bpdoc/pkg/manifest"
	"github.com/matzehuels/bpdoc/pkg/observability"
	"github.com/matzehuels/bpdoc/pkg/pipeline"
	"github.com/matzehuels/bpdoc/pkg/sink"
	"github.com/matzehuels/bpdoc/pkg/thumbnail"
)

// generateFlags holds command-line overrides for bpdoc.toml.
type generateFlags struct {
	config          string
	output          string
	format          string
	title           string
	maxDepth        int
	renderTimeout   time.Duration
	noThumbnails    bool
	includeExternal bool
	strict          bool
	resume          bool
	noCache         bool
	cacheURL        string
	thumbFormat     string
	mongoURI        string
	manifest        string
	clean           bool
}

// generateCommand creates the generate command.
func (c *CLI) generateCommand() *cobra.Command {
	var flags generateFlags

	cmd := &cobra.Command{
		Use:   "generate [paths...]",
		Short: "Generate documentation for Blueprint assets",
		Long: `Generate documentation for the Blueprint assets (*.bp.yaml, *.bp.yml,
*.bp.json) found under the given files or directories.

Settings are read from bpdoc.toml in the working directory, or from the file
given with --config. Flags override the file.`,
		Example: `  # Document everything under Content/ as HTML
  bpdoc generate Content -f html -o docs

  # Skip unchanged documents, fail on unresolved references
  bpdoc generate --resume --strict`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath(flags.config), flags.config != "")
			if err != nil {
				return err
			}
			applyGenerateFlags(cmd, &cfg, flags, args)
			if err := cfg.validate(); err != nil {
				return err
			}
			return c.runGenerate(cmd.Context(), cfg, flags.clean)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.config, "config", "", "config file (default: ./bpdoc.toml if present)")
	f.StringVarP(&flags.output, "output", "o", "", "output directory (default: docs)")
	f.StringVarP(&flags.format, "format", "f", "", "output format: json (default), html, both")
	f.StringVar(&flags.title, "title", "", "documentation title")
	f.IntVar(&flags.maxDepth, "max-depth", 0, "maximum sub-graph nesting depth")
	f.DurationVar(&flags.renderTimeout, "render-timeout", 0, "how long to wait for outstanding thumbnails")
	f.BoolVar(&flags.noThumbnails, "no-thumbnails", false, "do not render thumbnails")
	f.BoolVar(&flags.includeExternal, "include-external", false, "keep references to engine classes in documents")
	f.BoolVar(&flags.strict, "strict", false, "fail when a reference cannot be resolved")
	f.BoolVar(&flags.resume, "resume", false, "skip documents unchanged since the last run")
	f.BoolVar(&flags.noCache, "no-cache", false, "disable the thumbnail cache")
	f.StringVar(&flags.cacheURL, "cache", "", "thumbnail cache: file (default), none, or redis://host:port/db")
	f.StringVar(&flags.thumbFormat, "thumbnail-format", "", "thumbnail image format: png (default), svg")
	f.StringVar(&flags.mongoURI, "mongo-uri", "", "write documents to MongoDB instead of the output directory")
	f.StringVar(&flags.manifest, "manifest", "", "run manifest database (default: .bpdoc-manifest.db)")
	f.BoolVar(&flags.clean, "clean", false, "remove the output directory before generating")

	return cmd
}

func configPath(flag string) string {
	if flag != "" {
		return flag
	}
	return defaultConfigFile
}

// applyGenerateFlags overrides cfg with every flag the user set.
func applyGenerateFlags(cmd *cobra.Command, cfg *Config, flags generateFlags, args []string) {
	set := cmd.Flags().Changed
	opts := &cfg.Generate

	if len(args) > 0 {
		cfg.Assets = args
	}
	if set("output") {
		cfg.Output = flags.output
	}
	if set("format") {
		opts.OutputFormat = flags.format
	}
	if set("title") {
		opts.Title = flags.title
	}
	if set("max-depth") {
		opts.MaxWalkDepth = flags.maxDepth
	}
	if set("render-timeout") {
		opts.RenderTimeout = flags.renderTimeout
	}
	if set("no-thumbnails") {
		opts.SkipThumbnails = flags.noThumbnails
	}
	if set("include-external") {
		opts.IncludeExternalTypes = flags.includeExternal
	}
	if set("strict") && flags.strict {
		opts.UnresolvedPolicy = pipeline.PolicyError
	}
	if set("resume") {
		opts.Resume = flags.resume
	}
	if set("cache") {
		cfg.Thumbnails.Cache = flags.cacheURL
	}
	if set("no-cache") && flags.noCache {
		cfg.Thumbnails.Cache = cacheNone
	}
	if set("thumbnail-format") {
		cfg.Thumbnails.Format = flags.thumbFormat
	}
	if set("mongo-uri") {
		cfg.Mongo.URI = flags.mongoURI
	}
	if set("manifest") {
		cfg.Manifest = flags.manifest
	}
	if len(cfg.Assets) == 0 {
		cfg.Assets = []string{"."}
	}
}

func (c *CLI) runGenerate(ctx context.Context, cfg Config, clean bool) error {
	opts := cfg.Generate
	opts.Logger = c.Logger
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return err
	}

	en, err := asset.NewLoader(afero.NewOsFs(), c.Logger).Enumerate(cfg.Assets...)
	if err != nil {
		return err
	}
	printInfo("Found %s asset files", StyleNumber.Render(fmt.Sprint(len(en.Files()))))

	out, closeSink, err := c.openSink(ctx, cfg, opts.OutputFormat)
	if err != nil {
		return err
	}
	defer closeSink()

	var store *manifest.Store
	if cfg.Manifest != "" {
		store, err = manifest.Open(cfg.Manifest)
		if err != nil {
			return err
		}
		defer store.Close()
	} else if opts.Resume {
		return errors.New(errors.ErrCodeInvalidConfig, "--resume needs a manifest")
	}
	if fs, ok := out.(*sink.FileSink); ok && clean {
		if err := c.cleanOutput(ctx, fs, store); err != nil {
			return err
		}
	}

	var svc thumbnail.RenderService
	if !opts.SkipThumbnails {
		s, closeRenderer, err := c.openRenderer(ctx, cfg.Thumbnails)
		if err != nil {
			return err
		}
		defer closeRenderer()
		svc = s
	}

	prog := newProgress(c.Logger)
	spinner := newSpinnerWithContext(ctx, "Generating documentation...")
	hooks := observability.Pipeline()
	observability.SetPipelineHooks(newSpinnerHooks(spinner, len(en.Files()), hooks))
	defer observability.SetPipelineHooks(hooks)
	spinner.Start()
	report, err := pipeline.NewRunner(svc, store, c.Logger).Run(ctx, en, out, opts)
	if err != nil {
		spinner.StopWithError("Generation failed")
		return err
	}
	spinner.Stop()
	if report.Cancelled {
		printWarning("Cancelled after %d documents", report.Documents)
		return context.Canceled
	}
	prog.done(fmt.Sprintf("Documented %d assets", report.Counts.Successful))

	printReport(report)
	if cfg.Mongo.URI == "" {
		printFile(cfg.Output)
		printNewline()
		printNextStep("Browse the documentation", "bpdoc serve "+cfg.Output)
	}
	return nil
}

// openSink returns the MongoDB sink when configured and the file sink
// otherwise.
func (c *CLI) openSink(ctx context.Context, cfg Config, format string) (sink.Sink, func(), error) {
	if cfg.Mongo.URI != "" {
		s, err := sink.NewMongoSink(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return nil, nil, err
		}
		c.Logger.Debug("writing to mongodb", "database", cfg.Mongo.Database)
		return s, func() { _ = s.Close(context.WithoutCancel(ctx)) }, nil
	}

	encoders, err := sink.EncodersFor(format)
	if err != nil {
		return nil, nil, err
	}
	s, err := sink.NewFileSink(afero.NewOsFs(), cfg.Output, encoders, sink.WithLogger(c.Logger))
	if err != nil {
		return nil, nil, err
	}
	return s, func() {}, nil
}

// cleanOutput empties the output directory and drops the manifest hashes
// recorded for it, so that a resumed run writes everything again.
func (c *CLI) cleanOutput(ctx context.Context, out *sink.FileSink, store *manifest.Store) error {
	if err := out.Clean(); err != nil {
		return err
	}
	if store == nil {
		return nil
	}
	n, err := store.ForgetDestination(ctx, out.Destination())
	if err != nil {
		return err
	}
	c.Logger.Debug("cleaned output", "dir", out.Dir(), "forgotten", n)
	return nil
}

// openRenderer builds the Graphviz renderer behind the configured cache.
func (c *CLI) openRenderer(ctx context.Context, cfg ThumbnailConfig) (thumbnail.RenderService, func(), error) {
	r, err := thumbnail.NewGraphvizRenderer(ctx, thumbnail.RendererOptions{
		Workers: cfg.Workers,
		Format:  cfg.Format,
		Logger:  c.Logger,
	})
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeRenderFailed, err, "start renderer")
	}

	store, err := c.openCache(ctx, cfg.Cache)
	if err != nil {
		_ = r.Close()
		return nil, nil, err
	}
	closeAll := func() {
		_ = r.Close()
		_ = store.Close()
	}

	keyer := cache.NewScopedKeyer(nil, appName)
	svc := thumbnail.NewCachedRenderer(r, store, keyer, cache.ThumbnailKeyOpts{
		Format:   cfg.Format,
		Renderer: "graphviz",
	}, c.Logger)
	return svc, closeAll, nil
}

func (c *CLI) openCache(ctx context.Context, setting string) (cache.Cache, error) {
	switch {
	case setting == cacheNone:
		return cache.NewNullCache(), nil
	case strings.HasPrefix(setting, "redis://"), strings.HasPrefix(setting, "rediss://"):
		return cache.NewRedisCache(ctx, setting)
	}
	dir, err := cacheDir()
	if err != nil {
		c.Logger.Warn("thumbnail cache disabled", "err", err)
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(afero.NewOsFs(), dir)
}
