package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/matzehuels/bpdoc/pkg/buildinfo"
	bperrors "github.com/matzehuels/bpdoc/pkg/errors"
)

const shutdownTimeout = 5 * time.Second

// serveCommand creates the serve command for browsing generated HTML.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve [dir]",
		Short: "Serve a generated documentation directory over HTTP",
		Example: `  bpdoc generate Content -f html
  bpdoc serve docs --addr :8080`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "docs"
			if len(args) > 0 {
				dir = args[0]
			}
			if info, err := os.Stat(dir); err != nil || !info.IsDir() {
				return bperrors.New(bperrors.ErrCodeInvalidPath, "%s is not a documentation directory", dir)
			}
			return c.serve(cmd.Context(), addr, newDocsRouter(afero.NewOsFs(), dir, c.Logger))
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "localhost:8080", "listen address")
	return cmd
}

// newDocsRouter serves dir read-only, with index.html as the landing page.
func newDocsRouter(fs afero.Fs, dir string, logger *log.Logger) http.Handler {
	root := afero.NewReadOnlyFs(afero.NewBasePathFs(fs, dir))

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.SetHeader("Server", buildinfo.Short()))
	r.Use(requestLogger(logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	r.Handle("/*", http.FileServer(afero.NewHttpFs(root)))
	return r
}

func requestLogger(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request", "method", r.Method, "path", r.URL.Path,
				"status", ww.Status(), "duration", time.Since(start))
		})
	}
}

// serve runs h on addr until ctx is cancelled, then shuts down gracefully.
func (c *CLI) serve(ctx context.Context, addr string, h http.Handler) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return bperrors.Wrap(bperrors.ErrCodeInvalidConfig, err, "listen on %s", addr)
	}

	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	printSuccess("Serving documentation")
	printKeyValue("URL", StyleLink.Render("http://"+ln.Addr().String()+"/"))
	printDetail("Press Ctrl+C to stop")

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	c.Logger.Debug("shutting down server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return ctx.Err()
}
