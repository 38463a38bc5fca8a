package preview

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gridspace/grid-pages/internal/logger"
)

const (
	// DefaultPort is the port the preview server binds by default.
	DefaultPort = 5003

	// DefaultHost keeps the preview server local.
	DefaultHost = "127.0.0.1"

	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second

	permissionsPolicy = "accelerometer=(), ambient-light-sensor=(), autoplay=(), battery=(), camera=(), " +
		"cross-origin-isolated=(), document-domain=(), encrypted-media=(), fullscreen=(self), " +
		"geolocation=(), gyroscope=(), magnetometer=(), microphone=(), midi=(), payment=(), " +
		"picture-in-picture=(), publickey-credentials-get=(), screen-wake-lock=(), usb=(), " +
		"web-share=(), xr-spatial-tracking=(), unload=(self), webgl=(self)"
)

var errNotDirectory = errors.New("not a directory")

// releaseMode silences gin's debug route dump once per process.
//
//nolint:gochecknoglobals // gin keeps its mode globally.
var releaseMode sync.Once

// contentTypes overrides the platform MIME table for extensions browsers are strict about.
//
//nolint:gochecknoglobals // Read-only lookup table.
var contentTypes = map[string]string{
	".wasm": "application/wasm",
	".mjs":  "text/javascript",
}

// Options controls the preview server.
type Options struct {
	// Root is the bundle directory to serve.
	Root string
	// Host is the address to bind, DefaultHost when empty.
	Host string
	// Port is the TCP port, DefaultPort when zero.
	Port int
}

// Run serves opts.Root until ctx is canceled.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "preview")

	root, err := checkRoot(opts.Root)
	if err != nil {
		return err
	}

	host := opts.Host
	if host == "" {
		host = DefaultHost
	}

	port := opts.Port
	if port == 0 {
		port = DefaultPort
	}

	address := net.JoinHostPort(host, strconv.Itoa(port))

	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", address, err)
	}

	server := &http.Server{
		Handler:           Handler(ctx, root),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	logger.Infof(ctx, "Serving %s at http://%s/ (Ctrl+C to stop)", root, lis.Addr())

	// Closed after Shutdown returns so Run blocks until connections drain.
	done := make(chan struct{})

	go func() {
		defer close(done)

		<-ctx.Done()
		logger.Info(ctx, "Shutting down preview server")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.ErrorKV(ctx, "Preview server shutdown failed", "error", shutdownErr)
		}
	}()

	if err = server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve http: %w", err)
	}

	<-done
	logger.Info(ctx, "Preview server stopped")

	return nil
}

// Handler returns the gin engine serving files under root.
func Handler(ctx context.Context, root string) http.Handler {
	releaseMode.Do(func() {
		gin.SetMode(gin.ReleaseMode)
	})

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(ctx), noCacheHeaders())

	files := http.FileServer(http.Dir(root))

	engine.NoRoute(func(c *gin.Context) {
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			c.Status(http.StatusMethodNotAllowed)

			return
		}

		if contentType, ok := contentTypes[strings.ToLower(filepath.Ext(c.Request.URL.Path))]; ok {
			c.Header("Content-Type", contentType)
		}

		files.ServeHTTP(c.Writer, c.Request)
	})

	return engine
}

func noCacheHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.Writer.Header()
		header.Set("Cache-Control", "no-cache, no-store, must-revalidate")
		header.Set("Pragma", "no-cache")
		header.Set("Expires", "0")
		header.Set("Permissions-Policy", permissionsPolicy)
		header.Set("Cross-Origin-Opener-Policy", "same-origin")
		header.Set("Cross-Origin-Embedder-Policy", "require-corp")

		c.Next()
	}
}

func requestLogger(ctx context.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		logger.DebugKV(ctx, "Request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// checkRoot resolves root and requires it to be an existing directory.
func checkRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", root, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory '%s' does not exist: %w", abs, err)
	}

	if !info.IsDir() {
		return "", fmt.Errorf("'%s': %w", abs, errNotDirectory)
	}

	return abs, nil
}
