// Package server exposes the local dump over HTTP. Every GET runs the dump
// command and returns its output unchanged.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzhttp"
	"github.com/mcncl/rnbdview/internal/command"
	"github.com/mcncl/rnbdview/internal/config"
	apperrors "github.com/mcncl/rnbdview/internal/errors"
	"github.com/mcncl/rnbdview/internal/logging"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ContentType is sent with every dump response.
const ContentType = "application/json; charset=utf-8"

const shutdownTimeout = 5 * time.Second

// Handler runs the dump command once per GET request.
type Handler struct {
	Runner      command.Runner
	DumpCommand string
	Timeout     time.Duration
	Logger      *zap.Logger
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := uuid.NewString()
	logger := logging.OrNop(h.Logger).With(
		zap.String("request_id", requestID),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("remote", r.RemoteAddr))

	w.Header().Set("X-Request-Id", requestID)

	if r.Method != http.MethodGet {
		http.Error(w, "Unsupported method ("+r.Method+")", http.StatusNotImplemented)
		logger.Info("Rejected request", zap.Int("status", http.StatusNotImplemented))
		return
	}

	body := h.dump(r.Context(), logger)

	header := w.Header()
	header.Set("Content-Type", ContentType)
	if len(body) > 0 {
		etag := ETag(body)
		header.Set("ETag", etag)
		if matchesETag(r.Header.Get("If-None-Match"), etag) {
			w.WriteHeader(http.StatusNotModified)
			logger.Info("Served dump",
				zap.Int("status", http.StatusNotModified),
				zap.Duration("took", time.Since(start)))
			return
		}
	}
	header.Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		logger.Warn("Failed to write response", zap.Error(err))
		return
	}

	logger.Info("Served dump",
		zap.Int("status", http.StatusOK),
		zap.Int("bytes", len(body)),
		zap.Duration("took", time.Since(start)))
}

// dump runs the command and returns its stdout, or nil if it failed.
func (h *Handler) dump(ctx context.Context, logger *zap.Logger) []byte {
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}

	name, args := command.Shell(h.DumpCommand)
	res, err := h.Runner.Run(ctx, name, args...)
	if err != nil {
		logger.Warn("Dump command failed",
			zap.String("command", h.DumpCommand),
			zap.Int("exit_code", res.ExitCode),
			zap.ByteString("stderr", res.Stderr),
			zap.Error(err))
		return nil
	}
	return res.Stdout
}

// ETag returns the strong entity tag for body.
func ETag(body []byte) string {
	return `"` + strconv.FormatUint(xxhash.Sum64(body), 16) + `"`
}

func matchesETag(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == "*" || candidate == etag {
			return true
		}
	}
	return false
}

// Server is the passthrough HTTP endpoint.
type Server struct {
	cfg     config.ServerConfig
	handler *Handler
	logger  *zap.Logger
}

// New builds a Server from its settings.
func New(cfg config.ServerConfig, runner command.Runner, logger *zap.Logger) *Server {
	logger = logging.OrNop(logger)
	return &Server{
		cfg: cfg,
		handler: &Handler{
			Runner:      runner,
			DumpCommand: cfg.DumpCommand,
			Timeout:     cfg.CommandTimeout,
			Logger:      logger,
		},
		logger: logger,
	}
}

// Addr returns the listen address, e.g. ":8000".
func (s *Server) Addr() string {
	return net.JoinHostPort(s.cfg.Bind, strconv.Itoa(s.cfg.Port))
}

// Handler returns the HTTP handler, gzip-wrapped when compression is on.
func (s *Server) Handler() http.Handler {
	if s.cfg.Compress {
		return gzhttp.GzipHandler(s.handler)
	}
	return s.handler
}

// ListenAndServe listens on Addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return apperrors.NewServerError(fmt.Sprintf("cannot listen on %s", s.Addr()), err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully. Serve closes ln.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.cfg.ReadTimeout,
		ReadTimeout:       s.cfg.ReadTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("Serving dump",
			zap.String("addr", ln.Addr().String()),
			zap.String("command", s.cfg.DumpCommand),
			zap.Bool("compress", s.cfg.Compress))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return apperrors.NewServerError("listener stopped", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("Shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return apperrors.NewServerError("shutdown failed", err)
		}
		return nil
	})

	return g.Wait()
}
