package api

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/arencloud/stackdeck/internal/awsclient"
	"github.com/arencloud/stackdeck/internal/config"
	"github.com/arencloud/stackdeck/internal/configstore"
	"github.com/arencloud/stackdeck/internal/logging"
	"github.com/arencloud/stackdeck/internal/middleware"
	"github.com/arencloud/stackdeck/internal/version"

	"github.com/gin-contrib/requestid"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Note: no go:embed for assets; we serve from disk only.

type server struct {
	cfg     *config.Config
	logger  logging.Logger
	store   *configstore.Store
	traces  *traceStore
	stats   *counters
	started time.Time
	opts    []awsclient.Option
}

// Option adjusts how the router talks to LocalStack.
type Option func(*server)

// WithClientOptions passes options to every client factory the handlers build.
func WithClientOptions(opts ...awsclient.Option) Option {
	return func(s *server) { s.opts = append(s.opts, opts...) }
}

func Router(cfg *config.Config, logger logging.Logger, store *configstore.Store, opts ...Option) http.Handler {
	s := &server{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		traces:  newTraceStore(1000),
		stats:   &counters{},
		started: time.Now(),
	}
	for _, o := range opts {
		o(s)
	}

	r := gin.New()
	r.Use(requestid.New())
	r.Use(ginzap.GinzapWithConfig(logger.Zap(), &ginzap.Config{
		TimeFormat: time.RFC3339,
		UTC:        true,
		SkipPaths:  []string{"/health"},
		Context: func(c *gin.Context) []zapcore.Field {
			return []zapcore.Field{zap.String("traceId", requestid.Get(c))}
		},
	}))
	r.Use(middleware.Recoverer(logger))
	r.Use(s.tracing())

	r.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/api/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"name": version.Name, "version": version.Version})
	})

	v1 := r.Group("/api/v1")
	s.registerObservability(v1)
	s.registerConfig(v1)

	svc := v1.Group("", middleware.RequireInstance(store))
	s.registerBuckets(svc.Group("/s3"))
	s.registerTables(svc.Group("/dynamodb"))
	s.registerQueues(svc.Group("/sqs"))
	s.registerTopics(svc.Group("/sns"))
	s.registerFunctions(svc.Group("/lambda"))

	// Static from disk (no embed). If not found, serve index.html for SPA routing
	r.NoRoute(s.spa)
	return r
}

func (s *server) spa(c *gin.Context) {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		respondError(c, http.StatusNotFound, "not found")
		return
	}
	p := filepath.Join(s.cfg.StaticDir, filepath.Clean("/"+c.Request.URL.Path))
	if info, err := os.Stat(p); err == nil && !info.IsDir() {
		c.File(p)
		return
	}
	index := filepath.Join(s.cfg.StaticDir, "index.html")
	if _, err := os.Stat(index); err != nil {
		respondError(c, http.StatusNotFound, "not found")
		return
	}
	c.File(index)
}

// factory builds SDK clients for the instance resolved by RequireInstance.
func (s *server) factory(c *gin.Context) (*awsclient.Factory, bool) {
	inst, ok := middleware.Instance(c)
	if !ok {
		respondError(c, http.StatusConflict, "no instance selected")
		return nil, false
	}
	f, err := awsclient.New(c.Request.Context(), inst, s.opts...)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	addEvent(c, "client.factory", map[string]any{"instance": inst.Name, "endpoint": inst.Endpoint})
	return f, true
}

// bindJSON decodes the request body into v and answers 400 on failure.
func bindJSON(c *gin.Context, v any) bool {
	if err := json.NewDecoder(c.Request.Body).Decode(v); err != nil {
		respondError(c, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return false
	}
	return true
}

func queryInt(c *gin.Context, key string, def int) int {
	if v := c.Query(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			return i
		}
	}
	return def
}

// remoteCtx bounds a single upstream call.
func (s *server) remoteCtx(c *gin.Context) (context.Context, context.CancelFunc) {
	if s.cfg.UpstreamTimeout <= 0 {
		return context.WithCancel(c.Request.Context())
	}
	return context.WithTimeout(c.Request.Context(), s.cfg.UpstreamTimeout)
}
