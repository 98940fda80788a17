package api

import (
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arencloud/stackdeck/internal/awsclient"
	"github.com/arencloud/stackdeck/internal/configstore"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
)

// Lightweight in-memory tracing
// Each request gets a Trace with Events, kept in a ring buffer.

type TraceEvent struct {
	Time   time.Time      `json:"time"`
	Name   string         `json:"name"`
	Fields map[string]any `json:"fields,omitempty"`
}

type Trace struct {
	ID        string        `json:"id"`
	Method    string        `json:"method"`
	Path      string        `json:"path"`
	Route     string        `json:"route,omitempty"`
	Status    int           `json:"status"`
	Instance  string        `json:"instance,omitempty"`
	UserAgent string        `json:"userAgent,omitempty"`
	RemoteIP  string        `json:"remoteIp,omitempty"`
	ReqBytes  int64         `json:"reqBytes,omitempty"`
	RespBytes int64         `json:"respBytes,omitempty"`
	Started   time.Time     `json:"started"`
	Ended     time.Time     `json:"ended"`
	Duration  time.Duration `json:"duration"`
	Events    []TraceEvent  `json:"events"`
}

type traceStore struct {
	mu   sync.RWMutex
	buf  []*Trace
	next int
	size int
}

func newTraceStore(size int) *traceStore {
	return &traceStore{buf: make([]*Trace, size), size: size}
}

func (s *traceStore) add(t *Trace) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf[s.next] = t
	s.next = (s.next + 1) % s.size
}

func (s *traceStore) all(limit int) []*Trace {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > s.size {
		limit = s.size
	}
	out := make([]*Trace, 0, limit)
	// walk ring newest-first
	idx := (s.next - 1 + s.size) % s.size
	for i := 0; i < s.size && len(out) < limit; i++ {
		if s.buf[idx] != nil {
			out = append(out, s.buf[idx])
		}
		idx = (idx - 1 + s.size) % s.size
	}
	return out
}

func (s *traceStore) get(id string) *Trace {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.buf {
		if t != nil && t.ID == id {
			return t
		}
	}
	return nil
}

// counters for /obs/metrics
type counters struct {
	totalRequests   atomic.Uint64
	total4xx        atomic.Uint64
	total5xx        atomic.Uint64
	bytesIn         atomic.Uint64
	bytesOut        atomic.Uint64
	totalDurationNs atomic.Uint64
}

const traceKey = "stackdeck.trace"

// tracing opens a trace keyed by the request id and files it when the
// handler chain returns.
func (s *server) tracing() gin.HandlerFunc {
	return func(c *gin.Context) {
		r := c.Request
		t := &Trace{
			ID:        requestid.Get(c),
			Method:    r.Method,
			Path:      r.URL.Path,
			UserAgent: r.UserAgent(),
			RemoteIP:  c.ClientIP(),
			Started:   time.Now(),
			Events:    []TraceEvent{},
		}
		if r.ContentLength > 0 {
			t.ReqBytes = r.ContentLength
		}
		if inst, ok := s.store.Current(); ok {
			t.Instance = inst.Name
		}
		c.Header("X-Trace-Id", t.ID)
		c.Set(traceKey, t)
		addEvent(c, "request.start", map[string]any{"method": r.Method, "path": r.URL.Path})

		c.Next()

		t.Route = c.FullPath()
		t.Status = c.Writer.Status()
		t.Ended = time.Now()
		t.Duration = t.Ended.Sub(t.Started)
		if n := c.Writer.Size(); n > 0 {
			t.RespBytes = int64(n)
		}
		addEvent(c, "request.end", map[string]any{"status": t.Status, "respBytes": t.RespBytes})

		s.stats.totalRequests.Add(1)
		if t.ReqBytes > 0 {
			s.stats.bytesIn.Add(uint64(t.ReqBytes))
		}
		if t.RespBytes > 0 {
			s.stats.bytesOut.Add(uint64(t.RespBytes))
		}
		s.stats.totalDurationNs.Add(uint64(t.Duration))
		switch {
		case t.Status >= 500:
			s.stats.total5xx.Add(1)
		case t.Status >= 400:
			s.stats.total4xx.Add(1)
		}
		s.traces.add(t)
	}
}

func traceFrom(c *gin.Context) *Trace {
	if v, ok := c.Get(traceKey); ok {
		if t, ok := v.(*Trace); ok {
			return t
		}
	}
	return nil
}

func addEvent(c *gin.Context, name string, fields map[string]any) {
	if t := traceFrom(c); t != nil {
		t.Events = append(t.Events, TraceEvent{Time: time.Now(), Name: name, Fields: fields})
	}
}

// respondError records an error event into the current trace and writes a JSON error.
func respondError(c *gin.Context, code int, msg string) {
	addEvent(c, "error", map[string]any{"code": code, "message": msg})
	c.AbortWithStatusJSON(code, gin.H{"error": msg})
}

// respondRemote maps an adapter or store error to a status code. Service
// rejections keep their 4xx status, anything else from upstream is a 502.
func respondRemote(c *gin.Context, err error) {
	var pe *configstore.ParseError
	var sc interface{ HTTPStatusCode() int }
	switch {
	case errors.As(err, &pe):
		respondError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, configstore.ErrDuplicateInstance):
		respondError(c, http.StatusConflict, err.Error())
	case awsclient.IsNotFound(err):
		respondError(c, http.StatusNotFound, err.Error())
	case errors.As(err, &sc) && sc.HTTPStatusCode() >= 400 && sc.HTTPStatusCode() < 500:
		respondError(c, sc.HTTPStatusCode(), err.Error())
	default:
		respondError(c, http.StatusBadGateway, err.Error())
	}
}

func (s *server) traceRecent(c *gin.Context) {
	c.JSON(http.StatusOK, s.traces.all(queryInt(c, "limit", 200)))
}

func (s *server) traceGet(c *gin.Context) {
	t := s.traces.get(c.Param("id"))
	if t == nil {
		respondError(c, http.StatusNotFound, "trace not found")
		return
	}
	c.JSON(http.StatusOK, t)
}
