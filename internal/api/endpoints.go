package api

import (
	"net/http"
	"runtime"
	"sort"
	"time"

	"github.com/arencloud/stackdeck/internal/logging"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"
)

func (s *server) registerObservability(r *gin.RouterGroup) {
	r.GET("/obs/metrics", s.metrics)
	r.GET("/obs/errors", s.obsErrors)
	r.GET("/obs/summary", s.obsSummary)
	r.GET("/trace/recent", s.traceRecent)
	r.GET("/trace/:id", s.traceGet)
	r.GET("/logs/recent", logsRecent)
	r.GET("/logs/download", logsDownload)
	r.GET("/logs/level", logsGetLevel)
	r.PUT("/logs/level", logsSetLevel)
}

func (s *server) metrics(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	uptime := time.Since(s.started)
	tr := s.stats.totalRequests.Load()
	avgMs := 0.0
	if tr > 0 {
		avgMs = float64(s.stats.totalDurationNs.Load()) / float64(tr) / 1e6
	}
	c.JSON(http.StatusOK, gin.H{
		"uptimeSec":     uptime.Seconds(),
		"uptimeHuman":   uptime.Truncate(time.Second).String(),
		"startedAt":     s.started.Format(time.RFC3339),
		"goroutines":    runtime.NumGoroutine(),
		"heapAlloc":     m.HeapAlloc,
		"heapSys":       m.HeapSys,
		"lastGCUnix":    m.LastGC,
		"gcNum":         m.NumGC,
		"totalRequests": tr,
		"total4xx":      s.stats.total4xx.Load(),
		"total5xx":      s.stats.total5xx.Load(),
		"bytesIn":       s.stats.bytesIn.Load(),
		"bytesOut":      s.stats.bytesOut.Load(),
		"avgDurationMs": avgMs,
	})
}

// lastError returns the message of the most recent error event of a trace.
func lastError(t *Trace) string {
	for i := len(t.Events) - 1; i >= 0; i-- {
		if t.Events[i].Name != "error" {
			continue
		}
		if msg, ok := t.Events[i].Fields["message"].(string); ok {
			return msg
		}
	}
	return ""
}

// obsErrors returns recent traces with errors (status >= 400) and the last error event message.
func (s *server) obsErrors(c *gin.Context) {
	out := make([]gin.H, 0)
	for _, t := range s.traces.all(0) {
		if t.Status < 400 {
			continue
		}
		out = append(out, gin.H{
			"id":         t.ID,
			"method":     t.Method,
			"path":       t.Path,
			"status":     t.Status,
			"durationMs": float64(t.Duration) / 1e6,
			"instance":   t.Instance,
			"message":    lastError(t),
			"started":    t.Started,
		})
		if len(out) == 200 {
			break
		}
	}
	c.JSON(http.StatusOK, out)
}

type pathAgg struct {
	count      int
	sumMs      float64
	lats       []float64
	errs       int
	lastMsg    string
	lastStatus int
	sampleID   string
}

type minuteBucket struct {
	TS     int64 `json:"ts"`
	Count  int   `json:"count"`
	Errors int   `json:"errors"`
}

func percentile(vals []float64, p float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	vv := append([]float64(nil), vals...)
	sort.Float64s(vv)
	idx := int(p / 100.0 * float64(len(vv)-1))
	return vv[idx]
}

// obsSummary returns aggregated observability insights computed from in-memory traces.
func (s *server) obsSummary(c *gin.Context) {
	trs := s.traces.all(500)
	lat := make([]float64, 0, len(trs))
	statusCounts := map[string]int{"2xx": 0, "3xx": 0, "4xx": 0, "5xx": 0}

	// per-minute buckets (last 12 minutes)
	now := time.Now().UTC().Truncate(time.Minute)
	perMinute := make([]*minuteBucket, 12)
	byTS := make(map[int64]*minuteBucket, 12)
	for i := range perMinute {
		b := &minuteBucket{TS: now.Add(-time.Duration(11-i) * time.Minute).Unix()}
		perMinute[i] = b
		byTS[b.TS] = b
	}

	paths := map[string]*pathAgg{}
	for _, t := range trs {
		ms := float64(t.Duration) / 1e6
		lat = append(lat, ms)
		switch {
		case t.Status >= 500:
			statusCounts["5xx"]++
		case t.Status >= 400:
			statusCounts["4xx"]++
		case t.Status >= 300:
			statusCounts["3xx"]++
		default:
			statusCounts["2xx"]++
		}
		if b, ok := byTS[t.Started.UTC().Truncate(time.Minute).Unix()]; ok {
			b.Count++
			if t.Status >= 400 {
				b.Errors++
			}
		}
		key := t.Route
		if key == "" {
			key = t.Path
		}
		pa := paths[key]
		if pa == nil {
			pa = &pathAgg{}
			paths[key] = pa
		}
		pa.count++
		pa.sumMs += ms
		if len(pa.lats) < 100 {
			pa.lats = append(pa.lats, ms)
		}
		if t.Status >= 400 {
			pa.errs++
			// traces come newest first
			if pa.sampleID == "" {
				pa.sampleID = t.ID
				pa.lastMsg = lastError(t)
				pa.lastStatus = t.Status
			}
		}
	}

	topSlow := make([]gin.H, 0)
	topErrors := make([]gin.H, 0)
	for path, ag := range paths {
		if ag.count >= 3 {
			topSlow = append(topSlow, gin.H{"path": path, "count": ag.count, "avgMs": ag.sumMs / float64(ag.count), "p95Ms": percentile(ag.lats, 95)})
		}
		if ag.errs > 0 {
			topErrors = append(topErrors, gin.H{"path": path, "count": ag.errs, "lastMessage": ag.lastMsg, "lastStatus": ag.lastStatus, "sampleTraceId": ag.sampleID})
		}
	}
	sort.Slice(topSlow, func(i, j int) bool { return topSlow[i]["p95Ms"].(float64) > topSlow[j]["p95Ms"].(float64) })
	if len(topSlow) > 5 {
		topSlow = topSlow[:5]
	}
	sort.Slice(topErrors, func(i, j int) bool { return topErrors[i]["count"].(int) > topErrors[j]["count"].(int) })
	if len(topErrors) > 8 {
		topErrors = topErrors[:8]
	}
	c.JSON(http.StatusOK, gin.H{
		"recentLatencies": lat,
		"statusCounts":    statusCounts,
		"perMinute":       perMinute,
		"topSlow":         topSlow,
		"topErrors":       topErrors,
	})
}

// logsRecent returns recent structured logs from the in-memory ring.
func logsRecent(c *gin.Context) {
	level := c.Query("level")
	out := make([]*logging.Entry, 0)
	for _, e := range logging.Recent(queryInt(c, "limit", 200)) {
		if level == "" || e.Level == level {
			out = append(out, e)
		}
	}
	c.JSON(http.StatusOK, out)
}

// logsDownload returns recent logs as NDJSON for easy download
func logsDownload(c *gin.Context) {
	c.Header("Content-Type", "application/x-ndjson")
	c.Header("Cache-Control", "no-store")
	c.Status(http.StatusOK)
	enc := json.NewEncoder(c.Writer)
	for _, e := range logging.Recent(queryInt(c, "limit", 1000)) {
		_ = enc.Encode(e)
	}
}

func logsGetLevel(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"level": logging.GetLevel()})
}

// logsSetLevel updates global log level
func logsSetLevel(c *gin.Context) {
	var in struct {
		Level string `json:"level"`
	}
	if !bindJSON(c, &in) {
		return
	}
	if in.Level == "" {
		respondError(c, http.StatusBadRequest, "level required")
		return
	}
	logging.SetLevel(in.Level)
	c.JSON(http.StatusOK, gin.H{"ok": true, "level": logging.GetLevel()})
}
