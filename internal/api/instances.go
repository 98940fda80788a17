package api

import (
	"io"
	"net/http"

	"github.com/arencloud/stackdeck/internal/models"

	"github.com/gin-gonic/gin"
)

func (s *server) registerConfig(r *gin.RouterGroup) {
	r.GET("/config", s.getConfig)
	r.GET("/config/export", s.exportConfig)
	r.POST("/config/import", s.importConfig)
	r.POST("/config/reset", s.resetConfig)
	r.GET("/config/events", s.configEvents)

	r.GET("/instances", s.listInstances)
	r.POST("/instances", s.createInstance)
	r.GET("/instances/current", s.getCurrent)
	r.PUT("/instances/current", s.setCurrent)
	r.GET("/instances/:name", s.getInstance)
	r.PUT("/instances/:name", s.updateInstance)
	r.DELETE("/instances/:name", s.deleteInstance)
}

func (s *server) currentName() string {
	if inst, ok := s.store.Current(); ok {
		return inst.Name
	}
	return ""
}

func (s *server) getConfig(c *gin.Context) {
	cfg := s.store.Configuration()
	if cfg.Instances == nil {
		cfg.Instances = []models.Instance{}
	}
	c.JSON(http.StatusOK, gin.H{
		"instances":           cfg.Instances,
		"defaultInstanceName": cfg.DefaultInstanceName,
		"current":             s.currentName(),
	})
}

func (s *server) exportConfig(c *gin.Context) {
	b, err := s.store.Export()
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	if c.Query("download") != "" {
		c.Header("Content-Disposition", `attachment; filename="localstack-config.json"`)
	}
	c.Data(http.StatusOK, "application/json", b)
}

func (s *server) importConfig(c *gin.Context) {
	addEvent(c, "config.import", nil)
	data, err := c.GetRawData()
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.store.Import(c.Request.Context(), data); err != nil {
		respondRemote(c, err)
		return
	}
	s.getConfig(c)
}

func (s *server) resetConfig(c *gin.Context) {
	addEvent(c, "config.reset", nil)
	if err := s.store.ResetToDefaults(c.Request.Context()); err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	s.getConfig(c)
}

// configEvents streams store changes as server-sent events until the client goes away.
func (s *server) configEvents(c *gin.Context) {
	ch, cancel := s.store.Subscribe()
	defer cancel()
	c.Header("Cache-Control", "no-store")
	c.SSEvent("current", gin.H{"current": s.currentName()})
	c.Writer.Flush()
	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case e, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(string(e.Kind), e)
			return true
		}
	})
}

func (s *server) listInstances(c *gin.Context) {
	cfg := s.store.Configuration()
	if cfg.Instances == nil {
		cfg.Instances = []models.Instance{}
	}
	c.JSON(http.StatusOK, cfg.Instances)
}

func (s *server) getInstance(c *gin.Context) {
	inst, ok := s.store.Instance(c.Param("name"))
	if !ok {
		respondError(c, http.StatusNotFound, "instance not found")
		return
	}
	c.JSON(http.StatusOK, inst)
}

func (s *server) createInstance(c *gin.Context) {
	addEvent(c, "instance.create", nil)
	var in models.Instance
	if !bindJSON(c, &in) {
		return
	}
	if in.Name == "" || in.Endpoint == "" {
		respondError(c, http.StatusBadRequest, "name and endpoint are required")
		return
	}
	if err := s.store.AddInstance(c.Request.Context(), in); err != nil {
		respondRemote(c, err)
		return
	}
	c.JSON(http.StatusCreated, in)
}

func (s *server) updateInstance(c *gin.Context) {
	name := c.Param("name")
	addEvent(c, "instance.update", map[string]any{"instance": name})
	inst, ok := s.store.Instance(name)
	if !ok {
		respondError(c, http.StatusNotFound, "instance not found")
		return
	}
	var in map[string]any
	if !bindJSON(c, &in) {
		return
	}
	// Patch-like update: apply provided fields only
	if v, ok := in["name"].(string); ok {
		inst.Name = v
	}
	if v, ok := in["endpoint"].(string); ok {
		inst.Endpoint = v
	}
	if v, ok := in["region"].(string); ok {
		inst.Region = v
	}
	if v, ok := in["accessKeyId"].(string); ok {
		inst.AccessKeyID = v
	}
	if v, ok := in["secretAccessKey"].(string); ok {
		inst.SecretAccessKey = v
	}
	if inst.Name == "" || inst.Endpoint == "" {
		respondError(c, http.StatusBadRequest, "name and endpoint are required")
		return
	}
	if err := s.store.UpdateInstance(c.Request.Context(), name, inst); err != nil {
		respondRemote(c, err)
		return
	}
	c.JSON(http.StatusOK, inst)
}

func (s *server) deleteInstance(c *gin.Context) {
	name := c.Param("name")
	addEvent(c, "instance.delete", map[string]any{"instance": name})
	if err := s.store.RemoveInstance(c.Request.Context(), name); err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *server) getCurrent(c *gin.Context) {
	inst, ok := s.store.Current()
	if !ok {
		respondError(c, http.StatusNotFound, "no instance selected")
		return
	}
	c.JSON(http.StatusOK, inst)
}

func (s *server) setCurrent(c *gin.Context) {
	var in struct {
		Name string `json:"name"`
	}
	if !bindJSON(c, &in) {
		return
	}
	if !s.store.SetCurrent(c.Request.Context(), in.Name) {
		respondError(c, http.StatusNotFound, "instance not found")
		return
	}
	s.getCurrent(c)
}
