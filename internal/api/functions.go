package api

import (
	"net/http"

	"github.com/arencloud/stackdeck/internal/lambda"

	"github.com/gin-gonic/gin"
)

func (s *server) registerFunctions(r *gin.RouterGroup) {
	r.GET("/functions", s.listFunctions)
	r.POST("/functions", s.createFunction)
	r.GET("/functions/:name", s.getFunction)
	r.DELETE("/functions/:name", s.deleteFunction)
	r.POST("/functions/:name/invoke", s.invokeFunction)
	r.PUT("/functions/:name/code", s.updateFunctionCode)
	r.PUT("/functions/:name/configuration", s.updateFunctionConfiguration)
}

func (s *server) lambdaClient(c *gin.Context) (*lambda.Client, bool) {
	f, ok := s.factory(c)
	if !ok {
		return nil, false
	}
	return lambda.NewFromFactory(f, s.logger), true
}

func (s *server) listFunctions(c *gin.Context) {
	addEvent(c, "functions.list", nil)
	cl, ok := s.lambdaClient(c)
	if !ok {
		return
	}
	ctx, cancel := s.remoteCtx(c)
	defer cancel()
	fns, err := cl.ListFunctions(ctx)
	if err != nil {
		respondRemote(c, err)
		return
	}
	c.JSON(http.StatusOK, fns)
}

// createFunction takes the deployment zip base64-encoded in "code".
func (s *server) createFunction(c *gin.Context) {
	if s.cfg.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadBytes)
	}
	var in lambda.CreateFunctionInput
	if !bindJSON(c, &in) {
		return
	}
	if in.Name == "" || in.Runtime == "" || in.Handler == "" || len(in.Code) == 0 {
		respondError(c, http.StatusBadRequest, "name, runtime, handler and code are required")
		return
	}
	addEvent(c, "function.create", map[string]any{"function": in.Name, "runtime": in.Runtime})
	cl, ok := s.lambdaClient(c)
	if !ok {
		return
	}
	ctx, cancel := s.remoteCtx(c)
	defer cancel()
	if err := cl.CreateFunction(ctx, in); err != nil {
		respondRemote(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"name": in.Name})
}

func (s *server) getFunction(c *gin.Context) {
	cl, ok := s.lambdaClient(c)
	if !ok {
		return
	}
	ctx, cancel := s.remoteCtx(c)
	defer cancel()
	fn, err := cl.LookupFunction(ctx, c.Param("name"))
	if err != nil {
		respondRemote(c, err)
		return
	}
	if fn == nil {
		respondError(c, http.StatusNotFound, "function not found")
		return
	}
	c.JSON(http.StatusOK, fn)
}

func (s *server) deleteFunction(c *gin.Context) {
	name := c.Param("name")
	addEvent(c, "function.delete", map[string]any{"function": name})
	cl, ok := s.lambdaClient(c)
	if !ok {
		return
	}
	ctx, cancel := s.remoteCtx(c)
	defer cancel()
	if err := cl.DeleteFunction(ctx, name); err != nil {
		respondRemote(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// invokeFunction passes the raw request body through as the event payload.
func (s *server) invokeFunction(c *gin.Context) {
	name := c.Param("name")
	payload, err := c.GetRawData()
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if len(payload) == 0 {
		payload = nil
	}
	addEvent(c, "function.invoke", map[string]any{"function": name, "payloadBytes": len(payload)})
	cl, ok := s.lambdaClient(c)
	if !ok {
		return
	}
	ctx, cancel := s.remoteCtx(c)
	defer cancel()
	res, err := cl.Invoke(ctx, name, payload)
	if err != nil {
		respondRemote(c, err)
		return
	}
	if res.FunctionError != "" {
		addEvent(c, "function.error", map[string]any{"function": name, "error": res.FunctionError})
	}
	c.JSON(http.StatusOK, res)
}

// updateFunctionCode takes the zip as the raw request body.
func (s *server) updateFunctionCode(c *gin.Context) {
	name := c.Param("name")
	if s.cfg.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadBytes)
	}
	zip, err := c.GetRawData()
	if err != nil {
		respondUploadError(c, err)
		return
	}
	if len(zip) == 0 {
		respondError(c, http.StatusBadRequest, "code is required")
		return
	}
	addEvent(c, "function.code", map[string]any{"function": name, "size": len(zip)})
	cl, ok := s.lambdaClient(c)
	if !ok {
		return
	}
	ctx, cancel := s.remoteCtx(c)
	defer cancel()
	if err := cl.UpdateCode(ctx, name, zip); err != nil {
		respondRemote(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *server) updateFunctionConfiguration(c *gin.Context) {
	name := c.Param("name")
	var in lambda.ConfigurationUpdate
	if !bindJSON(c, &in) {
		return
	}
	addEvent(c, "function.configuration", map[string]any{"function": name})
	cl, ok := s.lambdaClient(c)
	if !ok {
		return
	}
	ctx, cancel := s.remoteCtx(c)
	defer cancel()
	if err := cl.UpdateConfiguration(ctx, name, in); err != nil {
		respondRemote(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
