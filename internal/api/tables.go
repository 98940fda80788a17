package api

import (
	"errors"
	"net/http"

	"github.com/arencloud/stackdeck/internal/dynamodb"

	"github.com/gin-gonic/gin"
)

func (s *server) registerTables(r *gin.RouterGroup) {
	r.GET("/tables", s.listTables)
	r.POST("/tables", s.createTable)
	r.GET("/tables/:name", s.describeTable)
	r.DELETE("/tables/:name", s.deleteTable)
	r.GET("/tables/:name/items", s.scanTable)
	r.PUT("/tables/:name/items", s.putItem)
	r.PATCH("/tables/:name/items", s.updateItem)
	r.POST("/tables/:name/items/get", s.getItem)
	r.POST("/tables/:name/items/delete", s.deleteItem)
}

func (s *server) dynamoClient(c *gin.Context) (*dynamodb.Client, bool) {
	f, ok := s.factory(c)
	if !ok {
		return nil, false
	}
	return dynamodb.NewFromFactory(f, s.logger), true
}

func (s *server) listTables(c *gin.Context) {
	addEvent(c, "tables.list", nil)
	cl, ok := s.dynamoClient(c)
	if !ok {
		return
	}
	ctx, cancel := s.remoteCtx(c)
	defer cancel()
	names, err := cl.ListTables(ctx)
	if err != nil {
		respondRemote(c, err)
		return
	}
	c.JSON(http.StatusOK, names)
}

func (s *server) createTable(c *gin.Context) {
	var in struct {
		Name                 string                         `json:"name"`
		KeySchema            []dynamodb.KeyElement          `json:"keySchema"`
		AttributeDefinitions []dynamodb.AttributeDefinition `json:"attributeDefinitions"`
	}
	if !bindJSON(c, &in) {
		return
	}
	if in.Name == "" || len(in.KeySchema) == 0 {
		respondError(c, http.StatusBadRequest, "name and keySchema are required")
		return
	}
	addEvent(c, "table.create", map[string]any{"table": in.Name})
	cl, ok := s.dynamoClient(c)
	if !ok {
		return
	}
	ctx, cancel := s.remoteCtx(c)
	defer cancel()
	if err := cl.CreateTable(ctx, in.Name, in.KeySchema, in.AttributeDefinitions); err != nil {
		respondRemote(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"name": in.Name})
}

func (s *server) describeTable(c *gin.Context) {
	cl, ok := s.dynamoClient(c)
	if !ok {
		return
	}
	ctx, cancel := s.remoteCtx(c)
	defer cancel()
	desc, err := cl.DescribeTable(ctx, c.Param("name"))
	if err != nil {
		respondRemote(c, err)
		return
	}
	c.JSON(http.StatusOK, desc)
}

func (s *server) deleteTable(c *gin.Context) {
	name := c.Param("name")
	addEvent(c, "table.delete", map[string]any{"table": name})
	cl, ok := s.dynamoClient(c)
	if !ok {
		return
	}
	ctx, cancel := s.remoteCtx(c)
	defer cancel()
	if err := cl.DeleteTable(ctx, name); err != nil {
		respondRemote(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *server) scanTable(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	cl, ok := s.dynamoClient(c)
	if !ok {
		return
	}
	ctx, cancel := s.remoteCtx(c)
	defer cancel()
	items, err := cl.Scan(ctx, c.Param("name"), int32(queryInt(c, "limit", dynamodb.DefaultScanLimit)))
	if err != nil {
		respondRemote(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (s *server) putItem(c *gin.Context) {
	var item dynamodb.Item
	if !bindJSON(c, &item) {
		return
	}
	if len(item) == 0 {
		respondError(c, http.StatusBadRequest, "item is required")
		return
	}
	cl, ok := s.dynamoClient(c)
	if !ok {
		return
	}
	ctx, cancel := s.remoteCtx(c)
	defer cancel()
	if err := cl.PutItem(ctx, c.Param("name"), item); err != nil {
		respondRemote(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

type itemKey struct {
	Key     dynamodb.Item `json:"key"`
	Updates dynamodb.Item `json:"updates,omitempty"`
}

func bindKey(c *gin.Context) (itemKey, bool) {
	var in itemKey
	if !bindJSON(c, &in) {
		return in, false
	}
	if len(in.Key) == 0 {
		respondError(c, http.StatusBadRequest, "key is required")
		return in, false
	}
	return in, true
}

func (s *server) getItem(c *gin.Context) {
	in, ok := bindKey(c)
	if !ok {
		return
	}
	cl, ok := s.dynamoClient(c)
	if !ok {
		return
	}
	ctx, cancel := s.remoteCtx(c)
	defer cancel()
	item, err := cl.GetItem(ctx, c.Param("name"), in.Key)
	if err != nil {
		respondRemote(c, err)
		return
	}
	if item == nil {
		respondError(c, http.StatusNotFound, "item not found")
		return
	}
	c.JSON(http.StatusOK, item)
}

func (s *server) deleteItem(c *gin.Context) {
	in, ok := bindKey(c)
	if !ok {
		return
	}
	cl, ok := s.dynamoClient(c)
	if !ok {
		return
	}
	ctx, cancel := s.remoteCtx(c)
	defer cancel()
	if err := cl.DeleteItem(ctx, c.Param("name"), in.Key); err != nil {
		respondRemote(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *server) updateItem(c *gin.Context) {
	in, ok := bindKey(c)
	if !ok {
		return
	}
	cl, ok := s.dynamoClient(c)
	if !ok {
		return
	}
	ctx, cancel := s.remoteCtx(c)
	defer cancel()
	err := cl.UpdateItem(ctx, c.Param("name"), in.Key, in.Updates)
	switch {
	case errors.Is(err, dynamodb.ErrNoUpdates):
		respondError(c, http.StatusBadRequest, err.Error())
	case err != nil:
		respondRemote(c, err)
	default:
		c.Status(http.StatusNoContent)
	}
}
