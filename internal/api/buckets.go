package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/arencloud/stackdeck/internal/awsclient"
	"github.com/arencloud/stackdeck/internal/s3"

	"github.com/gin-gonic/gin"
)

func (s *server) registerBuckets(r *gin.RouterGroup) {
	r.GET("/buckets", s.listBuckets)
	r.POST("/buckets", s.createBucket)
	r.DELETE("/buckets/:name", s.deleteBucket)
	r.GET("/buckets/:name/exists", s.bucketExists)
	r.POST("/buckets/:name/empty", s.emptyBucket)
	r.GET("/buckets/:name/objects", s.listObjects)
	r.DELETE("/buckets/:name/objects", s.deleteObject)
	r.POST("/buckets/:name/upload", s.uploadObject)
	r.GET("/buckets/:name/download", s.downloadObject)
	r.GET("/buckets/:name/content", s.objectContent)
	r.GET("/buckets/:name/presign", s.presignObject)
}

func (s *server) s3Client(c *gin.Context) (*s3.Client, bool) {
	f, ok := s.factory(c)
	if !ok {
		return nil, false
	}
	return s3.NewFromFactory(f, s.logger), true
}

// objectKey reads the required ?key= parameter.
func objectKey(c *gin.Context) (string, bool) {
	key := c.Query("key")
	if key == "" {
		respondError(c, http.StatusBadRequest, "key is required")
		return "", false
	}
	return key, true
}

func (s *server) listBuckets(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	addEvent(c, "buckets.list", nil)
	cl, ok := s.s3Client(c)
	if !ok {
		return
	}
	ctx, cancel := s.remoteCtx(c)
	defer cancel()
	items, err := cl.ListContainers(ctx)
	if err != nil {
		respondRemote(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (s *server) createBucket(c *gin.Context) {
	var in struct {
		Name string `json:"name"`
	}
	if !bindJSON(c, &in) {
		return
	}
	if in.Name == "" {
		respondError(c, http.StatusBadRequest, "name is required")
		return
	}
	addEvent(c, "bucket.create", map[string]any{"bucket": in.Name})
	cl, ok := s.s3Client(c)
	if !ok {
		return
	}
	ctx, cancel := s.remoteCtx(c)
	defer cancel()
	if err := cl.CreateContainer(ctx, in.Name); err != nil {
		respondRemote(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"name": in.Name})
}

func (s *server) deleteBucket(c *gin.Context) {
	name := c.Param("name")
	addEvent(c, "bucket.delete", map[string]any{"bucket": name})
	cl, ok := s.s3Client(c)
	if !ok {
		return
	}
	ctx, cancel := s.remoteCtx(c)
	defer cancel()
	respondDeleteBucket(c, cl.DeleteContainer(ctx, name))
}

// respondDeleteBucket reports a missing bucket as 404. Other failures carry
// the phase that stopped and how many objects were already removed.
func respondDeleteBucket(c *gin.Context, err error) {
	var de *s3.DeleteContainerError
	switch {
	case err == nil:
		c.Status(http.StatusNoContent)
	case errors.As(err, &de) && de.Removed == 0 && awsclient.IsNotFound(de.Err):
		respondRemote(c, err)
	case errors.As(err, &de):
		addEvent(c, "error", map[string]any{"code": http.StatusBadGateway, "message": err.Error(), "phase": string(de.Phase), "removed": de.Removed})
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": err.Error(), "phase": de.Phase, "removed": de.Removed})
	default:
		respondRemote(c, err)
	}
}

func (s *server) bucketExists(c *gin.Context) {
	cl, ok := s.s3Client(c)
	if !ok {
		return
	}
	ctx, cancel := s.remoteCtx(c)
	defer cancel()
	c.JSON(http.StatusOK, gin.H{"exists": cl.ContainerExists(ctx, c.Param("name"))})
}

func (s *server) emptyBucket(c *gin.Context) {
	name := c.Param("name")
	addEvent(c, "bucket.empty", map[string]any{"bucket": name})
	cl, ok := s.s3Client(c)
	if !ok {
		return
	}
	ctx, cancel := s.remoteCtx(c)
	defer cancel()
	n, err := cl.EmptyContainer(ctx, name)
	if err != nil {
		respondRemote(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": n})
}

func (s *server) listObjects(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	name := c.Param("name")
	addEvent(c, "objects.list", map[string]any{"bucket": name, "prefix": c.Query("prefix")})
	cl, ok := s.s3Client(c)
	if !ok {
		return
	}
	ctx, cancel := s.remoteCtx(c)
	defer cancel()
	items, err := cl.ListObjects(ctx, name, c.Query("prefix"))
	if err != nil {
		respondRemote(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (s *server) deleteObject(c *gin.Context) {
	key, ok := objectKey(c)
	if !ok {
		return
	}
	name := c.Param("name")
	addEvent(c, "object.delete", map[string]any{"bucket": name, "key": key})
	cl, ok := s.s3Client(c)
	if !ok {
		return
	}
	ctx, cancel := s.remoteCtx(c)
	defer cancel()
	if err := cl.DeleteObject(ctx, name, key); err != nil {
		respondRemote(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *server) uploadObject(c *gin.Context) {
	bucket := c.Param("name")
	addEvent(c, "object.upload", map[string]any{"bucket": bucket})
	// Enforce configurable maximum upload size to avoid memory pressure
	if s.cfg.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadBytes)
	}
	mr, err := c.Request.MultipartReader()
	if err != nil {
		respondError(c, http.StatusBadRequest, "expecting multipart form-data")
		return
	}
	var key, ct string
	var body []byte
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			respondUploadError(c, err)
			return
		}
		switch part.FormName() {
		case "key":
			b, err := io.ReadAll(part)
			if err != nil {
				respondUploadError(c, err)
				return
			}
			key = string(b)
		case "file":
			if key == "" {
				key = part.FileName()
			}
			ct = part.Header.Get("Content-Type")
			if body, err = io.ReadAll(part); err != nil {
				respondUploadError(c, err)
				return
			}
		}
	}
	if body == nil {
		respondError(c, http.StatusBadRequest, "no file provided")
		return
	}
	if key == "" {
		respondError(c, http.StatusBadRequest, "key is required")
		return
	}
	cl, ok := s.s3Client(c)
	if !ok {
		return
	}
	ctx, cancel := s.remoteCtx(c)
	defer cancel()
	if err := cl.UploadObject(ctx, bucket, key, body, ct); err != nil {
		respondRemote(c, err)
		return
	}
	addEvent(c, "object.upload.done", map[string]any{"bucket": bucket, "key": key, "size": len(body)})
	c.JSON(http.StatusOK, gin.H{"bucket": bucket, "key": key, "size": len(body)})
}

func respondUploadError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		respondError(c, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}
	respondError(c, http.StatusBadRequest, err.Error())
}

func (s *server) downloadObject(c *gin.Context) {
	key, ok := objectKey(c)
	if !ok {
		return
	}
	cl, ok := s.s3Client(c)
	if !ok {
		return
	}
	ctx, cancel := s.remoteCtx(c)
	defer cancel()
	rc, info, err := cl.OpenObject(ctx, c.Param("name"), key)
	if err != nil {
		respondRemote(c, err)
		return
	}
	defer rc.Close()
	ct := info.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	headers := map[string]string{"Content-Disposition": `attachment; filename="` + key + `"`}
	c.DataFromReader(http.StatusOK, info.ContentLength, ct, rc, headers)
}

// objectContent returns the object body as text for inline preview.
func (s *server) objectContent(c *gin.Context) {
	key, ok := objectKey(c)
	if !ok {
		return
	}
	cl, ok := s.s3Client(c)
	if !ok {
		return
	}
	ctx, cancel := s.remoteCtx(c)
	defer cancel()
	body, err := cl.DownloadObject(ctx, c.Param("name"), key)
	if err != nil {
		respondRemote(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "content": body})
}

func (s *server) presignObject(c *gin.Context) {
	key, ok := objectKey(c)
	if !ok {
		return
	}
	ttl := time.Duration(queryInt(c, "ttl", 3600)) * time.Second
	cl, ok := s.s3Client(c)
	if !ok {
		return
	}
	url, err := cl.PresignDownload(c.Request.Context(), c.Param("name"), key, ttl)
	if err != nil {
		respondRemote(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url, "expiresIn": int(ttl.Seconds())})
}
