package api

import (
	"net/http"

	"github.com/arencloud/stackdeck/internal/sqs"

	"github.com/gin-gonic/gin"
)

// Queues are addressed by URL, passed as ?url=.
func (s *server) registerQueues(r *gin.RouterGroup) {
	r.GET("/queues", s.listQueues)
	r.POST("/queues", s.createQueue)
	r.DELETE("/queues", s.deleteQueue)
	r.GET("/queues/resolve", s.resolveQueue)
	r.GET("/queues/attributes", s.queueAttributes)
	r.POST("/queues/purge", s.purgeQueue)
	r.GET("/queues/messages", s.receiveMessages)
	r.POST("/queues/messages", s.sendMessage)
	r.DELETE("/queues/messages", s.deleteMessage)
}

func (s *server) sqsClient(c *gin.Context) (*sqs.Client, bool) {
	f, ok := s.factory(c)
	if !ok {
		return nil, false
	}
	return sqs.NewFromFactory(f, s.logger), true
}

func queueURL(c *gin.Context) (string, bool) { return requiredQuery(c, "url") }

type queueView struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

func (s *server) listQueues(c *gin.Context) {
	addEvent(c, "queues.list", nil)
	cl, ok := s.sqsClient(c)
	if !ok {
		return
	}
	ctx, cancel := s.remoteCtx(c)
	defer cancel()
	urls, err := cl.ListQueues(ctx)
	if err != nil {
		respondRemote(c, err)
		return
	}
	out := make([]queueView, 0, len(urls))
	for _, u := range urls {
		out = append(out, queueView{URL: u, Name: sqs.QueueNameFromURL(u)})
	}
	c.JSON(http.StatusOK, out)
}

func (s *server) createQueue(c *gin.Context) {
	var in struct {
		Name       string            `json:"name"`
		Attributes map[string]string `json:"attributes"`
	}
	if !bindJSON(c, &in) {
		return
	}
	if in.Name == "" {
		respondError(c, http.StatusBadRequest, "name is required")
		return
	}
	addEvent(c, "queue.create", map[string]any{"queue": in.Name})
	cl, ok := s.sqsClient(c)
	if !ok {
		return
	}
	ctx, cancel := s.remoteCtx(c)
	defer cancel()
	u, err := cl.CreateQueue(ctx, in.Name, in.Attributes)
	if err != nil {
		respondRemote(c, err)
		return
	}
	c.JSON(http.StatusCreated, queueView{URL: u, Name: in.Name})
}

func (s *server) deleteQueue(c *gin.Context) {
	u, ok := queueURL(c)
	if !ok {
		return
	}
	addEvent(c, "queue.delete", map[string]any{"queue": u})
	cl, ok := s.sqsClient(c)
	if !ok {
		return
	}
	ctx, cancel := s.remoteCtx(c)
	defer cancel()
	if err := cl.DeleteQueue(ctx, u); err != nil {
		respondRemote(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *server) resolveQueue(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		respondError(c, http.StatusBadRequest, "name is required")
		return
	}
	cl, ok := s.sqsClient(c)
	if !ok {
		return
	}
	ctx, cancel := s.remoteCtx(c)
	defer cancel()
	u, err := cl.ResolveQueueURL(ctx, name)
	if err != nil {
		respondRemote(c, err)
		return
	}
	c.JSON(http.StatusOK, queueView{URL: u, Name: name})
}

func (s *server) queueAttributes(c *gin.Context) {
	u, ok := queueURL(c)
	if !ok {
		return
	}
	cl, ok := s.sqsClient(c)
	if !ok {
		return
	}
	ctx, cancel := s.remoteCtx(c)
	defer cancel()
	attrs, err := cl.GetAttributes(ctx, u)
	if err != nil {
		respondRemote(c, err)
		return
	}
	c.JSON(http.StatusOK, attrs)
}

func (s *server) purgeQueue(c *gin.Context) {
	u, ok := queueURL(c)
	if !ok {
		return
	}
	addEvent(c, "queue.purge", map[string]any{"queue": u})
	cl, ok := s.sqsClient(c)
	if !ok {
		return
	}
	ctx, cancel := s.remoteCtx(c)
	defer cancel()
	if err := cl.PurgeQueue(ctx, u); err != nil {
		respondRemote(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *server) sendMessage(c *gin.Context) {
	u, ok := queueURL(c)
	if !ok {
		return
	}
	var in struct {
		Body       string            `json:"body"`
		Attributes map[string]string `json:"attributes"`
	}
	if !bindJSON(c, &in) {
		return
	}
	if in.Body == "" {
		respondError(c, http.StatusBadRequest, "body is required")
		return
	}
	cl, ok := s.sqsClient(c)
	if !ok {
		return
	}
	ctx, cancel := s.remoteCtx(c)
	defer cancel()
	id, err := cl.SendMessage(ctx, u, in.Body, in.Attributes)
	if err != nil {
		respondRemote(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"messageId": id})
}

func (s *server) receiveMessages(c *gin.Context) {
	u, ok := queueURL(c)
	if !ok {
		return
	}
	opts := sqs.ReceiveOptions{
		MaxMessages: int32(queryInt(c, "max", int(sqs.DefaultMaxMessages))),
		WaitSeconds: int32(queryInt(c, "wait", 0)),
	}
	cl, ok := s.sqsClient(c)
	if !ok {
		return
	}
	ctx, cancel := s.remoteCtx(c)
	defer cancel()
	msgs, err := cl.ReceiveMessages(ctx, u, opts)
	if err != nil {
		respondRemote(c, err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}

func (s *server) deleteMessage(c *gin.Context) {
	u, ok := queueURL(c)
	if !ok {
		return
	}
	handle := c.Query("receiptHandle")
	if handle == "" {
		respondError(c, http.StatusBadRequest, "receiptHandle is required")
		return
	}
	cl, ok := s.sqsClient(c)
	if !ok {
		return
	}
	ctx, cancel := s.remoteCtx(c)
	defer cancel()
	if err := cl.DeleteMessage(ctx, u, handle); err != nil {
		respondRemote(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
