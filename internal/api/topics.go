package api

import (
	"net/http"

	"github.com/arencloud/stackdeck/internal/sns"

	"github.com/gin-gonic/gin"
)

// Topics are addressed by ARN, passed as ?arn=.
func (s *server) registerTopics(r *gin.RouterGroup) {
	r.GET("/topics", s.listTopics)
	r.POST("/topics", s.createTopic)
	r.DELETE("/topics", s.deleteTopic)
	r.GET("/topics/attributes", s.topicAttributes)
	r.POST("/topics/publish", s.publish)
	r.GET("/topics/subscriptions", s.listSubscriptions)
	r.POST("/topics/subscriptions", s.subscribe)
	r.DELETE("/topics/subscriptions", s.unsubscribe)
}

func (s *server) snsClient(c *gin.Context) (*sns.Client, bool) {
	f, ok := s.factory(c)
	if !ok {
		return nil, false
	}
	return sns.NewFromFactory(f, s.logger), true
}

func requiredQuery(c *gin.Context, key string) (string, bool) {
	v := c.Query(key)
	if v == "" {
		respondError(c, http.StatusBadRequest, key+" is required")
		return "", false
	}
	return v, true
}

func (s *server) listTopics(c *gin.Context) {
	addEvent(c, "topics.list", nil)
	cl, ok := s.snsClient(c)
	if !ok {
		return
	}
	ctx, cancel := s.remoteCtx(c)
	defer cancel()
	topics, err := cl.ListTopics(ctx)
	if err != nil {
		respondRemote(c, err)
		return
	}
	c.JSON(http.StatusOK, topics)
}

func (s *server) createTopic(c *gin.Context) {
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
	addEvent(c, "topic.create", map[string]any{"topic": in.Name})
	cl, ok := s.snsClient(c)
	if !ok {
		return
	}
	ctx, cancel := s.remoteCtx(c)
	defer cancel()
	arn, err := cl.CreateTopic(ctx, in.Name)
	if err != nil {
		respondRemote(c, err)
		return
	}
	c.JSON(http.StatusCreated, sns.Topic{ARN: arn, Name: sns.TopicNameFromARN(arn)})
}

func (s *server) deleteTopic(c *gin.Context) {
	arn, ok := requiredQuery(c, "arn")
	if !ok {
		return
	}
	addEvent(c, "topic.delete", map[string]any{"topic": arn})
	cl, ok := s.snsClient(c)
	if !ok {
		return
	}
	ctx, cancel := s.remoteCtx(c)
	defer cancel()
	if err := cl.DeleteTopic(ctx, arn); err != nil {
		respondRemote(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *server) topicAttributes(c *gin.Context) {
	arn, ok := requiredQuery(c, "arn")
	if !ok {
		return
	}
	cl, ok := s.snsClient(c)
	if !ok {
		return
	}
	ctx, cancel := s.remoteCtx(c)
	defer cancel()
	attrs, err := cl.GetAttributes(ctx, arn)
	if err != nil {
		respondRemote(c, err)
		return
	}
	c.JSON(http.StatusOK, attrs)
}

func (s *server) publish(c *gin.Context) {
	arn, ok := requiredQuery(c, "arn")
	if !ok {
		return
	}
	var in struct {
		Message    string            `json:"message"`
		Subject    string            `json:"subject"`
		Attributes map[string]string `json:"attributes"`
	}
	if !bindJSON(c, &in) {
		return
	}
	if in.Message == "" {
		respondError(c, http.StatusBadRequest, "message is required")
		return
	}
	cl, ok := s.snsClient(c)
	if !ok {
		return
	}
	ctx, cancel := s.remoteCtx(c)
	defer cancel()
	id, err := cl.Publish(ctx, arn, in.Message, in.Subject, in.Attributes)
	if err != nil {
		respondRemote(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messageId": id})
}

func (s *server) listSubscriptions(c *gin.Context) {
	arn, ok := requiredQuery(c, "arn")
	if !ok {
		return
	}
	cl, ok := s.snsClient(c)
	if !ok {
		return
	}
	ctx, cancel := s.remoteCtx(c)
	defer cancel()
	subs, err := cl.ListSubscriptions(ctx, arn)
	if err != nil {
		respondRemote(c, err)
		return
	}
	c.JSON(http.StatusOK, subs)
}

func (s *server) subscribe(c *gin.Context) {
	arn, ok := requiredQuery(c, "arn")
	if !ok {
		return
	}
	var in struct {
		Protocol string `json:"protocol"`
		Endpoint string `json:"endpoint"`
	}
	if !bindJSON(c, &in) {
		return
	}
	if in.Protocol == "" || in.Endpoint == "" {
		respondError(c, http.StatusBadRequest, "protocol and endpoint are required")
		return
	}
	cl, ok := s.snsClient(c)
	if !ok {
		return
	}
	ctx, cancel := s.remoteCtx(c)
	defer cancel()
	subARN, err := cl.Subscribe(ctx, arn, in.Protocol, in.Endpoint)
	if err != nil {
		respondRemote(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"subscriptionArn": subARN})
}

func (s *server) unsubscribe(c *gin.Context) {
	arn, ok := requiredQuery(c, "subscriptionArn")
	if !ok {
		return
	}
	cl, ok := s.snsClient(c)
	if !ok {
		return
	}
	ctx, cancel := s.remoteCtx(c)
	defer cancel()
	if err := cl.Unsubscribe(ctx, arn); err != nil {
		respondRemote(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
