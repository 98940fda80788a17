// Package sns is the topic adapter. Topics and subscriptions are addressed by ARN.
package sns

import (
	"context"
	"fmt"
	"strings"

	"github.com/arencloud/stackdeck/internal/awsclient"
	"github.com/arencloud/stackdeck/internal/logging"

	"github.com/aws/aws-sdk-go-v2/aws"
	snsv2 "github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

type API interface {
	ListTopics(ctx context.Context, in *snsv2.ListTopicsInput, optFns ...func(*snsv2.Options)) (*snsv2.ListTopicsOutput, error)
	CreateTopic(ctx context.Context, in *snsv2.CreateTopicInput, optFns ...func(*snsv2.Options)) (*snsv2.CreateTopicOutput, error)
	DeleteTopic(ctx context.Context, in *snsv2.DeleteTopicInput, optFns ...func(*snsv2.Options)) (*snsv2.DeleteTopicOutput, error)
	Publish(ctx context.Context, in *snsv2.PublishInput, optFns ...func(*snsv2.Options)) (*snsv2.PublishOutput, error)
	Subscribe(ctx context.Context, in *snsv2.SubscribeInput, optFns ...func(*snsv2.Options)) (*snsv2.SubscribeOutput, error)
	Unsubscribe(ctx context.Context, in *snsv2.UnsubscribeInput, optFns ...func(*snsv2.Options)) (*snsv2.UnsubscribeOutput, error)
	ListSubscriptionsByTopic(ctx context.Context, in *snsv2.ListSubscriptionsByTopicInput, optFns ...func(*snsv2.Options)) (*snsv2.ListSubscriptionsByTopicOutput, error)
	GetTopicAttributes(ctx context.Context, in *snsv2.GetTopicAttributesInput, optFns ...func(*snsv2.Options)) (*snsv2.GetTopicAttributesOutput, error)
}

var _ API = (*snsv2.Client)(nil)

type Topic struct {
	ARN  string `json:"arn"`
	Name string `json:"name"`
}

type Subscription struct {
	ARN      string `json:"subscriptionArn"`
	TopicARN string `json:"topicArn"`
	Protocol string `json:"protocol"`
	Endpoint string `json:"endpoint"`
	Owner    string `json:"owner,omitempty"`
}

type Client struct {
	api    API
	logger logging.Logger
}

func New(api API, logger logging.Logger) *Client {
	return &Client{api: api, logger: logger.With("service", "sns")}
}

func NewFromFactory(f *awsclient.Factory, logger logging.Logger) *Client {
	return New(f.SNS(), logger)
}

// ListTopics returns the first page of topics.
func (c *Client) ListTopics(ctx context.Context) ([]Topic, error) {
	out, err := c.api.ListTopics(ctx, &snsv2.ListTopicsInput{})
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	topics := make([]Topic, 0, len(out.Topics))
	for _, t := range out.Topics {
		arn := aws.ToString(t.TopicArn)
		topics = append(topics, Topic{ARN: arn, Name: TopicNameFromARN(arn)})
	}
	return topics, nil
}

func (c *Client) CreateTopic(ctx context.Context, name string) (string, error) {
	out, err := c.api.CreateTopic(ctx, &snsv2.CreateTopicInput{Name: aws.String(name)})
	if err != nil {
		return "", fmt.Errorf("create topic %s: %w", name, err)
	}
	return aws.ToString(out.TopicArn), nil
}

func (c *Client) DeleteTopic(ctx context.Context, arn string) error {
	if _, err := c.api.DeleteTopic(ctx, &snsv2.DeleteTopicInput{TopicArn: aws.String(arn)}); err != nil {
		return fmt.Errorf("delete topic %s: %w", arn, err)
	}
	return nil
}

// Publish sends message to the topic and returns the message id. Subject and
// attrs are optional. A topic with no subscribers still accepts the message.
func (c *Client) Publish(ctx context.Context, arn, message, subject string, attrs map[string]string) (string, error) {
	in := &snsv2.PublishInput{TopicArn: aws.String(arn), Message: aws.String(message)}
	if subject != "" {
		in.Subject = aws.String(subject)
	}
	if len(attrs) > 0 {
		in.MessageAttributes = make(map[string]types.MessageAttributeValue, len(attrs))
		for k, v := range attrs {
			in.MessageAttributes[k] = types.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(v)}
		}
	}
	out, err := c.api.Publish(ctx, in)
	if err != nil {
		return "", fmt.Errorf("publish to %s: %w", arn, err)
	}
	return aws.ToString(out.MessageId), nil
}

// Subscribe returns the subscription ARN; it may read "pending confirmation"
// for protocols that need a handshake.
func (c *Client) Subscribe(ctx context.Context, arn, protocol, endpoint string) (string, error) {
	out, err := c.api.Subscribe(ctx, &snsv2.SubscribeInput{
		TopicArn: aws.String(arn),
		Protocol: aws.String(protocol),
		Endpoint: aws.String(endpoint),
	})
	if err != nil {
		return "", fmt.Errorf("subscribe %s to %s: %w", endpoint, arn, err)
	}
	return aws.ToString(out.SubscriptionArn), nil
}

func (c *Client) Unsubscribe(ctx context.Context, subscriptionARN string) error {
	if _, err := c.api.Unsubscribe(ctx, &snsv2.UnsubscribeInput{SubscriptionArn: aws.String(subscriptionARN)}); err != nil {
		return fmt.Errorf("unsubscribe %s: %w", subscriptionARN, err)
	}
	return nil
}

func (c *Client) ListSubscriptions(ctx context.Context, arn string) ([]Subscription, error) {
	out, err := c.api.ListSubscriptionsByTopic(ctx, &snsv2.ListSubscriptionsByTopicInput{TopicArn: aws.String(arn)})
	if err != nil {
		return nil, fmt.Errorf("list subscriptions of %s: %w", arn, err)
	}
	subs := make([]Subscription, 0, len(out.Subscriptions))
	for _, s := range out.Subscriptions {
		subs = append(subs, Subscription{
			ARN:      aws.ToString(s.SubscriptionArn),
			TopicARN: aws.ToString(s.TopicArn),
			Protocol: aws.ToString(s.Protocol),
			Endpoint: aws.ToString(s.Endpoint),
			Owner:    aws.ToString(s.Owner),
		})
	}
	return subs, nil
}

func (c *Client) GetAttributes(ctx context.Context, arn string) (map[string]string, error) {
	out, err := c.api.GetTopicAttributes(ctx, &snsv2.GetTopicAttributesInput{TopicArn: aws.String(arn)})
	if err != nil {
		return nil, fmt.Errorf("get topic attributes %s: %w", arn, err)
	}
	if out.Attributes == nil {
		return map[string]string{}, nil
	}
	return out.Attributes, nil
}

// TopicNameFromARN returns the last colon-separated segment of an ARN.
func TopicNameFromARN(arn string) string {
	return arn[strings.LastIndex(arn, ":")+1:]
}
