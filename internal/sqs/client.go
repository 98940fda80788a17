// Package sqs is the queue adapter. Queues are addressed by URL.
package sqs

import (
	"context"
	"fmt"
	"strings"

	"github.com/arencloud/stackdeck/internal/awsclient"
	"github.com/arencloud/stackdeck/internal/logging"

	"github.com/aws/aws-sdk-go-v2/aws"
	sqsv2 "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

type API interface {
	ListQueues(ctx context.Context, in *sqsv2.ListQueuesInput, optFns ...func(*sqsv2.Options)) (*sqsv2.ListQueuesOutput, error)
	CreateQueue(ctx context.Context, in *sqsv2.CreateQueueInput, optFns ...func(*sqsv2.Options)) (*sqsv2.CreateQueueOutput, error)
	DeleteQueue(ctx context.Context, in *sqsv2.DeleteQueueInput, optFns ...func(*sqsv2.Options)) (*sqsv2.DeleteQueueOutput, error)
	GetQueueAttributes(ctx context.Context, in *sqsv2.GetQueueAttributesInput, optFns ...func(*sqsv2.Options)) (*sqsv2.GetQueueAttributesOutput, error)
	SendMessage(ctx context.Context, in *sqsv2.SendMessageInput, optFns ...func(*sqsv2.Options)) (*sqsv2.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, in *sqsv2.ReceiveMessageInput, optFns ...func(*sqsv2.Options)) (*sqsv2.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, in *sqsv2.DeleteMessageInput, optFns ...func(*sqsv2.Options)) (*sqsv2.DeleteMessageOutput, error)
	PurgeQueue(ctx context.Context, in *sqsv2.PurgeQueueInput, optFns ...func(*sqsv2.Options)) (*sqsv2.PurgeQueueOutput, error)
	GetQueueUrl(ctx context.Context, in *sqsv2.GetQueueUrlInput, optFns ...func(*sqsv2.Options)) (*sqsv2.GetQueueUrlOutput, error)
}

var _ API = (*sqsv2.Client)(nil)

const (
	DefaultMaxMessages int32 = 10
	maxMessagesCap     int32 = 10
)

// ReceiveOptions tunes ReceiveMessages. MaxMessages 0 means
// DefaultMaxMessages; WaitSeconds 0 returns immediately.
type ReceiveOptions struct {
	MaxMessages int32
	WaitSeconds int32
}

type Message struct {
	MessageID         string            `json:"messageId"`
	ReceiptHandle     string            `json:"receiptHandle"`
	Body              string            `json:"body"`
	MD5OfBody         string            `json:"md5OfBody,omitempty"`
	Attributes        map[string]string `json:"attributes,omitempty"`
	MessageAttributes map[string]string `json:"messageAttributes,omitempty"`
}

type Client struct {
	api    API
	logger logging.Logger
}

func New(api API, logger logging.Logger) *Client {
	return &Client{api: api, logger: logger.With("service", "sqs")}
}

func NewFromFactory(f *awsclient.Factory, logger logging.Logger) *Client {
	return New(f.SQS(), logger)
}

// ListQueues returns queue URLs from one ListQueues call.
func (c *Client) ListQueues(ctx context.Context) ([]string, error) {
	out, err := c.api.ListQueues(ctx, &sqsv2.ListQueuesInput{})
	if err != nil {
		return nil, fmt.Errorf("list queues: %w", err)
	}
	if out.QueueUrls == nil {
		return []string{}, nil
	}
	return out.QueueUrls, nil
}

// CreateQueue returns the new queue URL.
func (c *Client) CreateQueue(ctx context.Context, name string, attrs map[string]string) (string, error) {
	in := &sqsv2.CreateQueueInput{QueueName: aws.String(name)}
	if len(attrs) > 0 {
		in.Attributes = attrs
	}
	out, err := c.api.CreateQueue(ctx, in)
	if err != nil {
		return "", fmt.Errorf("create queue %s: %w", name, err)
	}
	return aws.ToString(out.QueueUrl), nil
}

func (c *Client) DeleteQueue(ctx context.Context, url string) error {
	if _, err := c.api.DeleteQueue(ctx, &sqsv2.DeleteQueueInput{QueueUrl: aws.String(url)}); err != nil {
		return fmt.Errorf("delete queue %s: %w", url, err)
	}
	return nil
}

// GetAttributes requests every queue attribute.
func (c *Client) GetAttributes(ctx context.Context, url string) (map[string]string, error) {
	out, err := c.api.GetQueueAttributes(ctx, &sqsv2.GetQueueAttributesInput{
		QueueUrl:       aws.String(url),
		AttributeNames: []types.QueueAttributeName{types.QueueAttributeNameAll},
	})
	if err != nil {
		return nil, fmt.Errorf("get queue attributes %s: %w", url, err)
	}
	if out.Attributes == nil {
		return map[string]string{}, nil
	}
	return out.Attributes, nil
}

// SendMessage sends body with optional string message attributes and
// returns the message id.
func (c *Client) SendMessage(ctx context.Context, url, body string, attrs map[string]string) (string, error) {
	in := &sqsv2.SendMessageInput{QueueUrl: aws.String(url), MessageBody: aws.String(body)}
	if len(attrs) > 0 {
		in.MessageAttributes = make(map[string]types.MessageAttributeValue, len(attrs))
		for k, v := range attrs {
			in.MessageAttributes[k] = types.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(v)}
		}
	}
	out, err := c.api.SendMessage(ctx, in)
	if err != nil {
		return "", fmt.Errorf("send message to %s: %w", url, err)
	}
	return aws.ToString(out.MessageId), nil
}

// ReceiveMessages asks for system and message attributes. WaitSeconds is
// passed through; this layer adds no polling of its own.
func (c *Client) ReceiveMessages(ctx context.Context, url string, opts ReceiveOptions) ([]Message, error) {
	n := opts.MaxMessages
	if n <= 0 {
		n = DefaultMaxMessages
	}
	if n > maxMessagesCap {
		n = maxMessagesCap
	}
	out, err := c.api.ReceiveMessage(ctx, &sqsv2.ReceiveMessageInput{
		QueueUrl:                    aws.String(url),
		MaxNumberOfMessages:         n,
		WaitTimeSeconds:             opts.WaitSeconds,
		MessageSystemAttributeNames: []types.MessageSystemAttributeName{types.MessageSystemAttributeNameAll},
		MessageAttributeNames:       []string{"All"},
	})
	if err != nil {
		return nil, fmt.Errorf("receive messages from %s: %w", url, err)
	}
	msgs := make([]Message, 0, len(out.Messages))
	for _, m := range out.Messages {
		msg := Message{
			MessageID:     aws.ToString(m.MessageId),
			ReceiptHandle: aws.ToString(m.ReceiptHandle),
			Body:          aws.ToString(m.Body),
			MD5OfBody:     aws.ToString(m.MD5OfBody),
			Attributes:    m.Attributes,
		}
		if len(m.MessageAttributes) > 0 {
			msg.MessageAttributes = make(map[string]string, len(m.MessageAttributes))
			for k, v := range m.MessageAttributes {
				msg.MessageAttributes[k] = aws.ToString(v.StringValue)
			}
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

func (c *Client) DeleteMessage(ctx context.Context, url, receiptHandle string) error {
	if _, err := c.api.DeleteMessage(ctx, &sqsv2.DeleteMessageInput{QueueUrl: aws.String(url), ReceiptHandle: aws.String(receiptHandle)}); err != nil {
		return fmt.Errorf("delete message from %s: %w", url, err)
	}
	return nil
}

func (c *Client) PurgeQueue(ctx context.Context, url string) error {
	if _, err := c.api.PurgeQueue(ctx, &sqsv2.PurgeQueueInput{QueueUrl: aws.String(url)}); err != nil {
		return fmt.Errorf("purge queue %s: %w", url, err)
	}
	return nil
}

// ResolveQueueURL looks a queue URL up by name.
func (c *Client) ResolveQueueURL(ctx context.Context, name string) (string, error) {
	out, err := c.api.GetQueueUrl(ctx, &sqsv2.GetQueueUrlInput{QueueName: aws.String(name)})
	if err != nil {
		return "", fmt.Errorf("get queue url %s: %w", name, err)
	}
	return aws.ToString(out.QueueUrl), nil
}

// QueueNameFromURL returns the last path segment of a queue URL.
func QueueNameFromURL(url string) string {
	return url[strings.LastIndex(url, "/")+1:]
}
