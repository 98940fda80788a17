package sqs

import (
	"context"
	"testing"

	"github.com/arencloud/stackdeck/internal/awsclient"
	"github.com/arencloud/stackdeck/internal/logging"

	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient() (*Client, *fakeSQS) {
	f := newFakeSQS()
	return New(f, logging.Wrap(zap.NewNop())), f
}

func TestSendReceiveDelete(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestClient()

	url, err := c.CreateQueue(ctx, "q1", nil)
	require.NoError(t, err)
	require.NotEmpty(t, url)

	id, err := c.SendMessage(ctx, url, "hi", map[string]string{"origin": "test"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	msgs, err := c.ReceiveMessages(ctx, url, ReceiveOptions{})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hi", msgs[0].Body)
	assert.Equal(t, id, msgs[0].MessageID)
	assert.Equal(t, map[string]string{"origin": "test"}, msgs[0].MessageAttributes)

	require.NoError(t, c.DeleteMessage(ctx, url, msgs[0].ReceiptHandle))
	msgs, err = c.ReceiveMessages(ctx, url, ReceiveOptions{})
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestReceiveDefaults(t *testing.T) {
	ctx := context.Background()
	c, f := newTestClient()
	url, err := c.CreateQueue(ctx, "q1", nil)
	require.NoError(t, err)

	_, err = c.ReceiveMessages(ctx, url, ReceiveOptions{})
	require.NoError(t, err)
	in := f.lastReceive
	assert.Equal(t, int32(10), in.MaxNumberOfMessages)
	assert.Equal(t, int32(0), in.WaitTimeSeconds)
	assert.Equal(t, []types.MessageSystemAttributeName{types.MessageSystemAttributeNameAll}, in.MessageSystemAttributeNames)
	assert.Equal(t, []string{"All"}, in.MessageAttributeNames)

	_, err = c.ReceiveMessages(ctx, url, ReceiveOptions{MaxMessages: 3, WaitSeconds: 5})
	require.NoError(t, err)
	assert.Equal(t, int32(3), f.lastReceive.MaxNumberOfMessages)
	assert.Equal(t, int32(5), f.lastReceive.WaitTimeSeconds)
}

func TestAttributesAndResolve(t *testing.T) {
	ctx := context.Background()
	c, f := newTestClient()
	url, err := c.CreateQueue(ctx, "jobs", map[string]string{"VisibilityTimeout": "45"})
	require.NoError(t, err)

	attrs, err := c.GetAttributes(ctx, url)
	require.NoError(t, err)
	assert.Equal(t, "45", attrs["VisibilityTimeout"])
	assert.Equal(t, []types.QueueAttributeName{types.QueueAttributeNameAll}, f.lastAttrs.AttributeNames)

	got, err := c.ResolveQueueURL(ctx, "jobs")
	require.NoError(t, err)
	assert.Equal(t, url, got)

	_, err = c.ResolveQueueURL(ctx, "missing")
	require.Error(t, err)
	assert.True(t, awsclient.IsNotFound(err))
}

func TestPurgeAndDelete(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestClient()
	url, err := c.CreateQueue(ctx, "q", nil)
	require.NoError(t, err)
	for _, b := range []string{"a", "b"} {
		_, err := c.SendMessage(ctx, url, b, nil)
		require.NoError(t, err)
	}

	require.NoError(t, c.PurgeQueue(ctx, url))
	msgs, err := c.ReceiveMessages(ctx, url, ReceiveOptions{})
	require.NoError(t, err)
	assert.Empty(t, msgs)

	require.NoError(t, c.DeleteQueue(ctx, url))
	urls, err := c.ListQueues(ctx)
	require.NoError(t, err)
	assert.Empty(t, urls)
	assert.NotNil(t, urls)
}

func TestQueueNameFromURL(t *testing.T) {
	tests := []struct{ in, want string }{
		{"http://localhost:4566/000000000000/orders", "orders"},
		{"https://sqs.us-east-1.amazonaws.com/123/a.fifo", "a.fifo"},
		{"orders", "orders"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, QueueNameFromURL(tt.in), tt.in)
	}
}
