package sqs

import (
	"context"
	"sort"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	sqsv2 "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/aws/smithy-go"
)

const fakeBase = "http://localhost:4566/000000000000/"

type fakeMessage struct {
	id       string
	body     string
	attrs    map[string]types.MessageAttributeValue
	receipt  string
	inFlight bool
}

// fakeSQS hides received messages until they are deleted, like a queue
// with an infinite visibility timeout.
type fakeSQS struct {
	queues      map[string][]*fakeMessage
	attrs       map[string]map[string]string
	seq         int
	lastReceive *sqsv2.ReceiveMessageInput
	lastAttrs   *sqsv2.GetQueueAttributesInput
}

func newFakeSQS() *fakeSQS {
	return &fakeSQS{queues: map[string][]*fakeMessage{}, attrs: map[string]map[string]string{}}
}

func nonExistent() error {
	return &smithy.GenericAPIError{Code: "AWS.SimpleQueueService.NonExistentQueue", Message: "The specified queue does not exist."}
}

func (f *fakeSQS) next() string {
	f.seq++
	return strconv.Itoa(f.seq)
}

func (f *fakeSQS) ListQueues(context.Context, *sqsv2.ListQueuesInput, ...func(*sqsv2.Options)) (*sqsv2.ListQueuesOutput, error) {
	out := &sqsv2.ListQueuesOutput{}
	for u := range f.queues {
		out.QueueUrls = append(out.QueueUrls, u)
	}
	sort.Strings(out.QueueUrls)
	return out, nil
}

func (f *fakeSQS) CreateQueue(_ context.Context, in *sqsv2.CreateQueueInput, _ ...func(*sqsv2.Options)) (*sqsv2.CreateQueueOutput, error) {
	u := fakeBase + aws.ToString(in.QueueName)
	if _, ok := f.queues[u]; !ok {
		f.queues[u] = nil
		f.attrs[u] = map[string]string{"QueueArn": "arn:aws:sqs:us-east-1:000000000000:" + aws.ToString(in.QueueName)}
		for k, v := range in.Attributes {
			f.attrs[u][k] = v
		}
	}
	return &sqsv2.CreateQueueOutput{QueueUrl: aws.String(u)}, nil
}

func (f *fakeSQS) DeleteQueue(_ context.Context, in *sqsv2.DeleteQueueInput, _ ...func(*sqsv2.Options)) (*sqsv2.DeleteQueueOutput, error) {
	u := aws.ToString(in.QueueUrl)
	if _, ok := f.queues[u]; !ok {
		return nil, nonExistent()
	}
	delete(f.queues, u)
	delete(f.attrs, u)
	return &sqsv2.DeleteQueueOutput{}, nil
}

func (f *fakeSQS) GetQueueAttributes(_ context.Context, in *sqsv2.GetQueueAttributesInput, _ ...func(*sqsv2.Options)) (*sqsv2.GetQueueAttributesOutput, error) {
	f.lastAttrs = in
	a, ok := f.attrs[aws.ToString(in.QueueUrl)]
	if !ok {
		return nil, nonExistent()
	}
	return &sqsv2.GetQueueAttributesOutput{Attributes: a}, nil
}

func (f *fakeSQS) SendMessage(_ context.Context, in *sqsv2.SendMessageInput, _ ...func(*sqsv2.Options)) (*sqsv2.SendMessageOutput, error) {
	u := aws.ToString(in.QueueUrl)
	if _, ok := f.queues[u]; !ok {
		return nil, nonExistent()
	}
	m := &fakeMessage{id: "msg-" + f.next(), body: aws.ToString(in.MessageBody), attrs: in.MessageAttributes}
	f.queues[u] = append(f.queues[u], m)
	return &sqsv2.SendMessageOutput{MessageId: aws.String(m.id)}, nil
}

func (f *fakeSQS) ReceiveMessage(_ context.Context, in *sqsv2.ReceiveMessageInput, _ ...func(*sqsv2.Options)) (*sqsv2.ReceiveMessageOutput, error) {
	f.lastReceive = in
	msgs, ok := f.queues[aws.ToString(in.QueueUrl)]
	if !ok {
		return nil, nonExistent()
	}
	out := &sqsv2.ReceiveMessageOutput{}
	for _, m := range msgs {
		if m.inFlight || int32(len(out.Messages)) >= in.MaxNumberOfMessages {
			continue
		}
		m.inFlight = true
		m.receipt = "rh-" + f.next()
		out.Messages = append(out.Messages, types.Message{
			MessageId:         aws.String(m.id),
			ReceiptHandle:     aws.String(m.receipt),
			Body:              aws.String(m.body),
			MessageAttributes: m.attrs,
			Attributes:        map[string]string{"ApproximateReceiveCount": "1"},
		})
	}
	return out, nil
}

func (f *fakeSQS) DeleteMessage(_ context.Context, in *sqsv2.DeleteMessageInput, _ ...func(*sqsv2.Options)) (*sqsv2.DeleteMessageOutput, error) {
	u := aws.ToString(in.QueueUrl)
	msgs, ok := f.queues[u]
	if !ok {
		return nil, nonExistent()
	}
	for i, m := range msgs {
		if m.receipt == aws.ToString(in.ReceiptHandle) {
			f.queues[u] = append(msgs[:i], msgs[i+1:]...)
			break
		}
	}
	return &sqsv2.DeleteMessageOutput{}, nil
}

func (f *fakeSQS) PurgeQueue(_ context.Context, in *sqsv2.PurgeQueueInput, _ ...func(*sqsv2.Options)) (*sqsv2.PurgeQueueOutput, error) {
	u := aws.ToString(in.QueueUrl)
	if _, ok := f.queues[u]; !ok {
		return nil, nonExistent()
	}
	f.queues[u] = nil
	return &sqsv2.PurgeQueueOutput{}, nil
}

func (f *fakeSQS) GetQueueUrl(_ context.Context, in *sqsv2.GetQueueUrlInput, _ ...func(*sqsv2.Options)) (*sqsv2.GetQueueUrlOutput, error) {
	u := fakeBase + aws.ToString(in.QueueName)
	if _, ok := f.queues[u]; !ok {
		return nil, nonExistent()
	}
	return &sqsv2.GetQueueUrlOutput{QueueUrl: aws.String(u)}, nil
}
