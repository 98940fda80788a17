package sns

import (
	"context"
	"sort"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	snsv2 "github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/aws/smithy-go"
)

const arnPrefix = "arn:aws:sns:us-east-1:000000000000:"

type fakeSNS struct {
	topics      map[string][]types.Subscription
	seq         int
	lastPublish *snsv2.PublishInput
}

func newFakeSNS() *fakeSNS { return &fakeSNS{topics: map[string][]types.Subscription{}} }

func topicNotFound() error {
	return &smithy.GenericAPIError{Code: "NotFound", Message: "Topic does not exist"}
}

func (f *fakeSNS) ListTopics(context.Context, *snsv2.ListTopicsInput, ...func(*snsv2.Options)) (*snsv2.ListTopicsOutput, error) {
	arns := make([]string, 0, len(f.topics))
	for a := range f.topics {
		arns = append(arns, a)
	}
	sort.Strings(arns)
	out := &snsv2.ListTopicsOutput{}
	for _, a := range arns {
		out.Topics = append(out.Topics, types.Topic{TopicArn: aws.String(a)})
	}
	return out, nil
}

func (f *fakeSNS) CreateTopic(_ context.Context, in *snsv2.CreateTopicInput, _ ...func(*snsv2.Options)) (*snsv2.CreateTopicOutput, error) {
	arn := arnPrefix + aws.ToString(in.Name)
	if _, ok := f.topics[arn]; !ok {
		f.topics[arn] = nil
	}
	return &snsv2.CreateTopicOutput{TopicArn: aws.String(arn)}, nil
}

func (f *fakeSNS) DeleteTopic(_ context.Context, in *snsv2.DeleteTopicInput, _ ...func(*snsv2.Options)) (*snsv2.DeleteTopicOutput, error) {
	delete(f.topics, aws.ToString(in.TopicArn))
	return &snsv2.DeleteTopicOutput{}, nil
}

func (f *fakeSNS) Publish(_ context.Context, in *snsv2.PublishInput, _ ...func(*snsv2.Options)) (*snsv2.PublishOutput, error) {
	f.lastPublish = in
	if _, ok := f.topics[aws.ToString(in.TopicArn)]; !ok {
		return nil, topicNotFound()
	}
	f.seq++
	return &snsv2.PublishOutput{MessageId: aws.String("m-" + strconv.Itoa(f.seq))}, nil
}

func (f *fakeSNS) Subscribe(_ context.Context, in *snsv2.SubscribeInput, _ ...func(*snsv2.Options)) (*snsv2.SubscribeOutput, error) {
	arn := aws.ToString(in.TopicArn)
	if _, ok := f.topics[arn]; !ok {
		return nil, topicNotFound()
	}
	f.seq++
	sub := types.Subscription{
		SubscriptionArn: aws.String(arn + ":sub-" + strconv.Itoa(f.seq)),
		TopicArn:        in.TopicArn,
		Protocol:        in.Protocol,
		Endpoint:        in.Endpoint,
	}
	f.topics[arn] = append(f.topics[arn], sub)
	return &snsv2.SubscribeOutput{SubscriptionArn: sub.SubscriptionArn}, nil
}

func (f *fakeSNS) Unsubscribe(_ context.Context, in *snsv2.UnsubscribeInput, _ ...func(*snsv2.Options)) (*snsv2.UnsubscribeOutput, error) {
	for arn, subs := range f.topics {
		for i, s := range subs {
			if aws.ToString(s.SubscriptionArn) == aws.ToString(in.SubscriptionArn) {
				f.topics[arn] = append(subs[:i], subs[i+1:]...)
				return &snsv2.UnsubscribeOutput{}, nil
			}
		}
	}
	return &snsv2.UnsubscribeOutput{}, nil
}

func (f *fakeSNS) ListSubscriptionsByTopic(_ context.Context, in *snsv2.ListSubscriptionsByTopicInput, _ ...func(*snsv2.Options)) (*snsv2.ListSubscriptionsByTopicOutput, error) {
	subs, ok := f.topics[aws.ToString(in.TopicArn)]
	if !ok {
		return nil, topicNotFound()
	}
	return &snsv2.ListSubscriptionsByTopicOutput{Subscriptions: subs}, nil
}

func (f *fakeSNS) GetTopicAttributes(_ context.Context, in *snsv2.GetTopicAttributesInput, _ ...func(*snsv2.Options)) (*snsv2.GetTopicAttributesOutput, error) {
	arn := aws.ToString(in.TopicArn)
	subs, ok := f.topics[arn]
	if !ok {
		return nil, topicNotFound()
	}
	return &snsv2.GetTopicAttributesOutput{Attributes: map[string]string{
		"TopicArn":               arn,
		"SubscriptionsConfirmed": strconv.Itoa(len(subs)),
	}}, nil
}
