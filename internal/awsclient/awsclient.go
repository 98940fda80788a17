// Package awsclient turns a configured instance into SDK clients pointed at
// that LocalStack endpoint.
package awsclient

import (
	"context"
	"fmt"

	"github.com/arencloud/stackdeck/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

type Service string

const (
	ServiceS3       Service = "s3"
	ServiceDynamoDB Service = "dynamodb"
	ServiceSQS      Service = "sqs"
	ServiceSNS      Service = "sns"
	ServiceLambda   Service = "lambda"
)

type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
}

// ClientConfig is everything needed to point a service client at an instance.
type ClientConfig struct {
	Region         string
	Endpoint       string
	Credentials    Credentials
	ForcePathStyle bool
}

// BuildClientConfig copies the instance fields verbatim. Path-style
// addressing is forced for S3 because LocalStack does not resolve
// bucket-name subdomains. No validation happens here; a bad endpoint
// surfaces on the first call.
func BuildClientConfig(inst models.Instance, svc Service) ClientConfig {
	return ClientConfig{
		Region:   inst.Region,
		Endpoint: inst.Endpoint,
		Credentials: Credentials{
			AccessKeyID:     inst.AccessKeyID,
			SecretAccessKey: inst.SecretAccessKey,
		},
		ForcePathStyle: svc == ServiceS3,
	}
}

type options struct {
	retryer    func() aws.Retryer
	httpClient aws.HTTPClient
}

// Option customizes client construction.
type Option func(*options)

// WithRetryer replaces the default no-retry policy.
func WithRetryer(newRetryer func() aws.Retryer) Option {
	return func(o *options) { o.retryer = newRetryer }
}

// WithHTTPClient sets the transport used by every client.
func WithHTTPClient(c aws.HTTPClient) Option {
	return func(o *options) { o.httpClient = c }
}

// Factory builds clients for one instance. Construction does no network I/O.
type Factory struct {
	inst models.Instance
	cfg  aws.Config
}

// New loads an SDK config with static credentials, the instance region and
// endpoint. Shared config files and AWS_PROFILE are ignored. Calls are never
// retried unless WithRetryer says otherwise.
func New(ctx context.Context, inst models.Instance, opts ...Option) (*Factory, error) {
	o := options{retryer: func() aws.Retryer { return aws.NopRetryer{} }}
	for _, opt := range opts {
		opt(&o)
	}
	cc := BuildClientConfig(inst, "")

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(cc.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cc.Credentials.AccessKeyID, cc.Credentials.SecretAccessKey, "")),
		config.WithRetryer(o.retryer),
		// Only the instance configures the client. Profiles and files from the
		// host environment are not read.
		config.WithSharedConfigProfile("default"),
		config.WithSharedConfigFiles([]string{}),
		config.WithSharedCredentialsFiles([]string{}),
	}
	if cc.Endpoint != "" {
		loadOpts = append(loadOpts, config.WithBaseEndpoint(cc.Endpoint))
	}
	if o.httpClient != nil {
		loadOpts = append(loadOpts, config.WithHTTPClient(o.httpClient))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config for %q: %w", inst.Name, err)
	}
	return &Factory{inst: inst, cfg: cfg}, nil
}

// Instance returns the instance the factory was built for.
func (f *Factory) Instance() models.Instance { return f.inst }

// Config returns the shared SDK config.
func (f *Factory) Config() aws.Config { return f.cfg.Copy() }

func (f *Factory) S3() *s3.Client {
	cc := BuildClientConfig(f.inst, ServiceS3)
	return s3.NewFromConfig(f.cfg, func(o *s3.Options) {
		o.UsePathStyle = cc.ForcePathStyle
	})
}

func (f *Factory) DynamoDB() *dynamodb.Client { return dynamodb.NewFromConfig(f.cfg) }

func (f *Factory) SQS() *sqs.Client { return sqs.NewFromConfig(f.cfg) }

func (f *Factory) SNS() *sns.Client { return sns.NewFromConfig(f.cfg) }

func (f *Factory) Lambda() *lambda.Client { return lambda.NewFromConfig(f.cfg) }
