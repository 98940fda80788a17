// Package lambda is the function adapter. Code arrives as a ready zip
// archive; packaging it is the caller's job.
package lambda

import (
	"context"
	"fmt"

	"github.com/arencloud/stackdeck/internal/awsclient"
	"github.com/arencloud/stackdeck/internal/logging"

	"github.com/aws/aws-sdk-go-v2/aws"
	lambdav2 "github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
)

type API interface {
	ListFunctions(ctx context.Context, in *lambdav2.ListFunctionsInput, optFns ...func(*lambdav2.Options)) (*lambdav2.ListFunctionsOutput, error)
	CreateFunction(ctx context.Context, in *lambdav2.CreateFunctionInput, optFns ...func(*lambdav2.Options)) (*lambdav2.CreateFunctionOutput, error)
	DeleteFunction(ctx context.Context, in *lambdav2.DeleteFunctionInput, optFns ...func(*lambdav2.Options)) (*lambdav2.DeleteFunctionOutput, error)
	GetFunction(ctx context.Context, in *lambdav2.GetFunctionInput, optFns ...func(*lambdav2.Options)) (*lambdav2.GetFunctionOutput, error)
	Invoke(ctx context.Context, in *lambdav2.InvokeInput, optFns ...func(*lambdav2.Options)) (*lambdav2.InvokeOutput, error)
	UpdateFunctionCode(ctx context.Context, in *lambdav2.UpdateFunctionCodeInput, optFns ...func(*lambdav2.Options)) (*lambdav2.UpdateFunctionCodeOutput, error)
	UpdateFunctionConfiguration(ctx context.Context, in *lambdav2.UpdateFunctionConfigurationInput, optFns ...func(*lambdav2.Options)) (*lambdav2.UpdateFunctionConfigurationOutput, error)
}

var _ API = (*lambdav2.Client)(nil)

type Function struct {
	Name         string            `json:"name"`
	ARN          string            `json:"arn"`
	Runtime      string            `json:"runtime,omitempty"`
	Handler      string            `json:"handler,omitempty"`
	Description  string            `json:"description,omitempty"`
	Role         string            `json:"role,omitempty"`
	State        string            `json:"state,omitempty"`
	LastModified string            `json:"lastModified,omitempty"`
	CodeSize     int64             `json:"codeSize"`
	MemorySize   int32             `json:"memorySize,omitempty"`
	Timeout      int32             `json:"timeout,omitempty"`
	Environment  map[string]string `json:"environment,omitempty"`
}

type CreateFunctionInput struct {
	Name        string            `json:"name"`
	Runtime     string            `json:"runtime"`
	Handler     string            `json:"handler"`
	Code        []byte            `json:"code"`
	Role        string            `json:"role"`
	Description string            `json:"description,omitempty"`
	Environment map[string]string `json:"environment,omitempty"`
}

// ConfigurationUpdate leaves empty fields and a nil Environment unchanged.
type ConfigurationUpdate struct {
	Runtime     string            `json:"runtime,omitempty"`
	Handler     string            `json:"handler,omitempty"`
	Description string            `json:"description,omitempty"`
	Environment map[string]string `json:"environment,omitempty"`
}

// InvokeResult carries the raw response. FunctionError is set when the
// function itself failed even though the call succeeded.
type InvokeResult struct {
	StatusCode    int32  `json:"statusCode"`
	Payload       string `json:"payload"`
	FunctionError string `json:"functionError,omitempty"`
}

type Client struct {
	api    API
	logger logging.Logger
}

func New(api API, logger logging.Logger) *Client {
	return &Client{api: api, logger: logger.With("service", "lambda")}
}

func NewFromFactory(f *awsclient.Factory, logger logging.Logger) *Client {
	return New(f.Lambda(), logger)
}

func fromConfiguration(fc *types.FunctionConfiguration) Function {
	f := Function{
		Name:         aws.ToString(fc.FunctionName),
		ARN:          aws.ToString(fc.FunctionArn),
		Runtime:      string(fc.Runtime),
		Handler:      aws.ToString(fc.Handler),
		Description:  aws.ToString(fc.Description),
		Role:         aws.ToString(fc.Role),
		State:        string(fc.State),
		LastModified: aws.ToString(fc.LastModified),
		CodeSize:     fc.CodeSize,
		MemorySize:   aws.ToInt32(fc.MemorySize),
		Timeout:      aws.ToInt32(fc.Timeout),
	}
	if fc.Environment != nil {
		f.Environment = fc.Environment.Variables
	}
	return f
}

// ListFunctions returns the first page of functions.
func (c *Client) ListFunctions(ctx context.Context) ([]Function, error) {
	out, err := c.api.ListFunctions(ctx, &lambdav2.ListFunctionsInput{})
	if err != nil {
		return nil, fmt.Errorf("list functions: %w", err)
	}
	fns := make([]Function, 0, len(out.Functions))
	for i := range out.Functions {
		fns = append(fns, fromConfiguration(&out.Functions[i]))
	}
	return fns, nil
}

// CreateFunction registers a zip-packaged function. The function is usually
// still Pending when this returns and may not be invokable yet.
func (c *Client) CreateFunction(ctx context.Context, in CreateFunctionInput) error {
	req := &lambdav2.CreateFunctionInput{
		FunctionName: aws.String(in.Name),
		Runtime:      types.Runtime(in.Runtime),
		Handler:      aws.String(in.Handler),
		Code:         &types.FunctionCode{ZipFile: in.Code},
		Role:         aws.String(in.Role),
	}
	if in.Description != "" {
		req.Description = aws.String(in.Description)
	}
	if in.Environment != nil {
		req.Environment = &types.Environment{Variables: in.Environment}
	}
	if _, err := c.api.CreateFunction(ctx, req); err != nil {
		return fmt.Errorf("create function %s: %w", in.Name, err)
	}
	return nil
}

func (c *Client) DeleteFunction(ctx context.Context, name string) error {
	if _, err := c.api.DeleteFunction(ctx, &lambdav2.DeleteFunctionInput{FunctionName: aws.String(name)}); err != nil {
		return fmt.Errorf("delete function %s: %w", name, err)
	}
	return nil
}

// LookupFunction returns nil, nil when the function does not exist and an
// error for any other failure.
func (c *Client) LookupFunction(ctx context.Context, name string) (*Function, error) {
	out, err := c.api.GetFunction(ctx, &lambdav2.GetFunctionInput{FunctionName: aws.String(name)})
	switch {
	case err == nil:
	case awsclient.IsNotFound(err):
		return nil, nil
	default:
		return nil, fmt.Errorf("get function %s: %w", name, err)
	}
	if out.Configuration == nil {
		return nil, nil
	}
	fn := fromConfiguration(out.Configuration)
	return &fn, nil
}

// GetFunction is LookupFunction with every failure read as absent. Failures
// other than not-found are logged.
func (c *Client) GetFunction(ctx context.Context, name string) *Function {
	fn, err := c.LookupFunction(ctx, name)
	if err != nil {
		c.logger.Error("function lookup failed, reporting absent", "function", name, "error", err)
		return nil
	}
	return fn
}

// Invoke calls the function synchronously. payload must already be JSON
// encoded; nil sends no payload.
func (c *Client) Invoke(ctx context.Context, name string, payload []byte) (InvokeResult, error) {
	in := &lambdav2.InvokeInput{FunctionName: aws.String(name)}
	if payload != nil {
		in.Payload = payload
	}
	out, err := c.api.Invoke(ctx, in)
	if err != nil {
		return InvokeResult{}, fmt.Errorf("invoke %s: %w", name, err)
	}
	return InvokeResult{
		StatusCode:    out.StatusCode,
		Payload:       string(out.Payload),
		FunctionError: aws.ToString(out.FunctionError),
	}, nil
}

func (c *Client) UpdateCode(ctx context.Context, name string, zip []byte) error {
	if _, err := c.api.UpdateFunctionCode(ctx, &lambdav2.UpdateFunctionCodeInput{FunctionName: aws.String(name), ZipFile: zip}); err != nil {
		return fmt.Errorf("update code of %s: %w", name, err)
	}
	return nil
}

func (c *Client) UpdateConfiguration(ctx context.Context, name string, u ConfigurationUpdate) error {
	in := &lambdav2.UpdateFunctionConfigurationInput{
		FunctionName: aws.String(name),
		Runtime:      types.Runtime(u.Runtime),
	}
	if u.Handler != "" {
		in.Handler = aws.String(u.Handler)
	}
	if u.Description != "" {
		in.Description = aws.String(u.Description)
	}
	if u.Environment != nil {
		in.Environment = &types.Environment{Variables: u.Environment}
	}
	if _, err := c.api.UpdateFunctionConfiguration(ctx, in); err != nil {
		return fmt.Errorf("update configuration of %s: %w", name, err)
	}
	return nil
}
