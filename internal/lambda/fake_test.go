package lambda

import (
	"context"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	lambdav2 "github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/aws/smithy-go"
)

// fakeLambda echoes the invoke payload back.
type fakeLambda struct {
	fns        map[string]*types.FunctionConfiguration
	code       map[string][]byte
	lastInvoke *lambdav2.InvokeInput
	lastUpdate *lambdav2.UpdateFunctionConfigurationInput
	failGet    error
}

func newFakeLambda() *fakeLambda {
	return &fakeLambda{fns: map[string]*types.FunctionConfiguration{}, code: map[string][]byte{}}
}

func fnNotFound(name string) error {
	return &smithy.GenericAPIError{Code: "ResourceNotFoundException", Message: "Function not found: " + name}
}

func (f *fakeLambda) ListFunctions(context.Context, *lambdav2.ListFunctionsInput, ...func(*lambdav2.Options)) (*lambdav2.ListFunctionsOutput, error) {
	names := make([]string, 0, len(f.fns))
	for n := range f.fns {
		names = append(names, n)
	}
	sort.Strings(names)
	out := &lambdav2.ListFunctionsOutput{}
	for _, n := range names {
		out.Functions = append(out.Functions, *f.fns[n])
	}
	return out, nil
}

func (f *fakeLambda) CreateFunction(_ context.Context, in *lambdav2.CreateFunctionInput, _ ...func(*lambdav2.Options)) (*lambdav2.CreateFunctionOutput, error) {
	name := aws.ToString(in.FunctionName)
	if _, ok := f.fns[name]; ok {
		return nil, &smithy.GenericAPIError{Code: "ResourceConflictException"}
	}
	fc := &types.FunctionConfiguration{
		FunctionName: in.FunctionName,
		FunctionArn:  aws.String("arn:aws:lambda:us-east-1:000000000000:function:" + name),
		Runtime:      in.Runtime,
		Handler:      in.Handler,
		Role:         in.Role,
		Description:  in.Description,
		State:        types.StatePending,
		CodeSize:     int64(len(in.Code.ZipFile)),
	}
	if in.Environment != nil {
		fc.Environment = &types.EnvironmentResponse{Variables: in.Environment.Variables}
	}
	f.fns[name] = fc
	f.code[name] = in.Code.ZipFile
	return &lambdav2.CreateFunctionOutput{FunctionName: in.FunctionName}, nil
}

func (f *fakeLambda) DeleteFunction(_ context.Context, in *lambdav2.DeleteFunctionInput, _ ...func(*lambdav2.Options)) (*lambdav2.DeleteFunctionOutput, error) {
	name := aws.ToString(in.FunctionName)
	if _, ok := f.fns[name]; !ok {
		return nil, fnNotFound(name)
	}
	delete(f.fns, name)
	return &lambdav2.DeleteFunctionOutput{}, nil
}

func (f *fakeLambda) GetFunction(_ context.Context, in *lambdav2.GetFunctionInput, _ ...func(*lambdav2.Options)) (*lambdav2.GetFunctionOutput, error) {
	if f.failGet != nil {
		return nil, f.failGet
	}
	name := aws.ToString(in.FunctionName)
	fc, ok := f.fns[name]
	if !ok {
		return nil, fnNotFound(name)
	}
	return &lambdav2.GetFunctionOutput{Configuration: fc}, nil
}

func (f *fakeLambda) Invoke(_ context.Context, in *lambdav2.InvokeInput, _ ...func(*lambdav2.Options)) (*lambdav2.InvokeOutput, error) {
	f.lastInvoke = in
	name := aws.ToString(in.FunctionName)
	if _, ok := f.fns[name]; !ok {
		return nil, fnNotFound(name)
	}
	if string(in.Payload) == `{"fail":true}` {
		return &lambdav2.InvokeOutput{StatusCode: 200, FunctionError: aws.String("Unhandled"), Payload: []byte(`{"errorMessage":"boom"}`)}, nil
	}
	return &lambdav2.InvokeOutput{StatusCode: 200, Payload: in.Payload}, nil
}

func (f *fakeLambda) UpdateFunctionCode(_ context.Context, in *lambdav2.UpdateFunctionCodeInput, _ ...func(*lambdav2.Options)) (*lambdav2.UpdateFunctionCodeOutput, error) {
	name := aws.ToString(in.FunctionName)
	fc, ok := f.fns[name]
	if !ok {
		return nil, fnNotFound(name)
	}
	f.code[name] = in.ZipFile
	fc.CodeSize = int64(len(in.ZipFile))
	return &lambdav2.UpdateFunctionCodeOutput{}, nil
}

func (f *fakeLambda) UpdateFunctionConfiguration(_ context.Context, in *lambdav2.UpdateFunctionConfigurationInput, _ ...func(*lambdav2.Options)) (*lambdav2.UpdateFunctionConfigurationOutput, error) {
	f.lastUpdate = in
	name := aws.ToString(in.FunctionName)
	fc, ok := f.fns[name]
	if !ok {
		return nil, fnNotFound(name)
	}
	if in.Runtime != "" {
		fc.Runtime = in.Runtime
	}
	if in.Handler != nil {
		fc.Handler = in.Handler
	}
	if in.Description != nil {
		fc.Description = in.Description
	}
	if in.Environment != nil {
		fc.Environment = &types.EnvironmentResponse{Variables: in.Environment.Variables}
	}
	return &lambdav2.UpdateFunctionConfigurationOutput{}, nil
}
