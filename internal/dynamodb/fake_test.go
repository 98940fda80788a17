package dynamodb

import (
	"context"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	ddb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
)

type fakeTable struct {
	hashKey string
	created *ddb.CreateTableInput
	items   map[string]map[string]types.AttributeValue
}

// fakeDynamo supports hash-key-only tables with string or number keys.
type fakeDynamo struct {
	tables   map[string]*fakeTable
	lastScan *ddb.ScanInput
	updates  []*ddb.UpdateItemInput
	failWith error
}

func newFakeDynamo() *fakeDynamo { return &fakeDynamo{tables: map[string]*fakeTable{}} }

func notFound() error {
	return &smithy.GenericAPIError{Code: "ResourceNotFoundException", Message: "Cannot do operations on a non-existent table"}
}

func keyString(av types.AttributeValue) string {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return "S:" + v.Value
	case *types.AttributeValueMemberN:
		return "N:" + v.Value
	}
	return ""
}

func (f *fakeDynamo) table(name *string) (*fakeTable, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	t, ok := f.tables[aws.ToString(name)]
	if !ok {
		return nil, notFound()
	}
	return t, nil
}

func (f *fakeDynamo) ListTables(context.Context, *ddb.ListTablesInput, ...func(*ddb.Options)) (*ddb.ListTablesOutput, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	out := &ddb.ListTablesOutput{}
	for n := range f.tables {
		out.TableNames = append(out.TableNames, n)
	}
	sort.Strings(out.TableNames)
	return out, nil
}

func (f *fakeDynamo) CreateTable(_ context.Context, in *ddb.CreateTableInput, _ ...func(*ddb.Options)) (*ddb.CreateTableOutput, error) {
	name := aws.ToString(in.TableName)
	if _, ok := f.tables[name]; ok {
		return nil, &smithy.GenericAPIError{Code: "ResourceInUseException"}
	}
	t := &fakeTable{created: in, items: map[string]map[string]types.AttributeValue{}}
	for _, k := range in.KeySchema {
		if k.KeyType == types.KeyTypeHash {
			t.hashKey = aws.ToString(k.AttributeName)
		}
	}
	f.tables[name] = t
	return &ddb.CreateTableOutput{}, nil
}

func (f *fakeDynamo) DeleteTable(_ context.Context, in *ddb.DeleteTableInput, _ ...func(*ddb.Options)) (*ddb.DeleteTableOutput, error) {
	if _, err := f.table(in.TableName); err != nil {
		return nil, err
	}
	delete(f.tables, aws.ToString(in.TableName))
	return &ddb.DeleteTableOutput{}, nil
}

func (f *fakeDynamo) DescribeTable(_ context.Context, in *ddb.DescribeTableInput, _ ...func(*ddb.Options)) (*ddb.DescribeTableOutput, error) {
	t, err := f.table(in.TableName)
	if err != nil {
		return nil, err
	}
	return &ddb.DescribeTableOutput{Table: &types.TableDescription{
		TableName:            in.TableName,
		TableStatus:          types.TableStatusActive,
		ItemCount:            aws.Int64(int64(len(t.items))),
		TableSizeBytes:       aws.Int64(0),
		KeySchema:            t.created.KeySchema,
		AttributeDefinitions: t.created.AttributeDefinitions,
	}}, nil
}

func (f *fakeDynamo) Scan(_ context.Context, in *ddb.ScanInput, _ ...func(*ddb.Options)) (*ddb.ScanOutput, error) {
	f.lastScan = in
	t, err := f.table(in.TableName)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(t.items))
	for k := range t.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := &ddb.ScanOutput{}
	for _, k := range keys {
		if in.Limit != nil && int32(len(out.Items)) >= *in.Limit {
			out.LastEvaluatedKey = map[string]types.AttributeValue{t.hashKey: t.items[k][t.hashKey]}
			break
		}
		out.Items = append(out.Items, t.items[k])
	}
	return out, nil
}

func (f *fakeDynamo) GetItem(_ context.Context, in *ddb.GetItemInput, _ ...func(*ddb.Options)) (*ddb.GetItemOutput, error) {
	t, err := f.table(in.TableName)
	if err != nil {
		return nil, err
	}
	return &ddb.GetItemOutput{Item: t.items[keyString(in.Key[t.hashKey])]}, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *ddb.PutItemInput, _ ...func(*ddb.Options)) (*ddb.PutItemOutput, error) {
	t, err := f.table(in.TableName)
	if err != nil {
		return nil, err
	}
	t.items[keyString(in.Item[t.hashKey])] = in.Item
	return &ddb.PutItemOutput{}, nil
}

func (f *fakeDynamo) DeleteItem(_ context.Context, in *ddb.DeleteItemInput, _ ...func(*ddb.Options)) (*ddb.DeleteItemOutput, error) {
	t, err := f.table(in.TableName)
	if err != nil {
		return nil, err
	}
	delete(t.items, keyString(in.Key[t.hashKey]))
	return &ddb.DeleteItemOutput{}, nil
}

// UpdateItem only records the request and applies plain SETs from the
// placeholder maps.
func (f *fakeDynamo) UpdateItem(_ context.Context, in *ddb.UpdateItemInput, _ ...func(*ddb.Options)) (*ddb.UpdateItemOutput, error) {
	f.updates = append(f.updates, in)
	t, err := f.table(in.TableName)
	if err != nil {
		return nil, err
	}
	k := keyString(in.Key[t.hashKey])
	item, ok := t.items[k]
	if !ok {
		item = map[string]types.AttributeValue{}
		for n, v := range in.Key {
			item[n] = v
		}
	}
	for ph, field := range in.ExpressionAttributeNames {
		item[field] = in.ExpressionAttributeValues[":val"+ph[len("#attr"):]]
	}
	t.items[k] = item
	return &ddb.UpdateItemOutput{}, nil
}
