// Package dynamodb is the table store adapter. Items cross this boundary as
// plain map[string]any records and are converted with attributevalue.
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/arencloud/stackdeck/internal/awsclient"
	"github.com/arencloud/stackdeck/internal/logging"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	ddb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DefaultScanLimit caps Scan when the caller passes no limit.
const DefaultScanLimit = 100

// API is the subset of the DynamoDB client used here.
type API interface {
	ListTables(ctx context.Context, in *ddb.ListTablesInput, optFns ...func(*ddb.Options)) (*ddb.ListTablesOutput, error)
	CreateTable(ctx context.Context, in *ddb.CreateTableInput, optFns ...func(*ddb.Options)) (*ddb.CreateTableOutput, error)
	DeleteTable(ctx context.Context, in *ddb.DeleteTableInput, optFns ...func(*ddb.Options)) (*ddb.DeleteTableOutput, error)
	DescribeTable(ctx context.Context, in *ddb.DescribeTableInput, optFns ...func(*ddb.Options)) (*ddb.DescribeTableOutput, error)
	Scan(ctx context.Context, in *ddb.ScanInput, optFns ...func(*ddb.Options)) (*ddb.ScanOutput, error)
	GetItem(ctx context.Context, in *ddb.GetItemInput, optFns ...func(*ddb.Options)) (*ddb.GetItemOutput, error)
	PutItem(ctx context.Context, in *ddb.PutItemInput, optFns ...func(*ddb.Options)) (*ddb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *ddb.DeleteItemInput, optFns ...func(*ddb.Options)) (*ddb.DeleteItemOutput, error)
	UpdateItem(ctx context.Context, in *ddb.UpdateItemInput, optFns ...func(*ddb.Options)) (*ddb.UpdateItemOutput, error)
}

var _ API = (*ddb.Client)(nil)

// Item is one table row in plain form.
type Item = map[string]any

// KeyElement is one part of a key schema; Type is HASH or RANGE.
type KeyElement struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// AttributeDefinition declares a key attribute; Type is S, N or B.
type AttributeDefinition struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type TableDescription struct {
	Name                 string                `json:"name"`
	Status               string                `json:"status"`
	CreationDateTime     *time.Time            `json:"creationDateTime,omitempty"`
	ItemCount            int64                 `json:"itemCount"`
	SizeBytes            int64                 `json:"sizeBytes"`
	KeySchema            []KeyElement          `json:"keySchema,omitempty"`
	AttributeDefinitions []AttributeDefinition `json:"attributeDefinitions,omitempty"`
}

var ErrNoUpdates = errors.New("update has no fields")

type Client struct {
	api    API
	logger logging.Logger
}

func New(api API, logger logging.Logger) *Client {
	return &Client{api: api, logger: logger.With("service", "dynamodb")}
}

func NewFromFactory(f *awsclient.Factory, logger logging.Logger) *Client {
	return New(f.DynamoDB(), logger)
}

// ListTables returns the table names from a single ListTables call.
func (c *Client) ListTables(ctx context.Context) ([]string, error) {
	out, err := c.api.ListTables(ctx, &ddb.ListTablesInput{})
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	if out.TableNames == nil {
		return []string{}, nil
	}
	return out.TableNames, nil
}

// CreateTable always provisions on-demand billing.
func (c *Client) CreateTable(ctx context.Context, name string, keySchema []KeyElement, attrs []AttributeDefinition) error {
	in := &ddb.CreateTableInput{
		TableName:   aws.String(name),
		BillingMode: types.BillingModePayPerRequest,
	}
	for _, k := range keySchema {
		in.KeySchema = append(in.KeySchema, types.KeySchemaElement{
			AttributeName: aws.String(k.Name),
			KeyType:       types.KeyType(strings.ToUpper(k.Type)),
		})
	}
	for _, a := range attrs {
		in.AttributeDefinitions = append(in.AttributeDefinitions, types.AttributeDefinition{
			AttributeName: aws.String(a.Name),
			AttributeType: types.ScalarAttributeType(strings.ToUpper(a.Type)),
		})
	}
	if _, err := c.api.CreateTable(ctx, in); err != nil {
		return fmt.Errorf("create table %s: %w", name, err)
	}
	return nil
}

func (c *Client) DeleteTable(ctx context.Context, name string) error {
	if _, err := c.api.DeleteTable(ctx, &ddb.DeleteTableInput{TableName: aws.String(name)}); err != nil {
		return fmt.Errorf("delete table %s: %w", name, err)
	}
	return nil
}

func (c *Client) DescribeTable(ctx context.Context, name string) (TableDescription, error) {
	out, err := c.api.DescribeTable(ctx, &ddb.DescribeTableInput{TableName: aws.String(name)})
	if err != nil {
		return TableDescription{}, fmt.Errorf("describe table %s: %w", name, err)
	}
	if out.Table == nil {
		return TableDescription{Name: name}, nil
	}
	t := out.Table
	d := TableDescription{
		Name:             aws.ToString(t.TableName),
		Status:           string(t.TableStatus),
		CreationDateTime: t.CreationDateTime,
		ItemCount:        aws.ToInt64(t.ItemCount),
		SizeBytes:        aws.ToInt64(t.TableSizeBytes),
	}
	for _, k := range t.KeySchema {
		d.KeySchema = append(d.KeySchema, KeyElement{Name: aws.ToString(k.AttributeName), Type: string(k.KeyType)})
	}
	for _, a := range t.AttributeDefinitions {
		d.AttributeDefinitions = append(d.AttributeDefinitions, AttributeDefinition{Name: aws.ToString(a.AttributeName), Type: string(a.AttributeType)})
	}
	return d, nil
}

// Scan reads one page of at most limit items (DefaultScanLimit when limit
// <= 0). Continuation tokens are not followed.
func (c *Client) Scan(ctx context.Context, name string, limit int32) ([]Item, error) {
	if limit <= 0 {
		limit = DefaultScanLimit
	}
	out, err := c.api.Scan(ctx, &ddb.ScanInput{TableName: aws.String(name), Limit: aws.Int32(limit)})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", name, err)
	}
	items := make([]Item, 0, len(out.Items))
	for _, raw := range out.Items {
		var it Item
		if err := attributevalue.UnmarshalMap(raw, &it); err != nil {
			return nil, fmt.Errorf("scan %s: unmarshal item: %w", name, err)
		}
		items = append(items, it)
	}
	return items, nil
}

// GetItem returns nil, nil when no item has the key.
func (c *Client) GetItem(ctx context.Context, name string, key Item) (Item, error) {
	k, err := attributevalue.MarshalMap(key)
	if err != nil {
		return nil, fmt.Errorf("get item %s: marshal key: %w", name, err)
	}
	out, err := c.api.GetItem(ctx, &ddb.GetItemInput{TableName: aws.String(name), Key: k})
	if err != nil {
		return nil, fmt.Errorf("get item %s: %w", name, err)
	}
	if out.Item == nil {
		return nil, nil
	}
	var it Item
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, fmt.Errorf("get item %s: unmarshal: %w", name, err)
	}
	return it, nil
}

func (c *Client) PutItem(ctx context.Context, name string, item Item) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("put item %s: marshal: %w", name, err)
	}
	if _, err := c.api.PutItem(ctx, &ddb.PutItemInput{TableName: aws.String(name), Item: av}); err != nil {
		return fmt.Errorf("put item %s: %w", name, err)
	}
	return nil
}

func (c *Client) DeleteItem(ctx context.Context, name string, key Item) error {
	k, err := attributevalue.MarshalMap(key)
	if err != nil {
		return fmt.Errorf("delete item %s: marshal key: %w", name, err)
	}
	if _, err := c.api.DeleteItem(ctx, &ddb.DeleteItemInput{TableName: aws.String(name), Key: k}); err != nil {
		return fmt.Errorf("delete item %s: %w", name, err)
	}
	return nil
}

// UpdateItem sets every field in updates on the item with key. Field names
// and values go through #attrN / :valN placeholders, numbered over the
// field names in sorted order.
func (c *Client) UpdateItem(ctx context.Context, name string, key, updates Item) error {
	in, err := buildUpdate(name, key, updates)
	if err != nil {
		return fmt.Errorf("update item %s: %w", name, err)
	}
	if _, err := c.api.UpdateItem(ctx, in); err != nil {
		return fmt.Errorf("update item %s: %w", name, err)
	}
	return nil
}

func buildUpdate(table string, key, updates Item) (*ddb.UpdateItemInput, error) {
	if len(updates) == 0 {
		return nil, ErrNoUpdates
	}
	k, err := attributevalue.MarshalMap(key)
	if err != nil {
		return nil, fmt.Errorf("marshal key: %w", err)
	}
	fields := make([]string, 0, len(updates))
	for f := range updates {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	names := make(map[string]string, len(fields))
	values := make(map[string]types.AttributeValue, len(fields))
	parts := make([]string, 0, len(fields))
	for i, f := range fields {
		n, v := "#attr"+strconv.Itoa(i), ":val"+strconv.Itoa(i)
		av, err := attributevalue.Marshal(updates[f])
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", f, err)
		}
		names[n] = f
		values[v] = av
		parts = append(parts, n+" = "+v)
	}
	return &ddb.UpdateItemInput{
		TableName:                 aws.String(table),
		Key:                       k,
		UpdateExpression:          aws.String("SET " + strings.Join(parts, ", ")),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	}, nil
}
