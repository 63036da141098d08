package dynamo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/hupe1980/mxmc/catalog"
)

// Attribute names.
const (
	attrStudy      = "study"
	attrTargetCost = "target_cost"
	attrMethod     = "method"
	attrCost       = "cost"
	attrVariance   = "variance"
	attrBlob       = "blob"
)

// Client is the subset of the DynamoDB API used by Catalog.
type Client interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// Catalog stores sweep entries in one DynamoDB table.
type Catalog struct {
	client    Client
	tableName string
}

var _ catalog.Catalog = (*Catalog)(nil)

// New creates a catalog using the default AWS configuration.
func New(ctx context.Context, tableName string, optFns ...func(*config.LoadOptions) error) (*Catalog, error) {
	cfg, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewCatalog(dynamodb.NewFromConfig(cfg), tableName), nil
}

// NewCatalog creates a catalog on an existing client.
func NewCatalog(client Client, tableName string) *Catalog {
	return &Catalog{client: client, tableName: tableName}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func key(study string, targetCost float64) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrStudy:      &types.AttributeValueMemberS{Value: study},
		attrTargetCost: &types.AttributeValueMemberN{Value: formatNumber(targetCost)},
	}
}

// Put writes the entry. DynamoDB numbers cannot hold infinities, so the
// variance attribute is omitted for infeasible results.
func (c *Catalog) Put(ctx context.Context, e catalog.Entry) error {
	if math.IsNaN(e.TargetCost) || math.IsInf(e.TargetCost, 0) {
		return fmt.Errorf("invalid target cost %v", e.TargetCost)
	}
	item := key(e.Study, e.TargetCost)
	item[attrMethod] = &types.AttributeValueMemberS{Value: e.Method}
	item[attrCost] = &types.AttributeValueMemberN{Value: formatNumber(e.Cost)}
	if e.Valid() {
		item[attrVariance] = &types.AttributeValueMemberN{Value: formatNumber(e.Variance)}
	}
	if e.Blob != "" {
		item[attrBlob] = &types.AttributeValueMemberS{Value: e.Blob}
	}

	if _, err := c.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("failed to put catalog entry: %w", err)
	}
	return nil
}

func (c *Catalog) Get(ctx context.Context, study string, targetCost float64) (catalog.Entry, error) {
	resp, err := c.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(c.tableName),
		Key:            key(study, targetCost),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return catalog.Entry{}, fmt.Errorf("failed to get catalog entry: %w", err)
	}
	if len(resp.Item) == 0 {
		return catalog.Entry{}, catalog.ErrNotFound
	}
	return decodeEntry(resp.Item)
}

// List pages through the study partition in sort key order.
func (c *Catalog) List(ctx context.Context, study string) ([]catalog.Entry, error) {
	var (
		out   []catalog.Entry
		start map[string]types.AttributeValue
	)
	for {
		resp, err := c.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(c.tableName),
			KeyConditionExpression: aws.String("study = :study"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":study": &types.AttributeValueMemberS{Value: study},
			},
			ScanIndexForward:  aws.Bool(true),
			ExclusiveStartKey: start,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to query catalog: %w", err)
		}
		for _, item := range resp.Items {
			e, err := decodeEntry(item)
			if err != nil {
				return nil, err
			}
			out = append(out, e)
		}
		if len(resp.LastEvaluatedKey) == 0 {
			break
		}
		start = resp.LastEvaluatedKey
	}
	catalog.SortByTargetCost(out)
	return out, nil
}

func (c *Catalog) Delete(ctx context.Context, study string, targetCost float64) error {
	if _, err := c.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(c.tableName),
		Key:       key(study, targetCost),
	}); err != nil {
		return fmt.Errorf("failed to delete catalog entry: %w", err)
	}
	return nil
}

func decodeEntry(item map[string]types.AttributeValue) (catalog.Entry, error) {
	var e catalog.Entry
	var err error

	study, ok := item[attrStudy].(*types.AttributeValueMemberS)
	if !ok {
		return e, errors.New("invalid study attribute in DynamoDB")
	}
	e.Study = study.Value

	if e.TargetCost, err = number(item, attrTargetCost); err != nil {
		return e, err
	}
	if e.Cost, err = number(item, attrCost); err != nil {
		return e, err
	}
	if _, ok := item[attrVariance]; ok {
		if e.Variance, err = number(item, attrVariance); err != nil {
			return e, err
		}
	} else {
		e.Variance = math.Inf(1)
	}
	if m, ok := item[attrMethod].(*types.AttributeValueMemberS); ok {
		e.Method = m.Value
	}
	if b, ok := item[attrBlob].(*types.AttributeValueMemberS); ok {
		e.Blob = b.Value
	}
	return e, nil
}

func number(item map[string]types.AttributeValue, name string) (float64, error) {
	attr, ok := item[name].(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("invalid %s attribute in DynamoDB", name)
	}
	v, err := strconv.ParseFloat(attr.Value, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return v, nil
}
