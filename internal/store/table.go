package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/pbhms/pbhms/internal/observability/metrics"
	"github.com/pbhms/pbhms/pkg/logging"
)

// DynamoAPI is the subset of the DynamoDB client used by Table.
type DynamoAPI interface {
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(context.Context, *dynamodb.UpdateItemInput, ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(context.Context, *dynamodb.QueryInput, ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(context.Context, *dynamodb.ScanInput, ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

var (
	// ErrItemNotFound indicates no item exists at the resolved key.
	ErrItemNotFound = errors.New("store: item not found")
	// ErrItemExists indicates a create-if-absent write hit an existing item.
	// Callers decide whether that is a conflict or a benign outcome.
	ErrItemExists = errors.New("store: item already exists")
)

// Table wraps one DynamoDB table addressed by the (PK, SK) composite key.
type Table struct {
	client  DynamoAPI
	name    string
	logger  *logging.Logger
	metrics *metrics.StoreMetrics
}

// NewTable builds a Table backed by the provided DynamoDB client.
func NewTable(client DynamoAPI, name string, logger *logging.Logger) *Table {
	if client == nil {
		panic("store: dynamodb client cannot be nil")
	}
	if name == "" {
		panic("store: table name cannot be empty")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Table{client: client, name: name, logger: logger}
}

// WithMetrics attaches operation metrics to the table.
func (t *Table) WithMetrics(m *metrics.StoreMetrics) *Table {
	t.metrics = m
	return t
}

func (t *Table) key(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}
}

func (t *Table) observe(op string, err error, start time.Time) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	t.metrics.ObserveOp(op, outcome, time.Since(start).Seconds())
}

// Get performs a point read and unmarshals the item into out.
// Returns ErrItemNotFound when no item exists at the key.
func (t *Table) Get(ctx context.Context, pk, sk string, out any) error {
	start := time.Now()
	var item map[string]types.AttributeValue
	err := withReadRetry(ctx, func(ctx context.Context) error {
		o, err := t.client.GetItem(ctx, &dynamodb.GetItemInput{
			TableName: aws.String(t.name),
			Key:       t.key(pk, sk),
		})
		if err != nil {
			return err
		}
		item = o.Item
		return nil
	})
	t.observe("get", err, start)
	if err != nil {
		return fmt.Errorf("store: get %s/%s: %w", pk, sk, err)
	}
	if item == nil {
		return ErrItemNotFound
	}
	if err := attributevalue.UnmarshalMap(item, out); err != nil {
		return fmt.Errorf("store: decode %s/%s: %w", pk, sk, err)
	}
	return nil
}

// Put writes the item unconditionally.
func (t *Table) Put(ctx context.Context, item any) error {
	start := time.Now()
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("store: marshal item: %w", err)
	}
	_, err = t.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(t.name),
		Item:      av,
	})
	t.observe("put", err, start)
	if err != nil {
		return fmt.Errorf("store: put item: %w", err)
	}
	return nil
}

// PutIfAbsent writes the item only when no item exists at its key.
// Returns ErrItemExists when the condition fails. The conditional failure is
// never retried: it is a definitive answer, not a transient error.
func (t *Table) PutIfAbsent(ctx context.Context, item any) error {
	start := time.Now()
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("store: marshal item: %w", err)
	}
	_, err = t.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(t.name),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	t.observe("put_if_absent", err, start)
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrItemExists
		}
		return fmt.Errorf("store: conditional put: %w", err)
	}
	return nil
}

// Update applies an update expression to an existing item and, when out is
// non-nil, unmarshals the post-update attributes into it.
// Returns ErrItemNotFound when the item does not exist.
func (t *Table) Update(ctx context.Context, pk, sk, expression string, names map[string]string, values map[string]types.AttributeValue, out any) error {
	start := time.Now()
	o, err := t.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(t.name),
		Key:                       t.key(pk, sk),
		UpdateExpression:          aws.String(expression),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ConditionExpression:       aws.String("attribute_exists(PK)"),
		ReturnValues:              types.ReturnValueAllNew,
	})
	t.observe("update", err, start)
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrItemNotFound
		}
		return fmt.Errorf("store: update %s/%s: %w", pk, sk, err)
	}
	if out != nil {
		if err := attributevalue.UnmarshalMap(o.Attributes, out); err != nil {
			return fmt.Errorf("store: decode updated %s/%s: %w", pk, sk, err)
		}
	}
	return nil
}

// QueryPrefix range-queries one partition for items whose sort key starts
// with the given prefix and unmarshals them into out (a pointer to a slice).
func (t *Table) QueryPrefix(ctx context.Context, pk, skPrefix string, out any) error {
	start := time.Now()
	var items []map[string]types.AttributeValue
	err := withReadRetry(ctx, func(ctx context.Context) error {
		items = items[:0]
		var lastKey map[string]types.AttributeValue
		for {
			o, err := t.client.Query(ctx, &dynamodb.QueryInput{
				TableName:              aws.String(t.name),
				KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":pk": &types.AttributeValueMemberS{Value: pk},
					":sk": &types.AttributeValueMemberS{Value: skPrefix},
				},
				ExclusiveStartKey: lastKey,
			})
			if err != nil {
				return err
			}
			items = append(items, o.Items...)
			if o.LastEvaluatedKey == nil {
				return nil
			}
			lastKey = o.LastEvaluatedKey
		}
	})
	t.observe("query_prefix", err, start)
	if err != nil {
		return fmt.Errorf("store: query %s prefix %s: %w", pk, skPrefix, err)
	}
	if err := attributevalue.UnmarshalListOfMaps(items, out); err != nil {
		return fmt.Errorf("store: decode query results: %w", err)
	}
	return nil
}

// QueryIndex queries a secondary index by its partition key, optionally
// narrowed to an exact sort-key value when sortAttr is non-empty.
func (t *Table) QueryIndex(ctx context.Context, index, keyAttr, keyValue, sortAttr, sortValue string, out any) error {
	start := time.Now()
	condition := "#pk = :pk"
	names := map[string]string{"#pk": keyAttr}
	values := map[string]types.AttributeValue{
		":pk": &types.AttributeValueMemberS{Value: keyValue},
	}
	if sortAttr != "" {
		condition += " AND #sk = :sk"
		names["#sk"] = sortAttr
		values[":sk"] = &types.AttributeValueMemberS{Value: sortValue}
	}

	var items []map[string]types.AttributeValue
	err := withReadRetry(ctx, func(ctx context.Context) error {
		items = items[:0]
		var lastKey map[string]types.AttributeValue
		for {
			o, err := t.client.Query(ctx, &dynamodb.QueryInput{
				TableName:                 aws.String(t.name),
				IndexName:                 aws.String(index),
				KeyConditionExpression:    aws.String(condition),
				ExpressionAttributeNames:  names,
				ExpressionAttributeValues: values,
				ExclusiveStartKey:         lastKey,
			})
			if err != nil {
				return err
			}
			items = append(items, o.Items...)
			if o.LastEvaluatedKey == nil {
				return nil
			}
			lastKey = o.LastEvaluatedKey
		}
	})
	t.observe("query_index", err, start)
	if err != nil {
		return fmt.Errorf("store: query index %s: %w", index, err)
	}
	if err := attributevalue.UnmarshalListOfMaps(items, out); err != nil {
		return fmt.Errorf("store: decode index results: %w", err)
	}
	return nil
}

// ScanFilter scans the full table keeping items whose attribute equals the
// given value. Reads every item; acceptable only at small table sizes, which
// is why callers reach it through an interface they can swap out.
func (t *Table) ScanFilter(ctx context.Context, attr, value string, out any) error {
	start := time.Now()
	var items []map[string]types.AttributeValue
	err := withReadRetry(ctx, func(ctx context.Context) error {
		items = items[:0]
		var lastKey map[string]types.AttributeValue
		for {
			o, err := t.client.Scan(ctx, &dynamodb.ScanInput{
				TableName:        aws.String(t.name),
				FilterExpression: aws.String("#a = :v"),
				ExpressionAttributeNames: map[string]string{
					"#a": attr,
				},
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":v": &types.AttributeValueMemberS{Value: value},
				},
				ExclusiveStartKey: lastKey,
			})
			if err != nil {
				return err
			}
			items = append(items, o.Items...)
			if o.LastEvaluatedKey == nil {
				return nil
			}
			lastKey = o.LastEvaluatedKey
		}
	})
	t.observe("scan", err, start)
	if err != nil {
		return fmt.Errorf("store: scan %s=%s: %w", attr, value, err)
	}
	if err := attributevalue.UnmarshalListOfMaps(items, out); err != nil {
		return fmt.Errorf("store: decode scan results: %w", err)
	}
	return nil
}
