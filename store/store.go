package store

import (
	"context"
	"errors"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Client is the subset of the DynamoDB API used by this package.
// *dynamodb.Client satisfies it; tests provide an in-memory implementation.
type Client interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// Key identifies a record. Range is empty for tables with a simple
// partition key. All keys in this system are strings.
type Key struct {
	Hash  string
	Range string
}

// Table provides typed access to a single DynamoDB table.
type Table[T any] struct {
	client    Client
	name      string
	hashAttr  string
	rangeAttr string
}

// NewTable creates a Table for a simple-key table.
func NewTable[T any](client Client, name, hashAttr string) *Table[T] {
	return &Table[T]{client: client, name: name, hashAttr: hashAttr}
}

// NewCompositeTable creates a Table for a table with a partition and sort key.
func NewCompositeTable[T any](client Client, name, hashAttr, rangeAttr string) *Table[T] {
	return &Table[T]{client: client, name: name, hashAttr: hashAttr, rangeAttr: rangeAttr}
}

// Name returns the underlying table name.
func (t *Table[T]) Name() string { return t.name }

func (t *Table[T]) keyAttrs(key Key) map[string]types.AttributeValue {
	attrs := map[string]types.AttributeValue{
		t.hashAttr: &types.AttributeValueMemberS{Value: key.Hash},
	}
	if t.rangeAttr != "" {
		attrs[t.rangeAttr] = &types.AttributeValueMemberS{Value: key.Range}
	}
	return attrs
}

// Get retrieves the record at key, returning ErrNotFound if absent.
func (t *Table[T]) Get(ctx context.Context, key Key) (*T, error) {
	result, err := t.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(t.name),
		Key:       t.keyAttrs(key),
	})
	if err != nil {
		return nil, err
	}
	if result.Item == nil {
		return nil, ErrNotFound
	}

	var rec T
	if err := attributevalue.UnmarshalMap(result.Item, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Put unconditionally upserts the record.
func (t *Table[T]) Put(ctx context.Context, rec T) error {
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return err
	}
	_, err = t.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(t.name),
		Item:      item,
	})
	return err
}

// PutIfAbsent writes the record only if no record exists at its key.
// A lost race returns (false, nil); the stored record is untouched.
func (t *Table[T]) PutIfAbsent(ctx context.Context, rec T) (bool, error) {
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return false, err
	}
	_, err = t.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(t.name),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(#hk)"),
		ExpressionAttributeNames: map[string]string{
			"#hk": t.hashAttr,
		},
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// DeleteIfPresent removes the record at key only if one exists.
// Returns (false, nil) if the key was already absent.
func (t *Table[T]) DeleteIfPresent(ctx context.Context, key Key) (bool, error) {
	_, err := t.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(t.name),
		Key:                 t.keyAttrs(key),
		ConditionExpression: aws.String("attribute_exists(#hk)"),
		ExpressionAttributeNames: map[string]string{
			"#hk": t.hashAttr,
		},
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Delete unconditionally removes the record at key.
func (t *Table[T]) Delete(ctx context.Context, key Key) error {
	_, err := t.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(t.name),
		Key:       t.keyAttrs(key),
	})
	return err
}

// Add applies a server-side additive update to a numeric attribute.
// Positive deltas initialize a missing attribute to zero first. Negative
// deltas are floored: a decrement that would take the attribute below zero
// is dropped as a conditional no-op rather than stored.
func (t *Table[T]) Add(ctx context.Context, key Key, attr string, delta int64) error {
	input := &dynamodb.UpdateItemInput{
		TableName: aws.String(t.name),
		Key:       t.keyAttrs(key),
		ExpressionAttributeNames: map[string]string{
			"#ctr": attr,
		},
	}

	if delta >= 0 {
		input.UpdateExpression = aws.String("SET #ctr = if_not_exists(#ctr, :zero) + :delta")
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":zero":  &types.AttributeValueMemberN{Value: "0"},
			":delta": &types.AttributeValueMemberN{Value: strconv.FormatInt(delta, 10)},
		}
	} else {
		input.UpdateExpression = aws.String("SET #ctr = #ctr - :delta")
		input.ConditionExpression = aws.String("#ctr >= :delta")
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":delta": &types.AttributeValueMemberN{Value: strconv.FormatInt(-delta, 10)},
		}
	}

	_, err := t.client.UpdateItem(ctx, input)
	if err != nil {
		// Floor reached (or attribute missing): leave the counter alone.
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return nil
		}
		return err
	}
	return nil
}

// Query returns all records in the given partition of the primary key,
// ordered by sort key. Set descending for newest-first layouts.
func (t *Table[T]) Query(ctx context.Context, partition string, descending bool) ([]T, error) {
	return t.query(ctx, "", t.hashAttr, partition, descending)
}

// QueryIndex returns all records in the given partition of a secondary
// index, ordered by the index sort key.
func (t *Table[T]) QueryIndex(ctx context.Context, index, hashAttr, partition string, descending bool) ([]T, error) {
	return t.query(ctx, index, hashAttr, partition, descending)
}

func (t *Table[T]) query(ctx context.Context, index, hashAttr, partition string, descending bool) ([]T, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(t.name),
		KeyConditionExpression: aws.String("#hk = :hv"),
		ExpressionAttributeNames: map[string]string{
			"#hk": hashAttr,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":hv": &types.AttributeValueMemberS{Value: partition},
		},
		ScanIndexForward: aws.Bool(!descending),
	}
	if index != "" {
		input.IndexName = aws.String(index)
	}

	var records []T
	paginator := dynamodb.NewQueryPaginator(t.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, raw := range page.Items {
			var rec T
			if err := attributevalue.UnmarshalMap(raw, &rec); err != nil {
				return nil, err
			}
			records = append(records, rec)
		}
	}
	return records, nil
}

// CountIndex returns the number of records in the given partition of a
// secondary index without fetching them.
func (t *Table[T]) CountIndex(ctx context.Context, index, hashAttr, partition string) (int, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(t.name),
		IndexName:              aws.String(index),
		KeyConditionExpression: aws.String("#hk = :hv"),
		ExpressionAttributeNames: map[string]string{
			"#hk": hashAttr,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":hv": &types.AttributeValueMemberS{Value: partition},
		},
		Select: types.SelectCount,
	}

	count := 0
	paginator := dynamodb.NewQueryPaginator(t.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return 0, err
		}
		count += int(page.Count)
	}
	return count, nil
}

// ScanAll returns every record in the table.
func (t *Table[T]) ScanAll(ctx context.Context) ([]T, error) {
	var records []T
	paginator := dynamodb.NewScanPaginator(t.client, &dynamodb.ScanInput{
		TableName: aws.String(t.name),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, raw := range page.Items {
			var rec T
			if err := attributevalue.UnmarshalMap(raw, &rec); err != nil {
				return nil, err
			}
			records = append(records, rec)
		}
	}
	return records, nil
}
