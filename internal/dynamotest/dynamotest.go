// Package dynamotest provides an in-memory stand-in for the DynamoDB client
// subset the store package uses.
//
// It interprets exactly the expression shapes the store layer emits
// (attribute_not_exists / attribute_exists conditions, additive SET updates,
// equality key conditions) and rejects anything else, so a drift between the
// store layer and this fake fails loudly. Every API call holds a single
// mutex, which makes conditional writes atomic and lets tests exercise
// concurrency properties for real.
package dynamotest

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Index describes a secondary index on a table.
type Index struct {
	Name      string
	HashAttr  string
	RangeAttr string
}

// Table describes a table schema.
type Table struct {
	Name      string
	HashAttr  string
	RangeAttr string
	Indexes   []Index
}

type tableData struct {
	spec  Table
	items map[string]map[string]types.AttributeValue
}

// Client is an in-memory implementation of the store.Client interface.
type Client struct {
	mu     sync.Mutex
	tables map[string]*tableData
}

// New creates a Client serving the given table schemas.
func New(tables ...Table) *Client {
	c := &Client{tables: make(map[string]*tableData)}
	for _, t := range tables {
		c.tables[t.Name] = &tableData{
			spec:  t,
			items: make(map[string]map[string]types.AttributeValue),
		}
	}
	return c
}

// Len reports the number of stored items in a table.
func (c *Client) Len(table string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	td := c.tables[table]
	if td == nil {
		return 0
	}
	return len(td.items)
}

func (c *Client) table(name *string) (*tableData, error) {
	if name == nil {
		return nil, fmt.Errorf("dynamotest: missing table name")
	}
	td := c.tables[*name]
	if td == nil {
		return nil, fmt.Errorf("dynamotest: unknown table %q", *name)
	}
	return td, nil
}

func attrString(av types.AttributeValue) (string, bool) {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return v.Value, true
	case *types.AttributeValueMemberN:
		return v.Value, true
	}
	return "", false
}

func (td *tableData) itemKey(item map[string]types.AttributeValue) (string, error) {
	hash, ok := attrString(item[td.spec.HashAttr])
	if !ok {
		return "", fmt.Errorf("dynamotest: item missing hash attribute %q", td.spec.HashAttr)
	}
	if td.spec.RangeAttr == "" {
		return hash, nil
	}
	rng, ok := attrString(item[td.spec.RangeAttr])
	if !ok {
		return "", fmt.Errorf("dynamotest: item missing range attribute %q", td.spec.RangeAttr)
	}
	return hash + "\x1f" + rng, nil
}

// resolveName maps an expression attribute name placeholder to its attribute.
func resolveName(expr string, names map[string]string) (string, bool) {
	attr, ok := names[expr]
	return attr, ok
}

// checkCondition evaluates the supported condition expressions against the
// current item (nil when the key is absent).
func checkCondition(cond string, names map[string]string, values map[string]types.AttributeValue, current map[string]types.AttributeValue) error {
	switch {
	case cond == "attribute_not_exists(#hk)":
		attr, ok := resolveName("#hk", names)
		if !ok {
			return fmt.Errorf("dynamotest: unresolved name #hk")
		}
		if current != nil {
			if _, present := current[attr]; present {
				return &types.ConditionalCheckFailedException{}
			}
		}
		return nil

	case cond == "attribute_exists(#hk)":
		attr, ok := resolveName("#hk", names)
		if !ok {
			return fmt.Errorf("dynamotest: unresolved name #hk")
		}
		if current == nil {
			return &types.ConditionalCheckFailedException{}
		}
		if _, present := current[attr]; !present {
			return &types.ConditionalCheckFailedException{}
		}
		return nil

	case cond == "#ctr >= :delta":
		attr, ok := resolveName("#ctr", names)
		if !ok {
			return fmt.Errorf("dynamotest: unresolved name #ctr")
		}
		if current == nil {
			return &types.ConditionalCheckFailedException{}
		}
		cur, err := numberAttr(current, attr)
		if err != nil {
			return &types.ConditionalCheckFailedException{}
		}
		min, err := numberValue(values, ":delta")
		if err != nil {
			return err
		}
		if cur < min {
			return &types.ConditionalCheckFailedException{}
		}
		return nil
	}
	return fmt.Errorf("dynamotest: unsupported condition expression %q", cond)
}

func numberAttr(item map[string]types.AttributeValue, attr string) (int64, error) {
	n, ok := item[attr].(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("dynamotest: attribute %q is not a number", attr)
	}
	return strconv.ParseInt(n.Value, 10, 64)
}

func numberValue(values map[string]types.AttributeValue, name string) (int64, error) {
	n, ok := values[name].(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("dynamotest: value %q is not a number", name)
	}
	return strconv.ParseInt(n.Value, 10, 64)
}

func copyItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	if item == nil {
		return nil
	}
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}

// GetItem implements store.Client.
func (c *Client) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	td, err := c.table(params.TableName)
	if err != nil {
		return nil, err
	}
	key, err := td.itemKey(params.Key)
	if err != nil {
		return nil, err
	}
	return &dynamodb.GetItemOutput{Item: copyItem(td.items[key])}, nil
}

// PutItem implements store.Client.
func (c *Client) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	td, err := c.table(params.TableName)
	if err != nil {
		return nil, err
	}
	key, err := td.itemKey(params.Item)
	if err != nil {
		return nil, err
	}
	if params.ConditionExpression != nil {
		if err := checkCondition(*params.ConditionExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues, td.items[key]); err != nil {
			return nil, err
		}
	}
	td.items[key] = copyItem(params.Item)
	return &dynamodb.PutItemOutput{}, nil
}

// DeleteItem implements store.Client.
func (c *Client) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	td, err := c.table(params.TableName)
	if err != nil {
		return nil, err
	}
	key, err := td.itemKey(params.Key)
	if err != nil {
		return nil, err
	}
	if params.ConditionExpression != nil {
		if err := checkCondition(*params.ConditionExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues, td.items[key]); err != nil {
			return nil, err
		}
	}
	delete(td.items, key)
	return &dynamodb.DeleteItemOutput{}, nil
}

// UpdateItem implements store.Client. Only the additive counter expressions
// emitted by the store layer are supported.
func (c *Client) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	td, err := c.table(params.TableName)
	if err != nil {
		return nil, err
	}
	key, err := td.itemKey(params.Key)
	if err != nil {
		return nil, err
	}
	current := td.items[key]

	if params.ConditionExpression != nil {
		if err := checkCondition(*params.ConditionExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues, current); err != nil {
			return nil, err
		}
	}

	attr, ok := resolveName("#ctr", params.ExpressionAttributeNames)
	if !ok {
		return nil, fmt.Errorf("dynamotest: unresolved name #ctr")
	}

	var next int64
	switch expr := *params.UpdateExpression; expr {
	case "SET #ctr = if_not_exists(#ctr, :zero) + :delta":
		delta, err := numberValue(params.ExpressionAttributeValues, ":delta")
		if err != nil {
			return nil, err
		}
		var cur int64
		if current != nil {
			if _, present := current[attr]; present {
				cur, err = numberAttr(current, attr)
				if err != nil {
					return nil, err
				}
			}
		}
		next = cur + delta

	case "SET #ctr = #ctr - :delta":
		delta, err := numberValue(params.ExpressionAttributeValues, ":delta")
		if err != nil {
			return nil, err
		}
		cur, err := numberAttr(current, attr)
		if err != nil {
			return nil, err
		}
		next = cur - delta

	default:
		return nil, fmt.Errorf("dynamotest: unsupported update expression %q", expr)
	}

	// UpdateItem upserts: an absent key materializes an item holding just
	// the key attributes plus the updated one.
	if current == nil {
		current = copyItem(params.Key)
	}
	current[attr] = &types.AttributeValueMemberN{Value: strconv.FormatInt(next, 10)}
	td.items[key] = current
	return &dynamodb.UpdateItemOutput{}, nil
}

// Query implements store.Client for equality key conditions.
func (c *Client) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	td, err := c.table(params.TableName)
	if err != nil {
		return nil, err
	}
	if params.KeyConditionExpression == nil || *params.KeyConditionExpression != "#hk = :hv" {
		return nil, fmt.Errorf("dynamotest: unsupported key condition")
	}
	hashAttr, ok := resolveName("#hk", params.ExpressionAttributeNames)
	if !ok {
		return nil, fmt.Errorf("dynamotest: unresolved name #hk")
	}
	want, ok := attrString(params.ExpressionAttributeValues[":hv"])
	if !ok {
		return nil, fmt.Errorf("dynamotest: value :hv is not a string")
	}

	rangeAttr := td.spec.RangeAttr
	if params.IndexName != nil {
		found := false
		for _, idx := range td.spec.Indexes {
			if idx.Name == *params.IndexName {
				if idx.HashAttr != hashAttr {
					return nil, fmt.Errorf("dynamotest: index %q is not keyed by %q", idx.Name, hashAttr)
				}
				rangeAttr = idx.RangeAttr
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("dynamotest: unknown index %q on table %q", *params.IndexName, td.spec.Name)
		}
	} else if hashAttr != td.spec.HashAttr {
		return nil, fmt.Errorf("dynamotest: %q is not the table hash key", hashAttr)
	}

	var matched []map[string]types.AttributeValue
	for _, item := range td.items {
		got, present := attrString(item[hashAttr])
		if !present {
			continue // sparse index semantics
		}
		if got == want {
			matched = append(matched, copyItem(item))
		}
	}

	if rangeAttr != "" {
		sort.Slice(matched, func(i, j int) bool {
			a, _ := attrString(matched[i][rangeAttr])
			b, _ := attrString(matched[j][rangeAttr])
			return a < b
		})
	}
	forward := params.ScanIndexForward == nil || *params.ScanIndexForward
	if !forward {
		for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
			matched[i], matched[j] = matched[j], matched[i]
		}
	}

	out := &dynamodb.QueryOutput{Count: int32(len(matched))}
	if params.Select != types.SelectCount {
		out.Items = matched
	}
	return out, nil
}

// Scan implements store.Client.
func (c *Client) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	td, err := c.table(params.TableName)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]types.AttributeValue, 0, len(td.items))
	for _, item := range td.items {
		items = append(items, copyItem(item))
	}
	return &dynamodb.ScanOutput{Items: items, Count: int32(len(items))}, nil
}
