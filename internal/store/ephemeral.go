package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/tkoide/editbridge/internal/model"
)

// EphemeralCache holds short-lived connection records keyed by one-time
// authorization code. Expiry is enforced by the table's TTL attribute in
// DynamoDB and checked on read either way, since DynamoDB TTL deletion
// lags the expiry instant.
type EphemeralCache struct {
	client    *dynamodb.Client
	tableName string

	mu   sync.RWMutex
	recs map[string]model.EphemeralConnectionRecord
}

// NewEphemeralCache creates an EphemeralCache. A nil client selects the
// in-memory fallback.
func NewEphemeralCache(client *dynamodb.Client, tableName string) *EphemeralCache {
	return &EphemeralCache{
		client:    client,
		tableName: tableName,
		recs:      make(map[string]model.EphemeralConnectionRecord),
	}
}

// Get returns the record for the code, or (nil, nil) when absent or expired.
func (c *EphemeralCache) Get(ctx context.Context, code string) (*model.EphemeralConnectionRecord, error) {
	var rec model.EphemeralConnectionRecord

	if c.client == nil {
		c.mu.RLock()
		r, ok := c.recs[code]
		c.mu.RUnlock()
		if !ok {
			return nil, nil
		}
		rec = r
	} else {
		out, err := c.client.GetItem(ctx, &dynamodb.GetItemInput{
			TableName: aws.String(c.tableName),
			Key: map[string]types.AttributeValue{
				"code": &types.AttributeValueMemberS{Value: code},
			},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get ephemeral record: %w", err)
		}
		if out.Item == nil {
			return nil, nil
		}
		if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal ephemeral record: %w", err)
		}
	}

	if rec.TTL > 0 && rec.TTL < time.Now().Unix() {
		return nil, nil
	}
	return &rec, nil
}

// Put creates or supersedes the record for its code.
func (c *EphemeralCache) Put(ctx context.Context, rec *model.EphemeralConnectionRecord) error {
	if c.client == nil {
		c.mu.Lock()
		c.recs[rec.Code] = *rec
		c.mu.Unlock()
		return nil
	}

	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal ephemeral record: %w", err)
	}
	_, err = c.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to save ephemeral record: %w", err)
	}
	return nil
}
