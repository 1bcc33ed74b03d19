// Package versions keeps the server-side "last recorded version" per file,
// updated on every successful write and consulted (never owned) by conflict
// classification. It also remembers the last name a file was seen under,
// the fallback used when naming a fork of a vanished original.
package versions

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

// Tracker stores FileVersion rows in DynamoDB, with the usual in-memory
// fallback when no client is configured.
//
// Reads are not transactional with respect to concurrent writers; that is
// the accepted optimistic-concurrency gap, bounded to one step of
// divergence by re-classification of the next write.
type Tracker struct {
	client    *dynamodb.Client
	tableName string

	mu   sync.RWMutex
	rows map[string]model.FileVersion
}

// NewTracker creates a Tracker. A nil client selects the in-memory fallback.
func NewTracker(client *dynamodb.Client, tableName string) *Tracker {
	return &Tracker{
		client:    client,
		tableName: tableName,
		rows:      make(map[string]model.FileVersion),
	}
}

func rowKey(storageKind, fileID string) string {
	return storageKind + "#" + fileID
}

// Get returns the bookkeeping row, or (nil, nil) when the file has never
// been written through this service.
func (t *Tracker) Get(ctx context.Context, storageKind, fileID string) (*model.FileVersion, error) {
	key := rowKey(storageKind, fileID)

	if t.client == nil {
		t.mu.RLock()
		row, ok := t.rows[key]
		t.mu.RUnlock()
		if !ok {
			return nil, nil
		}
		return &row, nil
	}

	out, err := t.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(t.tableName),
		Key: map[string]types.AttributeValue{
			"key": &types.AttributeValueMemberS{Value: key},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get version row: %w", err)
	}
	if out.Item == nil {
		return nil, nil
	}

	var row model.FileVersion
	if err := attributevalue.UnmarshalMap(out.Item, &row); err != nil {
		return nil, fmt.Errorf("failed to unmarshal version row: %w", err)
	}
	return &row, nil
}

// Record repoints the bookkeeping after a successful write.
func (t *Tracker) Record(ctx context.Context, storageKind, fileID, versionID, name string) error {
	row := model.FileVersion{
		Key:           rowKey(storageKind, fileID),
		VersionID:     versionID,
		LastKnownName: name,
		UpdatedAt:     time.Now(),
	}

	if t.client == nil {
		t.mu.Lock()
		t.rows[row.Key] = row
		t.mu.Unlock()
		return nil
	}

	item, err := attributevalue.MarshalMap(row)
	if err != nil {
		return fmt.Errorf("failed to marshal version row: %w", err)
	}
	_, err = t.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(t.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to save version row: %w", err)
	}
	return nil
}
