// Package store persists linked-account records and ephemeral connection
// records in DynamoDB. Every type falls back to an in-memory map when no
// DynamoDB client is configured, for tests and dev mode.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/tkoide/editbridge/internal/model"
)

// AccountStore holds one record per linked vendor account, keyed by
// (user_id, account_id).
type AccountStore struct {
	client    *dynamodb.Client
	tableName string

	// In-memory fallback
	mu   sync.RWMutex
	recs map[string]model.ExternalAccountRecord
}

// NewAccountStore creates an AccountStore. A nil client selects the
// in-memory fallback.
func NewAccountStore(client *dynamodb.Client, tableName string) *AccountStore {
	return &AccountStore{
		client:    client,
		tableName: tableName,
		recs:      make(map[string]model.ExternalAccountRecord),
	}
}

func accountKey(userID, accountID string) string {
	return userID + "#" + accountID
}

// Get returns the record, or (nil, nil) when no record exists.
func (s *AccountStore) Get(ctx context.Context, userID, accountID string) (*model.ExternalAccountRecord, error) {
	if s.client == nil {
		s.mu.RLock()
		rec, ok := s.recs[accountKey(userID, accountID)]
		s.mu.RUnlock()
		if !ok {
			return nil, nil
		}
		return &rec, nil
	}

	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"user_id":    &types.AttributeValueMemberS{Value: userID},
			"account_id": &types.AttributeValueMemberS{Value: accountID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get account record: %w", err)
	}
	if out.Item == nil {
		return nil, nil
	}

	var rec model.ExternalAccountRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal account record: %w", err)
	}
	return &rec, nil
}

// Put creates or replaces the record.
func (s *AccountStore) Put(ctx context.Context, rec *model.ExternalAccountRecord) error {
	if s.client == nil {
		s.mu.Lock()
		s.recs[accountKey(rec.UserID, rec.AccountID)] = *rec
		s.mu.Unlock()
		return nil
	}

	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal account record: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to save account record: %w", err)
	}
	return nil
}

// Delete removes the record. Deleting an absent record is not an error.
func (s *AccountStore) Delete(ctx context.Context, userID, accountID string) error {
	if s.client == nil {
		s.mu.Lock()
		delete(s.recs, accountKey(userID, accountID))
		s.mu.Unlock()
		return nil
	}

	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"user_id":    &types.AttributeValueMemberS{Value: userID},
			"account_id": &types.AttributeValueMemberS{Value: accountID},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete account record: %w", err)
	}
	return nil
}

// List returns all accounts linked by the user.
func (s *AccountStore) List(ctx context.Context, userID string) ([]model.ExternalAccountRecord, error) {
	if s.client == nil {
		s.mu.RLock()
		defer s.mu.RUnlock()
		var recs []model.ExternalAccountRecord
		for _, rec := range s.recs {
			if rec.UserID == userID {
				recs = append(recs, rec)
			}
		}
		return recs, nil
	}

	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("user_id = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query account records: %w", err)
	}

	var recs []model.ExternalAccountRecord
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &recs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal account records: %w", err)
	}
	return recs, nil
}
