package redis

import (
	// Go Internal Packages
	"context"
	"encoding/json"
	"errors"
	"time"

	// Local Packages
	models "pinkpay/internal/models"

	// External Packages
	"github.com/redis/go-redis/v9"
)

const transactionKeyPrefix = "transaction:"

// DefaultCacheTTL applies when no TTL is configured.
const DefaultCacheTTL = 10 * time.Minute

// TransactionCache stores settled transactions as JSON under
// "transaction:{txn_id}".
type TransactionCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewTransactionCache(client *redis.Client, ttl time.Duration) *TransactionCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &TransactionCache{client: client, ttl: ttl}
}

func transactionKey(txnID string) string {
	return transactionKeyPrefix + txnID
}

func (c *TransactionCache) GetTransaction(ctx context.Context, txnID string) (*models.Transaction, bool, error) {
	val, err := c.client.Get(ctx, transactionKey(txnID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var txn models.Transaction
	if err := json.Unmarshal(val, &txn); err != nil {
		return nil, false, err
	}
	return &txn, true, nil
}

func (c *TransactionCache) SetTransaction(ctx context.Context, txn *models.Transaction) error {
	data, err := json.Marshal(txn)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, transactionKey(txn.TxnID), data, c.ttl).Err()
}

func (c *TransactionCache) DeleteTransaction(ctx context.Context, txnID string) error {
	return c.client.Del(ctx, transactionKey(txnID)).Err()
}
