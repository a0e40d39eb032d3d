package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// BlobStore persists JSON documents (index blobs, metrics records, ping
// state) through the Redis client, compressing larger payloads.
type BlobStore struct {
	client    *Client
	algorithm string
	logger    *zap.Logger
}

func NewBlobStore(client *Client, algorithm string, logger *zap.Logger) *BlobStore {
	return &BlobStore{
		client:    client,
		algorithm: algorithm,
		logger:    logger,
	}
}

// SetBlob marshals value to JSON and stores it at key with no expiry.
// Persisted blobs live until explicitly invalidated.
func (s *BlobStore) SetBlob(ctx context.Context, key string, value interface{}) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal blob for %s: %w", key, err)
	}

	stored, err := compress(encoded, s.algorithm)
	if err != nil {
		return fmt.Errorf("failed to compress blob for %s: %w", key, err)
	}

	if err := s.client.Set(ctx, key, stored, 0); err != nil {
		return err
	}

	s.logger.Debug("Blob stored",
		zap.String("key", key),
		zap.Int("raw_bytes", len(encoded)),
		zap.Int("stored_bytes", len(stored)))
	return nil
}

// GetBlob unmarshals the blob at key into out. The second return value
// reports whether the key existed.
func (s *BlobStore) GetBlob(ctx context.Context, key string, out interface{}) (bool, error) {
	stored, err := s.client.GetBytes(ctx, key)
	if err != nil {
		return false, err
	}
	if stored == nil {
		return false, nil
	}

	encoded, err := decompress(stored)
	if err != nil {
		return false, fmt.Errorf("failed to decompress blob at %s: %w", key, err)
	}

	if err := json.Unmarshal(encoded, out); err != nil {
		return false, fmt.Errorf("failed to unmarshal blob at %s: %w", key, err)
	}
	return true, nil
}

// DeleteBlob removes the blobs at the given keys.
func (s *BlobStore) DeleteBlob(ctx context.Context, keys ...string) error {
	return s.client.Del(ctx, keys...)
}
