package main

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/boltdb/bolt"
	"go.uber.org/zap"
)

var _ ArchiveStorage = (*boltArchiveStorage)(nil) // ensure boltArchiveStorage implements ArchiveStorage.

type boltArchiveStorage struct {
	logger *zap.Logger
	client *bolt.DB
	config *BoltDBConfig
}

// GetBoltDBClient setup the database and the bucket then provides a ready to use client.
func GetBoltDBClient(config *BoltDBConfig) (*bolt.DB, error) {
	db, err := bolt.Open(config.FilePath, 0o600, &bolt.Options{Timeout: config.Timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open the database, %v", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, errB := tx.CreateBucketIfNotExists([]byte(config.BucketName)); errB != nil {
			return fmt.Errorf("failed to create %s bucket: %v", config.BucketName, errB)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set up bucket: %v", err)
	}
	return db, nil
}

// NewBoltArchiveStorage provides an instance of bolt-based archive storage.
func NewBoltArchiveStorage(logger *zap.Logger, config *BoltDBConfig, client *bolt.DB) *boltArchiveStorage {
	return &boltArchiveStorage{
		logger: logger,
		client: client,
		config: config,
	}
}

// Close shuts down the bolt-based archive storage.
func (bs *boltArchiveStorage) Close() error {
	return bs.client.Close()
}

// archiveKey encodes a request id in big endian so that the
// bucket cursor walks archived requests in insertion order.
func archiveKey(id int64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(id))
	return key
}

// Add stores a submitted request. Archiving the same request twice keeps the latest copy.
func (bs *boltArchiveStorage) Add(_ context.Context, view RequestView) error {
	if view.RequestID <= 0 {
		return errors.New("archive: request id must be positive")
	}
	data, err := json.Marshal(view)
	if err != nil {
		return err
	}
	return bs.client.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bs.config.BucketName)).Put(archiveKey(view.RequestID), data)
	})
}

// GetAll retrieves all archived requests, most recent first.
func (bs *boltArchiveStorage) GetAll(_ context.Context) ([]RequestView, error) {
	tx, err := bs.client.Begin(false)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	c := tx.Bucket([]byte(bs.config.BucketName)).Cursor()

	views := []RequestView{}
	for k, v := c.Last(); k != nil; k, v = c.Prev() {
		var view RequestView
		if err = json.Unmarshal(v, &view); err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}
