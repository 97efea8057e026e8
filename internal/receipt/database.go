package receipt

import (
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const (
	bucketName = "scansheet"
	slotKey    = "receipts"
)

// Slot is a single named value in durable key/value storage
type Slot interface {
	// Get returns the stored value, or nil if nothing was ever stored
	Get() ([]byte, error)

	// Put replaces the stored value
	Put(data []byte) error

	// Close releases the underlying storage
	Close() error
}

// BoltSlot implements the Slot interface using BoltDB
type BoltSlot struct {
	db *bbolt.DB
}

// NewBoltSlot opens (or creates) a BoltDB file holding the receipts slot
func NewBoltSlot(path string) (*BoltSlot, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating bucket: %w", err)
	}

	return &BoltSlot{db: db}, nil
}

// Get reads the slot. The returned slice is a copy; bolt values are only
// valid inside their transaction.
func (b *BoltSlot) Get() ([]byte, error) {
	var data []byte
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		if bucket == nil {
			return fmt.Errorf("bucket %s missing", bucketName)
		}
		if v := bucket.Get([]byte(slotKey)); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading slot: %w", err)
	}
	return data, nil
}

// Put overwrites the slot in a single transaction
func (b *BoltSlot) Put(data []byte) error {
	err := b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put([]byte(slotKey), data)
	})
	if err != nil {
		return fmt.Errorf("writing slot: %w", err)
	}
	return nil
}

// Close closes the database connection
func (b *BoltSlot) Close() error {
	return b.db.Close()
}
