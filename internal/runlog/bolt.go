package runlog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

var bucketRunLog = []byte("runlog")

// BoltStore keeps run-log lines in a bbolt bucket under sequence-prefixed
// keys so a cursor walk reads them back in append order.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) a bbolt-backed store at path.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open run-log database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketRunLog)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create run-log bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Append implements Store.
func (s *BoltStore) Append(ctx context.Context, lines []string) error {
	if len(lines) == 0 {
		return nil
	}
	batchID := uuid.NewString()
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketRunLog)
		for _, line := range lines {
			seq, err := bucket.NextSequence()
			if err != nil {
				return err
			}
			if err := bucket.Put(makeKey(seq, batchID), []byte(line)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Lines returns every stored line in chronological order.
func (s *BoltStore) Lines(ctx context.Context) ([]string, error) {
	var lines []string
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketRunLog).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			lines = append(lines, string(v))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// makeKey builds a sortable key from the bucket sequence; the batch id
// suffix ties lines back to the run that produced them.
func makeKey(seq uint64, batchID string) []byte {
	return []byte(fmt.Sprintf("%020d_%s", seq, batchID))
}
