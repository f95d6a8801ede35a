// Package storage persists the question bank behind the difficulty service.
// It uses BoltDB as the underlying storage engine to store questions, student
// answer submissions and the predictions served for question texts.
//
// Records are JSON encoded and keyed by a big-endian bucket sequence, so a
// cursor walk returns them in insertion order.
package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

// DBFileName is the database file created under the data path.
const DBFileName = "questions.db"

const (
	questionsBucket   = "questions"   // Bucket name for question records
	submissionsBucket = "submissions" // Bucket name for answer submissions
	predictionsBucket = "predictions" // Bucket name for served predictions
)

var (
	// ErrQuestionNotFound is returned when a record refers to an unknown question.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrSubmissionNotFound is returned when scoring an unknown submission.
	ErrSubmissionNotFound = errors.New("submission not found")
)

// Store provides persistent storage for the question bank using BoltDB.
type Store struct {
	db  *bbolt.DB // BoltDB database instance
	now func() time.Time
}

// New opens (or creates) the database under dataPath and makes sure every
// bucket exists.
func New(dataPath string) (*Store, error) {
	if err := os.MkdirAll(dataPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	dbPath := filepath.Join(dataPath, DBFileName)

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{questionsBucket, submissionsBucket, predictionsBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create %s bucket: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database connection gracefully.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	if s.db == nil {
		return ""
	}
	return s.db.Path()
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// insert assigns the next sequence id, lets assign stamp it onto the record and
// stores the JSON encoding.
func insert(b *bbolt.Bucket, assign func(id uint64) any) error {
	id, err := b.NextSequence()
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	data, err := json.Marshal(assign(id))
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	return b.Put(itob(id), data)
}

func get(b *bbolt.Bucket, id uint64, out any) (bool, error) {
	data := b.Get(itob(id))
	if data == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return true, fmt.Errorf("unmarshal record %d: %w", id, err)
	}
	return true, nil
}

// list decodes every record of a bucket in key order; malformed records are
// skipped.
func list[T any](s *Store, bucket string, keep func(*T) bool) ([]T, error) {
	out := make([]T, 0)

	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucket)).ForEach(func(_, v []byte) error {
			var rec T
			if err := json.Unmarshal(v, &rec); err != nil {
				return nil
			}
			if keep == nil || keep(&rec) {
				out = append(out, rec)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
