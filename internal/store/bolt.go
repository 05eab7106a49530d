package store

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"time"

	"github.com/boltdb/bolt"
	"github.com/google/uuid"

	"github.com/insightdelivered/statement-ledger/internal/models"
)

// BoltStore keeps one bucket per user. Keys are version 7 UUIDs, so cursor
// order is creation order.
type BoltStore struct {
	db  *bolt.DB
	now func() time.Time
}

// OpenBolt opens or creates the database file at path.
func OpenBolt(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return &BoltStore{db: db, now: time.Now}, nil
}

func (s *BoltStore) Save(ctx context.Context, c models.Conversion) (models.Conversion, error) {
	if err := ctx.Err(); err != nil {
		return c, err
	}
	if c.UserID == uuid.Nil {
		return c, ErrNoUser
	}
	if c.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return c, fmt.Errorf("generating id: %w", err)
		}
		c.ID = id
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now().UTC()
	}

	var val bytes.Buffer
	if err := gob.NewEncoder(&val).Encode(c); err != nil {
		return c, fmt.Errorf("encoding conversion: %w", err)
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(c.UserID[:])
		if err != nil {
			return err
		}
		return b.Put(c.ID[:], val.Bytes())
	})
	if err != nil {
		return c, fmt.Errorf("saving conversion: %w", err)
	}
	return c, nil
}

func (s *BoltStore) List(ctx context.Context, userID uuid.UUID) ([]models.Conversion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := []models.Conversion{}
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(userID[:])
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			conv, err := decode(v)
			if err != nil {
				return err
			}
			conv.CSV = ""
			out = append(out, conv)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing conversions: %w", err)
	}
	return out, nil
}

func (s *BoltStore) Get(ctx context.Context, userID, id uuid.UUID) (models.Conversion, error) {
	var conv models.Conversion
	if err := ctx.Err(); err != nil {
		return conv, err
	}
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(userID[:])
		if b == nil {
			return ErrNotFound
		}
		v := b.Get(id[:])
		if v == nil {
			return ErrNotFound
		}
		var err error
		conv, err = decode(v)
		return err
	})
	return conv, err
}

func (s *BoltStore) PurgeBefore(ctx context.Context, t time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	purged := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.ForEach(func(_ []byte, b *bolt.Bucket) error {
			var stale [][]byte
			err := b.ForEach(func(k, v []byte) error {
				conv, err := decode(v)
				if err != nil {
					return err
				}
				if conv.CreatedAt.Before(t) {
					stale = append(stale, append([]byte(nil), k...))
				}
				return nil
			})
			if err != nil {
				return err
			}
			for _, k := range stale {
				if err := b.Delete(k); err != nil {
					return err
				}
			}
			purged += len(stale)
			return nil
		})
	})
	if err != nil {
		return 0, fmt.Errorf("purging conversions: %w", err)
	}
	return purged, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func decode(v []byte) (models.Conversion, error) {
	var c models.Conversion
	if err := gob.NewDecoder(bytes.NewReader(v)).Decode(&c); err != nil {
		return c, fmt.Errorf("decoding conversion: %w", err)
	}
	return c, nil
}
