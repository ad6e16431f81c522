package boltdb

import (
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/smartpocket/console/core/session"
)

var (
	bucketName = []byte("session")

	keyToken       = []byte("sp_token")
	keyLegacyToken = []byte("token") // pre-rebrand key, still honored on reads
	keyRefresh     = []byte("sp_refresh_token")
	keyIdentity    = []byte("sp_user")
)

// Storage persists the session triple in a bbolt file. Each Save/Clear runs
// in a single transaction, so the triple is never left partially populated.
type Storage struct {
	db *bolt.DB
}

var _ session.Storage = (*Storage)(nil) // interface compliance check

func Open(path string) (*Storage, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "opening session db")
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "creating session bucket")
	}
	return &Storage{db: db}, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) Load() (session.StoredState, error) {
	var state session.StoredState
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		token := b.Get(keyToken)
		if token == nil {
			token = b.Get(keyLegacyToken)
		}
		state.Token = string(token)
		state.RefreshToken = string(b.Get(keyRefresh))
		if raw := b.Get(keyIdentity); raw != nil {
			state.Identity = append([]byte(nil), raw...) // bolt buffers are tx-scoped
		}
		return nil
	})
	if err != nil {
		return session.StoredState{}, errors.Wrap(err, "reading session state")
	}
	return state, nil
}

func (s *Storage) Save(state session.StoredState) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		if err := b.Put(keyToken, []byte(state.Token)); err != nil {
			return err
		}
		if err := b.Delete(keyLegacyToken); err != nil {
			return err
		}
		if err := b.Put(keyRefresh, []byte(state.RefreshToken)); err != nil {
			return err
		}
		if len(state.Identity) == 0 {
			return b.Delete(keyIdentity)
		}
		return b.Put(keyIdentity, state.Identity)
	})
	return errors.Wrap(err, "writing session state")
}

func (s *Storage) Clear() error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		for _, key := range [][]byte{keyToken, keyLegacyToken, keyRefresh, keyIdentity} {
			if err := b.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	return errors.Wrap(err, "clearing session state")
}
