// Package store provides a named, revisioned registry of fitted preprocessing
// states. It uses BoltDB as the storage engine; every revision is kept in the
// same self-describing JSON document that preprocessing.Save writes.
package store

import (
	"encoding/binary"
	"time"

	"go.etcd.io/bbolt"

	"github.com/YuminosukeSato/tabprep/pkg/errors"
	"github.com/YuminosukeSato/tabprep/pkg/log"
	"github.com/YuminosukeSato/tabprep/preprocessing"
)

const (
	statesBucket    = "states"    // top-level bucket, one sub-bucket per state name
	sequencesBucket = "sequences" // last revision issued per name; survives Delete
)

// ErrNotFound is returned when a name or revision does not exist.
var ErrNotFound = errors.New("store: not found")

// Registry stores fitted states by name. Each Put appends a new revision;
// revisions of a name are numbered from 1 and never reused, even after Delete.
type Registry struct {
	db     *bbolt.DB
	logger log.Logger
}

// Open opens (or creates) the registry file at path.
func Open(path string) (*Registry, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open registry %s", path)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{statesBucket, sequencesBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create registry buckets")
	}

	return &Registry{
		db:     db,
		logger: log.GetLoggerWithName("Registry").With(log.PathKey, path),
	}, nil
}

// Close closes the underlying database.
func (r *Registry) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Put stores state as the next revision of name and returns that revision.
func (r *Registry) Put(name string, state *preprocessing.FittedState) (uint64, error) {
	if name == "" {
		return 0, errors.NewValidationError("name", "must not be empty", name)
	}
	data, err := preprocessing.Marshal(state)
	if err != nil {
		return 0, err
	}

	var rev uint64
	err = r.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.Bucket([]byte(statesBucket)).CreateBucketIfNotExists([]byte(name))
		if err != nil {
			return err
		}
		seq := tx.Bucket([]byte(sequencesBucket))
		if last := seq.Get([]byte(name)); last != nil {
			rev = binary.BigEndian.Uint64(last)
		}
		rev++
		if err := seq.Put([]byte(name), revKey(rev)); err != nil {
			return err
		}
		return b.Put(revKey(rev), data)
	})
	if err != nil {
		return 0, errors.Wrapf(err, "put state %q", name)
	}

	r.logger.Info("state stored", "state.name", name, "state.revision", rev, log.FeaturesKey, state.Width())
	return rev, nil
}

// Get returns the latest revision of name.
func (r *Registry) Get(name string) (*preprocessing.FittedState, uint64, error) {
	var (
		data []byte
		rev  uint64
	)
	err := r.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(statesBucket)).Bucket([]byte(name))
		if b == nil {
			return errors.Wrapf(ErrNotFound, "state %q", name)
		}
		k, v := b.Cursor().Last()
		if k == nil {
			return errors.Wrapf(ErrNotFound, "state %q has no revisions", name)
		}
		rev = binary.BigEndian.Uint64(k)
		data = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	state, err := preprocessing.Unmarshal(data)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "state %q revision %d", name, rev)
	}
	return state, rev, nil
}

// GetRevision returns a specific revision of name.
func (r *Registry) GetRevision(name string, rev uint64) (*preprocessing.FittedState, error) {
	var data []byte
	err := r.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(statesBucket)).Bucket([]byte(name))
		if b == nil {
			return errors.Wrapf(ErrNotFound, "state %q", name)
		}
		v := b.Get(revKey(rev))
		if v == nil {
			return errors.Wrapf(ErrNotFound, "state %q revision %d", name, rev)
		}
		data = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	state, err := preprocessing.Unmarshal(data)
	if err != nil {
		return nil, errors.Wrapf(err, "state %q revision %d", name, rev)
	}
	return state, nil
}

// Revisions lists the stored revisions of name in ascending order.
func (r *Registry) Revisions(name string) ([]uint64, error) {
	var revs []uint64
	err := r.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(statesBucket)).Bucket([]byte(name))
		if b == nil {
			return errors.Wrapf(ErrNotFound, "state %q", name)
		}
		return b.ForEach(func(k, _ []byte) error {
			revs = append(revs, binary.BigEndian.Uint64(k))
			return nil
		})
	})
	return revs, err
}

// Names lists the stored state names in byte order.
func (r *Registry) Names() ([]string, error) {
	var names []string
	err := r.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(statesBucket)).ForEach(func(k, v []byte) error {
			if v == nil { // nested bucket
				names = append(names, string(k))
			}
			return nil
		})
	})
	return names, err
}

// Delete removes name and all of its revisions.
func (r *Registry) Delete(name string) error {
	err := r.db.Update(func(tx *bbolt.Tx) error {
		err := tx.Bucket([]byte(statesBucket)).DeleteBucket([]byte(name))
		if errors.Is(err, bbolt.ErrBucketNotFound) {
			return errors.Wrapf(ErrNotFound, "state %q", name)
		}
		return err
	})
	if err != nil {
		return err
	}
	r.logger.Info("state deleted", "state.name", name)
	return nil
}

// revKey encodes a revision as a big-endian key so cursor order is numeric order.
func revKey(rev uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, rev)
	return k
}
