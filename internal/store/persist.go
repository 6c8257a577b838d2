package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// ErrCacheCorrupt signals that a snapshot could not be read back. The
// caller should discard it and rebuild from scratch.
var ErrCacheCorrupt = errors.New("index cache corrupt")

var (
	bucketMeta   = []byte("meta")
	bucketChunks = []byte("chunks")

	keyFingerprint = []byte("fingerprint")
	keyDimension   = []byte("dimension")
	keyVersion     = []byte("version")
	keyUpdatedAt   = []byte("updated_at")
)

// formatVersion guards against loading snapshots written by an
// incompatible release
const formatVersion = "1"

// Save writes a snapshot of the store to path, tagged with the
// workspace fingerprint. The snapshot is written to a temp file and
// renamed into place so a crash mid-write never leaves a truncated
// cache behind.
func (s *Store) Save(path, fingerprint string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp := path + ".tmp"
	if err := s.writeSnapshot(tmp, fingerprint); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace cache: %w", err)
	}
	return nil
}

func (s *Store) writeSnapshot(path, fingerprint string) error {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer func() { _ = db.Close() }()

	s.mu.RLock()
	defer s.mu.RUnlock()

	return db.Update(func(tx *bolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists(bucketMeta)
		if err != nil {
			return err
		}
		if err := meta.Put(keyVersion, []byte(formatVersion)); err != nil {
			return err
		}
		if err := meta.Put(keyFingerprint, []byte(fingerprint)); err != nil {
			return err
		}
		if err := meta.Put(keyDimension, []byte(fmt.Sprintf("%d", s.dim))); err != nil {
			return err
		}
		if err := meta.Put(keyUpdatedAt, []byte(time.Now().UTC().Format(time.RFC3339))); err != nil {
			return err
		}

		chunks, err := tx.CreateBucketIfNotExists(bucketChunks)
		if err != nil {
			return err
		}
		for _, entries := range s.files {
			for _, e := range entries {
				val, err := json.Marshal(e)
				if err != nil {
					return fmt.Errorf("marshal chunk %s: %w", e.Chunk.Key(), err)
				}
				if err := chunks.Put([]byte(e.Chunk.Key()), val); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// Load reads a snapshot from path and returns the rebuilt store along
// with the fingerprint it was saved under. Any read or decode failure
// returns ErrCacheCorrupt.
func Load(path string) (*Store, string, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{ReadOnly: true})
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrCacheCorrupt, err)
	}
	defer func() { _ = db.Close() }()

	s := New()
	var fingerprint string

	err = db.View(func(tx *bolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		if meta == nil {
			return errors.New("missing meta bucket")
		}
		if v := meta.Get(keyVersion); string(v) != formatVersion {
			return fmt.Errorf("unsupported format version %q", v)
		}
		fp := meta.Get(keyFingerprint)
		if fp == nil {
			return errors.New("missing fingerprint")
		}
		fingerprint = string(fp)

		chunks := tx.Bucket(bucketChunks)
		if chunks == nil {
			return errors.New("missing chunks bucket")
		}
		return chunks.ForEach(func(_, val []byte) error {
			var e entry
			if err := json.Unmarshal(val, &e); err != nil {
				return fmt.Errorf("decode chunk: %w", err)
			}
			if err := e.Chunk.Validate(); err != nil {
				return fmt.Errorf("invalid chunk %s: %w", e.Chunk.Key(), err)
			}
			if s.dim == 0 {
				s.dim = len(e.Vector)
			} else if len(e.Vector) != s.dim {
				return fmt.Errorf("vector dimension %d, expected %d", len(e.Vector), s.dim)
			}
			s.files[e.Chunk.FilePath] = append(s.files[e.Chunk.FilePath], e)
			return nil
		})
	})
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrCacheCorrupt, err)
	}

	return s, fingerprint, nil
}
