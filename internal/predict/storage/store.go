// Playlens - Game Telemetry Analytics and Behavioral Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlens

package storage

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Key layout: model:{name}:v{version}. Versions are zero-padded so the
// default key ordering is also version order.
const modelKeyPrefix = "model:"

// ErrModelNotFound is returned when no stored version exists for a model.
var ErrModelNotFound = errors.New("model not found")

// ErrChecksumMismatch is returned when stored model data fails integrity
// verification.
var ErrChecksumMismatch = errors.New("model checksum mismatch")

// ModelMetadata contains information about a stored model version.
type ModelMetadata struct {
	// Name is the model name (e.g., "churn", "ltv").
	Name string `json:"name"`

	// Version is the model version (monotonically increasing).
	Version int `json:"version"`

	// TrainedAt is when the model was trained.
	TrainedAt time.Time `json:"trained_at"`

	// SavedAt is when the model was saved.
	SavedAt time.Time `json:"saved_at"`

	// SampleCount is the number of training samples used.
	SampleCount int `json:"sample_count"`

	// UserCount is the number of unique users in the training set.
	UserCount int `json:"user_count"`

	// Checksum is the SHA-256 checksum of the uncompressed state.
	Checksum string `json:"checksum"`

	// SizeBytes is the compressed state size in bytes.
	SizeBytes int64 `json:"size_bytes"`

	// TrainingDurationMS is how long training took.
	TrainingDurationMS int64 `json:"training_duration_ms"`
}

// storedModel is the on-disk format for a model version.
type storedModel struct {
	Metadata       ModelMetadata
	CompressedData []byte
}

// Store manages versioned model persistence in BadgerDB.
type Store struct {
	db *badger.DB

	mu sync.RWMutex
	// Latest version per model, built by scanning keys at open.
	versions map[string]int
}

// NewStore creates a model store over an open BadgerDB handle and scans
// for existing versions.
func NewStore(db *badger.DB) (*Store, error) {
	s := &Store{
		db:       db,
		versions: make(map[string]int),
	}
	if err := s.scanVersions(); err != nil {
		return nil, fmt.Errorf("scan stored models: %w", err)
	}
	return s, nil
}

// scanVersions walks the model key prefix and records the latest version
// per model name.
func (s *Store) scanVersions() error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(modelKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			name, version, ok := parseModelKey(string(it.Item().Key()))
			if !ok {
				continue
			}
			if current, exists := s.versions[name]; !exists || version > current {
				s.versions[name] = version
			}
		}
		return nil
	})
}

func modelKey(name string, version int) []byte {
	return []byte(fmt.Sprintf("%s%s:v%08d", modelKeyPrefix, name, version))
}

func parseModelKey(key string) (name string, version int, ok bool) {
	rest, found := strings.CutPrefix(key, modelKeyPrefix)
	if !found {
		return "", 0, false
	}
	idx := strings.LastIndex(rest, ":v")
	if idx < 1 {
		return "", 0, false
	}
	version, err := strconv.Atoi(rest[idx+2:])
	if err != nil || version < 1 {
		return "", 0, false
	}
	return rest[:idx], version, true
}

// Save stores one model version. The state is gob-encoded, checksummed,
// and gzip-compressed before the write. Version 0 allocates the next
// version; the allocated version is returned.
func (s *Store) Save(ctx context.Context, name string, version int, state any, meta ModelMetadata) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if version == 0 {
		version = s.versions[name] + 1
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(state); err != nil {
		return 0, fmt.Errorf("encode model %s: %w", name, err)
	}
	raw := buf.Bytes()

	hash := sha256.Sum256(raw)
	meta.Checksum = hex.EncodeToString(hash[:])

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(raw); err != nil {
		return 0, fmt.Errorf("compress model %s: %w", name, err)
	}
	if err := gzw.Close(); err != nil {
		return 0, fmt.Errorf("finalize compression: %w", err)
	}

	meta.Name = name
	meta.Version = version
	meta.SavedAt = time.Now()
	meta.SizeBytes = int64(compressed.Len())

	var record bytes.Buffer
	if err := gob.NewEncoder(&record).Encode(storedModel{
		Metadata:       meta,
		CompressedData: compressed.Bytes(),
	}); err != nil {
		return 0, fmt.Errorf("encode model record: %w", err)
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(modelKey(name, version), record.Bytes())
	})
	if err != nil {
		return 0, fmt.Errorf("write model %s v%d: %w", name, version, err)
	}

	if current, ok := s.versions[name]; !ok || version > current {
		s.versions[name] = version
	}
	return version, nil
}

// Load reads a model version into target. Version 0 loads the latest.
// A missing model returns ErrModelNotFound; corrupt data returns
// ErrChecksumMismatch.
func (s *Store) Load(ctx context.Context, name string, version int, target any) (*ModelMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if version == 0 {
		var ok bool
		version, ok = s.versions[name]
		if !ok {
			return nil, fmt.Errorf("load %s: %w", name, ErrModelNotFound)
		}
	}

	sm, err := s.getRecord(name, version)
	if err != nil {
		return nil, err
	}

	gzr, err := gzip.NewReader(bytes.NewReader(sm.CompressedData))
	if err != nil {
		return nil, fmt.Errorf("decompress model %s: %w", name, err)
	}
	defer func() { _ = gzr.Close() }()

	raw, err := io.ReadAll(gzr)
	if err != nil {
		return nil, fmt.Errorf("read model %s: %w", name, err)
	}

	hash := sha256.Sum256(raw)
	if hex.EncodeToString(hash[:]) != sm.Metadata.Checksum {
		return nil, fmt.Errorf("load %s v%d: %w", name, version, ErrChecksumMismatch)
	}

	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(target); err != nil {
		return nil, fmt.Errorf("decode model %s: %w", name, err)
	}
	return &sm.Metadata, nil
}

// getRecord fetches one stored record without touching the model state.
// Callers must hold the mutex.
func (s *Store) getRecord(name string, version int) (*storedModel, error) {
	var sm storedModel
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(modelKey(name, version))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("load %s v%d: %w", name, version, ErrModelNotFound)
		}
		if err != nil {
			return fmt.Errorf("get model %s v%d: %w", name, version, err)
		}
		return item.Value(func(val []byte) error {
			return gob.NewDecoder(bytes.NewReader(val)).Decode(&sm)
		})
	})
	if err != nil {
		return nil, err
	}
	return &sm, nil
}

// LatestVersion returns the latest stored version for a model.
func (s *Store) LatestVersion(name string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	version, ok := s.versions[name]
	return version, ok
}

// ModelNames returns the names of all stored models, sorted.
func (s *Store) ModelNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.versions))
	for name := range s.versions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns metadata for the latest version of every stored model,
// sorted by name.
func (s *Store) List(ctx context.Context) ([]ModelMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.versions))
	for name := range s.versions {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]ModelMetadata, 0, len(names))
	for _, name := range names {
		sm, err := s.getRecord(name, s.versions[name])
		if err != nil {
			if errors.Is(err, ErrModelNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, sm.Metadata)
	}
	return out, nil
}

// Delete removes one model version and repairs the latest-version index.
func (s *Store) Delete(ctx context.Context, name string, version int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(modelKey(name, version))
	})
	if err != nil {
		return fmt.Errorf("delete model %s v%d: %w", name, version, err)
	}

	if s.versions[name] != version {
		return nil
	}
	delete(s.versions, name)
	versions, err := s.storedVersions(name)
	if err != nil {
		return err
	}
	if len(versions) > 0 {
		s.versions[name] = versions[len(versions)-1]
	}
	return nil
}

// Prune removes old versions of a model, keeping the newest keepVersions.
func (s *Store) Prune(ctx context.Context, name string, keepVersions int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if keepVersions < 1 {
		keepVersions = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	versions, err := s.storedVersions(name)
	if err != nil {
		return err
	}
	if len(versions) <= keepVersions {
		return nil
	}

	stale := versions[:len(versions)-keepVersions]
	return s.db.Update(func(txn *badger.Txn) error {
		for _, v := range stale {
			if err := txn.Delete(modelKey(name, v)); err != nil {
				return fmt.Errorf("prune model %s v%d: %w", name, v, err)
			}
		}
		return nil
	})
}

// storedVersions lists a model's stored versions in ascending order.
// Callers must hold the mutex.
func (s *Store) storedVersions(name string) ([]int, error) {
	var versions []int
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(modelKeyPrefix + name + ":v")
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if n, v, ok := parseModelKey(string(it.Item().Key())); ok && n == name {
				versions = append(versions, v)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list versions for %s: %w", name, err)
	}
	sort.Ints(versions)
	return versions, nil
}
