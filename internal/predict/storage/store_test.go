// Playlens - Game Telemetry Analytics and Behavioral Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlens

package storage

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
)

func newTestDB(t *testing.T) *badger.DB {
	t.Helper()
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(newTestDB(t))
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return s
}

// fakeState stands in for a model's serializable parameter state.
type fakeState struct {
	Weights []float64
	Bias    float64
}

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	want := fakeState{Weights: []float64{0.2, 0.5, 0.3}, Bias: 1.5}
	trainedAt := time.Now().Add(-time.Minute)
	version, err := s.Save(ctx, "churn", 0, want, ModelMetadata{
		TrainedAt:   trainedAt,
		SampleCount: 500,
		UserCount:   120,
	})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if version != 1 {
		t.Errorf("first save allocated version %d, want 1", version)
	}

	var got fakeState
	meta, err := s.Load(ctx, "churn", 0, &got)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("loaded state = %+v, want %+v", got, want)
	}
	if meta.Name != "churn" || meta.Version != 1 {
		t.Errorf("metadata = %s v%d, want churn v1", meta.Name, meta.Version)
	}
	if meta.SampleCount != 500 || meta.UserCount != 120 {
		t.Errorf("counts not preserved: %+v", meta)
	}
	if meta.Checksum == "" || meta.SizeBytes == 0 {
		t.Errorf("integrity fields not populated: %+v", meta)
	}
	if !meta.TrainedAt.Equal(trainedAt) {
		t.Errorf("TrainedAt = %v, want %v", meta.TrainedAt, trainedAt)
	}
}

func TestStoreVersioning(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for i := 1; i <= 3; i++ {
		v, err := s.Save(ctx, "ltv", 0, fakeState{Bias: float64(i)}, ModelMetadata{})
		if err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		if v != i {
			t.Fatalf("save %d allocated version %d", i, v)
		}
	}

	if v, ok := s.LatestVersion("ltv"); !ok || v != 3 {
		t.Errorf("LatestVersion() = %d, %v; want 3, true", v, ok)
	}

	// Version 0 loads the latest; explicit versions stay addressable.
	var got fakeState
	if _, err := s.Load(ctx, "ltv", 0, &got); err != nil || got.Bias != 3 {
		t.Errorf("latest load = %+v, %v; want Bias 3", got, err)
	}
	if _, err := s.Load(ctx, "ltv", 1, &got); err != nil || got.Bias != 1 {
		t.Errorf("v1 load = %+v, %v; want Bias 1", got, err)
	}
}

func TestStoreScanOnOpen(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	s1, err := NewStore(db)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if _, err := s1.Save(ctx, "revenue", 0, fakeState{Bias: 7}, ModelMetadata{}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := s1.Save(ctx, "revenue", 0, fakeState{Bias: 8}, ModelMetadata{}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// A second store over the same DB picks up existing versions.
	s2, err := NewStore(db)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if v, ok := s2.LatestVersion("revenue"); !ok || v != 2 {
		t.Fatalf("rescanned LatestVersion() = %d, %v; want 2, true", v, ok)
	}
	var got fakeState
	if _, err := s2.Load(ctx, "revenue", 0, &got); err != nil || got.Bias != 8 {
		t.Errorf("rescanned load = %+v, %v; want Bias 8", got, err)
	}
}

func TestStoreLoadMissing(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	var got fakeState
	if _, err := s.Load(ctx, "anomaly", 0, &got); !errors.Is(err, ErrModelNotFound) {
		t.Errorf("error = %v, want ErrModelNotFound", err)
	}

	if _, err := s.Save(ctx, "anomaly", 0, fakeState{}, ModelMetadata{}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := s.Load(ctx, "anomaly", 9, &got); !errors.Is(err, ErrModelNotFound) {
		t.Errorf("missing version error = %v, want ErrModelNotFound", err)
	}
}

func TestStoreList(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for _, name := range []string{"segmentation", "churn", "ltv"} {
		if _, err := s.Save(ctx, name, 0, fakeState{}, ModelMetadata{}); err != nil {
			t.Fatalf("Save(%s) error = %v", name, err)
		}
	}
	// Second churn version; List reports only the latest.
	if _, err := s.Save(ctx, "churn", 0, fakeState{}, ModelMetadata{}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	metas, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	var got []string
	for _, m := range metas {
		got = append(got, m.Name)
	}
	if want := []string{"churn", "ltv", "segmentation"}; !reflect.DeepEqual(got, want) {
		t.Errorf("List() names = %v, want %v", got, want)
	}
	if metas[0].Version != 2 {
		t.Errorf("churn version = %d, want the latest 2", metas[0].Version)
	}
}

func TestStoreDeleteRepairsLatest(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for i := 0; i < 3; i++ {
		if _, err := s.Save(ctx, "churn", 0, fakeState{Bias: float64(i)}, ModelMetadata{}); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	if err := s.Delete(ctx, "churn", 3); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if v, ok := s.LatestVersion("churn"); !ok || v != 2 {
		t.Errorf("LatestVersion() after delete = %d, %v; want 2, true", v, ok)
	}

	// Deleting the rest forgets the model entirely.
	if err := s.Delete(ctx, "churn", 2); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := s.Delete(ctx, "churn", 1); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok := s.LatestVersion("churn"); ok {
		t.Error("model still tracked after all versions deleted")
	}
}

func TestStorePrune(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for i := 0; i < 5; i++ {
		if _, err := s.Save(ctx, "ltv", 0, fakeState{Bias: float64(i)}, ModelMetadata{}); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	if err := s.Prune(ctx, "ltv", 2); err != nil {
		t.Fatalf("Prune() error = %v", err)
	}

	var got fakeState
	for _, tc := range []struct {
		version int
		kept    bool
	}{
		{1, false}, {2, false}, {3, false}, {4, true}, {5, true},
	} {
		_, err := s.Load(ctx, "ltv", tc.version, &got)
		if tc.kept && err != nil {
			t.Errorf("v%d should survive pruning: %v", tc.version, err)
		}
		if !tc.kept && !errors.Is(err, ErrModelNotFound) {
			t.Errorf("v%d should be pruned, got err %v", tc.version, err)
		}
	}

	// Pruning an unknown model is a no-op.
	if err := s.Prune(ctx, "unknown", 1); err != nil {
		t.Errorf("Prune(unknown) error = %v", err)
	}
}

func TestStoreChecksumVerified(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	s, err := NewStore(db)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if _, err := s.Save(ctx, "churn", 0, fakeState{Bias: 1}, ModelMetadata{}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// Corrupt the stored record's checksum in place.
	sm, err := s.getRecord("churn", 1)
	if err != nil {
		t.Fatalf("getRecord() error = %v", err)
	}
	sm.Metadata.Checksum = "deadbeef"
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(*sm); err != nil {
		t.Fatalf("re-encode record: %v", err)
	}
	err = db.Update(func(txn *badger.Txn) error {
		return txn.Set(modelKey("churn", 1), buf.Bytes())
	})
	if err != nil {
		t.Fatalf("overwrite record: %v", err)
	}

	var got fakeState
	if _, err := s.Load(ctx, "churn", 0, &got); !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("error = %v, want ErrChecksumMismatch", err)
	}
}
