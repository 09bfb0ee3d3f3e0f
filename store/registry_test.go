package store

import (
	"path/filepath"
	"reflect"
	"testing"

	"go.etcd.io/bbolt"

	"github.com/YuminosukeSato/tabprep/dataset"
	"github.com/YuminosukeSato/tabprep/pkg/errors"
	"github.com/YuminosukeSato/tabprep/preprocessing"
)

func fitState(t *testing.T, ages ...any) *preprocessing.FittedState {
	t.Helper()
	ds, err := dataset.New("age", "city")
	if err != nil {
		t.Fatal(err)
	}
	cities := []string{"Tokyo", "Osaka", "Nagoya"}
	for i, a := range ages {
		if err := ds.AppendRow([]dataset.Value{dataset.Of(a), dataset.String(cities[i%len(cities)])}); err != nil {
			t.Fatal(err)
		}
	}
	state, err := preprocessing.Fit(preprocessing.FeatureSpec{
		Numeric:     []string{"age"},
		Categorical: []string{"city"},
	}, ds)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	return state
}

func openRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := Open(filepath.Join(t.TempDir(), "registry.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { reg.Close() })
	return reg
}

func TestRegistry_PutGet(t *testing.T) {
	reg := openRegistry(t)
	first := fitState(t, 20, 30, 40)
	second := fitState(t, 25, 35)

	for i, s := range []*preprocessing.FittedState{first, second} {
		rev, err := reg.Put("customers", s)
		if err != nil {
			t.Fatalf("Put: %v", err)
		}
		if rev != uint64(i+1) {
			t.Errorf("revision = %d, want %d", rev, i+1)
		}
	}

	latest, rev, err := reg.Get("customers")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rev != 2 || !latest.Equal(second) {
		t.Errorf("Get returned revision %d, want latest state at 2", rev)
	}

	old, err := reg.GetRevision("customers", 1)
	if err != nil {
		t.Fatalf("GetRevision: %v", err)
	}
	if !old.Equal(first) {
		t.Error("revision 1 differs from the first stored state")
	}

	revs, err := reg.Revisions("customers")
	if err != nil {
		t.Fatalf("Revisions: %v", err)
	}
	if !reflect.DeepEqual(revs, []uint64{1, 2}) {
		t.Errorf("Revisions = %v, want [1 2]", revs)
	}
}

func TestRegistry_NamesAndDelete(t *testing.T) {
	reg := openRegistry(t)
	s := fitState(t, 1, 2)
	for _, name := range []string{"beta", "alpha"} {
		if _, err := reg.Put(name, s); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	names, err := reg.Names()
	if err != nil {
		t.Fatalf("Names: %v", err)
	}
	if !reflect.DeepEqual(names, []string{"alpha", "beta"}) {
		t.Errorf("Names = %v", names)
	}

	if err := reg.Delete("alpha"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, _, err := reg.Get("alpha"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := reg.Delete("alpha"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound deleting twice, got %v", err)
	}

	// 削除後に同じ名前で保存しても以前のリビジョン番号は再利用されない
	rev, err := reg.Put("alpha", s)
	if err != nil {
		t.Fatalf("Put after delete: %v", err)
	}
	if rev != 2 {
		t.Errorf("revision after delete = %d, want 2", rev)
	}
	if revs, _ := reg.Revisions("alpha"); !reflect.DeepEqual(revs, []uint64{2}) {
		t.Errorf("Revisions after delete = %v, want [2]", revs)
	}
}

func TestRegistry_NotFound(t *testing.T) {
	reg := openRegistry(t)
	if _, _, err := reg.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get: expected ErrNotFound, got %v", err)
	}
	if _, err := reg.Put("x", fitState(t, 1, 2)); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.GetRevision("x", 9); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetRevision: expected ErrNotFound, got %v", err)
	}
	if _, err := reg.Put("", fitState(t, 1, 2)); err == nil {
		t.Error("expected error for empty name")
	}
}

func TestRegistry_CorruptDocument(t *testing.T) {
	reg := openRegistry(t)
	err := reg.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.Bucket([]byte(statesBucket)).CreateBucket([]byte("broken"))
		if err != nil {
			return err
		}
		return b.Put(revKey(1), []byte(`{"format":"tabprep/fitted-state","version":1}`))
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, _, err := reg.Get("broken"); !errors.IsCorruptState(err) {
		t.Errorf("expected CorruptState, got %v", err)
	}
}

func TestRegistry_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.db")
	s := fitState(t, 3, 4, 5)

	reg, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Put("persisted", s); err != nil {
		t.Fatal(err)
	}
	if err := reg.Close(); err != nil {
		t.Fatal(err)
	}

	reg, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reg.Close()
	got, _, err := reg.Get("persisted")
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if !got.Equal(s) {
		t.Error("state changed across reopen")
	}
}
