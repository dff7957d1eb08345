package session

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeJunk(t *testing.T, dir string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not a session"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestNew(t *testing.T) {
	s := New("diet", "min 1 1\n1 1 >= 2\n", "simplex", "optimal", 2, []float64{2, 0})

	if s.ID == "" {
		t.Error("no ID assigned")
	}
	if s.Objective == nil || *s.Objective != 2 {
		t.Errorf("Objective = %v, want 2", s.Objective)
	}
	if s.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
	if s.Name != "diet" || s.Engine != "simplex" || s.Status != "optimal" {
		t.Errorf("fields = %q %q %q", s.Name, s.Engine, s.Status)
	}
}

func TestNewNonFiniteObjective(t *testing.T) {
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		s := New("m", "", "simplex", "infeasible", v, nil)
		if s.Objective != nil {
			t.Errorf("New with objective %v stored %v, want nil", v, *s.Objective)
		}
	}
}

func TestNewAssignsDistinctIDs(t *testing.T) {
	a := New("m", "", "simplex", "optimal", 1, nil)
	b := New("m", "", "simplex", "optimal", 1, nil)
	if a.ID == b.ID {
		t.Errorf("two sessions share ID %s", a.ID)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	sess := New("knapsack", "max 8 11\n5 7 <= 14\nbin bin\n", "bnb", "optimal", 19, []float64{1, 1})
	if err := store.Set(ctx, sess); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := store.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatal("Get returned nil for a stored session")
	}
	if got.Name != sess.Name || got.ModelText != sess.ModelText || got.Engine != sess.Engine {
		t.Errorf("got %+v, want %+v", got, sess)
	}
	if got.Objective == nil || *got.Objective != 19 {
		t.Errorf("Objective = %v, want 19", got.Objective)
	}

	if err := store.Delete(ctx, sess.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got, err := store.Get(ctx, sess.ID); err != nil || got != nil {
		t.Errorf("after delete: got %v, %v; want nil, nil", got, err)
	}
}

func TestFileStoreGetMissing(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	got, err := store.Get(context.Background(), "does-not-exist")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Errorf("Get = %+v, want nil for a missing session", got)
	}
}

func TestFileStoreDeleteMissing(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(context.Background(), "does-not-exist"); err != nil {
		t.Errorf("Delete of missing session: %v", err)
	}
}

func TestFileStoreListNewestFirst(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	base := time.Now().UTC()
	for i := 0; i < 3; i++ {
		s := New(fmt.Sprintf("run%d", i), "", "simplex", "optimal", float64(i), nil)
		s.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := store.Set(ctx, s); err != nil {
			t.Fatal(err)
		}
	}

	out, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("got %d sessions, want 3", len(out))
	}
	for i := 0; i < len(out)-1; i++ {
		if out[i].CreatedAt.Before(out[i+1].CreatedAt) {
			t.Errorf("List not newest first: %v before %v", out[i].CreatedAt, out[i+1].CreatedAt)
		}
	}
	if out[0].Name != "run2" {
		t.Errorf("newest = %q, want run2", out[0].Name)
	}
}

func TestFileStoreListCapped(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	for i := 0; i < MaxList+5; i++ {
		if err := store.Set(ctx, New(fmt.Sprintf("run%d", i), "", "simplex", "optimal", 0, nil)); err != nil {
			t.Fatal(err)
		}
	}

	out, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(out) != MaxList {
		t.Errorf("got %d sessions, want cap of %d", len(out), MaxList)
	}
}

func TestFileStoreIgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := store.Set(ctx, New("keep", "", "simplex", "optimal", 0, nil)); err != nil {
		t.Fatal(err)
	}
	writeJunk(t, dir)

	out, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(out) != 1 || out[0].Name != "keep" {
		t.Errorf("List = %d sessions, want only the valid one", len(out))
	}
}
