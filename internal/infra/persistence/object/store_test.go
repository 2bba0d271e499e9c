package object

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"lifesim/internal/blob/core"
	"lifesim/internal/infra/blob/fs"
	"lifesim/internal/infra/blob/memory"
	"lifesim/internal/infra/blob/s3"
	"lifesim/pkg/domain"
)

func fixture(id, owner string, status domain.SimulationStatus) domain.Simulation {
	return domain.Simulation{
		ID:        id,
		Owner:     domain.User{ID: owner},
		CreatedAt: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		World:     domain.World{Name: "W1", Size: 4},
		Status:    status,
	}
}

func backends(t *testing.T) map[string]core.Store {
	t.Helper()
	dir, err := fs.New(t.TempDir())
	if err != nil {
		t.Fatalf("fs.New: %v", err)
	}
	return map[string]core.Store{
		"memory": memory.New(),
		"fs":     dir,
		"s3":     s3.NewMockForTests(),
	}
}

func TestObjectStoreAcrossBackends(t *testing.T) {
	ctx := context.Background()
	for name, blobs := range backends(t) {
		t.Run(name, func(t *testing.T) {
			store := NewStore(blobs)
			want := fixture("U1#2024-01-01", "U1", domain.StatusPrepared)
			for _, sim := range []domain.Simulation{
				want,
				fixture("U2#2024-01-01", "U2", domain.StatusRunning),
				fixture("U1#2024-01-02", "U1", domain.StatusRunning),
			} {
				if err := store.Store(ctx, sim); err != nil {
					t.Fatalf("store %s: %v", sim.ID, err)
				}
			}

			got, err := store.Query(ctx, domain.FieldEquals(domain.FieldID, want.ID))
			if err != nil || len(got) != 1 {
				t.Fatalf("expected hit for %s, got %v err=%v", want.ID, got, err)
			}
			if diff := cmp.Diff(want, got[0]); diff != "" {
				t.Fatalf("simulation mismatch (-want +got):\n%s", diff)
			}

			running, err := store.Query(ctx, domain.FieldEquals(domain.FieldStatus, string(domain.StatusRunning)))
			if err != nil || len(running) != 2 || running[0].ID != "U1#2024-01-02" {
				t.Fatalf("unexpected running results %v err=%v", running, err)
			}

			removed, err := store.Remove(ctx, want.ID)
			if err != nil || !removed {
				t.Fatalf("expected removal, got %v err=%v", removed, err)
			}
			if got, _ := store.Query(ctx, domain.FieldEquals(domain.FieldID, want.ID)); len(got) != 0 {
				t.Fatalf("expected record gone, got %v", got)
			}
			removed, err = store.Remove(ctx, want.ID)
			if err != nil || removed {
				t.Fatalf("expected absent removal, got %v err=%v", removed, err)
			}
			all, err := store.Query(ctx, domain.AllSimulations())
			if err != nil || len(all) != 2 {
				t.Fatalf("expected 2 remaining, got %v err=%v", all, err)
			}
		})
	}
}

func TestKeyEscapesSeparators(t *testing.T) {
	key := Key("U1#2024-01-01")
	if !strings.HasPrefix(key, Prefix) || strings.Contains(key, "#") {
		t.Fatalf("unexpected key %s", key)
	}
	if Key("a/b") == Key("a%2Fb") {
		t.Fatal("distinct ids must map to distinct keys")
	}
	for _, id := range []string{"a..b#2024-01-01", "U1#2024-01-01.", ".."} {
		key := strings.TrimSuffix(strings.TrimPrefix(Key(id), Prefix), ".json")
		if strings.Contains(key, ".") {
			t.Fatalf("key for %q keeps a dot: %s", id, Key(id))
		}
	}
}

func TestDottedIDsRoundTrip(t *testing.T) {
	ctx := context.Background()
	ids := []string{"a..b#2024-01-01", "U1#2024-01-01.", "J.#2024-01-01"}
	for name, blobs := range backends(t) {
		t.Run(name, func(t *testing.T) {
			store := NewStore(blobs)
			for _, id := range ids {
				if err := store.Store(ctx, fixture(id, "U1", domain.StatusPrepared)); err != nil {
					t.Fatalf("Store %s: %v", id, err)
				}
				got, err := store.Query(ctx, domain.FieldEquals(domain.FieldID, id))
				if err != nil || len(got) != 1 || got[0].ID != id {
					t.Fatalf("Query %s: got %v err=%v", id, got, err)
				}
			}
			all, err := store.Query(ctx, domain.AllSimulations())
			if err != nil || len(all) != len(ids) {
				t.Fatalf("scan: got %d err=%v", len(all), err)
			}
			for _, id := range ids {
				existed, err := store.Remove(ctx, id)
				if err != nil || !existed {
					t.Fatalf("Remove %s: existed=%v err=%v", id, existed, err)
				}
			}
		})
	}
}

func TestQueryReportsCorruptObjects(t *testing.T) {
	ctx := context.Background()
	blobs := memory.New()
	_, _ = blobs.Put(ctx, Key("bad"), strings.NewReader("{not json"), core.PutOptions{})
	store := NewStore(blobs)
	if _, err := store.Query(ctx, domain.AllSimulations()); err == nil {
		t.Fatal("expected decode error")
	}
	if store.Driver() != domain.DriverObject || store.Blobs() != blobs {
		t.Fatal("unexpected driver or blob store")
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestQueryScansManyObjects(t *testing.T) {
	ctx := context.Background()
	for name, blobs := range backends(t) {
		t.Run(name, func(t *testing.T) {
			store := NewStore(blobs)
			var want []string
			for i := 0; i < 3*scanConcurrency; i++ {
				id := domain.SimulationKey("U"+strings.Repeat("x", i%3), time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC))
				if err := store.Store(ctx, fixture(id, "U", domain.StatusPaused)); err != nil {
					t.Fatalf("Store %s: %v", id, err)
				}
				want = append(want, id)
			}
			got, err := store.Query(ctx, domain.FieldEquals(domain.FieldStatus, string(domain.StatusPaused)))
			if err != nil {
				t.Fatalf("Query: %v", err)
			}
			var ids []string
			for _, s := range got {
				ids = append(ids, s.ID)
			}
			sort.Strings(want)
			if diff := cmp.Diff(want, ids); diff != "" {
				t.Fatalf("ids mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
