// Package storetest holds a shared behavioural suite run against every
// core.Store implementation.
package storetest

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"lifesim/internal/blob/core"
)

// Run exercises put/get/overwrite/list/delete semantics against store.
func Run(t *testing.T, store core.Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := store.Put(ctx, "sims/a.json", strings.NewReader(`{"v":1}`), core.PutOptions{ContentType: "application/json"}); err != nil {
		t.Fatalf("put a: %v", err)
	}
	if _, err := store.Put(ctx, "sims/b.json", strings.NewReader(`{"v":2}`), core.PutOptions{}); err != nil {
		t.Fatalf("put b: %v", err)
	}
	if _, err := store.Put(ctx, "other/c.json", strings.NewReader(`{}`), core.PutOptions{}); err != nil {
		t.Fatalf("put c: %v", err)
	}
	info, err := store.Put(ctx, "sims/a.json", strings.NewReader(`{"v":10}`), core.PutOptions{})
	if err != nil {
		t.Fatalf("overwrite a: %v", err)
	}
	if info.Size != int64(len(`{"v":10}`)) {
		t.Fatalf("unexpected size %d", info.Size)
	}

	_, rc, err := store.Get(ctx, "sims/a.json")
	if err != nil {
		t.Fatalf("get a: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != `{"v":10}` {
		t.Fatalf("expected overwritten body, got %s", body)
	}

	if _, _, err := store.Get(ctx, "sims/missing.json"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	list, err := store.List(ctx, "sims/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Key != "sims/a.json" || list[1].Key != "sims/b.json" {
		t.Fatalf("unexpected listing %+v", list)
	}

	existed, err := store.Delete(ctx, "sims/b.json")
	if err != nil || !existed {
		t.Fatalf("delete b: existed=%v err=%v", existed, err)
	}
	existed, err = store.Delete(ctx, "sims/b.json")
	if err != nil || existed {
		t.Fatalf("second delete b: existed=%v err=%v", existed, err)
	}
	if list, _ := store.List(ctx, "sims/"); len(list) != 1 {
		t.Fatalf("expected one blob left, got %+v", list)
	}
}
