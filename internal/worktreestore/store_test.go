package worktreestore

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/automaker/automaker/internal/domain"
)

func TestStore_GetAbsent(t *testing.T) {
	store, err := New(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	meta, err := store.Get("/proj", "feature-x")
	if err != nil {
		t.Fatal(err)
	}
	if meta != nil {
		t.Errorf("Get on absent record = %+v, want nil", meta)
	}
}

func TestStore_PutAndGet(t *testing.T) {
	store, err := New(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	created := time.Now().Add(-time.Hour).Truncate(time.Second)
	meta := &domain.WorktreeMetadata{
		Branch:           "feature-x",
		CreatedAt:        created,
		InitScriptRan:    true,
		InitScriptStatus: domain.InitScriptSuccess,
		PR:               json.RawMessage(`{"number":123}`),
	}

	if err := store.Put("/proj", meta); err != nil {
		t.Fatal(err)
	}

	got, err := store.Get("/proj", "feature-x")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("record not found after Put")
	}

	if got.Branch != "feature-x" {
		t.Errorf("Branch = %q, want feature-x", got.Branch)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, created)
	}
	if !got.InitScriptRan {
		t.Error("InitScriptRan = false, want true")
	}
	if got.InitScriptStatus != domain.InitScriptSuccess {
		t.Errorf("InitScriptStatus = %q, want success", got.InitScriptStatus)
	}
	if string(got.PR) != `{"number":123}` {
		t.Errorf("PR = %s, want opaque blob preserved", got.PR)
	}
}

func TestStore_PutOverwrites(t *testing.T) {
	store, err := New(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	first := &domain.WorktreeMetadata{
		Branch:           "feature-x",
		CreatedAt:        time.Now(),
		InitScriptStatus: domain.InitScriptRunning,
	}
	store.Put("/proj", first)

	second := &domain.WorktreeMetadata{
		Branch:           "feature-x",
		CreatedAt:        first.CreatedAt,
		InitScriptRan:    true,
		InitScriptStatus: domain.InitScriptFailed,
		InitScriptError:  "Exit code: 7",
	}
	if err := store.Put("/proj", second); err != nil {
		t.Fatal(err)
	}

	got, _ := store.Get("/proj", "feature-x")
	if got.InitScriptStatus != domain.InitScriptFailed {
		t.Errorf("InitScriptStatus = %q, want failed", got.InitScriptStatus)
	}
	if got.InitScriptError != "Exit code: 7" {
		t.Errorf("InitScriptError = %q, want Exit code: 7", got.InitScriptError)
	}
}

func TestStore_KeyedByProjectAndBranch(t *testing.T) {
	store, err := New(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	store.Put("/proj-a", &domain.WorktreeMetadata{Branch: "feature-x", CreatedAt: time.Now()})
	store.Put("/proj-b", &domain.WorktreeMetadata{Branch: "feature-x", CreatedAt: time.Now(), InitScriptRan: true})

	a, _ := store.Get("/proj-a", "feature-x")
	b, _ := store.Get("/proj-b", "feature-x")

	if a.InitScriptRan {
		t.Error("proj-a record should not be marked ran")
	}
	if !b.InitScriptRan {
		t.Error("proj-b record should be marked ran")
	}
}

func TestStore_List(t *testing.T) {
	store, err := New(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	store.Put("/proj-a", &domain.WorktreeMetadata{Branch: "one", CreatedAt: time.Now(), InitScriptStatus: domain.InitScriptSuccess})
	store.Put("/proj-a", &domain.WorktreeMetadata{Branch: "two", CreatedAt: time.Now(), InitScriptStatus: domain.InitScriptFailed})
	store.Put("/proj-b", &domain.WorktreeMetadata{Branch: "three", CreatedAt: time.Now(), InitScriptStatus: domain.InitScriptSuccess})

	all, err := store.List(ListOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("all records = %d, want 3", len(all))
	}

	projA, err := store.List(ListOptions{ProjectPath: "/proj-a"})
	if err != nil {
		t.Fatal(err)
	}
	if len(projA) != 2 {
		t.Errorf("proj-a records = %d, want 2", len(projA))
	}

	failed, err := store.List(ListOptions{Status: domain.InitScriptFailed})
	if err != nil {
		t.Fatal(err)
	}
	if len(failed) != 1 {
		t.Errorf("failed records = %d, want 1", len(failed))
	}
}

func TestStore_Delete(t *testing.T) {
	store, err := New(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	store.Put("/proj", &domain.WorktreeMetadata{Branch: "feature-x", CreatedAt: time.Now()})

	if err := store.Delete("/proj", "feature-x"); err != nil {
		t.Fatal(err)
	}

	got, _ := store.Get("/proj", "feature-x")
	if got != nil {
		t.Error("record still present after Delete")
	}
}

func TestStore_RecoverDangling(t *testing.T) {
	store, err := New(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	store.Put("/proj", &domain.WorktreeMetadata{
		Branch: "crashed", CreatedAt: time.Now(),
		InitScriptStatus: domain.InitScriptRunning,
	})
	store.Put("/proj", &domain.WorktreeMetadata{
		Branch: "done", CreatedAt: time.Now(),
		InitScriptRan: true, InitScriptStatus: domain.InitScriptSuccess,
	})

	n, err := store.RecoverDangling()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("recovered = %d, want 1", n)
	}

	crashed, _ := store.Get("/proj", "crashed")
	if !crashed.InitScriptRan {
		t.Error("recovered record should be marked ran")
	}
	if crashed.InitScriptStatus != domain.InitScriptFailed {
		t.Errorf("status = %q, want failed", crashed.InitScriptStatus)
	}
	if crashed.InitScriptError == "" {
		t.Error("recovered record should carry an error message")
	}

	done, _ := store.Get("/proj", "done")
	if done.InitScriptStatus != domain.InitScriptSuccess {
		t.Error("terminal records must not be touched by recovery")
	}
}
