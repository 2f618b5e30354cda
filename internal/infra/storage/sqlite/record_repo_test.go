package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/vietddude/launcher/internal/infra/storage"
)

func openTestRepo(t *testing.T) *RecordRepo {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "launcher.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewRecordRepo(db)
}

func TestRecordRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	if err := repo.Put(ctx, storage.KeyPreferences, []byte(`{"language":"en"}`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := repo.Get(ctx, storage.KeyPreferences)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != `{"language":"en"}` {
		t.Errorf("expected stored value back, got %s", got)
	}
}

func TestGetMissingKey(t *testing.T) {
	repo := openTestRepo(t)

	_, err := repo.Get(context.Background(), "nope")
	if !errors.Is(err, storage.ErrRecordNotFound) {
		t.Errorf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestPutReplaces(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	if err := repo.Put(ctx, "k", []byte("v1")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := repo.Put(ctx, "k", []byte("v2")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := repo.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "v2" {
		t.Errorf("expected v2, got %s", got)
	}
}

func TestBatchDelete(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	for _, key := range []string{storage.KeyAuth, storage.KeyProfile, storage.KeyLibrary} {
		if err := repo.Put(ctx, key, []byte("x")); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	// One key that does not exist must not fail the batch.
	if err := repo.BatchDelete(ctx, storage.KeyAuth, storage.KeyProfile, "ghost"); err != nil {
		t.Fatalf("BatchDelete failed: %v", err)
	}

	for _, key := range []string{storage.KeyAuth, storage.KeyProfile} {
		if _, err := repo.Get(ctx, key); !errors.Is(err, storage.ErrRecordNotFound) {
			t.Errorf("expected %s deleted, got %v", key, err)
		}
	}
	if _, err := repo.Get(ctx, storage.KeyLibrary); err != nil {
		t.Errorf("expected %s untouched, got %v", storage.KeyLibrary, err)
	}

	if err := repo.BatchDelete(ctx); err != nil {
		t.Errorf("empty BatchDelete should be a no-op, got %v", err)
	}
}

func TestBackupCreatesArtifact(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	if err := repo.Put(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	path, err := repo.Backup(ctx)
	if err != nil {
		t.Fatalf("Backup failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("expected backup artifact at %s: %v", path, err)
	}
	if info.Size() == 0 {
		t.Error("expected non-empty backup artifact")
	}
}

func TestGetJSONHelpers(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	type prefs struct {
		Language string `json:"language"`
	}

	if err := storage.PutJSON(ctx, repo, storage.KeyPreferences, prefs{Language: "de"}); err != nil {
		t.Fatalf("PutJSON failed: %v", err)
	}
	got, err := storage.GetJSON[prefs](ctx, repo, storage.KeyPreferences)
	if err != nil {
		t.Fatalf("GetJSON failed: %v", err)
	}
	if got.Language != "de" {
		t.Errorf("expected de, got %s", got.Language)
	}

	// Corrupt payload surfaces a decode error, not a silent zero value.
	if err := repo.Put(ctx, storage.KeyPreferences, []byte("{not json")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if _, err := storage.GetJSON[prefs](ctx, repo, storage.KeyPreferences); err == nil {
		t.Error("expected decode error for corrupt record")
	}
}
