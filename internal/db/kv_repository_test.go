package db

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
)

func newKeyValueRepositoryForTest(t *testing.T) *KeyValueRepository {
	t.Helper()
	database := openSQLiteForMigrationBootstrapTest(t, filepath.Join(t.TempDir(), "paindiary-kv.db"))
	return NewKeyValueRepository(database)
}

func TestKeyValueRepositoryPutGetAndOverwrite(t *testing.T) {
	ctx := context.Background()
	repo := newKeyValueRepositoryForTest(t)

	if _, found, err := repo.Get(ctx, "missing"); err != nil || found {
		t.Fatalf("expected missing key to be absent, found=%v err=%v", found, err)
	}

	if err := repo.Put(ctx, "alpha", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("put alpha: %v", err)
	}
	if err := repo.Put(ctx, "alpha", []byte(`{"a":2}`)); err != nil {
		t.Fatalf("overwrite alpha: %v", err)
	}

	value, found, err := repo.Get(ctx, "alpha")
	if err != nil {
		t.Fatalf("get alpha: %v", err)
	}
	if !found || string(value) != `{"a":2}` {
		t.Fatalf("expected overwritten payload, got found=%v value=%q", found, value)
	}

	size, err := repo.TotalSize(ctx)
	if err != nil {
		t.Fatalf("total size: %v", err)
	}
	if size != EntrySize("alpha", []byte(`{"a":2}`)) {
		t.Fatalf("expected total size %d, got %d", EntrySize("alpha", []byte(`{"a":2}`)), size)
	}
}

func TestKeyValueRepositoryKeysFiltersByPrefix(t *testing.T) {
	ctx := context.Background()
	repo := newKeyValueRepositoryForTest(t)

	if err := repo.PutMany(ctx, map[string][]byte{
		"snap_2":  []byte("2"),
		"snap_1":  []byte("1"),
		"records": []byte("[]"),
	}); err != nil {
		t.Fatalf("put many: %v", err)
	}

	keys, err := repo.Keys(ctx, "snap_")
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if !reflect.DeepEqual(keys, []string{"snap_1", "snap_2"}) {
		t.Fatalf("expected sorted snapshot keys, got %v", keys)
	}

	all, err := repo.Keys(ctx, "")
	if err != nil {
		t.Fatalf("all keys: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 keys, got %v", all)
	}
}

func TestKeyValueRepositoryDeleteAndExists(t *testing.T) {
	ctx := context.Background()
	repo := newKeyValueRepositoryForTest(t)

	if err := repo.PutMany(ctx, map[string][]byte{"a": []byte("1"), "b": []byte("2")}); err != nil {
		t.Fatalf("put many: %v", err)
	}
	if err := repo.Delete(ctx, "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	exists, err := repo.Exists(ctx, "a")
	if err != nil {
		t.Fatalf("exists a: %v", err)
	}
	if exists {
		t.Fatal("expected a to be deleted")
	}
	exists, err = repo.Exists(ctx, "b")
	if err != nil {
		t.Fatalf("exists b: %v", err)
	}
	if !exists {
		t.Fatal("expected b to remain")
	}

	size, err := repo.EntrySize(ctx, "b")
	if err != nil {
		t.Fatalf("entry size: %v", err)
	}
	if size != 2 {
		t.Fatalf("expected entry size 2, got %d", size)
	}
}

func TestKeyValueRepositoryRejectsEmptyKey(t *testing.T) {
	repo := newKeyValueRepositoryForTest(t)
	if err := repo.Put(context.Background(), "  ", []byte("x")); err == nil {
		t.Fatal("expected empty key to be rejected")
	}
}
