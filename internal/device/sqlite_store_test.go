package device

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates an in-memory SQLite database with the devices table.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE devices (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			subscribe_topic TEXT NOT NULL,
			publish_topic TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})
	return db
}

func testRecord(id string) Record {
	return Record{
		ID:             id,
		Name:           id,
		SubscribeTopic: "air-quality/" + id,
		PublishTopic:   "air-quality/" + id + "/wifi",
	}
}

func TestSQLiteStore_PutGet(t *testing.T) {
	store := NewSQLiteStore(setupTestDB(t))
	ctx := context.Background()

	rec := testRecord("kitchen-01")
	if err := store.Put(ctx, rec); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := store.Get(ctx, "kitchen-01")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != rec {
		t.Errorf("Get() = %+v, want %+v", got, rec)
	}
}

func TestSQLiteStore_PutIsUpsert(t *testing.T) {
	store := NewSQLiteStore(setupTestDB(t))
	ctx := context.Background()

	rec := testRecord("kitchen-01")
	if err := store.Put(ctx, rec); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	rec.Name = "Kitchen Sensor"
	if err := store.Put(ctx, rec); err != nil {
		t.Fatalf("second Put() error = %v", err)
	}

	got, err := store.Get(ctx, "kitchen-01")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Name != "Kitchen Sensor" {
		t.Errorf("Name after upsert = %q, want Kitchen Sensor", got.Name)
	}

	records, err := store.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(records) != 1 {
		t.Errorf("ListAll() returned %d records after upsert, want 1", len(records))
	}
}

func TestSQLiteStore_GetNotFound(t *testing.T) {
	store := NewSQLiteStore(setupTestDB(t))

	_, err := store.Get(context.Background(), "no-such-device")
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Get() error = %v, want ErrDeviceNotFound", err)
	}
}

func TestSQLiteStore_Delete(t *testing.T) {
	store := NewSQLiteStore(setupTestDB(t))
	ctx := context.Background()

	if err := store.Put(ctx, testRecord("kitchen-01")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := store.Delete(ctx, "kitchen-01"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Get(ctx, "kitchen-01"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrDeviceNotFound", err)
	}

	if err := store.Delete(ctx, "kitchen-01"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Delete() of missing record error = %v, want ErrDeviceNotFound", err)
	}
}

func TestSQLiteStore_ListAll(t *testing.T) {
	store := NewSQLiteStore(setupTestDB(t))
	ctx := context.Background()

	records, err := store.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() on empty store error = %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("ListAll() on empty store = %d records, want 0", len(records))
	}

	for _, id := range []string{"kitchen-01", "garage-02", "attic-03"} {
		if err := store.Put(ctx, testRecord(id)); err != nil {
			t.Fatalf("Put(%s) error = %v", id, err)
		}
	}

	records, err = store.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("ListAll() = %d records, want 3", len(records))
	}
	// Ordered by name
	if records[0].ID != "attic-03" || records[2].ID != "kitchen-01" {
		t.Errorf("ListAll() order = %s..%s, want attic-03..kitchen-01", records[0].ID, records[2].ID)
	}
}
