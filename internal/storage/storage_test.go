package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir, err := os.MkdirTemp("", "jiochain-storage-")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	s, err := Open(filepath.Join(dir, "chain.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestEnsureTableAndInsert(t *testing.T) {
	s := newTestStore(t)

	err := s.EnsureTable("widgets", []Column{
		{Name: "id", Type: "TEXT", PrimaryKey: true},
		{Name: "count", Type: "INTEGER"},
	})
	if err != nil {
		t.Fatalf("EnsureTable: %v", err)
	}

	if err := s.Insert("widgets", Row{"id": "a", "count": 3}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	row, ok, err := s.GetOne("widgets", "id", "a")
	if err != nil {
		t.Fatalf("GetOne: %v", err)
	}
	if !ok {
		t.Fatal("expected row to exist")
	}
	if row["count"].(int64) != 3 {
		t.Errorf("count = %v, want 3", row["count"])
	}
}

func TestUpdateAndDeleteWhere(t *testing.T) {
	s := newTestStore(t)
	s.EnsureTable("widgets", []Column{
		{Name: "id", Type: "TEXT", PrimaryKey: true},
		{Name: "count", Type: "INTEGER"},
	})
	s.Insert("widgets", Row{"id": "a", "count": 1})
	s.Insert("widgets", Row{"id": "b", "count": 2})

	if err := s.UpdateWhere("widgets", "id", "a", Row{"count": 99}); err != nil {
		t.Fatalf("UpdateWhere: %v", err)
	}
	row, _, _ := s.GetOne("widgets", "id", "a")
	if row["count"].(int64) != 99 {
		t.Errorf("count after update = %v, want 99", row["count"])
	}

	if err := s.DeleteWhere("widgets", "id", "b"); err != nil {
		t.Fatalf("DeleteWhere: %v", err)
	}
	all, err := s.GetAll("widgets")
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("len(all) = %d, want 1", len(all))
	}
}

func TestTruncate(t *testing.T) {
	s := newTestStore(t)
	s.EnsureTable("widgets", []Column{{Name: "id", Type: "TEXT", PrimaryKey: true}})
	s.Insert("widgets", Row{"id": "a"})
	s.Insert("widgets", Row{"id": "b"})

	if err := s.Truncate("widgets"); err != nil {
		t.Fatalf("Truncate: %v", err)
	}
	all, err := s.GetAll("widgets")
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("len(all) = %d, want 0", len(all))
	}
}
