package world

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultCatalog(t *testing.T) {
	cat := DefaultCatalog()

	if cat.Len() != 5 {
		t.Errorf("Expected 5 rooms, got %d", cat.Len())
	}

	if cat.EntryRoomID() != "lobby" {
		t.Errorf("Expected entry room 'lobby', got '%s'", cat.EntryRoomID())
	}

	room, ok := cat.Lookup("archive")
	if !ok {
		t.Fatal("Expected 'archive' room in default catalog")
	}
	if room.Position.Z != -5 {
		t.Errorf("Expected archive Z position -5, got %f", room.Position.Z)
	}
}

func TestLookup_UnknownRoom(t *testing.T) {
	cat := DefaultCatalog()

	if _, ok := cat.Lookup("ballroom"); ok {
		t.Error("Expected lookup of unknown room to fail")
	}
}

func TestNewCatalog_DuplicateIDs(t *testing.T) {
	cat := NewCatalog([]Room{
		{ID: "blog", DisplayName: "First"},
		{ID: "blog", DisplayName: "Second"},
	}, "blog")

	if cat.Len() != 1 {
		t.Errorf("Expected duplicates to collapse to 1 room, got %d", cat.Len())
	}

	room, _ := cat.Lookup("blog")
	if room.DisplayName != "First" {
		t.Errorf("Expected first occurrence to win, got '%s'", room.DisplayName)
	}
}

func TestNewCatalog_MissingEntryFallsBack(t *testing.T) {
	cat := NewCatalog([]Room{{ID: "blog"}, {ID: "pages"}}, "lobby")

	if cat.EntryRoomID() != "blog" {
		t.Errorf("Expected fallback entry 'blog', got '%s'", cat.EntryRoomID())
	}
}

func TestSetContentCount(t *testing.T) {
	cat := DefaultCatalog()

	cat.SetContentCount("blog", 15)
	cat.SetContentCount("ballroom", 99) // unknown id is ignored

	room, _ := cat.Lookup("blog")
	if room.ContentCount != 15 {
		t.Errorf("Expected blog content count 15, got %d", room.ContentCount)
	}
}

func TestLoadCatalog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rooms.json")
	data := `{
		"entry_room": "studio",
		"rooms": [
			{"id": "studio", "name": "Studio", "position": {"x": 1, "y": 2, "z": 3}},
			{"id": "gallery", "name": "Gallery", "position": {"x": -4, "y": 0, "z": 0}}
		]
	}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("failed to write catalog file: %v", err)
	}

	cat, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog() failed: %v", err)
	}

	if cat.EntryRoomID() != "studio" {
		t.Errorf("Expected entry room 'studio', got '%s'", cat.EntryRoomID())
	}

	room, ok := cat.Lookup("studio")
	if !ok || room.Position.Y != 2 {
		t.Errorf("Expected studio at Y=2, got %+v (ok=%v)", room, ok)
	}
}

func TestLoadCatalog_Missing(t *testing.T) {
	if _, err := LoadCatalog("/nonexistent/rooms.json"); err == nil {
		t.Error("Expected error for missing catalog file")
	}
}

func TestVector3_DistanceTo(t *testing.T) {
	a := Vector3{0, 0, 0}
	b := Vector3{3, 4, 0}

	if d := a.DistanceTo(b); d != 5 {
		t.Errorf("Expected distance 5, got %f", d)
	}
}
