// Package world holds the static room catalog and the small amount of
// geometry the navigation and audio layers share.
package world

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sync"
)

// Vector3 is a position in the simulated navigation space.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// DistanceTo returns the Euclidean distance between two positions.
func (v Vector3) DistanceTo(o Vector3) float64 {
	dx := v.X - o.X
	dy := v.Y - o.Y
	dz := v.Z - o.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Room is a named, positioned logical location mapped to a content category.
// Identity and position are immutable for the lifetime of a session; only
// the content count may be refreshed from the Content API.
type Room struct {
	ID           string  `json:"id"`
	DisplayName  string  `json:"name"`
	Position     Vector3 `json:"position"`
	ContentCount int     `json:"content_count"`
}

// Catalog is the static set of rooms, loaded once at startup.
// Room identity and layout never change during a session.
type Catalog struct {
	mu    sync.RWMutex
	rooms map[string]*Room
	order []string
	entry string
}

// DefaultEntryRoomID is the room a session starts in before any navigation.
const DefaultEntryRoomID = "lobby"

// DefaultCatalog returns the built-in five-room workspace layout.
func DefaultCatalog() *Catalog {
	return NewCatalog([]Room{
		{ID: "lobby", DisplayName: "Main Lobby", Position: Vector3{0, 0, 0}},
		{ID: "blog", DisplayName: "Blog Room", Position: Vector3{0, 10, 0}},
		{ID: "pages", DisplayName: "Pages Wing", Position: Vector3{10, 0, 0}},
		{ID: "draft", DisplayName: "Draft Corner", Position: Vector3{-10, -10, 0}},
		{ID: "archive", DisplayName: "Archive Basement", Position: Vector3{10, -10, -5}},
	}, DefaultEntryRoomID)
}

// NewCatalog builds a catalog from a room list. Duplicate ids keep the
// first occurrence. If entryID is not present, the first room is the entry.
func NewCatalog(rooms []Room, entryID string) *Catalog {
	c := &Catalog{rooms: make(map[string]*Room, len(rooms))}
	for i := range rooms {
		r := rooms[i]
		if _, dup := c.rooms[r.ID]; dup {
			continue
		}
		c.rooms[r.ID] = &r
		c.order = append(c.order, r.ID)
	}
	if _, ok := c.rooms[entryID]; ok {
		c.entry = entryID
	} else if len(c.order) > 0 {
		c.entry = c.order[0]
	}
	return c
}

// LoadCatalog reads a room catalog from a JSON file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read room catalog: %w", err)
	}

	var file struct {
		EntryRoom string `json:"entry_room"`
		Rooms     []Room `json:"rooms"`
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse room catalog: %w", err)
	}
	if len(file.Rooms) == 0 {
		return nil, fmt.Errorf("room catalog %s contains no rooms", path)
	}
	if file.EntryRoom == "" {
		file.EntryRoom = DefaultEntryRoomID
	}

	return NewCatalog(file.Rooms, file.EntryRoom), nil
}

// Lookup returns a copy of the room with the given id.
func (c *Catalog) Lookup(id string) (Room, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	r, ok := c.rooms[id]
	if !ok {
		return Room{}, false
	}
	return *r, true
}

// Rooms returns the catalog's rooms in declaration order.
func (c *Catalog) Rooms() []Room {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Room, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, *c.rooms[id])
	}
	return out
}

// EntryRoomID returns the id of the room a session starts in.
func (c *Catalog) EntryRoomID() string {
	return c.entry
}

// Len returns the number of rooms.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.rooms)
}

// SetContentCount updates a room's content count. Unknown ids are ignored;
// the count is presentation data and does not affect identity or layout.
func (c *Catalog) SetContentCount(id string, count int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if r, ok := c.rooms[id]; ok {
		r.ContentCount = count
	}
}
