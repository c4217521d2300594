// Package ws serves matches over plain websockets for local play and
// integration testing without a Nakama server.
package ws

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Hub owns the rooms of one dev server.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]*Room
	opts  RoomOptions
	ctx   context.Context
	wg    sync.WaitGroup
}

// NewHub returns a hub whose rooms stop when ctx is cancelled.
func NewHub(ctx context.Context, opts RoomOptions) *Hub {
	return &Hub{
		rooms: make(map[string]*Room),
		opts:  opts,
		ctx:   ctx,
	}
}

// CreateRoom starts a new empty room. The room is dropped from the hub once
// it stops.
func (h *Hub) CreateRoom() *Room {
	r := newRoom(uuid.NewString(), h.opts)
	h.mu.Lock()
	h.rooms[r.ID] = r
	h.mu.Unlock()

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		r.Run(h.ctx)
		h.mu.Lock()
		delete(h.rooms, r.ID)
		h.mu.Unlock()
	}()
	return r
}

// Room looks up a live room.
func (h *Hub) Room(id string) (*Room, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	r, ok := h.rooms[id]
	return r, ok
}

// Rooms lists live rooms ordered by id.
func (h *Hub) Rooms() []RoomInfo {
	h.mu.RLock()
	infos := make([]RoomInfo, 0, len(h.rooms))
	for _, r := range h.rooms {
		infos = append(infos, r.Info())
	}
	h.mu.RUnlock()
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// Wait blocks until every room has stopped.
func (h *Hub) Wait() { h.wg.Wait() }
