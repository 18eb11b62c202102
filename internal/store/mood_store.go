// Package store holds the session's mood observations in memory.
package store

import (
	"sync"

	"github.com/jengzang/moodmap-backend-go/internal/models"
)

// Listener receives the full snapshot after every change
type Listener func(snapshot []models.MoodObservation, version uint64)

// MoodStore is an append-only, ordered, in-memory collection of observations
type MoodStore struct {
	mu        sync.RWMutex
	moods     []models.MoodObservation
	version   uint64
	nextSubID int
	listeners map[int]Listener

	notifyMu sync.Mutex
}

// NewMoodStore creates an empty store
func NewMoodStore() *MoodStore {
	return &MoodStore{listeners: make(map[int]Listener)}
}

// Add appends an observation. Timestamps are raised to keep insertion order
// non-decreasing.
func (s *MoodStore) Add(m models.MoodObservation) models.MoodObservation {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if n := len(s.moods); n > 0 && m.Timestamp < s.moods[n-1].Timestamp {
		m.Timestamp = s.moods[n-1].Timestamp
	}
	s.moods = append(s.moods, m)
	s.version++
	snapshot, version, listeners := s.snapshotLocked()
	s.mu.Unlock()

	notify(listeners, snapshot, version)
	return m
}

// Replace swaps the whole observation set
func (s *MoodStore) Replace(moods []models.MoodObservation) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	s.moods = append([]models.MoodObservation(nil), moods...)
	s.version++
	snapshot, version, listeners := s.snapshotLocked()
	s.mu.Unlock()

	notify(listeners, snapshot, version)
}

// All returns a copy of the current ordered sequence
func (s *MoodStore) All() []models.MoodObservation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.MoodObservation{}, s.moods...)
}

// Snapshot returns a copy of the sequence together with its version
func (s *MoodStore) Snapshot() ([]models.MoodObservation, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.MoodObservation{}, s.moods...), s.version
}

// Len returns the number of observations
func (s *MoodStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.moods)
}

// Version returns the change counter, bumped on every Add or Replace
func (s *MoodStore) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Subscribe registers fn for change notifications and returns a func that
// removes it
func (s *MoodStore) Subscribe(fn Listener) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *MoodStore) snapshotLocked() ([]models.MoodObservation, uint64, []Listener) {
	snapshot := append([]models.MoodObservation{}, s.moods...)
	listeners := make([]Listener, 0, len(s.listeners))
	for i := 0; i < s.nextSubID; i++ {
		if l, ok := s.listeners[i]; ok {
			listeners = append(listeners, l)
		}
	}
	return snapshot, s.version, listeners
}

// notify runs outside s.mu so listeners may read the store. notifyMu keeps
// deliveries in version order.
func notify(listeners []Listener, snapshot []models.MoodObservation, version uint64) {
	for _, l := range listeners {
		l(snapshot, version)
	}
}
