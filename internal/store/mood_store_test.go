package store

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/moodmap-backend-go/internal/models"
)

func obs(id string, mood int, ts int64) models.MoodObservation {
	return models.MoodObservation{ID: id, Mood: mood, Lat: 1, Lng: 2, Timestamp: ts}
}

func TestMoodStore_AddKeepsOrder(t *testing.T) {
	s := NewMoodStore()
	s.Add(obs("a", 1, 100))
	s.Add(obs("b", 2, 200))
	s.Add(obs("c", 3, 300))

	all := s.All()
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].ID)
	assert.Equal(t, "b", all[1].ID)
	assert.Equal(t, "c", all[2].ID)
	assert.Equal(t, uint64(3), s.Version())
}

func TestMoodStore_TimestampNonDecreasing(t *testing.T) {
	s := NewMoodStore()
	s.Add(obs("a", 1, 500))
	stored := s.Add(obs("b", 2, 400))

	assert.Equal(t, int64(500), stored.Timestamp)
	all := s.All()
	assert.Equal(t, int64(500), all[1].Timestamp)
}

func TestMoodStore_AllIsSnapshot(t *testing.T) {
	s := NewMoodStore()
	s.Add(obs("a", 1, 1))
	snap := s.All()
	s.Add(obs("b", 2, 2))

	assert.Len(t, snap, 1)
	assert.Equal(t, 2, s.Len())

	snap[0].Mood = 5
	assert.Equal(t, 1, s.All()[0].Mood)
}

func TestMoodStore_DuplicateIDsTolerated(t *testing.T) {
	s := NewMoodStore()
	s.Add(obs("same", 1, 1))
	s.Add(obs("same", 4, 2))
	assert.Equal(t, 2, s.Len())
}

func TestMoodStore_SubscribeReceivesFullSnapshots(t *testing.T) {
	s := NewMoodStore()
	var got [][]models.MoodObservation
	var versions []uint64
	unsubscribe := s.Subscribe(func(snapshot []models.MoodObservation, version uint64) {
		got = append(got, snapshot)
		versions = append(versions, version)
	})

	s.Add(obs("a", 1, 1))
	s.Replace([]models.MoodObservation{obs("x", 5, 1), obs("y", 4, 2)})
	unsubscribe()
	s.Add(obs("z", 3, 3))

	require.Len(t, got, 2)
	assert.Len(t, got[0], 1)
	assert.Len(t, got[1], 2)
	assert.Equal(t, []uint64{1, 2}, versions)
}

func TestMoodStore_ConcurrentAdds(t *testing.T) {
	s := NewMoodStore()
	var mu sync.Mutex
	last := uint64(0)
	ordered := true
	s.Subscribe(func(snapshot []models.MoodObservation, version uint64) {
		mu.Lock()
		defer mu.Unlock()
		if version <= last || uint64(len(snapshot)) != version {
			ordered = false
		}
		last = version
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Add(obs("m", 1+i%5, int64(i)))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, s.Len())
	assert.True(t, ordered)
	all := s.All()
	for i := 1; i < len(all); i++ {
		assert.GreaterOrEqual(t, all[i].Timestamp, all[i-1].Timestamp)
	}
}

func TestMoodStore_SnapshotCarriesVersion(t *testing.T) {
	s := NewMoodStore()
	moods, version := s.Snapshot()
	assert.Empty(t, moods)
	assert.Equal(t, uint64(0), version)

	s.Replace([]models.MoodObservation{obs("a", 1, 1), obs("b", 5, 2)})
	moods, version = s.Snapshot()
	assert.Len(t, moods, 2)
	assert.Equal(t, uint64(1), version)
}
