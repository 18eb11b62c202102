package mock

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/moodmap-backend-go/internal/models"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestCities(t *testing.T) {
	moods := Cities(now)
	require.Len(t, moods, 10)

	assert.Equal(t, "milan", moods[0].ID)
	assert.Equal(t, "paris", moods[9].ID)
	assert.Equal(t, now.Add(-1000*time.Second).UnixMilli(), moods[9].Timestamp)
	assert.Equal(t, 5, moods[9].Mood)
	assert.Equal(t, 48.8566, moods[9].Lat)

	for i := 1; i < len(moods); i++ {
		assert.LessOrEqual(t, moods[i-1].Timestamp, moods[i].Timestamp)
	}
}

func TestRandom(t *testing.T) {
	moods := Random(300, rand.New(rand.NewSource(1)), now)
	require.Len(t, moods, 300)

	oldest := now.Add(-100000 * time.Second).UnixMilli()
	seen := make(map[int]bool)
	for i, m := range moods {
		assert.True(t, models.ValidMood(m.Mood))
		assert.True(t, m.Lat >= 35 && m.Lat < 70, "lat %f", m.Lat)
		assert.True(t, m.Lng >= -10 && m.Lng < 40, "lng %f", m.Lng)
		assert.GreaterOrEqual(t, m.Timestamp, oldest)
		assert.LessOrEqual(t, m.Timestamp, now.UnixMilli())
		if i > 0 {
			assert.LessOrEqual(t, moods[i-1].Timestamp, m.Timestamp)
		}
		seen[m.Mood] = true
	}
	assert.Len(t, seen, 5)

	assert.Empty(t, Random(0, nil, now))
}

func TestSeed(t *testing.T) {
	moods, err := Seed(ModeNone, 10, nil, now)
	require.NoError(t, err)
	assert.Empty(t, moods)

	moods, err = Seed(ModeCities, 0, nil, now)
	require.NoError(t, err)
	assert.Len(t, moods, 10)

	moods, err = Seed(ModeRandom, 0, rand.New(rand.NewSource(2)), now)
	require.NoError(t, err)
	assert.Len(t, moods, DefaultRandomCount)

	_, err = Seed("everything", 1, nil, now)
	assert.Error(t, err)
}
