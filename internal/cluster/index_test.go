package cluster

import (
	"math/rand"
	"sort"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/moodmap-backend-go/internal/models"
)

func moodOptions() Options {
	opts := DefaultOptions()
	opts.Accumulators = []Accumulator{
		Sum(models.PropSum, models.PropMood),
		Count(models.PropCount),
	}
	return opts
}

func moodPoint(id string, mood int, lat, lng float64) models.Feature {
	return models.MoodFeature(models.MoodObservation{ID: id, Mood: mood, Lat: lat, Lng: lng, Timestamp: 1})
}

func randomPoints(n int, seed int64) []models.Feature {
	rng := rand.New(rand.NewSource(seed))
	points := make([]models.Feature, n)
	for i := range points {
		points[i] = moodPoint(strconv.Itoa(i), 1+rng.Intn(5), 35+rng.Float64()*35, -10+rng.Float64()*50)
	}
	return points
}

func TestIndex_ParisPairClustersAtLowZoom(t *testing.T) {
	idx := NewIndex(moodOptions(), []models.Feature{
		moodPoint("a", 5, 48.8566, 2.3522),
		moodPoint("b", 1, 48.8570, 2.3525),
	})

	features := idx.World(2)
	require.Len(t, features, 1)
	c := features[0]
	assert.True(t, c.IsCluster())

	count, _ := c.FloatProp(models.PropCount)
	sum, _ := c.FloatProp(models.PropSum)
	pointCount, _ := c.IntProp(models.PropPointCount)
	assert.Equal(t, 2.0, count)
	assert.Equal(t, 6.0, sum)
	assert.Equal(t, 2, pointCount)
	assert.Equal(t, 3.0, sum/count)
	assert.InDelta(t, 2.35235, c.Geometry.Coordinates.Lng(), 1e-3)
	assert.InDelta(t, 48.8568, c.Geometry.Coordinates.Lat(), 1e-3)
}

func TestIndex_SplitsPastMaxZoom(t *testing.T) {
	idx := NewIndex(moodOptions(), []models.Feature{
		moodPoint("a", 5, 48.8566, 2.3522),
		moodPoint("b", 1, 48.8570, 2.3525),
	})

	features := idx.World(float64(idx.Options().MaxZoom + 1))
	require.Len(t, features, 2)

	var moods []int
	for _, f := range features {
		assert.False(t, f.IsCluster())
		m, _ := f.IntProp(models.PropMood)
		moods = append(moods, m)
	}
	sort.Ints(moods)
	assert.Equal(t, []int{1, 5}, moods)
}

func TestIndex_Empty(t *testing.T) {
	idx := NewIndex(moodOptions(), nil)
	for z := 0; z <= 16; z++ {
		assert.Empty(t, idx.World(float64(z)))
	}
	_, err := idx.ExpansionZoom(1)
	assert.ErrorIs(t, err, ErrClusterNotFound)
}

func TestIndex_SinglePoint(t *testing.T) {
	idx := NewIndex(moodOptions(), []models.Feature{moodPoint("solo", 4, 51.5, -0.1)})
	for z := 0; z <= 15; z++ {
		features := idx.World(float64(z))
		require.Len(t, features, 1)
		assert.False(t, features[0].IsCluster())
		m, _ := features[0].IntProp(models.PropMood)
		assert.Equal(t, 4, m)
	}
}

func TestIndex_AverageMatchesMembers(t *testing.T) {
	points := randomPoints(600, 7)
	idx := NewIndex(moodOptions(), points)

	for _, z := range []float64{0, 2, 4, 6, 9} {
		total := 0
		for _, f := range idx.World(z) {
			if !f.IsCluster() {
				total++
				continue
			}
			id, _ := f.IntProp(models.PropClusterID)
			n, _ := f.IntProp(models.PropPointCount)
			sum, _ := f.FloatProp(models.PropSum)
			count, _ := f.FloatProp(models.PropCount)

			leaves, err := idx.Leaves(id, n, 0)
			require.NoError(t, err)
			require.Len(t, leaves, n)

			moodSum := 0
			for _, l := range leaves {
				m, _ := l.IntProp(models.PropMood)
				moodSum += m
			}
			assert.Equal(t, float64(n), count)
			assert.Equal(t, float64(moodSum), sum)
			assert.InDelta(t, float64(moodSum)/float64(n), sum/count, 1e-12)
			total += n
		}
		assert.Equal(t, len(points), total, "zoom %v must account for every point", z)
	}
}

func TestIndex_ExpansionZoomSplitsCluster(t *testing.T) {
	idx := NewIndex(moodOptions(), randomPoints(300, 11))

	for _, f := range idx.World(3) {
		if !f.IsCluster() {
			continue
		}
		id, _ := f.IntProp(models.PropClusterID)
		zoom, err := idx.ExpansionZoom(id)
		require.NoError(t, err)
		assert.Greater(t, zoom, 3)
		assert.LessOrEqual(t, zoom, idx.Options().MaxZoom+1)

		children, err := idx.Children(id)
		require.NoError(t, err)
		assert.NotEmpty(t, children)
	}
}

func TestIndex_UnknownCluster(t *testing.T) {
	idx := NewIndex(moodOptions(), randomPoints(10, 3))

	_, err := idx.Children(999999)
	assert.ErrorIs(t, err, ErrClusterNotFound)
	_, err = idx.Leaves(5, 10, 0)
	assert.ErrorIs(t, err, ErrClusterNotFound)
	_, err = idx.ExpansionZoom(-1)
	assert.ErrorIs(t, err, ErrClusterNotFound)
}

func TestIndex_ExpansionZoomRejectsUnknownIDs(t *testing.T) {
	idx := NewIndex(moodOptions(), []models.Feature{
		moodPoint("a", 5, 48.8566, 2.3522),
		moodPoint("b", 1, 48.8570, 2.3525),
	})

	// ids whose encoded zoom lies past MaxZoom
	for _, id := range []int{424242, 999999, 1 << 20} {
		zoom, err := idx.ExpansionZoom(id)
		assert.ErrorIs(t, err, ErrClusterNotFound, id)
		assert.Zero(t, zoom, id)
	}

	world := idx.World(2)
	require.Len(t, world, 1)
	id, _ := world[0].IntProp(models.PropClusterID)
	zoom, err := idx.ExpansionZoom(id)
	require.NoError(t, err)
	assert.Equal(t, 15, zoom)
}

func TestIndex_LeavesPagination(t *testing.T) {
	var points []models.Feature
	for i := 0; i < 20; i++ {
		points = append(points, moodPoint(strconv.Itoa(i), 1+i%5, 10+float64(i)*0.001, 10))
	}
	idx := NewIndex(moodOptions(), points)
	features := idx.World(0)
	require.Len(t, features, 1)
	id, _ := features[0].IntProp(models.PropClusterID)

	first, err := idx.Leaves(id, 8, 0)
	require.NoError(t, err)
	second, err := idx.Leaves(id, 8, 8)
	require.NoError(t, err)
	third, err := idx.Leaves(id, 8, 16)
	require.NoError(t, err)

	assert.Len(t, first, 8)
	assert.Len(t, second, 8)
	assert.Len(t, third, 4)

	seen := map[string]bool{}
	for _, l := range append(append(first, second...), third...) {
		assert.False(t, seen[l.ID], "leaf %s returned twice", l.ID)
		seen[l.ID] = true
	}
	assert.Len(t, seen, 20)
}

func TestIndex_BBoxAcrossAntimeridian(t *testing.T) {
	idx := NewIndex(moodOptions(), []models.Feature{
		moodPoint("east", 3, 0, 179.5),
		moodPoint("west", 3, 0, -179.5),
		moodPoint("far", 3, 0, 0),
	})

	features := idx.Clusters(models.BBox{179, -10, -179, 10}, 10)
	ids := map[string]bool{}
	for _, f := range features {
		ids[f.ID] = true
	}
	assert.True(t, ids["east"])
	assert.True(t, ids["west"])
	assert.False(t, ids["far"])
}

func TestIndex_Deterministic(t *testing.T) {
	points := randomPoints(200, 5)
	a := NewIndex(moodOptions(), points)
	b := NewIndex(moodOptions(), points)
	for z := 0; z <= 15; z++ {
		assert.Equal(t, a.World(float64(z)), b.World(float64(z)))
	}
}

func TestKDIndex_MatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	n := 1000
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i := range xs {
		xs[i] = rng.Float64()
		ys[i] = rng.Float64()
	}
	kd := newKDIndex(xs, ys, 16)

	got := kd.rangeQuery(0.2, 0.3, 0.5, 0.6)
	var want []int
	for i := range xs {
		if xs[i] >= 0.2 && xs[i] <= 0.5 && ys[i] >= 0.3 && ys[i] <= 0.6 {
			want = append(want, i)
		}
	}
	sort.Ints(got)
	assert.Equal(t, want, got)

	got = kd.within(0.5, 0.5, 0.1)
	want = nil
	for i := range xs {
		if sqDist(xs[i], ys[i], 0.5, 0.5) <= 0.01 {
			want = append(want, i)
		}
	}
	sort.Ints(got)
	assert.Equal(t, want, got)
}

func TestAbbreviate(t *testing.T) {
	assert.Equal(t, "7", Abbreviate(7))
	assert.Equal(t, "999", Abbreviate(999))
	assert.Equal(t, "1.2k", Abbreviate(1234))
	assert.Equal(t, "10k", Abbreviate(9960))
	assert.Equal(t, "12k", Abbreviate(12345))
}

func TestAccumulatorsAreAssociative(t *testing.T) {
	sum := Sum("sum", models.PropMood)
	count := Count("count")
	parts := []float64{1, 5, 3, 2, 4}

	left := sum.Reduce(sum.Reduce(parts[0], parts[1]), sum.Reduce(parts[2], sum.Reduce(parts[3], parts[4])))
	flat := 0.0
	for _, p := range parts {
		flat = sum.Reduce(flat, p)
	}
	assert.Equal(t, flat, left)
	assert.Equal(t, 1.0, count.Map(models.Feature{}))
	assert.Equal(t, 0.0, sum.Map(models.Feature{Properties: map[string]interface{}{}}))
}
