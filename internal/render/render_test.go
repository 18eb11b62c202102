package render

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/moodmap-backend-go/internal/icons"
	"github.com/jengzang/moodmap-backend-go/internal/mapengine"
	"github.com/jengzang/moodmap-backend-go/internal/metrics"
	"github.com/jengzang/moodmap-backend-go/internal/models"
	"github.com/jengzang/moodmap-backend-go/internal/store"
)

var testOptions = Options{ClusterRadius: 40, ClusterMaxZoom: 14}

func newLoadedMap(zoom float64) *mapengine.Map {
	m := mapengine.New(mapengine.Options{
		Style:  "mapbox://styles/mapbox/standard",
		Camera: models.Camera{Center: models.LngLat{Lng: 2.3522, Lat: 48.8566}, Zoom: zoom, Width: 800, Height: 600},
	})
	m.MarkStyleLoaded()
	return m
}

func okLoader(calls *int32) ImageLoader {
	return ImageLoaderFunc(func(_ context.Context, a icons.Asset) (mapengine.Image, error) {
		if calls != nil {
			atomic.AddInt32(calls, 1)
		}
		return mapengine.Image{Name: a.Name, URL: a.Path, Width: 64, Height: 64}, nil
	})
}

func parisPair() []models.MoodObservation {
	return []models.MoodObservation{
		{ID: "a", Mood: 5, Lat: 48.8566, Lng: 2.3522, Timestamp: 1},
		{ID: "b", Mood: 1, Lat: 48.8570, Lng: 2.3525, Timestamp: 2},
	}
}

func TestAverageMood(t *testing.T) {
	tests := []struct {
		sum, count float64
		want       int
	}{
		{6, 2, 3},
		{7, 2, 4},
		{9, 2, 5},
		{4, 1, 4},
		{0, 0, 3},
		{100, 10, 5},
		{0, 5, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AverageMood(tt.sum, tt.count), "sum=%v count=%v", tt.sum, tt.count)
	}
}

func clusterFeature(pointCount int, sum float64) models.Feature {
	return models.NewPointFeature("cluster-1", 0, 0, map[string]interface{}{
		models.PropCluster:    true,
		models.PropClusterID:  1,
		models.PropPointCount: pointCount,
		models.PropSum:        sum,
		models.PropCount:      float64(pointCount),
	})
}

func TestClusterStyleSteps(t *testing.T) {
	small := ClusterStyle(clusterFeature(9, 18))
	assert.Equal(t, 0.5, small.IconSize)
	assert.Equal(t, 15.0, small.Radius)
	assert.Equal(t, "mood-2", small.Icon)

	mid := ClusterStyle(clusterFeature(10, 40))
	assert.Equal(t, 0.65, mid.IconSize)
	assert.Equal(t, 20.0, mid.Radius)
	assert.Equal(t, "mood-4", mid.Icon)

	large := ClusterStyle(clusterFeature(30, 150))
	assert.Equal(t, 0.8, large.IconSize)
	assert.Equal(t, 25.0, large.Radius)
	assert.Equal(t, icons.Color(5), large.Color)
}

func TestClusterLabelStyle(t *testing.T) {
	f := clusterFeature(2, 6)
	f.Properties[models.PropPointCountAbbreviated] = "2"
	assert.Equal(t, "3 (2)", ClusterLabelStyle(f).Text)

	big := clusterFeature(1500, 4500)
	assert.Equal(t, "3 (1.5k)", ClusterLabelStyle(big).Text)
}

func TestPointStyleFallback(t *testing.T) {
	s := PointStyle(models.MoodFeature(models.MoodObservation{ID: "x", Mood: 9}))
	assert.Equal(t, "mood-3", s.Icon)
	assert.Equal(t, icons.FallbackColor, s.Color)

	s = PointStyle(models.MoodFeature(models.MoodObservation{ID: "y", Mood: 1}))
	assert.Equal(t, "mood-1", s.Icon)
	assert.Equal(t, "#e74c3c", s.Color)
}

func TestBuildFeatureCollection(t *testing.T) {
	fc := BuildFeatureCollection([]models.MoodObservation{{ID: "x", Mood: 4, Lat: 51.5, Lng: -0.1, Timestamp: 42}})
	require.Len(t, fc.Features, 1)
	f := fc.Features[0]
	assert.Equal(t, -0.1, f.Geometry.Coordinates.Lng())
	assert.Equal(t, 51.5, f.Geometry.Coordinates.Lat())
	mood, _ := f.IntProp(models.PropMood)
	assert.Equal(t, 4, mood)

	empty := BuildFeatureCollection(nil)
	assert.NotNil(t, empty.Features)
	assert.Empty(t, empty.Features)
	assert.Equal(t, models.TypeFeatureCollection, empty.Type)
}

func TestAdapter_StartDeclaresLayers(t *testing.T) {
	m := newLoadedMap(2)
	a := NewAdapter(m, okLoader(nil), testOptions, nil, metrics.New())

	_, err := a.Update(parisPair(), 1)
	require.NoError(t, err)

	report, err := a.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{ClusterLayerID, ClusterCountLayerID, UnclusteredLayerID}, report.Layers)
	assert.Empty(t, report.SkippedLayers)
	assert.Len(t, report.Images, 5)

	rendered := m.Rendered()
	require.Len(t, rendered, 2)
	for _, rf := range rendered {
		assert.True(t, rf.Feature.IsCluster())
	}
	labels := m.QueryRenderedFeatures(models.ScreenPoint{X: 400, Y: 300}, ClusterCountLayerID)
	require.Len(t, labels, 1)
	assert.Equal(t, "3 (2)", labels[0].Style.Text)

	_, err = a.Start(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyStarted)
}

func TestAdapter_UpdateIsIdempotent(t *testing.T) {
	m := newLoadedMap(2)
	a := NewAdapter(m, okLoader(nil), testOptions, nil, nil)
	_, err := a.Start(context.Background())
	require.NoError(t, err)

	var diffs int
	m.OnRender(func(mapengine.RenderDiff) { diffs++ })

	changed, err := a.Update(parisPair(), 1)
	require.NoError(t, err)
	assert.True(t, changed)
	before := m.Rendered()

	changed, err = a.Update(parisPair(), 2)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, before, m.Rendered())
	assert.Equal(t, 1, diffs)
}

func TestAdapter_DropsStaleVersions(t *testing.T) {
	m := newLoadedMap(2)
	a := NewAdapter(m, okLoader(nil), testOptions, nil, nil)
	_, err := a.Start(context.Background())
	require.NoError(t, err)

	_, err = a.Update(parisPair(), 5)
	require.NoError(t, err)
	changed, err := a.Update(nil, 3)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Len(t, a.Snapshot().Features, 2)
	assert.Equal(t, uint64(5), a.Version())
}

func TestAdapter_EmptyStoreRendersNothing(t *testing.T) {
	m := newLoadedMap(2)
	a := NewAdapter(m, okLoader(nil), testOptions, nil, nil)
	s := store.NewMoodStore()
	defer a.Bind(s)()

	_, err := a.Start(context.Background())
	require.NoError(t, err)
	assert.Empty(t, m.Rendered())
	assert.NotNil(t, a.Source().Data().Features)
}

func TestAdapter_BindFollowsStore(t *testing.T) {
	m := newLoadedMap(16)
	a := NewAdapter(m, okLoader(nil), testOptions, nil, nil)
	_, err := a.Start(context.Background())
	require.NoError(t, err)

	s := store.NewMoodStore()
	unbind := a.Bind(s)
	for _, o := range parisPair() {
		s.Add(o)
	}
	assert.Len(t, m.Rendered(), 2)
	assert.Equal(t, s.Version(), a.Version())

	unbind()
	s.Add(models.MoodObservation{ID: "c", Mood: 3, Lat: 48.857, Lng: 2.352, Timestamp: 3})
	assert.Len(t, a.Snapshot().Features, 2)
}

func failingLoader(mood int) ImageLoader {
	return ImageLoaderFunc(func(_ context.Context, a icons.Asset) (mapengine.Image, error) {
		if a.Mood == mood {
			return mapengine.Image{}, errors.New("404")
		}
		return mapengine.Image{Name: a.Name}, nil
	})
}

func TestAdapter_FailedIconFallsBackToNeutral(t *testing.T) {
	m := newLoadedMap(2)
	a := NewAdapter(m, failingLoader(2), testOptions, nil, nil)
	_, err := a.Update([]models.MoodObservation{
		{ID: "a", Mood: 2, Lat: 48.8566, Lng: 2.3522, Timestamp: 1},
		{ID: "b", Mood: 2, Lat: 48.8570, Lng: 2.3525, Timestamp: 2},
	}, 1)
	require.NoError(t, err)

	report, err := a.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{ClusterLayerID, ClusterCountLayerID, UnclusteredLayerID}, report.Layers)
	assert.Empty(t, report.SkippedLayers)
	assert.Contains(t, report.FailedImages, "mood-2")
	assert.Equal(t, []string{"mood-2"}, report.FallbackImages)
	assert.False(t, m.HasImage("mood-2"))

	hits := m.QueryRenderedFeatures(models.ScreenPoint{X: 400, Y: 300}, ClusterLayerID)
	require.Len(t, hits, 1)
	assert.Equal(t, "mood-3", hits[0].Style.Icon)
	assert.Equal(t, icons.Color(2), hits[0].Style.Color)
}

func TestAdapter_FailedNeutralIconSkipsLayers(t *testing.T) {
	m := newLoadedMap(2)
	a := NewAdapter(m, failingLoader(models.NeutralMood), testOptions, nil, nil)
	_, err := a.Update(parisPair(), 1)
	require.NoError(t, err)

	report, err := a.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{ClusterCountLayerID}, report.Layers)
	assert.Equal(t, []string{ClusterLayerID, UnclusteredLayerID}, report.SkippedLayers)
	assert.False(t, m.HasLayer(ClusterLayerID))
	assert.True(t, m.HasImage("mood-5"))
}

func TestIconSet(t *testing.T) {
	var all IconSet
	assert.Equal(t, "mood-4", all.Icon(4))
	assert.Empty(t, all.Missing())

	some := IconSet(func(name string) bool { return name != "mood-4" && name != "mood-1" })
	assert.Equal(t, "mood-3", some.Icon(4))
	assert.Equal(t, "mood-5", some.Icon(5))
	assert.Equal(t, []string{"mood-1", "mood-4"}, some.Missing())
	assert.Equal(t, "mood-3", some.PointStyle(models.MoodFeature(models.MoodObservation{ID: "x", Mood: 1})).Icon)
}

func TestAdapter_StartAfterRemove(t *testing.T) {
	m := mapengine.New(mapengine.Options{})
	a := NewAdapter(m, okLoader(nil), testOptions, nil, nil)
	m.Remove()

	_, err := a.Start(context.Background())
	assert.ErrorIs(t, err, mapengine.ErrMapRemoved)
}

func TestPreloader_SkipsRegisteredImages(t *testing.T) {
	m := newLoadedMap(2)
	require.NoError(t, m.AddImage(mapengine.Image{Name: "mood-1"}))

	var calls int32
	p := NewPreloader(okLoader(&calls), nil, nil)
	res := p.Preload(context.Background(), m, icons.All())
	assert.Empty(t, res.Failed)
	assert.Equal(t, []string{"mood-1", "mood-2", "mood-3", "mood-4", "mood-5"}, res.Loaded)
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))

	res = p.Preload(context.Background(), m, icons.All())
	assert.Len(t, res.Loaded, 5)
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
}

func TestPreloader_DiscardsAfterRemove(t *testing.T) {
	m := newLoadedMap(2)
	loader := ImageLoaderFunc(func(_ context.Context, a icons.Asset) (mapengine.Image, error) {
		m.Remove()
		return mapengine.Image{Name: a.Name}, nil
	})
	res := NewPreloader(loader, nil, nil).Preload(context.Background(), m, icons.All()[:1])
	assert.ErrorIs(t, res.Failed["mood-1"], mapengine.ErrMapRemoved)
	assert.Empty(t, m.Images())
}

func TestDirLoader(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "mood-icons")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	img := image.NewRGBA(image.Rect(0, 0, 8, 6))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	f, err := os.Create(filepath.Join(dir, "rating_4.png"))
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	loader := DirLoader{Root: root, BaseURL: "http://localhost:8080/"}
	got, err := loader.Load(context.Background(), icons.All()[3])
	require.NoError(t, err)
	assert.Equal(t, "mood-4", got.Name)
	assert.Equal(t, 8, got.Width)
	assert.Equal(t, 6, got.Height)
	assert.Equal(t, "http://localhost:8080/mood-icons/rating_4.png", got.URL)

	_, err = loader.Load(context.Background(), icons.All()[0])
	assert.Error(t, err)
}
