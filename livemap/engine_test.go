package livemap_test

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/eak1mov/go-livemap/cell"
	"github.com/eak1mov/go-livemap/feature"
	"github.com/eak1mov/go-livemap/internal"
	"github.com/eak1mov/go-livemap/layers"
	"github.com/eak1mov/go-livemap/livemap"
	"github.com/eak1mov/go-livemap/projection"
	"github.com/eak1mov/go-livemap/tile"
	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"
)

const frame = 16 * time.Millisecond

// tileCenter is the (lon, lat) center of the z2/1/1 tile.
func tileCenter(t *testing.T) orb.Point {
	t.Helper()
	geo, ok := projection.MustMapProjection(projection.Mercator{}).Invert(orb.Point{96, 96})
	require.True(t, ok)
	return geo
}

func newEngine(t *testing.T, fetcher tile.Fetcher, opts ...livemap.Option) *livemap.Engine {
	t.Helper()
	opts = append([]livemap.Option{
		livemap.WithFetcher(fetcher),
		livemap.WithCamera(tileCenter(t), 2),
		livemap.WithClock(internal.NewManualClock(time.Millisecond)),
		livemap.WithFrameBudget(time.Hour),
	}, opts...)
	e, err := livemap.New(200, 200, opts...)
	require.NoError(t, err)
	return e
}

func TestNewErrors(t *testing.T) {
	_, err := livemap.New(100, 100)
	require.ErrorIs(t, err, livemap.ErrNoFetcher)

	_, err = livemap.New(100, 100,
		livemap.WithFetcher(internal.NewFakeFetcher()),
		livemap.WithCamera(orb.Point{0, 89}, 3))
	require.ErrorIs(t, err, livemap.ErrOutsideDomain)
}

func TestEngineRendersVisibleTile(t *testing.T) {
	fetcher := internal.NewFakeFetcher()
	fetcher.Respond = func(tile.ID) ([]byte, error) { return internal.VectorTile(10, false), nil }
	var notified []string
	e := newEngine(t, fetcher,
		livemap.WithDebugStats(),
		livemap.WithDirtyHandler(func(layer string) { notified = append(notified, layer) }))

	if diff := cmp.Diff([]cell.Key{"03"}, e.Viewport().VisibleCells()); diff != "" {
		t.Fatalf("visible cells mismatch (-want+got):\n%v", diff)
	}

	e.Tick(frame)
	e.Tick(frame)
	require.False(t, e.Loading())
	require.Equal(t, 1, e.Fetches())
	require.Equal(t, 1, fetcher.Calls(tile.ID{Z: 2, X: 1, Y: 1}))

	tiles := e.Tiles()
	require.Len(t, tiles, 2)
	require.Equal(t, layers.World, tiles[0].Kind)
	require.Equal(t, layers.Labels, tiles[1].Kind)
	for _, dt := range tiles {
		require.Equal(t, cell.Key("03"), dt.Key)
		require.False(t, dt.Donor)
		require.False(t, dt.NonCacheable)
		require.Equal(t, image.Rect(0, 0, 256, 256), dt.Image.Bounds())
		require.InDelta(t, -28, dt.Rect.Min[0], 1e-6)
		require.InDelta(t, -28, dt.Rect.Min[1], 1e-6)
		require.InDelta(t, 228, dt.Rect.Max[0], 1e-6)
		require.InDelta(t, 228, dt.Rect.Max[1], 1e-6)
	}

	if diff := cmp.Diff([]string{"ground", "labels"}, notified); diff != "" {
		t.Errorf("notified mismatch (-want+got):\n%v", diff)
	}
	if diff := cmp.Diff([]string{"ground", "labels"}, e.TakeDirtyLayers()); diff != "" {
		t.Errorf("dirty layers mismatch (-want+got):\n%v", diff)
	}
	require.Empty(t, e.TakeDirtyLayers())

	stats := e.Stats()
	require.Len(t, stats, 1)
	require.Equal(t, 10, stats["03"].Features)
	require.Equal(t, 2, stats["03"].Layers)
}

func TestEngineLoading(t *testing.T) {
	fetcher := internal.NewFakeFetcher()
	e := newEngine(t, fetcher)
	require.Nil(t, e.Stats())

	e.Tick(frame)
	require.True(t, e.Loading())
	d := e.Diagnostics()
	require.Equal(t, 1, d.DownloadingTiles)
	require.True(t, d.Loading)

	fetcher.Resolve(tile.ID{Z: 2, X: 1, Y: 1}, internal.VectorTile(2, true))
	e.Tick(frame)
	require.False(t, e.Loading())
	require.Zero(t, e.Diagnostics().DownloadingTiles)
}

func TestEnginePlaceholderRequestedAgain(t *testing.T) {
	fetcher := internal.NewFakeFetcher()
	fetcher.Respond = func(tile.ID) ([]byte, error) { return nil, errors.New("502 bad gateway") }
	e := newEngine(t, fetcher)

	e.Tick(frame)
	e.Tick(frame)
	tiles := e.Tiles()
	require.Len(t, tiles, 2)
	for _, dt := range tiles {
		require.True(t, dt.NonCacheable)
	}
	e.Tick(frame)
	require.Equal(t, 1, e.Fetches())

	e.Move(1, 0)
	e.Tick(frame)
	require.Equal(t, 2, e.Fetches())

	e.Tick(frame)
	e.Invalidate()
	e.Tick(frame)
	require.Equal(t, 3, fetcher.Calls(tile.ID{Z: 2, X: 1, Y: 1}))
}

func TestEngineFeatures(t *testing.T) {
	e := newEngine(t, internal.NewFakeFetcher())
	center := tileCenter(t)

	point, err := e.AddPoint(center, feature.Style{Radius: 3, Fill: color.Black})
	require.NoError(t, err)
	_, err = e.AddText(orb.Point{center[0], 88}, "far north", feature.Style{})
	require.NoError(t, err)
	_, err = e.AddPie(center, 10, []float64{-1}, nil)
	require.ErrorIs(t, err, feature.ErrInvalidFeature)

	e.Tick(frame)
	got := e.Features()
	require.Len(t, got, 1)
	require.Equal(t, point, got[0].Entity)
	require.Contains(t, e.TakeDirtyLayers(), "features")

	require.True(t, e.RemoveFeature(point))
	require.Empty(t, e.Features())
	require.Equal(t, []string{"features"}, e.TakeDirtyLayers())
}

func TestEngineCamera(t *testing.T) {
	e := newEngine(t, internal.NewFakeFetcher())

	require.NoError(t, e.SetCenterGeo(orb.Point{0, 0}))
	geo, ok := e.CenterGeo()
	require.True(t, ok)
	require.InDelta(t, 0, geo[0], 1e-9)
	require.InDelta(t, 0, geo[1], 1e-9)
	require.ErrorIs(t, e.SetCenterGeo(orb.Point{0, 86}), livemap.ErrOutsideDomain)

	require.NoError(t, e.FlyTo(orb.Point{90, 0}, 4, time.Second))
	e.Tick(600 * time.Millisecond)
	require.True(t, e.Viewport().Flying())
	e.Tick(600 * time.Millisecond)
	require.False(t, e.Viewport().Flying())
	require.Equal(t, 4.0, e.Zoom())
	geo, _ = e.CenterGeo()
	require.InDelta(t, 90, geo[0], 1e-9)
	require.InDelta(t, 0, geo[1], 1e-9)

	e.SetZoom(30)
	require.Equal(t, 18.0, e.Zoom())

	require.NoError(t, e.FitGeoBounds(orb.Bound{Min: orb.Point{-45, -30}, Max: orb.Point{45, 30}}))
	geo, _ = e.CenterGeo()
	require.InDelta(t, 0, geo[0], 1e-9)
	require.InDelta(t, 0, geo[1], 1e-9)
	rect := e.Viewport().VisibleRect()
	require.InDelta(t, 96, rect.Min[0], 1e-6)
	require.InDelta(t, 160, rect.Max[0], 1e-6)

	before := e.Zoom()
	e.ZoomAt(1, orb.Point{100, 100})
	require.Equal(t, before+1, e.Zoom())
}

func TestEngineRaster(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 256, 256))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{0x20, 0x40, 0x60, 0xff}), image.Point{}, draw.Src)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	fetcher := internal.NewFakeFetcher()
	fetcher.Respond = func(tile.ID) ([]byte, error) { return buf.Bytes(), nil }
	e := newEngine(t, fetcher, livemap.WithRaster())
	e.Tick(frame)
	e.Tick(frame)

	tiles := e.Tiles()
	require.Len(t, tiles, 1)
	require.Equal(t, layers.Raster, tiles[0].Kind)
	require.Equal(t, image.Rect(0, 0, 256, 256), tiles[0].Image.Bounds())
	require.Equal(t, color.RGBA{0x20, 0x40, 0x60, 0xff}, tiles[0].Image.At(64, 64))
	require.Equal(t, []string{"http_ground"}, e.TakeDirtyLayers())
}

func TestDiagnosticsFreezing(t *testing.T) {
	fetcher := internal.NewFakeFetcher()
	e, err := livemap.New(200, 200,
		livemap.WithFetcher(fetcher),
		livemap.WithClock(internal.NewManualClock(20*time.Millisecond)))
	require.NoError(t, err)

	e.Tick(frame)
	d := e.Diagnostics()
	require.Equal(t, frame, d.TimerTick)
	require.Positive(t, d.Entities)
	require.NotEmpty(t, d.SlowestSystem)
	require.GreaterOrEqual(t, d.SlowestTime, 20*time.Millisecond)
	require.True(t, strings.HasPrefix(d.Freezing, "Freezed by: "), d.Freezing)

	lines := d.Lines()
	require.Contains(t, lines, "Timer tick: 16ms")
	require.Contains(t, lines, d.Freezing)
}
