package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log"
	"log/slog"
	"maps"
	"math"
	"os"
	"slices"
	"time"

	"github.com/eak1mov/go-livemap/livemap"
	"github.com/eak1mov/go-livemap/projection"
	"github.com/eak1mov/go-livemap/tile"
	"github.com/eak1mov/go-livemap/xyz"
	"github.com/google/subcommands"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/image/draw"
)

const frameTime = 16 * time.Millisecond

type renderCmd struct {
	camera       camera
	inputFormat  string
	inputPath    string
	outputPath   string
	tilesPattern string
	featuresPath string
	timeout      time.Duration
	stats        bool
	verbose      bool
	fit          bool
}

func (c *renderCmd) Name() string     { return "render" }
func (c *renderCmd) Synopsis() string { return "render the map seen from the camera into a png" }
func (c *renderCmd) Usage() string {
	return "livemap render -i <path|url> -o <path> [-if <format> -fit -t <pattern> -features <geojson> -lon <deg> -lat <deg> -z <zoom>]\n"
}
func (c *renderCmd) SetFlags(f *flag.FlagSet) {
	c.camera.setFlags(f)
	f.StringVar(&c.inputPath, "i", "", "Input tileset path, xyz pattern or comma separated url templates")
	f.StringVar(&c.inputFormat, "if", "", "Input format (mbtiles, pmtiles, xyz, http)")
	f.StringVar(&c.outputPath, "o", "map.png", "Output png path")
	f.StringVar(&c.tilesPattern, "t", "", "Output pattern for rendered tiles (e.g. out/{z}/{x}/{y}.png)")
	f.StringVar(&c.featuresPath, "features", "", "GeoJSON feature collection drawn over the map")
	f.DurationVar(&c.timeout, "timeout", time.Minute, "Give up waiting for tiles after this duration")
	f.BoolVar(&c.stats, "stats", false, "Print per-cell statistics")
	f.BoolVar(&c.verbose, "v", false, "Log engine events to stderr")
	f.BoolVar(&c.fit, "fit", false, "Place the camera from the tileset center or bounds")
}

func (c *renderCmd) newEngine(src *source) (*livemap.Engine, error) {
	proj, err := projection.ByName(c.camera.projection)
	if err != nil {
		return nil, err
	}
	opts := []livemap.Option{
		livemap.WithFetcher(src.fetcher),
		livemap.WithProjection(proj),
		livemap.WithTileSize(c.camera.tileSize),
		livemap.WithCamera(orb.Point{c.camera.lon, c.camera.lat}, c.camera.zoom),
	}
	if info := src.info; c.fit && info.MaxZoom > 0 {
		opts = append(opts, livemap.WithZoomRange(float64(info.MinZoom), float64(info.MaxZoom)))
	}
	if src.info.Raster {
		opts = append(opts, livemap.WithRaster())
	}
	if c.stats {
		opts = append(opts, livemap.WithDebugStats())
	}
	if c.verbose {
		opts = append(opts, livemap.WithLogger(slog.New(slog.NewTextHandler(os.Stderr, nil))))
	}
	return livemap.New(c.camera.width, c.camera.height, opts...)
}

func (c *renderCmd) addFeatures(e *livemap.Engine) error {
	data, err := os.ReadFile(c.featuresPath)
	if err != nil {
		return err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return err
	}
	for _, f := range fc.Features {
		feature, ok := fromGeoJSON(f)
		if !ok {
			log.Printf("skipping unsupported geometry %s", f.Geometry.GeoJSONType())
			continue
		}
		if _, err := e.AddFeature(feature); err != nil {
			return err
		}
	}
	return nil
}

// wait ticks the engine in real time until nothing is loading.
func (c *renderCmd) wait(e *livemap.Engine) error {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("fetching tiles"),
		progressbar.OptionShowCount())
	defer func() {
		bar.Finish()
		fmt.Println()
	}()

	deadline := time.Now().Add(c.timeout)
	ticker := time.NewTicker(frameTime)
	defer ticker.Stop()

	last := time.Now()
	for first := true; first || e.Loading(); first = false {
		now := <-ticker.C
		e.Tick(now.Sub(last))
		last = now
		bar.Set(e.Fetches())
		if now.After(deadline) {
			return fmt.Errorf("tiles still loading after %v", c.timeout)
		}
	}
	return nil
}

func (c *renderCmd) compose(e *livemap.Engine) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, c.camera.width, c.camera.height))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	for _, t := range e.Tiles() {
		rect := image.Rect(
			int(math.Floor(t.Rect.Min[0])), int(math.Floor(t.Rect.Min[1])),
			int(math.Ceil(t.Rect.Max[0])), int(math.Ceil(t.Rect.Max[1])))
		draw.ApproxBiLinear.Scale(dst, rect, t.Image, t.Image.Bounds(), draw.Over, nil)
	}
	drawFeatures(dst, e.Viewport(), e.Features())
	return dst
}

func (c *renderCmd) writeTiles(e *livemap.Engine) error {
	writer, err := xyz.OpenDir(c.tilesPattern)
	if err != nil {
		return err
	}
	for _, t := range e.Tiles() {
		if t.Donor || t.NonCacheable {
			continue
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, t.Image); err != nil {
			return err
		}
		if err := writer.WriteTile(t.Key.TileID(), buf.Bytes()); err != nil {
			return err
		}
	}
	return writer.Finalize()
}

func (c *renderCmd) printStats(e *livemap.Engine) {
	stats := e.Stats()
	for _, key := range slices.Sorted(maps.Keys(stats)) {
		s := stats[key]
		fmt.Printf("%s\tfetch %v\tparse %v\trender %v\t%d bytes\t%d features\t%d layers\t%s\n",
			key, s.FetchTime, s.ParseTime, s.RenderTime, s.Size, s.Features, s.Layers, s.Err)
	}
	for _, line := range e.Diagnostics().Lines() {
		fmt.Println(line)
	}
}

// fitCamera prefers the declared center, then the bounds.
func fitCamera(e *livemap.Engine, info tile.Info) error {
	switch {
	case info.Center != (orb.Point{}) || info.CenterZoom != 0:
		if err := e.SetCenterGeo(info.Center); err != nil {
			return err
		}
		e.SetZoom(float64(info.CenterZoom))
	case info.Bounds != (orb.Bound{}):
		return e.FitGeoBounds(info.Bounds)
	default:
		log.Println("tileset declares neither center nor bounds, keeping the camera")
	}
	return nil
}

func (c *renderCmd) run() error {
	src, err := openSource(c.inputFormat, c.inputPath)
	if err != nil {
		return err
	}
	defer src.Close()

	e, err := c.newEngine(src)
	if err != nil {
		return err
	}
	if c.fit {
		if err := fitCamera(e, src.info); err != nil {
			return err
		}
	}
	if c.featuresPath != "" {
		if err := c.addFeatures(e); err != nil {
			return err
		}
	}
	if err := c.wait(e); err != nil {
		return err
	}

	file, err := os.Create(c.outputPath)
	if err != nil {
		return err
	}
	defer file.Close()
	if err := png.Encode(file, c.compose(e)); err != nil {
		return err
	}

	if c.tilesPattern != "" {
		if err := c.writeTiles(e); err != nil {
			return err
		}
	}
	if c.stats {
		c.printStats(e)
	}
	return nil
}

func (c *renderCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if c.inputPath == "" {
		log.Println("no input tileset")
		return subcommands.ExitUsageError
	}
	if err := c.run(); err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
