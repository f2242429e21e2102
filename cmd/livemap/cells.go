package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/eak1mov/go-livemap/projection"
	"github.com/eak1mov/go-livemap/viewport"
	"github.com/google/subcommands"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

type camera struct {
	lon, lat   float64
	zoom       float64
	width      int
	height     int
	projection string
	tileSize   int
}

func (c *camera) setFlags(f *flag.FlagSet) {
	f.Float64Var(&c.lon, "lon", 0, "Camera center longitude")
	f.Float64Var(&c.lat, "lat", 0, "Camera center latitude")
	f.Float64Var(&c.zoom, "z", 1, "Camera zoom")
	f.IntVar(&c.width, "w", 1024, "Screen width in pixels")
	f.IntVar(&c.height, "h", 768, "Screen height in pixels")
	f.StringVar(&c.projection, "proj", "mercator", "Map projection")
	f.IntVar(&c.tileSize, "tilesize", 256, "Tile size in pixels")
}

type cellsCmd struct {
	camera camera
}

func (c *cellsCmd) Name() string     { return "cells" }
func (c *cellsCmd) Synopsis() string { return "print cells visible from the camera" }
func (c *cellsCmd) Usage() string {
	return "livemap cells [-lon <deg> -lat <deg> -z <zoom> -w <px> -h <px> -proj <name>]\n"
}
func (c *cellsCmd) SetFlags(f *flag.FlagSet) {
	c.camera.setFlags(f)
}

func (c *cellsCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	proj, err := projection.ByName(c.camera.projection)
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	mp, err := projection.NewMapProjection(proj)
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	center, ok := mp.Project(orb.Point{c.camera.lon, c.camera.lat})
	if !ok {
		log.Printf("camera %v, %v is outside the projection domain", c.camera.lon, c.camera.lat)
		return subcommands.ExitFailure
	}

	vp := viewport.New(mp.MapRect(), orb.Point{float64(c.camera.width), float64(c.camera.height)},
		viewport.WithTileSize(c.camera.tileSize),
		viewport.WithCamera(center, c.camera.zoom))

	rect := vp.VisibleRect()
	fmt.Printf("zoom %v, cell zoom %d, visible %v - %v\n", vp.Zoom(), vp.CellZoom(), rect.Min, rect.Max)
	_, mercator := proj.(projection.Mercator)
	for _, key := range vp.VisibleCells() {
		tileID := key.TileID()
		fmt.Printf("%s\t%v\t%d", key, tileID, key.Code())
		if mercator {
			// web mercator cells coincide with slippy map tiles
			b := maptile.New(tileID.X, tileID.Y, maptile.Zoom(tileID.Z)).Bound()
			fmt.Printf("\t%.5f,%.5f,%.5f,%.5f", b.Min[0], b.Min[1], b.Max[0], b.Max[1])
		}
		fmt.Println()
	}
	return subcommands.ExitSuccess
}
