// Package blackmarble reads per-date nighttime-brightness raster tiles,
// crops them to a geographic window, and computes downsampled, normalized,
// and temporal-difference views of them. Missing samples are represented by
// NaNs throughout.
package blackmarble

import (
	"cmp"
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"
)

// A DateKey identifies one observation date. DateKeys order lexically, which
// for the date attributes found in tile files is also chronological order.
type DateKey string

// A Bounds is a geographic window in degrees.
type Bounds struct {
	South float64
	North float64
	West  float64
	East  float64
}

// Valid reports whether b's southern bound does not exceed its northern
// bound and its western bound does not exceed its eastern bound.
func (b Bounds) Valid() bool {
	return b.South <= b.North && b.West <= b.East
}

// A Tile is a brightness grid over part of one observation. Grid rows follow
// Lats and grid columns follow Lons.
type Tile struct {
	Grid *mat.Dense
	Lats []float64
	Lons []float64
}

// A TileKey is the canonical spatial identity of a tile: the first entries
// of its coordinate vectors. Two tiles from different dates cover the same
// geography exactly when their TileKeys are equal.
type TileKey struct {
	Lat float64
	Lon float64
}

// Key returns t's canonical spatial identity.
func (t *Tile) Key() TileKey {
	return TileKey{Lat: t.Lats[0], Lon: t.Lons[0]}
}

// crop returns t restricted to the entries of its coordinate vectors lying
// within b, inclusive of both endpoints. It returns false if t has no
// overlap with b.
func (t *Tile) crop(b Bounds) (*Tile, bool) {
	latFirst, latLast, ok := indexRange(t.Lats, b.South, b.North)
	if !ok {
		return nil, false
	}
	lonFirst, lonLast, ok := indexRange(t.Lons, b.West, b.East)
	if !ok {
		return nil, false
	}
	return &Tile{
		Grid: mat.DenseCopyOf(t.Grid.Slice(latFirst, latLast+1, lonFirst, lonLast+1)),
		Lats: slices.Clone(t.Lats[latFirst : latLast+1]),
		Lons: slices.Clone(t.Lons[lonFirst : lonLast+1]),
	}, true
}

// indexRange returns the first and last indexes of vals lying within
// [lo, hi], or false if no entry does.
func indexRange(vals []float64, lo, hi float64) (first, last int, ok bool) {
	first = -1
	for i, v := range vals {
		if lo <= v && v <= hi {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return 0, 0, false
	}
	return first, last, true
}

// A TileSet is the ordered sequence of tiles for one date. Its canonical
// order is by each tile's first latitude, then first longitude, which is
// independent of the order in which tile files were discovered.
type TileSet []*Tile

// sortCanonical sorts ts into canonical order.
func (ts TileSet) sortCanonical() {
	slices.SortFunc(ts, func(a, b *Tile) int {
		ka, kb := a.Key(), b.Key()
		if c := cmp.Compare(ka.Lat, kb.Lat); c != 0 {
			return c
		}
		return cmp.Compare(ka.Lon, kb.Lon)
	})
}

// Total returns the sum of all non-missing samples in ts.
func (ts TileSet) Total() float64 {
	total := 0.0
	for _, tile := range ts {
		for _, v := range tile.Grid.RawMatrix().Data {
			if !math.IsNaN(v) {
				total += v
			}
		}
	}
	return total
}

// A Result is the output of one pipeline invocation: the tiles to render
// plus what they represent. Renderers need nothing else to choose scales
// and legends.
type Result struct {
	Tiles      TileSet
	Normalized bool
	Difference bool
	Relative   bool
}
