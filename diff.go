package blackmarble

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// A Mode selects what one pipeline invocation produces.
type Mode int

const (
	// ModeSingle returns one date's tiles.
	ModeSingle Mode = iota
	// ModeDifference returns later minus earlier, elementwise.
	ModeDifference
	// ModeRelative returns later divided by earlier, with the new-light
	// sentinel for cells whose earlier value is zero.
	ModeRelative
)

// A Request describes one pipeline invocation.
type Request struct {
	Mode      Mode
	Date      DateKey // the only date in single mode, the earlier date otherwise
	LaterDate DateKey
	Bounds    Bounds
	Factor    int // downsampling factor; values below 2 disable downsampling
	Normalize bool
}

// Do runs the pipeline described by req: load and crop, optionally
// downsample, optionally normalize, and in the two-date modes difference
// the results.
func (s *Store) Do(req Request) (*Result, error) {
	switch req.Mode {
	case ModeSingle:
		set, err := s.loadProcessed(req.Date, req)
		if err != nil {
			return nil, err
		}
		return &Result{Tiles: set, Normalized: req.Normalize}, nil
	case ModeDifference, ModeRelative:
		return s.Difference(req)
	default:
		return nil, fmt.Errorf("unknown mode %d", req.Mode)
	}
}

func (s *Store) loadProcessed(date DateKey, req Request) (TileSet, error) {
	set, err := s.Load(date, req.Bounds)
	if err != nil {
		return nil, err
	}
	if req.Factor > 1 {
		set = Downsample(set, req.Factor)
	}
	if req.Normalize {
		set, err = Normalize(set)
		if err != nil {
			return nil, err
		}
	}
	return set, nil
}

// Difference loads and processes req.Date and req.LaterDate independently,
// matches the two tile sets by their canonical spatial keys, and computes
// the per-cell change of each matched pair. The returned tiles carry the
// earlier date's coordinate vectors.
//
// Tiles present for only one date, or matched tiles with different grid
// shapes, make the comparison meaningless and return an *AlignmentError.
func (s *Store) Difference(req Request) (*Result, error) {
	earlier, err := s.loadProcessed(req.Date, req)
	if err != nil {
		return nil, err
	}
	later, err := s.loadProcessed(req.LaterDate, req)
	if err != nil {
		return nil, err
	}

	laterByKey := make(map[TileKey]*Tile, len(later))
	for _, tile := range later {
		laterByKey[tile.Key()] = tile
	}

	var alignErr AlignmentError
	for _, tile := range earlier {
		laterTile, ok := laterByKey[tile.Key()]
		if !ok {
			alignErr.EarlierOnly = append(alignErr.EarlierOnly, tile.Key())
			continue
		}
		er, ec := tile.Grid.Dims()
		lr, lc := laterTile.Grid.Dims()
		if er != lr || ec != lc {
			alignErr.MismatchedShape = append(alignErr.MismatchedShape, tile.Key())
		}
	}
	earlierKeys := make(map[TileKey]struct{}, len(earlier))
	for _, tile := range earlier {
		earlierKeys[tile.Key()] = struct{}{}
	}
	for _, tile := range later {
		if _, ok := earlierKeys[tile.Key()]; !ok {
			alignErr.LaterOnly = append(alignErr.LaterOnly, tile.Key())
		}
	}
	if len(alignErr.EarlierOnly) > 0 || len(alignErr.LaterOnly) > 0 || len(alignErr.MismatchedShape) > 0 {
		return nil, &alignErr
	}

	relative := req.Mode == ModeRelative
	tiles := make(TileSet, len(earlier))
	for i, tile := range earlier {
		laterTile := laterByKey[tile.Key()]
		var grid *mat.Dense
		if relative {
			grid = relativeDifference(laterTile.Grid, tile.Grid)
		} else {
			var d mat.Dense
			d.Sub(laterTile.Grid, tile.Grid)
			grid = &d
		}
		tiles[i] = &Tile{
			Grid: grid,
			Lats: tile.Lats,
			Lons: tile.Lons,
		}
	}

	return &Result{
		Tiles:      tiles,
		Normalized: req.Normalize,
		Difference: true,
		Relative:   relative,
	}, nil
}

// relativeDifference returns later/earlier elementwise. Where the earlier
// value is exactly zero the denominator is replaced by -1, so newly lit
// cells come out as the negative of their later value. True ratios are
// never negative, which is how renderers tell the two apart.
func relativeDifference(later, earlier *mat.Dense) *mat.Dense {
	rows, cols := earlier.Dims()
	grid := mat.NewDense(rows, cols, nil)
	for i := range rows {
		for j := range cols {
			denominator := earlier.At(i, j)
			if denominator == 0 {
				denominator = -1
			}
			grid.Set(i, j, later.At(i, j)/denominator)
		}
	}
	return grid
}
