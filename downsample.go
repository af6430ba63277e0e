package blackmarble

import "gonum.org/v1/gonum/mat"

// Downsample reduces each tile's resolution by replacing every n×n block of
// cells with its arithmetic mean. Trailing rows and columns that do not fill
// a whole block are trimmed first, and the coordinate vectors keep every
// n-th entry over the trimmed range so they stay aligned with the grid. A
// block containing a missing sample averages to NaN.
//
// A tile that trimming would reduce to zero size is dropped from the set
// rather than reported as an error: the area is too small to downsample.
func Downsample(set TileSet, n int) TileSet {
	if n <= 1 {
		return set
	}
	out := make(TileSet, 0, len(set))
	for _, tile := range set {
		reduced, ok := blockAverage(tile, n)
		if !ok {
			tilesDroppedDownsample.Inc()
			continue
		}
		out = append(out, reduced)
	}
	return out
}

func blockAverage(tile *Tile, n int) (*Tile, bool) {
	rows, cols := tile.Grid.Dims()
	rowsTrim, colsTrim := rows-rows%n, cols-cols%n
	if rowsTrim == 0 || colsTrim == 0 {
		return nil, false
	}

	outRows, outCols := rowsTrim/n, colsTrim/n
	grid := mat.NewDense(outRows, outCols, nil)
	for i := range outRows {
		for j := range outCols {
			sum := 0.0
			for di := range n {
				for dj := range n {
					sum += tile.Grid.At(i*n+di, j*n+dj)
				}
			}
			grid.Set(i, j, sum/float64(n*n))
		}
	}

	return &Tile{
		Grid: grid,
		Lats: subsample(tile.Lats[:rowsTrim], n),
		Lons: subsample(tile.Lons[:colsTrim], n),
	}, true
}

// subsample returns every n-th entry of vals, starting with the first.
func subsample(vals []float64, n int) []float64 {
	out := make([]float64, 0, (len(vals)+n-1)/n)
	for i := 0; i < len(vals); i += n {
		out = append(out, vals[i])
	}
	return out
}
