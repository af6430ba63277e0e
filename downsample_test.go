package blackmarble

import (
	"math"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestDownsample_Shape(t *testing.T) {
	for _, tc := range []struct {
		name    string
		rows    int
		cols    int
		n       int
		outRows int
		outCols int
	}{
		{name: "exact", rows: 4, cols: 6, n: 2, outRows: 2, outCols: 3},
		{name: "remainder_trimmed", rows: 5, cols: 7, n: 2, outRows: 2, outCols: 3},
		{name: "factor_three", rows: 9, cols: 10, n: 3, outRows: 3, outCols: 3},
	} {
		t.Run(tc.name, func(t *testing.T) {
			set := TileSet{constantTile(tc.rows, tc.cols, 1, 0, 0)}
			out := Downsample(set, tc.n)
			assert.Equal(t, 1, len(out))
			rows, cols := out[0].Grid.Dims()
			assert.Equal(t, tc.outRows, rows)
			assert.Equal(t, tc.outCols, cols)
			assert.Equal(t, rows, len(out[0].Lats))
			assert.Equal(t, cols, len(out[0].Lons))
		})
	}
}

func TestDownsample_DropsTilesTooSmall(t *testing.T) {
	set := TileSet{
		constantTile(1, 8, 1, 0, 0),  // one row, trims to zero rows
		constantTile(8, 8, 2, 10, 0), // survives
		constantTile(8, 1, 3, 20, 0), // one column, trims to zero columns
	}
	out := Downsample(set, 2)
	assert.Equal(t, 1, len(out))
	assert.Equal(t, TileKey{Lat: 10, Lon: 0}, out[0].Key())
}

func TestDownsample_ConstantFieldIsNoOp(t *testing.T) {
	set := TileSet{constantTile(4, 4, 7.5, 0, 0)}
	out := Downsample(set, 2)
	assert.Equal(t, 1, len(out))
	assert.Equal(t, []float64{7.5, 7.5, 7.5, 7.5}, out[0].Grid.RawMatrix().Data)
}

func TestDownsample_BlockMeans(t *testing.T) {
	tile := tileOf([][]float64{
		{1, 3, 10, 10},
		{5, 7, 10, 10},
	}, []float64{0, 1}, []float64{0, 1, 2, 3})
	out := Downsample(TileSet{tile}, 2)
	assert.Equal(t, 1, len(out))
	assert.Equal(t, []float64{4, 10}, out[0].Grid.RawMatrix().Data)
	assert.Equal(t, []float64{0}, out[0].Lats)
	assert.Equal(t, []float64{0, 2}, out[0].Lons)
}

func TestDownsample_MissingPropagates(t *testing.T) {
	tile := tileOf([][]float64{
		{1, math.NaN(), 2, 2},
		{1, 1, 2, 2},
	}, []float64{0, 1}, []float64{0, 1, 2, 3})
	out := Downsample(TileSet{tile}, 2)
	assert.Equal(t, 1, len(out))
	data := out[0].Grid.RawMatrix().Data
	assert.True(t, math.IsNaN(data[0]))
	assert.Equal(t, 2.0, data[1])
}

func TestDownsample_FactorOneLeavesSetUnchanged(t *testing.T) {
	set := TileSet{constantTile(3, 3, 1, 0, 0)}
	out := Downsample(set, 1)
	assert.Equal(t, set, out)
}
