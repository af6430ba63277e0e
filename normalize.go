package blackmarble

import "gonum.org/v1/gonum/mat"

// Normalize rescales set's values into proportions of the set's total
// brightness, so that the non-missing values of the returned set sum to 1.
// Missing samples contribute nothing to the total and stay missing.
// Coordinate vectors are unchanged. An empty set is returned as is. If a
// non-empty set's total is zero there is nothing meaningful to divide by and
// Normalize returns ErrZeroTotal.
func Normalize(set TileSet) (TileSet, error) {
	if len(set) == 0 {
		return set, nil
	}
	total := set.Total()
	if total == 0 {
		return nil, ErrZeroTotal
	}

	out := make(TileSet, len(set))
	for i, tile := range set {
		var grid mat.Dense
		grid.Scale(1/total, tile.Grid)
		out[i] = &Tile{
			Grid: &grid,
			Lats: tile.Lats,
			Lons: tile.Lons,
		}
	}
	return out, nil
}
