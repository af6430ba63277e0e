package blackmarble

import (
	"errors"
	"fmt"
)

// ErrZeroTotal is returned by Normalize when a tile set contains no
// brightness to normalize by.
var ErrZeroTotal = errors.New("tile set total brightness is zero")

// A SchemaError reports a tile file missing an attribute or field the store
// format requires. It aborts the load call that encountered it.
type SchemaError struct {
	Filename string
	Missing  string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: missing %s", e.Filename, e.Missing)
}

// An AlignmentError reports that the two dates being differenced produced
// tile sets that do not cover the same geography, so no cell-by-cell
// comparison is meaningful.
type AlignmentError struct {
	EarlierOnly     []TileKey // tiles present only for the earlier date
	LaterOnly       []TileKey // tiles present only for the later date
	MismatchedShape []TileKey // tiles present for both dates with different grid shapes
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("tile sets do not align: %d tiles only in earlier date, %d only in later date, %d with mismatched shapes",
		len(e.EarlierOnly), len(e.LaterOnly), len(e.MismatchedShape))
}

// A BoundsParseError reports malformed custom bounding-box input. Callers
// are expected to report it to the user and fall back to a preset.
type BoundsParseError struct {
	Input  string
	Reason string
}

func (e *BoundsParseError) Error() string {
	return fmt.Sprintf("invalid bounds %q: %s", e.Input, e.Reason)
}
