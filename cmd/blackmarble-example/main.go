// Command blackmarble-example runs one pipeline request against a tile
// store and prints a per-tile summary.
package main

import (
	"errors"
	"flag"
	"fmt"
	"math"
	"os"

	blackmarble "github.com/geowatch/go-blackmarble"
)

func run() error {
	storePath := flag.String("store", os.Getenv("BLACKMARBLE_STORE"), "path to tile store directory")
	archivePath := flag.String("archive", "", "zip archive to extract into the store directory first")
	mode := flag.String("mode", "single", "single, difference, or relative")
	date := flag.String("date", "", "observation date (earlier date in two-date modes)")
	laterDate := flag.String("date2", "", "later observation date")
	preset := flag.String("preset", "Sudan", "named bounding-box preset")
	boundsText := flag.String("bounds", "", "custom bounds as south,north,west,east")
	factor := flag.Int("factor", 1, "downsampling factor")
	normalize := flag.Bool("normalize", false, "normalize values to proportions of total brightness")
	listDates := flag.Bool("dates", false, "list available dates and exit")
	flag.Parse()

	if *storePath == "" {
		return errors.New("syntax: blackmarble-example -store DIR [flags]")
	}
	if *archivePath != "" {
		resolved, err := blackmarble.ExtractArchive(*archivePath, *storePath)
		if err != nil {
			return err
		}
		*storePath = resolved
	}

	store := blackmarble.NewStore(os.DirFS(*storePath))

	if *listDates {
		dates, err := store.Dates()
		if err != nil {
			return err
		}
		for _, d := range dates {
			fmt.Println(d)
		}
		return nil
	}

	req := blackmarble.Request{
		Date:      blackmarble.DateKey(*date),
		LaterDate: blackmarble.DateKey(*laterDate),
		Factor:    *factor,
		Normalize: *normalize,
	}
	switch *mode {
	case "single":
		req.Mode = blackmarble.ModeSingle
	case "difference":
		req.Mode = blackmarble.ModeDifference
	case "relative":
		req.Mode = blackmarble.ModeRelative
	default:
		return fmt.Errorf("unknown mode %q", *mode)
	}

	bounds, ok := blackmarble.Presets[*preset]
	if !ok {
		return fmt.Errorf("unknown preset %q", *preset)
	}
	if *boundsText != "" {
		custom, err := blackmarble.ParseBounds(*boundsText)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v, using preset %s\n", err, *preset)
		} else {
			bounds = custom
		}
	}
	req.Bounds = bounds

	result, err := store.Do(req)
	if err != nil {
		return err
	}

	fmt.Printf("%d tiles (normalized=%t difference=%t relative=%t)\n",
		len(result.Tiles), result.Normalized, result.Difference, result.Relative)
	for i, tile := range result.Tiles {
		rows, cols := tile.Grid.Dims()
		lo, hi := valueRange(tile)
		fmt.Printf("tile %d: %dx%d lat [%g, %g] lon [%g, %g] values [%g, %g]\n",
			i, rows, cols,
			tile.Lats[0], tile.Lats[len(tile.Lats)-1],
			tile.Lons[0], tile.Lons[len(tile.Lons)-1],
			lo, hi)
	}
	return nil
}

// valueRange returns the smallest and largest non-missing values in tile.
func valueRange(tile *blackmarble.Tile) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	rows, cols := tile.Grid.Dims()
	for i := range rows {
		for j := range cols {
			v := tile.Grid.At(i, j)
			if math.IsNaN(v) {
				continue
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	return lo, hi
}

func main() {
	if err := run(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
