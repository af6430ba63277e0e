package blackmarble

import (
	"io/fs"
	"log/slog"
	"slices"
)

// A Store reads nighttime-brightness tiles from a directory of raster
// files. It holds no tile state: every load decodes fresh tiles, so callers
// own the returned tile sets exclusively.
type Store struct {
	fsys    fs.FS
	pattern string
	logger  *slog.Logger
}

// A StoreOption sets an option on a Store.
type StoreOption func(*Store)

// NewStore returns a new Store reading tile files from fsys.
func NewStore(fsys fs.FS, options ...StoreOption) *Store {
	s := &Store{
		fsys:    fsys,
		pattern: "*.tif",
		logger:  slog.Default(),
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// WithPattern sets the glob pattern selecting tile files in the store.
func WithPattern(pattern string) StoreOption {
	return func(s *Store) {
		s.pattern = pattern
	}
}

// WithLogger sets the logger used for per-tile skip decisions.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// Dates scans every tile file in the store and returns the sorted set of
// unique observation dates. A file lacking the date attribute is a
// *SchemaError.
func (s *Store) Dates() ([]DateKey, error) {
	filenames, err := fs.Glob(s.fsys, s.pattern)
	if err != nil {
		return nil, err
	}
	catalogScans.Inc()

	seen := make(map[DateKey]struct{}, len(filenames))
	var dates []DateKey
	for _, filename := range filenames {
		f, err := openTileFile(s.fsys, filename)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[f.date]; !ok {
			seen[f.date] = struct{}{}
			dates = append(dates, f.date)
		}
	}
	slices.Sort(dates)
	return dates, nil
}

// Load returns the tiles whose date attribute equals date, each cropped to
// bounds, in canonical order. Tiles with no overlap with bounds contribute
// nothing and are skipped without error.
func (s *Store) Load(date DateKey, bounds Bounds) (TileSet, error) {
	filenames, err := fs.Glob(s.fsys, s.pattern)
	if err != nil {
		return nil, err
	}

	var set TileSet
	for _, filename := range filenames {
		f, err := openTileFile(s.fsys, filename)
		if err != nil {
			return nil, err
		}
		if f.date != date {
			continue
		}
		tile, err := f.tile()
		if err != nil {
			return nil, err
		}
		cropped, ok := tile.crop(bounds)
		if !ok {
			tilesSkippedOutsideBounds.Inc()
			s.logger.Debug("tile outside bounds", "file", filename, "date", date)
			continue
		}
		tilesLoaded.Inc()
		set = append(set, cropped)
	}
	set.sortCanonical()
	return set, nil
}
