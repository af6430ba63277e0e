package blackmarble

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	catalogScans = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blackmarble_catalog_scans_total",
		Help: "The total number of catalog scans of the tile store",
	})
	tilesLoaded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blackmarble_tiles_loaded_total",
		Help: "The total number of tiles loaded and cropped to a bounding box",
	})
	tilesSkippedOutsideBounds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blackmarble_tiles_skipped_outside_bounds_total",
		Help: "The total number of tiles skipped for having no overlap with the requested bounding box",
	})
	tilesDroppedDownsample = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blackmarble_tiles_dropped_downsample_total",
		Help: "The total number of tiles dropped because trimming for block averaging reduced a dimension to zero",
	})
)
