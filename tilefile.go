package blackmarble

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"

	"github.com/google/tiff"
	_ "github.com/google/tiff/bigtiff"
	_ "github.com/google/tiff/geotiff"
	"golang.org/x/image/tiff/lzw"
	"gonum.org/v1/gonum/mat"
)

const (
	compressionNone = 1
	compressionLZW  = 5
)

const (
	latitudesTag  = 65000
	longitudesTag = 65001
)

var errShortRead = errors.New("short read")

// A tileFileIFD is a struct into which github.com/google/tiff can unmarshal
// an IFD.
type tileFileIFD struct {
	ImageWidth                uint16    `tiff:"field,tag=256"`
	ImageLength               uint16    `tiff:"field,tag=257"`
	BitsPerSample             uint16    `tiff:"field,tag=258"`
	Compression               uint16    `tiff:"field,tag=259"`
	PhotometricInterpretation uint16    `tiff:"field,tag=262"`
	StripOffsets              []uint64  `tiff:"field,tag=273"`
	SamplesPerPixel           uint16    `tiff:"field,tag=277"`
	RowsPerStrip              uint16    `tiff:"field,tag=278"`
	StripByteCounts           []uint64  `tiff:"field,tag=279"`
	SampleFormat              uint16    `tiff:"field,tag=339"`
	GDALMetadata              string    `tiff:"field,tag=42112"`
	Latitudes                 []float64 `tiff:"field,tag=65000"`
	Longitudes                []float64 `tiff:"field,tag=65001"`
}

// A tileFile is a parsed but not yet decoded tile file.
type tileFile struct {
	filename string
	raw      []byte
	ifd      tileFileIFD
	date     DateKey
}

// openTileFile reads and parses the tile file at filename in fsys,
// validating the format and extracting the date attribute. The brightness
// grid is not decoded until tile is called.
func openTileFile(fsys fs.FS, filename string) (*tileFile, error) {
	raw, err := fs.ReadFile(fsys, filename)
	if err != nil {
		return nil, err
	}

	tiffTIFF, err := tiff.Parse(bytes.NewReader(raw), tiff.GetTagSpace("GeoTIFF"), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	if len(tiffTIFF.IFDs()) != 1 {
		return nil, fmt.Errorf("%s: found %d IFDs, expected 1", filename, len(tiffTIFF.IFDs()))
	}

	f := &tileFile{
		filename: filename,
		raw:      raw,
	}
	if err := tiff.UnmarshalIFD(tiffTIFF.IFDs()[0], &f.ifd); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	if f.ifd.BitsPerSample != 32 ||
		f.ifd.PhotometricInterpretation != 1 ||
		f.ifd.SamplesPerPixel != 1 ||
		f.ifd.SampleFormat != 3 ||
		(f.ifd.Compression != compressionNone && f.ifd.Compression != compressionLZW) {
		return nil, fmt.Errorf("%s: %w", filename, errors.ErrUnsupported)
	}
	rows, cols := int(f.ifd.ImageLength), int(f.ifd.ImageWidth)
	if rows == 0 || cols == 0 {
		return nil, fmt.Errorf("%s: %w", filename, errors.ErrUnsupported)
	}
	// A single strip covering the whole grid keeps decoding trivial and is
	// what WriteTile emits.
	if len(f.ifd.StripOffsets) != 1 || len(f.ifd.StripByteCounts) != 1 || int(f.ifd.RowsPerStrip) < rows {
		return nil, fmt.Errorf("%s: %w", filename, errors.ErrUnsupported)
	}

	if len(f.ifd.Latitudes) == 0 || len(f.ifd.Longitudes) == 0 {
		return nil, &SchemaError{Filename: filename, Missing: "coordinate vectors"}
	}
	if len(f.ifd.Latitudes) != rows || len(f.ifd.Longitudes) != cols {
		return nil, fmt.Errorf("%s: coordinate vectors %dx%d do not match grid %dx%d",
			filename, len(f.ifd.Latitudes), len(f.ifd.Longitudes), rows, cols)
	}

	if f.ifd.GDALMetadata == "" {
		return nil, &SchemaError{Filename: filename, Missing: dateAttribute}
	}
	items, err := parseGDALMetadata(f.ifd.GDALMetadata)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	date, ok := items[dateAttribute]
	if !ok || date == "" {
		return nil, &SchemaError{Filename: filename, Missing: dateAttribute}
	}
	f.date = DateKey(date)

	return f, nil
}

// tile decodes f's brightness grid. Negative samples are invalid and come
// back as NaN.
func (f *tileFile) tile() (*Tile, error) {
	rows, cols := int(f.ifd.ImageLength), int(f.ifd.ImageWidth)

	stripData, err := f.stripData()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.filename, err)
	}
	if len(stripData) < 4*rows*cols {
		return nil, fmt.Errorf("%s: %w", f.filename, errShortRead)
	}

	data := make([]float64, rows*cols)
	for i := range data {
		sample := math.Float32frombits(binary.LittleEndian.Uint32(stripData[4*i : 4*i+4]))
		if sample < 0 {
			data[i] = math.NaN()
		} else {
			data[i] = float64(sample)
		}
	}

	return &Tile{
		Grid: mat.NewDense(rows, cols, data),
		Lats: f.ifd.Latitudes,
		Lons: f.ifd.Longitudes,
	}, nil
}

// stripData returns the decompressed bytes of f's single strip.
func (f *tileFile) stripData() ([]byte, error) {
	offset, count := f.ifd.StripOffsets[0], f.ifd.StripByteCounts[0]
	if offset > uint64(len(f.raw)) || count > uint64(len(f.raw))-offset {
		return nil, errShortRead
	}
	compressed := f.raw[offset : offset+count]
	if f.ifd.Compression == compressionNone {
		return compressed, nil
	}
	uncompressedLen := 4 * int(f.ifd.ImageLength) * int(f.ifd.ImageWidth)
	stripData := make([]byte, uncompressedLen)
	r := lzw.NewReader(bytes.NewReader(compressed), lzw.MSB, 8)
	for bytesRead := 0; bytesRead < uncompressedLen; {
		n, err := r.Read(stripData[bytesRead:])
		if err != nil {
			return nil, err
		}
		bytesRead += n
	}
	return stripData, nil
}
