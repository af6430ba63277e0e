package blackmarble

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sort"
)

// TIFF field types and tags used by the tile file layout.
const (
	typeASCII  = 2
	typeShort  = 3
	typeLong   = 4
	typeDouble = 12

	tagImageWidth                = 256
	tagImageLength               = 257
	tagBitsPerSample             = 258
	tagCompression               = 259
	tagPhotometricInterpretation = 262
	tagStripOffsets              = 273
	tagSamplesPerPixel           = 277
	tagRowsPerStrip              = 278
	tagStripByteCounts           = 279
	tagSampleFormat              = 339
	tagGDALMetadata              = 42112
)

var byteOrder = binary.LittleEndian

type ifdEntry struct {
	tag      uint16
	datatype uint16
	count    uint32
	data     []byte
}

// WriteTile writes tile to w as a single-band float32 TIFF in the layout
// openTileFile accepts: one uncompressed strip, the observation date in the
// GDALMetadata tag, and the coordinate vectors in the private latitude and
// longitude tags.
func WriteTile(w io.Writer, tile *Tile, date DateKey) error {
	rows, cols := tile.Grid.Dims()
	if rows != len(tile.Lats) || cols != len(tile.Lons) {
		return fmt.Errorf("coordinate vectors %dx%d do not match grid %dx%d",
			len(tile.Lats), len(tile.Lons), rows, cols)
	}
	if err := checkGridDims(rows, cols); err != nil {
		return err
	}

	metadata, err := encodeGDALMetadata(map[string]string{dateAttribute: string(date)})
	if err != nil {
		return err
	}

	samples := make([]byte, 4*rows*cols)
	for i := range rows {
		for j := range cols {
			bits := math.Float32bits(float32(tile.Grid.At(i, j)))
			byteOrder.PutUint32(samples[4*(i*cols+j):], bits)
		}
	}

	var entries []ifdEntry
	addEntry := func(tag, datatype uint16, count uint32, data []byte) {
		entries = append(entries, ifdEntry{tag: tag, datatype: datatype, count: count, data: data})
	}
	addEntry(tagImageWidth, typeShort, 1, encodeShorts(uint16(cols)))
	addEntry(tagImageLength, typeShort, 1, encodeShorts(uint16(rows)))
	addEntry(tagBitsPerSample, typeShort, 1, encodeShorts(32))
	addEntry(tagCompression, typeShort, 1, encodeShorts(compressionNone))
	addEntry(tagPhotometricInterpretation, typeShort, 1, encodeShorts(1))
	addEntry(tagStripOffsets, typeLong, 1, make([]byte, 4)) // fixed up below
	addEntry(tagSamplesPerPixel, typeShort, 1, encodeShorts(1))
	addEntry(tagRowsPerStrip, typeShort, 1, encodeShorts(uint16(rows)))
	addEntry(tagStripByteCounts, typeLong, 1, encodeLong(uint32(len(samples))))
	addEntry(tagSampleFormat, typeShort, 1, encodeShorts(3)) // IEEE float
	addEntry(tagGDALMetadata, typeASCII, uint32(len(metadata)+1), append([]byte(metadata), 0))
	addEntry(latitudesTag, typeDouble, uint32(len(tile.Lats)), encodeDoubles(tile.Lats))
	addEntry(longitudesTag, typeDouble, uint32(len(tile.Lons)), encodeDoubles(tile.Lons))

	sort.Slice(entries, func(i, j int) bool { return entries[i].tag < entries[j].tag })

	// Layout: 8-byte header, IFD, out-of-line values, then the strip.
	ifdSize := 2 + 12*len(entries) + 4
	valueOffset := 8 + ifdSize
	var values bytes.Buffer
	for i := range entries {
		entry := &entries[i]
		if len(entry.data) > 4 {
			if values.Len()%2 == 1 {
				values.WriteByte(0) // keep out-of-line values word-aligned
			}
			offset := uint32(valueOffset + values.Len())
			values.Write(entry.data)
			entry.data = encodeLong(offset)
		}
	}
	stripOffset := uint32(valueOffset + values.Len())
	for i := range entries {
		if entries[i].tag == tagStripOffsets {
			entries[i].data = encodeLong(stripOffset)
		}
	}

	var buf bytes.Buffer
	buf.Write([]byte{'I', 'I', 0x2a, 0x00})
	_ = binary.Write(&buf, byteOrder, uint32(8))
	_ = binary.Write(&buf, byteOrder, uint16(len(entries)))
	for _, entry := range entries {
		_ = binary.Write(&buf, byteOrder, entry.tag)
		_ = binary.Write(&buf, byteOrder, entry.datatype)
		_ = binary.Write(&buf, byteOrder, entry.count)
		var value [4]byte
		copy(value[:], entry.data)
		buf.Write(value[:])
	}
	_ = binary.Write(&buf, byteOrder, uint32(0)) // no next IFD
	_, _ = values.WriteTo(&buf)
	buf.Write(samples)

	_, err = w.Write(buf.Bytes())
	return err
}

// checkGridDims rejects grids that cannot be represented: dimensions are
// SHORT fields and the strip size, like all file offsets, is a LONG field.
func checkGridDims(rows, cols int) error {
	if rows > math.MaxUint16 || cols > math.MaxUint16 {
		return fmt.Errorf("grid %dx%d exceeds the %d-sample dimension limit", rows, cols, math.MaxUint16)
	}
	if uint64(rows)*uint64(cols)*4 > math.MaxUint32 {
		return fmt.Errorf("grid %dx%d exceeds the %d-byte strip limit", rows, cols, uint32(math.MaxUint32))
	}
	return nil
}

func encodeShorts(vals ...uint16) []byte {
	b := make([]byte, 2*len(vals))
	for i, v := range vals {
		byteOrder.PutUint16(b[2*i:], v)
	}
	return b
}

func encodeLong(v uint32) []byte {
	b := make([]byte, 4)
	byteOrder.PutUint32(b, v)
	return b
}

func encodeDoubles(vals []float64) []byte {
	b := make([]byte, 8*len(vals))
	for i, v := range vals {
		byteOrder.PutUint64(b[8*i:], math.Float64bits(v))
	}
	return b
}
