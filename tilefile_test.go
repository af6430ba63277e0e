package blackmarble

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert/v2"
)

// ifdEntryOffset returns the byte offset of the IFD entry for tag in a file
// written by WriteTile, which places a single IFD at offset 8.
func ifdEntryOffset(t *testing.T, raw []byte, tag uint16) int {
	t.Helper()
	n := int(byteOrder.Uint16(raw[8:]))
	for i := range n {
		offset := 10 + 12*i
		if byteOrder.Uint16(raw[offset:]) == tag {
			return offset
		}
	}
	t.Fatalf("tag %d not found", tag)
	return 0
}

// lzwCompressTIFF encodes data as a TIFF LZW stream of 9-bit codes, clearing
// the string table before every literal so the code width never grows.
func lzwCompressTIFF(data []byte) []byte {
	const (
		clearCode = 256
		eofCode   = 257
	)
	var out bytes.Buffer
	var bits, nBits uint32
	emit := func(code uint32) {
		bits |= code << (23 - nBits)
		nBits += 9
		for nBits >= 8 {
			out.WriteByte(byte(bits >> 24))
			bits <<= 8
			nBits -= 8
		}
	}
	for _, b := range data {
		emit(clearCode)
		emit(uint32(b))
	}
	emit(eofCode)
	if nBits > 0 {
		out.WriteByte(byte(bits >> 24))
	}
	return out.Bytes()
}

// writeLZWTileFile writes tile like writeTileFile but with its strip
// LZW-compressed, rewriting the Compression and StripByteCounts entries.
func writeLZWTileFile(t *testing.T, dir, filename string, tile *Tile, date DateKey) {
	t.Helper()
	var buf bytes.Buffer
	assert.NoError(t, WriteTile(&buf, tile, date))
	raw := buf.Bytes()

	stripOffset := byteOrder.Uint32(raw[ifdEntryOffset(t, raw, tagStripOffsets)+8:])
	compressed := lzwCompressTIFF(raw[stripOffset:])

	byteOrder.PutUint16(raw[ifdEntryOffset(t, raw, tagCompression)+8:], compressionLZW)
	byteOrder.PutUint32(raw[ifdEntryOffset(t, raw, tagStripByteCounts)+8:], uint32(len(compressed)))
	raw = append(raw[:stripOffset], compressed...)

	assert.NoError(t, os.WriteFile(filepath.Join(dir, filename), raw, 0o666))
}

func TestStore_Load_LZWCompressedStrip(t *testing.T) {
	dir := t.TempDir()
	tile := tileOf([][]float64{
		{1, 2, 3},
		{4, -1, 6},
	}, []float64{10, 11}, []float64{20, 21, 22})
	writeLZWTileFile(t, dir, "a.tif", tile, "2023-04-01")

	store := NewStore(os.DirFS(dir))
	set, err := store.Load("2023-04-01", Bounds{South: 0, North: 90, West: 0, East: 90})
	assert.NoError(t, err)
	assert.Equal(t, 1, len(set))

	data := set[0].Grid.RawMatrix().Data
	assert.Equal(t, []float64{1, 2, 3}, data[:3])
	assert.Equal(t, 4.0, data[3])
	assert.True(t, math.IsNaN(data[4]))
	assert.Equal(t, 6.0, data[5])
	assert.Equal(t, []float64{10, 11}, set[0].Lats)
	assert.Equal(t, []float64{20, 21, 22}, set[0].Lons)
}

func TestTileFile_StripBeyondEOF(t *testing.T) {
	// A strip offset whose sum with the byte count wraps around uint64 must
	// come back as an error, not an out-of-range slice panic.
	f := &tileFile{
		filename: "bad.tif",
		raw:      make([]byte, 64),
		ifd: tileFileIFD{
			ImageWidth:      2,
			ImageLength:     2,
			Compression:     compressionNone,
			StripOffsets:    []uint64{math.MaxUint64 - 8},
			StripByteCounts: []uint64{32},
		},
	}
	_, err := f.stripData()
	assert.IsError(t, err, errShortRead)

	f.ifd.StripOffsets[0] = 48
	f.ifd.StripByteCounts[0] = 32
	_, err = f.stripData()
	assert.IsError(t, err, errShortRead)
}

func TestStore_Load_TruncatedStrip(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	assert.NoError(t, WriteTile(&buf, constantTile(4, 4, 1, 9, 21), "2023-04-01"))
	raw := buf.Bytes()
	byteOrder.PutUint32(raw[ifdEntryOffset(t, raw, tagStripOffsets)+8:], math.MaxUint32-8)
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "a.tif"), raw, 0o666))

	store := NewStore(os.DirFS(dir))
	_, err := store.Load("2023-04-01", Bounds{South: 0, North: 90, West: 0, East: 90})
	assert.Error(t, err)
}
