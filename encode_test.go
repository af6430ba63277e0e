package blackmarble

import (
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestCheckGridDims(t *testing.T) {
	assert.NoError(t, checkGridDims(400, 400))
	assert.NoError(t, checkGridDims(65535, 16384))
	assert.Error(t, checkGridDims(65536, 1))
	assert.Error(t, checkGridDims(1, 65536))
	// Fits the dimension fields but overflows the strip byte count.
	assert.Error(t, checkGridDims(65535, 65535))
	assert.Error(t, checkGridDims(40000, 30000))
}
