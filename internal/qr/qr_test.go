package qr

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func TestPNG(t *testing.T) {
	png, err := PNG("3f2c9a1e-ticket")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, pngMagic))
}

func TestPNGEmpty(t *testing.T) {
	_, err := PNG("")
	assert.Error(t, err)
}

func TestDataURL(t *testing.T) {
	url, err := DataURL("abc")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "data:image/png;base64,"))

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(url, "data:image/png;base64,"))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, pngMagic))
}
