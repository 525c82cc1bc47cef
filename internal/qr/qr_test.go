// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package qr

import (
	"bytes"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncoder_DataURLIsDecodablePNG(t *testing.T) {
	enc, err := NewEncoder(200, "")
	require.NoError(t, err)

	u, err := enc.DataURL("4f1c2e1a-7b7d-4c65-9d2f-0f2b8c1d9e3a")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u, "data:image/png;base64,"))

	raw, err := DecodeDataURL(u)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())
	assert.Equal(t, 200, img.Bounds().Dy())
}

func TestNewEncoder_RecoveryLevels(t *testing.T) {
	for _, lvl := range []string{"low", "Medium", "high", "HIGHEST", ""} {
		_, err := NewEncoder(0, lvl)
		assert.NoError(t, err, lvl)
	}
	_, err := NewEncoder(0, "extreme")
	assert.Error(t, err)
}

func TestDecodeDataURL_RejectsOtherSchemes(t *testing.T) {
	_, err := DecodeDataURL("data:image/jpeg;base64,AAAA")
	assert.Error(t, err)
}
