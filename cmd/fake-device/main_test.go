package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"straincap/internal/devicesim"
)

type countingWriter struct {
	bytes.Buffer
	writes int
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.writes++
	return w.Buffer.Write(p)
}

func TestWriteChunked(t *testing.T) {
	var w countingWriter
	require.NoError(t, writeChunked(&w, []byte("0.10,100,512,510,509,3,1.25\n"), 8, 0))
	assert.Equal(t, "0.10,100,512,510,509,3,1.25\n", w.String())
	assert.Equal(t, 4, w.writes)

	w = countingWriter{}
	require.NoError(t, writeChunked(&w, []byte("abc"), 0, 0))
	assert.Equal(t, 1, w.writes)
}

func TestParseTare(t *testing.T) {
	for in, want := range map[string]devicesim.TareBehavior{
		"ok":     devicesim.TareSucceeds,
		"fail":   devicesim.TareFails,
		"none":   devicesim.TareNoResult,
		"silent": devicesim.TareSilent,
	} {
		got, err := parseTare(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := parseTare("maybe")
	assert.Error(t, err)
}
