package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danmuck/binlens/internal/decode"
	"github.com/danmuck/binlens/internal/testutil/testlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// minimal GIF: header without a colour table, then the trailer
var tinyGIF = []byte{'G', 'I', 'F', '8', '9', 'a', 1, 0, 1, 0, 0, 0, 0, 0x3B}

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestRunWritesTextOutline(t *testing.T) {
	testlog.Start(t)
	path := writeTemp(t, "tiny.gif", tinyGIF)

	var out bytes.Buffer
	require.NoError(t, run(&out, path, options{output: "text", anomalies: true}))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "(gif, 14 bytes)")
	assert.True(t, strings.HasPrefix(lines[1], "Header"), lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "Trailer (End of File Marker)"), lines[2])
}

func TestRunWritesJSON(t *testing.T) {
	testlog.Start(t)
	path := writeTemp(t, "noext", tinyGIF[:13])

	var out bytes.Buffer
	require.NoError(t, run(&out, path, options{hint: "gif", output: "json"}))
	var doc struct {
		Format    string           `json:"format"`
		Outline   []map[string]any `json:"outline"`
		Anomalies []decode.Anomaly `json:"anomalies"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
	assert.Equal(t, "gif", doc.Format)
	require.Len(t, doc.Anomalies, 1)
	assert.Equal(t, decode.KindMissingTerminator, doc.Anomalies[0].Kind)
}

func TestRunReportsDecodeErrors(t *testing.T) {
	testlog.Start(t)
	path := writeTemp(t, "bad.png", tinyGIF)
	err := run(&bytes.Buffer{}, path, options{output: "text"})
	assert.True(t, errors.Is(err, decode.ErrBadSignature))

	err = run(&bytes.Buffer{}, filepath.Join(t.TempDir(), "missing.gif"), options{})
	assert.Error(t, err)
}
