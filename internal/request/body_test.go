package request_test

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pepe-http/pepe/internal/request"
)

func readAll(t *testing.T, src request.BodySource) string {
	t.Helper()
	r, err := src.NewReader()
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(data)
}

func TestNewBodySourceInline(t *testing.T) {
	src, err := request.NewBodySource(`{"a":1}`, "")
	require.NoError(t, err)
	assert.EqualValues(t, 7, src.ContentLength())
	assert.Equal(t, `{"a":1}`, readAll(t, src))
	assert.Equal(t, `{"a":1}`, readAll(t, src), "every reader starts from the beginning")
	assert.Equal(t, "inline (7 bytes)", src.String())
}

func TestNewBodySourceFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payload.json")
	require.NoError(t, os.WriteFile(path, []byte("from disk"), 0o600))

	src, err := request.NewBodySource("", "  "+path+" ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte("rewritten later"), 0o600))

	assert.EqualValues(t, 9, src.ContentLength())
	assert.Equal(t, "from disk", readAll(t, src), "the file is read once")
	assert.Contains(t, src.String(), "payload.json")
}

func TestNewBodySourceRejectsBadInput(t *testing.T) {
	dir := t.TempDir()
	tests := map[string]struct{ inline, path, want string }{
		"both given": {"x", filepath.Join(dir, "f"), "cannot both"},
		"missing":    {"", filepath.Join(dir, "missing"), "body file"},
		"directory":  {"", dir, "is a directory"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := request.NewBodySource(tt.inline, tt.path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestNoBodySource(t *testing.T) {
	src, err := request.NewBodySource("", "   ")
	require.NoError(t, err)
	assert.Nil(t, src)
	assert.Nil(t, request.BytesBody(nil))
}

func TestBytesBodyCopies(t *testing.T) {
	b := []byte("abc")
	src := request.BytesBody(b)
	b[0] = 'X'
	assert.Equal(t, "abc", readAll(t, src))
}
