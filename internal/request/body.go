package request

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// BodySource supplies the request body. Every reader it returns yields the
// same bytes, so one source serves every unit of a run.
type BodySource interface {
	NewReader() (io.ReadCloser, error)
	ContentLength() int64
	String() string
}

// NewBodySource picks the inline body or the body file. A file is checked
// and read here, once, so a bad path fails before anything is sent. It
// returns a nil source when neither is given.
func NewBodySource(inline, path string) (BodySource, error) {
	path = strings.TrimSpace(path)
	if inline != "" && path != "" {
		return nil, errors.New("body and body file cannot both be provided")
	}

	if inline != "" {
		return &inlineBodySource{data: []byte(inline)}, nil
	}
	if path == "" {
		return nil, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("body file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("body file %q is a directory", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("body file: %w", err)
	}
	return &fileBodySource{path: path, inlineBodySource: inlineBodySource{data: data}}, nil
}

// BytesBody wraps b, copying it. A nil slice means no body.
func BytesBody(b []byte) BodySource {
	if b == nil {
		return nil
	}
	return &inlineBodySource{data: bytes.Clone(b)}
}

type inlineBodySource struct {
	data []byte
}

func (s *inlineBodySource) NewReader() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.data)), nil
}

func (s *inlineBodySource) ContentLength() int64 { return int64(len(s.data)) }

func (s *inlineBodySource) String() string { return fmt.Sprintf("inline (%d bytes)", len(s.data)) }

type fileBodySource struct {
	inlineBodySource
	path string
}

func (s *fileBodySource) String() string {
	return fmt.Sprintf("%s (%d bytes)", s.path, len(s.data))
}
