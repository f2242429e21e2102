package spec

import (
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
)

var ErrUnsupportedCompression = errors.New("livemap: compression not supported")

var gzipMagic = []byte{0x1f, 0x8b}

// Sniff guesses the compression of data from its leading bytes. Only gzip is
// recognized; anything else is reported as CompressionNone.
func Sniff(data []byte) Compression {
	if bytes.HasPrefix(data, gzipMagic) {
		return CompressionGzip
	}
	return CompressionNone
}

// Compress is used to build archives in tests and tools.
func Compress(data []byte, compression Compression) ([]byte, error) {
	switch compression {
	case CompressionNone:
		return data, nil
	case CompressionGzip:
		var buf bytes.Buffer
		w, _ := gzip.NewWriterLevel(&buf, gzip.BestCompression)
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("%w (%v)", ErrUnsupportedCompression, compression)
}

// Decompress undoes compression. CompressionUnknown is resolved with Sniff,
// so archives that do not declare their tile compression still decode.
func Decompress(data []byte, compression Compression) ([]byte, error) {
	if compression == CompressionUnknown {
		compression = Sniff(data)
	}
	switch compression {
	case CompressionNone:
		return data, nil
	case CompressionGzip:
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("gunzip: %w", err)
		}
		defer r.Close()
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("gunzip: %w", err)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w (%v)", ErrUnsupportedCompression, compression)
}
