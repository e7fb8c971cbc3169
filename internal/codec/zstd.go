package codec

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// Compress wraps data in a zstd frame at the default level. The output
// starts with the zstd magic bytes, so Detect recognises it.
func Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompression, err)
	}
	if _, err := enc.Write(data); err != nil {
		enc.Close()
		return nil, fmt.Errorf("%w: %v", ErrCompression, err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompression, err)
	}
	return buf.Bytes(), nil
}

// SizeLimitError reports a decompressed payload exceeding the caller's cap.
type SizeLimitError struct {
	// MaxSize is the ceiling the caller permitted.
	MaxSize int
}

func (e *SizeLimitError) Error() string {
	return fmt.Sprintf("decompressed data exceeds maximum allowed size of %d bytes", e.MaxSize)
}

func (e *SizeLimitError) Unwrap() error { return ErrSizeLimitExceeded }

// Decompress streams a zstd frame, enforcing maxSize against decompression
// bombs. At most maxSize+1 bytes are read from the decoder — enough to
// distinguish "exactly maxSize" from "more" without buffering the rest of
// the stream.
func Decompress(data []byte, maxSize int) ([]byte, error) {
	dec, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompression, err)
	}
	defer dec.Close()

	limited := io.LimitReader(dec, int64(maxSize)+1)
	out, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompression, err)
	}
	if len(out) > maxSize {
		return nil, &SizeLimitError{MaxSize: maxSize}
	}
	return out, nil
}
