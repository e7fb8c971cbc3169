// Package codec handles the byte-level concerns of OMTS files: encoding
// detection, JSON and CBOR parse/emit, and the optional zstd frame with
// decompression-bomb protection.
package codec

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/BayFX/omts/internal/types"
)

// Encoding identifies the serialization of a byte payload.
type Encoding int

const (
	// EncodingJSON is a UTF-8 JSON document starting with '{'.
	EncodingJSON Encoding = iota
	// EncodingCBOR is a CBOR document, usually carrying the self-describe tag.
	EncodingCBOR
	// EncodingZstd is a zstd frame wrapping JSON or CBOR.
	EncodingZstd
)

func (e Encoding) String() string {
	switch e {
	case EncodingJSON:
		return "json"
	case EncodingCBOR:
		return "cbor"
	case EncodingZstd:
		return "zstd"
	}
	return "unknown"
}

// zstdMagic is the zstd frame magic number.
var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

// cborSelfDescribeTag is the CBOR self-describe tag 55799 in encoded form.
var cborSelfDescribeTag = []byte{0xD9, 0xD9, 0xF7}

// Decode error kinds, matched with errors.Is.
var (
	ErrEncodingDetection = errors.New("encoding detection failed")
	ErrJSONParse         = errors.New("JSON parse failed")
	ErrCBORDecode        = errors.New("CBOR decode failed")
	ErrCompression       = errors.New("decompression failed")
	ErrNestedCompression = errors.New("nested zstd compression is not supported")
	ErrSizeLimitExceeded = errors.New("decompressed size limit exceeded")
)

// DetectionError reports unrecognizable leading bytes.
type DetectionError struct {
	// Prefix holds up to the first four input bytes.
	Prefix []byte
}

func (e *DetectionError) Error() string {
	return fmt.Sprintf("encoding detection failed: unrecognised leading bytes % X", e.Prefix)
}

func (e *DetectionError) Unwrap() error { return ErrEncodingDetection }

// Detect inspects the first bytes of b: the zstd magic, the CBOR
// self-describe tag or any CBOR map-start byte, or a '{' after optional
// whitespace. Anything else is a DetectionError carrying the prefix.
func Detect(b []byte) (Encoding, error) {
	if bytes.HasPrefix(b, zstdMagic) {
		return EncodingZstd, nil
	}
	if bytes.HasPrefix(b, cborSelfDescribeTag) {
		return EncodingCBOR, nil
	}
	if len(b) > 0 && isCBORMapStart(b[0]) {
		return EncodingCBOR, nil
	}
	trimmed := bytes.TrimLeft(b, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return EncodingJSON, nil
	}
	prefix := b
	if len(prefix) > 4 {
		prefix = prefix[:4]
	}
	return 0, &DetectionError{Prefix: append([]byte(nil), prefix...)}
}

// isCBORMapStart reports whether c is a CBOR map major-type initial byte
// (definite lengths 0xA0-0xBB or the indefinite marker 0xBF).
func isCBORMapStart(c byte) bool {
	return (c >= 0xA0 && c <= 0xBB) || c == 0xBF
}

// Parse decodes an OMTS file from raw bytes: detect, decompress if zstd
// (bounded by maxDecompressed), detect again, then parse JSON or CBOR. The
// returned encoding is the innermost one — never EncodingZstd.
func Parse(b []byte, maxDecompressed int) (*types.File, Encoding, error) {
	enc, err := Detect(b)
	if err != nil {
		return nil, 0, err
	}

	payload := b
	if enc == EncodingZstd {
		payload, err = Decompress(b, maxDecompressed)
		if err != nil {
			return nil, 0, err
		}
		enc, err = Detect(payload)
		if err != nil {
			return nil, 0, err
		}
		if enc == EncodingZstd {
			return nil, 0, ErrNestedCompression
		}
	}

	switch enc {
	case EncodingCBOR:
		file, err := DecodeCBOR(payload)
		if err != nil {
			return nil, 0, err
		}
		return file, EncodingCBOR, nil
	default:
		file, err := DecodeJSON(payload)
		if err != nil {
			return nil, 0, err
		}
		return file, EncodingJSON, nil
	}
}
