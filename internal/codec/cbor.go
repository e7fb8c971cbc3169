package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"github.com/BayFX/omts/internal/types"
)

// cborDecMode decodes maps with string keys so the payload converts cleanly
// to the JSON data model.
var cborDecMode, _ = cbor.DecOptions{
	DefaultMapType: reflect.TypeOf(map[string]any(nil)),
}.DecMode()

// cborEncMode uses Core Deterministic Encoding: sorted map keys and shortest
// integer forms.
var cborEncMode, _ = cbor.CanonicalEncOptions().EncMode()

// DecodeCBOR parses a CBOR OMTS document. A leading self-describe tag is
// accepted and skipped; the decoded structure is funnelled through the JSON
// field model so unknown-field capture and tri-state null handling are
// identical across encodings.
func DecodeCBOR(data []byte) (*types.File, error) {
	payload := data
	if bytes.HasPrefix(payload, cborSelfDescribeTag) {
		payload = payload[len(cborSelfDescribeTag):]
	}

	var value any
	if err := cborDecMode.Unmarshal(payload, &value); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCBORDecode, err)
	}

	jsonBytes, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCBORDecode, err)
	}
	var file types.File
	if err := json.Unmarshal(jsonBytes, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCBORDecode, err)
	}
	return &file, nil
}

// EncodeCBOR emits deterministic CBOR bytes prefixed with the self-describe
// tag. Integers that arrived as JSON numbers without a fractional part are
// encoded as CBOR integers, giving the shortest-form guarantee.
func EncodeCBOR(file *types.File) ([]byte, error) {
	jsonBytes, err := json.Marshal(file)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(jsonBytes))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, err
	}

	body, err := cborEncMode.Marshal(normalizeNumbers(value))
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(cborSelfDescribeTag)+len(body))
	out = append(out, cborSelfDescribeTag...)
	out = append(out, body...)
	return out, nil
}

// normalizeNumbers rewrites json.Number values into int64, uint64, or
// float64 so the CBOR encoder can pick the shortest integer encoding.
func normalizeNumbers(v any) any {
	switch val := v.(type) {
	case json.Number:
		s := val.String()
		if !strings.ContainsAny(s, ".eE") {
			if i, err := val.Int64(); err == nil {
				return i
			}
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return s
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalizeNumbers(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeNumbers(item)
		}
		return out
	}
	return v
}
