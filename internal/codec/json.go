package codec

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/BayFX/omts/internal/types"
)

// DecodeJSON parses a JSON OMTS document.
func DecodeJSON(data []byte) (*types.File, error) {
	var file types.File
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrJSONParse, err)
	}
	return &file, nil
}

// EncodeJSON emits canonical JSON bytes: known fields in schema order,
// extension fields sorted. With pretty set, the output is indented with two
// spaces; key order is unchanged.
func EncodeJSON(file *types.File, pretty bool) ([]byte, error) {
	compact, err := json.Marshal(file)
	if err != nil {
		return nil, err
	}
	if !pretty {
		return compact, nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, compact, "", "  "); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
