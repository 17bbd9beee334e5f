// Package codec encodes dashboard exports as JSON or CBOR.
//
// JSON is the default and what the HTTP API and CLI print. CBOR uses Core
// Deterministic Encoding (RFC 8949 §4.2), so the same data always produces
// the same bytes and exports can be compared or hashed. Both formats use
// the `json` struct tags of the model types.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// Format selects the wire encoding of an export.
type Format string

const (
	JSON Format = "json"
	CBOR Format = "cbor"
)

// ErrUnsupportedFormat is returned for a format other than JSON or CBOR.
var ErrUnsupportedFormat = errors.New("unsupported format")

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	// Keep sub-second precision on timestamps.
	encOptions.Time = cbor.TimeRFC3339Nano
	encOptions.TextMarshaler = cbor.TextMarshalerTextString
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DefaultMapType:  reflect.TypeOf(map[string]any(nil)),
		TextUnmarshaler: cbor.TextUnmarshalerTextString,
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// ParseFormat maps a user-supplied name to a Format. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", JSON:
		return JSON, nil
	case CBOR:
		return CBOR, nil
	}
	return "", fmt.Errorf("%q: %w", s, ErrUnsupportedFormat)
}

// ContentType is the HTTP media type for f.
func (f Format) ContentType() string {
	if f == CBOR {
		return "application/cbor"
	}
	return "application/json"
}

// Marshal encodes v in format f.
func Marshal(f Format, v any) ([]byte, error) {
	switch f {
	case JSON, "":
		return json.Marshal(v)
	case CBOR:
		return encMode.Marshal(v)
	}
	return nil, fmt.Errorf("%q: %w", f, ErrUnsupportedFormat)
}

// Unmarshal decodes data in format f into v.
func Unmarshal(f Format, data []byte, v any) error {
	switch f {
	case JSON, "":
		return json.Unmarshal(data, v)
	case CBOR:
		return decMode.Unmarshal(data, v)
	}
	return fmt.Errorf("%q: %w", f, ErrUnsupportedFormat)
}
