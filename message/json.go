package message

import (
	"encoding/json"
	"fmt"
)

type jsonCodec struct{}

// JSON encodes Args as a JSON array. Numbers decode as float64 and objects
// as map[string]any, following encoding/json
var JSON Codec = jsonCodec{}

func (jsonCodec) Encode(a Args) ([]byte, error) {
	if a == nil {
		a = Args{}
	}
	b, err := json.Marshal([]any(a))
	if err != nil {
		return nil, fmt.Errorf("json encode: %w", err)
	}
	return b, nil
}

func (jsonCodec) Decode(b []byte) (Args, error) {
	var res []any
	if err := json.Unmarshal(b, &res); err != nil {
		return nil, fmt.Errorf("json decode: %w", err)
	}
	if res == nil {
		return Args{}, nil
	}
	return res, nil
}
