package message

import (
	"encoding/json"
	"errors"
	"fmt"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
)

type cloudEventsCodec struct {
	source string
}

// EventType is the CloudEvents type attribute stamped on encoded entries
const EventType = "io.courier.event"

// ErrEmptySource is returned when a CloudEvents codec is built without a
// source attribute
var ErrEmptySource = errors.New("cloudevents source is required")

// CloudEvents returns a Codec that wraps each Args in a structured-mode
// CloudEvents 1.0 JSON envelope, so entries are readable by any
// CloudEvents-aware consumer of the backing log
func CloudEvents(source string) (Codec, error) {
	if source == "" {
		return nil, ErrEmptySource
	}
	return &cloudEventsCodec{source: source}, nil
}

func (c *cloudEventsCodec) Encode(a Args) ([]byte, error) {
	if a == nil {
		a = Args{}
	}
	e := cloudevents.NewEvent()
	e.SetID(uuid.NewString())
	e.SetSource(c.source)
	e.SetType(EventType)
	if err := e.SetData(cloudevents.ApplicationJSON, []any(a)); err != nil {
		return nil, fmt.Errorf("cloudevents data: %w", err)
	}
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("cloudevents encode: %w", err)
	}
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("cloudevents encode: %w", err)
	}
	return b, nil
}

func (c *cloudEventsCodec) Decode(b []byte) (Args, error) {
	e := cloudevents.NewEvent()
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, fmt.Errorf("cloudevents decode: %w", err)
	}
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("cloudevents decode: %w", err)
	}
	var res []any
	if err := e.DataAs(&res); err != nil {
		return nil, fmt.Errorf("cloudevents data: %w", err)
	}
	if res == nil {
		return Args{}, nil
	}
	return res, nil
}
