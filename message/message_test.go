package message_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kode4food/courier/message"
)

func TestJSONCodec(t *testing.T) {
	as := assert.New(t)

	b, err := message.JSON.Encode(message.Args{"hello", 42, map[string]any{"k": "v"}})
	as.NoError(err)
	as.JSONEq(`["hello", 42, {"k": "v"}]`, string(b))

	a, err := message.JSON.Decode(b)
	as.NoError(err)
	as.Equal(message.Args{"hello", float64(42), map[string]any{"k": "v"}}, a)
}

func TestJSONCodecEmpty(t *testing.T) {
	as := assert.New(t)

	b, err := message.JSON.Encode(nil)
	as.NoError(err)
	as.Equal("[]", string(b))

	a, err := message.JSON.Decode([]byte("null"))
	as.NoError(err)
	as.NotNil(a)
	as.Empty(a)
}

func TestJSONCodecErrors(t *testing.T) {
	as := assert.New(t)

	_, err := message.JSON.Encode(message.Args{make(chan int)})
	as.Error(err)

	_, err = message.JSON.Decode([]byte("{not json"))
	as.Error(err)
}

func TestCloudEventsCodec(t *testing.T) {
	as := assert.New(t)

	c, err := message.CloudEvents("/courier/test")
	as.NoError(err)

	b, err := c.Encode(message.Args{"first", true})
	as.NoError(err)

	var envelope map[string]any
	as.NoError(json.Unmarshal(b, &envelope))
	as.Equal("1.0", envelope["specversion"])
	as.Equal(message.EventType, envelope["type"])
	as.Equal("/courier/test", envelope["source"])
	as.NotEmpty(envelope["id"])

	a, err := c.Decode(b)
	as.NoError(err)
	as.Equal(message.Args{"first", true}, a)
}

func TestCloudEventsCodecErrors(t *testing.T) {
	as := assert.New(t)

	_, err := message.CloudEvents("")
	as.ErrorIs(err, message.ErrEmptySource)

	c, err := message.CloudEvents("src")
	as.NoError(err)
	_, err = c.Decode([]byte(`{"specversion":"1.0"}`))
	as.Error(err)
	_, err = c.Decode([]byte(`nope`))
	as.Error(err)
}
