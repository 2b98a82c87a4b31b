// Package message defines the values carried through a topic and the codecs
// that turn them into transportable bytes.
package message

type (
	// Args are the values passed to Emit and handed back to a Once
	// listener. A single entry in a topic carries one Args
	Args []any

	// Codec converts Args to and from the bytes stored in a durable.Log.
	// Decode(Encode(a)) must produce a value the caller considers equal to
	// a for every Args it intends to send
	Codec interface {
		Encode(Args) ([]byte, error)
		Decode([]byte) (Args, error)
	}
)

// Default is the codec used when none is configured
var Default Codec = JSON
