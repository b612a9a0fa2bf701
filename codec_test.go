package eventlog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type catCreatedPayload struct {
	Name string `json:"name"`
}

func TestJSONCodecRoundTrip(t *testing.T) {
	codec := JSONCodec[catCreatedPayload]()

	data, err := codec.Encode(catCreatedPayload{Name: "Mittens"})
	require.NoError(t, err)
	require.JSONEq(t, `{"name":"Mittens"}`, string(data))

	decoded, err := codec.Decode(data)
	require.NoError(t, err)
	require.Equal(t, catCreatedPayload{Name: "Mittens"}, decoded)
}

func TestJSONCodecDecodeInvalidJSON(t *testing.T) {
	codec := JSONCodec[catCreatedPayload]()
	_, err := codec.Decode([]byte(`{not json`))
	require.Error(t, err)
}
