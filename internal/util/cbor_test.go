package util

import (
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderCBOR_LabelsAndBytes(t *testing.T) {
	payload, err := cbor.Marshal(map[any]any{
		10:      [][]byte{{0xde, 0xad}},
		99:      "x",
		"name":  []byte{0x01},
		"other": cbor.Tag{Number: 4000, Content: 5},
	})
	require.NoError(t, err)

	out, err := RenderCBOR(payload, map[int64]string{10: "nonce"})
	if err != nil {
		t.Fatalf("RenderCBOR: %v", err)
	}
	assert.Contains(t, out, `"nonce": [`)
	assert.Contains(t, out, `"h'dead'"`)
	assert.Contains(t, out, `"99": "x"`)
	assert.Contains(t, out, `"name": "h'01'"`)
	assert.Contains(t, out, `"tag": 4000`)
}

func TestRenderCBOR_Malformed(t *testing.T) {
	_, err := RenderCBOR([]byte{0xff}, nil)
	assert.Error(t, err)
}
