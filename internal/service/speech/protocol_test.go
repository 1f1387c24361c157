package speech

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameEncodeDecode(t *testing.T) {
	payload, err := gzipBytes([]byte(`{"result":{"text":"hello"}}`))
	require.NoError(t, err)

	in := &frame{
		Type:          fullServerResponse,
		Flags:         flagNegativeSequence,
		Serialization: serializationJSON,
		Compression:   compressionGzip,
		Sequence:      -3,
		Payload:       payload,
	}

	out, err := decodeFrame(in.encode())
	require.NoError(t, err)

	assert.Equal(t, fullServerResponse, out.Type)
	assert.Equal(t, int32(-3), out.Sequence)
	assert.True(t, out.isLast())
	assert.False(t, out.hasEvent())

	body, err := out.payload()
	require.NoError(t, err)
	assert.JSONEq(t, `{"result":{"text":"hello"}}`, string(body))
}

func TestFrameWithEventCarriesSessionID(t *testing.T) {
	in := &frame{
		Type:          fullServerResponse,
		Flags:         flagWithEvent,
		Serialization: serializationJSON,
		Event:         eventSessionFinished,
		SessionID:     "session-1",
		Payload:       []byte(`{}`),
	}

	out, err := decodeFrame(in.encode())
	require.NoError(t, err)
	assert.True(t, out.hasEvent())
	assert.Equal(t, eventSessionFinished, out.Event)
	assert.Equal(t, "session-1", out.SessionID)
	assert.Equal(t, []byte(`{}`), out.Payload)
}

func TestFrameErrorCode(t *testing.T) {
	in := &frame{Type: errorResponse, ErrorCode: 45000001, Payload: []byte("bad request")}

	out, err := decodeFrame(in.encode())
	require.NoError(t, err)
	assert.Equal(t, uint32(45000001), out.ErrorCode)
	assert.Equal(t, "bad request", string(out.Payload))
}

func TestDecodeFrameRejectsGarbage(t *testing.T) {
	_, err := decodeFrame([]byte{0x11})
	require.Error(t, err)

	_, err = decodeFrame([]byte{0x21, 0x90, 0x10, 0x00, 0, 0, 0, 0})
	require.Error(t, err)

	truncated := (&frame{Type: fullServerResponse, Payload: []byte("abcdef")}).encode()
	_, err = decodeFrame(truncated[:len(truncated)-2])
	require.Error(t, err)
}

func TestNormalizeAudioFormat(t *testing.T) {
	assert.Equal(t, "wav", normalizeAudioFormat(" WAV "))
	assert.Equal(t, "ogg", normalizeAudioFormat("webm"))
	assert.Equal(t, "wav", normalizeAudioFormat(""))
	assert.Equal(t, "mp3", normalizeAudioFormat("mp3"))
}

func TestTTSResourceID(t *testing.T) {
	assert.Equal(t, "seed-tts-2.0", ttsResourceID("en_female_amy_jupiter_bigtts"))
	assert.Equal(t, "volc.megatts.default", ttsResourceID("S_custom"))
	assert.Equal(t, "volc.service_type.10029", ttsResourceID("BV001_streaming"))
}
