package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

const (
	defaultTTSURL   = "wss://openspeech.bytedance.com/api/v3/tts/unidirectional/stream"
	ttsFormat       = "mp3"
	ttsSampleRate   = 24000
	ttsSuccessCode  = 20000000
	ttsLegacyOKCode = 3000
)

// ErrEmptyText is returned when there is nothing to synthesize.
var ErrEmptyText = errors.New("text is empty")

// Audio is synthesized speech.
type Audio struct {
	Data     []byte
	Format   string
	Duration time.Duration
}

// VolcengineSynthesizer reads replies aloud through the Volcengine
// unidirectional streaming TTS API.
type VolcengineSynthesizer struct {
	appID  string
	token  string
	voice  string
	speed  float32
	url    string
	dialer *websocket.Dialer
}

type ttsRequest struct {
	User struct {
		UID string `json:"uid"`
	} `json:"user"`
	ReqParams struct {
		Speaker     string         `json:"speaker"`
		Text        string         `json:"text"`
		AudioParams ttsAudioParams `json:"audio_params"`
	} `json:"req_params"`
}

type ttsAudioParams struct {
	Format     string  `json:"format"`
	SampleRate int     `json:"sample_rate"`
	SpeedRatio float32 `json:"speed_ratio,omitempty"`
}

// Synthesize converts text into audio with the configured voice.
func (c *VolcengineSynthesizer) Synthesize(ctx context.Context, text string) (Audio, error) {
	if strings.TrimSpace(text) == "" {
		return Audio{}, ErrEmptyText
	}

	connectID := uuid.NewString()
	header := http.Header{}
	header.Set("X-Api-App-Key", c.appID)
	header.Set("X-Api-Access-Key", c.token)
	header.Set("X-Api-Resource-Id", ttsResourceID(c.voice))
	header.Set("X-Api-Connect-Id", connectID)

	conn, resp, err := c.dialer.DialContext(ctx, c.url, header)
	if err != nil {
		return Audio{}, errors.Wrap(err, "connect to TTS websocket")
	}
	defer conn.Close()

	if resp != nil {
		if logID := resp.Header.Get("X-Tt-Logid"); logID != "" {
			log.Debug().Str("logid", logID).Msg("tts connected")
		}
	}

	stop := closeOnDone(ctx, conn)
	defer stop()

	req := ttsRequest{}
	req.User.UID = connectID
	req.ReqParams.Speaker = c.voice
	req.ReqParams.Text = text
	req.ReqParams.AudioParams = ttsAudioParams{Format: ttsFormat, SampleRate: ttsSampleRate}
	if c.speed > 0 && c.speed != 1 {
		req.ReqParams.AudioParams.SpeedRatio = c.speed
	}

	payload, err := sonic.Marshal(&req)
	if err != nil {
		return Audio{}, errors.Wrap(err, "marshal TTS request")
	}

	f := &frame{
		Type:          fullClientRequest,
		Flags:         flagNoSequence,
		Serialization: serializationJSON,
		Compression:   compressionNone,
		Payload:       payload,
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, f.encode()); err != nil {
		return Audio{}, errors.Wrap(err, "send TTS request")
	}

	audio, err := c.receive(conn)
	if err != nil {
		if ctx.Err() != nil {
			return Audio{}, ctx.Err()
		}
		return Audio{}, err
	}
	return audio, nil
}

func (c *VolcengineSynthesizer) receive(conn *websocket.Conn) (Audio, error) {
	var (
		buf      bytes.Buffer
		duration time.Duration
	)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return Audio{}, errors.Wrap(err, "read TTS response")
		}

		f, err := decodeFrame(data)
		if err != nil {
			return Audio{}, errors.Wrap(err, "decode TTS frame")
		}

		body, err := f.payload()
		if err != nil {
			return Audio{}, errors.Wrap(err, "decompress TTS payload")
		}

		switch f.Type {
		case errorResponse:
			return Audio{}, errors.Errorf("TTS error %d: %s", f.ErrorCode, string(body))

		case audioOnlyResponse:
			buf.Write(body)

		case fullServerResponse:
			result := gjson.ParseBytes(body)
			if code := result.Get("code").Int(); code != 0 && code != ttsSuccessCode && code != ttsLegacyOKCode {
				return Audio{}, errors.Errorf("TTS API error %d: %s", code, result.Get("message").String())
			}
			if encoded := result.Get("data").String(); encoded != "" {
				chunk, err := base64.StdEncoding.DecodeString(encoded)
				if err != nil {
					return Audio{}, errors.Wrap(err, "decode base64 audio chunk")
				}
				buf.Write(chunk)
			}
			if ms := result.Get("addition.duration").Int(); ms > 0 {
				duration = time.Duration(ms) * time.Millisecond
			}

			finished := (f.hasEvent() && f.Event == eventSessionFinished) || f.isLast() || result.Get("sequence").Int() < 0
			if finished {
				if buf.Len() == 0 {
					return Audio{}, errors.New("TTS audio is empty")
				}
				return Audio{Data: buf.Bytes(), Format: ttsFormat, Duration: duration}, nil
			}
		}
	}
}

// ttsResourceID picks the resource that serves the voice family.
func ttsResourceID(voice string) string {
	const (
		legacyResource = "volc.service_type.10029"
		cloneResource  = "volc.megatts.default"
		seedResource   = "seed-tts-2.0"
	)

	switch {
	case strings.HasPrefix(voice, "S_"):
		return cloneResource
	case strings.Contains(strings.ToLower(voice), "bigtts"):
		return seedResource
	default:
		return legacyResource
	}
}
