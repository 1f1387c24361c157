package speech

import (
	"context"
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
	defaultASRURL = "wss://openspeech.bytedance.com/api/v3/sauc/bigmodel_nostream"
	// 16kHz, 16 bit, mono: 200ms of audio per packet.
	asrChunkSize = 6400
	// The full client request takes sequence 1; audio starts at 2.
	asrFirstAudioSequence = 2
	asrSuccessCode        = 20000000
)

// ErrNoSpeech is returned when the recognizer heard nothing it could transcribe.
var ErrNoSpeech = errors.New("no speech recognized")

// VolcengineTranscriber sends recorded audio to the Volcengine big-model ASR.
type VolcengineTranscriber struct {
	appID      string
	token      string
	resourceID string
	language   string
	url        string
	dialer     *websocket.Dialer
}

type asrRequest struct {
	User struct {
		UID string `json:"uid,omitempty"`
	} `json:"user"`
	Audio struct {
		Language string `json:"language,omitempty"`
		Format   string `json:"format"`
		Codec    string `json:"codec,omitempty"`
		Rate     int    `json:"rate,omitempty"`
		Bits     int    `json:"bits,omitempty"`
		Channel  int    `json:"channel,omitempty"`
	} `json:"audio"`
	Request struct {
		ModelName  string `json:"model_name"`
		EnableITN  bool   `json:"enable_itn,omitempty"`
		EnablePunc bool   `json:"enable_punc,omitempty"`
		ResultType string `json:"result_type,omitempty"`
	} `json:"request"`
}

// Transcribe returns the recognized text of audio.
func (c *VolcengineTranscriber) Transcribe(ctx context.Context, audio []byte, format string) (string, error) {
	if len(audio) == 0 {
		return "", errors.New("no audio data to send")
	}

	connectID := uuid.NewString()
	header := http.Header{}
	header.Set("X-Api-App-Key", c.appID)
	header.Set("X-Api-Access-Key", c.token)
	header.Set("X-Api-Resource-Id", c.resourceID)
	header.Set("X-Api-Connect-Id", connectID)

	conn, resp, err := c.dialer.DialContext(ctx, c.url, header)
	if err != nil {
		return "", errors.Wrap(err, "connect to ASR websocket")
	}
	defer conn.Close()

	if resp != nil {
		if logID := resp.Header.Get("X-Tt-Logid"); logID != "" {
			log.Debug().Str("logid", logID).Msg("asr connected")
		}
	}

	stop := closeOnDone(ctx, conn)
	defer stop()

	if err := c.sendRequest(conn, connectID, format); err != nil {
		return "", err
	}
	if err := c.sendAudio(conn, audio); err != nil {
		return "", err
	}

	text, err := c.receive(conn)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", err
	}
	return text, nil
}

func (c *VolcengineTranscriber) sendRequest(conn *websocket.Conn, uid, format string) error {
	req := asrRequest{}
	req.User.UID = uid
	req.Audio.Language = c.language
	req.Audio.Format = normalizeAudioFormat(format)
	req.Audio.Codec = "raw"
	req.Audio.Rate = 16000
	req.Audio.Bits = 16
	req.Audio.Channel = 1
	req.Request.ModelName = "bigmodel"
	req.Request.EnableITN = true
	req.Request.EnablePunc = true
	req.Request.ResultType = "full"

	payload, err := sonic.Marshal(&req)
	if err != nil {
		return errors.Wrap(err, "marshal ASR request")
	}
	compressed, err := gzipBytes(payload)
	if err != nil {
		return err
	}

	f := &frame{
		Type:          fullClientRequest,
		Flags:         flagNoSequence,
		Serialization: serializationJSON,
		Compression:   compressionGzip,
		Payload:       compressed,
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, f.encode()); err != nil {
		return errors.Wrap(err, "send ASR request")
	}
	return nil
}

func (c *VolcengineTranscriber) sendAudio(conn *websocket.Conn, audio []byte) error {
	sequence := int32(asrFirstAudioSequence)
	for start := 0; start < len(audio); start += asrChunkSize {
		end := min(start+asrChunkSize, len(audio))
		last := end == len(audio)

		chunk, err := gzipBytes(audio[start:end])
		if err != nil {
			return err
		}

		f := &frame{
			Type:          audioOnlyRequest,
			Flags:         flagPositiveSequence,
			Serialization: serializationNone,
			Compression:   compressionGzip,
			Sequence:      sequence,
			Payload:       chunk,
		}
		if last {
			f.Flags = flagNegativeSequence
			f.Sequence = -sequence
		}

		if err := conn.WriteMessage(websocket.BinaryMessage, f.encode()); err != nil {
			return errors.Wrap(err, "send audio chunk")
		}
		sequence++
	}
	return nil
}

func (c *VolcengineTranscriber) receive(conn *websocket.Conn) (string, error) {
	var text string

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return "", errors.Wrap(err, "read ASR response")
		}

		f, err := decodeFrame(data)
		if err != nil {
			return "", errors.Wrap(err, "decode ASR frame")
		}

		switch f.Type {
		case errorResponse:
			body, _ := f.payload()
			return "", errors.Errorf("ASR error %d: %s", f.ErrorCode, string(body))

		case fullServerResponse:
			body, err := f.payload()
			if err != nil {
				return "", errors.Wrap(err, "decompress ASR payload")
			}

			result := gjson.ParseBytes(body)
			if code := result.Get("code"); code.Exists() && code.Int() != 0 && code.Int() != asrSuccessCode {
				return "", errors.Errorf("ASR API error %d: %s", code.Int(), result.Get("message").String())
			}

			if candidate := transcriptText(result); candidate != "" {
				text = candidate
			}

			if f.isLast() || result.Get("sequence").Int() < 0 {
				text = strings.TrimSpace(text)
				if text == "" {
					return "", ErrNoSpeech
				}
				return text, nil
			}
		}
	}
}

// transcriptText prefers result.text and falls back to joined utterances.
func transcriptText(result gjson.Result) string {
	if text := result.Get("result.text").String(); text != "" {
		return text
	}

	var parts []string
	for _, u := range result.Get("result.utterances.#.text").Array() {
		if s := strings.TrimSpace(u.String()); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

func normalizeAudioFormat(format string) string {
	switch f := strings.ToLower(strings.TrimSpace(format)); f {
	case "wav", "mp3", "ogg", "pcm":
		return f
	case "webm", "opus":
		return "ogg"
	default:
		return "wav"
	}
}

// closeOnDone closes conn when ctx ends so blocked reads return.
func closeOnDone(ctx context.Context, conn *websocket.Conn) func() {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.SetReadDeadline(time.Now())
			_ = conn.Close()
		case <-done:
		}
	}()
	return func() { close(done) }
}
