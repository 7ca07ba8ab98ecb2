package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrMalformedJSON marks an inbound line that is not a well-formed envelope.
	ErrMalformedJSON = errors.New("malformed JSON")
	// ErrUnknownKind marks an envelope whose type is absent or outside the kind set.
	ErrUnknownKind = errors.New("unknown message kind")
)

// maxErrorLineBytes caps how much of an offending line is kept in a DecodeError.
const maxErrorLineBytes = 256

// DecodeError describes why a single inbound line was rejected.
// Reason is ErrMalformedJSON or ErrUnknownKind.
type DecodeError struct {
	Reason error
	Line   string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode envelope: %v: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("decode envelope: %v", e.Reason)
}

func (e *DecodeError) Unwrap() []error {
	errs := []error{e.Reason}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func newDecodeError(reason error, line []byte, err error) *DecodeError {
	if len(line) > maxErrorLineBytes {
		line = line[:maxErrorLineBytes]
	}
	return &DecodeError{Reason: reason, Line: string(line), Err: err}
}

type outboundEnvelope struct {
	Type Kind    `json:"type"`
	Data Message `json:"data"`
}

type inboundEnvelope struct {
	Type json.RawMessage `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Encode serializes msg as a single-line envelope without a trailing newline.
func Encode(msg Message) ([]byte, error) {
	if msg == nil {
		return nil, fmt.Errorf("encode envelope: nil message")
	}
	kind := msg.Kind()
	if !kind.Valid() {
		return nil, fmt.Errorf("encode envelope: %w: %d", ErrUnknownKind, int(kind))
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(outboundEnvelope{Type: kind, Data: msg}); err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}

	// json.Encoder terminates with '\n'; the transport adds its own.
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Decode parses one line into its typed message.
// Missing fields decode to zero values; unknown fields are ignored.
func Decode(line []byte) (Message, error) {
	line = bytes.TrimSpace(line)

	var env inboundEnvelope
	if err := json.Unmarshal(line, &env); err != nil {
		return nil, newDecodeError(ErrMalformedJSON, line, err)
	}

	kind, ok := parseKindField(env.Type)
	if !ok {
		return nil, newDecodeError(ErrUnknownKind, line, nil)
	}

	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		data = []byte("{}")
	}
	if data[0] != '{' {
		return nil, newDecodeError(ErrMalformedJSON, line, fmt.Errorf("data for %s is not an object", kind))
	}

	var (
		msg Message
		err error
	)
	switch kind {
	case KindSetTimestamp:
		msg, err = decodePayload[SetTimestamp](data)
	case KindLoadPreset:
		msg, err = decodePayload[LoadPreset](data)
	case KindDeletePreset:
		msg, err = decodePayload[DeletePreset](data)
	case KindStartPreview:
		msg, err = decodePayload[StartPreview](data)
	case KindStopPreview:
		msg, err = decodePayload[StopPreview](data)
	case KindPresetLoaded:
		msg, err = decodePayload[PresetLoaded](data)
	case KindCurrentState:
		msg, err = decodePayload[CurrentState](data)
	case KindPreviewStatus:
		msg, err = decodePayload[PreviewStatus](data)
	case KindError:
		msg, err = decodePayload[ErrorReport](data)
	}
	if err != nil {
		return nil, newDecodeError(ErrMalformedJSON, line, fmt.Errorf("%s payload: %w", kind, err))
	}
	return msg, nil
}

func decodePayload[T Message](data []byte) (Message, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func parseKindField(raw json.RawMessage) (Kind, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, false
	}
	var n int
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, false
	}
	kind := Kind(n)
	return kind, kind.Valid()
}
