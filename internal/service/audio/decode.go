package audio

import (
	"encoding/base64"
	"strings"
)

// Payload is a decoded audio chunk with its resolved MIME type.
type Payload struct {
	Bytes    []byte
	MIMEType string
}

// DecodeError marks a malformed or empty audio payload. It is a client
// fault, not an upstream one.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return "decode audio: " + e.Reason
}

const defaultMIMEType = "audio/wav"

// Decode accepts either a bare base64 string or a data: URI
// ("data:audio/wav;base64,xxxx") and returns the raw bytes plus the resolved
// MIME type. A MIME type embedded in a data URI wins over the mimeType
// argument; both default to audio/wav.
func Decode(audioBase64, mimeType string) (Payload, error) {
	if audioBase64 == "" {
		return Payload{}, &DecodeError{Reason: "audioBase64 is empty"}
	}

	b64 := audioBase64
	mt := strings.TrimSpace(mimeType)
	if mt == "" {
		mt = defaultMIMEType
	}

	if strings.HasPrefix(audioBase64, "data:") {
		comma := strings.IndexByte(audioBase64, ',')
		if comma < 0 {
			return Payload{}, &DecodeError{Reason: "invalid data URL (no comma)"}
		}
		header := audioBase64[len("data:"):comma]
		b64 = audioBase64[comma+1:]
		if mediaType, _, _ := strings.Cut(header, ";"); mediaType != "" {
			mt = mediaType
		}
	}

	buf, err := decodeBase64(b64)
	if err != nil {
		return Payload{}, &DecodeError{Reason: "invalid base64 payload"}
	}
	if len(buf) == 0 {
		return Payload{}, &DecodeError{Reason: "decoded audio buffer is empty"}
	}

	return Payload{Bytes: buf, MIMEType: mt}, nil
}

// decodeBase64 tolerates missing padding, which some recorders emit.
func decodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	buf, err := base64.StdEncoding.DecodeString(s)
	if err == nil {
		return buf, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}
