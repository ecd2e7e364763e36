package imaging

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var ErrEmptyPayload = errors.New("empty image payload")

// ParseDataURL splits a base64 data URL into its media type and decoded
// bytes. A bare base64 body without the "data:" header is accepted and its
// media type sniffed from the content.
func ParseDataURL(s string) (string, []byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil, ErrEmptyPayload
	}

	if !strings.HasPrefix(s, "data:") {
		b, err := decodeBase64(s)
		if err != nil {
			return "", nil, fmt.Errorf("decode base64 body: %w", err)
		}
		return mimetype.Detect(b).String(), b, nil
	}

	header, body, ok := strings.Cut(s[len("data:"):], ",")
	if !ok {
		return "", nil, fmt.Errorf("data url has no body")
	}
	mediaType, params, _ := strings.Cut(header, ";")
	if !strings.Contains(params, "base64") {
		return "", nil, fmt.Errorf("data url is not base64 encoded")
	}

	b, err := decodeBase64(body)
	if err != nil {
		return "", nil, fmt.Errorf("decode base64 body: %w", err)
	}
	if mediaType == "" {
		mediaType = mimetype.Detect(b).String()
	}
	return mediaType, b, nil
}

// EncodeDataURL builds a base64 data URL.
func EncodeDataURL(mediaType string, b []byte) string {
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(b)
}

// DataURLFromBytes sniffs the media type of b and encodes it as a data URL.
func DataURLFromBytes(b []byte) string {
	mt := mimetype.Detect(b)
	// strip parameters such as "; charset=binary"
	mediaType, _, _ := strings.Cut(mt.String(), ";")
	return EncodeDataURL(mediaType, b)
}

func decodeBase64(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err == nil {
		return b, nil
	}
	// some encoders drop the padding
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}
