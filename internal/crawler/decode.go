package crawler

import (
	"fmt"
	"mime"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
)

// Decode converts raw bytes encoded in the named charset into a UTF-8 string.
// Names are resolved with the WHATWG encoding index, so aliases such as
// "latin1", "cp1251" or "Shift_JIS" work. Unknown names fail with
// ErrUnsupportedCharset.
func Decode(raw []byte, charsetName string) (string, error) {
	name := strings.Trim(strings.TrimSpace(charsetName), `"'`)
	enc, err := htmlindex.Get(name)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedCharset, charsetName)
	}

	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("failed to decode %s body: %w", name, err)
	}
	return string(decoded), nil
}

// charsetParam extracts the charset parameter from a Content-Type value.
// Returns an empty string when there is none.
func charsetParam(contentType string) string {
	if _, params, err := mime.ParseMediaType(contentType); err == nil {
		return params["charset"]
	}

	// Malformed media types still get a best-effort look for "charset=".
	_, after, found := strings.Cut(strings.ToLower(contentType), "charset=")
	if !found {
		return ""
	}
	value, _, _ := strings.Cut(after, ";")
	return strings.TrimSpace(value)
}
