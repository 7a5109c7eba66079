package models

import (
	"encoding/base64"
	"unicode/utf8"
)

// ContentEncodingBase64 marks inline content that is not valid UTF-8.
const ContentEncodingBase64 = "base64"

// EncodeContent prepares a raw page body for a JSON string field.
// Valid UTF-8 is returned as is with an empty encoding; anything else is
// base64-encoded so the original bytes survive the round trip.
func EncodeContent(b []byte) (content, encoding string) {
	if utf8.Valid(b) {
		return string(b), ""
	}
	return base64.StdEncoding.EncodeToString(b), ContentEncodingBase64
}
