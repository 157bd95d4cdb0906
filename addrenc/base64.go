package addrenc

import "encoding/base64"

// EncodeBase64 standard-encodes raw, used only for HTTP Basic-auth
// payloads (spec.md section 4.B).
func EncodeBase64(raw []byte) string {
	return base64.StdEncoding.EncodeToString(raw)
}

// DecodeBase64 reverses EncodeBase64.
func DecodeBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}
