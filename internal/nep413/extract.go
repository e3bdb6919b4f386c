package nep413

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
)

var ErrNoRecord = errors.New("nep413: no signed-message record found in blob")

// SignedRecord is the structured record some wallets embed in their redirect
// payloads: the fields needed to run Verify.
type SignedRecord struct {
	AccountID string `json:"accountId"`
	PublicKey string `json:"publicKey"`
	Signature string `json:"signature"`
}

// ExtractSignedRecord pulls the first well-formed top-level JSON object out
// of blob and decodes it as a SignedRecord. Blobs arrive in inconsistent
// shapes: hex-encoded or raw, NUL-padded, sometimes with leading binary
// framing. Malformed input returns ErrNoRecord, never an escape.
func ExtractSignedRecord(blob []byte) (SignedRecord, error) {
	trimmed := bytes.Trim(blob, "\x00 \t\r\n")
	if decoded, ok := tryHexDecode(trimmed); ok {
		trimmed = bytes.Trim(decoded, "\x00")
	}
	for start := bytes.IndexByte(trimmed, '{'); start >= 0; {
		end, ok := objectEnd(trimmed, start)
		if ok {
			var rec SignedRecord
			candidate := trimmed[start : end+1]
			if json.Valid(candidate) && json.Unmarshal(candidate, &rec) == nil && rec.Signature != "" {
				return rec, nil
			}
		}
		next := bytes.IndexByte(trimmed[start+1:], '{')
		if next < 0 {
			break
		}
		start += 1 + next
	}
	return SignedRecord{}, ErrNoRecord
}

// tryHexDecode decodes blob if it is entirely hex digits; wallets that pass
// the record through a binary channel tend to hex-encode the whole thing.
func tryHexDecode(blob []byte) ([]byte, bool) {
	if len(blob) == 0 || len(blob)%2 != 0 {
		return nil, false
	}
	for _, b := range blob {
		if !isHexDigit(b) {
			return nil, false
		}
	}
	decoded, err := hex.DecodeString(string(blob))
	if err != nil {
		return nil, false
	}
	return decoded, true
}

func isHexDigit(b byte) bool {
	return b >= '0' && b <= '9' || b >= 'a' && b <= 'f' || b >= 'A' && b <= 'F'
}

// objectEnd walks from the opening brace at start to its matching close,
// honoring JSON string and escape rules so braces inside values do not
// terminate the scan early.
func objectEnd(blob []byte, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(blob); i++ {
		b := blob[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case b == '\\':
				escaped = true
			case b == '"':
				inString = false
			}
			continue
		}
		switch b {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
