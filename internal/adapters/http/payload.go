package http

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/klauspost/compress/gzip"

	"github.com/bft-labs/greenfinch/internal/domain"
)

// PayloadEncoding selects how a batch is placed in the "data" field.
type PayloadEncoding string

const (
	// EncodingJSON sends the batch as a JSON array.
	EncodingJSON PayloadEncoding = "json"
	// EncodingBase64 sends the batch as a base64 string of the JSON array.
	EncodingBase64 PayloadEncoding = "base64"
)

// ParsePayloadEncoding validates s. An empty string selects EncodingJSON.
func ParsePayloadEncoding(s string) (PayloadEncoding, error) {
	switch PayloadEncoding(strings.ToLower(strings.TrimSpace(s))) {
	case "", EncodingJSON:
		return EncodingJSON, nil
	case EncodingBase64:
		return EncodingBase64, nil
	default:
		return "", fmt.Errorf("unknown payload encoding %q", s)
	}
}

// encodePayload builds the request body {"data": batch}.
func encodePayload(batch domain.Queue, enc PayloadEncoding) ([]byte, error) {
	if batch == nil {
		batch = domain.Queue{}
	}
	records, err := json.Marshal(batch)
	if err != nil {
		return nil, fmt.Errorf("marshal batch: %w", err)
	}

	var data any = json.RawMessage(records)
	if enc == EncodingBase64 {
		data = base64.StdEncoding.EncodeToString(records)
	}
	body, err := json.Marshal(struct {
		Data any `json:"data"`
	}{Data: data})
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return body, nil
}

// compress gzips body.
func compress(body []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(body); err != nil {
		return nil, fmt.Errorf("gzip payload: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("gzip payload: %w", err)
	}
	return buf.Bytes(), nil
}

// parseAck reads the ingestion acknowledgement: a bare integer, or a JSON
// object with an integer "status". 1 means accepted, 0 means some records
// were rejected. Any other text body counts as 0. Only a body that is not
// UTF-8 text is unreadable.
func parseAck(body []byte) (int, bool) {
	if !utf8.Valid(body) {
		return 0, false
	}
	s := strings.TrimSpace(string(body))
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	var obj struct {
		Status *int `json:"status"`
	}
	if err := json.Unmarshal([]byte(s), &obj); err == nil && obj.Status != nil {
		return *obj.Status, true
	}
	return 0, true
}
