package http

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/greenfinch/internal/domain"
)

func bytesReader(b []byte) io.Reader {
	return bytes.NewReader(b)
}

func TestEncodePayload_EmptyBatch(t *testing.T) {
	body, err := encodePayload(nil, EncodingJSON)
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":[]}`, string(body))
}

func TestEncodePayload_UnsupportedValue(t *testing.T) {
	_, err := encodePayload(domain.Queue{{"bad": make(chan int)}}, EncodingJSON)
	assert.Error(t, err)
}

func TestParsePayloadEncoding(t *testing.T) {
	tests := []struct {
		in      string
		want    PayloadEncoding
		wantErr bool
	}{
		{"", EncodingJSON, false},
		{"JSON", EncodingJSON, false},
		{" base64 ", EncodingBase64, false},
		{"protobuf", "", true},
	}

	for _, tt := range tests {
		got, err := ParsePayloadEncoding(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.in)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestParseAck(t *testing.T) {
	tests := []struct {
		body   string
		want   int
		wantOK bool
	}{
		{"1", 1, true},
		{" 0\n", 0, true},
		{`{"status":1}`, 1, true},
		{`{"error":"x"}`, 0, true},
		{"ok", 0, true},
		{"<html>", 0, true},
		{"\xff\xfe", 0, false},
	}

	for _, tt := range tests {
		got, ok := parseAck([]byte(tt.body))
		assert.Equal(t, tt.wantOK, ok, "body %q", tt.body)
		assert.Equal(t, tt.want, got, "body %q", tt.body)
	}
}
