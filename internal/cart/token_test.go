package cart

import (
	"encoding/base64"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		m    Mapping
	}{
		{"empty", Mapping{}},
		{"single selected", Mapping{7: {Qty: 1, Selected: true}}},
		{"mixed", Mapping{
			1:      {Qty: 2, Selected: true},
			2:      {Qty: 1, Selected: false},
			999999: {Qty: 30, Selected: true},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeToken(EncodeToken(tt.m))
			require.NoError(t, err)
			assert.Equal(t, tt.m, got)
		})
	}
}

func TestEncodeTokenDropsZeroQty(t *testing.T) {
	got, err := DecodeToken(EncodeToken(Mapping{1: {Qty: 0, Selected: true}, 2: {Qty: 3}}))
	require.NoError(t, err)
	assert.Equal(t, Mapping{2: {Qty: 3}}, got)
}

func TestEncodeTokenDeterministic(t *testing.T) {
	m := Mapping{5: {Qty: 1}, 3: {Qty: 2, Selected: true}, 9: {Qty: 7}}
	assert.Equal(t, EncodeToken(m), EncodeToken(m))
}

func TestDecodeTokenRejectsGarbage(t *testing.T) {
	// qty = 1<<63 would flip negative when converted to int
	qtyOverflow := binary.AppendUvarint([]byte{0x01, 0x01, 0x07}, 1<<63)
	qtyOverflow = append(qtyOverflow, 0x01)

	skuOverflow := binary.AppendUvarint([]byte{0x01, 0x01}, 1<<63)
	skuOverflow = append(skuOverflow, 0x01, 0x01)

	tests := []struct {
		name string
		in   string
	}{
		{"not base64", "%%%"},
		{"unknown version", base64.RawURLEncoding.EncodeToString([]byte{0x02, 0x01, 0x01, 0x01, 0x00})},
		{"truncated entry", base64.RawURLEncoding.EncodeToString([]byte{0x01, 0x02, 0x07, 0x01, 0x01})},
		{"zero quantity", base64.RawURLEncoding.EncodeToString([]byte{0x01, 0x01, 0x07, 0x00, 0x01})},
		{"bad selected flag", base64.RawURLEncoding.EncodeToString([]byte{0x01, 0x01, 0x07, 0x01, 0x02})},
		{"trailing bytes", base64.RawURLEncoding.EncodeToString([]byte{0x01, 0x01, 0x07, 0x01, 0x01, 0xff})},
		{"quantity overflow", base64.RawURLEncoding.EncodeToString(qtyOverflow)},
		{"quantity above cap", base64.RawURLEncoding.EncodeToString(append(binary.AppendUvarint([]byte{0x01, 0x01, 0x07}, 1<<40), 0x01))},
		{"sku id overflow", base64.RawURLEncoding.EncodeToString(skuOverflow)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeToken(tt.in)
			assert.ErrorIs(t, err, ErrBadToken)
		})
	}
}

func TestDecodeTokenEmptyString(t *testing.T) {
	got, err := DecodeToken("")
	require.NoError(t, err)
	assert.Empty(t, got)
}
