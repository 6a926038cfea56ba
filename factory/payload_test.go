package factory

import (
	"bytes"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/admin-console/generic"
)

func pngBytes(size int) []byte {
	header := []byte("\x89PNG\r\n\x1a\n")
	return append(header, bytes.Repeat([]byte{0}, size-len(header))...)
}

// =============================================================================
// SCHEMA DECODING
// =============================================================================

func TestDecode_Ticket(t *testing.T) {
	f := NewPayloadFactory()
	var got struct {
		Subject  string `json:"subject"`
		Email    string `json:"email"`
		Priority string `json:"priority"`
	}
	err := f.Decode(KindTicket, []byte(`{"subject":"Login","description":"cannot sign in","email":"a@b.co","priority":"high"}`), &got)
	require.NoError(t, err)
	assert.Equal(t, "Login", got.Subject)
	assert.Equal(t, "high", got.Priority)
}

func TestDecode_MissingRequired(t *testing.T) {
	f := NewPayloadFactory()
	var v map[string]any
	err := f.Decode(KindTicket, []byte(`{"subject":"x"}`), &v)
	assert.ErrorIs(t, err, generic.ErrInvalidPayload)
	assert.True(t, generic.IsClientError(err))
}

func TestDecode_BadEnumReportsField(t *testing.T) {
	f := NewPayloadFactory()
	var v map[string]any
	err := f.Decode(KindProduct, []byte(`{"name":"Mug","price":"12.50","status":"Archived"}`), &v)

	var payloadErr *generic.PayloadError
	require.ErrorAs(t, err, &payloadErr)
	assert.Equal(t, "status", payloadErr.Field)
}

func TestDecode_SaleQuantityMustBePositive(t *testing.T) {
	f := NewPayloadFactory()
	var v map[string]any
	err := f.Decode(KindSale, []byte(`{"firstName":"A","lastName":"B","productId":"p1","quantity":0,"paymentReceipt":"x"}`), &v)
	assert.ErrorIs(t, err, generic.ErrInvalidPayload)
}

func TestDecode_MalformedJSON(t *testing.T) {
	var v map[string]any
	err := NewPayloadFactory().Decode(KindTransaction, []byte(`{"amount":`), &v)
	assert.ErrorIs(t, err, generic.ErrInvalidPayload)
}

func TestDecode_TransactionDateTimeFormat(t *testing.T) {
	f := NewPayloadFactory()
	var v map[string]any
	assert.NoError(t, f.Decode(KindTransaction, []byte(`{"amount":"10","paidAt":"2024-02-29T10:00:00Z"}`), &v))
	assert.Error(t, f.Decode(KindTransaction, []byte(`{"amount":"10","paidAt":"yesterday"}`), &v))
}

func TestEverySchemaCompiles(t *testing.T) {
	f := NewPayloadFactory()
	for _, k := range Kinds() {
		_, err := f.schemaFor(k)
		if err != nil {
			t.Errorf("schema %s: %v", k, err)
		}
	}
}

// =============================================================================
// TRANSITIONS
// =============================================================================

func TestParseTransition_Withdrawal(t *testing.T) {
	req, err := NewPayloadFactory().ParseTransition(generic.DomainWithdrawal,
		[]byte(`{"status":"cancelled","adminId":" admin-7 ","cancellationReason":"fraud"}`))
	require.NoError(t, err)

	assert.Equal(t, generic.WithdrawalCancelled, req.Status)
	assert.Equal(t, generic.AdminID("admin-7"), req.AdminID)
	assert.Equal(t, "fraud", req.Payload.CancellationReason)
	assert.NoError(t, generic.ValidateTransition(req.Domain, generic.WithdrawalPending, req.Status, req.Payload))
}

func TestParseTransition_TicketActionEnum(t *testing.T) {
	_, err := NewPayloadFactory().ParseTransition(generic.DomainTicket,
		[]byte(`{"status":"open","action":"approve"}`))
	assert.ErrorIs(t, err, generic.ErrInvalidPayload)
}

func TestParseTransition_UnknownDomain(t *testing.T) {
	_, err := NewPayloadFactory().ParseTransition(generic.Domain("invoice"), []byte(`{"status":"paid"}`))
	assert.ErrorIs(t, err, generic.ErrUnknownDomain)
}

// =============================================================================
// IMAGES
// =============================================================================

func TestDecodeImage_DataURL(t *testing.T) {
	encoded := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes(64))
	img, err := DecodeImage(encoded)
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.ContentType)
	assert.Len(t, img.Data, 64)
}

func TestDecodeImage_Webp(t *testing.T) {
	data := append([]byte("RIFF\x00\x00\x00\x00WEBPVP8 "), make([]byte, 32)...)
	img, err := DecodeImage(base64.StdEncoding.EncodeToString(data))
	require.NoError(t, err)
	assert.Equal(t, "image/webp", img.ContentType)
}

func TestDecodeImage_TooLarge(t *testing.T) {
	_, err := DecodeImage(base64.StdEncoding.EncodeToString(pngBytes(MaxImageBytes + 1)))
	assert.ErrorIs(t, err, ErrImageTooLarge)

	_, err = DecodeImage(base64.StdEncoding.EncodeToString(pngBytes(MaxImageBytes)))
	assert.NoError(t, err, "exactly 50KB is allowed")
}

func TestDecodeImage_Unsupported(t *testing.T) {
	cases := map[string]string{
		"gif":           base64.StdEncoding.EncodeToString([]byte("GIF89a-------")),
		"not base64":    "%%%",
		"type mismatch": "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(pngBytes(32)),
		"empty":         "  ",
	}
	for name, encoded := range cases {
		_, err := DecodeImage(encoded)
		if !errors.Is(err, ErrUnsupportedImage) {
			t.Errorf("%s: expected ErrUnsupportedImage, got %v", name, err)
		}
	}
}
