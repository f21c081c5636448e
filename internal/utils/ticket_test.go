package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateTicketID(t *testing.T) {
	now := time.Date(2026, 8, 27, 15, 30, 0, 0, time.UTC)

	id, err := GenerateTicketID(now)
	require.NoError(t, err)

	parts := strings.Split(id, "-")
	require.Len(t, parts, 3)
	assert.Equal(t, "TKT", parts[0])
	assert.Equal(t, "20260827153000", parts[1])
	assert.Len(t, parts[2], 6)

	// The suffix alphabet drops ambiguous characters.
	for _, c := range parts[2] {
		assert.Contains(t, ticketIDAlphabet, string(c))
	}

	other, err := GenerateTicketID(now)
	require.NoError(t, err)
	assert.NotEqual(t, id, other)
}

func TestTicketPayloadRoundTrip(t *testing.T) {
	payload := TicketPayload{
		TicketID:       "TKT-20260827153000-7KQ2MD",
		RegistrationID: "6e7b4c1a-3f2d-4e5b-9c8d-1a2b3c4d5e6f",
		EventID:        "0f1e2d3c-4b5a-6978-8796-a5b4c3d2e1f0",
		ParticipantID:  "11111111-2222-3333-4444-555555555555",
		IssuedAt:       time.Date(2026, 8, 27, 15, 30, 0, 0, time.UTC),
	}

	encoded, err := EncodeTicketPayload(payload)
	require.NoError(t, err)

	decoded, err := DecodeTicketPayload(encoded)
	require.NoError(t, err)
	assert.Equal(t, payload.TicketID, decoded.TicketID)
	assert.Equal(t, payload.RegistrationID, decoded.RegistrationID)
	assert.Equal(t, payload.EventID, decoded.EventID)
	assert.Equal(t, payload.ParticipantID, decoded.ParticipantID)
	assert.True(t, payload.IssuedAt.Equal(decoded.IssuedAt))
}

func TestDecodeTicketPayloadRejectsGarbage(t *testing.T) {
	_, err := DecodeTicketPayload("not base64 at all!!!")
	assert.Error(t, err)

	_, err = DecodeTicketPayload("bm90IGpzb24=")
	assert.Error(t, err)
}
