package utils

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// TicketPayload is the identity bundle encoded into a ticket's QR code. The
// exact shape must round-trip through Encode/Decode: issuance writes it and
// the scanner reads it back.
type TicketPayload struct {
	TicketID       string    `json:"ticket_id"`
	RegistrationID string    `json:"registration_id"`
	EventID        string    `json:"event_id"`
	ParticipantID  string    `json:"participant_id"`
	IssuedAt       time.Time `json:"issued_at"`
}

const ticketIDAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateTicketID builds a human-decodable identifier with a timestamp
// prefix and a random suffix, e.g. TKT-20260827153000-7KQ2MD. Uniqueness is
// collision-checked by the caller against storage.
func GenerateTicketID(now time.Time) (string, error) {
	suffix := make([]byte, 6)
	if _, err := rand.Read(suffix); err != nil {
		return "", fmt.Errorf("failed to generate ticket suffix: %w", err)
	}
	for i, b := range suffix {
		suffix[i] = ticketIDAlphabet[int(b)%len(ticketIDAlphabet)]
	}
	return fmt.Sprintf("TKT-%s-%s", now.UTC().Format("20060102150405"), suffix), nil
}

// EncodeTicketPayload serializes the payload to the opaque string carried in
// the QR code.
func EncodeTicketPayload(p TicketPayload) (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to encode ticket payload: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodeTicketPayload reverses EncodeTicketPayload.
func DecodeTicketPayload(encoded string) (*TicketPayload, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid ticket payload encoding: %w", err)
	}
	var p TicketPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("invalid ticket payload: %w", err)
	}
	return &p, nil
}
