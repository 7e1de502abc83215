package model

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// Message is an inbound bank notification as delivered by the message source.
type Message struct {
	ReceivedAt time.Time
	Sender     string
	Body       string
}

// Hash fingerprints the delivery itself rather than the transaction it
// describes. Two notifications with identical text received at different
// times are distinct purchases; only a replay of the same delivery collides.
func (m Message) Hash() string {
	received := ""
	if !m.ReceivedAt.IsZero() {
		received = m.ReceivedAt.UTC().Format(time.RFC3339Nano)
	}
	sum := sha256.Sum256([]byte("sms:" + m.Sender + ":" + received + ":" + m.Body))
	return fmt.Sprintf("%x", sum)
}

// MessagePattern is a per-institution template for recognizing and parsing a
// notification. Field patterns use their first capture group when present,
// otherwise the whole match.
type MessagePattern struct {
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	ID               string    `json:"id"`
	Institution      string    `json:"institution"`
	SenderPattern    string    `json:"sender_pattern"`
	AmountPattern    string    `json:"amount_pattern"`
	MerchantPattern  string    `json:"merchant_pattern"`
	DatePattern      string    `json:"date_pattern"`
	DirectionPattern string    `json:"direction_pattern"`
	AccountPattern   string    `json:"account_pattern,omitempty"`
	IsActive         bool      `json:"is_active"`
}
