package order

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// The gateway signs each notification with
//
//	SHA512(orderReference + statusCode + amount + serverKey)
//
// hex-encoded, lowercase. The field list and order are the gateway's
// protocol contract: changing either produces a different digest and the
// gateway reports nothing; authentication just fails. Keep the
// concatenation in signatureBase as the single place encoding it.

// Notification is the payload the gateway POSTs when a payment attempt
// settles, wrapping the transaction in a nested object.
type Notification struct {
	Transaction Transaction `json:"transaction"`
}

type Transaction struct {
	ID            string `json:"id"`             // gateway-side transaction ref
	OrderRef      string `json:"order_id"`       // our merchant reference
	Amount        string `json:"amount"`         // stringified by the gateway
	StatusCode    string `json:"status_code"`
	Success       bool   `json:"success"`
	StatusMessage string `json:"status_message"` // failure reason when !Success
	PaymentType   string `json:"payment_type"`   // card, wallet, bank_transfer...
	CardType      string `json:"card_type,omitempty"`
	MaskedCard    string `json:"masked_card,omitempty"`
	Time          string `json:"transaction_time"`
	SettledAt     string `json:"settlement_time,omitempty"`
}

func (n Notification) signatureBase(serverKey string) string {
	t := n.Transaction
	return t.OrderRef + t.StatusCode + t.Amount + serverKey
}

// Signature computes the expected signature for this notification.
func (n Notification) Signature(serverKey string) string {
	sum := sha512.Sum512([]byte(n.signatureBase(serverKey)))
	return hex.EncodeToString(sum[:])
}

// VerifySignature checks the received signature against the recomputed one
// in constant time.
func (n Notification) VerifySignature(received, serverKey string) bool {
	if received == "" {
		return false
	}
	want := n.Signature(serverKey)
	got := strings.ToLower(received)
	return subtle.ConstantTimeCompare([]byte(want), []byte(got)) == 1
}
