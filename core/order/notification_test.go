package order

import (
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"strings"
	"testing"
)

func Test_Notification_Signature(t *testing.T) {
	n := Notification{Transaction: Transaction{
		OrderRef:   "IA-abc123",
		StatusCode: "200",
		Amount:     "15000",
	}}
	key := "secret"

	// digest over ref + status code + amount + key, in that order
	sum := sha512.Sum512([]byte("IA-abc123" + "200" + "15000" + "secret"))
	want := hex.EncodeToString(sum[:])

	if got := n.Signature(key); got != want {
		t.Errorf("Signature() = %s, want %s", got, want)
	}
}

func Test_Notification_VerifySignature(t *testing.T) {
	n := Notification{Transaction: Transaction{
		OrderRef:   "IA-abc123",
		StatusCode: "200",
		Amount:     "15000",
	}}
	key := "secret"
	sig := n.Signature(key)

	tests := []struct {
		name     string
		received string
		want     bool
	}{
		{name: "valid", received: sig, want: true},
		{name: "valid uppercase", received: strings.ToUpper(sig), want: true},
		{name: "empty", received: "", want: false},
		{name: "tampered", received: sig[:len(sig)-1] + "0", want: false},
		{name: "wrong key", received: n.Signature("other"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := n.VerifySignature(tt.received, key); got != tt.want {
				t.Errorf("VerifySignature() = %v, want %v", got, tt.want)
			}
		})
	}

	// changing any signed field invalidates the old signature
	n.Transaction.Amount = "15001"
	if n.VerifySignature(sig, key) {
		t.Error("signature should not survive an amount change")
	}
}

func Test_Notification_unmarshal(t *testing.T) {
	payload := `{
		"transaction": {
			"id": "txn-9",
			"order_id": "IA-abc123",
			"amount": "15000",
			"status_code": "200",
			"success": true,
			"payment_type": "card",
			"transaction_time": "2026-03-15 18:00:00"
		}
	}`

	var n Notification
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if n.Transaction.OrderRef != "IA-abc123" {
		t.Errorf("OrderRef = %q", n.Transaction.OrderRef)
	}
	if !n.Transaction.Success {
		t.Error("Success should be true")
	}
}
