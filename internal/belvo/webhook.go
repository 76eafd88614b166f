package belvo

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Webhook types Belvo delivers. Only TRANSACTIONS carries raw records the
// pipeline ingests; the others are acknowledged and logged.
const (
	WebhookTypeTransactions = "TRANSACTIONS"
	WebhookTypeAccounts     = "ACCOUNTS"
	WebhookTypeLinks        = "LINKS"
)

// WebhookEvent is the envelope of a Belvo webhook delivery
type WebhookEvent struct {
	WebhookID   string          `json:"webhook_id"`
	WebhookType string          `json:"webhook_type"`
	WebhookCode string          `json:"webhook_code"`
	LinkID      string          `json:"link_id"`
	Data        json.RawMessage `json:"data"`
}

// TransactionRecord is one raw transaction in a TRANSACTIONS webhook payload
type TransactionRecord struct {
	ID          string          `json:"id"`
	Description *string         `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	ValueDate   string          `json:"value_date"`
	Type        string          `json:"type"`
	Account     struct {
		ID string `json:"id"`
	} `json:"account"`
}

// Date parses the record's value date
func (r *TransactionRecord) Date() (time.Time, error) {
	return time.Parse("2006-01-02", r.ValueDate)
}

// VerifyWebhook verifies the delivery signature and parses the event. The
// signature header carries "sha256=<hex>" over the raw payload, keyed with
// the shared webhook secret.
func (c *Client) VerifyWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	received := strings.TrimPrefix(signature, "sha256=")
	if received == "" {
		return nil, fmt.Errorf("missing webhook signature")
	}

	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(received), []byte(expected)) {
		return nil, fmt.Errorf("signature verification failed")
	}

	var event WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("invalid webhook payload: %w", err)
	}

	return &event, nil
}

// ParseTransactions decodes the data block of a TRANSACTIONS event
func ParseTransactions(data json.RawMessage) ([]TransactionRecord, error) {
	var records []TransactionRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("invalid transactions payload: %w", err)
	}
	return records, nil
}
