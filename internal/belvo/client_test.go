package belvo

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/savegress/finboard/internal/config"
)

// Helper to create a test server
func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	server := httptest.NewServer(handler)
	client := &Client{
		baseURL:       server.URL,
		secretID:      "secret-id",
		secretPass:    "secret-pass",
		webhookSecret: "whsec_test",
		httpClient:    server.Client(),
	}
	return server, client
}

func signPayload(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestNewClient(t *testing.T) {
	cfg := &config.Config{
		BelvoBaseURL:        "https://sandbox.belvo.com",
		BelvoSecretID:       "id",
		BelvoSecretPassword: "pass",
		BelvoWebhookSecret:  "whsec",
	}

	client := NewClient(cfg)
	if client == nil {
		t.Fatal("NewClient returned nil")
	}
	if client.baseURL != cfg.BelvoBaseURL {
		t.Errorf("baseURL = %s, want %s", client.baseURL, cfg.BelvoBaseURL)
	}
}

func TestCreateWidgetToken(t *testing.T) {
	server, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/token/" {
			t.Errorf("path = %s, want /api/token/", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}

		user, pass, ok := r.BasicAuth()
		if !ok || user != "secret-id" || pass != "secret-pass" {
			t.Error("expected basic auth with client credentials")
		}

		json.NewEncoder(w).Encode(map[string]string{
			"access":  "access-token",
			"refresh": "refresh-token",
		})
	})
	defer server.Close()

	token, err := client.CreateWidgetToken(context.Background())
	if err != nil {
		t.Fatalf("CreateWidgetToken() error = %v", err)
	}
	if token.Access != "access-token" {
		t.Errorf("Access = %s, want access-token", token.Access)
	}
}

func TestListTransactions_Pagination(t *testing.T) {
	var server *httptest.Server
	server, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("link") == "link-1" {
			next := server.URL + "/api/transactions/?page=2"
			fmt.Fprintf(w, `{"next":%q,"results":[{"id":"tx-1","amount":"-10.50","value_date":"2025-06-01"}]}`, next)
			return
		}
		fmt.Fprint(w, `{"next":null,"results":[{"id":"tx-2","amount":"200","value_date":"2025-06-02"}]}`)
	})
	defer server.Close()

	records, err := client.ListTransactions(context.Background(), "link-1", "2025-06-01", "2025-06-30")
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2 across pages", len(records))
	}
	if records[0].ID != "tx-1" || records[1].ID != "tx-2" {
		t.Errorf("records = %v, want tx-1 then tx-2", records)
	}
	if !records[0].Amount.Equal(decimal.RequireFromString("-10.50")) {
		t.Errorf("Amount = %s, want -10.50", records[0].Amount)
	}
}

func TestDoRequest_APIError(t *testing.T) {
	server, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"detail":"Invalid credentials"}`)
	})
	defer server.Close()

	_, err := client.GetLink(context.Background(), "link-1")
	if err == nil {
		t.Fatal("expected error for 401 response")
	}
	if err.Error() != "Belvo API error: Invalid credentials" {
		t.Errorf("error = %v, want detail surfaced", err)
	}
}

func TestVerifyWebhook(t *testing.T) {
	client := &Client{webhookSecret: "whsec_test"}

	payload := []byte(`{"webhook_id":"wh-1","webhook_type":"TRANSACTIONS","webhook_code":"new_transactions_available","link_id":"link-1","data":[{"id":"tx-1","description":"COMPRA IFOOD","amount":"-45.90","value_date":"2025-06-15","account":{"id":"acc-1"}}]}`)

	event, err := client.VerifyWebhook(payload, signPayload("whsec_test", payload))
	if err != nil {
		t.Fatalf("VerifyWebhook() error = %v", err)
	}

	if event.WebhookType != WebhookTypeTransactions {
		t.Errorf("WebhookType = %s, want TRANSACTIONS", event.WebhookType)
	}
	if event.LinkID != "link-1" {
		t.Errorf("LinkID = %s, want link-1", event.LinkID)
	}

	records, err := ParseTransactions(event.Data)
	if err != nil {
		t.Fatalf("ParseTransactions() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}

	r := records[0]
	if r.Description == nil || *r.Description != "COMPRA IFOOD" {
		t.Errorf("Description = %v, want COMPRA IFOOD", r.Description)
	}
	if !r.Amount.Equal(decimal.RequireFromString("-45.90")) {
		t.Errorf("Amount = %s, want -45.90", r.Amount)
	}

	date, err := r.Date()
	if err != nil {
		t.Fatalf("Date() error = %v", err)
	}
	if date.Format("2006-01-02") != "2025-06-15" {
		t.Errorf("Date = %s, want 2025-06-15", date)
	}
}

func TestVerifyWebhook_Invalid(t *testing.T) {
	client := &Client{webhookSecret: "whsec_test"}
	payload := []byte(`{"webhook_type":"TRANSACTIONS"}`)

	tests := []struct {
		name      string
		signature string
	}{
		{"empty signature", ""},
		{"prefix only", "sha256="},
		{"wrong secret", signPayload("other-secret", payload)},
		{"tampered payload", signPayload("whsec_test", []byte(`{"webhook_type":"LINKS"}`))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := client.VerifyWebhook(payload, tt.signature); err == nil {
				t.Error("expected verification to fail")
			}
		})
	}
}
