// Package belvo integrates with the Belvo open-banking aggregator: a small
// REST client for the connect flow and webhook signature verification for
// inbound transaction deliveries.
package belvo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/savegress/finboard/internal/config"
)

// Client handles Belvo API interactions
type Client struct {
	baseURL       string
	secretID      string
	secretPass    string
	webhookSecret string
	httpClient    *http.Client
}

// NewClient creates a new Belvo client
func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL:       cfg.BelvoBaseURL,
		secretID:      cfg.BelvoSecretID,
		secretPass:    cfg.BelvoSecretPassword,
		webhookSecret: cfg.BelvoWebhookSecret,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// WidgetToken is a short-lived access token for the connect widget
type WidgetToken struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// CreateWidgetToken requests a widget access token so the frontend can open
// the bank connection flow.
func (c *Client) CreateWidgetToken(ctx context.Context) (*WidgetToken, error) {
	body := map[string]interface{}{
		"id":       c.secretID,
		"password": c.secretPass,
		"scopes":   "read_institutions,write_links,read_links",
	}

	resp, err := c.post(ctx, "/api/token/", body)
	if err != nil {
		return nil, err
	}

	var token WidgetToken
	if err := json.Unmarshal(resp, &token); err != nil {
		return nil, err
	}

	return &token, nil
}

// Link is a connection between a user and an institution
type Link struct {
	ID          string `json:"id"`
	Institution string `json:"institution"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
}

// GetLink retrieves a link by ID
func (c *Client) GetLink(ctx context.Context, linkID string) (*Link, error) {
	resp, err := c.get(ctx, "/api/links/"+linkID+"/")
	if err != nil {
		return nil, err
	}

	var link Link
	if err := json.Unmarshal(resp, &link); err != nil {
		return nil, err
	}

	return &link, nil
}

// ListTransactions retrieves transactions for a link within a date range
// (dates in YYYY-MM-DD form). Belvo paginates; this follows the next links
// until exhausted.
func (c *Client) ListTransactions(ctx context.Context, linkID, dateFrom, dateTo string) ([]TransactionRecord, error) {
	params := url.Values{}
	params.Set("link", linkID)
	params.Set("date_from", dateFrom)
	params.Set("date_to", dateTo)

	path := "/api/transactions/?" + params.Encode()

	var all []TransactionRecord
	for path != "" {
		resp, err := c.get(ctx, path)
		if err != nil {
			return nil, err
		}

		var page struct {
			Next    *string             `json:"next"`
			Results []TransactionRecord `json:"results"`
		}
		if err := json.Unmarshal(resp, &page); err != nil {
			return nil, err
		}

		all = append(all, page.Results...)

		path = ""
		if page.Next != nil {
			next, err := url.Parse(*page.Next)
			if err != nil {
				return nil, fmt.Errorf("invalid pagination link: %w", err)
			}
			path = next.RequestURI()
		}
	}

	return all, nil
}

// HTTP helpers

func (c *Client) post(ctx context.Context, path string, body interface{}) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return c.doRequest(req)
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	return c.doRequest(req)
}

func (c *Client) doRequest(req *http.Request) ([]byte, error) {
	req.SetBasicAuth(c.secretID, c.secretPass)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Detail string `json:"detail"`
		}
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Detail != "" {
			return nil, fmt.Errorf("Belvo API error: %s", apiErr.Detail)
		}
		return nil, fmt.Errorf("Belvo API error: status %d", resp.StatusCode)
	}

	return body, nil
}
