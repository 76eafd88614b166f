package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/savegress/finboard/internal/belvo"
	"github.com/savegress/finboard/internal/database"
	"github.com/savegress/finboard/internal/ingest"
)

const maxWebhookBody = 1 << 20 // 1 MB

// HandleBelvoWebhook handles POST /webhooks/belvo.
//
// A verified delivery is always acknowledged with 200: per-record failures are
// isolated and the failed records stay PENDING for the aggregator's retry.
// Returning an error status would make Belvo redeliver the whole batch,
// including the records that already succeeded.
func (h *Handlers) HandleBelvoWebhook() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
		if err != nil {
			respondError(w, http.StatusBadRequest, "Failed to read request body")
			return
		}

		event, err := h.aggregator.VerifyWebhook(payload, r.Header.Get("Belvo-Signature"))
		if err != nil {
			respondError(w, http.StatusUnauthorized, "Invalid webhook signature")
			return
		}

		switch event.WebhookType {
		case belvo.WebhookTypeTransactions:
			h.handleTransactionsEvent(w, r, event)
		case belvo.WebhookTypeAccounts, belvo.WebhookTypeLinks:
			log.Printf("api: acknowledged %s webhook %s (%s)", event.WebhookType, event.WebhookID, event.WebhookCode)
			respondJSON(w, http.StatusOK, map[string]string{"status": "acknowledged"})
		default:
			log.Printf("api: ignoring unknown webhook type %q (%s)", event.WebhookType, event.WebhookID)
			respondJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		}
	}
}

func (h *Handlers) handleTransactionsEvent(w http.ResponseWriter, r *http.Request, event *belvo.WebhookEvent) {
	userID, err := h.db.GetUserIDByLink(r.Context(), event.LinkID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			// A link we never registered. Acknowledge so Belvo stops
			// redelivering something we can never attribute.
			log.Printf("api: webhook %s for unknown link %s, ignoring", event.WebhookID, event.LinkID)
			respondJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to resolve link")
		return
	}

	records, err := belvo.ParseTransactions(event.Data)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid transactions payload")
		return
	}

	var processed, skipped, failed int
	for _, rec := range records {
		date, err := rec.Date()
		if err != nil {
			log.Printf("api: webhook record %s has invalid date %q, skipping: %v", rec.ID, rec.ValueDate, err)
			failed++
			continue
		}

		raw := &database.RawRecord{
			ProviderID:      rec.ID,
			RawDescription:  rec.Description,
			Amount:          rec.Amount,
			TransactionDate: date,
			UserID:          userID,
			Status:          database.StatusPending,
		}
		if rec.Account.ID != "" {
			raw.AccountID = &rec.Account.ID
		}

		created, err := h.db.CreateRawRecord(r.Context(), raw)
		if err != nil {
			log.Printf("api: failed to store raw record %s: %v", rec.ID, err)
			failed++
			continue
		}
		if !created {
			// Redelivery of a record stored on a previous delivery. A record
			// the earlier attempt left PENDING (transient failure) gets
			// another run through the processor; PROCESSED and ERROR records
			// are settled and only counted.
			existing, err := h.db.GetRawRecordByProviderID(r.Context(), rec.ID)
			if err != nil {
				log.Printf("api: failed to load redelivered record %s: %v", rec.ID, err)
				failed++
				continue
			}
			if existing.Status != database.StatusPending {
				skipped++
				continue
			}
			raw = existing
		}

		result, err := h.processor.Process(r.Context(), raw)
		if err != nil {
			log.Printf("api: failed to process raw record %s: %v", rec.ID, err)
			failed++
			continue
		}
		if result.Action == ingest.ActionSkipped {
			skipped++
		} else {
			processed++
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"received":  len(records),
		"processed": processed,
		"skipped":   skipped,
		"failed":    failed,
	})
}

// HandleCreateWidgetToken handles POST /api/v1/belvo/widget-token
func (h *Handlers) HandleCreateWidgetToken() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := h.aggregator.CreateWidgetToken(r.Context())
		if err != nil {
			log.Printf("api: failed to create widget token: %v", err)
			respondError(w, http.StatusBadGateway, "Failed to create widget token")
			return
		}

		respondJSON(w, http.StatusOK, token)
	}
}

// HandleRegisterLink handles POST /api/v1/links. The frontend calls this after
// the connect widget succeeds so webhook deliveries for the link can be
// attributed to the user.
func (h *Handlers) HandleRegisterLink() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userIDFromContext(r.Context())
		if !ok {
			respondError(w, http.StatusUnauthorized, "Missing user context")
			return
		}

		var req struct {
			LinkID      string `json:"linkId"`
			Institution string `json:"institution"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.LinkID == "" {
			respondError(w, http.StatusBadRequest, "linkId is required")
			return
		}

		link, err := h.db.UpsertBankLink(r.Context(), req.LinkID, userID, req.Institution)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to register link")
			return
		}

		respondJSON(w, http.StatusCreated, link)
	}
}
