package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/savegress/finboard/internal/database"
	"github.com/savegress/finboard/internal/ingest"
)

// HandleListRawRecords handles GET /api/v1/ingest/records. Operator view of
// records stuck PENDING or marked ERROR.
func (h *Handlers) HandleListRawRecords() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := r.URL.Query().Get("status")
		if status == "" {
			status = database.StatusPending
		}
		switch status {
		case database.StatusPending, database.StatusProcessed, database.StatusError:
		default:
			respondError(w, http.StatusBadRequest, "Invalid status")
			return
		}

		limit := 100
		if s := r.URL.Query().Get("limit"); s != "" {
			parsed, err := strconv.Atoi(s)
			if err != nil || parsed < 1 {
				respondError(w, http.StatusBadRequest, "Invalid limit")
				return
			}
			limit = parsed
		}

		records, err := h.db.ListRawRecordsByStatus(r.Context(), status, limit)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to list raw records")
			return
		}

		if records == nil {
			records = []*database.RawRecord{}
		}

		respondJSON(w, http.StatusOK, map[string]interface{}{
			"records": records,
			"count":   len(records),
			"status":  status,
		})
	}
}

// HandleRetryRawRecord handles POST /api/v1/ingest/records/{id}/retry. Runs
// one raw record through the processor again. The processor's own idempotence
// makes retrying an already-processed record a harmless skip.
func (h *Handlers) HandleRetryRawRecord() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid record id")
			return
		}

		raw, err := h.db.GetRawRecordByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				respondError(w, http.StatusNotFound, "Raw record not found")
				return
			}
			respondError(w, http.StatusInternalServerError, "Failed to load raw record")
			return
		}

		result, err := h.processor.Process(r.Context(), raw)
		if err != nil {
			if errors.Is(err, ingest.ErrInvalidRecord) {
				respondError(w, http.StatusUnprocessableEntity, err.Error())
				return
			}
			respondError(w, http.StatusInternalServerError, "Failed to process record")
			return
		}

		respondJSON(w, http.StatusOK, result)
	}
}
