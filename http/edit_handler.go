package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/yourorg/listing-editor/internal/engine"
	"github.com/yourorg/listing-editor/internal/redisx"
	"github.com/yourorg/listing-editor/internal/refresh"
	"github.com/yourorg/listing-editor/listingapi"
)

type EditDeps struct {
	API       *listingapi.Client
	Engine    *engine.Engine
	Cache     *redisx.Client
	Refresher *refresh.Refresher
}

func RegisterEdit(r chi.Router, d EditDeps) {
	r.Get("/listings/{listingID}/edit", func(w http.ResponseWriter, req *http.Request) {
		id, ok := listingID(w, req)
		if !ok {
			return
		}
		snap, form, err := d.API.Load(req.Context(), id)
		if err != nil {
			var apiErr *listingapi.APIError
			if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
				render.Status(req, http.StatusNotFound)
				render.JSON(w, req, map[string]any{"error": "listing_not_found"})
				return
			}
			render.Status(req, http.StatusBadGateway)
			render.JSON(w, req, map[string]any{"error": "load_error", "detail": err.Error()})
			return
		}
		if d.Cache != nil {
			if err := d.Cache.PutSnapshot(req.Context(), snap); err != nil {
				log.Printf("[WARN] baseline cache write for listing %d: %v", id, err)
			}
		}
		render.JSON(w, req, map[string]any{
			"ok":           true,
			"listing_id":   id,
			"form":         form,
			"submit_state": d.Engine.State(id).String(),
		})
	})

	r.Post("/listings/{listingID}", func(w http.ResponseWriter, req *http.Request) {
		id, ok := listingID(w, req)
		if !ok {
			return
		}
		var form listingapi.FormState
		if err := json.NewDecoder(req.Body).Decode(&form); err != nil {
			render.Status(req, http.StatusBadRequest)
			render.JSON(w, req, map[string]any{"error": "invalid_json", "detail": err.Error()})
			return
		}

		baseline, err := d.loadBaseline(req, id)
		if err != nil {
			render.Status(req, http.StatusBadGateway)
			render.JSON(w, req, map[string]any{"error": "load_error", "detail": err.Error()})
			return
		}

		rec, err := d.Engine.Submit(req.Context(), baseline, form)
		if err != nil {
			writeSubmitError(w, req, err)
			return
		}
		if d.Refresher != nil {
			d.Refresher.Enqueue(refresh.Job{ListingID: id})
		}
		render.JSON(w, req, map[string]any{
			"ok":           true,
			"listing":      rec,
			"submit_state": d.Engine.State(id).String(),
		})
	})
}

// loadBaseline prefers the cached edit-session snapshot and falls back to a
// fresh load when the session expired.
func (d EditDeps) loadBaseline(req *http.Request, id int64) (listingapi.Snapshot, error) {
	if d.Cache != nil {
		snap, found, err := d.Cache.GetSnapshot(req.Context(), id)
		if err != nil {
			log.Printf("[WARN] baseline cache read for listing %d: %v", id, err)
		} else if found {
			return snap, nil
		}
	}
	snap, _, err := d.API.Load(req.Context(), id)
	return snap, err
}

func writeSubmitError(w http.ResponseWriter, req *http.Request, err error) {
	switch {
	case errors.Is(err, engine.ErrSubmitInProgress):
		render.Status(req, http.StatusConflict)
		render.JSON(w, req, map[string]any{"error": "submit_in_progress"})
	case errors.Is(err, engine.ErrInvalidNumericInput), errors.Is(err, engine.ErrDuplicatePhotoURL):
		render.Status(req, http.StatusBadRequest)
		render.JSON(w, req, map[string]any{"error": "invalid_input", "detail": err.Error()})
	default:
		var uploadErr *engine.UploadError
		if errors.As(err, &uploadErr) {
			render.Status(req, http.StatusBadGateway)
			render.JSON(w, req, map[string]any{"error": "upload_error", "detail": uploadErr.Error()})
			return
		}
		var failure *engine.Failure
		if errors.As(err, &failure) {
			render.Status(req, http.StatusUnprocessableEntity)
			render.JSON(w, req, map[string]any{
				"error":   "update_rejected",
				"kind":    failure.Kind,
				"message": failure.Message,
				"errors":  failure.Fields,
			})
			return
		}
		render.Status(req, http.StatusInternalServerError)
		render.JSON(w, req, map[string]any{"error": "submit_error", "detail": err.Error()})
	}
}

func listingID(w http.ResponseWriter, req *http.Request) (int64, bool) {
	raw := chi.URLParam(req, "listingID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		render.Status(req, http.StatusBadRequest)
		render.JSON(w, req, map[string]any{"error": "invalid_listing_id"})
		return 0, false
	}
	return id, true
}
