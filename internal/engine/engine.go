package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/yourorg/listing-editor/internal/events"
	"github.com/yourorg/listing-editor/internal/reconcile"
	"github.com/yourorg/listing-editor/internal/store"
	"github.com/yourorg/listing-editor/listingapi"
	"github.com/yourorg/listing-editor/storage"
)

// ListingAPI is the backend submit collaborator.
type ListingAPI interface {
	UpdateListing(ctx context.Context, id int64, p listingapi.Patch) (listingapi.Record, error)
}

// Uploader is the binary photo store collaborator.
type Uploader interface {
	Upload(ctx context.Context, photos []storage.NewPhoto) ([]storage.UploadedPhoto, error)
}

// Auditor records submit attempts and orphaned uploads. Best effort: an audit
// failure never fails a submit.
type Auditor interface {
	RecordSubmit(ctx context.Context, a store.SubmitAudit) error
	RecordOrphans(ctx context.Context, orphans []store.OrphanedUpload) error
}

// Locker is the cross-instance in-flight flag for a listing's edit session.
type Locker interface {
	AcquireSubmitLock(ctx context.Context, id int64) (bool, error)
	ReleaseSubmitLock(ctx context.Context, id int64) error
}

// Engine reconciles an edited form against the baseline snapshot and submits
// the delta. Audit, Locks and Pub are optional.
type Engine struct {
	API     ListingAPI
	Uploads Uploader
	Audit   Auditor
	Locks   Locker
	Pub     events.Publisher

	states *Tracker
}

func New(api ListingAPI, uploads Uploader) *Engine {
	return &Engine{API: api, Uploads: uploads, states: NewTracker()}
}

// State exposes the submit state machine for a listing to the presentation
// layer.
func (e *Engine) State(listingID int64) State {
	return e.states.State(listingID)
}

// Submit runs the full pipeline: validate form input, classify photo
// dispositions, upload new binaries, build and send the patch, classify any
// rejection. The upload always settles before the patch goes out; nothing is
// retried; a completed upload is not rolled back if the patch fails.
func (e *Engine) Submit(ctx context.Context, baseline listingapi.Snapshot, form listingapi.FormState) (listingapi.Record, error) {
	id := baseline.ID

	if !e.states.Begin(id) {
		return listingapi.Record{}, ErrSubmitInProgress
	}
	ok := false
	aborted := false
	defer func() {
		if aborted {
			e.states.Abort(id)
			return
		}
		e.states.Finish(id, ok)
	}()

	if e.Locks != nil {
		got, err := e.Locks.AcquireSubmitLock(ctx, id)
		if err != nil {
			log.Printf("[WARN] submit lock for listing %d unavailable: %v", id, err)
		} else if !got {
			aborted = true
			return listingapi.Record{}, ErrSubmitInProgress
		} else {
			defer func() {
				if err := e.Locks.ReleaseSubmitLock(ctx, id); err != nil {
					log.Printf("[WARN] submit lock release for listing %d: %v", id, err)
				}
			}()
		}
	}

	if url, dup := reconcile.DuplicateRemoteURL(form.Photos); dup {
		return listingapi.Record{}, fmt.Errorf("photo %s: %w", url, ErrDuplicatePhotoURL)
	}

	patch, err := buildScalarPatch(form)
	if err != nil {
		return listingapi.Record{}, err
	}

	plan := reconcile.Classify(baseline.Photos, form.Photos)

	var uploaded []storage.UploadedPhoto
	if len(plan.New) > 0 {
		batch := make([]storage.NewPhoto, 0, len(plan.New))
		for _, p := range plan.New {
			batch = append(batch, storage.NewPhoto{Data: p.Data, Label: p.Label})
		}
		uploaded, err = e.Uploads.Upload(ctx, batch)
		if err != nil {
			return listingapi.Record{}, &UploadError{Err: err}
		}
	}

	for _, u := range uploaded {
		patch.PhotosToAdd = append(patch.PhotosToAdd, listingapi.PhotoOp{URL: u.URL, Label: u.Label})
	}
	for _, ref := range plan.Relabel {
		patch.PhotosToUpdate = append(patch.PhotosToUpdate, listingapi.PhotoOp{URL: ref.URL, Label: ref.Label})
	}
	patch.PhotosToDelete = append(patch.PhotosToDelete, plan.Delete...)

	attemptID := uuid.NewString()
	rec, err := e.API.UpdateListing(ctx, id, patch)
	if err != nil {
		failure := ClassifySubmitError(err)
		e.recordAttempt(ctx, id, attemptID, patch, "failed", string(failure.Kind))
		// patch rejected after a committed upload: the new binaries are now
		// orphaned content in storage
		e.recordOrphans(ctx, id, attemptID, uploaded)
		return listingapi.Record{}, failure
	}

	ok = true
	e.recordAttempt(ctx, id, attemptID, patch, "succeeded", "")
	if e.Pub != nil {
		e.Pub.PublishListingUpdated(ctx, events.ListingUpdated{
			ListingID: id,
			AttemptID: attemptID,
			Added:     len(patch.PhotosToAdd),
			Relabeled: len(patch.PhotosToUpdate),
			Deleted:   len(patch.PhotosToDelete),
		})
	}
	return rec, nil
}

func (e *Engine) recordAttempt(ctx context.Context, id int64, attemptID string, patch listingapi.Patch, outcome, kind string) {
	if e.Audit == nil {
		return
	}
	payload, err := json.Marshal(patch)
	if err != nil {
		log.Printf("[WARN] audit payload for listing %d: %v", id, err)
		return
	}
	audit := store.SubmitAudit{
		ListingID: id,
		AttemptID: attemptID,
		Payload:   payload,
		Outcome:   outcome,
		ErrorKind: kind,
	}
	if err := e.Audit.RecordSubmit(ctx, audit); err != nil {
		log.Printf("[WARN] audit write for listing %d: %v", id, err)
	}
}

func (e *Engine) recordOrphans(ctx context.Context, id int64, attemptID string, uploaded []storage.UploadedPhoto) {
	if e.Audit == nil || len(uploaded) == 0 {
		return
	}
	orphans := make([]store.OrphanedUpload, 0, len(uploaded))
	for _, u := range uploaded {
		orphans = append(orphans, store.OrphanedUpload{
			ListingID: id,
			AttemptID: attemptID,
			URL:       u.URL,
			Label:     u.Label,
		})
	}
	if err := e.Audit.RecordOrphans(ctx, orphans); err != nil {
		log.Printf("[WARN] orphan records for listing %d: %v", id, err)
	}
}

// buildScalarPatch parses the string-typed form fields back to their wire
// types. Every parse failure is surfaced as ErrInvalidNumericInput with the
// field name, never a silent zero.
func buildScalarPatch(form listingapi.FormState) (listingapi.Patch, error) {
	var patch listingapi.Patch

	price, err := parseFloatField("asking_price", form.AskingPrice)
	if err != nil {
		return patch, err
	}
	beds, err := parseIntField("num_bedrooms", form.NumBedrooms)
	if err != nil {
		return patch, err
	}
	baths, err := parseFloatField("num_bathrooms", form.NumBathrooms)
	if err != nil {
		return patch, err
	}

	var gender *string
	if form.TargetGender != "" {
		g := form.TargetGender
		gender = &g
	}

	amenities := form.Amenities
	if amenities == nil {
		amenities = []int{}
	}

	patch = listingapi.Patch{
		StartDate:      form.StartDate,
		EndDate:        form.EndDate,
		TargetGender:   gender,
		AskingPrice:    price,
		NumBedrooms:    beds,
		NumBathrooms:   baths,
		PetFriendly:    form.PetFriendly,
		UtilitiesIncl:  form.UtilitiesIncl,
		Description:    form.Description,
		Amenities:      amenities,
		PhotosToAdd:    []listingapi.PhotoOp{},
		PhotosToUpdate: []listingapi.PhotoOp{},
		PhotosToDelete: []string{},
	}
	return patch, nil
}

func parseFloatField(name, value string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, fmt.Errorf("%s %q: %w", name, value, ErrInvalidNumericInput)
	}
	return f, nil
}

func parseIntField(name, value string) (int, error) {
	i, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%s %q: %w", name, value, ErrInvalidNumericInput)
	}
	return i, nil
}
