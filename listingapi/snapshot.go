package listingapi

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/yourorg/listing-editor/internal/reconcile"
)

// stringNumber accepts string or number JSON and keeps the textual form, so
// a price of 1250.50 survives the round trip through a string form field.
type stringNumber string

func (s *stringNumber) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*s = stringNumber(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return err
	}
	*s = stringNumber(num.String())
	return nil
}

func (s stringNumber) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

// Load fetches the listing and produces the reconciliation baseline plus the
// editable form seed. A failed fetch is fatal to the edit screen; malformed
// embedded collections are not, they decode to empty.
func (c *Client) Load(ctx context.Context, id int64) (Snapshot, FormState, error) {
	rec, err := c.GetListing(ctx, id)
	if err != nil {
		return Snapshot{}, FormState{}, fmt.Errorf("load listing %d: %w", id, err)
	}
	snap := BuildSnapshot(rec)
	return snap, SeedForm(rec, snap), nil
}

// BuildSnapshot normalizes a raw record into the immutable edit-session
// baseline.
func BuildSnapshot(rec Record) Snapshot {
	gender := ""
	if rec.TargetGender != nil {
		gender = *rec.TargetGender
	}
	return Snapshot{
		ID:             rec.ID,
		StartDate:      rec.StartDate,
		EndDate:        rec.EndDate,
		TargetGender:   gender,
		AskingPrice:    string(rec.AskingPrice),
		NumBedrooms:    string(rec.NumBedrooms),
		NumBathrooms:   string(rec.NumBathrooms),
		PetFriendly:    rec.PetFriendly,
		UtilitiesIncl:  rec.UtilitiesIncl,
		Description:    rec.Description,
		BuildingTypeID: string(rec.BuildingTypeID),
		AmenityIDs:     decodeAmenityIDs(rec.AmenityIDs),
		Photos:         decodePhotos(rec.Photos),
	}
}

// SeedForm maps a snapshot into the editable form state. Persisted photos
// become LocalPhoto seeds with no binary content.
func SeedForm(rec Record, snap Snapshot) FormState {
	photos := make([]reconcile.LocalPhoto, 0, len(snap.Photos))
	for _, ref := range snap.Photos {
		photos = append(photos, reconcile.LocalPhoto{URI: ref.URL, Label: ref.Label})
	}
	return FormState{
		UserID:         rec.UserID,
		StartDate:      snap.StartDate,
		EndDate:        snap.EndDate,
		TargetGender:   snap.TargetGender,
		AskingPrice:    snap.AskingPrice,
		NumBedrooms:    snap.NumBedrooms,
		NumBathrooms:   snap.NumBathrooms,
		PetFriendly:    snap.PetFriendly,
		UtilitiesIncl:  snap.UtilitiesIncl,
		Description:    snap.Description,
		BuildingTypeID: snap.BuildingTypeID,
		Amenities:      append([]int(nil), snap.AmenityIDs...),
		Photos:         photos,
		RawAddress:     rec.AddressString,
	}
}

// decodePhotos parses the JSON-encoded photo list. Absent or malformed input
// yields an empty set rather than failing the whole load.
func decodePhotos(raw string) []reconcile.PhotoRef {
	if raw == "" {
		return []reconcile.PhotoRef{}
	}
	var refs []reconcile.PhotoRef
	if err := json.Unmarshal([]byte(raw), &refs); err != nil {
		return []reconcile.PhotoRef{}
	}
	if refs == nil {
		return []reconcile.PhotoRef{}
	}
	return refs
}

func decodeAmenityIDs(raw string) []int {
	if raw == "" {
		return []int{}
	}
	var ids []int
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return []int{}
	}
	if ids == nil {
		return []int{}
	}
	return ids
}
