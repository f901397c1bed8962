package listingapi

import (
	"github.com/yourorg/listing-editor/internal/reconcile"
)

// Record is the listing as returned by GET/PATCH /listings/{id}. The photos
// and amenity_ids fields arrive as JSON-encoded strings and are decoded by
// the snapshot mapper, never read directly.
type Record struct {
	ID             int64        `json:"id"`
	UserID         int64        `json:"user_id"`
	StartDate      string       `json:"start_date"`
	EndDate        string       `json:"end_date"`
	TargetGender   *string      `json:"target_gender"`
	AskingPrice    stringNumber `json:"asking_price"`
	NumBedrooms    stringNumber `json:"num_bedrooms"`
	NumBathrooms   stringNumber `json:"num_bathrooms"`
	PetFriendly    bool         `json:"pet_friendly"`
	UtilitiesIncl  bool         `json:"utilities_incl"`
	Description    string       `json:"description"`
	BuildingTypeID stringNumber `json:"building_type_id"`
	Photos         string       `json:"photos"`
	AmenityIDs     string       `json:"amenity_ids"`
	AddressString  string       `json:"address_string"`
}

// Snapshot is the normalized baseline for one edit session. Created once at
// load, read-only afterwards; the reconciliation engine diffs against it.
// Numeric scalars stay in their textual form so the string round trip through
// the form is lossless.
type Snapshot struct {
	ID             int64                `json:"id"`
	StartDate      string               `json:"start_date"`
	EndDate        string               `json:"end_date"`
	TargetGender   string               `json:"target_gender"`
	AskingPrice    string               `json:"asking_price"`
	NumBedrooms    string               `json:"num_bedrooms"`
	NumBathrooms   string               `json:"num_bathrooms"`
	PetFriendly    bool                 `json:"pet_friendly"`
	UtilitiesIncl  bool                 `json:"utilities_incl"`
	Description    string               `json:"description"`
	BuildingTypeID string               `json:"building_type_id"`
	AmenityIDs     []int                `json:"amenity_ids"`
	Photos         []reconcile.PhotoRef `json:"photos"`
}

// FormState mirrors the edit form: every numeric field is string-typed and
// parsed back at submit time. UserID, BuildingTypeID and RawAddress seed the
// form but are never sent in a patch.
type FormState struct {
	UserID         int64                  `json:"user_id"`
	StartDate      string                 `json:"start_date"`
	EndDate        string                 `json:"end_date"`
	TargetGender   string                 `json:"target_gender"`
	AskingPrice    string                 `json:"asking_price"`
	NumBedrooms    string                 `json:"num_bedrooms"`
	NumBathrooms   string                 `json:"num_bathrooms"`
	PetFriendly    bool                   `json:"pet_friendly"`
	UtilitiesIncl  bool                   `json:"utilities_incl"`
	Description    string                 `json:"description"`
	BuildingTypeID string                 `json:"building_type_id"`
	Amenities      []int                  `json:"amenities"`
	Photos         []reconcile.LocalPhoto `json:"photos"`
	RawAddress     string                 `json:"raw_address"`
}

// PhotoOp is one entry of photos_to_add / photos_to_update.
type PhotoOp struct {
	URL   string `json:"url"`
	Label string `json:"label"`
}

// Patch is the outbound delta for PATCH /listings/{id}. Scalars and amenities
// are a full overwrite; the three photo lists are disjoint by URL.
type Patch struct {
	StartDate      string    `json:"start_date"`
	EndDate        string    `json:"end_date"`
	TargetGender   *string   `json:"target_gender"`
	AskingPrice    float64   `json:"asking_price"`
	NumBedrooms    int       `json:"num_bedrooms"`
	NumBathrooms   float64   `json:"num_bathrooms"`
	PetFriendly    bool      `json:"pet_friendly"`
	UtilitiesIncl  bool      `json:"utilities_incl"`
	Description    string    `json:"description"`
	Amenities      []int     `json:"amenities"`
	PhotosToAdd    []PhotoOp `json:"photos_to_add"`
	PhotosToUpdate []PhotoOp `json:"photos_to_update"`
	PhotosToDelete []string  `json:"photos_to_delete"`
}
