package listingapi

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/listing-editor/internal/reconcile"
)

const rawRecord = `{
  "id": 42,
  "user_id": 7,
  "start_date": "2026-10-01",
  "end_date": "2027-02-01",
  "target_gender": null,
  "asking_price": 1250.50,
  "num_bedrooms": 3,
  "num_bathrooms": 1.5,
  "pet_friendly": true,
  "utilities_incl": false,
  "description": "bright and airy",
  "building_type_id": 2,
  "photos": "[{\"url\":\"https://x/1.jpg\",\"label\":\"Kitchen\"}]",
  "amenity_ids": "[1,4,9]",
  "address_string": "12 Main St, Kingston"
}`

func TestBuildSnapshot(t *testing.T) {
	var rec Record
	require.NoError(t, json.Unmarshal([]byte(rawRecord), &rec))

	t.Run("numeric scalars keep their textual form", func(t *testing.T) {
		snap := BuildSnapshot(rec)
		assert.Equal(t, "1250.50", snap.AskingPrice)
		assert.Equal(t, "3", snap.NumBedrooms)
		assert.Equal(t, "1.5", snap.NumBathrooms)
		assert.Equal(t, "2", snap.BuildingTypeID)
	})

	t.Run("null gender normalizes to empty string", func(t *testing.T) {
		snap := BuildSnapshot(rec)
		assert.Equal(t, "", snap.TargetGender)
	})

	t.Run("embedded collections decode", func(t *testing.T) {
		snap := BuildSnapshot(rec)
		assert.Equal(t, []int{1, 4, 9}, snap.AmenityIDs)
		require.Len(t, snap.Photos, 1)
		assert.Equal(t, reconcile.PhotoRef{URL: "https://x/1.jpg", Label: "Kitchen"}, snap.Photos[0])
	})

	t.Run("malformed collections decode to empty, not error", func(t *testing.T) {
		bad := rec
		bad.Photos = `{"oops": not json`
		bad.AmenityIDs = ""
		snap := BuildSnapshot(bad)
		assert.Empty(t, snap.Photos)
		assert.NotNil(t, snap.Photos)
		assert.Empty(t, snap.AmenityIDs)
		assert.NotNil(t, snap.AmenityIDs)
	})

	t.Run("string-typed numerics in the payload also decode", func(t *testing.T) {
		var r Record
		require.NoError(t, json.Unmarshal([]byte(`{"id":1,"asking_price":"990","num_bedrooms":"2"}`), &r))
		snap := BuildSnapshot(r)
		assert.Equal(t, "990", snap.AskingPrice)
		assert.Equal(t, "2", snap.NumBedrooms)
	})
}

func TestSeedForm(t *testing.T) {
	var rec Record
	require.NoError(t, json.Unmarshal([]byte(rawRecord), &rec))
	snap := BuildSnapshot(rec)
	form := SeedForm(rec, snap)

	t.Run("persisted photos seed without binary content", func(t *testing.T) {
		require.Len(t, form.Photos, 1)
		assert.Equal(t, "https://x/1.jpg", form.Photos[0].URI)
		assert.Equal(t, "Kitchen", form.Photos[0].Label)
		assert.Empty(t, form.Photos[0].Data)
	})

	t.Run("read-only seed fields carry over", func(t *testing.T) {
		assert.Equal(t, int64(7), form.UserID)
		assert.Equal(t, "2", form.BuildingTypeID)
		assert.Equal(t, "12 Main St, Kingston", form.RawAddress)
	})

	t.Run("amenities are a copy, not an alias", func(t *testing.T) {
		form.Amenities[0] = 99
		assert.Equal(t, 1, snap.AmenityIDs[0])
	})
}
