package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	baseline := []PhotoRef{
		{URL: "https://x/1.jpg", Label: "Kitchen"},
		{URL: "https://x/2.jpg", Label: "Bedroom"},
	}

	t.Run("untouched set yields empty plan", func(t *testing.T) {
		current := []LocalPhoto{
			{URI: "https://x/1.jpg", Label: "Kitchen"},
			{URI: "https://x/2.jpg", Label: "Bedroom"},
		}
		plan := Classify(baseline, current)
		assert.Empty(t, plan.New)
		assert.Empty(t, plan.Relabel)
		assert.Empty(t, plan.Delete)
		assert.ElementsMatch(t, []string{"https://x/1.jpg", "https://x/2.jpg"}, plan.Unchanged)
	})

	t.Run("new local photo with content is queued for upload", func(t *testing.T) {
		current := []LocalPhoto{
			{URI: "https://x/1.jpg", Label: "Kitchen"},
			{URI: "https://x/2.jpg", Label: "Bedroom"},
			{URI: "local://new1", Label: "Bath", Data: []byte("jpeg bytes")},
		}
		plan := Classify(baseline, current)
		require.Len(t, plan.New, 1)
		assert.Equal(t, "local://new1", plan.New[0].URI)
		assert.Equal(t, "Bath", plan.New[0].Label)
		assert.Empty(t, plan.Relabel)
		assert.Empty(t, plan.Delete)
	})

	t.Run("local photo without binary content is ignored", func(t *testing.T) {
		current := []LocalPhoto{
			{URI: "https://x/1.jpg", Label: "Kitchen"},
			{URI: "https://x/2.jpg", Label: "Bedroom"},
			{URI: "local://broken", Label: "Bath"},
		}
		plan := Classify(baseline, current)
		assert.Empty(t, plan.New)
		assert.Empty(t, plan.Delete)
	})

	t.Run("changed label goes to relabel only", func(t *testing.T) {
		current := []LocalPhoto{
			{URI: "https://x/1.jpg", Label: "Chef's Kitchen"},
			{URI: "https://x/2.jpg", Label: "Bedroom"},
		}
		plan := Classify(baseline, current)
		require.Len(t, plan.Relabel, 1)
		assert.Equal(t, PhotoRef{URL: "https://x/1.jpg", Label: "Chef's Kitchen"}, plan.Relabel[0])
		assert.Empty(t, plan.New)
		assert.Empty(t, plan.Delete)
		assert.NotContains(t, plan.Unchanged, "https://x/1.jpg")
	})

	t.Run("missing baseline photo goes to delete exactly once", func(t *testing.T) {
		current := []LocalPhoto{
			{URI: "https://x/2.jpg", Label: "Bedroom"},
		}
		plan := Classify(baseline, current)
		assert.Equal(t, []string{"https://x/1.jpg"}, plan.Delete)
		assert.Empty(t, plan.New)
		assert.Empty(t, plan.Relabel)
	})

	t.Run("emptied set deletes everything", func(t *testing.T) {
		plan := Classify([]PhotoRef{{URL: "https://x/1.jpg", Label: "Kitchen"}}, nil)
		assert.Equal(t, []string{"https://x/1.jpg"}, plan.Delete)
		assert.Empty(t, plan.New)
		assert.Empty(t, plan.Relabel)
	})

	t.Run("empty uri entries are dropped, not treated as deletions", func(t *testing.T) {
		current := []LocalPhoto{
			{URI: "", Label: "ghost"},
			{URI: "https://x/1.jpg", Label: "Kitchen"},
			{URI: "https://x/2.jpg", Label: "Bedroom"},
		}
		plan := Classify(baseline, current)
		assert.Empty(t, plan.New)
		assert.Empty(t, plan.Relabel)
		assert.Empty(t, plan.Delete)
	})

	t.Run("remote uri unknown to the baseline lands in no group", func(t *testing.T) {
		current := []LocalPhoto{
			{URI: "https://x/1.jpg", Label: "Kitchen"},
			{URI: "https://x/2.jpg", Label: "Bedroom"},
			{URI: "https://elsewhere/9.jpg", Label: "Foreign"},
		}
		plan := Classify(baseline, current)
		assert.Empty(t, plan.New)
		assert.Empty(t, plan.Relabel)
		assert.Empty(t, plan.Delete)
		assert.NotContains(t, plan.Unchanged, "https://elsewhere/9.jpg")
	})

	t.Run("mixed edit partitions disjointly", func(t *testing.T) {
		base := []PhotoRef{
			{URL: "https://x/1.jpg", Label: "Kitchen"},
			{URL: "https://x/2.jpg", Label: "Bedroom"},
			{URL: "https://x/3.jpg", Label: "Garage"},
		}
		current := []LocalPhoto{
			{URI: "https://x/1.jpg", Label: "Kitchen"},
			{URI: "https://x/2.jpg", Label: "Master Bedroom"},
			{URI: "local://new1", Label: "Bath", Data: []byte{1}},
		}
		plan := Classify(base, current)

		assert.Equal(t, []string{"https://x/1.jpg"}, plan.Unchanged)
		require.Len(t, plan.Relabel, 1)
		assert.Equal(t, "https://x/2.jpg", plan.Relabel[0].URL)
		require.Len(t, plan.New, 1)
		assert.Equal(t, "local://new1", plan.New[0].URI)
		assert.Equal(t, []string{"https://x/3.jpg"}, plan.Delete)

		seen := map[string]int{}
		for _, url := range plan.Unchanged {
			seen[url]++
		}
		for _, ref := range plan.Relabel {
			seen[ref.URL]++
		}
		for _, url := range plan.Delete {
			seen[url]++
		}
		for url, n := range seen {
			assert.Equalf(t, 1, n, "url %s assigned %d dispositions", url, n)
		}
	})
}

func TestClassifyIdempotence(t *testing.T) {
	baseline := []PhotoRef{
		{URL: "https://x/1.jpg", Label: "Kitchen"},
		{URL: "https://x/2.jpg", Label: "Bedroom"},
		{URL: "https://x/3.jpg", Label: "Garage"},
	}
	current := []LocalPhoto{
		{URI: "https://x/1.jpg", Label: "Chef's Kitchen"},
		{URI: "https://x/3.jpg", Label: "Garage"},
		{URI: "local://new1", Label: "Bath", Data: []byte{1, 2}},
	}

	plan := Classify(baseline, current)
	committed := Apply(baseline, plan, []PhotoRef{{URL: "https://x/u1.jpg", Label: "Bath"}})

	// the committed state edited with the same intent (new photo now remote)
	next := []LocalPhoto{
		{URI: "https://x/1.jpg", Label: "Chef's Kitchen"},
		{URI: "https://x/3.jpg", Label: "Garage"},
		{URI: "https://x/u1.jpg", Label: "Bath"},
	}
	again := Classify(committed, next)
	assert.Empty(t, again.New)
	assert.Empty(t, again.Relabel)
	assert.Empty(t, again.Delete)
	assert.Len(t, again.Unchanged, 3)
}

func TestApply(t *testing.T) {
	baseline := []PhotoRef{
		{URL: "https://x/1.jpg", Label: "Kitchen"},
		{URL: "https://x/2.jpg", Label: "Bedroom"},
	}
	plan := Plan{
		Relabel: []PhotoRef{{URL: "https://x/1.jpg", Label: "Chef's Kitchen"}},
		Delete:  []string{"https://x/2.jpg"},
	}
	got := Apply(baseline, plan, []PhotoRef{{URL: "https://x/u1.jpg", Label: "Bath"}})
	assert.Equal(t, []PhotoRef{
		{URL: "https://x/1.jpg", Label: "Chef's Kitchen"},
		{URL: "https://x/u1.jpg", Label: "Bath"},
	}, got)
}

func TestDuplicateRemoteURL(t *testing.T) {
	t.Run("detects duplicates", func(t *testing.T) {
		url, dup := DuplicateRemoteURL([]LocalPhoto{
			{URI: "https://x/1.jpg", Label: "a"},
			{URI: "local://new1", Label: "b", Data: []byte{1}},
			{URI: "https://x/1.jpg", Label: "c"},
		})
		assert.True(t, dup)
		assert.Equal(t, "https://x/1.jpg", url)
	})

	t.Run("local handles may repeat", func(t *testing.T) {
		_, dup := DuplicateRemoteURL([]LocalPhoto{
			{URI: "local://new1", Label: "a", Data: []byte{1}},
			{URI: "local://new1", Label: "b", Data: []byte{2}},
		})
		assert.False(t, dup)
	})
}

func TestLocalPhotoRemote(t *testing.T) {
	assert.True(t, LocalPhoto{URI: "https://x/1.jpg"}.Remote())
	assert.True(t, LocalPhoto{URI: "http://x/1.jpg"}.Remote())
	assert.False(t, LocalPhoto{URI: "local://new1"}.Remote())
	assert.False(t, LocalPhoto{URI: "file:///tmp/a.jpg"}.Remote())
}
