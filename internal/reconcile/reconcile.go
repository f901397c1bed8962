package reconcile

import "strings"

// PhotoRef is a photo already persisted server-side. Identity is the URL.
type PhotoRef struct {
	URL   string `json:"url"`
	Label string `json:"label"`
}

// LocalPhoto is a photo as held by the edit form. URI is either a remote URL
// (existing photo) or an opaque local handle for a photo awaiting upload, in
// which case Data carries the binary content.
type LocalPhoto struct {
	URI   string `json:"uri"`
	Label string `json:"label"`
	Data  []byte `json:"base64,omitempty"`
}

// Remote reports whether the photo references content already hosted
// server-side rather than a local handle awaiting upload.
func (p LocalPhoto) Remote() bool {
	return strings.HasPrefix(p.URI, "http")
}

// Plan is the outcome of classifying an edited photo set against the last
// server-confirmed baseline. The four groups are disjoint by URL.
type Plan struct {
	// New photos carry binary content and need an upload before they can be
	// referenced in a patch.
	New []LocalPhoto
	// Relabel holds existing photos whose label changed; URL identity never
	// changes in place.
	Relabel []PhotoRef
	// Unchanged photos appear in no patch list and are implicitly retained.
	Unchanged []string
	// Delete holds baseline URLs absent from the edited set.
	Delete []string
}

// Classify partitions the edited set against the baseline. It is a pure
// decision function: no I/O, deterministic output, and tolerant of malformed
// entries (an empty URI is dropped, not an error). A remote URI with no
// baseline counterpart falls into no group and is ignored, as is a local
// entry with no binary content.
func Classify(baseline []PhotoRef, current []LocalPhoto) Plan {
	byURL := make(map[string]PhotoRef, len(baseline))
	for _, ref := range baseline {
		byURL[ref.URL] = ref
	}

	var plan Plan
	seen := make(map[string]bool, len(current))
	for _, p := range current {
		if p.URI == "" {
			continue
		}
		seen[p.URI] = true
		if !p.Remote() {
			if len(p.Data) > 0 {
				plan.New = append(plan.New, p)
			}
			continue
		}
		orig, ok := byURL[p.URI]
		if !ok {
			continue
		}
		if orig.Label != p.Label {
			plan.Relabel = append(plan.Relabel, PhotoRef{URL: p.URI, Label: p.Label})
		} else {
			plan.Unchanged = append(plan.Unchanged, p.URI)
		}
	}

	for _, ref := range baseline {
		if !seen[ref.URL] {
			plan.Delete = append(plan.Delete, ref.URL)
		}
	}
	return plan
}

// DuplicateRemoteURL returns the first remote URL that appears more than once
// in the edited set. Duplicate identity makes dispositions ambiguous, so the
// form boundary rejects it before classification runs.
func DuplicateRemoteURL(current []LocalPhoto) (string, bool) {
	seen := make(map[string]bool, len(current))
	for _, p := range current {
		if p.URI == "" || !p.Remote() {
			continue
		}
		if seen[p.URI] {
			return p.URI, true
		}
		seen[p.URI] = true
	}
	return "", false
}

// Apply replays a plan against the baseline and returns the photo set the
// server would hold after the patch commits: deletions removed, relabels
// applied in place, uploads appended in order.
func Apply(baseline []PhotoRef, plan Plan, uploaded []PhotoRef) []PhotoRef {
	relabels := make(map[string]string, len(plan.Relabel))
	for _, ref := range plan.Relabel {
		relabels[ref.URL] = ref.Label
	}
	deleted := make(map[string]bool, len(plan.Delete))
	for _, url := range plan.Delete {
		deleted[url] = true
	}

	out := make([]PhotoRef, 0, len(baseline)+len(uploaded))
	for _, ref := range baseline {
		if deleted[ref.URL] {
			continue
		}
		if label, ok := relabels[ref.URL]; ok {
			ref.Label = label
		}
		out = append(out, ref)
	}
	return append(out, uploaded...)
}
