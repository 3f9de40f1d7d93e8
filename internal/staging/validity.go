package staging

import (
	"sort"

	"fleetdocs/internal/model"
)

// Validity is the derived save-gate for a session.
type Validity struct {
	Valid    bool     `json:"valid"`
	Missing  []string `json:"missing"`
	Override bool     `json:"override"`
}

// Project computes which mandatory document types are unsatisfied. It has
// no side effects and is recomputed from the current snapshot every time.
//
// A type is present when an existing document of that type is neither
// pending delete nor pending archive, or when a file is staged for it.
// With lenient set, the result is still valid when every missing type is
// explained by a pending removal of one of its existing documents.
func Project(assignments []model.DocumentTypeAssignment, documents []model.DocumentRecord, snap Snapshot, lenient bool) Validity {
	removed := make(map[string]bool, len(snap.PendingDelete)+len(snap.PendingArchive))
	for _, id := range snap.PendingDelete {
		removed[id] = true
	}
	for _, id := range snap.PendingArchive {
		removed[id] = true
	}

	present := make(map[string]bool)
	pendingRemoval := make(map[string]bool)
	for _, d := range documents {
		if removed[d.ID] {
			pendingRemoval[d.DocumentTypeID] = true
			continue
		}
		present[d.DocumentTypeID] = true
	}
	for _, up := range snap.Uploads {
		present[up.DocumentTypeID] = true
	}

	missing := []string{}
	explained := true
	for _, a := range assignments {
		if !a.Active || !a.Mandatory || present[a.DocumentTypeID] {
			continue
		}
		missing = append(missing, a.DisplayName())
		if !pendingRemoval[a.DocumentTypeID] {
			explained = false
		}
	}
	sort.Strings(missing)

	override := lenient && len(missing) > 0 && explained
	return Validity{
		Valid:    len(missing) == 0 || override,
		Missing:  missing,
		Override: override,
	}
}
