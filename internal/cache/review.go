package cache

import "time"

const reviewFile = "review.json"

// ReviewRecord is the per-repository review progress: the set of reviewed
// commit ids and the id currently materialized in the working tree. An empty
// Checkout means the default branch tip. Mutations touch only the in-memory
// record; nothing persists without an explicit Save.
type ReviewRecord struct {
	Checkout  string          `json:"checkout,omitempty"`
	Reviewed  map[string]bool `json:"reviewed"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// IsReviewed reports membership in the reviewed set.
func (r *ReviewRecord) IsReviewed(id string) bool {
	return r.Reviewed[id]
}

// Toggle flips the reviewed membership of id and bumps the timestamp.
func (r *ReviewRecord) Toggle(id string) {
	if r.Reviewed == nil {
		r.Reviewed = map[string]bool{}
	}
	if r.Reviewed[id] {
		delete(r.Reviewed, id)
	} else {
		r.Reviewed[id] = true
	}
	r.UpdatedAt = time.Now().UTC()
}

// SetCheckout records the id materialized by a checkout; empty clears back
// to default-branch semantics.
func (r *ReviewRecord) SetCheckout(id string) {
	r.Checkout = id
	r.UpdatedAt = time.Now().UTC()
}

// Review persists review progress records in a Store.
type Review struct {
	store *Store
}

func NewReview(store *Store) *Review {
	return &Review{store: store}
}

// Load reads the record for a repository, returning an empty default when
// none has been written yet.
func (v *Review) Load(repoPath string) (*ReviewRecord, error) {
	rec := &ReviewRecord{Reviewed: map[string]bool{}}
	if _, err := v.store.read(repoPath, reviewFile, rec); err != nil {
		return nil, err
	}
	if rec.Reviewed == nil {
		rec.Reviewed = map[string]bool{}
	}
	return rec, nil
}

// Save overwrites the persisted record completely.
func (v *Review) Save(repoPath string, rec *ReviewRecord) error {
	return v.store.write(repoPath, reviewFile, rec)
}
