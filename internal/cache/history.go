package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/revq/revq/internal/git"
)

const historyFile = "history.json"

// ErrHistoryDiverged reports that the cached tip commit is no longer known to
// git, which happens when upstream history was force-rewritten. The cache is
// left untouched; Rebuild replaces it explicitly.
var ErrHistoryDiverged = errors.New("cached history diverged from repository")

// HistoryRecord is the persisted ordered commit-id sequence for one
// repository, oldest first. The sequence is append-only truth: entries are
// never reordered or removed once written.
type HistoryRecord struct {
	IDs       []string  `json:"ids"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Tip returns the newest cached id, or "" for an empty record.
func (r *HistoryRecord) Tip() string {
	if len(r.IDs) == 0 {
		return ""
	}
	return r.IDs[len(r.IDs)-1]
}

// HistorySource is the slice of the commit reader that synchronization
// needs.
type HistorySource interface {
	ListAllIDs(ctx context.Context) ([]string, error)
	ListIDsSince(ctx context.Context, last string) ([]string, error)
}

// History maintains the commit-id cache for repositories in a Store.
type History struct {
	store *Store
}

func NewHistory(store *Store) *History {
	return &History{store: store}
}

// Load reads the persisted record. ok is false when no cache exists yet, in
// which case the caller resynchronizes from scratch.
func (h *History) Load(repoPath string) (*HistoryRecord, bool, error) {
	var rec HistoryRecord
	ok, err := h.store.read(repoPath, historyFile, &rec)
	if err != nil || !ok {
		return nil, false, err
	}
	return &rec, true, nil
}

// Synchronize extends the cached sequence with commits newer than the cached
// tip, or fetches the complete oldest-first history when no cache exists, and
// returns the full ordered list. Existing entries are never reordered; an
// empty delta is the normal no-new-commits case and persists nothing.
func (h *History) Synchronize(ctx context.Context, repoPath string, src HistorySource) ([]string, error) {
	rec, ok, err := h.Load(repoPath)
	if err != nil {
		return nil, err
	}
	if !ok {
		return h.Rebuild(ctx, repoPath, src)
	}
	if len(rec.IDs) == 0 {
		return h.Rebuild(ctx, repoPath, src)
	}
	fresh, err := src.ListIDsSince(ctx, rec.Tip())
	if err != nil {
		var notFound *git.NotFoundError
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: tip %s", ErrHistoryDiverged, rec.Tip())
		}
		return nil, err
	}
	if len(fresh) == 0 {
		return rec.IDs, nil
	}
	rec.IDs = append(rec.IDs, fresh...)
	rec.UpdatedAt = time.Now().UTC()
	if err := h.store.write(repoPath, historyFile, rec); err != nil {
		return nil, err
	}
	slog.Debug("history synchronized",
		slog.String("repo", repoPath),
		slog.Int("new_commits", len(fresh)),
		slog.Int("total", len(rec.IDs)),
	)
	return rec.IDs, nil
}

// Append extends the cache with ids discovered outside the main load path.
// Idempotent: ids already cached are skipped, order of the remainder is
// preserved.
func (h *History) Append(repoPath string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	rec, ok, err := h.Load(repoPath)
	if err != nil {
		return err
	}
	if !ok {
		rec = &HistoryRecord{}
	}
	known := make(map[string]struct{}, len(rec.IDs))
	for _, id := range rec.IDs {
		known[id] = struct{}{}
	}
	appended := 0
	for _, id := range ids {
		if _, dup := known[id]; dup {
			continue
		}
		known[id] = struct{}{}
		rec.IDs = append(rec.IDs, id)
		appended++
	}
	if appended == 0 {
		return nil
	}
	rec.UpdatedAt = time.Now().UTC()
	return h.store.write(repoPath, historyFile, rec)
}

// Rebuild replaces the cache with the complete current history. This is the
// only operation that may drop previously cached ids; it runs on first sync
// and on explicit recovery from ErrHistoryDiverged.
func (h *History) Rebuild(ctx context.Context, repoPath string, src HistorySource) ([]string, error) {
	ids, err := src.ListAllIDs(ctx)
	if err != nil {
		return nil, err
	}
	rec := &HistoryRecord{IDs: ids, UpdatedAt: time.Now().UTC()}
	if err := h.store.write(repoPath, historyFile, rec); err != nil {
		return nil, err
	}
	slog.Debug("history rebuilt", slog.String("repo", repoPath), slog.Int("total", len(ids)))
	return ids, nil
}
