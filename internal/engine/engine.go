// Package engine coordinates history synchronization, review progress and
// diff materialization for one repository. One Engine per repository
// identity: working-tree mutations and cache writes are serialized inside
// it, read-only git queries run with bounded concurrency.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/revq/revq/internal/cache"
	"github.com/revq/revq/internal/difftree"
	"github.com/revq/revq/internal/git"
)

// detailWindow is the number of commit ids fetched per git invocation when
// paging details; windowParallelism bounds how many of those invocations run
// at once, keeping within rate limits of surrounding collaborators.
const (
	detailWindow      = 5
	windowParallelism = 2
	readConcurrency   = 4
)

// Reader is the slice of the git reader the engine drives. Satisfied by
// *git.Reader.
type Reader interface {
	RepoPath() string
	ListAllIDs(ctx context.Context) ([]string, error)
	ListIDsSince(ctx context.Context, last string) ([]string, error)
	CommitDetail(ctx context.Context, id string) (*git.Commit, error)
	CommitDetailsBatch(ctx context.Context, ids []string) ([]*git.Commit, error)
	ChangedFiles(ctx context.Context, id string) ([]git.ChangedFile, error)
	ChangedFilesBetween(ctx context.Context, from, to string) ([]git.ChangedFile, error)
	AllFilePaths(ctx context.Context, id string) ([]string, error)
	CommitDiff(ctx context.Context, id string) (string, error)
	FileDiff(ctx context.Context, id, path string) (string, error)
	FileDiffBetween(ctx context.Context, from, to, path string) (string, error)
	FileContent(ctx context.Context, id, path string) (string, error)
	Checkout(ctx context.Context, id string) error
	CheckoutDefaultBranch(ctx context.Context) error
	Fetch(ctx context.Context) error
	Pull(ctx context.Context) error
}

type Engine struct {
	reader  Reader
	history *cache.History
	review  *cache.Review

	// mu serializes working-tree mutations (checkout, fetch, pull) and the
	// read-modify-write cycles on persisted state.
	mu      sync.Mutex
	readSem chan struct{}

	events chan struct{}
}

func New(reader Reader, store *cache.Store) *Engine {
	return &Engine{
		reader:  reader,
		history: cache.NewHistory(store),
		review:  cache.NewReview(store),
		readSem: make(chan struct{}, readConcurrency),
		events:  make(chan struct{}, 1),
	}
}

func (e *Engine) RepoPath() string {
	return e.reader.RepoPath()
}

// Events returns the coalesced change-notification channel. The engine sends
// after any state change; it never blocks on a slow subscriber.
func (e *Engine) Events() <-chan struct{} {
	return e.events
}

func (e *Engine) notify() {
	select {
	case e.events <- struct{}{}:
	default:
	}
}

// Synchronize brings the cached commit-id sequence up to date and returns
// it, oldest first.
func (e *Engine) Synchronize(ctx context.Context) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids, err := e.history.Synchronize(ctx, e.reader.RepoPath(), e.reader)
	if err != nil {
		return nil, err
	}
	e.notify()
	return ids, nil
}

// RebuildHistory replaces a diverged cache with the current history. Callers
// invoke it after Synchronize fails with cache.ErrHistoryDiverged.
func (e *Engine) RebuildHistory(ctx context.Context) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids, err := e.history.Rebuild(ctx, e.reader.RepoPath(), e.reader)
	if err != nil {
		return nil, err
	}
	e.notify()
	return ids, nil
}

// CommitPage returns details for ids[offset:offset+limit] of the synchronized
// history, newest slice semantics left to the caller. Details are fetched in
// fixed-size windows with bounded parallelism and returned in exactly the
// cached order.
func (e *Engine) CommitPage(ctx context.Context, offset, limit int) ([]*git.Commit, error) {
	ids, err := e.Synchronize(ctx)
	if err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(ids) {
		return nil, nil
	}
	end := len(ids)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return e.fetchDetails(ctx, ids[offset:end])
}

func (e *Engine) fetchDetails(ctx context.Context, ids []string) ([]*git.Commit, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var windows [][]string
	for start := 0; start < len(ids); start += detailWindow {
		end := min(start+detailWindow, len(ids))
		windows = append(windows, ids[start:end])
	}

	results := make([][]*git.Commit, len(windows))
	errs := make([]error, len(windows))
	sem := make(chan struct{}, windowParallelism)
	var wg sync.WaitGroup
	for i, window := range windows {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i], errs[i] = e.readQueryDetails(ctx, window)
		}()
	}
	wg.Wait()
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	var commits []*git.Commit
	for _, part := range results {
		commits = append(commits, part...)
	}
	return commits, nil
}

func (e *Engine) readQueryDetails(ctx context.Context, ids []string) ([]*git.Commit, error) {
	e.readSem <- struct{}{}
	defer func() { <-e.readSem }()
	return e.reader.CommitDetailsBatch(ctx, ids)
}

// Review returns the current review progress record as a read-only snapshot.
func (e *Engine) Review() (*cache.ReviewRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.review.Load(e.reader.RepoPath())
}

// ToggleReviewed flips the reviewed state of a commit and persists the
// record.
func (e *Engine) ToggleReviewed(id string) (*cache.ReviewRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec, err := e.review.Load(e.reader.RepoPath())
	if err != nil {
		return nil, err
	}
	rec.Toggle(id)
	if err := e.review.Save(e.reader.RepoPath(), rec); err != nil {
		return nil, err
	}
	e.notify()
	return rec, nil
}

// Checkout materializes the revision in the working tree and records it as
// the current checkout.
func (e *Engine) Checkout(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.reader.Checkout(ctx, id); err != nil {
		return err
	}
	return e.saveCheckoutLocked(id)
}

// CheckoutDefault returns the working tree to the default branch tip and
// clears the recorded checkout.
func (e *Engine) CheckoutDefault(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.reader.CheckoutDefaultBranch(ctx); err != nil {
		return err
	}
	return e.saveCheckoutLocked("")
}

func (e *Engine) saveCheckoutLocked(id string) error {
	rec, err := e.review.Load(e.reader.RepoPath())
	if err != nil {
		return err
	}
	rec.SetCheckout(id)
	if err := e.review.Save(e.reader.RepoPath(), rec); err != nil {
		return err
	}
	e.notify()
	return nil
}

// Update runs the remote synchronization sequence: fetch, return to the
// default branch, pull, then extend the history cache. A failure leaves the
// existing cache intact.
func (e *Engine) Update(ctx context.Context) ([]string, error) {
	e.mu.Lock()
	if err := e.reader.Fetch(ctx); err != nil {
		e.mu.Unlock()
		return nil, fmt.Errorf("fetch: %w", err)
	}
	if err := e.reader.CheckoutDefaultBranch(ctx); err != nil {
		e.mu.Unlock()
		return nil, fmt.Errorf("checkout default branch: %w", err)
	}
	if err := e.reader.Pull(ctx); err != nil {
		e.mu.Unlock()
		return nil, fmt.Errorf("pull: %w", err)
	}
	if err := e.saveCheckoutLocked(""); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	e.mu.Unlock()
	slog.Debug("remote update complete", slog.String("repo", e.reader.RepoPath()))
	return e.Synchronize(ctx)
}

// FileTree builds the status-annotated file forest for a single commit.
func (e *Engine) FileTree(ctx context.Context, id string) ([]*difftree.Node, error) {
	changed, err := e.readChangedFiles(ctx, "", id)
	if err != nil {
		return nil, err
	}
	paths, err := e.readAllPaths(ctx, id)
	if err != nil {
		return nil, err
	}
	return difftree.Build(paths, changed), nil
}

// FileTreeBetween builds the forest for the changes between two revisions,
// listing paths at the target revision.
func (e *Engine) FileTreeBetween(ctx context.Context, from, to string) ([]*difftree.Node, error) {
	changed, err := e.readChangedFiles(ctx, from, to)
	if err != nil {
		return nil, err
	}
	paths, err := e.readAllPaths(ctx, to)
	if err != nil {
		return nil, err
	}
	return difftree.Build(paths, changed), nil
}

func (e *Engine) readChangedFiles(ctx context.Context, from, to string) ([]git.ChangedFile, error) {
	e.readSem <- struct{}{}
	defer func() { <-e.readSem }()
	if from == "" {
		return e.reader.ChangedFiles(ctx, to)
	}
	return e.reader.ChangedFilesBetween(ctx, from, to)
}

func (e *Engine) readAllPaths(ctx context.Context, id string) ([]string, error) {
	e.readSem <- struct{}{}
	defer func() { <-e.readSem }()
	return e.reader.AllFilePaths(ctx, id)
}

// FileDiffLines returns the classified diff a commit introduced for one
// path. For a path deleted by the commit git emits an empty diff from show,
// so the parent content is diffed against nothing instead.
func (e *Engine) FileDiffLines(ctx context.Context, id, path string) ([]difftree.Line, error) {
	e.readSem <- struct{}{}
	defer func() { <-e.readSem }()
	text, err := e.reader.FileDiff(ctx, id, path)
	if err != nil {
		return nil, err
	}
	return difftree.ParseDiff(text), nil
}

// FileDiffLinesBetween is FileDiffLines for an arbitrary revision pair.
func (e *Engine) FileDiffLinesBetween(ctx context.Context, from, to, path string) ([]difftree.Line, error) {
	e.readSem <- struct{}{}
	defer func() { <-e.readSem }()
	text, err := e.reader.FileDiffBetween(ctx, from, to, path)
	if err != nil {
		return nil, err
	}
	return difftree.ParseDiff(text), nil
}

// DeletedFileDiff materializes a deleted path as a locally computed unified
// diff of the parent revision's content against empty. The content query
// must target the parent: the blob no longer exists at the commit itself.
func (e *Engine) DeletedFileDiff(ctx context.Context, id, path string) ([]difftree.Line, error) {
	commit, err := e.reader.CommitDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	if commit.IsRoot() {
		return nil, &git.NotFoundError{Rev: id, Path: path}
	}
	parent := commit.ParentHashes[0]
	e.readSem <- struct{}{}
	defer func() { <-e.readSem }()
	content, err := e.reader.FileContent(ctx, parent, path)
	if err != nil {
		return nil, err
	}
	text, err := difftree.Unified("a/"+path, "/dev/null", content, "")
	if err != nil {
		return nil, err
	}
	return difftree.ParseDiff(text), nil
}

// FileContent returns the blob content of path at a revision.
func (e *Engine) FileContent(ctx context.Context, id, path string) (string, error) {
	e.readSem <- struct{}{}
	defer func() { <-e.readSem }()
	return e.reader.FileContent(ctx, id, path)
}

// Stats summarizes a commit's change set for the AI/summary collaborator.
func (e *Engine) Stats(ctx context.Context, id string) (difftree.Stats, error) {
	changed, err := e.readChangedFiles(ctx, "", id)
	if err != nil {
		return difftree.Stats{}, err
	}
	e.readSem <- struct{}{}
	diffText, err := e.reader.CommitDiff(ctx, id)
	<-e.readSem
	if err != nil {
		return difftree.Stats{}, err
	}
	return difftree.BuildStats(changed, diffText), nil
}
