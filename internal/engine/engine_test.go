package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/revq/revq/internal/cache"
	"github.com/revq/revq/internal/difftree"
	"github.com/revq/revq/internal/git"
)

type fakeReader struct {
	mu   sync.Mutex
	path string
	ids  []string
	ops  []string

	changed  map[string][]git.ChangedFile
	paths    map[string][]string
	diffs    map[string]string
	contents map[string]string

	batchSizes []int
}

func newFakeReader(ids ...string) *fakeReader {
	return &fakeReader{
		path:     "/repo",
		ids:      ids,
		changed:  map[string][]git.ChangedFile{},
		paths:    map[string][]string{},
		diffs:    map[string]string{},
		contents: map[string]string{},
	}
}

func (f *fakeReader) record(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, op)
}

func (f *fakeReader) RepoPath() string { return f.path }

func (f *fakeReader) ListAllIDs(context.Context) ([]string, error) {
	f.record("list-all")
	return f.ids, nil
}

func (f *fakeReader) ListIDsSince(_ context.Context, last string) ([]string, error) {
	f.record("list-since")
	for i, id := range f.ids {
		if id == last {
			return f.ids[i+1:], nil
		}
	}
	return nil, &git.NotFoundError{Rev: last}
}

func (f *fakeReader) CommitDetail(_ context.Context, id string) (*git.Commit, error) {
	commit := f.commit(id)
	if commit == nil {
		return nil, &git.NotFoundError{Rev: id}
	}
	return commit, nil
}

func (f *fakeReader) CommitDetailsBatch(_ context.Context, ids []string) ([]*git.Commit, error) {
	f.mu.Lock()
	f.batchSizes = append(f.batchSizes, len(ids))
	f.mu.Unlock()
	commits := make([]*git.Commit, 0, len(ids))
	for _, id := range ids {
		if commit := f.commit(id); commit != nil {
			commits = append(commits, commit)
		}
	}
	return commits, nil
}

func (f *fakeReader) commit(id string) *git.Commit {
	for i, known := range f.ids {
		if known == id {
			commit := &git.Commit{Hash: id, ShortHash: id[:min(7, len(id))], Message: "commit " + id}
			if i > 0 {
				commit.ParentHashes = []string{f.ids[i-1]}
			}
			return commit
		}
	}
	return nil
}

func (f *fakeReader) ChangedFiles(_ context.Context, id string) ([]git.ChangedFile, error) {
	return f.changed[id], nil
}

func (f *fakeReader) ChangedFilesBetween(_ context.Context, from, to string) ([]git.ChangedFile, error) {
	return f.changed[from+".."+to], nil
}

func (f *fakeReader) AllFilePaths(_ context.Context, id string) ([]string, error) {
	return f.paths[id], nil
}

func (f *fakeReader) CommitDiff(_ context.Context, id string) (string, error) {
	return f.diffs[id], nil
}

func (f *fakeReader) FileDiff(_ context.Context, id, path string) (string, error) {
	return f.diffs[id+":"+path], nil
}

func (f *fakeReader) FileDiffBetween(_ context.Context, from, to, path string) (string, error) {
	return f.diffs[from+".."+to+":"+path], nil
}

func (f *fakeReader) FileContent(_ context.Context, id, path string) (string, error) {
	content, ok := f.contents[id+":"+path]
	if !ok {
		return "", &git.NotFoundError{Rev: id, Path: path}
	}
	return content, nil
}

func (f *fakeReader) Checkout(_ context.Context, id string) error {
	f.record("checkout " + id)
	return nil
}

func (f *fakeReader) CheckoutDefaultBranch(context.Context) error {
	f.record("checkout-default")
	return nil
}

func (f *fakeReader) Fetch(context.Context) error {
	f.record("fetch")
	return nil
}

func (f *fakeReader) Pull(context.Context) error {
	f.record("pull")
	return nil
}

func newTestEngine(t *testing.T, reader Reader) *Engine {
	t.Helper()
	return New(reader, cache.NewStore(t.TempDir()))
}

func manyIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("%040d", i)
	}
	return ids
}

func TestCommitPage_PreservesOrderAcrossWindows(t *testing.T) {
	t.Parallel()

	ids := manyIDs(12)
	reader := newFakeReader(ids...)
	e := newTestEngine(t, reader)

	commits, err := e.CommitPage(context.Background(), 0, 12)
	require.NoError(t, err)
	require.Len(t, commits, 12)
	for i, commit := range commits {
		require.Equal(t, ids[i], commit.Hash, "commit %d out of order", i)
	}
	// Windows of 5: 5 + 5 + 2.
	require.ElementsMatch(t, []int{5, 5, 2}, reader.batchSizes)
}

func TestCommitPage_OffsetAndLimit(t *testing.T) {
	t.Parallel()

	ids := manyIDs(10)
	e := newTestEngine(t, newFakeReader(ids...))

	commits, err := e.CommitPage(context.Background(), 7, 5)
	require.NoError(t, err)
	require.Len(t, commits, 3)
	require.Equal(t, ids[7], commits[0].Hash)

	commits, err = e.CommitPage(context.Background(), 20, 5)
	require.NoError(t, err)
	require.Empty(t, commits)
}

func TestSynchronize_NotifiesSubscribers(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, newFakeReader(manyIDs(3)...))

	_, err := e.Synchronize(context.Background())
	require.NoError(t, err)
	select {
	case <-e.Events():
	default:
		t.Fatal("expected a change notification")
	}
}

func TestUpdate_SequencesRemoteOperations(t *testing.T) {
	t.Parallel()

	reader := newFakeReader(manyIDs(3)...)
	e := newTestEngine(t, reader)

	ids, err := e.Update(context.Background())
	require.NoError(t, err)
	require.Len(t, ids, 3)

	require.Equal(t, []string{"fetch", "checkout-default", "pull", "list-all"}, reader.ops)
}

func TestCheckout_RecordsProgress(t *testing.T) {
	t.Parallel()

	ids := manyIDs(3)
	reader := newFakeReader(ids...)
	e := newTestEngine(t, reader)

	require.NoError(t, e.Checkout(context.Background(), ids[1]))
	rec, err := e.Review()
	require.NoError(t, err)
	require.Equal(t, ids[1], rec.Checkout)

	require.NoError(t, e.CheckoutDefault(context.Background()))
	rec, err = e.Review()
	require.NoError(t, err)
	require.Empty(t, rec.Checkout)
}

func TestToggleReviewed_RoundTrips(t *testing.T) {
	t.Parallel()

	ids := manyIDs(2)
	e := newTestEngine(t, newFakeReader(ids...))

	rec, err := e.ToggleReviewed(ids[0])
	require.NoError(t, err)
	require.True(t, rec.IsReviewed(ids[0]))

	rec, err = e.ToggleReviewed(ids[0])
	require.NoError(t, err)
	require.False(t, rec.IsReviewed(ids[0]))
}

func TestFileTree_CombinesListings(t *testing.T) {
	t.Parallel()

	ids := manyIDs(1)
	reader := newFakeReader(ids...)
	reader.paths[ids[0]] = []string{"a/b.txt", "a/c/d.txt"}
	reader.changed[ids[0]] = []git.ChangedFile{{Path: "a/b.txt", Status: git.StatusAdded}}
	e := newTestEngine(t, reader)

	forest, err := e.FileTree(context.Background(), ids[0])
	require.NoError(t, err)
	require.Len(t, forest, 1)
	require.Equal(t, git.StatusAdded, forest[0].EffectiveStatus())
}

func TestDeletedFileDiff_UsesParentContent(t *testing.T) {
	t.Parallel()

	ids := manyIDs(2)
	reader := newFakeReader(ids...)
	reader.contents[ids[0]+":gone.txt"] = "one\ntwo\n"
	e := newTestEngine(t, reader)

	lines, err := e.DeletedFileDiff(context.Background(), ids[1], "gone.txt")
	require.NoError(t, err)

	var deleted []string
	for _, line := range lines {
		if line.Kind == difftree.LineDeleted {
			deleted = append(deleted, strings.TrimRight(line.Content, "\n"))
		}
	}
	require.Equal(t, []string{"one", "two"}, deleted)
}

func TestDeletedFileDiff_RootCommit(t *testing.T) {
	t.Parallel()

	ids := manyIDs(1)
	e := newTestEngine(t, newFakeReader(ids...))

	_, err := e.DeletedFileDiff(context.Background(), ids[0], "gone.txt")
	require.Error(t, err)
}
