package git

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	gitlib "github.com/go-git/go-git/v5"
)

// commandRunner abstracts the git subprocess so tests can pin parsers to
// literal output without a repository.
type commandRunner interface {
	Run(ctx context.Context, dir string, stdin string, args ...string) (string, error)
}

// Reader answers history, diff and content queries for one repository by
// driving the git binary. It performs no mutation beyond Checkout, Fetch and
// Pull; review bookkeeping belongs to the cache layer.
type Reader struct {
	run  commandRunner
	path string
}

// Open validates that path belongs to a git repository and resolves its
// toplevel directory. A path without repository metadata yields
// InvalidRepositoryError.
func Open(path string, run *Runner) (*Reader, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if _, err := gitlib.PlainOpenWithOptions(abs, &gitlib.PlainOpenOptions{DetectDotGit: true}); err != nil {
		return nil, &InvalidRepositoryError{Path: abs, Err: err}
	}
	if run == nil {
		run = NewRunner("")
	}
	tmp := &Reader{run: run, path: abs}
	root, err := tmp.git(context.Background(), "", "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("open repository: git rev-parse returned empty root")
	}
	return &Reader{run: run, path: root}, nil
}

func (r *Reader) RepoPath() string {
	return r.path
}

func (r *Reader) git(ctx context.Context, stdin string, args ...string) (string, error) {
	return r.run.Run(ctx, r.path, stdin, args...)
}

// ListAllIDs returns every commit hash reachable from HEAD, oldest first.
func (r *Reader) ListAllIDs(ctx context.Context) ([]string, error) {
	out, err := r.git(ctx, "", "rev-list", "--reverse", "HEAD")
	if err != nil {
		return nil, err
	}
	return splitHashLines(out), nil
}

// ListIDsSince returns the hashes not yet reachable from last, oldest first.
// An empty result means no new commits and is the normal case. When last is
// no longer known to git (history rewritten upstream) the error is a
// NotFoundError for the cached revision.
func (r *Reader) ListIDsSince(ctx context.Context, last string) ([]string, error) {
	last = strings.TrimSpace(last)
	if last == "" {
		return nil, errors.New("last commit not specified")
	}
	out, err := r.git(ctx, "", "rev-list", "--reverse", last+"..HEAD")
	if err != nil {
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) && notFoundStderr(cmdErr.Stderr) {
			return nil, &NotFoundError{Rev: last}
		}
		return nil, err
	}
	return splitHashLines(out), nil
}

// FirstN returns the oldest n commit hashes. Asking git for "-n" directly
// would yield the newest n in reverse, so the full oldest-first ordering is
// materialized and sliced from the front.
func (r *Reader) FirstN(ctx context.Context, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	ids, err := r.ListAllIDs(ctx)
	if err != nil {
		return nil, err
	}
	if n > len(ids) {
		n = len(ids)
	}
	return ids[:n], nil
}

// CommitDetail fetches metadata for a single commit.
func (r *Reader) CommitDetail(ctx context.Context, id string) (*Commit, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("commit not specified")
	}
	out, err := r.git(ctx, "",
		"log", "-1", "--no-color", "--no-patch",
		"--pretty=tformat:"+logRecordFormat, id)
	if err != nil {
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) && notFoundStderr(cmdErr.Stderr) {
			return nil, &NotFoundError{Rev: id}
		}
		return nil, err
	}
	recs := splitLogRecords(out)
	if len(recs) != 1 {
		return nil, parseErrorf("expected 1 log record for %s, got %d", id, len(recs))
	}
	return parseLogRecord(recs[0])
}

// CommitDetailsBatch fetches metadata for every id in one git invocation with
// the ids supplied on stdin. Records that fail to parse are dropped, not
// fatal. git does not guarantee output order matches stdin order, so the
// result is re-sorted to the caller's requested sequence; ids git did not
// return are skipped.
func (r *Reader) CommitDetailsBatch(ctx context.Context, ids []string) ([]*Commit, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	out, err := r.git(ctx, strings.Join(ids, "\n")+"\n",
		"log", "--no-walk=unsorted", "--no-color", "--no-patch",
		"--pretty=tformat:"+logRecordFormat, "--stdin")
	if err != nil {
		return nil, err
	}
	byHash := make(map[string]*Commit, len(ids))
	for _, rec := range splitLogRecords(out) {
		commit, err := parseLogRecord(rec)
		if err != nil {
			continue
		}
		byHash[commit.Hash] = commit
	}
	commits := make([]*Commit, 0, len(ids))
	for _, id := range ids {
		if commit, ok := byHash[id]; ok {
			commits = append(commits, commit)
		}
	}
	return commits, nil
}

// ChangedFiles lists the files a single commit touched relative to its
// first parent (or to the empty tree for a root commit).
func (r *Reader) ChangedFiles(ctx context.Context, id string) ([]ChangedFile, error) {
	out, err := r.git(ctx, "",
		"diff-tree", "--root", "--no-commit-id", "--name-status", "-r", id)
	if err != nil {
		return nil, err
	}
	return parseNameStatus(out), nil
}

// ChangedFilesBetween lists the files that differ between two revisions.
func (r *Reader) ChangedFilesBetween(ctx context.Context, from, to string) ([]ChangedFile, error) {
	out, err := r.git(ctx, "", "diff", "--no-color", "--name-status", from, to)
	if err != nil {
		return nil, err
	}
	return parseNameStatus(out), nil
}

// AllFilePaths returns the full recursive path listing at a revision. Paths
// deleted at that revision are absent by construction.
func (r *Reader) AllFilePaths(ctx context.Context, id string) ([]string, error) {
	out, err := r.git(ctx, "", "ls-tree", "-r", "--name-only", id)
	if err != nil {
		return nil, err
	}
	var paths []string
	for line := range strings.SplitSeq(out, "\n") {
		if line = strings.TrimRight(line, "\r"); line != "" {
			paths = append(paths, line)
		}
	}
	return paths, nil
}

// CommitDiff returns the raw diff text for everything a commit introduced.
func (r *Reader) CommitDiff(ctx context.Context, id string) (string, error) {
	return r.git(ctx, "", "show", "--no-color", "--format=", id)
}

// FileDiff returns the raw diff text a commit introduced for one path.
func (r *Reader) FileDiff(ctx context.Context, id, path string) (string, error) {
	return r.git(ctx, "",
		"show", "--no-color", "--format=", id, "--", path)
}

// FileDiffBetween returns the raw diff text for one path between revisions.
func (r *Reader) FileDiffBetween(ctx context.Context, from, to, path string) (string, error) {
	return r.git(ctx, "", "diff", "--no-color", from, to, "--", path)
}

// FileContent returns the blob content of path at a revision. For a path
// deleted at that revision the caller must ask the parent revision instead;
// no fallback is inferred here.
func (r *Reader) FileContent(ctx context.Context, id, path string) (string, error) {
	out, err := r.git(ctx, "", "show", id+":"+path)
	if err != nil {
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) && notFoundStderr(cmdErr.Stderr) {
			return "", &NotFoundError{Rev: id, Path: path}
		}
		return "", err
	}
	return out, nil
}

// Checkout materializes a revision in the working tree. The caller owns the
// matching update to the review progress record.
func (r *Reader) Checkout(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.New("commit not specified")
	}
	_, err := r.git(ctx, "", "checkout", id)
	return err
}

// CheckoutDefaultBranch returns the working tree to the default branch tip.
func (r *Reader) CheckoutDefaultBranch(ctx context.Context) error {
	branch, err := r.DefaultBranch(ctx)
	if err != nil {
		return err
	}
	_, err = r.git(ctx, "", "checkout", branch)
	return err
}

func (r *Reader) Fetch(ctx context.Context) error {
	_, err := r.git(ctx, "", "fetch", "--all", "--tags")
	return err
}

func (r *Reader) Pull(ctx context.Context) error {
	_, err := r.git(ctx, "", "pull")
	return err
}

func splitHashLines(out string) []string {
	var ids []string
	for line := range strings.SplitSeq(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			ids = append(ids, line)
		}
	}
	return ids
}

func parseNameStatus(out string) []ChangedFile {
	var files []ChangedFile
	for line := range strings.SplitSeq(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			continue
		}
		// Renames and copies carry a score (R100) and both paths; the
		// destination path is the last field.
		files = append(files, ChangedFile{
			Path:   fields[len(fields)-1],
			Status: statusFromLetter(fields[0]),
		})
	}
	return files
}

func statusFromLetter(code string) ChangeStatus {
	if code == "" {
		return StatusModified
	}
	switch code[0] {
	case 'A':
		return StatusAdded
	case 'D':
		return StatusDeleted
	case 'R':
		return StatusRenamed
	case 'C':
		return StatusCopied
	case 'M':
		return StatusModified
	default:
		// Unrecognized letters (T, U, X, B) degrade to modified rather
		// than failing the whole listing.
		return StatusModified
	}
}
