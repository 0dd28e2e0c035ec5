package git

import (
	"context"
	"errors"
	"strings"
)

// HeadState reports the current HEAD hash and its symbolic name. ok is false
// for a repository with no commits yet.
func (r *Reader) HeadState(ctx context.Context) (hash string, headName string, ok bool, err error) {
	out, err := r.git(ctx, "", "rev-parse", "-q", "--verify", "HEAD")
	if err != nil {
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) && cmdErr.Stderr == "" {
			return "", "", false, nil
		}
		return "", "", false, err
	}
	hash = strings.TrimSpace(out)
	if hash == "" {
		return "", "", false, nil
	}
	ref, err := r.git(ctx, "", "symbolic-ref", "-q", "--short", "HEAD")
	if err != nil {
		// Detached HEAD: symbolic-ref exits nonzero with empty stderr.
		var cmdErr *CommandError
		if !errors.As(err, &cmdErr) || cmdErr.Stderr != "" {
			return "", "", false, err
		}
	}
	headName = strings.TrimSpace(ref)
	if headName == "" {
		headName = "HEAD"
	}
	return hash, headName, true, nil
}

// ListRefs returns branches, remote branches and tags. Annotated tags resolve
// to the peeled commit hash.
func (r *Reader) ListRefs(ctx context.Context) ([]Ref, error) {
	out, err := r.git(ctx, "", "--no-pager", "show-ref", "--dereference")
	if err != nil {
		return nil, err
	}
	return parseRefsFromShowRef(out)
}

// DefaultBranch resolves the branch CheckoutDefaultBranch returns to: the
// remote HEAD when origin has one, otherwise a local main or master ref.
func (r *Reader) DefaultBranch(ctx context.Context) (string, error) {
	out, err := r.git(ctx, "", "symbolic-ref", "--short", "refs/remotes/origin/HEAD")
	if err == nil {
		if name := strings.TrimSpace(out); name != "" {
			if _, short, found := strings.Cut(name, "/"); found {
				return short, nil
			}
			return name, nil
		}
	}
	refs, err := r.ListRefs(ctx)
	if err != nil {
		return "", err
	}
	for _, candidate := range []string{"main", "master"} {
		for _, ref := range refs {
			if ref.Kind == RefKindBranch && ref.Name == candidate {
				return candidate, nil
			}
		}
	}
	return "", errors.New("default branch not found")
}

func parseRefsFromShowRef(out string) ([]Ref, error) {
	type refEntry struct {
		hash string
		ref  string
	}

	peeledByTagRef := map[string]string{}
	var entries []refEntry

	for rawLine := range strings.SplitSeq(out, "\n") {
		line := strings.TrimRight(rawLine, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) != 2 {
			return nil, parseErrorf("unexpected show-ref output line: %q", rawLine)
		}
		hash := strings.TrimSpace(parts[0])
		refName := strings.TrimSpace(parts[1])
		if hash == "" || refName == "" {
			return nil, parseErrorf("unexpected show-ref output line: %q", rawLine)
		}
		if strings.HasSuffix(refName, "^{}") {
			base := strings.TrimSuffix(refName, "^{}")
			if base != "" {
				peeledByTagRef[base] = hash
			}
			continue
		}
		entries = append(entries, refEntry{hash: hash, ref: refName})
	}

	var refs []Ref
	for _, entry := range entries {
		refName := entry.ref
		switch {
		case strings.HasPrefix(refName, "refs/tags/"):
			short := strings.TrimPrefix(refName, "refs/tags/")
			if short == "" {
				continue
			}
			hash := entry.hash
			if peeled, ok := peeledByTagRef[refName]; ok && peeled != "" {
				hash = peeled
			}
			refs = append(refs, Ref{Hash: hash, Kind: RefKindTag, Name: short})
		case strings.HasPrefix(refName, "refs/heads/"):
			short := strings.TrimPrefix(refName, "refs/heads/")
			if short == "" {
				continue
			}
			refs = append(refs, Ref{Hash: entry.hash, Kind: RefKindBranch, Name: short})
		case strings.HasPrefix(refName, "refs/remotes/"):
			short := strings.TrimPrefix(refName, "refs/remotes/")
			if short == "" {
				continue
			}
			refs = append(refs, Ref{Hash: entry.hash, Kind: RefKindRemoteBranch, Name: short})
		default:
			continue
		}
	}
	return refs, nil
}
