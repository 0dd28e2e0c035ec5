package git

import "time"

type Signature struct {
	Name  string
	Email string
	When  time.Time
}

// Commit is an immutable view of one commit's metadata. Only the hash is ever
// persisted; full records are re-read from git on demand.
type Commit struct {
	Hash         string
	ShortHash    string
	ParentHashes []string
	Author       Signature
	Message      string
}

// IsMerge reports whether the commit has two or more parents.
func (c *Commit) IsMerge() bool {
	return len(c.ParentHashes) >= 2
}

// IsRoot reports whether the commit has no parents.
func (c *Commit) IsRoot() bool {
	return len(c.ParentHashes) == 0
}

// Subject returns the first line of the commit message.
func (c *Commit) Subject() string {
	for i := 0; i < len(c.Message); i++ {
		if c.Message[i] == '\n' {
			return c.Message[:i]
		}
	}
	return c.Message
}

type ChangeStatus string

const (
	StatusAdded    ChangeStatus = "added"
	StatusModified ChangeStatus = "modified"
	StatusDeleted  ChangeStatus = "deleted"
	StatusRenamed  ChangeStatus = "renamed"
	StatusCopied   ChangeStatus = "copied"
)

// ChangedFile is one entry of a --name-status listing. Path is
// repository-relative with forward slashes; for renames and copies it is the
// destination path.
type ChangedFile struct {
	Path   string
	Status ChangeStatus
}

type RefKind uint8

const (
	RefKindBranch RefKind = iota
	RefKindRemoteBranch
	RefKindTag
)

type Ref struct {
	Hash string
	Kind RefKind
	Name string // short name: main, origin/main, v1
}
