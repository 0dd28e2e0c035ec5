package difftree

import (
	"path"

	"github.com/alecthomas/chroma/v2/lexers"

	"github.com/revq/revq/internal/git"
)

// Stats is the diff-statistics summary handed to the surrounding AI/summary
// collaborator instead of full diff text: volume and shape only.
type Stats struct {
	Files      int
	Added      int
	Deleted    int
	Extensions map[string]int
	Languages  map[string]int
}

// BuildStats summarizes a change set. Added and deleted line counts come from
// the classified diff text; the extension and language histograms from the
// changed-file paths. Languages are resolved by file name through chroma's
// lexer registry, falling back to the bare extension.
func BuildStats(changed []git.ChangedFile, diffText string) Stats {
	stats := Stats{
		Files:      len(changed),
		Extensions: map[string]int{},
		Languages:  map[string]int{},
	}
	for _, line := range ParseDiff(diffText) {
		switch line.Kind {
		case LineAdded:
			stats.Added++
		case LineDeleted:
			stats.Deleted++
		}
	}
	for _, file := range changed {
		ext := path.Ext(file.Path)
		if ext == "" {
			ext = "(none)"
		}
		stats.Extensions[ext]++
		stats.Languages[languageForPath(file.Path)]++
	}
	return stats
}

func languageForPath(p string) string {
	if lexer := lexers.Match(path.Base(p)); lexer != nil {
		return lexer.Config().Name
	}
	return "Other"
}
