package difftree

import (
	"fmt"

	"github.com/pmezard/go-difflib/difflib"
)

const unifiedContextLines = 3

// Unified computes a unified diff of two blob contents locally, without git.
// Used where no committed diff exists, such as reviewing a deleted file
// against its parent revision content.
func Unified(fromLabel, toLabel, fromText, toText string) (string, error) {
	ud := difflib.UnifiedDiff{
		A:        difflib.SplitLines(fromText),
		B:        difflib.SplitLines(toText),
		FromFile: fromLabel,
		ToFile:   toLabel,
		Context:  unifiedContextLines,
	}
	text, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		return "", fmt.Errorf("unified diff: %w", err)
	}
	return text, nil
}
