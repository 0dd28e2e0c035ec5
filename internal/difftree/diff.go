package difftree

import (
	"strconv"
	"strings"
)

type LineKind uint8

const (
	LineContext LineKind = iota
	LineAdded
	LineDeleted
	LineHeader
	LineMetadata
)

// Line is one classified row of a unified diff. Number tracks the target
// revision, so it is present only for context and added lines; deleted
// lines, hunk headers and metadata carry none.
type Line struct {
	Number  int // 0 when absent
	Content string
	Kind    LineKind
}

// ParseDiff classifies raw unified-diff text into display lines. The running
// target-line counter resets at every hunk header from the start number after
// "+"; the one-character marker is stripped from added, deleted and context
// content.
func ParseDiff(text string) []Line {
	var lines []Line
	counter := 0
	for _, raw := range strings.Split(text, "\n") {
		switch {
		case strings.HasPrefix(raw, "@@"):
			counter = hunkTargetStart(raw)
			lines = append(lines, Line{Content: raw, Kind: LineHeader})
		case strings.HasPrefix(raw, "+++"),
			strings.HasPrefix(raw, "---"),
			strings.HasPrefix(raw, "diff "),
			strings.HasPrefix(raw, "index "):
			lines = append(lines, Line{Content: raw, Kind: LineMetadata})
		case strings.HasPrefix(raw, "+"):
			lines = append(lines, Line{Number: counter, Content: raw[1:], Kind: LineAdded})
			counter++
		case strings.HasPrefix(raw, "-"):
			lines = append(lines, Line{Content: raw[1:], Kind: LineDeleted})
		case strings.HasPrefix(raw, " "):
			lines = append(lines, Line{Number: counter, Content: raw[1:], Kind: LineContext})
			counter++
		case raw != "":
			// Lines without a marker column (e.g. "\ No newline at end
			// of file") display as context with the text unchanged.
			lines = append(lines, Line{Number: counter, Content: raw, Kind: LineContext})
			counter++
		}
	}
	return lines
}

// hunkTargetStart extracts the target start line from "@@ -a,b +c,d @@".
func hunkTargetStart(header string) int {
	plus := strings.Index(header, "+")
	if plus == -1 {
		return 0
	}
	rest := header[plus+1:]
	end := 0
	for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	start, err := strconv.Atoi(rest[:end])
	if err != nil {
		return 0
	}
	return start
}
