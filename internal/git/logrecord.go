package git

import (
	"strings"
	"time"
)

// logRecordFormat renders one NUL-terminated record per commit with
// newline-separated fields. Commit messages cannot contain NUL, so the record
// separator is unambiguous; tformat avoids the extra trailing newline of
// format.
const logRecordFormat = "%H%n%h%n%P%n%an%n%ae%n%aI%n%B%x00"

const logRecordFixedFields = 6

// splitLogRecords breaks tformat output into individual records, tolerating
// the newline git prints between records even when the format ends in NUL.
func splitLogRecords(out string) []string {
	var recs []string
	for rec := range strings.SplitSeq(out, "\x00") {
		rec = strings.TrimLeft(rec, "\r\n")
		if rec != "" {
			recs = append(recs, rec)
		}
	}
	return recs
}

func parseLogRecord(rec string) (*Commit, error) {
	parts := strings.Split(rec, "\n")
	if len(parts) < logRecordFixedFields {
		return nil, parseErrorf("log record has %d fields, want at least %d", len(parts), logRecordFixedFields)
	}
	hash := strings.TrimSpace(parts[0])
	if hash == "" {
		return nil, parseErrorf("log record missing commit hash")
	}
	var parents []string
	if parentLine := strings.TrimSpace(parts[2]); parentLine != "" {
		parents = strings.Fields(parentLine)
	}
	when, err := time.Parse(time.RFC3339, strings.TrimSpace(parts[5]))
	if err != nil {
		return nil, parseErrorf("log record for %s has bad author date %q", hash, parts[5])
	}
	message := ""
	if len(parts) > logRecordFixedFields {
		message = strings.Join(parts[logRecordFixedFields:], "\n")
	}
	return &Commit{
		Hash:         hash,
		ShortHash:    strings.TrimSpace(parts[1]),
		ParentHashes: parents,
		Author: Signature{
			Name:  parts[3],
			Email: parts[4],
			When:  when,
		},
		Message: message,
	}, nil
}
