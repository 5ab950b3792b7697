package event

import (
	"strconv"
	"strings"
)

// PathSeparators split an event name into nested folders.
const PathSeparators = `|/\`

// SplitName breaks a name into folder segments, dropping empty ones and
// the relative segments "." and "..".
func SplitName(name string) []string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return strings.ContainsRune(PathSeparators, r)
	})
	out := parts[:0]
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || p == "." || p == ".." {
			continue
		}
		out = append(out, p)
	}
	return out
}

// YearLabel is "2019" or "2019-2020" for instances spanning two years.
func (m Match) YearLabel() string {
	if m.Span != nil {
		return strconv.Itoa(m.Span.Start) + "-" + strconv.Itoa(m.Span.End)
	}
	return strconv.Itoa(m.Year)
}

// FormatPath returns the folder segments for a match. One-off events get
// the year appended to their last segment; recurring events keep the bare
// folder and nest a year-stamped folder beneath it.
func FormatPath(m Match) []string {
	segs := SplitName(m.Name)
	if len(segs) == 0 {
		return nil
	}
	last := segs[len(segs)-1] + " " + m.YearLabel()
	if m.Recurring {
		return append(segs, last)
	}
	segs[len(segs)-1] = last
	return segs
}
