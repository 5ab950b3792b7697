// Package filename extracts the capture date encoded in a media file name,
// e.g. IMG_20190812_153012.jpg or 2019-08-12 15.30.12.mp4.
package filename

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"time"
)

const (
	minYear = 1900
	maxYear = 2100
)

// builtinPatterns cover the common camera, phone and messenger layouts.
// Every pattern has named groups year, month and day.
var builtinPatterns = []*regexp.Regexp{
	// 20190812, 2019-08-12, 2019_08_12, 2019.08.12 (IMG_, VID_, PXL_, IMG-...-WA)
	regexp.MustCompile(`(?:^|\D)(?P<year>(?:19|20|21)\d{2})[-_.]?(?P<month>0[1-9]|1[0-2])[-_.]?(?P<day>0[1-9]|[12]\d|3[01])(?:\D|$)`),
	// 12.08.2019, 12-08-2019
	regexp.MustCompile(`(?:^|\D)(?P<day>0[1-9]|[12]\d|3[01])[-_.](?P<month>0[1-9]|1[0-2])[-_.](?P<year>(?:19|20|21)\d{2})(?:\D|$)`),
}

// Parser finds dates in file names. It is safe for concurrent use.
type Parser struct {
	custom  []*regexp.Regexp
	builtin []*regexp.Regexp
	loc     *time.Location
}

// NewParser compiles the user patterns, which are tried before the
// built-in ones. Each must define the named groups year, month and day.
func NewParser(patterns []string, loc *time.Location) (*Parser, error) {
	if loc == nil {
		loc = time.Local
	}
	p := &Parser{builtin: builtinPatterns, loc: loc}
	for _, s := range patterns {
		re, err := regexp.Compile(s)
		if err != nil {
			return nil, fmt.Errorf("filename pattern %q: %w", s, err)
		}
		for _, g := range []string{"year", "month", "day"} {
			if re.SubexpIndex(g) < 0 {
				return nil, fmt.Errorf("filename pattern %q: missing group %q", s, g)
			}
		}
		p.custom = append(p.custom, re)
	}
	return p, nil
}

// Date returns the first valid date found in the base name of path, at
// midnight in the parser's location.
func (p *Parser) Date(path string) (time.Time, bool) {
	name := filepath.Base(path)
	for _, re := range p.custom {
		if t, ok := p.find(re, name, false); ok {
			return t, true
		}
	}
	for _, re := range p.builtin {
		if t, ok := p.find(re, name, true); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func (p *Parser) find(re *regexp.Regexp, name string, limitYears bool) (time.Time, bool) {
	yi, mi, di := re.SubexpIndex("year"), re.SubexpIndex("month"), re.SubexpIndex("day")
	for _, m := range re.FindAllStringSubmatch(name, -1) {
		year, err1 := strconv.Atoi(m[yi])
		month, err2 := strconv.Atoi(m[mi])
		day, err3 := strconv.Atoi(m[di])
		if err1 != nil || err2 != nil || err3 != nil {
			continue
		}
		if limitYears && (year < minYear || year > maxYear) {
			continue
		}
		t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, p.loc)
		// Reject rollovers such as 31.02.
		if t.Year() != year || int(t.Month()) != month || t.Day() != day {
			continue
		}
		return t, true
	}
	return time.Time{}, false
}
