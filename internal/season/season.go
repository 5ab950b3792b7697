// Package season provides the folder fallback for dates that match no event.
package season

import (
	"strconv"
	"time"
)

// Names holds the folder name of each season.
type Names struct {
	Winter string
	Spring string
	Summer string
	Autumn string
}

// DefaultNames are the English season names.
var DefaultNames = Names{Winter: "Winter", Spring: "Spring", Summer: "Summer", Autumn: "Autumn"}

// Of returns the season name for month m. December stays in the winter of
// its own calendar year.
func (n Names) Of(m time.Month) string {
	switch m {
	case time.December, time.January, time.February:
		return n.Winter
	case time.March, time.April, time.May:
		return n.Spring
	case time.June, time.July, time.August:
		return n.Summer
	default:
		return n.Autumn
	}
}

// Path returns the folder segments [year, season] for date.
func (n Names) Path(date time.Time) []string {
	return []string{strconv.Itoa(date.Year()), n.Of(date.Month())}
}
