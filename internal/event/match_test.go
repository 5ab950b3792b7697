package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func table(defs ...Definition) *Table {
	return BuildTable(defs)
}

func def(name string, dates ...string) Definition {
	return Definition{Name: name, Dates: dates}
}

func TestMatchFixedDay(t *testing.T) {
	tbl := table(def("Trip|Italy", "12.08.2019"))

	m, ok := tbl.Match(day(2019, time.August, 12))
	require.True(t, ok)
	assert.Equal(t, "Trip|Italy", m.Name)
	assert.False(t, m.Recurring)
	assert.Equal(t, 2019, m.Year)
	assert.Nil(t, m.Span)
	assert.Equal(t, []string{"Trip", "Italy 2019"}, FormatPath(m))

	_, ok = tbl.Match(day(2019, time.August, 11))
	assert.False(t, ok)
	_, ok = tbl.Match(day(2019, time.August, 13))
	assert.False(t, ok)
	_, ok = tbl.Match(day(2020, time.August, 12))
	assert.False(t, ok)
}

func TestMatchIncludesWholeEndDay(t *testing.T) {
	tbl := table(def("Holiday", "01.08.2019-14.08.2019"))

	late := time.Date(2019, time.August, 14, 23, 59, 59, 0, time.Local)
	_, ok := tbl.Match(late)
	assert.True(t, ok)

	_, ok = tbl.Match(time.Date(2019, time.August, 15, 0, 0, 0, 0, time.Local))
	assert.False(t, ok)
	_, ok = tbl.Match(time.Date(2019, time.July, 31, 23, 59, 59, 0, time.Local))
	assert.False(t, ok)
}

func TestMatchFixedRangeAcrossYears(t *testing.T) {
	tbl := table(def("Winter Trip", "20.12.2019-05.01.2020"))

	for _, d := range []time.Time{day(2019, time.December, 20), day(2019, time.December, 31), day(2020, time.January, 5)} {
		m, ok := tbl.Match(d)
		require.True(t, ok, d)
		require.NotNil(t, m.Span)
		assert.Equal(t, YearSpan{2019, 2020}, *m.Span)
		assert.Equal(t, []string{"Winter Trip 2019-2020"}, FormatPath(m))
	}
	_, ok := tbl.Match(day(2020, time.January, 6))
	assert.False(t, ok)
}

func TestMatchRecurringDay(t *testing.T) {
	tbl := table(def("Library Day", "12.09.x"))

	m, ok := tbl.Match(day(2030, time.September, 12))
	require.True(t, ok)
	assert.True(t, m.Recurring)
	assert.Equal(t, 2030, m.Year)
	assert.Equal(t, []string{"Library Day", "Library Day 2030"}, FormatPath(m))

	_, ok = tbl.Match(day(2030, time.September, 13))
	assert.False(t, ok)
}

func TestMatchBoundedRecurringDay(t *testing.T) {
	tests := []struct {
		raw   string
		year  int
		match bool
	}{
		{"15.03.>2015", 2010, false},
		{"15.03.>2015", 2015, true},
		{"15.03.>2015", 2020, true},
		{"15.03.<2015", 2010, true},
		{"15.03.<2015", 2016, false},
		{"15.03.2010_2020", 2009, false},
		{"15.03.2010_2020", 2010, true},
		{"15.03.2010_2020", 2020, true},
		{"15.03.2010_2020", 2021, false},
	}
	for _, tt := range tests {
		tbl := table(def("Company Day", tt.raw))
		_, ok := tbl.Match(day(tt.year, time.March, 15))
		assert.Equal(t, tt.match, ok, "%s in %d", tt.raw, tt.year)
	}
}

func TestMatchUnboundedAnyYear(t *testing.T) {
	tbl := table(def("Summer Camp", "01.07.x-15.07.x"))

	for _, y := range []int{1800, 2024, 3000} {
		m, ok := tbl.Match(day(y, time.July, 10))
		require.True(t, ok, y)
		assert.Equal(t, y, m.Year)
		assert.Nil(t, m.Span)
	}
	_, ok := tbl.Match(day(2024, time.July, 16))
	assert.False(t, ok)
}

func TestMatchRecurringRangeBounds(t *testing.T) {
	tbl := table(def("Festival", "01.06.>2015-31.08.<2020"))

	_, ok := tbl.Match(day(2014, time.July, 1))
	assert.False(t, ok)
	_, ok = tbl.Match(day(2015, time.June, 1))
	assert.True(t, ok)
	_, ok = tbl.Match(day(2020, time.August, 31))
	assert.True(t, ok)
	_, ok = tbl.Match(day(2021, time.July, 1))
	assert.False(t, ok)
	_, ok = tbl.Match(day(2017, time.September, 1))
	assert.False(t, ok)
}

func TestMatchNewYearCrossing(t *testing.T) {
	tbl := table(def("New Year", "31.12.x-01.01.x"))

	m, ok := tbl.Match(day(2024, time.December, 31))
	require.True(t, ok)
	assert.Equal(t, "New Year", m.Name)
	assert.True(t, m.Recurring)
	require.NotNil(t, m.Span)
	assert.Equal(t, YearSpan{2024, 2025}, *m.Span)
	assert.Equal(t, []string{"New Year", "New Year 2024-2025"}, FormatPath(m))

	for _, y := range []int{1900, 2000, 2024, 2999} {
		m, ok := tbl.Match(day(y, time.December, 31))
		require.True(t, ok)
		assert.Equal(t, YearSpan{y, y + 1}, *m.Span)

		m, ok = tbl.Match(day(y, time.January, 1))
		require.True(t, ok)
		assert.Equal(t, YearSpan{y - 1, y}, *m.Span)
	}

	_, ok = tbl.Match(day(2024, time.January, 2))
	assert.False(t, ok)
	_, ok = tbl.Match(day(2024, time.December, 30))
	assert.False(t, ok)
}

func TestMatchCrossingWithBounds(t *testing.T) {
	lower := table(def("Ski", "20.12.>2015-10.01.x"))

	_, ok := lower.Match(day(2015, time.January, 5))
	assert.False(t, ok, "instance before the first season")
	m, ok := lower.Match(day(2015, time.December, 25))
	require.True(t, ok)
	assert.Equal(t, YearSpan{2015, 2016}, *m.Span)
	m, ok = lower.Match(day(2016, time.January, 5))
	require.True(t, ok)
	assert.Equal(t, YearSpan{2015, 2016}, *m.Span)

	upper := table(def("Ski", "20.12.x-10.01.<2020"))
	m, ok = upper.Match(day(2019, time.December, 25))
	require.True(t, ok)
	assert.Equal(t, YearSpan{2019, 2020}, *m.Span)
	m, ok = upper.Match(day(2020, time.January, 5))
	require.True(t, ok)
	assert.Equal(t, YearSpan{2019, 2020}, *m.Span)
	_, ok = upper.Match(day(2020, time.December, 25))
	assert.False(t, ok, "season would end after the bound")
}

func TestMatchLeapDay(t *testing.T) {
	tbl := table(def("Leap", "29.02.x"))
	_, ok := tbl.Match(day(2024, time.February, 29))
	assert.True(t, ok)
	_, ok = tbl.Match(day(2023, time.February, 28))
	assert.False(t, ok)

	span := table(def("Late Feb", "20.02.x-29.02.x"))
	_, ok = span.Match(day(2023, time.February, 28))
	assert.True(t, ok)
	_, ok = span.Match(day(2023, time.March, 1))
	assert.False(t, ok)

	from := table(def("Early Spring", "29.02.x-05.03.x"))
	_, ok = from.Match(day(2023, time.February, 28))
	assert.False(t, ok, "28.02 is not part of the range in a non-leap year")
	_, ok = from.Match(day(2023, time.March, 1))
	assert.True(t, ok)
	_, ok = from.Match(day(2024, time.February, 29))
	assert.True(t, ok)
	_, ok = from.Match(day(2024, time.February, 28))
	assert.False(t, ok)
}

func TestMatchPrefersFixedEvents(t *testing.T) {
	tbl := table(
		def("Every Summer", "01.06.x-31.08.x"),
		def("Birthday", "15.07.x"),
		def("Italy", "10.07.2019-20.07.2019"),
		def("Party", "15.07.2019"),
	)

	m, ok := tbl.Match(day(2019, time.July, 15))
	require.True(t, ok)
	assert.Equal(t, "Party", m.Name)

	m, ok = tbl.Match(day(2019, time.July, 16))
	require.True(t, ok)
	assert.Equal(t, "Italy", m.Name)

	m, ok = tbl.Match(day(2020, time.July, 15))
	require.True(t, ok)
	assert.Equal(t, "Birthday", m.Name)

	m, ok = tbl.Match(day(2020, time.July, 16))
	require.True(t, ok)
	assert.Equal(t, "Every Summer", m.Name)
}

func TestMatchNilTable(t *testing.T) {
	var tbl *Table
	_, ok := tbl.Match(day(2020, time.July, 16))
	assert.False(t, ok)
	assert.Zero(t, tbl.Len())
}
