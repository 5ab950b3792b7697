package ics

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediasort/internal/event"
)

func TestWriteCalendarRoundTrip(t *testing.T) {
	raws := []string{
		"12.08.2019",
		"20.12.2019-05.01.2020",
		"15.03.>2015",
		"15.03.2010_2020",
		"24.12.>2010-26.12.<2020",
		"20.12.>2015-10.01.<2020",
		"12.09.x",
		"29.02.x",
		"15.03.<2015",
		"15.03.<1960",
		"29.02.x-05.03.x",
		"20.12.x-10.01.<2020",
		"01.06.x-31.08.<1950",
		"20.02.>2016-29.02.x",
	}
	defs := make([]event.Definition, 0, len(raws))
	for _, raw := range raws {
		defs = append(defs, event.Definition{Name: "ev " + raw, Dates: []string{raw}})
	}
	table := event.BuildTable(defs)

	var buf bytes.Buffer
	require.NoError(t, WriteCalendar(&buf, table, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.Contains(t, buf.String(), "RRULE:FREQ=YEARLY")

	back, err := ParseICS(Source{ID: "export"}, buf.Bytes())
	require.NoError(t, err)

	got := map[string]string{}
	for _, d := range back {
		require.Len(t, d.Dates, 1)
		got[d.Name] = d.Dates[0]
	}
	for _, raw := range raws {
		assert.Equal(t, raw, got["ev "+raw], raw)
	}
}

func TestWriteCalendarAnchorsOpenEvents(t *testing.T) {
	table := event.BuildTable([]event.Definition{
		{Name: "Library Day", Dates: []string{"12.09.x"}},
		{Name: "Leap", Dates: []string{"29.02.x"}},
		{Name: "Old Fair", Dates: []string{"15.03.<1961"}},
	})

	var buf bytes.Buffer
	require.NoError(t, WriteCalendar(&buf, table, time.Now()))
	out := buf.String()
	assert.Contains(t, out, "DTSTART;VALUE=DATE:19720912")
	assert.Contains(t, out, "DTSTART;VALUE=DATE:19720229")
	// The anchor never lies after the upper bound.
	assert.Contains(t, out, "DTSTART;VALUE=DATE:19600315")
	assert.Contains(t, out, "X-MEDIASORT-OPEN-START:TRUE")
	assert.Contains(t, out, "SUMMARY:Library Day")
}

func TestAnchorYear(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"12.09.x", 1972},
		{"12.09.<2020", 1972},
		{"12.09.<1972", 1972},
		{"12.09.<1971", 1968},
		{"20.12.x-10.01.<1973", 1972},
		{"20.12.x-10.01.<1972", 1968},
		{"12.09.<1903", 1896},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			table := event.BuildTable([]event.Definition{{Name: "e", Dates: []string{tt.raw}}})
			require.Equal(t, 1, table.Len())
			assert.Equal(t, tt.want, anchorYear(table.Events()[0]))
		})
	}
}

func TestEventUIDStable(t *testing.T) {
	table := event.BuildTable([]event.Definition{{Name: "A", Dates: []string{"01.01.x"}}})
	ev := table.Events()[0]
	assert.Equal(t, eventUID(ev), eventUID(ev))
	other := ev
	other.Raw = "02.01.x"
	assert.NotEqual(t, eventUID(ev), eventUID(other))
}
