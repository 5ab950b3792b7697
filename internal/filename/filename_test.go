package filename

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinPatterns(t *testing.T) {
	p, err := NewParser(nil, time.UTC)
	require.NoError(t, err)

	tests := []struct {
		name string
		want string
	}{
		{"IMG_20190812_153012.jpg", "2019-08-12"},
		{"VID_20201231_235959.mp4", "2020-12-31"},
		{"PXL_20240101_000102345.jpg", "2024-01-01"},
		{"IMG-20190812-WA0003.jpeg", "2019-08-12"},
		{"2019-08-12 15.30.12.jpg", "2019-08-12"},
		{"Screenshot_2023_02_28-10-11-12.png", "2023-02-28"},
		{"/photos/incoming/20190812.heic", "2019-08-12"},
		{"holiday 12.08.2019.jpg", "2019-08-12"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := p.Date(tt.name)
			require.True(t, ok)
			assert.Equal(t, tt.want, got.Format("2006-01-02"))
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestNoDate(t *testing.T) {
	p, err := NewParser(nil, time.UTC)
	require.NoError(t, err)

	for _, name := range []string{
		"holiday.jpg",
		"IMG_1234.jpg",
		"20190231_1200.jpg",
		"18000812.jpg",
		"123201908120.jpg",
	} {
		_, ok := p.Date(name)
		assert.False(t, ok, name)
	}
}

func TestCustomPatternsWin(t *testing.T) {
	p, err := NewParser([]string{`^scan(?P<day>\d{2})(?P<month>\d{2})(?P<year>\d{4})`}, time.UTC)
	require.NoError(t, err)

	got, ok := p.Date("scan01021750_20190812.tif")
	require.True(t, ok)
	assert.Equal(t, "1750-02-01", got.Format("2006-01-02"))
}

func TestCustomPatternValidation(t *testing.T) {
	_, err := NewParser([]string{`(`}, nil)
	assert.Error(t, err)

	_, err = NewParser([]string{`(?P<year>\d{4})(?P<month>\d{2})`}, nil)
	assert.ErrorContains(t, err, `missing group "day"`)
}
