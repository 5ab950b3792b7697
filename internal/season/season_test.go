package season

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOf(t *testing.T) {
	want := map[time.Month]string{
		time.January: "Winter", time.February: "Winter", time.March: "Spring",
		time.April: "Spring", time.May: "Spring", time.June: "Summer",
		time.July: "Summer", time.August: "Summer", time.September: "Autumn",
		time.October: "Autumn", time.November: "Autumn", time.December: "Winter",
	}
	for m, name := range want {
		assert.Equal(t, name, DefaultNames.Of(m), m.String())
	}
}

func TestPath(t *testing.T) {
	n := Names{Winter: "Hiver", Spring: "Printemps", Summer: "Été", Autumn: "Automne"}
	assert.Equal(t, []string{"2019", "Été"}, n.Path(time.Date(2019, time.August, 12, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, []string{"2019", "Hiver"}, n.Path(time.Date(2019, time.December, 31, 0, 0, 0, 0, time.UTC)))
}
