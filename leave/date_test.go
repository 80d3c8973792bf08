package leave

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, 2024, d.Year())
	assert.Equal(t, time.February, d.Month())
	assert.Equal(t, "2024-02-29", d.String())

	_, err = ParseDate("2023-02-29")
	assert.Error(t, err)
	_, err = ParseDate("29/02/2024")
	assert.Error(t, err)
}

func TestDateOf_DropsTimeOfDay(t *testing.T) {
	d := DateOf(time.Date(2024, 3, 5, 23, 59, 0, 0, time.UTC))

	assert.True(t, d.Equal(MustParseDate("2024-03-05")))
}

func TestDate_Accessors(t *testing.T) {
	d := MustParseDate("2024-02-29")

	assert.Equal(t, 2024, d.Year())
	assert.Equal(t, time.February, d.Month())
	assert.Equal(t, 29, d.Day())
	assert.False(t, d.IsZero())
	assert.True(t, Date{}.IsZero())
	assert.Equal(t, "2024-02-29", d.String())
	assert.Equal(t, Month{Year: 2024, Month: time.February}, d.MonthOf())
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), d.Time())
}

func TestRange_Overlaps_Inclusive(t *testing.T) {
	base := Range{Start: MustParseDate("2024-06-10"), End: MustParseDate("2024-06-12")}

	tests := []struct {
		name  string
		other Range
		want  bool
	}{
		{"shares last day", Range{Start: MustParseDate("2024-06-12"), End: MustParseDate("2024-06-14")}, true},
		{"shares first day", Range{Start: MustParseDate("2024-06-08"), End: MustParseDate("2024-06-10")}, true},
		{"inside", SingleDay(MustParseDate("2024-06-11")), true},
		{"covers", Range{Start: MustParseDate("2024-06-01"), End: MustParseDate("2024-06-30")}, true},
		{"day after", SingleDay(MustParseDate("2024-06-13")), false},
		{"day before", SingleDay(MustParseDate("2024-06-09")), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, base.Overlaps(tt.other))
			assert.Equal(t, tt.want, tt.other.Overlaps(base))
		})
	}
}

func TestRange_LenAndDays(t *testing.T) {
	r := Range{Start: MustParseDate("2024-02-27"), End: MustParseDate("2024-03-02")}

	assert.Equal(t, 5, r.Len())
	days := r.Days()
	require.Len(t, days, 5)
	assert.Equal(t, "2024-02-29", days[2].String())
	assert.Equal(t, 1, SingleDay(days[0]).Len())
}

func TestRange_Clip(t *testing.T) {
	march := Month{Year: 2024, Month: time.March}.Range()
	r := Range{Start: MustParseDate("2024-02-27"), End: MustParseDate("2024-03-02")}

	clipped, ok := r.Clip(march)
	require.True(t, ok)
	assert.Equal(t, "[2024-03-01, 2024-03-02]", clipped.String())

	_, ok = SingleDay(MustParseDate("2024-04-01")).Clip(march)
	assert.False(t, ok)
}

func TestMonth(t *testing.T) {
	m, err := ParseMonth("2024-02")
	require.NoError(t, err)

	assert.Equal(t, "2024-02-01", m.First().String())
	assert.Equal(t, "2024-02-29", m.Last().String())
	assert.Equal(t, 29, m.Range().Len())
	assert.Equal(t, "2024-02", m.String())

	dec := Month{Year: 2023, Month: time.December}
	assert.Equal(t, "2023-12-31", dec.Last().String())

	_, err = ParseMonth("2024-13")
	assert.Error(t, err)
}

func TestDate_TextRoundTrip(t *testing.T) {
	var d Date
	require.NoError(t, d.UnmarshalText([]byte("2024-07-01")))
	b, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "2024-07-01", string(b))

	assert.Error(t, d.UnmarshalText([]byte("July 1st")))
}
