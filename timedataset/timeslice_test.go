package timedataset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStartEndTime(t *testing.T) {
	testData := map[string]struct {
		tSlice TimeSlice
		start  time.Time
		end    time.Time
	}{
		"nil": {},
		"single": {
			tSlice: TimeSlice{day(4)},
			start:  day(4),
			end:    day(4),
		},
		"multiple": {
			tSlice: TimeSlice{day(1), day(2), day(3)},
			start:  day(1),
			end:    day(3),
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, td.start, td.tSlice.StartTime())
			assert.Equal(t, td.end, td.tSlice.EndTime())
		})
	}
}

func TestDailyAfter(t *testing.T) {
	res := DailyAfter(day(30), 3)
	assert.Equal(t, []time.Time{
		time.Date(2001, 1, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2001, 2, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2001, 2, 2, 0, 0, 0, 0, time.UTC),
	}, res)
	assert.Empty(t, DailyAfter(day(1), 0))
}
