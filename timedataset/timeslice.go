package timedataset

import (
	"time"
)

type TimeSlice []time.Time

func (t TimeSlice) StartTime() time.Time {
	var startTime time.Time
	if len(t) < 1 {
		return startTime
	}
	return t[0]
}

func (t TimeSlice) EndTime() time.Time {
	var lastTime time.Time
	if len(t) < 1 {
		return lastTime
	}

	lastTime = t[len(t)-1]
	return lastTime
}

// DailyAfter generates n consecutive days following the input time
func DailyAfter(tPnt time.Time, n int) []time.Time {
	t := make([]time.Time, 0, n)
	for i := 1; i <= n; i++ {
		t = append(t, tPnt.AddDate(0, 0, i))
	}
	return t
}
