package engine

import (
	"time"

	"github.com/smallbiznis/coursepulse/internal/records/domain"
)

type Activity struct {
	ActiveDays    int
	CurrentStreak int
	LastActive    time.Time
}

// StudentActivity counts distinct calendar days with lesson activity in loc.
// The streak is the run of consecutive active days ending today, or ending
// yesterday when there is no activity yet today.
func StudentActivity(progress []domain.LessonProgress, now time.Time, loc *time.Location) Activity {
	if loc == nil {
		loc = time.UTC
	}
	days := make(map[time.Time]struct{})
	var activity Activity
	for _, p := range progress {
		if p.LastAccessed.IsZero() {
			continue
		}
		days[dayOf(p.LastAccessed, loc)] = struct{}{}
		if p.LastAccessed.After(activity.LastActive) {
			activity.LastActive = p.LastAccessed
		}
	}
	activity.ActiveDays = len(days)

	day := dayOf(now, loc)
	if _, ok := days[day]; !ok {
		day = day.AddDate(0, 0, -1)
	}
	for {
		if _, ok := days[day]; !ok {
			break
		}
		activity.CurrentStreak++
		day = day.AddDate(0, 0, -1)
	}
	return activity
}

func dayOf(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
