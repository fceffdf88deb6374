package scheduling

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// WeekRange returns the Saturday and Thursday bounding the teaching week that contains
// now shifted by offset weeks.
func WeekRange(now time.Time, offset int) (time.Time, time.Time) {
	day := CivilDate(now).AddDate(0, 0, offset*7)
	back := (int(day.Weekday()) + 1) % 7
	saturday := day.AddDate(0, 0, -back)
	return saturday, saturday.AddDate(0, 0, 5)
}

// ScheduleEntry is one commitment shown in a weekly schedule.
type ScheduleEntry struct {
	OccurrenceID uuid.UUID   `json:"occurrence_id"`
	SessionID    uuid.UUID   `json:"session_id"`
	Source       BusySource  `json:"source"`
	ModuleName   string      `json:"module_name"`
	SessionType  SessionType `json:"session_type"`
	Date         string      `json:"date"`
	Day          string      `json:"day"`
	StartTime    string      `json:"start_time"`
	EndTime      string      `json:"end_time"`
}

// WeeklySchedule groups commitments by date.
type WeeklySchedule struct {
	WeekStart string                     `json:"week_start"`
	WeekEnd   string                     `json:"week_end"`
	Days      map[string][]ScheduleEntry `json:"days"`
}

// BuildWeeklySchedule orders busy slots by date and start time and groups them per day.
// Slots with malformed times are kept with their raw values and sorted last within their day.
func BuildWeeklySchedule(from, until time.Time, slots []BusySlot) WeeklySchedule {
	type keyed struct {
		entry ScheduleEntry
		date  time.Time
		start ClockTime
		valid bool
	}

	rows := make([]keyed, 0, len(slots))
	for _, s := range slots {
		entry := ScheduleEntry{
			OccurrenceID: s.OccurrenceID,
			SessionID:    s.SessionID,
			Source:       s.Source,
			ModuleName:   s.ModuleName,
			SessionType:  s.SessionType,
			Date:         CivilDate(s.Date).Format(DateLayout),
			Day:          s.Day,
			StartTime:    s.StartTime,
			EndTime:      s.EndTime,
		}
		row := keyed{entry: entry, date: CivilDate(s.Date)}
		if iv, err := NewInterval(s.Date, s.StartTime, s.EndTime); err == nil {
			row.start, row.valid = iv.Start, true
			row.entry.StartTime, row.entry.EndTime = iv.Start.String(), iv.End.String()
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].date.Equal(rows[j].date) {
			return rows[i].date.Before(rows[j].date)
		}
		if rows[i].valid != rows[j].valid {
			return rows[i].valid
		}
		return rows[i].start < rows[j].start
	})

	week := WeeklySchedule{
		WeekStart: CivilDate(from).Format(DateLayout),
		WeekEnd:   CivilDate(until).Format(DateLayout),
		Days:      make(map[string][]ScheduleEntry),
	}
	for d := CivilDate(from); !d.After(CivilDate(until)); d = d.AddDate(0, 0, 1) {
		week.Days[d.Format(DateLayout)] = []ScheduleEntry{}
	}
	for _, r := range rows {
		week.Days[r.entry.Date] = append(week.Days[r.entry.Date], r.entry)
	}
	return week
}

// AbsenceRate is absent/total as a percentage rounded half up; no attendance yields 0.
func AbsenceRate(total, absent int) int {
	return Progress{Completed: absent, Total: total}.Percentage()
}
