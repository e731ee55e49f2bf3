package servicerequest

import (
	"errors"
	"fmt"
	"time"
)

const (
	firstSlotHour = 8
	lastSlotHour  = 22 // exclusive; last slot is 21:30
	slotStep      = 30 * time.Minute
	scheduleDays  = 7
	dateLayout    = "2006-01-02"
	timeLayout    = "15:04"
)

const DefaultTimezone = "America/Mexico_City"

var ErrInvalidSchedule = errors.New("schedule outside the bookable window")

// Schedule is a pickup slot as chosen on the form.
type Schedule struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

type Day struct {
	Date    string `json:"date"`
	Weekday string `json:"weekday"`
	Day     int    `json:"day"`
}

var weekdaysES = [...]string{"dom", "lun", "mar", "mié", "jue", "vie", "sáb"}

// Days lists today and the following six days in loc.
func Days(now time.Time, loc *time.Location) []Day {
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	out := make([]Day, 0, scheduleDays)
	for i := 0; i < scheduleDays; i++ {
		d := start.AddDate(0, 0, i)
		out = append(out, Day{Date: d.Format(dateLayout), Weekday: weekdaysES[d.Weekday()], Day: d.Day()})
	}
	return out
}

// TimeSlots is the fixed half-hour grid 08:00..21:30.
func TimeSlots() []string {
	out := make([]string, 0, (lastSlotHour-firstSlotHour)*2)
	for h := firstSlotHour; h < lastSlotHour; h++ {
		out = append(out, fmt.Sprintf("%02d:00", h), fmt.Sprintf("%02d:30", h))
	}
	return out
}

func validSlot(hhmm string) bool {
	for _, s := range TimeSlots() {
		if s == hhmm {
			return true
		}
	}
	return false
}

// Resolve checks the schedule against the grid and returns the instant it
// names in loc.
func (s Schedule) Resolve(now time.Time, loc *time.Location) (time.Time, error) {
	if !validSlot(s.Time) {
		return time.Time{}, ErrInvalidSchedule
	}
	day, err := time.ParseInLocation(dateLayout, s.Date, loc)
	if err != nil {
		return time.Time{}, ErrInvalidSchedule
	}
	allowed := false
	for _, d := range Days(now, loc) {
		if d.Date == s.Date {
			allowed = true
			break
		}
	}
	if !allowed {
		return time.Time{}, ErrInvalidSchedule
	}
	hm, _ := time.Parse(timeLayout, s.Time)
	return time.Date(day.Year(), day.Month(), day.Day(), hm.Hour(), hm.Minute(), 0, 0, loc), nil
}
