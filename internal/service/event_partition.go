package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/council-portal-api/internal/models"
)

var eventDateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05-07",
}

// EventPartitions is the result of splitting events around today.
type EventPartitions struct {
	Upcoming []models.Event
	Past     []models.Event
	Invalid  []models.Event
}

// ParseEventDate reads an event date and truncates it to midnight in loc.
func ParseEventDate(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	raw = strings.TrimSpace(raw)
	for _, layout := range eventDateLayouts {
		t, err := time.ParseInLocation(layout, raw, loc)
		if err == nil {
			return midnight(t, loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised event date %q", raw)
}

// PartitionEvents splits events into upcoming (today or later) and past, by
// calendar day in loc. Events with unparseable dates land in Invalid. Input
// order is kept in every partition.
func PartitionEvents(events []models.Event, now time.Time, loc *time.Location) EventPartitions {
	if loc == nil {
		loc = time.UTC
	}
	today := midnight(now, loc)
	result := EventPartitions{Upcoming: []models.Event{}, Past: []models.Event{}}
	for _, event := range events {
		day, err := ParseEventDate(event.EventDate, loc)
		if err != nil {
			result.Invalid = append(result.Invalid, event)
			continue
		}
		if day.Before(today) {
			result.Past = append(result.Past, event)
		} else {
			result.Upcoming = append(result.Upcoming, event)
		}
	}
	return result
}

func midnight(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}
