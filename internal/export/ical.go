package export

import (
	"context"
	"fmt"
	"io"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/classattendance/internal/attendance"
	"github.com/classattendance/internal/subjects"
)

// WriteICal writes the recorded days of a subject as all-day calendar events.
func WriteICal(ctx context.Context, w io.Writer, ledger Ledger, subject subjects.Subject) error {
	icalendar := ics.NewCalendar()
	icalendar.SetProductId("-//classattendance//attendance//EN")
	icalendar.SetName(fmt.Sprintf("Attendance: %s", subject))

	records := ledger.DayRecords(ctx, subject)
	for _, date := range records.Dates() {
		day, err := time.Parse(attendance.DateLayout, date)
		if err != nil {
			continue
		}
		record := records[date]

		event := icalendar.AddEvent(fmt.Sprintf("%s/%s@classattendance", date, subject))
		event.SetDtStampTime(day)
		event.SetSummary(fmt.Sprintf("[%s] %s %d/%d", markLabel(record.Mark()), subject, record.Attended, record.Total))
		event.SetAllDayStartAt(day)
		event.SetAllDayEndAt(day.AddDate(0, 0, 1))
	}
	return icalendar.SerializeTo(w)
}

func markLabel(mark attendance.Mark) string {
	switch mark {
	case attendance.MarkFull:
		return "ATTENDED"
	case attendance.MarkNone:
		return "MISSED"
	default:
		return "PARTIAL"
	}
}
