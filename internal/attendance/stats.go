package attendance

import (
	"math"
	"time"
)

type Stats struct {
	PresentCount int `json:"present_count"`
	TotalCount   int `json:"total_count"`
	Percentage   int `json:"percentage"`
}

func (s *Stats) add(r DayRecord) {
	s.PresentCount += r.Attended
	s.TotalCount += r.Total
	s.Percentage = percentage(s.PresentCount, s.TotalCount)
}

// Calculate aggregates records into attendance statistics.
func Calculate(records Records) Stats {
	stats := Stats{}
	for _, r := range records {
		stats.add(r)
	}
	return stats
}

func percentage(present, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(present) / float64(total) * 100))
}

type Day struct {
	Date     string `json:"date"`
	Total    int    `json:"total"`
	Attended int    `json:"attended"`
	Mark     Mark   `json:"mark"`
}

type Week struct {
	// Number is an ISO week number
	Number int   `json:"number"`
	Stats  Stats `json:"stats"`
}

// MonthView is what a calendar page for one month of a subject needs.
type MonthView struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Days  []Day      `json:"days"`
	Weeks []Week     `json:"weeks"`
	Stats Stats      `json:"stats"`
}

func CalculateMonth(records Records, year int, month time.Month) MonthView {
	view := MonthView{
		Year:  year,
		Month: month,
		Days:  []Day{},
	}
	monthStart := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	weekIndex := map[int]int{}
	for d := monthStart; d.Before(monthStart.AddDate(0, 1, 0)); d = d.AddDate(0, 0, 1) {
		_, week := d.ISOWeek()
		if _, ok := weekIndex[week]; !ok {
			weekIndex[week] = len(weekIndex)
			view.Weeks = append(view.Weeks, Week{
				Number: week,
			})
		}

		record, ok := records[d.Format(DateLayout)]
		if !ok {
			continue
		}
		view.Days = append(view.Days, Day{
			Date:     d.Format(DateLayout),
			Total:    record.Total,
			Attended: record.Attended,
			Mark:     record.Mark(),
		})
		view.Stats.add(record)
		view.Weeks[weekIndex[week]].Stats.add(record)
	}
	return view
}
