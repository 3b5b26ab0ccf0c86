package timezone

import (
	"testing"
	"time"
)

func TestToday(t *testing.T) {
	zone, err := Load("Europe/Stockholm")
	if err != nil {
		t.Fatal(err)
	}
	// 23:30 UTC on the 31st is already the 1st in Stockholm
	zone.now = func() time.Time {
		return time.Date(2025, time.January, 31, 23, 30, 0, 0, time.UTC)
	}
	if got := zone.Today(); got != "2025-02-01" {
		t.Fatalf("expected 2025-02-01, got %s", got)
	}
}

func TestLoadUnknown(t *testing.T) {
	if _, err := Load("Mars/Olympus_Mons"); err == nil {
		t.Fatal("expected an error")
	}
}
