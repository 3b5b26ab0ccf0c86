package export

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/classattendance/internal/attendance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteICal(t *testing.T) {
	ledger := fakeLedger{
		"Math": {
			"2025-01-02": {Total: 2, Attended: 2},
			"2025-01-01": {Total: 3, Attended: 0},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteICal(context.Background(), &buf, ledger, "Math"))

	out := buf.String()
	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.Equal(t, 2, strings.Count(out, "BEGIN:VEVENT"))
	assert.Contains(t, out, "UID:2025-01-01/Math@classattendance")
	assert.Contains(t, out, "SUMMARY:[MISSED] Math 0/3")
	assert.Contains(t, out, "SUMMARY:[ATTENDED] Math 2/2")
	assert.Contains(t, out, "DTSTART;VALUE=DATE:20250102")
	assert.Contains(t, out, "DTEND;VALUE=DATE:20250103")
	assert.Less(t, strings.Index(out, "20250101"), strings.Index(out, "20250102"))
}

func TestWriteICalEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteICal(context.Background(), &buf, fakeLedger{}, "Art"))
	assert.NotContains(t, buf.String(), "BEGIN:VEVENT")
}

func TestMarkLabel(t *testing.T) {
	assert.Equal(t, "PARTIAL", markLabel(attendance.DayRecord{Total: 3, Attended: 1}.Mark()))
}
