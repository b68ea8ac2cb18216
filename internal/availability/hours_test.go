package availability

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    Clock
		wantErr bool
	}{
		{in: "00:00", want: 0},
		{in: "09:30", want: 570},
		{in: "23:59", want: 1439},
		{in: "14:45:59", want: 885},
		{in: " 08:15 ", want: 495},
		{in: "24:00", wantErr: true},
		{in: "9:30", wantErr: true},
		{in: "09:60", wantErr: true},
		{in: "09-30", wantErr: true},
		{in: "", wantErr: true},
		{in: "10:00:00:00", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseClock(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidArgument)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClockString(t *testing.T) {
	assert.Equal(t, "00:00", Clock(0).String())
	assert.Equal(t, "09:05", Clock(545).String())
	assert.Equal(t, "17:30", Clock(1050).String())
}

func TestParseBusyInterval(t *testing.T) {
	b, err := ParseBusyInterval("10:00:00", "10:45:00")
	require.NoError(t, err)
	assert.Equal(t, BusyInterval{Start: 600, End: 645}, b)

	_, err = ParseBusyInterval("11:00", "10:00")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = ParseBusyInterval("10:00", "10:00")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestWeeklyHoursJSON(t *testing.T) {
	var week WeeklyHours
	err := json.Unmarshal([]byte(`{
		"monday": {"start": "09:00", "end": "18:00", "closed": false},
		"6": {"start": "10:00", "end": "14:00"}
	}`), &week)
	require.NoError(t, err)

	assert.Equal(t, WorkingHours{Start: "09:00", End: "18:00"}, week.ForDay(time.Monday))
	assert.Equal(t, WorkingHours{Start: "10:00", End: "14:00"}, week.ForDay(time.Saturday))
	assert.True(t, week.ForDay(time.Sunday).Closed, "absent days are closed")
	assert.True(t, week.ForDay(time.Wednesday).Closed)

	data, err := json.Marshal(week)
	require.NoError(t, err)
	var decoded map[string]WorkingHours
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Len(t, decoded, 7)
	assert.Equal(t, "10:00", decoded["saturday"].Start)
}

func TestWeeklyHoursRejectsUnknownDay(t *testing.T) {
	var week WeeklyHours
	err := json.Unmarshal([]byte(`{"funday": {"start": "09:00", "end": "10:00"}}`), &week)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestBusyIntervalJSONUsesClockText(t *testing.T) {
	data, err := json.Marshal(BusyInterval{Start: 600, End: 630})
	require.NoError(t, err)
	assert.JSONEq(t, `{"start":"10:00","end":"10:30"}`, string(data))
}
