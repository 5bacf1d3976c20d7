package departures

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func TestDeriveStatusFromDelay(t *testing.T) {
	assert.Equal(t, "Delayed 5 min", deriveStatus(intPtr(5), time.Hour))
	assert.Equal(t, "Delayed 2 min", deriveStatus(intPtr(2), 0))
	assert.Equal(t, "Early 3 min", deriveStatus(intPtr(-3), time.Hour))
	assert.Equal(t, StatusOnTime, deriveStatus(intPtr(1), time.Hour))
	assert.Equal(t, StatusOnTime, deriveStatus(intPtr(-1), time.Hour))
}

func TestDeriveStatusFromProximity(t *testing.T) {
	assert.Equal(t, StatusApproaching, deriveStatus(nil, 120*time.Second))
	assert.Equal(t, StatusApproaching, deriveStatus(nil, 45*time.Second))
	assert.Equal(t, StatusDue, deriveStatus(nil, 20*time.Second))
	assert.Equal(t, StatusDue, deriveStatus(nil, -20*time.Second))
	assert.Equal(t, StatusScheduled, deriveStatus(nil, 10*time.Minute))
	assert.Equal(t, StatusScheduled, deriveStatus(nil, -5*time.Minute))
}

func TestDelayMinutesRounding(t *testing.T) {
	assert.Equal(t, 0, delayMinutes(10))
	assert.Equal(t, 1, delayMinutes(30))
	assert.Equal(t, 2, delayMinutes(90))
	assert.Equal(t, -2, delayMinutes(-90))
	assert.Equal(t, 2, delayMinutes(120))
}

func TestStripLeadingZeros(t *testing.T) {
	assert.Equal(t, "8571209", stripLeadingZeros("0008571209"))
	assert.Equal(t, "8571209", stripLeadingZeros("8571209"))
	assert.Equal(t, "0", stripLeadingZeros("000"))
	assert.Equal(t, "", stripLeadingZeros(""))
}

func TestParseSourceFilter(t *testing.T) {
	filter, ok := ParseSourceFilter("")
	assert.True(t, ok)
	assert.Equal(t, FilterAll, filter)

	filter, ok = ParseSourceFilter("Realtime")
	assert.True(t, ok)
	assert.Equal(t, FilterRealtime, filter)

	_, ok = ParseSourceFilter("both")
	assert.False(t, ok)
}
