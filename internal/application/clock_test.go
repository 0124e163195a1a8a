package application

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSystemClockIsUTC(t *testing.T) {
	assert.Equal(t, time.UTC, SystemClock{}.Now().Location())
}

func TestClockFunc(t *testing.T) {
	at := time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)
	var c Clock = ClockFunc(func() time.Time { return at })
	assert.Equal(t, at, c.Now())
}
