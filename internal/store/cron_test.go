package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCronDueInvalidExpression(t *testing.T) {
	_, ok := cronDue("not a cron expr", time.Now())
	assert.False(t, ok)
}

func TestCronDueRespectsSchedule(t *testing.T) {
	since := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	// "0 0 1 1 *" only fires on Jan 1st; far in the past it is overdue.
	due, ok := cronDue("0 0 1 1 *", since)
	assert.True(t, ok)
	assert.True(t, due)
}
