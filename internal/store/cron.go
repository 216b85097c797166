package store

import (
	"time"

	"github.com/robfig/cron/v3"
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// cronDue parses expr and reports whether its next scheduled fire strictly
// after since has already passed. The second return is false when expr
// fails to parse, signalling the caller to fall back to its default rule.
func cronDue(expr string, since time.Time) (due bool, ok bool) {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return false, false
	}
	return !sched.Next(since).After(time.Now()), true
}
