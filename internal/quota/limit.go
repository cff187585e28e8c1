// Package quota implements the daily chat limit.
package quota

import (
	"errors"
	"fmt"
	"time"

	"github.com/farelProject/v-technology/internal/model"
)

// ErrExhausted is returned when a consume hits the limit.
var ErrExhausted = errors.New("chat limit exhausted")

// WarnThreshold is the remaining count at or below which senders are warned.
const WarnThreshold = 2

// New returns a fresh limit starting at now.
func New(limit int, now time.Time) model.ChatLimit {
	return model.ChatLimit{Count: 0, Limit: limit, LastReset: now.UTC()}
}

// Refresh resets the count when the last reset happened on an earlier UTC
// calendar day. It reports whether a reset took place.
func Refresh(l *model.ChatLimit, now time.Time) bool {
	if !sameDay(l.LastReset, now) && l.LastReset.Before(now) {
		l.Count = 0
		l.LastReset = now.UTC()
		return true
	}
	return false
}

// Exhausted reports whether no sends remain.
func Exhausted(l model.ChatLimit) bool {
	return l.Count >= l.Limit
}

// Remaining returns the number of sends left, never negative.
func Remaining(l model.ChatLimit) int {
	if r := l.Limit - l.Count; r > 0 {
		return r
	}
	return 0
}

// Consume spends one send. It fails without mutating when the limit is used up.
func Consume(l *model.ChatLimit) error {
	if Exhausted(*l) {
		return ErrExhausted
	}
	l.Count++
	return nil
}

// Refund gives back one send.
func Refund(l *model.ChatLimit) {
	if l.Count > 0 {
		l.Count--
	}
}

// Warning returns the low-quota notice, or "" when none is due.
func Warning(l model.ChatLimit) string {
	r := Remaining(l)
	if r > 0 && r <= WarnThreshold {
		return fmt.Sprintf("You have %d messages left.", r)
	}
	return ""
}

// NextReset returns when the count will next go back to zero.
func NextReset(l model.ChatLimit) time.Time {
	y, m, d := l.LastReset.UTC().Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
