package quota

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farelProject/v-technology/internal/model"
)

func day(d, h int) time.Time {
	return time.Date(2024, 3, d, h, 0, 0, 0, time.UTC)
}

func TestRefresh(t *testing.T) {
	tests := []struct {
		name      string
		lastReset time.Time
		now       time.Time
		wantReset bool
	}{
		{"same day", day(10, 1), day(10, 23), false},
		{"next day just after midnight", day(10, 23), day(11, 0), true},
		{"several days later", day(1, 12), day(10, 12), true},
		{"clock behind last reset", day(11, 5), day(10, 5), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := model.ChatLimit{Count: 7, Limit: 10, LastReset: tt.lastReset}
			got := Refresh(&l, tt.now)
			assert.Equal(t, tt.wantReset, got)
			if tt.wantReset {
				assert.Equal(t, 0, l.Count)
				assert.Equal(t, tt.now, l.LastReset)
			} else {
				assert.Equal(t, 7, l.Count)
			}
		})
	}
}

func TestConsumeAndRefund(t *testing.T) {
	l := New(2, day(1, 0))

	require.NoError(t, Consume(&l))
	require.NoError(t, Consume(&l))
	assert.True(t, Exhausted(l))
	assert.ErrorIs(t, Consume(&l), ErrExhausted)
	assert.Equal(t, 2, l.Count)

	Refund(&l)
	assert.Equal(t, 1, l.Count)
	Refund(&l)
	Refund(&l)
	assert.Equal(t, 0, l.Count)
}

func TestWarning(t *testing.T) {
	tests := []struct {
		count int
		want  string
	}{
		{0, ""},
		{7, ""},
		{8, "You have 2 messages left."},
		{9, "You have 1 messages left."},
		{10, ""},
	}

	for _, tt := range tests {
		l := model.ChatLimit{Count: tt.count, Limit: 10}
		assert.Equal(t, tt.want, Warning(l), "count=%d", tt.count)
	}
}

func TestRemainingNeverNegative(t *testing.T) {
	assert.Equal(t, 0, Remaining(model.ChatLimit{Count: 12, Limit: 10}))
	assert.Equal(t, 3, Remaining(model.ChatLimit{Count: 7, Limit: 10}))
}

func TestNextReset(t *testing.T) {
	l := model.ChatLimit{LastReset: day(10, 15)}
	assert.Equal(t, day(11, 0), NextReset(l))
}

func TestGuestTracker(t *testing.T) {
	now := day(5, 9)
	g := NewGuestTracker(2, time.Hour)
	g.now = func() time.Time { return now }

	l, err := g.Consume("guest-a")
	require.NoError(t, err)
	assert.Equal(t, 1, l.Count)

	_, err = g.Consume("guest-a")
	require.NoError(t, err)
	_, err = g.Consume("guest-a")
	assert.ErrorIs(t, err, ErrExhausted)

	assert.Equal(t, 0, g.Peek("guest-b").Count)

	l = g.Refund("guest-a")
	assert.Equal(t, 1, l.Count)

	now = day(6, 0)
	assert.Equal(t, 0, g.Peek("guest-a").Count)
}

func TestGuestTrackerPrune(t *testing.T) {
	now := day(5, 9)
	g := NewGuestTracker(10, time.Hour)
	g.now = func() time.Time { return now }

	g.Peek("old")
	now = now.Add(30 * time.Minute)
	g.Peek("fresh")
	now = now.Add(45 * time.Minute)

	assert.Equal(t, 1, g.Prune())
	assert.Equal(t, 1, g.Len())
}
