package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stipe44/murmur/internal/domain"
)

func TestDeriveWindowCounts(t *testing.T) {
	tests := []struct {
		name        string
		myTotal     int
		otherTotal  int
		otherSingle int
		newerCount  int
		wantCount   int
		wantDouble  int
	}{
		{name: "peer read everything", myTotal: 0, otherTotal: 0, otherSingle: 0, wantCount: 0, wantDouble: 0},
		{name: "i have more unread than peer", myTotal: 5, otherTotal: 2, otherSingle: 1, wantCount: 0, wantDouble: 0},
		{name: "equal unread", myTotal: 3, otherTotal: 3, otherSingle: 0, wantCount: 0, wantDouble: 0},
		{name: "five unseen two undelivered", myTotal: 0, otherTotal: 5, otherSingle: 2, wantCount: 5, wantDouble: 3},
		{name: "all unseen delivered", myTotal: 0, otherTotal: 4, otherSingle: 0, wantCount: 4, wantDouble: 4},
		{name: "all unseen undelivered", myTotal: 0, otherTotal: 4, otherSingle: 4, wantCount: 4, wantDouble: 0},
		{name: "newer page excludes part of span", myTotal: 0, otherTotal: 5, otherSingle: 2, newerCount: 3, wantCount: 2, wantDouble: 2},
		{name: "newer page swallows whole span", myTotal: 0, otherTotal: 5, otherSingle: 2, newerCount: 5, wantCount: 0, wantDouble: 0},
		{name: "newer page beyond span", myTotal: 0, otherTotal: 5, otherSingle: 2, newerCount: 8, wantCount: 0, wantDouble: 0},
		{name: "single clamped before subtraction", myTotal: 0, otherTotal: 10, otherSingle: 3, newerCount: 6, wantCount: 4, wantDouble: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			count, double := deriveWindowCounts(tt.myTotal, tt.otherTotal, tt.otherSingle, tt.newerCount)
			if count != tt.wantCount || double != tt.wantDouble {
				t.Fatalf("deriveWindowCounts(%d, %d, %d, %d) = (%d, %d), want (%d, %d)",
					tt.myTotal, tt.otherTotal, tt.otherSingle, tt.newerCount,
					count, double, tt.wantCount, tt.wantDouble)
			}
		})
	}
}

func TestDeriveWindowCountsInvariant(t *testing.T) {
	// double never exceeds count, and both stay non-negative, over a sweep of
	// ledger states.
	for myTotal := 0; myTotal <= 4; myTotal++ {
		for otherTotal := 0; otherTotal <= 8; otherTotal++ {
			for otherSingle := 0; otherSingle <= otherTotal; otherSingle++ {
				for newer := 0; newer <= 10; newer++ {
					count, double := deriveWindowCounts(myTotal, otherTotal, otherSingle, newer)
					if count < 0 || double < 0 || double > count {
						t.Fatalf("deriveWindowCounts(%d, %d, %d, %d) = (%d, %d), out of range",
							myTotal, otherTotal, otherSingle, newer, count, double)
					}
				}
			}
		}
	}
}

func messagesAt(sender uuid.UUID, times ...time.Time) []domain.Message {
	msgs := make([]domain.Message, len(times))
	for i, ts := range times {
		msgs[i] = domain.Message{
			ID:        uuid.New(),
			SenderID:  sender,
			Body:      "m",
			CreatedAt: ts,
		}
	}
	return msgs
}

func flattenGroups(groups []domain.DateGroup) []domain.PageMessage {
	var out []domain.PageMessage
	for _, g := range groups {
		out = append(out, g.Messages...)
	}
	return out
}

func TestBuildGroupsStatusWalk(t *testing.T) {
	me := uuid.New()
	now := time.Date(2024, 5, 10, 15, 0, 0, 0, time.UTC)

	times := make([]time.Time, 6)
	for i := range times {
		times[i] = now.Add(time.Duration(i-6) * time.Minute)
	}
	msgs := messagesAt(me, times...)

	// Peer has 3 unseen messages, 1 of them undelivered: oldest 3 read, then
	// 2 double, then 1 sent.
	mine := domain.ParticipantStatus{TotalCount: 0}
	other := domain.ParticipantStatus{TotalCount: 3, SingleCount: 1}

	groups := buildGroups(msgs, me, mine, other, 0, now, time.UTC)
	flat := flattenGroups(groups)
	if len(flat) != 6 {
		t.Fatalf("got %d messages, want 6", len(flat))
	}

	want := []domain.ReceiptStatus{
		domain.StatusRead, domain.StatusRead, domain.StatusRead,
		domain.StatusDouble, domain.StatusDouble, domain.StatusSent,
	}
	for i, pm := range flat {
		if pm.Status != want[i] {
			t.Errorf("message %d: status = %q, want %q", i, pm.Status, want[i])
		}
		if pm.Sender != 0 {
			t.Errorf("message %d: sender = %d, want 0 (own message)", i, pm.Sender)
		}
	}
}

func TestBuildGroupsAllRead(t *testing.T) {
	me := uuid.New()
	now := time.Date(2024, 5, 10, 15, 0, 0, 0, time.UTC)
	msgs := messagesAt(me, now.Add(-2*time.Minute), now.Add(-time.Minute))

	groups := buildGroups(msgs, me, domain.ParticipantStatus{}, domain.ParticipantStatus{}, 0, now, time.UTC)
	for _, pm := range flattenGroups(groups) {
		if pm.Status != domain.StatusRead {
			t.Fatalf("status = %q, want %q when the peer has no unseen messages", pm.Status, domain.StatusRead)
		}
	}
}

func TestBuildGroupsSpanLargerThanWindow(t *testing.T) {
	me := uuid.New()
	now := time.Date(2024, 5, 10, 15, 0, 0, 0, time.UTC)

	// 25 unseen in total but only 20 in this window; the 5 newer ones sit on
	// a later page. Whole window is unseen: 15 double then 5 sent.
	times := make([]time.Time, 20)
	for i := range times {
		times[i] = now.Add(time.Duration(i-25) * time.Minute)
	}
	msgs := messagesAt(me, times...)

	mine := domain.ParticipantStatus{TotalCount: 0}
	other := domain.ParticipantStatus{TotalCount: 25, SingleCount: 10}

	groups := buildGroups(msgs, me, mine, other, 5, now, time.UTC)
	flat := flattenGroups(groups)
	if len(flat) != 20 {
		t.Fatalf("got %d messages, want 20", len(flat))
	}
	for i, pm := range flat {
		want := domain.StatusDouble
		if i >= 15 {
			want = domain.StatusSent
		}
		if pm.Status != want {
			t.Errorf("message %d: status = %q, want %q", i, pm.Status, want)
		}
	}
}

func TestBuildGroupsDateBuckets(t *testing.T) {
	me := uuid.New()
	peer := uuid.New()
	now := time.Date(2024, 5, 10, 15, 0, 0, 0, time.UTC)

	msgs := []domain.Message{
		{ID: uuid.New(), SenderID: me, Body: "a", CreatedAt: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)},
		{ID: uuid.New(), SenderID: peer, Body: "b", CreatedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		{ID: uuid.New(), SenderID: me, Body: "c", CreatedAt: time.Date(2024, 5, 9, 22, 0, 0, 0, time.UTC)},
		{ID: uuid.New(), SenderID: peer, Body: "d", CreatedAt: time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)},
	}

	groups := buildGroups(msgs, me, domain.ParticipantStatus{}, domain.ParticipantStatus{}, 0, now, time.UTC)
	if len(groups) != 3 {
		t.Fatalf("got %d groups, want 3", len(groups))
	}

	wantDates := []string{"May 1, 2024", "Yesterday", "Today"}
	wantSizes := []int{2, 1, 1}
	for i, g := range groups {
		if g.Date != wantDates[i] {
			t.Errorf("group %d: date = %q, want %q", i, g.Date, wantDates[i])
		}
		if len(g.Messages) != wantSizes[i] {
			t.Errorf("group %d: %d messages, want %d", i, len(g.Messages), wantSizes[i])
		}
	}

	if got := groups[0].Messages[1].Sender; got != 1 {
		t.Errorf("peer message sender = %d, want 1", got)
	}
}

func TestDateLabel(t *testing.T) {
	now := time.Date(2024, 5, 10, 0, 30, 0, 0, time.UTC)

	tests := []struct {
		t    time.Time
		want string
	}{
		{time.Date(2024, 5, 10, 0, 1, 0, 0, time.UTC), "Today"},
		{time.Date(2024, 5, 9, 23, 59, 0, 0, time.UTC), "Yesterday"},
		{time.Date(2024, 5, 8, 12, 0, 0, 0, time.UTC), "May 8, 2024"},
		{time.Date(2023, 12, 31, 12, 0, 0, 0, time.UTC), "December 31, 2023"},
	}
	for _, tt := range tests {
		if got := dateLabel(tt.t, now, time.UTC); got != tt.want {
			t.Errorf("dateLabel(%v) = %q, want %q", tt.t, got, tt.want)
		}
	}
}
