package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/stipe44/murmur/internal/domain"
)

// deriveWindowCounts maps the peer's ledger snapshot onto one window of the
// log. otherTotal messages at the tail of the log are unseen by the peer;
// newerCount of them lie after this window and are excluded. Of the unseen
// messages in the window, double is how many reached a live connection
// (double tick); the remainder show a single tick.
//
// The snapshot must be the one taken with the window, before any read-reset
// performed for the same request.
func deriveWindowCounts(myTotal, otherTotal, otherSingle, newerCount int) (count, double int) {
	if myTotal >= otherTotal {
		return 0, 0
	}
	count = otherTotal - newerCount
	if count <= 0 {
		return 0, 0
	}
	single := otherSingle - newerCount
	if single < 0 {
		single = 0
	}
	return count, count - single
}

// buildGroups assigns a receipt status to every message of a window and
// buckets the result by calendar date in loc. Messages are walked oldest to
// newest; everything at or before the unseen boundary is "read", then the
// delivered portion is "double" and the rest "sent".
func buildGroups(msgs []domain.Message, requesterID uuid.UUID, mine, other domain.ParticipantStatus, newerCount int, now time.Time, loc *time.Location) []domain.DateGroup {
	count, doubleLeft := deriveWindowCounts(mine.TotalCount, other.TotalCount, other.SingleCount, newerCount)

	tillWhen := len(msgs) + 1
	if count > 0 {
		tillWhen = len(msgs) - 1 - count
	}

	var groups []domain.DateGroup
	for i, msg := range msgs {
		status := domain.StatusRead
		if count > 0 && i > tillWhen {
			if doubleLeft > 0 {
				status = domain.StatusDouble
				doubleLeft--
			} else {
				status = domain.StatusSent
			}
		}

		sender := 1
		if msg.SenderID == requesterID {
			sender = 0
		}

		page := domain.PageMessage{
			ID:      msg.ID,
			Content: msg.Body,
			Image:   msg.ImageURL,
			Sender:  sender,
			Time:    msg.CreatedAt,
			Status:  status,
		}

		label := dateLabel(msg.CreatedAt, now, loc)
		if n := len(groups); n > 0 && groups[n-1].Date == label {
			groups[n-1].Messages = append(groups[n-1].Messages, page)
		} else {
			groups = append(groups, domain.DateGroup{Date: label, Messages: []domain.PageMessage{page}})
		}
	}
	return groups
}

// dateLabel renders t as "Today", "Yesterday", or "January 2, 2006" relative
// to now in the given location.
func dateLabel(t, now time.Time, loc *time.Location) string {
	t = t.In(loc)
	now = now.In(loc)

	ty, tm, td := t.Date()
	ny, nm, nd := now.Date()
	if ty == ny && tm == nm && td == nd {
		return "Today"
	}

	yy, ym, yd := now.AddDate(0, 0, -1).Date()
	if ty == yy && tm == ym && td == yd {
		return "Yesterday"
	}

	return t.Format("January 2, 2006")
}
