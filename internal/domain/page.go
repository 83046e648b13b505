package domain

import (
	"time"

	"github.com/google/uuid"
)

// PageMessage is one message as rendered into a page: Sender is 0 when the
// requester sent it, 1 otherwise; Status is derived from the peer's ledger
// snapshot at page-assembly time.
type PageMessage struct {
	ID      uuid.UUID     `json:"id"`
	Content string        `json:"content"`
	Image   *string       `json:"image,omitempty"`
	Sender  int           `json:"sender"`
	Time    time.Time     `json:"time"`
	Status  ReceiptStatus `json:"status"`
}

// DateGroup buckets a run of page messages under a human-readable date label:
// "Today", "Yesterday", or "January 2, 2006". Groups are ordered oldest first.
type DateGroup struct {
	Date     string        `json:"date"`
	Messages []PageMessage `json:"messages"`
}

// PeerDetails is the other participant's header info for an open conversation.
type PeerDetails struct {
	Name      string    `json:"name"`
	Username  string    `json:"username"`
	AvatarURL *string   `json:"avatar,omitempty"`
	About     string    `json:"about"`
	LastSeen  time.Time `json:"last_seen"`
}

// ConversationPage is the response of an initial open or a scroll-back
// request. Watermark is the oldest message id in the page; passing it back
// fetches the next older page. Nil when the page is empty.
type ConversationPage struct {
	Groups    []DateGroup  `json:"messages"`
	Total     int          `json:"total"`
	Watermark *uuid.UUID   `json:"watermark,omitempty"`
	Peer      *PeerDetails `json:"peer,omitempty"`
}
