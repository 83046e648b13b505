package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stipe44/murmur/internal/domain"
	"github.com/stipe44/murmur/internal/metrics"
	"github.com/stipe44/murmur/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrWatermarkNotFound    = errors.New("watermark message not found in this conversation")
	ErrUserNotFound         = errors.New("user not found")
	ErrCannotChatSelf       = errors.New("cannot start a conversation with yourself")
	ErrNilBridge            = errors.New("chat service requires a bridge")
)

// Event names pushed through the Bridge.
const (
	EventMessageNew         = "message.new"
	EventConversationUpdate = "conversation.update"
	// EventReadChat targets a peer currently viewing the conversation that
	// was just read; EventReadMain targets their conversation list.
	EventReadChat = "message.read.chat"
	EventReadMain = "message.read.main"
)

// ActiveConnection is a user's live real-time connection. Viewing is the
// conversation they currently have open, uuid.Nil if none.
type ActiveConnection struct {
	ConnectionID uuid.UUID
	Viewing      uuid.UUID
}

// Bridge exposes the real-time transport to the chat core. Notify is
// fire-and-forget: a disconnected recipient is simply skipped, never an error.
type Bridge interface {
	FindActiveConnection(userID uuid.UUID) (ActiveConnection, bool)
	Notify(userID uuid.UUID, event string, payload any)
}

// ReadReceiptPayload is pushed to the peer after a read-reset.
type ReadReceiptPayload struct {
	ConversationID uuid.UUID            `json:"conversation_id"`
	Status         domain.ReceiptStatus `json:"status"`
}

// ConversationUpdatePayload refreshes one entry of the peer's conversation list.
type ConversationUpdatePayload struct {
	ConversationID uuid.UUID             `json:"conversation_id"`
	From           uuid.UUID             `json:"from"`
	Preview        domain.MessagePreview `json:"preview"`
}

const (
	initialPageSize = 20
	scrollPageSize  = 20
	searchLimit     = 20
)

type ChatService struct {
	convRepo    repository.ConversationRepository
	msgRepo     repository.MessageRepository
	receiptRepo repository.ReceiptRepository
	userRepo    repository.UserRepository
	bridge      Bridge
	logger      *zap.Logger
	loc         *time.Location

	// collapses concurrent create-or-get calls for the same pair
	createGroup singleflight.Group
}

// NewChatService wires the chat core. The bridge is mandatory: real-time
// receipt pushes are part of the read path, so construction fails fast
// instead of deferring to a nil check per call.
func NewChatService(
	convRepo repository.ConversationRepository,
	msgRepo repository.MessageRepository,
	receiptRepo repository.ReceiptRepository,
	userRepo repository.UserRepository,
	bridge Bridge,
	logger *zap.Logger,
) (*ChatService, error) {
	if bridge == nil {
		return nil, ErrNilBridge
	}
	return &ChatService{
		convRepo:    convRepo,
		msgRepo:     msgRepo,
		receiptRepo: receiptRepo,
		userRepo:    userRepo,
		bridge:      bridge,
		logger:      logger,
		loc:         time.Local,
	}, nil
}

// SetLocation overrides the calendar used for date bucketing.
func (s *ChatService) SetLocation(loc *time.Location) {
	s.loc = loc
}

// CreateOrGet finds or creates the conversation between userID and the user
// named peerUsername. At most one conversation ever exists per pair:
// concurrent calls collapse via singleflight, and a create that loses the
// race re-queries and returns the winner's id.
func (s *ChatService) CreateOrGet(ctx context.Context, userID uuid.UUID, peerUsername string) (uuid.UUID, bool, error) {
	peer, err := s.userRepo.GetByUsername(ctx, peerUsername)
	if err != nil {
		return uuid.Nil, false, err
	}
	if peer == nil {
		return uuid.Nil, false, ErrUserNotFound
	}
	if peer.ID == userID {
		return uuid.Nil, false, ErrCannotChatSelf
	}

	user1ID, user2ID := canonicalPair(userID, peer.ID)
	key := user1ID.String() + ":" + user2ID.String()

	type createResult struct {
		id      uuid.UUID
		created bool
	}

	v, err, _ := s.createGroup.Do(key, func() (any, error) {
		conv, err := s.convRepo.GetByUsers(ctx, user1ID, user2ID)
		if err != nil {
			return nil, err
		}
		if conv != nil {
			return createResult{id: conv.ID}, nil
		}

		conv = &domain.Conversation{
			ID:        uuid.New(),
			User1ID:   user1ID,
			User2ID:   user2ID,
			CreatedAt: time.Now(),
		}
		err = s.convRepo.Create(ctx, conv)
		if errors.Is(err, repository.ErrConversationExists) {
			existing, err := s.convRepo.GetByUsers(ctx, user1ID, user2ID)
			if err != nil {
				return nil, err
			}
			if existing == nil {
				return nil, fmt.Errorf("conversation for pair %s vanished after duplicate create", key)
			}
			return createResult{id: existing.ID}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("creating conversation: %w", err)
		}

		s.logger.Info("conversation created",
			zap.String("conversation_id", conv.ID.String()),
			zap.String("user1_id", user1ID.String()),
			zap.String("user2_id", user2ID.String()),
		)
		return createResult{id: conv.ID, created: true}, nil
	})
	if err != nil {
		return uuid.Nil, false, err
	}

	res := v.(createResult)
	return res.id, res.created, nil
}

// Open returns the initial page of a conversation: the last 20 messages, or
// the requester's whole unread span if longer, grouped by date with derived
// receipt statuses. Opening counts as reading: the requester's ledger row is
// reset afterwards and the peer is notified over the bridge.
func (s *ChatService) Open(ctx context.Context, userID, convID uuid.UUID) (*domain.ConversationPage, error) {
	conv, err := s.participantConversation(ctx, userID, convID)
	if err != nil {
		return nil, err
	}
	peerID := conv.Other(userID)

	win, err := s.msgRepo.Window(ctx, convID, userID, initialPageSize)
	if err != nil {
		return nil, s.mapRepoErr(err)
	}

	page := s.assemblePage(win, userID)

	peer, err := s.userRepo.GetByID(ctx, peerID)
	if err != nil {
		return nil, err
	}
	if peer != nil {
		page.Peer = &domain.PeerDetails{
			Name:      peer.Name,
			Username:  peer.Username,
			AvatarURL: peer.AvatarURL,
			About:     peer.About,
			LastSeen:  peer.LastSeen,
		}
	}

	if win.Mine.TotalCount > 0 {
		prevTotal, _, err := s.receiptRepo.ResetRead(ctx, convID, userID)
		if err != nil {
			return nil, s.mapRepoErr(err)
		}
		if prevTotal > 0 {
			metrics.ReadResets.Inc()
			s.pushReadReceipt(convID, peerID)
		}
	}

	return page, nil
}

// ScrollBack returns up to 20 messages strictly older than the watermark.
// It has no read side effects; the statuses are derived against the same
// snapshot the slice came from.
func (s *ChatService) ScrollBack(ctx context.Context, userID, convID, watermark uuid.UUID) (*domain.ConversationPage, error) {
	if _, err := s.participantConversation(ctx, userID, convID); err != nil {
		return nil, err
	}

	win, err := s.msgRepo.WindowBefore(ctx, convID, userID, watermark, scrollPageSize)
	if err != nil {
		return nil, s.mapRepoErr(err)
	}

	return s.assemblePage(win, userID), nil
}

// Send appends a message. Delivery is decided at send time: if the recipient
// holds a live connection the message counts as delivered (double tick),
// otherwise it stays a single tick until they read. The append and the
// recipient's counter bump commit together.
func (s *ChatService) Send(ctx context.Context, userID, convID uuid.UUID, body string, imageURL *string) (*domain.Message, error) {
	conv, err := s.participantConversation(ctx, userID, convID)
	if err != nil {
		return nil, err
	}
	recipientID := conv.Other(userID)

	_, delivered := s.bridge.FindActiveConnection(recipientID)

	msg, err := s.msgRepo.Append(ctx, convID, userID, body, imageURL, delivered)
	if err != nil {
		return nil, s.mapRepoErr(err)
	}
	metrics.MessagesSent.Inc()

	if conn, ok := s.bridge.FindActiveConnection(recipientID); ok {
		if conn.Viewing == convID {
			s.bridge.Notify(recipientID, EventMessageNew, msg)
		}
		s.bridge.Notify(recipientID, EventConversationUpdate, ConversationUpdatePayload{
			ConversationID: convID,
			From:           userID,
			Preview: domain.MessagePreview{
				Content: msg.Body,
				Image:   msg.ImageURL,
				Date:    msg.CreatedAt,
			},
		})
	}

	return msg, nil
}

// List returns the requester's conversation list, most recent first.
func (s *ChatService) List(ctx context.Context, userID uuid.UUID) ([]domain.ConversationSummary, error) {
	summaries, err := s.convRepo.ListSummaries(ctx, userID)
	if err != nil {
		return nil, err
	}
	if summaries == nil {
		summaries = []domain.ConversationSummary{}
	}
	return summaries, nil
}

// Search matches users by username and annotates each hit with the existing
// conversation, last message preview and unread count, if any.
func (s *ChatService) Search(ctx context.Context, userID uuid.UUID, term string) ([]domain.SearchResult, error) {
	users, err := s.userRepo.Search(ctx, term, userID, searchLimit)
	if err != nil {
		return nil, err
	}

	results := make([]domain.SearchResult, 0, len(users))
	for _, u := range users {
		res := domain.SearchResult{
			Username:  u.Username,
			Name:      u.Name,
			AvatarURL: u.AvatarURL,
			About:     u.About,
		}

		user1ID, user2ID := canonicalPair(userID, u.ID)
		conv, err := s.convRepo.GetByUsers(ctx, user1ID, user2ID)
		if err != nil {
			return nil, err
		}
		if conv != nil {
			res.ConversationID = &conv.ID

			mine, err := s.receiptRepo.Get(ctx, conv.ID, userID)
			if err != nil {
				return nil, err
			}
			if mine != nil {
				unread := mine.TotalCount
				res.Unread = &unread
			}

			last, err := s.msgRepo.Last(ctx, conv.ID)
			if err != nil {
				return nil, s.mapRepoErr(err)
			}
			if last != nil {
				preview := &domain.MessagePreview{
					Content: last.Body,
					Image:   last.ImageURL,
					Date:    last.CreatedAt,
				}
				if last.SenderID == userID {
					peerRow, err := s.receiptRepo.Get(ctx, conv.ID, u.ID)
					if err != nil {
						return nil, err
					}
					if peerRow != nil {
						preview.Status = &peerRow.Status
					}
				}
				res.LastMessage = preview
			}
		}

		results = append(results, res)
	}
	return results, nil
}

// assemblePage runs the status derivation over the window and wraps the
// result with the scroll watermark.
func (s *ChatService) assemblePage(win *domain.Window, userID uuid.UUID) *domain.ConversationPage {
	page := &domain.ConversationPage{
		Groups: buildGroups(win.Messages, userID, win.Mine, win.Other, win.NewerCount, time.Now(), s.loc),
		Total:  win.TotalMessages,
	}
	if len(win.Messages) > 0 {
		watermark := win.Messages[0].ID
		page.Watermark = &watermark
	}
	return page
}

// pushReadReceipt tells a connected peer that their messages were read.
// Best effort: an offline peer learns on their next poll.
func (s *ChatService) pushReadReceipt(convID, peerID uuid.UUID) {
	conn, ok := s.bridge.FindActiveConnection(peerID)
	if !ok {
		return
	}

	payload := ReadReceiptPayload{ConversationID: convID, Status: domain.StatusRead}
	if conn.Viewing == convID {
		s.bridge.Notify(peerID, EventReadChat, payload)
	}
	s.bridge.Notify(peerID, EventReadMain, payload)
}

func (s *ChatService) participantConversation(ctx context.Context, userID, convID uuid.UUID) (*domain.Conversation, error) {
	conv, err := s.convRepo.GetByID(ctx, convID)
	if err != nil {
		return nil, err
	}
	// A conversation the requester does not belong to looks absent to them.
	if conv == nil || !conv.HasParticipant(userID) {
		return nil, ErrConversationNotFound
	}
	return conv, nil
}

func (s *ChatService) mapRepoErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrConversationNotFound):
		return ErrConversationNotFound
	case errors.Is(err, repository.ErrWatermarkNotFound):
		return ErrWatermarkNotFound
	default:
		return err
	}
}

func canonicalPair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if a.String() > b.String() {
		return b, a
	}
	return a, b
}
