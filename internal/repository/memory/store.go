// Package memory implements the repository interfaces on in-process maps.
// It backs the service tests and the STORE=memory development mode. The
// concurrency contract matches the postgres implementation: one lock per
// conversation serializes appends and receipt resets, while operations on
// different conversations proceed independently.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stipe44/murmur/internal/domain"
	"github.com/stipe44/murmur/internal/repository"
)

type pairKey struct {
	user1, user2 uuid.UUID
}

type conversationState struct {
	mu       sync.Mutex
	conv     domain.Conversation
	messages []domain.Message
	status   map[uuid.UUID]*domain.ParticipantStatus
}

type Store struct {
	mu         sync.RWMutex
	users      map[uuid.UUID]*domain.User
	byEmail    map[string]uuid.UUID
	byUsername map[string]uuid.UUID
	convs      map[uuid.UUID]*conversationState
	byPair     map[pairKey]uuid.UUID
}

func NewStore() *Store {
	return &Store{
		users:      make(map[uuid.UUID]*domain.User),
		byEmail:    make(map[string]uuid.UUID),
		byUsername: make(map[string]uuid.UUID),
		convs:      make(map[uuid.UUID]*conversationState),
		byPair:     make(map[pairKey]uuid.UUID),
	}
}

func (s *Store) Users() repository.UserRepository                 { return userRepo{s} }
func (s *Store) Conversations() repository.ConversationRepository { return conversationRepo{s} }
func (s *Store) Messages() repository.MessageRepository           { return messageRepo{s} }
func (s *Store) Receipts() repository.ReceiptRepository           { return receiptRepo{s} }

// --- users ---

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u := *user
	r.s.users[u.ID] = &u
	r.s.byEmail[strings.ToLower(u.Email)] = u.ID
	r.s.byUsername[strings.ToLower(u.Username)] = u.ID
	return nil
}

func (r userRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if u, ok := r.s.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, nil
}

func (r userRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	id, ok := r.s.byEmail[strings.ToLower(email)]
	r.s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}

func (r userRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	r.s.mu.RLock()
	id, ok := r.s.byUsername[strings.ToLower(username)]
	r.s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}

func (r userRepo) Search(_ context.Context, term string, exclude uuid.UUID, limit int) ([]domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	term = strings.ToLower(term)
	var users []domain.User
	for _, u := range r.s.users {
		if u.ID == exclude {
			continue
		}
		if strings.Contains(strings.ToLower(u.Username), term) {
			users = append(users, *u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	if len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

func (r userRepo) SetAvatar(_ context.Context, id uuid.UUID, avatarURL *string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u, ok := r.s.users[id]; ok {
		u.AvatarURL = avatarURL
		u.UpdatedAt = time.Now()
	}
	return nil
}

func (r userRepo) TouchLastSeen(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u, ok := r.s.users[id]; ok {
		u.LastSeen = time.Now()
	}
	return nil
}

// --- conversations ---

type conversationRepo struct{ s *Store }

func (r conversationRepo) Create(_ context.Context, conv *domain.Conversation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := pairKey{conv.User1ID, conv.User2ID}
	if _, exists := r.s.byPair[key]; exists {
		return repository.ErrConversationExists
	}

	state := &conversationState{
		conv:   *conv,
		status: make(map[uuid.UUID]*domain.ParticipantStatus),
	}
	for _, userID := range []uuid.UUID{conv.User1ID, conv.User2ID} {
		state.status[userID] = &domain.ParticipantStatus{
			ConversationID: conv.ID,
			UserID:         userID,
			Status:         domain.StatusRead,
		}
	}
	r.s.convs[conv.ID] = state
	r.s.byPair[key] = conv.ID
	return nil
}

func (r conversationRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Conversation, error) {
	state := r.s.conversation(id)
	if state == nil {
		return nil, nil
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	conv := state.conv
	return &conv, nil
}

func (r conversationRepo) GetByUsers(ctx context.Context, user1ID, user2ID uuid.UUID) (*domain.Conversation, error) {
	r.s.mu.RLock()
	id, ok := r.s.byPair[pairKey{user1ID, user2ID}]
	r.s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}

func (r conversationRepo) ListSummaries(_ context.Context, userID uuid.UUID) ([]domain.ConversationSummary, error) {
	r.s.mu.RLock()
	var states []*conversationState
	for _, state := range r.s.convs {
		if state.conv.HasParticipant(userID) {
			states = append(states, state)
		}
	}
	r.s.mu.RUnlock()

	var summaries []domain.ConversationSummary
	for _, state := range states {
		state.mu.Lock()
		peerID := state.conv.Other(userID)
		summary := domain.ConversationSummary{
			ID:     state.conv.ID,
			Unread: state.status[userID].TotalCount,
		}
		if n := len(state.messages); n > 0 {
			last := state.messages[n-1]
			preview := &domain.MessagePreview{
				Content: last.Body,
				Image:   last.ImageURL,
				Date:    last.CreatedAt,
			}
			if last.SenderID == userID {
				status := state.status[peerID].Status
				preview.Status = &status
			}
			summary.LastMessage = preview
		}
		state.mu.Unlock()

		r.s.mu.RLock()
		if peer, ok := r.s.users[peerID]; ok {
			summary.Username = peer.Username
			summary.Name = peer.Name
			summary.AvatarURL = peer.AvatarURL
			summary.About = peer.About
		}
		r.s.mu.RUnlock()

		summaries = append(summaries, summary)
	}

	sort.Slice(summaries, func(i, j int) bool {
		di, dj := time.Time{}, time.Time{}
		if summaries[i].LastMessage != nil {
			di = summaries[i].LastMessage.Date
		}
		if summaries[j].LastMessage != nil {
			dj = summaries[j].LastMessage.Date
		}
		return di.After(dj)
	})
	return summaries, nil
}

// --- messages ---

type messageRepo struct{ s *Store }

func (r messageRepo) Append(_ context.Context, convID, senderID uuid.UUID, body string, imageURL *string, delivered bool) (*domain.Message, error) {
	state := r.s.conversation(convID)
	if state == nil {
		return nil, repository.ErrConversationNotFound
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	now := time.Now()
	msg := domain.Message{
		ID:             uuid.New(),
		ConversationID: convID,
		SenderID:       senderID,
		Seq:            state.conv.LastSeq + 1,
		Body:           body,
		ImageURL:       imageURL,
		CreatedAt:      now,
	}
	state.messages = append(state.messages, msg)
	state.conv.LastSeq = msg.Seq
	state.conv.LastMessageAt = &now

	recipient := state.status[state.conv.Other(senderID)]
	recipient.TotalCount++
	if !delivered {
		recipient.SingleCount++
	}
	if recipient.SingleCount > 0 {
		recipient.Status = domain.StatusSent
	} else {
		recipient.Status = domain.StatusDouble
	}

	copied := msg
	return &copied, nil
}

func (r messageRepo) Window(_ context.Context, convID, requesterID uuid.UUID, minLast int) (*domain.Window, error) {
	state := r.s.conversation(convID)
	if state == nil {
		return nil, repository.ErrConversationNotFound
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	win, err := state.window(requesterID)
	if err != nil {
		return nil, err
	}

	lastN := minLast
	if win.Mine.TotalCount > lastN {
		lastN = win.Mine.TotalCount
	}
	start := len(state.messages) - lastN
	if start < 0 {
		start = 0
	}
	win.Messages = append([]domain.Message(nil), state.messages[start:]...)
	return win, nil
}

func (r messageRepo) WindowBefore(_ context.Context, convID, requesterID, watermark uuid.UUID, pageSize int) (*domain.Window, error) {
	state := r.s.conversation(convID)
	if state == nil {
		return nil, repository.ErrConversationNotFound
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	win, err := state.window(requesterID)
	if err != nil {
		return nil, err
	}

	index := -1
	for i, m := range state.messages {
		if m.ID == watermark {
			index = i
			break
		}
	}
	if index < 0 {
		return nil, repository.ErrWatermarkNotFound
	}

	start := index - pageSize
	if start < 0 {
		start = 0
	}
	win.Messages = append([]domain.Message(nil), state.messages[start:index]...)
	win.NewerCount = len(state.messages) - index
	return win, nil
}

func (r messageRepo) Last(_ context.Context, convID uuid.UUID) (*domain.Message, error) {
	state := r.s.conversation(convID)
	if state == nil {
		return nil, repository.ErrConversationNotFound
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	if len(state.messages) == 0 {
		return nil, nil
	}
	last := state.messages[len(state.messages)-1]
	return &last, nil
}

// --- receipts ---

type receiptRepo struct{ s *Store }

func (r receiptRepo) Get(_ context.Context, convID, userID uuid.UUID) (*domain.ParticipantStatus, error) {
	state := r.s.conversation(convID)
	if state == nil {
		return nil, nil
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	ps, ok := state.status[userID]
	if !ok {
		return nil, nil
	}
	copied := *ps
	return &copied, nil
}

func (r receiptRepo) ResetRead(_ context.Context, convID, userID uuid.UUID) (int, int, error) {
	state := r.s.conversation(convID)
	if state == nil {
		return 0, 0, repository.ErrConversationNotFound
	}
	state.mu.Lock()
	defer state.mu.Unlock()

	ps, ok := state.status[userID]
	if !ok {
		return 0, 0, repository.ErrConversationNotFound
	}
	prevTotal, prevSingle := ps.TotalCount, ps.SingleCount
	ps.TotalCount = 0
	ps.SingleCount = 0
	ps.Status = domain.StatusRead
	return prevTotal, prevSingle, nil
}

// --- helpers ---

func (s *Store) conversation(id uuid.UUID) *conversationState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.convs[id]
}

// window builds the snapshot skeleton: log length and both ledger rows.
// Callers hold state.mu.
func (state *conversationState) window(requesterID uuid.UUID) (*domain.Window, error) {
	mine, ok := state.status[requesterID]
	if !ok {
		return nil, repository.ErrConversationNotFound
	}
	win := &domain.Window{TotalMessages: len(state.messages), Mine: *mine}
	for userID, ps := range state.status {
		if userID != requesterID {
			win.Other = *ps
		}
	}
	return win, nil
}
