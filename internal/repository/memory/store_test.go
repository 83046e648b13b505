package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stipe44/murmur/internal/domain"
	"github.com/stipe44/murmur/internal/repository"
)

func seedConversation(t *testing.T, store *Store) (*domain.Conversation, uuid.UUID, uuid.UUID) {
	t.Helper()
	ctx := context.Background()

	alice := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	bob := uuid.MustParse("00000000-0000-0000-0000-000000000002")
	conv := &domain.Conversation{
		ID:        uuid.New(),
		User1ID:   alice,
		User2ID:   bob,
		CreatedAt: time.Now(),
	}
	if err := store.Conversations().Create(ctx, conv); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return conv, alice, bob
}

func TestConcurrentAppendsSerialize(t *testing.T) {
	store := NewStore()
	conv, alice, bob := seedConversation(t, store)
	ctx := context.Background()

	const n = 40
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := store.Messages().Append(ctx, conv.ID, alice, "x", nil, i%3 == 0); err != nil {
				t.Errorf("Append: %v", err)
			}
		}(i)
	}
	wg.Wait()

	win, err := store.Messages().Window(ctx, conv.ID, alice, n)
	if err != nil {
		t.Fatalf("Window: %v", err)
	}
	if win.TotalMessages != n || len(win.Messages) != n {
		t.Fatalf("log holds %d/%d messages, want %d", win.TotalMessages, len(win.Messages), n)
	}

	seqs := make(map[int]bool)
	for _, m := range win.Messages {
		if seqs[m.Seq] {
			t.Fatalf("duplicate seq %d", m.Seq)
		}
		seqs[m.Seq] = true
	}

	row, err := store.Receipts().Get(ctx, conv.ID, bob)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if row.TotalCount != n {
		t.Fatalf("recipient total = %d, want %d", row.TotalCount, n)
	}
	if row.SingleCount < 0 || row.SingleCount > row.TotalCount {
		t.Fatalf("single = %d out of range [0, %d]", row.SingleCount, row.TotalCount)
	}
}

func TestResetReadNeverLosesAppends(t *testing.T) {
	store := NewStore()
	conv, alice, bob := seedConversation(t, store)
	ctx := context.Background()

	// An appender and a reader race on bob's ledger row. Every increment must
	// land exactly once: either a reset captures it in its returned counters or
	// it survives into the final row.
	const appends = 500
	var captured int

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < appends; i++ {
			if _, err := store.Messages().Append(ctx, conv.ID, alice, "x", nil, i%2 == 0); err != nil {
				t.Errorf("Append: %v", err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < appends; i++ {
			total, single, err := store.Receipts().ResetRead(ctx, conv.ID, bob)
			if err != nil {
				t.Errorf("ResetRead: %v", err)
				return
			}
			if single < 0 || single > total {
				t.Errorf("captured single = %d out of range [0, %d]", single, total)
				return
			}
			captured += total
		}
	}()
	wg.Wait()

	remaining, _, err := store.Receipts().ResetRead(ctx, conv.ID, bob)
	if err != nil {
		t.Fatalf("ResetRead: %v", err)
	}
	if captured+remaining != appends {
		t.Fatalf("captured %d + remaining %d = %d, want %d", captured, remaining, captured+remaining, appends)
	}
}

func TestCreateDuplicatePair(t *testing.T) {
	store := NewStore()
	conv, _, _ := seedConversation(t, store)

	dup := &domain.Conversation{
		ID:        uuid.New(),
		User1ID:   conv.User1ID,
		User2ID:   conv.User2ID,
		CreatedAt: time.Now(),
	}
	if err := store.Conversations().Create(context.Background(), dup); err != repository.ErrConversationExists {
		t.Fatalf("err = %v, want ErrConversationExists", err)
	}
}

func TestResetReadReturnsPreviousCounters(t *testing.T) {
	store := NewStore()
	conv, alice, bob := seedConversation(t, store)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := store.Messages().Append(ctx, conv.ID, alice, "x", nil, i == 0); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	total, single, err := store.Receipts().ResetRead(ctx, conv.ID, bob)
	if err != nil {
		t.Fatalf("ResetRead: %v", err)
	}
	if total != 3 || single != 2 {
		t.Fatalf("prev counters = (%d, %d), want (3, 2)", total, single)
	}

	total, single, err = store.Receipts().ResetRead(ctx, conv.ID, bob)
	if err != nil {
		t.Fatalf("ResetRead: %v", err)
	}
	if total != 0 || single != 0 {
		t.Fatalf("second reset counters = (%d, %d), want (0, 0)", total, single)
	}

	row, _ := store.Receipts().Get(ctx, conv.ID, bob)
	if row.Status != domain.StatusRead {
		t.Fatalf("status = %q, want read", row.Status)
	}
}

func TestWindowBeforeUnknownWatermark(t *testing.T) {
	store := NewStore()
	conv, alice, _ := seedConversation(t, store)
	ctx := context.Background()

	if _, err := store.Messages().Append(ctx, conv.ID, alice, "x", nil, false); err != nil {
		t.Fatalf("Append: %v", err)
	}

	_, err := store.Messages().WindowBefore(ctx, conv.ID, alice, uuid.New(), 20)
	if err != repository.ErrWatermarkNotFound {
		t.Fatalf("err = %v, want ErrWatermarkNotFound", err)
	}
}
