// ABOUTME: Tests for the in-memory transcript
// ABOUTME: Covers ordering, unique ids, monotonic timestamps, concurrency, clearing, and journaling

package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/mate-gateway/internal/store"
)

func TestStore_RoundTrip(t *testing.T) {
	s := NewStore(nil, nil)

	const n = 25
	for i := range n {
		s.Append(Draft{Role: store.RoleUser, Content: fmt.Sprintf("message %d", i)})
	}

	msgs := s.Messages()
	require.Len(t, msgs, n)
	assert.Equal(t, n, s.Len())

	ids := make(map[string]struct{}, n)
	for i, m := range msgs {
		assert.Equal(t, fmt.Sprintf("message %d", i), m.Content)
		assert.Equal(t, store.MessageTypeText, m.Type)
		ids[m.ID] = struct{}{}
		if i > 0 {
			assert.False(t, m.Timestamp.Before(msgs[i-1].Timestamp))
		}
	}
	assert.Len(t, ids, n, "ids are unique")
}

func TestStore_TimestampsNeverGoBackwards(t *testing.T) {
	s := NewStore(nil, nil)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := []time.Time{base, base.Add(-time.Hour), base.Add(time.Second), base.Add(-time.Minute)}
	i := 0
	s.now = func() time.Time {
		ts := clock[i]
		i++
		return ts
	}

	var got []time.Time
	for range clock {
		got = append(got, s.Append(Draft{Role: store.RoleUser, Content: "x"}).Timestamp)
	}

	assert.Equal(t, []time.Time{base, base, base.Add(time.Second), base.Add(time.Second)}, got)
}

func TestStore_ConcurrentAppendsTotallyOrdered(t *testing.T) {
	s := NewStore(nil, nil)

	var mu sync.Mutex
	var delivered []string
	s.Subscribe(func(m store.Message) {
		mu.Lock()
		delivered = append(delivered, m.ID)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 50 {
				s.Append(Draft{Role: store.RoleUser, Content: fmt.Sprintf("%d-%d", g, i)})
			}
		}()
	}
	wg.Wait()

	msgs := s.Messages()
	require.Len(t, msgs, 400)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, delivered, 400)
	for i, m := range msgs {
		assert.Equal(t, m.ID, delivered[i], "delivery order matches store order")
		if i > 0 {
			assert.False(t, m.Timestamp.Before(msgs[i-1].Timestamp))
		}
	}
}

func TestStore_MessagesAreCopies(t *testing.T) {
	s := NewStore(nil, nil)
	related := []string{"a"}
	s.Append(Draft{Role: store.RoleAssistant, Content: "x", RelatedQuestions: related})
	related[0] = "changed"

	msgs := s.Messages()
	msgs[0].RelatedQuestions[0] = "mutated"

	assert.Equal(t, []string{"a"}, s.Messages()[0].RelatedQuestions)
}

func TestStore_Clear(t *testing.T) {
	s := NewStore(nil, nil)
	last := s.Append(Draft{Role: store.RoleUser, Content: "x"})

	s.Clear()
	assert.Zero(t, s.Len())

	s.now = func() time.Time { return last.Timestamp.Add(-time.Hour) }
	next := s.Append(Draft{Role: store.RoleUser, Content: "y"})
	assert.Equal(t, last.Timestamp, next.Timestamp)
}

func TestStore_UnsubscribeStopsDelivery(t *testing.T) {
	s := NewStore(nil, nil)
	count := 0
	unsubscribe := s.Subscribe(func(store.Message) { count++ })

	s.Append(Draft{Role: store.RoleUser, Content: "one"})
	unsubscribe()
	s.Append(Draft{Role: store.RoleUser, Content: "two"})

	assert.Equal(t, 1, count)
}

func TestStore_StreamDelivers(t *testing.T) {
	s := NewStore(nil, nil)
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	ch := s.Stream(ctx)
	msg := s.Append(Draft{Role: store.RoleUser, Content: "streamed"})

	select {
	case got := <-ch:
		assert.Equal(t, msg.ID, got.ID)
	case <-time.After(time.Second):
		t.Fatal("stream did not deliver")
	}
}

func TestStore_JournalMirror(t *testing.T) {
	journal, err := store.NewSQLiteStore(store.MemoryPath)
	require.NoError(t, err)
	defer journal.Close()

	s := NewStore(journal, nil)
	s.Append(Draft{Role: store.RoleUser, Content: "q"})
	s.Append(Draft{Role: store.RoleAssistant, Content: "a", RelatedQuestions: []string{"more"}})

	saved, err := journal.ListMessages(t.Context(), 0)
	require.NoError(t, err)
	require.Len(t, saved, 2)
	assert.Equal(t, s.Messages()[1].ID, saved[1].ID)
	assert.Equal(t, []string{"more"}, saved[1].RelatedQuestions)

	s.Clear()
	saved, err = journal.ListMessages(t.Context(), 0)
	require.NoError(t, err)
	assert.Empty(t, saved)
}

type failingJournal struct{}

func (failingJournal) SaveMessage(context.Context, *store.Message) error {
	return errors.New("disk full")
}

func (failingJournal) ClearMessages(context.Context) error {
	return errors.New("disk full")
}

func TestStore_JournalFailureDoesNotFailAppend(t *testing.T) {
	s := NewStore(failingJournal{}, nil)

	msg := s.Append(Draft{Role: store.RoleUser, Content: "kept"})
	s.Clear()
	s.Append(Draft{Role: store.RoleUser, Content: "again"})

	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, 1, s.Len())
}
