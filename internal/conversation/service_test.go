// ABOUTME: Tests for the plain-chat flow
// ABOUTME: Covers message pairs for chat and image questions, fallback content, and cancellation apologies

package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/mate-gateway/internal/ai"
	"github.com/2389/mate-gateway/internal/store"
)

func offlineGateway() *ai.Gateway {
	return ai.New(ai.Config{
		ChatLatency:   time.Millisecond,
		ImageLatency:  time.Millisecond,
		SpeechLatency: time.Millisecond,
	})
}

func TestService_ChatRecordsExchange(t *testing.T) {
	transcript := NewStore(nil, nil)
	svc := NewService(transcript, offlineGateway(), nil)

	ex, err := svc.Chat(t.Context(), "  如何求二次函数的对称轴？ ")
	require.NoError(t, err)

	assert.Equal(t, store.RoleUser, ex.Request.Role)
	assert.Equal(t, "如何求二次函数的对称轴？", ex.Request.Content)
	assert.Equal(t, store.RoleAssistant, ex.Reply.Role)
	assert.Contains(t, ex.Reply.Content, "如何求二次函数的对称轴？")
	assert.Equal(t, []string{"能举个例子吗？", "这个概念在物理中有什么应用？"}, ex.Reply.RelatedQuestions)
	assert.True(t, ex.Fallback)

	msgs := transcript.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, ex.Request.ID, msgs[0].ID)
	assert.Equal(t, ex.Reply.ID, msgs[1].ID)
}

func TestService_AnalyzeImageRecordsExchange(t *testing.T) {
	transcript := NewStore(nil, nil)
	svc := NewService(transcript, offlineGateway(), nil)

	ex, err := svc.AnalyzeImage(t.Context(), "file:///photos/q1.jpg")
	require.NoError(t, err)

	assert.Equal(t, imagePrompt, ex.Request.Content)
	assert.Equal(t, store.MessageTypeImage, ex.Request.Type)
	assert.Equal(t, "file:///photos/q1.jpg", ex.Request.ImageURL)
	assert.Len(t, ex.Reply.RelatedQuestions, 3)
	assert.NotEmpty(t, ex.Analysis)
	assert.Equal(t, 2, transcript.Len())
}

func TestService_RejectsEmptyContent(t *testing.T) {
	transcript := NewStore(nil, nil)
	svc := NewService(transcript, offlineGateway(), nil)

	_, err := svc.Chat(t.Context(), "   ")
	assert.ErrorIs(t, err, ErrEmptyContent)
	_, err = svc.AnalyzeImage(t.Context(), "")
	assert.ErrorIs(t, err, ErrEmptyContent)
	assert.Zero(t, transcript.Len())
}

func TestService_CancelledChatAppendsApology(t *testing.T) {
	transcript := NewStore(nil, nil)
	svc := NewService(transcript, ai.New(ai.Config{ChatLatency: time.Hour, ImageLatency: time.Hour}), nil)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	ex, err := svc.Chat(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, chatApology, ex.Reply.Content)
	assert.Empty(t, ex.Reply.RelatedQuestions)

	ex, err = svc.AnalyzeImage(ctx, "file:///x.jpg")
	require.NoError(t, err)
	assert.Equal(t, imageApology, ex.Reply.Content)
	assert.Equal(t, 4, transcript.Len())
}

type stubAsker struct{ resp ai.Response }

func (s stubAsker) Chat(context.Context, string) ai.Response         { return s.resp }
func (s stubAsker) AnalyzeImage(context.Context, string) ai.Response { return s.resp }

func TestService_BackendAnswerRecordedVerbatim(t *testing.T) {
	transcript := NewStore(nil, nil)
	svc := NewService(transcript, stubAsker{resp: ai.Response{
		Text:             "对称轴 x = -b/2a",
		RelatedQuestions: []string{"顶点呢？"},
		Source:           ai.SourceBackend,
	}}, nil)

	ex, err := svc.Chat(t.Context(), "对称轴")
	require.NoError(t, err)

	assert.False(t, ex.Fallback)
	assert.Equal(t, "对称轴 x = -b/2a", ex.Reply.Content)
	assert.Equal(t, []string{"顶点呢？"}, ex.Reply.RelatedQuestions)
}
