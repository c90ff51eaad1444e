// ABOUTME: Plain-chat flow that records each question and answer in the transcript
// ABOUTME: The user message is always appended before the AI call; the reply follows once it resolves

package conversation

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/2389/mate-gateway/internal/ai"
	"github.com/2389/mate-gateway/internal/store"
)

// Content appended for the learner's side of an image question.
const imagePrompt = "请帮我解答这道题"

// Apologies appended when the caller gives up before an answer arrives.
const (
	chatApology  = "抱歉，网络似乎开小差了。"
	imageApology = "抱歉，图片解析失败，请重试。"
)

// ErrEmptyContent is returned for blank chat text or image references.
var ErrEmptyContent = errors.New("content is required")

// Asker resolves AI answers. *ai.Gateway satisfies it.
type Asker interface {
	Chat(ctx context.Context, message string) ai.Response
	AnalyzeImage(ctx context.Context, imageURI string) ai.Response
}

// Exchange is one question and its reply as stored in the transcript.
type Exchange struct {
	Request  store.Message `json:"request"`
	Reply    store.Message `json:"reply"`
	Analysis string        `json:"analysis,omitempty"`
	Fallback bool          `json:"fallback"`
}

// Service runs chat and image questions against the AI gateway.
type Service struct {
	transcript *Store
	asker      Asker
	logger     *slog.Logger
}

// NewService creates a Service appending to transcript.
func NewService(transcript *Store, asker Asker, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		transcript: transcript,
		asker:      asker,
		logger:     logger.With("component", "conversation"),
	}
}

// Chat records text as a user message, asks the gateway, and records the reply.
func (s *Service) Chat(ctx context.Context, text string) (*Exchange, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyContent
	}

	req := s.transcript.Append(Draft{
		Role:    store.RoleUser,
		Content: text,
		Type:    store.MessageTypeText,
	})

	resp := s.asker.Chat(ctx, text)
	return s.reply(ctx, req, resp, chatApology), nil
}

// AnalyzeImage records an image question and the gateway's explanation.
func (s *Service) AnalyzeImage(ctx context.Context, imageURI string) (*Exchange, error) {
	imageURI = strings.TrimSpace(imageURI)
	if imageURI == "" {
		return nil, ErrEmptyContent
	}

	req := s.transcript.Append(Draft{
		Role:     store.RoleUser,
		Content:  imagePrompt,
		Type:     store.MessageTypeImage,
		ImageURL: imageURI,
	})

	resp := s.asker.AnalyzeImage(ctx, imageURI)
	return s.reply(ctx, req, resp, imageApology), nil
}

func (s *Service) reply(ctx context.Context, req store.Message, resp ai.Response, apology string) *Exchange {
	if resp.Fallback() && ctx.Err() != nil {
		s.logger.Warn("request cancelled before an answer arrived",
			"message_id", req.ID,
			"error", ctx.Err())
		reply := s.transcript.Append(Draft{
			Role:    store.RoleAssistant,
			Content: apology,
			Type:    store.MessageTypeText,
		})
		return &Exchange{Request: req, Reply: reply, Fallback: true}
	}

	reply := s.transcript.Append(Draft{
		Role:             store.RoleAssistant,
		Content:          resp.Text,
		Type:             store.MessageTypeText,
		RelatedQuestions: resp.RelatedQuestions,
	})
	s.logger.Debug("exchange recorded",
		"request_id", req.ID,
		"reply_id", reply.ID,
		"fallback", resp.Fallback())

	return &Exchange{
		Request:  req,
		Reply:    reply,
		Analysis: resp.Analysis,
		Fallback: resp.Fallback(),
	}
}
