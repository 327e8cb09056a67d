package service

import (
	"context"
	"fmt"
	"strings"

	"confide/internal/events"
	"confide/internal/models"
	"confide/internal/observability"
	"confide/internal/repository"
	"confide/internal/store"

	"go.opentelemetry.io/otel/attribute"
)

const (
	maxMessageLength   = 4000
	defaultMessagePage = 50
)

// ChatService handles conversations and direct messages. Every write
// checkpoints the store, and message activity is announced on the event bus
// so other execution contexts hear about it ahead of their next poll.
type ChatService struct {
	chats       repository.ChatRepository
	users       repository.UserRepository
	checkpoints Checkpointer
	announcer   Announcer
}

// NewChatService creates a new chat service. Nil checkpointer or announcer
// arguments disable the corresponding side effect.
func NewChatService(chats repository.ChatRepository, users repository.UserRepository, cp Checkpointer, an Announcer) *ChatService {
	if cp == nil {
		cp = noopCheckpointer{}
	}
	if an == nil {
		an = noopAnnouncer{}
	}
	return &ChatService{chats: chats, users: users, checkpoints: cp, announcer: an}
}

// canonicalPair orders two participant IDs so (A,B) and (B,A) address the
// same conversation row.
func canonicalPair(a, b uint) (uint, uint) {
	if a < b {
		return a, b
	}
	return b, a
}

// GetOrCreateConversation returns the unique conversation between two users,
// creating it on first contact. Concurrent first contacts from both sides
// collapse onto the same row via the canonical-pair unique constraint.
func (s *ChatService) GetOrCreateConversation(ctx context.Context, userID, otherID uint) (*models.Conversation, error) {
	if userID == otherID {
		return nil, models.NewValidationError("cannot start a conversation with yourself")
	}
	other, err := s.users.GetByID(ctx, otherID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if other == nil {
		return nil, models.NewNotFoundError("user", otherID)
	}

	p1, p2 := canonicalPair(userID, otherID)
	conv, err := s.chats.GetConversationByParticipants(ctx, p1, p2)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if conv != nil {
		return conv, nil
	}

	conv = &models.Conversation{Participant1ID: p1, Participant2ID: p2}
	err = s.chats.CreateConversation(ctx, conv)
	if store.IsUniqueViolation(err) {
		// Lost the race to the other participant; their row wins.
		conv, err = s.chats.GetConversationByParticipants(ctx, p1, p2)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		if conv == nil {
			return nil, models.NewInternalError(fmt.Errorf("conversation (%d,%d) vanished after unique violation", p1, p2))
		}
		return conv, nil
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	s.checkpoints.Checkpoint(ctx)
	return conv, nil
}

// SendMessage appends a message to the conversation, unread for the
// recipient, and announces it to all contexts.
func (s *ChatService) SendMessage(ctx context.Context, senderID, conversationID uint, content string) (*models.Message, error) {
	span, ctx := observability.NewSpan(ctx, "chat.send_message")
	defer span.End()
	span.AddAttributes(attribute.Int("conversation.id", int(conversationID)))

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, models.NewValidationError("message content is required")
	}
	if len(content) > maxMessageLength {
		return nil, models.NewValidationError(fmt.Sprintf("message must be at most %d characters", maxMessageLength))
	}
	conv, err := s.requireParticipant(ctx, conversationID, senderID)
	if err != nil {
		return nil, err
	}

	msg := &models.Message{
		ConversationID: conv.ID,
		SenderID:       senderID,
		Content:        content,
		IsRead:         false,
	}
	if err := s.chats.CreateMessage(ctx, msg); err != nil {
		span.SetError(err)
		return nil, models.NewInternalError(err)
	}
	span.AddAttributes(attribute.Int("message.id", int(msg.ID)))
	s.checkpoints.Checkpoint(ctx)
	s.announcer.Emit(ctx, events.Event{
		Type: events.TypeNewMessage,
		Data: events.EventData{
			ConversationID: conv.ID,
			MessageID:      msg.ID,
			SenderID:       senderID,
			Content:        content,
		},
	})
	return msg, nil
}

// GetConversationMessages returns a chronological page of messages.
// Only participants may read a conversation.
func (s *ChatService) GetConversationMessages(ctx context.Context, userID, conversationID uint, limit, offset int) ([]models.Message, error) {
	if _, err := s.requireParticipant(ctx, conversationID, userID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > defaultMessagePage {
		limit = defaultMessagePage
	}
	if offset < 0 {
		offset = 0
	}
	msgs, err := s.chats.ListMessages(ctx, conversationID, limit, offset)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return msgs, nil
}

// MarkMessagesAsRead marks the other participant's messages as read and
// returns how many changed. The read event is announced only when at least
// one message actually flipped, so redundant calls stay silent.
func (s *ChatService) MarkMessagesAsRead(ctx context.Context, userID, conversationID uint) (int64, error) {
	if _, err := s.requireParticipant(ctx, conversationID, userID); err != nil {
		return 0, err
	}
	changed, err := s.chats.MarkMessagesRead(ctx, conversationID, userID)
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	if changed > 0 {
		s.checkpoints.Checkpoint(ctx)
		s.announcer.Emit(ctx, events.Event{
			Type: events.TypeMessagesRead,
			Data: events.EventData{
				ConversationID: conversationID,
				SenderID:       userID,
			},
		})
	}
	return changed, nil
}

// GetUnreadMessageCount returns the user's total unread messages across all
// conversations. The count is always derived from message rows, never cached.
func (s *ChatService) GetUnreadMessageCount(ctx context.Context, userID uint) (int64, error) {
	count, err := s.chats.UnreadCount(ctx, userID)
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

// GetUserConversations lists the user's conversations, most recently active
// first, each carrying its last-message summary and unread count.
func (s *ChatService) GetUserConversations(ctx context.Context, userID uint) ([]models.Conversation, error) {
	convs, err := s.chats.ListConversations(ctx, userID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return convs, nil
}

// GetConversation fetches a conversation the user participates in.
func (s *ChatService) GetConversation(ctx context.Context, userID, conversationID uint) (*models.Conversation, error) {
	return s.requireParticipant(ctx, conversationID, userID)
}

func (s *ChatService) requireParticipant(ctx context.Context, conversationID, userID uint) (*models.Conversation, error) {
	conv, err := s.chats.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if conv == nil {
		return nil, models.NewNotFoundError("conversation", conversationID)
	}
	if !conv.HasParticipant(userID) {
		return nil, models.NewUnauthorizedError("not a participant in this conversation")
	}
	return conv, nil
}
