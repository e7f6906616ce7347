package services

import (
	"context"
	"strings"
	"time"

	"civic-realtime/internal/apperror"
	"civic-realtime/internal/auth"
	"civic-realtime/internal/authz"
	"civic-realtime/internal/models"
	"civic-realtime/internal/repository"
	"civic-realtime/internal/websocket"
)

const maxAttachments = 10

type MessageDeleted struct {
	MessageID      string `json:"messageId"`
	ConversationID string `json:"conversationId"`
}

// MessageService handles direct and group conversation messages. Every
// operation re-reads the participant list before acting.
type MessageService struct {
	conversations repository.ConversationRepository
	authz         *authz.Authorizer
	fanout        websocket.Fanout
}

func NewMessageService(conversations repository.ConversationRepository, authorizer *authz.Authorizer, fanout websocket.Fanout) *MessageService {
	return &MessageService{conversations: conversations, authz: authorizer, fanout: fanout}
}

func (s *MessageService) Send(ctx context.Context, identity auth.Identity, conversationType, conversationID, text string, attachments []string) (*models.Message, error) {
	if conversationType != models.ConversationDirect && conversationType != models.ConversationGroup {
		return nil, apperror.Invalid("invalid conversationType")
	}
	text = strings.TrimSpace(text)
	if text == "" && len(attachments) == 0 {
		return nil, apperror.Invalid("message is empty")
	}
	if len(attachments) > maxAttachments {
		return nil, apperror.Invalidf("at most %d attachments allowed", maxAttachments)
	}
	if err := s.authz.Authorize(ctx, identity, authz.Conversation(conversationType, conversationID), authz.ActionParticipate); err != nil {
		return nil, err
	}

	msg := &models.Message{
		ConversationID: conversationID,
		SenderID:       identity.UserID,
		Text:           text,
		Attachments:    attachments,
	}
	if err := s.conversations.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}
	return msg, s.broadcast(ctx, websocket.EventNewMessage, msg, conversationID)
}

func (s *MessageService) Edit(ctx context.Context, identity auth.Identity, messageID, text string) (*models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperror.Invalid("text is required")
	}
	msg, err := s.ownMessage(ctx, identity, messageID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.conversations.UpdateMessageText(ctx, msg.ID, text, now); err != nil {
		return nil, err
	}
	msg.Text, msg.EditedAt = text, &now
	return msg, s.broadcast(ctx, websocket.EventMessageEdited, msg, msg.ConversationID)
}

func (s *MessageService) Delete(ctx context.Context, identity auth.Identity, messageID string) error {
	msg, err := s.ownMessage(ctx, identity, messageID)
	if err != nil {
		return err
	}
	if err := s.conversations.DeleteMessage(ctx, msg.ID); err != nil {
		return err
	}
	return s.broadcast(ctx, websocket.EventMessageDeleted, MessageDeleted{MessageID: msg.ID, ConversationID: msg.ConversationID}, msg.ConversationID)
}

// ownMessage loads a message the caller sent in a conversation they still
// participate in.
func (s *MessageService) ownMessage(ctx context.Context, identity auth.Identity, messageID string) (*models.Message, error) {
	if !models.IsUUID(messageID) {
		return nil, apperror.Invalid("invalid messageId")
	}
	msg, err := s.conversations.FindMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(ctx, identity, authz.Conversation("", msg.ConversationID), authz.ActionParticipate); err != nil {
		return nil, err
	}
	if msg.SenderID != identity.UserID {
		return nil, apperror.Forbidden("Only the sender can change this message")
	}
	return msg, nil
}

// broadcast reaches the conversation room and every participant's personal
// room; a connection in both receives the event once.
func (s *MessageService) broadcast(ctx context.Context, name websocket.EventName, payload any, conversationID string) error {
	participants, err := s.conversations.ParticipantsOf(ctx, "", conversationID)
	if err != nil {
		return err
	}
	s.fanout.Dispatch(ctx, websocket.Event{
		Name:    name,
		Payload: payload,
		Audience: websocket.Union(
			websocket.ToRoom(websocket.ConversationRoom(conversationID)),
			websocket.ToUsers(participants...),
		),
	})
	return nil
}
