package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/yukikurage/taskflow-api/internal/access"
	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/notify"
	"github.com/yukikurage/taskflow-api/internal/repository"
	"github.com/yukikurage/taskflow-api/internal/utils"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("message not found")
	ErrParticipantNotFound  = errors.New("participant not found")
	ErrParticipantsOutside  = errors.New("participants must be members of the organization")
	ErrEmptyMessage         = errors.New("message content is required")
	ErrEmptyReaction        = errors.New("reaction is required")
)

// ChatService persists conversations and messages and publishes realtime
// events once the write has succeeded.
type ChatService struct {
	repo     repository.ChatRepository
	members  repository.TeamMemberRepository
	notifier notify.Notifier
	log      *zap.Logger
}

func NewChatService(repo repository.ChatRepository, members repository.TeamMemberRepository, notifier notify.Notifier, log *zap.Logger) *ChatService {
	return &ChatService{repo: repo, members: members, notifier: notifier, log: log}
}

// ConversationInput describes a new conversation. The creator always takes
// part and is its admin.
type ConversationInput struct {
	Name           string
	ParticipantIDs []uint64
	IsGroupChat    bool
}

func (s *ChatService) ListConversations(p *access.Principal) ([]models.Conversation, error) {
	orgID, err := p.Tenant.OrganizationID()
	if err != nil {
		return nil, err
	}
	convs, err := s.repo.ListConversations(orgID, p.User.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return convs, nil
}

func (s *ChatService) GetConversation(p *access.Principal, id uint64) (*models.Conversation, error) {
	orgID, err := p.Tenant.OrganizationID()
	if err != nil {
		return nil, err
	}
	conv, err := s.repo.FindConversation(orgID, id, p.User.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("failed to find conversation: %w", err)
	}
	return conv, nil
}

func (s *ChatService) CreateConversation(p *access.Principal, input ConversationInput) (*models.Conversation, error) {
	orgID, err := p.Tenant.OrganizationID()
	if err != nil {
		return nil, err
	}

	ids := uniqueIDs(append([]uint64{p.User.ID}, input.ParticipantIDs...))
	if err := s.ensureInOrganization(orgID, ids); err != nil {
		return nil, err
	}

	conv := &models.Conversation{
		Name:           strings.TrimSpace(input.Name),
		OrganizationID: orgID,
		IsGroupChat:    input.IsGroupChat || len(ids) > 2,
	}
	if err := s.repo.CreateConversation(conv, ids, p.User.ID); err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	return s.GetConversation(p, conv.ID)
}

func (s *ChatService) AddParticipant(p *access.Principal, conversationID, userID uint64) (*models.Conversation, error) {
	conv, err := s.GetConversation(p, conversationID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureInOrganization(conv.OrganizationID, []uint64{userID}); err != nil {
		return nil, err
	}
	if err := s.repo.AddParticipant(&models.ConversationParticipant{ConversationID: conv.ID, UserID: userID}); err != nil {
		return nil, fmt.Errorf("failed to add participant: %w", err)
	}
	return s.GetConversation(p, conv.ID)
}

func (s *ChatService) RemoveParticipant(p *access.Principal, conversationID, userID uint64) error {
	conv, err := s.GetConversation(p, conversationID)
	if err != nil {
		return err
	}
	if err := s.repo.RemoveParticipant(conv.ID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrParticipantNotFound
		}
		return fmt.Errorf("failed to remove participant: %w", err)
	}
	return nil
}

func (s *ChatService) ensureInOrganization(orgID uint64, userIDs []uint64) error {
	n, err := s.members.CountUsersInOrganization(orgID, userIDs)
	if err != nil {
		return fmt.Errorf("failed to verify participants: %w", err)
	}
	if n != int64(len(userIDs)) {
		return ErrParticipantsOutside
	}
	return nil
}

func (s *ChatService) ListMessages(p *access.Principal, conversationID uint64, page utils.PaginationParams) ([]models.Message, int64, error) {
	conv, err := s.GetConversation(p, conversationID)
	if err != nil {
		return nil, 0, err
	}
	messages, total, err := s.repo.ListMessages(conv.ID, page)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, total, nil
}

// SendMessage stores a message and then announces it. A failed publish is
// logged; the message stays stored.
func (s *ChatService) SendMessage(ctx context.Context, p *access.Principal, conversationID uint64, content string, parentID *uint64) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}
	conv, err := s.GetConversation(p, conversationID)
	if err != nil {
		return nil, err
	}
	if parentID != nil {
		parent, err := s.findMessage(*parentID, p.User.ID)
		if err != nil {
			return nil, err
		}
		if parent.ConversationID != conv.ID {
			return nil, ErrMessageNotFound
		}
	}

	msg := &models.Message{ConversationID: conv.ID, SenderID: p.User.ID, Content: content, ParentID: parentID}
	if err := s.repo.CreateMessage(msg); err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}

	s.publish(ctx, notify.EventMessage, conv.ID, p.User.ID, msg)
	return msg, nil
}

func (s *ChatService) findMessage(id, userID uint64) (*models.Message, error) {
	msg, err := s.repo.FindMessage(id, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to find message: %w", err)
	}
	return msg, nil
}

func (s *ChatService) MarkRead(ctx context.Context, p *access.Principal, messageID uint64) error {
	msg, err := s.findMessage(messageID, p.User.ID)
	if err != nil {
		return err
	}
	if err := s.repo.MarkRead(msg.ID, p.User.ID); err != nil {
		return fmt.Errorf("failed to mark message read: %w", err)
	}
	s.publish(ctx, notify.EventRead, msg.ConversationID, p.User.ID, map[string]uint64{"message_id": msg.ID})
	return nil
}

// React toggles a reaction and reports whether it is now present.
func (s *ChatService) React(ctx context.Context, p *access.Principal, messageID uint64, reaction string) (bool, error) {
	reaction = strings.TrimSpace(reaction)
	if reaction == "" {
		return false, ErrEmptyReaction
	}
	msg, err := s.findMessage(messageID, p.User.ID)
	if err != nil {
		return false, err
	}
	added, err := s.repo.ToggleReaction(msg.ID, p.User.ID, reaction)
	if err != nil {
		return false, fmt.Errorf("failed to toggle reaction: %w", err)
	}
	s.publish(ctx, notify.EventReaction, msg.ConversationID, p.User.ID, map[string]interface{}{
		"message_id": msg.ID,
		"reaction":   reaction,
		"added":      added,
	})
	return added, nil
}

func (s *ChatService) Pin(ctx context.Context, p *access.Principal, messageID uint64) error {
	msg, err := s.findMessage(messageID, p.User.ID)
	if err != nil {
		return err
	}
	pin := &models.PinnedMessage{MessageID: msg.ID, ConversationID: msg.ConversationID, PinnedByID: p.User.ID}
	if err := s.repo.Pin(pin); err != nil {
		return fmt.Errorf("failed to pin message: %w", err)
	}
	s.publish(ctx, notify.EventPinned, msg.ConversationID, p.User.ID, map[string]uint64{"message_id": msg.ID})
	return nil
}

func (s *ChatService) Unpin(ctx context.Context, p *access.Principal, messageID uint64) error {
	msg, err := s.findMessage(messageID, p.User.ID)
	if err != nil {
		return err
	}
	if err := s.repo.Unpin(msg.ID, msg.ConversationID); err != nil {
		return fmt.Errorf("failed to unpin message: %w", err)
	}
	s.publish(ctx, notify.EventUnpinned, msg.ConversationID, p.User.ID, map[string]uint64{"message_id": msg.ID})
	return nil
}

func (s *ChatService) Save(p *access.Principal, messageID uint64) error {
	msg, err := s.findMessage(messageID, p.User.ID)
	if err != nil {
		return err
	}
	if err := s.repo.Save(&models.SavedMessage{MessageID: msg.ID, UserID: p.User.ID}); err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}
	return nil
}

func (s *ChatService) Unsave(p *access.Principal, messageID uint64) error {
	if err := s.repo.Unsave(messageID, p.User.ID); err != nil {
		return fmt.Errorf("failed to unsave message: %w", err)
	}
	return nil
}

func (s *ChatService) ListSaved(p *access.Principal) ([]models.SavedMessage, error) {
	saved, err := s.repo.ListSaved(p.User.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list saved messages: %w", err)
	}
	return saved, nil
}

// Typing records and announces that the principal is typing.
func (s *ChatService) Typing(ctx context.Context, p *access.Principal, conversationID uint64) error {
	conv, err := s.GetConversation(p, conversationID)
	if err != nil {
		return err
	}
	if err := s.repo.Touch(conv.ID, p.User.ID); err != nil {
		return fmt.Errorf("failed to record typing: %w", err)
	}
	s.publish(ctx, notify.EventTyping, conv.ID, p.User.ID, nil)
	return nil
}

// Subscribe streams the realtime events of a conversation the principal
// takes part in, until ctx is done.
func (s *ChatService) Subscribe(ctx context.Context, p *access.Principal, conversationID uint64) (<-chan notify.Event, error) {
	conv, err := s.GetConversation(p, conversationID)
	if err != nil {
		return nil, err
	}
	events, err := s.notifier.Subscribe(ctx, conv.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to conversation: %w", err)
	}
	return events, nil
}

func (s *ChatService) publish(ctx context.Context, kind notify.EventType, conversationID, userID uint64, data interface{}) {
	event, err := notify.NewEvent(kind, conversationID, userID, data)
	if err == nil {
		err = s.notifier.Publish(ctx, event)
	}
	if err != nil {
		s.log.Warn("Failed to publish chat event",
			zap.String("type", string(kind)),
			zap.Uint64("conversation_id", conversationID),
			zap.Error(err),
		)
	}
}
