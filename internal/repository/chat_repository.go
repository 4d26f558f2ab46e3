package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yukikurage/taskflow-api/internal/database"
	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/utils"
)

// GormChatRepository is a GORM implementation of ChatRepository
type GormChatRepository struct {
	db *gorm.DB
}

// NewChatRepository creates a new ChatRepository
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &GormChatRepository{db: db}
}

// CreateConversation creates the conversation and its participant rows
func (r *GormChatRepository) CreateConversation(conv *models.Conversation, userIDs []uint64, adminID uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Participants").Create(conv).Error; err != nil {
			return err
		}

		participants := make([]models.ConversationParticipant, 0, len(userIDs))
		for _, id := range userIDs {
			participants = append(participants, models.ConversationParticipant{
				ConversationID: conv.ID,
				UserID:         id,
				IsAdmin:        id == adminID,
			})
		}
		if len(participants) == 0 {
			return nil
		}
		return tx.Omit("User").Create(&participants).Error
	})
}

func participantOf(db *gorm.DB, userID uint64) *gorm.DB {
	return db.Model(&models.ConversationParticipant{}).
		Select("conversation_id").
		Where("user_id = ?", userID)
}

// ListConversations lists the user's conversations, most recently active first
func (r *GormChatRepository) ListConversations(organizationID, userID uint64) ([]models.Conversation, error) {
	var convs []models.Conversation
	if err := r.db.Preload("Participants.User").
		Where("organization_id = ? AND id IN (?)", organizationID, participantOf(r.db, userID)).
		Order("updated_at DESC").
		Find(&convs).Error; err != nil {
		return nil, err
	}
	return convs, nil
}

// FindConversation finds a conversation of the organization the user participates in
func (r *GormChatRepository) FindConversation(organizationID, id, userID uint64) (*models.Conversation, error) {
	var conv models.Conversation
	if err := r.db.Preload("Participants.User").
		Where("organization_id = ? AND id IN (?)", organizationID, participantOf(r.db, userID)).
		First(&conv, id).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *GormChatRepository) AddParticipant(p *models.ConversationParticipant) error {
	return r.db.Omit("User").
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(p).Error
}

func (r *GormChatRepository) RemoveParticipant(conversationID, userID uint64) error {
	result := r.db.Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Delete(&models.ConversationParticipant{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CreateMessage stores the message, marks it read by its sender and bumps the conversation
func (r *GormChatRepository) CreateMessage(msg *models.Message) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Reads", "Reactions").Create(msg).Error; err != nil {
			return err
		}
		read := models.MessageRead{MessageID: msg.ID, UserID: msg.SenderID}
		if err := tx.Create(&read).Error; err != nil {
			return err
		}
		msg.Reads = []models.MessageRead{read}
		return tx.Model(&models.Conversation{}).
			Where("id = ?", msg.ConversationID).
			Update("updated_at", time.Now()).Error
	})
}

// ListMessages returns a page of messages, oldest first
func (r *GormChatRepository) ListMessages(conversationID uint64, params utils.PaginationParams) ([]models.Message, int64, error) {
	var messages []models.Message
	query := r.db.Model(&models.Message{}).Where("conversation_id = ?", conversationID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Preload("Reads").Preload("Reactions").
		Order("timestamp ASC").Order("id ASC").
		Scopes(database.Paginate(params)).
		Find(&messages).Error; err != nil {
		return nil, 0, err
	}
	return messages, total, nil
}

func (r *GormChatRepository) FindMessage(id, userID uint64) (*models.Message, error) {
	var msg models.Message
	if err := r.db.Preload("Reads").Preload("Reactions").
		Where("conversation_id IN (?)", participantOf(r.db, userID)).
		First(&msg, id).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *GormChatRepository) MarkRead(messageID, userID uint64) error {
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.MessageRead{MessageID: messageID, UserID: userID}).Error
}

func (r *GormChatRepository) ToggleReaction(messageID, userID uint64, reaction string) (bool, error) {
	added := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var existing models.MessageReaction
		err := tx.Where("message_id = ? AND user_id = ? AND reaction = ?", messageID, userID, reaction).
			First(&existing).Error
		switch {
		case err == nil:
			return tx.Delete(&existing).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			added = true
			return tx.Create(&models.MessageReaction{MessageID: messageID, UserID: userID, Reaction: reaction}).Error
		default:
			return err
		}
	})
	return added, err
}

func (r *GormChatRepository) Pin(pin *models.PinnedMessage) error {
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(pin).Error
}

func (r *GormChatRepository) Unpin(messageID, conversationID uint64) error {
	return r.db.Where("message_id = ? AND conversation_id = ?", messageID, conversationID).
		Delete(&models.PinnedMessage{}).Error
}

func (r *GormChatRepository) Save(saved *models.SavedMessage) error {
	return r.db.Omit("Message").Clauses(clause.OnConflict{DoNothing: true}).Create(saved).Error
}

func (r *GormChatRepository) Unsave(messageID, userID uint64) error {
	return r.db.Where("message_id = ? AND user_id = ?", messageID, userID).
		Delete(&models.SavedMessage{}).Error
}

// ListSaved lists the user's saved messages, newest first
func (r *GormChatRepository) ListSaved(userID uint64) ([]models.SavedMessage, error) {
	var saved []models.SavedMessage
	if err := r.db.Preload("Message").
		Where("user_id = ?", userID).
		Order("saved_at DESC").
		Find(&saved).Error; err != nil {
		return nil, err
	}
	return saved, nil
}

// Touch records that the user is typing in the conversation
func (r *GormChatRepository) Touch(conversationID, userID uint64) error {
	indicator := models.TypingIndicator{ConversationID: conversationID, UserID: userID, UpdatedAt: time.Now()}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "conversation_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"updated_at"}),
	}).Create(&indicator).Error
}
