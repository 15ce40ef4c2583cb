package chatstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ragchatbot/internal/models"
)

// ErrChatNotFound is returned when a chat id does not exist.
var ErrChatNotFound = errors.New("chat not found")

// ChatStore defines the interface for conversation persistence.
type ChatStore interface {
	CreateChat(ctx context.Context, userID, title string) (*models.Chat, error)
	GetChat(ctx context.Context, chatID string) (*models.Chat, error)
	ListChats(ctx context.Context, userID string, page, limit int) ([]*models.Chat, error)
	AppendMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context, chatID string) ([]*models.Message, error)
}

// MongoChatStore is an implementation of ChatStore using MongoDB.
type MongoChatStore struct {
	chats    *mongo.Collection
	messages *mongo.Collection
}

var _ ChatStore = (*MongoChatStore)(nil)

// NewMongoChatStore creates a new MongoChatStore.
func NewMongoChatStore(db *mongo.Database) *MongoChatStore {
	return &MongoChatStore{
		chats:    db.Collection("chats"),
		messages: db.Collection("messages"),
	}
}

// CreateChat inserts a new conversation owned by userID.
func (s *MongoChatStore) CreateChat(ctx context.Context, userID, title string) (*models.Chat, error) {
	now := time.Now().UTC()
	chat := &models.Chat{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.chats.InsertOne(ctx, chat); err != nil {
		return nil, err
	}
	return chat, nil
}

// GetChat retrieves a chat by its ID.
func (s *MongoChatStore) GetChat(ctx context.Context, chatID string) (*models.Chat, error) {
	var chat models.Chat
	err := s.chats.FindOne(ctx, bson.M{"_id": chatID}).Decode(&chat)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrChatNotFound
		}
		return nil, err
	}
	return &chat, nil
}

// ListChats retrieves a paginated list of chats for a user, most recently
// updated first.
func (s *MongoChatStore) ListChats(ctx context.Context, userID string, page, limit int) ([]*models.Chat, error) {
	opts := options.Find()
	opts.SetSort(bson.D{{Key: "updated_at", Value: -1}})
	if page > 0 && limit > 0 {
		opts.SetSkip(int64((page - 1) * limit))
		opts.SetLimit(int64(limit))
	}

	cursor, err := s.chats.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	chats := make([]*models.Chat, 0)
	if err = cursor.All(ctx, &chats); err != nil {
		return nil, err
	}
	return chats, nil
}

// AppendMessage stores a message and bumps the chat's updated_at. The first
// user message also becomes the chat title when none was set.
func (s *MongoChatStore) AppendMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	if _, err := s.messages.InsertOne(ctx, msg); err != nil {
		return err
	}

	update := bson.M{"$set": bson.M{"updated_at": msg.CreatedAt}}
	if msg.Role == models.RoleUser {
		var chat models.Chat
		err := s.chats.FindOne(ctx, bson.M{"_id": msg.ChatID}).Decode(&chat)
		if err == nil && chat.Title == "" {
			update = bson.M{"$set": bson.M{
				"updated_at": msg.CreatedAt,
				"title":      models.TitleFromMessage(msg.Content),
			}}
		}
	}
	_, err := s.chats.UpdateOne(ctx, bson.M{"_id": msg.ChatID}, update)
	return err
}

// ListMessages retrieves all messages of a chat in chronological order.
func (s *MongoChatStore) ListMessages(ctx context.Context, chatID string) ([]*models.Message, error) {
	opts := options.Find()
	opts.SetSort(bson.D{{Key: "created_at", Value: 1}})

	cursor, err := s.messages.Find(ctx, bson.M{"chat_id": chatID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	msgs := make([]*models.Message, 0)
	if err = cursor.All(ctx, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}
