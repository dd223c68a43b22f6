package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/barekit/folio/pkg/llm"
	"github.com/barekit/folio/pkg/memory/consts"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoMemory keeps one document per session so that appending a turn and
// bumping the count is a single-document update.
type MongoMemory struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// SessionDoc is the stored shape of one session.
type SessionDoc struct {
	ID           string       `bson:"_id"`
	Messages     []MessageDoc `bson:"messages"`
	MessageCount int64        `bson:"message_count"`
	UpdatedAt    time.Time    `bson:"updated_at"`
}

// MessageDoc is one turn inside a SessionDoc.
type MessageDoc struct {
	Role      string    `bson:"role"`
	Content   string    `bson:"content"`
	CreatedAt time.Time `bson:"created_at"`
}

// New creates a new MongoMemory adapter.
func New(client *mongo.Client, dbName, collectionName string) *MongoMemory {
	return &MongoMemory{
		client:     client,
		collection: client.Database(dbName).Collection(collectionName),
	}
}

// Save pushes the message and increments the count in one upsert.
func (m *MongoMemory) Save(ctx context.Context, sessionID string, msg llm.Message) error {
	now := time.Now()
	doc := MessageDoc{
		Role:      string(msg.Role),
		Content:   msg.Content,
		CreatedAt: now,
	}

	update := bson.M{
		"$push": bson.M{consts.ColMessages: doc},
		"$inc":  bson.M{consts.ColMessageCount: 1},
		"$set":  bson.M{consts.ColUpdatedAt: now},
	}
	_, err := m.collection.UpdateOne(ctx, bson.M{"_id": sessionID}, update, options.Update().SetUpsert(true))
	return err
}

// Load returns the session's messages, empty for an unknown session.
func (m *MongoMemory) Load(ctx context.Context, sessionID string) ([]llm.Message, error) {
	session, err := m.find(ctx, sessionID, nil)
	if err != nil || session == nil {
		return []llm.Message{}, err
	}

	messages := make([]llm.Message, len(session.Messages))
	for i, doc := range session.Messages {
		messages[i] = llm.Message{
			Role:    llm.Role(doc.Role),
			Content: doc.Content,
		}
	}
	return messages, nil
}

// Count returns the session's message count.
func (m *MongoMemory) Count(ctx context.Context, sessionID string) (int64, error) {
	session, err := m.find(ctx, sessionID, bson.M{consts.ColMessageCount: 1})
	if err != nil || session == nil {
		return 0, err
	}
	return session.MessageCount, nil
}

// Close disconnects the client.
func (m *MongoMemory) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// find returns nil without error when the session does not exist.
func (m *MongoMemory) find(ctx context.Context, sessionID string, projection bson.M) (*SessionDoc, error) {
	opts := options.FindOne()
	if projection != nil {
		opts.SetProjection(projection)
	}

	var session SessionDoc
	err := m.collection.FindOne(ctx, bson.M{"_id": sessionID}, opts).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}
