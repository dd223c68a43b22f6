package neo4j

import (
	"context"
	"fmt"

	"github.com/barekit/folio/pkg/llm"
	"github.com/barekit/folio/pkg/memory/consts"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Neo4jMemory stores sessions as nodes linked to their message nodes.
type Neo4jMemory struct {
	driver neo4j.DriverWithContext
	dbName string
}

// New creates a new Neo4jMemory adapter.
func New(ctx context.Context, uri, username, password, dbName string) (*Neo4jMemory, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, err
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, err
	}

	return &Neo4jMemory{
		driver: driver,
		dbName: dbName,
	}, nil
}

var saveQuery = fmt.Sprintf(`
	MERGE (s:%[1]s {id: $sessionID})
	ON CREATE SET s.%[3]s = 0
	SET s.%[3]s = s.%[3]s + 1
	CREATE (m:%[2]s {
		%[4]s: $role,
		%[5]s: $content,
		%[6]s: s.%[3]s,
		%[7]s: datetime()
	})
	CREATE (s)-[:%[8]s]->(m)
	`, consts.LabelSession, consts.LabelMessage, consts.ColMessageCount,
	consts.ColRole, consts.ColContent, consts.ColSeq, consts.ColCreatedAt, consts.RelHasMessage)

var loadQuery = fmt.Sprintf(`
	MATCH (s:%[1]s {id: $sessionID})-[:%[2]s]->(m:%[3]s)
	RETURN m.%[4]s AS role, m.%[5]s AS content
	ORDER BY m.%[6]s ASC
	`, consts.LabelSession, consts.RelHasMessage, consts.LabelMessage,
	consts.ColRole, consts.ColContent, consts.ColSeq)

var countQuery = fmt.Sprintf(`
	MATCH (s:%[1]s {id: $sessionID})
	RETURN s.%[2]s AS count
	`, consts.LabelSession, consts.ColMessageCount)

// Save bumps the session counter and links the new message in one write transaction.
func (m *Neo4jMemory) Save(ctx context.Context, sessionID string, msg llm.Message) error {
	session := m.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: m.dbName})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		params := map[string]any{
			"sessionID": sessionID,
			"role":      string(msg.Role),
			"content":   msg.Content,
		}
		_, err := tx.Run(ctx, saveQuery, params)
		return nil, err
	})

	return err
}

// Load returns the session's messages in save order.
func (m *Neo4jMemory) Load(ctx context.Context, sessionID string) ([]llm.Message, error) {
	session := m.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: m.dbName})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, loadQuery, map[string]any{"sessionID": sessionID})
		if err != nil {
			return nil, err
		}

		messages := []llm.Message{}
		for result.Next(ctx) {
			record := result.Record()
			role, _, err := neo4j.GetRecordValue[string](record, "role")
			if err != nil {
				return nil, err
			}
			content, _, err := neo4j.GetRecordValue[string](record, "content")
			if err != nil {
				return nil, err
			}
			messages = append(messages, llm.Message{Role: llm.Role(role), Content: content})
		}
		return messages, result.Err()
	})

	if err != nil {
		return nil, err
	}

	return result.([]llm.Message), nil
}

// Count returns the session's message count.
func (m *Neo4jMemory) Count(ctx context.Context, sessionID string) (int64, error) {
	session := m.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: m.dbName})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, countQuery, map[string]any{"sessionID": sessionID})
		if err != nil {
			return nil, err
		}
		if !result.Next(ctx) {
			return int64(0), result.Err()
		}
		count, _, err := neo4j.GetRecordValue[int64](result.Record(), "count")
		return count, err
	})

	if err != nil {
		return 0, err
	}

	return result.(int64), nil
}

// Close closes the driver.
func (m *Neo4jMemory) Close(ctx context.Context) error {
	return m.driver.Close(ctx)
}
