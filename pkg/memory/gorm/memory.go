package gorm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/barekit/folio/pkg/llm"
	"github.com/barekit/folio/pkg/memory/consts"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Supported SQL dialects.
const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
	DialectMySQL    = "mysql"
	DialectMSSQL    = "mssql"
)

// Memory implements Memory using GORM.
type Memory struct {
	db *gorm.DB
}

// MessageModel represents the database schema for a message.
type MessageModel struct {
	ID        uint   `gorm:"primaryKey"`
	SessionID string `gorm:"index;size:191"`
	Role      string `gorm:"size:32"`
	Content   string
	CreatedAt time.Time
}

// TableName overrides the table name.
func (MessageModel) TableName() string {
	return consts.TableNameMessages
}

// SessionModel holds the running message count of a session.
type SessionModel struct {
	ID           string `gorm:"primaryKey;size:191"`
	MessageCount int64
	UpdatedAt    time.Time
}

// TableName overrides the table name.
func (SessionModel) TableName() string {
	return consts.TableNameSessions
}

// Dialector returns the GORM dialector for a dialect name.
func Dialector(dialect, dsn string) (gorm.Dialector, error) {
	switch dialect {
	case DialectSQLite:
		return sqlite.Open(dsn), nil
	case DialectPostgres:
		return postgres.Open(dsn), nil
	case DialectMySQL:
		return mysql.Open(dsn), nil
	case DialectMSSQL:
		return sqlserver.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported sql dialect: %s", dialect)
	}
}

// Open connects to dsn with the given dialect and migrates the schema.
func Open(dialect, dsn string) (*Memory, error) {
	dialector, err := Dialector(dialect, dsn)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		// SQLite allows one writer; a single connection serializes
		// transactions instead of failing them with SQLITE_BUSY.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return New(db)
}

// New creates a new Memory.
func New(db *gorm.DB) (*Memory, error) {
	if err := db.AutoMigrate(&SessionModel{}, &MessageModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &Memory{db: db}, nil
}

// Save upserts the session row, incrementing its count, and inserts the
// message in one transaction.
func (m *Memory) Save(ctx context.Context, sessionID string, msg llm.Message) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: consts.ColID}},
			DoUpdates: clause.Assignments(map[string]any{
				consts.ColMessageCount: gorm.Expr(consts.TableNameSessions + "." + consts.ColMessageCount + " + 1"),
				consts.ColUpdatedAt:    time.Now(),
			}),
		}).Create(&SessionModel{ID: sessionID, MessageCount: 1}).Error
		if err != nil {
			return fmt.Errorf("failed to upsert session: %w", err)
		}

		model := MessageModel{
			SessionID: sessionID,
			Role:      string(msg.Role),
			Content:   msg.Content,
		}
		return tx.Create(&model).Error
	})
}

// Load loads messages from the database.
func (m *Memory) Load(ctx context.Context, sessionID string) ([]llm.Message, error) {
	var models []MessageModel
	if err := m.db.WithContext(ctx).Where(consts.ColSessionID+" = ?", sessionID).Order(consts.ColID + " asc").Find(&models).Error; err != nil {
		return nil, err
	}

	messages := make([]llm.Message, len(models))
	for i, model := range models {
		messages[i] = llm.Message{
			Role:    llm.Role(model.Role),
			Content: model.Content,
		}
	}

	return messages, nil
}

// Count returns the stored message count, zero for an unknown session.
func (m *Memory) Count(ctx context.Context, sessionID string) (int64, error) {
	var session SessionModel
	err := m.db.WithContext(ctx).Where(consts.ColID+" = ?", sessionID).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return session.MessageCount, nil
}

// Close closes the underlying connection pool.
func (m *Memory) Close(ctx context.Context) error {
	db, err := m.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}
