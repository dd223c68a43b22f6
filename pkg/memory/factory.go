package memory

import (
	"context"
	"fmt"

	"github.com/barekit/folio/pkg/memory/consts"
	gormmem "github.com/barekit/folio/pkg/memory/gorm"
	"github.com/barekit/folio/pkg/memory/inmemory"
	mongomem "github.com/barekit/folio/pkg/memory/mongo"
	"github.com/barekit/folio/pkg/memory/neo4j"
	"github.com/barekit/folio/pkg/memory/redis"
	goredis "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Type string

const (
	TypeSQLite   Type = "sqlite"
	TypePostgres Type = "postgres"
	TypeMySQL    Type = "mysql"
	TypeMSSQL    Type = "mssql"
	TypeRedis    Type = "redis"
	TypeNeo4j    Type = "neo4j"
	TypeMongo    Type = "mongo"
	TypeInMemory Type = "inmemory"
)

// Config holds configuration for memory adapters.
type Config struct {
	Type             Type
	ConnectionString string
	Username         string
	Password         string
	DBName           string
}

// NewFactory creates a new memory adapter based on the configuration.
// An empty Type selects the in-memory adapter.
func NewFactory(ctx context.Context, cfg Config) (Memory, error) {
	switch cfg.Type {
	case TypeSQLite:
		return gormmem.Open(gormmem.DialectSQLite, cfg.ConnectionString)

	case TypePostgres:
		return gormmem.Open(gormmem.DialectPostgres, cfg.ConnectionString)

	case TypeMySQL:
		return gormmem.Open(gormmem.DialectMySQL, cfg.ConnectionString)

	case TypeMSSQL:
		return gormmem.Open(gormmem.DialectMSSQL, cfg.ConnectionString)

	case TypeRedis:
		opts, err := goredis.ParseURL(cfg.ConnectionString)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis url: %w", err)
		}
		client := goredis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to ping redis: %w", err)
		}
		return redis.New(client), nil

	case TypeNeo4j:
		dbName := "neo4j" // the Neo4j default database, not DefaultDBName
		if cfg.DBName != "" {
			dbName = cfg.DBName
		}
		return neo4j.New(ctx, cfg.ConnectionString, cfg.Username, cfg.Password, dbName)

	case TypeMongo:
		opts := options.Client().ApplyURI(cfg.ConnectionString)
		client, err := mongo.Connect(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to mongo: %w", err)
		}
		if err := client.Ping(ctx, nil); err != nil {
			client.Disconnect(ctx)
			return nil, fmt.Errorf("failed to ping mongo: %w", err)
		}
		dbName := consts.DefaultDBName
		if cfg.DBName != "" {
			dbName = cfg.DBName
		}
		return mongomem.New(client, dbName, consts.TableNameSessions), nil

	case TypeInMemory, "":
		return inmemory.New(), nil

	default:
		return nil, fmt.Errorf("unsupported memory type: %s", cfg.Type)
	}
}
