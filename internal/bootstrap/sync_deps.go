// Package bootstrap wires configuration, connections, adapters and
// services into a runnable pipeline.
package bootstrap

import (
	"context"
	"hash/fnv"

	"sync_server/adapter/out/embedding"
	"sync_server/adapter/out/graph"
	"sync_server/adapter/out/messaging"
	"sync_server/adapter/out/mongodb"
	"sync_server/adapter/out/persistence"
	"sync_server/config"
	"sync_server/core/port/out"
	"sync_server/core/service/sync"
	"sync_server/infra/database"
	"sync_server/pkg/logger"
	"sync_server/pkg/snowflake"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

type Dependencies struct {
	Config  *config.Config
	DB      *pgxpool.Pool
	SQLDB   *sqlx.DB
	Redis   *redis.Client
	MongoDB *mongo.Client
	Neo4j   neo4j.DriverWithContext

	// Repositories
	AddressRepo    out.AddressRepository
	ThreadRepo     out.ThreadRepository
	EmailRepo      out.EmailRepository
	AttachmentRepo out.AttachmentRepository
	PayloadRepo    out.PayloadRepository

	// Search
	SearchIndex out.SearchIndex
	Embedder    out.Embedder

	// Messaging
	MessageProducer out.MessageProducer

	// IDs
	IDGenerator *snowflake.Generator

	// Services
	SyncService *sync.Service
}

// NewDependencies connects to every configured store and assembles the
// pipeline. Postgres is mandatory; Mongo, Neo4j, Redis and OpenAI degrade
// to nil adapters, and the services treat them as optional.
func NewDependencies(cfg *config.Config) (*Dependencies, func(), error) {
	deps := &Dependencies{Config: cfg}
	var cleanups []func()

	// Database (pgxpool)
	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	deps.DB = db
	cleanups = append(cleanups, func() { db.Close() })

	// Database (sqlx for the adapters)
	sqlDB, err := database.NewSQLx(cfg.DatabaseURL)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	deps.SQLDB = sqlDB
	cleanups = append(cleanups, func() { sqlDB.Close() })

	// Redis
	if cfg.RedisURL != "" {
		redisClient, err := database.NewRedis(cfg.RedisURL)
		if err != nil {
			logger.Warn("Redis connection failed: %v", err)
		} else {
			deps.Redis = redisClient
			cleanups = append(cleanups, func() { redisClient.Close() })
			deps.MessageProducer = messaging.NewRedisProducer(redisClient)
		}
	}

	// MongoDB
	if cfg.MongoDBURL != "" {
		mongoClient, err := mongodb.NewClient(cfg.MongoDBURL, cfg.MongoDBName)
		if err != nil {
			logger.Warn("MongoDB connection failed: %v", err)
		} else {
			deps.MongoDB = mongoClient
			cleanups = append(cleanups, func() {
				mongoClient.Disconnect(context.Background())
			})

			mongoDB := mongoClient.Database(cfg.MongoDBName)
			payloadAdapter := mongodb.NewPayloadAdapter(mongoDB)
			if err := payloadAdapter.EnsureIndexes(context.Background()); err != nil {
				logger.Warn("Failed to ensure MongoDB indexes: %v", err)
			}
			deps.PayloadRepo = payloadAdapter
		}
	}

	// Neo4j (search index)
	if cfg.Neo4jURL != "" {
		neo4jDriver, err := graph.NewDriver(cfg.Neo4jURL, cfg.Neo4jUsername, cfg.Neo4jPassword)
		if err != nil {
			logger.Warn("Neo4j connection failed: %v", err)
		} else {
			deps.Neo4j = neo4jDriver
			cleanups = append(cleanups, func() {
				neo4jDriver.Close(context.Background())
			})

			searchAdapter := graph.NewSearchAdapter(neo4jDriver, cfg.Neo4jDatabase)
			if err := searchAdapter.EnsureIndexes(context.Background()); err != nil {
				logger.Warn("Failed to ensure Neo4j indexes: %v", err)
			}
			deps.SearchIndex = searchAdapter
		}
	}

	// Embedder (OpenAI)
	if cfg.OpenAIAPIKey != "" {
		deps.Embedder = embedding.NewOpenAIEmbedder(&embedding.EmbedderConfig{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.EmbedModel,
		})
	}

	// Repositories
	deps.AddressRepo = persistence.NewAddressAdapter(sqlDB)
	deps.ThreadRepo = persistence.NewThreadAdapter(sqlDB)
	deps.EmailRepo = persistence.NewEmailAdapter(sqlDB)
	deps.AttachmentRepo = persistence.NewAttachmentAdapter(sqlDB)

	// ID generator, worker id derived from the configured worker name
	gen, err := snowflake.NewGenerator(workerIDFromName(cfg.WorkerID))
	if err != nil {
		cleanup := makeCleanup(cleanups)
		cleanup()
		return nil, nil, err
	}
	deps.IDGenerator = gen

	// Services
	aggregator := sync.NewThreadAggregator(deps.ThreadRepo, deps.EmailRepo)
	upserter := sync.NewEmailUpserter(deps.EmailRepo, deps.AttachmentRepo, deps.PayloadRepo, aggregator)
	indexer := sync.NewIndexer(deps.Embedder, deps.SearchIndex, sync.NewBodyNormalizer())
	deps.SyncService = sync.NewService(deps.AddressRepo, gen, upserter, indexer, deps.MessageProducer)

	return deps, makeCleanup(cleanups), nil
}

func makeCleanup(cleanups []func()) func() {
	return func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}
}

// workerIDFromName folds an arbitrary worker name into the snowflake
// worker id range.
func workerIDFromName(name string) int64 {
	h := fnv.New32a()
	h.Write([]byte(name))
	return int64(h.Sum32() % 1024)
}

func (d *Dependencies) HealthCheck(ctx context.Context) error {
	// Check database
	if err := d.DB.Ping(ctx); err != nil {
		return err
	}

	// Check Redis
	if d.Redis != nil {
		if err := d.Redis.Ping(ctx).Err(); err != nil {
			return err
		}
	}

	return nil
}
