package mongo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"removal-agent/internal/application/port/output"
	"removal-agent/internal/domain/entity"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var _ output.LedgerPort = (*Ledger)(nil)

type Config struct {
	URI        string
	Database   string
	Collection string
	OpTimeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		URI:        "mongodb://localhost:27017",
		Database:   "removal_agent",
		Collection: "brokers",
		OpTimeout:  10 * time.Second,
	}
}

type Ledger struct {
	client  *mongo.Client
	brokers *mongo.Collection
	timeout time.Duration
	logger  output.LoggerPort

	insertMu sync.Mutex
}

func Open(ctx context.Context, cfg Config, logger output.LoggerPort) (*Ledger, error) {
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = DefaultConfig().OpTimeout
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.OpTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("can't ping MongoDB: %w", err)
	}

	l := &Ledger{
		client:  client,
		brokers: client.Database(cfg.Database).Collection(cfg.Collection),
		timeout: cfg.OpTimeout,
		logger:  logger,
	}

	indexModel := mongo.IndexModel{Keys: bson.D{{Key: "removal_state", Value: 1}}}
	if _, err := l.brokers.Indexes().CreateOne(connectCtx, indexModel); err != nil {
		logger.Warn("Failed to create removal_state index", "error", err)
	}
	return l, nil
}

func (l *Ledger) List(ctx context.Context) ([]entity.BrokerLedgerEntry, error) {
	return l.find(ctx, bson.M{})
}

func (l *Ledger) ListPending(ctx context.Context) ([]entity.BrokerLedgerEntry, error) {
	return l.find(ctx, bson.M{
		"removal_state": bson.M{"$nin": bson.A{entity.RemovalRequested, entity.RemovalRemoved}},
	})
}

func (l *Ledger) Get(ctx context.Context, id uint64) (*entity.BrokerLedgerEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	var entry entity.BrokerLedgerEntry
	err := l.brokers.FindOne(ctx, bson.M{"_id": id}).Decode(&entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %d", entity.ErrBrokerNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get broker %d: %w", id, err)
	}
	return &entry, nil
}

func (l *Ledger) MarkRequested(ctx context.Context, id uint64, at time.Time) error {
	return l.set(ctx, id, bson.M{
		"removal_state":   entity.RemovalRequested,
		"submission_date": at.UTC(),
	})
}

func (l *Ledger) Reset(ctx context.Context, id uint64) error {
	return l.set(ctx, id, bson.M{
		"removal_state":   entity.RemovalNotRequested,
		"submission_date": nil,
	})
}

func (l *Ledger) Insert(ctx context.Context, name, url string) (*entity.BrokerLedgerEntry, error) {
	l.insertMu.Lock()
	defer l.insertMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	var last entity.BrokerLedgerEntry
	var next uint64 = 1
	err := l.brokers.FindOne(ctx, bson.M{}, options.FindOne().SetSort(bson.D{{Key: "_id", Value: -1}})).Decode(&last)
	switch {
	case err == nil:
		next = last.ID + 1
	case !errors.Is(err, mongo.ErrNoDocuments):
		return nil, fmt.Errorf("failed to allocate broker id: %w", err)
	}

	entry := entity.BrokerLedgerEntry{
		ID:           next,
		Name:         name,
		URL:          url,
		RemovalState: entity.RemovalNotSubmitted,
	}
	if _, err := l.brokers.InsertOne(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to insert broker: %w", err)
	}
	return &entry, nil
}

func (l *Ledger) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()
	return l.client.Disconnect(ctx)
}

func (l *Ledger) find(ctx context.Context, filter bson.M) ([]entity.BrokerLedgerEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	cursor, err := l.brokers.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list brokers: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []entity.BrokerLedgerEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode brokers: %w", err)
	}
	return entries, nil
}

func (l *Ledger) set(ctx context.Context, id uint64, fields bson.M) error {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	res, err := l.brokers.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("failed to update broker %d: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %d", entity.ErrBrokerNotFound, id)
	}
	return nil
}
