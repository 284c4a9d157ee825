// internal/output/mongo.go
package output

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/valpere/MinwonScrapexter/internal/config"
	"github.com/valpere/MinwonScrapexter/internal/pipeline"
	"github.com/valpere/MinwonScrapexter/pkg/types"
)

// MongoSink upserts records into a MongoDB collection keyed by hash id
type MongoSink struct {
	client     *mongo.Client
	collection *mongo.Collection
	timeout    time.Duration
	logger     logrus.FieldLogger
	now        func() time.Time
}

// NewMongoSink connects to MongoDB and verifies the connection
func NewMongoSink(ctx context.Context, cfg config.MongoSinkConfig, logger logrus.FieldLogger) (*MongoSink, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if cfg.URI == "" {
		return nil, fmt.Errorf("MongoDB URI is required")
	}
	if cfg.Database == "" || cfg.Collection == "" {
		return nil, fmt.Errorf("MongoDB database and collection are required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout)

	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &MongoSink{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		timeout:    timeout,
		logger:     logger.WithField("sink", "mongo"),
		now:        time.Now,
	}, nil
}

// Name identifies the sink in logs and summaries
func (s *MongoSink) Name() string { return "mongo" }

// Write upserts every record with an unordered bulk write
func (s *MongoSink) Write(ctx context.Context, records []*types.ServiceRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	stored := s.now().UTC()
	models := make([]mongo.WriteModel, 0, len(records))
	for _, rec := range records {
		doc := mongoDocument(rec, pipeline.Enrich(rec), stored)
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.D{{Key: "_id", Value: doc[0].Value}}).
			SetReplacement(doc).
			SetUpsert(true))
	}

	writeCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.collection.BulkWrite(writeCtx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return 0, fmt.Errorf("MongoDB bulk write failed: %w", err)
	}

	written := int(result.UpsertedCount + result.MatchedCount)
	s.logger.WithFields(logrus.Fields{
		"upserted": result.UpsertedCount,
		"modified": result.ModifiedCount,
	}).Info("records stored")
	return written, nil
}

// Close disconnects the client
func (s *MongoSink) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// mongoDocument builds the stored document. The first element is always _id.
func mongoDocument(rec *types.ServiceRecord, e pipeline.Enrichment, stored time.Time) bson.D {
	doc := bson.D{{Key: "_id", Value: e.HashID}}
	for _, f := range types.AllFields() {
		doc = append(doc, bson.E{Key: f.Key(), Value: rec.Get(f)})
	}

	meta := bson.D{
		{Key: "word_count", Value: e.WordCount},
		{Key: "completeness", Value: e.Completeness},
		{Key: "filled", Value: e.Filled},
		{Key: "tier", Value: string(e.Tier)},
	}
	if e.Duration.Days != nil {
		meta = append(meta, bson.E{Key: "duration_days", Value: *e.Duration.Days})
	}
	if e.Duration.Hours != nil {
		meta = append(meta, bson.E{Key: "duration_hours", Value: *e.Duration.Hours})
	}
	if e.Duration.Minutes != nil {
		meta = append(meta, bson.E{Key: "duration_minutes", Value: *e.Duration.Minutes})
	}

	return append(doc,
		bson.E{Key: "metadata", Value: meta},
		bson.E{Key: "stored_at", Value: stored},
	)
}
