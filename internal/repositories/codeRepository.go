package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"finlead/internal/database"
	"finlead/internal/metrics"
	"finlead/internal/models"
)

// CodeRepository is the pending-code store: one record per normalized phone
// key, last write wins. Concurrent writes for the same key race harmlessly;
// the newest Put always supersedes.
type CodeRepository interface {
	Put(ctx context.Context, phoneKey, code string, ttl time.Duration) error
	Get(ctx context.Context, phoneKey string) (*models.PendingCode, error)
	IncrementAttempts(ctx context.Context, phoneKey string) error
	Delete(ctx context.Context, phoneKey string) error
}

type codeRepository struct {
	db database.Service
}

func NewCodeRepository(db database.Service) CodeRepository {
	return &codeRepository{db: db}
}

func (r *codeRepository) collection() *mongo.Collection {
	return r.db.Client().Database("finlead").Collection("pending_codes")
}

func (r *codeRepository) Put(ctx context.Context, phoneKey, code string, ttl time.Duration) error {
	queryType := "put"
	repository := "code"
	status := "success"
	timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
		metrics.DBQueryDurationSeconds.WithLabelValues(queryType, repository, status).Observe(v)
	}))
	defer timer.ObserveDuration()

	now := time.Now()
	pending := models.PendingCode{
		PhoneKey:  phoneKey,
		Code:      code,
		ExpiresAt: now.Add(ttl),
		Attempts:  0,
		CreatedAt: now,
		UpdatedAt: now,
	}

	opts := options.Replace().SetUpsert(true)
	_, err := r.collection().ReplaceOne(ctx, bson.M{"phone_key": phoneKey}, pending, opts)
	if err != nil {
		status = "error"
		metrics.DBQueryErrorsTotal.WithLabelValues(queryType, repository).Inc()
		log.Error().Err(err).Str("phone_key", phoneKey).Msg("Failed to store pending code")
		return fmt.Errorf("failed to store pending code: %w", err)
	}
	return nil
}

func (r *codeRepository) Get(ctx context.Context, phoneKey string) (*models.PendingCode, error) {
	queryType := "get"
	repository := "code"
	status := "success"
	timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
		metrics.DBQueryDurationSeconds.WithLabelValues(queryType, repository, status).Observe(v)
	}))
	defer timer.ObserveDuration()

	var pending models.PendingCode
	err := r.collection().FindOne(ctx, bson.M{"phone_key": phoneKey}).Decode(&pending)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		status = "error"
		metrics.DBQueryErrorsTotal.WithLabelValues(queryType, repository).Inc()
		return nil, err
	}
	return &pending, nil
}

func (r *codeRepository) IncrementAttempts(ctx context.Context, phoneKey string) error {
	queryType := "incrementAttempts"
	repository := "code"
	status := "success"
	timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
		metrics.DBQueryDurationSeconds.WithLabelValues(queryType, repository, status).Observe(v)
	}))
	defer timer.ObserveDuration()

	update := bson.M{"$inc": bson.M{"attempts": 1}, "$set": bson.M{"updated_at": time.Now()}}
	_, err := r.collection().UpdateOne(ctx, bson.M{"phone_key": phoneKey}, update)
	if err != nil {
		status = "error"
		metrics.DBQueryErrorsTotal.WithLabelValues(queryType, repository).Inc()
		log.Error().Err(err).Str("phone_key", phoneKey).Msg("Failed to increment attempt counter")
	}
	return err
}

func (r *codeRepository) Delete(ctx context.Context, phoneKey string) error {
	queryType := "delete"
	repository := "code"
	status := "success"
	timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
		metrics.DBQueryDurationSeconds.WithLabelValues(queryType, repository, status).Observe(v)
	}))
	defer timer.ObserveDuration()

	_, err := r.collection().DeleteOne(ctx, bson.M{"phone_key": phoneKey})
	if err != nil {
		status = "error"
		metrics.DBQueryErrorsTotal.WithLabelValues(queryType, repository).Inc()
		log.Error().Err(err).Str("phone_key", phoneKey).Msg("Failed to delete pending code")
	}
	return err
}
