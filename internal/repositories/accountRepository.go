package repositories

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"finlead/internal/database"
	"finlead/internal/metrics"
	"finlead/internal/models"
)

// AccountRepository reads the client directory owned by the advisor
// dashboard. This service never writes to it.
type AccountRepository interface {
	FindByPhone(ctx context.Context, variants []string) (*models.Account, error)
}

type accountRepository struct {
	db database.Service
}

func NewAccountRepository(db database.Service) AccountRepository {
	return &accountRepository{db: db}
}

// FindByPhone returns the first directory record whose phone attribute
// matches any of the given textual variants, or nil when none match.
// Duplicates are not reconciled; the first match wins.
func (r *accountRepository) FindByPhone(ctx context.Context, variants []string) (*models.Account, error) {
	queryType := "findByPhone"
	repository := "account"
	status := "success"
	timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
		metrics.DBQueryDurationSeconds.WithLabelValues(queryType, repository, status).Observe(v)
	}))
	defer timer.ObserveDuration()

	collection := r.db.Client().Database("finlead").Collection("clients")
	var account models.Account
	err := collection.FindOne(ctx, bson.M{"phone": bson.M{"$in": variants}}).Decode(&account)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		status = "error"
		metrics.DBQueryErrorsTotal.WithLabelValues(queryType, repository).Inc()
		return nil, err
	}
	return &account, nil
}
