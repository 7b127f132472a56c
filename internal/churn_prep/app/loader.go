package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aradsms/telco_churn_prep/internal/churn_prep/domain"
)

// SourceOpener connects to the customer source. The returned close func
// releases the connection and is called before GetData returns.
type SourceOpener func(ctx context.Context) (source domain.CustomerSource, closeFn func(), err error)

// Loader obtains the raw customers table from the source or the local cache.
type Loader struct {
	open   SourceOpener
	cache  domain.CustomerCache
	logger *slog.Logger
}

func NewLoader(open SourceOpener, cache domain.CustomerCache, logger *slog.Logger) *Loader {
	return &Loader{
		open:   open,
		cache:  cache,
		logger: logger.With("service_component", "Loader"),
	}
}

// GetData returns the customers table. With refresh set, or when no cache
// exists yet, it fetches from the source and overwrites the cache; otherwise
// it returns the cached snapshot without touching the source.
func (l *Loader) GetData(ctx context.Context, refresh bool) ([]domain.Customer, error) {
	start := time.Now()
	defer func() { stageDurationHist.WithLabelValues("load").Observe(time.Since(start).Seconds()) }()

	if !refresh {
		exists, err := l.cache.Exists()
		if err != nil {
			l.logger.ErrorContext(ctx, "Failed to check customer cache", "path", l.cache.Path(), "error", err)
			return nil, err
		}
		if exists {
			customers, err := l.cache.Read(ctx)
			if err != nil {
				return nil, err
			}
			rowsLoadedCounter.WithLabelValues("cache").Add(float64(len(customers)))
			l.logger.InfoContext(ctx, "Loaded customers from cache", "path", l.cache.Path(), "num_records", len(customers))
			return customers, nil
		}
		l.logger.InfoContext(ctx, "No customer cache found, fetching from source", "path", l.cache.Path())
	}

	customers, err := l.fetch(ctx)
	if err != nil {
		return nil, err
	}
	if err := l.cache.Write(ctx, customers); err != nil {
		return nil, fmt.Errorf("caching fetched customers: %w", err)
	}
	rowsLoadedCounter.WithLabelValues("database").Add(float64(len(customers)))
	l.logger.InfoContext(ctx, "Loaded customers from source", "num_records", len(customers), "cache_path", l.cache.Path())
	return customers, nil
}

func (l *Loader) fetch(ctx context.Context) ([]domain.Customer, error) {
	source, closeFn, err := l.open(ctx)
	if err != nil {
		l.logger.ErrorContext(ctx, "Failed to connect to customer source", "error", err)
		if errors.Is(err, domain.ErrConnection) {
			return nil, err
		}
		return nil, fmt.Errorf("connecting to customer source: %w: %w", domain.ErrConnection, err)
	}
	defer closeFn()

	customers, err := source.FetchCustomers(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching customers: %w", err)
	}
	return customers, nil
}
