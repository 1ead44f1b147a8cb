package cachestore

import (
	"context"
	"coursewatch-backend/internal/components/assert"
	"coursewatch-backend/internal/components/chrono"
	"coursewatch-backend/internal/components/telemetry"
	"coursewatch-backend/internal/db"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	report_store_get = "store.get"
	report_store_set = "store.set"
)

// DefaultTTL is how long a written entry is served before it counts as absent.
const DefaultTTL = 24 * time.Hour

var meter = otel.Meter("coursewatch.cachestore")

type Options struct {
	// TTL defaults to DefaultTTL.
	TTL time.Duration
	// MemoryEntries enables the in-process layer in front of the database.
	MemoryEntries bool
}

// Store is a durable key to JSON document cache. Entries older than the TTL
// are treated as missing but are left in place until overwritten.
type Store struct {
	qry   *db.Queries
	clock chrono.TimeAPI
	tel   telemetry.API
	ttl   time.Duration
	mem   *gocache.Cache

	hits   metric.Int64Counter
	misses metric.Int64Counter
}

type memEntry struct {
	data      []byte
	timestamp int64
}

func NewStore(database *sql.DB, clock chrono.TimeAPI, tel telemetry.API, opts Options) *Store {
	assert.NotNil(database)
	assert.NotNil(clock)
	assert.NotNil(tel)

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	s := &Store{
		qry:   db.New(database),
		clock: clock,
		tel:   telemetry.NewScopedAPI("cachestore", tel),
		ttl:   ttl,
	}
	if opts.MemoryEntries {
		s.mem = gocache.New(ttl, ttl)
	}

	var err error
	s.hits, err = meter.Int64Counter("cache.hits")
	if err != nil {
		s.tel.ReportWarning("store.metrics", err)
	}
	s.misses, err = meter.Int64Counter("cache.misses")
	if err != nil {
		s.tel.ReportWarning("store.metrics", err)
	}
	return s
}

func (s *Store) TTL() time.Duration {
	return s.ttl
}

func (s *Store) fresh(timestamp int64) bool {
	age := s.clock.Now().Sub(time.Unix(timestamp, 0))
	return age < s.ttl
}

func (s *Store) count(ctx context.Context, counter metric.Int64Counter, key string) {
	if counter == nil {
		return
	}
	counter.Add(ctx, 1, metric.WithAttributes(attribute.String("prefix", keyPrefix(key))))
}

func keyPrefix(key string) string {
	for i, c := range key {
		if c == '_' || c == ':' {
			return key[:i]
		}
	}
	return key
}

func (s *Store) read(ctx context.Context, key string) ([]byte, bool, error) {
	if s.mem != nil {
		if cached, ok := s.mem.Get(key); ok {
			entry := cached.(memEntry)
			if s.fresh(entry.timestamp) {
				return entry.data, true, nil
			}
		}
	}

	row, err := s.qry.GetCacheEntry(ctx, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if !s.fresh(row.Timestamp) {
		return nil, false, nil
	}

	data := []byte(row.Data)
	if s.mem != nil {
		s.mem.Set(key, memEntry{data: data, timestamp: row.Timestamp}, gocache.DefaultExpiration)
	}
	return data, true, nil
}

// Get decodes the fresh entry under key into dest. A missing or stale
// entry returns false with no error.
func (s *Store) Get(ctx context.Context, key string, dest any) (bool, error) {
	data, ok, err := s.read(ctx, key)
	if err != nil {
		s.tel.ReportBroken(report_store_get, err, key)
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}
	if !ok {
		s.count(ctx, s.misses, key)
		return false, nil
	}

	err = json.Unmarshal(data, dest)
	if err != nil {
		// an undecodable entry is as good as a missing one, it will be overwritten
		s.tel.ReportWarning(report_store_get, fmt.Errorf("decode %s: %w", key, err))
		s.count(ctx, s.misses, key)
		return false, nil
	}
	s.count(ctx, s.hits, key)
	return true, nil
}

// Set replaces the entry under key, resetting its timestamp.
func (s *Store) Set(ctx context.Context, key string, value any) error {
	assert.NotEmptyStr(key)

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache set %s: encode: %w", key, err)
	}

	timestamp := s.clock.Now().Unix()
	err = s.qry.UpsertCacheEntry(ctx, db.UpsertCacheEntryParams{
		Key:       key,
		Data:      string(data),
		Timestamp: timestamp,
	})
	if err != nil {
		s.tel.ReportBroken(report_store_set, err, key)
		return fmt.Errorf("cache set %s: %w", key, err)
	}

	if s.mem != nil {
		s.mem.Set(key, memEntry{data: data, timestamp: timestamp}, gocache.DefaultExpiration)
	}
	return nil
}
