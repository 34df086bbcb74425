package orgs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bookline/bookline/pkg/logging"
)

const cacheTTL = 5 * time.Minute

// Reader loads organizations; implemented by PostgresRepository.
type Reader interface {
	GetByID(ctx context.Context, orgID string) (*Organization, error)
}

// Writer persists settings; implemented by PostgresRepository.
type Writer interface {
	SaveSettings(ctx context.Context, orgID, timezone string, settings Settings) error
}

// Store is a read-through cache over the org repository. Every booking
// command resolves the org timezone and settings, so these sit in redis.
type Store struct {
	repo   Reader
	writer Writer
	redis  *redis.Client
	logger *logging.Logger
}

// NewStore creates the cached org store. The redis client may be nil, in
// which case every read goes to the repository.
func NewStore(repo Reader, writer Writer, redisClient *redis.Client, logger *logging.Logger) *Store {
	if repo == nil {
		panic("orgs: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{repo: repo, writer: writer, redis: redisClient, logger: logger}
}

func (s *Store) key(orgID string) string {
	return fmt.Sprintf("org:settings:%s", orgID)
}

// Get returns the organization, from cache when possible.
func (s *Store) Get(ctx context.Context, orgID string) (*Organization, error) {
	if s.redis != nil {
		data, err := s.redis.Get(ctx, s.key(orgID)).Bytes()
		if err == nil {
			var org Organization
			if jsonErr := json.Unmarshal(data, &org); jsonErr == nil {
				return &org, nil
			}
			// Corrupt cache entry: fall through to the repository.
		} else if err != redis.Nil {
			s.logger.Warn("org cache read failed", "error", err, "org_id", orgID)
		}
	}

	org, err := s.repo.GetByID(ctx, orgID)
	if err != nil {
		return nil, err
	}

	if s.redis != nil {
		if data, err := json.Marshal(org); err == nil {
			if err := s.redis.Set(ctx, s.key(orgID), data, cacheTTL).Err(); err != nil {
				s.logger.Warn("org cache write failed", "error", err, "org_id", orgID)
			}
		}
	}
	return org, nil
}

// SaveSettings writes through to the repository and invalidates the cache.
func (s *Store) SaveSettings(ctx context.Context, orgID, timezone string, settings Settings) error {
	if s.writer == nil {
		panic("orgs: writer required for SaveSettings")
	}
	if err := s.writer.SaveSettings(ctx, orgID, timezone, settings); err != nil {
		return err
	}
	if s.redis != nil {
		if err := s.redis.Del(ctx, s.key(orgID)).Err(); err != nil {
			s.logger.Warn("org cache invalidation failed", "error", err, "org_id", orgID)
		}
	}
	return nil
}
