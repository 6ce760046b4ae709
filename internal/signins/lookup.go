package signins

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bhfe/cfp-workshops/internal/models"
)

// LookupTTL is how long a date's workshop options stay cached.
const LookupTTL = 5 * time.Minute

const lookupKeyPrefix = "signin:workshops_by_date:"

// ErrNoWorkshopsOnDate is returned when a date has no scheduled workshops.
var ErrNoWorkshopsOnDate = errors.New("no workshops found for this date")

// Option is one selectable workshop on the public sign-in form.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// OptionFor renders the form option for a workshop.
func OptionFor(w models.Workshop) Option {
	label := w.Customer
	if w.Instructor != "" {
		label += " (Instructor: " + w.Instructor + ")"
	}
	if w.TimeLocation != "" {
		label += " - " + w.TimeLocation
	}
	return Option{Value: w.Customer, Label: label}
}

// DateLister lists the workshops held on a date.
type DateLister interface {
	ListByDate(ctx context.Context, date time.Time) ([]models.Workshop, error)
}

// Lookup answers date lookups for the sign-in form, cached in Redis.
type Lookup struct {
	workshops DateLister
	rdb       *redis.Client
	ttl       time.Duration
	logger    *zap.Logger
}

// NewLookup creates a lookup. rdb may be nil to disable caching.
func NewLookup(workshops DateLister, rdb *redis.Client, logger *zap.Logger) *Lookup {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Lookup{workshops: workshops, rdb: rdb, ttl: LookupTTL, logger: logger}
}

// CacheKey returns the Redis key holding options for date.
func CacheKey(date time.Time) string {
	return lookupKeyPrefix + date.Format(models.DateLayout)
}

// ByDate returns the workshop options for date. Cache failures fall through to the store.
func (l *Lookup) ByDate(ctx context.Context, date time.Time) ([]Option, error) {
	key := CacheKey(date)
	if l.rdb != nil {
		if val, err := l.rdb.Get(ctx, key).Result(); err == nil {
			var opts []Option
			if err := json.Unmarshal([]byte(val), &opts); err == nil && len(opts) > 0 {
				return opts, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			l.logger.Warn("workshop lookup cache read", zap.String("key", key), zap.Error(err))
		}
	}

	list, err := l.workshops.ListByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNoWorkshopsOnDate
	}
	opts := make([]Option, 0, len(list))
	for _, w := range list {
		opts = append(opts, OptionFor(w))
	}

	if l.rdb != nil {
		data, _ := json.Marshal(opts)
		if err := l.rdb.Set(ctx, key, data, l.ttl).Err(); err != nil {
			l.logger.Warn("workshop lookup cache write", zap.String("key", key), zap.Error(err))
		}
	}
	return opts, nil
}

// InvalidateDate drops the cached options for date.
func (l *Lookup) InvalidateDate(ctx context.Context, date time.Time) error {
	if l.rdb == nil {
		return nil
	}
	return l.rdb.Del(ctx, CacheKey(date)).Err()
}
