package shortlink

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shanehull/annrelay/internal/types"
)

const (
	redisKeyPrefix = "shortlink:"
	redisIndexKey  = "shortlink:index"
)

// RedisStore keeps each link in a hash and indexes codes by creation time in a
// sorted set so analytics can list them newest first.
type RedisStore struct {
	rdb redis.Cmdable
}

func NewRedisStore(rdb redis.Cmdable) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func linkKey(code string) string {
	return redisKeyPrefix + code
}

func (r *RedisStore) Create(ctx context.Context, link types.ShortLink) error {
	key := linkKey(link.ShortCode)

	ok, err := r.rdb.HSetNX(ctx, key, "url", link.OriginalURL).Result()
	if err != nil {
		return fmt.Errorf("failed to reserve short code %s: %w", link.ShortCode, err)
	}
	if !ok {
		return ErrCodeExists
	}

	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, map[string]any{
			"clicks":       link.Clicks,
			"created_at":   link.CreatedAt.UnixNano(),
			"stock_code":   link.Metadata.StockCode,
			"company_name": link.Metadata.CompanyName,
			"filing_type":  link.Metadata.FilingType,
		})
		pipe.ZAdd(ctx, redisIndexKey, redis.Z{Score: float64(link.CreatedAt.UnixNano()), Member: link.ShortCode})
		return nil
	})
	if err != nil {
		// release the reservation so the code is not left as an unindexed stub
		if delErr := r.rdb.Del(context.WithoutCancel(ctx), key).Err(); delErr != nil {
			err = errors.Join(err, delErr)
		}
		return fmt.Errorf("failed to save short link %s: %w", link.ShortCode, err)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, code string) (types.ShortLink, error) {
	fields, err := r.rdb.HGetAll(ctx, linkKey(code)).Result()
	if err != nil {
		return types.ShortLink{}, fmt.Errorf("failed to load short link %s: %w", code, err)
	}
	if len(fields) == 0 || fields["url"] == "" {
		return types.ShortLink{}, ErrNotFound
	}
	return decodeLink(code, fields), nil
}

func (r *RedisStore) IncrementClicks(ctx context.Context, code string) (int64, error) {
	n, err := r.rdb.Exists(ctx, linkKey(code)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to check short link %s: %w", code, err)
	}
	if n == 0 {
		return 0, ErrNotFound
	}

	clicks, err := r.rdb.HIncrBy(ctx, linkKey(code), "clicks", 1).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment clicks for %s: %w", code, err)
	}
	return clicks, nil
}

func (r *RedisStore) List(ctx context.Context) ([]types.ShortLink, error) {
	codes, err := r.rdb.ZRevRange(ctx, redisIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list short links: %w", err)
	}

	links := make([]types.ShortLink, 0, len(codes))
	for _, code := range codes {
		link, err := r.Get(ctx, code)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, nil
}

func decodeLink(code string, f map[string]string) types.ShortLink {
	clicks, _ := strconv.ParseInt(f["clicks"], 10, 64)
	created, _ := strconv.ParseInt(f["created_at"], 10, 64)

	return types.ShortLink{
		ShortCode:   code,
		OriginalURL: f["url"],
		Clicks:      clicks,
		CreatedAt:   time.Unix(0, created).UTC(),
		Metadata: types.LinkMetadata{
			StockCode:   f["stock_code"],
			CompanyName: f["company_name"],
			FilingType:  f["filing_type"],
		},
	}
}
