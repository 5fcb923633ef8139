package countcache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/festival-planner/app/internal/log"
	"github.com/festival-planner/app/internal/models"
)

var errStale = errors.New("count cache generation changed")

const (
	keyPrefix = "attendee:counts:"
	genPrefix = "attendee:gen:"
)

var _ Cache = (*Redis)(nil)

// Redis stores counts as JSON strings with a TTL.
type Redis struct {
	conn *redis.Client
	ttl  time.Duration
}

// NewRedis connects to addr and verifies the connection with PING.
func NewRedis(ctx context.Context, addr string, ttl time.Duration) (*Redis, error) {
	conn := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   0,
	})
	if err := conn.Ping(ctx).Err(); err != nil {
		conn.Close()
		return nil, err
	}
	return &Redis{conn: conn, ttl: ttl}, nil
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	return r.conn.Close()
}

func redisKey(day string) string {
	return keyPrefix + dayKey(day)
}

func genKey(day string) string {
	return genPrefix + dayKey(day)
}

func (r *Redis) Get(ctx context.Context, day string) (models.AttendeeCounts, bool) {
	raw, err := r.conn.Get(ctx, redisKey(day)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Error("count cache get failed", err, "day", dayKey(day))
		}
		return nil, false
	}
	var wire map[string]int
	if err := json.Unmarshal(raw, &wire); err != nil {
		log.Error("count cache entry corrupt", err, "day", dayKey(day))
		return nil, false
	}
	return models.ParseAttendeeCounts(wire), true
}

func (r *Redis) Generation(ctx context.Context, day string) uint64 {
	gen, err := r.conn.Get(ctx, genKey(day)).Uint64()
	if err != nil && !errors.Is(err, redis.Nil) {
		log.Error("count cache generation read failed", err, "day", dayKey(day))
	}
	return gen
}

// Set writes counts only while the day's generation still equals gen. The
// generation key is watched so an Invalidate racing the write aborts it.
func (r *Redis) Set(ctx context.Context, day string, gen uint64, counts models.AttendeeCounts) {
	data, err := json.Marshal(counts.StringKeys())
	if err != nil {
		return
	}
	gk := genKey(day)
	err = r.conn.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, gk).Uint64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return errStale
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, redisKey(day), data, r.ttl)
			return nil
		})
		return err
	}, gk)
	switch {
	case err == nil:
	case errors.Is(err, errStale), errors.Is(err, redis.TxFailedErr):
		log.Debug("count cache write dropped", "day", dayKey(day))
	default:
		log.Error("count cache set failed", err, "day", dayKey(day))
	}
}

func (r *Redis) Invalidate(ctx context.Context, days ...string) {
	keys := []string{redisKey("")}
	gens := []string{genKey("")}
	for _, d := range days {
		if d != "" {
			keys = append(keys, redisKey(d))
			gens = append(gens, genKey(d))
		}
	}
	_, err := r.conn.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, g := range gens {
			pipe.Incr(ctx, g)
		}
		pipe.Del(ctx, keys...)
		return nil
	})
	if err != nil {
		log.Error("count cache invalidate failed", err, "keys", len(keys))
	}
}
