package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/nils-braun/hanabi/service/internal/models"
	"github.com/redis/go-redis/v9"
)

// HistoryQueue is the Redis list committed turns are pushed onto.
const HistoryQueue = "hanabi:history"

// Redis keeps derived state in a hash per game with fields "len" and "state".
type Redis struct {
	Client *redis.Client
	TTL    time.Duration
}

// NewRedis connects to addr and pings the server.
func NewRedis(ctx context.Context, addr, password string, db int, ttl time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Redis{Client: client, TTL: ttl}, nil
}

func stateKey(gameID uuid.UUID) string { return "hanabi:state:" + gameID.String() }

func (r *Redis) Get(ctx context.Context, gameID uuid.UUID, logLen int) (*models.GameState, bool, error) {
	fields, err := r.Client.HGetAll(ctx, stateKey(gameID)).Result()
	if err != nil {
		return nil, false, fmt.Errorf("get cached state: %w", err)
	}
	if len(fields) == 0 {
		return nil, false, nil
	}
	n, err := strconv.Atoi(fields["len"])
	if err != nil || n != logLen {
		return nil, false, nil
	}
	var st models.GameState
	if err := json.Unmarshal([]byte(fields["state"]), &st); err != nil {
		return nil, false, fmt.Errorf("decode cached state: %w", err)
	}
	return &st, true, nil
}

func (r *Redis) Put(ctx context.Context, gameID uuid.UUID, logLen int, st *models.GameState) error {
	b, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	key := stateKey(gameID)
	_, err = r.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, "len", logLen, "state", string(b))
		if r.TTL > 0 {
			pipe.Expire(ctx, key, r.TTL)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache state: %w", err)
	}
	return nil
}

func (r *Redis) Invalidate(ctx context.Context, gameID uuid.UUID) error {
	if err := r.Client.Del(ctx, stateKey(gameID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("invalidate state: %w", err)
	}
	return nil
}

// PublishTurn pushes rec onto HistoryQueue for an external consumer.
func (r *Redis) PublishTurn(ctx context.Context, rec TurnRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode turn record: %w", err)
	}
	if err := r.Client.RPush(ctx, HistoryQueue, b).Err(); err != nil {
		return fmt.Errorf("publish turn: %w", err)
	}
	return nil
}

func (r *Redis) Close() error { return r.Client.Close() }
