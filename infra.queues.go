package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ArchiveQueue is the default queue id carrying submitted requests.
const ArchiveQueue = "requests.archive"

var (
	_ Queuer = (*redisQueue)(nil)
	_ Queuer = nopQueue{}
)

// Queuer describes a queue of submitted requests.
type Queuer interface {
	Push(ctx context.Context, qid string, view RequestView) error
	Pop(ctx context.Context, qids ...string) (string, RequestView, error)
}

// redisQueue represents a redis list based queue which implements the Queuer interface.
type redisQueue struct {
	client *redis.Client
}

func NewRedisQueue(client *redis.Client) Queuer {
	return &redisQueue{client: client}
}

// GetRedisClient provides a ready to use redis client.
func GetRedisClient(config *RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", config.Host, config.Port),
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		PoolSize:     config.PoolSize,
		PoolTimeout:  config.PoolTimeout,
		Password:     config.Password,
		Username:     config.Username,
		DB:           config.DatabaseIndex,
	})

	if pong, err := client.Ping(context.Background()).Result(); pong != "PONG" || err != nil {
		return client, fmt.Errorf("test connection failed: %v", err)
	}
	return client, nil
}

// Push enqueues a request onto the queue identified by qid.
func (q *redisQueue) Push(ctx context.Context, qid string, view RequestView) error {
	data, err := json.Marshal(view)
	if err != nil {
		return err
	}
	return q.client.RPush(ctx, qid, data).Err()
}

// Pop blocks until a request is available on one of the queues and returns it.
func (q *redisQueue) Pop(ctx context.Context, qids ...string) (string, RequestView, error) {
	var view RequestView
	infos, err := q.client.BLPop(ctx, 0*time.Second, qids...).Result()
	if err != nil {
		return "", view, err
	}

	if err = json.Unmarshal([]byte(infos[1]), &view); err != nil {
		return "", view, err
	}
	return infos[0], view, nil
}

// nopQueue drops everything. It is used when the archive is disabled.
type nopQueue struct{}

func (nopQueue) Push(context.Context, string, RequestView) error { return nil }

func (nopQueue) Pop(ctx context.Context, _ ...string) (string, RequestView, error) {
	<-ctx.Done()
	return "", RequestView{}, ctx.Err()
}
