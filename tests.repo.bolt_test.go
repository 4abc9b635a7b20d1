package main

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newTestBoltArchive returns a new archive storage in a temporary path.
func newTestBoltArchive() (*boltArchiveStorage, error) {
	f, err := os.CreateTemp("", "tmp.bolt.db-")
	if err != nil {
		return nil, err
	}
	f.Close()
	config := &BoltDBConfig{
		FilePath:   f.Name(),
		Timeout:    5 * time.Second,
		BucketName: "test.requests",
	}

	client, err := GetBoltDBClient(config)
	if err != nil {
		return nil, err
	}
	return NewBoltArchiveStorage(zap.NewNop(), config, client), nil
}

// closeTestBoltArchive closes the temporary bolt store and removes the underlying data file.
func (bs *boltArchiveStorage) closeTestBoltArchive() error {
	defer os.Remove(bs.config.FilePath)
	return bs.Close()
}

// Ensure bolt archive can store requests and lists them newest first.
func TestBoltArchive_AddAndGetAll(t *testing.T) {
	bs, err := newTestBoltArchive()
	require.NoError(t, err, "failed in creating a test bolt archive")
	defer bs.closeTestBoltArchive()
	ctx := context.TODO()

	views, err := bs.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, views)

	for _, id := range []int64{2, 10, 1} {
		require.NoError(t, bs.Add(ctx, RequestView{RequestID: id, Title: "Bolt test book title"}))
	}
	// archiving twice keeps a single copy.
	require.NoError(t, bs.Add(ctx, RequestView{RequestID: 2, Title: "Updated title"}))

	views, err = bs.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, views, 3)
	assert.Equal(t, int64(10), views[0].RequestID)
	assert.Equal(t, int64(2), views[1].RequestID)
	assert.Equal(t, "Updated title", views[1].Title)
	assert.Equal(t, int64(1), views[2].RequestID)
}

// Ensure bolt archive rejects requests without a valid id.
func TestBoltArchive_AddInvalidID(t *testing.T) {
	bs, err := newTestBoltArchive()
	require.NoError(t, err, "failed in creating a test bolt archive")
	defer bs.closeTestBoltArchive()

	assert.Error(t, bs.Add(context.TODO(), RequestView{RequestID: 0}))
	assert.Error(t, bs.Add(context.TODO(), RequestView{RequestID: -3}))
}

// Ensure the consumer moves queued requests into the archive until cancelled.
func TestArchiveConsumer_Consume(t *testing.T) {
	bs, err := newTestBoltArchive()
	require.NoError(t, err, "failed in creating a test bolt archive")
	defer bs.closeTestBoltArchive()

	queued := make(chan RequestView, 2)
	queued <- RequestView{RequestID: 1, Title: "Emma"}
	queued <- RequestView{RequestID: 2, Title: "Ulysses"}
	queue := &MockQueuer{
		PopFunc: func(ctx context.Context, qids ...string) (string, RequestView, error) {
			select {
			case v := <-queued:
				return qids[0], v, nil
			case <-ctx.Done():
				return "", RequestView{}, ctx.Err()
			}
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- NewArchiveConsumer(zap.NewNop(), queue, bs).Consume(ctx, ArchiveQueue)
	}()

	require.Eventually(t, func() bool {
		views, err := bs.GetAll(context.TODO())
		return err == nil && len(views) == 2
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop after cancellation")
	}
}

// Ensure a failing queue is retried with a growing delay and the wait honors cancellation.
func TestArchiveConsumer_PopFailureBackoff(t *testing.T) {
	var calls atomic.Int32
	queue := &MockQueuer{
		PopFunc: func(ctx context.Context, qids ...string) (string, RequestView, error) {
			calls.Add(1)
			return "", RequestView{}, errors.New("connection refused")
		},
	}
	consumer := &archiveConsumer{
		logger:     zap.NewNop(),
		queue:      queue,
		repo:       &MockArchiveStorage{},
		minBackoff: 20 * time.Millisecond,
		maxBackoff: 40 * time.Millisecond,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	start := time.Now()
	require.NoError(t, consumer.Consume(ctx, ArchiveQueue))
	assert.Less(t, time.Since(start), time.Second)

	// pops at about 0, 20, 60, 100, 140 and 180 ms.
	n := calls.Load()
	assert.GreaterOrEqual(t, n, int32(3))
	assert.LessOrEqual(t, n, int32(10))
}

func TestNopQueue(t *testing.T) {
	q := nopQueue{}
	assert.NoError(t, q.Push(context.TODO(), ArchiveQueue, RequestView{RequestID: 1}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, _, err := q.Pop(ctx, ArchiveQueue)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
