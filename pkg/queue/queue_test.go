package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newQueue(t *testing.T) (*Queue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewQueue(rdb, nil), mr
}

func TestEnqueueDequeue(t *testing.T) {
	ctx := context.Background()
	q, _ := newQueue(t)
	orgID := uuid.New()

	require.NoError(t, q.EnqueueLogoCleanup(ctx, orgID))

	job, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, JobTypeLogoCleanup, job.Type)
	var p LogoCleanupPayload
	require.NoError(t, json.Unmarshal(job.Payload, &p))
	assert.Equal(t, orgID, p.OrganizationID)
}

func TestDequeue_SkipsGarbage(t *testing.T) {
	ctx := context.Background()
	q, mr := newQueue(t)
	_, err := mr.Lpush(QueueJobs, "not json")
	require.NoError(t, err)

	job, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestRetry_MovesToDLQ(t *testing.T) {
	ctx := context.Background()
	q, mr := newQueue(t)
	job, err := q.Enqueue(ctx, JobTypeLogoCleanup, LogoCleanupPayload{OrganizationID: uuid.New()})
	require.NoError(t, err)
	mr.Del(QueueJobs)

	for i := 1; i < MaxRetries; i++ {
		require.NoError(t, q.Retry(ctx, job))
	}
	list, err := mr.List(QueueJobs)
	require.NoError(t, err)
	assert.Len(t, list, MaxRetries-1)
	assert.False(t, mr.Exists(QueueDLQ))

	require.NoError(t, q.Retry(ctx, job))
	dlq, err := mr.List(QueueDLQ)
	require.NoError(t, err)
	assert.Len(t, dlq, 1)
}
