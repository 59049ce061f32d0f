package assignment

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"verza/internal/platform/redis"
	"verza/pkg/domain"
	domerrors "verza/pkg/domain-errors"
)

const queueKeyPrefix = "verza:queue:"

// RedisQueue is a QueueIndex over a sorted set per credential type. The score
// is orderAt in unix millis; the member embeds the zero-padded SLA deadline so
// redis's lexicographic tie-break on equal scores matches the earliest-SLA
// rule.
type RedisQueue struct {
	client *redis.Client
}

func NewRedisQueue(client *redis.Client) *RedisQueue {
	return &RedisQueue{client: client}
}

func queueKey(credType domain.CredentialType) string {
	return queueKeyPrefix + string(credType)
}

func queueMember(jobID domain.JobID, slaDeadline time.Time) string {
	return fmt.Sprintf("%016d:%s", slaDeadline.UnixMilli(), jobID)
}

func (q *RedisQueue) Enqueue(ctx context.Context, credType domain.CredentialType, jobID domain.JobID, orderAt, slaDeadline time.Time) error {
	err := q.client.ZAdd(ctx, queueKey(credType), goredis.Z{
		Score:  float64(orderAt.UnixMilli()),
		Member: queueMember(jobID, slaDeadline),
	}).Err()
	if err != nil {
		return domerrors.Wrap(err, domerrors.CodeAdapter, "queue enqueue failed")
	}
	return nil
}

func (q *RedisQueue) PopHead(ctx context.Context, credType domain.CredentialType) (domain.JobID, bool, error) {
	popped, err := q.client.ZPopMin(ctx, queueKey(credType), 1).Result()
	if err != nil {
		return domain.JobID{}, false, domerrors.Wrap(err, domerrors.CodeAdapter, "queue pop failed")
	}
	if len(popped) == 0 {
		return domain.JobID{}, false, nil
	}
	member, _ := popped[0].Member.(string)
	_, rawID, found := strings.Cut(member, ":")
	if !found {
		return domain.JobID{}, false, domerrors.Newf(domerrors.CodeInternal, "malformed queue member %q", member)
	}
	jobID, err := domain.ParseJobID(rawID)
	if err != nil {
		return domain.JobID{}, false, domerrors.Newf(domerrors.CodeInternal, "malformed queue member %q", member)
	}
	return jobID, true, nil
}

func (q *RedisQueue) Depth(ctx context.Context, credType domain.CredentialType) (int64, error) {
	depth, err := q.client.ZCard(ctx, queueKey(credType)).Result()
	if err != nil {
		return 0, domerrors.Wrap(err, domerrors.CodeAdapter, "queue depth failed")
	}
	return depth, nil
}
