package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const jobLockPrefix = "farm_credit:job:"

// Deletes the key only while it still holds our token
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

// JobLock is a best effort mutual exclusion for scheduled jobs across
// replicas. The TTL bounds how long a crashed holder blocks the others.
type JobLock struct {
	client Cmdable
	ttl    time.Duration
}

func NewJobLock(client Cmdable, ttl time.Duration) *JobLock {
	return &JobLock{client: client, ttl: ttl}
}

// Acquire returns a release func when the lock was taken. ok is false when
// another holder owns it.
func (l *JobLock) Acquire(ctx context.Context, job string) (release func(context.Context) error, ok bool, err error) {
	key := jobLockPrefix + job
	token := uuid.NewString()

	ok, err = l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire lock for job %s: %w", job, err)
	}
	if !ok {
		return nil, false, nil
	}

	release = func(ctx context.Context) error {
		if err := l.client.Eval(ctx, releaseScript, []string{key}, token).Err(); err != nil {
			return fmt.Errorf("failed to release lock for job %s: %w", job, err)
		}
		return nil
	}
	return release, true, nil
}
