package scheduler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"basegraph.app/trigger/internal/trigger"
)

const pendingKeyPrefix = "trigger:pending"

// PendingSet records which builds are queued but not yet started.
type PendingSet interface {
	// Acquire marks key as pending for owner. It reports false when the key
	// is already held.
	Acquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	// Release clears key if owner still holds it.
	Release(ctx context.Context, key, owner string) error
}

// PendingKey identifies equivalent requests of a job: same parameters and
// same revision.
func PendingKey(job string, req trigger.BuildRequest) string {
	names := make([]string, 0, len(req.Parameters))
	for name := range req.Parameters {
		names = append(names, name)
	}
	slices.Sort(names)

	h := sha256.New()
	for _, name := range names {
		fmt.Fprintf(h, "%s=%s\n", name, req.Parameters[name])
	}
	fmt.Fprintf(h, "revision=%s", req.RevisionID)

	return strings.Join([]string{pendingKeyPrefix, job, hex.EncodeToString(h.Sum(nil))[:32]}, ":")
}

// releaseScript deletes the key only when its value is the caller's owner id.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisPendingSet struct {
	client *redis.Client
}

func NewRedisPendingSet(client *redis.Client) *RedisPendingSet {
	return &RedisPendingSet{client: client}
}

func (s *RedisPendingSet) Acquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, key, owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("setnx %s: %w", key, err)
	}
	return ok, nil
}

func (s *RedisPendingSet) Release(ctx context.Context, key, owner string) error {
	if err := releaseScript.Run(ctx, s.client, []string{key}, owner).Err(); err != nil {
		return fmt.Errorf("releasing %s: %w", key, err)
	}
	return nil
}
