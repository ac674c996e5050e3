package stats

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oraculo-ai/oraculo/internal/sources"
)

// RedisStore persists source stats in a Redis hash per source so multiple
// workers share one view of provider behaviour.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func statsKey(source sources.Name) string {
	return fmt.Sprintf("oraculo:stats:%s", source)
}

func (r *RedisStore) Record(ctx context.Context, source sources.Name, success bool, latency time.Duration, quality float64) error {
	key := statsKey(source)
	pipe := r.client.TxPipeline()
	pipe.HIncrBy(ctx, key, "total_uses", 1)
	pipe.HIncrBy(ctx, key, "latency_sum_ns", latency.Nanoseconds())
	if success {
		pipe.HIncrBy(ctx, key, "successes", 1)
		pipe.HIncrByFloat(ctx, key, "quality_sum", quality)
	} else {
		pipe.HIncrBy(ctx, key, "failures", 1)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisStore) Snapshot(ctx context.Context) (Snapshot, error) {
	snap := make(Snapshot)
	for _, source := range sources.All() {
		fields, err := r.client.HGetAll(ctx, statsKey(source)).Result()
		if err != nil {
			return nil, err
		}
		if len(fields) == 0 {
			continue
		}
		rec := record{
			totalUses:  parseInt(fields["total_uses"]),
			successes:  parseInt(fields["successes"]),
			failures:   parseInt(fields["failures"]),
			latencySum: time.Duration(parseInt(fields["latency_sum_ns"])),
			qualitySum: parseFloat(fields["quality_sum"]),
		}
		snap[source] = rec.stats()
	}
	return snap, nil
}

func (r *RedisStore) Decay(ctx context.Context, factor float64) error {
	if factor <= 0 || factor >= 1 {
		return nil
	}
	for _, source := range sources.All() {
		key := statsKey(source)
		fields, err := r.client.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		if len(fields) == 0 {
			continue
		}
		_, err = r.client.HSet(ctx, key,
			"total_uses", int64(float64(parseInt(fields["total_uses"]))*factor),
			"successes", int64(float64(parseInt(fields["successes"]))*factor),
			"failures", int64(float64(parseInt(fields["failures"]))*factor),
			"latency_sum_ns", int64(float64(parseInt(fields["latency_sum_ns"]))*factor),
			"quality_sum", parseFloat(fields["quality_sum"])*factor,
		).Result()
		if err != nil {
			return err
		}
	}
	return nil
}

func parseInt(s string) int64 {
	v, _ := strconv.ParseInt(s, 10, 64)
	return v
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
