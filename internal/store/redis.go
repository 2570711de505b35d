package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"

	"socsim/pkg/models"
)

// RedisConfig configures Redis access for incident persistence.
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	KeyPrefix    string
	MaxIncidents int64
	TTL          time.Duration
}

// RedisStore keeps incidents as JSON hashes with sorted-set indexes for
// the timeline, each source IP and each attack type.
type RedisStore struct {
	client *redis.Client
	prefix string
	max    int64
	ttl    time.Duration
}

// NewRedisStore constructs a Redis-backed incident store.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		cfg.Addr = "127.0.0.1:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis store: %w", err)
	}

	return NewRedisStoreWithClient(client, cfg), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, cfg RedisConfig) *RedisStore {
	if strings.TrimSpace(cfg.KeyPrefix) == "" {
		cfg.KeyPrefix = "socsim:incidents"
	}
	if cfg.MaxIncidents <= 0 {
		cfg.MaxIncidents = 10000
	}
	return &RedisStore{
		client: client,
		prefix: strings.TrimSpace(cfg.KeyPrefix),
		max:    cfg.MaxIncidents,
		ttl:    cfg.TTL,
	}
}

// Save writes the incident hash and updates every index in one pipeline.
func (s *RedisStore) Save(ctx context.Context, inc *models.EnrichedIncident) (string, error) {
	if inc == nil || inc.Incident == nil {
		return "", ErrNotFound
	}
	if inc.StoreID == "" {
		inc.StoreID = uuid.NewString()
	}

	payload, err := json.Marshal(inc)
	if err != nil {
		return "", fmt.Errorf("marshal incident %s: %w", inc.Incident.IncidentID, err)
	}

	id := inc.Incident.IncidentID
	ts := inc.Incident.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	member := redis.Z{Score: float64(ts.UnixMilli()), Member: id}

	pipe := s.client.TxPipeline()
	key := s.incidentKey(id)
	pipe.HSet(ctx, key,
		"store_id", inc.StoreID,
		"attack_type", string(inc.Incident.AttackType),
		"source_ip", inc.Incident.SourceIP,
		"payload", payload,
	)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	pipe.ZAdd(ctx, s.timelineKey(), member)
	pipe.ZAdd(ctx, s.typeKey(inc.Incident.AttackType), member)
	if inc.Incident.SourceIP != "" {
		pipe.ZAdd(ctx, s.sourceKey(inc.Incident.SourceIP), member)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("save incident %s: %w", id, err)
	}
	if err := s.trim(ctx); err != nil {
		return "", err
	}
	return inc.StoreID, nil
}

// trim drops incidents beyond the cap, oldest first, together with their
// hash and their type and source-IP index entries.
func (s *RedisStore) trim(ctx context.Context) error {
	stale, err := s.client.ZRange(ctx, s.timelineKey(), 0, -s.max-1).Result()
	if err != nil {
		return fmt.Errorf("read trimmed incidents: %w", err)
	}
	if len(stale) == 0 {
		return nil
	}

	read := s.client.Pipeline()
	fields := make([]*redis.SliceCmd, len(stale))
	for i, id := range stale {
		fields[i] = read.HMGet(ctx, s.incidentKey(id), "attack_type", "source_ip")
	}
	if _, err := read.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("read trimmed incident fields: %w", err)
	}

	pipe := s.client.TxPipeline()
	for i, id := range stale {
		vals, _ := fields[i].Result()
		if len(vals) == 2 {
			if t, ok := vals[0].(string); ok && t != "" {
				pipe.ZRem(ctx, s.typeKey(models.AttackType(t)), id)
			}
			if ip, ok := vals[1].(string); ok && ip != "" {
				pipe.ZRem(ctx, s.sourceKey(ip), id)
			}
		}
		pipe.Del(ctx, s.incidentKey(id))
		pipe.ZRem(ctx, s.timelineKey(), id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("trim incidents: %w", err)
	}
	return nil
}

// Get returns the incident with the given id.
func (s *RedisStore) Get(ctx context.Context, incidentID string) (*models.EnrichedIncident, error) {
	raw, err := s.client.HGet(ctx, s.incidentKey(incidentID), "payload").Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read incident %s: %w", incidentID, err)
	}
	return decodeIncident(raw)
}

// Recent returns up to limit incidents from the timeline, newest first.
func (s *RedisStore) Recent(ctx context.Context, limit int) ([]*models.EnrichedIncident, error) {
	if limit <= 0 {
		limit = 50
	}
	ids, err := s.client.ZRevRange(ctx, s.timelineKey(), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read incident timeline: %w", err)
	}
	return s.load(ctx, ids)
}

// Related merges the source-IP and attack-type indexes, newest first.
func (s *RedisStore) Related(ctx context.Context, inc *models.Incident, limit int) ([]*models.EnrichedIncident, error) {
	if inc == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	keys := []string{s.typeKey(inc.AttackType)}
	if inc.SourceIP != "" {
		keys = append(keys, s.sourceKey(inc.SourceIP))
	}

	scores := make(map[string]float64)
	for _, key := range keys {
		members, err := s.client.ZRevRangeWithScores(ctx, key, 0, int64(limit)).Result()
		if err != nil {
			return nil, fmt.Errorf("read related index %s: %w", key, err)
		}
		for _, z := range members {
			id, ok := z.Member.(string)
			if !ok || id == "" || id == inc.IncidentID {
				continue
			}
			scores[id] = z.Score
		}
	}

	ids := make([]string, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if scores[ids[i]] == scores[ids[j]] {
			return ids[i] > ids[j]
		}
		return scores[ids[i]] > scores[ids[j]]
	})
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return s.load(ctx, ids)
}

// Query loads the whole timeline, which MaxIncidents bounds, and pages it.
func (s *RedisStore) Query(ctx context.Context, f Filter) (*Page, error) {
	rows, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	return paginate(rows, f), nil
}

// Summary aggregates every incident on the timeline.
func (s *RedisStore) Summary(ctx context.Context, now time.Time) (*Summary, error) {
	rows, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	return summarize(rows, now), nil
}

// UpdateStatus rewrites the stored payload with the new status.
func (s *RedisStore) UpdateStatus(ctx context.Context, incidentID, status string, now time.Time) (*models.EnrichedIncident, error) {
	if !validStatus(status) {
		return nil, ErrInvalidStatus
	}
	row, err := s.Get(ctx, incidentID)
	if err != nil {
		return nil, err
	}
	updated := withStatus(row, status, now)
	payload, err := json.Marshal(updated)
	if err != nil {
		return nil, fmt.Errorf("marshal incident %s: %w", incidentID, err)
	}
	if err := s.client.HSet(ctx, s.incidentKey(incidentID), "payload", payload).Err(); err != nil {
		return nil, fmt.Errorf("update incident %s: %w", incidentID, err)
	}
	return updated, nil
}

func (s *RedisStore) all(ctx context.Context) ([]*models.EnrichedIncident, error) {
	ids, err := s.client.ZRevRange(ctx, s.timelineKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read incident timeline: %w", err)
	}
	return s.load(ctx, ids)
}

// Close closes Redis resources.
func (s *RedisStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

// load fetches payloads in one pipeline, skipping ids that expired.
func (s *RedisStore) load(ctx context.Context, ids []string) ([]*models.EnrichedIncident, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGet(ctx, s.incidentKey(id), "payload")
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("load incidents: %w", err)
	}

	out := make([]*models.EnrichedIncident, 0, len(ids))
	for _, cmd := range cmds {
		raw, err := cmd.Result()
		if err != nil {
			continue
		}
		inc, err := decodeIncident(raw)
		if err != nil {
			continue
		}
		out = append(out, inc)
	}
	return out, nil
}

func decodeIncident(raw string) (*models.EnrichedIncident, error) {
	var inc models.EnrichedIncident
	if err := json.Unmarshal([]byte(raw), &inc); err != nil {
		return nil, fmt.Errorf("decode incident: %w", err)
	}
	return &inc, nil
}

func (s *RedisStore) incidentKey(id string) string {
	return s.prefix + ":incident:" + id
}

func (s *RedisStore) timelineKey() string {
	return s.prefix + ":timeline"
}

func (s *RedisStore) typeKey(t models.AttackType) string {
	return s.prefix + ":type:" + string(t)
}

func (s *RedisStore) sourceKey(ip string) string {
	return s.prefix + ":ip:" + ip
}
