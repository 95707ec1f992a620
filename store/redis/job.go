package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/plaza"
	"github.com/xraph/plaza/id"
	"github.com/xraph/plaza/job"
)

// dequeueScript claims up to ARGV[2] due jobs across the queue Sorted Sets
// in KEYS, lowest score first. ARGV: now (unix ms), limit, worker id,
// timestamp, job key prefix.
var dequeueScript = goredis.NewScript(`
local now = tonumber(ARGV[1])
local limit = tonumber(ARGV[2])
local cands = {}
for _, qk in ipairs(KEYS) do
	local members = redis.call('ZRANGE', qk, 0, -1, 'WITHSCORES')
	for i = 1, #members, 2 do
		local jid = members[i]
		local runAt = tonumber(redis.call('HGET', ARGV[5] .. jid, 'run_at_ms'))
		if runAt and runAt <= now then
			table.insert(cands, {id = jid, score = tonumber(members[i + 1]), queue = qk})
		end
	end
end
table.sort(cands, function(a, b)
	if a.score == b.score then return a.id < b.id end
	return a.score < b.score
end)
if limit <= 0 or limit > #cands then limit = #cands end
local out = {}
for i = 1, limit do
	local c = cands[i]
	redis.call('ZREM', c.queue, c.id)
	redis.call('HSET', ARGV[5] .. c.id,
		'state', 'RUNNING', 'worker_id', ARGV[3],
		'started_at', ARGV[4], 'heartbeat_at', ARGV[4],
		'settled_at', '', 'updated_at', ARGV[4])
	table.insert(out, c.id)
end
return out
`)

// heartbeatScript refreshes KEYS[1] only while it runs on worker ARGV[1].
var heartbeatScript = goredis.NewScript(`
if redis.call('HGET', KEYS[1], 'state') ~= 'RUNNING' then return 0 end
if redis.call('HGET', KEYS[1], 'worker_id') ~= ARGV[1] then return 0 end
redis.call('HSET', KEYS[1], 'heartbeat_at', ARGV[2], 'updated_at', ARGV[2])
return 1
`)

// EnqueueJob stores the job as a Hash and, when pending, adds it to its
// queue's Sorted Set.
func (s *Store) EnqueueJob(ctx context.Context, j *job.Job) error {
	jID := j.ID.String()
	key := jobKey(jID)

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("plaza/redis: enqueue check exists: %w", err)
	}
	if exists > 0 {
		return plaza.ErrJobAlreadyExists
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, jobToMap(j))
	pipe.ZAdd(ctx, jobIDsKey, goredis.Z{Score: float64(j.CreatedAt.UnixMicro()), Member: jID})
	pipe.SAdd(ctx, queuesKey, j.Queue)
	if j.State == job.StatePending {
		pipe.ZAdd(ctx, queueKey(j.Queue), goredis.Z{Score: jobScore(j.Priority, j.RunAt), Member: jID})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("plaza/redis: enqueue job: %w", err)
	}
	return nil
}

// DequeueJobs atomically claims up to limit due pending jobs for workerID.
// An empty queue list polls every known queue.
func (s *Store) DequeueJobs(ctx context.Context, queues []string, workerID id.WorkerID, limit int) ([]*job.Job, error) {
	if len(queues) == 0 {
		all, err := s.client.SMembers(ctx, queuesKey).Result()
		if err != nil {
			return nil, fmt.Errorf("plaza/redis: list queues: %w", err)
		}
		queues = all
	}
	if len(queues) == 0 {
		return nil, nil
	}

	keys := make([]string, len(queues))
	for i, q := range queues {
		keys[i] = queueKey(q)
	}

	now := time.Now().UTC()
	ids, err := dequeueScript.Run(ctx, s.client, keys,
		now.UnixMilli(), limit, workerID.String(), now.Format(time.RFC3339Nano), keyPrefix+"job:",
	).StringSlice()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("plaza/redis: dequeue jobs: %w", err)
	}

	jobs := make([]*job.Job, 0, len(ids))
	for _, jID := range ids {
		j, err := s.getJobByKey(ctx, jobKey(jID))
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}

// GetJob retrieves a job by ID.
func (s *Store) GetJob(ctx context.Context, jobID id.JobID) (*job.Job, error) {
	return s.getJobByKey(ctx, jobKey(jobID.String()))
}

// UpdateJob overwrites an existing job and moves it in or out of its
// queue according to its state.
func (s *Store) UpdateJob(ctx context.Context, j *job.Job) error {
	jID := j.ID.String()
	key := jobKey(jID)

	oldQueue, err := s.client.HGet(ctx, key, "queue").Result()
	if errors.Is(err, goredis.Nil) {
		return plaza.ErrJobNotFound
	}
	if err != nil {
		return fmt.Errorf("plaza/redis: update job: %w", err)
	}

	cp := *j
	cp.UpdatedAt = time.Now().UTC()

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, jobToMap(&cp))
	pipe.ZRem(ctx, queueKey(oldQueue), jID)
	if j.State == job.StatePending {
		pipe.SAdd(ctx, queuesKey, j.Queue)
		pipe.ZAdd(ctx, queueKey(j.Queue), goredis.Z{Score: jobScore(j.Priority, j.RunAt), Member: jID})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("plaza/redis: update job: %w", err)
	}
	return nil
}

// ListJobs returns jobs matching opts, oldest first.
func (s *Store) ListJobs(ctx context.Context, opts job.ListOpts) ([]*job.Job, error) {
	all, err := s.allJobs(ctx)
	if err != nil {
		return nil, err
	}

	var ids map[string]bool
	if len(opts.IDs) > 0 {
		ids = make(map[string]bool, len(opts.IDs))
		for _, jid := range opts.IDs {
			ids[jid.String()] = true
		}
	}

	var out []*job.Job
	for _, j := range all {
		if opts.State != "" && j.State != opts.State {
			continue
		}
		if opts.Name != "" && j.Name != opts.Name {
			continue
		}
		if opts.Queue != "" && j.Queue != opts.Queue {
			continue
		}
		if ids != nil && !ids[j.ID.String()] {
			continue
		}
		out = append(out, j)
	}

	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return nil, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

// CountJobs returns the number of jobs matching opts.
func (s *Store) CountJobs(ctx context.Context, opts job.CountOpts) (int64, error) {
	all, err := s.allJobs(ctx)
	if err != nil {
		return 0, err
	}

	var count int64
	for _, j := range all {
		if opts.Queue != "" && j.Queue != opts.Queue {
			continue
		}
		if opts.State != "" && j.State != opts.State {
			continue
		}
		if opts.Name != "" && j.Name != opts.Name {
			continue
		}
		count++
	}
	return count, nil
}

// HeartbeatJob updates the heartbeat of a job running on workerID.
func (s *Store) HeartbeatJob(ctx context.Context, jobID id.JobID, workerID id.WorkerID) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	ok, err := heartbeatScript.Run(ctx, s.client,
		[]string{jobKey(jobID.String())}, workerID.String(), now,
	).Int()
	if err != nil {
		return fmt.Errorf("plaza/redis: heartbeat job: %w", err)
	}
	if ok == 0 {
		return plaza.ErrJobNotFound
	}
	return nil
}

// ReapStaleJobs returns running jobs whose last heartbeat, or start time
// when none was recorded, is older than threshold.
func (s *Store) ReapStaleJobs(ctx context.Context, threshold time.Duration) ([]*job.Job, error) {
	all, err := s.allJobs(ctx)
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().UTC().Add(-threshold)
	var stale []*job.Job
	for _, j := range all {
		if j.State != job.StateRunning {
			continue
		}
		last := j.HeartbeatAt
		if last == nil {
			last = j.StartedAt
		}
		if last != nil && last.Before(cutoff) {
			stale = append(stale, j)
		}
	}
	return stale, nil
}

// RemoveSettledJobs deletes completed and failed jobs settled before the
// given time.
func (s *Store) RemoveSettledJobs(ctx context.Context, before time.Time) (int64, error) {
	all, err := s.allJobs(ctx)
	if err != nil {
		return 0, err
	}

	pipe := s.client.TxPipeline()
	var n int64
	for _, j := range all {
		if !j.State.Settled() || j.SettledAt == nil || !j.SettledAt.Before(before) {
			continue
		}
		jID := j.ID.String()
		pipe.Del(ctx, jobKey(jID))
		pipe.ZRem(ctx, jobIDsKey, jID)
		n++
	}
	if n == 0 {
		return 0, nil
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("plaza/redis: remove settled jobs: %w", err)
	}
	return n, nil
}

// allJobs loads every job in creation order.
func (s *Store) allJobs(ctx context.Context) ([]*job.Job, error) {
	ids, err := s.client.ZRange(ctx, jobIDsKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("plaza/redis: list job ids: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*goredis.MapStringStringCmd, len(ids))
	for i, jID := range ids {
		cmds[i] = pipe.HGetAll(ctx, jobKey(jID))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("plaza/redis: load jobs: %w", err)
	}

	jobs := make([]*job.Job, 0, len(ids))
	for _, cmd := range cmds {
		vals := cmd.Val()
		if len(vals) == 0 {
			continue
		}
		j, err := mapToJob(vals)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}

// jobScore computes a sorted-set score from priority and run_at.
// Lower score = dequeued first.
func jobScore(priority int, runAt time.Time) float64 {
	return float64(-priority) + float64(runAt.UnixMilli())/1e15
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}

func parseTime(v string) *time.Time {
	if v == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return nil
	}
	return &t
}

func jobToMap(j *job.Job) map[string]any {
	return map[string]any{
		"id":           j.ID.String(),
		"name":         j.Name,
		"queue":        j.Queue,
		"payload":      string(j.Payload),
		"state":        string(j.State),
		"progress":     strconv.Itoa(j.Progress),
		"result":       string(j.Result),
		"error":        j.Error,
		"attempts":     strconv.Itoa(j.Attempts),
		"max_retries":  strconv.Itoa(j.MaxRetries),
		"priority":     strconv.Itoa(j.Priority),
		"worker_id":    j.WorkerID.String(),
		"run_at":       j.RunAt.Format(time.RFC3339Nano),
		"run_at_ms":    strconv.FormatInt(j.RunAt.UnixMilli(), 10),
		"started_at":   formatTime(j.StartedAt),
		"settled_at":   formatTime(j.SettledAt),
		"heartbeat_at": formatTime(j.HeartbeatAt),
		"timeout":      strconv.FormatInt(int64(j.Timeout), 10),
		"created_at":   j.CreatedAt.Format(time.RFC3339Nano),
		"updated_at":   j.UpdatedAt.Format(time.RFC3339Nano),
	}
}

func (s *Store) getJobByKey(ctx context.Context, key string) (*job.Job, error) {
	vals, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("plaza/redis: get job: %w", err)
	}
	if len(vals) == 0 {
		return nil, plaza.ErrJobNotFound
	}
	return mapToJob(vals)
}

func mapToJob(m map[string]string) (*job.Job, error) {
	jID, err := id.ParseJobID(m["id"])
	if err != nil {
		return nil, fmt.Errorf("plaza/redis: parse job id: %w", err)
	}

	progress, _ := strconv.Atoi(m["progress"])           //nolint:errcheck // best-effort parse from trusted Redis data
	attempts, _ := strconv.Atoi(m["attempts"])           //nolint:errcheck // best-effort parse from trusted Redis data
	maxRetries, _ := strconv.Atoi(m["max_retries"])      //nolint:errcheck // best-effort parse from trusted Redis data
	priority, _ := strconv.Atoi(m["priority"])           //nolint:errcheck // best-effort parse from trusted Redis data
	timeout, _ := strconv.ParseInt(m["timeout"], 10, 64) //nolint:errcheck // best-effort parse from trusted Redis data

	j := &job.Job{
		ID:         jID,
		Name:       m["name"],
		Queue:      m["queue"],
		Payload:    []byte(m["payload"]),
		State:      job.State(m["state"]),
		Progress:   progress,
		Error:      m["error"],
		Attempts:   attempts,
		MaxRetries: maxRetries,
		Priority:   priority,
		Timeout:    time.Duration(timeout),

		StartedAt:   parseTime(m["started_at"]),
		SettledAt:   parseTime(m["settled_at"]),
		HeartbeatAt: parseTime(m["heartbeat_at"]),
	}
	if r := m["result"]; r != "" {
		j.Result = []byte(r)
	}
	if t := parseTime(m["run_at"]); t != nil {
		j.RunAt = *t
	}
	if t := parseTime(m["created_at"]); t != nil {
		j.CreatedAt = *t
	}
	if t := parseTime(m["updated_at"]); t != nil {
		j.UpdatedAt = *t
	}
	if wid := m["worker_id"]; wid != "" {
		j.WorkerID, _ = id.ParseWorkerID(wid) //nolint:errcheck // best-effort parse from trusted Redis data
	}

	return j, nil
}
