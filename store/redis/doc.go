// Package redis implements store.Store on Redis for deployments that
// already run Redis and want no SQL database for background jobs. Jobs are
// Hashes, each queue is a Sorted Set of pending job IDs ordered by
// priority then run time, and a Lua script claims due jobs atomically.
// Plugin entities are not supported and MigrateEntities is a no-op.
//
// Usage:
//
//	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	s := redisstore.New(client)
//	if err := s.Ping(ctx); err != nil { ... }
package redis
