package redis

// All keys are prefixed with "plaza:" to avoid collisions.
const keyPrefix = "plaza:"

// jobKey returns the Hash key for a job: plaza:job:{id}
func jobKey(id string) string { return keyPrefix + "job:" + id }

// queueKey returns the Sorted Set key of pending jobs: plaza:queue:{name}
func queueKey(name string) string { return keyPrefix + "queue:" + name }

// jobIDsKey is the Sorted Set of all job IDs scored by creation time.
const jobIDsKey = keyPrefix + "job_ids"

// queuesKey is the Set of every queue name seen.
const queuesKey = keyPrefix + "queues"
