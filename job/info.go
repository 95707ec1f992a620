package job

import (
	"encoding/json"
	"time"
)

// Info is the public view of a job exposed as JobInfo.
type Info struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	State    State           `json:"state"`
	Progress int             `json:"progress"`
	Result   json.RawMessage `json:"result,omitempty"`
	Started  *time.Time      `json:"started,omitempty"`
	Ended    *time.Time      `json:"ended,omitempty"`

	// Duration in milliseconds.
	Duration int64 `json:"duration"`
}

// ToInfo converts j to its public view. now is used for the duration of
// jobs still running.
func ToInfo(j *Job, now time.Time) *Info {
	info := &Info{
		ID:       j.ID.String(),
		Name:     j.Name,
		State:    j.State,
		Progress: j.Progress,
		Started:  cloneTime(j.StartedAt),
		Duration: j.Duration(now).Milliseconds(),
	}
	if j.State.Settled() {
		info.Ended = cloneTime(j.SettledAt)
	}
	if len(j.Result) > 0 {
		info.Result = append(json.RawMessage(nil), j.Result...)
	}
	return info
}

// ListInput filters Query.jobs. Zero values mean no filter; Take 0 means no
// limit.
type ListInput struct {
	State *State   `json:"state,omitempty"`
	IDs   []string `json:"ids,omitempty"`
	Name  string   `json:"name,omitempty"`
	Skip  int      `json:"skip,omitempty"`
	Take  int      `json:"take,omitempty"`
}
