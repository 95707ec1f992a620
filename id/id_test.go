package id_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/xraph/plaza/id"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		newFn  func() id.ID
		parse  func(string) (id.ID, error)
		prefix string
	}{
		{"JobID", id.NewJobID, id.ParseJobID, "job_"},
		{"WorkerID", id.NewWorkerID, id.ParseWorkerID, "wkr_"},
		{"PluginID", id.NewPluginID, id.ParsePluginID, "plg_"},
		{"TaskID", id.NewTaskID, id.ParseTaskID, "task_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := tt.newFn()
			if !strings.HasPrefix(original.String(), tt.prefix) {
				t.Fatalf("expected prefix %q, got %q", tt.prefix, original.String())
			}
			parsed, err := tt.parse(original.String())
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if parsed.String() != original.String() {
				t.Errorf("round-trip mismatch: %q != %q", parsed.String(), original.String())
			}
		})
	}
}

func TestCrossTypeRejection(t *testing.T) {
	if _, err := id.ParseJobID(id.NewWorkerID().String()); err == nil {
		t.Error("ParseJobID accepted a worker ID")
	}
	if _, err := id.ParseWorkerID(id.NewJobID().String()); err == nil {
		t.Error("ParseWorkerID accepted a job ID")
	}
	if _, err := id.ParseTaskID(id.NewPluginID().String()); err == nil {
		t.Error("ParseTaskID accepted a plugin ID")
	}
}

func TestParseInvalid(t *testing.T) {
	for _, in := range []string{"", "job_", "not an id", "job_!!!"} {
		if _, err := id.Parse(in); err == nil {
			t.Errorf("Parse(%q): expected error", in)
		}
	}
}

func TestNilID(t *testing.T) {
	var i id.ID
	if !i.IsNil() {
		t.Error("zero-value ID should be nil")
	}
	if i.String() != "" || i.Prefix() != "" {
		t.Errorf("nil ID rendered as %q / %q", i.String(), i.Prefix())
	}
	v, err := i.Value()
	if err != nil || v != nil {
		t.Errorf("Value() = %v, %v; want nil, nil", v, err)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	type holder struct {
		Job    id.JobID    `json:"job"`
		Worker id.WorkerID `json:"worker"`
	}
	in := holder{Job: id.NewJobID()}

	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out holder
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Job.String() != in.Job.String() {
		t.Errorf("job = %q, want %q", out.Job, in.Job)
	}
	if !out.Worker.IsNil() {
		t.Errorf("worker = %q, want nil", out.Worker)
	}
}

func TestScan(t *testing.T) {
	original := id.NewJobID()

	var fromString, fromBytes, fromNil id.ID
	if err := fromString.Scan(original.String()); err != nil {
		t.Fatalf("Scan(string): %v", err)
	}
	if err := fromBytes.Scan([]byte(original.String())); err != nil {
		t.Fatalf("Scan([]byte): %v", err)
	}
	if err := fromNil.Scan(nil); err != nil {
		t.Fatalf("Scan(nil): %v", err)
	}
	if fromString.String() != original.String() || fromBytes.String() != original.String() {
		t.Errorf("scanned IDs differ from %q", original)
	}
	if !fromNil.IsNil() {
		t.Error("Scan(nil) should produce the nil ID")
	}
	if err := fromNil.Scan(42); err == nil {
		t.Error("Scan(int) should fail")
	}
}

func TestUniqueness(t *testing.T) {
	a := id.NewJobID()
	b := id.NewJobID()
	if a.String() == b.String() {
		t.Errorf("two consecutive NewJobID() calls returned %q", a)
	}
}
