package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"doc-translator/internal/backend"
	"doc-translator/internal/domain"
)

// scriptedStatus replays a fixed sequence of status responses.
type scriptedStatus struct {
	responses []backend.StatusResponse
	errs      []error
	calls     int
}

func (s *scriptedStatus) Status(ctx context.Context, jobID string) (backend.StatusResponse, error) {
	idx := s.calls
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	s.calls++
	var err error
	if idx < len(s.errs) {
		err = s.errs[idx]
	}
	return s.responses[idx], err
}

func intp(v int) *int { return &v }

type observation struct {
	progress int
	key      string
}

func runPoller(t *testing.T, client StatusClient) ([]observation, error) {
	t.Helper()
	poller := NewPoller(client, time.Millisecond, time.Second)
	var seen []observation
	err := poller.Run(context.Background(), "task-1", func(progress int, key string) {
		seen = append(seen, observation{progress, key})
	})
	return seen, err
}

func TestPollerSimulatedProgressStopsAtCeiling(t *testing.T) {
	responses := make([]backend.StatusResponse, 25)
	for i := range responses {
		responses[i] = backend.StatusResponse{Status: "processing"}
	}
	responses[len(responses)-1] = backend.StatusResponse{Status: "done"}

	seen, err := runPoller(t, &scriptedStatus{responses: responses})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Simulated progress advances by a fixed step and never claims
	// completion on its own.
	for _, obs := range seen[:len(seen)-1] {
		if obs.progress > simulatedCeiling {
			t.Fatalf("simulated progress %d exceeded ceiling", obs.progress)
		}
	}
	last := seen[len(seen)-1]
	if last.progress != 100 || last.key != "status_complete" {
		t.Fatalf("terminal observation = %+v", last)
	}
}

func TestPollerRealProgressSupersedesSimulated(t *testing.T) {
	seen, err := runPoller(t, &scriptedStatus{responses: []backend.StatusResponse{
		{Status: "processing"},
		{Status: "running", Progress: intp(40)},
		{Status: "running"},
		{Status: "running", Progress: intp(55)},
		{Status: "done", Progress: intp(100)},
	}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []observation{
		{simulatedStep, "status_processing"},
		{40, "status_in_progress"},
		{40, "status_in_progress"},
		{55, "status_in_progress"},
		{100, "status_complete"},
	}
	if len(seen) != len(want) {
		t.Fatalf("observations = %+v", seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("observation %d = %+v, want %+v", i, seen[i], want[i])
		}
	}
}

func TestPollerMonotonicAgainstRegression(t *testing.T) {
	seen, err := runPoller(t, &scriptedStatus{responses: []backend.StatusResponse{
		{Status: "running", Progress: intp(30)},
		{Status: "running", Progress: intp(22)},
		{Status: "done"},
	}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if seen[1].progress != 30 {
		t.Fatalf("regressed value displayed: %+v", seen[1])
	}
}

func TestPollerUnknownStatusFallsBack(t *testing.T) {
	seen, err := runPoller(t, &scriptedStatus{responses: []backend.StatusResponse{
		{Status: "reticulating"},
		{Status: "done"},
	}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if seen[0].key != "status_processing" {
		t.Fatalf("unknown status mapped to %q", seen[0].key)
	}
}

func TestPollerTerminalFailure(t *testing.T) {
	_, err := runPoller(t, &scriptedStatus{responses: []backend.StatusResponse{
		{Status: "processing"},
		{Status: "failed"},
	}})
	if err == nil {
		t.Fatal("Run succeeded, want terminal failure error")
	}
}

func TestPollerStatusErrorReturnedRaw(t *testing.T) {
	cause := errors.New("connection refused")
	_, err := runPoller(t, &scriptedStatus{
		responses: []backend.StatusResponse{{}},
		errs:      []error{cause},
	})
	if !errors.Is(err, cause) {
		t.Fatalf("Run error = %v, want raw cause", err)
	}
}

func TestPollerTimeout(t *testing.T) {
	client := &scriptedStatus{responses: []backend.StatusResponse{{Status: "processing"}}}
	poller := NewPoller(client, time.Millisecond, 20*time.Millisecond)

	err := poller.Run(context.Background(), "task-1", func(int, string) {})
	if !errors.Is(err, domain.ErrPollTimeout) {
		t.Fatalf("Run error = %v, want ErrPollTimeout", err)
	}
}

func TestPollerContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := &scriptedStatus{responses: []backend.StatusResponse{{Status: "processing"}}}
	poller := NewPoller(client, time.Hour, time.Hour)

	err := poller.Run(ctx, "task-1", func(int, string) {})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
}

func TestStatusKeyForIsTotal(t *testing.T) {
	if got := StatusKeyFor("queued"); got != "status_starting" {
		t.Fatalf("queued -> %q", got)
	}
	if got := StatusKeyFor(""); got != "status_processing" {
		t.Fatalf("empty -> %q", got)
	}
}
