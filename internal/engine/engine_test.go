package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"Mirror_Rank_Go/pkg/model"
)

type countingRecorder struct {
	records []model.ProbeOutcome
}

func (r *countingRecorder) Record(o model.ProbeOutcome) error {
	r.records = append(r.records, o)
	return nil
}

func makeEndpoints(n int) []model.Endpoint {
	eps := make([]model.Endpoint, n)
	for i := range eps {
		eps[i] = model.Endpoint{URL: fmt.Sprintf("https://mirror%02d.example/", i), Region: "test"}
	}
	return eps
}

func TestRunProducesOneOutcomePerEndpoint(t *testing.T) {
	eps := makeEndpoints(9)
	rec := &countingRecorder{}

	// Every third endpoint fails; failures must still yield an outcome.
	e := &Engine{
		Probe: func(ctx context.Context, ep model.Endpoint) model.ProbeOutcome {
			var idx int
			fmt.Sscanf(ep.URL, "https://mirror%02d.example/", &idx)
			if idx%3 == 0 {
				return model.ProbeOutcome{Endpoint: ep, Status: model.StatusUnreachable, Reason: "down"}
			}
			return model.ProbeOutcome{Endpoint: ep, Status: model.StatusSuccess, StatusCode: 200, BytesTransferred: 1, SpeedBps: 1}
		},
		Concurrency: 3,
		Recorder:    rec,
	}

	outcomes := e.Run(context.Background(), eps)
	if len(outcomes) != len(eps) {
		t.Fatalf("outcomes = %d, want %d", len(outcomes), len(eps))
	}
	if len(rec.records) != len(eps) {
		t.Errorf("recorded = %d, want %d", len(rec.records), len(eps))
	}
}

func TestRunPreservesCatalogOrder(t *testing.T) {
	eps := makeEndpoints(8)

	// Earlier endpoints finish later, so completion order is reversed;
	// the returned slice must still follow catalog order.
	e := &Engine{
		Probe: func(ctx context.Context, ep model.Endpoint) model.ProbeOutcome {
			var idx int
			fmt.Sscanf(ep.URL, "https://mirror%02d.example/", &idx)
			time.Sleep(time.Duration(len(eps)-idx) * 5 * time.Millisecond)
			return model.ProbeOutcome{Endpoint: ep, Status: model.StatusSuccess, StatusCode: 200, BytesTransferred: 1, SpeedBps: 1}
		},
		Concurrency: 8,
	}

	outcomes := e.Run(context.Background(), eps)
	if len(outcomes) != len(eps) {
		t.Fatalf("outcomes = %d, want %d", len(outcomes), len(eps))
	}
	for i, o := range outcomes {
		if o.Endpoint.URL != eps[i].URL {
			t.Errorf("outcomes[%d] = %s, want %s", i, o.Endpoint.URL, eps[i].URL)
		}
	}
}

func TestRunEnforcesBudget(t *testing.T) {
	eps := makeEndpoints(1)

	e := &Engine{
		Probe: func(ctx context.Context, ep model.Endpoint) model.ProbeOutcome {
			select {
			case <-ctx.Done():
				return model.ProbeOutcome{Endpoint: ep, Status: model.StatusUnreachable, Reason: ctx.Err().Error()}
			case <-time.After(5 * time.Second):
				return model.ProbeOutcome{Endpoint: ep, Status: model.StatusSuccess}
			}
		},
		Concurrency: 1,
		Budget:      20 * time.Millisecond,
	}

	start := time.Now()
	outcomes := e.Run(context.Background(), eps)
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("budget not enforced, run took %s", elapsed)
	}
	if len(outcomes) != 1 || outcomes[0].Status != model.StatusUnreachable {
		t.Fatalf("expected one unreachable outcome, got %+v", outcomes)
	}
}

func TestRunStopsDispatchOnCancel(t *testing.T) {
	eps := makeEndpoints(50)
	rec := &countingRecorder{}

	ctx, cancel := context.WithCancel(context.Background())
	probed := 0
	e := &Engine{
		Probe: func(ctx context.Context, ep model.Endpoint) model.ProbeOutcome {
			probed++
			if probed >= 3 {
				cancel()
			}
			return model.ProbeOutcome{Endpoint: ep, Status: model.StatusSuccess, StatusCode: 200, BytesTransferred: 1, SpeedBps: 1}
		},
		Concurrency: 1,
		Recorder:    rec,
	}

	outcomes := e.Run(ctx, eps)
	if len(outcomes) >= len(eps) {
		t.Fatalf("cancellation did not stop dispatch, got %d outcomes", len(outcomes))
	}
	// Outcomes collected before cancellation stay recorded and valid.
	if len(rec.records) != len(outcomes) {
		t.Errorf("recorded %d outcomes, returned %d", len(rec.records), len(outcomes))
	}
	for _, o := range outcomes {
		if o.Endpoint.URL == "" {
			t.Errorf("partial run returned an empty outcome: %+v", o)
		}
	}
}
