package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/beacon/internal/incident"
)

func newTestService(store *mockStore, history History) *Service {
	dispatcher := NewDispatcher(&mockSMS{}, &mockEmail{}, fullDirectory(), log.Nop())
	auditor := NewAuditor(&mockAuditStore{}, log.Nop(), nil)
	engine := NewEngine(store, history, dispatcher, auditor, nil, log.Nop(), nil)
	return NewService(store, engine, log.Nop(), nil)
}

// waitForSettled polls until the incident leaves its transient statuses.
func waitForSettled(t *testing.T, store *mockStore, id string) *incident.Incident {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		inc, ok, err := store.Get(context.Background(), id)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if ok && inc.Status != incident.StatusProcessing && inc.Status != incident.StatusAnalyzing {
			return inc
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("incident %s never settled", id)
	return nil
}

func TestSubmit_MissingFields(t *testing.T) {
	t.Parallel()

	svc := newTestService(newMockStore(), &mockHistory{})

	_, err := svc.Submit(context.Background(), &incident.Submission{IndicatorValue: "+123"})
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != "indicator_type" {
		t.Errorf("err = %v, want validation error on indicator_type", err)
	}

	_, err = svc.Submit(context.Background(), &incident.Submission{IndicatorType: "phone"})
	if !errors.As(err, &ve) || ve.Field != "indicator_value" {
		t.Errorf("err = %v, want validation error on indicator_value", err)
	}
}

func TestSubmit_AcceptsAndRuns(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	svc := newTestService(store, &mockHistory{})

	sr, err := svc.Submit(context.Background(), &incident.Submission{
		IndicatorType:  "phone",
		IndicatorValue: "+1234567890",
		Source:         "tip_line",
		Metadata:       map[string]string{"region": "north"},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if sr.ID == "" {
		t.Fatal("expected assigned incident id")
	}
	if sr.Status != incident.StatusProcessing {
		t.Errorf("ack status = %q, want processing", sr.Status)
	}

	inc := waitForSettled(t, store, sr.ID)
	if inc.Status != incident.StatusMonitored {
		t.Errorf("settled status = %q, want monitored", inc.Status)
	}
	if inc.Source != "tip_line" {
		t.Errorf("source = %q, want tip_line", inc.Source)
	}
	if inc.Metadata["region"] != "north" {
		t.Errorf("metadata = %v", inc.Metadata)
	}
}

func TestSubmit_DefaultsSource(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	svc := newTestService(store, &mockHistory{})

	sr, err := svc.Submit(context.Background(), &incident.Submission{
		IndicatorType:  "phone",
		IndicatorValue: "+1234567890",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	inc := waitForSettled(t, store, sr.ID)
	if inc.Source != "web_ui" {
		t.Errorf("source = %q, want web_ui", inc.Source)
	}
}

func TestSubmit_DistinctIDs(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	svc := newTestService(store, &mockHistory{})

	ids := make(map[string]struct{})
	for range 10 {
		sr, err := svc.Submit(context.Background(), &incident.Submission{
			IndicatorType:  "phone",
			IndicatorValue: "+1234567890",
		})
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
		ids[sr.ID] = struct{}{}
	}
	if len(ids) != 10 {
		t.Errorf("distinct ids = %d, want 10", len(ids))
	}
}

func TestSubmit_StoreErrorSurfaces(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	store.putErr = errors.New("connection reset")
	svc := newTestService(store, &mockHistory{})

	_, err := svc.Submit(context.Background(), &incident.Submission{
		IndicatorType:  "phone",
		IndicatorValue: "+1234567890",
	})
	if err == nil {
		t.Fatal("expected store error")
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		t.Errorf("store failure reported as validation error: %v", err)
	}
}

func TestGet_Missing(t *testing.T) {
	t.Parallel()

	svc := newTestService(newMockStore(), &mockHistory{})

	_, ok, err := svc.Get(context.Background(), "absent")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Error("ok = true for absent incident")
	}
}

func TestCaseBrief(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	svc := newTestService(store, &mockHistory{})

	sr, err := svc.Submit(context.Background(), &incident.Submission{
		IndicatorType:  "phone",
		IndicatorValue: "+1234567890",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	waitForSettled(t, store, sr.ID)

	doc, ok, err := svc.CaseBrief(context.Background(), sr.ID)
	if err != nil || !ok {
		t.Fatalf("brief: ok=%v err=%v", ok, err)
	}
	if doc == "" {
		t.Error("expected non-empty brief")
	}

	_, ok, err = svc.CaseBrief(context.Background(), "absent")
	if err != nil {
		t.Fatalf("brief absent: %v", err)
	}
	if ok {
		t.Error("ok = true for absent incident")
	}
}
