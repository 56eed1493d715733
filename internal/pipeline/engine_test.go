package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/beacon/internal/incident"
)

// mockStore is a map-backed incident store.
type mockStore struct {
	mu        sync.Mutex
	incidents map[string]*incident.Incident
	putErr    error
}

func newMockStore() *mockStore {
	return &mockStore{incidents: make(map[string]*incident.Incident)}
}

func (m *mockStore) Get(_ context.Context, id string) (*incident.Incident, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inc, ok := m.incidents[id]
	if !ok {
		return nil, false, nil
	}
	cp := *inc
	return &cp, true, nil
}

func (m *mockStore) Put(_ context.Context, inc *incident.Incident) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	cp := *inc
	m.incidents[inc.ID] = &cp
	return nil
}

// mockHistory returns a fixed match set or a fixed error.
type mockHistory struct {
	matches []incident.Incident
	err     error
}

func (m *mockHistory) QueryByIndicator(_ context.Context, _ string) ([]incident.Incident, error) {
	return m.matches, m.err
}

// mockFeed captures broadcast calls.
type mockFeed struct {
	mu     sync.Mutex
	stages []string
	status []string
}

func (m *mockFeed) Broadcast(_ context.Context, _ string, stage, status string, _ map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stages = append(m.stages, stage)
	m.status = append(m.status, status)
}

func pendingIncident(id string) *incident.Incident {
	return &incident.Incident{
		ID:             id,
		IndicatorType:  "phone",
		IndicatorValue: "+1234567890",
		Source:         "web_ui",
		Status:         incident.StatusProcessing,
		CreatedAt:      time.Now(),
	}
}

func TestRun_UrgentEndToEnd(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	inc := pendingIncident("inc-urgent")
	if err := store.Put(context.Background(), inc); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	// three prior matches, two sources, one known network: every
	// scoring rule fires.
	history := &mockHistory{matches: []incident.Incident{
		match("h1", "tip_line", "net-1"),
		match("h2", "tip_line", ""),
		match("h3", "partner_feed", ""),
	}}

	sms := &mockSMS{}
	email := &mockEmail{}
	dispatcher := NewDispatcher(sms, email, fullDirectory(), log.Nop())
	audit := &mockAuditStore{}
	feed := &mockFeed{}

	engine := NewEngine(store, history, dispatcher, NewAuditor(audit, log.Nop(), nil), feed, log.Nop(), nil)
	engine.Run(context.Background(), inc.ID)

	got, ok, err := store.Get(context.Background(), inc.ID)
	if err != nil || !ok {
		t.Fatalf("get after run: ok=%v err=%v", ok, err)
	}
	if got.Status != incident.StatusAlerted {
		t.Errorf("status = %q, want alerted", got.Status)
	}
	if got.Risk == nil {
		t.Fatal("risk assessment not attached")
	}
	if got.Risk.Score != 100 {
		t.Errorf("score = %d, want 100", got.Risk.Score)
	}
	if got.Risk.Classification != incident.ClassUrgent {
		t.Errorf("classification = %q, want URGENT", got.Risk.Classification)
	}

	// three recipients, two channels each
	if len(sms.sent) != 3 {
		t.Errorf("sms sends = %d, want 3", len(sms.sent))
	}
	if len(email.sent) != 3 {
		t.Errorf("email sends = %d, want 3", len(email.sent))
	}

	entries := audit.byIncident(inc.ID)
	if len(entries) != 5 {
		t.Fatalf("audit entries = %d, want 5", len(entries))
	}
	wantStages := []Stage{StagePerceive, StageThink, StagePlan, StageAct, StageObserve}
	for i, want := range wantStages {
		if entries[i].Stage != want {
			t.Errorf("audit[%d].Stage = %q, want %q", i, entries[i].Stage, want)
		}
	}
	if entries[3].Details["sent"] != 6 {
		t.Errorf("act sent = %v, want 6", entries[3].Details["sent"])
	}
	if entries[4].Details["status"] != incident.StatusAlerted {
		t.Errorf("observe status = %v, want alerted", entries[4].Details["status"])
	}

	feed.mu.Lock()
	defer feed.mu.Unlock()
	if len(feed.stages) != 5 {
		t.Errorf("feed broadcasts = %d, want 5", len(feed.stages))
	}
}

// A MONITOR run writes the full audit trail and live feed but never
// dispatches anything.
func TestRun_MonitorSkipsDispatch(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	inc := pendingIncident("inc-monitor")
	if err := store.Put(context.Background(), inc); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	sms := &mockSMS{}
	email := &mockEmail{}
	dispatcher := NewDispatcher(sms, email, fullDirectory(), log.Nop())
	audit := &mockAuditStore{}
	feed := &mockFeed{}

	engine := NewEngine(store, &mockHistory{}, dispatcher, NewAuditor(audit, log.Nop(), nil), feed, log.Nop(), nil)
	engine.Run(context.Background(), inc.ID)

	got, _, _ := store.Get(context.Background(), inc.ID)
	if got.Status != incident.StatusMonitored {
		t.Errorf("status = %q, want monitored", got.Status)
	}
	if got.Risk == nil || got.Risk.Score != 0 {
		t.Errorf("risk = %+v, want score 0", got.Risk)
	}
	if len(sms.sent) != 0 || len(email.sent) != 0 {
		t.Errorf("sends = %d sms / %d email, want none", len(sms.sent), len(email.sent))
	}
	if entries := audit.byIncident(inc.ID); len(entries) != 5 {
		t.Errorf("audit entries = %d, want 5", len(entries))
	}
	feed.mu.Lock()
	defer feed.mu.Unlock()
	if len(feed.stages) != 5 {
		t.Errorf("feed broadcasts = %d, want 5", len(feed.stages))
	}
}

// The store already holds the current submission when the pipeline
// queries history; the engine must not count it as its own match.
func TestRun_OwnRecordExcludedFromHistory(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	inc := pendingIncident("inc-self")
	if err := store.Put(context.Background(), inc); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	history := &mockHistory{matches: []incident.Incident{*inc}}
	audit := &mockAuditStore{}
	dispatcher := NewDispatcher(&mockSMS{}, &mockEmail{}, fullDirectory(), log.Nop())

	engine := NewEngine(store, history, dispatcher, NewAuditor(audit, log.Nop(), nil), nil, log.Nop(), nil)
	engine.Run(context.Background(), inc.ID)

	got, _, _ := store.Get(context.Background(), inc.ID)
	if got.Risk == nil {
		t.Fatal("risk assessment not attached")
	}
	if got.Risk.Score != 0 {
		t.Errorf("score = %d, want 0 when the only match is the incident itself", got.Risk.Score)
	}
	if got.Status != incident.StatusMonitored {
		t.Errorf("status = %q, want monitored", got.Status)
	}
}

func TestRun_HistoryErrorFailsRun(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	inc := pendingIncident("inc-fail")
	if err := store.Put(context.Background(), inc); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	history := &mockHistory{err: errors.New("index unavailable")}
	audit := &mockAuditStore{}
	dispatcher := NewDispatcher(&mockSMS{}, &mockEmail{}, fullDirectory(), log.Nop())
	feed := &mockFeed{}

	engine := NewEngine(store, history, dispatcher, NewAuditor(audit, log.Nop(), nil), feed, log.Nop(), nil)
	engine.Run(context.Background(), inc.ID)

	got, _, _ := store.Get(context.Background(), inc.ID)
	if got.Status != incident.StatusFailed {
		t.Errorf("status = %q, want failed", got.Status)
	}

	entries := audit.byIncident(inc.ID)
	if len(entries) != 1 {
		t.Fatalf("audit entries = %d, want 1", len(entries))
	}
	if entries[0].Stage != StageObserve {
		t.Errorf("stage = %q, want observe", entries[0].Stage)
	}

	feed.mu.Lock()
	defer feed.mu.Unlock()
	if len(feed.status) != 1 || feed.status[0] != "failed" {
		t.Errorf("feed status = %v, want [failed]", feed.status)
	}
}

func TestRun_UnknownIncidentIsNoop(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	audit := &mockAuditStore{}
	dispatcher := NewDispatcher(&mockSMS{}, &mockEmail{}, fullDirectory(), log.Nop())

	engine := NewEngine(store, &mockHistory{}, dispatcher, NewAuditor(audit, log.Nop(), nil), nil, log.Nop(), nil)
	engine.Run(context.Background(), "no-such-id")

	if len(audit.entries) != 0 {
		t.Errorf("audit entries = %d, want 0", len(audit.entries))
	}
}

func TestTally(t *testing.T) {
	t.Parallel()

	sent, failed := tally([]DeliveryResult{
		{Status: DeliverySent},
		{Status: DeliveryFailed},
		{Status: DeliverySent},
	})
	if sent != 2 || failed != 1 {
		t.Errorf("tally = %d/%d, want 2/1", sent, failed)
	}
}
