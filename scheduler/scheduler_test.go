package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"viegrand/model"
	"viegrand/services"
)

type fakeDirectory struct {
	elders []model.User
	users  map[string]model.User

	block chan struct{} // when set, Elders blocks until closed
}

func (d *fakeDirectory) Elders(ctx context.Context) ([]model.User, error) {
	if d.block != nil {
		<-d.block
	}
	return d.elders, nil
}

func (d *fakeDirectory) User(ctx context.Context, uid string) (model.User, error) {
	user, ok := d.users[uid]
	if !ok {
		return model.User{}, services.ErrUserNotFound
	}
	return user, nil
}

type fakePusher struct {
	mu       sync.Mutex
	pushes   []string
	failures int // first N pushes fail
}

func (p *fakePusher) Push(ctx context.Context, token, title, body string, data map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pushes = append(p.pushes, token)
	if len(p.pushes) <= p.failures {
		return errors.New("unavailable")
	}
	return nil
}

func (p *fakePusher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pushes)
}

type fakeRecorder struct {
	mu      sync.Mutex
	records map[string][]model.Notification
}

func (r *fakeRecorder) Record(ctx context.Context, uid string, rec model.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.records == nil {
		r.records = make(map[string][]model.Notification)
	}
	r.records[uid] = append(r.records[uid], rec)
	return nil
}

func newTestSweeper(d *fakeDirectory, p *fakePusher, r *fakeRecorder, now time.Time) *Sweeper {
	s := NewSweeper(d, p, r)
	s.now = func() time.Time { return now }
	s.sleep = func(time.Duration) {}
	return s
}

func TestSweepAlertsRelativesOfStaleElder(t *testing.T) {
	now := time.Date(2025, time.June, 15, 8, 0, 0, 0, time.UTC)
	directory := &fakeDirectory{
		elders: []model.User{{
			UID:           "elder1",
			Name:          "Grandma",
			Role:          "elder",
			LastLoginAt:   now.Add(-72 * time.Hour),
			FamilyMembers: []string{"rel1", "rel2"},
		}},
		users: map[string]model.User{
			"rel1": {UID: "rel1", FcmTokens: []string{"tok-a", "tok-b"}},
			"rel2": {UID: "rel2"}, // no registered device
		},
	}
	pusher := &fakePusher{}
	recorder := &fakeRecorder{}
	sweeper := newTestSweeper(directory, pusher, recorder, now)

	if err := sweeper.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep returned error: %v", err)
	}

	if got := pusher.count(); got != 2 {
		t.Errorf("pushes = %d, want 2 (one per registered token)", got)
	}
	if got := len(recorder.records["rel1"]); got != 1 {
		t.Errorf("records for rel1 = %d, want 1", got)
	}
	// A relative without a device token still gets the durable record.
	if got := len(recorder.records["rel2"]); got != 1 {
		t.Errorf("records for rel2 = %d, want 1", got)
	}

	rec := recorder.records["rel1"][0]
	if rec.Type != model.NotificationTypeInactive {
		t.Errorf("record type = %q, want %q", rec.Type, model.NotificationTypeInactive)
	}
	if rec.ElderID != "elder1" {
		t.Errorf("record elderId = %q, want elder1", rec.ElderID)
	}
	if rec.Body != "Grandma has not been active for over 2 days. Please check in!" {
		t.Errorf("record body = %q", rec.Body)
	}
}

func TestSweepSkipsActiveElder(t *testing.T) {
	now := time.Date(2025, time.June, 15, 8, 0, 0, 0, time.UTC)
	directory := &fakeDirectory{
		elders: []model.User{{
			UID:           "elder1",
			Name:          "Grandpa",
			LastLoginAt:   now.Add(-24 * time.Hour),
			FamilyMembers: []string{"rel1"},
		}},
		users: map[string]model.User{
			"rel1": {UID: "rel1", FcmTokens: []string{"tok-a"}},
		},
	}
	pusher := &fakePusher{}
	recorder := &fakeRecorder{}
	sweeper := newTestSweeper(directory, pusher, recorder, now)

	if err := sweeper.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep returned error: %v", err)
	}
	if got := pusher.count(); got != 0 {
		t.Errorf("pushes = %d, want 0", got)
	}
	if len(recorder.records) != 0 {
		t.Errorf("records = %v, want none", recorder.records)
	}
}

// Staleness is strict: a sign-in exactly 48h before the sweep does not
// alert, one second older does.
func TestSweepStalenessBoundary(t *testing.T) {
	now := time.Date(2025, time.June, 15, 8, 0, 0, 0, time.UTC)
	newDirectory := func(lastLogin time.Time) *fakeDirectory {
		return &fakeDirectory{
			elders: []model.User{{
				UID:           "elder1",
				Name:          "Grandma",
				LastLoginAt:   lastLogin,
				FamilyMembers: []string{"rel1"},
			}},
			users: map[string]model.User{
				"rel1": {UID: "rel1", FcmTokens: []string{"tok-a"}},
			},
		}
	}

	recorder := &fakeRecorder{}
	sweeper := newTestSweeper(newDirectory(now.Add(-48*time.Hour)), &fakePusher{}, recorder, now)
	if err := sweeper.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep returned error: %v", err)
	}
	if len(recorder.records) != 0 {
		t.Errorf("sign-in exactly at the threshold alerted: %v", recorder.records)
	}

	recorder = &fakeRecorder{}
	sweeper = newTestSweeper(newDirectory(now.Add(-48*time.Hour-time.Second)), &fakePusher{}, recorder, now)
	if err := sweeper.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep returned error: %v", err)
	}
	if got := len(recorder.records["rel1"]); got != 1 {
		t.Errorf("records for rel1 = %d, want 1", got)
	}
}

func TestSweepNeverSignedInCountsAsStale(t *testing.T) {
	now := time.Date(2025, time.June, 15, 8, 0, 0, 0, time.UTC)
	directory := &fakeDirectory{
		elders: []model.User{{
			UID:           "elder1",
			Name:          "Grandma",
			FamilyMembers: []string{"rel1"},
		}},
		users: map[string]model.User{
			"rel1": {UID: "rel1"},
		},
	}
	recorder := &fakeRecorder{}
	sweeper := newTestSweeper(directory, &fakePusher{}, recorder, now)

	if err := sweeper.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep returned error: %v", err)
	}
	if got := len(recorder.records["rel1"]); got != 1 {
		t.Errorf("records for rel1 = %d, want 1", got)
	}
}

func TestSweepNoRelatives(t *testing.T) {
	now := time.Date(2025, time.June, 15, 8, 0, 0, 0, time.UTC)
	directory := &fakeDirectory{
		elders: []model.User{{
			UID:         "elder1",
			Name:        "Grandma",
			LastLoginAt: now.Add(-96 * time.Hour),
		}},
	}
	pusher := &fakePusher{}
	recorder := &fakeRecorder{}
	sweeper := newTestSweeper(directory, pusher, recorder, now)

	if err := sweeper.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep returned error: %v", err)
	}
	if got := pusher.count(); got != 0 {
		t.Errorf("pushes = %d, want 0", got)
	}
	if len(recorder.records) != 0 {
		t.Errorf("records = %v, want none", recorder.records)
	}
}

func TestSweepRejectsOverlap(t *testing.T) {
	block := make(chan struct{})
	directory := &fakeDirectory{block: block}
	sweeper := newTestSweeper(directory, &fakePusher{}, &fakeRecorder{}, time.Now())

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		close(started)
		done <- sweeper.Sweep(context.Background())
	}()
	<-started
	time.Sleep(20 * time.Millisecond)

	if err := sweeper.Sweep(context.Background()); !errors.Is(err, ErrSweepInProgress) {
		t.Errorf("overlapping Sweep: got %v, want ErrSweepInProgress", err)
	}

	close(block)
	if err := <-done; err != nil {
		t.Errorf("first Sweep returned error: %v", err)
	}

	// The lock is free again once the pass finishes.
	if err := sweeper.Sweep(context.Background()); err != nil {
		t.Errorf("follow-up Sweep returned error: %v", err)
	}
}

func TestPushWithRetry(t *testing.T) {
	now := time.Now()

	pusher := &fakePusher{failures: 2}
	sweeper := newTestSweeper(&fakeDirectory{}, pusher, &fakeRecorder{}, now)
	if err := sweeper.pushWithRetry(context.Background(), "tok", "t", "b", nil); err != nil {
		t.Errorf("two transient failures: got %v, want nil", err)
	}
	if got := pusher.count(); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}

	pusher = &fakePusher{failures: 100}
	sweeper = newTestSweeper(&fakeDirectory{}, pusher, &fakeRecorder{}, now)
	if err := sweeper.pushWithRetry(context.Background(), "tok", "t", "b", nil); err == nil {
		t.Error("persistent failure: got nil, want error")
	}
	if got := pusher.count(); got != 3 {
		t.Errorf("attempts = %d, want 3 (bounded)", got)
	}
}

func TestSweepSkipsUnknownRelative(t *testing.T) {
	now := time.Date(2025, time.June, 15, 8, 0, 0, 0, time.UTC)
	directory := &fakeDirectory{
		elders: []model.User{{
			UID:           "elder1",
			Name:          "Grandma",
			LastLoginAt:   now.Add(-72 * time.Hour),
			FamilyMembers: []string{"gone", "rel1"},
		}},
		users: map[string]model.User{
			"rel1": {UID: "rel1", FcmTokens: []string{"tok-a"}},
		},
	}
	pusher := &fakePusher{}
	recorder := &fakeRecorder{}
	sweeper := newTestSweeper(directory, pusher, recorder, now)

	if err := sweeper.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep returned error: %v", err)
	}
	if got := pusher.count(); got != 1 {
		t.Errorf("pushes = %d, want 1", got)
	}
	if _, ok := recorder.records["gone"]; ok {
		t.Error("record written for a relative that no longer exists")
	}
	if got := len(recorder.records["rel1"]); got != 1 {
		t.Errorf("records for rel1 = %d, want 1", got)
	}
}
