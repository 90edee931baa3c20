package ocr

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeRecognizer struct {
	name  string
	text  string
	conf  float64
	err   error
	delay time.Duration
	// block ignores ctx until released, like a stuck native engine
	block chan struct{}

	mu    sync.Mutex
	calls int
}

func (f *fakeRecognizer) Name() string { return f.name }

func (f *fakeRecognizer) Recognize(ctx context.Context, img Image, progress ProgressFunc) (Recognition, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	report(progress, 10)
	report(progress, 5) // out of order, must be dropped
	if f.block != nil {
		<-f.block
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return Recognition{}, ctx.Err()
		}
	}
	report(progress, 60)
	if f.err != nil {
		return Recognition{}, f.err
	}
	return Recognition{Text: f.text, Confidence: f.conf, Engine: f.name}, nil
}

func (f *fakeRecognizer) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type events struct {
	mu       sync.Mutex
	progress []int
	done     []string
	errs     []error
	ch       chan struct{}
}

func newEvents() *events { return &events{ch: make(chan struct{}, 10)} }

func (e *events) hooks() Hooks {
	return Hooks{
		OnProgress: func(_, _ string, p int) {
			e.mu.Lock()
			e.progress = append(e.progress, p)
			e.mu.Unlock()
		},
		OnDone: func(_, jobID string, _ Recognition) {
			e.mu.Lock()
			e.done = append(e.done, jobID)
			e.mu.Unlock()
			e.ch <- struct{}{}
		},
		OnError: func(_, _ string, err error) {
			e.mu.Lock()
			e.errs = append(e.errs, err)
			e.mu.Unlock()
			e.ch <- struct{}{}
		},
	}
}

func (e *events) wait(t *testing.T) {
	t.Helper()
	select {
	case <-e.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for job event")
	}
}

func TestRunner_Completes(t *testing.T) {
	ev := newEvents()
	r := NewRunner(time.Second, 10*time.Millisecond, ev.hooks())

	id := r.Start("s1", &fakeRecognizer{name: "fake", text: "MENU"}, Image{Data: []byte{1}})
	ev.wait(t)

	ev.mu.Lock()
	defer ev.mu.Unlock()
	if len(ev.done) != 1 || ev.done[0] != id {
		t.Fatalf("expected done for %s, got %v", id, ev.done)
	}
	for i := 1; i < len(ev.progress); i++ {
		if ev.progress[i] <= ev.progress[i-1] {
			t.Fatalf("progress not monotonic: %v", ev.progress)
		}
	}
}

func TestRunner_TimeoutReportsFailure(t *testing.T) {
	ev := newEvents()
	r := NewRunner(30*time.Millisecond, 0, ev.hooks())

	r.Start("s1", &fakeRecognizer{name: "slow", delay: time.Second}, Image{Data: []byte{1}})
	ev.wait(t)

	ev.mu.Lock()
	if len(ev.errs) != 1 || !errors.Is(ev.errs[0], ErrRecognitionFailed) {
		t.Fatalf("expected ErrRecognitionFailed, got %v", ev.errs)
	}
	ev.mu.Unlock()

	deadline := time.Now().Add(time.Second)
	for r.Active("s1") != "" {
		if time.Now().After(deadline) {
			t.Fatal("expected no active job after timeout")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRunner_EngineErrorMapped(t *testing.T) {
	ev := newEvents()
	r := NewRunner(time.Second, 0, ev.hooks())

	r.Start("s1", &fakeRecognizer{name: "bad", err: errors.New("tesseract exploded")}, Image{Data: []byte{1}})
	ev.wait(t)

	ev.mu.Lock()
	defer ev.mu.Unlock()
	if !errors.Is(ev.errs[0], ErrRecognitionFailed) {
		t.Fatalf("expected ErrRecognitionFailed, got %v", ev.errs[0])
	}
}

func TestRunner_NewJobSupersedesOld(t *testing.T) {
	ev := newEvents()
	r := NewRunner(time.Second, 50*time.Millisecond, ev.hooks())

	slow := &fakeRecognizer{name: "slow", delay: time.Second}
	r.Start("s1", slow, Image{Data: []byte{1}})
	second := r.Start("s1", &fakeRecognizer{name: "fast", text: "OK"}, Image{Data: []byte{1}})

	ev.wait(t)

	// give a stray event from the first job a chance to show up
	time.Sleep(50 * time.Millisecond)

	ev.mu.Lock()
	defer ev.mu.Unlock()
	if len(ev.done) != 1 || ev.done[0] != second {
		t.Fatalf("expected only the second job to finish, got %v", ev.done)
	}
	if len(ev.errs) != 0 {
		t.Fatalf("superseded job must not report errors, got %v", ev.errs)
	}
}

func TestRunner_GraceBoundsStuckEngine(t *testing.T) {
	ev := newEvents()
	r := NewRunner(time.Second, 20*time.Millisecond, ev.hooks())

	stuck := &fakeRecognizer{name: "stuck", block: make(chan struct{})}
	defer close(stuck.block)

	r.Start("s1", stuck, Image{Data: []byte{1}})
	r.Start("s1", &fakeRecognizer{name: "fast", text: "OK"}, Image{Data: []byte{1}})

	ev.wait(t)

	ev.mu.Lock()
	defer ev.mu.Unlock()
	if len(ev.done) != 1 {
		t.Fatalf("expected second job to run after grace, got %v", ev.done)
	}
}

func TestRunner_Cancel(t *testing.T) {
	ev := newEvents()
	r := NewRunner(time.Second, 0, ev.hooks())

	r.Start("s1", &fakeRecognizer{name: "slow", delay: time.Second}, Image{Data: []byte{1}})
	r.Cancel("s1")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := r.Shutdown(ctx); err != nil {
		t.Fatal(err)
	}

	ev.mu.Lock()
	defer ev.mu.Unlock()
	if len(ev.done)+len(ev.errs) != 0 {
		t.Fatalf("cancelled job must stay silent, got done=%v errs=%v", ev.done, ev.errs)
	}
}

func TestRunner_SessionsIndependent(t *testing.T) {
	ev := newEvents()
	r := NewRunner(time.Second, 0, ev.hooks())

	r.Start("a", &fakeRecognizer{name: "a", text: "A", delay: 20 * time.Millisecond}, Image{Data: []byte{1}})
	r.Start("b", &fakeRecognizer{name: "b", text: "B", delay: 20 * time.Millisecond}, Image{Data: []byte{1}})

	ev.wait(t)
	ev.wait(t)

	ev.mu.Lock()
	defer ev.mu.Unlock()
	if len(ev.done) != 2 {
		t.Fatalf("expected both sessions to finish, got %v", ev.done)
	}
}
