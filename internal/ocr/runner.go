package ocr

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultTimeout = 90 * time.Second
	DefaultGrace   = 2 * time.Second
)

var errSuperseded = errors.New("superseded by a newer scan")

// Hooks receive job events. Events of a superseded or cancelled job are
// never delivered.
type Hooks struct {
	OnProgress func(session, jobID string, percent int)
	OnDone     func(session, jobID string, rec Recognition)
	OnError    func(session, jobID string, err error)
}

type job struct {
	id     string
	cancel context.CancelCauseFunc
	// done is closed once the recognizer call has returned and the engine
	// is free again.
	done chan struct{}
}

// Runner keeps at most one recognition job per session.
type Runner struct {
	mu      sync.Mutex
	jobs    map[string]*job
	timeout time.Duration
	grace   time.Duration
	hooks   Hooks
	wg      sync.WaitGroup
}

func NewRunner(timeout, grace time.Duration, hooks Hooks) *Runner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if grace < 0 {
		grace = 0
	}
	return &Runner{
		jobs:    make(map[string]*job),
		timeout: timeout,
		grace:   grace,
		hooks:   hooks,
	}
}

// Start launches recognition for session and returns the new job id. A
// job already running for the session is cancelled first.
func (r *Runner) Start(session string, rec Recognizer, img Image) string {
	ctx, cancel := context.WithCancelCause(context.Background())
	j := &job{id: uuid.NewString(), cancel: cancel, done: make(chan struct{})}

	r.mu.Lock()
	prev := r.jobs[session]
	r.jobs[session] = j
	r.mu.Unlock()

	if prev != nil {
		prev.cancel(errSuperseded)
		log.Printf("OCR_SUPERSEDED session=%s job=%s by=%s", session, prev.id, j.id)
	}

	r.wg.Add(1)
	go r.run(ctx, session, j, prev, rec, img)
	return j.id
}

// Cancel stops the session's job without reporting an error.
func (r *Runner) Cancel(session string) {
	r.mu.Lock()
	j := r.jobs[session]
	delete(r.jobs, session)
	r.mu.Unlock()

	if j != nil {
		j.cancel(context.Canceled)
	}
}

// Active returns the id of the session's running job, or "".
func (r *Runner) Active(session string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if j, ok := r.jobs[session]; ok {
		return j.id
	}
	return ""
}

// Shutdown cancels every job and waits for them to return or ctx to end.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	for s, j := range r.jobs {
		j.cancel(context.Canceled)
		delete(r.jobs, s)
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) run(ctx context.Context, session string, j *job, prev *job, rec Recognizer, img Image) {
	defer r.wg.Done()
	defer r.release(session, j)

	if prev != nil {
		select {
		case <-prev.done:
		case <-time.After(r.grace):
			log.Printf("OCR_RELEASE_TIMEOUT session=%s job=%s", session, prev.id)
		case <-ctx.Done():
			close(j.done)
			return
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	log.Printf("OCR_STARTED session=%s job=%s engine=%s", session, j.id, rec.Name())
	started := time.Now()

	var (
		mu   sync.Mutex
		last int
	)
	progress := func(p int) {
		mu.Lock()
		if p <= last || p > 100 {
			mu.Unlock()
			return
		}
		last = p
		mu.Unlock()
		if runCtx.Err() == nil && r.current(session, j) && r.hooks.OnProgress != nil {
			r.hooks.OnProgress(session, j.id, p)
		}
	}

	type result struct {
		rec Recognition
		err error
	}
	ch := make(chan result, 1)
	go func() {
		defer close(j.done)
		out, err := rec.Recognize(runCtx, img, progress)
		ch <- result{out, err}
	}()

	var res result
	select {
	case res = <-ch:
	case <-runCtx.Done():
		res = result{err: runCtx.Err()}
	}

	if cause := context.Cause(ctx); cause != nil {
		log.Printf("OCR_CANCELLED session=%s job=%s cause=%v", session, j.id, cause)
		return
	}
	if !r.current(session, j) {
		return
	}

	if res.err != nil {
		err := fmt.Errorf("%w: %v", ErrRecognitionFailed, res.err)
		if errors.Is(res.err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: timed out after %s", ErrRecognitionFailed, r.timeout)
		}
		log.Printf("OCR_FAILED session=%s job=%s err=%v", session, j.id, res.err)
		if r.hooks.OnError != nil {
			r.hooks.OnError(session, j.id, err)
		}
		return
	}

	log.Printf("OCR_DONE session=%s job=%s engine=%s text_length=%d confidence=%.2f took=%s",
		session, j.id, res.rec.Engine, len(res.rec.Text), res.rec.Confidence, time.Since(started).Round(time.Millisecond))
	if r.hooks.OnDone != nil {
		r.hooks.OnDone(session, j.id, res.rec)
	}
}

func (r *Runner) current(session string, j *job) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.jobs[session] == j
}

func (r *Runner) release(session string, j *job) {
	r.mu.Lock()
	if r.jobs[session] == j {
		delete(r.jobs, session)
	}
	r.mu.Unlock()
}
