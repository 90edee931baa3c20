package onboarding

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kemojs/mydigitalmenu/internal/menu"
	"github.com/kemojs/mydigitalmenu/internal/ocr"
	"github.com/kemojs/mydigitalmenu/internal/storage"
)

var ErrSubmissionFailed = errors.New("could not complete onboarding")

// Result identifies what the persistence side created.
type Result struct {
	RestaurantID string `json:"restaurant_id"`
	Slug         string `json:"slug"`
}

// Completer turns a submission into a restaurant with its menu.
type Completer interface {
	CompleteOnboarding(ctx context.Context, sub Submission) (Result, error)
}

// Recognizers holds the engines an upload can choose between.
type Recognizers struct {
	Local  ocr.Recognizer
	Remote ocr.Recognizer
}

type Config struct {
	OCRTimeout     time.Duration
	OCRGrace       time.Duration
	MaxUploadBytes int64
	Languages      []string
}

type Service struct {
	repo        Repository
	store       storage.ImageStore
	structurer  *menu.Structurer
	recognizers Recognizers
	completer   Completer
	runner      *ocr.Runner
	cfg         Config
	locks       *keyedMutex
	now         func() time.Time
}

func NewService(
	repo Repository,
	store storage.ImageStore,
	structurer *menu.Structurer,
	recognizers Recognizers,
	completer Completer,
	cfg Config,
) *Service {
	s := &Service{
		repo:        repo,
		store:       store,
		structurer:  structurer,
		recognizers: recognizers,
		completer:   completer,
		cfg:         cfg,
		locks:       newKeyedMutex(),
		now:         time.Now,
	}
	s.runner = ocr.NewRunner(cfg.OCRTimeout, cfg.OCRGrace, ocr.Hooks{
		OnProgress: s.onProgress,
		OnDone:     s.onDone,
		OnError:    s.onError,
	})
	return s
}

// --------------------------------------------------
// Session lifecycle
// --------------------------------------------------

// Start resumes the user's open session or creates a new one.
func (s *Service) Start(ctx context.Context, userID string) (State, error) {
	existing, err := s.repo.FindOpenByUser(ctx, userID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return State{}, err
	}

	st := NewState(uuid.NewString(), userID, s.now())
	if err := s.repo.Create(ctx, st); err != nil {
		return State{}, err
	}
	log.Printf("ONBOARDING_STARTED session=%s user=%s", st.ID, userID)
	return st, nil
}

func (s *Service) Get(ctx context.Context, userID, id string) (State, error) {
	return s.load(ctx, userID, id)
}

func (s *Service) UpdateBusiness(ctx context.Context, userID, id string, b BusinessDetails) (State, error) {
	return s.transition(ctx, userID, id, func(st State) (State, error) {
		return st.SetBusiness(b)
	})
}

func (s *Service) Next(ctx context.Context, userID, id string) (State, error) {
	return s.transition(ctx, userID, id, State.Next)
}

func (s *Service) Previous(ctx context.Context, userID, id string) (State, error) {
	return s.transition(ctx, userID, id, State.Previous)
}

// --------------------------------------------------
// Scan
// --------------------------------------------------

// Upload validates and stores a menu photo, then starts recognition. A
// scan already running for the session is replaced.
func (s *Service) Upload(ctx context.Context, userID, id, filename string, data []byte, method ocr.Method) (State, error) {
	mime, err := ocr.ValidateUpload(filename, data, s.cfg.MaxUploadBytes)
	if err != nil {
		return State{}, err
	}
	rec, err := ocr.ForMethod(method, s.recognizers.Local, s.recognizers.Remote)
	if err != nil {
		return State{}, err
	}
	img, err := ocr.PrepareImage(data)
	if err != nil {
		return State{}, err
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	st, err := s.load(ctx, userID, id)
	if err != nil {
		return State{}, err
	}
	if st.Step != StepScan {
		if st.Step == StepSubmitted {
			return State{}, ErrSessionClosed
		}
		return State{}, ErrWrongStep
	}

	key := storage.NewKey("menu-uploads/"+id, filename)
	if _, err := s.store.Put(ctx, key, data, mime); err != nil {
		return State{}, fmt.Errorf("store upload: %w", err)
	}

	previous := st.Scan.ImageKey
	next, err := st.AttachImage(key, filename, mime, method)
	if err != nil {
		s.discard(ctx, id, key)
		return State{}, err
	}
	saved, err := s.startScan(ctx, next, rec, img)
	if err != nil {
		s.discard(ctx, id, key)
		return State{}, err
	}
	if previous != "" && previous != key {
		s.discard(ctx, id, previous)
	}
	return saved, nil
}

// discard removes an upload that no session state points to anymore.
func (s *Service) discard(ctx context.Context, session, key string) {
	if err := s.store.Delete(ctx, key); err != nil {
		log.Printf("UPLOAD_CLEANUP_FAILED session=%s key=%s err=%v", session, key, err)
	}
}

// Retry scans the stored image again after a failure.
func (s *Service) Retry(ctx context.Context, userID, id string) (State, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	st, err := s.load(ctx, userID, id)
	if err != nil {
		return State{}, err
	}
	if err := st.CanRetry(); err != nil {
		return State{}, err
	}

	rec, err := ocr.ForMethod(st.Scan.Method, s.recognizers.Local, s.recognizers.Remote)
	if err != nil {
		return State{}, err
	}
	data, err := s.store.Get(ctx, st.Scan.ImageKey)
	if err != nil {
		return State{}, fmt.Errorf("load stored upload: %w", err)
	}
	img, err := ocr.PrepareImage(data)
	if err != nil {
		return State{}, err
	}
	return s.startScan(ctx, st, rec, img)
}

// startScan must run under the session lock so job events wait until the
// job id is persisted.
func (s *Service) startScan(ctx context.Context, st State, rec ocr.Recognizer, img ocr.Image) (State, error) {
	img.Languages = s.cfg.Languages
	jobID := s.runner.Start(st.ID, rec, img)

	next, err := st.StartScan(jobID)
	if err != nil {
		s.runner.Cancel(st.ID)
		return State{}, err
	}
	if err := s.save(ctx, &next); err != nil {
		s.runner.Cancel(st.ID)
		return State{}, err
	}
	return next, nil
}

func (s *Service) onProgress(session, jobID string, percent int) {
	s.applyJobEvent(session, jobID, "progress", func(st State) (State, error) {
		return st.ScanProgress(jobID, percent)
	})
}

func (s *Service) onDone(session, jobID string, rec ocr.Recognition) {
	m := s.structurer.Structure(ocr.CleanText(rec.Text))
	log.Printf("MENU_STRUCTURED session=%s job=%s categories=%d items=%d", session, jobID, len(m.Categories), m.ItemCount())

	s.applyJobEvent(session, jobID, "done", func(st State) (State, error) {
		return st.CompleteScan(jobID, rec, m)
	})
}

func (s *Service) onError(session, jobID string, err error) {
	s.applyJobEvent(session, jobID, "error", func(st State) (State, error) {
		return st.FailScan(jobID, err)
	})
}

func (s *Service) applyJobEvent(session, jobID, kind string, fn func(State) (State, error)) {
	unlock := s.locks.Lock(session)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	st, err := s.repo.Get(ctx, session)
	if err != nil {
		log.Printf("OCR_EVENT_DROPPED session=%s job=%s event=%s err=%v", session, jobID, kind, err)
		return
	}
	next, err := fn(st)
	if errors.Is(err, ErrStaleJob) {
		return
	}
	if err != nil {
		log.Printf("OCR_EVENT_REJECTED session=%s job=%s event=%s err=%v", session, jobID, kind, err)
		return
	}
	if err := s.save(ctx, &next); err != nil {
		log.Printf("OCR_EVENT_SAVE_FAILED session=%s job=%s event=%s err=%v", session, jobID, kind, err)
	}
}

// --------------------------------------------------
// Review
// --------------------------------------------------

func (s *Service) Correct(ctx context.Context, userID, id string, ci, ii int, u menu.ItemUpdate) (State, error) {
	return s.transition(ctx, userID, id, func(st State) (State, error) {
		return st.ApplyCorrection(ci, ii, u)
	})
}

func (s *Service) AddItem(ctx context.Context, userID, id string, ci int) (State, int, error) {
	var idx int
	st, err := s.transition(ctx, userID, id, func(st State) (State, error) {
		next, i, err := st.AddItem(ci)
		idx = i
		return next, err
	})
	return st, idx, err
}

func (s *Service) RemoveItem(ctx context.Context, userID, id string, ci, ii int) (State, error) {
	return s.transition(ctx, userID, id, func(st State) (State, error) {
		return st.RemoveItem(ci, ii)
	})
}

func (s *Service) ResetReview(ctx context.Context, userID, id string) (State, error) {
	return s.transition(ctx, userID, id, State.ResetReview)
}

// --------------------------------------------------
// Design & completion
// --------------------------------------------------

func (s *Service) SetDesign(ctx context.Context, userID, id string, d Design) (State, error) {
	return s.transition(ctx, userID, id, func(st State) (State, error) {
		return st.SetDesign(d)
	})
}

// Complete hands the aggregated session to the completer. On failure the
// session stays in the design step with the error recorded.
func (s *Service) Complete(ctx context.Context, userID, id string) (State, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	st, err := s.load(ctx, userID, id)
	if err != nil {
		return State{}, err
	}
	sub, err := st.Submission()
	if err != nil {
		return State{}, err
	}
	if sub.Menu.ItemCount() == 0 {
		log.Printf("ONBOARDING_EMPTY_MENU session=%s", id)
	}

	res, err := s.completer.CompleteOnboarding(ctx, sub)
	if err != nil {
		log.Printf("ONBOARDING_SUBMIT_FAILED session=%s err=%v", id, err)
		failed, ferr := st.SubmitFailed(err)
		if ferr == nil {
			if serr := s.save(ctx, &failed); serr != nil {
				log.Printf("ONBOARDING_SAVE_FAILED session=%s err=%v", id, serr)
			}
		}
		return failed, fmt.Errorf("%w: %v", ErrSubmissionFailed, err)
	}

	done, err := st.Submitted(res.RestaurantID, res.Slug)
	if err != nil {
		return State{}, err
	}
	if err := s.save(ctx, &done); err != nil {
		return State{}, err
	}

	s.runner.Cancel(id)
	if done.Scan.ImageKey != "" {
		s.discard(ctx, id, done.Scan.ImageKey)
	}

	log.Printf("ONBOARDING_COMPLETED session=%s restaurant=%s slug=%s", id, res.RestaurantID, res.Slug)
	return done, nil
}

// Shutdown stops all running scans.
func (s *Service) Shutdown(ctx context.Context) error {
	return s.runner.Shutdown(ctx)
}

// --------------------------------------------------
// helpers
// --------------------------------------------------

func (s *Service) transition(ctx context.Context, userID, id string, fn func(State) (State, error)) (State, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	st, err := s.load(ctx, userID, id)
	if err != nil {
		return State{}, err
	}
	next, err := fn(st)
	if err != nil {
		return st, err
	}
	if err := s.save(ctx, &next); err != nil {
		return State{}, err
	}
	return next, nil
}

// load hides sessions of other users behind ErrNotFound.
func (s *Service) load(ctx context.Context, userID, id string) (State, error) {
	st, err := s.repo.Get(ctx, id)
	if err != nil {
		return State{}, err
	}
	if st.UserID != userID {
		return State{}, ErrNotFound
	}
	return st, nil
}

func (s *Service) save(ctx context.Context, st *State) error {
	st.UpdatedAt = s.now()
	return s.repo.Update(ctx, *st)
}

// keyedMutex serializes work per session id.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
