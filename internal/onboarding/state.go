package onboarding

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/kemojs/mydigitalmenu/internal/menu"
	"github.com/kemojs/mydigitalmenu/internal/ocr"
)

var (
	ErrNotFound             = errors.New("onboarding session not found")
	ErrInvalidTransition    = errors.New("transition not allowed from current step")
	ErrWrongStep            = errors.New("action not available in current step")
	ErrSessionClosed        = errors.New("onboarding already completed")
	ErrBusinessNameRequired = errors.New("restaurant name is required")
	ErrInvalidWebsite       = errors.New("website must be a valid URL")
	ErrScanInProgress       = errors.New("menu scan still in progress")
	ErrScanNotCompleted     = errors.New("menu scan has not completed")
	ErrNoImage              = errors.New("no menu image uploaded")
	ErrStaleJob             = errors.New("event belongs to a superseded scan")
	ErrInvalidDesign        = errors.New("invalid design settings")
)

type Step int

const (
	StepBusinessDetails Step = iota + 1
	StepScan
	StepReview
	StepDesign
	StepSubmitted
)

func (s Step) String() string {
	switch s {
	case StepBusinessDetails:
		return "business_details"
	case StepScan:
		return "scan"
	case StepReview:
		return "review"
	case StepDesign:
		return "design"
	case StepSubmitted:
		return "submitted"
	}
	return "unknown"
}

type BusinessDetails struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Address     string `json:"address,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Website     string `json:"website,omitempty"`
}

func (b BusinessDetails) validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return ErrBusinessNameRequired
	}
	return b.validateWebsite()
}

func (b BusinessDetails) validateWebsite() error {
	if b.Website == "" {
		return nil
	}
	u, err := url.ParseRequestURI(b.Website)
	if err != nil || u.Host == "" {
		return ErrInvalidWebsite
	}
	return nil
}

type ScanStatus string

const (
	ScanIdle       ScanStatus = "idle"
	ScanProcessing ScanStatus = "processing"
	ScanCompleted  ScanStatus = "completed"
	ScanError      ScanStatus = "error"
)

// Scan tracks the uploaded image and the recognition job working on it.
type Scan struct {
	ImageKey string     `json:"image_key,omitempty"`
	Filename string     `json:"filename,omitempty"`
	MIMEType string     `json:"mime_type,omitempty"`
	Method   ocr.Method `json:"method,omitempty"`
	Status   ScanStatus `json:"status"`
	Progress int        `json:"progress"`
	JobID    string     `json:"job_id,omitempty"`
	Error    string     `json:"error,omitempty"`
	Engine   string     `json:"engine,omitempty"`
	// TextConfidence is the recognizer's mean word confidence. It is kept
	// apart from the structurer's heuristic scores.
	TextConfidence float64 `json:"text_confidence"`
}

// --------------------------------------------------
// Design
// --------------------------------------------------

var (
	Templates = []string{"modern", "elegant", "classic", "colorful"}
	QRStyles  = []string{"square", "circle", "logo"}

	hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)
)

type Design struct {
	Template       string `json:"template"`
	QRStyle        string `json:"qr_style"`
	PrimaryColor   string `json:"primary_color"`
	SecondaryColor string `json:"secondary_color"`
}

func DefaultDesign() Design {
	return Design{
		Template:       "modern",
		QRStyle:        "square",
		PrimaryColor:   "#FF6B35",
		SecondaryColor: "#2D5A27",
	}
}

func (d Design) Validate() error {
	switch {
	case !oneOf(d.Template, Templates):
		return fmt.Errorf("%w: unknown template %q", ErrInvalidDesign, d.Template)
	case !oneOf(d.QRStyle, QRStyles):
		return fmt.Errorf("%w: unknown qr style %q", ErrInvalidDesign, d.QRStyle)
	case !hexColor.MatchString(d.PrimaryColor), !hexColor.MatchString(d.SecondaryColor):
		return fmt.Errorf("%w: colors must be #RRGGBB", ErrInvalidDesign)
	}
	return nil
}

func oneOf(v string, list []string) bool {
	for _, x := range list {
		if v == x {
			return true
		}
	}
	return false
}

// --------------------------------------------------
// State
// --------------------------------------------------

// State is one snapshot of an onboarding session. Transitions never modify
// the receiver; they return a new snapshot.
type State struct {
	ID       string          `json:"id"`
	UserID   string          `json:"user_id"`
	Step     Step            `json:"step"`
	Business BusinessDetails `json:"business"`
	Scan     Scan            `json:"scan"`
	Review   *menu.Review    `json:"review,omitempty"`
	Design   Design          `json:"design"`

	SubmitError  string `json:"submit_error,omitempty"`
	RestaurantID string `json:"restaurant_id,omitempty"`
	Slug         string `json:"slug,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewState(id, userID string, now time.Time) State {
	return State{
		ID:        id,
		UserID:    userID,
		Step:      StepBusinessDetails,
		Scan:      Scan{Status: ScanIdle},
		Design:    DefaultDesign(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy.
func (s State) Clone() State {
	out := s
	if s.Review != nil {
		r := s.Review.Clone()
		out.Review = &r
	}
	return out
}

func (s State) open() (State, error) {
	if s.Step == StepSubmitted {
		return s, ErrSessionClosed
	}
	return s.Clone(), nil
}

func (s State) inStep(step Step) (State, error) {
	next, err := s.open()
	if err != nil {
		return s, err
	}
	if s.Step != step {
		return s, ErrWrongStep
	}
	return next, nil
}

// SetBusiness replaces the business details. Allowed in any open step so
// the owner can go back and fix a typo.
func (s State) SetBusiness(b BusinessDetails) (State, error) {
	next, err := s.open()
	if err != nil {
		return s, err
	}
	b.Name = strings.TrimSpace(b.Name)
	if err := b.validateWebsite(); err != nil {
		return s, err
	}
	next.Business = b
	return next, nil
}

func (s State) Next() (State, error) {
	next, err := s.open()
	if err != nil {
		return s, err
	}

	switch s.Step {
	case StepBusinessDetails:
		if err := s.Business.validate(); err != nil {
			return s, err
		}
	case StepScan:
		switch s.Scan.Status {
		case ScanCompleted:
		case ScanProcessing:
			return s, ErrScanInProgress
		default:
			return s, ErrScanNotCompleted
		}
	case StepReview:
		// an empty menu may proceed
	default:
		return s, ErrInvalidTransition
	}

	next.Step = s.Step + 1
	return next, nil
}

func (s State) Previous() (State, error) {
	next, err := s.open()
	if err != nil {
		return s, err
	}
	if s.Step <= StepBusinessDetails {
		return s, ErrInvalidTransition
	}
	next.Step = s.Step - 1
	return next, nil
}

// AttachImage records a new upload. The previous image key is replaced.
func (s State) AttachImage(key, filename, mime string, method ocr.Method) (State, error) {
	next, err := s.inStep(StepScan)
	if err != nil {
		return s, err
	}
	next.Scan.ImageKey = key
	next.Scan.Filename = filename
	next.Scan.MIMEType = mime
	next.Scan.Method = method
	return next, nil
}

// StartScan marks jobID as the session's only live recognition job.
// Events of any earlier job are ignored from now on.
func (s State) StartScan(jobID string) (State, error) {
	next, err := s.inStep(StepScan)
	if err != nil {
		return s, err
	}
	if s.Scan.ImageKey == "" {
		return s, ErrNoImage
	}
	next.Scan.Status = ScanProcessing
	next.Scan.Progress = 0
	next.Scan.JobID = jobID
	next.Scan.Error = ""
	next.Scan.Engine = ""
	next.Scan.TextConfidence = 0
	return next, nil
}

// CanRetry reports whether the stored image can be scanned again.
func (s State) CanRetry() error {
	if s.Step == StepSubmitted {
		return ErrSessionClosed
	}
	if s.Step != StepScan {
		return ErrWrongStep
	}
	if s.Scan.ImageKey == "" {
		return ErrNoImage
	}
	if s.Scan.Status == ScanProcessing {
		return ErrScanInProgress
	}
	return nil
}

func (s State) live(jobID string) (State, error) {
	if s.Scan.Status != ScanProcessing || s.Scan.JobID != jobID {
		return s, ErrStaleJob
	}
	return s.Clone(), nil
}

// ScanProgress keeps the highest percentage seen.
func (s State) ScanProgress(jobID string, percent int) (State, error) {
	next, err := s.live(jobID)
	if err != nil {
		return s, err
	}
	if percent > 99 {
		percent = 99
	}
	if percent > next.Scan.Progress {
		next.Scan.Progress = percent
	}
	return next, nil
}

// CompleteScan stores the structured menu as a fresh review. Earlier
// corrections belong to the previous image and are dropped.
func (s State) CompleteScan(jobID string, rec ocr.Recognition, m menu.ProcessedMenu) (State, error) {
	next, err := s.live(jobID)
	if err != nil {
		return s, err
	}
	review := menu.NewReview(m)
	next.Review = &review
	next.Scan.Status = ScanCompleted
	next.Scan.Progress = 100
	next.Scan.Engine = rec.Engine
	next.Scan.TextConfidence = rec.Confidence
	return next, nil
}

// FailScan keeps the image so the scan can be retried.
func (s State) FailScan(jobID string, cause error) (State, error) {
	next, err := s.live(jobID)
	if err != nil {
		return s, err
	}
	next.Scan.Status = ScanError
	next.Scan.Error = cause.Error()
	return next, nil
}

// --------------------------------------------------
// Review
// --------------------------------------------------

func (s State) editReview(fn func(r *menu.Review) error) (State, error) {
	next, err := s.inStep(StepReview)
	if err != nil {
		return s, err
	}
	if next.Review == nil {
		return s, ErrScanNotCompleted
	}
	if err := fn(next.Review); err != nil {
		return s, err
	}
	return next, nil
}

func (s State) ApplyCorrection(categoryIndex, itemIndex int, u menu.ItemUpdate) (State, error) {
	return s.editReview(func(r *menu.Review) error {
		return r.ApplyCorrection(categoryIndex, itemIndex, u)
	})
}

func (s State) AddItem(categoryIndex int) (State, int, error) {
	var idx int
	next, err := s.editReview(func(r *menu.Review) error {
		var err error
		idx, err = r.AddItem(categoryIndex)
		return err
	})
	return next, idx, err
}

func (s State) RemoveItem(categoryIndex, itemIndex int) (State, error) {
	return s.editReview(func(r *menu.Review) error {
		return r.RemoveItem(categoryIndex, itemIndex)
	})
}

func (s State) ResetReview() (State, error) {
	return s.editReview(func(r *menu.Review) error {
		r.Reset()
		return nil
	})
}

// --------------------------------------------------
// Design & submission
// --------------------------------------------------

func (s State) SetDesign(d Design) (State, error) {
	next, err := s.inStep(StepDesign)
	if err != nil {
		return s, err
	}
	if err := d.Validate(); err != nil {
		return s, err
	}
	next.Design = d
	return next, nil
}

// Submission is everything the persistence side needs to create the
// restaurant and its menu.
type Submission struct {
	SessionID   string             `json:"session_id"`
	UserID      string             `json:"user_id"`
	Business    BusinessDetails    `json:"business"`
	Menu        menu.ProcessedMenu `json:"menu"`
	Corrections []menu.Correction  `json:"corrections"`
	Design      Design             `json:"design"`
}

func (s State) Submission() (Submission, error) {
	if _, err := s.inStep(StepDesign); err != nil {
		return Submission{}, err
	}
	sub := Submission{
		SessionID:   s.ID,
		UserID:      s.UserID,
		Business:    s.Business,
		Menu:        menu.ProcessedMenu{Categories: []menu.ProcessedCategory{}, Confidence: menu.DefaultConfidence},
		Corrections: []menu.Correction{},
		Design:      s.Design,
	}
	if s.Review != nil {
		r := s.Review.Clone()
		sub.Menu = r.Current
		sub.Corrections = r.Corrections
	}
	return sub, nil
}

// SubmitFailed keeps the session in the design step with the error
// recorded; the owner may submit again.
func (s State) SubmitFailed(cause error) (State, error) {
	next, err := s.inStep(StepDesign)
	if err != nil {
		return s, err
	}
	next.SubmitError = cause.Error()
	return next, nil
}

func (s State) Submitted(restaurantID, slug string) (State, error) {
	next, err := s.inStep(StepDesign)
	if err != nil {
		return s, err
	}
	next.Step = StepSubmitted
	next.SubmitError = ""
	next.RestaurantID = restaurantID
	next.Slug = slug
	return next, nil
}
