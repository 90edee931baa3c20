package onboarding

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/kemojs/mydigitalmenu/internal/menu"
	"github.com/kemojs/mydigitalmenu/internal/ocr"
)

func price(cents int64) *menu.Money {
	m := menu.Money(cents)
	return &m
}

func sampleMenu() menu.ProcessedMenu {
	return menu.ProcessedMenu{
		Currency: "EUR",
		Categories: []menu.ProcessedCategory{
			{Name: "VORSPEISEN", Items: []menu.ProcessedMenuItem{
				{Name: "Bruschetta", Price: price(690)},
				{Name: "Suppe", Price: price(450)},
			}},
		},
	}
}

// mustStep fails the test when a transition is rejected.
func mustStep(t *testing.T, st State, err error) State {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return st
}

// scannedState is a session in the review step with sampleMenu loaded.
func scannedState(t *testing.T) State {
	t.Helper()
	st := NewState("s1", "u1", time.Unix(0, 0))
	st = mustStep(t, st.SetBusiness(BusinessDetails{Name: "Da Mario"}))
	st = mustStep(t, st.Next())
	st = mustStep(t, st.AttachImage("k", "menu.png", "image/png", ocr.MethodClient))
	st = mustStep(t, st.StartScan("job-1"))
	st = mustStep(t, st.CompleteScan("job-1", ocr.Recognition{Text: "x", Confidence: 0.7, Engine: "tesseract"}, sampleMenu()))
	return mustStep(t, st.Next())
}

func TestNewState(t *testing.T) {
	st := NewState("s1", "u1", time.Unix(0, 0))
	if st.Step != StepBusinessDetails || st.Scan.Status != ScanIdle {
		t.Fatalf("unexpected initial state %+v", st)
	}
	if st.Design != DefaultDesign() {
		t.Fatalf("expected default design, got %+v", st.Design)
	}
}

func TestNextRequiresBusinessName(t *testing.T) {
	st := NewState("s1", "u1", time.Now())

	if _, err := st.Next(); !errors.Is(err, ErrBusinessNameRequired) {
		t.Fatalf("expected ErrBusinessNameRequired, got %v", err)
	}

	st = mustStep(t, st.SetBusiness(BusinessDetails{Name: "  Da Mario  "}))
	if st.Business.Name != "Da Mario" {
		t.Fatalf("name not trimmed: %q", st.Business.Name)
	}
	st = mustStep(t, st.Next())
	if st.Step != StepScan {
		t.Fatalf("expected scan step, got %v", st.Step)
	}
}

func TestSetBusinessRejectsBadWebsite(t *testing.T) {
	st := NewState("s1", "u1", time.Now())

	_, err := st.SetBusiness(BusinessDetails{Name: "", Website: "not a url"})
	if !errors.Is(err, ErrInvalidWebsite) {
		t.Fatalf("expected ErrInvalidWebsite, got %v", err)
	}
	if _, err := st.SetBusiness(BusinessDetails{Name: "X", Website: "https://example.com"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTransitionsDoNotMutateReceiver(t *testing.T) {
	st := scannedState(t)
	before := st.Review.Current.Categories[0].Items[0].Name

	name := "Bruschetta Classica"
	next := mustStep(t, st.ApplyCorrection(0, 0, menu.ItemUpdate{Name: &name}))

	if st.Review.Current.Categories[0].Items[0].Name != before {
		t.Fatal("receiver was modified")
	}
	if next.Review.Current.Categories[0].Items[0].Name != name {
		t.Fatal("correction not applied")
	}
}

func TestScanGates(t *testing.T) {
	st := NewState("s1", "u1", time.Now())
	st = mustStep(t, st.SetBusiness(BusinessDetails{Name: "Da Mario"}))
	st = mustStep(t, st.Next())

	if _, err := st.Next(); !errors.Is(err, ErrScanNotCompleted) {
		t.Fatalf("expected ErrScanNotCompleted, got %v", err)
	}
	if _, err := st.StartScan("job-1"); !errors.Is(err, ErrNoImage) {
		t.Fatalf("expected ErrNoImage, got %v", err)
	}
	if err := st.CanRetry(); !errors.Is(err, ErrNoImage) {
		t.Fatalf("expected ErrNoImage, got %v", err)
	}

	st = mustStep(t, st.AttachImage("k", "menu.png", "image/png", ocr.MethodBoth))
	st = mustStep(t, st.StartScan("job-1"))
	if _, err := st.Next(); !errors.Is(err, ErrScanInProgress) {
		t.Fatalf("expected ErrScanInProgress, got %v", err)
	}
	if err := st.CanRetry(); !errors.Is(err, ErrScanInProgress) {
		t.Fatalf("expected ErrScanInProgress, got %v", err)
	}
}

func TestScanProgressIsMonotonicAndCapped(t *testing.T) {
	st := NewState("s1", "u1", time.Now())
	st.Step = StepScan
	st = mustStep(t, st.AttachImage("k", "menu.png", "image/png", ocr.MethodClient))
	st = mustStep(t, st.StartScan("job-1"))

	st = mustStep(t, st.ScanProgress("job-1", 40))
	st = mustStep(t, st.ScanProgress("job-1", 20))
	if st.Scan.Progress != 40 {
		t.Fatalf("progress went backwards: %d", st.Scan.Progress)
	}
	st = mustStep(t, st.ScanProgress("job-1", 100))
	if st.Scan.Progress != 99 {
		t.Fatalf("expected progress capped at 99 until done, got %d", st.Scan.Progress)
	}

	st = mustStep(t, st.CompleteScan("job-1", ocr.Recognition{Engine: "tesseract", Confidence: 0.8}, sampleMenu()))
	if st.Scan.Progress != 100 || st.Scan.Status != ScanCompleted || st.Review == nil {
		t.Fatalf("unexpected scan after completion: %+v", st.Scan)
	}
	if st.Scan.TextConfidence != 0.8 {
		t.Fatalf("expected recognizer confidence kept, got %v", st.Scan.TextConfidence)
	}
}

func TestStaleJobEventsIgnored(t *testing.T) {
	st := NewState("s1", "u1", time.Now())
	st.Step = StepScan
	st = mustStep(t, st.AttachImage("k", "menu.png", "image/png", ocr.MethodClient))
	st = mustStep(t, st.StartScan("job-1"))
	st = mustStep(t, st.StartScan("job-2"))

	if _, err := st.ScanProgress("job-1", 50); !errors.Is(err, ErrStaleJob) {
		t.Fatalf("expected ErrStaleJob for progress, got %v", err)
	}
	if _, err := st.CompleteScan("job-1", ocr.Recognition{}, sampleMenu()); !errors.Is(err, ErrStaleJob) {
		t.Fatalf("expected ErrStaleJob for completion, got %v", err)
	}
	if _, err := st.FailScan("job-1", errors.New("boom")); !errors.Is(err, ErrStaleJob) {
		t.Fatalf("expected ErrStaleJob for failure, got %v", err)
	}
}

func TestFailScanAllowsRetry(t *testing.T) {
	st := NewState("s1", "u1", time.Now())
	st.Step = StepScan
	st = mustStep(t, st.AttachImage("k", "menu.png", "image/png", ocr.MethodClient))
	st = mustStep(t, st.StartScan("job-1"))
	st = mustStep(t, st.FailScan("job-1", ocr.ErrRecognitionFailed))

	if st.Scan.Status != ScanError || st.Scan.Error == "" {
		t.Fatalf("unexpected scan %+v", st.Scan)
	}
	if err := st.CanRetry(); err != nil {
		t.Fatalf("expected retry to be allowed, got %v", err)
	}
	st = mustStep(t, st.StartScan("job-2"))
	if st.Scan.Error != "" || st.Scan.Progress != 0 {
		t.Fatalf("retry did not reset scan: %+v", st.Scan)
	}
}

func TestReviewEditsOnlyInReviewStep(t *testing.T) {
	st := scannedState(t)

	back := mustStep(t, st.Previous())
	if _, err := back.ApplyCorrection(0, 0, menu.ItemUpdate{}); !errors.Is(err, ErrWrongStep) {
		t.Fatalf("expected ErrWrongStep, got %v", err)
	}

	next, idx, err := st.AddItem(0)
	if err != nil || idx != 2 {
		t.Fatalf("AddItem: idx=%d err=%v", idx, err)
	}
	next = mustStep(t, next.RemoveItem(0, 0))
	if got := next.Review.Current.Categories[0].Items[0].Name; got != "Suppe" {
		t.Fatalf("expected Suppe first after removal, got %q", got)
	}
	next = mustStep(t, next.ResetReview())
	if next.Review.Current.ItemCount() != 2 || len(next.Review.Corrections) != 0 {
		t.Fatalf("reset did not restore original: %+v", next.Review)
	}
	if _, err := next.ApplyCorrection(5, 0, menu.ItemUpdate{}); !errors.Is(err, menu.ErrPositionOutOfRange) {
		t.Fatalf("expected ErrPositionOutOfRange, got %v", err)
	}
}

func TestDesignValidation(t *testing.T) {
	st := mustStep(t, scannedState(t).Next())
	if st.Step != StepDesign {
		t.Fatalf("expected design step, got %v", st.Step)
	}

	bad := []Design{
		{Template: "neon", QRStyle: "square", PrimaryColor: "#000000", SecondaryColor: "#FFFFFF"},
		{Template: "modern", QRStyle: "star", PrimaryColor: "#000000", SecondaryColor: "#FFFFFF"},
		{Template: "modern", QRStyle: "square", PrimaryColor: "red", SecondaryColor: "#FFFFFF"},
	}
	for _, d := range bad {
		if _, err := st.SetDesign(d); !errors.Is(err, ErrInvalidDesign) {
			t.Errorf("%+v: expected ErrInvalidDesign, got %v", d, err)
		}
	}

	good := Design{Template: "elegant", QRStyle: "circle", PrimaryColor: "#112233", SecondaryColor: "#abcdef"}
	st = mustStep(t, st.SetDesign(good))
	if st.Design != good {
		t.Fatalf("design not stored")
	}
}

func TestSubmissionAndClose(t *testing.T) {
	st := scannedState(t)
	name := "Bruschetta Classica"
	st = mustStep(t, st.ApplyCorrection(0, 0, menu.ItemUpdate{Name: &name}))

	if _, err := st.Submission(); !errors.Is(err, ErrWrongStep) {
		t.Fatalf("expected ErrWrongStep before design, got %v", err)
	}

	st = mustStep(t, st.Next())
	sub, err := st.Submission()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sub.Menu.Categories[0].Items[0].Name != name || len(sub.Corrections) != 1 {
		t.Fatalf("submission lost corrections: %+v", sub)
	}

	failed := mustStep(t, st.SubmitFailed(errors.New("db down")))
	if failed.SubmitError != "db down" || failed.Step != StepDesign {
		t.Fatalf("unexpected failed state %+v", failed)
	}

	done := mustStep(t, failed.Submitted("r1", "da-mario"))
	if done.Step != StepSubmitted || done.Slug != "da-mario" || done.SubmitError != "" {
		t.Fatalf("unexpected submitted state %+v", done)
	}
	if _, err := done.Previous(); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
	if _, err := done.SetBusiness(BusinessDetails{Name: "Y"}); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
}

func TestEmptyMenuMayProceed(t *testing.T) {
	st := NewState("s1", "u1", time.Now())
	st = mustStep(t, st.SetBusiness(BusinessDetails{Name: "Leer"}))
	st = mustStep(t, st.Next())
	st = mustStep(t, st.AttachImage("k", "menu.png", "image/png", ocr.MethodClient))
	st = mustStep(t, st.StartScan("job-1"))
	st = mustStep(t, st.CompleteScan("job-1", ocr.Recognition{}, menu.ProcessedMenu{}))
	st = mustStep(t, st.Next())
	st = mustStep(t, st.Next())

	sub, err := st.Submission()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sub.Menu.ItemCount() != 0 {
		t.Fatalf("expected empty menu")
	}
}

func TestPreviousKeepsCollectedData(t *testing.T) {
	st := scannedState(t)
	name := "Bruschetta Classica"
	st = mustStep(t, st.ApplyCorrection(0, 0, menu.ItemUpdate{Name: &name, Price: price(720)}))
	st = mustStep(t, st.Next())
	design := Design{Template: "elegant", QRStyle: "circle", PrimaryColor: "#101010", SecondaryColor: "#EEEEEE"}
	st = mustStep(t, st.SetDesign(design))

	back := mustStep(t, st.Previous())
	back = mustStep(t, back.Previous())
	if back.Step != StepScan {
		t.Fatalf("expected scan step, got %v", back.Step)
	}

	check := func(got State) {
		t.Helper()
		if got.Business != st.Business {
			t.Fatalf("business changed: %+v", got.Business)
		}
		if got.Scan.ImageKey != "k" || got.Scan.Status != ScanCompleted {
			t.Fatalf("scan changed: %+v", got.Scan)
		}
		if !reflect.DeepEqual(got.Review.Current, st.Review.Current) {
			t.Fatalf("current menu changed: %+v", got.Review.Current)
		}
		if !reflect.DeepEqual(got.Review.Corrections, st.Review.Corrections) || len(got.Review.Corrections) != 1 {
			t.Fatalf("corrections changed: %+v", got.Review.Corrections)
		}
		if got.Design != design {
			t.Fatalf("design changed: %+v", got.Design)
		}
	}
	check(back)

	// forward again without a new scan
	fwd := mustStep(t, back.Next())
	fwd = mustStep(t, fwd.Next())
	if fwd.Step != StepDesign {
		t.Fatalf("expected design step, got %v", fwd.Step)
	}
	check(fwd)
}
