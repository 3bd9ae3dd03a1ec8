package workflow

import (
	"context"
	"errors"
	"log"
	"path"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"preboard/internal/admitcard"
	"preboard/internal/blob"
	"preboard/internal/metrics"
	"preboard/internal/student"
)

// RecordStore is the part of the record store a session uses.
type RecordStore interface {
	LookupStudent(ctx context.Context, class, rollNo string) (*student.Record, error)
	SubmitPreboard(ctx context.Context, id string, version int, s student.Submission) (*student.Record, error)
}

// BlobStore keeps uploaded documents.
type BlobStore interface {
	UploadFile(ctx context.Context, bucket blob.Bucket, name string, data []byte) (string, error)
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Renderer produces admit cards.
type Renderer interface {
	Render(rec *student.Record, img admitcard.Images) (*admitcard.Document, error)
}

var aadharDigits = regexp.MustCompile(`^\d+$`)

// Upload is one document attached by the student, kept only in memory.
type Upload struct {
	Name        string
	ContentType string
	Data        []byte
	Preview     string
}

// StudentView is the part of a record shown back to the student.
type StudentView struct {
	StudentName string            `json:"student_name"`
	FatherName  string            `json:"father_name"`
	FeeStatus   student.FeeStatus `json:"fee_status"`
	IsSubmitted bool              `json:"is_submitted"`
}

// Snapshot is a consistent copy of a session for the HTTP layer.
type Snapshot struct {
	ID                string       `json:"id"`
	State             State        `json:"state"`
	Message           string       `json:"message,omitempty"`
	Class             string       `json:"class"`
	RollNo            string       `json:"roll_no"`
	Student           *StudentView `json:"student,omitempty"`
	AadharNo          string       `json:"aadhar_no,omitempty"`
	PhotographPreview string       `json:"photograph_preview,omitempty"`
	SignaturePreview  string       `json:"signature_preview,omitempty"`
	CanDownload       bool         `json:"can_download"`
}

// Session is one visit to the pre-board form. The mutex is held across state
// transitions only, never across remote calls; in-flight work is marked by the
// Searching and Submitting states or the rendering flag.
type Session struct {
	id       string
	records  RecordStore
	blobs    BlobStore
	renderer Renderer

	mu         sync.Mutex
	state      State
	class      string
	rollNo     string
	record     *student.Record
	aadhar     string
	photograph *Upload
	signature  *Upload
	rendering  bool
	lastSeen   time.Time
}

func newSession(id string, records RecordStore, blobs BlobStore, renderer Renderer, now time.Time) *Session {
	return &Session{id: id, records: records, blobs: blobs, renderer: renderer, lastSeen: now}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot returns a copy of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:          s.id,
		State:       s.state,
		Message:     s.state.Message(),
		Class:       s.class,
		RollNo:      s.rollNo,
		AadharNo:    s.aadhar,
		CanDownload: s.state.CanDownload(),
	}
	if s.record != nil {
		snap.Student = &StudentView{
			StudentName: s.record.StudentName,
			FatherName:  s.record.FatherName,
			FeeStatus:   s.record.FeeStatus,
			IsSubmitted: s.record.IsSubmitted,
		}
	}
	if s.photograph != nil {
		snap.PhotographPreview = s.photograph.Preview
	}
	if s.signature != nil {
		snap.SignaturePreview = s.signature.Preview
	}
	return snap
}

func (s *Session) busyLocked() bool {
	return s.state == Searching || s.state == Submitting || s.rendering
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.busyLocked() && s.lastSeen.Before(cutoff)
}

// SetQuery records the class and roll number being searched. Changing either one
// discards the resolved record, the aadhar input and the uploads.
func (s *Session) SetQuery(class, rollNo string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busyLocked() {
		return s.snapshotLocked(), ErrBusy
	}
	if class != s.class || rollNo != s.rollNo {
		s.class, s.rollNo = class, rollNo
		s.resetLocked()
	}
	return s.snapshotLocked(), nil
}

func (s *Session) resetLocked() {
	s.state = Idle
	s.record = nil
	s.aadhar = ""
	s.photograph = nil
	s.signature = nil
}

// Search resolves the current query. An absent record leaves the session in NotFound
// and returns ErrNotFound; a failed lookup restores the previous state.
func (s *Session) Search(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	if s.busyLocked() {
		defer s.mu.Unlock()
		return s.snapshotLocked(), ErrBusy
	}
	class, rollNo := strings.TrimSpace(s.class), strings.TrimSpace(s.rollNo)
	if class == "" || rollNo == "" {
		defer s.mu.Unlock()
		return s.snapshotLocked(), &ValidationError{Field: "query", Message: "Please select class and enter roll number"}
	}
	prev := s.state
	s.state = Searching
	s.mu.Unlock()

	rec, err := s.records.LookupStudent(ctx, class, rollNo)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = prev
		metrics.Lookups.WithLabelValues("error").Inc()
		return s.snapshotLocked(), &RemoteError{Op: "lookup", Err: err}
	}
	s.record = rec
	s.state = Classify(rec)
	metrics.Lookups.WithLabelValues(s.state.String()).Inc()
	if s.state == NotFound {
		return s.snapshotLocked(), ErrNotFound
	}
	return s.snapshotLocked(), nil
}

// SetAadhar stores the aadhar input; it is validated on Submit.
func (s *Session) SetAadhar(aadhar string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return s.snapshotLocked(), err
	}
	s.aadhar = aadhar
	return s.snapshotLocked(), nil
}

// AttachPhotograph attaches the photograph upload and computes its preview.
func (s *Session) AttachPhotograph(ctx context.Context, u Upload) (Snapshot, error) {
	return s.Attach(ctx, &u, nil)
}

// AttachSignature attaches the signature upload and computes its preview.
func (s *Session) AttachSignature(ctx context.Context, u Upload) (Snapshot, error) {
	return s.Attach(ctx, nil, &u)
}

// Attach attaches either or both uploads. Previews are computed concurrently before
// the session is touched, so a bad image leaves both slots as they were.
func (s *Session) Attach(ctx context.Context, photograph, signature *Upload) (Snapshot, error) {
	if err := s.check(s.editableLocked); err != nil {
		return s.Snapshot(), err
	}

	g, _ := errgroup.WithContext(ctx)
	for _, item := range []struct {
		field string
		up    *Upload
	}{{"photograph", photograph}, {"signature", signature}} {
		field, up := item.field, item.up
		if up == nil {
			continue
		}
		g.Go(func() error {
			preview, err := admitcard.Preview(up.Data)
			if err != nil {
				return &ValidationError{Field: field, Message: "must be a JPEG, PNG, GIF or WebP image"}
			}
			up.Preview = preview
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return s.Snapshot(), err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return s.snapshotLocked(), err
	}
	if photograph != nil {
		s.photograph = photograph
	}
	if signature != nil {
		s.signature = signature
	}
	return s.snapshotLocked(), nil
}

// ClearPhotograph drops the photograph upload.
func (s *Session) ClearPhotograph() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return s.snapshotLocked(), err
	}
	s.photograph = nil
	return s.snapshotLocked(), nil
}

// ClearSignature drops the signature upload.
func (s *Session) ClearSignature() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return s.snapshotLocked(), err
	}
	s.signature = nil
	return s.snapshotLocked(), nil
}

func (s *Session) check(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

func (s *Session) editableLocked() error {
	if s.busyLocked() {
		return ErrBusy
	}
	if s.state != FoundEligible {
		return ErrInvalidState
	}
	return nil
}

func validateAadhar(a string) error {
	if len(a) != 12 {
		return &ValidationError{Field: "aadhar_no", Message: "Aadhar number must be 12 digits"}
	}
	if !aadharDigits.MatchString(a) {
		return &ValidationError{Field: "aadhar_no", Message: "Aadhar must contain only numbers"}
	}
	return nil
}

// Submit uploads both documents and records the submission. Only FoundEligible may
// submit; invalid input fails before any remote call, and any remote failure returns
// the session to FoundEligible with the local record untouched.
func (s *Session) Submit(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	if err := s.editableLocked(); err != nil {
		defer s.mu.Unlock()
		return s.snapshotLocked(), err
	}
	if err := validateAadhar(s.aadhar); err != nil {
		defer s.mu.Unlock()
		return s.snapshotLocked(), err
	}
	if s.photograph == nil || s.signature == nil {
		defer s.mu.Unlock()
		field := "photograph"
		if s.photograph != nil {
			field = "signature"
		}
		return s.snapshotLocked(), &ValidationError{Field: field, Message: "Please upload photograph and signature"}
	}
	s.state = Submitting
	rec := *s.record
	aadhar, photo, sig := s.aadhar, s.photograph, s.signature
	s.mu.Unlock()

	updated, err := s.submit(ctx, &rec, aadhar, photo, sig)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = FoundEligible
		metrics.Submissions.WithLabelValues("error").Inc()
		return s.snapshotLocked(), err
	}
	s.record = updated
	s.state = Submitted
	metrics.Submissions.WithLabelValues("ok").Inc()
	return s.snapshotLocked(), nil
}

func (s *Session) submit(ctx context.Context, rec *student.Record, aadhar string, photo, sig *Upload) (*student.Record, error) {
	var photoURL, sigURL string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		url, err := s.blobs.UploadFile(gctx, blob.Photographs, rec.ID+path.Ext(photo.Name), photo.Data)
		photoURL = url
		return err
	})
	g.Go(func() error {
		url, err := s.blobs.UploadFile(gctx, blob.Signatures, rec.ID+path.Ext(sig.Name), sig.Data)
		sigURL = url
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, &RemoteError{Op: "upload", Err: err}
	}

	updated, err := s.records.SubmitPreboard(ctx, rec.ID, rec.Version, student.Submission{
		AadharNo:      aadhar,
		PhotographURL: photoURL,
		SignatureURL:  sigURL,
		IsSubmitted:   true,
	})
	if err != nil {
		return nil, &RemoteError{Op: "submit", Err: err}
	}
	return updated, nil
}

// AdmitCard renders the card for a submitted record. Documents attached in this
// session are used first; otherwise the stored uploads are fetched, and a failed
// fetch leaves the placeholder on the card.
func (s *Session) AdmitCard(ctx context.Context) (*admitcard.Document, error) {
	s.mu.Lock()
	if s.busyLocked() {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	if !s.state.CanDownload() {
		s.mu.Unlock()
		return nil, ErrInvalidState
	}
	s.rendering = true
	rec := *s.record
	var img admitcard.Images
	if s.photograph != nil {
		img.Photograph = s.photograph.Data
	}
	if s.signature != nil {
		img.Signature = s.signature.Data
	}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.rendering = false
		s.mu.Unlock()
	}()

	if img.Photograph == nil {
		img.Photograph = s.fetchStored(ctx, rec.PhotographURL)
	}
	if img.Signature == nil {
		img.Signature = s.fetchStored(ctx, rec.SignatureURL)
	}
	doc, err := s.renderer.Render(&rec, img)
	if err != nil {
		return nil, err
	}
	metrics.AdmitCards.WithLabelValues("public").Inc()
	return doc, nil
}

func (s *Session) fetchStored(ctx context.Context, url *string) []byte {
	if url == nil || *url == "" || s.blobs == nil {
		return nil
	}
	data, err := s.blobs.Fetch(ctx, *url)
	if err != nil {
		log.Printf("session %s: fetch %s: %v", s.id, *url, err)
		return nil
	}
	return data
}

// IsRemote reports whether err came from a collaborator call.
func IsRemote(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}
