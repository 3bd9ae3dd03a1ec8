package student

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Store is what the service needs from persistence; *Repository implements it.
type Store interface {
	LookupStudent(ctx context.Context, class, rollNo string) (*Record, error)
	GetStudent(ctx context.Context, id string) (*Record, error)
	ListStudents(ctx context.Context, f Filter) ([]Record, error)
	CreateStudent(ctx context.Context, in FormData) (*Record, error)
	UpdateStudent(ctx context.Context, id string, version int, p Patch) (*Record, error)
	SubmitPreboard(ctx context.Context, id string, version int, s Submission) (*Record, error)
	DeleteStudent(ctx context.Context, id string) error
	ListClasses(ctx context.Context) ([]Class, error)
	EnsureClass(ctx context.Context, name string) error
	Stats(ctx context.Context) (Stats, error)
}

// FieldError describes one rejected form field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is returned when admin form data is rejected.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, fe := range v {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return "invalid student data: " + strings.Join(parts, "; ")
}

// Service validates admin input before it reaches the record store.
type Service struct {
	store    Store
	classes  *ClassCache
	validate *validator.Validate
}

// NewService creates a service. classes may be nil to read classes uncached.
func NewService(store Store, classes *ClassCache) *Service {
	return &Service{store: store, classes: classes, validate: newValidator()}
}

// LookupStudent resolves (class, roll_no); it returns nil, nil when absent.
func (s *Service) LookupStudent(ctx context.Context, class, rollNo string) (*Record, error) {
	return s.store.LookupStudent(ctx, strings.TrimSpace(class), strings.TrimSpace(rollNo))
}

// Get returns one record.
func (s *Service) Get(ctx context.Context, id string) (*Record, error) {
	return s.store.GetStudent(ctx, id)
}

// List returns the filtered roster.
func (s *Service) List(ctx context.Context, f Filter) ([]Record, error) {
	if f.FeeStatus != "" && f.FeeStatus != FeePaid && f.FeeStatus != FeePending {
		return nil, ValidationErrors{{Field: "fee_status", Message: "must be paid or pending"}}
	}
	return s.store.ListStudents(ctx, f)
}

// Create validates and inserts a student, registering its class for the picker.
func (s *Service) Create(ctx context.Context, in FormData) (*Record, error) {
	in.Class = strings.TrimSpace(in.Class)
	in.RollNo = strings.TrimSpace(in.RollNo)
	if err := s.check(in); err != nil {
		return nil, err
	}
	rec, err := s.store.CreateStudent(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := s.store.EnsureClass(ctx, rec.Class); err != nil {
		return nil, fmt.Errorf("register class: %w", err)
	}
	s.classes.Invalidate(ctx)
	return rec, nil
}

// Update validates and applies an admin patch against version.
func (s *Service) Update(ctx context.Context, id string, version int, p Patch) (*Record, error) {
	if err := s.check(p); err != nil {
		return nil, err
	}
	if p.IsSubmitted != nil && *p.IsSubmitted {
		cur, err := s.store.GetStudent(ctx, id)
		if err != nil {
			return nil, err
		}
		if !submittable(cur, p) {
			return nil, ValidationErrors{{Field: "is_submitted", Message: "aadhar number, photograph and signature are required"}}
		}
	}
	rec, err := s.store.UpdateStudent(ctx, id, version, p)
	if err != nil {
		return nil, err
	}
	if p.Class != nil {
		if err := s.store.EnsureClass(ctx, rec.Class); err != nil {
			return nil, fmt.Errorf("register class: %w", err)
		}
		s.classes.Invalidate(ctx)
	}
	return rec, nil
}

// SubmitPreboard records the self-service submission. Incomplete submissions never
// reach the store.
func (s *Service) SubmitPreboard(ctx context.Context, id string, version int, sub Submission) (*Record, error) {
	if !sub.IsSubmitted || sub.AadharNo == "" || sub.PhotographURL == "" || sub.SignatureURL == "" {
		return nil, errors.New("submission requires aadhar number, photograph and signature")
	}
	return s.store.SubmitPreboard(ctx, id, version, sub)
}

// Delete removes a student.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.DeleteStudent(ctx, id)
}

// Classes returns the class picker entries, cached when a cache is configured.
func (s *Service) Classes(ctx context.Context) ([]Class, error) {
	return s.classes.Get(ctx, s.store.ListClasses)
}

// Stats returns the dashboard counters.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	return s.store.Stats(ctx)
}

func (s *Service) check(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := make(ValidationErrors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fe.Field(), Message: describe(fe)})
	}
	return out
}

// submittable enforces isSubmitted ⇒ aadhar, photograph and signature present,
// looking at the patch first and the stored record second.
func submittable(cur *Record, p Patch) bool {
	has := func(patch, stored *string) bool {
		if patch != nil {
			return *patch != ""
		}
		return stored != nil && *stored != ""
	}
	return has(p.AadharNo, cur.AadharNo) && has(p.PhotographURL, cur.PhotographURL) && has(p.SignatureURL, cur.SignatureURL)
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "min":
		return "must not be empty"
	case "gte":
		return "must not be negative"
	case "oneof":
		return "must be one of " + fe.Param()
	case "len", "number":
		return "must be exactly 12 digits"
	case "url":
		return "must be a URL"
	}
	return "is invalid"
}
