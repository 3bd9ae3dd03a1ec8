package student

import (
	"errors"
	"time"
)

// Gender of a student as entered on the admin form.
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

// FeeStatus gates the self-service submission.
type FeeStatus string

const (
	FeePaid    FeeStatus = "paid"
	FeePending FeeStatus = "pending"
)

// Status is the administrative lifecycle of a record.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

var (
	// ErrNotFound is returned by id-addressed operations when no row matches.
	ErrNotFound = errors.New("student not found")
	// ErrConflict is returned when the stored version moved since the caller read it,
	// or a self-service submission hits a record that is already submitted.
	ErrConflict = errors.New("student record was modified concurrently")
	// ErrDuplicate is returned when (class, roll_no) is already taken.
	ErrDuplicate = errors.New("a student with this class and roll number already exists")
)

// Record is a student as stored by the record store.
type Record struct {
	ID            string    `json:"id"`
	Class         string    `json:"class"`
	RollNo        string    `json:"roll_no"`
	StudentName   string    `json:"student_name"`
	FatherName    string    `json:"father_name"`
	MotherName    string    `json:"mother_name"`
	LedgerNo      *string   `json:"ledger_no"`
	DOB           time.Time `json:"dob"`
	Gender        Gender    `json:"gender"`
	FeeAmount     float64   `json:"fee_amount"`
	FeeStatus     FeeStatus `json:"fee_status"`
	AadharNo      *string   `json:"aadhar_no"`
	PhotographURL *string   `json:"photograph_url"`
	SignatureURL  *string   `json:"signature_url"`
	Status        Status    `json:"status"`
	IsSubmitted   bool      `json:"is_submitted"`
	Version       int       `json:"version"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// FeePendingBlocks reports whether the fee status blocks self-service submission.
func (r *Record) FeePendingBlocks() bool {
	return r.FeeStatus != FeePaid
}

// FormData is the payload of the admin create/edit form.
type FormData struct {
	Class       string    `json:"class" validate:"required,max=50"`
	RollNo      string    `json:"roll_no" validate:"required,max=20"`
	StudentName string    `json:"student_name" validate:"required,max=100"`
	FatherName  string    `json:"father_name" validate:"required,max=100"`
	MotherName  string    `json:"mother_name" validate:"required,max=100"`
	LedgerNo    string    `json:"ledger_no" validate:"max=50"`
	DOB         time.Time `json:"dob" validate:"required"`
	Gender      Gender    `json:"gender" validate:"required,oneof=Male Female Other"`
	FeeAmount   float64   `json:"fee_amount" validate:"gte=0"`
	FeeStatus   FeeStatus `json:"fee_status" validate:"required,oneof=paid pending"`
	Status      Status    `json:"status" validate:"required,oneof=active inactive"`
}

// Patch carries the admin-editable fields of an update; nil pointers are left unchanged.
type Patch struct {
	Class         *string    `json:"class,omitempty" validate:"omitempty,min=1,max=50"`
	RollNo        *string    `json:"roll_no,omitempty" validate:"omitempty,min=1,max=20"`
	StudentName   *string    `json:"student_name,omitempty" validate:"omitempty,min=1,max=100"`
	FatherName    *string    `json:"father_name,omitempty" validate:"omitempty,min=1,max=100"`
	MotherName    *string    `json:"mother_name,omitempty" validate:"omitempty,min=1,max=100"`
	LedgerNo      *string    `json:"ledger_no,omitempty" validate:"omitempty,max=50"`
	DOB           *time.Time `json:"dob,omitempty"`
	Gender        *Gender    `json:"gender,omitempty" validate:"omitempty,oneof=Male Female Other"`
	FeeAmount     *float64   `json:"fee_amount,omitempty" validate:"omitempty,gte=0"`
	FeeStatus     *FeeStatus `json:"fee_status,omitempty" validate:"omitempty,oneof=paid pending"`
	Status        *Status    `json:"status,omitempty" validate:"omitempty,oneof=active inactive"`
	AadharNo      *string    `json:"aadhar_no,omitempty" validate:"omitempty,len=12,number"`
	PhotographURL *string    `json:"photograph_url,omitempty" validate:"omitempty,url"`
	SignatureURL  *string    `json:"signature_url,omitempty" validate:"omitempty,url"`
	IsSubmitted   *bool      `json:"is_submitted,omitempty"`
}

// Submission is the only write the public flow may make, once.
type Submission struct {
	AadharNo      string `json:"aadhar_no"`
	PhotographURL string `json:"photograph_url"`
	SignatureURL  string `json:"signature_url"`
	IsSubmitted   bool   `json:"is_submitted"`
}

// Filter narrows the admin roster listing.
type Filter struct {
	Class     string    `form:"class"`
	FeeStatus FeeStatus `form:"fee_status"`
}

// Class is an entry of the class picker.
type Class struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Stats are the admin dashboard counters.
type Stats struct {
	Total   int `json:"total"`
	Paid    int `json:"fee_paid"`
	Pending int `json:"fee_pending"`
	Active  int `json:"active"`
}
