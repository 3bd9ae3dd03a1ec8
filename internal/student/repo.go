package student

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const studentColumns = `id, class, roll_no, student_name, father_name, mother_name, ledger_no, dob, gender,
	fee_amount, fee_status, aadhar_no, photograph_url, signature_url, status, is_submitted, version,
	created_at, updated_at`

// Repository persists students and classes in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.Class, &rec.RollNo, &rec.StudentName, &rec.FatherName, &rec.MotherName,
		&rec.LedgerNo, &rec.DOB, &rec.Gender, &rec.FeeAmount, &rec.FeeStatus, &rec.AadharNo,
		&rec.PhotographURL, &rec.SignatureURL, &rec.Status, &rec.IsSubmitted, &rec.Version,
		&rec.CreatedAt, &rec.UpdatedAt)
	return rec, err
}

// LookupStudent resolves the natural key. It returns nil, nil when no record matches.
func (r *Repository) LookupStudent(ctx context.Context, class, rollNo string) (*Record, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+studentColumns+`
		FROM students WHERE class = $1 AND roll_no = $2`, class, rollNo)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// GetStudent returns a record by id.
func (r *Repository) GetStudent(ctx context.Context, id string) (*Record, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+studentColumns+` FROM students WHERE id = $1`, id)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// ListStudents returns students ordered by class then roll number.
func (r *Repository) ListStudents(ctx context.Context, f Filter) ([]Record, error) {
	query := `SELECT ` + studentColumns + ` FROM students`
	args := []any{}
	clauses := []string{}
	if f.Class != "" {
		args = append(args, f.Class)
		clauses = append(clauses, fmt.Sprintf("class = $%d", len(args)))
	}
	if f.FeeStatus != "" {
		args = append(args, f.FeeStatus)
		clauses = append(clauses, fmt.Sprintf("fee_status = $%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY class ASC, roll_no ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

// CreateStudent inserts a new record at version 1.
func (r *Repository) CreateStudent(ctx context.Context, in FormData) (*Record, error) {
	var ledger *string
	if in.LedgerNo != "" {
		ledger = &in.LedgerNo
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO students (id, class, roll_no, student_name, father_name, mother_name, ledger_no, dob,
			gender, fee_amount, fee_status, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING `+studentColumns,
		uuid.NewString(), in.Class, in.RollNo, in.StudentName, in.FatherName, in.MotherName, ledger, in.DOB,
		in.Gender, in.FeeAmount, in.FeeStatus, in.Status)
	rec, err := scanRecord(row)
	if err != nil {
		return nil, mapWriteErr(err)
	}
	return &rec, nil
}

// UpdateStudent applies an admin patch if the stored version still equals version.
func (r *Repository) UpdateStudent(ctx context.Context, id string, version int, p Patch) (*Record, error) {
	sets := []string{}
	args := []any{id, version}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if p.Class != nil {
		add("class", *p.Class)
	}
	if p.RollNo != nil {
		add("roll_no", *p.RollNo)
	}
	if p.StudentName != nil {
		add("student_name", *p.StudentName)
	}
	if p.FatherName != nil {
		add("father_name", *p.FatherName)
	}
	if p.MotherName != nil {
		add("mother_name", *p.MotherName)
	}
	if p.LedgerNo != nil {
		if *p.LedgerNo == "" {
			add("ledger_no", nil)
		} else {
			add("ledger_no", *p.LedgerNo)
		}
	}
	if p.DOB != nil {
		add("dob", *p.DOB)
	}
	if p.Gender != nil {
		add("gender", *p.Gender)
	}
	if p.FeeAmount != nil {
		add("fee_amount", *p.FeeAmount)
	}
	if p.FeeStatus != nil {
		add("fee_status", *p.FeeStatus)
	}
	if p.Status != nil {
		add("status", *p.Status)
	}
	if p.AadharNo != nil {
		add("aadhar_no", *p.AadharNo)
	}
	if p.PhotographURL != nil {
		add("photograph_url", *p.PhotographURL)
	}
	if p.SignatureURL != nil {
		add("signature_url", *p.SignatureURL)
	}
	if p.IsSubmitted != nil {
		add("is_submitted", *p.IsSubmitted)
	}
	if len(sets) == 0 {
		return r.GetStudent(ctx, id)
	}
	sets = append(sets, "version = version + 1", "updated_at = NOW()")

	row := r.db.QueryRowContext(ctx, `UPDATE students SET `+strings.Join(sets, ", ")+`
		WHERE id = $1 AND version = $2
		RETURNING `+studentColumns, args...)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.missOrConflict(ctx, id)
		}
		return nil, mapWriteErr(err)
	}
	return &rec, nil
}

// SubmitPreboard records the one-time self-service submission. It only succeeds while the
// record is unsubmitted and still at version.
func (r *Repository) SubmitPreboard(ctx context.Context, id string, version int, s Submission) (*Record, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE students
		SET aadhar_no = $3, photograph_url = $4, signature_url = $5, is_submitted = $6,
			version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2 AND is_submitted = FALSE
		RETURNING `+studentColumns,
		id, version, s.AadharNo, s.PhotographURL, s.SignatureURL, s.IsSubmitted)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.missOrConflict(ctx, id)
		}
		return nil, err
	}
	return &rec, nil
}

// DeleteStudent removes a record.
func (r *Repository) DeleteStudent(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListClasses returns the class picker entries ordered by name.
func (r *Repository) ListClasses(ctx context.Context) ([]Class, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, created_at FROM classes ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []Class{}
	for rows.Next() {
		var c Class
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

// EnsureClass inserts a class name if it is not known yet.
func (r *Repository) EnsureClass(ctx context.Context, name string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO classes (id, name, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO NOTHING
	`, uuid.NewString(), name, time.Now().UTC())
	return err
}

// Stats computes the dashboard counters in one pass.
func (r *Repository) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE fee_status = 'paid'),
			COUNT(*) FILTER (WHERE fee_status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'active')
		FROM students
	`).Scan(&s.Total, &s.Paid, &s.Pending, &s.Active)
	return s, err
}

func (r *Repository) missOrConflict(ctx context.Context, id string) error {
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM students WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrConflict
}

func mapWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}
