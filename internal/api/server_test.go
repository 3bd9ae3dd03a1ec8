package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"preboard/internal/admitcard"
	"preboard/internal/blob"
	"preboard/internal/identity"
	"preboard/internal/student"
	"preboard/internal/workflow"
)

var testTokens = identity.TokenConfig{Issuer: "preboard-test", SigningKey: "test-key", AccessTTL: time.Minute, RefreshTTL: time.Hour}

type memStudents struct {
	mu   sync.Mutex
	recs map[string]*student.Record
}

func newMemStudents() *memStudents {
	dob := time.Date(2010, 4, 9, 0, 0, 0, 0, time.UTC)
	return &memStudents{recs: map[string]*student.Record{
		"s-1": {ID: "s-1", Class: "10", RollNo: "7", StudentName: "Asha Verma", FatherName: "Ravi Verma", MotherName: "Meena Verma",
			DOB: dob, Gender: student.GenderFemale, FeeStatus: student.FeePaid, Status: student.StatusActive, Version: 1},
		"s-2": {ID: "s-2", Class: "9", RollNo: "3", StudentName: "Kabir Rao", FatherName: "Anil Rao", MotherName: "Sita Rao",
			DOB: dob, Gender: student.GenderMale, FeeStatus: student.FeePending, Status: student.StatusActive, Version: 1},
	}}
}

func (m *memStudents) Get(_ context.Context, id string) (*student.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[id]
	if !ok {
		return nil, student.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *memStudents) List(_ context.Context, f student.Filter) ([]student.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []student.Record
	for _, r := range m.recs {
		if f.Class != "" && r.Class != f.Class {
			continue
		}
		if f.FeeStatus != "" && r.FeeStatus != f.FeeStatus {
			continue
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStudents) Create(_ context.Context, in student.FormData) (*student.Record, error) {
	if strings.TrimSpace(in.StudentName) == "" {
		return nil, student.ValidationErrors{{Field: "student_name", Message: "is required"}}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.recs {
		if r.Class == in.Class && r.RollNo == in.RollNo {
			return nil, student.ErrDuplicate
		}
	}
	rec := &student.Record{ID: "s-new", Class: in.Class, RollNo: in.RollNo, StudentName: in.StudentName, Version: 1}
	m.recs[rec.ID] = rec
	return rec, nil
}

func (m *memStudents) Update(_ context.Context, id string, version int, p student.Patch) (*student.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[id]
	if !ok {
		return nil, student.ErrNotFound
	}
	if rec.Version != version {
		return nil, student.ErrConflict
	}
	if p.StudentName != nil {
		rec.StudentName = *p.StudentName
	}
	rec.Version++
	cp := *rec
	return &cp, nil
}

func (m *memStudents) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recs[id]; !ok {
		return student.ErrNotFound
	}
	delete(m.recs, id)
	return nil
}

func (m *memStudents) Classes(context.Context) ([]student.Class, error) {
	return []student.Class{{ID: "c-9", Name: "9"}, {ID: "c-10", Name: "10"}}, nil
}

func (m *memStudents) Stats(context.Context) (student.Stats, error) {
	return student.Stats{Total: 2, Paid: 1, Pending: 1, Active: 2}, nil
}

// records adapts memStudents to the lookup and submit calls of the public flow.
type records struct{ *memStudents }

func (r records) LookupStudent(_ context.Context, class, rollNo string) (*student.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.recs {
		if rec.Class == class && rec.RollNo == rollNo {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, nil
}

func (r records) SubmitPreboard(_ context.Context, id string, version int, s student.Submission) (*student.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := r.recs[id]
	if rec.Version != version || rec.IsSubmitted {
		return nil, student.ErrConflict
	}
	rec.AadharNo = &s.AadharNo
	rec.PhotographURL = &s.PhotographURL
	rec.SignatureURL = &s.SignatureURL
	rec.IsSubmitted = s.IsSubmitted
	rec.Version++
	cp := *rec
	return &cp, nil
}

type memBlobs struct {
	mu         sync.Mutex
	configured bool
	stored     map[string][]byte
}

func (b *memBlobs) Upload(_ context.Context, bucket blob.Bucket, name string, data []byte) (*blob.UploadResult, error) {
	if !b.configured {
		return nil, blob.ErrNotConfigured
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	url := "https://cdn.test/" + string(bucket) + "/" + name
	b.stored[url] = data
	return &blob.UploadResult{SecureURL: url, PublicID: string(bucket) + "/" + name, Bytes: len(data)}, nil
}

func (b *memBlobs) UploadFile(ctx context.Context, bucket blob.Bucket, name string, data []byte) (string, error) {
	res, err := b.Upload(ctx, bucket, name, data)
	if err != nil {
		return "", err
	}
	return res.SecureURL, nil
}

func (b *memBlobs) Fetch(_ context.Context, url string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stored[url], nil
}

type stubRenderer struct {
	mu   sync.Mutex
	seen []admitcard.Images
}

func (r *stubRenderer) Render(rec *student.Record, img admitcard.Images) (*admitcard.Document, error) {
	if rec.StudentName == "" {
		return nil, &admitcard.RenderError{Field: "student_name"}
	}
	r.mu.Lock()
	r.seen = append(r.seen, img)
	r.mu.Unlock()
	return &admitcard.Document{
		Filename:    admitcard.Filename(rec.Class, rec.RollNo),
		ContentType: admitcard.ContentType,
		Data:        []byte("%PDF-1.3 test"),
	}, nil
}

type memUsers struct {
	mu     sync.Mutex
	users  map[string]*identity.User
	admins map[string]bool
	tokens map[string]bool
}

func (m *memUsers) FindUserByEmail(_ context.Context, email string) (*identity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[strings.ToLower(strings.TrimSpace(email))], nil
}

func (m *memUsers) SaveRefreshToken(_ context.Context, _, tokenID string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[tokenID] = true
	return nil
}

func (m *memUsers) RevokeRefreshToken(_ context.Context, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	active := m.tokens[tokenID]
	m.tokens[tokenID] = false
	return active, nil
}

func (m *memUsers) HasRole(_ context.Context, userID, role string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return role == identity.AdminRole && m.admins[userID], nil
}

type fixture struct {
	router   *gin.Engine
	students *memStudents
	blobs    *memBlobs
	renderer *stubRenderer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	hash, err := identity.HashPassword("s3cret!")
	require.NoError(t, err)
	users := &memUsers{
		users: map[string]*identity.User{
			"head@school.test":  {ID: "u-1", Email: "head@school.test", PasswordHash: hash},
			"clerk@school.test": {ID: "u-2", Email: "clerk@school.test", PasswordHash: hash},
		},
		admins: map[string]bool{"u-1": true},
		tokens: map[string]bool{},
	}
	roles := identity.NewRoleChecker(users, nil, 0, time.Second)
	ids := identity.NewSessions(users, roles, testTokens)
	t.Cleanup(ids.Close)

	f := &fixture{
		students: newMemStudents(),
		blobs:    &memBlobs{configured: true, stored: map[string][]byte{}},
		renderer: &stubRenderer{},
	}
	srv := New(Deps{
		Students: f.students,
		Sessions: workflow.NewRegistry(records{f.students}, f.blobs, f.renderer, time.Hour),
		Identity: ids,
		Roles:    roles,
		Blobs:    f.blobs,
		Renderer: f.renderer,
		Tokens:   testTokens,
		Health:   map[string]HealthCheck{"db": func(context.Context) bool { return true }},
	})
	f.router = srv.Router()
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) upload(t *testing.T, path string, files map[string][]byte, fields map[string]string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for field, data := range files {
		fw, err := mw.CreateFormFile(field, field+".png")
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	for x := 0; x < 40; x++ {
		img.Set(x, 15, color.Black)
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func bearer(t *testing.T, userID, email string) []string {
	t.Helper()
	pair, err := identity.Issue(userID, email, testTokens)
	require.NoError(t, err)
	return []string{"Authorization", "Bearer " + pair.AccessToken}
}

func TestPublicSubmissionFlow(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/v1/preboard/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode(t, w)["id"].(string)
	base := "/v1/preboard/sessions/" + id

	w = f.do(t, http.MethodPost, base+"/search", gin.H{"class": "10", "roll_no": "99"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "not_found", decode(t, w)["state"])

	w = f.do(t, http.MethodPost, base+"/search", gin.H{"class": "10", "roll_no": "7"})
	require.Equal(t, http.StatusOK, w.Code)
	snap := decode(t, w)
	assert.Equal(t, "found_eligible", snap["state"])
	assert.Equal(t, "Asha Verma", snap["student"].(map[string]any)["student_name"])

	w = f.do(t, http.MethodPost, base+"/submit", nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "aadhar_no", decode(t, w)["field"])

	w = f.do(t, http.MethodPut, base+"/aadhar", gin.H{"aadhar_no": "12345678901A"})
	require.Equal(t, http.StatusOK, w.Code)

	img := pngBytes(t)
	w = f.upload(t, base+"/uploads", map[string][]byte{"photograph": img, "signature": img}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	snap = decode(t, w)
	assert.True(t, strings.HasPrefix(snap["photograph_preview"].(string), "data:image/jpeg;base64,"))
	assert.NotEmpty(t, snap["signature_preview"])

	w = f.do(t, http.MethodGet, base+"/admit-card", nil)
	assert.Equal(t, http.StatusConflict, w.Code, "no card before submission")

	w = f.do(t, http.MethodPost, base+"/submit", nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "Aadhar must contain only numbers", decode(t, w)["error"])

	w = f.do(t, http.MethodPut, base+"/aadhar", gin.H{"aadhar_no": "123456789012"})
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPost, base+"/submit", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	snap = decode(t, w)
	assert.Equal(t, "submitted", snap["state"])
	assert.Equal(t, true, snap["can_download"])

	rec, err := f.students.Get(context.Background(), "s-1")
	require.NoError(t, err)
	assert.True(t, rec.IsSubmitted)
	assert.Equal(t, 2, rec.Version)

	w = f.do(t, http.MethodGet, base+"/admit-card", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, admitcard.ContentType, w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="admit_card_10_7.pdf"`, w.Header().Get("Content-Disposition"))

	w = f.do(t, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = f.do(t, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPendingFeeSearchShowsMessage(t *testing.T) {
	f := newFixture(t)
	id := decode(t, f.do(t, http.MethodPost, "/v1/preboard/sessions", nil))["id"].(string)

	w := f.do(t, http.MethodPost, "/v1/preboard/sessions/"+id+"/search", gin.H{"class": "9", "roll_no": "3"})
	require.Equal(t, http.StatusOK, w.Code)
	snap := decode(t, w)
	assert.Equal(t, "found_pending_fee", snap["state"])
	assert.Equal(t, "Your fee is pending. Please contact Principal Office.", snap["message"])

	w = f.upload(t, "/v1/preboard/sessions/"+id+"/uploads", map[string][]byte{"photograph": pngBytes(t)}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestUploadValidation(t *testing.T) {
	f := newFixture(t)
	id := decode(t, f.do(t, http.MethodPost, "/v1/preboard/sessions", nil))["id"].(string)
	base := "/v1/preboard/sessions/" + id
	f.do(t, http.MethodPost, base+"/search", gin.H{"class": "10", "roll_no": "7"})

	w := f.upload(t, base+"/uploads", map[string][]byte{"signature": []byte("not an image")}, nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "signature", decode(t, w)["field"])

	w = f.upload(t, base+"/uploads", nil, map[string]string{"note": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.upload(t, base+"/uploads", map[string][]byte{"photograph": pngBytes(t)}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = f.do(t, http.MethodDelete, base+"/uploads/photograph", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decode(t, w)["photograph_preview"])

	w = f.do(t, http.MethodDelete, base+"/uploads/birth-certificate", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUnknownSession(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodPost, "/v1/preboard/sessions/missing/search", gin.H{"class": "10", "roll_no": "7"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = f.do(t, http.MethodDelete, "/v1/preboard/sessions/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestClassesAndHealth(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/v1/classes", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["classes"], 2)

	w = f.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, true, body["db"])
}

func TestLoginRefreshLogout(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/v1/auth/login", gin.H{"email": "head@school.test", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodPost, "/v1/auth/login", gin.H{"email": "head@school.test", "password": "s3cret!"})
	require.Equal(t, http.StatusOK, w.Code)
	sess := decode(t, w)
	assert.Equal(t, "admin", sess["role"])
	tokens := sess["tokens"].(map[string]any)
	access, refresh := tokens["access_token"].(string), tokens["refresh_token"].(string)

	w = f.do(t, http.MethodGet, "/v1/auth/session", nil, "Authorization", "Bearer "+access)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u-1", decode(t, w)["user_id"])

	w = f.do(t, http.MethodPost, "/v1/auth/refresh", gin.H{"refresh_token": refresh})
	require.Equal(t, http.StatusOK, w.Code)
	rotated := decode(t, w)["tokens"].(map[string]any)["refresh_token"].(string)

	w = f.do(t, http.MethodPost, "/v1/auth/refresh", gin.H{"refresh_token": refresh})
	assert.Equal(t, http.StatusUnauthorized, w.Code, "rotated tokens cannot be reused")

	w = f.do(t, http.MethodPost, "/v1/auth/logout", gin.H{"refresh_token": rotated})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(t, http.MethodGet, "/v1/auth/session", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/v1/admin/dashboard", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodGet, "/v1/admin/dashboard", nil, bearer(t, "u-2", "clerk@school.test")...)
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "you do not have admin access", decode(t, w)["error"])

	w = f.do(t, http.MethodGet, "/v1/admin/dashboard", nil, bearer(t, "u-1", "head@school.test")...)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode(t, w)["stats"].(map[string]any)
	assert.EqualValues(t, 2, stats["total"])
	assert.EqualValues(t, 1, stats["fee_pending"])
}

func TestAdminStudentCRUD(t *testing.T) {
	f := newFixture(t)
	admin := bearer(t, "u-1", "head@school.test")

	w := f.do(t, http.MethodGet, "/v1/admin/students?fee_status=pending", nil, admin...)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode(t, w)["students"].([]any)
	require.Len(t, list, 1)
	assert.Equal(t, "s-2", list[0].(map[string]any)["id"])

	w = f.do(t, http.MethodPost, "/v1/admin/students", gin.H{"class": "10", "roll_no": "7", "student_name": "Dup"}, admin...)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(t, http.MethodPost, "/v1/admin/students", gin.H{"class": "10", "roll_no": "8"}, admin...)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	fields := decode(t, w)["fields"].([]any)
	assert.Equal(t, "student_name", fields[0].(map[string]any)["field"])

	w = f.do(t, http.MethodPut, "/v1/admin/students/s-1", gin.H{"version": 1, "student_name": "Asha V."}, admin...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, decode(t, w)["version"])

	w = f.do(t, http.MethodPut, "/v1/admin/students/s-1", gin.H{"version": 1, "student_name": "Stale"}, admin...)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(t, http.MethodPut, "/v1/admin/students/s-1", gin.H{"student_name": "No version"}, admin...)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodDelete, "/v1/admin/students/s-2", nil, admin...)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = f.do(t, http.MethodGet, "/v1/admin/students/s-2", nil, admin...)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminAdmitCardUsesStoredImages(t *testing.T) {
	f := newFixture(t)
	admin := bearer(t, "u-1", "head@school.test")
	photo := "https://cdn.test/photographs/s-2.jpg"
	f.blobs.stored[photo] = []byte("jpeg bytes")
	f.students.recs["s-2"].PhotographURL = &photo

	w := f.do(t, http.MethodGet, "/v1/admin/students/s-2/admit-card", nil, admin...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="admit_card_9_3.pdf"`, w.Header().Get("Content-Disposition"))
	require.Len(t, f.renderer.seen, 1)
	assert.Equal(t, []byte("jpeg bytes"), f.renderer.seen[0].Photograph)
	assert.Nil(t, f.renderer.seen[0].Signature)

	f.students.recs["s-2"].StudentName = ""
	w = f.do(t, http.MethodGet, "/v1/admin/students/s-2/admit-card", nil, admin...)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "student_name", decode(t, w)["field"])
}

func TestExportStudents(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/v1/admin/export/students?class=10", nil, bearer(t, "u-1", "head@school.test")...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")), "xlsx is a zip archive")
}

func TestAdminUpload(t *testing.T) {
	f := newFixture(t)
	admin := bearer(t, "u-1", "head@school.test")

	w := f.upload(t, "/v1/admin/uploads/passports", map[string][]byte{"file": pngBytes(t)}, nil, admin...)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.upload(t, "/v1/admin/uploads/signatures", map[string][]byte{"file": pngBytes(t)}, map[string]string{"name": "s-1.png"}, admin...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://cdn.test/signatures/s-1.png", decode(t, w)["url"])

	f.blobs.configured = false
	w = f.upload(t, "/v1/admin/uploads/signatures", map[string][]byte{"file": pngBytes(t)}, nil, admin...)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodOptions, "/v1/classes", nil)
	req.Header.Set("Origin", "https://school.test")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
