package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/emisoft/buzon/core/otp"
	"github.com/emisoft/buzon/core/staff"
	"github.com/emisoft/buzon/core/ticket"
	emailsvc "github.com/emisoft/buzon/services/email"
	"github.com/emisoft/buzon/storage/bucket"
	dummydb "github.com/emisoft/buzon/storage/database/dummy"
	"github.com/emisoft/buzon/storage/session"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

type nopLogger struct{}

func (nopLogger) Debug(msg string, args ...interface{}) {}
func (nopLogger) Info(msg string, args ...interface{})  {}
func (nopLogger) Warn(msg string, args ...interface{})  {}
func (nopLogger) Error(msg string, args ...interface{}) {}
func (nopLogger) Fatal(msg string, args ...interface{}) {}

type testApp struct {
	server    Server
	ticketSvc *ticket.Service
	staffSvc  *staff.Service
	gate      *otp.Gate
	sessions  otp.SessionStore
	evidence  ticket.EvidenceStore
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	emailsvc.ResetSentMessages()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	mailSvc := emailsvc.NewConsoleServiceMock()
	sessions := session.NewInmemStore()
	evidence := bucket.NewInmemStore()
	logger := nopLogger{}

	ticketSvc := ticket.NewService(dummydb.NewTicketRepository(db), mailSvc, ticket.NewClassifier(logger), logger)
	staffSvc := staff.NewService(dummydb.NewStaffRepository(db))
	gate := otp.NewGate(sessions, mailSvc, logger)

	app := &testApp{
		ticketSvc: ticketSvc,
		staffSvc:  staffSvc,
		gate:      gate,
		sessions:  sessions,
		evidence:  evidence,
	}
	app.server = NewServer(&Options{
		DisableReqLogs: true,
		TicketSvc:      ticketSvc,
		StaffSvc:       staffSvc,
		Gate:           gate,
		Sessions:       sessions,
		Evidence:       evidence,
		Logger:         logger,
	})
	return app
}

// seedSession plants a visitor session directly in the store.
func (app *testApp) seedSession(t *testing.T, sid string, sess otp.Session) {
	t.Helper()
	if err := app.sessions.Save(context.Background(), sid, sess); err != nil {
		t.Fatalf("seeding session failed: %v", err)
	}
}

func (app *testApp) createCategory(t *testing.T, name, email string) ticket.Category {
	t.Helper()
	cat, err := app.ticketSvc.CreateCategory(context.Background(), ticket.NewCategory{Name: name, ResponsibleEmail: email})
	if err != nil {
		t.Fatalf("CreateCategory() failed: %v", err)
	}
	return cat
}

func (app *testApp) createTicket(t *testing.T, catID int, subject, description string) ticket.Ticket {
	t.Helper()
	tkt, err := app.ticketSvc.Create(context.Background(), "seed@est.emi.edu.bo", ticket.NewTicket{
		CategoryID:  catID,
		Subject:     subject,
		Description: description,
	})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	return tkt
}

func (app *testApp) createStaff(t *testing.T, name, email, pwd string, isAdmin bool) staff.User {
	t.Helper()
	usr, err := app.staffSvc.Create(context.Background(), staff.NewUser{
		Name:            name,
		Email:           email,
		Password:        pwd,
		PasswordConfirm: pwd,
		IsAdmin:         isAdmin,
	})
	if err != nil {
		t.Fatalf("createStaff() failed: %v", err)
	}
	return usr
}

func getToken(t *testing.T, usr staff.User) string {
	t.Helper()
	token, err := GenerateToken(GetStaffClaims(usr))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// newFormRequest builds a student-facing form submission carrying the
// visitor's session cookie.
func newFormRequest(method, path, sid string, form url.Values) (*http.Request, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if sid != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: sid})
	}
	rec := httptest.NewRecorder()
	return req, rec
}

// newMultipartRequest builds a report submission with an optional evidence
// photo attached as the "imagen" part.
func newMultipartRequest(t *testing.T, path, sid string, fields map[string]string, filename string, content []byte) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("writing form field: %v", err)
		}
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("imagen", filename)
		if err != nil {
			t.Fatalf("creating form file: %v", err)
		}
		if _, err = fw.Write(content); err != nil {
			t.Fatalf("writing form file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("closing multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if sid != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: sid})
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func checkRedirect(t *testing.T, rec *httptest.ResponseRecorder, wantLocation string) {
	t.Helper()
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("code = %v; want %v (body: %s)", rec.Code, http.StatusSeeOther, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != wantLocation {
		t.Errorf("Location = %q; want %q", loc, wantLocation)
	}
}

func intToStr(n int) string { return strconv.Itoa(n) }

func decodeBody(t *testing.T, r io.Reader, dst interface{}) {
	t.Helper()
	if err := json.NewDecoder(r).Decode(dst); err != nil {
		t.Fatalf("decoding response body: %v", err)
	}
}
