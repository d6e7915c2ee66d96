package echoapi

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/emisoft/buzon/core/otp"
	"github.com/emisoft/buzon/core/ticket"
	emailsvc "github.com/emisoft/buzon/services/email"
)

const testSID = "0123456789abcdef0123456789abcdef0123456789abcdef"

func Test_intake_home(t *testing.T) {
	app := newTestApp(t)
	app.createCategory(t, "Infraestructura", "")

	req, rec := newRequest(http.MethodGet, "/")
	app.server.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; want %v", rec.Code, http.StatusOK)
	}

	var body struct {
		Verified   bool              `json:"verified"`
		Pending    bool              `json:"pending"`
		Categories []ticket.Category `json:"categories"`
	}
	decodeBody(t, rec.Body, &body)
	assert.False(t, body.Verified)
	assert.False(t, body.Pending)
	assert.Len(t, body.Categories, 1)

	// a fresh visitor gets a session cookie
	cookies := rec.Result().Cookies()
	var found bool
	for _, c := range cookies {
		if c.Name == sessionCookieName && c.Value != "" {
			found = true
			assert.True(t, c.HttpOnly)
		}
	}
	assert.True(t, found, "expected a session cookie to be set")
}

func Test_intake_requestAccess(t *testing.T) {
	app := newTestApp(t)

	// invalid domain: field error, no session state
	req, rec := newFormRequest(http.MethodPost, "/", testSID, url.Values{"email": {"juan@gmail.com"}})
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("code = %v; want %v", rec.Code, http.StatusBadRequest)
	}
	assert.Contains(t, rec.Body.String(), "email")

	// institutional email: passcode issued and mailed
	req, rec = newFormRequest(http.MethodPost, "/", testSID, url.Values{"email": {"juan.perez@est.emi.edu.bo"}})
	app.server.ServeHTTP(rec, req)
	checkRedirect(t, rec, "/verificar")

	sess, err := app.sessions.Get(context.Background(), testSID)
	if err != nil {
		t.Fatalf("session not saved: %v", err)
	}
	assert.True(t, sess.Pending())
	if assert.Len(t, emailsvc.SentMessages, 1) {
		assert.Equal(t, "juan.perez@est.emi.edu.bo", emailsvc.SentMessages[0].To[0].Address)
		assert.Contains(t, emailsvc.SentMessages[0].TextContent, sess.PendingCode)
	}
}

func Test_intake_verify(t *testing.T) {
	app := newTestApp(t)
	app.seedSession(t, testSID, otp.Session{PendingCode: "042137", PendingEmail: "a@est.emi.edu.bo"})

	// page shows the pending email
	req, rec := newFormRequest(http.MethodGet, "/verificar", testSID, nil)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; want %v", rec.Code, http.StatusOK)
	}
	assert.Contains(t, rec.Body.String(), "a@est.emi.edu.bo")

	// wrong code
	req, rec = newFormRequest(http.MethodPost, "/verificar", testSID, url.Values{"codigo": {"000000"}})
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("code = %v; want %v", rec.Code, http.StatusBadRequest)
	}

	// right code
	req, rec = newFormRequest(http.MethodPost, "/verificar", testSID, url.Values{"codigo": {"042137"}})
	app.server.ServeHTTP(rec, req)
	checkRedirect(t, rec, "/reportar")

	sess, _ := app.sessions.Get(context.Background(), testSID)
	assert.True(t, sess.Verified)
	assert.Empty(t, sess.PendingCode)
}

func Test_intake_verifyPage_withoutPendingRedirectsHome(t *testing.T) {
	app := newTestApp(t)

	req, rec := newFormRequest(http.MethodGet, "/verificar", testSID, nil)
	app.server.ServeHTTP(rec, req)
	checkRedirect(t, rec, "/")
}

func Test_intake_verifySubmit_withoutPendingRedirectsHome(t *testing.T) {
	app := newTestApp(t)

	// fresh visitor, no session at all
	req, rec := newFormRequest(http.MethodPost, "/verificar", testSID, url.Values{"codigo": {"123456"}})
	app.server.ServeHTTP(rec, req)
	checkRedirect(t, rec, "/")

	// already verified: the code was cleared, resubmitting restarts too
	app.seedSession(t, testSID, otp.Session{PendingEmail: "a@est.emi.edu.bo", Verified: true})
	req, rec = newFormRequest(http.MethodPost, "/verificar", testSID, url.Values{"codigo": {"123456"}})
	app.server.ServeHTTP(rec, req)
	checkRedirect(t, rec, "/")
}

func Test_intake_report_requiresVerification(t *testing.T) {
	app := newTestApp(t)
	cat := app.createCategory(t, "Varios", "")

	// anonymous
	req, rec := newFormRequest(http.MethodGet, "/reportar", testSID, nil)
	app.server.ServeHTTP(rec, req)
	checkRedirect(t, rec, "/")

	// pending but not verified
	app.seedSession(t, testSID, otp.Session{PendingCode: "042137", PendingEmail: "a@est.emi.edu.bo"})
	req, rec = newFormRequest(http.MethodPost, "/reportar", testSID, url.Values{
		"category_id": {intToStr(cat.ID)},
		"subject":     {"asunto"},
		"description": {"detalle"},
	})
	app.server.ServeHTTP(rec, req)
	checkRedirect(t, rec, "/")

	tkts, _ := app.ticketSvc.Filter(context.Background(), ticket.QueryFilter{})
	assert.Empty(t, tkts)
}

func Test_intake_reportSubmit(t *testing.T) {
	app := newTestApp(t)
	cat := app.createCategory(t, "Infraestructura", "")
	app.seedSession(t, testSID, otp.Session{PendingEmail: "juan.perez@est.emi.edu.bo", Verified: true})

	req, rec := newFormRequest(http.MethodPost, "/reportar", testSID, url.Values{
		"category_id": {intToStr(cat.ID)},
		"subject":     {"Baño sin agua"},
		"description": {"El baño del bloque B no tiene agua."},
	})
	app.server.ServeHTTP(rec, req)
	checkRedirect(t, rec, "/exito")

	tkts, err := app.ticketSvc.Filter(context.Background(), ticket.QueryFilter{})
	if err != nil {
		t.Fatalf("Filter() failed: %v", err)
	}
	if !assert.Len(t, tkts, 1) {
		return
	}
	tkt := tkts[0]
	assert.Equal(t, ticket.StatusPending, tkt.Status)
	assert.Equal(t, ticket.AnonymousHash("juan.perez@est.emi.edu.bo"), tkt.SubmitterHash)
	assert.False(t, tkt.HasEvidence())

	// the session stays verified for further reports
	sess, _ := app.sessions.Get(context.Background(), testSID)
	assert.True(t, sess.Verified)
}

func Test_intake_reportSubmit_validation(t *testing.T) {
	app := newTestApp(t)
	cat := app.createCategory(t, "Varios", "")
	app.seedSession(t, testSID, otp.Session{PendingEmail: "a@est.emi.edu.bo", Verified: true})

	tests := []struct {
		name string
		form url.Values
	}{
		{name: "missing subject", form: url.Values{"category_id": {intToStr(cat.ID)}, "description": {"d"}}},
		{name: "missing description", form: url.Values{"category_id": {intToStr(cat.ID)}, "subject": {"a"}}},
		{name: "unknown category", form: url.Values{"category_id": {"999"}, "subject": {"a"}, "description": {"d"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newFormRequest(http.MethodPost, "/reportar", testSID, tt.form)
			app.server.ServeHTTP(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("code = %v; want %v (body: %s)", rec.Code, http.StatusBadRequest, rec.Body.String())
			}
		})
	}
}

func Test_intake_reportSubmit_withEvidence(t *testing.T) {
	app := newTestApp(t)
	cat := app.createCategory(t, "Infraestructura", "")
	app.seedSession(t, testSID, otp.Session{PendingEmail: "a@est.emi.edu.bo", Verified: true})

	fields := map[string]string{
		"category_id": intToStr(cat.ID),
		"subject":     "Vidrio roto",
		"description": "Ventana del aula 12.",
	}
	req, rec := newMultipartRequest(t, "/reportar", testSID, fields, "foto.jpg", []byte("fake-jpeg-bytes"))
	app.server.ServeHTTP(rec, req)
	checkRedirect(t, rec, "/exito")

	tkts, _ := app.ticketSvc.Filter(context.Background(), ticket.QueryFilter{})
	if !assert.Len(t, tkts, 1) {
		return
	}
	assert.True(t, tkts[0].HasEvidence())
	assert.NotEmpty(t, app.evidence.EvidenceURL(tkts[0].EvidenceKey))
}

func Test_intake_reportSubmit_rejectsBadEvidence(t *testing.T) {
	app := newTestApp(t)
	cat := app.createCategory(t, "Varios", "")
	app.seedSession(t, testSID, otp.Session{PendingEmail: "a@est.emi.edu.bo", Verified: true})

	fields := map[string]string{
		"category_id": intToStr(cat.ID),
		"subject":     "asunto",
		"description": "detalle",
	}
	req, rec := newMultipartRequest(t, "/reportar", testSID, fields, "script.exe", []byte("MZ..."))
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("code = %v; want %v", rec.Code, http.StatusBadRequest)
	}
	assert.Contains(t, rec.Body.String(), "imagen")

	tkts, _ := app.ticketSvc.Filter(context.Background(), ticket.QueryFilter{})
	assert.Empty(t, tkts)
}

func Test_intake_logout(t *testing.T) {
	app := newTestApp(t)
	app.seedSession(t, testSID, otp.Session{PendingEmail: "a@est.emi.edu.bo", Verified: true})

	req, rec := newFormRequest(http.MethodPost, "/salir", testSID, nil)
	app.server.ServeHTTP(rec, req)
	checkRedirect(t, rec, "/")

	_, err := app.sessions.Get(context.Background(), testSID)
	assert.Equal(t, otp.ErrSessionNotFound, err)
}
