package echoapi

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/emisoft/buzon/core/staff"
	"github.com/emisoft/buzon/core/ticket"
)

func Test_staff_login(t *testing.T) {
	app := newTestApp(t)
	app.createStaff(t, "Ana", "ana@emi.edu.bo", "s3cret-pwd", false)
	inactive := app.createStaff(t, "Out", "out@emi.edu.bo", "s3cret-pwd", false)
	inactive.IsActive = false
	// SetPassword persists the whole user record, flag included
	if _, err := app.staffSvc.SetPassword(context.Background(), inactive, "s3cret-pwd"); err != nil {
		t.Fatalf("deactivating staff failed: %v", err)
	}

	tests := []httpTest{
		{name: "empty body", body: []byte(`{}`), wantCode: http.StatusBadRequest},
		{name: "unknown email", body: marchallObj(t, staff.LoginRequest{Email: "x@emi.edu.bo", Password: "lol"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "credenciales incorrectas"})},
		{name: "wrong password", body: marchallObj(t, staff.LoginRequest{Email: "ana@emi.edu.bo", Password: "lol"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "credenciales incorrectas"})},
		{name: "deactivated account", body: marchallObj(t, staff.LoginRequest{Email: "out@emi.edu.bo", Password: "s3cret-pwd"}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "cuenta desactivada"})},
		{name: "ok", body: marchallObj(t, staff.LoginRequest{Email: "ana@emi.edu.bo", Password: "s3cret-pwd"}),
			wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/staff/login", tt.body)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.name == "ok" {
				var resp LoginResponse
				decodeBody(t, rec.Body, &resp)
				assert.NotEmpty(t, resp.Token)
			}
		})
	}
}

func Test_staff_ticketEndpointsRequireAuth(t *testing.T) {
	app := newTestApp(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/v1/staff/tickets"},
		{http.MethodGet, "/v1/staff/tickets/export.csv"},
		{http.MethodPost, "/v1/staff/tickets/marcar-resuelto"},
		{http.MethodGet, "/v1/staff/categories"},
		{http.MethodGet, "/v1/staff/users"},
	}
	for _, p := range paths {
		t.Run(p.method+" "+p.path, func(t *testing.T) {
			req, rec := newRequest(p.method, p.path)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, httpTest{
				wantCode: http.StatusUnauthorized,
				wantData: marchallObj(t, errMissingToken),
			}, rec)
		})
	}
}

func Test_staff_ticketQueryAndRetrieve(t *testing.T) {
	app := newTestApp(t)
	usr := app.createStaff(t, "Ana", "ana@emi.edu.bo", "s3cret-pwd", false)
	token := getToken(t, usr)

	cat := app.createCategory(t, "Infraestructura", "")
	tkt := app.createTicket(t, cat.ID, "Baño sin agua", "bloque B")
	app.createTicket(t, cat.ID, "Vidrio roto", "aula 12")

	// list
	req, rec := newAuthRequest(http.MethodGet, "/v1/staff/tickets", token)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; want %v (body: %s)", rec.Code, http.StatusOK, rec.Body.String())
	}
	var tkts []ticket.Ticket
	decodeBody(t, rec.Body, &tkts)
	assert.Len(t, tkts, 2)

	// filtered list
	req, rec = newAuthRequest(http.MethodGet, "/v1/staff/tickets?search=vidrio", token)
	app.server.ServeHTTP(rec, req)
	decodeBody(t, rec.Body, &tkts)
	if assert.Len(t, tkts, 1) {
		assert.Equal(t, "Vidrio roto", tkts[0].Subject)
	}

	// detail
	req, rec = newAuthRequest(http.MethodGet, "/v1/staff/tickets/"+tkt.ID.String(), token)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; want %v", rec.Code, http.StatusOK)
	}
	var got ticket.Ticket
	decodeBody(t, rec.Body, &got)
	assert.Equal(t, tkt.ID, got.ID)

	// unknown id
	req, rec = newAuthRequest(http.MethodGet, "/v1/staff/tickets/00000000-0000-0000-0000-000000000000", token)
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// malformed id
	req, rec = newAuthRequest(http.MethodGet, "/v1/staff/tickets/lol", token)
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_staff_ticketUpdate(t *testing.T) {
	app := newTestApp(t)
	token := getToken(t, app.createStaff(t, "Ana", "ana@emi.edu.bo", "s3cret-pwd", false))
	cat := app.createCategory(t, "Varios", "")
	tkt := app.createTicket(t, cat.ID, "asunto", "detalle")

	notes := "atendido por mantenimiento"
	body := marchallObj(t, ticket.UpdateTicket{Status: ticket.StatusResolved, AdminNotes: &notes})
	req, rec := newAuthRequest(http.MethodPut, "/v1/staff/tickets/"+tkt.ID.String(), token, body)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; want %v (body: %s)", rec.Code, http.StatusOK, rec.Body.String())
	}

	var got ticket.Ticket
	decodeBody(t, rec.Body, &got)
	assert.Equal(t, ticket.StatusResolved, got.Status)
	assert.Equal(t, notes, got.AdminNotes)

	// invalid status
	req, rec = newAuthRequest(http.MethodPut, "/v1/staff/tickets/"+tkt.ID.String(), token, []byte(`{"status":"NOPE"}`))
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func Test_staff_bulkStatus(t *testing.T) {
	app := newTestApp(t)
	token := getToken(t, app.createStaff(t, "Ana", "ana@emi.edu.bo", "s3cret-pwd", false))
	cat := app.createCategory(t, "Varios", "")
	t1 := app.createTicket(t, cat.ID, "uno", "d")
	t2 := app.createTicket(t, cat.ID, "dos", "d")
	t3 := app.createTicket(t, cat.ID, "tres", "d")

	body := marchallObj(t, StatusMultipleRequest{IDs: []uuid.UUID{t1.ID, t2.ID}})
	req, rec := newAuthRequest(http.MethodPost, "/v1/staff/tickets/marcar-resuelto", token, body)
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	body = marchallObj(t, StatusMultipleRequest{IDs: []uuid.UUID{t3.ID}})
	req, rec = newAuthRequest(http.MethodPost, "/v1/staff/tickets/marcar-proceso", token, body)
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// empty id list is a no-op
	req, rec = newAuthRequest(http.MethodPost, "/v1/staff/tickets/marcar-resuelto", token, []byte(`{"ids":[]}`))
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	ctx := context.Background()
	for _, tc := range []struct {
		id   uuid.UUID
		want ticket.Status
	}{
		{t1.ID, ticket.StatusResolved},
		{t2.ID, ticket.StatusResolved},
		{t3.ID, ticket.StatusInProgress},
	} {
		got, err := app.ticketSvc.GetByID(ctx, tc.id)
		if err != nil {
			t.Fatalf("GetByID() failed: %v", err)
		}
		assert.Equal(t, tc.want, got.Status)
	}
}

func Test_staff_exportCSV(t *testing.T) {
	app := newTestApp(t)
	token := getToken(t, app.createStaff(t, "Ana", "ana@emi.edu.bo", "s3cret-pwd", false))
	cat := app.createCategory(t, "Varios", "")
	app.createTicket(t, cat.ID, "uno", "d")
	app.createTicket(t, cat.ID, "dos", "d")

	req, rec := newAuthRequest(http.MethodGet, "/v1/staff/tickets/export.csv", token)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; want %v (body: %s)", rec.Code, http.StatusOK, rec.Body.String())
	}
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "reportes.csv")

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	assert.Len(t, lines, 3) // header + 2 rows
	assert.Contains(t, lines[0], "Tiene Foto")
}

func Test_staff_informe(t *testing.T) {
	app := newTestApp(t)
	token := getToken(t, app.createStaff(t, "Ana", "ana@emi.edu.bo", "s3cret-pwd", false))
	cat := app.createCategory(t, "Infraestructura", "")
	tkt := app.createTicket(t, cat.ID, "Baño sin agua", "bloque B")

	req, rec := newAuthRequest(http.MethodGet, "/v1/staff/tickets/"+tkt.ID.String()+"/informe", token)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; want %v (body: %s)", rec.Code, http.StatusOK, rec.Body.String())
	}
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "Informe_EMI_")
	body := rec.Body.String()
	assert.Contains(t, body, "ESCUELA MILITAR DE INGENIERÍA")
	assert.Contains(t, body, "Baño sin agua")
}

func Test_staff_categories(t *testing.T) {
	app := newTestApp(t)
	adminToken := getToken(t, app.createStaff(t, "Admin", "admin@emi.edu.bo", "s3cret-pwd", true))
	plainToken := getToken(t, app.createStaff(t, "Plain", "plain@emi.edu.bo", "s3cret-pwd", false))

	// create: admin only
	body := marchallObj(t, ticket.NewCategory{Name: "Académico", ResponsibleEmail: "acad@emi.edu.bo"})
	req, rec := newAuthRequest(http.MethodPost, "/v1/staff/categories", plainToken, body)
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req, rec = newAuthRequest(http.MethodPost, "/v1/staff/categories", adminToken, body)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("code = %v; want %v (body: %s)", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var cat ticket.Category
	decodeBody(t, rec.Body, &cat)
	assert.Equal(t, 1, cat.BasePriority)

	// list: any staff
	req, rec = newAuthRequest(http.MethodGet, "/v1/staff/categories", plainToken)
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// update
	body = marchallObj(t, ticket.NewCategory{Name: "Académico", BasePriority: 3})
	req, rec = newAuthRequest(http.MethodPut, "/v1/staff/categories/"+intToStr(cat.ID), adminToken, body)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; want %v (body: %s)", rec.Code, http.StatusOK, rec.Body.String())
	}
	decodeBody(t, rec.Body, &cat)
	assert.Equal(t, 3, cat.BasePriority)

	// delete refused while referenced
	app.createTicket(t, cat.ID, "asunto", "detalle")
	req, rec = newAuthRequest(http.MethodDelete, "/v1/staff/categories/"+intToStr(cat.ID), adminToken)
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// delete unused
	unused := app.createCategory(t, "Sin uso", "")
	req, rec = newAuthRequest(http.MethodDelete, "/v1/staff/categories/"+intToStr(unused.ID), adminToken)
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// unknown id
	req, rec = newAuthRequest(http.MethodDelete, "/v1/staff/categories/999", adminToken)
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_staff_userManagement(t *testing.T) {
	app := newTestApp(t)
	adminToken := getToken(t, app.createStaff(t, "Admin", "admin@emi.edu.bo", "s3cret-pwd", true))
	plainToken := getToken(t, app.createStaff(t, "Plain", "plain@emi.edu.bo", "s3cret-pwd", false))

	nu := staff.NewUser{
		Name:            "Eva",
		Email:           "eva@emi.edu.bo",
		Password:        "s3cret-pwd",
		PasswordConfirm: "s3cret-pwd",
	}

	// admin only
	req, rec := newAuthRequest(http.MethodPost, "/v1/staff/users", plainToken, marchallObj(t, nu))
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req, rec = newAuthRequest(http.MethodPost, "/v1/staff/users", adminToken, marchallObj(t, nu))
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("code = %v; want %v (body: %s)", rec.Code, http.StatusCreated, rec.Body.String())
	}
	// the password hash never leaves the API
	assert.NotContains(t, rec.Body.String(), "password")

	// duplicate email
	req, rec = newAuthRequest(http.MethodPost, "/v1/staff/users", adminToken, marchallObj(t, nu))
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "email")

	// password confirmation mismatch
	bad := nu
	bad.Email = "otra@emi.edu.bo"
	bad.PasswordConfirm = "different"
	req, rec = newAuthRequest(http.MethodPost, "/v1/staff/users", adminToken, marchallObj(t, bad))
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// listing
	req, rec = newAuthRequest(http.MethodGet, "/v1/staff/users", adminToken)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; want %v", rec.Code, http.StatusOK)
	}
	var users []staff.User
	decodeBody(t, rec.Body, &users)
	assert.Len(t, users, 3)
}
