package echoapi

import (
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/emisoft/buzon/core"
	"github.com/emisoft/buzon/core/otp"
	"github.com/emisoft/buzon/core/ticket"
)

const maxEvidenceSize = 5 << 20 // 5MB

var allowedEvidenceExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

type intakeApi struct {
	ticketSvc *ticket.Service
	gate      *otp.Gate
	evidence  ticket.EvidenceStore
}

// registerIntakeAPI wires the student-facing submission flow:
// anonymous → pending_verification → verified → submitted.
func registerIntakeAPI(app *echo.Echo, opts *Options) {
	api := intakeApi{
		ticketSvc: opts.TicketSvc,
		gate:      opts.Gate,
		evidence:  opts.Evidence,
	}

	g := app.Group("", sessionMiddleware())
	g.GET("", api.home)
	g.POST("", api.requestAccess)
	g.GET("/verificar", api.verifyPage)
	g.POST("/verificar", api.verifySubmit)
	g.GET("/reportar", api.reportPage)
	g.POST("/reportar", api.reportSubmit)
	g.GET("/exito", api.success)
	g.POST("/salir", api.logout)
}

// Handlers

func (api *intakeApi) home(ctx echo.Context) error {
	sess, err := api.gate.Current(ctx.Request().Context(), getContextSID(ctx))
	if err != nil {
		return err
	}
	cats, err := api.ticketSvc.QueryCategories(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"app_name":   core.Conf.AppName,
		"verified":   sess.Verified,
		"pending":    sess.Pending(),
		"categories": cats,
	})
}

func (api *intakeApi) requestAccess(ctx echo.Context) error {
	data := new(otp.AccessRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := api.gate.RequestAccess(ctx.Request().Context(), getContextSID(ctx), *data); err != nil {
		return err
	}
	return ctx.Redirect(http.StatusSeeOther, "/verificar")
}

func (api *intakeApi) verifyPage(ctx echo.Context) error {
	sess, err := api.gate.Current(ctx.Request().Context(), getContextSID(ctx))
	if err != nil {
		return err
	}
	if !sess.Pending() {
		return ctx.Redirect(http.StatusSeeOther, "/")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"pending_email": sess.PendingEmail})
}

func (api *intakeApi) verifySubmit(ctx echo.Context) error {
	code := strings.TrimSpace(ctx.FormValue("codigo"))
	if err := api.gate.SubmitPasscode(ctx.Request().Context(), getContextSID(ctx), code); err != nil {
		// no pending verification is a state error, not a visitor-facing
		// one: restart the flow
		if err == otp.ErrNotPending {
			return ctx.Redirect(http.StatusSeeOther, "/")
		}
		return err
	}
	return ctx.Redirect(http.StatusSeeOther, "/reportar")
}

func (api *intakeApi) reportPage(ctx echo.Context) error {
	sess, err := api.gate.Current(ctx.Request().Context(), getContextSID(ctx))
	if err != nil {
		return err
	}
	if !sess.Verified {
		return ctx.Redirect(http.StatusSeeOther, "/")
	}
	cats, err := api.ticketSvc.QueryCategories(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"email":      sess.PendingEmail,
		"categories": cats,
	})
}

func (api *intakeApi) reportSubmit(ctx echo.Context) error {
	sess, err := api.gate.Current(ctx.Request().Context(), getContextSID(ctx))
	if err != nil {
		return err
	}
	if !sess.Verified {
		return ctx.Redirect(http.StatusSeeOther, "/")
	}

	data := new(ticket.NewTicket)
	if err = ctx.Bind(data); err != nil {
		return err
	}

	// optional evidence photo
	if file, err := ctx.FormFile("imagen"); err == nil && file != nil {
		key, err := api.uploadEvidence(ctx, file)
		if err != nil {
			return err
		}
		data.EvidenceKey = key
	}

	if _, err = api.ticketSvc.Create(ctx.Request().Context(), sess.PendingEmail, *data); err != nil {
		return err
	}
	return ctx.Redirect(http.StatusSeeOther, "/exito")
}

func (api *intakeApi) uploadEvidence(ctx echo.Context, file *multipart.FileHeader) (string, error) {
	if file.Size > maxEvidenceSize {
		return "", core.NewValidationError(nil, core.FieldError{Field: "imagen", Error: "la imagen no debe superar los 5MB"})
	}
	if ext := strings.ToLower(filepath.Ext(file.Filename)); !allowedEvidenceExts[ext] {
		return "", core.NewValidationError(nil, core.FieldError{Field: "imagen", Error: "solo se aceptan imágenes JPG o PNG"})
	}

	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer func() { _ = src.Close() }()

	content, err := io.ReadAll(src)
	if err != nil {
		return "", err
	}
	return api.evidence.UploadEvidence(ctx.Request().Context(), content, file.Filename)
}

func (api *intakeApi) success(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{
		"message": "Su reporte fue registrado de forma anónima. Gracias por ayudarnos a mejorar.",
	})
}

func (api *intakeApi) logout(ctx echo.Context) error {
	if err := api.gate.Logout(ctx.Request().Context(), getContextSID(ctx)); err != nil {
		return err
	}
	return ctx.Redirect(http.StatusSeeOther, "/")
}
