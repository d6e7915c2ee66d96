package echoapi

import (
	"bytes"
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/emisoft/buzon/core/staff"
	"github.com/emisoft/buzon/core/ticket"
)

type staffApi struct {
	ticketSvc *ticket.Service
	staffSvc  *staff.Service
	evidence  ticket.EvidenceStore
}

func registerStaffAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := staffApi{
		ticketSvc: opts.TicketSvc,
		staffSvc:  opts.StaffSvc,
		evidence:  opts.Evidence,
	}

	sg := g.Group("/staff")

	// un-authed endpoints
	sg.POST("/login", api.staffLogin)

	// authed endpoints
	ag := sg.Group("", jwt)
	admin := adminMiddleware(opts.StaffSvc)

	ag.GET("/tickets", api.ticketQuery)
	ag.GET("/tickets/export.csv", api.ticketExportCSV)
	ag.POST("/tickets/marcar-resuelto", api.ticketMarkResolved)
	ag.POST("/tickets/marcar-proceso", api.ticketMarkInProgress)

	dg := ag.Group("/tickets/:id")
	dg.GET("", api.ticketRetrieve)
	dg.PUT("", api.ticketUpdate)
	dg.GET("/informe", api.ticketInforme)

	registerCategoryAPI(ag, admin, opts)

	ag.POST("/users", api.staffCreate, admin)
	ag.GET("/users", api.staffQuery, admin)
}

// Handlers

func (api *staffApi) staffLogin(ctx echo.Context) error {
	data := new(staff.LoginRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}

	claims, err := authenticate(data.Email, data.Password, api.staffSvc)
	if err != nil {
		return err
	}
	token, err := GenerateToken(claims)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *staffApi) ticketQuery(ctx echo.Context) error {
	filter := new(ticket.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return err
	}
	tkts, err := api.ticketSvc.Filter(ctx.Request().Context(), *filter)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, tkts)
}

func (api *staffApi) ticketRetrieve(ctx echo.Context) error {
	tkt, err := api.getTicket(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, tkt)
}

func (api *staffApi) ticketUpdate(ctx echo.Context) error {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}

	data := new(ticket.UpdateTicket)
	if err = ctx.Bind(data); err != nil {
		return err
	}

	tkt, err := api.ticketSvc.Update(ctx.Request().Context(), id, *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, tkt)
}

func (api *staffApi) ticketMarkResolved(ctx echo.Context) error {
	return api.bulkStatus(ctx, api.ticketSvc.MarkResolved)
}

func (api *staffApi) ticketMarkInProgress(ctx echo.Context) error {
	return api.bulkStatus(ctx, api.ticketSvc.MarkInProgress)
}

func (api *staffApi) bulkStatus(ctx echo.Context, apply func(context.Context, ...uuid.UUID) error) error {
	data := new(StatusMultipleRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if len(data.IDs) == 0 {
		return ctx.NoContent(http.StatusNoContent)
	}
	if err := apply(ctx.Request().Context(), data.IDs...); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *staffApi) ticketExportCSV(ctx echo.Context) error {
	filter := new(ticket.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return err
	}
	tkts, err := api.ticketSvc.Filter(ctx.Request().Context(), *filter)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err = ticket.WriteCSV(&buf, tkts); err != nil {
		return err
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="reportes.csv"`)
	return ctx.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (api *staffApi) ticketInforme(ctx echo.Context) error {
	tkt, err := api.getTicket(ctx)
	if err != nil {
		return err
	}
	cat, err := api.ticketSvc.GetCategoryByID(ctx.Request().Context(), tkt.CategoryID)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err = ticket.RenderInforme(&buf, tkt, cat, api.evidence.EvidenceURL(tkt.EvidenceKey)); err != nil {
		return err
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition,
		`attachment; filename="`+ticket.InformeFilename(tkt)+`"`)
	return ctx.Blob(http.StatusOK, "text/plain; charset=utf-8", buf.Bytes())
}

func (api *staffApi) getTicket(ctx echo.Context) (ticket.Ticket, error) {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return ticket.Ticket{}, errHttpNotFound
	}
	return api.ticketSvc.GetByID(ctx.Request().Context(), id)
}

func (api *staffApi) staffCreate(ctx echo.Context) error {
	data := new(staff.NewUser)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(api.staffSvc); err != nil {
		return err
	}

	usr, err := api.staffSvc.Create(ctx.Request().Context(), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *staffApi) staffQuery(ctx echo.Context) error {
	users, err := api.staffSvc.QueryAll(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, users)
}

type (
	LoginResponse struct {
		Token string `json:"token"`
	}

	StatusMultipleRequest struct {
		IDs []uuid.UUID `json:"ids"`
	}
)
