package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/emisoft/buzon/core/ticket"
)

type publicApi struct {
	ticketSvc *ticket.Service
}

// registerPublicAPI wires the transparency dashboard. No session, no auth;
// the payload never includes submitter data or rejected tickets.
func registerPublicAPI(app *echo.Echo, opts *Options) {
	api := publicApi{ticketSvc: opts.TicketSvc}
	app.GET("/transparencia", api.stats)
}

func (api *publicApi) stats(ctx echo.Context) error {
	stats, err := api.ticketSvc.Stats(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, stats)
}
