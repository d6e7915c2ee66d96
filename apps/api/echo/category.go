package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/emisoft/buzon/core/ticket"
)

type categoryApi struct {
	ticketSvc *ticket.Service
}

// registerCategoryAPI wires category management. Listing is open to all
// staff; mutations are admin-only.
func registerCategoryAPI(g *echo.Group, admin echo.MiddlewareFunc, opts *Options) {
	api := categoryApi{ticketSvc: opts.TicketSvc}

	cg := g.Group("/categories")
	cg.GET("", api.categoryQuery)
	cg.POST("", api.categoryCreate, admin)

	dg := cg.Group("/:id")
	dg.GET("", api.categoryRetrieve)
	dg.PUT("", api.categoryUpdate, admin)
	dg.DELETE("", api.categoryDestroy, admin)
}

// Handlers

func (api *categoryApi) categoryQuery(ctx echo.Context) error {
	cats, err := api.ticketSvc.QueryCategories(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cats)
}

func (api *categoryApi) categoryCreate(ctx echo.Context) error {
	data := new(ticket.NewCategory)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	cat, err := api.ticketSvc.CreateCategory(ctx.Request().Context(), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, cat)
}

func (api *categoryApi) categoryRetrieve(ctx echo.Context) error {
	id, err := categoryID(ctx)
	if err != nil {
		return err
	}
	cat, err := api.ticketSvc.GetCategoryByID(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cat)
}

func (api *categoryApi) categoryUpdate(ctx echo.Context) error {
	id, err := categoryID(ctx)
	if err != nil {
		return err
	}

	data := new(ticket.NewCategory)
	if err = ctx.Bind(data); err != nil {
		return err
	}
	cat, err := api.ticketSvc.UpdateCategory(ctx.Request().Context(), id, *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cat)
}

func (api *categoryApi) categoryDestroy(ctx echo.Context) error {
	id, err := categoryID(ctx)
	if err != nil {
		return err
	}
	if err = api.ticketSvc.DeleteCategory(ctx.Request().Context(), id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func categoryID(ctx echo.Context) (int, error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return 0, errHttpNotFound
	}
	return id, nil
}
