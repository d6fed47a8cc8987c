package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/demotours/tour-builder/internal/core/ports"
)

type TourHandler struct {
	tourService ports.TourService
}

func NewTourHandler(tourService ports.TourService) *TourHandler {
	return &TourHandler{tourService: tourService}
}

// List returns the caller's tours, newest first.
//
// @Summary      List my tours
// @Tags         tours
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   tourResponse
// @Failure      401  {object}  map[string]string
// @Router       /api/tours [get]
func (h *TourHandler) List(c echo.Context) error {
	ownerID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	tours, err := h.tourService.ListTours(c.Request().Context(), ownerID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toTourResponses(tours))
}

// Get returns one of the caller's tours.
//
// @Summary      Get a tour
// @Tags         tours
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Tour ID"
// @Success      200  {object}  tourResponse
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/tours/{id} [get]
func (h *TourHandler) Get(c echo.Context) error {
	ownerID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	tour, err := h.tourService.GetTour(c.Request().Context(), ownerID, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toTourResponse(tour))
}

// Create stores a new tour owned by the caller.
//
// @Summary      Create a tour
// @Tags         tours
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createTourRequest  true  "Tour"
// @Success      201   {object}  tourResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /api/tours [post]
func (h *TourHandler) Create(c echo.Context) error {
	ownerID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	var req createTourRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	tour, err := h.tourService.CreateTour(c.Request().Context(), toCreateInput(ownerID, req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toTourResponse(tour))
}

// Update applies a partial update. Field validation happens in the service
// so that a tour owned by someone else is always reported as not found.
//
// @Summary      Update a tour
// @Tags         tours
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string             true  "Tour ID"
// @Param        body  body      updateTourRequest  true  "Partial tour"
// @Success      200   {object}  tourResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /api/tours/{id} [put]
func (h *TourHandler) Update(c echo.Context) error {
	ownerID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	var req updateTourRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	tour, err := h.tourService.UpdateTour(c.Request().Context(), toUpdateInput(ownerID, c.Param("id"), req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toTourResponse(tour))
}

// Delete removes one of the caller's tours.
//
// @Summary      Delete a tour
// @Tags         tours
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Tour ID"
// @Success      200  {object}  messageResponse
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/tours/{id} [delete]
func (h *TourHandler) Delete(c echo.Context) error {
	ownerID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	if err := h.tourService.DeleteTour(c.Request().Context(), ownerID, c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Msg: "tour deleted"})
}

// Stats returns dashboard aggregates over the caller's tours.
//
// @Summary      Tour statistics
// @Tags         tours
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  statsResponse
// @Failure      401  {object}  map[string]string
// @Router       /api/tours/stats [get]
func (h *TourHandler) Stats(c echo.Context) error {
	ownerID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	stats, err := h.tourService.Stats(c.Request().Context(), ownerID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toStatsResponse(stats))
}
