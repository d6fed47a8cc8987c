package handler

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/demotours/tour-builder/internal/core/ports"
)

// HeaderViewerID lets a player tell apart viewers sharing one address. It
// only narrows the key derived from client IP and user agent, so view dedup
// stays best-effort: a client rotating its address or user agent counts again.
const HeaderViewerID = "X-Viewer-ID"

const (
	viewerHashBytes = 6 // 12 hex chars
	maxViewerIDLen  = 64
)

type PublicHandler struct {
	tourService ports.TourService
}

func NewPublicHandler(tourService ports.TourService) *PublicHandler {
	return &PublicHandler{tourService: tourService}
}

// GetTour serves a public tour to an anonymous player and records a view.
//
// @Summary      Get a public tour
// @Tags         public
// @Produce      json
// @Param        id   path      string  true  "Tour ID"
// @Success      200  {object}  tourResponse
// @Failure      404  {object}  map[string]string
// @Router       /api/public/tours/{id} [get]
func (h *PublicHandler) GetTour(c echo.Context) error {
	tour, err := h.tourService.GetPublicTour(c.Request().Context(), c.Param("id"), viewerKey(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toTourResponse(tour))
}

// viewerKey is "ip:<hash>" or "ip:<hash>:id:<viewer id>".
func viewerKey(c echo.Context) string {
	sum := sha256.Sum256([]byte(c.RealIP() + "|" + c.Request().UserAgent()))
	key := "ip:" + hex.EncodeToString(sum[:viewerHashBytes])
	if id := strings.TrimSpace(c.Request().Header.Get(HeaderViewerID)); id != "" && len(id) <= maxViewerIDLen {
		key += ":id:" + id
	}
	return key
}
