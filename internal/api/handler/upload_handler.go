package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/demotours/tour-builder/internal/core/domain"
	"github.com/demotours/tour-builder/internal/core/ports"
)

// uploadField is the multipart form field carrying the file.
const uploadField = "file"

type UploadHandler struct {
	uploadService ports.UploadService
}

func NewUploadHandler(uploadService ports.UploadService) *UploadHandler {
	return &UploadHandler{uploadService: uploadService}
}

// Upload relays one image or video to asset storage and returns its URL.
//
// @Summary      Upload media
// @Tags         tours
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        file  formData  file  true  "Image or video"
// @Success      201   {object}  uploadResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      413   {object}  map[string]string
// @Failure      415   {object}  map[string]string
// @Router       /api/tours/upload [post]
func (h *UploadHandler) Upload(c echo.Context) error {
	ownerID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	fh, err := c.FormFile(uploadField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return domain.NewValidationError(domain.ErrNoFile.Error())
		}
		return err
	}

	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	res, err := h.uploadService.Upload(c.Request().Context(), ports.UploadInput{
		OwnerID:  ownerID,
		Filename: fh.Filename,
		Size:     fh.Size,
		Body:     f,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, uploadResponse{URL: res.URL})
}
