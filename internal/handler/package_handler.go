package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/quizforge/quizforge-backend/internal/config"
	"github.com/quizforge/quizforge-backend/internal/model"
	"github.com/quizforge/quizforge-backend/internal/packaging"
	"github.com/quizforge/quizforge-backend/internal/response"
	"github.com/quizforge/quizforge-backend/internal/service"
	"github.com/rs/zerolog"
)

// PackageHandler handles sealing, unsealing, and serving test packages.
type PackageHandler struct {
	cfg        *config.Config
	pkgService *service.PackageService
	log        zerolog.Logger
}

// NewPackageHandler creates a new PackageHandler.
func NewPackageHandler(cfg *config.Config, pkgService *service.PackageService, log zerolog.Logger) *PackageHandler {
	return &PackageHandler{
		cfg:        cfg,
		pkgService: pkgService,
		log:        log.With().Str("component", "package_handler").Logger(),
	}
}

// Seal godoc
// POST /api/v1/packages/seal
// Multipart: a "manifest" JSON part (CreatePackageRequest), optional
// "image_N" parts (PNG per question number), optional "page_N" parts
// (full-page rasters for crop-based questions). Responds with the sealed
// archive as a download.
func (h *PackageHandler) Seal(c *gin.Context) {
	if c.Request.ContentLength > h.cfg.MaxPackageBytes {
		response.Fail(c, http.StatusRequestEntityTooLarge, response.ErrPackageTooLarge)
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}

	manifests := form.Value["manifest"]
	if len(manifests) == 0 {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
			map[string]string{"manifest": "manifest part is required"})
		return
	}

	var req model.CreatePackageRequest
	if err := json.Unmarshal([]byte(manifests[0]), &req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}
	if req.TestName == "" || req.Password == "" || len(req.Questions) == 0 {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
			map[string]string{"manifest": "test_name, password and questions are required"})
		return
	}

	images := make(map[string][]byte)
	pages := make(map[int][]byte)
	for name, headers := range form.File {
		if len(headers) == 0 {
			continue
		}
		data, err := readFormFile(headers[0])
		if err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
			return
		}

		var n int
		switch {
		case parseSuffix(name, "image_", &n):
			images[packaging.ImagePathFor(n)] = data
		case parseSuffix(name, "page_", &n):
			pages[n] = data
		}
	}

	archive, record, err := h.pkgService.Seal(c.Request.Context(), &req, images, pages)
	if err != nil {
		h.log.Warn().Err(err).Str("test_name", req.TestName).Msg("Seal failed")
		if errors.Is(err, service.ErrPersistence) {
			response.Fail(c, http.StatusInternalServerError, response.ErrPersistenceFailure)
			return
		}
		response.FailWithFields(c, http.StatusUnprocessableEntity, response.ErrValidation,
			map[string]string{"detail": err.Error()})
		return
	}

	c.Header("X-Package-Id", record.ID)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", record.TestName+".qfpkg"))
	c.Data(http.StatusCreated, "application/octet-stream", archive)
}

// Open godoc
// POST /api/v1/packages/open
// Multipart: a "package" file part plus a "password" value. Unseals the
// archive, caches it for attempts, and returns the sanitized metadata.
func (h *PackageHandler) Open(c *gin.Context) {
	if c.Request.ContentLength > h.cfg.MaxPackageBytes {
		response.Fail(c, http.StatusRequestEntityTooLarge, response.ErrPackageTooLarge)
		return
	}

	fileHeader, err := c.FormFile("package")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}
	if fileHeader.Size > h.cfg.MaxPackageBytes {
		response.Fail(c, http.StatusRequestEntityTooLarge, response.ErrPackageTooLarge)
		return
	}

	password := c.PostForm("password")
	if password == "" {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
			map[string]string{"password": "password is required"})
		return
	}

	data, err := readFormFile(fileHeader)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}

	opened, err := h.pkgService.Open(c.Request.Context(), data, password)
	if err != nil {
		switch {
		case errors.Is(err, packaging.ErrDecryptionFailed):
			response.Fail(c, http.StatusUnauthorized, response.ErrDecryptionFailed)
		case errors.Is(err, packaging.ErrInvalidPackageFormat):
			response.Fail(c, http.StatusUnprocessableEntity, response.ErrInvalidPackageFormat)
		default:
			h.log.Error().Err(err).Msg("Open failed")
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"package": opened})
}

// List godoc
// GET /api/v1/packages
// Returns the sealed-package registry, newest first.
func (h *PackageHandler) List(c *gin.Context) {
	records, err := h.pkgService.ListPackages(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"packages": records})
}

// GetImage godoc
// GET /api/v1/packages/:package_id/images/:number
// Serves one cached question image of an open package.
func (h *PackageHandler) GetImage(c *gin.Context) {
	packageID := c.Param("package_id")
	number, err := strconv.Atoi(c.Param("number"))
	if err != nil || number < 1 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	img, err := h.pkgService.GetImage(c.Request.Context(), packageID, packaging.ImagePathFor(number))
	if err != nil {
		if errors.Is(err, service.ErrPackageNotOpen) {
			response.Fail(c, http.StatusNotFound, response.ErrPackageNotOpen)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	c.Data(http.StatusOK, "image/png", img)
}

// readFormFile opens and fully reads one multipart file part.
func readFormFile(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// parseSuffix matches names like "image_12" against a prefix and extracts
// the trailing number.
func parseSuffix(name, prefix string, n *int) bool {
	if len(name) <= len(prefix) || name[:len(prefix)] != prefix {
		return false
	}
	v, err := strconv.Atoi(name[len(prefix):])
	if err != nil || v < 0 {
		return false
	}
	*n = v
	return true
}
