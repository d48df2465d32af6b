package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"classifieds_backend/internal/adapters/storage"
	"classifieds_backend/internal/ads/service"
	"classifieds_backend/internal/ads/transport"
	"classifieds_backend/platform/httpkit"
	"classifieds_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid ad id"

	filesField         = "files"
	multipartMaxMemory = 32 << 20
	maxUploadFiles     = 10
	multipartOverhead  = 1 << 20
)

type Handler struct {
	svc         *service.Service
	val         *validator.Validator
	maxFileSize int64
}

func New(svc *service.Service, val *validator.Validator, maxFileSize int64) *Handler {
	return &Handler{svc: svc, val: val, maxFileSize: maxFileSize}
}

// RegisterRoutes mounts public routes on public and owner routes on protected.
func (h *Handler) RegisterRoutes(public, protected *gin.RouterGroup) {
	public.GET("/ads/search", h.Search)
	public.GET("/ads/:id", h.Get)
	public.GET("/ads/:id/qr", h.QRCode)

	protected.POST("/ads", h.Create)
	protected.PUT("/ads/:id", h.Update)
	protected.DELETE("/ads/:id", h.Delete)
	protected.POST("/ads/images/upload", h.UploadImages)
	protected.GET("/users/me/ads", h.ListMine)
}

// Create stores a new ad for the caller.
// POST /api/v1/ads
func (h *Handler) Create(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var req transport.AdRequest
	if !h.bindAd(c, &req) {
		return
	}

	ad, err := h.svc.Create(c.Request.Context(), identity.UserID(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, ad)
}

// Get returns one ad.
// GET /api/v1/ads/:id
func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	ad, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, ad)
}

// Update replaces an ad owned by the caller.
// PUT /api/v1/ads/:id
func (h *Handler) Update(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req transport.AdRequest
	if !h.bindAd(c, &req) {
		return
	}

	ad, err := h.svc.Update(c.Request.Context(), id, identity.UserID(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, ad)
}

// Delete removes an ad owned by the caller.
// DELETE /api/v1/ads/:id
func (h *Handler) Delete(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	ad, err := h.svc.Delete(c.Request.Context(), id, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, ad)
}

// Search lists ads by optional category, title and price range.
// GET /api/v1/ads/search
func (h *Handler) Search(c *gin.Context) {
	var req transport.SearchAdsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	page, err := h.svc.Search(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, page)
}

// ListMine lists the caller's ads.
// GET /api/v1/users/me/ads
func (h *Handler) ListMine(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var req transport.PageRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	page, err := h.svc.ListByOwner(c.Request.Context(), identity.UserID(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, page)
}

// UploadImages stores the multipart "files" parts and returns their keys.
// POST /api/v1/ads/images/upload
func (h *Handler) UploadImages(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	if limit := h.maxUploadBytes(); limit > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	}
	if err := c.Request.ParseMultipartForm(multipartMaxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpkit.Error(c, http.StatusRequestEntityTooLarge, "upload exceeds the maximum request size", nil)
			return
		}
		httpkit.Error(c, http.StatusBadRequest, "unable to parse form data", nil)
		return
	}

	var headers []*multipart.FileHeader
	if c.Request.MultipartForm != nil {
		headers = c.Request.MultipartForm.File[filesField]
	}
	if len(headers) == 0 {
		httpkit.Error(c, http.StatusBadRequest, "at least one file is required", nil)
		return
	}
	if len(headers) > maxUploadFiles {
		httpkit.Error(c, http.StatusBadRequest, fmt.Sprintf("at most %d files can be uploaded at once", maxUploadFiles), nil)
		return
	}

	uploads, closers, err := h.openUploads(headers)
	defer closeAll(closers)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	resp, err := h.svc.UploadImages(c.Request.Context(), identity.UserID(), uploads)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, resp)
}

// QRCode returns a PNG QR code linking to the ad page.
// GET /api/v1/ads/:id/qr
func (h *Handler) QRCode(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	png, err := h.svc.QRCode(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, "image/png", png)
}

func (h *Handler) bindAd(c *gin.Context, req *transport.AdRequest) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return false
	}
	return true
}

// maxUploadBytes bounds a whole upload request: every allowed file at full
// size plus room for multipart headers. Zero means unbounded.
func (h *Handler) maxUploadBytes() int64 {
	if h.maxFileSize <= 0 {
		return 0
	}
	return h.maxFileSize*maxUploadFiles + multipartOverhead
}

func (h *Handler) openUploads(headers []*multipart.FileHeader) ([]storage.Upload, []io.Closer, error) {
	uploads := make([]storage.Upload, 0, len(headers))
	closers := make([]io.Closer, 0, len(headers))
	for _, fh := range headers {
		if h.maxFileSize > 0 && fh.Size > h.maxFileSize {
			return nil, closers, fmt.Errorf("file %s exceeds the maximum size of %d bytes", fh.Filename, h.maxFileSize)
		}
		f, err := fh.Open()
		if err != nil {
			return nil, closers, fmt.Errorf("unable to read file %s", fh.Filename)
		}
		closers = append(closers, f)
		uploads = append(uploads, storage.Upload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Body:        f,
		})
	}
	return uploads, closers, nil
}

func closeAll(closers []io.Closer) {
	for _, cl := range closers {
		_ = cl.Close()
	}
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return 0, false
	}
	return id, true
}
