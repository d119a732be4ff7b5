package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"propveris/internal/domain"
	"propveris/internal/middleware"
	"propveris/internal/service"
)

// VerificationHandler handles document verification endpoints.
type VerificationHandler struct {
	verificationService service.VerificationService
}

// NewVerificationHandler creates a new VerificationHandler.
func NewVerificationHandler(verificationService service.VerificationService) *VerificationHandler {
	return &VerificationHandler{verificationService: verificationService}
}

// Verify handles POST /api/v1/verify. The document is verified
// synchronously and the full record returned in the response.
func (h *VerificationHandler) Verify(c *gin.Context) {
	input, ok := h.readUpload(c)
	if !ok {
		return
	}

	record, err := h.verificationService.Verify(c.Request.Context(), input)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, record)
}

// Submit handles POST /api/v1/verifications. The upload is stored and
// queued; the caller polls GET /api/v1/verifications/:id for the result.
func (h *VerificationHandler) Submit(c *gin.Context) {
	input, ok := h.readUpload(c)
	if !ok {
		return
	}

	v, err := h.verificationService.Submit(c.Request.Context(), input)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondAccepted(c, v)
}

// GetByID handles GET /api/v1/verifications/:id. When the verification
// has a stored source document, a presigned download link is included.
func (h *VerificationHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid verification ID")
		return
	}

	v, err := h.verificationService.GetByID(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}

	if v.S3Key == "" {
		RespondOK(c, gin.H{"verification": v})
		return
	}

	downloadURL, err := h.verificationService.GetDownloadURL(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, gin.H{
		"verification": v,
		"download_url": downloadURL,
	})
}

// Delete handles DELETE /api/v1/verifications/:id. The stored source
// document is removed along with the row.
func (h *VerificationHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid verification ID")
		return
	}

	if err := h.verificationService.Delete(c.Request.Context(), id); err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, gin.H{"message": "verification deleted"})
}

// List handles GET /api/v1/verifications
func (h *VerificationHandler) List(c *gin.Context) {
	offset, limit := parsePagination(c)

	items, total, err := h.verificationService.List(c.Request.Context(), offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondPaginated(c, items, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// readUpload parses the multipart verification request shared by the
// sync and async endpoints.
func (h *VerificationHandler) readUpload(c *gin.Context) (*service.VerifyUploadInput, bool) {
	docType := domain.DocumentType(c.PostForm("document_type"))
	if !docType.IsValid() {
		RespondError(c, http.StatusBadRequest, "UNKNOWN_DOCUMENT_TYPE",
			"document_type must be one of: rent_agreement, title_deed, noc")
		return nil, false
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", "file field is required")
		return nil, false
	}
	defer func() { _ = file.Close() }()

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_FILE", "failed to read uploaded file")
		return nil, false
	}

	return &service.VerifyUploadInput{
		DocumentType: docType,
		FileName:     header.Filename,
		ContentType:  header.Header.Get("Content-Type"),
		FileBytes:    fileBytes,
		SubmittedBy:  middleware.GetSubject(c),
	}, true
}
