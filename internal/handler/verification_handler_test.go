package handler_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"propveris/internal/domain"
	"propveris/internal/handler"
	"propveris/internal/service"
	"propveris/mocks"
)

func newTestRouter(svc service.VerificationService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := handler.NewVerificationHandler(svc)
	r.POST("/api/v1/verify", h.Verify)
	r.POST("/api/v1/verifications", h.Submit)
	r.GET("/api/v1/verifications", h.List)
	r.GET("/api/v1/verifications/:id", h.GetByID)
	r.DELETE("/api/v1/verifications/:id", h.Delete)
	return r
}

func multipartBody(t *testing.T, docType, fileName string, fileBytes []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if docType != "" {
		require.NoError(t, w.WriteField("document_type", docType))
	}
	if fileName != "" {
		fw, err := w.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = fw.Write(fileBytes)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestVerificationHandler_Verify_Success(t *testing.T) {
	svc := new(mocks.MockVerificationService)
	svc.On("Verify", mock.Anything, mock.MatchedBy(func(in *service.VerifyUploadInput) bool {
		return in.DocumentType == domain.DocTypeRentAgreement &&
			in.FileName == "agreement.jpg" &&
			len(in.FileBytes) == 4
	})).Return(&domain.VerificationRecord{
		DocumentType: domain.DocTypeRentAgreement,
		Status:       domain.StatusSuccess,
		Benefits:     []domain.VerdictItem{{Label: "Parties identified"}},
		Risks:        []domain.VerdictItem{},
	}, nil).Once()

	body, contentType := multipartBody(t, "rent_agreement", "agreement.jpg", []byte{0xFF, 0xD8, 0xFF, 0xE0})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/verify", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp handler.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "success", data["status"])
	svc.AssertExpectations(t)
}

func TestVerificationHandler_Verify_UnknownDocumentType(t *testing.T) {
	svc := new(mocks.MockVerificationService)

	body, contentType := multipartBody(t, "mortgage", "x.jpg", []byte{1})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/verify", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "UNKNOWN_DOCUMENT_TYPE")
	svc.AssertNotCalled(t, "Verify")
}

func TestVerificationHandler_Verify_MissingFile(t *testing.T) {
	svc := new(mocks.MockVerificationService)

	body, contentType := multipartBody(t, "noc", "", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/verify", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "MISSING_FILE")
}

func TestVerificationHandler_Verify_FileTooLarge(t *testing.T) {
	svc := new(mocks.MockVerificationService)
	svc.On("Verify", mock.Anything, mock.Anything).Return(nil, domain.ErrFileTooLarge).Once()

	body, contentType := multipartBody(t, "title_deed", "deed.pdf", []byte("%PDF-1.4"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/verify", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "FILE_TOO_LARGE")
}

func TestVerificationHandler_Submit_Accepted(t *testing.T) {
	id := uuid.New()
	svc := new(mocks.MockVerificationService)
	svc.On("Submit", mock.Anything, mock.Anything).Return(&domain.Verification{
		ID:           id,
		DocumentType: domain.DocTypeNOC,
		QueueStatus:  domain.QueueStatusQueued,
	}, nil).Once()

	body, contentType := multipartBody(t, "noc", "noc.png", []byte{0x89, 0x50, 0x4E, 0x47})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/verifications", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), id.String())
	assert.Contains(t, w.Body.String(), `"queue_status":"queued"`)
}

func TestVerificationHandler_GetByID(t *testing.T) {
	id := uuid.New()
	svc := new(mocks.MockVerificationService)
	svc.On("GetByID", mock.Anything, id).Return(&domain.Verification{
		ID:          id,
		QueueStatus: domain.QueueStatusCompleted,
		Status:      domain.StatusSuccess,
	}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/verifications/"+id.String(), nil)
	w := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), id.String())
	svc.AssertNotCalled(t, "GetDownloadURL", mock.Anything, mock.Anything)
}

func TestVerificationHandler_GetByID_IncludesDownloadURL(t *testing.T) {
	id := uuid.New()
	svc := new(mocks.MockVerificationService)
	svc.On("GetByID", mock.Anything, id).Return(&domain.Verification{
		ID:          id,
		S3Bucket:    "prop-docs",
		S3Key:       "verifications/noc/" + id.String() + ".pdf",
		QueueStatus: domain.QueueStatusCompleted,
	}, nil).Once()
	svc.On("GetDownloadURL", mock.Anything, id).
		Return("https://prop-docs.s3.amazonaws.com/signed", nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/verifications/"+id.String(), nil)
	w := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp handler.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "https://prop-docs.s3.amazonaws.com/signed", data["download_url"])
	svc.AssertExpectations(t)
}

func TestVerificationHandler_Delete(t *testing.T) {
	id := uuid.New()
	svc := new(mocks.MockVerificationService)
	svc.On("Delete", mock.Anything, id).Return(nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/verifications/"+id.String(), nil)
	w := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestVerificationHandler_Delete_NotFound(t *testing.T) {
	id := uuid.New()
	svc := new(mocks.MockVerificationService)
	svc.On("Delete", mock.Anything, id).Return(domain.ErrNotFound).Once()

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/verifications/"+id.String(), nil)
	w := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestVerificationHandler_GetByID_InvalidID(t *testing.T) {
	svc := new(mocks.MockVerificationService)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/verifications/not-a-uuid", nil)
	w := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "GetByID")
}

func TestVerificationHandler_GetByID_NotFound(t *testing.T) {
	id := uuid.New()
	svc := new(mocks.MockVerificationService)
	svc.On("GetByID", mock.Anything, id).Return(nil, domain.ErrNotFound).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/verifications/"+id.String(), nil)
	w := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "NOT_FOUND")
}

func TestVerificationHandler_List_Pagination(t *testing.T) {
	svc := new(mocks.MockVerificationService)
	svc.On("List", mock.Anything, 40, 20).Return([]domain.Verification{}, 120, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/verifications?offset=40&limit=20", nil)
	w := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp handler.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 120, resp.Meta.Total)
	assert.Equal(t, 40, resp.Meta.Offset)
}

func TestVerificationHandler_List_ClampsPagination(t *testing.T) {
	svc := new(mocks.MockVerificationService)
	svc.On("List", mock.Anything, 0, 20).Return([]domain.Verification{}, 0, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/verifications?offset=-5&limit=9999", nil)
	w := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}
