package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filetrackhq/filetrack-api/internal/dto"
	"github.com/filetrackhq/filetrack-api/internal/middleware"
	"github.com/filetrackhq/filetrack-api/internal/models"
	appErrors "github.com/filetrackhq/filetrack-api/pkg/errors"
)

type fileServiceMock struct {
	created   *dto.CreateFileRequest
	actionErr error
	file      models.File
}

func (m *fileServiceMock) Create(ctx context.Context, req *dto.CreateFileRequest, actor *models.JWTClaims) (*models.File, error) {
	m.created = req
	return &m.file, nil
}

func (m *fileServiceMock) Forward(ctx context.Context, fileID string, req *dto.ForwardFileRequest, actor *models.JWTClaims) (*models.File, error) {
	return &m.file, nil
}

func (m *fileServiceMock) PerformAction(ctx context.Context, fileID string, req *dto.FileActionRequest, actor *models.JWTClaims) (*models.File, error) {
	if m.actionErr != nil {
		return nil, m.actionErr
	}
	return &m.file, nil
}

func (m *fileServiceMock) Recall(ctx context.Context, fileID, remarks string, actor *models.JWTClaims) (*models.File, error) {
	return &m.file, nil
}

func (m *fileServiceMock) Dispatch(ctx context.Context, fileID string, req *dto.DispatchFileRequest, actor *models.JWTClaims) (*models.File, error) {
	return &m.file, nil
}

func (m *fileServiceMock) Get(ctx context.Context, fileID string) (*models.File, error) {
	return &m.file, nil
}

func (m *fileServiceMock) List(ctx context.Context, query *dto.FileQuery) ([]models.File, int, error) {
	return []models.File{m.file}, 1, nil
}

func (m *fileServiceMock) History(ctx context.Context, fileID string) ([]models.RoutingEntry, error) {
	return nil, nil
}

func testContext(t *testing.T, method, target string, payload interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, target, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1", Role: models.RoleOfficer})
	return c, w
}

func TestFileHandlerCreateRejectsMissingSubject(t *testing.T) {
	handler := NewFileHandler(&fileServiceMock{}, nil)
	c, w := testContext(t, http.MethodPost, "/files", dto.CreateFileRequest{
		DivisionID: "DIV", DepartmentID: "FIN",
	})

	handler.Create(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFileHandlerCreatePassesPayload(t *testing.T) {
	mock := &fileServiceMock{file: models.File{ID: "f1", FileNumber: "FIN/DIV/2026/0001"}}
	handler := NewFileHandler(mock, nil)
	c, w := testContext(t, http.MethodPost, "/files", dto.CreateFileRequest{
		Subject: "Budget revision", DivisionID: "DIV", DepartmentID: "FIN", AllottedDays: 5,
	})

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, mock.created)
	assert.Equal(t, 5, mock.created.AllottedDays)
}

func TestFileHandlerActionPropagatesTransitionError(t *testing.T) {
	mock := &fileServiceMock{actionErr: appErrors.ErrInvalidTransition}
	handler := NewFileHandler(mock, nil)
	c, w := testContext(t, http.MethodPost, "/files/f1/action", dto.FileActionRequest{Action: "launch"})
	c.Params = gin.Params{{Key: "id", Value: "f1"}}

	handler.Action(c)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestFileHandlerListParsesStatusFilter(t *testing.T) {
	handler := NewFileHandler(&fileServiceMock{}, nil)
	c, w := testContext(t, http.MethodGet, "/files?status=pending,in_progress&redListed=true", nil)

	handler.List(c)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestFileHandlerListRejectsBadBoolean(t *testing.T) {
	handler := NewFileHandler(&fileServiceMock{}, nil)
	c, w := testContext(t, http.MethodGet, "/files?redListed=sometimes", nil)

	handler.List(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
