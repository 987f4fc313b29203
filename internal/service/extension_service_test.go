package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filetrackhq/filetrack-api/internal/dto"
	"github.com/filetrackhq/filetrack-api/internal/models"
	appErrors "github.com/filetrackhq/filetrack-api/pkg/errors"
)

type extensionStoreStub struct {
	requests map[string]*models.ExtensionRequest
	resolves int
}

func newExtensionStoreStub(requests ...*models.ExtensionRequest) *extensionStoreStub {
	s := &extensionStoreStub{requests: make(map[string]*models.ExtensionRequest)}
	for _, r := range requests {
		s.requests[r.ID] = r
	}
	return s
}

func (s *extensionStoreStub) Create(ctx context.Context, req *models.ExtensionRequest) error {
	if req.ID == "" {
		req.ID = "ext-new"
	}
	req.Status = models.ExtensionStatusPending
	s.requests[req.ID] = req
	return nil
}

func (s *extensionStoreStub) GetByID(ctx context.Context, id string) (*models.ExtensionRequest, error) {
	req, ok := s.requests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *req
	return &copied, nil
}

func (s *extensionStoreStub) ListPendingForApprover(ctx context.Context, approverID string) ([]models.ExtensionRequest, error) {
	var out []models.ExtensionRequest
	for _, r := range s.requests {
		if r.ApproverID == approverID && r.Status == models.ExtensionStatusPending {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *extensionStoreStub) ListByFile(ctx context.Context, fileID string) ([]models.ExtensionRequest, error) {
	var out []models.ExtensionRequest
	for _, r := range s.requests {
		if r.FileID == fileID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *extensionStoreStub) Resolve(ctx context.Context, id string, status models.ExtensionStatus, resolvedBy string, remarks *string, at time.Time) (bool, error) {
	s.resolves++
	req, ok := s.requests[id]
	if !ok || req.Status != models.ExtensionStatusPending {
		return false, nil
	}
	req.Status = status
	req.ResolvedByID = &resolvedBy
	req.ResolvedAt = &at
	req.ResolveRemarks = remarks
	return true, nil
}

type extensionFileStoreStub struct {
	files      map[string]*models.File
	extensions map[string]int64
}

func (s *extensionFileStoreStub) GetByID(ctx context.Context, id string) (*models.File, error) {
	file, ok := s.files[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return file, nil
}

func (s *extensionFileStoreStub) ApplyExtension(ctx context.Context, id string, deltaSeconds int64) error {
	if s.extensions == nil {
		s.extensions = make(map[string]int64)
	}
	s.extensions[id] += deltaSeconds
	return nil
}

type approverResolverStub struct {
	entry   *models.RoutingEntry
	created []models.RoutingEntry
}

func (s *approverResolverStub) LatestAddressedTo(ctx context.Context, fileID, toUserID string) (*models.RoutingEntry, error) {
	if s.entry == nil {
		return nil, sql.ErrNoRows
	}
	return s.entry, nil
}

func (s *approverResolverStub) Create(ctx context.Context, entry *models.RoutingEntry) error {
	s.created = append(s.created, *entry)
	return nil
}

type extensionFixture struct {
	svc        *ExtensionService
	extensions *extensionStoreStub
	files      *extensionFileStoreStub
	resolver   *approverResolverStub
	admins     *adminDirectoryStub
	timer      *fileTimerStub
	publisher  *publisherStub
}

func newExtensionFixture(t *testing.T, files []*models.File, requests ...*models.ExtensionRequest) *extensionFixture {
	t.Helper()
	f := &extensionFixture{
		extensions: newExtensionStoreStub(requests...),
		files:      &extensionFileStoreStub{files: make(map[string]*models.File)},
		resolver:   &approverResolverStub{},
		admins:     &adminDirectoryStub{},
		timer:      &fileTimerStub{remaining: make(map[string]int64)},
		publisher:  &publisherStub{},
	}
	for _, file := range files {
		f.files.files[file.ID] = file
	}
	f.svc = NewExtensionService(f.extensions, f.files, f.resolver, f.admins, f.timer, f.publisher, nil)
	return f
}

func TestExtensionRequestOnlyByHolder(t *testing.T) {
	f := newExtensionFixture(t, []*models.File{openFile("f1", "u1")})

	_, err := f.svc.RequestExtraTime(context.Background(), "f1", &dto.RequestExtensionRequest{
		AdditionalDays: 2, Reason: "awaiting records",
	}, officer("someone-else"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestExtensionRequestApproverFromRoutingTrail(t *testing.T) {
	f := newExtensionFixture(t, []*models.File{openFile("f1", "u1")})
	to := "u1"
	f.resolver.entry = &models.RoutingEntry{FromUserID: "sender", ToUserID: &to}

	request, err := f.svc.RequestExtraTime(context.Background(), "f1", &dto.RequestExtensionRequest{
		AdditionalDays: 2, Reason: "awaiting records",
	}, officer("u1"))
	require.NoError(t, err)

	assert.Equal(t, "sender", request.ApproverID)
	assert.Equal(t, int64(2*86400), request.AdditionalTime)
	assert.Equal(t, models.ExtensionStatusPending, request.Status)
	require.Len(t, f.publisher.ofType(models.NotifyExtensionRequest), 1)
	assert.Equal(t, "sender", f.publisher.ofType(models.NotifyExtensionRequest)[0].UserID)
}

func TestExtensionRequestFallsBackToCreator(t *testing.T) {
	f := newExtensionFixture(t, []*models.File{openFile("f1", "u1")})

	request, err := f.svc.RequestExtraTime(context.Background(), "f1", &dto.RequestExtensionRequest{
		AdditionalDays: 1, Reason: "awaiting records",
	}, officer("u1"))
	require.NoError(t, err)
	assert.Equal(t, "creator", request.ApproverID)
}

func TestExtensionResolveApprovePushesDueDate(t *testing.T) {
	pending := &models.ExtensionRequest{
		ID: "ext1", FileID: "f1", RequestedByID: "u1", ApproverID: "sender",
		AdditionalTime: 172800, Status: models.ExtensionStatusPending,
	}
	f := newExtensionFixture(t, []*models.File{openFile("f1", "u1")}, pending)
	approver := officer("sender")

	resolved, err := f.svc.ResolveExtension(context.Background(), "ext1", &dto.ResolveExtensionRequest{Approve: true}, approver)
	require.NoError(t, err)

	assert.Equal(t, models.ExtensionStatusApproved, resolved.Status)
	assert.Equal(t, int64(172800), f.files.extensions["f1"])
	assert.Contains(t, f.timer.refreshed, "f1")
	require.Len(t, f.publisher.ofType(models.NotifyExtensionApproved), 1)
}

func TestExtensionResolveDenyLeavesDueDate(t *testing.T) {
	pending := &models.ExtensionRequest{
		ID: "ext1", FileID: "f1", RequestedByID: "u1", ApproverID: "sender",
		AdditionalTime: 172800, Status: models.ExtensionStatusPending,
	}
	f := newExtensionFixture(t, []*models.File{openFile("f1", "u1")}, pending)

	resolved, err := f.svc.ResolveExtension(context.Background(), "ext1", &dto.ResolveExtensionRequest{Approve: false, Remarks: "no grounds"}, officer("sender"))
	require.NoError(t, err)

	assert.Equal(t, models.ExtensionStatusDenied, resolved.Status)
	assert.Empty(t, f.files.extensions)
	assert.Empty(t, f.resolver.created)
	require.Len(t, f.publisher.ofType(models.NotifyExtensionDenied), 1)
}

func TestExtensionResolveNotifiesAdminsOnBothOutcomes(t *testing.T) {
	approved := &models.ExtensionRequest{
		ID: "ext1", FileID: "f1", RequestedByID: "u1", ApproverID: "sender",
		AdditionalTime: 86400, Status: models.ExtensionStatusPending,
	}
	denied := &models.ExtensionRequest{
		ID: "ext2", FileID: "f1", RequestedByID: "u1", ApproverID: "sender",
		AdditionalTime: 86400, Status: models.ExtensionStatusPending,
	}
	f := newExtensionFixture(t, []*models.File{openFile("f1", "u1")}, approved, denied)
	f.admins.admins = []models.User{{ID: "boss"}}

	_, err := f.svc.ResolveExtension(context.Background(), "ext1", &dto.ResolveExtensionRequest{Approve: true}, officer("sender"))
	require.NoError(t, err)
	_, err = f.svc.ResolveExtension(context.Background(), "ext2", &dto.ResolveExtensionRequest{Approve: false}, officer("sender"))
	require.NoError(t, err)

	events := f.publisher.ofType(models.NotifyAdminExtension)
	require.Len(t, events, 2)
	assert.Equal(t, "boss", events[0].UserID)
	assert.Equal(t, "boss", events[1].UserID)
}

func TestExtensionResolveApproveRecordsGrantEntry(t *testing.T) {
	pending := &models.ExtensionRequest{
		ID: "ext1", FileID: "f1", RequestedByID: "u1", ApproverID: "sender",
		AdditionalTime: 86400, Status: models.ExtensionStatusPending,
	}
	f := newExtensionFixture(t, []*models.File{openFile("f1", "u1")}, pending)

	_, err := f.svc.ResolveExtension(context.Background(), "ext1", &dto.ResolveExtensionRequest{Approve: true}, officer("sender"))
	require.NoError(t, err)

	require.Len(t, f.resolver.created, 1)
	entry := f.resolver.created[0]
	assert.Equal(t, models.RoutingActionExtensionGranted, entry.Action)
	assert.Equal(t, "f1", entry.FileID)
	assert.Equal(t, "sender", entry.FromUserID)
	require.NotNil(t, entry.ToUserID)
	assert.Equal(t, "u1", *entry.ToUserID)
}

func TestExtensionResolveIsOneShot(t *testing.T) {
	pending := &models.ExtensionRequest{
		ID: "ext1", FileID: "f1", RequestedByID: "u1", ApproverID: "sender",
		AdditionalTime: 86400, Status: models.ExtensionStatusPending,
	}
	f := newExtensionFixture(t, []*models.File{openFile("f1", "u1")}, pending)

	_, err := f.svc.ResolveExtension(context.Background(), "ext1", &dto.ResolveExtensionRequest{Approve: true}, officer("sender"))
	require.NoError(t, err)

	// A second resolution, even by an admin, is rejected and the due date
	// moves only once.
	admin := &models.JWTClaims{UserID: "boss", Role: models.RoleAdmin}
	_, err = f.svc.ResolveExtension(context.Background(), "ext1", &dto.ResolveExtensionRequest{Approve: true}, admin)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyResolved.Code, appErrors.FromError(err).Code)
	assert.Equal(t, int64(86400), f.files.extensions["f1"])
}

func TestExtensionResolveRequiresApproverOrAdmin(t *testing.T) {
	pending := &models.ExtensionRequest{
		ID: "ext1", FileID: "f1", RequestedByID: "u1", ApproverID: "sender",
		AdditionalTime: 86400, Status: models.ExtensionStatusPending,
	}
	f := newExtensionFixture(t, []*models.File{openFile("f1", "u1")}, pending)

	_, err := f.svc.ResolveExtension(context.Background(), "ext1", &dto.ResolveExtensionRequest{Approve: true}, officer("bystander"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Zero(t, f.extensions.resolves)
}
