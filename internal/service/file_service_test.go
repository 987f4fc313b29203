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

type fileStoreStub struct {
	files       map[string]*models.File
	transitions []models.RoutingEntry
	extensions  map[string]int64
	sequence    int
	proofs      []models.DispatchProof
}

func newFileStoreStub(files ...*models.File) *fileStoreStub {
	s := &fileStoreStub{files: make(map[string]*models.File), extensions: make(map[string]int64)}
	for _, f := range files {
		s.files[f.ID] = f
	}
	return s
}

func (s *fileStoreStub) CreateWithEntry(ctx context.Context, file *models.File, entry *models.RoutingEntry) error {
	if file.ID == "" {
		file.ID = "f-new"
	}
	s.files[file.ID] = file
	entry.FileID = file.ID
	s.transitions = append(s.transitions, *entry)
	return nil
}

func (s *fileStoreStub) GetByID(ctx context.Context, id string) (*models.File, error) {
	file, ok := s.files[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *file
	return &copied, nil
}

func (s *fileStoreStub) List(ctx context.Context, filter models.FileFilter) ([]models.File, int, error) {
	var out []models.File
	for _, f := range s.files {
		out = append(out, *f)
	}
	return out, len(out), nil
}

func (s *fileStoreStub) Transition(ctx context.Context, file *models.File, entry *models.RoutingEntry) error {
	if _, ok := s.files[file.ID]; !ok {
		return sql.ErrNoRows
	}
	copied := *file
	s.files[file.ID] = &copied
	s.transitions = append(s.transitions, *entry)
	return nil
}

func (s *fileStoreStub) ApplyExtension(ctx context.Context, id string, deltaSeconds int64) error {
	s.extensions[id] += deltaSeconds
	return nil
}

func (s *fileStoreStub) NextSequence(ctx context.Context, departmentID, divisionID string, year int) (int, error) {
	s.sequence++
	return s.sequence, nil
}

func (s *fileStoreStub) CreateDispatchProof(ctx context.Context, proof *models.DispatchProof) error {
	s.proofs = append(s.proofs, *proof)
	return nil
}

type deskStoreStub struct {
	desk    *models.Desk
	noDesks bool
	created []models.Desk
}

func (s *deskStoreStub) PickAvailable(ctx context.Context, divisionID string, day time.Time) (*models.Desk, error) {
	if s.noDesks {
		return nil, sql.ErrNoRows
	}
	return s.desk, nil
}

func (s *deskStoreStub) ListByDivision(ctx context.Context, divisionID string, day time.Time) ([]models.DeskLoad, error) {
	if s.desk == nil {
		return nil, nil
	}
	return []models.DeskLoad{{Desk: *s.desk}}, nil
}

func (s *deskStoreStub) Create(ctx context.Context, desk *models.Desk) error {
	desk.ID = "d-auto"
	s.created = append(s.created, *desk)
	return nil
}

type routingLogStub struct {
	entries []models.RoutingEntry
}

func (s *routingLogStub) ListByFile(ctx context.Context, fileID string) ([]models.RoutingEntry, error) {
	return s.entries, nil
}

func (s *routingLogStub) Latest(ctx context.Context, fileID string) (*models.RoutingEntry, error) {
	if len(s.entries) == 0 {
		return nil, sql.ErrNoRows
	}
	return &s.entries[0], nil
}

type adminDirectoryStub struct {
	admins []models.User
}

func (s *adminDirectoryStub) ListAdminsByDepartment(ctx context.Context, departmentID string) ([]models.User, error) {
	return s.admins, nil
}

type fileTimerStub struct {
	remaining map[string]int64
	refreshed []string
}

func (s *fileTimerStub) CalculateTimeRemaining(ctx context.Context, file *models.File, now time.Time) (*int64, float64, error) {
	if file.DueDate == nil {
		return nil, 0, nil
	}
	rem := s.remaining[file.ID]
	return &rem, 0, nil
}

func (s *fileTimerStub) UpdateTimeRemaining(ctx context.Context, fileID string) error {
	s.refreshed = append(s.refreshed, fileID)
	return nil
}

type ledgerStub struct {
	penalties   []string
	completions map[string]int64
	bonuses     []string
}

func newLedgerStub() *ledgerStub {
	return &ledgerStub{completions: make(map[string]int64)}
}

func (s *ledgerStub) ApplyRedListPenalty(ctx context.Context, userID, fileID string) error {
	s.penalties = append(s.penalties, userID+"/"+fileID)
	return nil
}

func (s *ledgerStub) AwardCompletion(ctx context.Context, userID, fileID string, remainingSeconds int64) error {
	s.completions[fileID] = remainingSeconds
	return nil
}

func (s *ledgerStub) ApplyMonthlyBonus(ctx context.Context, userID, period string) error {
	s.bonuses = append(s.bonuses, userID+"/"+period)
	return nil
}

type fileServiceFixture struct {
	svc       *FileService
	files     *fileStoreStub
	desks     *deskStoreStub
	routing   *routingLogStub
	timer     *fileTimerStub
	ledger    *ledgerStub
	publisher *publisherStub
}

func newFileServiceFixture(t *testing.T, files ...*models.File) *fileServiceFixture {
	t.Helper()
	f := &fileServiceFixture{
		files:     newFileStoreStub(files...),
		desks:     &deskStoreStub{desk: &models.Desk{ID: "d1", DivisionID: "DIV"}},
		routing:   &routingLogStub{},
		timer:     &fileTimerStub{remaining: make(map[string]int64)},
		ledger:    newLedgerStub(),
		publisher: &publisherStub{},
	}
	calendar := &calendarStub{seconds: map[string]int64{}}
	f.svc = NewFileService(
		f.files, f.desks, f.routing, &adminDirectoryStub{}, calendar, f.timer,
		f.ledger, incentiveSettings(), f.publisher, nil,
		FileServiceConfig{MaxFilesPerDay: 10, AutoCreateEnabled: true},
		WithFileClock(func() time.Time { return time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC) }),
	)
	return f
}

func officer(id string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Role: models.RoleOfficer, FullName: "Officer " + id}
}

func openFile(id, holder string) *models.File {
	due := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)
	return &models.File{
		ID:                id,
		FileNumber:        "FIN/DIV/2026/0007",
		Status:            models.FileStatusInProgress,
		CreatedByID:       "creator",
		AssignedToID:      &holder,
		CurrentDivisionID: "DIV",
		DepartmentID:      "FIN",
		DueDate:           &due,
		AllottedTime:      86400,
	}
}

func TestFileServiceCreateAssignsNumberAndDesk(t *testing.T) {
	f := newFileServiceFixture(t)

	file, err := f.svc.Create(context.Background(), &dto.CreateFileRequest{
		Subject:      "Budget revision",
		DivisionID:   "DIV",
		DepartmentID: "FIN",
		AllottedDays: 5,
	}, officer("u1"))
	require.NoError(t, err)

	assert.Equal(t, "FIN/DIV/2026/0001", file.FileNumber)
	require.NotNil(t, file.DeskID)
	assert.Equal(t, "d1", *file.DeskID)
	require.NotNil(t, file.DueDate)
	require.Len(t, f.files.transitions, 1)
	assert.Equal(t, models.RoutingActionCreated, f.files.transitions[0].Action)
}

func TestFileServiceCreateAutoCreatesOverflowDesk(t *testing.T) {
	f := newFileServiceFixture(t)
	f.desks.noDesks = true

	file, err := f.svc.Create(context.Background(), &dto.CreateFileRequest{
		Subject:      "Budget revision",
		DivisionID:   "DIV",
		DepartmentID: "FIN",
	}, officer("u1"))
	require.NoError(t, err)

	require.Len(t, f.desks.created, 1)
	assert.True(t, f.desks.created[0].AutoCreated)
	require.NotNil(t, file.DeskID)
	assert.Equal(t, "d-auto", *file.DeskID)
}

func TestFileServiceUnknownActionDoesNotMutate(t *testing.T) {
	f := newFileServiceFixture(t, openFile("f1", "u1"))

	_, err := f.svc.PerformAction(context.Background(), "f1", &dto.FileActionRequest{Action: "launch"}, officer("u1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
	assert.Empty(t, f.files.transitions)
	assert.Equal(t, models.FileStatusInProgress, f.files.files["f1"].Status)
}

func TestFileServiceApproveAwardsCompletionWithTimeLeft(t *testing.T) {
	f := newFileServiceFixture(t, openFile("f1", "u1"))
	f.timer.remaining["f1"] = 3600

	file, err := f.svc.PerformAction(context.Background(), "f1", &dto.FileActionRequest{Action: "approve"}, officer("u1"))
	require.NoError(t, err)

	assert.Equal(t, models.FileStatusApproved, file.Status)
	assert.Equal(t, int64(3600), f.ledger.completions["f1"])
}

func TestFileServiceApproveOverdueEarnsNothing(t *testing.T) {
	f := newFileServiceFixture(t, openFile("f1", "u1"))
	f.timer.remaining["f1"] = -60

	file, err := f.svc.PerformAction(context.Background(), "f1", &dto.FileActionRequest{Action: "approve"}, officer("u1"))
	require.NoError(t, err)

	assert.Equal(t, models.FileStatusApproved, file.Status)
	assert.Empty(t, f.ledger.completions)
}

func TestFileServiceActionsRequireHolder(t *testing.T) {
	f := newFileServiceFixture(t, openFile("f1", "u1"))

	_, err := f.svc.PerformAction(context.Background(), "f1", &dto.FileActionRequest{Action: "approve"}, officer("intruder"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, f.files.transitions)
}

func TestFileServiceForwardRecordsTimeSpent(t *testing.T) {
	f := newFileServiceFixture(t, openFile("f1", "u1"))
	f.routing.entries = []models.RoutingEntry{{
		Action:    models.RoutingActionForwarded,
		CreatedAt: time.Date(2026, time.March, 2, 8, 0, 0, 0, time.UTC),
	}}

	file, err := f.svc.Forward(context.Background(), "f1", &dto.ForwardFileRequest{
		ToDivisionID: "DIV2",
		ToUserID:     "u2",
	}, officer("u1"))
	require.NoError(t, err)

	assert.Equal(t, "u2", *file.AssignedToID)
	assert.Equal(t, "DIV2", file.CurrentDivisionID)
	require.Len(t, f.files.transitions, 1)
	require.NotNil(t, f.files.transitions[0].TimeSpentSeconds)
	assert.Equal(t, int64(7200), *f.files.transitions[0].TimeSpentSeconds)
	require.Len(t, f.publisher.ofType(models.NotifyFileReceived), 1)
}

func TestFileServiceReturnActionSendsFileBack(t *testing.T) {
	f := newFileServiceFixture(t, openFile("f1", "u1"))
	sender := "u0"
	holder := "u1"
	f.routing.entries = []models.RoutingEntry{{
		Action:     models.RoutingActionForwarded,
		FromUserID: sender,
		ToUserID:   &holder,
		CreatedAt:  time.Date(2026, time.March, 2, 8, 0, 0, 0, time.UTC),
	}}

	file, err := f.svc.PerformAction(context.Background(), "f1", &dto.FileActionRequest{Action: "return"}, officer("u1"))
	require.NoError(t, err)

	assert.Equal(t, models.FileStatusReturned, file.Status)
	require.NotNil(t, file.AssignedToID)
	assert.Equal(t, sender, *file.AssignedToID)
	require.Len(t, f.files.transitions, 1)
	assert.Equal(t, models.RoutingActionReturnedToPrev, f.files.transitions[0].Action)
}

func TestFileServiceHoldBlocksActionsUntilRelease(t *testing.T) {
	f := newFileServiceFixture(t, openFile("f1", "u1"))

	_, err := f.svc.PerformAction(context.Background(), "f1", &dto.FileActionRequest{Action: "hold", Remarks: "awaiting legal opinion"}, officer("u1"))
	require.NoError(t, err)
	assert.True(t, f.files.files["f1"].IsOnHold)
	assert.Equal(t, models.FileStatusOnHold, f.files.files["f1"].Status)

	_, err = f.svc.PerformAction(context.Background(), "f1", &dto.FileActionRequest{Action: "approve"}, officer("u1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestFileServiceReleaseCreditsHoldTime(t *testing.T) {
	file := openFile("f1", "u1")
	file.IsOnHold = true
	f := newFileServiceFixture(t, file)
	f.routing.entries = []models.RoutingEntry{{
		Action:    models.RoutingActionPutOnHold,
		CreatedAt: time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC),
	}}

	released, err := f.svc.PerformAction(context.Background(), "f1", &dto.FileActionRequest{Action: "release"}, officer("u1"))
	require.NoError(t, err)

	assert.False(t, released.IsOnHold)
	assert.Equal(t, models.FileStatusInProgress, released.Status)
	assert.Equal(t, int64(3600), f.files.extensions["f1"])
	assert.Contains(t, f.timer.refreshed, "f1")
}

func TestFileServiceRecallRequiresSuperAdmin(t *testing.T) {
	f := newFileServiceFixture(t, openFile("f1", "u1"))

	_, err := f.svc.Recall(context.Background(), "f1", "", officer("u1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	super := &models.JWTClaims{UserID: "root", Role: models.RoleSuperAdmin}
	recalled, err := f.svc.Recall(context.Background(), "f1", "misfiled", super)
	require.NoError(t, err)
	assert.Equal(t, models.FileStatusRecalled, recalled.Status)
	assert.True(t, recalled.IsClosed)
	assert.Nil(t, recalled.AssignedToID)
}

func TestFileServiceDispatchRejectsUnreadyStates(t *testing.T) {
	rejected := openFile("f1", "u1")
	rejected.Status = models.FileStatusRejected
	held := openFile("f2", "u1")
	held.IsOnHold = true
	f := newFileServiceFixture(t, rejected, held)
	dispatcher := &models.JWTClaims{UserID: "d1", Role: models.RoleDispatcher}

	_, err := f.svc.Dispatch(context.Background(), "f1", &dto.DispatchFileRequest{Method: "courier"}, dispatcher)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)

	_, err = f.svc.Dispatch(context.Background(), "f2", &dto.DispatchFileRequest{Method: "courier"}, dispatcher)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
	assert.Empty(t, f.files.proofs)
}

func TestFileServiceDispatchFromInProgressApprovesAndCloses(t *testing.T) {
	f := newFileServiceFixture(t, openFile("f1", "u1"))
	dispatcher := &models.JWTClaims{UserID: "d1", Role: models.RoleDispatcher, FullName: "Dispatch Desk"}

	dispatched, err := f.svc.Dispatch(context.Background(), "f1", &dto.DispatchFileRequest{Method: "post"}, dispatcher)
	require.NoError(t, err)
	assert.Equal(t, models.FileStatusApproved, dispatched.Status)
	assert.True(t, dispatched.IsClosed)
}

func TestFileServiceDispatchClosesFileAndRecordsProof(t *testing.T) {
	file := openFile("f1", "u1")
	file.Status = models.FileStatusApproved
	f := newFileServiceFixture(t, file)
	dispatcher := &models.JWTClaims{UserID: "d1", Role: models.RoleDispatcher, FullName: "Dispatch Desk"}

	dispatched, err := f.svc.Dispatch(context.Background(), "f1", &dto.DispatchFileRequest{
		Method:       "courier",
		TrackingInfo: "AWB-1234",
	}, dispatcher)
	require.NoError(t, err)

	assert.True(t, dispatched.IsClosed)
	require.Len(t, f.files.proofs, 1)
	assert.Equal(t, "courier", f.files.proofs[0].Method)
	require.Len(t, f.publisher.ofType(models.NotifyFileDispatched), 1)

	// Closed files reject further mutation.
	_, err = f.svc.Dispatch(context.Background(), "f1", &dto.DispatchFileRequest{Method: "courier"}, dispatcher)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrFileClosed.Code, appErrors.FromError(err).Code)
}

func TestFileServiceDispatchRequiresDispatcherRole(t *testing.T) {
	file := openFile("f1", "u1")
	file.Status = models.FileStatusApproved
	f := newFileServiceFixture(t, file)

	_, err := f.svc.Dispatch(context.Background(), "f1", &dto.DispatchFileRequest{Method: "courier"}, officer("u1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
