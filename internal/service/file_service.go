package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/filetrackhq/filetrack-api/internal/dto"
	"github.com/filetrackhq/filetrack-api/internal/models"
	appErrors "github.com/filetrackhq/filetrack-api/pkg/errors"
)

type fileStore interface {
	CreateWithEntry(ctx context.Context, file *models.File, entry *models.RoutingEntry) error
	GetByID(ctx context.Context, id string) (*models.File, error)
	List(ctx context.Context, filter models.FileFilter) ([]models.File, int, error)
	Transition(ctx context.Context, file *models.File, entry *models.RoutingEntry) error
	ApplyExtension(ctx context.Context, id string, deltaSeconds int64) error
	NextSequence(ctx context.Context, departmentID, divisionID string, year int) (int, error)
	CreateDispatchProof(ctx context.Context, proof *models.DispatchProof) error
}

type deskStore interface {
	PickAvailable(ctx context.Context, divisionID string, day time.Time) (*models.Desk, error)
	ListByDivision(ctx context.Context, divisionID string, day time.Time) ([]models.DeskLoad, error)
	Create(ctx context.Context, desk *models.Desk) error
}

type routingLog interface {
	ListByFile(ctx context.Context, fileID string) ([]models.RoutingEntry, error)
	Latest(ctx context.Context, fileID string) (*models.RoutingEntry, error)
}

type adminDirectory interface {
	ListAdminsByDepartment(ctx context.Context, departmentID string) ([]models.User, error)
}

type dueDateCalendar interface {
	AddBusinessDays(ctx context.Context, start time.Time, n int) (time.Time, error)
	BusinessSecondsBetween(ctx context.Context, from, to time.Time) (int64, error)
}

type fileTimer interface {
	CalculateTimeRemaining(ctx context.Context, file *models.File, now time.Time) (*int64, float64, error)
	UpdateTimeRemaining(ctx context.Context, fileID string) error
}

// actionSpec describes one named transition in the closed action table.
type actionSpec struct {
	status     models.FileStatus
	routing    models.RoutingAction
	hold       bool
	release    bool
	returnFile bool
	toCreator  bool
}

// fileActions is the closed set of transitions PerformAction accepts. An
// action outside this table never mutates the file.
var fileActions = map[string]actionSpec{
	"approve":            {status: models.FileStatusApproved, routing: models.RoutingActionApproved},
	"reject":             {status: models.FileStatusRejected, routing: models.RoutingActionRejected},
	"return":             {status: models.FileStatusReturned, routing: models.RoutingActionReturnedToPrev, returnFile: true},
	"return_to_previous": {status: models.FileStatusReturned, routing: models.RoutingActionReturnedToPrev, returnFile: true},
	"return_to_host":     {status: models.FileStatusReturned, routing: models.RoutingActionReturnedToHost, returnFile: true, toCreator: true},
	"hold":               {routing: models.RoutingActionPutOnHold, hold: true},
	"release":            {routing: models.RoutingActionReleased, release: true},
}

// FileServiceConfig carries desk auto-creation knobs.
type FileServiceConfig struct {
	MaxFilesPerDay    int
	AutoCreateEnabled bool
}

// FileService drives the case-file state machine. Every mutation goes
// through the repository transaction that pairs the file update with its
// routing entry.
type FileService struct {
	files    fileStore
	desks    deskStore
	routing  routingLog
	users    adminDirectory
	calendar dueDateCalendar
	timer    fileTimer
	ledger   IncentiveLedger
	settings thresholds

	publisher Publisher
	logger    *zap.Logger
	cfg       FileServiceConfig
	now       func() time.Time
}

// FileServiceOption mutates construction-time wiring.
type FileServiceOption func(*FileService)

// WithFileClock overrides the wall clock, used by tests.
func WithFileClock(now func() time.Time) FileServiceOption {
	return func(s *FileService) {
		s.now = now
	}
}

// NewFileService constructs the file state machine service.
func NewFileService(
	files fileStore,
	desks deskStore,
	routing routingLog,
	users adminDirectory,
	calendar dueDateCalendar,
	timer fileTimer,
	ledger IncentiveLedger,
	settings thresholds,
	publisher Publisher,
	logger *zap.Logger,
	cfg FileServiceConfig,
	opts ...FileServiceOption,
) *FileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = NopPublisher{}
	}
	s := &FileService{
		files:     files,
		desks:     desks,
		routing:   routing,
		users:     users,
		calendar:  calendar,
		timer:     timer,
		ledger:    ledger,
		settings:  settings,
		publisher: publisher,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create registers a new case file, assigns it a sequential file number and a
// desk in the target division, and computes its due date from the allotted
// business days.
func (s *FileService) Create(ctx context.Context, req *dto.CreateFileRequest, actor *models.JWTClaims) (*models.File, error) {
	now := s.now()
	seq, err := s.files.NextSequence(ctx, req.DepartmentID, req.DivisionID, now.Year())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to allocate file number")
	}

	file := &models.File{
		FileNumber:        fmt.Sprintf("%s/%s/%d/%04d", req.DepartmentID, req.DivisionID, now.Year(), seq),
		Subject:           req.Subject,
		Description:       req.Description,
		Status:            models.FileStatusPending,
		Priority:          req.Priority,
		PriorityCategory:  req.PriorityCategory,
		CreatedByID:       actor.UserID,
		AssignedToID:      &actor.UserID,
		CurrentDivisionID: req.DivisionID,
		DepartmentID:      req.DepartmentID,
	}
	if file.Priority == "" {
		file.Priority = models.FilePriorityNormal
	}

	switch {
	case req.DueDate != nil:
		file.DueDate = req.DueDate
	case req.AllottedDays > 0:
		due, err := s.calendar.AddBusinessDays(ctx, now, req.AllottedDays)
		if err != nil {
			return nil, err
		}
		file.DueDate = &due
	}
	if file.DueDate != nil {
		allotted, err := s.calendar.BusinessSecondsBetween(ctx, now, *file.DueDate)
		if err != nil {
			return nil, err
		}
		file.AllottedTime = allotted
	}

	if err := s.assignDesk(ctx, file, now); err != nil {
		return nil, err
	}

	entry := &models.RoutingEntry{
		Action:     models.RoutingActionCreated,
		FromUserID: actor.UserID,
		ToUserID:   &actor.UserID,
	}
	if err := s.files.CreateWithEntry(ctx, file, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create file")
	}
	if file.DueDate != nil {
		if err := s.timer.UpdateTimeRemaining(ctx, file.ID); err != nil {
			s.logger.Warn("initial timer computation failed", zap.String("file_id", file.ID), zap.Error(err))
		}
	}
	return s.files.GetByID(ctx, file.ID)
}

// Forward moves a file to another holder and division, recording time spent
// at the current station in the routing entry.
func (s *FileService) Forward(ctx context.Context, fileID string, req *dto.ForwardFileRequest, actor *models.JWTClaims) (*models.File, error) {
	file, err := s.getForMutation(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if err := s.requireHolderOrAdmin(file, actor); err != nil {
		return nil, err
	}
	if file.IsOnHold {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "file is on hold; release it before forwarding")
	}

	now := s.now()
	entry := &models.RoutingEntry{
		Action:       models.RoutingActionForwarded,
		FromUserID:   actor.UserID,
		ToUserID:     &req.ToUserID,
		ToDivisionID: &req.ToDivisionID,
	}
	if req.Remarks != "" {
		entry.Remarks = &req.Remarks
	}
	if spent := s.timeSpentAtStation(ctx, fileID, now); spent != nil {
		entry.TimeSpentSeconds = spent
	}

	file.Status = models.FileStatusInProgress
	file.AssignedToID = &req.ToUserID
	file.CurrentDivisionID = req.ToDivisionID
	if err := s.assignDesk(ctx, file, now); err != nil {
		return nil, err
	}
	if err := s.files.Transition(ctx, file, entry); err != nil {
		return nil, s.transitionError(err)
	}

	s.publisher.Publish(models.NotificationEvent{
		UserID:  req.ToUserID,
		Type:    models.NotifyFileReceived,
		Title:   "File forwarded to you",
		Message: fmt.Sprintf("File %s is now at your desk.", file.FileNumber),
		FileID:  &file.ID,
	})
	return file, nil
}

// PerformAction applies a named transition from the closed action table.
// Unknown actions fail without touching the file.
func (s *FileService) PerformAction(ctx context.Context, fileID string, req *dto.FileActionRequest, actor *models.JWTClaims) (*models.File, error) {
	spec, ok := fileActions[req.Action]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("unknown action %q", req.Action))
	}

	file, err := s.getForMutation(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if err := s.requireHolderOrAdmin(file, actor); err != nil {
		return nil, err
	}

	now := s.now()
	switch {
	case spec.hold:
		if file.IsOnHold {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "file is already on hold")
		}
		file.IsOnHold = true
		file.Status = models.FileStatusOnHold
		if req.Remarks != "" {
			file.HoldReason = &req.Remarks
		}
	case spec.release:
		if !file.IsOnHold {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "file is not on hold")
		}
		file.IsOnHold = false
		file.Status = models.FileStatusInProgress
		file.HoldReason = nil
	default:
		if file.IsOnHold {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "file is on hold")
		}
		if file.Status != models.FileStatusPending && file.Status != models.FileStatusInProgress {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
				fmt.Sprintf("action %q not valid while file is %s", req.Action, file.Status))
		}
		file.Status = spec.status
	}

	var remaining int64
	if spec.routing == models.RoutingActionApproved && file.DueDate != nil {
		if rem, _, err := s.timer.CalculateTimeRemaining(ctx, file, now); err == nil && rem != nil {
			remaining = *rem
		}
	}

	if spec.returnFile {
		target := file.CreatedByID
		if !spec.toCreator {
			if prev := s.previousHolder(ctx, fileID, actor.UserID); prev != "" {
				target = prev
			}
		}
		file.AssignedToID = &target
	}

	entry := &models.RoutingEntry{
		Action:     spec.routing,
		FromUserID: actor.UserID,
		ToUserID:   file.AssignedToID,
	}
	if req.Remarks != "" {
		entry.Remarks = &req.Remarks
	}
	if spent := s.timeSpentAtStation(ctx, fileID, now); spent != nil {
		entry.TimeSpentSeconds = spent
	}

	// Releasing shifts the due date by the time the file sat on hold so the
	// clock does not run against a frozen file.
	var heldFor int64
	if spec.release {
		if latest, err := s.routing.Latest(ctx, fileID); err == nil && latest.Action == models.RoutingActionPutOnHold {
			heldFor = int64(now.Sub(latest.CreatedAt).Seconds())
		}
	}

	if err := s.files.Transition(ctx, file, entry); err != nil {
		return nil, s.transitionError(err)
	}

	if heldFor > 0 && file.DueDate != nil {
		if err := s.files.ApplyExtension(ctx, file.ID, heldFor); err != nil {
			s.logger.Warn("hold credit failed", zap.String("file_id", file.ID), zap.Error(err))
		} else if err := s.timer.UpdateTimeRemaining(ctx, file.ID); err != nil {
			s.logger.Warn("timer refresh after release failed", zap.String("file_id", file.ID), zap.Error(err))
		}
	}

	if spec.routing == models.RoutingActionApproved && remaining > 0 {
		if err := s.ledger.AwardCompletion(ctx, actor.UserID, file.ID, remaining); err != nil {
			s.logger.Warn("completion award failed", zap.String("file_id", file.ID), zap.Error(err))
		}
	}

	if spec.returnFile && file.AssignedToID != nil {
		s.publisher.Publish(models.NotificationEvent{
			UserID:  *file.AssignedToID,
			Type:    models.NotifyFileReceived,
			Title:   "File returned to you",
			Message: fmt.Sprintf("File %s has been returned.", file.FileNumber),
			FileID:  &file.ID,
		})
	}
	return s.files.GetByID(ctx, file.ID)
}

// Recall pulls a file out of circulation. Super admins only.
func (s *FileService) Recall(ctx context.Context, fileID, remarks string, actor *models.JWTClaims) (*models.File, error) {
	if actor.Role != models.RoleSuperAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only a super admin may recall a file")
	}
	file, err := s.getForMutation(ctx, fileID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	file.Status = models.FileStatusRecalled
	file.AssignedToID = nil
	file.IsClosed = true
	file.ClosedAt = &now

	entry := &models.RoutingEntry{
		Action:     models.RoutingActionRecalled,
		FromUserID: actor.UserID,
	}
	if remarks != "" {
		entry.Remarks = &remarks
	}
	if err := s.files.Transition(ctx, file, entry); err != nil {
		return nil, s.transitionError(err)
	}
	return file, nil
}

// Dispatch sends an approved file out of the office, closing it and recording
// the dispatch proof. Only dispatchers and administrators may dispatch.
func (s *FileService) Dispatch(ctx context.Context, fileID string, req *dto.DispatchFileRequest, actor *models.JWTClaims) (*models.File, error) {
	if actor.Role != models.RoleDispatcher && !actor.Role.IsAdministrative() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only dispatchers and administrators may dispatch files")
	}
	file, err := s.getForMutation(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file.Status != models.FileStatusApproved && file.Status != models.FileStatusInProgress {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "file is not in a dispatchable state")
	}
	if file.IsOnHold {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "file is on hold")
	}

	now := s.now()
	proof := &models.DispatchProof{
		FileID:       file.ID,
		DispatchedBy: actor.UserID,
		Method:       req.Method,
		ProofDocs:    req.ProofDocs,
	}
	if req.TrackingInfo != "" {
		proof.TrackingInfo = &req.TrackingInfo
	}
	if err := s.files.CreateDispatchProof(ctx, proof); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record dispatch proof")
	}

	file.Status = models.FileStatusApproved
	file.IsClosed = true
	file.ClosedAt = &now
	file.AssignedToID = nil
	entry := &models.RoutingEntry{
		Action:     models.RoutingActionDispatched,
		FromUserID: actor.UserID,
	}
	if err := s.files.Transition(ctx, file, entry); err != nil {
		return nil, s.transitionError(err)
	}

	s.publisher.Publish(models.NotificationEvent{
		UserID:  file.CreatedByID,
		Type:    models.NotifyFileDispatched,
		Title:   "File dispatched",
		Message: fmt.Sprintf("File %s has been dispatched via %s.", file.FileNumber, req.Method),
		FileID:  &file.ID,
	})
	s.notifyAdmins(ctx, file, models.NotifyAdminDispatch, "File dispatched",
		fmt.Sprintf("File %s was dispatched by %s.", file.FileNumber, actor.FullName))
	return file, nil
}

// Get returns a file by ID.
func (s *FileService) Get(ctx context.Context, fileID string) (*models.File, error) {
	file, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load file")
	}
	return file, nil
}

// List returns files matching the filter plus the total count.
func (s *FileService) List(ctx context.Context, query *dto.FileQuery) ([]models.File, int, error) {
	filter := models.FileFilter{
		Statuses:     query.Statuses,
		DivisionID:   query.DivisionID,
		DepartmentID: query.DepartmentID,
		AssignedToID: query.AssignedToID,
		RedListed:    query.RedListed,
		Page:         query.Page,
		PageSize:     query.PageSize,
	}
	return s.files.List(ctx, filter)
}

// History returns the full routing trail for a file.
func (s *FileService) History(ctx context.Context, fileID string) ([]models.RoutingEntry, error) {
	if _, err := s.Get(ctx, fileID); err != nil {
		return nil, err
	}
	return s.routing.ListByFile(ctx, fileID)
}

func (s *FileService) getForMutation(ctx context.Context, fileID string) (*models.File, error) {
	file, err := s.Get(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file.IsClosed {
		return nil, appErrors.Clone(appErrors.ErrFileClosed, "")
	}
	return file, nil
}

func (s *FileService) requireHolderOrAdmin(file *models.File, actor *models.JWTClaims) error {
	if actor.Role.IsAdministrative() {
		return nil
	}
	if file.AssignedToID == nil || *file.AssignedToID != actor.UserID {
		return appErrors.Clone(appErrors.ErrForbidden, "file is not at your desk")
	}
	return nil
}

// assignDesk picks the least-loaded desk in the division, auto-creating an
// overflow desk when every desk is at its daily cap.
func (s *FileService) assignDesk(ctx context.Context, file *models.File, day time.Time) error {
	desk, err := s.desks.PickAvailable(ctx, file.CurrentDivisionID, day)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to pick desk")
		}
		if !s.cfg.AutoCreateEnabled {
			return appErrors.Clone(appErrors.ErrDeskAtCapacity, "")
		}
		existing, err := s.desks.ListByDivision(ctx, file.CurrentDivisionID, day)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list desks")
		}
		desk = &models.Desk{
			Name:           fmt.Sprintf("Overflow Desk %d", len(existing)+1),
			DivisionID:     file.CurrentDivisionID,
			MaxFilesPerDay: s.cfg.MaxFilesPerDay,
			AutoCreated:    true,
			Active:         true,
		}
		if err := s.desks.Create(ctx, desk); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to auto-create desk")
		}
		s.logger.Info("auto-created overflow desk",
			zap.String("division_id", file.CurrentDivisionID),
			zap.String("desk_id", desk.ID))
	}
	file.DeskID = &desk.ID

	// The desk clock gives the holder a short window at each station,
	// independent of the file's own due date.
	deskHours := s.settings.Int(ctx, SettingOptimumHours)
	if deskHours > 0 {
		deskDue := day.Add(time.Duration(deskHours) * time.Hour)
		file.DeskDueDate = &deskDue
	}
	return nil
}

// timeSpentAtStation measures wall-clock seconds since the last routing
// entry. Nil when the trail is empty or unreadable.
func (s *FileService) timeSpentAtStation(ctx context.Context, fileID string, now time.Time) *int64 {
	latest, err := s.routing.Latest(ctx, fileID)
	if err != nil {
		return nil
	}
	spent := int64(now.Sub(latest.CreatedAt).Seconds())
	if spent < 0 {
		spent = 0
	}
	return &spent
}

// previousHolder finds who last sent the file to the current actor.
func (s *FileService) previousHolder(ctx context.Context, fileID, currentUserID string) string {
	entries, err := s.routing.ListByFile(ctx, fileID)
	if err != nil {
		return ""
	}
	// Entries are newest-first; the most recent forward to the current
	// holder names the sender.
	for _, entry := range entries {
		if entry.ToUserID != nil && *entry.ToUserID == currentUserID && entry.FromUserID != currentUserID {
			return entry.FromUserID
		}
	}
	return ""
}

func (s *FileService) notifyAdmins(ctx context.Context, file *models.File, kind models.NotificationType, title, message string) {
	admins, err := s.users.ListAdminsByDepartment(ctx, file.DepartmentID)
	if err != nil {
		s.logger.Warn("admin lookup failed", zap.String("department_id", file.DepartmentID), zap.Error(err))
		return
	}
	for _, admin := range admins {
		s.publisher.Publish(models.NotificationEvent{
			UserID:  admin.ID,
			Type:    kind,
			Title:   title,
			Message: message,
			FileID:  &file.ID,
		})
	}
}

func (s *FileService) transitionError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "file not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply transition")
}
