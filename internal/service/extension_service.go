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

type extensionStore interface {
	Create(ctx context.Context, req *models.ExtensionRequest) error
	GetByID(ctx context.Context, id string) (*models.ExtensionRequest, error)
	ListPendingForApprover(ctx context.Context, approverID string) ([]models.ExtensionRequest, error)
	ListByFile(ctx context.Context, fileID string) ([]models.ExtensionRequest, error)
	Resolve(ctx context.Context, id string, status models.ExtensionStatus, resolvedBy string, remarks *string, at time.Time) (bool, error)
}

type extensionFileStore interface {
	GetByID(ctx context.Context, id string) (*models.File, error)
	ApplyExtension(ctx context.Context, id string, deltaSeconds int64) error
}

type approverResolver interface {
	LatestAddressedTo(ctx context.Context, fileID, toUserID string) (*models.RoutingEntry, error)
	Create(ctx context.Context, entry *models.RoutingEntry) error
}

// ExtensionService runs the time-extension workflow: holders request more
// days, the upstream sender (or an administrator) approves or denies, and an
// approval pushes the file's due date out.
type ExtensionService struct {
	extensions extensionStore
	files      extensionFileStore
	routing    approverResolver
	users      adminDirectory
	timer      fileTimer

	publisher Publisher
	logger    *zap.Logger
	now       func() time.Time
}

// ExtensionServiceOption mutates construction-time wiring.
type ExtensionServiceOption func(*ExtensionService)

// WithExtensionClock overrides the wall clock, used by tests.
func WithExtensionClock(now func() time.Time) ExtensionServiceOption {
	return func(s *ExtensionService) {
		s.now = now
	}
}

// NewExtensionService constructs the extension workflow service.
func NewExtensionService(
	extensions extensionStore,
	files extensionFileStore,
	routing approverResolver,
	users adminDirectory,
	timer fileTimer,
	publisher Publisher,
	logger *zap.Logger,
	opts ...ExtensionServiceOption,
) *ExtensionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = NopPublisher{}
	}
	s := &ExtensionService{
		extensions: extensions,
		files:      files,
		routing:    routing,
		users:      users,
		timer:      timer,
		publisher:  publisher,
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RequestExtraTime files an extension request. Only the current holder may
// ask; the approver is whoever last forwarded the file to them, falling back
// to the file's creator when the holder is the first station.
func (s *ExtensionService) RequestExtraTime(ctx context.Context, fileID string, req *dto.RequestExtensionRequest, actor *models.JWTClaims) (*models.ExtensionRequest, error) {
	file, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load file")
	}
	if file.IsClosed {
		return nil, appErrors.Clone(appErrors.ErrFileClosed, "")
	}
	if file.AssignedToID == nil || *file.AssignedToID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the current holder may request extra time")
	}
	if file.DueDate == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file has no due date to extend")
	}

	approverID := file.CreatedByID
	if entry, err := s.routing.LatestAddressedTo(ctx, fileID, actor.UserID); err == nil && entry.FromUserID != actor.UserID {
		approverID = entry.FromUserID
	}

	request := &models.ExtensionRequest{
		FileID:         fileID,
		RequestedByID:  actor.UserID,
		ApproverID:     approverID,
		Reason:         req.Reason,
		AdditionalTime: int64(req.AdditionalDays) * 86400,
	}
	if err := s.extensions.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create extension request")
	}

	s.publisher.Publish(models.NotificationEvent{
		UserID:  approverID,
		Type:    models.NotifyExtensionRequest,
		Title:   "Extension requested",
		Message: fmt.Sprintf("%s requested %d extra day(s) on file %s.", actor.FullName, req.AdditionalDays, file.FileNumber),
		FileID:  &fileID,
	})
	s.notifyAdmins(ctx, file, models.NotifyAdminExtension, "Extension requested",
		fmt.Sprintf("Extension of %d day(s) requested on file %s.", req.AdditionalDays, file.FileNumber))
	return request, nil
}

// ResolveExtension approves or denies a pending request. The status-guarded
// update makes resolution one-shot: a second resolver gets ErrAlreadyResolved
// and the due date moves at most once.
func (s *ExtensionService) ResolveExtension(ctx context.Context, requestID string, req *dto.ResolveExtensionRequest, actor *models.JWTClaims) (*models.ExtensionRequest, error) {
	request, err := s.extensions.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "extension request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load extension request")
	}
	if request.ApproverID != actor.UserID && !actor.Role.IsAdministrative() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the approver or an administrator may resolve this request")
	}

	status := models.ExtensionStatusDenied
	if req.Approve {
		status = models.ExtensionStatusApproved
	}
	var remarks *string
	if req.Remarks != "" {
		remarks = &req.Remarks
	}

	now := s.now()
	resolved, err := s.extensions.Resolve(ctx, requestID, status, actor.UserID, remarks, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve extension request")
	}
	if !resolved {
		return nil, appErrors.Clone(appErrors.ErrAlreadyResolved, "")
	}

	if status == models.ExtensionStatusApproved {
		if err := s.files.ApplyExtension(ctx, request.FileID, request.AdditionalTime); err != nil {
			// The resolution is committed; the due-date shift is retried by
			// hand if this ever fires.
			s.logger.Error("due date extension failed after approval",
				zap.String("request_id", requestID),
				zap.String("file_id", request.FileID),
				zap.Error(err))
		} else if err := s.timer.UpdateTimeRemaining(ctx, request.FileID); err != nil {
			s.logger.Warn("timer refresh after extension failed", zap.String("file_id", request.FileID), zap.Error(err))
		}
		entry := &models.RoutingEntry{
			FileID:     request.FileID,
			Action:     models.RoutingActionExtensionGranted,
			FromUserID: actor.UserID,
			ToUserID:   &request.RequestedByID,
			Remarks:    remarks,
		}
		if err := s.routing.Create(ctx, entry); err != nil {
			s.logger.Warn("extension grant audit entry failed", zap.String("file_id", request.FileID), zap.Error(err))
		}
	}

	kind := models.NotifyExtensionDenied
	title := "Extension denied"
	if status == models.ExtensionStatusApproved {
		kind = models.NotifyExtensionApproved
		title = "Extension approved"
	}
	s.publisher.Publish(models.NotificationEvent{
		UserID:  request.RequestedByID,
		Type:    kind,
		Title:   title,
		Message: fmt.Sprintf("Your extension request was %s.", status),
		FileID:  &request.FileID,
	})

	if file, err := s.files.GetByID(ctx, request.FileID); err != nil {
		s.logger.Warn("file lookup for admin notification failed", zap.String("file_id", request.FileID), zap.Error(err))
	} else {
		s.notifyAdmins(ctx, file, models.NotifyAdminExtension, title,
			fmt.Sprintf("Extension request on file %s was %s.", file.FileNumber, status))
	}

	return s.extensions.GetByID(ctx, requestID)
}

// PendingForApprover lists requests awaiting the given approver.
func (s *ExtensionService) PendingForApprover(ctx context.Context, approverID string) ([]models.ExtensionRequest, error) {
	return s.extensions.ListPendingForApprover(ctx, approverID)
}

// ListByFile returns every extension request filed against a file.
func (s *ExtensionService) ListByFile(ctx context.Context, fileID string) ([]models.ExtensionRequest, error) {
	return s.extensions.ListByFile(ctx, fileID)
}

func (s *ExtensionService) notifyAdmins(ctx context.Context, file *models.File, kind models.NotificationType, title, message string) {
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
