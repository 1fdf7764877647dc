// internal/service/marketer_service.go
package service

import (
	"context"
	"strings"

	appErrors "github.com/ipriyanshu25/fluentcrm-backend/internal/errors"
	"github.com/ipriyanshu25/fluentcrm-backend/internal/logger"
	"github.com/ipriyanshu25/fluentcrm-backend/internal/model"
	"github.com/ipriyanshu25/fluentcrm-backend/internal/repository"
)

// MarketerService is the slice of the marketer directory the send path
// depends on: approval state and the assigned credential.
type MarketerService struct {
	MarketerRepo repository.MarketerRepositoryInterface
}

func (s *MarketerService) AssignCredential(ctx context.Context, marketerID, credentialID string) (*model.Marketer, error) {
	if strings.TrimSpace(credentialID) == "" {
		return nil, appErrors.Validation("credentialId is required")
	}
	if err := s.MarketerRepo.AssignCredential(ctx, marketerID, credentialID); err != nil {
		return nil, err
	}
	logger.Info("credential assigned", "marketer_id", marketerID, "credential_id", credentialID)
	return s.MarketerRepo.GetByID(ctx, marketerID)
}

func (s *MarketerService) SetApproval(ctx context.Context, marketerID string, status model.ApprovalStatus) (*model.Marketer, error) {
	status = model.ApprovalStatus(strings.ToUpper(strings.TrimSpace(string(status))))
	if !status.Valid() {
		return nil, appErrors.Validation("approval status must be PENDING, APPROVED or REJECTED")
	}
	if err := s.MarketerRepo.SetApproval(ctx, marketerID, status); err != nil {
		return nil, err
	}
	logger.Info("marketer approval changed", "marketer_id", marketerID, "status", string(status))
	return s.MarketerRepo.GetByID(ctx, marketerID)
}
