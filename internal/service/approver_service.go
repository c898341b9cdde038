package service

import (
	"context"
	"strings"

	"github.com/pumperp/be-task-approvals/internal/errors"
	"github.com/pumperp/be-task-approvals/internal/logger"
	"github.com/pumperp/be-task-approvals/internal/workflow"
)

// ApproverAdminStore is the full binding store used by chain administration.
type ApproverAdminStore interface {
	ApproverStore
	List(ctx context.Context) ([]*workflow.Approver, error)
	GetByID(ctx context.Context, id string) (*workflow.Approver, error)
	Create(ctx context.Context, a *workflow.Approver) error
	Update(ctx context.Context, a *workflow.Approver) error
	Deactivate(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// ApproverService administers the global approval chain.
type ApproverService struct {
	approvers ApproverAdminStore
	log       *logger.Logger
}

// NewApproverService creates a new ApproverService.
func NewApproverService(approvers ApproverAdminStore, log *logger.Logger) *ApproverService {
	return &ApproverService{approvers: approvers, log: log}
}

// ApproverRequest represents a create/update binding request.
type ApproverRequest struct {
	UserID      string `json:"userId"`
	UserType    string `json:"userType"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	Level       int    `json:"level"`
	IsActive    *bool  `json:"isActive"`
	CanOverride bool   `json:"canOverride"`
}

func (r *ApproverRequest) validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return errors.InvalidInput("user_id", "user id is required")
	}
	if strings.TrimSpace(r.UserType) == "" {
		return errors.InvalidInput("user_type", "user type is required")
	}
	if r.Level < workflow.LevelFirst || r.Level > workflow.LevelMax {
		return errors.InvalidInput("level", "level must be between 1 and 4")
	}
	return nil
}

// List returns every binding in the chain, soft-deleted ones included.
func (s *ApproverService) List(ctx context.Context) ([]*workflow.Approver, error) {
	return s.approvers.List(ctx)
}

// ListActive returns the chain the engine consults.
func (s *ApproverService) ListActive(ctx context.Context) ([]*workflow.Approver, error) {
	return s.approvers.ListActive(ctx)
}

// Create adds a binding. The role label defaults to the ladder role for the
// level when omitted.
func (s *ApproverService) Create(ctx context.Context, req *ApproverRequest) (*workflow.Approver, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	role := req.Role
	if role == "" {
		role = workflow.RoleAtLevel(req.Level)
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	a := &workflow.Approver{
		UserID:      req.UserID,
		UserType:    req.UserType,
		Name:        req.Name,
		Email:       req.Email,
		Role:        role,
		Level:       req.Level,
		IsActive:    active,
		CanOverride: req.CanOverride,
	}
	if err := s.approvers.Create(ctx, a); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("approver_id", a.ID).
		Str("user_id", a.UserID).
		Int("level", a.Level).
		Str("role", a.Role).
		Msg("Approver binding created")

	return a, nil
}

// Update rewrites an existing binding.
func (s *ApproverService) Update(ctx context.Context, id string, req *ApproverRequest) (*workflow.Approver, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	a, err := s.approvers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	a.UserID = req.UserID
	a.UserType = req.UserType
	a.Name = req.Name
	a.Email = req.Email
	a.Level = req.Level
	a.CanOverride = req.CanOverride
	if req.Role != "" {
		a.Role = req.Role
	}
	if req.IsActive != nil {
		a.IsActive = *req.IsActive
	}

	if err := s.approvers.Update(ctx, a); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("approver_id", a.ID).
		Int("level", a.Level).
		Bool("is_active", a.IsActive).
		Msg("Approver binding updated")

	return a, nil
}

// Remove soft-deletes a binding by default; hard removes the row when asked.
func (s *ApproverService) Remove(ctx context.Context, id string, hard bool) error {
	var err error
	if hard {
		err = s.approvers.Delete(ctx, id)
	} else {
		err = s.approvers.Deactivate(ctx, id)
	}
	if err != nil {
		return err
	}

	s.log.Info().
		Str("approver_id", id).
		Bool("hard", hard).
		Msg("Approver binding removed")

	return nil
}
