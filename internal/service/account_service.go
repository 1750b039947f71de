package service

import (
	"context"

	"github.com/certivox/certivox-backend/internal/model"
	"github.com/certivox/certivox-backend/internal/repository"
)

// TraineeService handles trainee account lookups.
type TraineeService struct {
	repo *repository.TraineeRepository
}

// NewTraineeService creates a new TraineeService.
func NewTraineeService(repo *repository.TraineeRepository) *TraineeService {
	return &TraineeService{repo: repo}
}

func (s *TraineeService) GetByID(ctx context.Context, id int) (*model.Trainee, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *TraineeService) GetByEmail(ctx context.Context, email string) (*model.Trainee, error) {
	return s.repo.GetByEmail(ctx, email)
}

func (s *TraineeService) Create(ctx context.Context, t *model.Trainee) error {
	return s.repo.Create(ctx, t)
}

// AdminService handles admin account lookups.
type AdminService struct {
	repo *repository.AdminRepository
}

// NewAdminService creates a new AdminService.
func NewAdminService(repo *repository.AdminRepository) *AdminService {
	return &AdminService{repo: repo}
}

func (s *AdminService) GetByID(ctx context.Context, id int) (*model.Admin, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *AdminService) GetByEmail(ctx context.Context, email string) (*model.Admin, error) {
	return s.repo.GetByEmail(ctx, email)
}
