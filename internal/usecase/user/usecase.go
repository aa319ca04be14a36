package user

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	domain "usuarios-service/internal/domain/user"
	pkgerrors "usuarios-service/pkg/errors"
	"usuarios-service/pkg/logger"
)

// Repository defines the interface for user data access operations.
// Lookups return the record plus a presence flag; a missing record is not an error.
type Repository interface {
	FindAll(ctx context.Context) ([]domain.User, error)                       // Full scan in storage order
	FindByID(ctx context.Context, id int64) (domain.User, bool, error)        // Exact match on id
	FindByEmail(ctx context.Context, email string) (domain.User, bool, error) // Exact match on email
	FindByCPF(ctx context.Context, cpf string) (domain.User, bool, error)     // Exact match on cpf
	ExistsByID(ctx context.Context, id int64) (bool, error)                   // Existence check by id
	Save(ctx context.Context, u domain.User) (domain.User, error)             // Insert when ID is zero, full replacement otherwise
	DeleteByID(ctx context.Context, id int64) error                           // Delete by id
}

// Service implements Usecase on top of a Repository.
// The uniqueness checks are check-then-act; the storage unique indexes catch the race.
type Service struct {
	repo Repository  // Repository for data access
	log  *zap.Logger // Logger for structured logging
}

var _ Usecase = (*Service)(nil)

// New creates a new instance of Service with the provided repository and logger.
func New(r Repository, log *zap.Logger) *Service {
	return &Service{repo: r, log: log}
}

// CreateUser persists a new user unless its email or cpf is already taken.
func (uc *Service) CreateUser(ctx context.Context, in CreateUserRequest) (*User, error) {
	log := logger.WithContext(ctx, uc.log)
	log.Info("creating user", zap.String("email", in.Email))

	if _, found, err := uc.repo.FindByEmail(ctx, in.Email); err != nil {
		log.Error("failed to check existing email", zap.String("email", in.Email), zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to validate email uniqueness", err)
	} else if found {
		log.Warn("email already exists", zap.String("email", in.Email))
		return nil, pkgerrors.NewAlreadyExistsError("user", "email already exists")
	}

	if _, found, err := uc.repo.FindByCPF(ctx, in.CPF); err != nil {
		log.Error("failed to check existing cpf", zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to validate cpf uniqueness", err)
	} else if found {
		log.Warn("cpf already exists")
		return nil, pkgerrors.NewAlreadyExistsError("user", "cpf already exists")
	}

	saved, err := uc.repo.Save(ctx, domain.User{
		Name:      in.Name,
		Email:     in.Email,
		CPF:       in.CPF,
		BirthDate: domain.Truncate(in.BirthDate),
	})
	if err != nil {
		log.Error("failed to create user", zap.Error(err))
		return nil, err
	}

	out := toDTO(saved)
	return &out, nil
}

// ListUsers returns every user in storage order.
func (uc *Service) ListUsers(ctx context.Context) (*ListUsersResponse, error) {
	log := logger.WithContext(ctx, uc.log)

	users, err := uc.repo.FindAll(ctx)
	if err != nil {
		log.Error("failed to list users", zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to list users", err)
	}

	log.Debug("listed users", zap.Int("count", len(users)))
	return &ListUsersResponse{Users: toDTOs(users)}, nil
}

// GetUser retrieves a user by ID.
func (uc *Service) GetUser(ctx context.Context, in GetUserRequest) (*User, error) {
	log := logger.WithContext(ctx, uc.log)

	u, found, err := uc.repo.FindByID(ctx, in.ID)
	if err != nil {
		log.Error("failed to get user", zap.Int64("id", in.ID), zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to get user", err)
	}
	if !found {
		log.Debug("user not found", zap.Int64("id", in.ID))
		return nil, pkgerrors.NewNotFoundError("user", fmt.Sprintf("user not found: id=%d", in.ID))
	}

	out := toDTO(u)
	return &out, nil
}

// DeleteUser removes a user by ID.
func (uc *Service) DeleteUser(ctx context.Context, in DeleteUserRequest) error {
	log := logger.WithContext(ctx, uc.log)
	log.Info("deleting user", zap.Int64("id", in.ID))

	exists, err := uc.repo.ExistsByID(ctx, in.ID)
	if err != nil {
		log.Error("failed to check user existence", zap.Int64("id", in.ID), zap.Error(err))
		return pkgerrors.NewInternalError("failed to delete user", err)
	}
	if !exists {
		log.Warn("delete of unknown user", zap.Int64("id", in.ID))
		return pkgerrors.NewNotFoundError("user", fmt.Sprintf("user not found: id=%d", in.ID))
	}

	if err := uc.repo.DeleteByID(ctx, in.ID); err != nil {
		log.Error("failed to delete user", zap.Int64("id", in.ID), zap.Error(err))
		return pkgerrors.NewInternalError("failed to delete user", err)
	}
	return nil
}

// FilterUsersByBirthDate returns users born strictly after the given date,
// in the same order as ListUsers. A malformed date is returned as a plain
// error and surfaces as an internal error.
func (uc *Service) FilterUsersByBirthDate(ctx context.Context, in FilterUsersRequest) (*ListUsersResponse, error) {
	log := logger.WithContext(ctx, uc.log)

	pivot, err := domain.ParseDate(in.BornAfter)
	if err != nil {
		log.Error("failed to parse birth date filter", zap.String("nascimento", in.BornAfter), zap.Error(err))
		return nil, err
	}

	users, err := uc.repo.FindAll(ctx)
	if err != nil {
		log.Error("failed to list users for filter", zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to filter users", err)
	}

	filtered := make([]domain.User, 0, len(users))
	for _, u := range users {
		if u.BornAfter(pivot) {
			filtered = append(filtered, u)
		}
	}

	log.Debug("filtered users by birth date",
		zap.String("born_after", domain.FormatDate(pivot)),
		zap.Int("total", len(users)),
		zap.Int("matched", len(filtered)),
	)
	return &ListUsersResponse{Users: toDTOs(filtered)}, nil
}

// UpdateUser replaces the user at in.ID. Email and cpf may repeat the user's own
// current values but must not belong to any other user.
func (uc *Service) UpdateUser(ctx context.Context, in UpdateUserRequest) (*User, error) {
	log := logger.WithContext(ctx, uc.log)
	log.Info("updating user", zap.Int64("id", in.ID), zap.String("email", in.Email))

	exists, err := uc.repo.ExistsByID(ctx, in.ID)
	if err != nil {
		log.Error("failed to check user existence", zap.Int64("id", in.ID), zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to update user", err)
	}
	if !exists {
		log.Warn("update of unknown user", zap.Int64("id", in.ID))
		return nil, pkgerrors.NewNotFoundError("user", fmt.Sprintf("user not found: id=%d", in.ID))
	}

	existing, found, err := uc.repo.FindByEmail(ctx, in.Email)
	if err != nil {
		log.Error("failed to check existing email", zap.String("email", in.Email), zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to validate email uniqueness", err)
	}
	if found && existing.ID != in.ID {
		log.Warn("email already exists", zap.String("email", in.Email), zap.Int64("existing_id", existing.ID))
		return nil, pkgerrors.NewAlreadyExistsError("user", "email already exists")
	}

	existing, found, err = uc.repo.FindByCPF(ctx, in.CPF)
	if err != nil {
		log.Error("failed to check existing cpf", zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to validate cpf uniqueness", err)
	}
	if found && existing.ID != in.ID {
		log.Warn("cpf already exists", zap.Int64("existing_id", existing.ID))
		return nil, pkgerrors.NewAlreadyExistsError("user", "cpf already exists")
	}

	saved, err := uc.repo.Save(ctx, domain.User{
		ID:        in.ID,
		Name:      in.Name,
		Email:     in.Email,
		CPF:       in.CPF,
		BirthDate: domain.Truncate(in.BirthDate),
	})
	if err != nil {
		log.Error("failed to update user", zap.Int64("id", in.ID), zap.Error(err))
		return nil, err
	}

	out := toDTO(saved)
	return &out, nil
}
