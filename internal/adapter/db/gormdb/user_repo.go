package gormdb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"usuarios-service/internal/domain/user"
	pkgerrors "usuarios-service/pkg/errors"
)

// UserRepo implements the user Repository on top of GORM.
type UserRepo struct {
	db  *gorm.DB    // GORM database connection
	log *zap.Logger // Structured logger for database operations
}

// NewUserRepo creates a new instance of UserRepo.
func NewUserRepo(db *gorm.DB, log *zap.Logger) *UserRepo {
	return &UserRepo{db: db, log: log}
}

// UserSchema represents the database schema for the usuarios table.
// The unique indexes back the email/cpf checks done by the usecase.
type UserSchema struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"size:255"`
	Email     string `gorm:"size:255;not null;uniqueIndex:idx_usuarios_email"`
	CPF       string `gorm:"column:cpf;size:32;not null;uniqueIndex:idx_usuarios_cpf"`
	BirthDate Date   `gorm:"column:birth_date;type:date"`
}

// TableName specifies the table name for the UserSchema model.
func (UserSchema) TableName() string {
	return "usuarios"
}

func toSchema(u user.User) UserSchema {
	return UserSchema{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CPF:       u.CPF,
		BirthDate: Date(user.Truncate(u.BirthDate)),
	}
}

func (m UserSchema) toDomain() user.User {
	return user.User{
		ID:        m.ID,
		Name:      m.Name,
		Email:     m.Email,
		CPF:       m.CPF,
		BirthDate: user.Truncate(time.Time(m.BirthDate)),
	}
}

// FindAll returns every user ordered by id.
func (r *UserRepo) FindAll(ctx context.Context) ([]user.User, error) {
	var models []UserSchema
	if err := r.db.WithContext(ctx).Order("id").Find(&models).Error; err != nil {
		r.log.Error("failed to list users from db", zap.Error(err))
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	users := make([]user.User, len(models))
	for i, model := range models {
		users[i] = model.toDomain()
	}
	return users, nil
}

// FindByID retrieves a user by its unique ID.
func (r *UserRepo) FindByID(ctx context.Context, id int64) (user.User, bool, error) {
	return r.first(ctx, "id = ?", id)
}

// FindByEmail retrieves a user by email address.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (user.User, bool, error) {
	return r.first(ctx, "email = ?", email)
}

// FindByCPF retrieves a user by cpf.
func (r *UserRepo) FindByCPF(ctx context.Context, cpf string) (user.User, bool, error) {
	return r.first(ctx, "cpf = ?", cpf)
}

func (r *UserRepo) first(ctx context.Context, query string, arg any) (user.User, bool, error) {
	var model UserSchema
	if err := r.db.WithContext(ctx).Where(query, arg).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return user.User{}, false, nil
		}
		r.log.Error("failed to get user from db", zap.String("where", query), zap.Error(err))
		return user.User{}, false, fmt.Errorf("failed to get user: %w", err)
	}
	return model.toDomain(), true, nil
}

// ExistsByID reports whether a user with the given ID exists.
func (r *UserRepo) ExistsByID(ctx context.Context, id int64) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&UserSchema{}).Where("id = ?", id).Count(&count).Error; err != nil {
		r.log.Error("failed to check user existence", zap.Int64("id", id), zap.Error(err))
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return count > 0, nil
}

// Save inserts the user when its ID is zero and replaces every column otherwise.
// A unique index violation is reported as an AlreadyExistsError.
func (r *UserRepo) Save(ctx context.Context, u user.User) (user.User, error) {
	model := toSchema(u)

	if err := r.db.WithContext(ctx).Save(&model).Error; err != nil {
		if isDuplicateKey(err) {
			r.log.Warn("unique constraint violated", zap.Int64("id", u.ID), zap.Error(err))
			return user.User{}, pkgerrors.NewAlreadyExistsError("user", "email or cpf already exists")
		}
		r.log.Error("failed to save user in db", zap.Int64("id", u.ID), zap.Error(err))
		return user.User{}, fmt.Errorf("failed to save user: %w", err)
	}

	r.log.Info("user saved in db", zap.Int64("id", model.ID))
	return model.toDomain(), nil
}

// DeleteByID removes a user by ID.
func (r *UserRepo) DeleteByID(ctx context.Context, id int64) error {
	if err := r.db.WithContext(ctx).Delete(&UserSchema{}, id).Error; err != nil {
		r.log.Error("failed to delete user in db", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete user: %w", err)
	}

	r.log.Info("user deleted in db", zap.Int64("id", id))
	return nil
}

// isDuplicateKey detects unique violations. Dialects with error translation
// return gorm.ErrDuplicatedKey; the message check covers the others.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key") || strings.Contains(msg, "duplicate entry")
}
