package cached

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"usuarios-service/internal/adapter/cache"
	domain "usuarios-service/internal/domain/user"
	"usuarios-service/internal/usecase/user"
)

// UserRepository implements user.Repository with caching support.
// It wraps a persistent repository (DB) and a cache implementation.
// Only FindByID is served from cache; writes invalidate the entry.
type UserRepository struct {
	dbRepo user.Repository
	cache  cache.UserCache
	log    *zap.Logger
	group  singleflight.Group
}

// lookup is the shared result of a single-flight FindByID.
type lookup struct {
	user  domain.User
	found bool
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(dbRepo user.Repository, cache cache.UserCache, log *zap.Logger) *UserRepository {
	return &UserRepository{
		dbRepo: dbRepo,
		cache:  cache,
		log:    log,
	}
}

// FindAll delegates to the DB repository.
func (r *UserRepository) FindAll(ctx context.Context) ([]domain.User, error) {
	return r.dbRepo.FindAll(ctx)
}

// FindByID retrieves a user by ID using Cache-Aside pattern.
func (r *UserRepository) FindByID(ctx context.Context, id int64) (domain.User, bool, error) {
	if cachedUser, err := r.cache.Get(ctx, id); err != nil {
		r.log.Warn("cache get error, falling back to database", zap.Int64("id", id), zap.Error(err))
	} else if cachedUser != nil {
		return *cachedUser, true, nil
	}

	// Cache miss - use single-flight to prevent stampede. The load is shared
	// by every waiter, so one caller canceling must not fail it for the rest.
	loadCtx := context.WithoutCancel(ctx)
	result, err, _ := r.group.Do(cache.Key(id), func() (any, error) {
		u, found, err := r.dbRepo.FindByID(loadCtx, id)
		if err != nil || !found {
			return lookup{}, err
		}

		if err := r.cache.Set(loadCtx, &u); err != nil {
			r.log.Warn("failed to cache user", zap.Int64("id", id), zap.Error(err))
		}
		return lookup{user: u, found: true}, nil
	})
	if err != nil {
		return domain.User{}, false, err
	}

	res := result.(lookup)
	return res.user, res.found, nil
}

// FindByEmail delegates to the DB repository.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (domain.User, bool, error) {
	return r.dbRepo.FindByEmail(ctx, email)
}

// FindByCPF delegates to the DB repository.
func (r *UserRepository) FindByCPF(ctx context.Context, cpf string) (domain.User, bool, error) {
	return r.dbRepo.FindByCPF(ctx, cpf)
}

// ExistsByID delegates to the DB repository.
func (r *UserRepository) ExistsByID(ctx context.Context, id int64) (bool, error) {
	return r.dbRepo.ExistsByID(ctx, id)
}

// Save persists the user in DB and invalidates its cache entry.
func (r *UserRepository) Save(ctx context.Context, u domain.User) (domain.User, error) {
	saved, err := r.dbRepo.Save(ctx, u)
	if err != nil {
		return domain.User{}, err
	}

	r.invalidate(ctx, saved.ID)
	return saved, nil
}

// DeleteByID deletes the user from DB and invalidates the cache.
func (r *UserRepository) DeleteByID(ctx context.Context, id int64) error {
	if err := r.dbRepo.DeleteByID(ctx, id); err != nil {
		return err
	}

	r.invalidate(ctx, id)
	return nil
}

func (r *UserRepository) invalidate(ctx context.Context, id int64) {
	if err := r.cache.Delete(ctx, id); err != nil {
		r.log.Warn("failed to invalidate cache", zap.Int64("id", id), zap.Error(err))
	}
}
