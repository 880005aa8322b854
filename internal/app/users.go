package app

import (
	"context"
	"fmt"
	"strings"

	"postwall/internal/domain"
	"postwall/internal/store"
)

// CreateUser validates and stores a new user.
func (a *App) CreateUser(ctx context.Context, u domain.User) (domain.User, error) {
	if !strings.Contains(u.Email, "@") {
		return domain.User{}, fmt.Errorf("%w: valid email required", ErrValidation)
	}
	if _, exists, err := a.store.GetUserByEmail(u.Email); err != nil {
		return domain.User{}, err
	} else if exists {
		return domain.User{}, fmt.Errorf("%w: email already registered", ErrConflict)
	}
	created, err := a.store.CreateUser(u)
	if err != nil {
		return domain.User{}, conflictErr(err)
	}
	return created, nil
}

// UserByID returns one user.
func (a *App) UserByID(ctx context.Context, id uint) (domain.User, error) {
	u, ok, err := a.store.GetUser(id)
	if err != nil {
		return domain.User{}, err
	}
	if !ok {
		return domain.User{}, fmt.Errorf("%w: user %d", ErrNotFound, id)
	}
	return u, nil
}

// UpdateUser applies a partial update.
func (a *App) UpdateUser(ctx context.Context, id uint, upd store.UserUpdate) (domain.User, error) {
	if upd.Email != nil && !strings.Contains(*upd.Email, "@") {
		return domain.User{}, fmt.Errorf("%w: valid email required", ErrValidation)
	}
	if _, ok, err := a.store.GetUser(id); err != nil {
		return domain.User{}, err
	} else if !ok {
		return domain.User{}, fmt.Errorf("%w: user %d", ErrNotFound, id)
	}
	updated, err := a.store.UpdateUser(id, upd)
	if err != nil {
		return domain.User{}, conflictErr(err)
	}
	return updated, nil
}

// DeleteUser removes the user and, through the store cascades, their posts,
// tags, file rows and join rows. Stored objects are left behind; cleaning
// the bucket is an offline job, not part of the request path.
func (a *App) DeleteUser(ctx context.Context, id uint) error {
	if _, ok, err := a.store.GetUser(id); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("%w: user %d", ErrNotFound, id)
	}
	if err := a.store.DeleteUser(id); err != nil {
		return err
	}
	a.invalidateCalendar(ctx)
	return nil
}
