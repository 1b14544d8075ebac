package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/maheshrc27/tupae-api/internal/models"
	"github.com/maheshrc27/tupae-api/internal/repository"
	"go.uber.org/zap"
)

type UserService interface {
	GetUserInfo(ctx context.Context, id int64) (*models.User, error)
	// RemoveUser deletes the account after its posts and their media.
	RemoveUser(ctx context.Context, userID int64) error
}

// PostPurger removes every post a user owns.
type PostPurger interface {
	RemoveAllForUser(ctx context.Context, userID int64) (int, error)
}

type userService struct {
	u     repository.UserRepository
	posts PostPurger
}

func NewUserService(u repository.UserRepository, posts PostPurger) UserService {
	return &userService{
		u:     u,
		posts: posts,
	}
}

func (s *userService) GetUserInfo(ctx context.Context, id int64) (*models.User, error) {
	user, exists, err := s.u.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user info: %w", err)
	}
	if !exists {
		zap.S().Infow("user not found", "user_id", id)
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *userService) RemoveUser(ctx context.Context, userID int64) error {
	if _, err := s.GetUserInfo(ctx, userID); err != nil {
		return err
	}

	// Posts go first so their media is released even where the post store
	// does not cascade from users.
	removed, err := s.posts.RemoveAllForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("remove posts: %w", err)
	}

	err = s.u.Remove(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("remove user: %w", err)
	}
	zap.S().Infow("user removed", "user_id", userID, "posts", removed)
	return nil
}
