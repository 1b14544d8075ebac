package service

import (
	"context"
	"fmt"

	"github.com/maheshrc27/tupae-api/internal/models"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Dispatcher submits a post to one platform and returns the platform's id
// for the created post.
type Dispatcher interface {
	Dispatch(ctx context.Context, post *models.Post, target models.PlatformTarget) (string, error)
}

type mockDispatcher struct{}

// NewMockDispatcher returns a Dispatcher that accepts every post without
// calling any platform.
func NewMockDispatcher() Dispatcher {
	return mockDispatcher{}
}

func (mockDispatcher) Dispatch(ctx context.Context, post *models.Post, target models.PlatformTarget) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id, err := gonanoid.New()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("mock_%s_%s", target.Platform, id), nil
}
