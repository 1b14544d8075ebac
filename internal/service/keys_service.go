package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/maheshrc27/tupae-api/internal/models"
	"github.com/maheshrc27/tupae-api/internal/repository"
	"github.com/maheshrc27/tupae-api/internal/transfer"
	"github.com/maheshrc27/tupae-api/pkg/utils"
	"go.uber.org/zap"
)

const maxApiKeysPerUser = 5

var ErrInvalidApiKey = errors.New("Invalid API key")

type ApiKeyService interface {
	// Create returns the new key in full; later listings mask it.
	Create(ctx context.Context, userID int64, in *transfer.ApiKeyCreation) (*models.ApiKey, error)
	List(ctx context.Context, userID int64) ([]models.ApiKey, error)
	GetUserID(ctx context.Context, apiKey string) (int64, error)
	Remove(ctx context.Context, userID, keyID int64) error
}

type apiKeyService struct {
	k repository.ApiKeyRepository
}

func NewApiKeyService(k repository.ApiKeyRepository) ApiKeyService {
	return &apiKeyService{
		k: k,
	}
}

func (s *apiKeyService) Create(ctx context.Context, userID int64, in *transfer.ApiKeyCreation) (*models.ApiKey, error) {
	name := ""
	if in != nil {
		req := *in
		req.Name = strings.TrimSpace(req.Name)
		if err := validateStruct(&req); err != nil {
			return nil, err
		}
		name = req.Name
	}

	keys, err := s.k.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	if len(keys) >= maxApiKeysPerUser {
		err := &ConflictError{Message: fmt.Sprintf("Only %d API keys can be created", maxApiKeysPerUser)}
		zap.S().Infow("api key rejected", "user_id", userID, "error", err)
		return nil, err
	}

	key, err := utils.GenerateApiKey()
	if err != nil {
		return nil, fmt.Errorf("generate api key: %w", err)
	}

	apiKey := &models.ApiKey{
		UserID:    userID,
		Name:      name,
		Key:       key,
		CreatedAt: time.Now().UTC(),
	}
	if apiKey.ID, err = s.k.Create(ctx, apiKey); err != nil {
		return nil, fmt.Errorf("save api key: %w", err)
	}
	return apiKey, nil
}

func (s *apiKeyService) List(ctx context.Context, userID int64) ([]models.ApiKey, error) {
	keys, err := s.k.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	out := make([]models.ApiKey, 0, len(keys))
	for _, k := range keys {
		out = append(out, k.Masked())
	}
	return out, nil
}

func (s *apiKeyService) GetUserID(ctx context.Context, apiKey string) (int64, error) {
	userID, exists, err := s.k.GetUserIDByKey(ctx, apiKey)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, ErrInvalidApiKey
	}

	if err := s.k.TouchLastUsed(ctx, apiKey, time.Now().UTC()); err != nil {
		zap.S().Warnw("api key last use not recorded", "user_id", userID, "error", err)
	}
	return userID, nil
}

func (s *apiKeyService) Remove(ctx context.Context, userID, keyID int64) error {
	if keyID <= 0 {
		return newValidationError("id", "Key id is not valid")
	}

	err := s.k.RemoveForUser(ctx, keyID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrApiKeyNotFound
	}
	return err
}
