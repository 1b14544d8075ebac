package service

import (
	"context"
	"errors"
	"strconv"

	config "github.com/maheshrc27/tupae-api/configs"
	"github.com/maheshrc27/tupae-api/internal/models"
	"github.com/maheshrc27/tupae-api/internal/repository"
	"github.com/maheshrc27/tupae-api/internal/transfer"
	"github.com/maheshrc27/tupae-api/pkg/utils"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	googleoauth "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

var ErrInvalidCredentials = errors.New("Invalid or expired token")

type AuthService interface {
	AuthCodeURL(state string) string
	LoginCallback(ctx context.Context, code string) (int64, error)
	IssueToken(userID int64) (string, error)
	ParseToken(token string) (int64, error)
}

// userInfoFetcher resolves the Google profile behind an access token.
type userInfoFetcher func(ctx context.Context, src oauth2.TokenSource) (*transfer.GoogleUserInfo, error)

type authService struct {
	cfg       config.Config
	oauth     *oauth2.Config
	u         repository.UserRepository
	fetchUser userInfoFetcher
}

func NewAuthService(cfg config.Config, u repository.UserRepository) AuthService {
	return &authService{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURI,
			Scopes: []string{
				googleoauth.UserinfoEmailScope,
				googleoauth.UserinfoProfileScope,
			},
			Endpoint: google.Endpoint,
		},
		u:         u,
		fetchUser: fetchGoogleUser,
	}
}

func (s *authService) AuthCodeURL(state string) string {
	return s.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// LoginCallback exchanges an authorization code and returns the id of the
// matching user, creating the user on first sign-in.
func (s *authService) LoginCallback(ctx context.Context, code string) (int64, error) {
	if code == "" {
		return 0, newValidationError("code", "Code is required")
	}
	if s.oauth.ClientID == "" || s.oauth.ClientSecret == "" || s.oauth.RedirectURL == "" {
		return 0, errors.New("OAuth2 configuration is incomplete")
	}

	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		zap.S().Infow("oauth code exchange failed", "error", err)
		return 0, &CollaboratorError{Collaborator: collaboratorIdentity, Err: err}
	}

	info, err := s.fetchUser(ctx, s.oauth.TokenSource(ctx, token))
	if err != nil {
		zap.S().Infow("google userinfo failed", "error", err)
		return 0, &CollaboratorError{Collaborator: collaboratorIdentity, Err: err}
	}
	if info.Email == "" {
		return 0, newValidationError("email", "Google account has no email address")
	}

	user, exists, err := s.u.GetByEmail(ctx, info.Email)
	if err != nil {
		return 0, err
	}

	if !exists {
		return s.u.Create(ctx, &models.User{
			GoogleID:     info.ID,
			Email:        info.Email,
			Name:         info.Name,
			ProfileImage: info.Picture,
		})
	}

	if user.GoogleID != info.ID || user.ProfileImage != info.Picture {
		user.GoogleID = info.ID
		user.ProfileImage = info.Picture
		if err := s.u.Update(ctx, user); err != nil {
			return 0, err
		}
	}
	return user.ID, nil
}

func (s *authService) IssueToken(userID int64) (string, error) {
	return utils.GenerateToken(s.cfg.SecretKey, strconv.FormatInt(userID, 10), s.cfg.TokenTTL)
}

func (s *authService) ParseToken(token string) (int64, error) {
	claims, err := utils.ValidateToken(s.cfg.SecretKey, token)
	if err != nil {
		zap.S().Infow("token validation failed", "error", err)
		return 0, ErrInvalidCredentials
	}
	userID, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil || userID <= 0 {
		return 0, ErrInvalidCredentials
	}
	return userID, nil
}

func fetchGoogleUser(ctx context.Context, src oauth2.TokenSource) (*transfer.GoogleUserInfo, error) {
	svc, err := googleoauth.NewService(ctx, option.WithTokenSource(src))
	if err != nil {
		return nil, err
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return &transfer.GoogleUserInfo{
		ID:      info.Id,
		Email:   info.Email,
		Name:    info.Name,
		Picture: info.Picture,
	}, nil
}
