package service

import (
	"context"
	"errors"
	"time"

	"smart-email/internal/logger"
	"smart-email/internal/model"
	"smart-email/internal/repository"
)

type authService struct {
	userRepo repository.UserRepository
	credRepo repository.CredentialRepository
	logger   *logger.Logger
}

func NewAuthService(userRepo repository.UserRepository, credRepo repository.CredentialRepository, logger *logger.Logger) AuthService {
	return &authService{
		userRepo: userRepo,
		credRepo: credRepo,
		logger:   logger,
	}
}

func (s *authService) LinkAccount(ctx context.Context, googleID, email, name, accessToken, refreshToken string, expiresAt time.Time) (*model.User, error) {
	user, err := s.getOrCreateUser(ctx, googleID, email, name)
	if err != nil {
		return nil, err
	}

	cred := model.NewOAuthCredential(user.ID, accessToken, refreshToken, expiresAt)
	if refreshToken == "" {
		// Google only sends a refresh token on first consent
		existing, err := s.credRepo.FindByOwner(ctx, user.ID)
		if err == nil {
			cred.RefreshToken = existing.RefreshToken
		} else if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		} else {
			s.logger.Warn("No refresh token received for user:", user.ID)
		}
	}

	if err := s.credRepo.Upsert(ctx, cred); err != nil {
		s.logger.Error("Failed to store credential:", err)
		return nil, err
	}
	return user, nil
}

func (s *authService) getOrCreateUser(ctx context.Context, googleID, email, name string) (*model.User, error) {
	existingUser, err := s.userRepo.FindByGoogleID(ctx, googleID)
	if errors.Is(err, repository.ErrNotFound) {
		newUser := model.NewUser(googleID, email, name)
		if err := s.userRepo.Create(ctx, newUser); err != nil {
			s.logger.Error("Failed to create user:", err)
			return nil, err
		}
		s.logger.Info("Created new user:", newUser.ID)
		return newUser, nil
	}
	if err != nil {
		return nil, err
	}

	if existingUser.Email != email || existingUser.Name != name {
		existingUser.Email = email
		existingUser.Name = name
		if err := s.userRepo.Update(ctx, existingUser); err != nil {
			s.logger.Error("Failed to update user:", err)
			return nil, err
		}
		s.logger.Info("Updated existing user:", existingUser.ID)
	}
	return existingUser, nil
}

func (s *authService) GetUser(ctx context.Context, userID string) (*model.User, error) {
	return s.userRepo.FindByID(ctx, userID)
}
