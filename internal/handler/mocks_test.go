package handler

import (
	"context"
	"errors"

	"smart-email/internal/model"
	"smart-email/internal/service"

	"github.com/labstack/echo/v4"
)

type mockUsers struct {
	user *model.User
}

func (m *mockUsers) GetCurrentUser(c echo.Context) (*model.User, error) {
	if m.user == nil {
		return nil, errors.New("user not authenticated")
	}
	return m.user, nil
}

type mockEmailService struct {
	SyncPageFunc   func(ctx context.Context, identity model.Identity, page, pageSize int) (service.PageResult, error)
	ListStoredFunc func(ctx context.Context, identity model.Identity, page, pageSize int) (service.PageResult, error)
	ArchiveFunc    func(ctx context.Context, identity model.Identity, emailID string) error
}

func (m *mockEmailService) SyncPage(ctx context.Context, identity model.Identity, page, pageSize int) (service.PageResult, error) {
	return m.SyncPageFunc(ctx, identity, page, pageSize)
}

func (m *mockEmailService) ListStored(ctx context.Context, identity model.Identity, page, pageSize int) (service.PageResult, error) {
	return m.ListStoredFunc(ctx, identity, page, pageSize)
}

func (m *mockEmailService) Archive(ctx context.Context, identity model.Identity, emailID string) error {
	return m.ArchiveFunc(ctx, identity, emailID)
}
