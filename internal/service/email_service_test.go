package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"smart-email/internal/ai"
	"smart-email/internal/apperr"
	"smart-email/internal/logger"
	"smart-email/internal/mailbox"
	"smart-email/internal/model"
	"smart-email/internal/repository"
	"smart-email/internal/repository/memory"
	"smart-email/internal/tools"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockFetcher struct {
	FetchPageFunc func(ctx context.Context, identity model.Identity, cred *model.OAuthCredential, page, pageSize int) (mailbox.Page, error)
}

func (m *mockFetcher) FetchPage(ctx context.Context, identity model.Identity, cred *model.OAuthCredential, page, pageSize int) (mailbox.Page, error) {
	return m.FetchPageFunc(ctx, identity, cred, page, pageSize)
}

// failingCreateRepo wraps the in-memory store and fails every Create.
type failingCreateRepo struct {
	*memory.InMemoryEmailRepository
	err error
}

func (r *failingCreateRepo) Create(ctx context.Context, email *model.ClassifiedEmail) error {
	return r.err
}

type emailFixture struct {
	emails  *memory.InMemoryEmailRepository
	users   *memory.InMemoryUserRepository
	creds   *memory.InMemoryCredentialRepository
	backend *ai.MockClient
	fetcher *mockFetcher
	user    *model.User
}

func newEmailFixture(t *testing.T, messages []model.ParsedMessage, total int) *emailFixture {
	t.Helper()
	f := &emailFixture{
		emails:  memory.NewInMemoryEmailRepository(),
		users:   memory.NewInMemoryUserRepository(),
		creds:   memory.NewInMemoryCredentialRepository(),
		backend: ai.NewMockClient(),
	}
	f.user = model.NewUser("google-1", "user@example.com", "User")
	require.NoError(t, f.users.Create(context.Background(), f.user))
	cred := model.NewOAuthCredential(f.user.ID, "access", "refresh", time.Now().Add(time.Hour))
	require.NoError(t, f.creds.Upsert(context.Background(), cred))

	f.fetcher = &mockFetcher{
		FetchPageFunc: func(ctx context.Context, identity model.Identity, cred *model.OAuthCredential, page, pageSize int) (mailbox.Page, error) {
			return mailbox.Page{Messages: messages, Total: total}, nil
		},
	}
	return f
}

func (f *emailFixture) service(emails repository.EmailRepository) EmailService {
	log := logger.NewNop()
	return NewEmailService(emails, f.users, f.creds, f.fetcher, tools.NewRouter(f.backend, log), 3, log)
}

func (f *emailFixture) identity() model.Identity {
	return model.Identity{UserID: f.user.ID, Email: f.user.Email}
}

func testMessages(n int) []model.ParsedMessage {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	messages := make([]model.ParsedMessage, n)
	for i := range messages {
		// newest first, as the fetcher returns them
		uid := n - i
		messages[i] = model.ParsedMessage{
			RemoteID:   fmt.Sprintf("%d", uid),
			ThreadID:   fmt.Sprintf("thread-%d", uid),
			Subject:    fmt.Sprintf("Subject %d", uid),
			Sender:     "alice@company.com",
			Snippet:    fmt.Sprintf("Snippet %d", uid),
			ReceivedAt: base.Add(time.Duration(uid) * time.Minute),
		}
	}
	return messages
}

func TestSyncPageClassifiesAndPersists(t *testing.T) {
	// Setup
	messages := testMessages(3)
	f := newEmailFixture(t, messages, 42)
	f.backend.ClassifyFunc = func(ctx context.Context, req model.ClassificationRequest) (model.ClassificationResponse, error) {
		return model.ClassificationResponse{
			Category:       "action",
			Urgency:        7,
			Summary:        "summary of " + req.Subject,
			SuggestedReply: "On it.",
		}, nil
	}
	svc := f.service(f.emails)

	// Execute
	result, err := svc.SyncPage(context.Background(), f.identity(), 1, 3)

	// Verify
	require.NoError(t, err)
	assert.Equal(t, 42, result.Total)
	assert.Equal(t, 1, result.Page)
	assert.Equal(t, 3, result.PageSize)
	require.Len(t, result.Items, 3)
	for i, item := range result.Items {
		assert.Equal(t, messages[i].RemoteID, item.RemoteID)
		assert.Equal(t, model.CategoryAction, item.Category)
		assert.Equal(t, 7, item.Urgency)
		assert.Equal(t, "summary of "+messages[i].Subject, item.Summary)
		require.NotNil(t, item.SuggestedReply)
		assert.Equal(t, "On it.", *item.SuggestedReply)
		assert.False(t, item.Degraded)

		stored, err := f.emails.FindByRemoteID(context.Background(), f.user.ID, item.RemoteID)
		require.NoError(t, err)
		assert.Equal(t, item.ID, stored.ID)
	}
}

func TestSyncPageClassifiesEachMessageOnce(t *testing.T) {
	// Setup
	f := newEmailFixture(t, testMessages(4), 4)
	var calls int32
	f.backend.ClassifyFunc = func(ctx context.Context, req model.ClassificationRequest) (model.ClassificationResponse, error) {
		atomic.AddInt32(&calls, 1)
		return model.ClassificationResponse{Category: "INFO", Urgency: 2, Summary: "s"}, nil
	}
	svc := f.service(f.emails)

	// Execute
	first, err := svc.SyncPage(context.Background(), f.identity(), 1, 4)
	require.NoError(t, err)
	second, err := svc.SyncPage(context.Background(), f.identity(), 1, 4)
	require.NoError(t, err)

	// Verify
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
	require.Len(t, second.Items, 4)
	for i := range first.Items {
		assert.Equal(t, first.Items[i].ID, second.Items[i].ID)
	}
}

func TestSyncPageKeepsFetchOrderWhenClassificationFinishesOutOfOrder(t *testing.T) {
	// Setup
	messages := testMessages(3)
	f := newEmailFixture(t, messages, 3)
	delays := map[string]time.Duration{
		messages[0].Subject: 90 * time.Millisecond,
		messages[1].Subject: 45 * time.Millisecond,
		messages[2].Subject: 0,
	}
	var mu sync.Mutex
	var finished []string
	f.backend.ClassifyFunc = func(ctx context.Context, req model.ClassificationRequest) (model.ClassificationResponse, error) {
		time.Sleep(delays[req.Subject])
		mu.Lock()
		finished = append(finished, req.Subject)
		mu.Unlock()
		return model.ClassificationResponse{Category: "INFO", Urgency: 2, Summary: "summary of " + req.Subject}, nil
	}
	svc := f.service(f.emails)

	// Execute
	result, err := svc.SyncPage(context.Background(), f.identity(), 1, 3)

	// Verify
	require.NoError(t, err)
	assert.Equal(t, []string{messages[2].Subject, messages[1].Subject, messages[0].Subject}, finished)
	require.Len(t, result.Items, 3)
	for i, item := range result.Items {
		assert.Equal(t, messages[i].RemoteID, item.RemoteID)
		assert.Equal(t, "summary of "+messages[i].Subject, item.Summary)
	}
}

func TestSyncPageReusesStoredRecords(t *testing.T) {
	// Setup
	messages := testMessages(2)
	f := newEmailFixture(t, messages, 2)
	stored, err := model.NewClassifiedEmail(f.user.ID, messages[0], model.ClassificationResponse{
		Category: "MEETING",
		Urgency:  5,
		Summary:  "stored earlier",
	})
	require.NoError(t, err)
	require.NoError(t, f.emails.Create(context.Background(), stored))

	var seen []string
	f.backend.ClassifyFunc = func(ctx context.Context, req model.ClassificationRequest) (model.ClassificationResponse, error) {
		seen = append(seen, req.Subject)
		return model.ClassificationResponse{Category: "INFO", Urgency: 1, Summary: "new"}, nil
	}
	svc := f.service(f.emails)

	// Execute
	result, err := svc.SyncPage(context.Background(), f.identity(), 1, 2)

	// Verify
	require.NoError(t, err)
	assert.Equal(t, []string{messages[1].Subject}, seen)
	require.Len(t, result.Items, 2)
	assert.Equal(t, stored.ID, result.Items[0].ID)
	assert.Equal(t, "stored earlier", result.Items[0].Summary)
	assert.Equal(t, "new", result.Items[1].Summary)
}

func TestSyncPageDegradesOnBackendFailure(t *testing.T) {
	// Setup
	messages := testMessages(2)
	f := newEmailFixture(t, messages, 2)
	f.backend.ClassifyFunc = func(ctx context.Context, req model.ClassificationRequest) (model.ClassificationResponse, error) {
		if req.Subject == messages[0].Subject {
			return model.ClassificationResponse{}, errors.New("upstream 503")
		}
		return model.ClassificationResponse{Category: "INFO", Urgency: 3, Summary: "fine"}, nil
	}
	svc := f.service(f.emails)

	// Execute
	result, err := svc.SyncPage(context.Background(), f.identity(), 1, 2)

	// Verify
	require.NoError(t, err)
	require.Len(t, result.Items, 2)

	degraded := result.Items[0]
	assert.True(t, degraded.Degraded)
	assert.Equal(t, model.CategoryNoise, degraded.Category)
	assert.Equal(t, 1, degraded.Urgency)
	assert.Equal(t, messages[0].Snippet, degraded.Summary)
	assert.Nil(t, degraded.SuggestedReply)

	_, err = f.emails.FindByRemoteID(context.Background(), f.user.ID, messages[0].RemoteID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	assert.False(t, result.Items[1].Degraded)
	_, err = f.emails.FindByRemoteID(context.Background(), f.user.ID, messages[1].RemoteID)
	assert.NoError(t, err)
}

func TestSyncPageDegradesUnknownCategory(t *testing.T) {
	// Setup
	f := newEmailFixture(t, testMessages(1), 1)
	f.backend.ClassifyFunc = func(ctx context.Context, req model.ClassificationRequest) (model.ClassificationResponse, error) {
		return model.ClassificationResponse{Category: "SPAM", Urgency: 4, Summary: "s"}, nil
	}
	svc := f.service(f.emails)

	// Execute
	result, err := svc.SyncPage(context.Background(), f.identity(), 1, 1)

	// Verify
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.True(t, result.Items[0].Degraded)
	_, err = f.emails.FindByRemoteID(context.Background(), f.user.ID, "1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSyncPageClampsUrgency(t *testing.T) {
	// Setup
	f := newEmailFixture(t, testMessages(1), 1)
	f.backend.ClassifyFunc = func(ctx context.Context, req model.ClassificationRequest) (model.ClassificationResponse, error) {
		return model.ClassificationResponse{Category: "ACTION", Urgency: 15, Summary: "s"}, nil
	}
	svc := f.service(f.emails)

	// Execute
	result, err := svc.SyncPage(context.Background(), f.identity(), 1, 1)

	// Verify
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, model.MaxUrgency, result.Items[0].Urgency)
	assert.False(t, result.Items[0].Degraded)
}

func TestSyncPageKeepsItemWhenStoreFails(t *testing.T) {
	// Setup
	f := newEmailFixture(t, testMessages(2), 2)
	repo := &failingCreateRepo{InMemoryEmailRepository: f.emails, err: errors.New("disk full")}
	svc := f.service(repo)

	// Execute
	result, err := svc.SyncPage(context.Background(), f.identity(), 1, 2)

	// Verify
	require.NoError(t, err)
	require.Len(t, result.Items, 2)
	for _, item := range result.Items {
		assert.False(t, item.Degraded)
		assert.Equal(t, model.CategoryInfo, item.Category)
	}
}

func TestSyncPageReturnsExistingOnDuplicate(t *testing.T) {
	// Setup
	messages := testMessages(1)
	f := newEmailFixture(t, messages, 1)
	winner, err := model.NewClassifiedEmail(f.user.ID, messages[0], model.ClassificationResponse{
		Category: "ACTION",
		Urgency:  9,
		Summary:  "stored by another sync",
	})
	require.NoError(t, err)

	// The record appears between the dedup lookup and Create.
	f.backend.ClassifyFunc = func(ctx context.Context, req model.ClassificationRequest) (model.ClassificationResponse, error) {
		assert.NoError(t, f.emails.Create(ctx, winner))
		return model.ClassificationResponse{Category: "INFO", Urgency: 1, Summary: "late"}, nil
	}
	svc := f.service(f.emails)

	// Execute
	result, err := svc.SyncPage(context.Background(), f.identity(), 1, 1)

	// Verify
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, winner.ID, result.Items[0].ID)
	assert.Equal(t, "stored by another sync", result.Items[0].Summary)
}

func TestSyncPageUnknownUser(t *testing.T) {
	// Setup
	f := newEmailFixture(t, testMessages(1), 1)
	svc := f.service(f.emails)

	// Execute
	result, err := svc.SyncPage(context.Background(), model.Identity{UserID: "missing"}, 1, 10)

	// Verify
	assert.ErrorIs(t, err, apperr.ErrUserNotFound)
	assert.NotNil(t, result.Items)
	assert.Empty(t, result.Items)
}

func TestSyncPageNoLinkedAccount(t *testing.T) {
	// Setup
	f := newEmailFixture(t, testMessages(1), 1)
	other := model.NewUser("google-2", "other@example.com", "Other")
	require.NoError(t, f.users.Create(context.Background(), other))
	svc := f.service(f.emails)

	// Execute
	result, err := svc.SyncPage(context.Background(), model.Identity{UserID: other.ID}, 1, 10)

	// Verify
	assert.ErrorIs(t, err, apperr.ErrNoAccountLinked)
	assert.Equal(t, "No OAuth account found", apperr.Message(err))
	assert.Empty(t, result.Items)
}

func TestSyncPagePropagatesFetchErrors(t *testing.T) {
	tests := []struct {
		name     string
		fetchErr error
		want     error
	}{
		{
			name:     "expired credential",
			fetchErr: apperr.New(apperr.KindCredentialExpired, "token.GetValidToken", "refresh failed"),
			want:     apperr.ErrCredentialExpired,
		},
		{
			name:     "unlabelled error becomes transport",
			fetchErr: errors.New("connection reset"),
			want:     apperr.ErrTransport,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Setup
			f := newEmailFixture(t, nil, 0)
			f.fetcher.FetchPageFunc = func(ctx context.Context, identity model.Identity, cred *model.OAuthCredential, page, pageSize int) (mailbox.Page, error) {
				return mailbox.Page{}, tt.fetchErr
			}
			f.backend.ClassifyFunc = func(ctx context.Context, req model.ClassificationRequest) (model.ClassificationResponse, error) {
				t.Error("classifier must not be called")
				return model.ClassificationResponse{}, nil
			}
			svc := f.service(f.emails)

			// Execute
			result, err := svc.SyncPage(context.Background(), f.identity(), 1, 10)

			// Verify
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, result.Items)
		})
	}
}

func TestSyncPageEmptyMailbox(t *testing.T) {
	// Setup
	f := newEmailFixture(t, nil, 0)
	svc := f.service(f.emails)

	// Execute
	result, err := svc.SyncPage(context.Background(), f.identity(), 3, 10)

	// Verify
	require.NoError(t, err)
	assert.Equal(t, 0, result.Total)
	assert.NotNil(t, result.Items)
	assert.Empty(t, result.Items)
}

func TestListStoredAndArchive(t *testing.T) {
	// Setup
	f := newEmailFixture(t, testMessages(3), 3)
	svc := f.service(f.emails)
	synced, err := svc.SyncPage(context.Background(), f.identity(), 1, 3)
	require.NoError(t, err)

	// Execute
	err = svc.Archive(context.Background(), f.identity(), synced.Items[0].ID)
	require.NoError(t, err)
	stored, err := svc.ListStored(context.Background(), f.identity(), 1, 10)

	// Verify
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Total)
	require.Len(t, stored.Items, 2)
	assert.Equal(t, synced.Items[1].ID, stored.Items[0].ID)
	assert.Equal(t, synced.Items[2].ID, stored.Items[1].ID)
}

func TestArchiveUnknownEmail(t *testing.T) {
	// Setup
	f := newEmailFixture(t, nil, 0)
	svc := f.service(f.emails)

	// Execute
	err := svc.Archive(context.Background(), f.identity(), "nope")

	// Verify
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
