package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"smart-email/internal/model"
	"smart-email/internal/repository"
)

type InMemoryUserRepository struct {
	users map[string]*model.User
	mutex sync.RWMutex
}

func NewInMemoryUserRepository() *InMemoryUserRepository {
	return &InMemoryUserRepository{
		users: make(map[string]*model.User),
	}
}

func (r *InMemoryUserRepository) Create(ctx context.Context, user *model.User) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, existing := range r.users {
		if existing.GoogleID == user.GoogleID {
			return repository.ErrDuplicateKey
		}
	}
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *InMemoryUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	user, exists := r.users[id]
	if !exists {
		return nil, repository.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *InMemoryUserRepository) FindByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, user := range r.users {
		if user.GoogleID == googleID {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *InMemoryUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, user := range r.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *InMemoryUserRepository) Update(ctx context.Context, user *model.User) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.users[user.ID]; !exists {
		return repository.ErrNotFound
	}
	copied := *user
	copied.UpdatedAt = time.Now()
	r.users[user.ID] = &copied
	return nil
}

func (r *InMemoryUserRepository) Delete(ctx context.Context, id string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	delete(r.users, id)
	return nil
}

type InMemoryCredentialRepository struct {
	byOwner map[string]*model.OAuthCredential
	mutex   sync.RWMutex
}

func NewInMemoryCredentialRepository() *InMemoryCredentialRepository {
	return &InMemoryCredentialRepository{
		byOwner: make(map[string]*model.OAuthCredential),
	}
}

func (r *InMemoryCredentialRepository) Upsert(ctx context.Context, cred *model.OAuthCredential) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	copied := *cred
	if existing, ok := r.byOwner[cred.OwnerID]; ok {
		copied.ID = existing.ID
		copied.CreatedAt = existing.CreatedAt
		cred.ID = existing.ID
	}
	copied.UpdatedAt = time.Now()
	r.byOwner[cred.OwnerID] = &copied
	return nil
}

func (r *InMemoryCredentialRepository) FindByOwner(ctx context.Context, ownerID string) (*model.OAuthCredential, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	cred, ok := r.byOwner[ownerID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *cred
	return &copied, nil
}

func (r *InMemoryCredentialRepository) UpdateTokens(ctx context.Context, cred *model.OAuthCredential) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	existing, ok := r.byOwner[cred.OwnerID]
	if !ok || existing.ID != cred.ID {
		return repository.ErrNotFound
	}
	existing.AccessToken = cred.AccessToken
	existing.RefreshToken = cred.RefreshToken
	existing.ExpiresAt = cred.ExpiresAt
	existing.UpdatedAt = time.Now()
	return nil
}

type InMemoryEmailRepository struct {
	emails   map[string]*model.ClassifiedEmail
	byRemote map[string]string // userID|remoteID -> id
	mutex    sync.RWMutex
}

func NewInMemoryEmailRepository() *InMemoryEmailRepository {
	return &InMemoryEmailRepository{
		emails:   make(map[string]*model.ClassifiedEmail),
		byRemote: make(map[string]string),
	}
}

func remoteKey(userID, remoteID string) string {
	return userID + "|" + remoteID
}

func (r *InMemoryEmailRepository) Create(ctx context.Context, email *model.ClassifiedEmail) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	key := remoteKey(email.UserID, email.RemoteID)
	if _, exists := r.byRemote[key]; exists {
		return repository.ErrDuplicateKey
	}
	copied := *email
	r.emails[email.ID] = &copied
	r.byRemote[key] = email.ID
	return nil
}

func (r *InMemoryEmailRepository) FindByID(ctx context.Context, id string) (*model.ClassifiedEmail, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	email, exists := r.emails[id]
	if !exists {
		return nil, repository.ErrNotFound
	}
	copied := *email
	return &copied, nil
}

func (r *InMemoryEmailRepository) FindByRemoteID(ctx context.Context, userID, remoteID string) (*model.ClassifiedEmail, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	id, exists := r.byRemote[remoteKey(userID, remoteID)]
	if !exists {
		return nil, repository.ErrNotFound
	}
	copied := *r.emails[id]
	return &copied, nil
}

func (r *InMemoryEmailRepository) ListByUser(ctx context.Context, userID string, page, pageSize int) ([]*model.ClassifiedEmail, int, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var active []*model.ClassifiedEmail
	for _, email := range r.emails {
		if email.UserID == userID && email.ArchivedAt == nil {
			copied := *email
			active = append(active, &copied)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].ReceivedAt.After(active[j].ReceivedAt)
	})

	total := len(active)
	start := repository.Offset(page, pageSize)
	if start >= total {
		return []*model.ClassifiedEmail{}, total, nil
	}
	end := total
	if pageSize < total-start {
		end = start + pageSize
	}
	return active[start:end], total, nil
}

func (r *InMemoryEmailRepository) Archive(ctx context.Context, userID, id string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	email, exists := r.emails[id]
	if !exists || email.UserID != userID {
		return repository.ErrNotFound
	}
	if email.ArchivedAt == nil {
		now := time.Now()
		email.ArchivedAt = &now
	}
	return nil
}
