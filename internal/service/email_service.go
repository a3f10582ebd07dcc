package service

import (
	"context"
	"errors"

	"smart-email/internal/apperr"
	"smart-email/internal/logger"
	"smart-email/internal/metrics"
	"smart-email/internal/model"
	"smart-email/internal/repository"

	"golang.org/x/sync/errgroup"
)

type emailService struct {
	emailRepo   repository.EmailRepository
	userRepo    repository.UserRepository
	credRepo    repository.CredentialRepository
	fetcher     MailboxFetcher
	classifier  Classifier
	concurrency int
	logger      *logger.Logger
}

func NewEmailService(
	emailRepo repository.EmailRepository,
	userRepo repository.UserRepository,
	credRepo repository.CredentialRepository,
	fetcher MailboxFetcher,
	classifier Classifier,
	concurrency int,
	logger *logger.Logger,
) EmailService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &emailService{
		emailRepo:   emailRepo,
		userRepo:    userRepo,
		credRepo:    credRepo,
		fetcher:     fetcher,
		classifier:  classifier,
		concurrency: concurrency,
		logger:      logger,
	}
}

func (s *emailService) SyncPage(ctx context.Context, identity model.Identity, page, pageSize int) (PageResult, error) {
	result, err := s.syncPage(ctx, identity, page, pageSize)
	metrics.RecordSyncPage(err)
	if err != nil {
		result.Items = []*model.ClassifiedEmail{}
	}
	return result, err
}

func (s *emailService) syncPage(ctx context.Context, identity model.Identity, page, pageSize int) (PageResult, error) {
	const op = "service.SyncPage"
	result := PageResult{Items: []*model.ClassifiedEmail{}, Page: page, PageSize: pageSize}

	user, err := s.userRepo.FindByID(ctx, identity.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return result, apperr.New(apperr.KindUserNotFound, op, "User not found")
	}
	if err != nil {
		return result, apperr.Wrap(apperr.KindStore, op, err)
	}

	cred, err := s.credRepo.FindByOwner(ctx, user.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return result, apperr.New(apperr.KindNoAccountLinked, op, "No OAuth account found")
	}
	if err != nil {
		return result, apperr.Wrap(apperr.KindStore, op, err)
	}

	fetched, err := s.fetcher.FetchPage(ctx, model.Identity{UserID: user.ID, Email: user.Email}, cred, page, pageSize)
	if err != nil {
		if apperr.KindOf(err) == "" {
			err = apperr.Wrap(apperr.KindTransport, op, err)
		}
		return result, err
	}
	result.Total = fetched.Total

	items := make([]*model.ClassifiedEmail, len(fetched.Messages))
	var pending []int
	for i, msg := range fetched.Messages {
		existing, err := s.emailRepo.FindByRemoteID(ctx, user.ID, msg.RemoteID)
		switch {
		case err == nil:
			items[i] = existing
			metrics.RecordIngested(metrics.OutcomeExisting)
		case errors.Is(err, repository.ErrNotFound):
			pending = append(pending, i)
		default:
			s.logger.Warnf("dedup lookup failed for message %s: %v", msg.RemoteID, err)
			pending = append(pending, i)
		}
	}

	// Results land in items[i] so output order is the fetch order.
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for _, i := range pending {
		i := i
		g.Go(func() error {
			items[i] = s.classifyAndStore(ctx, user.ID, fetched.Messages[i])
			return nil
		})
	}
	_ = g.Wait()

	result.Items = items
	return result, nil
}

// classifyAndStore never fails: a message that cannot be classified yields
// an unpersisted degraded record.
func (s *emailService) classifyAndStore(ctx context.Context, userID string, msg model.ParsedMessage) *model.ClassifiedEmail {
	resp, err := s.classifier.Classify(ctx, model.ClassificationRequest{
		Sender:  msg.Sender,
		Subject: msg.Subject,
		Snippet: msg.Snippet,
	})
	if err != nil {
		s.logger.Warnf("classification failed for message %s, degrading: %v", msg.RemoteID, err)
		metrics.RecordIngested(metrics.OutcomeDegraded)
		return model.NewDegradedEmail(userID, msg)
	}

	email, err := model.NewClassifiedEmail(userID, msg, resp)
	if err != nil {
		s.logger.Warnf("rejected classification for message %s, degrading: %v", msg.RemoteID, err)
		metrics.RecordIngested(metrics.OutcomeDegraded)
		return model.NewDegradedEmail(userID, msg)
	}

	err = s.emailRepo.Create(ctx, email)
	switch {
	case err == nil:
		metrics.RecordIngested(metrics.OutcomeClassified)
		return email
	case errors.Is(err, repository.ErrDuplicateKey):
		// a concurrent sync stored it first
		existing, findErr := s.emailRepo.FindByRemoteID(ctx, userID, msg.RemoteID)
		if findErr == nil {
			metrics.RecordIngested(metrics.OutcomeDuplicate)
			return existing
		}
		s.logger.Errorf("duplicate message %s could not be re-read: %v", msg.RemoteID, findErr)
	default:
		s.logger.Errorf("failed to store classification for message %s: %v", msg.RemoteID, err)
	}
	metrics.RecordIngested(metrics.OutcomeUnsaved)
	return email
}

func (s *emailService) ListStored(ctx context.Context, identity model.Identity, page, pageSize int) (PageResult, error) {
	result := PageResult{Items: []*model.ClassifiedEmail{}, Page: page, PageSize: pageSize}

	items, total, err := s.emailRepo.ListByUser(ctx, identity.UserID, page, pageSize)
	if err != nil {
		return result, apperr.Wrap(apperr.KindStore, "service.ListStored", err)
	}
	result.Items = items
	result.Total = total
	return result, nil
}

func (s *emailService) Archive(ctx context.Context, identity model.Identity, emailID string) error {
	if err := s.emailRepo.Archive(ctx, identity.UserID, emailID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return err
		}
		return apperr.Wrap(apperr.KindStore, "service.Archive", err)
	}
	s.logger.Info("Archived email:", emailID)
	return nil
}
