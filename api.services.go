package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// SubmitStage identifies the step of a submission which failed.
type SubmitStage string

const (
	StageLookup         SubmitStage = "contact lookup"
	StageContactUpdate  SubmitStage = "contact update"
	StageContactSave    SubmitStage = "contact save"
	StageContactRefetch SubmitStage = "contact refetch"
	StageRequestSave    SubmitStage = "request save"
)

// SubmitError reports the stage at which a submission failed.
// Nothing already written before that stage is rolled back.
type SubmitError struct {
	Stage SubmitStage
	Err   error
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("service: %s failed: %v", e.Stage, e.Err)
}

func (e *SubmitError) Unwrap() error {
	return e.Err
}

type RequestServiceProvider interface {
	Submit(ctx context.Context, sub Submission) (Confirmation, error)
	List(ctx context.Context) ([]RequestView, error)
}

type RequestService struct {
	logger  *zap.Logger
	config  *Config
	clock   Clocker
	storage RequestStorage
	queue   Queuer
}

func NewRequestService(logger *zap.Logger, config *Config, clock Clocker, storage RequestStorage, queue Queuer) RequestServiceProvider {
	return &RequestService{
		logger:  logger,
		config:  config,
		clock:   clock,
		storage: storage,
		queue:   queue,
	}
}

// Submit upserts the submitter contact by email then records the book request
// against it. A concurrent submission which inserted the same email first is
// detected through the uniqueness violation and its contact is reused.
func (rs *RequestService) Submit(ctx context.Context, sub Submission) (Confirmation, error) {
	requestDate := FormatRequestDate(rs.clock.Now())
	contact := sub.Contact()
	logger := rs.logger.With(zap.String("contact.email", sub.Email.String))

	contactID, err := rs.storage.FindContactIDByEmail(ctx, sub.Email)
	switch {
	case err == nil:
		logger.Info("service: existing contact found", zap.Int64("contact.id", contactID))
		if err = rs.storage.UpdateContact(ctx, contactID, contact); err != nil {
			logger.Error("service: failed to update contact details", zap.Int64("contact.id", contactID), zap.Error(err))
			return Confirmation{}, &SubmitError{Stage: StageContactUpdate, Err: err}
		}

	case errors.Is(err, ErrContactNotFound):
		contactID, err = rs.storage.InsertContact(ctx, contact)
		if IsUniqueViolation(err) {
			logger.Warn("service: contact inserted concurrently. fetching existing contact.", zap.Error(err))
			contactID, err = rs.storage.FindContactIDByEmail(ctx, sub.Email)
			if err != nil {
				logger.Error("service: failed to get contact after unique constraint violation", zap.Error(err))
				return Confirmation{}, &SubmitError{Stage: StageContactRefetch, Err: err}
			}
		} else if err != nil {
			logger.Error("service: failed to insert new contact", zap.Error(err))
			return Confirmation{}, &SubmitError{Stage: StageContactSave, Err: err}
		} else {
			logger.Info("service: new contact inserted", zap.Int64("contact.id", contactID))
		}

	default:
		logger.Error("service: failed to check contact existence", zap.Error(err))
		return Confirmation{}, &SubmitError{Stage: StageLookup, Err: err}
	}

	requestID, err := rs.storage.InsertBookRequest(ctx, BookRequest{
		Title:       sub.BookTitle,
		Author:      sub.Author,
		Comments:    sub.Comments,
		RequestDate: requestDate,
		ContactID:   contactID,
	})
	if err != nil {
		logger.Error("service: failed to insert book request", zap.Int64("contact.id", contactID), zap.Error(err))
		return Confirmation{}, &SubmitError{Stage: StageRequestSave, Err: err}
	}
	logger.Info("service: book request inserted", zap.Int64("contact.id", contactID), zap.Int64("request.id", requestID))

	confirmation := Confirmation{
		RequestID:   requestID,
		ContactID:   contactID,
		RequestDate: requestDate,
		Submission:  sub,
	}

	if err = rs.queue.Push(ctx, rs.archiveQueue(), confirmation.View()); err != nil {
		logger.Error("service: failed to push request to archive queue", zap.Int64("request.id", requestID), zap.Error(err))
	}
	return confirmation, nil
}

// List returns every book request joined with its contact, most recent first.
func (rs *RequestService) List(ctx context.Context) ([]RequestView, error) {
	return rs.storage.ListRequests(ctx)
}

func (rs *RequestService) archiveQueue() string {
	if rs.config != nil && len(rs.config.Archive.QueueName) != 0 {
		return rs.config.Archive.QueueName
	}
	return ArchiveQueue
}
