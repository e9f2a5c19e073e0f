package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Service owns submission CRUD semantics. It validates input, stamps the
// generated fields and tries the remote store first, falling back to the
// local store on the first error. Exactly one store answers each call.
type Service struct {
	remote      Store // nil in local-only mode
	local       Store
	log         *logrus.Logger
	afterCreate func(Record, []File)
}

// Option configures a Service.
type Option func(*Service)

// WithAfterCreate registers a hook invoked in its own goroutine once a
// submission has been persisted. Used for the advisory OCR check.
func WithAfterCreate(fn func(Record, []File)) Option {
	return func(s *Service) { s.afterCreate = fn }
}

func NewService(remote, local Store, log *logrus.Logger, opts ...Option) *Service {
	s := &Service{remote: remote, local: local, log: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateInput is the caller-supplied part of a submission.
type CreateInput struct {
	Username string
	Plan     int64
	Total    int64
	Files    []File
}

func (s *Service) validate(in CreateInput) (string, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return "", &ValidationError{Reason: "username is required"}
	}
	if !validPlan(in.Plan) {
		return "", &ValidationError{Reason: fmt.Sprintf("plan %d is not a known tier", in.Plan)}
	}
	if in.Total < 0 {
		return "", &ValidationError{Reason: "total must not be negative"}
	}
	if in.Total < in.Plan {
		return "", &ValidationError{Reason: fmt.Sprintf("total %d is below the plan minimum turnover %d", in.Total, in.Plan)}
	}
	if len(in.Files) == 0 {
		return "", &ValidationError{Reason: "at least one photo is required"}
	}
	for _, f := range in.Files {
		if !strings.HasPrefix(f.ContentType, "image/") {
			return "", &ValidationError{Reason: "only image uploads are accepted"}
		}
	}
	return username, nil
}

// Create validates the input, generates the record identity and persists it
// to exactly one store.
func (s *Service) Create(ctx context.Context, in CreateInput) (Record, error) {
	username, err := s.validate(in)
	if err != nil {
		return Record{}, err
	}
	now := time.Now()
	rec := Record{
		ID:        NewID(),
		Date:      DayKey(now),
		Username:  username,
		Plan:      in.Plan,
		Total:     in.Total,
		CreatedAt: now.UTC().Format(time.RFC3339),
		Status:    StatusPending,
	}
	created, err := s.try(ctx, "create", func(st Store) (Record, error) {
		return st.Create(ctx, rec, in.Files)
	})
	if err != nil {
		return Record{}, err
	}
	if s.afterCreate != nil {
		go s.afterCreate(created, in.Files)
	}
	return created, nil
}

// List returns the full current snapshot from whichever store answers.
func (s *Service) List(ctx context.Context) ([]Record, error) {
	if s.remote == nil {
		return s.local.List(ctx)
	}
	recs, rerr := s.remote.List(ctx)
	if rerr == nil {
		return recs, nil
	}
	s.log.WithError(rerr).WithField("op", "list").Warn("remote store unavailable, falling back to local store")
	recs, lerr := s.local.List(ctx)
	if lerr != nil {
		return nil, &StorageError{Remote: rerr, Local: lerr}
	}
	return recs, nil
}

// UpdateStatus mutates status and note on an existing submission.
func (s *Service) UpdateStatus(ctx context.Context, id, status string, note *string) (Record, error) {
	if !ValidStatus(status) {
		return Record{}, &ValidationError{Reason: "status must be pending, approved or rejected"}
	}
	return s.try(ctx, "update", func(st Store) (Record, error) {
		return st.UpdateStatus(ctx, id, status, note)
	})
}

// try runs call against the remote store and retries against the local store
// on any failure. A missing id in the answering store stays a not-found, not
// a storage failure.
func (s *Service) try(ctx context.Context, op string, call func(Store) (Record, error)) (Record, error) {
	if s.remote == nil {
		return call(s.local)
	}
	rec, rerr := call(s.remote)
	if rerr == nil {
		return rec, nil
	}
	s.log.WithError(rerr).WithField("op", op).Warn("remote store unavailable, falling back to local store")
	rec, lerr := call(s.local)
	if lerr == nil {
		return rec, nil
	}
	if errors.Is(lerr, ErrNotFound) {
		return Record{}, lerr
	}
	return Record{}, &StorageError{Remote: rerr, Local: lerr}
}
