package store

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// failingStore answers every call with the same error.
type failingStore struct{ err error }

func (f *failingStore) Create(context.Context, Record, []File) (Record, error) {
	return Record{}, f.err
}
func (f *failingStore) List(context.Context) ([]Record, error) { return nil, f.err }
func (f *failingStore) UpdateStatus(context.Context, string, string, *string) (Record, error) {
	return Record{}, f.err
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func validInput() CreateInput {
	return CreateInput{
		Username: "tester",
		Plan:     10000,
		Total:    15000,
		Files:    []File{testFile("receipt.jpg")},
	}
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(nil, newTestLocal(t), testLogger())
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*CreateInput)
	}{
		{"empty username", func(in *CreateInput) { in.Username = "   " }},
		{"unknown plan", func(in *CreateInput) { in.Plan = 12345; in.Total = 20000 }},
		{"negative total", func(in *CreateInput) { in.Total = -1 }},
		{"total below plan", func(in *CreateInput) { in.Total = 5000 }},
		{"no files", func(in *CreateInput) { in.Files = nil }},
		{"non-image file", func(in *CreateInput) {
			in.Files = []File{{Name: "a.txt", ContentType: "text/plain", Data: []byte("x")}}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)
			_, err := svc.Create(ctx, in)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
		})
	}

	// the below-plan message must name the minimum turnover problem
	in := validInput()
	in.Total = 5000
	_, err := svc.Create(ctx, in)
	require.ErrorContains(t, err, "below the plan minimum turnover")
}

func TestCreateLocalOnly(t *testing.T) {
	svc := NewService(nil, newTestLocal(t), testLogger())

	rec, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	require.NotEmpty(t, rec.ID)
	require.Equal(t, StatusPending, rec.Status)
	require.Nil(t, rec.Note)
	require.Len(t, rec.Photos, 1)
	require.GreaterOrEqual(t, rec.Total, rec.Plan)
	require.Equal(t, DayKey(time.Now()), rec.Date)
	_, err = time.Parse(time.RFC3339, rec.CreatedAt)
	require.NoError(t, err)
}

func TestCreateFallsBackToLocal(t *testing.T) {
	local := newTestLocal(t)
	svc := NewService(&failingStore{err: errors.New("connection refused")}, local, testLogger())
	ctx := context.Background()

	rec, err := svc.Create(ctx, validInput())
	require.NoError(t, err)
	require.Equal(t, StatusPending, rec.Status)
	require.Len(t, rec.Photos, 1)

	// the fallback record must be readable through the same service
	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, rec, list[0])
}

func TestListIdempotent(t *testing.T) {
	svc := NewService(&failingStore{err: errors.New("boom")}, newTestLocal(t), testLogger())
	ctx := context.Background()

	_, err := svc.Create(ctx, validInput())
	require.NoError(t, err)
	in := validInput()
	in.Plan, in.Total = 30000, 42000
	_, err = svc.Create(ctx, in)
	require.NoError(t, err)

	first, err := svc.List(ctx)
	require.NoError(t, err)
	second, err := svc.List(ctx)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Len(t, first, 2)
}

func TestUpdateStatusFallback(t *testing.T) {
	local := newTestLocal(t)
	svc := NewService(&failingStore{err: errors.New("boom")}, local, testLogger())
	ctx := context.Background()

	rec, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	note := "duplicate photo"
	updated, err := svc.UpdateStatus(ctx, rec.ID, StatusRejected, &note)
	require.NoError(t, err)
	require.Equal(t, StatusRejected, updated.Status)
	require.Equal(t, "duplicate photo", *updated.Note)
}

func TestUpdateStatusInvalid(t *testing.T) {
	svc := NewService(nil, newTestLocal(t), testLogger())
	_, err := svc.UpdateStatus(context.Background(), "x_1", "archived", nil)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestUpdateStatusNotFound(t *testing.T) {
	// not-found must surface as ErrNotFound whichever backend answers
	svc := NewService(&failingStore{err: errors.New("boom")}, newTestLocal(t), testLogger())
	_, err := svc.UpdateStatus(context.Background(), "missing_1", StatusApproved, nil)
	require.ErrorIs(t, err, ErrNotFound)

	svc = NewService(nil, newTestLocal(t), testLogger())
	_, err = svc.UpdateStatus(context.Background(), "missing_1", StatusApproved, nil)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestBothStoresFailing(t *testing.T) {
	remoteErr := errors.New("remote down")
	localErr := errors.New("disk full")
	svc := NewService(&failingStore{err: remoteErr}, &failingStore{err: localErr}, testLogger())
	ctx := context.Background()

	_, err := svc.Create(ctx, validInput())
	var serr *StorageError
	require.ErrorAs(t, err, &serr)
	require.Equal(t, remoteErr, serr.Remote)
	require.Equal(t, localErr, serr.Local)

	_, err = svc.List(ctx)
	require.ErrorAs(t, err, &serr)

	_, err = svc.UpdateStatus(ctx, "x_1", StatusApproved, nil)
	require.ErrorAs(t, err, &serr)
}

func TestAfterCreateHook(t *testing.T) {
	done := make(chan Record, 1)
	svc := NewService(nil, newTestLocal(t), testLogger(),
		WithAfterCreate(func(rec Record, files []File) { done <- rec }))

	rec, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	select {
	case got := <-done:
		require.Equal(t, rec.ID, got.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("after-create hook was not invoked")
	}
}
