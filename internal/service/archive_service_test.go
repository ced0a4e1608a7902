package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-results-api/internal/models"
	appErrors "github.com/noah-isme/sma-results-api/pkg/errors"
	"github.com/noah-isme/sma-results-api/pkg/storage"
)

type fixedSubmissionGetter struct {
	detail *models.SubmissionDetail
	err    error
}

func (f fixedSubmissionGetter) Get(ctx context.Context, id string, actor models.Actor) (*models.SubmissionDetail, error) {
	return f.detail, f.err
}

func archivedSubmission(key *string) *models.SubmissionDetail {
	return &models.SubmissionDetail{Submission: models.Submission{ID: "sub-1", FileKey: key}}
}

func TestArchiveLinkRoundTrip(t *testing.T) {
	key := "course-1/2026-10/cs101.csv"
	store := &memoryStore{objects: map[string][]byte{key: []byte("Student ID,Score\n")}}
	svc := NewArchiveService(fixedSubmissionGetter{detail: archivedSubmission(&key)}, store,
		storage.NewSignedURLSigner("secret", time.Minute), "/api/v1/files", nil)

	link, err := svc.Link(context.Background(), "sub-1", adminActor)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(link.URL, "/api/v1/files/"))
	assert.True(t, link.ExpiresAt.After(time.Now()))

	file, err := svc.Open(context.Background(), strings.TrimPrefix(link.URL, "/api/v1/files/"))
	require.NoError(t, err)
	defer file.Content.Close()
	data, err := io.ReadAll(file.Content)
	require.NoError(t, err)
	assert.Equal(t, "cs101.csv", file.Filename)
	assert.Equal(t, "Student ID,Score\n", string(data))
}

func TestArchiveLinkWithoutFile(t *testing.T) {
	svc := NewArchiveService(fixedSubmissionGetter{detail: archivedSubmission(nil)}, &memoryStore{},
		storage.NewSignedURLSigner("secret", time.Minute), "/files", nil)

	_, err := svc.Link(context.Background(), "sub-1", adminActor)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestArchiveLinkPropagatesScoping(t *testing.T) {
	svc := NewArchiveService(fixedSubmissionGetter{err: appErrors.ErrForbidden}, &memoryStore{},
		storage.NewSignedURLSigner("secret", time.Minute), "/files", nil)

	_, err := svc.Link(context.Background(), "sub-1", models.Actor{UserID: "lecturer-2", Role: models.RoleLecturer})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestArchiveOpenRejectsTamperedToken(t *testing.T) {
	key := "course-1/2026-10/cs101.csv"
	signer := storage.NewSignedURLSigner("secret", time.Minute)
	svc := NewArchiveService(fixedSubmissionGetter{}, &memoryStore{}, signer, "/files", nil)

	token, _, err := signer.Generate("sub-1", key)
	require.NoError(t, err)

	_, err = svc.Open(context.Background(), token+"0")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.Open(context.Background(), token)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestArchiveDisabledStore(t *testing.T) {
	svc := NewArchiveService(fixedSubmissionGetter{}, nil, storage.NewSignedURLSigner("secret", time.Minute), "/files", nil)

	_, err := svc.Open(context.Background(), "anything")
	require.Error(t, err)
	assert.False(t, errors.Is(err, appErrors.ErrForbidden))
}
