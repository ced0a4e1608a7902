package service

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-results-api/internal/models"
	appErrors "github.com/noah-isme/sma-results-api/pkg/errors"
	"github.com/noah-isme/sma-results-api/pkg/storage"
)

type submissionGetter interface {
	Get(ctx context.Context, id string, actor models.Actor) (*models.SubmissionDetail, error)
}

type urlSigner interface {
	Generate(submissionID, key string) (string, time.Time, error)
	Parse(token string) (string, string, error)
}

// FileLink is a time limited download link to an archived score file.
type FileLink struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ArchivedFile streams an archived score file.
type ArchivedFile struct {
	Filename string
	Content  io.ReadCloser
}

// ArchiveService hands out signed links to the original uploads behind submissions.
type ArchiveService struct {
	submissions submissionGetter
	store       storage.ObjectStore
	signer      urlSigner
	baseURL     string
	logger      *zap.Logger
}

// NewArchiveService constructs an ArchiveService. baseURL prefixes generated links.
func NewArchiveService(submissions submissionGetter, store storage.ObjectStore, signer urlSigner, baseURL string, logger *zap.Logger) *ArchiveService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArchiveService{submissions: submissions, store: store, signer: signer, baseURL: baseURL, logger: logger}
}

// Link issues a download link for the file behind a submission the actor may read.
func (s *ArchiveService) Link(ctx context.Context, submissionID string, actor models.Actor) (*FileLink, error) {
	detail, err := s.submissions.Get(ctx, submissionID, actor)
	if err != nil {
		return nil, err
	}
	if detail.FileKey == nil || s.store == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no archived file for this submission")
	}
	token, expiresAt, err := s.signer.Generate(detail.ID, *detail.FileKey)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign file link")
	}
	return &FileLink{URL: fmt.Sprintf("%s/%s", s.baseURL, token), ExpiresAt: expiresAt}, nil
}

// Open resolves a signed token to the archived file.
func (s *ArchiveService) Open(ctx context.Context, token string) (*ArchivedFile, error) {
	if s.store == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "file archive disabled")
	}
	submissionID, key, err := s.signer.Parse(token)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid or expired link")
	}
	content, err := s.store.Open(ctx, key)
	if err != nil {
		s.logger.Warn("archived file unavailable", zap.String("submission_id", submissionID), zap.String("key", key), zap.Error(err))
		return nil, appErrors.Clone(appErrors.ErrNotFound, "archived file not found")
	}
	return &ArchivedFile{Filename: path.Base(key), Content: content}, nil
}
