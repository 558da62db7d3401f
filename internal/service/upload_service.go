package service

import (
	"context"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "civicwatch/internal/errors"
	"civicwatch/internal/model"
	"civicwatch/internal/storage"
)

// UploadFile is one binary attachment of a report submission.
type UploadFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// UploadService orchestrates image batches against remote object storage.
// A batch is all-or-nothing: the caller either gets a reference for every
// file, in input order, or an error and no references.
type UploadService interface {
	Upload(ctx context.Context, files []UploadFile) ([]model.ReportImage, error)
	Discard(ctx context.Context, urls []string)
}

type uploadService struct {
	store storage.ObjectStore
}

// NewUploadService creates an upload orchestrator over the given store.
func NewUploadService(store storage.ObjectStore) UploadService {
	return &uploadService{store: store}
}

// Upload stores every file concurrently and returns the references in input
// order. An empty batch is a valid no-op. An empty blob fails the batch
// before anything is sent; a remote failure fails the batch and already
// stored siblings are discarded best-effort.
func (s *uploadService) Upload(ctx context.Context, files []UploadFile) ([]model.ReportImage, error) {
	if len(files) == 0 {
		return []model.ReportImage{}, nil
	}

	for i, f := range files {
		if len(f.Data) == 0 {
			return nil, &apperrors.EmptyFileError{Index: i, Name: f.Name}
		}
	}

	images := make([]model.ReportImage, len(files))
	g, gctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(func() error {
			url, err := s.store.Store(gctx, f.Data, f.ContentType)
			if err != nil {
				return &apperrors.UploadFailedError{Name: f.Name, Err: err}
			}
			images[i] = model.ReportImage{URL: url, UploadedAt: time.Now().UTC()}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		var stored []string
		for _, img := range images {
			if img.URL != "" {
				stored = append(stored, img.URL)
			}
		}
		s.Discard(ctx, stored)
		return nil, err
	}
	return images, nil
}

// Discard deletes previously stored references best-effort: failures are
// logged and never propagated, so cleanup cannot fail an owning mutation.
func (s *uploadService) Discard(ctx context.Context, urls []string) {
	for _, url := range urls {
		if url == "" {
			continue
		}
		if err := s.store.Delete(ctx, url); err != nil {
			log.Printf("upload: discard %s: %v", url, err)
		}
	}
}
