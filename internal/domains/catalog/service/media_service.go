package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"time"

	"catalog-backend/internal/domains/catalog/repository"
	"catalog-backend/internal/infrastructure/storage"

	"github.com/rs/zerolog/log"
)

// maxImageBytes caps a single downloaded source image.
const maxImageBytes = 10 * 1024 * 1024

// MediaServiceInterface transfers product images from their source URLs
// into object storage and records the gallery.
type MediaServiceInterface interface {
	TransferImages(ctx context.Context, entityID int64, sku string, urls []string) error
}

type mediaService struct {
	mediaRepo repository.MediaRepository
	storage   *storage.MinIOStorage
	processor *storage.ImageProcessor
	client    *http.Client
}

// NewMediaService creates the media transfer service.
func NewMediaService(mediaRepo repository.MediaRepository, minioStorage *storage.MinIOStorage, processor *storage.ImageProcessor) MediaServiceInterface {
	return &mediaService{
		mediaRepo: mediaRepo,
		storage:   minioStorage,
		processor: processor,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

// TransferImages downloads every source URL, validates it, uploads the
// original plus resized variants, and replaces the product's gallery rows
// with the stored original URLs. All-or-nothing per product: one bad image
// fails the task so asynq retries the whole transfer.
func (s *mediaService) TransferImages(ctx context.Context, entityID int64, sku string, urls []string) error {
	// Clear objects left by a previous transfer so a retry or re-import
	// never leaves stale variants behind.
	if err := s.storage.RemoveFolder(ctx, fmt.Sprintf("products/%d/", entityID)); err != nil {
		return fmt.Errorf("failed to clear previous media: %w", err)
	}

	stored := make([]string, 0, len(urls))

	for i, srcURL := range urls {
		data, format, err := s.download(ctx, srcURL)
		if err != nil {
			return fmt.Errorf("image %d: %w", i+1, err)
		}
		if err := s.processor.ValidateImage(data); err != nil {
			return fmt.Errorf("image %d: %w", i+1, err)
		}

		key := fmt.Sprintf("products/%d/%d_original.%s", entityID, i, format)
		originalURL, err := s.storage.Upload(ctx, key, data, "image/"+format)
		if err != nil {
			return fmt.Errorf("failed to upload image %d: %w", i+1, err)
		}

		variants, err := s.processor.ProcessImage(data)
		if err != nil {
			return fmt.Errorf("image %d: %w", i+1, err)
		}
		for name, variant := range variants {
			variantKey := fmt.Sprintf("products/%d/%d_%s.jpg", entityID, i, name)
			if _, err := s.storage.Upload(ctx, variantKey, variant, "image/jpeg"); err != nil {
				return fmt.Errorf("failed to upload %s variant of image %d: %w", name, i+1, err)
			}
		}

		stored = append(stored, originalURL)
	}

	if err := s.mediaRepo.ReplaceGalleryEntries(ctx, entityID, stored); err != nil {
		return fmt.Errorf("failed to store gallery entries: %w", err)
	}

	log.Info().
		Int64("entity_id", entityID).
		Str("sku", sku).
		Int("images", len(stored)).
		Msg("Product media transferred")
	return nil
}

func (s *mediaService) download(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("invalid URL: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read: %w", err)
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("not a valid image: %w", err)
	}
	if format != "jpeg" && format != "png" {
		return nil, "", fmt.Errorf("unsupported format: %s (only jpeg/png)", format)
	}
	return data, format, nil
}
