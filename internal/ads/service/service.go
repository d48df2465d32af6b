package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"classifieds_backend/internal/adapters/storage"
	"classifieds_backend/internal/ads/query"
	"classifieds_backend/internal/ads/repository"
	"classifieds_backend/internal/ads/transport"
	"classifieds_backend/internal/categories"
	"classifieds_backend/internal/events"
	"classifieds_backend/platform/apperr"
	"classifieds_backend/platform/config"
	"classifieds_backend/platform/logger"
	"classifieds_backend/platform/phone"
	"classifieds_backend/platform/sanitize"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"
)

const qrCodeSize = 256

// CategoryResolver maps a category name to its stored row.
type CategoryResolver interface {
	Resolve(ctx context.Context, name string) (categories.Category, error)
}

// ImageCleaner disposes of object keys no ad references any more.
type ImageCleaner interface {
	ScheduleImageCleanup(ctx context.Context, keys []string) error
}

// Service provides business logic for ads.
type Service struct {
	repo       repository.Repository
	categories CategoryResolver
	storage    storage.ObjectStorage
	cleaner    ImageCleaner
	bus        events.Bus
	cfg        config.AdsConfig
	log        *logger.Logger
}

// New creates a new ads service.
func New(
	repo repository.Repository,
	cats CategoryResolver,
	store storage.ObjectStorage,
	cleaner ImageCleaner,
	bus events.Bus,
	cfg config.AdsConfig,
	log *logger.Logger,
) *Service {
	return &Service{
		repo:       repo,
		categories: cats,
		storage:    store,
		cleaner:    cleaner,
		bus:        bus,
		cfg:        cfg,
		log:        log,
	}
}

// Create stores a new ad owned by ownerID.
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, req transport.AdRequest) (transport.AdResponse, error) {
	category, contactPhone, err := s.resolveInputs(ctx, req)
	if err != nil {
		return transport.AdResponse{}, err
	}

	images := cleanKeys(req.Images)
	if err := s.checkImageOwnership(ctx, ownerID, images, nil); err != nil {
		return transport.AdResponse{}, err
	}

	ad, err := s.repo.Create(ctx, repository.CreateParams{
		Title:        sanitize.Line(req.Title),
		Description:  sanitize.Text(req.Description),
		Price:        *req.Price,
		Images:       images,
		CategoryID:   category.ID,
		UserID:       ownerID,
		ContactPhone: contactPhone,
	})
	if err != nil {
		return transport.AdResponse{}, err
	}

	s.log.Info("ad created", "id", ad.ID, "owner", ownerID, "category", ad.Category)
	s.bus.Publish(ctx, events.AdPublished{
		BaseEvent: events.NewBaseEvent(),
		AdID:      ad.ID,
		Title:     ad.Title,
		OwnerID:   ad.UserID,
		OwnerMail: ad.UserEmail,
		Category:  ad.Category,
	})

	return s.toAdResponse(ctx, ad)
}

// Get returns one ad with presigned image URLs.
func (s *Service) Get(ctx context.Context, id int64) (transport.AdResponse, error) {
	ad, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.AdResponse{}, err
	}
	return s.toAdResponse(ctx, ad)
}

// Update replaces an ad. Only the owner may update it. Images dropped by the
// update are handed to the cleaner.
func (s *Service) Update(ctx context.Context, id int64, ownerID uuid.UUID, req transport.AdRequest) (transport.AdResponse, error) {
	existing, err := s.ownedAd(ctx, id, ownerID, "update")
	if err != nil {
		return transport.AdResponse{}, err
	}

	category, contactPhone, err := s.resolveInputs(ctx, req)
	if err != nil {
		return transport.AdResponse{}, err
	}

	images := cleanKeys(req.Images)
	if err := s.checkImageOwnership(ctx, ownerID, images, existing.Images); err != nil {
		return transport.AdResponse{}, err
	}

	ad, err := s.repo.Update(ctx, repository.UpdateParams{
		ID:           id,
		Title:        sanitize.Line(req.Title),
		Description:  sanitize.Text(req.Description),
		Price:        *req.Price,
		Images:       images,
		CategoryID:   category.ID,
		ContactPhone: contactPhone,
	})
	if err != nil {
		return transport.AdResponse{}, err
	}

	s.log.Info("ad updated", "id", ad.ID, "owner", ownerID)
	s.cleanup(ctx, removedKeys(existing.Images, images))

	return s.toAdResponse(ctx, ad)
}

// Delete removes an ad owned by ownerID and returns what was deleted.
func (s *Service) Delete(ctx context.Context, id int64, ownerID uuid.UUID) (transport.AdResponse, error) {
	ad, err := s.ownedAd(ctx, id, ownerID, "delete")
	if err != nil {
		return transport.AdResponse{}, err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return transport.AdResponse{}, err
	}

	s.log.Info("ad deleted", "id", id, "owner", ownerID)
	s.bus.Publish(ctx, events.AdDeleted{
		BaseEvent: events.NewBaseEvent(),
		AdID:      id,
		OwnerID:   ownerID,
		Images:    ad.Images,
	})
	s.cleanup(ctx, ad.Images)

	resp := toAdResponse(ad)
	resp.ImageURLs = []string{}
	return resp, nil
}

// Search lists ads matching the optional filters, newest first.
func (s *Service) Search(ctx context.Context, req transport.SearchAdsRequest) (transport.AdPageResponse, error) {
	filter := query.NewFilter(query.Criteria{
		Category: strings.TrimSpace(req.Category),
		Title:    req.Title,
		MinPrice: req.MinPrice,
		MaxPrice: req.MaxPrice,
	})
	return s.list(ctx, filter, pageRequest(req.Page, req.Size))
}

// ListByOwner lists the ads of ownerID, newest first.
func (s *Service) ListByOwner(ctx context.Context, ownerID uuid.UUID, req transport.PageRequest) (transport.AdPageResponse, error) {
	filter := query.NewFilter(query.Criteria{OwnerID: &ownerID})
	return s.list(ctx, filter, pageRequest(req.Page, req.Size))
}

func (s *Service) list(ctx context.Context, filter query.Filter, page query.PageRequest) (transport.AdPageResponse, error) {
	if err := page.Validate(); err != nil {
		return transport.AdPageResponse{}, err
	}

	result, err := s.repo.Search(ctx, filter, page)
	if err != nil {
		return transport.AdPageResponse{}, err
	}

	previewKeys := make([]string, 0, len(result.Items))
	for _, ad := range result.Items {
		previewKeys = append(previewKeys, firstKey(ad.Images))
	}
	previews, err := s.storage.PresignedGetURLs(ctx, previewKeys)
	if err != nil {
		return transport.AdPageResponse{}, err
	}

	i := 0
	summaries := query.Map(result, func(ad repository.Ad) transport.AdSummary {
		summary := toAdSummary(ad, previews[i])
		i++
		return summary
	})

	return transport.AdPageResponse{
		Content:       summaries.Items,
		Page:          summaries.Page,
		Size:          summaries.Size,
		TotalElements: summaries.TotalElements,
		TotalPages:    summaries.TotalPages,
	}, nil
}

// UploadImages stores files for ownerID and returns their keys with preview
// URLs. Only the uploader may attach the returned keys to an ad.
func (s *Service) UploadImages(ctx context.Context, ownerID uuid.UUID, files []storage.Upload) (transport.UploadImagesResponse, error) {
	if len(files) == 0 {
		return transport.UploadImagesResponse{}, apperr.BadRequest("at least one file is required")
	}

	keys, err := s.storage.UploadBatch(ctx, files)
	if err != nil {
		return transport.UploadImagesResponse{}, err
	}

	if err := s.repo.RecordUploads(ctx, ownerID, keys); err != nil {
		if delErr := s.storage.DeleteBatch(ctx, keys); delErr != nil {
			s.log.Error("failed to remove unrecorded uploads", "keys", keys, "error", delErr)
		}
		return transport.UploadImagesResponse{}, err
	}

	urls, err := s.storage.PresignedGetURLs(ctx, keys)
	if err != nil {
		return transport.UploadImagesResponse{}, err
	}

	images := make([]transport.UploadedImage, 0, len(keys))
	for i, key := range keys {
		images = append(images, transport.UploadedImage{ObjectName: key, PreviewURL: urls[i]})
	}

	s.log.Info("ad images uploaded", "owner", ownerID, "count", len(images))
	return transport.UploadImagesResponse{Images: images}, nil
}

// QRCode renders a PNG QR code pointing at the public page of an ad.
func (s *Service) QRCode(ctx context.Context, id int64) ([]byte, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}

	png, err := qrcode.Encode(s.AdURL(id), qrcode.Medium, qrCodeSize)
	if err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}
	return png, nil
}

// AdURL is the public page of an ad.
func (s *Service) AdURL(id int64) string {
	return fmt.Sprintf("%s/ads/%d", strings.TrimRight(s.cfg.GetAppBaseURL(), "/"), id)
}

func (s *Service) ownedAd(ctx context.Context, id int64, ownerID uuid.UUID, action string) (repository.Ad, error) {
	ad, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return repository.Ad{}, err
	}
	if ad.UserID != ownerID {
		return repository.Ad{}, apperr.Forbidden("you can only " + action + " your own ads")
	}
	return ad, nil
}

func (s *Service) resolveInputs(ctx context.Context, req transport.AdRequest) (categories.Category, *string, error) {
	if sanitize.Line(req.Title) == "" {
		return categories.Category{}, nil, apperr.Validation("title must contain text")
	}

	category, err := s.categories.Resolve(ctx, req.Category)
	if err != nil {
		return categories.Category{}, nil, err
	}

	normalized, err := phone.NormalizeE164(req.ContactPhone, s.cfg.GetPhoneDefaultRegion())
	if err != nil {
		if errors.Is(err, phone.ErrInvalidNumber) {
			return categories.Category{}, nil, apperr.Validation("invalid contact phone number")
		}
		return categories.Category{}, nil, err
	}
	if normalized == "" {
		return category, nil, nil
	}
	return category, &normalized, nil
}

// checkImageOwnership rejects keys ownerID did not upload. Keys listed in
// attached are already on the ad being edited and pass unchecked.
func (s *Service) checkImageOwnership(ctx context.Context, ownerID uuid.UUID, images, attached []string) error {
	candidates := removedKeys(images, attached)
	if len(candidates) == 0 {
		return nil
	}

	foreign, err := s.repo.ForeignImages(ctx, ownerID, candidates)
	if err != nil {
		return err
	}
	if len(foreign) > 0 {
		return apperr.Forbidden("images must be uploaded by the ad owner").
			WithDetails(map[string]interface{}{"images": foreign})
	}
	return nil
}

// cleanup hands keys no ad references any more to the cleaner. Failures are
// logged; the ad change has already been committed.
func (s *Service) cleanup(ctx context.Context, keys []string) {
	if len(keys) == 0 || s.cleaner == nil {
		return
	}

	referenced, err := s.repo.ReferencedImages(ctx, keys)
	if err != nil {
		s.log.Error("failed to check image references; skipping cleanup", "keys", keys, "error", err)
		return
	}
	keys = removedKeys(keys, referenced)
	if len(keys) == 0 {
		return
	}

	if err := s.cleaner.ScheduleImageCleanup(ctx, keys); err != nil {
		s.log.Error("failed to schedule image cleanup", "keys", keys, "error", err)
	}
}

func (s *Service) toAdResponse(ctx context.Context, ad repository.Ad) (transport.AdResponse, error) {
	urls, err := s.storage.PresignedGetURLs(ctx, ad.Images)
	if err != nil {
		return transport.AdResponse{}, err
	}
	resp := toAdResponse(ad)
	resp.ImageURLs = urls
	return resp, nil
}

func toAdResponse(ad repository.Ad) transport.AdResponse {
	return transport.AdResponse{
		ID:           ad.ID,
		Title:        ad.Title,
		Description:  ad.Description,
		Price:        ad.Price,
		Images:       ad.Images,
		Category:     ad.Category,
		UserID:       ad.UserID.String(),
		UserEmail:    ad.UserEmail,
		ContactPhone: ad.ContactPhone,
		CreatedAt:    ad.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    ad.UpdatedAt.Format(time.RFC3339),
	}
}

func toAdSummary(ad repository.Ad, previewURL string) transport.AdSummary {
	return transport.AdSummary{
		ID:         ad.ID,
		Title:      ad.Title,
		Price:      ad.Price,
		Category:   ad.Category,
		UserID:     ad.UserID.String(),
		PreviewURL: previewURL,
		CreatedAt:  ad.CreatedAt.Format(time.RFC3339),
	}
}

func pageRequest(page, size *int) query.PageRequest {
	req := query.PageRequest{Page: 0, Size: query.DefaultPageSize}
	if page != nil {
		req.Page = *page
	}
	if size != nil {
		req.Size = *size
	}
	return req
}

func firstKey(keys []string) string {
	if len(keys) == 0 {
		return ""
	}
	return keys[0]
}

// cleanKeys trims keys and drops blanks and duplicates, keeping order.
func cleanKeys(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}

// removedKeys returns the keys of before that are absent from after, in order.
func removedKeys(before, after []string) []string {
	kept := make(map[string]struct{}, len(after))
	for _, key := range after {
		kept[key] = struct{}{}
	}
	removed := make([]string, 0)
	for _, key := range before {
		if _, ok := kept[key]; !ok {
			removed = append(removed, key)
		}
	}
	return removed
}
