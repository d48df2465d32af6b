package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"classifieds_backend/internal/adapters/storage"
	"classifieds_backend/internal/ads/query"
	"classifieds_backend/internal/ads/repository"
	"classifieds_backend/internal/ads/transport"
	"classifieds_backend/internal/categories"
	"classifieds_backend/internal/events"
	"classifieds_backend/platform/apperr"
	"classifieds_backend/platform/logger"

	"github.com/google/uuid"
)

type testConfig struct{}

func (testConfig) GetAppBaseURL() string         { return "https://classifieds.test/" }
func (testConfig) GetPhoneDefaultRegion() string { return "FR" }
func (testConfig) GetStorageMaxFileSize() int64  { return 1 << 20 }

type memoryRepo struct {
	mu        sync.Mutex
	nextID    int64
	ads       map[int64]repository.Ad
	cats      map[int32]string
	uploads   map[string]uuid.UUID
	recordErr error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		ads:     make(map[int64]repository.Ad),
		cats:    map[int32]string{1: "VEHICLES", 2: "ELECTRONICS"},
		uploads: make(map[string]uuid.UUID),
	}
}

func (m *memoryRepo) grant(owner uuid.UUID, keys ...string) {
	if err := m.RecordUploads(context.Background(), owner, keys); err != nil {
		panic(err)
	}
}

func (m *memoryRepo) Create(_ context.Context, p repository.CreateParams) (repository.Ad, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	now := time.Now().UTC()
	ad := repository.Ad{
		ID: m.nextID, Title: p.Title, Description: p.Description, Price: p.Price, Images: p.Images,
		CategoryID: p.CategoryID, Category: m.cats[p.CategoryID], UserID: p.UserID, UserEmail: "owner@example.com",
		ContactPhone: p.ContactPhone, CreatedAt: now, UpdatedAt: now,
	}
	m.ads[ad.ID] = ad
	return ad, nil
}

func (m *memoryRepo) GetByID(_ context.Context, id int64) (repository.Ad, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ad, ok := m.ads[id]
	if !ok {
		return repository.Ad{}, apperr.NotFound("ad not found")
	}
	return ad, nil
}

func (m *memoryRepo) Update(_ context.Context, p repository.UpdateParams) (repository.Ad, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ad, ok := m.ads[p.ID]
	if !ok {
		return repository.Ad{}, apperr.NotFound("ad not found")
	}
	ad.Title, ad.Description, ad.Price, ad.Images = p.Title, p.Description, p.Price, p.Images
	ad.CategoryID, ad.Category, ad.ContactPhone = p.CategoryID, m.cats[p.CategoryID], p.ContactPhone
	ad.UpdatedAt = time.Now().UTC()
	m.ads[p.ID] = ad
	return ad, nil
}

func (m *memoryRepo) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ads[id]; !ok {
		return apperr.NotFound("ad not found")
	}
	delete(m.ads, id)
	return nil
}

func (m *memoryRepo) Search(_ context.Context, filter query.Filter, page query.PageRequest) (query.Page[repository.Ad], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	matched := make([]repository.Ad, 0)
	for _, ad := range m.ads {
		if filter.Matches(ad.Listing()) {
			matched = append(matched, ad)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	start := int(page.Offset())
	if start > len(matched) {
		start = len(matched)
	}
	end := start + page.Size
	if end > len(matched) {
		end = len(matched)
	}
	return query.NewPage(matched[start:end], page, int64(len(matched))), nil
}

func (m *memoryRepo) RecordUploads(_ context.Context, userID uuid.UUID, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.recordErr != nil {
		return m.recordErr
	}
	for _, key := range keys {
		if _, ok := m.uploads[key]; !ok {
			m.uploads[key] = userID
		}
	}
	return nil
}

func (m *memoryRepo) ForeignImages(_ context.Context, userID uuid.UUID, keys []string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	foreign := make([]string, 0)
	for _, key := range keys {
		if owner, ok := m.uploads[key]; !ok || owner != userID {
			foreign = append(foreign, key)
		}
	}
	return foreign, nil
}

func (m *memoryRepo) ReferencedImages(_ context.Context, keys []string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	referenced := make([]string, 0)
	for _, key := range keys {
		for _, ad := range m.ads {
			if containsKey(ad.Images, key) {
				referenced = append(referenced, key)
				break
			}
		}
	}
	return referenced, nil
}

func containsKey(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}

type fakeCategories struct{}

func (fakeCategories) Resolve(_ context.Context, name string) (categories.Category, error) {
	switch name {
	case "VEHICLES":
		return categories.Category{ID: 1, Name: name}, nil
	case "ELECTRONICS":
		return categories.Category{ID: 2, Name: name}, nil
	}
	return categories.Category{}, apperr.NotFound("category not found: " + name)
}

type fakeStorage struct {
	mu       sync.Mutex
	uploaded []string
	deleted  []string
	failPut  bool
}

func (f *fakeStorage) EnsureBucketExists(context.Context) error { return nil }

func (f *fakeStorage) Upload(_ context.Context, file storage.Upload) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPut {
		return "", apperr.Internal("unable to upload image")
	}
	key := "ads/2024/01/01/" + file.Filename
	f.uploaded = append(f.uploaded, key)
	return key, nil
}

func (f *fakeStorage) UploadBatch(ctx context.Context, files []storage.Upload) ([]string, error) {
	keys := make([]string, 0, len(files))
	for _, file := range files {
		key, err := f.Upload(ctx, file)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (f *fakeStorage) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeStorage) DeleteBatch(ctx context.Context, keys []string) error {
	for _, key := range keys {
		if err := f.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeStorage) PresignedGetURL(_ context.Context, key string) (string, error) {
	if key == "" {
		return "", nil
	}
	return "https://cdn.test/" + key + "?sig=1", nil
}

func (f *fakeStorage) PresignedGetURLs(ctx context.Context, keys []string) ([]string, error) {
	urls := make([]string, 0, len(keys))
	for _, key := range keys {
		u, _ := f.PresignedGetURL(ctx, key)
		urls = append(urls, u)
	}
	return urls, nil
}

type recordingCleaner struct {
	mu   sync.Mutex
	keys [][]string
	err  error
}

func (r *recordingCleaner) ScheduleImageCleanup(_ context.Context, keys []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, keys)
	return r.err
}

type fixture struct {
	svc     *Service
	repo    *memoryRepo
	store   *fakeStorage
	cleaner *recordingCleaner
	bus     *events.InMemoryBus
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	log := logger.New("test")
	f := fixture{
		repo:    newMemoryRepo(),
		store:   &fakeStorage{},
		cleaner: &recordingCleaner{},
		bus:     events.NewInMemoryBus(log),
	}
	f.svc = New(f.repo, fakeCategories{}, f.store, f.cleaner, f.bus, testConfig{}, log)
	return f
}

func price(v int64) *int64 { return &v }

func intPtr(v int) *int { return &v }

func adRequest(title string, p int64, category string, images ...string) transport.AdRequest {
	return transport.AdRequest{Title: title, Description: "desc", Price: price(p), Category: category, Images: images}
}

func TestCreatePublishesEventAndPresignsImages(t *testing.T) {
	f := newFixture(t)
	var mu sync.Mutex
	var published []events.AdPublished
	f.bus.Subscribe(events.AdPublished{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		published = append(published, e.(events.AdPublished))
		return nil
	}))

	owner := uuid.New()
	f.repo.grant(owner, "ads/a.png", "ads/b.png")
	req := adRequest("  Road bike  ", 250, "VEHICLES", "ads/a.png", " ", "ads/a.png", "ads/b.png")
	req.ContactPhone = "06 12 34 56 78"

	resp, err := f.svc.Create(context.Background(), owner, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.bus.Wait()

	if resp.Title != "Road bike" || resp.Category != "VEHICLES" || resp.UserID != owner.String() {
		t.Fatalf("unexpected response %+v", resp)
	}
	if len(resp.Images) != 2 || resp.ImageURLs[1] != "https://cdn.test/ads/b.png?sig=1" {
		t.Fatalf("expected deduplicated images with urls, got %v / %v", resp.Images, resp.ImageURLs)
	}
	if resp.ContactPhone == nil || *resp.ContactPhone != "+33612345678" {
		t.Fatalf("expected normalized phone, got %v", resp.ContactPhone)
	}
	if len(published) != 1 || published[0].AdID != resp.ID || published[0].OwnerMail != "owner@example.com" {
		t.Fatalf("expected one AdPublished event, got %+v", published)
	}
}

func TestCreateRejectsUnknownCategoryAndBadPhone(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), uuid.New(), adRequest("x", 1, "SPACESHIPS"))
	if apperr.GetKind(err) != apperr.KindNotFound {
		t.Fatalf("expected not found for unknown category, got %v", err)
	}

	_, err = f.svc.Create(context.Background(), uuid.New(), adRequest("<b></b>", 1, "VEHICLES"))
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("expected validation error for markup-only title, got %v", err)
	}

	req := adRequest("x", 1, "VEHICLES")
	req.ContactPhone = "12"
	_, err = f.svc.Create(context.Background(), uuid.New(), req)
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("expected validation error for bad phone, got %v", err)
	}
}

func TestUpdateChecksOwnerAndCleansRemovedImages(t *testing.T) {
	f := newFixture(t)
	owner := uuid.New()
	f.repo.grant(owner, "k1", "k2", "k3", "k4")
	created, err := f.svc.Create(context.Background(), owner, adRequest("Phone", 100, "ELECTRONICS", "k1", "k2", "k3"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = f.svc.Update(context.Background(), created.ID, uuid.New(), adRequest("Stolen", 1, "ELECTRONICS"))
	if apperr.GetKind(err) != apperr.KindForbidden {
		t.Fatalf("expected forbidden for non-owner, got %v", err)
	}

	updated, err := f.svc.Update(context.Background(), created.ID, owner, adRequest("Phone v2", 90, "VEHICLES", "k2", "k4"))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "Phone v2" || updated.Category != "VEHICLES" || updated.Price != 90 {
		t.Fatalf("unexpected update result %+v", updated)
	}
	if len(f.cleaner.keys) != 1 || strings.Join(f.cleaner.keys[0], ",") != "k1,k3" {
		t.Fatalf("expected k1,k3 to be cleaned, got %v", f.cleaner.keys)
	}
}

func TestDeleteReturnsAdAndSchedulesCleanup(t *testing.T) {
	f := newFixture(t)
	owner := uuid.New()
	f.repo.grant(owner, "k1")
	created, _ := f.svc.Create(context.Background(), owner, adRequest("Lamp", 10, "ELECTRONICS", "k1"))

	if _, err := f.svc.Delete(context.Background(), created.ID, uuid.New()); apperr.GetKind(err) != apperr.KindForbidden {
		t.Fatalf("expected forbidden for non-owner, got %v", err)
	}

	deleted, err := f.svc.Delete(context.Background(), created.ID, owner)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted.ID != created.ID || len(deleted.ImageURLs) != 0 {
		t.Fatalf("unexpected delete response %+v", deleted)
	}
	if len(f.cleaner.keys) != 1 || f.cleaner.keys[0][0] != "k1" {
		t.Fatalf("expected k1 cleanup, got %v", f.cleaner.keys)
	}
	if _, err := f.svc.Get(context.Background(), created.ID); apperr.GetKind(err) != apperr.KindNotFound {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestDeleteSucceedsWhenCleanupFails(t *testing.T) {
	f := newFixture(t)
	f.cleaner.err = errors.New("queue down")
	owner := uuid.New()
	f.repo.grant(owner, "k1")
	created, _ := f.svc.Create(context.Background(), owner, adRequest("Lamp", 10, "ELECTRONICS", "k1"))

	if _, err := f.svc.Delete(context.Background(), created.ID, owner); err != nil {
		t.Fatalf("expected delete to succeed, got %v", err)
	}
}

func TestSearchFiltersPagesAndPreviews(t *testing.T) {
	f := newFixture(t)
	owner := uuid.New()
	ctx := context.Background()
	f.repo.grant(owner, "bike.png")
	_, _ = f.svc.Create(ctx, owner, adRequest("Red bike", 100, "VEHICLES", "bike.png"))
	_, _ = f.svc.Create(ctx, owner, adRequest("Blue bike", 300, "VEHICLES"))
	_, _ = f.svc.Create(ctx, owner, adRequest("Bike lamp", 20, "ELECTRONICS"))

	page, err := f.svc.Search(ctx, transport.SearchAdsRequest{Category: "VEHICLES", Title: "BIKE", MaxPrice: price(200)})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if page.TotalElements != 1 || len(page.Content) != 1 || page.Content[0].Title != "Red bike" {
		t.Fatalf("unexpected page %+v", page)
	}
	if page.Content[0].PreviewURL != "https://cdn.test/bike.png?sig=1" {
		t.Fatalf("expected preview url, got %q", page.Content[0].PreviewURL)
	}
	if page.Size != query.DefaultPageSize || page.Page != 0 {
		t.Fatalf("expected default paging, got page=%d size=%d", page.Page, page.Size)
	}

	all, err := f.svc.Search(ctx, transport.SearchAdsRequest{Size: intPtr(2)})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if all.TotalElements != 3 || all.TotalPages != 2 || all.Content[0].Title != "Bike lamp" {
		t.Fatalf("expected newest first over two pages, got %+v", all)
	}
	if all.Content[0].PreviewURL != "" {
		t.Fatalf("expected no preview for ad without images, got %q", all.Content[0].PreviewURL)
	}
}

func TestSearchRejectsInvalidPage(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Search(context.Background(), transport.SearchAdsRequest{Page: intPtr(-1)})
	if !errors.Is(err, query.ErrInvalidPageRequest) {
		t.Fatalf("expected invalid page request, got %v", err)
	}
}

func TestListByOwnerOnlyReturnsOwnAds(t *testing.T) {
	f := newFixture(t)
	me, other := uuid.New(), uuid.New()
	ctx := context.Background()
	_, _ = f.svc.Create(ctx, me, adRequest("Mine", 1, "VEHICLES"))
	_, _ = f.svc.Create(ctx, other, adRequest("Theirs", 1, "VEHICLES"))

	page, err := f.svc.ListByOwner(ctx, me, transport.PageRequest{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.TotalElements != 1 || page.Content[0].Title != "Mine" {
		t.Fatalf("unexpected page %+v", page)
	}
}

func TestUploadImagesReturnsKeysWithPreviews(t *testing.T) {
	f := newFixture(t)
	owner := uuid.New()
	resp, err := f.svc.UploadImages(context.Background(), owner, []storage.Upload{
		{Filename: "a.png", ContentType: "image/png", Size: 3, Body: strings.NewReader("png")},
		{Filename: "b.jpg", ContentType: "image/jpeg", Size: 3, Body: strings.NewReader("jpg")},
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if len(resp.Images) != 2 || resp.Images[1].ObjectName != "ads/2024/01/01/b.jpg" {
		t.Fatalf("unexpected upload response %+v", resp)
	}
	if resp.Images[0].PreviewURL != "https://cdn.test/ads/2024/01/01/a.png?sig=1" {
		t.Fatalf("unexpected preview url %q", resp.Images[0].PreviewURL)
	}

	if f.repo.uploads["ads/2024/01/01/a.png"] != owner || f.repo.uploads["ads/2024/01/01/b.jpg"] != owner {
		t.Fatalf("expected uploads to be recorded for the owner, got %v", f.repo.uploads)
	}

	if _, err := f.svc.UploadImages(context.Background(), owner, nil); apperr.GetKind(err) != apperr.KindBadRequest {
		t.Fatalf("expected bad request for empty upload, got %v", err)
	}
}

func TestUploadImagesRemovesObjectsWhenOwnershipIsNotRecorded(t *testing.T) {
	f := newFixture(t)
	f.repo.recordErr = errors.New("db down")

	_, err := f.svc.UploadImages(context.Background(), uuid.New(), []storage.Upload{
		{Filename: "a.png", ContentType: "image/png", Size: 3, Body: strings.NewReader("png")},
	})
	if err == nil {
		t.Fatal("expected error when uploads cannot be recorded")
	}
	if strings.Join(f.store.deleted, ",") != "ads/2024/01/01/a.png" {
		t.Fatalf("expected stored object to be removed, got %v", f.store.deleted)
	}
}

func TestAdsCannotReferenceImagesUploadedBySomeoneElse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, mallory := uuid.New(), uuid.New()
	f.repo.grant(alice, "ads/2024/01/01/alice.png")
	f.repo.grant(mallory, "ads/2024/01/01/mallory.png")

	aliceAd, err := f.svc.Create(ctx, alice, adRequest("Chair", 40, "ELECTRONICS", "ads/2024/01/01/alice.png"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = f.svc.Create(ctx, mallory, adRequest("Copy", 1, "ELECTRONICS", "ads/2024/01/01/alice.png"))
	if apperr.GetKind(err) != apperr.KindForbidden {
		t.Fatalf("expected forbidden for a foreign image on create, got %v", err)
	}

	malloryAd, err := f.svc.Create(ctx, mallory, adRequest("Own", 1, "ELECTRONICS", "ads/2024/01/01/mallory.png"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err = f.svc.Update(ctx, malloryAd.ID, mallory, adRequest("Own", 1, "ELECTRONICS", "ads/2024/01/01/alice.png"))
	if apperr.GetKind(err) != apperr.KindForbidden {
		t.Fatalf("expected forbidden for a foreign image on update, got %v", err)
	}

	if _, err := f.svc.Delete(ctx, malloryAd.ID, mallory); err != nil {
		t.Fatalf("delete: %v", err)
	}
	for _, batch := range f.cleaner.keys {
		if containsKey(batch, "ads/2024/01/01/alice.png") {
			t.Fatalf("alice's image must not be cleaned up, got %v", f.cleaner.keys)
		}
	}
	if got, _ := f.svc.Get(ctx, aliceAd.ID); len(got.Images) != 1 {
		t.Fatalf("expected alice's ad to keep its image, got %+v", got)
	}
}

func TestCleanupSkipsImagesStillUsedByAnotherAd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()
	f.repo.grant(owner, "shared.png", "solo.png")

	first, _ := f.svc.Create(ctx, owner, adRequest("First", 1, "VEHICLES", "shared.png", "solo.png"))
	second, _ := f.svc.Create(ctx, owner, adRequest("Second", 1, "VEHICLES", "shared.png"))

	if _, err := f.svc.Update(ctx, first.ID, owner, adRequest("First", 1, "VEHICLES", "solo.png")); err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(f.cleaner.keys) != 0 {
		t.Fatalf("expected no cleanup while second ad uses shared.png, got %v", f.cleaner.keys)
	}

	if _, err := f.svc.Delete(ctx, second.ID, owner); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(f.cleaner.keys) != 1 || strings.Join(f.cleaner.keys[0], ",") != "shared.png" {
		t.Fatalf("expected shared.png cleanup after last reference, got %v", f.cleaner.keys)
	}
}

func TestQRCodeEncodesPublicURL(t *testing.T) {
	f := newFixture(t)
	created, _ := f.svc.Create(context.Background(), uuid.New(), adRequest("Lamp", 10, "ELECTRONICS"))

	png, err := f.svc.QRCode(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("qr: %v", err)
	}
	if len(png) < 8 || string(png[1:4]) != "PNG" {
		t.Fatalf("expected png output")
	}
	if got := f.svc.AdURL(created.ID); got != "https://classifieds.test/ads/1" {
		t.Fatalf("unexpected ad url %q", got)
	}

	if _, err := f.svc.QRCode(context.Background(), 999); apperr.GetKind(err) != apperr.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestInlineImageCleanerDeletesThroughStorage(t *testing.T) {
	store := &fakeStorage{}
	if err := NewInlineImageCleaner(store).ScheduleImageCleanup(context.Background(), []string{"a", "b"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Join(store.deleted, ",") != "a,b" {
		t.Fatalf("expected a,b deleted, got %v", store.deleted)
	}
}
