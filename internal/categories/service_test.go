package categories

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"classifieds_backend/platform/apperr"
	"classifieds_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

type memoryRepo struct {
	items []Category
}

func (m *memoryRepo) Count(context.Context) (int, error) { return len(m.items), nil }

func (m *memoryRepo) InsertNames(_ context.Context, names []string) error {
	for _, n := range names {
		m.items = append(m.items, Category{ID: int32(len(m.items) + 1), Name: n})
	}
	return nil
}

func (m *memoryRepo) List(context.Context) ([]Category, error) { return m.items, nil }

func (m *memoryRepo) GetByName(_ context.Context, name string) (Category, error) {
	for _, c := range m.items {
		if c.Name == name {
			return c, nil
		}
	}
	return Category{}, apperr.NotFound("category not found: " + name)
}

func TestSeedOnlyWhenEmpty(t *testing.T) {
	repo := &memoryRepo{}
	svc := NewService(repo, logger.New("test"))

	if err := svc.Seed(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.Seed(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.items) != len(Names()) {
		t.Fatalf("expected %d categories after seeding twice, got %d", len(Names()), len(repo.items))
	}
}

func TestIsKnownIsExact(t *testing.T) {
	if !IsKnown("VEHICLES") {
		t.Fatal("expected VEHICLES to be known")
	}
	if IsKnown("vehicles") || IsKnown("") {
		t.Fatal("expected lookups to be case-sensitive and non-empty")
	}
}

func TestResolveUnknownCategory(t *testing.T) {
	svc := NewService(&memoryRepo{}, logger.New("test"))
	_, err := svc.Resolve(context.Background(), "BOATS")
	if apperr.GetKind(err) != apperr.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListHandlerReturnsNamesInOrder(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &memoryRepo{}
	svc := NewService(repo, logger.New("test"))
	if err := svc.Seed(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	engine := gin.New()
	engine.GET("/categories", NewHandler(svc).List)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/categories", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.HasPrefix(rec.Body.String(), `["VEHICLES","REAL_ESTATE"`) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}
