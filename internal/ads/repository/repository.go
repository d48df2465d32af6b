package repository

import (
	"context"
	"errors"
	"fmt"

	"classifieds_backend/internal/ads/query"
	"classifieds_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

const adNotFoundMessage = "ad not found"

const adColumns = `a.id, a.title, a.description, a.price, a.images, a.category_id, c.name,
		a.user_id, u.email, a.contact_phone, a.created_at, a.updated_at`

const adJoins = `categories c ON c.id = a.category_id
		JOIN users u ON u.id = a.user_id`

var listingSource = query.Source{
	Columns: adColumns,
	From:    "ads a JOIN " + adJoins,
}

// Repo implements the ads repository.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new ads repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

func scanAd(row pgx.Row) (Ad, error) {
	var ad Ad
	err := row.Scan(
		&ad.ID, &ad.Title, &ad.Description, &ad.Price, &ad.Images, &ad.CategoryID, &ad.Category,
		&ad.UserID, &ad.UserEmail, &ad.ContactPhone, &ad.CreatedAt, &ad.UpdatedAt,
	)
	if ad.Images == nil {
		ad.Images = []string{}
	}
	return ad, err
}

// Create inserts an ad and returns it with category and owner resolved.
func (r *Repo) Create(ctx context.Context, params CreateParams) (Ad, error) {
	q := `
		WITH a AS (
			INSERT INTO ads (title, description, price, images, category_id, user_id, contact_phone)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING *
		)
		SELECT ` + adColumns + `
		FROM a JOIN ` + adJoins

	ad, err := scanAd(r.pool.QueryRow(ctx, q,
		params.Title, params.Description, params.Price, params.Images,
		params.CategoryID, params.UserID, params.ContactPhone,
	))
	if err != nil {
		return Ad{}, fmt.Errorf("create ad: %w", err)
	}
	return ad, nil
}

// GetByID retrieves an ad by ID.
func (r *Repo) GetByID(ctx context.Context, id int64) (Ad, error) {
	q := `SELECT ` + adColumns + ` FROM ads a JOIN ` + adJoins + ` WHERE a.id = $1`

	ad, err := scanAd(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Ad{}, apperr.NotFound(adNotFoundMessage)
		}
		return Ad{}, fmt.Errorf("get ad by id: %w", err)
	}
	return ad, nil
}

// Update replaces an ad's editable fields.
func (r *Repo) Update(ctx context.Context, params UpdateParams) (Ad, error) {
	q := `
		WITH a AS (
			UPDATE ads
			SET title = $2,
				description = $3,
				price = $4,
				images = $5,
				category_id = $6,
				contact_phone = $7,
				updated_at = now()
			WHERE id = $1
			RETURNING *
		)
		SELECT ` + adColumns + `
		FROM a JOIN ` + adJoins

	ad, err := scanAd(r.pool.QueryRow(ctx, q,
		params.ID, params.Title, params.Description, params.Price, params.Images,
		params.CategoryID, params.ContactPhone,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Ad{}, apperr.NotFound(adNotFoundMessage)
		}
		return Ad{}, fmt.Errorf("update ad: %w", err)
	}
	return ad, nil
}

// Delete removes an ad.
func (r *Repo) Delete(ctx context.Context, id int64) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM ads WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete ad: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(adNotFoundMessage)
	}
	return nil
}

// Search runs the count and the page query concurrently.
func (r *Repo) Search(ctx context.Context, filter query.Filter, page query.PageRequest) (query.Page[Ad], error) {
	stmt, err := query.Build(listingSource, filter, page)
	if err != nil {
		return query.Page[Ad]{}, err
	}

	var total int64
	var items []Ad

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := r.pool.QueryRow(gctx, stmt.CountSQL, stmt.CountArgs...).Scan(&total); err != nil {
			return fmt.Errorf("count ads: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		rows, err := r.pool.Query(gctx, stmt.ListSQL, stmt.ListArgs...)
		if err != nil {
			return fmt.Errorf("search ads: %w", err)
		}
		defer rows.Close()

		items = make([]Ad, 0, min(page.Size, 100))
		for rows.Next() {
			ad, err := scanAd(rows)
			if err != nil {
				return fmt.Errorf("scan ad: %w", err)
			}
			items = append(items, ad)
		}
		if rows.Err() != nil {
			return fmt.Errorf("iterate ads: %w", rows.Err())
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return query.Page[Ad]{}, err
	}

	return query.NewPage(items, page, total), nil
}

// RecordUploads registers userID as the uploader of keys.
func (r *Repo) RecordUploads(ctx context.Context, userID uuid.UUID, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	q := `
		INSERT INTO ad_uploads (object_key, user_id)
		SELECT k, $1 FROM unnest($2::text[]) AS k
		ON CONFLICT (object_key) DO NOTHING`

	if _, err := r.pool.Exec(ctx, q, userID, keys); err != nil {
		return fmt.Errorf("record uploads: %w", err)
	}
	return nil
}

// ForeignImages returns the keys userID did not upload, in input order.
func (r *Repo) ForeignImages(ctx context.Context, userID uuid.UUID, keys []string) ([]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	q := `
		SELECT t.k
		FROM unnest($2::text[]) WITH ORDINALITY AS t(k, ord)
		WHERE NOT EXISTS (
			SELECT 1 FROM ad_uploads u WHERE u.object_key = t.k AND u.user_id = $1
		)
		ORDER BY t.ord`

	return r.collectKeys(ctx, "find foreign images", q, userID, keys)
}

// ReferencedImages returns the keys still attached to at least one ad.
func (r *Repo) ReferencedImages(ctx context.Context, keys []string) ([]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	q := `
		SELECT t.k
		FROM unnest($1::text[]) WITH ORDINALITY AS t(k, ord)
		WHERE EXISTS (SELECT 1 FROM ads a WHERE a.images @> ARRAY[t.k])
		ORDER BY t.ord`

	return r.collectKeys(ctx, "find referenced images", q, keys)
}

func (r *Repo) collectKeys(ctx context.Context, op, q string, args ...any) ([]string, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		keys = append(keys, key)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("%s: %w", op, rows.Err())
	}
	return keys, nil
}
