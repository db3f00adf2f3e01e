package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/bryanwahyu/nog/internal/domain/checks"
)

type CheckRepository struct {
	db *sql.DB
}

func NewCheckRepository(db *sql.DB) *CheckRepository {
	return &CheckRepository{db: db}
}

const checkColumns = `id, user_id, check_type, ingredient_text, allergens_json,
       safe, flagged_json, explanation, image_url, is_favorite, created_at`

// Save inserts or updates a check by id; is_favorite and created_at survive a re-save
func (r *CheckRepository) Save(ctx context.Context, c *domain.Record) (string, error) {
	const q = `
INSERT INTO allergen_checks
  (id, user_id, check_type, ingredient_text, allergens_json,
   safe, flagged_json, explanation, image_url, is_favorite, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (id) DO UPDATE SET
  check_type=EXCLUDED.check_type,
  ingredient_text=EXCLUDED.ingredient_text,
  allergens_json=EXCLUDED.allergens_json,
  safe=EXCLUDED.safe,
  flagged_json=EXCLUDED.flagged_json,
  explanation=EXCLUDED.explanation,
  image_url=EXCLUDED.image_url;
`
	if c.ID == "" || c.UserID == "" {
		return "", fmt.Errorf("%w: record id and user id are required", domain.ErrStorage)
	}
	allergens, err := encodeList(c.Allergens)
	if err != nil {
		return "", wrap("encode allergens", err)
	}
	flagged, err := encodeList(c.Result.FlaggedIngredients)
	if err != nil {
		return "", wrap("encode flagged ingredients", err)
	}
	createdAt := c.Timestamp
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	if _, err := r.db.ExecContext(ctx, q,
		c.ID, c.UserID, string(c.CheckType), c.IngredientText, allergens,
		c.Result.Safe, flagged, c.Result.Explanation, c.ImageURL, c.IsFavorite, createdAt,
	); err != nil {
		return "", wrap("save check", err)
	}
	return c.ID, nil
}

func (r *CheckRepository) Get(ctx context.Context, id string) (*domain.Record, error) {
	q := `SELECT ` + checkColumns + ` FROM allergen_checks WHERE id=$1 LIMIT 1;`
	c, err := scanRecord(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, wrap("get check", err)
	}
	return c, nil
}

func (r *CheckRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Record, error) {
	q := `SELECT ` + checkColumns + `
FROM allergen_checks
WHERE user_id=$1
ORDER BY created_at DESC, id DESC;`
	return r.list(ctx, q, userID)
}

func (r *CheckRepository) ListFavoritesByUser(ctx context.Context, userID string) ([]*domain.Record, error) {
	q := `SELECT ` + checkColumns + `
FROM allergen_checks
WHERE user_id=$1 AND is_favorite
ORDER BY created_at DESC, id DESC;`
	return r.list(ctx, q, userID)
}

func (r *CheckRepository) SetFavorite(ctx context.Context, id string, favorite bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE allergen_checks SET is_favorite=$1 WHERE id=$2;`, favorite, id)
	if err != nil {
		return wrap("set favorite", err)
	}
	return affected(res, id)
}

func (r *CheckRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM allergen_checks WHERE id=$1;`, id)
	if err != nil {
		return wrap("delete check", err)
	}
	return affected(res, id)
}

func (r *CheckRepository) list(ctx context.Context, q string, args ...any) ([]*domain.Record, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, wrap("list checks", err)
	}
	defer rows.Close()

	out := []*domain.Record{}
	for rows.Next() {
		c, err := scanRecord(rows)
		if err != nil {
			return nil, wrap("list checks", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list checks", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*domain.Record, error) {
	var c domain.Record
	var checkType, allergens, flagged string
	var created time.Time
	if err := row.Scan(
		&c.ID, &c.UserID, &checkType, &c.IngredientText, &allergens,
		&c.Result.Safe, &flagged, &c.Result.Explanation, &c.ImageURL, &c.IsFavorite, &created,
	); err != nil {
		return nil, err
	}
	var err error
	if c.Allergens, err = decodeList(allergens); err != nil {
		return nil, err
	}
	if c.Result.FlaggedIngredients, err = decodeList(flagged); err != nil {
		return nil, err
	}
	c.CheckType = domain.CheckType(checkType)
	c.Timestamp = created.UTC()
	return &c, nil
}

func encodeList(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	b, err := json.Marshal(list)
	return string(b), err
}

func decodeList(raw string) ([]string, error) {
	out := []string{}
	if strings.TrimSpace(raw) == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decode list: %w", err)
	}
	return out, nil
}

func wrap(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, op)
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrStorage, op, err)
}

func affected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return wrap("rows affected", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	return nil
}
