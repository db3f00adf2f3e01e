package mysql

import (
	"context"
	"database/sql"
	"fmt"
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

// Save inserts or updates a check by id
func (r *CheckRepository) Save(ctx context.Context, c *domain.Record) (string, error) {
	const q = `
INSERT INTO allergen_checks
  (id, user_id, check_type, ingredient_text, allergens_json,
   safe, flagged_json, explanation, image_url, is_favorite, created_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
  check_type=VALUES(check_type), ingredient_text=VALUES(ingredient_text),
  allergens_json=VALUES(allergens_json), safe=VALUES(safe),
  flagged_json=VALUES(flagged_json), explanation=VALUES(explanation),
  image_url=VALUES(image_url);
`
	if c.ID == "" || c.UserID == "" {
		return "", fmt.Errorf("%w: record id and user id are required", domain.ErrStorage)
	}
	allergens, err := jsonList(c.Allergens)
	if err != nil {
		return "", storageErr("encode allergens", err)
	}
	flagged, err := jsonList(c.Result.FlaggedIngredients)
	if err != nil {
		return "", storageErr("encode flagged ingredients", err)
	}
	created := c.Timestamp
	if created.IsZero() {
		created = time.Now().UTC()
	}

	_, err = r.db.ExecContext(ctx, q,
		c.ID, c.UserID, string(c.CheckType), c.IngredientText, allergens,
		c.Result.Safe, flagged, c.Result.Explanation, c.ImageURL, c.IsFavorite, created,
	)
	if err != nil {
		return "", storageErr("save check", err)
	}
	return c.ID, nil
}

// Get by id
func (r *CheckRepository) Get(ctx context.Context, id string) (*domain.Record, error) {
	q := `SELECT ` + checkColumns + ` FROM allergen_checks WHERE id=? LIMIT 1;`
	rec, err := scanCheck(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, storageErr("get check", err)
	}
	return rec, nil
}

// ListByUser returns every check of a user, newest first
func (r *CheckRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Record, error) {
	q := `SELECT ` + checkColumns + `
FROM allergen_checks
WHERE user_id=?
ORDER BY created_at DESC, id DESC;`
	return r.query(ctx, "list checks", q, userID)
}

// ListFavoritesByUser returns the favorite checks of a user, newest first
func (r *CheckRepository) ListFavoritesByUser(ctx context.Context, userID string) ([]*domain.Record, error) {
	q := `SELECT ` + checkColumns + `
FROM allergen_checks
WHERE user_id=? AND is_favorite=TRUE
ORDER BY created_at DESC, id DESC;`
	return r.query(ctx, "list favorites", q, userID)
}

// SetFavorite only updates the is_favorite column. Without clientFoundRows
// MySQL reports 0 affected rows when the value is unchanged, so a zero count
// falls back to an existence check.
func (r *CheckRepository) SetFavorite(ctx context.Context, id string, favorite bool) error {
	const q = `UPDATE allergen_checks SET is_favorite = ? WHERE id = ?;`
	res, err := r.db.ExecContext(ctx, q, favorite, id)
	if err != nil {
		return storageErr("set favorite", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr("rows affected", err)
	}
	if n > 0 {
		return nil
	}
	return r.exists(ctx, id)
}

func (r *CheckRepository) exists(ctx context.Context, id string) error {
	var one int
	if err := r.db.QueryRowContext(ctx, `SELECT 1 FROM allergen_checks WHERE id = ? LIMIT 1;`, id).Scan(&one); err != nil {
		return storageErr("find check", err)
	}
	return nil
}

func (r *CheckRepository) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM allergen_checks WHERE id = ?;`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return storageErr("delete check", err)
	}
	return requireRow(res, id)
}

func (r *CheckRepository) query(ctx context.Context, op, q string, args ...any) ([]*domain.Record, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, storageErr(op, err)
	}
	defer rows.Close()

	out := []*domain.Record{}
	for rows.Next() {
		rec, err := scanCheck(rows)
		if err != nil {
			return nil, storageErr(op, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(op, err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCheck(row scanner) (*domain.Record, error) {
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
	if c.Allergens, err = parseList(allergens); err != nil {
		return nil, fmt.Errorf("decode allergens: %w", err)
	}
	if c.Result.FlaggedIngredients, err = parseList(flagged); err != nil {
		return nil, fmt.Errorf("decode flagged ingredients: %w", err)
	}
	c.CheckType = domain.CheckType(checkType)
	c.Timestamp = created.UTC()
	return &c, nil
}

// requireRow maps a zero-row update to ErrNotFound.
func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr("rows affected", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	return nil
}
