package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var ErrNotFound = errors.New("hazard result not found")

// HazardResult is one row of hazard_results.
type HazardResult struct {
	ID        int64     `json:"id"`
	ImagePath string    `json:"image_path"`
	Context   string    `json:"context"`
	Result    string    `json:"result"`
	CreatedAt time.Time `json:"created_at"`
}

// HazardRepo is append-only: there is no update or delete path.
type HazardRepo struct {
	acq Acquirer
}

func NewHazardRepo(acq Acquirer) *HazardRepo { return &HazardRepo{acq: acq} }

// EnsureSchema creates hazard_results if it does not exist. Safe to call repeatedly.
func (r *HazardRepo) EnsureSchema(ctx context.Context) error {
	s, release, err := r.acq.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	if _, err := s.ExecContext(ctx, schemaFor(r.acq.Driver())); err != nil {
		return fmt.Errorf("create hazard_results: %w", err)
	}
	return nil
}

// Insert stores one result and returns the row with the storage-assigned id and created_at.
func (r *HazardRepo) Insert(ctx context.Context, imagePath, hazardContext, result string) (*HazardResult, error) {
	s, release, err := r.acq.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	const q = `
insert into hazard_results (image_path, context, result)
values ($1, $2, $3)
returning id, created_at`

	row := &HazardResult{ImagePath: imagePath, Context: hazardContext, Result: result}
	var ts dbTime
	if err := s.QueryRowContext(ctx, rebind(r.acq.Driver(), q), imagePath, hazardContext, result).Scan(&row.ID, &ts); err != nil {
		return nil, fmt.Errorf("insert hazard result: %w", err)
	}
	row.CreatedAt = ts.Time
	return row, nil
}

// Recent returns up to limit rows, newest first.
func (r *HazardRepo) Recent(ctx context.Context, limit int) ([]HazardResult, error) {
	if limit <= 0 {
		limit = 20
	}
	s, release, err := r.acq.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	const q = `
select id, image_path, coalesce(context, ''), coalesce(result, ''), created_at
from hazard_results
order by id desc
limit $1`

	rows, err := s.QueryContext(ctx, rebind(r.acq.Driver(), q), limit)
	if err != nil {
		return nil, fmt.Errorf("list hazard results: %w", err)
	}
	defer rows.Close()

	out := make([]HazardResult, 0, limit)
	for rows.Next() {
		var (
			h  HazardResult
			ts dbTime
		)
		if err := rows.Scan(&h.ID, &h.ImagePath, &h.Context, &h.Result, &ts); err != nil {
			return nil, fmt.Errorf("scan hazard result: %w", err)
		}
		h.CreatedAt = ts.Time
		out = append(out, h)
	}
	return out, rows.Err()
}

// Get returns ErrNotFound when no row has the id.
func (r *HazardRepo) Get(ctx context.Context, id int64) (*HazardResult, error) {
	s, release, err := r.acq.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	const q = `
select id, image_path, coalesce(context, ''), coalesce(result, ''), created_at
from hazard_results
where id = $1`

	var (
		h  HazardResult
		ts dbTime
	)
	err = s.QueryRowContext(ctx, rebind(r.acq.Driver(), q), id).Scan(&h.ID, &h.ImagePath, &h.Context, &h.Result, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get hazard result %d: %w", id, err)
	}
	h.CreatedAt = ts.Time
	return &h, nil
}

// dbTime accepts both native timestamps (pgx) and the text form SQLite may hand back.
type dbTime struct{ time.Time }

var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	time.RFC3339Nano,
}

func (t *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
		return nil
	case time.Time:
		t.Time = v
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
}

func (t *dbTime) parse(s string) error {
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			t.Time = ts
			return nil
		}
	}
	return fmt.Errorf("unrecognised timestamp %q", s)
}
