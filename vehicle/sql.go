package vehicle

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrNotFound = errors.New("vehicle not found")
	ErrNotOwner = errors.New("vehicle does not belong to driver")
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Vehicle, error) {
	var v Vehicle
	err := r.db.GetContext(ctx, &v, getByIDQuery, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Vehicle{}, ErrNotFound
	}
	return v, err
}

const getByIDQuery = `
SELECT v.*, b.name AS brand_name
FROM vehicles v JOIN brands b ON v.brand_id = b.id
WHERE v.id = $1
`

// GetForOwner fetches a vehicle and verifies it belongs to the given driver.
func (r *Repository) GetForOwner(ctx context.Context, id, ownerID uuid.UUID) (Vehicle, error) {
	v, err := r.GetByID(ctx, id)
	if err != nil {
		return Vehicle{}, err
	}
	if v.OwnerID != ownerID {
		return Vehicle{}, ErrNotOwner
	}
	return v, nil
}

func (r *Repository) ListForOwner(ctx context.Context, ownerID uuid.UUID) ([]Vehicle, error) {
	var vehicles []Vehicle
	err := r.db.SelectContext(ctx, &vehicles, listForOwnerQuery, ownerID)
	return vehicles, err
}

const listForOwnerQuery = `
SELECT v.*, b.name AS brand_name
FROM vehicles v JOIN brands b ON v.brand_id = b.id
WHERE v.owner_id = $1
ORDER BY v.created_at
`

// Create inserts a vehicle, resolving the brand by name or creating it.
func (r *Repository) Create(ctx context.Context, v *Vehicle, brandName string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = tx.GetContext(ctx, &v.BrandID, upsertBrandQuery, uuid.New(), brandName)
	if err != nil {
		return err
	}

	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	err = tx.GetContext(ctx, &v.CreatedAt, insertVehicleQuery,
		v.ID, v.OwnerID, v.BrandID, v.Model, v.Plate, v.Color, v.Seats, v.IsElectric)
	if err != nil {
		return err
	}
	v.BrandName = brandName

	return tx.Commit()
}

const upsertBrandQuery = `
INSERT INTO brands (id, name) VALUES ($1, $2)
ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
RETURNING id
`

const insertVehicleQuery = `
INSERT INTO vehicles (id, owner_id, brand_id, model, plate, color, seats, is_electric)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING created_at
`
