// Package vehicle is a thin store for the vehicles and brands a driver can
// attach to a ride. It has no invariants of its own; ride creation only needs
// to know that a vehicle exists and who owns it.
package vehicle

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type Brand struct {
	ID        uuid.UUID `db:"id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}

type Vehicle struct {
	ID         uuid.UUID      `db:"id"`
	OwnerID    uuid.UUID      `db:"owner_id"`
	BrandID    uuid.UUID      `db:"brand_id"`
	BrandName  string         `db:"brand_name"`
	Model      string         `db:"model"`
	Plate      string         `db:"plate"`
	Color      sql.NullString `db:"color"`
	Seats      int            `db:"seats"`
	IsElectric bool           `db:"is_electric"`
	CreatedAt  time.Time      `db:"created_at"`
}
