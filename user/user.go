package user

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID             uuid.UUID      `db:"id"`
	Auth0ID        string         `db:"auth0_id"`
	Email          sql.NullString `db:"email"`
	Name           sql.NullString `db:"name"`
	CreditsBalance int64          `db:"credits_balance"`
	CreatedAt      time.Time      `db:"created_at"`
}
