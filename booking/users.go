package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"github.com/kantonirina02/ecoride-backend/credit"
	"github.com/kantonirina02/ecoride-backend/user"
)

// ProvisionUser returns the user for an identity, creating the row and
// granting the signup bonus on first sight. The user insert and the bonus
// ledger entry commit together, so the balance invariant holds from the first
// row.
func (s *Service) ProvisionUser(ctx context.Context, auth0ID string) (*user.User, error) {
	u, err := s.users.GetByAuth0ID(ctx, auth0ID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, user.ErrNotFound) {
		return nil, err
	}

	err = s.inTx(ctx, func(tx *sqlx.Tx) error {
		created, err := s.users.InsertTx(ctx, tx, auth0ID)
		if err != nil {
			return err
		}
		if s.cfg.SignupBonus > 0 {
			if err := s.credits.AppendTx(ctx, tx, &credit.Entry{
				UserID: created.ID,
				Delta:  s.cfg.SignupBonus,
				Source: credit.SourceSignupBonus,
			}); err != nil {
				return err
			}
			created.CreditsBalance = s.cfg.SignupBonus
		}
		u = created
		return nil
	})
	if err != nil {
		// Two first requests can race; the unique index picks one winner and
		// the loser reads the committed row.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return s.users.GetByAuth0ID(ctx, auth0ID)
		}
		return nil, err
	}
	return u, nil
}

// AdminAdjust appends an admin_adjustment entry. A negative adjustment is an
// originating charge and may not drive the balance below zero.
func (s *Service) AdminAdjust(ctx context.Context, userID uuid.UUID, delta int64) (int64, error) {
	if delta == 0 {
		return 0, fmt.Errorf("%w: delta must be non-zero", ErrInvalidRequest)
	}

	var balanceAfter int64
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.users.LockTx(ctx, tx, userID); err != nil {
			return err
		}
		if err := s.credits.AppendTx(ctx, tx, &credit.Entry{
			UserID: userID,
			Delta:  delta,
			Source: credit.SourceAdminAdjustment,
		}); err != nil {
			return err
		}
		var err error
		balanceAfter, err = s.credits.BalanceOfTx(ctx, tx, userID)
		return err
	})
	if err != nil {
		return 0, err
	}
	return balanceAfter, nil
}
