// Package sequence owns the per-calendar-day monotonic counter that assigns
// human-facing order numbers.
package sequence

import (
	"context"

	"gorm.io/gorm"

	dbpkg "github.com/jpalacios-dev/comanda-backend/pkg/db"
	"github.com/jpalacios-dev/comanda-backend/pkg/db/models"
	pkgerrors "github.com/jpalacios-dev/comanda-backend/pkg/errors"
)

// DateLayout is the canonical order-date format.
const DateLayout = "2006-01-02"

// Next returns the next order number for the given date inside the caller's
// transaction. The counter row is created lazily at 1; afterwards the
// increment runs as a single UPDATE so two concurrent creations on the same
// day can never observe the same number. The row advances even if the
// surrounding order creation later rolls back on this driver's own retry;
// gaps are acceptable, duplicates are not.
func Next(ctx context.Context, tx *gorm.DB, date string) (int, error) {
	if tx == nil {
		return 0, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for sequence")
	}
	if date == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "date required")
	}

	res := tx.WithContext(ctx).Exec(`
		UPDATE daily_counters
		SET last_order_number = last_order_number + 1,
			updated_at = CURRENT_TIMESTAMP
		WHERE date = ?
	`, date)
	if res.Error != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "increment daily counter")
	}

	if res.RowsAffected == 0 {
		counter := models.DailyCounter{Date: date, LastOrderNumber: 1}
		err := tx.WithContext(ctx).Create(&counter).Error
		switch {
		case err == nil:
			return 1, nil
		case dbpkg.IsUniqueViolation(err, ""):
			// Another writer created the row first; fall through to the
			// increment path.
			res = tx.WithContext(ctx).Exec(`
				UPDATE daily_counters
				SET last_order_number = last_order_number + 1,
					updated_at = CURRENT_TIMESTAMP
				WHERE date = ?
			`, date)
			if res.Error != nil {
				return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "increment daily counter")
			}
		default:
			return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create daily counter")
		}
	}

	var counter models.DailyCounter
	if err := tx.WithContext(ctx).First(&counter, "date = ?", date).Error; err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload daily counter")
	}
	return counter.LastOrderNumber, nil
}
