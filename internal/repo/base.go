package repo

import (
	"context"

	"gorm.io/gorm"
)

// Base carries the gorm handle shared by the domain repositories. A
// repository embeds it once for its root connection and again, via WithTx,
// for the transaction it was rebound to.
type Base struct {
	db *gorm.DB
}

// NewBase binds a Base to the given connection or transaction handle.
func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the handle bound to ctx.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}
