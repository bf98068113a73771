package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/jpalacios-dev/comanda-backend/pkg/enums"
)

// Order is the durable record of one sale. OrderDate is a plain YYYY-MM-DD
// string so the per-day uniqueness of DailyNumber is timezone-stable across
// drivers.
type Order struct {
	ID            uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	DailyNumber   int               `gorm:"column:daily_number;not null;uniqueIndex:ux_orders_date_number"`
	OrderDate     string            `gorm:"column:order_date;not null;uniqueIndex:ux_orders_date_number;index"`
	Type          enums.OrderType   `gorm:"column:order_type;not null"`
	TableNumber   *string           `gorm:"column:table_number"`
	CustomerName  *string           `gorm:"column:customer_name"`
	CustomerPhone *string           `gorm:"column:customer_phone"`
	Status        enums.OrderStatus `gorm:"column:status;not null;default:'preparing'"`
	Subtotal      decimal.Decimal   `gorm:"column:subtotal;type:numeric(14,2);not null"`
	Total         decimal.Decimal   `gorm:"column:total;type:numeric(14,2);not null"`
	Notes         *string           `gorm:"column:notes"`
	Lines         []OrderLine       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime"`
	CompletedAt   *time.Time        `gorm:"column:completed_at"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// TableName overrides the default pluralization.
func (Order) TableName() string {
	return "orders"
}
