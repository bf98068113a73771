package orders

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/jpalacios-dev/comanda-backend/internal/catalog"
	"github.com/jpalacios-dev/comanda-backend/pkg/db/models"
	"github.com/jpalacios-dev/comanda-backend/pkg/enums"
	pkgerrors "github.com/jpalacios-dev/comanda-backend/pkg/errors"
	"github.com/jpalacios-dev/comanda-backend/pkg/events"
)

type testTx struct {
	db *gorm.DB
}

func (r testTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type fixture struct {
	svc  Service
	db   *gorm.DB
	dish *models.MenuItem
	meat *models.StockItem
	bun  *models.StockItem
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	// single writer connection, same as the production sqlite setup
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(
		&models.StockItem{},
		&models.StockLedgerEntry{},
		&models.StockPurchaseRecord{},
		&models.MenuItem{},
		&models.MenuRecipeLine{},
		&models.DailyCounter{},
		&models.Order{},
		&models.OrderLine{},
		&models.OrderLineDeduction{},
		&models.OutboxEvent{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	meat := &models.StockItem{
		Name:         "ground beef",
		Unit:         "kg",
		Quantity:     dec(t, "10"),
		PricePerUnit: dec(t, "8.00"),
		IsActive:     true,
	}
	bun := &models.StockItem{
		Name:           "burger bun",
		Unit:           "unit",
		Quantity:       dec(t, "40"),
		PricePerUnit:   dec(t, "0.50"),
		AlertThreshold: dec(t, "38"),
		IsActive:       true,
	}
	for _, item := range []*models.StockItem{meat, bun} {
		if err := db.Create(item).Error; err != nil {
			t.Fatalf("seed stock: %v", err)
		}
	}

	dish := &models.MenuItem{
		Name:     "burger",
		Price:    dec(t, "9.50"),
		IsActive: true,
	}
	if err := db.Create(dish).Error; err != nil {
		t.Fatalf("seed menu: %v", err)
	}
	for _, line := range []models.MenuRecipeLine{
		{MenuItemID: dish.ID, StockItemID: meat.ID, QuantityPerUnit: dec(t, "0.2"), Unit: "kg"},
		{MenuItemID: dish.ID, StockItemID: bun.ID, QuantityPerUnit: dec(t, "1"), Unit: "unit"},
	} {
		if err := db.Create(&line).Error; err != nil {
			t.Fatalf("seed recipe: %v", err)
		}
	}

	eventsRepo := events.NewRepository(db)
	svc, err := NewService(ServiceParams{
		Repo:    NewRepository(db),
		Catalog: catalog.NewRepository(db),
		Tx:      testTx{db: db},
		Outbox:  events.NewEmitter(eventsRepo, nil),
		Now:     func() time.Time { return time.Date(2026, 8, 30, 13, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	return &fixture{svc: svc, db: db, dish: dish, meat: meat, bun: bun}
}

func dec(t *testing.T, value string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(value)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", value, err)
	}
	return d
}

func (f *fixture) stockQuantity(t *testing.T, id uuid.UUID) decimal.Decimal {
	t.Helper()
	var item models.StockItem
	if err := f.db.First(&item, "id = ?", id).Error; err != nil {
		t.Fatalf("load stock item: %v", err)
	}
	return item.Quantity
}

func TestCreateOrderNumbersAndTotals(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Create(ctx, CreateOrderInput{
		Type:  enums.OrderTypeDineIn,
		Lines: []LineInput{{MenuItemID: f.dish.ID, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.Order.DailyNumber != 1 {
		t.Fatalf("expected daily number 1, got %d", first.Order.DailyNumber)
	}
	if first.Order.OrderDate != "2026-08-30" {
		t.Fatalf("unexpected order date %q", first.Order.OrderDate)
	}
	if first.Order.Status != enums.OrderStatusPreparing {
		t.Fatalf("expected preparing, got %s", first.Order.Status)
	}
	if !first.Order.Total.Equal(dec(t, "19.00")) {
		t.Fatalf("expected total 19.00, got %s", first.Order.Total)
	}
	if len(first.Order.Lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(first.Order.Lines))
	}
	line := first.Order.Lines[0]
	if line.MenuItemName != "burger" {
		t.Fatalf("expected name snapshot, got %q", line.MenuItemName)
	}
	if !line.UnitPrice.Equal(dec(t, "9.50")) || !line.TotalPrice.Equal(dec(t, "19.00")) {
		t.Fatalf("unexpected line pricing: %s / %s", line.UnitPrice, line.TotalPrice)
	}
	if len(line.Deductions) != 2 {
		t.Fatalf("expected 2 deductions, got %d", len(line.Deductions))
	}

	second, err := f.svc.Create(ctx, CreateOrderInput{
		Type:  enums.OrderTypeTakeout,
		Lines: []LineInput{{MenuItemID: f.dish.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if second.Order.DailyNumber != 2 {
		t.Fatalf("expected daily number 2, got %d", second.Order.DailyNumber)
	}
}

func TestCreateOrderDeductsRecipeStock(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Create(ctx, CreateOrderInput{
		Type:  enums.OrderTypeDineIn,
		Lines: []LineInput{{MenuItemID: f.dish.ID, Quantity: 3}},
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	if got := f.stockQuantity(t, f.meat.ID); !got.Equal(dec(t, "9.4")) {
		t.Fatalf("expected meat 9.4, got %s", got)
	}
	if got := f.stockQuantity(t, f.bun.ID); !got.Equal(dec(t, "37")) {
		t.Fatalf("expected buns 37, got %s", got)
	}
}

func TestCreateOrderPriceOverride(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	override := dec(t, "5.00")

	result, err := f.svc.Create(context.Background(), CreateOrderInput{
		Type:  enums.OrderTypeDelivery,
		Lines: []LineInput{{MenuItemID: f.dish.ID, Quantity: 2, UnitPrice: &override}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !result.Order.Total.Equal(dec(t, "10.00")) {
		t.Fatalf("expected overridden total 10.00, got %s", result.Order.Total)
	}
}

func TestCreateOrderUnknownMenuItemAborts(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), CreateOrderInput{
		Type: enums.OrderTypeDineIn,
		Lines: []LineInput{
			{MenuItemID: f.dish.ID, Quantity: 1},
			{MenuItemID: uuid.New(), Quantity: 1},
		},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error: %v", err)
	}

	// the whole transaction rolled back, including the first line's deductions
	if got := f.stockQuantity(t, f.meat.ID); !got.Equal(dec(t, "10")) {
		t.Fatalf("expected meat untouched, got %s", got)
	}
	var count int64
	if err := f.db.Model(&models.Order{}).Count(&count).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no orders persisted, got %d", count)
	}
}

func TestCreateOrderMissingStockItemWarns(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	ghost := uuid.New()
	if err := f.db.Create(&models.MenuRecipeLine{
		MenuItemID:      f.dish.ID,
		StockItemID:     ghost,
		QuantityPerUnit: dec(t, "1"),
	}).Error; err != nil {
		t.Fatalf("seed dangling recipe line: %v", err)
	}

	result, err := f.svc.Create(ctx, CreateOrderInput{
		Type:  enums.OrderTypeDineIn,
		Lines: []LineInput{{MenuItemID: f.dish.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(result.Warnings))
	}
	if result.Warnings[0].StockItemID != ghost {
		t.Fatalf("unexpected warning: %+v", result.Warnings[0])
	}
	// the known ingredients still deducted
	if got := f.stockQuantity(t, f.bun.ID); !got.Equal(dec(t, "39")) {
		t.Fatalf("expected buns 39, got %s", got)
	}
}

func TestCancelRestoresExactDeductions(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, CreateOrderInput{
		Type:  enums.OrderTypeDineIn,
		Lines: []LineInput{{MenuItemID: f.dish.ID, Quantity: 4}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// recipe changes after the order; cancel must restore recorded amounts
	if err := f.db.Model(&models.MenuRecipeLine{}).
		Where("menu_item_id = ? AND stock_item_id = ?", f.dish.ID, f.meat.ID).
		Update("quantity_per_unit", dec(t, "9")).Error; err != nil {
		t.Fatalf("mutate recipe: %v", err)
	}

	cancelled, err := f.svc.Cancel(ctx, created.Order.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != enums.OrderStatusCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}
	if cancelled.CompletedAt == nil {
		t.Fatal("expected completed_at stamped on cancel")
	}

	if got := f.stockQuantity(t, f.meat.ID); !got.Equal(dec(t, "10")) {
		t.Fatalf("expected meat restored to 10, got %s", got)
	}
	if got := f.stockQuantity(t, f.bun.ID); !got.Equal(dec(t, "40")) {
		t.Fatalf("expected buns restored to 40, got %s", got)
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, CreateOrderInput{
		Type:  enums.OrderTypeDineIn,
		Lines: []LineInput{{MenuItemID: f.dish.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := f.svc.Cancel(ctx, created.Order.ID); err != nil {
		t.Fatalf("first cancel: %v", err)
	}
	if _, err := f.svc.Cancel(ctx, created.Order.ID); err != nil {
		t.Fatalf("second cancel: %v", err)
	}

	// a second cancel must not restore stock twice
	if got := f.stockQuantity(t, f.bun.ID); !got.Equal(dec(t, "40")) {
		t.Fatalf("expected buns restored exactly once, got %s", got)
	}
}

func TestCancelAfterCompletionRestoresStock(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, CreateOrderInput{
		Type:  enums.OrderTypeDineIn,
		Lines: []LineInput{{MenuItemID: f.dish.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.svc.UpdateStatus(ctx, created.Order.ID, enums.OrderStatusCompleted); err != nil {
		t.Fatalf("complete: %v", err)
	}

	cancelled, err := f.svc.Cancel(ctx, created.Order.ID)
	if err != nil {
		t.Fatalf("cancel after completion: %v", err)
	}
	if cancelled.Status != enums.OrderStatusCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}
	if got := f.stockQuantity(t, f.bun.ID); !got.Equal(dec(t, "40")) {
		t.Fatalf("expected stock restored, got %s", got)
	}
}

func TestUpdateItemsRetractsAndReapplies(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, CreateOrderInput{
		Type:  enums.OrderTypeDineIn,
		Lines: []LineInput{{MenuItemID: f.dish.ID, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := f.svc.UpdateItems(ctx, created.Order.ID, []LineInput{
		{MenuItemID: f.dish.ID, Quantity: 5},
	})
	if err != nil {
		t.Fatalf("update items: %v", err)
	}

	if !updated.Order.Total.Equal(dec(t, "47.50")) {
		t.Fatalf("expected total 47.50, got %s", updated.Order.Total)
	}
	if updated.Order.DailyNumber != created.Order.DailyNumber {
		t.Fatalf("daily number must survive edits")
	}
	if len(updated.Order.Lines) != 1 || updated.Order.Lines[0].Quantity != 5 {
		t.Fatalf("unexpected lines after edit: %+v", updated.Order.Lines)
	}

	// net effect is as if the order had been 5 burgers all along
	if got := f.stockQuantity(t, f.meat.ID); !got.Equal(dec(t, "9")) {
		t.Fatalf("expected meat 9, got %s", got)
	}
	if got := f.stockQuantity(t, f.bun.ID); !got.Equal(dec(t, "35")) {
		t.Fatalf("expected buns 35, got %s", got)
	}

	var orphaned int64
	if err := f.db.Model(&models.OrderLine{}).Where("order_id = ?", created.Order.ID).Count(&orphaned).Error; err != nil {
		t.Fatalf("count lines: %v", err)
	}
	if orphaned != 1 {
		t.Fatalf("expected old lines replaced, got %d", orphaned)
	}
}

func TestUpdateItemsOnTerminalOrderIsNoOp(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, CreateOrderInput{
		Type:  enums.OrderTypeDineIn,
		Lines: []LineInput{{MenuItemID: f.dish.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.svc.Cancel(ctx, created.Order.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	result, err := f.svc.UpdateItems(ctx, created.Order.ID, []LineInput{
		{MenuItemID: f.dish.ID, Quantity: 9},
	})
	if err != nil {
		t.Fatalf("update items: %v", err)
	}
	if result.Order.Status != enums.OrderStatusCancelled {
		t.Fatalf("expected order untouched, got %s", result.Order.Status)
	}
	if len(result.Order.Lines) != 1 || result.Order.Lines[0].Quantity != 1 {
		t.Fatalf("expected original lines preserved")
	}
	if got := f.stockQuantity(t, f.bun.ID); !got.Equal(dec(t, "40")) {
		t.Fatalf("expected stock untouched, got %s", got)
	}
}

func TestUpdateStatusTransitions(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, CreateOrderInput{
		Type:  enums.OrderTypeDineIn,
		Lines: []LineInput{{MenuItemID: f.dish.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	completed, err := f.svc.UpdateStatus(ctx, created.Order.ID, enums.OrderStatusCompleted)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed.Status != enums.OrderStatusCompleted || completed.CompletedAt == nil {
		t.Fatalf("expected completed with timestamp, got %+v", completed)
	}

	// completed -> preparing is not a legal transition
	if _, err := f.svc.UpdateStatus(ctx, created.Order.ID, enums.OrderStatusPreparing); err == nil {
		t.Fatal("expected state conflict")
	} else if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUpdateStatusToCancelledRestoresStock(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, CreateOrderInput{
		Type:  enums.OrderTypeDineIn,
		Lines: []LineInput{{MenuItemID: f.dish.ID, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	order, err := f.svc.UpdateStatus(ctx, created.Order.ID, enums.OrderStatusCancelled)
	if err != nil {
		t.Fatalf("cancel via status: %v", err)
	}
	if order.Status != enums.OrderStatusCancelled {
		t.Fatalf("expected cancelled, got %s", order.Status)
	}
	if got := f.stockQuantity(t, f.bun.ID); !got.Equal(dec(t, "40")) {
		t.Fatalf("expected stock restored, got %s", got)
	}
}

func TestCreateEmitsOutboxEvent(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, CreateOrderInput{
		Type:  enums.OrderTypeDineIn,
		Lines: []LineInput{{MenuItemID: f.dish.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	var event models.OutboxEvent
	if err := f.db.First(&event, "aggregate_id = ?", created.Order.ID).Error; err != nil {
		t.Fatalf("load outbox: %v", err)
	}
	if event.EventType != enums.EventOrderCreated {
		t.Fatalf("expected order.created, got %s", event.EventType)
	}
	if event.PublishedAt != nil {
		t.Fatal("event must start unpublished")
	}
}

func TestConcurrentCreatesAssignDistinctNumbersAndDeductions(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	const n = 8

	var wg sync.WaitGroup
	results := make([]*OrderResult, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.svc.Create(ctx, CreateOrderInput{
				Type:  enums.OrderTypeDineIn,
				Lines: []LineInput{{MenuItemID: f.dish.ID, Quantity: 1}},
			})
		}(i)
	}
	wg.Wait()

	seen := make(map[int]bool, n)
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("create %d: %v", i, errs[i])
		}
		number := results[i].Order.DailyNumber
		if seen[number] {
			t.Fatalf("daily number %d assigned twice", number)
		}
		seen[number] = true
	}
	for number := 1; number <= n; number++ {
		if !seen[number] {
			t.Fatalf("daily number %d never assigned", number)
		}
	}

	// no lost updates: total deduction equals the sum of all recipes
	if got := f.stockQuantity(t, f.meat.ID); !got.Equal(dec(t, "8.4")) {
		t.Fatalf("expected meat 8.4 after %d orders, got %s", n, got)
	}
	if got := f.stockQuantity(t, f.bun.ID); !got.Equal(dec(t, "32")) {
		t.Fatalf("expected buns 32 after %d orders, got %s", n, got)
	}
}

func TestDeductionCrossingThresholdEmitsStockLow(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	// buns 40 -> 39, still above the threshold of 38
	if _, err := f.svc.Create(ctx, CreateOrderInput{
		Type:  enums.OrderTypeDineIn,
		Lines: []LineInput{{MenuItemID: f.dish.ID, Quantity: 1}},
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	var count int64
	if err := f.db.Model(&models.OutboxEvent{}).
		Where("event_type = ?", enums.EventStockLow).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("no low-stock event expected above threshold, got %d", count)
	}

	// 39 -> 37 crosses the threshold
	if _, err := f.svc.Create(ctx, CreateOrderInput{
		Type:  enums.OrderTypeDineIn,
		Lines: []LineInput{{MenuItemID: f.dish.ID, Quantity: 2}},
	}); err != nil {
		t.Fatalf("create second: %v", err)
	}
	var event models.OutboxEvent
	if err := f.db.First(&event, "event_type = ?", enums.EventStockLow).Error; err != nil {
		t.Fatalf("expected stock.low event: %v", err)
	}
	if event.AggregateID != f.bun.ID {
		t.Fatalf("unexpected aggregate %s", event.AggregateID)
	}

	// 37 -> 36 stays below; no duplicate emission
	if _, err := f.svc.Create(ctx, CreateOrderInput{
		Type:  enums.OrderTypeDineIn,
		Lines: []LineInput{{MenuItemID: f.dish.ID, Quantity: 1}},
	}); err != nil {
		t.Fatalf("create third: %v", err)
	}
	if err := f.db.Model(&models.OutboxEvent{}).
		Where("event_type = ?", enums.EventStockLow).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected a single crossing event, got %d", count)
	}
}

func TestListByDate(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Create(ctx, CreateOrderInput{
		Type:  enums.OrderTypeDineIn,
		Lines: []LineInput{{MenuItemID: f.dish.ID, Quantity: 1}},
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	today, err := f.svc.Today(ctx)
	if err != nil {
		t.Fatalf("today: %v", err)
	}
	if len(today) != 1 {
		t.Fatalf("expected 1 order today, got %d", len(today))
	}

	empty, err := f.svc.ListByDate(ctx, "2026-08-29")
	if err != nil {
		t.Fatalf("list by date: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected no orders yesterday, got %d", len(empty))
	}

	if _, err := f.svc.ListByDate(ctx, "30/08/2026"); err == nil {
		t.Fatal("expected validation error for bad date")
	}

	ranged, err := f.svc.ListByDateRange(ctx, "2026-08-29", "2026-08-31")
	if err != nil {
		t.Fatalf("list by range: %v", err)
	}
	if len(ranged) != 1 {
		t.Fatalf("expected 1 order in range, got %d", len(ranged))
	}

	if _, err := f.svc.ListByDateRange(ctx, "2026-09-01", "2026-08-01"); err == nil {
		t.Fatal("expected validation error for inverted range")
	}
}
