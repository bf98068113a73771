package stock

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/jpalacios-dev/comanda-backend/pkg/db/models"
	"github.com/jpalacios-dev/comanda-backend/pkg/enums"
	pkgerrors "github.com/jpalacios-dev/comanda-backend/pkg/errors"
)

type testTx struct {
	db *gorm.DB
}

func (r testTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	dsn := "file:stock_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.StockItem{},
		&models.StockLedgerEntry{},
		&models.StockPurchaseRecord{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	svc, err := NewService(NewRepository(db), testTx{db: db}, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, db
}

func seedItem(t *testing.T, svc Service, qty, price string) *models.StockItem {
	t.Helper()
	item, err := svc.CreateItem(context.Background(), CreateItemInput{
		Name:           "tomato",
		Unit:           "kg",
		Quantity:       dec(t, qty),
		PricePerUnit:   dec(t, price),
		AlertThreshold: dec(t, "2"),
	})
	if err != nil {
		t.Fatalf("seed item: %v", err)
	}
	return item
}

func dec(t *testing.T, value string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(value)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", value, err)
	}
	return d
}

func TestPurchaseMovesWeightedAverage(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	item := seedItem(t, svc, "10", "2.00")

	updated, err := svc.Purchase(ctx, item.ID, dec(t, "10"), dec(t, "4.00"))
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}

	if !updated.Quantity.Equal(dec(t, "20")) {
		t.Fatalf("expected quantity 20, got %s", updated.Quantity)
	}
	// (10*2 + 10*4) / 20 = 3
	if !updated.PricePerUnit.Equal(dec(t, "3")) {
		t.Fatalf("expected weighted average 3.00, got %s", updated.PricePerUnit)
	}
}

func TestPurchaseFromNegativeQuantityTakesIncomingPrice(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	item := seedItem(t, svc, "-5", "2.00")

	updated, err := svc.Purchase(ctx, item.ID, dec(t, "3"), dec(t, "4.50"))
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if !updated.Quantity.Equal(dec(t, "-2")) {
		t.Fatalf("expected quantity -2, got %s", updated.Quantity)
	}
	if !updated.PricePerUnit.Equal(dec(t, "4.50")) {
		t.Fatalf("expected incoming price on degenerate stock, got %s", updated.PricePerUnit)
	}
}

func TestPurchaseAppendsLedgerAndPurchaseRecord(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	item := seedItem(t, svc, "0", "0")

	if _, err := svc.Purchase(ctx, item.ID, dec(t, "5"), dec(t, "1.25")); err != nil {
		t.Fatalf("purchase: %v", err)
	}

	var entries []models.StockLedgerEntry
	if err := db.Where("stock_item_id = ?", item.ID).Find(&entries).Error; err != nil {
		t.Fatalf("load ledger: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 ledger entry, got %d", len(entries))
	}
	if entries[0].Kind != enums.LedgerEntryPurchase || !entries[0].AffectsCost {
		t.Fatalf("unexpected ledger entry: %+v", entries[0])
	}

	var records []models.StockPurchaseRecord
	if err := db.Where("stock_item_id = ?", item.ID).Find(&records).Error; err != nil {
		t.Fatalf("load purchases: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 purchase record, got %d", len(records))
	}
	if !records[0].TotalCost.Equal(dec(t, "6.25")) {
		t.Fatalf("expected total cost 6.25, got %s", records[0].TotalCost)
	}
}

func TestAdjustKeepsCostBasis(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	item := seedItem(t, svc, "10", "2.00")

	updated, err := svc.Adjust(ctx, item.ID, dec(t, "7"), "spoilage")
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if !updated.Quantity.Equal(dec(t, "7")) {
		t.Fatalf("expected quantity 7, got %s", updated.Quantity)
	}
	if !updated.PricePerUnit.Equal(dec(t, "2.00")) {
		t.Fatalf("adjust must not touch price, got %s", updated.PricePerUnit)
	}

	var entry models.StockLedgerEntry
	if err := db.Where("stock_item_id = ? AND reason = ?", item.ID, "spoilage").First(&entry).Error; err != nil {
		t.Fatalf("load ledger: %v", err)
	}
	if entry.Kind != enums.LedgerEntryManualAdjust || entry.AffectsCost {
		t.Fatalf("unexpected ledger entry: %+v", entry)
	}
	if !entry.QuantityChange.Equal(dec(t, "-3")) {
		t.Fatalf("expected change -3, got %s", entry.QuantityChange)
	}

	var count int64
	if err := db.Model(&models.StockPurchaseRecord{}).Where("stock_item_id = ?", item.ID).Count(&count).Error; err != nil {
		t.Fatalf("count purchases: %v", err)
	}
	if count != 0 {
		t.Fatalf("adjust must not create purchase records, got %d", count)
	}
}

func TestAdjustRequiresReason(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	item := seedItem(t, svc, "10", "2.00")

	_, err := svc.Adjust(context.Background(), item.ID, dec(t, "5"), "")
	if err == nil {
		t.Fatal("expected validation error")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFixShrinkingCompensatesPurchaseHistory(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	item := seedItem(t, svc, "10", "2.00")

	updated, err := svc.Fix(ctx, item.ID, dec(t, "6"), "typo in receiving")
	if err != nil {
		t.Fatalf("fix: %v", err)
	}
	if !updated.Quantity.Equal(dec(t, "6")) {
		t.Fatalf("expected quantity 6, got %s", updated.Quantity)
	}
	if !updated.PricePerUnit.Equal(dec(t, "2.00")) {
		t.Fatalf("fix must not re-average price, got %s", updated.PricePerUnit)
	}

	var record models.StockPurchaseRecord
	if err := db.Where("stock_item_id = ?", item.ID).First(&record).Error; err != nil {
		t.Fatalf("load compensation record: %v", err)
	}
	if !record.Quantity.Equal(dec(t, "-4")) {
		t.Fatalf("expected compensation quantity -4, got %s", record.Quantity)
	}
	if !record.TotalCost.Equal(dec(t, "-8")) {
		t.Fatalf("expected compensation cost -8, got %s", record.TotalCost)
	}
}

func TestFixGrowingAddsNoCompensation(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	item := seedItem(t, svc, "10", "2.00")

	if _, err := svc.Fix(ctx, item.ID, dec(t, "12"), "missed a crate"); err != nil {
		t.Fatalf("fix: %v", err)
	}

	var count int64
	if err := db.Model(&models.StockPurchaseRecord{}).Where("stock_item_id = ?", item.ID).Count(&count).Error; err != nil {
		t.Fatalf("count purchases: %v", err)
	}
	if count != 0 {
		t.Fatalf("growing fix must not create purchase records, got %d", count)
	}
}

func TestDeductAllowsNegativeQuantity(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	item := seedItem(t, svc, "1", "2.00")

	state, err := svc.Deduct(ctx, item.ID, dec(t, "3"), "order #1")
	if err != nil {
		t.Fatalf("deduct: %v", err)
	}
	if !state.NewQuantity.Equal(dec(t, "-2")) {
		t.Fatalf("expected quantity to go negative, got %s", state.NewQuantity)
	}
	if !state.PreviousQuantity.Equal(dec(t, "1")) {
		t.Fatalf("expected previous quantity 1, got %s", state.PreviousQuantity)
	}
}

func TestDeductMissingItemIsNotFound(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)

	_, err := svc.Deduct(context.Background(), uuid.New(), dec(t, "1"), "order #1")
	if err == nil {
		t.Fatal("expected error")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreateItemWritesOpeningLedgerEntry(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()

	seeded := seedItem(t, svc, "5", "1.00")

	var entries []models.StockLedgerEntry
	if err := db.Where("stock_item_id = ?", seeded.ID).Find(&entries).Error; err != nil {
		t.Fatalf("load ledger: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected opening entry, got %d entries", len(entries))
	}
	opening := entries[0]
	if opening.Kind != enums.LedgerEntryManualAdjust || opening.AffectsCost {
		t.Fatalf("unexpected opening entry: %+v", opening)
	}
	if !opening.PreviousQuantity.Equal(dec(t, "0")) || !opening.NewQuantity.Equal(dec(t, "5")) {
		t.Fatalf("opening entry must run 0 -> 5, got %s -> %s", opening.PreviousQuantity, opening.NewQuantity)
	}

	// a zero-quantity item needs no opening entry
	empty, err := svc.CreateItem(ctx, CreateItemInput{Name: "salt", Unit: "kg"})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	var count int64
	if err := db.Model(&models.StockLedgerEntry{}).Where("stock_item_id = ?", empty.ID).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no ledger entries for empty item, got %d", count)
	}
}

func TestLedgerReplayReproducesQuantity(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	item, err := svc.CreateItem(ctx, CreateItemInput{
		Name:     "flour",
		Unit:     "kg",
		Quantity: dec(t, "2"),
	})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}

	if _, err := svc.Purchase(ctx, item.ID, dec(t, "10"), dec(t, "1.50")); err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if _, err := svc.Deduct(ctx, item.ID, dec(t, "3.5"), "order #1"); err != nil {
		t.Fatalf("deduct: %v", err)
	}
	if _, err := svc.Restore(ctx, item.ID, dec(t, "1.5"), "cancel order #1"); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if _, err := svc.Adjust(ctx, item.ID, dec(t, "7"), "recount"); err != nil {
		t.Fatalf("adjust: %v", err)
	}

	var entries []models.StockLedgerEntry
	if err := db.Where("stock_item_id = ?", item.ID).Order("created_at asc, id asc").Find(&entries).Error; err != nil {
		t.Fatalf("load ledger: %v", err)
	}

	replayed := decimal.Zero
	for _, entry := range entries {
		if !entry.PreviousQuantity.Equal(replayed) {
			t.Fatalf("ledger gap: entry %s expected previous %s, got %s", entry.ID, replayed, entry.PreviousQuantity)
		}
		replayed = replayed.Add(entry.QuantityChange)
		if !entry.NewQuantity.Equal(replayed) {
			t.Fatalf("ledger mismatch: entry %s expected new %s, got %s", entry.ID, replayed, entry.NewQuantity)
		}
	}

	current, err := svc.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("load item: %v", err)
	}
	if !current.Quantity.Equal(replayed) {
		t.Fatalf("replay %s does not match current quantity %s", replayed, current.Quantity)
	}
}

func TestLowStockListsAtOrBelowThreshold(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	low := seedItem(t, svc, "2", "1.00") // threshold is 2, at threshold counts
	if _, err := svc.CreateItem(ctx, CreateItemInput{
		Name:           "rice",
		Unit:           "kg",
		Quantity:       dec(t, "50"),
		AlertThreshold: dec(t, "5"),
	}); err != nil {
		t.Fatalf("create item: %v", err)
	}

	inactive, err := svc.CreateItem(ctx, CreateItemInput{
		Name:           "retired",
		Quantity:       dec(t, "0"),
		AlertThreshold: dec(t, "1"),
	})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	if err := svc.DeactivateItem(ctx, inactive.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	items, err := svc.LowStock(ctx)
	if err != nil {
		t.Fatalf("low stock: %v", err)
	}
	if len(items) != 1 || items[0].ID != low.ID {
		t.Fatalf("expected only the low active item, got %+v", items)
	}

	count, err := svc.LowStockCount(ctx)
	if err != nil {
		t.Fatalf("low stock count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected count 1, got %d", count)
	}
}
