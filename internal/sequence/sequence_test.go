package sequence

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/jpalacios-dev/comanda-backend/pkg/db/models"
)

func TestNextStartsAtOne(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()

	number, err := Next(ctx, db, "2026-08-30")
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if number != 1 {
		t.Fatalf("expected first number of the day to be 1, got %d", number)
	}
}

func TestNextIncrementsWithinDay(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()

	for want := 1; want <= 5; want++ {
		got, err := Next(ctx, db, "2026-08-30")
		if err != nil {
			t.Fatalf("next %d: %v", want, err)
		}
		if got != want {
			t.Fatalf("expected %d, got %d", want, got)
		}
	}
}

func TestNextDaysAreIndependent(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()

	if _, err := Next(ctx, db, "2026-08-30"); err != nil {
		t.Fatalf("seed day one: %v", err)
	}
	if _, err := Next(ctx, db, "2026-08-30"); err != nil {
		t.Fatalf("seed day one: %v", err)
	}

	got, err := Next(ctx, db, "2026-08-31")
	if err != nil {
		t.Fatalf("next day two: %v", err)
	}
	if got != 1 {
		t.Fatalf("expected new day to restart at 1, got %d", got)
	}
}

func TestNextConcurrentCallersGetDistinctNumbers(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	const n = 16

	var wg sync.WaitGroup
	numbers := make([]int, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = db.Transaction(func(tx *gorm.DB) error {
				var err error
				numbers[i], err = Next(ctx, tx, "2026-08-30")
				return err
			})
		}(i)
	}
	wg.Wait()

	seen := make(map[int]bool, n)
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("next %d: %v", i, errs[i])
		}
		if seen[numbers[i]] {
			t.Fatalf("number %d handed out twice", numbers[i])
		}
		seen[numbers[i]] = true
	}
	for want := 1; want <= n; want++ {
		if !seen[want] {
			t.Fatalf("number %d never handed out", want)
		}
	}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:sequence_" + uuid.NewString() + "?mode=memory&cache=shared"
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
	if err := db.AutoMigrate(&models.DailyCounter{}); err != nil {
		t.Fatalf("migrate counters: %v", err)
	}
	return db
}
