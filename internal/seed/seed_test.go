package seed

import (
	"fmt"
	"testing"

	marketplacedomain "github.com/pqasys/langcsebkg5-sub008/internal/marketplace/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupSeedDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&marketplacedomain.Plan{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestEnsureDefaultPlansIsIdempotent(t *testing.T) {
	db := setupSeedDB(t)

	if err := EnsureDefaultPlans(db); err != nil {
		t.Fatalf("first seed: %v", err)
	}
	if err := EnsureDefaultPlans(db); err != nil {
		t.Fatalf("second seed: %v", err)
	}

	var count int64
	if err := db.Model(&marketplacedomain.Plan{}).Count(&count).Error; err != nil {
		t.Fatalf("count plans: %v", err)
	}
	if count != int64(len(defaultPlans)) {
		t.Fatalf("expected %d plans, got %d", len(defaultPlans), count)
	}

	var enterprise marketplacedomain.Plan
	if err := db.Where("type = ?", marketplacedomain.PlanTypeEnterprise).First(&enterprise).Error; err != nil {
		t.Fatalf("load enterprise: %v", err)
	}
	if enterprise.CommissionRate != 5 {
		t.Fatalf("expected enterprise commission 5, got %v", enterprise.CommissionRate)
	}
}

func TestEnsureDefaultPlansRequiresHandle(t *testing.T) {
	if err := EnsureDefaultPlans(nil); err == nil {
		t.Fatalf("expected error for nil handle")
	}
}
