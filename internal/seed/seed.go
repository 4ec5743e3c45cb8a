package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	marketplacedomain "github.com/pqasys/langcsebkg5-sub008/internal/marketplace/domain"
	"gorm.io/gorm"
)

type planDefault struct {
	Type           marketplacedomain.PlanType
	Name           string
	CommissionRate float64
	MonthlyFee     int64
}

// Higher tiers pay a larger fee for a smaller commission share.
var defaultPlans = []planDefault{
	{Type: marketplacedomain.PlanTypeBasic, Name: "Basic", CommissionRate: 15, MonthlyFee: 0},
	{Type: marketplacedomain.PlanTypeProfessional, Name: "Professional", CommissionRate: 10, MonthlyFee: 4900},
	{Type: marketplacedomain.PlanTypeEnterprise, Name: "Enterprise", CommissionRate: 5, MonthlyFee: 19900},
}

// EnsureDefaultPlans seeds the plan catalogue. Existing plans are left untouched.
func EnsureDefaultPlans(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, def := range defaultPlans {
			if err := ensurePlanTx(ctx, tx, node, def); err != nil {
				return err
			}
		}
		return nil
	})
}

func ensurePlanTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, def planDefault) error {
	var plan marketplacedomain.Plan
	err := tx.WithContext(ctx).Where("type = ?", def.Type).First(&plan).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	plan = marketplacedomain.Plan{
		ID:             node.Generate(),
		Type:           def.Type,
		Name:           def.Name,
		CommissionRate: def.CommissionRate,
		MonthlyFee:     def.MonthlyFee,
		CreatedAt:      time.Now().UTC(),
	}
	return tx.WithContext(ctx).Create(&plan).Error
}
