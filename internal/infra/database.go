package infra

import (
	"fmt"

	"medpos/internal/config"
	"medpos/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase opens a GORM connection backed by pgx and sizes the pool.
// Schema changes are applied separately by RunMigrations (the migrate command).
func NewDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)

	return db, nil
}

// RunMigrations creates / updates all tables, then applies the constraints
// and indexes AutoMigrate cannot express.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.User{},
		&model.Patient{},
		&model.Company{},
		&model.Product{},
		&model.StockLocation{},
		&model.Stock{},
		&model.StockMovement{},
		&model.MedicalDevice{},
		&model.Payment{},
		&model.PaymentDetail{},
		&model.Sale{},
		&model.SaleItem{},
		&model.CNAMDossier{},
		&model.CNAMStepHistory{},
		&model.PatientHistory{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL. Each statement is guarded so
// re-running on an already-patched DB is a no-op.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		// The decrement floors at zero; the constraint catches any other writer.
		{"stocks non-negative quantity", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_stocks_quantity_non_negative') THEN
    ALTER TABLE stocks ADD CONSTRAINT chk_stocks_quantity_non_negative CHECK (quantity >= 0);
  END IF;
END $$`},
		{"sales bill exactly one client", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_sales_single_client') THEN
    ALTER TABLE sales ADD CONSTRAINT chk_sales_single_client
      CHECK ((patient_id IS NULL) <> (company_id IS NULL));
  END IF;
END $$`},
		{"sale items reference one article", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_sale_items_single_article') THEN
    ALTER TABLE sale_items ADD CONSTRAINT chk_sale_items_single_article
      CHECK ((product_id IS NULL) <> (medical_device_id IS NULL));
  END IF;
END $$`},
		// Stock lookup picks the most recently updated row per product.
		{"stocks latest-per-product index",
			`CREATE INDEX IF NOT EXISTS idx_stocks_product_updated ON stocks (product_id, updated_at DESC)`},
		{"open dossiers partial index",
			`CREATE INDEX IF NOT EXISTS idx_cnam_dossiers_open ON cnam_dossiers (status)
			   WHERE status NOT IN ('TERMINE', 'REFUSE')`},
	}

	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}
