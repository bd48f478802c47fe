package db

import (
	"context"
	"fmt"

	"equipment_loan_tool/config"
	"equipment_loan_tool/logger"
	"equipment_loan_tool/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

func ConnectDB(ctx context.Context, conf config.Database, logLevel string) (*gorm.DB, error) {
	level := gormlogger.Warn
	if logLevel == "debug" {
		level = gormlogger.Info
	}

	conn, err := gorm.Open(postgres.Open(conf.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := conn.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, fmt.Errorf("gorm tracing plugin: %w", err)
	}
	logger.Infof(ctx, "Database connected %s:%d/%s", conf.Host, conf.Port, conf.Name)
	return conn, nil
}

func Close(conn *gorm.DB) {
	if conn == nil {
		return
	}
	if sqlDB, err := conn.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Material{}, &models.Loan{}, &models.ActivityLog{}); err != nil {
		return err
	}

	// 未归还的借用按物资查询更快
	if err := db.Exec(fmt.Sprintf(`
	  CREATE INDEX IF NOT EXISTS %s_open_by_material
	  ON %s (material_id, expected_return_date)
	  WHERE actual_return_date IS NULL;
	`, models.LoanTable, models.LoanTable)).Error; err != nil {
		return err
	}

	// 借出件数不能为负
	if err := db.Exec(fmt.Sprintf(`
	  DO $$ BEGIN
	    ALTER TABLE %s ADD CONSTRAINT %s_loaned_non_negative CHECK (loaned_quantity >= 0);
	  EXCEPTION WHEN duplicate_object THEN NULL;
	  END $$;
	`, models.MaterialTable, models.MaterialTable)).Error; err != nil {
		return err
	}

	return nil
}
