package main

import (
	"context"
	"log"

	"fleetdocs/pkg/config"
	"fleetdocs/pkg/logger"
	"fleetdocs/pkg/postgres"

	"go.uber.org/zap"
)

// schema is applied idempotently; every statement tolerates re-runs.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		telegram_id BIGINT NOT NULL UNIQUE,
		name TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS vehicles (
		id UUID PRIMARY KEY,
		plate TEXT NOT NULL UNIQUE,
		alias TEXT NOT NULL DEFAULT '',
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL UNIQUE REFERENCES users(id),
		current_vehicle_id UUID REFERENCES vehicles(id),
		pending_action TEXT NOT NULL DEFAULT '',
		pending_file_id TEXT NOT NULL DEFAULT '',
		pending_file_mime TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS documents (
		id UUID PRIMARY KEY,
		vehicle_id UUID REFERENCES vehicles(id),
		user_id UUID REFERENCES users(id),
		doc_type TEXT NOT NULL DEFAULT 'other',
		file_path TEXT NOT NULL,
		mime_type TEXT NOT NULL DEFAULT 'image/jpeg',
		status TEXT NOT NULL DEFAULT 'pending',
		vendor TEXT NOT NULL DEFAULT '',
		vendor_tax_id TEXT NOT NULL DEFAULT '',
		issue_date DATE,
		due_date DATE,
		subtotal_amount NUMERIC(12,2),
		tax_amount NUMERIC(12,2),
		total_amount NUMERIC(12,2),
		currency TEXT NOT NULL DEFAULT 'EUR',
		odometer_km INTEGER,
		notes TEXT NOT NULL DEFAULT '',
		extracted_json TEXT NOT NULL DEFAULT '',
		error_message TEXT NOT NULL DEFAULT '',
		uploaded_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		processed_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_documents_status ON documents (status, uploaded_at)`,
	`CREATE TABLE IF NOT EXISTS fuel_entries (
		id UUID PRIMARY KEY,
		document_id UUID NOT NULL UNIQUE REFERENCES documents(id),
		vehicle_id UUID NOT NULL REFERENCES vehicles(id),
		date TIMESTAMPTZ NOT NULL,
		liters NUMERIC(10,3) NOT NULL DEFAULT 0,
		price_per_liter NUMERIC(10,3) NOT NULL DEFAULT 0,
		subtotal_amount NUMERIC(12,2),
		tax_amount NUMERIC(12,2),
		total_amount NUMERIC(12,2) NOT NULL,
		station TEXT NOT NULL DEFAULT '',
		fuel_type TEXT NOT NULL DEFAULT '',
		kilometers INTEGER,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_fuel_entries_vehicle ON fuel_entries (vehicle_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS expense_entries (
		id UUID PRIMARY KEY,
		document_id UUID NOT NULL UNIQUE REFERENCES documents(id),
		vehicle_id UUID NOT NULL REFERENCES vehicles(id),
		date TIMESTAMPTZ NOT NULL,
		category TEXT NOT NULL,
		subtotal_amount NUMERIC(12,2),
		tax_amount NUMERIC(12,2),
		total_amount NUMERIC(12,2) NOT NULL,
		vendor TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS reminders (
		id UUID PRIMARY KEY,
		vehicle_id UUID NOT NULL REFERENCES vehicles(id),
		kind TEXT NOT NULL,
		due_date TIMESTAMPTZ NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		document_id UUID REFERENCES documents(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reminders_sweep ON reminders (status, due_date)`,
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Logger.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	appLogger := logger.Get()

	ctx := context.Background()
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	appLogger.Info("Applying database schema...")
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			appLogger.Fatal("Schema statement failed", zap.Error(err), zap.String("stmt", stmt))
		}
	}
	appLogger.Info("Database schema applied")
}
