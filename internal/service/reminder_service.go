package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"fleetdocs/internal/extraction"
	"fleetdocs/internal/models"
	"fleetdocs/internal/store"
)

// reminderKinds maps document types that carry a compliance deadline to the
// reminder kind they feed.
var reminderKinds = map[models.DocumentType]models.ReminderKind{
	models.DocumentTypeInsurancePolicy: models.ReminderKindInsurance,
	models.DocumentTypeInspection:      models.ReminderKindInspection,
	models.DocumentTypeTachograph:      models.ReminderKindTachograph,
}

type ReminderService struct {
	store  store.Store
	logger *zap.Logger
}

func NewReminderService(store store.Store, logger *zap.Logger) *ReminderService {
	return &ReminderService{store: store, logger: logger}
}

// UpsertFromDocument creates or refreshes the reminder a processed document
// implies. Returns nil without error when the document implies none: unmapped
// type, no vehicle, or no due date.
func (s *ReminderService) UpsertFromDocument(ctx context.Context, doc *models.Document, c extraction.Canonical) (*models.Reminder, error) {
	kind, ok := reminderKinds[c.DocType]
	if !ok || doc.VehicleID == nil || c.DueDate == "" {
		return nil, nil
	}

	dueDate, err := time.Parse("2006-01-02", c.DueDate)
	if err != nil {
		return nil, fmt.Errorf("parse due date %q: %w", c.DueDate, err)
	}

	existing, err := s.store.GetActiveReminder(ctx, *doc.VehicleID, kind, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("lookup reminder: %w", err)
	}
	if existing != nil {
		if !existing.DueDate.Equal(dueDate) {
			if err := s.store.UpdateReminderDueDate(ctx, existing.ID, dueDate); err != nil {
				return nil, fmt.Errorf("update reminder due date: %w", err)
			}
			existing.DueDate = dueDate
		}
		return existing, nil
	}

	documentID := doc.ID
	reminder := &models.Reminder{
		ID:         uuid.New(),
		VehicleID:  *doc.VehicleID,
		Kind:       kind,
		DueDate:    dueDate,
		Status:     models.ReminderStatusActive,
		DocumentID: &documentID,
		CreatedAt:  time.Now(),
	}
	if err := s.store.CreateReminder(ctx, reminder); err != nil {
		return nil, fmt.Errorf("create reminder: %w", err)
	}

	s.logger.Info("Reminder created",
		zap.String("vehicle_id", reminder.VehicleID.String()),
		zap.String("kind", string(kind)),
		zap.Time("due_date", dueDate))

	return reminder, nil
}

// ExpireOverdue flips every active reminder whose due date has passed to
// expired. Safe to run repeatedly; already expired rows are untouched.
func (s *ReminderService) ExpireOverdue(ctx context.Context) error {
	count, err := s.store.ExpireRemindersBefore(ctx, time.Now().Truncate(24*time.Hour))
	if err != nil {
		return fmt.Errorf("expire reminders: %w", err)
	}
	if count > 0 {
		s.logger.Info("Reminders expired", zap.Int64("count", count))
	}
	return nil
}
