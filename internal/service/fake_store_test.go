package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"fleetdocs/internal/models"
	"fleetdocs/internal/store"
)

// fakeStore is an in-memory store.Store for service tests. Transactions are
// not simulated; InTx simply runs the callback against the same maps.
type fakeStore struct {
	mu sync.Mutex

	users     map[uuid.UUID]*models.User
	sessions  map[uuid.UUID]*models.Session // keyed by user id
	vehicles  map[uuid.UUID]*models.Vehicle
	documents map[uuid.UUID]*models.Document
	fuel      map[uuid.UUID]*models.FuelEntry
	expenses  map[uuid.UUID]*models.ExpenseEntry
	reminders map[uuid.UUID]*models.Reminder

	failCreateReminder bool
}

var _ store.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:     make(map[uuid.UUID]*models.User),
		sessions:  make(map[uuid.UUID]*models.Session),
		vehicles:  make(map[uuid.UUID]*models.Vehicle),
		documents: make(map[uuid.UUID]*models.Document),
		fuel:      make(map[uuid.UUID]*models.FuelEntry),
		expenses:  make(map[uuid.UUID]*models.ExpenseEntry),
		reminders: make(map[uuid.UUID]*models.Reminder),
	}
}

func (f *fakeStore) InTx(ctx context.Context, fn func(ctx context.Context, s store.Store) error) error {
	return fn(ctx, f)
}

func (f *fakeStore) CreateUser(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.ID] = u
	return nil
}

func (f *fakeStore) GetUserByTelegramID(_ context.Context, telegramID int64) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.TelegramID == telegramID {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) GetSessionByUserID(_ context.Context, userID uuid.UUID) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[userID], nil
}

func (f *fakeStore) SaveSession(_ context.Context, s *models.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *s
	f.sessions[s.UserID] = &copied
	return nil
}

func (f *fakeStore) CreateVehicle(_ context.Context, v *models.Vehicle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vehicles[v.ID] = v
	return nil
}

func (f *fakeStore) GetVehicleByID(_ context.Context, id uuid.UUID) (*models.Vehicle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.vehicles[id], nil
}

func (f *fakeStore) GetVehicleByPlate(_ context.Context, plate string) (*models.Vehicle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.vehicles {
		if v.Plate == plate {
			return v, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ListActiveVehicles(_ context.Context) ([]*models.Vehicle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Vehicle
	for _, v := range f.vehicles {
		if v.Active {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateDocument(_ context.Context, d *models.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *d
	f.documents[d.ID] = &copied
	return nil
}

func (f *fakeStore) GetDocumentByID(_ context.Context, id uuid.UUID) (*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.documents[id]
	if !ok {
		return nil, nil
	}
	copied := *d
	return &copied, nil
}

func (f *fakeStore) ListPendingDocuments(_ context.Context, limit int) ([]*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Document
	for _, d := range f.documents {
		if d.Status == models.DocumentStatusPending && len(out) < limit {
			copied := *d
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateDocument(_ context.Context, d *models.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *d
	f.documents[d.ID] = &copied
	return nil
}

func (f *fakeStore) MarkDocumentError(_ context.Context, id uuid.UUID, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := f.documents[id]; ok {
		d.Status = models.DocumentStatusError
		d.ErrorMessage = message
	}
	return nil
}

func (f *fakeStore) CreateFuelEntry(_ context.Context, e *models.FuelEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fuel[e.ID] = e
	return nil
}

func (f *fakeStore) GetFuelEntryByDocumentID(_ context.Context, documentID uuid.UUID) (*models.FuelEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.fuel {
		if e.DocumentID == documentID {
			return e, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) LatestFuelEntryWithoutOdometer(_ context.Context, vehicleID uuid.UUID) (*models.FuelEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *models.FuelEntry
	for _, e := range f.fuel {
		if e.VehicleID != vehicleID || e.Kilometers != nil {
			continue
		}
		if latest == nil || e.CreatedAt.After(latest.CreatedAt) {
			latest = e
		}
	}
	return latest, nil
}

func (f *fakeStore) SetFuelEntryKilometers(_ context.Context, id uuid.UUID, kilometers int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.fuel[id]; ok {
		e.Kilometers = &kilometers
	}
	return nil
}

func (f *fakeStore) CreateExpenseEntry(_ context.Context, e *models.ExpenseEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expenses[e.ID] = e
	return nil
}

func (f *fakeStore) GetExpenseEntryByDocumentID(_ context.Context, documentID uuid.UUID) (*models.ExpenseEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.expenses {
		if e.DocumentID == documentID {
			return e, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) CreateReminder(_ context.Context, r *models.Reminder) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreateReminder {
		return errReminderFailure
	}
	f.reminders[r.ID] = r
	return nil
}

func (f *fakeStore) GetActiveReminder(_ context.Context, vehicleID uuid.UUID, kind models.ReminderKind, documentID uuid.UUID) (*models.Reminder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.reminders {
		if r.VehicleID == vehicleID && r.Kind == kind && r.Status == models.ReminderStatusActive &&
			r.DocumentID != nil && *r.DocumentID == documentID {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) UpdateReminderDueDate(_ context.Context, id uuid.UUID, due time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.reminders[id]; ok {
		r.DueDate = due
	}
	return nil
}

func (f *fakeStore) ExpireRemindersBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, r := range f.reminders {
		if r.Status == models.ReminderStatusActive && r.DueDate.Before(cutoff) {
			r.Status = models.ReminderStatusExpired
			count++
		}
	}
	return count, nil
}
