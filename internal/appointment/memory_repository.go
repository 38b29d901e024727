package appointment

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-process Repository that enforces the same
// live-booking uniqueness as the schedule table's partial indexes.
type MemoryRepository struct {
	mu           sync.Mutex
	patients     map[uuid.UUID]Patient
	doctors      map[uuid.UUID]Doctor
	doctorOrder  []uuid.UUID
	bookings     map[uuid.UUID]Booking
	uploads      map[uuid.UUID][]upload
	interactions []InteractionLog
	nextLogID    int64
}

type upload struct {
	id uuid.UUID
	at time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		patients: make(map[uuid.UUID]Patient),
		doctors:  make(map[uuid.UUID]Doctor),
		bookings: make(map[uuid.UUID]Booking),
		uploads:  make(map[uuid.UUID][]upload),
	}
}

func (m *MemoryRepository) AddPatient(p Patient) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patients[p.ID] = p
}

func (m *MemoryRepository) AddDoctor(d Doctor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.doctors[d.ID]; !ok {
		m.doctorOrder = append(m.doctorOrder, d.ID)
	}
	m.doctors[d.ID] = d
}

func (m *MemoryRepository) AddUpload(patientID, uploadID uuid.UUID, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploads[patientID] = append(m.uploads[patientID], upload{id: uploadID, at: at})
}

// Interactions returns a copy of the audit rows written so far.
func (m *MemoryRepository) Interactions() []InteractionLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]InteractionLog(nil), m.interactions...)
}

func (m *MemoryRepository) GetPatientByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return &p, nil
}

func (m *MemoryRepository) GetDoctorByID(_ context.Context, id uuid.UUID) (*Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	return &d, nil
}

func (m *MemoryRepository) ListDoctorsByPatient(_ context.Context, patientID uuid.UUID) ([]Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Doctor
	for _, id := range m.doctorOrder {
		if d := m.doctors[id]; d.PatientID == patientID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *MemoryRepository) GetBookingByID(_ context.Context, id uuid.UUID) (*Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	return &b, nil
}

func (m *MemoryRepository) ListActiveBookingsByPatient(_ context.Context, patientID uuid.UUID) ([]Booking, error) {
	return m.activeWhere(func(b Booking) bool { return b.PatientID == patientID }), nil
}

func (m *MemoryRepository) ListActiveBookingsByDoctor(_ context.Context, doctorID uuid.UUID) ([]Booking, error) {
	return m.activeWhere(func(b Booking) bool { return b.DoctorID == doctorID }), nil
}

func (m *MemoryRepository) GetActiveBookingForDoctorAt(_ context.Context, doctorID uuid.UUID, at time.Time) (*Booking, error) {
	return first(m.activeWhere(func(b Booking) bool {
		return b.DoctorID == doctorID && b.AppointmentTime.Equal(at)
	})), nil
}

func (m *MemoryRepository) GetActiveBookingForPatientAt(_ context.Context, patientID uuid.UUID, at time.Time) (*Booking, error) {
	return first(m.activeWhere(func(b Booking) bool {
		return b.PatientID == patientID && b.AppointmentTime.Equal(at)
	})), nil
}

func (m *MemoryRepository) LatestUploadForPatient(_ context.Context, patientID uuid.UUID) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ups := m.uploads[patientID]
	if len(ups) == 0 {
		return uuid.Nil, ErrUploadNotFound
	}
	latest := ups[0]
	for _, u := range ups[1:] {
		if u.at.After(latest.at) {
			latest = u
		}
	}
	return latest.id, nil
}

func (m *MemoryRepository) InsertBooking(_ context.Context, b Booking) (*Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.bookings {
		if existing.Status == StatusCancelled || !existing.AppointmentTime.Equal(b.AppointmentTime) {
			continue
		}
		if existing.DoctorID == b.DoctorID {
			return nil, ErrDoctorSlotTaken
		}
		if existing.PatientID == b.PatientID {
			return nil, ErrPatientSlotTaken
		}
	}

	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.Status == "" {
		b.Status = StatusConfirmed
	}
	now := time.Now().UTC()
	b.CreatedAt, b.UpdatedAt = now, now
	m.bookings[b.ID] = b
	return &b, nil
}

func (m *MemoryRepository) CancelBooking(_ context.Context, id uuid.UUID) (*Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.Status != StatusConfirmed {
		return nil, ErrBookingNotFound
	}
	b.Status = StatusCancelled
	b.UpdatedAt = time.Now().UTC()
	m.bookings[id] = b
	return &b, nil
}

func (m *MemoryRepository) InsertInteraction(_ context.Context, entry InteractionLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextLogID++
	entry.ID = m.nextLogID
	m.interactions = append(m.interactions, entry)
	return nil
}

func (m *MemoryRepository) activeWhere(match func(Booking) bool) []Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Booking
	for _, b := range m.bookings {
		if b.Status != StatusCancelled && match(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].AppointmentTime.Before(out[j].AppointmentTime)
	})
	return out
}

func first(bs []Booking) *Booking {
	if len(bs) == 0 {
		return nil
	}
	return &bs[0]
}
