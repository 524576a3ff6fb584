package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"idstation-backend/internal/domain"
)

// In-memory stores mirror the Postgres repositories' contracts so the
// workflow services can be exercised without a database. They favor clarity
// over performance.

type MemoryCitizenStore struct {
	mu       sync.Mutex
	nextID   int64
	citizens map[int64]domain.Citizen
	orders   *MemoryOrderStore
}

type MemoryOrderStore struct {
	mu       sync.Mutex
	nextID   int64
	orders   map[int64]domain.Order
	citizens *MemoryCitizenStore
	printers map[int64]string
}

// NewMemoryStores returns citizen and order stores wired to each other, the
// way the SQL schema ties the two tables together.
func NewMemoryStores() (*MemoryCitizenStore, *MemoryOrderStore) {
	cs := &MemoryCitizenStore{nextID: 1, citizens: make(map[int64]domain.Citizen)}
	os := &MemoryOrderStore{nextID: 1, orders: make(map[int64]domain.Order), citizens: cs, printers: make(map[int64]string)}
	cs.orders = os
	return cs, os
}

func citizenMatches(c domain.Citizen, term string) bool {
	if term == "" {
		return true
	}
	term = strings.ToLower(term)
	for _, field := range []string{c.RegNumber, c.FirstName, c.MiddleName, c.LastName, c.Phone} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

func (s *MemoryCitizenStore) Search(_ context.Context, stationID *int64, q CitizenQuery) ([]domain.Citizen, int64, error) {
	q.normalize()
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []domain.Citizen
	for _, c := range s.citizens {
		if stationID != nil && c.StationID != *stationID {
			continue
		}
		if !citizenMatches(c, q.Term) {
			continue
		}
		matched = append(matched, c)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].RegNumber != matched[j].RegNumber {
			if q.SortDesc {
				return matched[i].RegNumber > matched[j].RegNumber
			}
			return matched[i].RegNumber < matched[j].RegNumber
		}
		if q.SortDesc {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].ID < matched[j].ID
	})

	total := int64(len(matched))
	start := (q.Page - 1) * q.PageSize
	if start >= len(matched) {
		return nil, total, nil
	}
	end := start + q.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (s *MemoryCitizenStore) GetByID(_ context.Context, stationID *int64, id int64) (*domain.Citizen, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.citizens[id]
	if !ok {
		return nil, ErrNotFound
	}
	if stationID != nil && c.StationID != *stationID {
		return nil, ErrStationMismatch
	}
	return &c, nil
}

func (s *MemoryCitizenStore) Create(_ context.Context, c domain.Citizen) (*domain.Citizen, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.nextID
	s.nextID++
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now
	s.citizens[c.ID] = c
	return &c, nil
}

func (s *MemoryCitizenStore) Update(_ context.Context, stationID *int64, id int64, c domain.Citizen) (*domain.Citizen, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.citizens[id]
	if !ok {
		return nil, ErrNotFound
	}
	if stationID != nil && cur.StationID != *stationID {
		return nil, ErrStationMismatch
	}
	cur.RegNumber = c.RegNumber
	cur.FirstName = c.FirstName
	cur.MiddleName = c.MiddleName
	cur.LastName = c.LastName
	cur.Gender = c.Gender
	cur.BirthDate = c.BirthDate
	cur.BirthPlace = c.BirthPlace
	cur.Occupation = c.Occupation
	cur.Phone = c.Phone
	cur.EmergencyName = c.EmergencyName
	cur.EmergencyPhone = c.EmergencyPhone
	cur.EmergencyRelation = c.EmergencyRelation
	cur.PhotoRef = c.PhotoRef
	cur.UpdatedAt = time.Now()
	s.citizens[id] = cur
	return &cur, nil
}

// Delete resolves existence and scope before the order guard, matching the
// SQL store: cross-station callers see not-found, never the order count.
func (s *MemoryCitizenStore) Delete(ctx context.Context, stationID *int64, id int64) error {
	s.mu.Lock()
	c, ok := s.citizens[id]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	if stationID != nil && c.StationID != *stationID {
		s.mu.Unlock()
		return ErrStationMismatch
	}
	s.mu.Unlock()

	if s.orders != nil && s.orders.countForCitizen(id) > 0 {
		return ErrCitizenHasOrders
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.citizens[id]; !ok {
		return ErrNotFound
	}
	delete(s.citizens, id)
	return nil
}

func (s *MemoryCitizenStore) SetVerification(_ context.Context, stationID *int64, id int64, status domain.Status) (*domain.Citizen, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.citizens[id]
	if !ok {
		return nil, ErrNotFound
	}
	if stationID != nil && c.StationID != *stationID {
		return nil, ErrStationMismatch
	}
	c.IsVerified = status
	c.UpdatedAt = time.Now()
	s.citizens[id] = c
	return &c, nil
}

func (s *MemoryOrderStore) countForCitizen(citizenID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, o := range s.orders {
		if o.CitizenID == citizenID {
			n++
		}
	}
	return n
}

// SetPrinterName registers a username for printer summaries, standing in
// for the users table join.
func (s *MemoryOrderStore) SetPrinterName(id int64, username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.printers[id] = username
}

func (s *MemoryOrderStore) withCitizen(o domain.Order) domain.Order {
	if c, err := s.citizens.GetByID(context.Background(), nil, o.CitizenID); err == nil {
		o.Citizen = &domain.OrderCitizenSummary{
			ID:        c.ID,
			RegNumber: c.RegNumber,
			FullName:  c.FullName(),
			Phone:     c.Phone,
		}
	}
	if o.PrinterID != nil {
		s.mu.Lock()
		name := s.printers[*o.PrinterID]
		s.mu.Unlock()
		o.Printer = &domain.OrderPrinterSummary{ID: *o.PrinterID, Username: name}
	}
	return o
}

func orderMatches(o domain.Order, c *domain.Citizen, term string) bool {
	if term == "" {
		return true
	}
	term = strings.ToLower(term)
	fields := []string{o.OrderNumber}
	if c != nil {
		fields = append(fields, c.RegNumber, c.FirstName, c.MiddleName, c.LastName, c.Phone)
	}
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

func (s *MemoryOrderStore) Search(ctx context.Context, stationID *int64, q OrderQuery) ([]domain.Order, int64, error) {
	q.normalize()
	s.mu.Lock()
	snapshot := make([]domain.Order, 0, len(s.orders))
	for _, o := range s.orders {
		snapshot = append(snapshot, o)
	}
	s.mu.Unlock()

	var matched []domain.Order
	for _, o := range snapshot {
		if stationID != nil && o.StationID != *stationID {
			continue
		}
		if q.Status != "" && o.OrderStatus != q.Status {
			continue
		}
		c, _ := s.citizens.GetByID(ctx, nil, o.CitizenID)
		if !orderMatches(o, c, q.Term) {
			continue
		}
		matched = append(matched, s.withCitizen(o))
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].OrderNumber != matched[j].OrderNumber {
			if q.SortDesc {
				return matched[i].OrderNumber > matched[j].OrderNumber
			}
			return matched[i].OrderNumber < matched[j].OrderNumber
		}
		if q.SortDesc {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].ID < matched[j].ID
	})

	total := int64(len(matched))
	start := (q.Page - 1) * q.PageSize
	if start >= len(matched) {
		return nil, total, nil
	}
	end := start + q.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (s *MemoryOrderStore) GetByID(_ context.Context, stationID *int64, id int64) (*domain.Order, error) {
	s.mu.Lock()
	o, ok := s.orders[id]
	s.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	if stationID != nil && o.StationID != *stationID {
		return nil, ErrStationMismatch
	}
	out := s.withCitizen(o)
	return &out, nil
}

func (s *MemoryOrderStore) CreateForCitizen(ctx context.Context, o domain.Order) (*domain.Order, error) {
	c, err := s.citizens.GetByID(ctx, nil, o.CitizenID)
	if err != nil {
		return nil, err
	}
	if c.StationID != o.StationID {
		return nil, ErrStationMismatch
	}
	if c.IsVerified != domain.StatusApproved {
		return nil, ErrCitizenNotApproved
	}

	s.mu.Lock()
	o.ID = s.nextID
	s.nextID++
	now := time.Now()
	o.CreatedAt = now
	o.UpdatedAt = now
	o.Citizen = nil
	o.Printer = nil
	s.orders[o.ID] = o
	s.mu.Unlock()

	out := s.withCitizen(o)
	return &out, nil
}

func (s *MemoryOrderStore) Delete(_ context.Context, stationID *int64, id, registrarID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return ErrNotFound
	}
	if stationID != nil && o.StationID != *stationID {
		return ErrStationMismatch
	}
	if o.OrderStatus != domain.StatusPending {
		return ErrOrderNotPending
	}
	if o.RegistrarID != registrarID {
		return ErrNotOrderOwner
	}
	delete(s.orders, id)
	return nil
}

func (s *MemoryOrderStore) SetStatus(_ context.Context, stationID *int64, id int64, status domain.Status) (*domain.Order, error) {
	s.mu.Lock()
	o, ok := s.orders[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	if stationID != nil && o.StationID != *stationID {
		s.mu.Unlock()
		return nil, ErrStationMismatch
	}
	o.OrderStatus = status
	o.UpdatedAt = time.Now()
	s.orders[id] = o
	s.mu.Unlock()

	out := s.withCitizen(o)
	return &out, nil
}

func (s *MemoryOrderStore) SetPrint(_ context.Context, stationID *int64, id int64, status domain.Status, printerID *int64) (*domain.Order, error) {
	s.mu.Lock()
	o, ok := s.orders[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	if stationID != nil && o.StationID != *stationID {
		s.mu.Unlock()
		return nil, ErrStationMismatch
	}
	o.IsPrinted = status
	o.PrinterID = printerID
	o.UpdatedAt = time.Now()
	s.orders[id] = o
	s.mu.Unlock()

	out := s.withCitizen(o)
	return &out, nil
}

func (s *MemoryOrderStore) SetAccepted(_ context.Context, stationID *int64, id int64) (*domain.Order, error) {
	s.mu.Lock()
	o, ok := s.orders[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	if stationID != nil && o.StationID != *stationID {
		s.mu.Unlock()
		return nil, ErrStationMismatch
	}
	o.IsAccepted = domain.StatusApproved
	o.UpdatedAt = time.Now()
	s.orders[id] = o
	s.mu.Unlock()

	out := s.withCitizen(o)
	return &out, nil
}

func (s *MemoryOrderStore) TrackByPhone(ctx context.Context, stationID *int64, phone string) ([]domain.Order, error) {
	s.mu.Lock()
	snapshot := make([]domain.Order, 0, len(s.orders))
	for _, o := range s.orders {
		snapshot = append(snapshot, o)
	}
	s.mu.Unlock()

	var matched []domain.Order
	for _, o := range snapshot {
		if stationID != nil && o.StationID != *stationID {
			continue
		}
		c, err := s.citizens.GetByID(ctx, nil, o.CitizenID)
		if err != nil || c.Phone != phone {
			continue
		}
		matched = append(matched, s.withCitizen(o))
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].OrderNumber != matched[j].OrderNumber {
			return matched[i].OrderNumber > matched[j].OrderNumber
		}
		return matched[i].ID > matched[j].ID
	})
	return matched, nil
}
