package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	domainavailability "staysync/internal/domain/availability"
	domainbooking "staysync/internal/domain/booking"
	"staysync/internal/domain/channels"
	domainproperties "staysync/internal/domain/properties"
	domainsynclog "staysync/internal/domain/synclog"
)

// PropertyRepository keeps properties in memory. Reads return copies.
type PropertyRepository struct {
	mu    sync.RWMutex
	items map[domainproperties.PropertyID]*domainproperties.Property
}

func NewPropertyRepository() *PropertyRepository {
	return &PropertyRepository{items: make(map[domainproperties.PropertyID]*domainproperties.Property)}
}

func (r *PropertyRepository) ByID(ctx context.Context, id domainproperties.PropertyID) (*domainproperties.Property, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.items[id]
	if !ok {
		return nil, domainproperties.ErrNotFound
	}
	return p.Clone(), nil
}

func (r *PropertyRepository) ByPlatformID(ctx context.Context, platform channels.Platform, externalID string) (*domainproperties.Property, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.items {
		if !p.IsActive() {
			continue
		}
		if id, ok := p.Connections.ID(platform); ok && id == externalID {
			return p.Clone(), nil
		}
	}
	return nil, domainproperties.ErrNotFound
}

func (r *PropertyRepository) ListByHost(ctx context.Context, host domainproperties.HostID) ([]*domainproperties.Property, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domainproperties.Property
	for _, p := range r.items {
		if p.HostID == host {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *PropertyRepository) Save(ctx context.Context, p *domainproperties.Property) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.Version++
	r.items[p.ID] = p.Clone()
	return nil
}

func (r *PropertyRepository) Delete(ctx context.Context, id domainproperties.PropertyID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return domainproperties.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

// CalendarRepository stores one calendar per property. Save is a
// compare-and-swap on Version.
type CalendarRepository struct {
	mu        sync.RWMutex
	calendars map[domainproperties.PropertyID]*domainavailability.Calendar
}

func NewCalendarRepository() *CalendarRepository {
	return &CalendarRepository{calendars: make(map[domainproperties.PropertyID]*domainavailability.Calendar)}
}

// Calendar returns a copy of the property's calendar, or an empty one.
func (r *CalendarRepository) Calendar(ctx context.Context, id domainproperties.PropertyID) (*domainavailability.Calendar, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if cal, ok := r.calendars[id]; ok {
		return cal.Clone(), nil
	}
	return domainavailability.NewCalendar(id), nil
}

func (r *CalendarRepository) Save(ctx context.Context, cal *domainavailability.Calendar) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var current int64
	if stored, ok := r.calendars[cal.PropertyID]; ok {
		current = stored.Version
	}
	if current != cal.Version {
		return domainavailability.ErrConcurrentUpdate
	}
	cal.Version++
	r.calendars[cal.PropertyID] = cal.Clone()
	return nil
}

func (r *CalendarRepository) BlockByID(ctx context.Context, id domainavailability.BlockID) (*domainavailability.DateBlock, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, cal := range r.calendars {
		if b, ok := cal.Find(id); ok {
			return &b, nil
		}
	}
	return nil, domainavailability.ErrBlockNotFound
}

func (r *CalendarRepository) PropertiesWithExpiredHolds(ctx context.Context, now time.Time) ([]domainproperties.PropertyID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domainproperties.PropertyID
	for id, cal := range r.calendars {
		if cal.HasExpiredHolds(now) {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

type platformRef struct {
	platform channels.Platform
	ref      string
}

// BookingRepository stores bookings and enforces (platform, ref) uniqueness.
type BookingRepository struct {
	mu    sync.RWMutex
	items map[domainbooking.BookingID]*domainbooking.Booking
	refs  map[platformRef]domainbooking.BookingID
}

func NewBookingRepository() *BookingRepository {
	return &BookingRepository{
		items: make(map[domainbooking.BookingID]*domainbooking.Booking),
		refs:  make(map[platformRef]domainbooking.BookingID),
	}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.items[id]
	if !ok {
		return nil, domainbooking.ErrNotFound
	}
	return b.Clone(), nil
}

func (r *BookingRepository) ByPlatformReference(ctx context.Context, platform channels.Platform, ref string) (*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.refs[platformRef{platform: platform, ref: ref}]
	if !ok {
		return nil, domainbooking.ErrNotFound
	}
	return r.items[id].Clone(), nil
}

func (r *BookingRepository) ListByProperty(ctx context.Context, id domainproperties.PropertyID) ([]*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domainbooking.Booking
	for _, b := range r.items {
		if b.PropertyID == id {
			out = append(out, b.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Range.Start.Before(out[j].Range.Start) })
	return out, nil
}

func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if stored, ok := r.items[b.ID]; ok && stored.Version != b.Version {
		return domainbooking.ErrConcurrentUpdate
	}
	var key platformRef
	if b.PlatformBookingID != "" {
		key = platformRef{platform: b.Platform, ref: b.PlatformBookingID}
		if owner, ok := r.refs[key]; ok && owner != b.ID {
			return domainbooking.ErrDuplicateReference
		}
	}
	b.Version++
	r.items[b.ID] = b.Clone()
	if b.PlatformBookingID != "" {
		r.refs[key] = b.ID
	}
	return nil
}

// SyncLogRepository is an append-only in-memory log.
type SyncLogRepository struct {
	mu      sync.RWMutex
	entries []domainsynclog.Entry
}

func NewSyncLogRepository() *SyncLogRepository {
	return &SyncLogRepository{}
}

func (r *SyncLogRepository) Append(ctx context.Context, entry domainsynclog.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *SyncLogRepository) ListByProperty(ctx context.Context, id domainproperties.PropertyID, limit int) ([]domainsynclog.Entry, error) {
	out := r.filter(func(e domainsynclog.Entry) bool { return e.PropertyID == id })
	domainsynclog.NewestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *SyncLogRepository) ListByBooking(ctx context.Context, bookingID string) ([]domainsynclog.Entry, error) {
	return r.filter(func(e domainsynclog.Entry) bool { return e.BookingID == bookingID }), nil
}

func (r *SyncLogRepository) PruneBefore(ctx context.Context, cutoff time.Time, archive func(context.Context, []domainsynclog.Entry) error) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var pruned []domainsynclog.Entry
	kept := r.entries[:0:0]
	for _, e := range r.entries {
		if e.CreatedAt.Before(cutoff) {
			pruned = append(pruned, e)
			continue
		}
		kept = append(kept, e)
	}
	if len(pruned) == 0 {
		return 0, nil
	}
	if archive != nil {
		if err := archive(ctx, pruned); err != nil {
			return 0, err
		}
	}
	r.entries = kept
	return len(pruned), nil
}

func (r *SyncLogRepository) filter(match func(domainsynclog.Entry) bool) []domainsynclog.Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domainsynclog.Entry
	for _, e := range r.entries {
		if match(e) {
			out = append(out, e)
		}
	}
	return out
}

var (
	_ domainproperties.Repository   = (*PropertyRepository)(nil)
	_ domainavailability.Repository = (*CalendarRepository)(nil)
	_ domainbooking.Repository      = (*BookingRepository)(nil)
	_ domainsynclog.Repository      = (*SyncLogRepository)(nil)
	_ domainsynclog.Pruner          = (*SyncLogRepository)(nil)
)
