package memory

import (
	"context"
	"errors"
	"sort"
	"time"

	domainavailability "staysync/internal/domain/availability"
	domainbooking "staysync/internal/domain/booking"
	"staysync/internal/domain/channels"
	domainproperties "staysync/internal/domain/properties"
	domainsynclog "staysync/internal/domain/synclog"
)

// propertyTx stages property saves and deletes. A nil entry is a delete.
type propertyTx struct {
	base    domainproperties.Repository
	pending map[domainproperties.PropertyID]*domainproperties.Property
}

func newPropertyTx(base domainproperties.Repository) *propertyTx {
	return &propertyTx{base: base, pending: make(map[domainproperties.PropertyID]*domainproperties.Property)}
}

func (t *propertyTx) ByID(ctx context.Context, id domainproperties.PropertyID) (*domainproperties.Property, error) {
	if p, ok := t.pending[id]; ok {
		if p == nil {
			return nil, domainproperties.ErrNotFound
		}
		return p.Clone(), nil
	}
	return t.base.ByID(ctx, id)
}

func (t *propertyTx) ByPlatformID(ctx context.Context, platform channels.Platform, externalID string) (*domainproperties.Property, error) {
	for _, id := range sortedKeys(t.pending) {
		p := t.pending[id]
		if p == nil || !p.IsActive() {
			continue
		}
		if ext, ok := p.Connections.ID(platform); ok && ext == externalID {
			return p.Clone(), nil
		}
	}
	p, err := t.base.ByPlatformID(ctx, platform, externalID)
	if err != nil {
		return nil, err
	}
	if _, shadowed := t.pending[p.ID]; shadowed {
		return nil, domainproperties.ErrNotFound
	}
	return p, nil
}

func (t *propertyTx) ListByHost(ctx context.Context, host domainproperties.HostID) ([]*domainproperties.Property, error) {
	stored, err := t.base.ListByHost(ctx, host)
	if err != nil {
		return nil, err
	}
	out := stored[:0]
	for _, p := range stored {
		if _, shadowed := t.pending[p.ID]; !shadowed {
			out = append(out, p)
		}
	}
	for _, p := range t.pending {
		if p != nil && p.HostID == host {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *propertyTx) Save(ctx context.Context, p *domainproperties.Property) error {
	t.pending[p.ID] = p.Clone()
	p.Version++
	return nil
}

func (t *propertyTx) Delete(ctx context.Context, id domainproperties.PropertyID) error {
	if _, err := t.ByID(ctx, id); err != nil {
		return err
	}
	t.pending[id] = nil
	return nil
}

func (t *propertyTx) apply(ctx context.Context) error {
	for _, id := range sortedKeys(t.pending) {
		p := t.pending[id]
		if p == nil {
			if err := t.base.Delete(ctx, id); err != nil && !errors.Is(err, domainproperties.ErrNotFound) {
				return err
			}
			continue
		}
		if err := t.base.Save(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

type stagedCalendar struct {
	expected int64
	cal      *domainavailability.Calendar
}

// calendarTx stages calendar saves. Each staged calendar remembers the
// stored version it was read at; commit fails if that version moved.
type calendarTx struct {
	base    domainavailability.Repository
	pending map[domainproperties.PropertyID]stagedCalendar
}

func newCalendarTx(base domainavailability.Repository) *calendarTx {
	return &calendarTx{base: base, pending: make(map[domainproperties.PropertyID]stagedCalendar)}
}

func (t *calendarTx) Calendar(ctx context.Context, id domainproperties.PropertyID) (*domainavailability.Calendar, error) {
	if s, ok := t.pending[id]; ok {
		return s.cal.Clone(), nil
	}
	return t.base.Calendar(ctx, id)
}

func (t *calendarTx) Save(ctx context.Context, cal *domainavailability.Calendar) error {
	visible, err := t.Calendar(ctx, cal.PropertyID)
	if err != nil {
		return err
	}
	if visible.Version != cal.Version {
		return domainavailability.ErrConcurrentUpdate
	}
	expected := cal.Version
	if s, ok := t.pending[cal.PropertyID]; ok {
		expected = s.expected
	}
	cal.Version++
	t.pending[cal.PropertyID] = stagedCalendar{expected: expected, cal: cal.Clone()}
	return nil
}

func (t *calendarTx) BlockByID(ctx context.Context, id domainavailability.BlockID) (*domainavailability.DateBlock, error) {
	for _, pid := range sortedKeys(t.pending) {
		if b, ok := t.pending[pid].cal.Find(id); ok {
			return &b, nil
		}
	}
	b, err := t.base.BlockByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, shadowed := t.pending[b.PropertyID]; shadowed {
		return nil, domainavailability.ErrBlockNotFound
	}
	return b, nil
}

func (t *calendarTx) PropertiesWithExpiredHolds(ctx context.Context, now time.Time) ([]domainproperties.PropertyID, error) {
	stored, err := t.base.PropertiesWithExpiredHolds(ctx, now)
	if err != nil {
		return nil, err
	}
	out := stored[:0]
	for _, id := range stored {
		if _, shadowed := t.pending[id]; !shadowed {
			out = append(out, id)
		}
	}
	for id, s := range t.pending {
		if s.cal.HasExpiredHolds(now) {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (t *calendarTx) validate(ctx context.Context) error {
	for id, s := range t.pending {
		stored, err := t.base.Calendar(ctx, id)
		if err != nil {
			return err
		}
		if stored.Version != s.expected {
			return domainavailability.ErrConcurrentUpdate
		}
	}
	return nil
}

func (t *calendarTx) apply(ctx context.Context) error {
	for _, id := range sortedKeys(t.pending) {
		s := t.pending[id]
		cal := s.cal.Clone()
		cal.Version = s.expected
		if err := t.base.Save(ctx, cal); err != nil {
			return err
		}
	}
	return nil
}

type stagedBooking struct {
	expected int64
	existed  bool
	booking  *domainbooking.Booking
}

// bookingTx stages booking saves with the same version discipline as
// calendarTx, plus the (platform, ref) uniqueness check.
type bookingTx struct {
	base    domainbooking.Repository
	pending map[domainbooking.BookingID]stagedBooking
}

func newBookingTx(base domainbooking.Repository) *bookingTx {
	return &bookingTx{base: base, pending: make(map[domainbooking.BookingID]stagedBooking)}
}

func (t *bookingTx) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	if s, ok := t.pending[id]; ok {
		return s.booking.Clone(), nil
	}
	return t.base.ByID(ctx, id)
}

func (t *bookingTx) ByPlatformReference(ctx context.Context, platform channels.Platform, ref string) (*domainbooking.Booking, error) {
	for _, id := range sortedKeys(t.pending) {
		b := t.pending[id].booking
		if b.Platform == platform && b.PlatformBookingID == ref {
			return b.Clone(), nil
		}
	}
	return t.base.ByPlatformReference(ctx, platform, ref)
}

func (t *bookingTx) ListByProperty(ctx context.Context, id domainproperties.PropertyID) ([]*domainbooking.Booking, error) {
	stored, err := t.base.ListByProperty(ctx, id)
	if err != nil {
		return nil, err
	}
	out := stored[:0]
	for _, b := range stored {
		if _, shadowed := t.pending[b.ID]; !shadowed {
			out = append(out, b)
		}
	}
	for _, s := range t.pending {
		if s.booking.PropertyID == id {
			out = append(out, s.booking.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Range.Start.Before(out[j].Range.Start) })
	return out, nil
}

func (t *bookingTx) Save(ctx context.Context, b *domainbooking.Booking) error {
	visible, err := t.ByID(ctx, b.ID)
	found := err == nil
	if err != nil && !errors.Is(err, domainbooking.ErrNotFound) {
		return err
	}
	if found && visible.Version != b.Version {
		return domainbooking.ErrConcurrentUpdate
	}
	if b.PlatformBookingID != "" {
		owner, err := t.ByPlatformReference(ctx, b.Platform, b.PlatformBookingID)
		if err == nil && owner.ID != b.ID {
			return domainbooking.ErrDuplicateReference
		}
		if err != nil && !errors.Is(err, domainbooking.ErrNotFound) {
			return err
		}
	}
	staged := stagedBooking{expected: b.Version, existed: found}
	if s, ok := t.pending[b.ID]; ok {
		staged.expected, staged.existed = s.expected, s.existed
	}
	b.Version++
	staged.booking = b.Clone()
	t.pending[b.ID] = staged
	return nil
}

func (t *bookingTx) validate(ctx context.Context) error {
	for id, s := range t.pending {
		stored, err := t.base.ByID(ctx, id)
		switch {
		case err == nil:
			if !s.existed || stored.Version != s.expected {
				return domainbooking.ErrConcurrentUpdate
			}
		case !errors.Is(err, domainbooking.ErrNotFound):
			return err
		}
		if ref := s.booking.PlatformBookingID; ref != "" {
			owner, err := t.base.ByPlatformReference(ctx, s.booking.Platform, ref)
			if err == nil && owner.ID != id {
				return domainbooking.ErrDuplicateReference
			}
		}
	}
	return nil
}

func (t *bookingTx) apply(ctx context.Context) error {
	for _, id := range sortedKeys(t.pending) {
		s := t.pending[id]
		b := s.booking.Clone()
		b.Version = s.expected
		if err := t.base.Save(ctx, b); err != nil {
			return err
		}
	}
	return nil
}

// syncLogTx buffers appends until commit.
type syncLogTx struct {
	base    domainsynclog.Repository
	pending []domainsynclog.Entry
}

func (t *syncLogTx) Append(ctx context.Context, entry domainsynclog.Entry) error {
	t.pending = append(t.pending, entry)
	return nil
}

func (t *syncLogTx) ListByProperty(ctx context.Context, id domainproperties.PropertyID, limit int) ([]domainsynclog.Entry, error) {
	stored, err := t.base.ListByProperty(ctx, id, limit)
	if err != nil {
		return nil, err
	}
	out := append(stored, t.staged(func(e domainsynclog.Entry) bool { return e.PropertyID == id })...)
	domainsynclog.NewestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (t *syncLogTx) ListByBooking(ctx context.Context, bookingID string) ([]domainsynclog.Entry, error) {
	stored, err := t.base.ListByBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	return append(stored, t.staged(func(e domainsynclog.Entry) bool { return e.BookingID == bookingID })...), nil
}

func (t *syncLogTx) staged(match func(domainsynclog.Entry) bool) []domainsynclog.Entry {
	var out []domainsynclog.Entry
	for _, e := range t.pending {
		if match(e) {
			out = append(out, e)
		}
	}
	return out
}

func (t *syncLogTx) apply(ctx context.Context) error {
	for _, e := range t.pending {
		if err := t.base.Append(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

var (
	_ domainproperties.Repository   = (*propertyTx)(nil)
	_ domainavailability.Repository = (*calendarTx)(nil)
	_ domainbooking.Repository      = (*bookingTx)(nil)
	_ domainsynclog.Repository      = (*syncLogTx)(nil)
)
