package localstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"canteen/internal/domain"
)

// Entry names under a device.
const (
	KeySession = "session"
	KeyProfile = "profile"
	KeyCart    = "cart"
)

// Device is the typed view of one device's entries. It implements
// domain.DeviceStorage. Unreadable or malformed entries are reported as a
// miss and removed.
type Device struct {
	store  Store
	id     string
	logger *slog.Logger
}

// NewDevice returns the view of deviceID in store.
func NewDevice(store Store, deviceID string, logger *slog.Logger) *Device {
	return &Device{store: store, id: deviceID, logger: logger}
}

// Implements domain.DeviceStorage.
var _ domain.DeviceStorage = (*Device)(nil)

// LoadSession returns the cached session. A session past its expiry is a
// miss; the entry stays until the resolver clears it.
func (d *Device) LoadSession(ctx context.Context) (*domain.Session, bool) {
	var s domain.Session
	if !d.load(ctx, KeySession, &s) || s.AccessToken == "" || s.UserID == "" {
		return nil, false
	}
	if s.Expired(time.Now()) {
		return nil, false
	}
	return &s, true
}

func (d *Device) SaveSession(ctx context.Context, session *domain.Session) error {
	return d.save(ctx, KeySession, session)
}

func (d *Device) ClearSession(ctx context.Context) error {
	return d.delete(ctx, KeySession)
}

func (d *Device) LoadProfile(ctx context.Context) (*domain.Profile, bool) {
	var p domain.Profile
	if !d.load(ctx, KeyProfile, &p) || p.ID == "" {
		return nil, false
	}
	return &p, true
}

func (d *Device) SaveProfile(ctx context.Context, profile *domain.Profile) error {
	return d.save(ctx, KeyProfile, profile)
}

func (d *Device) ClearProfile(ctx context.Context) error {
	return d.delete(ctx, KeyProfile)
}

// LoadCart returns the cart, empty on a miss.
func (d *Device) LoadCart(ctx context.Context) domain.Cart {
	var c domain.Cart
	if !d.load(ctx, KeyCart, &c) {
		return domain.Cart{}
	}
	return c
}

func (d *Device) SaveCart(ctx context.Context, cart domain.Cart) error {
	if len(cart) == 0 {
		return d.delete(ctx, KeyCart)
	}
	return d.save(ctx, KeyCart, cart)
}

// Clear removes the session, profile and cart entries, attempting all three.
func (d *Device) Clear(ctx context.Context) error {
	var firstErr error
	for _, name := range []string{KeySession, KeyProfile, KeyCart} {
		if err := d.delete(ctx, name); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (d *Device) load(ctx context.Context, name string, v any) bool {
	key := DeviceKey(d.id, name)
	raw, ok, err := d.store.Get(ctx, key)
	if err != nil {
		d.logger.WarnContext(ctx, "localstore read failed", "key", key, "error", err)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		d.logger.WarnContext(ctx, "discarding malformed localstore entry", "key", key, "error", err)
		if _, derr := d.store.Delete(ctx, key); derr != nil {
			d.logger.WarnContext(ctx, "failed to purge malformed entry", "key", key, "error", derr)
		}
		return false
	}
	return true
}

func (d *Device) save(ctx context.Context, name string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := d.store.Set(ctx, DeviceKey(d.id, name), raw); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
	}
	return nil
}

func (d *Device) delete(ctx context.Context, name string) error {
	if _, err := d.store.Delete(ctx, DeviceKey(d.id, name)); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
	}
	return nil
}
