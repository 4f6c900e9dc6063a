// Package localstore provides the device-local key/value persistence.
package localstore

import (
	"context"
	"strings"
)

// Store is a key/value store of raw JSON values.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	// Delete reports whether the key existed.
	Delete(ctx context.Context, key string) (bool, error)
	// Snapshot returns every key with the given prefix and its value.
	Snapshot(ctx context.Context, prefix string) (map[string][]byte, error)
}

// ChangeFunc receives a key change. present is false when the key was
// deleted.
type ChangeFunc func(key string, value []byte, present bool)

// Watcher is implemented by stores that report changes natively.
type Watcher interface {
	Watch(fn ChangeFunc) (stop func())
}

// DevicePrefix prefixes every device entry.
const DevicePrefix = "device:"

// DeviceKey returns the store key of name for a device.
func DeviceKey(deviceID, name string) string {
	return DevicePrefix + deviceID + ":" + name
}

// ParseDeviceKey splits a store key produced by DeviceKey.
func ParseDeviceKey(key string) (deviceID, name string, ok bool) {
	rest, found := strings.CutPrefix(key, DevicePrefix)
	if !found {
		return "", "", false
	}
	i := strings.LastIndexByte(rest, ':')
	if i <= 0 || i == len(rest)-1 {
		return "", "", false
	}
	return rest[:i], rest[i+1:], true
}
