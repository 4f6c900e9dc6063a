package localstore

import (
	"encoding/json"
	"log/slog"

	"canteen/internal/domain"
)

// SessionBridge turns changes of a device's session entry into session-change
// notifications: a written session becomes TOKEN_REFRESHED, a removed one
// SIGNED_OUT. Other keys and malformed sessions are ignored.
func SessionBridge(notifier domain.SessionNotifier, logger *slog.Logger) ChangeFunc {
	return func(key string, value []byte, present bool) {
		deviceID, name, ok := ParseDeviceKey(key)
		if !ok || name != KeySession {
			return
		}
		if !present {
			notifier.Publish(deviceID, domain.EventSignedOut, nil)
			return
		}
		var s domain.Session
		if err := json.Unmarshal(value, &s); err != nil || s.AccessToken == "" {
			logger.Debug("ignoring unreadable session change", "device_id", deviceID)
			return
		}
		notifier.Publish(deviceID, domain.EventTokenRefreshed, &s)
	}
}
