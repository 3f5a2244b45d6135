package refreshtoken

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mileusna/useragent"
	"go.uber.org/zap"

	"github.com/confportal/authcore/requestinfo"
	"github.com/confportal/authcore/services/logging"
)

// Tracker maintains the device registry as a side effect of token issuance.
// Every operation is best effort: a failed device write is logged and
// swallowed, the token flow never fails on it.
type Tracker struct {
	store  Store
	logger *logging.Service
}

func NewTracker(store Store, logger *logging.Service) *Tracker {
	return &Tracker{
		store:  store,
		logger: logger,
	}
}

// Touch upserts the device row for an issue or rotate. New devices get
// first_seen_at set to now; existing ones only have their last-seen columns
// refreshed.
func (t *Tracker) Touch(ctx context.Context, deviceID, userID uuid.UUID, client requestinfo.ClientInfo) {
	if deviceID == uuid.Nil {
		return
	}

	now := time.Now().UTC()
	device := &Device{
		ID:            deviceID,
		UserID:        userID,
		DeviceName:    DeviceLabel(client.UserAgent),
		FirstSeenAt:   now,
		LastSeenAt:    now,
		LastIP:        client.IP,
		LastUserAgent: client.UserAgent,
	}

	if err := t.store.UpsertDevice(ctx, device); err != nil {
		t.logger.Warn("failed to record device activity",
			zap.String("device_id", deviceID.String()),
			zap.String("user_id", userID.String()),
			zap.Error(err))
	}
}

// DeviceLabel derives a human readable name from a raw user agent string,
// e.g. "Firefox 120.0 on Linux".
func DeviceLabel(userAgentString string) string {
	if userAgentString == "" {
		return "Unknown Device"
	}

	ua := useragent.Parse(userAgentString)

	browser := ua.Name
	if browser == "" {
		return "Unknown Device"
	}
	if ua.Version != "" {
		browser = browser + " " + ua.Version
	}

	if ua.OS != "" {
		return browser + " on " + ua.OS
	}
	return browser
}
