// Package sms formats alert notifications and submits them through the
// Twilio REST API with bounded retries. The channel is disabled, not
// fatal, when the Twilio credentials are not configured.
package sms

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/verdantlabs/gardenwatch/internal/types"
	"go.uber.org/zap"
)

// Submitter delivers one message to the SMS gateway. Any returned error is
// treated as retryable.
type Submitter interface {
	Submit(ctx context.Context, body, from, to string) error
}

const (
	// maxAttempts bounds submissions per alert: the initial try plus two retries.
	maxAttempts = 3
	// retryDelay is the fixed wait between submission attempts.
	retryDelay = 5 * time.Second
)

// Channel sends one SMS per alert to the garden owner's phone.
type Channel struct {
	gateway Submitter
	from    string
	enabled bool
	logger  *zap.SugaredLogger

	// sleep is replaceable in tests. It returns false if the context
	// ended before the delay elapsed.
	sleep func(ctx context.Context, d time.Duration) bool
}

// NewChannel builds the SMS channel. It is enabled only when the account
// SID, auth token and sender number are all present; otherwise every send
// is a silent skip.
func NewChannel(accountSID, authToken, fromNumber string, logger *zap.SugaredLogger) *Channel {
	c := &Channel{
		from:   fromNumber,
		logger: logger,
		sleep:  sleepCtx,
	}
	if accountSID == "" || authToken == "" || fromNumber == "" {
		logger.Warn("SMS channel disabled: Twilio credentials not configured")
		return c
	}
	c.gateway = newTwilioGateway(accountSID, authToken)
	c.enabled = true
	return c
}

// NewChannelWithGateway wires a custom submitter; used by tests and by any
// deployment fronting a different gateway.
func NewChannelWithGateway(gateway Submitter, fromNumber string, logger *zap.SugaredLogger) *Channel {
	return &Channel{
		gateway: gateway,
		from:    fromNumber,
		enabled: gateway != nil && fromNumber != "",
		logger:  logger,
		sleep:   sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// IsEnabled reports whether the channel can submit messages.
func (c *Channel) IsEnabled() bool {
	return c.enabled
}

// SendAlert formats and submits one SMS for the alert. It returns true on
// the first successful submission and false when the channel is disabled,
// the user has no phone number, or every attempt failed. No error escapes.
func (c *Channel) SendAlert(ctx context.Context, alert types.Alert, user *types.User) bool {
	if !c.enabled {
		return false
	}
	if user == nil || user.PhoneNumber == nil || *user.PhoneNumber == "" {
		c.logger.Debugf("skipping SMS for alert %s: user has no phone number", alert.AlertID)
		return false
	}

	body := FormatMessage(alert)
	to := *user.PhoneNumber

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := c.gateway.Submit(ctx, body, c.from, to)
		if err == nil {
			c.logger.Infof("SMS sent for alert %s (attempt %d)", alert.AlertID, attempt)
			return true
		}
		c.logger.Warnf("SMS attempt %d/%d failed for alert %s: %v", attempt, maxAttempts, alert.AlertID, err)
		if attempt < maxAttempts {
			if !c.sleep(ctx, retryDelay) {
				return false
			}
		}
	}
	return false
}

var alertTypeLabels = map[types.AlertType]string{
	types.AlertHighTemperature: "High temperature warning",
	types.AlertLowTemperature:  "Low temperature warning",
	types.AlertHeavyRain:       "Heavy rain warning",
	types.AlertStrongWind:      "Strong wind warning",
}

var metricUnits = map[types.Metric]string{
	types.MetricTemperature:   "°C",
	types.MetricPrecipitation: "mm/h",
	types.MetricWindSpeed:     "km/h",
}

var metricLabels = map[types.Metric]string{
	types.MetricTemperature:   "Temperature",
	types.MetricPrecipitation: "Precipitation",
	types.MetricWindSpeed:     "Wind speed",
}

// FormatMessage renders the multi-line SMS body for an alert. Values carry
// their units and are rounded to one decimal; plant names fall back to
// plant types when no names are known.
func FormatMessage(alert types.Alert) string {
	unit := metricUnits[alert.Metric]
	plants := alert.AffectedPlantNames
	if len(plants) == 0 {
		plants = alert.AffectedPlantTypes
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Garden alert: %s\n", alert.GardenName)
	fmt.Fprintf(&b, "%s\n", alertTypeLabels[alert.AlertType])
	fmt.Fprintf(&b, "%s is %.1f%s (threshold %.1f%s)\n",
		metricLabels[alert.Metric], alert.CurrentValue, unit, alert.Threshold, unit)
	fmt.Fprintf(&b, "Affected plants: %s", strings.Join(plants, ", "))
	return b.String()
}
