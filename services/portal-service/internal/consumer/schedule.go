package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/md-rashed-zaman/salonportal/libs/kafkax"
	"github.com/segmentio/kafka-go"
)

// TopicScheduleChanged is published by the salon backend whenever hours, exceptions or
// procedures change.
const TopicScheduleChanged = "schedule.changed.v1"

type scheduleChanged struct {
	BusinessID string `json:"business_id"`
}

// Invalidator drops cached backend reads of one tenant.
type Invalidator interface {
	Invalidate(ctx context.Context, tenantID string) error
}

// InvalidateOnScheduleChange drops the tenant's cached schedule. The tenant comes from the
// tenant_id header, falling back to business_id in the payload.
func InvalidateOnScheduleChange(inv Invalidator) Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		tenantID := kafkax.HeaderValue(msg.Headers, kafkax.HeaderTenantID)
		if tenantID == "" {
			var evt scheduleChanged
			if err := json.Unmarshal(msg.Value, &evt); err != nil {
				return err
			}
			tenantID = evt.BusinessID
		}
		tenantID = strings.TrimSpace(tenantID)
		if tenantID == "" {
			return errors.New("schedule change without tenant")
		}
		return inv.Invalidate(ctx, tenantID)
	}
}
