package iauditpublisher

import (
	"context"

	"github.com/corray333/backend-labs/shop/internal/service/models/auditlog"
)

// IAuditPublisher streams stored audit entries to downstream consumers.
type IAuditPublisher interface {
	Publish(ctx context.Context, entries ...auditlog.Entry) error
}
