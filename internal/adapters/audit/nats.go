package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"stayops/internal/adapters/observability"
	"stayops/internal/domain"
)

// Publisher pushes audit events to NATS, one subject per tenant/entity/
// action. Publishing is fire-and-forget: failures are logged and counted,
// never returned, so the primary operation is unaffected.
type Publisher struct{ nc *nats.Conn }

func New(url string) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("stayops-audit"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Publisher{nc: nc}, nil
}

func (p *Publisher) Record(_ context.Context, e domain.AuditEvent) {
	b, err := json.Marshal(e)
	if err != nil {
		observability.ObserveAudit("dropped")
		return
	}
	subj := fmt.Sprintf("audit.%s.%s.%s", e.TenantID, e.Entity, e.Action)
	if err := p.nc.Publish(subj, b); err != nil {
		observability.ObserveAudit("error")
		log.Warn().Err(err).Str("subject", subj).Msg("audit publish failed")
		return
	}
	observability.ObserveAudit("ok")
}

func (p *Publisher) Close() {
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
	}
}

// Noop is the sink used when no NATS URL is configured.
type Noop struct{}

func (Noop) Record(context.Context, domain.AuditEvent) {}
