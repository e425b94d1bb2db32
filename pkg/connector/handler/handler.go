package handler

import (
	"context"
	"encoding/json"

	"github.com/joeydtaylor/certipop/pkg/audit"
	"github.com/joeydtaylor/certipop/pkg/connector"
	"github.com/joeydtaylor/certipop/pkg/core"
	"github.com/joeydtaylor/certipop/pkg/middleware/auth"
	"go.uber.org/zap"
)

// Service is the document proxy as seen by the HTTP layer.
type Service interface {
	ReadDocument(ctx context.Context, documentType, personNRN, requestorNRN string) (connector.PDF, error)
	GetDocument(ctx context.Context, dr connector.DocumentRequest) (json.RawMessage, error)
	DecodeExtract(pdfBase64 string) (connector.PDF, error)
}

// AuditPublisher receives one event per completed operation.
type AuditPublisher interface {
	Publish(ctx context.Context, ev audit.Event) error
}

type Handler struct {
	svc          Service
	audit        AuditPublisher
	auth         *auth.Middleware
	log          *zap.Logger
	municipality string
}

type Option func(*Handler)

func WithAudit(p AuditPublisher) Option {
	return func(h *Handler) {
		if p != nil {
			h.audit = p
		}
	}
}

// WithAuth lets audit events carry the authenticated username.
func WithAuth(a *auth.Middleware) Option { return func(h *Handler) { h.auth = a } }

func WithLogger(l *zap.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.log = l
		}
	}
}

// WithMunicipality tags audit events with the configured municipality.
func WithMunicipality(id string) Option { return func(h *Handler) { h.municipality = id } }

func New(svc Service, opts ...Option) *Handler {
	h := &Handler{svc: svc, audit: audit.Noop{}, log: zap.NewNop()}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Handlers exposes the endpoints under the names manifests refer to.
func (h *Handler) Handlers() core.Handlers {
	return core.Handlers{
		connector.OpReadDocument:  h.ReadDocument,
		connector.OpGetDocument:   h.GetDocument,
		connector.OpDecodeExtract: h.DecodeExtract,
	}
}
