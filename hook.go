package agentm

import (
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// TypedOutgoing re-wraps records read from a store as the kind registered
// for their collection. Records of unregistered collections pass through.
//
// Accessors coerce nested data in place, so the records it receives must not
// be shared with a store cache; WillCopy reports that.
type TypedOutgoing struct {
	reg    *Registry
	logger *zap.Logger
}

type OutgoingOption func(h *TypedOutgoing)

func WithLogger(logger *zap.Logger) OutgoingOption {
	return func(h *TypedOutgoing) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewTypedOutgoing returns a hook over reg, or over DefaultRegistry when reg
// is nil.
func NewTypedOutgoing(reg *Registry, opts ...OutgoingOption) *TypedOutgoing {
	if reg == nil {
		reg = DefaultRegistry
	}
	h := &TypedOutgoing{reg: reg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *TypedOutgoing) TransformOutgoing(rec *Record, collection string) (any, error) {
	k, ok := h.reg.Lookup(collection)
	if !ok {
		h.logger.Debug("outgoing: pass-through", zap.String("collection", collection))
		return rec, nil
	}
	v, err := k.NewAny(rec)
	if err != nil {
		return nil, errors.Wrapf(err, "outgoing %s", collection)
	}
	h.logger.Debug("outgoing: wrapped", zap.String("collection", collection), zap.String("kind", k.Name()))
	return v, nil
}

// WillCopy asks the store for a private copy of every record.
func (h *TypedOutgoing) WillCopy() bool { return true }
