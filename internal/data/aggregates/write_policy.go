package aggregates

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	domainagg "github.com/yungbote/learnhub-backend/internal/domain/aggregates"
	"github.com/yungbote/learnhub-backend/internal/platform/dbctx"
	"github.com/yungbote/learnhub-backend/internal/platform/logger"
)

// Write-path outcomes reported to Hooks.ObserveOperation.
const (
	WriteStatusPrimary    = "primary"
	WriteStatusPrivileged = "privileged"
	WriteStatusRejected   = "rejected"
	WriteStatusFailed     = "failed"
)

// WritePolicy runs a write against the policy-enforced primary handle and,
// only when the store rejects it on access-policy grounds, retries it once
// against the privileged handle.
type WritePolicy interface {
	Write(ctx context.Context, op string, fn func(dbc dbctx.Context) error) error
}

type twoTierWritePolicy struct {
	primary    *gorm.DB
	privileged *gorm.DB
	hooks      Hooks
	log        *logger.Logger
}

// NewTwoTierWritePolicy builds the policy. privileged may be nil, in which case
// a policy rejection on the primary handle is surfaced as-is.
func NewTwoTierWritePolicy(primary, privileged *gorm.DB, hooks Hooks, baseLog *logger.Logger) WritePolicy {
	if hooks == nil {
		hooks = NoopHooks()
	}
	return &twoTierWritePolicy{
		primary:    primary,
		privileged: privileged,
		hooks:      hooks,
		log:        baseLog.With("component", "TwoTierWritePolicy"),
	}
}

func (p *twoTierWritePolicy) Write(ctx context.Context, op string, fn func(dbc dbctx.Context) error) error {
	if fn == nil {
		return nil
	}
	start := time.Now()

	primaryErr := fn(dbctx.Context{Ctx: ctx, Tx: p.primary.WithContext(ctx)})
	if primaryErr == nil {
		p.hooks.ObserveOperation(op, WriteStatusPrimary, time.Since(start))
		return nil
	}
	if !IsPolicyRejection(primaryErr) {
		if IsUniqueViolation(primaryErr) {
			p.hooks.IncConflict(op)
		}
		p.hooks.ObserveOperation(op, WriteStatusFailed, time.Since(start))
		return primaryErr
	}
	if p.privileged == nil {
		p.hooks.ObserveOperation(op, WriteStatusRejected, time.Since(start))
		p.log.Error("write rejected by policy and no privileged handle configured", "op", op, "error", primaryErr)
		return domainagg.Wrap(domainagg.CodePolicyRejected, op, primaryErr)
	}

	p.hooks.IncRetry(op)
	p.log.Warn("write rejected by policy, retrying on privileged handle", "op", op, "error", primaryErr)

	privErr := fn(dbctx.Context{Ctx: ctx, Tx: p.privileged.WithContext(ctx)})
	if privErr == nil {
		p.hooks.ObserveOperation(op, WriteStatusPrivileged, time.Since(start))
		return nil
	}
	if IsUniqueViolation(privErr) {
		p.hooks.IncConflict(op)
		p.hooks.ObserveOperation(op, WriteStatusFailed, time.Since(start))
		return privErr
	}
	p.hooks.ObserveOperation(op, WriteStatusRejected, time.Since(start))
	p.log.Error("write failed on primary and privileged handles", "op", op, "primary_error", primaryErr, "privileged_error", privErr)
	return domainagg.NewError(
		domainagg.CodePolicyRejected,
		op,
		"write rejected on primary and privileged handles",
		errors.Join(primaryErr, privErr),
	)
}
