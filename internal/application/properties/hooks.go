package properties

import (
	"context"

	"estate-backend/internal/domain"

	"gorm.io/gorm"
)

// SellHook runs inside the sell transaction. A returned error aborts the sale.
type SellHook interface {
	HandleSell(ctx context.Context, tx *gorm.DB, actor domain.Actor, p *domain.Property) error
}

// SellHookFunc adapts a function to SellHook.
type SellHookFunc func(ctx context.Context, tx *gorm.DB, actor domain.Actor, p *domain.Property) error

func (f SellHookFunc) HandleSell(ctx context.Context, tx *gorm.DB, actor domain.Actor, p *domain.Property) error {
	return f(ctx, tx, actor, p)
}

// Hooks holds extension points around sell. Before hooks see the property still
// in its pre-sale state; after hooks see it sold. Both run in registration order.
type Hooks struct {
	beforeSell []SellHook
	afterSell  []SellHook
}

func (h *Hooks) OnBeforeSell(hook SellHook) {
	h.beforeSell = append(h.beforeSell, hook)
}

func (h *Hooks) OnAfterSell(hook SellHook) {
	h.afterSell = append(h.afterSell, hook)
}

func runHooks(ctx context.Context, hooks []SellHook, tx *gorm.DB, actor domain.Actor, p *domain.Property) error {
	for _, hook := range hooks {
		if err := hook.HandleSell(ctx, tx, actor, p); err != nil {
			return err
		}
	}
	return nil
}

func (h *Hooks) runBefore(ctx context.Context, tx *gorm.DB, actor domain.Actor, p *domain.Property) error {
	if h == nil {
		return nil
	}
	return runHooks(ctx, h.beforeSell, tx, actor, p)
}

func (h *Hooks) runAfter(ctx context.Context, tx *gorm.DB, actor domain.Actor, p *domain.Property) error {
	if h == nil {
		return nil
	}
	return runHooks(ctx, h.afterSell, tx, actor, p)
}
