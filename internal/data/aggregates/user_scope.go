package aggregates

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/learnhub-backend/internal/platform/dbctx"
)

// WithUserScope runs fn in a transaction that carries app.user_id so row-level
// policies keyed on the acting user apply. Dialects without session settings
// run fn unchanged.
func WithUserScope(dbc dbctx.Context, userID uuid.UUID, fn func(dbc dbctx.Context) error) error {
	if dbc.Tx == nil || dbc.Tx.Dialector == nil || dbc.Tx.Dialector.Name() != "postgres" {
		return fn(dbc)
	}
	conn := dbc.Tx.WithContext(dbc.Ctx)
	return conn.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`SELECT set_config('app.user_id', ?, true)`, userID.String()).Error; err != nil {
			return err
		}
		return fn(dbctx.Context{Ctx: dbc.Ctx, Tx: tx})
	})
}
