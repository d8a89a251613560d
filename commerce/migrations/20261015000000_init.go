package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/tanpawarit/neemo/commerce/model"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.NewCreateTable().
				Model((*model.Shop)(nil)).
				IfNotExists().
				Exec(ctx); err != nil {
				return fmt.Errorf("create shops: %w", err)
			}

			if _, err := tx.NewCreateTable().
				Model((*model.Customer)(nil)).
				IfNotExists().
				ForeignKey(`("shop_id") REFERENCES "shops" ("id") ON DELETE CASCADE`).
				Exec(ctx); err != nil {
				return fmt.Errorf("create customers: %w", err)
			}

			if _, err := tx.NewCreateTable().
				Model((*model.Transaction)(nil)).
				IfNotExists().
				ForeignKey(`("shop_id") REFERENCES "shops" ("id") ON DELETE CASCADE`).
				ForeignKey(`("customer_id") REFERENCES "customers" ("id") ON DELETE SET NULL`).
				Exec(ctx); err != nil {
				return fmt.Errorf("create transactions: %w", err)
			}

			if _, err := tx.NewCreateTable().
				Model((*model.SessionRow)(nil)).
				IfNotExists().
				Exec(ctx); err != nil {
				return fmt.Errorf("create whatsapp_sessions: %w", err)
			}

			for _, stmt := range []string{
				`CREATE INDEX IF NOT EXISTS shops_phone_idx ON shops (phone, created_at, slug)`,
				`CREATE INDEX IF NOT EXISTS customers_shop_name_idx ON customers (shop_id, lower(name))`,
				`CREATE INDEX IF NOT EXISTS transactions_shop_created_idx ON transactions (shop_id, created_at DESC)`,
				`ALTER TABLE shops ADD CONSTRAINT shops_status_check CHECK (status IN ('open', 'closed'))`,
				`ALTER TABLE transactions ADD CONSTRAINT transactions_type_check CHECK (type IN ('SALE', 'CREDIT_ADD', 'DEBT_PAYMENT'))`,
				`ALTER TABLE transactions ADD CONSTRAINT transactions_amount_check CHECK (total_amount >= 0)`,
			} {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return fmt.Errorf("exec %q: %w", stmt, err)
				}
			}
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			for _, m := range []any{
				(*model.SessionRow)(nil),
				(*model.Transaction)(nil),
				(*model.Customer)(nil),
				(*model.Shop)(nil),
			} {
				if _, err := tx.NewDropTable().Model(m).IfExists().Cascade().Exec(ctx); err != nil {
					return fmt.Errorf("drop table: %w", err)
				}
			}
			return nil
		})
	})
}
