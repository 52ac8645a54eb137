package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"libcirc/internal/library/catalog"
	"libcirc/internal/library/copies"
	"libcirc/internal/library/ledger"
	"libcirc/internal/platform/apperr"
	"libcirc/internal/platform/auth"
)

// 開発用のサンプルデータ
var seedTitles = []catalog.AddTitleRequest{
	{Name: "Foundation", Author: "Isaac Asimov", Categories: []string{"Science Fiction"}, Quantity: 2},
	{Name: "Dune", Author: "Frank Herbert", Categories: []string{"Science Fiction"}, Quantity: 3},
	{Name: "The Pragmatic Programmer", Author: "Andrew Hunt", Categories: []string{"Programming", "Software Engineering"}, Quantity: 1},
}

type seedUser struct {
	name, password, role string
}

var seedUsers = []seedUser{
	{"admin", "admin-password", auth.RoleAdmin},
	{"alice", "alice-password", auth.RoleUser},
	{"bob", "bob-password", auth.RoleUser},
}

func newSeedCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load sample titles, accounts and loans (dev mode only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, conn, logger, err := root.bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer conn.Close()
			if !cfg.IsDev() {
				return fmt.Errorf("seed refuses to run in %q mode", cfg.Mode)
			}
			app := NewApp(cfg, conn, logger, ledger.RealClock{})
			return seed(cmd.Context(), app)
		},
	}
}

func seed(ctx context.Context, app *App) error {
	ids := map[string]uint64{}
	for _, u := range seedUsers {
		role := u.role
		if role == auth.RoleAdmin && app.Config.Auth.AdminCode == "" {
			app.Log.Warn("seed: auth.admin_code not set, skipping admin account")
			continue
		}
		id, err := app.Auth.Register(ctx, auth.RegisterRequest{
			UserName:  u.name,
			Password:  u.password,
			Role:      &role,
			AdminCode: app.Config.Auth.AdminCode,
		})
		if apperr.ReasonOf(err) == apperr.ReasonDuplicate {
			// 投入済み
			app.Log.Info("seed: data already present, nothing to do", "user", u.name)
			return nil
		}
		if err != nil {
			return fmt.Errorf("seed account %s: %w", u.name, err)
		}
		ids[u.name] = id
	}

	system := auth.Actor{Name: "seed", Role: auth.RoleAdmin}
	var firstCopies []copies.Key
	for _, t := range seedTitles {
		res, err := app.Catalog.AddTitle(ctx, system, t)
		if err != nil {
			return fmt.Errorf("seed title %s: %w", t.Name, err)
		}
		if res.Created && len(res.Copies) > 0 {
			k, err := copies.ParseKey(res.Copies[0])
			if err != nil {
				return err
			}
			firstCopies = append(firstCopies, k)
		}
		app.Log.Info("seed: title", "name", t.Name, "created", res.Created, "copies", res.Copies)
	}

	// alice が Foundation と Dune を 1 冊ずつ借りている状態にする
	alice := auth.Actor{UserID: ids["alice"], Name: "alice", Role: auth.RoleUser}
	for _, k := range firstCopies[:min(2, len(firstCopies))] {
		res, err := app.Lending.Borrow(ctx, alice, k)
		if err != nil {
			return fmt.Errorf("seed loan %s: %w", k, err)
		}
		app.Log.Info("seed: loan", "user", alice.Name, "copy", k.String(), "loan", res.LoanULID)
	}
	return nil
}
