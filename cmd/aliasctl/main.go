// Command aliasctl performs establishment alias and triage maintenance
// against the review database.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"review_inbox/internal/adapters/observability"
	"review_inbox/internal/app"
	"review_inbox/internal/domain"
	"review_inbox/internal/shared"
	mysqlrepo "review_inbox/internal/storage/mysql"
	"review_inbox/migrations"
)

const usage = `usage: aliasctl <command> [flags]

commands:
  migrate                                   apply the embedded schema
  create     -tenant T -name N [-city C] [-alias A]
  regenerate -tenant T -id ID
  set-alias  -tenant T -id ID -alias A
  triage     -tenant T [-limit N]           list raw-fallback reviews
`

func main() {
	cfg := shared.Load()
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := run(ctx, db, cfg, os.Args[1], os.Args[2:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		log.Error().Err(err).Str("command", os.Args[1]).Msg("aliasctl failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, db *sql.DB, cfg shared.Config, cmd string, args []string, out io.Writer) error {
	repo := mysqlrepo.New(db)
	reg := app.NewAliasRegistry(repo, cfg.AliasPrefix)
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	tenant := fs.String("tenant", "", "tenant id")
	id := fs.String("id", "", "establishment id")

	switch cmd {
	case "migrate":
		if err := migrations.Apply(ctx, db); err != nil {
			return err
		}
		fmt.Fprintln(out, "migrations applied")
		return nil

	case "create":
		name := fs.String("name", "", "establishment name")
		city := fs.String("city", "", "city")
		alias := fs.String("alias", "", "custom alias (generated when empty)")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if *tenant == "" || *name == "" {
			return errors.New("-tenant and -name are required")
		}
		var c *string
		if *city != "" {
			c = city
		}
		e, err := reg.CreateEstablishment(ctx, *tenant, *name, c, *alias)
		if err != nil {
			return err
		}
		return printJSON(out, map[string]string{"id": e.ID, "alias": e.Alias, "address": e.Alias + "@" + cfg.InboundDomain})

	case "regenerate":
		if err := fs.Parse(args); err != nil {
			return err
		}
		if *tenant == "" || *id == "" {
			return errors.New("-tenant and -id are required")
		}
		a, err := reg.Regenerate(ctx, *tenant, *id)
		if err != nil {
			return err
		}
		return printJSON(out, map[string]string{"id": *id, "alias": a, "address": a + "@" + cfg.InboundDomain})

	case "set-alias":
		alias := fs.String("alias", "", "new alias")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if *tenant == "" || *id == "" || *alias == "" {
			return errors.New("-tenant, -id and -alias are required")
		}
		a, err := reg.SetCustom(ctx, *tenant, *id, *alias)
		if err != nil {
			return err
		}
		return printJSON(out, map[string]string{"id": *id, "alias": a, "address": a + "@" + cfg.InboundDomain})

	case "triage":
		limit := fs.Int("limit", 50, "max rows")
		if err := fs.Parse(args); err != nil {
			return err
		}
		rows, err := app.NewTriageService(repo).Pending(ctx, *tenant, *limit)
		if err != nil {
			return err
		}
		return printJSON(out, triageRows(rows))
	}
	return fmt.Errorf("unknown command %q\n%s", cmd, usage)
}

type triageRow struct {
	ID              string    `json:"id"`
	EstablishmentID string    `json:"establishmentId"`
	Text            string    `json:"text"`
	RawCapture      string    `json:"rawCapture,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

func triageRows(in []domain.Review) []triageRow {
	out := make([]triageRow, 0, len(in))
	for _, r := range in {
		row := triageRow{ID: r.ID, EstablishmentID: r.EstablishmentID, Text: r.Text, CreatedAt: r.CreatedAt}
		if r.RawCapture != nil {
			row.RawCapture = *r.RawCapture
		}
		out = append(out, row)
	}
	return out
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
