package mysql

import (
	"context"
	"database/sql"
	"errors"
	"time"
	"unicode/utf8"

	mysqldrv "github.com/go-sql-driver/mysql"

	"review_inbox/internal/domain"
)

const (
	errDupEntry     = 1062
	maxRecipientLen = 320
	maxAliasLen     = 128
)

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
func valInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
func nullStr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

// mapErr turns driver errors into domain sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	var me *mysqldrv.MySQLError
	if errors.As(err, &me) && me.Number == errDupEntry {
		return domain.ErrDuplicate
	}
	return err
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

/********** establishments **********/

func (r *Repo) AliasExists(ctx context.Context, alias string) (bool, error) {
	var ok bool
	if err := r.db.QueryRowContext(ctx, aliasExistsSQL, alias).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

func (r *Repo) CreateEstablishment(ctx context.Context, e domain.Establishment) error {
	_, err := r.db.ExecContext(ctx, insertEstablishmentSQL, e.ID, e.TenantID, e.Alias, e.Name, valStr(e.City))
	return mapErr(err)
}

func (r *Repo) UpdateAlias(ctx context.Context, tenantID, establishmentID, alias string) error {
	res, err := r.db.ExecContext(ctx, updateAliasSQL, alias, establishmentID, tenantID)
	if err != nil {
		return mapErr(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repo) FindByAlias(ctx context.Context, alias string) (domain.Establishment, error) {
	return scanEstablishment(r.db.QueryRowContext(ctx, findByAliasSQL, alias))
}

func (r *Repo) GetForTenant(ctx context.Context, tenantID, establishmentID string) (domain.Establishment, error) {
	return scanEstablishment(r.db.QueryRowContext(ctx, getForTenantSQL, establishmentID, tenantID))
}

func scanEstablishment(row *sql.Row) (domain.Establishment, error) {
	var e domain.Establishment
	var city sql.NullString
	if err := row.Scan(&e.ID, &e.TenantID, &e.Alias, &e.Name, &city, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return domain.Establishment{}, mapErr(err)
	}
	e.City = nullStr(city)
	return e, nil
}

/********** reviews **********/

func (r *Repo) FindByDedupKey(ctx context.Context, establishmentID, key string) (string, error) {
	var id string
	if err := r.db.QueryRowContext(ctx, findByDedupKeySQL, establishmentID, key).Scan(&id); err != nil {
		return "", mapErr(err)
	}
	return id, nil
}

func (r *Repo) InsertReview(ctx context.Context, rv domain.Review) error {
	res, err := r.db.ExecContext(ctx, insertReviewSQL,
		rv.ID,
		string(rv.Source),
		valInt(rv.Rating),
		rv.Text,
		valStr(rv.Author),
		valStr(rv.DedupKey),
		valStr(rv.RawCapture),
		valStr(rv.ReviewDate),
		stamp(rv.CreatedAt),
		rv.EstablishmentID,
		rv.TenantID,
	)
	if err != nil {
		return mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrOwnershipMismatch
	}
	return nil
}

func (r *Repo) ListBySource(ctx context.Context, tenantID string, source domain.ReviewSource, limit int) ([]domain.Review, error) {
	rows, err := r.db.QueryContext(ctx, listBySourceSQL, tenantID, string(source), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Review
	for rows.Next() {
		var (
			rv                            domain.Review
			src                           string
			rating                        sql.NullInt64
			author, dedup, raw, reviewDay sql.NullString
		)
		if err := rows.Scan(
			&rv.ID,
			&rv.TenantID,
			&rv.EstablishmentID,
			&src,
			&rating,
			&rv.Text,
			&author,
			&dedup,
			&raw,
			&reviewDay,
			&rv.CreatedAt,
		); err != nil {
			return nil, err
		}
		rv.Source = domain.ReviewSource(src)
		if rating.Valid {
			n := int(rating.Int64)
			rv.Rating = &n
		}
		rv.Author = nullStr(author)
		rv.DedupKey = nullStr(dedup)
		rv.RawCapture = nullStr(raw)
		rv.ReviewDate = nullStr(reviewDay)
		out = append(out, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

/********** plans (read-only) **********/

func (r *Repo) PlanFor(ctx context.Context, tenantID string) (domain.Plan, error) {
	var p domain.Plan
	if err := r.db.QueryRowContext(ctx, planForSQL, tenantID).Scan(&p.TenantID, &p.Tier, &p.Status); err != nil {
		return domain.Plan{}, mapErr(err)
	}
	return p, nil
}

/********** rejections **********/

func (r *Repo) InsertRejection(ctx context.Context, e domain.RejectionEntry) error {
	_, err := r.db.ExecContext(ctx, insertRejectionSQL,
		clip(e.Recipient, maxRecipientLen),
		clip(e.AliasCandidate, maxAliasLen),
		string(e.Reason),
		clip(e.MessageID, maxRecipientLen),
		stamp(e.CreatedAt),
	)
	return err
}

// stamp fills in a zero time; DATETIME rejects 0000-00-00 in strict mode.
func stamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

// clip bounds s to n bytes on a rune boundary.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
