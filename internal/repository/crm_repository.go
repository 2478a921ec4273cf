package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/gofrs/uuid/v5"
	pgx "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SaiWorkProfile/manortha-website/internal/entity"
)

type CRMRepository struct {
	db *pgxpool.Pool
}

func NewCRMRepository(db *pgxpool.Pool) *CRMRepository {
	return &CRMRepository{db: db}
}

var leadColumns = []string{
	"id",
	"name",
	"email",
	"phone",
	"source",
	"stage",
	"assigned_to",
	"budget",
	"location",
	"profession",
	"total_engagements",
	"last_active",
	"score",
	"score_reason",
	"created_at",
}

func scanLead(row pgx.Row) (entity.Lead, error) {
	var l entity.Lead

	err := row.Scan(
		&l.ID,
		&l.Name,
		&l.Email,
		&l.Phone,
		&l.Source,
		&l.Stage,
		&l.AssignedTo,
		&l.Budget,
		&l.Location,
		&l.Profession,
		&l.TotalEngagements,
		&l.LastActive,
		&l.Score,
		&l.ScoreReason,
		&l.CreatedAt,
	)

	return l, err
}

func (r *CRMRepository) Leads(ctx context.Context, filter entity.LeadFilter) ([]entity.Lead, error) {
	stmt := sq.Select(leadColumns...).From("leads").PlaceholderFormat(sq.Dollar)
	stmt = applyLeadFilter(stmt, filter).OrderBy("created_at DESC")

	sqlQuery, args, err := stmt.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.Query(ctx, sqlQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := []entity.Lead{}

	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}

		leads = append(leads, l)
	}

	return leads, rows.Err()
}

func applyLeadFilter(stmt sq.SelectBuilder, filter entity.LeadFilter) sq.SelectBuilder {
	if filter.Stage != nil {
		stmt = stmt.Where(sq.Eq{"stage": *filter.Stage})
	}

	if filter.AssignedTo != nil {
		stmt = stmt.Where(sq.Eq{"assigned_to": *filter.AssignedTo})
	}

	if s := strings.TrimSpace(filter.Search); s != "" {
		pattern := "%" + s + "%"
		stmt = stmt.Where(sq.Or{
			sq.ILike{"name": pattern},
			sq.ILike{"email": pattern},
			sq.ILike{"phone": pattern},
		})
	}

	return stmt
}

func (r *CRMRepository) LeadByID(ctx context.Context, id uuid.UUID) (entity.Lead, error) {
	sqlQuery, args, err := sq.Select(leadColumns...).
		From("leads").
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return entity.Lead{}, fmt.Errorf("build query: %w", err)
	}

	l, err := scanLead(r.db.QueryRow(ctx, sqlQuery, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return l, entity.ErrNotFound
		}

		return l, err
	}

	return l, nil
}

func (r *CRMRepository) CreateLead(ctx context.Context, l entity.Lead) error {
	sqlQuery, args, err := sq.Insert("leads").
		Columns(leadColumns...).
		Values(
			l.ID,
			l.Name,
			l.Email,
			l.Phone,
			l.Source,
			l.Stage,
			l.AssignedTo,
			l.Budget,
			l.Location,
			l.Profession,
			l.TotalEngagements,
			l.LastActive,
			l.Score,
			l.ScoreReason,
			l.CreatedAt,
		).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	_, err = r.db.Exec(ctx, sqlQuery, args...)

	return err
}

func (r *CRMRepository) UpdateLeadStage(ctx context.Context, id uuid.UUID, stage entity.LeadStage) error {
	tag, err := r.db.Exec(ctx, `UPDATE leads SET stage = $2, last_active = NOW() WHERE id = $1`, id, stage)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return entity.ErrNotFound
	}

	return nil
}

// SaveLeadScores writes all scores in one transaction; unknown ids are ignored.
func (r *CRMRepository) SaveLeadScores(ctx context.Context, scores []entity.LeadScore) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	for _, s := range scores {
		_, err = tx.Exec(ctx, `UPDATE leads SET score = $2, score_reason = $3 WHERE id = $1`, s.LeadID, s.Score, s.Reason)
		if err != nil {
			return fmt.Errorf("update score of %s: %w", s.LeadID, err)
		}
	}

	return tx.Commit(ctx)
}

var propertyColumns = []string{"id", "project", "unit_no", "type", "size", "price", "status", "floor", "published_to_web"}

func scanProperty(row pgx.Row) (entity.Property, error) {
	var p entity.Property

	err := row.Scan(&p.ID, &p.Project, &p.UnitNo, &p.Type, &p.Size, &p.Price, &p.Status, &p.Floor, &p.PublishedToWeb)

	return p, err
}

func (r *CRMRepository) Properties(ctx context.Context, filter entity.PropertyFilter) ([]entity.Property, error) {
	stmt := sq.Select(propertyColumns...).From("properties").PlaceholderFormat(sq.Dollar)
	stmt = applyPropertyFilter(stmt, filter).OrderBy("project", "unit_no")

	sqlQuery, args, err := stmt.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.Query(ctx, sqlQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	props := []entity.Property{}

	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}

		props = append(props, p)
	}

	return props, rows.Err()
}

func applyPropertyFilter(stmt sq.SelectBuilder, filter entity.PropertyFilter) sq.SelectBuilder {
	if filter.Project != "" {
		stmt = stmt.Where(sq.Eq{"project": filter.Project})
	}

	if filter.Type != "" {
		stmt = stmt.Where(sq.Eq{"type": filter.Type})
	}

	if filter.Status != "" {
		stmt = stmt.Where(sq.Eq{"status": filter.Status})
	}

	if q := strings.TrimSpace(filter.UnitQuery); q != "" {
		stmt = stmt.Where(sq.ILike{"unit_no": "%" + q + "%"})
	}

	return stmt
}

func (r *CRMRepository) PropertyByID(ctx context.Context, id uuid.UUID) (entity.Property, error) {
	sqlQuery, args, err := sq.Select(propertyColumns...).
		From("properties").
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return entity.Property{}, fmt.Errorf("build query: %w", err)
	}

	p, err := scanProperty(r.db.QueryRow(ctx, sqlQuery, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return p, entity.ErrNotFound
		}

		return p, err
	}

	return p, nil
}

func (r *CRMRepository) UpdateProperty(ctx context.Context, p entity.Property) error {
	sqlQuery, args, err := sq.Update("properties").
		Set("status", p.Status).
		Set("published_to_web", p.PublishedToWeb).
		Where(sq.Eq{"id": p.ID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	tag, err := r.db.Exec(ctx, sqlQuery, args...)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return entity.ErrNotFound
	}

	return nil
}

// Territory returns the first registered legacy territory.
func (r *CRMRepository) Territory(ctx context.Context) (entity.Territory, error) {
	var t entity.Territory

	err := r.db.QueryRow(ctx,
		`SELECT pincode, units_sold, started_at FROM legacy_territories ORDER BY pincode LIMIT 1`,
	).Scan(&t.Pincode, &t.UnitsSold, &t.StartedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return t, entity.ErrNotFound
		}

		return t, err
	}

	return t, nil
}

var subDealerColumns = []string{"id", "name", "phone", "pincode", "status", "total_sales", "total_revenue", "onboarded_at"}

func (r *CRMRepository) SubDealers(ctx context.Context, pincode string) ([]entity.SubDealer, error) {
	sqlQuery, args, err := sq.Select(subDealerColumns...).
		From("sub_dealers").
		Where(sq.Eq{"pincode": pincode}).
		OrderBy("onboarded_at", "name").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.Query(ctx, sqlQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dealers := []entity.SubDealer{}

	for rows.Next() {
		var d entity.SubDealer

		err = rows.Scan(&d.ID, &d.Name, &d.Phone, &d.Pincode, &d.Status, &d.TotalSales, &d.TotalRevenue, &d.OnboardedAt)
		if err != nil {
			return nil, err
		}

		dealers = append(dealers, d)
	}

	return dealers, rows.Err()
}

func (r *CRMRepository) CreateSubDealer(ctx context.Context, d entity.SubDealer) error {
	sqlQuery, args, err := sq.Insert("sub_dealers").
		Columns(subDealerColumns...).
		Values(d.ID, d.Name, d.Phone, d.Pincode, d.Status, d.TotalSales, d.TotalRevenue, d.OnboardedAt).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	_, err = r.db.Exec(ctx, sqlQuery, args...)

	return err
}

func (r *CRMRepository) Partners(ctx context.Context) ([]entity.PartnerStanding, error) {
	rows, err := r.db.Query(ctx,
		`SELECT name, deals, value, rating, tier, conversion FROM partners ORDER BY value DESC, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	partners := []entity.PartnerStanding{}

	for rows.Next() {
		var p entity.PartnerStanding

		err = rows.Scan(&p.Name, &p.Deals, &p.Value, &p.Rating, &p.Tier, &p.Conversion)
		if err != nil {
			return nil, err
		}

		partners = append(partners, p)
	}

	return partners, rows.Err()
}

// CommissionSeries returns monthly payouts, oldest first.
func (r *CRMRepository) CommissionSeries(ctx context.Context) ([]entity.CommissionPoint, error) {
	rows, err := r.db.Query(ctx, `SELECT month, amount FROM commission_payouts ORDER BY month`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	points := []entity.CommissionPoint{}

	for rows.Next() {
		var (
			month time.Time
			p     entity.CommissionPoint
		)

		err = rows.Scan(&month, &p.Amount)
		if err != nil {
			return nil, err
		}

		p.Month = month.Format("Jan 2006")
		points = append(points, p)
	}

	return points, rows.Err()
}

// CustomerAsset returns the showcased customer unit with its payment plan.
func (r *CRMRepository) CustomerAsset(ctx context.Context) (entity.CustomerAsset, error) {
	var (
		a          entity.CustomerAsset
		propertyID uuid.UUID
	)

	err := r.db.QueryRow(ctx, `
		SELECT p.id, p.project, p.unit_no, a.valuation
		FROM customer_assets a
		JOIN properties p ON p.id = a.property_id
		ORDER BY p.project, p.unit_no
		LIMIT 1`,
	).Scan(&propertyID, &a.Project, &a.UnitNo, &a.Valuation)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return a, entity.ErrNotFound
		}

		return a, err
	}

	rows, err := r.db.Query(ctx,
		`SELECT label, amount, paid FROM payment_milestones WHERE property_id = $1 ORDER BY position`, propertyID)
	if err != nil {
		return a, err
	}
	defer rows.Close()

	a.Milestones = []entity.PaymentMilestone{}

	for rows.Next() {
		var m entity.PaymentMilestone

		err = rows.Scan(&m.Label, &m.Amount, &m.Paid)
		if err != nil {
			return a, err
		}

		a.Milestones = append(a.Milestones, m)
	}

	return a, rows.Err()
}
