package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/ioutil"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/dbpg"

	"charityevents/internal/model"
)

var (
	ErrEventNotFound         = errors.New("event not found")
	ErrEventEnded            = errors.New("event has already ended")
	ErrDuplicateRegistration = errors.New("duplicate registration")
	ErrInvalidTicketCount    = errors.New("invalid ticket count")
	ErrEventHasRegistrations = errors.New("event has registrations")
)

// SearchFilters are the optional event search criteria. Every set filter
// narrows the result; all set filters combine with AND.
type SearchFilters struct {
	StartDate  *time.Time
	EndDate    *time.Time
	City       string
	CategoryID int
}

// DuplicateMatcher decides whether an existing registration and a
// candidate belong to the same participant. The default policy is
// model.SharesContact.
type DuplicateMatcher func(existing, candidate model.Registration) bool

type Repository interface {
	GetAllEvents(ctx context.Context) ([]model.EventSummary, error)
	GetEventByID(ctx context.Context, id int64) (*model.EventDetails, error)
	SearchEvents(ctx context.Context, filters SearchFilters) ([]model.EventSummary, error)
	GetAllCategories(ctx context.Context) ([]model.Category, error)
	RegisterTx(ctx context.Context, reg *model.Registration, now time.Time, isDuplicate DuplicateMatcher) (int64, error)
	CreateEvent(ctx context.Context, e *model.Event) (int64, error)
	UpdateEvent(ctx context.Context, id int64, e *model.Event) error
	DeleteEventTx(ctx context.Context, id int64) error
	MigrateUp(migrationsDir string) error
	MigrateDown(migrationsDir string) error
}

type repository struct {
	db  *dbpg.DB
	log *zerolog.Logger
}

func NewRepository(db *dbpg.DB, log *zerolog.Logger) (Repository, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if err := db.Master.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}
	return &repository{db: db, log: log}, nil
}

func (r *repository) MigrateUp(migrationsDir string) error {
	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.up.sql"))
	if err != nil {
		return fmt.Errorf("failed to read migration files: %w", err)
	}

	for _, file := range files {
		sqlBytes, err := ioutil.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", file, err)
		}

		if _, err := r.db.ExecContext(context.Background(), string(sqlBytes)); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", file, err)
		}
	}

	r.log.Info().Msgf("Migrations applied successfully from %s", migrationsDir)
	return nil
}

func (r *repository) MigrateDown(migrationsDir string) error {
	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.down.sql"))
	if err != nil {
		return fmt.Errorf("failed to read rollback files: %w", err)
	}

	for _, file := range files {
		sqlBytes, err := ioutil.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read rollback file %s: %w", file, err)
		}

		if _, err := r.db.ExecContext(context.Background(), string(sqlBytes)); err != nil {
			return fmt.Errorf("failed to rollback migration %s: %w", file, err)
		}
	}

	r.log.Info().Msgf("Migrations rolled back successfully from %s", migrationsDir)
	return nil
}

const eventSummaryColumns = `
	e.event_id, e.title, e.description, e.start_date, e.end_date,
	e.start_time, e.end_time, e.location, e.address, e.city,
	e.image_url, e.registration_url, e.charity_id, c.name AS charity_name,
	(SELECT COUNT(*) FROM registrations r WHERE r.event_id = e.event_id) AS registration_count
`

func scanEventSummary(rows *sql.Rows) (model.EventSummary, error) {
	var (
		s           model.EventSummary
		startTime   sql.NullString
		endTime     sql.NullString
		charityID   sql.NullInt64
		charityName sql.NullString
	)
	if err := rows.Scan(
		&s.ID, &s.Title, &s.Description, &s.StartDate, &s.EndDate,
		&startTime, &endTime, &s.Location, &s.Address, &s.City,
		&s.ImageURL, &s.RegistrationURL, &charityID, &charityName,
		&s.RegistrationCount,
	); err != nil {
		return s, fmt.Errorf("failed to scan event: %w", err)
	}
	s.StartTime = startTime.String
	s.EndTime = endTime.String
	if charityID.Valid {
		id := int(charityID.Int64)
		s.CharityID = &id
	}
	if charityName.Valid {
		name := charityName.String
		s.CharityName = &name
	}
	return s, nil
}

func (r *repository) GetAllEvents(ctx context.Context) ([]model.EventSummary, error) {
	query := `
		SELECT ` + eventSummaryColumns + `
		FROM events e
		LEFT JOIN charities c ON e.charity_id = c.charity_id
		ORDER BY e.start_date ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	defer rows.Close()

	var events []model.EventSummary
	for rows.Next() {
		s, err := scanEventSummary(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}

	for i := range events {
		categories, err := r.categoriesForEvent(ctx, int64(events[i].ID))
		if err != nil {
			return nil, err
		}
		events[i].Categories = categories
	}

	return events, nil
}

// BuildSearchQuery assembles the filtered listing query. Conditions are
// appended only for set filters and joined with AND; the category filter
// additionally joins the link table. Exported for tests.
func BuildSearchQuery(filters SearchFilters) (string, []any) {
	query := `
		SELECT ` + eventSummaryColumns + `
		FROM events e
		LEFT JOIN charities c ON e.charity_id = c.charity_id
	`

	var (
		conditions []string
		args       []any
	)

	if filters.StartDate != nil {
		args = append(args, *filters.StartDate)
		conditions = append(conditions, fmt.Sprintf("e.start_date >= $%d", len(args)))
	}

	if filters.EndDate != nil {
		args = append(args, *filters.EndDate)
		conditions = append(conditions, fmt.Sprintf("e.end_date <= $%d", len(args)))
	}

	if filters.City != "" {
		args = append(args, "%"+filters.City+"%")
		conditions = append(conditions, fmt.Sprintf("e.city ILIKE $%d", len(args)))
	}

	if filters.CategoryID > 0 {
		query += `	JOIN event_categories ec ON e.event_id = ec.event_id
	`
		args = append(args, filters.CategoryID)
		conditions = append(conditions, fmt.Sprintf("ec.category_id = $%d", len(args)))
	}

	if len(conditions) > 0 {
		query += "	WHERE " + strings.Join(conditions, " AND ") + "\n"
	}

	query += "	ORDER BY e.start_date ASC"

	return query, args
}

func (r *repository) SearchEvents(ctx context.Context, filters SearchFilters) ([]model.EventSummary, error) {
	query, args := BuildSearchQuery(filters)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search events: %w", err)
	}
	defer rows.Close()

	var events []model.EventSummary
	for rows.Next() {
		s, err := scanEventSummary(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}

	for i := range events {
		categories, err := r.categoriesForEvent(ctx, int64(events[i].ID))
		if err != nil {
			return nil, err
		}
		events[i].Categories = categories
	}

	return events, nil
}

func (r *repository) GetEventByID(ctx context.Context, id int64) (*model.EventDetails, error) {
	query := `
		SELECT e.event_id, e.title, e.description, e.start_date, e.end_date,
		       e.start_time, e.end_time, e.location, e.address, e.city,
		       e.image_url, e.registration_url, e.charity_id,
		       c.name, c.description, c.logo_url, c.website, c.contact_email, c.contact_phone
		FROM events e
		LEFT JOIN charities c ON e.charity_id = c.charity_id
		WHERE e.event_id = $1
	`
	row := r.db.QueryRowContext(ctx, query, id)

	var (
		d         model.EventDetails
		startTime sql.NullString
		endTime   sql.NullString
		charityID sql.NullInt64
		chName    sql.NullString
		chDesc    sql.NullString
		chLogo    sql.NullString
		chWebsite sql.NullString
		chEmail   sql.NullString
		chPhone   sql.NullString
	)
	if err := row.Scan(
		&d.ID, &d.Title, &d.Description, &d.StartDate, &d.EndDate,
		&startTime, &endTime, &d.Location, &d.Address, &d.City,
		&d.ImageURL, &d.RegistrationURL, &charityID,
		&chName, &chDesc, &chLogo, &chWebsite, &chEmail, &chPhone,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	d.StartTime = startTime.String
	d.EndTime = endTime.String
	if charityID.Valid {
		cid := int(charityID.Int64)
		d.CharityID = &cid
		name := chName.String
		d.CharityName = &name
		d.Charity = &model.Charity{
			ID:           cid,
			Name:         chName.String,
			Description:  chDesc.String,
			LogoURL:      chLogo.String,
			Website:      chWebsite.String,
			ContactEmail: chEmail.String,
			ContactPhone: chPhone.String,
		}
	}

	categories, err := r.categoriesForEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	d.Categories = categories

	registrations, err := r.registrationsForEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	d.Registrations = registrations
	d.RegistrationCount = len(registrations)

	return &d, nil
}

func (r *repository) categoriesForEvent(ctx context.Context, eventID int64) ([]model.Category, error) {
	query := `
		SELECT c.category_id, c.name, c.description
		FROM categories c
		JOIN event_categories ec ON c.category_id = ec.category_id
		WHERE ec.event_id = $1
	`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get event categories: %w", err)
	}
	defer rows.Close()

	var categories []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}

	return categories, rows.Err()
}

func (r *repository) registrationsForEvent(ctx context.Context, eventID int64) ([]model.Registration, error) {
	query := `
		SELECT registration_id, event_id, user_name, email, phone, number_of_tickets, registration_date
		FROM registrations
		WHERE event_id = $1
		ORDER BY registration_date DESC
	`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get registrations: %w", err)
	}
	defer rows.Close()

	var regs []model.Registration
	for rows.Next() {
		var reg model.Registration
		if err := rows.Scan(
			&reg.ID, &reg.EventID, &reg.UserName, &reg.Email,
			&reg.Phone, &reg.NumberOfTickets, &reg.RegistrationDate,
		); err != nil {
			return nil, fmt.Errorf("failed to scan registration: %w", err)
		}
		regs = append(regs, reg)
	}

	return regs, rows.Err()
}

func (r *repository) GetAllCategories(ctx context.Context) ([]model.Category, error) {
	query := `
		SELECT category_id, name, description
		FROM categories
		ORDER BY name ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}
	defer rows.Close()

	var categories []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}

	return categories, rows.Err()
}

// RegisterTx runs the whole registration guard and the insert inside a
// single transaction with the event row locked, so two near-simultaneous
// submissions sharing contact details cannot both be admitted. The checks
// run in a fixed order: event exists, event not ended, no duplicate, ticket
// count in range.
func (r *repository) RegisterTx(ctx context.Context, reg *model.Registration, now time.Time, isDuplicate DuplicateMatcher) (int64, error) {
	tx, err := r.db.Master.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to start transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	var endDate time.Time
	err = tx.QueryRowContext(ctx, `
		SELECT end_date
		FROM events
		WHERE event_id = $1
		FOR UPDATE
	`, reg.EventID).Scan(&endDate)
	if err != nil {
		_ = tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrEventNotFound
		}
		return 0, fmt.Errorf("failed to get event for registration: %w", err)
	}

	// A registration at the exact end instant is still accepted.
	if endDate.Before(now) {
		_ = tx.Rollback()
		return 0, ErrEventEnded
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT registration_id, event_id, user_name, email, phone, number_of_tickets, registration_date
		FROM registrations
		WHERE event_id = $1
	`, reg.EventID)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("failed to check duplicate registration: %w", err)
	}
	for rows.Next() {
		var existing model.Registration
		if err := rows.Scan(
			&existing.ID, &existing.EventID, &existing.UserName, &existing.Email,
			&existing.Phone, &existing.NumberOfTickets, &existing.RegistrationDate,
		); err != nil {
			rows.Close()
			_ = tx.Rollback()
			return 0, fmt.Errorf("failed to scan registration: %w", err)
		}
		if isDuplicate(existing, *reg) {
			rows.Close()
			_ = tx.Rollback()
			return 0, ErrDuplicateRegistration
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		_ = tx.Rollback()
		return 0, fmt.Errorf("failed to iterate registrations: %w", err)
	}
	rows.Close()

	if !model.ValidTicketCount(reg.NumberOfTickets) {
		_ = tx.Rollback()
		return 0, ErrInvalidTicketCount
	}

	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO registrations (event_id, user_name, email, phone, number_of_tickets, registration_date)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING registration_id
	`, reg.EventID, reg.UserName, reg.Email, reg.Phone, reg.NumberOfTickets).Scan(&id)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("failed to create registration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return id, nil
}

func (r *repository) CreateEvent(ctx context.Context, e *model.Event) (int64, error) {
	query := `
		INSERT INTO events (title, description, start_date, end_date, start_time, end_time,
		                    location, address, city, image_url, registration_url, charity_id)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7, $8, $9, $10, $11, $12)
		RETURNING event_id
	`

	row := r.db.QueryRowContext(ctx, query,
		e.Title, e.Description, e.StartDate, e.EndDate, e.StartTime, e.EndTime,
		e.Location, e.Address, e.City, e.ImageURL, e.RegistrationURL, e.CharityID,
	)

	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to insert event: %w", err)
	}
	return id, nil
}

func (r *repository) UpdateEvent(ctx context.Context, id int64, e *model.Event) error {
	query := `
		UPDATE events
		SET title = $1, description = $2, start_date = $3, end_date = $4,
		    start_time = NULLIF($5, ''), end_time = NULLIF($6, ''),
		    location = $7, address = $8, city = $9,
		    image_url = $10, registration_url = $11, charity_id = $12
		WHERE event_id = $13
	`

	res, err := r.db.ExecContext(ctx, query,
		e.Title, e.Description, e.StartDate, e.EndDate, e.StartTime, e.EndTime,
		e.Location, e.Address, e.City, e.ImageURL, e.RegistrationURL, e.CharityID, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return ErrEventNotFound
	}
	return nil
}

// DeleteEventTx deletes an event only when nothing references it. The
// registration count check and the delete run in one transaction so a
// registration arriving in between cannot be orphaned.
func (r *repository) DeleteEventTx(ctx context.Context, id int64) error {
	tx, err := r.db.Master.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	var count int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM registrations WHERE event_id = $1
	`, id).Scan(&count)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to count registrations: %w", err)
	}
	if count > 0 {
		_ = tx.Rollback()
		return ErrEventHasRegistrations
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM events WHERE event_id = $1`, id)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to delete event: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		_ = tx.Rollback()
		return ErrEventNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
