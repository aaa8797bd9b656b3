package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/tres-passos/marketplace/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. It backs local
// development and tests; production reads the hosted Postgres database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// sqliteSchema mirrors the hosted tables the marketplace reads.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS services (
	id   TEXT PRIMARY KEY,
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sub_services (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	service_id TEXT NOT NULL REFERENCES services(id)
);

CREATE TABLE IF NOT EXISTS specialties (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	sub_service_id TEXT NOT NULL REFERENCES sub_services(id)
);

CREATE TABLE IF NOT EXISTS service_questions (
	id             TEXT PRIMARY KEY,
	question       TEXT NOT NULL,
	service_id     TEXT,
	sub_service_id TEXT,
	specialty_id   TEXT
);

CREATE TABLE IF NOT EXISTS question_options (
	id          TEXT PRIMARY KEY,
	question_id TEXT NOT NULL REFERENCES service_questions(id),
	option_text TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS service_items (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	type           TEXT NOT NULL DEFAULT 'quantity',
	service_id     TEXT,
	sub_service_id TEXT,
	specialty_id   TEXT
);

CREATE TABLE IF NOT EXISTS users (
	id    TEXT PRIMARY KEY,
	email TEXT
);

CREATE TABLE IF NOT EXISTS profiles (
	id         TEXT PRIMARY KEY,
	name       TEXT,
	phone      TEXT,
	role       TEXT NOT NULL DEFAULT 'client',
	avatar_url TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS provider_settings (
	provider_id       TEXT PRIMARY KEY REFERENCES profiles(id),
	bio               TEXT,
	service_radius_km REAL,
	latitude          REAL,
	longitude         REAL,
	city              TEXT,
	neighborhood      TEXT
);

CREATE TABLE IF NOT EXISTS provider_services (
	id             TEXT PRIMARY KEY,
	provider_id    TEXT NOT NULL REFERENCES profiles(id),
	service_id     TEXT,
	sub_service_id TEXT,
	specialty_id   TEXT,
	base_price     REAL
);

CREATE TABLE IF NOT EXISTS provider_item_prices (
	provider_id    TEXT NOT NULL REFERENCES profiles(id),
	item_id        TEXT NOT NULL,
	price_per_unit REAL NOT NULL,
	PRIMARY KEY (provider_id, item_id)
);

CREATE TABLE IF NOT EXISTS provider_portfolio (
	id          TEXT PRIMARY KEY,
	provider_id TEXT NOT NULL REFERENCES profiles(id),
	image_url   TEXT NOT NULL,
	description TEXT
);

CREATE TABLE IF NOT EXISTS quotes (
	id          TEXT PRIMARY KEY,
	client_id   TEXT,
	provider_id TEXT,
	rating      REAL
);

CREATE TABLE IF NOT EXISTS quote_providers (
	id          TEXT PRIMARY KEY,
	quote_id    TEXT NOT NULL,
	provider_id TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'pending',
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_provider_services_specialty ON provider_services(specialty_id);
CREATE INDEX IF NOT EXISTS idx_provider_services_sub_service ON provider_services(sub_service_id);
CREATE INDEX IF NOT EXISTS idx_provider_services_service ON provider_services(service_id);
CREATE INDEX IF NOT EXISTS idx_quotes_provider ON quotes(provider_id);
`

// Migrate creates the development schema.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteSchema)
	return eris.Wrap(err, "sqlite: migrate")
}

// Exec runs a raw statement; used to seed development databases.
func (s *SQLiteStore) Exec(ctx context.Context, query string, args ...any) error {
	_, err := s.db.ExecContext(ctx, query, args...)
	return eris.Wrap(err, "sqlite: exec")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ListServices(ctx context.Context) ([]model.Service, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM services ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list services")
	}
	defer rows.Close()

	var out []model.Service
	for rows.Next() {
		var svc model.Service
		if err := rows.Scan(&svc.ID, &svc.Name); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan service")
		}
		out = append(out, svc)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list services iterate")
}

func (s *SQLiteStore) ListSubServices(ctx context.Context) ([]model.SubService, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, service_id FROM sub_services ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list sub-services")
	}
	defer rows.Close()

	var out []model.SubService
	for rows.Next() {
		var ss model.SubService
		if err := rows.Scan(&ss.ID, &ss.Name, &ss.ServiceID); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan sub-service")
		}
		out = append(out, ss)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list sub-services iterate")
}

func (s *SQLiteStore) ListSpecialties(ctx context.Context) ([]model.Specialty, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, sub_service_id FROM specialties ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list specialties")
	}
	defer rows.Close()

	var out []model.Specialty
	for rows.Next() {
		var sp model.Specialty
		if err := rows.Scan(&sp.ID, &sp.Name, &sp.SubServiceID); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan specialty")
		}
		out = append(out, sp)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list specialties iterate")
}

func (s *SQLiteStore) ListQuestions(ctx context.Context, level model.CatalogLevel, id string) ([]model.Question, error) {
	col, err := levelColumn(level)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT id, question, service_id, sub_service_id, specialty_id FROM service_questions WHERE %s = ? ORDER BY rowid`, col)
	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list questions")
	}
	defer rows.Close()

	var out []model.Question
	for rows.Next() {
		var q model.Question
		var serviceID, subServiceID, specialtyID sql.NullString
		if err := rows.Scan(&q.ID, &q.Question, &serviceID, &subServiceID, &specialtyID); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan question")
		}
		q.ServiceID = serviceID.String
		q.SubServiceID = subServiceID.String
		q.SpecialtyID = specialtyID.String
		out = append(out, q)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list questions iterate")
}

func (s *SQLiteStore) ListQuestionOptions(ctx context.Context, questionIDs []string) ([]model.QuestionOption, error) {
	if len(questionIDs) == 0 {
		return nil, nil
	}

	in, args := inClause(questionIDs)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, question_id, option_text FROM question_options WHERE question_id IN `+in+` ORDER BY rowid`,
		args...,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list question options")
	}
	defer rows.Close()

	var out []model.QuestionOption
	for rows.Next() {
		var o model.QuestionOption
		if err := rows.Scan(&o.ID, &o.QuestionID, &o.OptionText); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan question option")
		}
		out = append(out, o)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list question options iterate")
}

func (s *SQLiteStore) ListServiceItems(ctx context.Context, level model.CatalogLevel, id string) ([]model.ServiceItem, error) {
	col, err := levelColumn(level)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT id, name, type, service_id, sub_service_id, specialty_id FROM service_items WHERE %s = ? ORDER BY rowid`, col)
	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list service items")
	}
	defer rows.Close()

	var out []model.ServiceItem
	for rows.Next() {
		var it model.ServiceItem
		var itemType string
		var serviceID, subServiceID, specialtyID sql.NullString
		if err := rows.Scan(&it.ID, &it.Name, &itemType, &serviceID, &subServiceID, &specialtyID); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan service item")
		}
		it.Type = model.ItemType(itemType)
		it.ServiceID = serviceID.String
		it.SubServiceID = subServiceID.String
		it.SpecialtyID = specialtyID.String
		out = append(out, it)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list service items iterate")
}

func (s *SQLiteStore) ListOfferings(ctx context.Context, level model.CatalogLevel, id string) ([]model.ProviderOffering, error) {
	col, err := levelColumn(level)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT id, provider_id, service_id, sub_service_id, specialty_id, base_price FROM provider_services WHERE %s = ? ORDER BY rowid`, col)
	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list offerings")
	}
	defer rows.Close()

	var out []model.ProviderOffering
	for rows.Next() {
		var o model.ProviderOffering
		var serviceID, subServiceID, specialtyID sql.NullString
		var basePrice sql.NullFloat64
		if err := rows.Scan(&o.ID, &o.ProviderID, &serviceID, &subServiceID, &specialtyID, &basePrice); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan offering")
		}
		o.ServiceID = serviceID.String
		o.SubServiceID = subServiceID.String
		o.SpecialtyID = specialtyID.String
		o.BasePrice = basePrice.Float64
		out = append(out, o)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list offerings iterate")
}

func (s *SQLiteStore) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, phone, role, avatar_url, created_at FROM profiles WHERE id = ?`, id,
	)
	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "sqlite: get profile %s", id)
	}
	return p, nil
}

func (s *SQLiteStore) GetProviderSettings(ctx context.Context, providerID string) (*model.ProviderSettings, error) {
	st := model.ProviderSettings{ProviderID: providerID}
	var bio, city, neighborhood sql.NullString
	var radius, lat, lng sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT bio, service_radius_km, latitude, longitude, city, neighborhood FROM provider_settings WHERE provider_id = ?`,
		providerID,
	).Scan(&bio, &radius, &lat, &lng, &city, &neighborhood)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get provider settings %s", providerID)
	}
	st.Bio = bio.String
	st.City = city.String
	st.Neighborhood = neighborhood.String
	st.ServiceRadiusKM = nullFloatPtr(radius)
	st.Latitude = nullFloatPtr(lat)
	st.Longitude = nullFloatPtr(lng)
	return &st, nil
}

func (s *SQLiteStore) ListItemPrices(ctx context.Context, providerIDs, itemIDs []string) ([]model.ItemPrice, error) {
	if len(providerIDs) == 0 || len(itemIDs) == 0 {
		return nil, nil
	}

	providerIn, providerArgs := inClause(providerIDs)
	itemIn, itemArgs := inClause(itemIDs)
	rows, err := s.db.QueryContext(ctx,
		`SELECT provider_id, item_id, price_per_unit FROM provider_item_prices WHERE provider_id IN `+providerIn+` AND item_id IN `+itemIn,
		append(providerArgs, itemArgs...)...,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list item prices")
	}
	defer rows.Close()

	var out []model.ItemPrice
	for rows.Next() {
		var ip model.ItemPrice
		if err := rows.Scan(&ip.ProviderID, &ip.ItemID, &ip.PricePerUnit); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan item price")
		}
		out = append(out, ip)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list item prices iterate")
}

func (s *SQLiteStore) ListRatings(ctx context.Context, providerID string) ([]float64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT rating FROM quotes WHERE provider_id = ? AND rating IS NOT NULL`, providerID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list ratings %s", providerID)
	}
	defer rows.Close()

	var out []float64
	for rows.Next() {
		var r float64
		if err := rows.Scan(&r); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan rating")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list ratings iterate")
}

func (s *SQLiteStore) ListPortfolio(ctx context.Context, providerID string) ([]model.PortfolioItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, image_url, description FROM provider_portfolio WHERE provider_id = ? ORDER BY rowid`, providerID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list portfolio %s", providerID)
	}
	defer rows.Close()

	var out []model.PortfolioItem
	for rows.Next() {
		var it model.PortfolioItem
		var desc sql.NullString
		if err := rows.Scan(&it.ID, &it.ImageURL, &desc); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan portfolio item")
		}
		it.Description = desc.String
		out = append(out, it)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list portfolio iterate")
}

func (s *SQLiteStore) AddQuoteProvider(ctx context.Context, quoteID, providerID string, status model.QuoteProviderStatus) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO quote_providers (id, quote_id, provider_id, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), quoteID, providerID, string(status), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: add quote %s provider %s", quoteID, providerID)
}

func (s *SQLiteStore) ListProfiles(ctx context.Context) ([]model.Profile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, phone, role, avatar_url, created_at FROM profiles ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list profiles")
	}
	defer rows.Close()

	var out []model.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan profile")
		}
		out = append(out, *p)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list profiles iterate")
}

func (s *SQLiteStore) GetUserEmail(ctx context.Context, userID string) (string, error) {
	var email sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT email FROM users WHERE id = ?`, userID).Scan(&email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", eris.Wrapf(err, "sqlite: get user email %s", userID)
	}
	return email.String, nil
}

func (s *SQLiteStore) UpdateProfile(ctx context.Context, userID string, update model.ProfileUpdate) error {
	sets, args := profileSetClauses(update, func(int) string { return "?" })
	if len(sets) == 0 {
		return eris.New("sqlite: update profile: nothing to update")
	}
	args = append(args, userID)

	res, err := s.db.ExecContext(ctx, `UPDATE profiles SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update profile %s", userID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: update profile rows affected")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*model.Profile, error) {
	var p model.Profile
	var name, phone, role, avatar sql.NullString
	if err := row.Scan(&p.ID, &name, &phone, &role, &avatar, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.Name = name.String
	p.Phone = phone.String
	p.Role = model.ParseRole(role.String)
	p.AvatarURL = avatar.String
	return &p, nil
}

// inClause returns "(?, ?, ...)" and the matching arguments.
func inClause(values []string) (string, []any) {
	args := make([]any, len(values))
	marks := make([]string, len(values))
	for i, v := range values {
		args[i] = v
		marks[i] = "?"
	}
	return "(" + strings.Join(marks, ", ") + ")", args
}

func nullFloatPtr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}
