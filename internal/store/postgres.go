package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/tres-passos/marketplace/internal/db"
	"github.com/tres-passos/marketplace/internal/model"
)

// PostgresStore implements Store against the hosted Postgres database.
// The schema is owned by the hosting backend.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres connects to connString and returns a PostgresStore.
func NewPostgres(ctx context.Context, connString string, poolCfg db.PoolConfig) (*PostgresStore, error) {
	pool, err := db.Connect(ctx, connString, poolCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) ListServices(ctx context.Context) ([]model.Service, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name FROM services ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list services")
	}
	defer rows.Close()

	var out []model.Service
	for rows.Next() {
		var svc model.Service
		if err := rows.Scan(&svc.ID, &svc.Name); err != nil {
			return nil, eris.Wrap(err, "postgres: scan service")
		}
		out = append(out, svc)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list services iterate")
}

func (s *PostgresStore) ListSubServices(ctx context.Context) ([]model.SubService, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, service_id FROM sub_services ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list sub-services")
	}
	defer rows.Close()

	var out []model.SubService
	for rows.Next() {
		var ss model.SubService
		if err := rows.Scan(&ss.ID, &ss.Name, &ss.ServiceID); err != nil {
			return nil, eris.Wrap(err, "postgres: scan sub-service")
		}
		out = append(out, ss)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list sub-services iterate")
}

func (s *PostgresStore) ListSpecialties(ctx context.Context) ([]model.Specialty, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, sub_service_id FROM specialties ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list specialties")
	}
	defer rows.Close()

	var out []model.Specialty
	for rows.Next() {
		var sp model.Specialty
		if err := rows.Scan(&sp.ID, &sp.Name, &sp.SubServiceID); err != nil {
			return nil, eris.Wrap(err, "postgres: scan specialty")
		}
		out = append(out, sp)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list specialties iterate")
}

func (s *PostgresStore) ListQuestions(ctx context.Context, level model.CatalogLevel, id string) ([]model.Question, error) {
	col, err := levelColumn(level)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT id, question, service_id, sub_service_id, specialty_id FROM service_questions WHERE %s = $1`, col)
	rows, err := s.pool.Query(ctx, query, id)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list questions")
	}
	defer rows.Close()

	var out []model.Question
	for rows.Next() {
		var q model.Question
		var serviceID, subServiceID, specialtyID *string
		if err := rows.Scan(&q.ID, &q.Question, &serviceID, &subServiceID, &specialtyID); err != nil {
			return nil, eris.Wrap(err, "postgres: scan question")
		}
		q.ServiceID = derefString(serviceID)
		q.SubServiceID = derefString(subServiceID)
		q.SpecialtyID = derefString(specialtyID)
		out = append(out, q)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list questions iterate")
}

func (s *PostgresStore) ListQuestionOptions(ctx context.Context, questionIDs []string) ([]model.QuestionOption, error) {
	if len(questionIDs) == 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, question_id, option_text FROM question_options WHERE question_id = ANY($1)`,
		questionIDs,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list question options")
	}
	defer rows.Close()

	var out []model.QuestionOption
	for rows.Next() {
		var o model.QuestionOption
		if err := rows.Scan(&o.ID, &o.QuestionID, &o.OptionText); err != nil {
			return nil, eris.Wrap(err, "postgres: scan question option")
		}
		out = append(out, o)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list question options iterate")
}

func (s *PostgresStore) ListServiceItems(ctx context.Context, level model.CatalogLevel, id string) ([]model.ServiceItem, error) {
	col, err := levelColumn(level)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT id, name, type, service_id, sub_service_id, specialty_id FROM service_items WHERE %s = $1`, col)
	rows, err := s.pool.Query(ctx, query, id)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list service items")
	}
	defer rows.Close()

	var out []model.ServiceItem
	for rows.Next() {
		var it model.ServiceItem
		var itemType string
		var serviceID, subServiceID, specialtyID *string
		if err := rows.Scan(&it.ID, &it.Name, &itemType, &serviceID, &subServiceID, &specialtyID); err != nil {
			return nil, eris.Wrap(err, "postgres: scan service item")
		}
		it.Type = model.ItemType(itemType)
		it.ServiceID = derefString(serviceID)
		it.SubServiceID = derefString(subServiceID)
		it.SpecialtyID = derefString(specialtyID)
		out = append(out, it)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list service items iterate")
}

func (s *PostgresStore) ListOfferings(ctx context.Context, level model.CatalogLevel, id string) ([]model.ProviderOffering, error) {
	col, err := levelColumn(level)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT id, provider_id, service_id, sub_service_id, specialty_id, base_price FROM provider_services WHERE %s = $1`, col)
	rows, err := s.pool.Query(ctx, query, id)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list offerings")
	}
	defer rows.Close()

	var out []model.ProviderOffering
	for rows.Next() {
		var o model.ProviderOffering
		var serviceID, subServiceID, specialtyID *string
		var basePrice *float64
		if err := rows.Scan(&o.ID, &o.ProviderID, &serviceID, &subServiceID, &specialtyID, &basePrice); err != nil {
			return nil, eris.Wrap(err, "postgres: scan offering")
		}
		o.ServiceID = derefString(serviceID)
		o.SubServiceID = derefString(subServiceID)
		o.SpecialtyID = derefString(specialtyID)
		o.BasePrice = derefFloat(basePrice)
		out = append(out, o)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list offerings iterate")
}

func (s *PostgresStore) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	var p model.Profile
	var name, phone, role, avatar *string
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, phone, role, avatar_url, created_at FROM profiles WHERE id = $1`, id,
	).Scan(&p.ID, &name, &phone, &role, &avatar, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "postgres: get profile %s", id)
	}
	p.Name = derefString(name)
	p.Phone = derefString(phone)
	p.Role = model.ParseRole(derefString(role))
	p.AvatarURL = derefString(avatar)
	return &p, nil
}

func (s *PostgresStore) GetProviderSettings(ctx context.Context, providerID string) (*model.ProviderSettings, error) {
	st := model.ProviderSettings{ProviderID: providerID}
	var bio, city, neighborhood *string
	err := s.pool.QueryRow(ctx,
		`SELECT bio, service_radius_km, latitude, longitude, city, neighborhood FROM provider_settings WHERE provider_id = $1`,
		providerID,
	).Scan(&bio, &st.ServiceRadiusKM, &st.Latitude, &st.Longitude, &city, &neighborhood)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get provider settings %s", providerID)
	}
	st.Bio = derefString(bio)
	st.City = derefString(city)
	st.Neighborhood = derefString(neighborhood)
	return &st, nil
}

func (s *PostgresStore) ListItemPrices(ctx context.Context, providerIDs, itemIDs []string) ([]model.ItemPrice, error) {
	if len(providerIDs) == 0 || len(itemIDs) == 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT provider_id, item_id, price_per_unit FROM provider_item_prices WHERE provider_id = ANY($1) AND item_id = ANY($2)`,
		providerIDs, itemIDs,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list item prices")
	}
	defer rows.Close()

	var out []model.ItemPrice
	for rows.Next() {
		var ip model.ItemPrice
		if err := rows.Scan(&ip.ProviderID, &ip.ItemID, &ip.PricePerUnit); err != nil {
			return nil, eris.Wrap(err, "postgres: scan item price")
		}
		out = append(out, ip)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list item prices iterate")
}

func (s *PostgresStore) ListRatings(ctx context.Context, providerID string) ([]float64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT rating FROM quotes WHERE provider_id = $1 AND rating IS NOT NULL`, providerID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list ratings %s", providerID)
	}
	defer rows.Close()

	var out []float64
	for rows.Next() {
		var r float64
		if err := rows.Scan(&r); err != nil {
			return nil, eris.Wrap(err, "postgres: scan rating")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list ratings iterate")
}

func (s *PostgresStore) ListPortfolio(ctx context.Context, providerID string) ([]model.PortfolioItem, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, image_url, description FROM provider_portfolio WHERE provider_id = $1`, providerID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list portfolio %s", providerID)
	}
	defer rows.Close()

	var out []model.PortfolioItem
	for rows.Next() {
		var it model.PortfolioItem
		var desc *string
		if err := rows.Scan(&it.ID, &it.ImageURL, &desc); err != nil {
			return nil, eris.Wrap(err, "postgres: scan portfolio item")
		}
		it.Description = derefString(desc)
		out = append(out, it)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list portfolio iterate")
}

func (s *PostgresStore) AddQuoteProvider(ctx context.Context, quoteID, providerID string, status model.QuoteProviderStatus) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO quote_providers (id, quote_id, provider_id, status) VALUES ($1, $2, $3, $4)`,
		uuid.New().String(), quoteID, providerID, string(status),
	)
	return eris.Wrapf(err, "postgres: add quote %s provider %s", quoteID, providerID)
}

func (s *PostgresStore) ListProfiles(ctx context.Context) ([]model.Profile, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, phone, role, avatar_url, created_at FROM profiles ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list profiles")
	}
	defer rows.Close()

	var out []model.Profile
	for rows.Next() {
		var p model.Profile
		var name, phone, role, avatar *string
		if err := rows.Scan(&p.ID, &name, &phone, &role, &avatar, &p.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan profile")
		}
		p.Name = derefString(name)
		p.Phone = derefString(phone)
		p.Role = model.ParseRole(derefString(role))
		p.AvatarURL = derefString(avatar)
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list profiles iterate")
}

func (s *PostgresStore) GetUserEmail(ctx context.Context, userID string) (string, error) {
	var email *string
	err := s.pool.QueryRow(ctx, `SELECT email FROM auth.users WHERE id = $1`, userID).Scan(&email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", eris.Wrapf(err, "postgres: get user email %s", userID)
	}
	return derefString(email), nil
}

func (s *PostgresStore) UpdateProfile(ctx context.Context, userID string, update model.ProfileUpdate) error {
	sets, args := profileSetClauses(update, func(i int) string { return fmt.Sprintf("$%d", i) })
	if len(sets) == 0 {
		return eris.New("postgres: update profile: nothing to update")
	}
	args = append(args, userID)
	query := fmt.Sprintf(`UPDATE profiles SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args))

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return eris.Wrapf(err, "postgres: update profile %s", userID)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// profileSetClauses builds "col = placeholder" pairs for the set fields of
// update, in a fixed column order.
func profileSetClauses(update model.ProfileUpdate, placeholder func(i int) string) ([]string, []any) {
	var sets []string
	var args []any
	add := func(col string, v *string) {
		if v == nil {
			return
		}
		args = append(args, *v)
		sets = append(sets, fmt.Sprintf("%s = %s", col, placeholder(len(args))))
	}
	add("name", update.Name)
	add("phone", update.Phone)
	add("avatar_url", update.AvatarURL)
	return sets, args
}
