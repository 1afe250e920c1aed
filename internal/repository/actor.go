package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"service-dispatch-go/internal/apperr"
	"service-dispatch-go/internal/domain"
	"service-dispatch-go/internal/geo"
	"service-dispatch-go/internal/pagination"
)

// ActorRepo represents the actor directory storage.
type ActorRepo struct{ db *pgxpool.Pool }

// NewActorRepo creates a new ActorRepo.
func NewActorRepo(db *pgxpool.Pool) *ActorRepo { return &ActorRepo{db: db} }

const actorColumns = `id, role, first_name, last_name, phone, avatar, lat, lon, updated_at`

func scanActor(row pgx.Row) (*domain.Actor, error) {
	var a domain.Actor
	var lat, lon *float64
	err := row.Scan(&a.ID, &a.Role, &a.FirstName, &a.LastName, &a.Phone, &a.Avatar, &lat, &lon, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if lat != nil && lon != nil {
		a.Position = &geo.Point{Latitude: *lat, Longitude: *lon}
	}
	return &a, nil
}

// Get - returns an actor by its id.
func (r *ActorRepo) Get(ctx context.Context, id string) (*domain.Actor, error) {
	a, err := scanActor(r.db.QueryRow(ctx,
		`SELECT `+actorColumns+` FROM actors WHERE id = $1`, id))
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, upstream(err, "get actor %q", id)
	}
	return a, nil
}

// GetActor - alias of Get matching the dispatch port.
func (r *ActorRepo) GetActor(ctx context.Context, id string) (*domain.Actor, error) {
	return r.Get(ctx, id)
}

// Create - registers a new actor.
func (r *ActorRepo) Create(ctx context.Context, a *domain.Actor) error {
	var lat, lon *float64
	if a.Position != nil {
		lat, lon = &a.Position.Latitude, &a.Position.Longitude
	}
	_, err := r.db.Exec(ctx, `
        INSERT INTO actors (id, role, first_name, last_name, phone, avatar, lat, lon)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
    `, a.ID, string(a.Role), a.FirstName, a.LastName, a.Phone, a.Avatar, lat, lon)
	if err != nil {
		if IsDuplicate(err) {
			return apperr.ErrConflict
		}
		return upstream(err, "create actor")
	}
	return nil
}

// UpdatePartial applies a partial profile update and returns true if a row was affected.
func (r *ActorRepo) UpdatePartial(ctx context.Context, u domain.PartialActorUpdate) (bool, error) {
	ct, err := r.db.Exec(ctx, `
        UPDATE actors
        SET
            first_name = COALESCE($2, first_name),
            last_name  = COALESCE($3, last_name),
            phone      = COALESCE($4, phone),
            avatar     = COALESCE($5, avatar),
            updated_at = now()
        WHERE id = $1
    `, u.ID, u.FirstName, u.LastName, u.Phone, u.Avatar)
	if err != nil {
		if IsDuplicate(err) {
			return false, apperr.ErrConflict
		}
		return false, upstream(err, "update actor %q", u.ID)
	}
	return ct.RowsAffected() > 0, nil
}

// UpdatePosition - stores the actor's last known position, last write wins.
func (r *ActorRepo) UpdatePosition(ctx context.Context, actorID string, p geo.Point) error {
	ct, err := r.db.Exec(ctx, `
        UPDATE actors
        SET lat = $2, lon = $3, updated_at = now()
        WHERE id = $1
    `, actorID, p.Latitude, p.Longitude)
	if err != nil {
		return upstream(err, "update position %q", actorID)
	}
	if ct.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// DriversWithPosition - returns every driver that ever reported a position.
func (r *ActorRepo) DriversWithPosition(ctx context.Context) ([]domain.Actor, error) {
	rows, err := r.db.Query(ctx, `
        SELECT `+actorColumns+`
        FROM actors
        WHERE role = 'driver' AND lat IS NOT NULL AND lon IS NOT NULL
        ORDER BY id
    `)
	if err != nil {
		return nil, upstream(err, "drivers with position")
	}
	defer rows.Close()

	var out []domain.Actor
	for rows.Next() {
		a, err := scanActor(rows)
		if err != nil {
			return nil, upstream(err, "drivers with position")
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// PageDrivers - reads one window of the driver listing ordered by
// registration, newest first, with the paginator's FormerLastID contract.
func (r *ActorRepo) PageDrivers(ctx context.Context, offset, limit int) (pagination.Page[domain.Actor], error) {
	var page pagination.Page[domain.Actor]

	start, fetch := offset, limit
	if offset > 0 {
		start, fetch = offset-1, limit+1
	}

	rows, err := r.db.Query(ctx, `
        SELECT `+actorColumns+`
        FROM actors
        WHERE role = 'driver'
        ORDER BY updated_at DESC, id DESC
        OFFSET $1 LIMIT $2
    `, start, fetch)
	if err != nil {
		return page, upstream(err, "page drivers")
	}
	defer rows.Close()

	var values []domain.Actor
	for rows.Next() {
		a, err := scanActor(rows)
		if err != nil {
			return page, upstream(err, "page drivers")
		}
		values = append(values, *a)
	}
	if err := rows.Err(); err != nil {
		return page, upstream(err, "page drivers")
	}

	if offset > 0 {
		if len(values) == 0 {
			return page, nil
		}
		page.FormerLastID = values[0].ID
		values = values[1:]
	}

	page.Values = values
	if len(values) > 0 {
		page.LastID = values[len(values)-1].ID
	}
	return page, nil
}
