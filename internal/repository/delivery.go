package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"service-dispatch-go/internal/domain"
	"service-dispatch-go/internal/pagination"
	"service-dispatch-go/internal/ports/dispatchtx"
)

// DeliveryRepo represents delivery and conflict storage.
type DeliveryRepo struct {
	db *pgxpool.Pool
}

// NewDeliveryRepo creates a new DeliveryRepo.
func NewDeliveryRepo(db *pgxpool.Pool) *DeliveryRepo {
	return &DeliveryRepo{db: db}
}

// WithTx opens a transaction and executes fn within it.
func (r *DeliveryRepo) WithTx(ctx context.Context, fn func(tx dispatchtx.Repository) error) (err error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return upstream(err, "begin tx")
	}

	// roll back on panic before re-raising
	defer func() {
		if p := recover(); p != nil {
			err = tx.Rollback(ctx)
			if err != nil {
				panic(err)
			}
			panic(p)
		}
	}()

	wrapped := &TxRepo{tx: tx}

	if err := fn(wrapped); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("rollback tx: %w (original error: %s)", rbErr, err.Error())
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return upstream(err, "commit tx")
	}

	return nil
}

const deliveryColumns = `
	id, status,
	departure_address, departure_lat, departure_lon,
	destination_address, destination_lat, destination_lon,
	recipient_name, recipient_phone, recipient_other_phones,
	client_id, driver_id, code, requested_at, updated_at`

func scanDelivery(row pgx.Row) (*domain.Delivery, error) {
	var d domain.Delivery
	err := row.Scan(
		&d.ID, &d.Status,
		&d.Departure.Address, &d.Departure.Point.Latitude, &d.Departure.Point.Longitude,
		&d.Destination.Address, &d.Destination.Point.Latitude, &d.Destination.Point.Longitude,
		&d.Recipient.Name, &d.Recipient.Phone, &d.Recipient.OtherPhones,
		&d.ClientID, &d.DriverID, &d.Code, &d.RequestedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// CreateDelivery - inserts a new delivery.
func (r *DeliveryRepo) CreateDelivery(ctx context.Context, d *domain.Delivery) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO deliveries (
            id, status,
            departure_address, departure_lat, departure_lon,
            destination_address, destination_lat, destination_lon,
            recipient_name, recipient_phone, recipient_other_phones,
            client_id, code, requested_at, updated_at
        )
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
    `,
		d.ID, string(d.Status),
		d.Departure.Address, d.Departure.Point.Latitude, d.Departure.Point.Longitude,
		d.Destination.Address, d.Destination.Point.Latitude, d.Destination.Point.Longitude,
		d.Recipient.Name, d.Recipient.Phone, d.Recipient.OtherPhones,
		d.ClientID, d.Code, d.RequestedAt, d.UpdatedAt,
	)
	if err != nil {
		return upstream(err, "insert delivery")
	}
	return nil
}

// GetDelivery - returns a delivery by id.
func (r *DeliveryRepo) GetDelivery(ctx context.Context, id string) (*domain.Delivery, error) {
	d, err := scanDelivery(r.db.QueryRow(ctx,
		`SELECT `+deliveryColumns+` FROM deliveries WHERE id = $1`, id))
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, upstream(err, "get delivery %q", id)
	}
	return d, nil
}

// GetActiveDeliveryFor - returns the newest active delivery the actor is
// a party of, as client or assigned driver.
func (r *DeliveryRepo) GetActiveDeliveryFor(ctx context.Context, actorID string) (*domain.Delivery, error) {
	d, err := scanDelivery(r.db.QueryRow(ctx, `
        SELECT `+deliveryColumns+`
        FROM deliveries
        WHERE status IN ('accepted', 'pendingReception', 'toBeConfirmed', 'started')
          AND (client_id = $1 OR driver_id = $1)
        ORDER BY requested_at DESC, id DESC
        LIMIT 1
    `, actorID))
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, upstream(err, "get active delivery for %q", actorID)
	}
	return d, nil
}

// PageDeliveriesByStatus - reads one listing window, newest first. When
// offset is positive the row just before the window is fetched too and
// surfaced as FormerLastID for the paginator's staleness check.
func (r *DeliveryRepo) PageDeliveriesByStatus(ctx context.Context, status domain.DeliveryStatus, offset, limit int) (pagination.Page[domain.Delivery], error) {
	var page pagination.Page[domain.Delivery]

	start, fetch := offset, limit
	if offset > 0 {
		start, fetch = offset-1, limit+1
	}

	rows, err := r.db.Query(ctx, `
        SELECT `+deliveryColumns+`
        FROM deliveries
        WHERE status = $1
        ORDER BY requested_at DESC, id DESC
        OFFSET $2 LIMIT $3
    `, string(status), start, fetch)
	if err != nil {
		return page, upstream(err, "page deliveries")
	}
	defer rows.Close()

	var values []domain.Delivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return page, upstream(err, "page deliveries")
		}
		values = append(values, *d)
	}
	if err := rows.Err(); err != nil {
		return page, upstream(err, "page deliveries")
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

const conflictColumns = `
	id, delivery_id, type, reporter_id,
	last_lat, last_lon, prior_status, reported_at, closed_at`

func scanConflict(row pgx.Row) (*domain.Conflict, error) {
	var c domain.Conflict
	err := row.Scan(
		&c.ID, &c.DeliveryID, &c.Type, &c.ReporterID,
		&c.LastLocation.Latitude, &c.LastLocation.Longitude,
		&c.PriorStatus, &c.ReportedAt, &c.ClosedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetConflict - returns a conflict by id.
func (r *DeliveryRepo) GetConflict(ctx context.Context, id string) (*domain.Conflict, error) {
	c, err := scanConflict(r.db.QueryRow(ctx,
		`SELECT `+conflictColumns+` FROM delivery_conflicts WHERE id = $1`, id))
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, upstream(err, "get conflict %q", id)
	}
	return c, nil
}

// TxRepo represents transaction repository.
type TxRepo struct {
	tx pgx.Tx
}

// GetDeliveryForUpdate - reads a delivery locking its row.
func (r *TxRepo) GetDeliveryForUpdate(ctx context.Context, id string) (*domain.Delivery, error) {
	d, err := scanDelivery(r.tx.QueryRow(ctx,
		`SELECT `+deliveryColumns+` FROM deliveries WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, upstream(err, "get delivery for update %q", id)
	}
	return d, nil
}

// UpdateDeliveryStatus - moves a delivery to the given status.
func (r *TxRepo) UpdateDeliveryStatus(ctx context.Context, id string, status domain.DeliveryStatus) error {
	ct, err := r.tx.Exec(ctx, `
        UPDATE deliveries
        SET status = $2, updated_at = now()
        WHERE id = $1
    `, id, string(status))
	if err != nil {
		return upstream(err, "update delivery status %q", id)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("delivery %q not found", id)
	}
	return nil
}

// AssignDriver - sets the assigned driver.
func (r *TxRepo) AssignDriver(ctx context.Context, deliveryID, driverID string) error {
	ct, err := r.tx.Exec(ctx, `
        UPDATE deliveries
        SET driver_id = $2, updated_at = now()
        WHERE id = $1
    `, deliveryID, driverID)
	if err != nil {
		return upstream(err, "assign driver on %q", deliveryID)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("delivery %q not found", deliveryID)
	}
	return nil
}

// InsertConflict - inserts a new conflict row.
func (r *TxRepo) InsertConflict(ctx context.Context, c *domain.Conflict) error {
	_, err := r.tx.Exec(ctx, `
        INSERT INTO delivery_conflicts (
            id, delivery_id, type, reporter_id,
            last_lat, last_lon, prior_status, reported_at
        )
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
    `,
		c.ID, c.DeliveryID, c.Type, c.ReporterID,
		c.LastLocation.Latitude, c.LastLocation.Longitude,
		string(c.PriorStatus), c.ReportedAt,
	)
	if err != nil {
		return upstream(err, "insert conflict")
	}
	return nil
}

// GetOpenConflict - returns the open conflict of a delivery, if any.
func (r *TxRepo) GetOpenConflict(ctx context.Context, deliveryID string) (*domain.Conflict, error) {
	c, err := scanConflict(r.tx.QueryRow(ctx, `
        SELECT `+conflictColumns+`
        FROM delivery_conflicts
        WHERE delivery_id = $1 AND closed_at IS NULL
    `, deliveryID))
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, upstream(err, "get open conflict for %q", deliveryID)
	}
	return c, nil
}

// CloseConflict - marks a conflict resolved.
func (r *TxRepo) CloseConflict(ctx context.Context, conflictID string) error {
	ct, err := r.tx.Exec(ctx, `
        UPDATE delivery_conflicts
        SET closed_at = now()
        WHERE id = $1 AND closed_at IS NULL
    `, conflictID)
	if err != nil {
		return upstream(err, "close conflict %q", conflictID)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("conflict %q not open", conflictID)
	}
	return nil
}
