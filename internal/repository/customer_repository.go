package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quilldesk/helpdesk/internal/domain"
)

// CustomerRepository encapsulates customer persistence.
type CustomerRepository interface {
	GetByName(ctx context.Context, name string) (*domain.Customer, error)
	FindByEmail(ctx context.Context, email string) (*domain.Customer, error)
	FindByPhone(ctx context.Context, phone string) (*domain.Customer, error)
	List(ctx context.Context, limit, offset int) ([]domain.Customer, error)
	Create(ctx context.Context, customer *domain.Customer) error
	Update(ctx context.Context, customer *domain.Customer) error
	Delete(ctx context.Context, name string) error
}

// HandleRepository maps (channel, handle) contact pairs to customers.
type HandleRepository interface {
	FindByChannelHandle(ctx context.Context, channel, handle string) (*domain.CustomerHandle, error)
	ListByCustomer(ctx context.Context, customer string) ([]domain.CustomerHandle, error)
	Add(ctx context.Context, customer, channel, handle string) (*domain.CustomerHandle, error)
	Remove(ctx context.Context, id int64) error
}

type customerRepository struct {
	pool *pgxpool.Pool
}

// NewCustomerRepository instantiates repository.
func NewCustomerRepository(pool *pgxpool.Pool) CustomerRepository {
	return &customerRepository{pool: pool}
}

const customerColumns = `name, full_name, email, phone, organization, created_at, updated_at`

func (r *customerRepository) GetByName(ctx context.Context, name string) (*domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE name=$1`
	return scanCustomer(r.pool.QueryRow(ctx, query, name))
}

func (r *customerRepository) FindByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE email=$1 LIMIT 1`
	return scanCustomer(r.pool.QueryRow(ctx, query, email))
}

func (r *customerRepository) FindByPhone(ctx context.Context, phone string) (*domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE phone=$1 LIMIT 1`
	return scanCustomer(r.pool.QueryRow(ctx, query, phone))
}

func (r *customerRepository) List(ctx context.Context, limit, offset int) ([]domain.Customer, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + customerColumns + ` FROM customers ORDER BY name LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Customer
	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *customer)
	}
	return result, rows.Err()
}

func (r *customerRepository) Create(ctx context.Context, customer *domain.Customer) error {
	const query = `
        INSERT INTO customers (name, full_name, email, phone, organization)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		customer.Name, customer.FullName, customer.Email, customer.Phone, customer.Organization,
	).Scan(&customer.CreatedAt, &customer.UpdatedAt)
}

func (r *customerRepository) Update(ctx context.Context, customer *domain.Customer) error {
	const query = `
        UPDATE customers SET full_name=$2, email=$3, phone=$4, organization=$5, updated_at=NOW()
        WHERE name=$1`
	cmd, err := r.pool.Exec(ctx, query,
		customer.Name, customer.FullName, customer.Email, customer.Phone, customer.Organization,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *customerRepository) Delete(ctx context.Context, name string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM customers WHERE name=$1`, name)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanCustomer(row pgx.Row) (*domain.Customer, error) {
	var customer domain.Customer
	if err := row.Scan(
		&customer.Name, &customer.FullName, &customer.Email, &customer.Phone,
		&customer.Organization, &customer.CreatedAt, &customer.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &customer, nil
}

type handleRepository struct {
	pool *pgxpool.Pool
}

// NewHandleRepository instantiates repository.
func NewHandleRepository(pool *pgxpool.Pool) HandleRepository {
	return &handleRepository{pool: pool}
}

func (r *handleRepository) FindByChannelHandle(ctx context.Context, channel, handle string) (*domain.CustomerHandle, error) {
	const query = `
        SELECT id, customer, channel, handle, created_at FROM customer_handles
        WHERE channel=$1 AND handle=$2 LIMIT 1`
	var h domain.CustomerHandle
	if err := r.pool.QueryRow(ctx, query, channel, handle).Scan(
		&h.ID, &h.Customer, &h.Channel, &h.Handle, &h.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *handleRepository) ListByCustomer(ctx context.Context, customer string) ([]domain.CustomerHandle, error) {
	const query = `
        SELECT id, customer, channel, handle, created_at FROM customer_handles
        WHERE customer=$1 ORDER BY id`
	rows, err := r.pool.Query(ctx, query, customer)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.CustomerHandle
	for rows.Next() {
		var h domain.CustomerHandle
		if err := rows.Scan(&h.ID, &h.Customer, &h.Channel, &h.Handle, &h.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, h)
	}
	return result, rows.Err()
}

func (r *handleRepository) Add(ctx context.Context, customer, channel, handle string) (*domain.CustomerHandle, error) {
	const query = `
        INSERT INTO customer_handles (customer, channel, handle) VALUES ($1,$2,$3)
        RETURNING id, created_at`
	h := &domain.CustomerHandle{Customer: customer, Channel: channel, Handle: handle}
	if err := r.pool.QueryRow(ctx, query, customer, channel, handle).Scan(&h.ID, &h.CreatedAt); err != nil {
		return nil, err
	}
	return h, nil
}

func (r *handleRepository) Remove(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM customer_handles WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
