package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/aradsms/telco_churn_prep/internal/churn_prep/domain"
)

// Querier is the subset of pgxpool.Pool (and pgx.Tx) the repository needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// fetchCustomersQuery lists columns explicitly so the scan order cannot drift from the table.
const fetchCustomersQuery = `SELECT customer_id, gender, senior_citizen, partner, dependents, tenure,
	phone_service, multiple_lines, internet_service_type_id, online_security, online_backup,
	device_protection, tech_support, streaming_tv, streaming_movies, contract_type_id,
	paperless_billing, payment_type_id, monthly_charges, total_charges, churn
	FROM customers`

type PgCustomerRepository struct {
	db     Querier
	logger *slog.Logger
}

func NewPgCustomerRepository(db Querier, logger *slog.Logger) domain.CustomerSource {
	return &PgCustomerRepository{db: db, logger: logger.With("component", "customer_repository_pg")}
}

// FetchCustomers returns every row of the customers table.
func (r *PgCustomerRepository) FetchCustomers(ctx context.Context) ([]domain.Customer, error) {
	r.logger.DebugContext(ctx, "Fetching customers", "query", fetchCustomersQuery)
	rows, err := r.db.Query(ctx, fetchCustomersQuery)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error querying customers", "error", err)
		return nil, fmt.Errorf("querying customers: %w: %w", domain.ErrConnection, err)
	}
	defer rows.Close()

	var customers []domain.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			r.logger.ErrorContext(ctx, "Error scanning customer row", "error", err)
			return nil, fmt.Errorf("scanning customers row: %w: %w", domain.ErrFormat, err)
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error after iterating customer rows", "error", err)
		return nil, fmt.Errorf("iterating customers: %w: %w", domain.ErrConnection, err)
	}

	r.logger.InfoContext(ctx, "Fetched customers", "count", len(customers))
	return customers, nil
}

// scanCustomer scans one row in fetchCustomersQuery column order.
// total_charges and churn are nullable; NULL becomes "".
func scanCustomer(row pgx.Row) (domain.Customer, error) {
	var (
		c            domain.Customer
		totalCharges sql.NullString
		churn        sql.NullString
	)
	err := row.Scan(
		&c.CustomerID,
		&c.Gender,
		&c.SeniorCitizen,
		&c.Partner,
		&c.Dependents,
		&c.Tenure,
		&c.PhoneService,
		&c.MultipleLines,
		&c.InternetServiceTypeID,
		&c.OnlineSecurity,
		&c.OnlineBackup,
		&c.DeviceProtection,
		&c.TechSupport,
		&c.StreamingTV,
		&c.StreamingMovies,
		&c.ContractTypeID,
		&c.PaperlessBilling,
		&c.PaymentTypeID,
		&c.MonthlyCharges,
		&totalCharges,
		&churn,
	)
	if err != nil {
		return domain.Customer{}, err
	}
	c.TotalCharges = nullableText(totalCharges)
	c.Churn = nullableText(churn)
	return c, nil
}

func nullableText(s sql.NullString) string {
	if !s.Valid {
		return ""
	}
	return s.String
}
