package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aradsms/telco_churn_prep/internal/churn_prep/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func intPtr(v int) *int { return &v }

// dslCustomer is a fully-populated, in-vocabulary customer.
func dslCustomer(id string) domain.Customer {
	return domain.Customer{
		CustomerID:            id,
		Gender:                "Female",
		Partner:               "Yes",
		Dependents:            "No",
		Tenure:                25,
		PhoneService:          "Yes",
		MultipleLines:         "Yes",
		InternetServiceTypeID: domain.InternetDSL,
		OnlineSecurity:        "Yes",
		OnlineBackup:          "No",
		DeviceProtection:      "Yes",
		TechSupport:           "No",
		StreamingTV:           "Yes",
		StreamingMovies:       "Yes",
		ContractTypeID:        domain.ContractOneYear,
		PaperlessBilling:      "Yes",
		PaymentTypeID:         domain.PaymentCreditCard,
		MonthlyCharges:        70.35,
		TotalCharges:          "1758.75",
		Churn:                 "No",
	}
}

// noInternetCustomer has no internet service and no phone service.
func noInternetCustomer(id string) domain.Customer {
	return domain.Customer{
		CustomerID:            id,
		Gender:                "Male",
		SeniorCitizen:         1,
		Partner:               "No",
		Dependents:            "No",
		Tenure:                11,
		PhoneService:          "No",
		MultipleLines:         "No phone service",
		InternetServiceTypeID: domain.InternetNone,
		OnlineSecurity:        "No internet service",
		OnlineBackup:          "No internet service",
		DeviceProtection:      "No internet service",
		TechSupport:           "No internet service",
		StreamingTV:           "No internet service",
		StreamingMovies:       "No internet service",
		ContractTypeID:        domain.ContractMonthToMonth,
		PaperlessBilling:      "No",
		PaymentTypeID:         domain.PaymentMailedCheck,
		MonthlyCharges:        19.95,
		TotalCharges:          " 219.45",
		Churn:                 "Yes",
	}
}

// churnPopulation builds n customers with the given number of churners,
// cycling through internet, payment and contract types.
func churnPopulation(n, churners int) []domain.Customer {
	customers := make([]domain.Customer, n)
	for i := range customers {
		c := dslCustomer(fmt.Sprintf("%04d-POP", i))
		c.Tenure = 1 + i%72
		c.InternetServiceTypeID = 1 + i%3
		c.PaymentTypeID = 1 + i%4
		c.ContractTypeID = 1 + i%3
		c.TotalCharges = fmt.Sprintf("%d.5", 20*c.Tenure)
		if i < churners {
			c.Churn = "Yes"
		}
		customers[i] = c
	}
	return customers
}

// preparedPopulation runs churnPopulation through the transformer.
func preparedPopulation(t *testing.T, n, churners int) []domain.PreparedCustomer {
	t.Helper()
	rows, _, err := NewTransformer(discardLogger()).Transform(context.Background(), churnPopulation(n, churners))
	require.NoError(t, err)
	return rows
}
