package domain // churn_prep/domain

import "context"

// Category values used by the text attributes of the customers table.
const (
	ValueYes               = "Yes"
	ValueNo                = "No"
	ValueFemale            = "Female"
	ValueMale              = "Male"
	ValueNoPhoneService    = "No phone service"
	ValueNoInternetService = "No internet service"
)

// Internet service type ids.
const (
	InternetDSL        = 1
	InternetFiberOptic = 2
	InternetNone       = 3
)

// Payment type ids.
const (
	PaymentElectronicCheck = 1
	PaymentMailedCheck     = 2
	PaymentBankTransfer    = 3
	PaymentCreditCard      = 4
)

// Contract type ids.
const (
	ContractMonthToMonth = 1
	ContractOneYear      = 2
	ContractTwoYear      = 3
)

// Customer is one row of the customers table, exactly as the source returns it.
// TotalCharges stays text here; the transformer coerces it.
type Customer struct {
	CustomerID            string
	Gender                string
	SeniorCitizen         int
	Partner               string
	Dependents            string
	Tenure                int
	PhoneService          string
	MultipleLines         string
	InternetServiceTypeID int
	OnlineSecurity        string
	OnlineBackup          string
	DeviceProtection      string
	TechSupport           string
	StreamingTV           string
	StreamingMovies       string
	ContractTypeID        int
	PaperlessBilling      string
	PaymentTypeID         int
	MonthlyCharges        float64
	TotalCharges          string
	Churn                 string // empty for unscored prediction rows
}

// CustomerColumns is the source schema in table order. The cache file uses
// the same order after its leading row-index column.
var CustomerColumns = []string{
	"customer_id",
	"gender",
	"senior_citizen",
	"partner",
	"dependents",
	"tenure",
	"phone_service",
	"multiple_lines",
	"internet_service_type_id",
	"online_security",
	"online_backup",
	"device_protection",
	"tech_support",
	"streaming_tv",
	"streaming_movies",
	"contract_type_id",
	"paperless_billing",
	"payment_type_id",
	"monthly_charges",
	"total_charges",
	"churn",
}

// CustomerSource fetches every row of the external customers table.
type CustomerSource interface {
	FetchCustomers(ctx context.Context) ([]Customer, error)
}

// CustomerCache is the local last-write-wins snapshot of the customers table.
type CustomerCache interface {
	Exists() (bool, error)
	Read(ctx context.Context) ([]Customer, error)
	Write(ctx context.Context, customers []Customer) error
	Path() string
}
