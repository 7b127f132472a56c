package domain

import "strconv"

// PreparedCustomer is a Customer augmented with the model-ready feature columns.
// Encoded twins and the counts derived from them are nil when an input value
// falls outside the known category set. Indicator columns are always 0 or 1.
type PreparedCustomer struct {
	CustomerID            string  `parquet:"customer_id"`
	Gender                string  `parquet:"gender"`
	SeniorCitizen         int     `parquet:"senior_citizen"`
	Partner               string  `parquet:"partner"`
	Dependents            string  `parquet:"dependents"`
	Tenure                int     `parquet:"tenure"`
	PhoneService          string  `parquet:"phone_service"`
	MultipleLines         string  `parquet:"multiple_lines"`
	InternetServiceTypeID int     `parquet:"internet_service_type_id"`
	OnlineSecurity        string  `parquet:"online_security"`
	OnlineBackup          string  `parquet:"online_backup"`
	DeviceProtection      string  `parquet:"device_protection"`
	TechSupport           string  `parquet:"tech_support"`
	StreamingTV           string  `parquet:"streaming_tv"`
	StreamingMovies       string  `parquet:"streaming_movies"`
	ContractTypeID        int     `parquet:"contract_type_id"`
	PaperlessBilling      string  `parquet:"paperless_billing"`
	PaymentTypeID         int     `parquet:"payment_type_id"`
	MonthlyCharges        float64 `parquet:"monthly_charges"`
	TotalCharges          float64 `parquet:"total_charges"`
	Churn                 string  `parquet:"churn"`

	GenderEncoded           *int `parquet:"gender_encoded,optional"`
	PartnerEncoded          *int `parquet:"partner_encoded,optional"`
	DependentsEncoded       *int `parquet:"dependents_encoded,optional"`
	PhoneServiceEncoded     *int `parquet:"phone_service_encoded,optional"`
	MultipleLinesEncoded    *int `parquet:"multiple_lines_encoded,optional"`
	OnlineSecurityEncoded   *int `parquet:"online_security_encoded,optional"`
	OnlineBackupEncoded     *int `parquet:"online_backup_encoded,optional"`
	DeviceProtectionEncoded *int `parquet:"device_protection_encoded,optional"`
	TechSupportEncoded      *int `parquet:"tech_support_encoded,optional"`
	StreamingTVEncoded      *int `parquet:"streaming_tv_encoded,optional"`
	StreamingMoviesEncoded  *int `parquet:"streaming_movies_encoded,optional"`
	PaperlessBillingEncoded *int `parquet:"paperless_billing_encoded,optional"`
	ChurnEncoded            *int `parquet:"churn_encoded,optional"`

	NumberPhoneLines        *int `parquet:"number_phone_lines,optional"`
	NumberRelationships     *int `parquet:"number_relationships,optional"`
	NumberStreamingServices *int `parquet:"number_streaming_services,optional"`
	NumberOnlineServices    *int `parquet:"number_online_services,optional"`
	YearlyTenure            int  `parquet:"yearly_tenure"`

	DSLEncoded        int `parquet:"dsl_encoded"`
	FiberOpticEncoded int `parquet:"fiber_optic_encoded"`
	HasInternet       int `parquet:"has_internet"`

	ElectronicCheckEncoded int `parquet:"electronic_check_encoded"`
	MailedCheckEncoded     int `parquet:"mailed_check_encoded"`
	BankTransferEncoded    int `parquet:"bank_transfer_encoded"`
	CreditCardEncoded      int `parquet:"credit_card_encoded"`

	MonthToMonthEncoded    int `parquet:"month_to_month_encoded"`
	OneYearContractEncoded int `parquet:"one_year_contract_encoded"`
	TwoYearContractEncoded int `parquet:"two_year_contract_encoded"`
}

// FeatureColumns is the output schema: the source columns followed by every
// derived column. It does not depend on which categories a batch contains.
var FeatureColumns = append(append([]string(nil), CustomerColumns...),
	"gender_encoded",
	"partner_encoded",
	"dependents_encoded",
	"phone_service_encoded",
	"multiple_lines_encoded",
	"online_security_encoded",
	"online_backup_encoded",
	"device_protection_encoded",
	"tech_support_encoded",
	"streaming_tv_encoded",
	"streaming_movies_encoded",
	"paperless_billing_encoded",
	"churn_encoded",
	"number_phone_lines",
	"number_relationships",
	"number_streaming_services",
	"number_online_services",
	"yearly_tenure",
	"dsl_encoded",
	"fiber_optic_encoded",
	"has_internet",
	"electronic_check_encoded",
	"mailed_check_encoded",
	"bank_transfer_encoded",
	"credit_card_encoded",
	"month_to_month_encoded",
	"one_year_contract_encoded",
	"two_year_contract_encoded",
)

// Record renders the row in FeatureColumns order. Missing values become empty fields.
func (p *PreparedCustomer) Record() []string {
	return []string{
		p.CustomerID,
		p.Gender,
		strconv.Itoa(p.SeniorCitizen),
		p.Partner,
		p.Dependents,
		strconv.Itoa(p.Tenure),
		p.PhoneService,
		p.MultipleLines,
		strconv.Itoa(p.InternetServiceTypeID),
		p.OnlineSecurity,
		p.OnlineBackup,
		p.DeviceProtection,
		p.TechSupport,
		p.StreamingTV,
		p.StreamingMovies,
		strconv.Itoa(p.ContractTypeID),
		p.PaperlessBilling,
		strconv.Itoa(p.PaymentTypeID),
		FormatFloat(p.MonthlyCharges),
		FormatFloat(p.TotalCharges),
		p.Churn,
		intPtrToString(p.GenderEncoded),
		intPtrToString(p.PartnerEncoded),
		intPtrToString(p.DependentsEncoded),
		intPtrToString(p.PhoneServiceEncoded),
		intPtrToString(p.MultipleLinesEncoded),
		intPtrToString(p.OnlineSecurityEncoded),
		intPtrToString(p.OnlineBackupEncoded),
		intPtrToString(p.DeviceProtectionEncoded),
		intPtrToString(p.TechSupportEncoded),
		intPtrToString(p.StreamingTVEncoded),
		intPtrToString(p.StreamingMoviesEncoded),
		intPtrToString(p.PaperlessBillingEncoded),
		intPtrToString(p.ChurnEncoded),
		intPtrToString(p.NumberPhoneLines),
		intPtrToString(p.NumberRelationships),
		intPtrToString(p.NumberStreamingServices),
		intPtrToString(p.NumberOnlineServices),
		strconv.Itoa(p.YearlyTenure),
		strconv.Itoa(p.DSLEncoded),
		strconv.Itoa(p.FiberOpticEncoded),
		strconv.Itoa(p.HasInternet),
		strconv.Itoa(p.ElectronicCheckEncoded),
		strconv.Itoa(p.MailedCheckEncoded),
		strconv.Itoa(p.BankTransferEncoded),
		strconv.Itoa(p.CreditCardEncoded),
		strconv.Itoa(p.MonthToMonthEncoded),
		strconv.Itoa(p.OneYearContractEncoded),
		strconv.Itoa(p.TwoYearContractEncoded),
	}
}

// FormatFloat writes a float the shortest way that parses back to the same value.
func FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func intPtrToString(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
