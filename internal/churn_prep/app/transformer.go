package app

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/aradsms/telco_churn_prep/internal/churn_prep/domain"
)

// Category mappings for the _encoded twins. A value missing from its map
// encodes as nil and is counted in the TransformReport.
var (
	genderMapping = map[string]int{domain.ValueFemale: 1, domain.ValueMale: 0}
	yesNoMapping  = map[string]int{domain.ValueYes: 1, domain.ValueNo: 0}

	phoneMapping = map[string]int{
		domain.ValueYes: 1, domain.ValueNo: 0, domain.ValueNoPhoneService: 0,
	}
	internetAddOnMapping = map[string]int{
		domain.ValueYes: 1, domain.ValueNo: 0, domain.ValueNoInternetService: 0,
	}
	phoneLinesMapping = map[string]int{
		domain.ValueYes: 2, domain.ValueNo: 1, domain.ValueNoPhoneService: 0,
	}
)

// Transformer turns raw customers into the model-ready feature table.
type Transformer struct {
	logger *slog.Logger
}

func NewTransformer(logger *slog.Logger) *Transformer {
	return &Transformer{logger: logger.With("service_component", "Transformer")}
}

// Transform drops zero-tenure rows and appends every derived column to the rest.
// The input slice is never modified. A total_charges value that is not numeric
// fails the whole call with domain.ErrFormat.
func (t *Transformer) Transform(ctx context.Context, customers []domain.Customer) ([]domain.PreparedCustomer, domain.TransformReport, error) {
	report := domain.TransformReport{
		InputRows: len(customers),
		Unmapped:  map[string]int{},
	}

	out := make([]domain.PreparedCustomer, 0, len(customers))
	for i := range customers {
		c := &customers[i]
		if c.Tenure == 0 {
			report.DroppedZeroTenure++
			continue
		}

		totalCharges, err := strconv.ParseFloat(strings.TrimSpace(c.TotalCharges), 64)
		if err != nil {
			t.logger.ErrorContext(ctx, "Non-numeric total_charges", "customer_id", c.CustomerID, "value", c.TotalCharges)
			return nil, domain.TransformReport{}, fmt.Errorf("customer %s: total_charges %q: %w", c.CustomerID, c.TotalCharges, domain.ErrFormat)
		}

		out = append(out, prepare(c, totalCharges, report.Unmapped))
	}
	report.OutputRows = len(out)

	if len(report.Unmapped) > 0 {
		t.logger.WarnContext(ctx, "Categorical values outside the known set were encoded as missing", "unmapped", report.Unmapped)
	}
	t.logger.DebugContext(ctx, "Transformed customers",
		"input_rows", report.InputRows,
		"dropped_zero_tenure", report.DroppedZeroTenure,
		"output_rows", report.OutputRows,
	)
	return out, report, nil
}

// prepare builds one output row. Every derived value depends only on c.
func prepare(c *domain.Customer, totalCharges float64, unmapped map[string]int) domain.PreparedCustomer {
	enc := func(column, value string, mapping map[string]int) *int {
		if v, ok := mapping[value]; ok {
			return &v
		}
		unmapped[column]++
		return nil
	}

	p := domain.PreparedCustomer{
		CustomerID:            c.CustomerID,
		Gender:                c.Gender,
		SeniorCitizen:         c.SeniorCitizen,
		Partner:               c.Partner,
		Dependents:            c.Dependents,
		Tenure:                c.Tenure,
		PhoneService:          c.PhoneService,
		MultipleLines:         c.MultipleLines,
		InternetServiceTypeID: c.InternetServiceTypeID,
		OnlineSecurity:        c.OnlineSecurity,
		OnlineBackup:          c.OnlineBackup,
		DeviceProtection:      c.DeviceProtection,
		TechSupport:           c.TechSupport,
		StreamingTV:           c.StreamingTV,
		StreamingMovies:       c.StreamingMovies,
		ContractTypeID:        c.ContractTypeID,
		PaperlessBilling:      c.PaperlessBilling,
		PaymentTypeID:         c.PaymentTypeID,
		MonthlyCharges:        c.MonthlyCharges,
		TotalCharges:          totalCharges,
		Churn:                 c.Churn,
	}

	p.GenderEncoded = enc("gender", c.Gender, genderMapping)
	p.PartnerEncoded = enc("partner", c.Partner, yesNoMapping)
	p.DependentsEncoded = enc("dependents", c.Dependents, yesNoMapping)
	p.PhoneServiceEncoded = enc("phone_service", c.PhoneService, yesNoMapping)
	p.MultipleLinesEncoded = enc("multiple_lines", c.MultipleLines, phoneMapping)
	p.OnlineSecurityEncoded = enc("online_security", c.OnlineSecurity, internetAddOnMapping)
	p.OnlineBackupEncoded = enc("online_backup", c.OnlineBackup, internetAddOnMapping)
	p.DeviceProtectionEncoded = enc("device_protection", c.DeviceProtection, internetAddOnMapping)
	p.TechSupportEncoded = enc("tech_support", c.TechSupport, internetAddOnMapping)
	p.StreamingTVEncoded = enc("streaming_tv", c.StreamingTV, internetAddOnMapping)
	p.StreamingMoviesEncoded = enc("streaming_movies", c.StreamingMovies, internetAddOnMapping)
	p.PaperlessBillingEncoded = enc("paperless_billing", c.PaperlessBilling, yesNoMapping)
	if c.Churn != "" { // unscored prediction rows carry no label
		p.ChurnEncoded = enc("churn", c.Churn, yesNoMapping)
	}

	// Derived counts read the encoded twins, so an unmapped input stays missing.
	if v, ok := phoneLinesMapping[c.MultipleLines]; ok {
		p.NumberPhoneLines = &v
	}
	p.NumberRelationships = sumEncoded(p.DependentsEncoded, p.PartnerEncoded)
	p.NumberStreamingServices = sumEncoded(p.StreamingTVEncoded, p.StreamingMoviesEncoded)
	p.NumberOnlineServices = sumEncoded(p.OnlineSecurityEncoded, p.OnlineBackupEncoded)
	p.YearlyTenure = floorDiv(c.Tenure, 12)

	// Internet type: "None" has no indicator of its own, it is the all-zero row.
	switch c.InternetServiceTypeID {
	case domain.InternetDSL:
		p.DSLEncoded = 1
	case domain.InternetFiberOptic:
		p.FiberOpticEncoded = 1
	case domain.InternetNone:
	default:
		unmapped["internet_service_type_id"]++
	}
	if c.InternetServiceTypeID != domain.InternetNone {
		p.HasInternet = 1
	}

	switch c.PaymentTypeID {
	case domain.PaymentElectronicCheck:
		p.ElectronicCheckEncoded = 1
	case domain.PaymentMailedCheck:
		p.MailedCheckEncoded = 1
	case domain.PaymentBankTransfer:
		p.BankTransferEncoded = 1
	case domain.PaymentCreditCard:
		p.CreditCardEncoded = 1
	default:
		unmapped["payment_type_id"]++
	}

	switch c.ContractTypeID {
	case domain.ContractMonthToMonth:
		p.MonthToMonthEncoded = 1
	case domain.ContractOneYear:
		p.OneYearContractEncoded = 1
	case domain.ContractTwoYear:
		p.TwoYearContractEncoded = 1
	default:
		unmapped["contract_type_id"]++
	}

	return p
}

func sumEncoded(a, b *int) *int {
	if a == nil || b == nil {
		return nil
	}
	s := *a + *b
	return &s
}

// floorDiv rounds toward negative infinity, unlike Go's integer division.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
