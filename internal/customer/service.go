package customer

import (
	"context"
	"errors"
	"strings"

	"go-pos-ledger/internal/apperr"
	"go-pos-ledger/internal/audit"
	"go-pos-ledger/internal/currency"
	"go-pos-ledger/internal/models"

	"github.com/ttacon/libphonenumber"
	"gorm.io/gorm"
)

type Service struct {
	db     *gorm.DB
	trail  *audit.Trail
	region string
}

// NewService builds the customer service. Phone numbers without a
// country prefix are read as belonging to region.
func NewService(db *gorm.DB, trail *audit.Trail, region string) *Service {
	return &Service{db: db, trail: trail, region: region}
}

type Input struct {
	Name     string `json:"name" validate:"required,max=200"`
	Phone    string `json:"phone" validate:"max=30"`
	IsActive *bool  `json:"is_active"`
}

type ListFilter struct {
	Search   string
	WithDebt bool
}

// Statement is a customer's full account history.
type Statement struct {
	Customer    models.Customer         `json:"customer"`
	Sales       []models.Sale           `json:"sales"`
	Outstanding []models.Sale           `json:"outstanding"`
	Payments    []models.DebtPayment    `json:"payments"`
	Corrections []models.DebtCorrection `json:"corrections"`
}

// NormalizePhone validates a number and returns it in E.164 form.
// An empty number is allowed.
func NormalizePhone(phone, region string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", nil
	}
	p, err := libphonenumber.Parse(phone, region)
	if err != nil {
		return "", apperr.Invalid("invalid phone number %q", phone)
	}
	if !libphonenumber.IsValidNumber(p) {
		return "", apperr.Invalid("invalid phone number %q", phone)
	}
	return libphonenumber.Format(p, libphonenumber.E164), nil
}

func (s *Service) Create(ctx context.Context, in Input) (*models.Customer, error) {
	if err := apperr.Validate(in); err != nil {
		return nil, err
	}
	phone, err := NormalizePhone(in.Phone, s.region)
	if err != nil {
		return nil, err
	}

	c := &models.Customer{Name: strings.TrimSpace(in.Name), Phone: phone, IsActive: true}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(c).Error; err != nil {
			return err
		}
		s.trail.Record(ctx, tx, audit.Entry{
			Action:     models.AuditCustomerCreated,
			ObjectType: "Customer",
			ObjectID:   c.ID,
			Details:    map[string]string{"name": c.Name, "phone": c.Phone},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Update changes name, phone and active flag. Balances are untouched.
func (s *Service) Update(ctx context.Context, id uint, in Input) (*models.Customer, error) {
	if err := apperr.Validate(in); err != nil {
		return nil, err
	}
	phone, err := NormalizePhone(in.Phone, s.region)
	if err != nil {
		return nil, err
	}

	var c *models.Customer
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var lerr error
		c, lerr = Lock(tx, id)
		if lerr != nil {
			return lerr
		}
		updates := map[string]any{"name": strings.TrimSpace(in.Name), "phone": phone}
		if in.IsActive != nil {
			updates["is_active"] = *in.IsActive
		}
		if err := tx.Model(c).Updates(updates).Error; err != nil {
			return err
		}
		s.trail.Record(ctx, tx, audit.Entry{
			Action:     models.AuditCustomerUpdated,
			ObjectType: "Customer",
			ObjectID:   c.ID,
			Details:    updates,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) Get(ctx context.Context, id uint) (*models.Customer, error) {
	var c models.Customer
	err := s.db.WithContext(ctx).First(&c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Wrap(apperr.ErrNotFound, "customer %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]models.Customer, error) {
	q := s.db.WithContext(ctx).Model(&models.Customer{})
	if term := strings.TrimSpace(f.Search); term != "" {
		like := "%" + term + "%"
		q = q.Where("name LIKE ? OR phone LIKE ?", like, like)
	}
	if f.WithDebt {
		q = q.Where("total_debt_usd > 0 OR total_debt_sos > 0 OR total_debt_etb > 0")
	}
	var out []models.Customer
	if err := q.Order("name").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Statement loads every sale, payment and correction of a customer,
// newest first, plus the sales still carrying debt (oldest first).
func (s *Service) Statement(ctx context.Context, id uint) (*Statement, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	st := &Statement{Customer: *c}

	if err := db.Preload("Items.Product").Where("customer_id = ?", id).
		Order("created_at DESC, id DESC").Find(&st.Sales).Error; err != nil {
		return nil, err
	}
	for _, sale := range st.Sales {
		if sale.DebtAmount.IsPositive() {
			st.Outstanding = append(st.Outstanding, sale)
		}
	}
	// reverse into FIFO order
	for i, j := 0, len(st.Outstanding)-1; i < j; i, j = i+1, j-1 {
		st.Outstanding[i], st.Outstanding[j] = st.Outstanding[j], st.Outstanding[i]
	}

	if err := db.Where("customer_id = ?", id).Order("created_at DESC, id DESC").
		Find(&st.Payments).Error; err != nil {
		return nil, err
	}
	if err := db.Where("customer_id = ?", id).Order("created_at DESC, id DESC").
		Find(&st.Corrections).Error; err != nil {
		return nil, err
	}
	return st, nil
}

// DebtTotals returns a customer's three balances keyed by currency.
func DebtTotals(c *models.Customer) map[currency.Code]string {
	out := make(map[currency.Code]string, len(currency.Codes))
	for _, code := range currency.Codes {
		out[code] = c.DebtIn(code).StringFixed(2)
	}
	return out
}
