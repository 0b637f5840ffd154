// Package billing derives the financial fields of orders and invoices from
// their line items, adjustments and payments. Every function is pure.
package billing

import (
	"fmt"
	"time"

	"github.com/diaglab/labdesk-api/internal/domain/enum"
	"github.com/diaglab/labdesk-api/pkg/apperror"
	"github.com/shopspring/decimal"
)

// DefaultDueDays is the payment term applied when an invoice has no due date.
const DefaultDueDays = 30

var hundred = decimal.NewFromInt(100)

// LineItem is one billable test or package.
type LineItem struct {
	Kind      enum.LineItemKind
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
}

// Amount is UnitPrice × Quantity.
func (l LineItem) Amount() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Input carries everything the calculator looks at. A zero ExplicitDiscount or
// ExplicitTax means "derive from the percentage"; a zero DueDate means
// IssueDate plus DueDays (DefaultDueDays when DueDays is not positive).
type Input struct {
	LineItems          []LineItem
	DiscountPercentage decimal.Decimal
	TaxPercentage      decimal.Decimal
	ExplicitDiscount   decimal.Decimal
	ExplicitTax        decimal.Decimal
	AmountPaid         decimal.Decimal
	IssueDate          time.Time
	DueDate            time.Time
	DueDays            int
	Now                time.Time
}

// Result holds the derived fields, all rounded to two decimals.
type Result struct {
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxAmount      decimal.Decimal
	TotalAmount    decimal.Decimal
	BalanceAmount  decimal.Decimal
	PaymentStatus  enum.PaymentStatus
	DueDate        time.Time
}

// Round2 rounds half away from zero to cents.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Validate reports every problem with in as field errors.
func Validate(in Input) error {
	var errs []apperror.FieldError
	add := func(field, msg string) {
		errs = append(errs, apperror.FieldError{Field: field, Message: msg})
	}

	for i, item := range in.LineItems {
		prefix := fmt.Sprintf("line_items[%d].", i)
		if item.Name == "" {
			add(prefix+"name", "is required")
		}
		if !item.Kind.Valid() {
			add(prefix+"kind", "must be test or package")
		}
		if item.Quantity <= 0 {
			add(prefix+"quantity", "must be at least 1")
		}
		if item.UnitPrice.IsNegative() {
			add(prefix+"unit_price", "must not be negative")
		}
	}
	if !inPercentRange(in.DiscountPercentage) {
		add("discount_percentage", "must be between 0 and 100")
	}
	if !inPercentRange(in.TaxPercentage) {
		add("tax_percentage", "must be between 0 and 100")
	}
	if in.ExplicitDiscount.IsNegative() {
		add("discount_amount", "must not be negative")
	}
	if in.ExplicitTax.IsNegative() {
		add("tax_amount", "must not be negative")
	}
	if in.AmountPaid.IsNegative() {
		add("amount_paid", "must not be negative")
	}

	if len(errs) > 0 {
		return apperror.NewValidationError(errs)
	}
	return nil
}

func inPercentRange(p decimal.Decimal) bool {
	return !p.IsNegative() && p.LessThanOrEqual(hundred)
}

// Subtotal sums UnitPrice × Quantity over items.
func Subtotal(items []LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.Amount())
	}
	return Round2(sum)
}

// ResolveDueDate applies the default payment term when due is zero.
func ResolveDueDate(issue, due time.Time, days int) time.Time {
	if !due.IsZero() {
		return due
	}
	if days <= 0 {
		days = DefaultDueDays
	}
	return issue.AddDate(0, 0, days)
}

// Status classifies an invoice. Paid wins over overdue; overdue only applies
// while nothing has been paid.
func Status(total, paid decimal.Decimal, due, now time.Time) enum.PaymentStatus {
	switch {
	case paid.GreaterThanOrEqual(total):
		return enum.PaymentStatusPaid
	case paid.IsZero() && !due.IsZero() && now.After(due):
		return enum.PaymentStatusOverdue
	case paid.IsPositive():
		return enum.PaymentStatusPartial
	default:
		return enum.PaymentStatusPending
	}
}

// OrderStatus is the three-valued status used on orders, which have no due date.
func OrderStatus(total, paid decimal.Decimal) enum.PaymentStatus {
	return Status(total, paid, time.Time{}, time.Time{})
}

// Balance is max(0, total − paid).
func Balance(total, paid decimal.Decimal) decimal.Decimal {
	b := total.Sub(paid)
	if b.IsNegative() {
		return decimal.Zero
	}
	return Round2(b)
}

// Recompute fully re-derives every financial field from in. It never patches a
// previous result, so calling it twice with the same input gives the same output.
func Recompute(in Input) (Result, error) {
	if err := Validate(in); err != nil {
		return Result{}, err
	}

	subtotal := Subtotal(in.LineItems)

	discount := Round2(in.ExplicitDiscount)
	if discount.IsZero() {
		discount = Round2(subtotal.Mul(in.DiscountPercentage).Div(hundred))
	}

	tax := Round2(in.ExplicitTax)
	if tax.IsZero() {
		tax = Round2(subtotal.Sub(discount).Mul(in.TaxPercentage).Div(hundred))
	}

	total := subtotal.Sub(discount).Add(tax)
	if total.IsNegative() {
		return Result{}, apperror.NewFieldError("discount_amount", "must not exceed the subtotal")
	}

	paid := Round2(in.AmountPaid)
	due := ResolveDueDate(in.IssueDate, in.DueDate, in.DueDays)

	return Result{
		Subtotal:       subtotal,
		DiscountAmount: discount,
		TaxAmount:      tax,
		TotalAmount:    total,
		BalanceAmount:  Balance(total, paid),
		PaymentStatus:  Status(total, paid, due, in.Now),
		DueDate:        due,
	}, nil
}
