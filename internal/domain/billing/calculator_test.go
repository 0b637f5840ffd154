package billing

import (
	"testing"
	"time"

	"github.com/diaglab/labdesk-api/internal/domain/enum"
	"github.com/diaglab/labdesk-api/pkg/apperror"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Equal(t, want, got.StringFixed(2))
}

var issued = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

func cbcAndLipid() []LineItem {
	return []LineItem{
		{Kind: enum.LineItemKindTest, Name: "Complete Blood Count", UnitPrice: d("25.00"), Quantity: 1},
		{Kind: enum.LineItemKindPackage, Name: "Lipid Profile", UnitPrice: d("35.00"), Quantity: 1},
	}
}

func baseInput(paid string) Input {
	return Input{
		LineItems:          cbcAndLipid(),
		DiscountPercentage: d("10"),
		TaxPercentage:      d("5"),
		AmountPaid:         d(paid),
		IssueDate:          issued,
		Now:                issued.Add(time.Hour),
	}
}

func TestRecompute_Scenarios(t *testing.T) {
	tests := []struct {
		name        string
		paid        string
		wantBalance string
		wantStatus  enum.PaymentStatus
	}{
		{"unpaid", "0", "56.70", enum.PaymentStatusPending},
		{"paid in full", "56.70", "0.00", enum.PaymentStatusPaid},
		{"partially paid", "20.00", "36.70", enum.PaymentStatusPartial},
		{"over-paid clamps balance", "80.00", "0.00", enum.PaymentStatusPaid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Recompute(baseInput(tt.paid))
			require.NoError(t, err)

			assertMoney(t, "60.00", res.Subtotal)
			assertMoney(t, "6.00", res.DiscountAmount)
			assertMoney(t, "2.70", res.TaxAmount)
			assertMoney(t, "56.70", res.TotalAmount)
			assertMoney(t, tt.wantBalance, res.BalanceAmount)
			assert.Equal(t, tt.wantStatus, res.PaymentStatus)
		})
	}
}

func TestRecompute_TotalIdentityAndIdempotence(t *testing.T) {
	in := Input{
		LineItems: []LineItem{
			{Kind: enum.LineItemKindTest, Name: "HbA1c", UnitPrice: d("33.335"), Quantity: 3},
			{Kind: enum.LineItemKindTest, Name: "TSH", UnitPrice: d("19.99"), Quantity: 2},
		},
		DiscountPercentage: d("7.5"),
		TaxPercentage:      d("16"),
		AmountPaid:         d("10"),
		IssueDate:          issued,
		Now:                issued,
	}

	first, err := Recompute(in)
	require.NoError(t, err)
	second, err := Recompute(in)
	require.NoError(t, err)

	assert.True(t, first.TotalAmount.Equal(first.Subtotal.Sub(first.DiscountAmount).Add(first.TaxAmount)))
	assert.Equal(t, first, second)
}

func TestRecompute_SubtotalIsOrderIndependent(t *testing.T) {
	items := cbcAndLipid()
	reversed := []LineItem{items[1], items[0]}

	assert.True(t, Subtotal(items).Equal(Subtotal(reversed)))
}

func TestRecompute_ExplicitAmountsWin(t *testing.T) {
	in := baseInput("0")
	in.ExplicitDiscount = d("10.00")
	in.ExplicitTax = d("1.50")

	res, err := Recompute(in)
	require.NoError(t, err)

	assertMoney(t, "10.00", res.DiscountAmount)
	assertMoney(t, "1.50", res.TaxAmount)
	assertMoney(t, "51.50", res.TotalAmount)
}

func TestRecompute_DueDateAndOverdue(t *testing.T) {
	t.Run("defaults to thirty days after issue", func(t *testing.T) {
		res, err := Recompute(baseInput("0"))
		require.NoError(t, err)
		assert.Equal(t, issued.AddDate(0, 0, 30), res.DueDate)
	})

	t.Run("configured term", func(t *testing.T) {
		in := baseInput("0")
		in.DueDays = 14
		res, err := Recompute(in)
		require.NoError(t, err)
		assert.Equal(t, issued.AddDate(0, 0, 14), res.DueDate)
	})

	t.Run("unpaid past due is overdue", func(t *testing.T) {
		in := baseInput("0")
		in.Now = issued.AddDate(0, 0, 31)
		res, err := Recompute(in)
		require.NoError(t, err)
		assert.Equal(t, enum.PaymentStatusOverdue, res.PaymentStatus)
	})

	t.Run("exactly at due date is not overdue", func(t *testing.T) {
		in := baseInput("0")
		in.Now = issued.AddDate(0, 0, 30)
		res, err := Recompute(in)
		require.NoError(t, err)
		assert.Equal(t, enum.PaymentStatusPending, res.PaymentStatus)
	})

	t.Run("partial payment past due stays partial", func(t *testing.T) {
		in := baseInput("5")
		in.Now = issued.AddDate(0, 2, 0)
		res, err := Recompute(in)
		require.NoError(t, err)
		assert.Equal(t, enum.PaymentStatusPartial, res.PaymentStatus)
	})

	t.Run("explicit due date kept", func(t *testing.T) {
		in := baseInput("0")
		in.DueDate = issued.AddDate(0, 0, 7)
		res, err := Recompute(in)
		require.NoError(t, err)
		assert.Equal(t, in.DueDate, res.DueDate)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(in *Input)
		wantField string
	}{
		{"zero quantity", func(in *Input) { in.LineItems[0].Quantity = 0 }, "line_items[0].quantity"},
		{"negative quantity", func(in *Input) { in.LineItems[1].Quantity = -2 }, "line_items[1].quantity"},
		{"negative price", func(in *Input) { in.LineItems[0].UnitPrice = d("-1") }, "line_items[0].unit_price"},
		{"missing name", func(in *Input) { in.LineItems[0].Name = "" }, "line_items[0].name"},
		{"unknown kind", func(in *Input) { in.LineItems[0].Kind = enum.LineItemKind(7) }, "line_items[0].kind"},
		{"discount over 100", func(in *Input) { in.DiscountPercentage = d("100.01") }, "discount_percentage"},
		{"negative tax", func(in *Input) { in.TaxPercentage = d("-5") }, "tax_percentage"},
		{"negative payment", func(in *Input) { in.AmountPaid = d("-1") }, "amount_paid"},
		{"explicit discount above subtotal", func(in *Input) { in.ExplicitDiscount = d("100") }, "discount_amount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := baseInput("0")
			tt.mutate(&in)

			_, err := Recompute(in)
			require.Error(t, err)
			require.True(t, apperror.IsValidation(err))

			fields := apperror.GetAppError(err).Errors
			require.NotEmpty(t, fields)
			assert.Equal(t, tt.wantField, fields[0].Field)
		})
	}

	t.Run("boundaries accepted", func(t *testing.T) {
		in := baseInput("0")
		in.DiscountPercentage = d("100")
		in.TaxPercentage = d("0")
		res, err := Recompute(in)
		require.NoError(t, err)
		assertMoney(t, "0.00", res.TotalAmount)
		assert.Equal(t, enum.PaymentStatusPaid, res.PaymentStatus)
	})
}

func TestOrderStatus(t *testing.T) {
	total := d("120.00")

	assert.Equal(t, enum.PaymentStatusPending, OrderStatus(total, decimal.Zero))
	assert.Equal(t, enum.PaymentStatusPartial, OrderStatus(total, d("0.01")))
	assert.Equal(t, enum.PaymentStatusPaid, OrderStatus(total, total))
	assertMoney(t, "0.00", Balance(total, d("500")))
}
