// Package identifier formats the human-readable codes printed on orders,
// invoices and staff/patient records.
package identifier

import (
	"fmt"
	"strconv"
	"time"
)

// Kind is the type of record receiving a code
type Kind int

const (
	KindOrder Kind = iota
	KindInvoice
	KindPatient
	KindDoctor
	// KindDoctorSelfRegistered shares the DOC sequence but may use its own width.
	KindDoctorSelfRegistered
	KindTechnician
)

func (k Kind) String() string {
	switch k {
	case KindOrder:
		return "ORDER"
	case KindInvoice:
		return "INVOICE"
	case KindPatient:
		return "PATIENT"
	case KindDoctor, KindDoctorSelfRegistered:
		return "DOCTOR"
	case KindTechnician:
		return "TECHNICIAN"
	}
	return "UNKNOWN"
}

// Widths configures the zero padding of the sequence part per kind.
type Widths struct {
	Order       int
	Invoice     int
	Patient     int
	DoctorAdmin int
	DoctorSelf  int
	Technician  int
}

// DefaultWidths matches the codes already issued in production.
func DefaultWidths() Widths {
	return Widths{
		Order:       4,
		Invoice:     4,
		Patient:     6,
		DoctorAdmin: 4,
		DoctorSelf:  6,
		Technician:  6,
	}
}

// Generator renders codes. It holds no state and is safe for concurrent use.
type Generator struct {
	widths Widths
}

// NewGenerator creates a generator; non-positive widths take the defaults.
func NewGenerator(w Widths) *Generator {
	d := DefaultWidths()
	pick := func(v, def int) int {
		if v <= 0 {
			return def
		}
		return v
	}
	return &Generator{widths: Widths{
		Order:       pick(w.Order, d.Order),
		Invoice:     pick(w.Invoice, d.Invoice),
		Patient:     pick(w.Patient, d.Patient),
		DoctorAdmin: pick(w.DoctorAdmin, d.DoctorAdmin),
		DoctorSelf:  pick(w.DoctorSelf, d.DoctorSelf),
		Technician:  pick(w.Technician, d.Technician),
	}}
}

func (g *Generator) prefix(kind Kind, now time.Time) string {
	now = now.UTC()
	switch kind {
	case KindOrder:
		return "ORD" + now.Format("20060102")
	case KindInvoice:
		return "INV" + now.Format("200601")
	case KindPatient:
		return "PAT"
	case KindDoctor, KindDoctorSelfRegistered:
		return "DOC"
	case KindTechnician:
		return "TECH"
	}
	return ""
}

func (g *Generator) width(kind Kind) int {
	switch kind {
	case KindOrder:
		return g.widths.Order
	case KindInvoice:
		return g.widths.Invoice
	case KindPatient:
		return g.widths.Patient
	case KindDoctor:
		return g.widths.DoctorAdmin
	case KindDoctorSelfRegistered:
		return g.widths.DoctorSelf
	case KindTechnician:
		return g.widths.Technician
	}
	return 4
}

// ScopeKey names the counting window of kind at now: the UTC day for
// orders, the UTC month for invoices, all time for everything else.
func (g *Generator) ScopeKey(kind Kind, now time.Time) string {
	now = now.UTC()
	switch kind {
	case KindOrder:
		return "ORD:" + now.Format("20060102")
	case KindInvoice:
		return "INV:" + now.Format("200601")
	case KindPatient:
		return "PAT"
	case KindDoctor, KindDoctorSelfRegistered:
		return "DOC"
	case KindTechnician:
		return "TECH"
	}
	return "UNKNOWN"
}

// Generate returns the code for the record following existingCount prior
// records in the same scope. Sequences wider than the pad are not truncated.
func (g *Generator) Generate(kind Kind, now time.Time, existingCount int64) (string, error) {
	if existingCount < 0 {
		return "", fmt.Errorf("identifier: negative count %d", existingCount)
	}
	p := g.prefix(kind, now)
	if p == "" {
		return "", fmt.Errorf("identifier: unknown kind %d", kind)
	}
	return fmt.Sprintf("%s%0*d", p, g.width(kind), existingCount+1), nil
}

// Fallback builds a code from the low-order digits of now when the counter is
// unavailable. Collisions are possible and are caught by the unique index.
func (g *Generator) Fallback(kind Kind, now time.Time) string {
	w := g.width(kind)
	digits := strconv.FormatInt(now.UnixMilli(), 10)
	if len(digits) > w {
		digits = digits[len(digits)-w:]
	}
	n, _ := strconv.ParseInt(digits, 10, 64)
	return fmt.Sprintf("%s%0*d", g.prefix(kind, now), w, n)
}
