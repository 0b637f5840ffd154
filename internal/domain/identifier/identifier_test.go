package identifier

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerator_Generate(t *testing.T) {
	g := NewGenerator(DefaultWidths())
	jan15 := time.Date(2024, time.January, 15, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name  string
		kind  Kind
		now   time.Time
		count int64
		want  string
	}{
		{"first order of the day", KindOrder, jan15, 0, "ORD202401150001"},
		{"twelfth order", KindOrder, jan15, 11, "ORD202401150012"},
		{"first invoice of january", KindInvoice, jan15, 0, "INV2024010001"},
		{"invoice late in month", KindInvoice, time.Date(2024, 1, 31, 23, 0, 0, 0, time.UTC), 41, "INV2024010042"},
		{"patient after five", KindPatient, jan15, 5, "PAT000006"},
		{"admin-created doctor", KindDoctor, jan15, 2, "DOC0003"},
		{"self-registered doctor", KindDoctorSelfRegistered, jan15, 2, "DOC000003"},
		{"technician", KindTechnician, jan15, 0, "TECH000001"},
		{"overflow is not truncated", KindOrder, jan15, 12345, "ORD2024011512346"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := g.Generate(tt.kind, tt.now, tt.count)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGenerator_UsesUTCDay(t *testing.T) {
	g := NewGenerator(DefaultWidths())
	nairobi := time.FixedZone("EAT", 3*60*60)
	// 01:00 local on the 16th is still the 15th in UTC.
	now := time.Date(2024, 1, 16, 1, 0, 0, 0, nairobi)

	got, err := g.Generate(KindOrder, now, 0)
	require.NoError(t, err)
	assert.Equal(t, "ORD202401150001", got)
	assert.Equal(t, "ORD:20240115", g.ScopeKey(KindOrder, now))
}

func TestGenerator_ScopeKey(t *testing.T) {
	g := NewGenerator(Widths{})
	now := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "INV:202403", g.ScopeKey(KindInvoice, now))
	assert.Equal(t, "PAT", g.ScopeKey(KindPatient, now))
	assert.Equal(t, g.ScopeKey(KindDoctor, now), g.ScopeKey(KindDoctorSelfRegistered, now))
	assert.Equal(t, "TECH", g.ScopeKey(KindTechnician, now))
}

func TestGenerator_ConfigurableDoctorWidths(t *testing.T) {
	g := NewGenerator(Widths{DoctorAdmin: 6, DoctorSelf: 4})
	now := time.Now()

	admin, err := g.Generate(KindDoctor, now, 0)
	require.NoError(t, err)
	self, err := g.Generate(KindDoctorSelfRegistered, now, 0)
	require.NoError(t, err)

	assert.Equal(t, "DOC000001", admin)
	assert.Equal(t, "DOC0001", self)
}

func TestGenerator_RejectsBadInput(t *testing.T) {
	g := NewGenerator(DefaultWidths())

	_, err := g.Generate(KindPatient, time.Now(), -1)
	assert.Error(t, err)

	_, err = g.Generate(Kind(99), time.Now(), 0)
	assert.Error(t, err)
}

func TestGenerator_Fallback(t *testing.T) {
	g := NewGenerator(DefaultWidths())
	now := time.Date(2024, 1, 15, 10, 0, 0, 123*int(time.Millisecond), time.UTC)

	assert.Regexp(t, regexp.MustCompile(`^ORD20240115\d{4}$`), g.Fallback(KindOrder, now))
	assert.Regexp(t, regexp.MustCompile(`^INV202401\d{4}$`), g.Fallback(KindInvoice, now))
	assert.Regexp(t, regexp.MustCompile(`^PAT\d{6}$`), g.Fallback(KindPatient, now))
	assert.Regexp(t, regexp.MustCompile(`^TECH\d{6}$`), g.Fallback(KindTechnician, now))
	assert.Equal(t, g.Fallback(KindOrder, now), g.Fallback(KindOrder, now))
}
