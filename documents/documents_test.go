package documents

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"freshdock/models"

	"github.com/sebdah/goldie/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func kg(v float64) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.NewFromFloat(v))
}

func day(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func fixtureDispatch() *models.Dispatch {
	return &models.Dispatch{
		DisplayID:        "FD2610190001",
		DeliveryAdviceNo: "DA2610190001",
		PublicCode:       "7f3c1e2a-0000-4000-8000-000000000001",
		GrowerName:       "Sunny Ridge Farms",
		GrowerCode:       "SR-01",
		Carrier:          "Coolhaul",
		TruckNumber:      "XYZ-123",
		ConNoteNumber:    "CN-5521",
		DispatchDate:     day("2026-10-19"),
		ExpectedArrival:  day("2026-10-20"),
		ArrivalWindow:    "06:00-08:00",
		TemperatureZone:  models.ZoneChilled,
		TotalPallets:     4,
		Status:           models.StatusPending,
		Items: []models.DispatchItem{
			{Product: "Bananas", Variety: "Cavendish", SizeGrade: "Large", PackType: "13kg carton", Quantity: 60, UnitWeightKg: kg(13)},
			{Product: "Avocado", Variety: "Hass", SizeGrade: "20s", PackType: "Tray", Quantity: 10, TotalWeightKg: kg(55.5)},
			{Product: "Lemons", Quantity: 5},
		},
	}
}

func fixtureReceiver() *models.Business {
	return &models.Business{
		Name:         "Metro Fresh Markets",
		Type:         models.BusinessReceiver,
		ContactName:  "Dana Lee",
		ContactPhone: "0400 000 000",
		ContactEmail: "receiving@metrofresh.test",
		Address:      "12 Market Rd",
		Region:       "Epping",
		State:        "VIC",
	}
}

func fixtureSheet() Sheet {
	return BuildSheet(Input{
		Dispatch:      fixtureDispatch(),
		Receiver:      fixtureReceiver(),
		StatusBaseURL: "https://freshdock.test/",
		GeneratedAt:   time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC),
	})
}

func TestLineWeight(t *testing.T) {
	tests := []struct {
		name   string
		item   models.DispatchItem
		want   string
		wantOK bool
	}{
		{"unit weight wins", models.DispatchItem{Quantity: 60, UnitWeightKg: kg(13), TotalWeightKg: kg(1)}, "780", true},
		{"zero unit weight falls back", models.DispatchItem{Quantity: 3, UnitWeightKg: kg(0), TotalWeightKg: kg(12.5)}, "12.5", true},
		{"aggregate only", models.DispatchItem{Quantity: 3, TotalWeightKg: kg(0)}, "0", true},
		{"negative aggregate ignored", models.DispatchItem{Quantity: 3, TotalWeightKg: kg(-4)}, "0", false},
		{"nothing known", models.DispatchItem{Quantity: 3}, "0", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := LineWeight(tt.item)
			assert.Equal(t, tt.wantOK, ok)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
			assert.False(t, got.IsNegative())
		})
	}
}

func TestComputeTotals(t *testing.T) {
	totals := ComputeTotals(fixtureDispatch().Items)
	assert.Equal(t, 75, totals.Quantity)
	assert.Equal(t, 2, totals.Weighed)
	assert.Equal(t, "835.5", totals.Weight.String())

	empty := ComputeTotals([]models.DispatchItem{{Product: "Kale", Quantity: 2}})
	assert.True(t, empty.Weight.IsZero())
	assert.Equal(t, "0.0 kg", FormatWeight(empty.Weight))
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, Placeholder, Dash("   "))
	assert.Equal(t, Placeholder, FormatDate(nil))
	assert.Equal(t, "Monday, 19 October 2026", FormatDate(day("2026-10-19")))
	assert.Equal(t, Placeholder, FormatCount(0))
	assert.Equal(t, Placeholder, FormatOptionalWeight(decimal.Zero, false))
	assert.Equal(t, "https://x.test/status/abc", StatusURL("https://x.test/", "abc"))
}

func TestBuildSheetGolden(t *testing.T) {
	data, err := json.MarshalIndent(fixtureSheet(), "", "  ")
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "delivery_advice_sheet", data)
}

func TestBuildSheetMissingParties(t *testing.T) {
	d := fixtureDispatch()
	d.Carrier = ""
	d.DeliveryAdviceNo = ""
	sheet := BuildSheet(Input{Dispatch: d, GeneratedAt: time.Now()})

	assert.Equal(t, Placeholder, sheet.DocumentNo)
	require.Len(t, sheet.Parties, 3)
	assert.Equal(t, Placeholder, sheet.Parties[1].Name)
	assert.Equal(t, Placeholder, sheet.Parties[2].Name)
}

func TestRenderProducesPDF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, fixtureSheet(), time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}

func TestRenderPaginatesLongTables(t *testing.T) {
	d := fixtureDispatch()
	d.Items = nil
	for i := 0; i < 100; i++ {
		d.Items = append(d.Items, models.DispatchItem{Product: "Mandarins", Variety: "Imperial", Quantity: 1 + i, UnitWeightKg: kg(10)})
	}
	sheet := BuildSheet(Input{Dispatch: d, GeneratedAt: time.Now()})

	var short, long bytes.Buffer
	require.NoError(t, Render(&short, fixtureSheet(), time.Now()))
	require.NoError(t, Render(&long, sheet, time.Now()))
	assert.Greater(t, long.Len(), short.Len())
}

func TestWriteRegister(t *testing.T) {
	d := *fixtureDispatch()
	receiverID := uint(7)
	d.ReceiverBusinessID = &receiverID

	var buf bytes.Buffer
	require.NoError(t, WriteRegister(&buf, []models.Dispatch{d}, map[uint]string{7: "Metro Fresh Markets"}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Dispatches")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Dispatch", rows[0][0])
	assert.Equal(t, "FD2610190001", rows[1][0])
	assert.Contains(t, rows[1], "Metro Fresh Markets")

	lines, err := f.GetRows("Lines")
	require.NoError(t, err)
	assert.Len(t, lines, 4)
}
