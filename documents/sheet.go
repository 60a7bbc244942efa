// Package documents turns a dispatch snapshot into printable output: the
// delivery-advice PDF and the spreadsheet register.
package documents

import (
	"strings"
	"time"

	"freshdock/models"
)

type Party struct {
	Heading string   `json:"heading"`
	Name    string   `json:"name"`
	Lines   []string `json:"lines"`
}

type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type Line struct {
	No          string `json:"no"`
	Product     string `json:"product"`
	Variety     string `json:"variety"`
	SizeGrade   string `json:"size_grade"`
	PackType    string `json:"pack_type"`
	Quantity    string `json:"quantity"`
	UnitWeight  string `json:"unit_weight"`
	TotalWeight string `json:"total_weight"`
}

type Signature struct {
	Title     string `json:"title"`
	Statement string `json:"statement"`
}

// Sheet is the fully formatted content of one delivery advice. Every value
// is already a display string so rendering makes no decisions.
type Sheet struct {
	Title         string      `json:"title"`
	DocumentNo    string      `json:"document_no"`
	Reference     string      `json:"reference"`
	StatusURL     string      `json:"status_url"`
	GeneratedOn   string      `json:"generated_on"`
	Parties       []Party     `json:"parties"`
	Details       []Field     `json:"details"`
	Lines         []Line      `json:"lines"`
	TotalQuantity string      `json:"total_quantity"`
	TotalWeight   string      `json:"total_weight"`
	Signatures    []Signature `json:"signatures"`
}

type Input struct {
	Dispatch *models.Dispatch
	// Grower is nil for growers without an account.
	Grower        *models.Business
	Receiver      *models.Business
	Carrier       *models.Business
	StatusBaseURL string
	GeneratedAt   time.Time
}

func StatusURL(base, publicCode string) string {
	return strings.TrimRight(base, "/") + "/status/" + publicCode
}

func BuildSheet(in Input) Sheet {
	d := in.Dispatch
	generated := in.GeneratedAt

	sheet := Sheet{
		Title:       "Delivery Advice",
		DocumentNo:  Dash(d.DeliveryAdviceNo),
		Reference:   Dash(d.DisplayID),
		StatusURL:   StatusURL(in.StatusBaseURL, d.PublicCode),
		GeneratedOn: FormatDate(&generated),
		Parties: []Party{
			growerParty(d, in.Grower),
			businessParty("Receiver", in.Receiver),
			transportParty(d, in.Carrier),
		},
		Details: []Field{
			{Label: "Dispatch date", Value: FormatDate(d.DispatchDate)},
			{Label: "Expected arrival", Value: FormatDate(d.ExpectedArrival)},
			{Label: "Arrival window", Value: Dash(d.ArrivalWindow)},
			{Label: "Temperature zone", Value: Dash(titleCase(string(d.TemperatureZone)))},
			{Label: "Total pallets", Value: FormatCount(d.TotalPallets)},
			{Label: "Con note number", Value: Dash(d.ConNoteNumber)},
			{Label: "Status", Value: string(models.DisplayStatus(d))},
			{Label: "Lot number", Value: Dash(d.LotNumber)},
			{Label: "Notes", Value: Dash(d.Notes)},
		},
		Signatures: []Signature{
			{Title: "Grower / Packer", Statement: "I declare the produce listed was packed and dispatched as described."},
			{Title: "Transport", Statement: "Received in good order for carriage at the temperature stated."},
			{Title: "Receiver", Statement: "Received subject to inspection. Issues are recorded separately."},
		},
	}

	for i, item := range d.Items {
		w, ok := LineWeight(item)
		unit := Placeholder
		if item.UnitWeightKg.Valid && item.UnitWeightKg.Decimal.IsPositive() {
			unit = FormatWeight(item.UnitWeightKg.Decimal)
		}
		sheet.Lines = append(sheet.Lines, Line{
			No:          FormatInt(i + 1),
			Product:     Dash(item.Product),
			Variety:     Dash(item.Variety),
			SizeGrade:   Dash(item.SizeGrade),
			PackType:    Dash(item.PackType),
			Quantity:    FormatInt(item.Quantity),
			UnitWeight:  unit,
			TotalWeight: FormatOptionalWeight(w, ok),
		})
	}

	totals := ComputeTotals(d.Items)
	sheet.TotalQuantity = FormatInt(totals.Quantity)
	sheet.TotalWeight = FormatWeight(totals.Weight)

	return sheet
}

func growerParty(d *models.Dispatch, b *models.Business) Party {
	if b != nil {
		p := businessParty("Grower", b)
		if d.GrowerCode != "" {
			p.Lines = append(p.Lines, "Grower code: "+d.GrowerCode)
		}
		return p
	}
	return Party{
		Heading: "Grower",
		Name:    Dash(d.GrowerName),
		Lines: []string{
			"Grower code: " + Dash(d.GrowerCode),
			Placeholder,
			Placeholder,
		},
	}
}

func businessParty(heading string, b *models.Business) Party {
	if b == nil {
		return Party{Heading: heading, Name: Placeholder, Lines: []string{Placeholder, Placeholder, Placeholder}}
	}
	return Party{
		Heading: heading,
		Name:    Dash(b.Name),
		Lines: []string{
			Dash(joinNonEmpty(", ", b.Address, b.Region, b.State)),
			Dash(joinNonEmpty(" ", b.ContactName, b.ContactPhone)),
			Dash(b.ContactEmail),
		},
	}
}

func transportParty(d *models.Dispatch, carrier *models.Business) Party {
	name := d.Carrier
	if carrier != nil && carrier.Name != "" {
		name = carrier.Name
	}
	return Party{
		Heading: "Transport",
		Name:    Dash(name),
		Lines: []string{
			"Truck: " + Dash(d.TruckNumber),
			"Con note: " + Dash(d.ConNoteNumber),
			"Zone: " + Dash(titleCase(string(d.TemperatureZone))),
		},
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
