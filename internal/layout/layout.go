// Package layout holds the user-authored receipt layout model. The agent
// only consumes layout data; the visual editor that produces it lives in the
// dashboard.
package layout

import (
	"fmt"
	"sort"
)

// Binding names the Order attribute a field reads. The set is closed so an
// unknown name fails at load time instead of silently rendering empty.
type Binding string

const (
	BindCustomerName    Binding = "customerName"
	BindAddress         Binding = "address"
	BindItemDescription Binding = "itemDescription"
	BindNotes           Binding = "notes"
	BindAmount          Binding = "amount"
	BindPaymentType     Binding = "paymentType"
	BindCreatedAt       Binding = "createdAt"
	BindOrderID         Binding = "orderId"
)

var knownBindings = map[Binding]bool{
	BindCustomerName:    true,
	BindAddress:         true,
	BindItemDescription: true,
	BindNotes:           true,
	BindAmount:          true,
	BindPaymentType:     true,
	BindCreatedAt:       true,
	BindOrderID:         true,
}

// Format selects how a bound value is rendered.
type Format string

const (
	FormatPlain    Format = "plain"
	FormatCurrency Format = "currency"
	FormatDate     Format = "date"
)

// Align selects line padding.
type Align string

const (
	AlignLeft   Align = "left"
	AlignRight  Align = "right"
	AlignCenter Align = "center"
)

// SectionName identifies one of the six fixed receipt sections.
type SectionName string

const (
	SectionHeader       SectionName = "header"
	SectionCustomerInfo SectionName = "customerInfo"
	SectionOrderInfo    SectionName = "orderInfo"
	SectionItemsInfo    SectionName = "itemsInfo"
	SectionTotals       SectionName = "totals"
	SectionFooter       SectionName = "footer"
)

// Field binds one Order attribute into the receipt.
type Field struct {
	Binding      Binding `json:"binding" yaml:"binding"`
	Enabled      bool    `json:"enabled" yaml:"enabled"`
	Position     int     `json:"position" yaml:"position"`
	Format       Format  `json:"format,omitempty" yaml:"format,omitempty"`
	Align        Align   `json:"align,omitempty" yaml:"align,omitempty"`
	Width        int     `json:"width,omitempty" yaml:"width,omitempty"`
	Prefix       string  `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	Suffix       string  `json:"suffix,omitempty" yaml:"suffix,omitempty"`
	NewLineAfter bool    `json:"newLineAfter,omitempty" yaml:"newLineAfter,omitempty"`
}

// Section is an ordered group of fields with an optional title and separator.
type Section struct {
	Name      SectionName `json:"name" yaml:"name"`
	Enabled   bool        `json:"enabled" yaml:"enabled"`
	Position  int         `json:"position" yaml:"position"`
	Title     string      `json:"title,omitempty" yaml:"title,omitempty"`
	Separator string      `json:"separator,omitempty" yaml:"separator,omitempty"`
	Fields    []Field     `json:"fields" yaml:"fields"`
}

// Layout is one receipt template.
type Layout struct {
	ID         string    `json:"id" yaml:"id"`
	Name       string    `json:"name" yaml:"name"`
	IsDefault  bool      `json:"isDefault" yaml:"isDefault"`
	PaperWidth int       `json:"paperWidth" yaml:"paperWidth"`
	Sections   []Section `json:"sections" yaml:"sections"`
}

// Validate rejects layouts the renderer could not honor: unknown bindings,
// unknown formats or alignments, and non-positive paper widths.
func (l *Layout) Validate() error {
	if l.PaperWidth <= 0 {
		return fmt.Errorf("layout %q: paperWidth must be positive, got %d", l.Name, l.PaperWidth)
	}
	for _, s := range l.Sections {
		for _, f := range s.Fields {
			if !knownBindings[f.Binding] {
				return fmt.Errorf("layout %q: section %q: unknown field binding %q", l.Name, s.Name, f.Binding)
			}
			switch f.Format {
			case "", FormatPlain, FormatCurrency, FormatDate:
			default:
				return fmt.Errorf("layout %q: section %q: unknown format %q", l.Name, s.Name, f.Format)
			}
			switch f.Align {
			case "", AlignLeft, AlignRight, AlignCenter:
			default:
				return fmt.Errorf("layout %q: section %q: unknown align %q", l.Name, s.Name, f.Align)
			}
		}
	}
	return nil
}

// OrderedSections returns enabled sections sorted by position. The sort is
// stable: duplicate positions keep their original insertion order.
func (l *Layout) OrderedSections() []Section {
	out := make([]Section, 0, len(l.Sections))
	for _, s := range l.Sections {
		if s.Enabled {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

// OrderedFields returns the section's enabled fields sorted by position,
// stable like OrderedSections.
func (s Section) OrderedFields() []Field {
	out := make([]Field, 0, len(s.Fields))
	for _, f := range s.Fields {
		if f.Enabled {
			out = append(out, f)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

// Default returns the built-in 32-column layout used when no user layout is
// configured or the configured one fails validation.
func Default() *Layout {
	return &Layout{
		ID:         "default",
		Name:       "Padrao 32 colunas",
		IsDefault:  true,
		PaperWidth: 32,
		Sections: []Section{
			{
				Name: SectionHeader, Enabled: true, Position: 1,
				Title:     "PEDIDO",
				Separator: "--------------------------------",
				Fields: []Field{
					{Binding: BindOrderID, Enabled: true, Position: 1, Prefix: "Pedido #", Align: AlignCenter},
					{Binding: BindCreatedAt, Enabled: true, Position: 2, Format: FormatDate, Align: AlignCenter, NewLineAfter: true},
				},
			},
			{
				Name: SectionCustomerInfo, Enabled: true, Position: 2,
				Title:     "CLIENTE",
				Separator: "--------------------------------",
				Fields: []Field{
					{Binding: BindCustomerName, Enabled: true, Position: 1},
					{Binding: BindAddress, Enabled: true, Position: 2, NewLineAfter: true},
				},
			},
			{
				Name: SectionItemsInfo, Enabled: true, Position: 3,
				Title:     "ITENS",
				Separator: "--------------------------------",
				Fields: []Field{
					{Binding: BindItemDescription, Enabled: true, Position: 1},
					{Binding: BindNotes, Enabled: true, Position: 2, Prefix: "Obs: "},
				},
			},
			{
				Name: SectionTotals, Enabled: true, Position: 4,
				Separator: "--------------------------------",
				Fields: []Field{
					{Binding: BindAmount, Enabled: true, Position: 1, Format: FormatCurrency, Prefix: "TOTAL: ", Align: AlignRight},
					{Binding: BindPaymentType, Enabled: true, Position: 2, Prefix: "Pagamento: ", Align: AlignRight},
				},
			},
			{
				Name: SectionFooter, Enabled: true, Position: 5,
				Fields: []Field{
					{Binding: BindCustomerName, Enabled: false, Position: 1},
				},
				Title: "Obrigado pela preferencia!",
			},
		},
	}
}
