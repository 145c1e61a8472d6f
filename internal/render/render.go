// Package render turns an order plus a layout into receipt text. Rendering is
// pure: no I/O, deterministic output, and it never fails — a broken custom
// layout degrades to a minimal fixed-format receipt instead of blocking the
// print queue.
package render

import (
	"strings"

	"github.com/mesa-livre/print-agent/internal/layout"
	"github.com/mesa-livre/print-agent/internal/model"
)

// Overrides lets a caller substitute field values without touching the order,
// checked before the bound attribute. Used by test prints.
type Overrides map[layout.Binding]string

const dateLayout = "02/01/2006 15:04"

// Render produces the receipt text for an order using the given layout.
// Any internal failure falls back to Fallback rather than propagating.
func Render(order model.Order, l *layout.Layout, overrides Overrides) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = Fallback(order)
		}
	}()

	if l == nil {
		return Fallback(order)
	}

	// Sanitization happens before wrapping and padding: replacements like
	// "…" -> "..." change rune counts, so width math must see the final
	// ASCII text, not the raw input.
	width := l.PaperWidth
	var b strings.Builder
	for _, section := range l.OrderedSections() {
		if title := Sanitize(section.Title); title != "" {
			for _, wrapped := range Wrap(title, width) {
				writeAligned(&b, wrapped, layout.AlignCenter, width)
			}
		}
		if sep := Sanitize(section.Separator); sep != "" {
			for _, wrapped := range Wrap(sep, width) {
				writeAligned(&b, wrapped, layout.AlignLeft, width)
			}
		}
		for _, f := range section.OrderedFields() {
			value := resolve(order, f.Binding, overrides)
			if f.Format != "" && f.Format != layout.FormatPlain {
				value = formatValue(order, f, value, overrides)
			}
			if value == "" {
				continue
			}
			line := Sanitize(f.Prefix + value + f.Suffix)
			if line == "" {
				continue
			}

			fieldWidth := width
			if f.Width > 0 && f.Width < width {
				fieldWidth = f.Width
			}
			for _, wrapped := range Wrap(line, width) {
				writeAligned(&b, wrapped, f.Align, fieldWidth)
			}
			if f.NewLineAfter {
				b.WriteString("\n")
			}
		}
		b.WriteString("\n")
	}

	text := b.String()
	if strings.TrimSpace(text) == "" {
		return Fallback(order)
	}
	return text
}

// Fallback is the emergency fixed-format receipt used when a layout cannot be
// rendered. It ignores the layout entirely so it cannot itself fail.
func Fallback(order model.Order) string {
	var b strings.Builder
	b.WriteString("PEDIDO #")
	b.WriteString(FormatOrderID(order.ID))
	b.WriteString("\n")
	b.WriteString(order.CreatedAt.Format(dateLayout))
	b.WriteString("\n--------------------------------\n")
	if order.CustomerName != "" {
		b.WriteString(order.CustomerName + "\n")
	}
	if order.Address != "" {
		b.WriteString(order.Address + "\n")
	}
	if order.ItemDescription != "" {
		b.WriteString(order.ItemDescription + "\n")
	}
	if order.Notes != "" {
		b.WriteString("Obs: " + order.Notes + "\n")
	}
	if order.Amount != nil {
		b.WriteString("TOTAL: " + FormatCurrency(order.Amount) + "\n")
	}
	if order.PaymentType != "" {
		b.WriteString("Pagamento: " + order.PaymentType + "\n")
	}
	return Sanitize(b.String())
}

func resolve(order model.Order, binding layout.Binding, overrides Overrides) string {
	if v, ok := overrides[binding]; ok {
		return v
	}
	switch binding {
	case layout.BindCustomerName:
		return order.CustomerName
	case layout.BindAddress:
		return order.Address
	case layout.BindItemDescription:
		return order.ItemDescription
	case layout.BindNotes:
		return order.Notes
	case layout.BindPaymentType:
		return order.PaymentType
	case layout.BindOrderID:
		return FormatOrderID(order.ID)
	case layout.BindAmount:
		if order.Amount == nil {
			return ""
		}
		return order.Amount.String()
	case layout.BindCreatedAt:
		return order.CreatedAt.Format(dateLayout)
	}
	return ""
}

func formatValue(order model.Order, f layout.Field, raw string, overrides Overrides) string {
	switch f.Format {
	case layout.FormatCurrency:
		if _, overridden := overrides[f.Binding]; !overridden && f.Binding == layout.BindAmount {
			if order.Amount == nil {
				return ""
			}
			return FormatCurrency(order.Amount)
		}
		return FormatCurrencyString(raw)
	case layout.FormatDate:
		if f.Binding == layout.BindCreatedAt {
			return order.CreatedAt.Format(dateLayout)
		}
		return raw
	}
	return raw
}

func writeAligned(b *strings.Builder, line string, align layout.Align, width int) {
	b.WriteString(pad(line, align, width))
	b.WriteString("\n")
}

func pad(line string, align layout.Align, width int) string {
	gap := width - len([]rune(line))
	if gap <= 0 {
		return line
	}
	switch align {
	case layout.AlignRight:
		return strings.Repeat(" ", gap) + line
	case layout.AlignCenter:
		left := gap / 2
		return strings.Repeat(" ", left) + line + strings.Repeat(" ", gap-left)
	default:
		return line + strings.Repeat(" ", gap)
	}
}
