package orderform

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	ordersdomain "github.com/Apurer/bakery-orders/internal/domains/orders/domain"
)

const (
	MsgClientName     = "client name must be at least 3 characters"
	MsgPickupDate     = "pickup date is not a valid date"
	MsgPickupTime     = "pickup time must be HH:MM between 00:00 and 23:59"
	MsgNoItems        = "order must contain at least one item"
	MsgAdvancePayment = "advance payment must be a number of zero or more"
)

// MsgItemProduct and MsgItemQuantity are formatted with the 1-based item position.
const (
	MsgItemProduct  = "item %d: no product selected"
	MsgItemQuantity = "item %d: quantity must be a positive number"
)

var pickupTimePattern = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):[0-5][0-9]$`)

var pickupDateLayouts = []string{time.DateOnly, time.RFC3339, "02.01.2006"}

// ValidationResult lists every broken rule, in rule order.
type ValidationResult struct {
	Valid      bool
	Violations []string
}

// Validate checks a draft before submission. On success it rewrites PickupDate to
// YYYY-MM-DD; a failing draft is left untouched.
func Validate(draft *OrderDraft) ValidationResult {
	if draft == nil {
		draft = &OrderDraft{}
	}
	violations := []string{}

	if utf8.RuneCountInString(strings.TrimSpace(draft.ClientName)) < 3 {
		violations = append(violations, MsgClientName)
	}
	day, dateOK := parsePickupDate(draft.PickupDate)
	if !dateOK {
		violations = append(violations, MsgPickupDate)
	}
	if _, _, ok := parsePickupTime(draft.PickupTime); !ok {
		violations = append(violations, MsgPickupTime)
	}

	var lines []LineDraft
	if draft.Lines != nil {
		lines = draft.Lines.items
	}
	if len(lines) == 0 {
		violations = append(violations, MsgNoItems)
	}
	for i, line := range lines {
		if line.ProductID == ordersdomain.UnselectedProduct {
			violations = append(violations, fmt.Sprintf(MsgItemProduct, i+1))
		}
		if !(line.Quantity > 0) {
			violations = append(violations, fmt.Sprintf(MsgItemQuantity, i+1))
		}
	}

	if _, ok := parseAdvance(draft.AdvancePayment); !ok {
		violations = append(violations, MsgAdvancePayment)
	}

	if len(violations) > 0 {
		return ValidationResult{Violations: violations}
	}
	draft.PickupDate = day.Format(time.DateOnly)
	return ValidationResult{Valid: true, Violations: violations}
}

func parsePickupDate(text string) (time.Time, bool) {
	text = strings.TrimSpace(text)
	for _, layout := range pickupDateLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parsePickupTime(text string) (hour, minute int, ok bool) {
	text = strings.TrimSpace(text)
	if !pickupTimePattern.MatchString(text) {
		return 0, 0, false
	}
	hh, mm, _ := strings.Cut(text, ":")
	hour, _ = strconv.Atoi(hh)
	minute, _ = strconv.Atoi(mm)
	return hour, minute, true
}

// parseAdvance treats empty text as no advance.
func parseAdvance(text string) (float64, bool) {
	text = strings.ReplaceAll(strings.TrimSpace(text), ",", ".")
	if text == "" {
		return 0, true
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, false
	}
	return v, true
}
