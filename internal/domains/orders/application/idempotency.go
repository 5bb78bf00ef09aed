package application

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/Apurer/bakery-orders/internal/domains/orders/domain"
)

type fingerprintOrder struct {
	PickupAt       string            `json:"pickupAt"`
	ClientName     string            `json:"clientName"`
	ClientPhone    string            `json:"clientPhone"`
	AdvancePayment float64           `json:"advancePayment"`
	Paid           bool              `json:"paid"`
	Lines          []fingerprintLine `json:"lines"`
}

type fingerprintLine struct {
	ProductID   int64   `json:"productId"`
	Quantity    float64 `json:"quantity"`
	Note        string  `json:"note"`
	Inscription *string `json:"inscription,omitempty"`
	Photo       *string `json:"photo,omitempty"`
}

// FingerprintOrder hashes the client-visible content of a create request.
// Server-assigned fields (ids, timestamps, fulfillment flags) do not contribute.
func FingerprintOrder(order *domain.Order) (string, error) {
	normalized := fingerprintOrder{
		PickupAt:       order.PickupAt.UTC().Format(time.RFC3339),
		ClientName:     strings.TrimSpace(order.ClientName),
		ClientPhone:    strings.TrimSpace(order.ClientPhone),
		AdvancePayment: order.AdvancePayment,
		Paid:           order.Paid,
		Lines:          make([]fingerprintLine, 0, len(order.Lines)),
	}
	for _, line := range order.Lines {
		fl := fingerprintLine{ProductID: line.ProductID, Quantity: line.Quantity, Note: strings.TrimSpace(line.Note)}
		if line.Cake != nil {
			inscription, photo := line.Cake.Inscription, line.Cake.Photo
			fl.Inscription, fl.Photo = &inscription, &photo
		}
		normalized.Lines = append(normalized.Lines, fl)
	}
	payload, err := json.Marshal(normalized)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}
