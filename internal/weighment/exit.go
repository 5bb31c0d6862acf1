package weighment

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/managedsolutions7/k2weighingfe-sub000/internal/models"
)

// ExitInput is the exit prompt as the operator filled it in.
// Empty strings mean "not provided".
type ExitInput struct {
	ExitWeight   string
	Moisture     string
	Dust         string
	PalletteType string
	NoOfBags     string
	WeightPerBag string
}

// BuildExitPayload runs the exit checks in order and stops at the first failure.
// The returned error is an *ExitError whose Message is shown to the operator.
func BuildExitPayload(entry *models.Entry, in ExitInput) (models.ExitPayload, error) {
	exitWeight, ok := parseFinite(in.ExitWeight)
	if strings.TrimSpace(in.ExitWeight) == "" || !ok || exitWeight <= 0 {
		return models.ExitPayload{}, rejectExit("exitWeight", MsgInvalidExitWeight)
	}

	entryWeight, known := entry.KnownEntryWeight()
	if entry.EntryType == models.EntryTypeSale && known && exitWeight < entryWeight {
		return models.ExitPayload{}, rejectExit("exitWeight", MsgSaleWeights)
	}
	if entry.EntryType == models.EntryTypePurchase && known && entryWeight < exitWeight {
		return models.ExitPayload{}, rejectExit("exitWeight", MsgPurchaseWeights)
	}

	moisture, err := optionalPercent(in.Moisture, "moisture", MsgMoisture)
	if err != nil {
		return models.ExitPayload{}, err
	}
	dust, err := optionalPercent(in.Dust, "dust", MsgDust)
	if err != nil {
		return models.ExitPayload{}, err
	}

	payload := models.ExitPayload{ExitWeight: exitWeight}

	switch entry.EntryType {
	case models.EntryTypeSale:
		pallette := models.PalletteType(strings.ToLower(strings.TrimSpace(in.PalletteType)))
		switch pallette {
		case models.PalletteNone:
		case models.PalletteLoose:
			payload.PalletteType = models.PalletteLoose
		case models.PallettePacked:
			bags, perBag, packed, err := packedBags(in.NoOfBags, in.WeightPerBag)
			if err != nil {
				return models.ExitPayload{}, err
			}
			payload.PalletteType = models.PallettePacked
			payload.NoOfBags = &bags
			payload.WeightPerBag = &perBag
			payload.PackedWeight = &packed
		default:
			return models.ExitPayload{}, rejectExit("palletteType", MsgPalletteType)
		}
	case models.EntryTypePurchase:
		payload.Moisture = moisture
		payload.Dust = dust
	}

	return payload, nil
}

// optionalPercent parses a reading that may be left blank; present values must be in [0,100].
func optionalPercent(raw, field, msg string) (*float64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	v, ok := parseFinite(raw)
	if !ok || v < 0 || v > 100 {
		return nil, rejectExit(field, msg)
	}
	return &v, nil
}

// MaxBags bounds the bag count so it always fits the payload's int.
const MaxBags = math.MaxInt32

// packedBags validates the bag count and per-bag weight and derives the packed weight.
func packedBags(rawBags, rawPerBag string) (int, float64, float64, error) {
	bags, okBags := parseFinite(rawBags)
	perBag, okPerBag := parseFinite(rawPerBag)
	if !okBags || !okPerBag || bags <= 0 || perBag <= 0 || bags != math.Trunc(bags) || bags > MaxBags {
		return 0, 0, 0, rejectExit("noOfBags", MsgBags)
	}
	packed := decimal.NewFromInt(int64(bags)).Mul(decimal.NewFromFloat(perBag))
	return int(bags), perBag, packed.InexactFloat64(), nil
}

// PackedWeight derives the packed weight of an entry, if it is a packed sale.
func PackedWeight(e *models.Entry) (float64, bool) {
	if e.PalletteType != models.PallettePacked || e.NoOfBags == nil || e.WeightPerBag == nil {
		return 0, false
	}
	packed := decimal.NewFromInt(int64(*e.NoOfBags)).Mul(decimal.NewFromFloat(*e.WeightPerBag))
	return packed.InexactFloat64(), true
}
