package reprice

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/noah-isme/pizzeria-api/internal/catalog"
	"github.com/noah-isme/pizzeria-api/internal/common"
	"github.com/noah-isme/pizzeria-api/internal/configurator"
	"github.com/noah-isme/pizzeria-api/internal/money"
	"github.com/noah-isme/pizzeria-api/internal/resilience"
)

// ErrPriceMismatch matches every PriceMismatchError via errors.Is.
var ErrPriceMismatch = errors.New("prices changed, please review")

// LineMismatch is one line whose client price diverged from the current price.
type LineMismatch struct {
	ID               string      `json:"id"`
	ClientUnitPrice  money.Money `json:"clientUnitPrice"`
	CurrentUnitPrice money.Money `json:"currentUnitPrice"`
}

// PriceMismatchError blocks checkout until the client re-confirms prices.
type PriceMismatchError struct {
	Lines        []LineMismatch
	ClientTotal  money.Money
	CurrentTotal money.Money
}

func (e *PriceMismatchError) Error() string {
	if len(e.Lines) == 0 {
		return fmt.Sprintf("%s: total %s, now %s", ErrPriceMismatch, e.ClientTotal, e.CurrentTotal)
	}
	return fmt.Sprintf("%s: %d line(s) changed", ErrPriceMismatch, len(e.Lines))
}

// Is lets errors.Is match ErrPriceMismatch.
func (e *PriceMismatchError) Is(target error) bool {
	return target == ErrPriceMismatch
}

// LineError attaches the failing line id to a validation or catalog error.
type LineError struct {
	ID  string
	Err error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %s: %v", e.ID, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

// AppError maps engine errors to the HTTP error envelope. It returns nil for
// errors it does not recognise.
func AppError(err error) *common.AppError {
	if err == nil {
		return nil
	}
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	lineID := ""
	var lineErr *LineError
	if errors.As(err, &lineErr) {
		lineID = lineErr.ID
	}

	var verr *configurator.ValidationError
	if errors.As(err, &verr) {
		out := common.NewAppError(common.CodeValidation, "configuration is invalid", http.StatusUnprocessableEntity, err)
		details := map[string]any{"fields": verr.Details()}
		if lineID != "" {
			details["lineId"] = lineID
		}
		out.Details = details
		return out
	}
	var unknown *catalog.UnknownReferenceError
	if errors.As(err, &unknown) {
		out := common.NewAppError(common.CodeUnknownReference, unknown.Error(), http.StatusUnprocessableEntity, err)
		details := map[string]any{"kind": unknown.Kind, "id": unknown.ID, "inactive": unknown.Inactive}
		if lineID != "" {
			details["lineId"] = lineID
		}
		out.Details = details
		return out
	}
	if errors.Is(err, resilience.ErrOpenCircuit) {
		return common.NewAppError(common.CodeUnavailable, "catalog is temporarily unavailable", http.StatusServiceUnavailable, err)
	}
	var mismatch *PriceMismatchError
	if errors.As(err, &mismatch) {
		out := common.NewAppError(common.CodePriceMismatch, ErrPriceMismatch.Error(), http.StatusConflict, err)
		lines := make([]map[string]any, 0, len(mismatch.Lines))
		for _, l := range mismatch.Lines {
			lines = append(lines, map[string]any{
				"id":               l.ID,
				"clientUnitPrice":  l.ClientUnitPrice.String(),
				"currentUnitPrice": l.CurrentUnitPrice.String(),
			})
		}
		out.Details = map[string]any{
			"lines":        lines,
			"clientTotal":  mismatch.ClientTotal.String(),
			"currentTotal": mismatch.CurrentTotal.String(),
		}
		return out
	}
	return nil
}
