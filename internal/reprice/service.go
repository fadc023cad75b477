package reprice

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/pizzeria-api/internal/catalog"
	"github.com/noah-isme/pizzeria-api/internal/common"
	"github.com/noah-isme/pizzeria-api/internal/configurator"
	"github.com/noah-isme/pizzeria-api/internal/money"
	"github.com/noah-isme/pizzeria-api/internal/obs"
	"github.com/noah-isme/pizzeria-api/internal/pricing"
)

// Item is one line to re-price.
type Item struct {
	ID   string
	Line configurator.Line
}

// Result is the authoritative price of one item. Err is set when the line
// could not be priced; CurrentPrice is then meaningless.
type Result struct {
	ID           string
	Breakdown    pricing.Breakdown
	CurrentPrice money.Money
	Err          error
}

// Claim is a line as the client last saw it.
type Claim struct {
	Item
	Quantity        int
	ClientUnitPrice money.Money
}

// LineCheck is the verification outcome of one claim.
type LineCheck struct {
	Result
	Quantity        int
	ClientUnitPrice money.Money
	Matches         bool
}

// Verification is the outcome of the verification protocol.
type Verification struct {
	Lines        []LineCheck
	ClientTotal  money.Money
	CurrentTotal money.Money
	Snapshot     *catalog.Snapshot
}

// Config groups Service dependencies.
type Config struct {
	Lookup  catalog.Lookup
	Epsilon money.Money
	Logger  zerolog.Logger
}

// Service recomputes authoritative prices from the catalog.
type Service struct {
	lookup  catalog.Lookup
	epsilon money.Money
	logger  zerolog.Logger
}

// NewService constructs a Service. Epsilon defaults to one minor unit.
func NewService(cfg Config) *Service {
	eps := cfg.Epsilon
	if eps < 1 {
		eps = 1
	}
	return &Service{lookup: cfg.Lookup, epsilon: eps, logger: cfg.Logger}
}

// Epsilon returns the tolerance used for price comparisons.
func (s *Service) Epsilon() money.Money { return s.epsilon }

// Snapshot loads one snapshot covering every item.
func (s *Service) Snapshot(ctx context.Context, items []Item) (*catalog.Snapshot, error) {
	if s.lookup == nil {
		return nil, errors.New("reprice: catalog lookup not configured")
	}
	var refs catalog.Refs
	for _, it := range items {
		refs = refs.Merge(it.Line.Refs())
	}
	snap, err := s.lookup.Snapshot(ctx, refs.Normalize())
	if err != nil {
		return nil, fmt.Errorf("load catalog snapshot: %w", err)
	}
	return snap, nil
}

// Quote validates and prices a single line against a fresh snapshot.
func (s *Service) Quote(ctx context.Context, line configurator.Line) (pricing.Breakdown, error) {
	snap, err := s.Snapshot(ctx, []Item{{Line: line}})
	if err != nil {
		return pricing.Breakdown{}, err
	}
	b, err := pricing.Quote(line, snap)
	obs.ObserveQuote(string(line.Kind), outcome(err))
	return b, err
}

// Reprice prices every item from one batched snapshot. The returned error
// only reports a snapshot failure; per-line failures are carried in Result.Err.
func (s *Service) Reprice(ctx context.Context, items []Item) ([]Result, error) {
	ctx, span := otel.Tracer("reprice").Start(ctx, "reprice.Reprice")
	defer span.End()
	span.SetAttributes(attribute.Int("reprice.items", len(items)))

	snap, err := s.Snapshot(ctx, items)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return RepriceWith(snap, items), nil
}

// RepriceWith prices items against snap. Each line is independent of the others.
func RepriceWith(snap *catalog.Snapshot, items []Item) []Result {
	out := make([]Result, len(items))
	for i, it := range items {
		b, err := pricing.Quote(it.Line, snap)
		obs.ObserveRepriceLine(outcome(err))
		if err != nil {
			out[i] = Result{ID: it.ID, Err: err}
			continue
		}
		out[i] = Result{ID: it.ID, Breakdown: b, CurrentPrice: b.Total}
	}
	return out
}

// Verify runs the verification protocol over claims against a fresh snapshot.
// It returns a *LineError for the first line that cannot be priced, a
// *PriceMismatchError if any line or the aggregate diverges beyond epsilon,
// or nil. The Verification is returned in every case except snapshot failure.
func (s *Service) Verify(ctx context.Context, claims []Claim) (Verification, error) {
	ctx, span := otel.Tracer("reprice").Start(ctx, "reprice.Verify")
	defer span.End()
	span.SetAttributes(attribute.Int("reprice.lines", len(claims)))

	items := make([]Item, len(claims))
	for i, c := range claims {
		items[i] = c.Item
	}
	snap, err := s.Snapshot(ctx, items)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Verification{}, err
	}
	v, err := s.VerifyWith(snap, claims)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.logger.Warn().Err(err).Int("lines", len(claims)).Msg("price verification failed")
	}
	return v, err
}

// VerifyWith is Verify against an explicit snapshot.
func (s *Service) VerifyWith(snap *catalog.Snapshot, claims []Claim) (Verification, error) {
	items := make([]Item, len(claims))
	for i, c := range claims {
		items[i] = c.Item
	}
	results := RepriceWith(snap, items)

	v := Verification{Lines: make([]LineCheck, len(claims)), Snapshot: snap}
	clientSum := decimal.Zero
	currentSum := decimal.Zero
	var firstErr error
	var mismatches []LineMismatch

	for i, c := range claims {
		check := LineCheck{Result: results[i], Quantity: c.Quantity, ClientUnitPrice: c.ClientUnitPrice}
		if check.Err != nil {
			if firstErr == nil {
				firstErr = &LineError{ID: c.ID, Err: check.Err}
			}
			v.Lines[i] = check
			continue
		}
		qty := decimal.NewFromInt(int64(c.Quantity))
		clientSum = clientSum.Add(c.ClientUnitPrice.Minor().Mul(qty))
		currentSum = currentSum.Add(check.CurrentPrice.Minor().Mul(qty))

		check.Matches = money.WithinEpsilon(c.ClientUnitPrice.Minor(), check.CurrentPrice.Minor(), s.epsilon)
		if check.Matches {
			obs.ObserveVerifyLine("match")
		} else {
			obs.ObserveVerifyLine("mismatch")
			mismatches = append(mismatches, LineMismatch{ID: c.ID, ClientUnitPrice: c.ClientUnitPrice, CurrentUnitPrice: check.CurrentPrice})
		}
		v.Lines[i] = check
	}
	current, err := money.FromMinor(currentSum)
	if err != nil {
		return v, fmt.Errorf("current total: %w", err)
	}
	v.CurrentTotal = current
	client, err := money.FromMinor(clientSum)
	if err != nil && firstErr == nil {
		firstErr = common.BadRequest("client prices are out of range", err)
	}
	v.ClientTotal = client

	if firstErr != nil {
		return v, firstErr
	}
	if len(mismatches) > 0 || !money.WithinEpsilon(clientSum, currentSum, s.epsilon) {
		return v, &PriceMismatchError{Lines: mismatches, ClientTotal: v.ClientTotal, CurrentTotal: v.CurrentTotal}
	}
	return v, nil
}

func outcome(err error) string {
	var verr *configurator.ValidationError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &verr):
		return "invalid"
	case errors.Is(err, catalog.ErrUnknownReference):
		return "unknown_reference"
	default:
		return "error"
	}
}
