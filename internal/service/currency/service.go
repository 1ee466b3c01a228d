package currency

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/roamsim/storefront-api/internal/model"
	apperrors "github.com/roamsim/storefront-api/pkg/errors"
	"github.com/roamsim/storefront-api/pkg/logger"
)

// table is the static conversion table. Rates are fixed constants
// relative to USD, not fetched live. The first entry is the default.
var table = []model.Currency{
	{Code: "USD", CountryCode: "US", Symbol: "$", Rate: 1.0, Decimals: 2},
	{Code: "EUR", CountryCode: "EU", Symbol: "€", Rate: 0.85, Decimals: 2},
	{Code: "GBP", CountryCode: "GB", Symbol: "£", Rate: 0.73, Decimals: 2},
	{Code: "AUD", CountryCode: "AU", Symbol: "A$", Rate: 1.52, Decimals: 2},
	{Code: "CAD", CountryCode: "CA", Symbol: "C$", Rate: 1.36, Decimals: 2},
	{Code: "JPY", CountryCode: "JP", Symbol: "¥", Rate: 149.0, Decimals: 0},
	{Code: "CHF", CountryCode: "CH", Symbol: "CHF ", Rate: 0.88, Decimals: 2},
	{Code: "AED", CountryCode: "AE", Symbol: "AED ", Rate: 3.67, Decimals: 2},
}

// Listener is notified synchronously after a selection change.
type Listener func(clientID string, selected model.Currency)

// Service converts and formats display prices against the static rate
// table and persists each client's selection.
type Service struct {
	index     map[string]model.Currency
	store     SelectionStore
	logger    *logger.Logger
	mu        sync.RWMutex
	listeners []Listener
}

func NewService(store SelectionStore, log *logger.Logger) *Service {
	index := make(map[string]model.Currency, len(table))
	for _, c := range table {
		index[c.Code] = c
	}
	return &Service{
		index:  index,
		store:  store,
		logger: log,
	}
}

// Currencies returns the supported currency table in display order.
func (s *Service) Currencies() []model.Currency {
	out := make([]model.Currency, len(table))
	copy(out, table)
	return out
}

// Lookup resolves a code to its table entry; unknown codes silently fall
// back to the first entry (USD), so a valid rate always exists.
func (s *Service) Lookup(code string) model.Currency {
	if c, ok := s.index[strings.ToUpper(code)]; ok {
		return c
	}
	return table[0]
}

// Convert routes the amount through the implicit USD base: divide by the
// source rate, multiply by the target rate.
func (s *Service) Convert(amount float64, from, to string) float64 {
	src := s.Lookup(from)
	dst := s.Lookup(to)
	return amount / src.Rate * dst.Rate
}

// Format renders a price in the given currency. Zero always formats as
// "Free"; that is a product decision, not a bug.
func (s *Service) Format(amount float64, code string) string {
	if amount == 0 {
		return "Free"
	}
	c := s.Lookup(code)
	return fmt.Sprintf("%s%.*f", c.Symbol, c.Decimals, amount)
}

// FormatPtr is Format for optional prices; absent prices are "Free".
func (s *Service) FormatPtr(amount *float64, code string) string {
	if amount == nil {
		return "Free"
	}
	return s.Format(*amount, code)
}

// Selection returns the client's persisted currency, defaulting to USD
// when nothing is stored or the stored code is unknown.
func (s *Service) Selection(ctx context.Context, clientID string) model.Currency {
	code, err := s.store.Get(ctx, clientID)
	if err != nil {
		if apperrors.Code(err) != apperrors.ErrNotFound {
			s.logger.Warn("currency selection unreadable", "client_id", clientID, "error", err.Error())
		}
		return table[0]
	}
	return s.Lookup(code)
}

// SetSelection is the single mutation point for a client's currency.
// Listeners are notified synchronously after the store write.
func (s *Service) SetSelection(ctx context.Context, clientID, code string) (model.Currency, error) {
	c, ok := s.index[strings.ToUpper(code)]
	if !ok {
		return model.Currency{}, apperrors.Validation("unsupported currency code")
	}
	if err := s.store.Set(ctx, clientID, c.Code); err != nil {
		return model.Currency{}, err
	}

	s.mu.RLock()
	listeners := s.listeners
	s.mu.RUnlock()
	for _, notify := range listeners {
		notify(clientID, c)
	}
	return c, nil
}

// Subscribe registers a listener for selection changes.
func (s *Service) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}
