package yahoo

import (
	"fmt"
	"strings"

	"github.com/aristath/playground/internal/config"
	"github.com/aristath/playground/internal/domain"
)

// converter turns provider-quoted currencies into the base currency.
type converter struct {
	base  string
	pool  map[string]config.CurrencyConversion
	rates domain.CurrencyExchangeServiceInterface
}

// resolve maps a quoted currency to its real currency and scale, e.g. GBp to GBP x 0.01.
// Pool keys are case-sensitive since GBp and GBP differ only by case.
func (c converter) resolve(quoted string) (string, float64) {
	if conv, ok := c.pool[quoted]; ok {
		return conv.To, conv.Rate
	}
	return strings.ToUpper(quoted), 1
}

// factor is the multiplier from quoted prices to base-currency prices.
func (c converter) factor(quoted string) (float64, domain.Currency, error) {
	if quoted == "" {
		return 1, domain.Currency(c.base), nil
	}
	cur, scale := c.resolve(quoted)
	if cur == c.base {
		return scale, domain.Currency(c.base), nil
	}
	if c.rates == nil {
		return 0, "", fmt.Errorf("no exchange rate source for %s->%s", cur, c.base)
	}
	rate, err := c.rates.GetRate(cur, c.base)
	if err != nil {
		return 0, "", fmt.Errorf("failed to get %s->%s rate: %w", cur, c.base, err)
	}
	return scale * rate, domain.Currency(c.base), nil
}

func scaleBars(bars []domain.Bar, f float64) []domain.Bar {
	if f == 1 {
		return bars
	}
	out := make([]domain.Bar, len(bars))
	for i, b := range bars {
		b.Open *= f
		b.High *= f
		b.Low *= f
		b.Close *= f
		b.AdjClose *= f
		out[i] = b
	}
	return out
}
