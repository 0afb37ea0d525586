package universe

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aristath/playground/internal/domain"
)

// Entry is one ticker of the universe file. Every field except Symbol is an
// optional override of what the provider reports.
type Entry struct {
	Symbol            string  `yaml:"symbol"`
	Name              string  `yaml:"name,omitempty"`
	Sector            string  `yaml:"sector,omitempty"`
	Industry          string  `yaml:"industry,omitempty"`
	Country           string  `yaml:"country,omitempty"`
	Region            string  `yaml:"region,omitempty"`
	SharesOutstanding float64 `yaml:"shares_outstanding,omitempty"`
	Revenue           float64 `yaml:"revenue,omitempty"`
	Expenses          float64 `yaml:"expenses,omitempty"`
}

// Apply overwrites f with every field the entry sets. Zero values keep the
// provider's figure.
func (e Entry) Apply(f *domain.Fundamentals) {
	for dst, v := range map[*string]string{
		&f.Name:     e.Name,
		&f.Sector:   e.Sector,
		&f.Industry: e.Industry,
		&f.Country:  e.Country,
		&f.Region:   e.Region,
	} {
		if v != "" {
			*dst = v
		}
	}
	if e.SharesOutstanding > 0 {
		f.SharesOutstanding = e.SharesOutstanding
	}
	if e.Revenue != 0 {
		f.Revenue = e.Revenue
	}
	if e.Expenses != 0 {
		f.Expenses = e.Expenses
	}
}

// File is the YAML universe definition.
type File struct {
	Tickers []Entry `yaml:"tickers"`
}

// LoadFile reads a universe file.
func LoadFile(path string) (File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("failed to read universe file: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return File{}, fmt.Errorf("failed to parse universe file %s: %w", path, err)
	}
	seen := make(map[string]bool, len(f.Tickers))
	for _, e := range f.Tickers {
		if e.Symbol == "" {
			return File{}, fmt.Errorf("universe file %s: entry without symbol", path)
		}
		if seen[e.Symbol] {
			return File{}, fmt.Errorf("universe file %s: duplicate symbol %s", path, e.Symbol)
		}
		seen[e.Symbol] = true
	}
	return f, nil
}

// DefaultTickers is the universe used when none is configured: five large
// companies from each of technology, healthcare, energy, finance and retail,
// plus four Asian majors.
var DefaultTickers = []string{
	"AAPL", "TSLA", "NVDA", "INTC", "MSFT",
	"PFE", "JNJ", "MRNA", "ABT", "AMGN",
	"XOM", "CVX", "BP", "SHEL", "TTE",
	"JPM", "BAC", "C", "GS", "MS",
	"AMZN", "WMT", "COST", "TGT", "HD",
	"TSM", "TM", "SFTBY", "BABA",
}

// Merge appends an entry for every ticker not already in entries.
func Merge(entries []Entry, tickers []string) []Entry {
	seen := make(map[string]bool, len(entries))
	out := make([]Entry, 0, len(entries)+len(tickers))
	for _, e := range entries {
		seen[e.Symbol] = true
		out = append(out, e)
	}
	for _, t := range tickers {
		if !seen[t] {
			seen[t] = true
			out = append(out, Entry{Symbol: t})
		}
	}
	return out
}

// EntriesFor turns a plain ticker list into entries without overrides.
func EntriesFor(tickers []string) []Entry {
	out := make([]Entry, 0, len(tickers))
	for _, t := range tickers {
		out = append(out, Entry{Symbol: t})
	}
	return out
}

// Universe is the set of companies the synthetic market is built from.
type Universe struct {
	StartDate time.Time
	Companies []domain.CompanySnapshot
	Histories map[string]domain.SecurityHistory
}

// Tickers returns the company tickers in order.
func (u *Universe) Tickers() []string {
	out := make([]string, len(u.Companies))
	for i, c := range u.Companies {
		out[i] = c.Ticker
	}
	return out
}

// Company looks a company up by ticker.
func (u *Universe) Company(ticker string) (domain.CompanySnapshot, bool) {
	i := sort.Search(len(u.Companies), func(i int) bool { return u.Companies[i].Ticker >= ticker })
	if i < len(u.Companies) && u.Companies[i].Ticker == ticker {
		return u.Companies[i], true
	}
	return domain.CompanySnapshot{}, false
}

// TotalMarketCap sums the market cap of companies trading on the start date.
func (u *Universe) TotalMarketCap() float64 {
	total := 0.0
	for _, c := range u.Companies {
		if c.Active {
			total += c.MarketCap
		}
	}
	return total
}

// Sectors returns the distinct sector names in order.
func (u *Universe) Sectors() []string {
	return u.distinct(func(c domain.CompanySnapshot) string { return c.Sector })
}

// Regions returns the distinct region names in order.
func (u *Universe) Regions() []string {
	return u.distinct(func(c domain.CompanySnapshot) string { return c.Region })
}

func (u *Universe) distinct(key func(domain.CompanySnapshot) string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range u.Companies {
		k := key(c)
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
