// Package population models the simulated trader population: starting
// wealth, recurring income and the trait vector of every agent.
package population

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/aristath/playground/internal/domain"
)

// AlphaFromGini returns the Pareto shape matching a Gini coefficient.
func AlphaFromGini(gini float64) float64 {
	return 1/(2*gini) + 0.5
}

// GiniFromAlpha is the inverse of AlphaFromGini.
func GiniFromAlpha(alpha float64) float64 {
	return 1 / (2*alpha - 1)
}

// MonthlyIncomeStd is the monthly income standard deviation for a mean
// annual income and Gini coefficient.
func MonthlyIncomeStd(meanAnnualIncome, gini float64) float64 {
	var sigmaAnnual float64
	if gini >= 0.6 {
		sigmaAnnual = meanAnnualIncome * math.Sqrt(math.Log(1+gini*gini))
	} else {
		sigmaAnnual = (0.5 + 0.5*gini) * meanAnnualIncome
	}
	return sigmaAnnual / math.Sqrt(12)
}

// IncomeModel draws annual incomes whose mean is MeanIncome: Pareto below a
// Gini of 0.5, log-normal from 0.5 up.
type IncomeModel struct {
	Gini       float64
	MeanIncome float64
	Alpha      float64

	pareto    distuv.Pareto
	lognormal distuv.LogNormal
}

// NewIncomeModel validates the parameters. An unsatisfiable model returns
// ErrConfiguration.
func NewIncomeModel(gini, meanIncome float64, src rand.Source) (*IncomeModel, error) {
	if gini <= 0 || gini > 1 || math.IsNaN(gini) {
		return nil, fmt.Errorf("%w: gini coefficient %v outside (0, 1]", domain.ErrConfiguration, gini)
	}
	if meanIncome <= 0 {
		return nil, fmt.Errorf("%w: mean income %v must be positive", domain.ErrConfiguration, meanIncome)
	}

	m := &IncomeModel{Gini: gini, MeanIncome: meanIncome, Alpha: AlphaFromGini(gini)}
	if gini < 0.5 {
		if m.Alpha <= 1 {
			return nil, fmt.Errorf("%w: pareto alpha %.4f from gini %.4f must exceed 1", domain.ErrConfiguration, m.Alpha, gini)
		}
		xMin := meanIncome * (m.Alpha - 1) / m.Alpha
		m.pareto = distuv.Pareto{Xm: xMin, Alpha: m.Alpha, Src: src}
	} else {
		sigma := 2 * gini
		m.lognormal = distuv.LogNormal{Mu: math.Log(meanIncome) - sigma*sigma/2, Sigma: sigma, Src: src}
	}
	return m, nil
}

// DrawMonthlyIncome draws an annual income and returns it per month.
func (m *IncomeModel) DrawMonthlyIncome() float64 {
	if m.Gini < 0.5 {
		return m.pareto.Rand() / 12
	}
	return m.lognormal.Rand() / 12
}

// MonthlySigma is the spread of each monthly payment around the mean.
func (m *IncomeModel) MonthlySigma() float64 {
	return MonthlyIncomeStd(m.MeanIncome, m.Gini)
}
