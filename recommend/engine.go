/*
Recommendation engine for budget advice.

PURPOSE:
  Pure decision logic: given a financial profile (income, expenses,
  balance, risk tier) produce deterministic budget advice. No storage, no
  events, no clock; the same profile always yields the same advice.

BANDS:
  Risk tiers 1-5 collapse into three bands. Conservative profiles are
  steered toward a larger emergency fund and a higher savings rate;
  aggressive profiles free up more of the surplus for investment.

SEE ALSO:
  service.go for the batch contract that persists generated advice.
*/
package recommend

import (
	"github.com/shopspring/decimal"

	"github.com/warp/batch-engine/batch"
)

// Risk bands derived from the 1-5 risk tier.
const (
	BandConservative = "conservative"
	BandModerate     = "moderate"
	BandAggressive   = "aggressive"
)

// NoteExpensesExceedIncome flags profiles that spend more than they earn.
// Advice for such profiles never scores above ReviewConfidenceCap.
const NoteExpensesExceedIncome = "expenses exceed income, review needed"

const (
	baseConfidence = 55
	surplusBonus   = 20
	maxMarginBonus = 10
	maxRunwayBonus = 25
	maxConfidence  = 100
	// ReviewConfidenceCap bounds confidence when expenses exceed income.
	ReviewConfidenceCap = 70
)

// Savings rates per band, applied to the monthly surplus.
var (
	rateConservative = decimal.RequireFromString("0.50")
	rateModerate     = decimal.RequireFromString("0.35")
	rateAggressive   = decimal.RequireFromString("0.25")
)

// Emergency fund depth per band, in months of expenses.
var monthsByBand = map[string]int64{
	BandConservative: 6,
	BandModerate:     4,
	BandAggressive:   3,
}

// Profile is the input to the engine. Amounts are monthly figures in
// stroops; Balance is the current liquid balance.
type Profile struct {
	Income   batch.Amount `json:"monthly_income"`
	Expenses batch.Amount `json:"monthly_expenses"`
	Balance  batch.Amount `json:"current_balance"`
	RiskTier uint32       `json:"risk_tier"` // 1..5
}

// Advice is the engine's deterministic output for one profile.
type Advice struct {
	Band                string       `json:"band"`
	SuggestedSavings    batch.Amount `json:"suggested_savings"`
	EmergencyFundTarget batch.Amount `json:"emergency_fund_target"`
	Confidence          uint32       `json:"confidence"` // 0..100
	Note                string       `json:"note,omitempty"`
}

// Band maps a 1-5 risk tier to its band. Tiers outside the range are the
// caller's problem; the contract validates before calling.
func Band(tier uint32) string {
	switch {
	case tier <= 2:
		return BandConservative
	case tier == 3:
		return BandModerate
	default:
		return BandAggressive
	}
}

func rateFor(band string) decimal.Decimal {
	switch band {
	case BandConservative:
		return rateConservative
	case BandModerate:
		return rateModerate
	default:
		return rateAggressive
	}
}

// clamp converts a decimal stroop figure back to an Amount, saturating
// at the numeric bounds.
func clamp(d decimal.Decimal) batch.Amount {
	if d.GreaterThan(decimal.NewFromInt(int64(batch.MaxAmount))) {
		return batch.MaxAmount
	}
	if d.IsNegative() {
		return 0
	}
	return batch.Amount(d.IntPart())
}

// Evaluate produces advice for one profile.
func Evaluate(p Profile) Advice {
	band := Band(p.RiskTier)

	surplus := p.Income - p.Expenses
	if surplus < 0 {
		surplus = 0
	}
	suggested := clamp(decimal.NewFromInt(int64(surplus)).Mul(rateFor(band)))
	fund := clamp(decimal.NewFromInt(int64(p.Expenses)).Mul(decimal.NewFromInt(monthsByBand[band])))

	return Advice{
		Band:                band,
		SuggestedSavings:    suggested,
		EmergencyFundTarget: fund,
		Confidence:          confidence(p),
		Note:                note(p),
	}
}

func note(p Profile) string {
	if p.Expenses > p.Income {
		return NoteExpensesExceedIncome
	}
	return ""
}

// confidence scores how sound the advice is for the profile. Healthy
// margins and a long expense runway raise it; overspending caps it.
func confidence(p Profile) uint32 {
	score := int64(baseConfidence)

	if p.Income > p.Expenses {
		score += surplusBonus
		// One point per 5% of income kept as margin, capped.
		marginPct := int64(p.Income-p.Expenses) * 100 / int64(p.Income)
		bonus := marginPct / 5
		if bonus > maxMarginBonus {
			bonus = maxMarginBonus
		}
		score += bonus
	}

	// Five points per month of expenses the balance covers, capped.
	switch {
	case p.Expenses > 0:
		runway := int64(p.Balance) * 5 / int64(p.Expenses)
		if runway > maxRunwayBonus {
			runway = maxRunwayBonus
		}
		score += runway
	case p.Balance > 0:
		score += maxRunwayBonus
	}

	if score > maxConfidence {
		score = maxConfidence
	}
	if p.Expenses > p.Income && score > ReviewConfidenceCap {
		score = ReviewConfidenceCap
	}
	return uint32(score)
}
