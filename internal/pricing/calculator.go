package pricing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avstrong/rentals/internal/rental"
)

// MinorUnits is the number of decimal places prices are rounded to.
const MinorUnits = 2

const BaseRateLabel = "base rate"

type Night struct {
	Date       time.Time
	BasePrice  decimal.Decimal
	Multiplier decimal.Decimal
	Price      decimal.Decimal
	Rule       string
}

type Quote struct {
	ListingID         int64
	CheckIn           time.Time
	CheckOut          time.Time
	Nights            int
	Currency          string
	BasePricePerNight decimal.Decimal
	Total             decimal.Decimal
	AverageNightly    decimal.Decimal
	Breakdown         []Night
}

// Round rounds a money amount half-up to the currency minor unit.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(MinorUnits)
}

// Calculate prices every night of [checkIn, checkOut) for the listing.
//
// When several rules cover the same night the highest multiplier wins; equal
// multipliers fall back to the earlier start date and then the lower rule id.
// Each night is rounded before summing, so Total always equals the sum of the
// breakdown.
func Calculate(l *rental.Listing, rules []rental.PricingRule, checkIn, checkOut time.Time) (*Quote, error) {
	checkIn, checkOut = rental.Day(checkIn), rental.Day(checkOut)

	if !checkIn.Before(checkOut) {
		return nil, fmt.Errorf("check_out %s must be after check_in %s: %w",
			checkOut.Format(rental.DateLayout), checkIn.Format(rental.DateLayout), rental.ErrInvalidRange)
	}

	for i := range rules {
		if err := rules[i].Check(); err != nil {
			return nil, fmt.Errorf("listing %d: %w", l.ID, err)
		}
	}

	nights := rental.Nights(checkIn, checkOut)

	quote := &Quote{
		ListingID:         l.ID,
		CheckIn:           checkIn,
		CheckOut:          checkOut,
		Nights:            nights,
		Currency:          l.Currency,
		BasePricePerNight: l.BasePricePerNight,
		Total:             decimal.Zero,
		Breakdown:         make([]Night, 0, nights),
	}

	for day := checkIn; day.Before(checkOut); day = day.AddDate(0, 0, 1) {
		multiplier, label := decimal.NewFromInt(1), BaseRateLabel

		if rule := winningRule(rules, day); rule != nil {
			multiplier, label = rule.Multiplier, ruleLabel(rule)
		}

		price := Round(l.BasePricePerNight.Mul(multiplier))

		quote.Breakdown = append(quote.Breakdown, Night{
			Date:       day,
			BasePrice:  l.BasePricePerNight,
			Multiplier: multiplier,
			Price:      price,
			Rule:       label,
		})
		quote.Total = quote.Total.Add(price)
	}

	quote.Nights = len(quote.Breakdown)
	quote.AverageNightly = quote.Total.DivRound(decimal.NewFromInt(int64(quote.Nights)), MinorUnits)

	return quote, nil
}

func winningRule(rules []rental.PricingRule, day time.Time) *rental.PricingRule {
	var best *rental.PricingRule

	for i := range rules {
		rule := &rules[i]
		if !rule.Covers(day) {
			continue
		}

		if best == nil || outranks(rule, best) {
			best = rule
		}
	}

	return best
}

func outranks(a, b *rental.PricingRule) bool {
	if c := a.Multiplier.Cmp(b.Multiplier); c != 0 {
		return c > 0
	}

	if !a.StartDate.Equal(b.StartDate) {
		return a.StartDate.Before(b.StartDate)
	}

	return a.ID < b.ID
}

func ruleLabel(rule *rental.PricingRule) string {
	if rule.Name != "" {
		return rule.Name
	}

	return fmt.Sprintf("Seasonal (%s to %s)", rule.StartDate.Format(rental.DateLayout), rule.EndDate.Format(rental.DateLayout))
}
