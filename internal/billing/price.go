// Package billing computes subscription prices, proration and billing dates.
package billing

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Default plan parameters.
const (
	DefaultBasePrice = 40.0
	DefaultCurrency  = "AUD"
	DefaultCycleDays = 30
)

// Calculator prices plans from a per-user base price.
type Calculator struct {
	BasePrice float64
	Currency  string
	CycleDays int
}

// NewCalculator returns a calculator with the default plan.
func NewCalculator() Calculator {
	return Calculator{BasePrice: DefaultBasePrice, Currency: DefaultCurrency, CycleDays: DefaultCycleDays}
}

// Price is the monthly cost of a plan.
type Price struct {
	Users              int     `json:"userCount"`
	BasePrice          float64 `json:"basePrice"`
	UnitPrice          float64 `json:"unitPrice"`
	TotalPrice         float64 `json:"totalPrice"`
	DiscountPercentage int     `json:"discountPercentage"`
	DiscountedAmount   float64 `json:"discountedAmount"`
	Currency           string  `json:"currency"`
}

// Discount returns the volume discount in percent: 20 for 5 to 9 users, 30
// for 10 or more.
func Discount(users int) int {
	switch {
	case users >= 10:
		return 30
	case users >= 5:
		return 20
	}
	return 0
}

// Price computes the monthly price for users seats.
func (c Calculator) Price(users int) Price {
	discount := Discount(users)
	full := c.BasePrice * float64(users)
	total := full * (1 - float64(discount)/100)

	unit := 0.0
	if users > 0 {
		unit = total / float64(users)
	}
	return Price{
		Users:              users,
		BasePrice:          c.BasePrice,
		UnitPrice:          round2(unit),
		TotalPrice:         round2(total),
		DiscountPercentage: discount,
		DiscountedAmount:   round2(full - total),
		Currency:           c.Currency,
	}
}

// Proration is the charge or refund for changing seats mid-cycle.
type Proration struct {
	CurrentPrice    float64 `json:"currentPrice"`
	NewPrice        float64 `json:"newPrice"`
	ProratedCharge  float64 `json:"proratedCharge"`
	DaysRemaining   int     `json:"daysRemaining"`
	CycleDays       int     `json:"totalDaysInCycle"`
	ImmediateCharge float64 `json:"immediateCharge"`
	IsRefund        bool    `json:"isRefund"`
	RefundAmount    float64 `json:"refundAmount"`
	Currency        string  `json:"currency"`
}

// Prorate prices a change from current to next users with daysRemaining
// left in a cycle of cycleDays. A zero cycleDays uses the calculator's cycle.
func (c Calculator) Prorate(current, next, daysRemaining, cycleDays int) Proration {
	cycleDays = c.cycle(cycleDays)
	cur := c.Price(current)
	nxt := c.Price(next)

	charge := (nxt.TotalPrice/float64(cycleDays) - cur.TotalPrice/float64(cycleDays)) * float64(daysRemaining)
	p := Proration{
		CurrentPrice:   cur.TotalPrice,
		NewPrice:       nxt.TotalPrice,
		ProratedCharge: round2(charge),
		DaysRemaining:  daysRemaining,
		CycleDays:      cycleDays,
		Currency:       c.Currency,
	}
	if charge > 0 {
		p.ImmediateCharge = round2(charge)
	}
	if charge < 0 {
		p.IsRefund = true
		p.RefundAmount = round2(math.Abs(charge))
	}
	return p
}

// SeatCharge is the cost of adding seats mid-cycle.
type SeatCharge struct {
	CurrentUsers          int     `json:"currentUserCount"`
	NewUsers              int     `json:"newUserCount"`
	SeatsToAdd            int     `json:"seatsToAdd"`
	PerSeatMonthlyCharge  float64 `json:"perSeatMonthlyCharge"`
	ProratedPerSeatCharge float64 `json:"proratedPerSeatCharge"`
	TotalNewSeatCharge    float64 `json:"totalNewSeatCharge"`
	DaysRemaining         int     `json:"daysRemaining"`
	CycleDays             int     `json:"totalDaysInCycle"`
	ProrationPercent      float64 `json:"proration"`
	CurrentMonthlyTotal   float64 `json:"currentMonthlyTotal"`
	NewMonthlyTotal       float64 `json:"newMonthlyTotal"`
	NextBillingAmount     float64 `json:"nextBillingAmount"`
	Currency              string  `json:"currency"`
}

// NewSeatCharge prices adding seats to a plan of current users.
func (c Calculator) NewSeatCharge(current, seats, daysRemaining, cycleDays int) SeatCharge {
	cycleDays = c.cycle(cycleDays)
	cur := c.Price(current)
	nxt := c.Price(current + seats)
	proration := float64(daysRemaining) / float64(cycleDays)

	return SeatCharge{
		CurrentUsers:          current,
		NewUsers:              current + seats,
		SeatsToAdd:            seats,
		PerSeatMonthlyCharge:  c.BasePrice,
		ProratedPerSeatCharge: round2(c.BasePrice * proration),
		TotalNewSeatCharge:    round2(nxt.TotalPrice - cur.TotalPrice),
		DaysRemaining:         daysRemaining,
		CycleDays:             cycleDays,
		ProrationPercent:      math.Round(proration*1000) / 10,
		CurrentMonthlyTotal:   cur.TotalPrice,
		NewMonthlyTotal:       nxt.TotalPrice,
		NextBillingAmount:     nxt.TotalPrice,
		Currency:              c.Currency,
	}
}

func (c Calculator) cycle(days int) int {
	if days > 0 {
		return days
	}
	if c.CycleDays > 0 {
		return c.CycleDays
	}
	return DefaultCycleDays
}

// FormatCurrency renders amount in the calculator's currency. Amounts above
// 1000 are taken to be in cents.
func (c Calculator) FormatCurrency(amount float64) string {
	if amount > 1000 {
		amount /= 100
	}
	p := message.NewPrinter(language.AmericanEnglish)
	return symbol(c.Currency) + p.Sprintf("%.2f", amount)
}

func symbol(code string) string {
	switch code {
	case "", "AUD":
		return "A$"
	case "USD":
		return "$"
	case "EUR":
		return "€"
	}
	return code + " "
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
