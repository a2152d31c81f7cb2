package pricing

import (
	"staysync/internal/domain/properties"
	"staysync/internal/domain/shared/daterange"
	"staysync/internal/domain/shared/fault"
	"staysync/internal/domain/shared/money"
)

var (
	ErrNoNights           = fault.New("pricing", "stay must span at least one night", fault.ErrInvalidInput)
	ErrUnknownPaymentType = fault.New("pricing", "payment type must be full or partial", fault.ErrInvalidInput)
)

// PointsDivisor converts a booking total into loyalty points.
const PointsDivisor = 100

type PaymentType string

const (
	PaymentFull    PaymentType = "full"
	PaymentPartial PaymentType = "partial"
)

func ParsePaymentType(raw string) (PaymentType, error) {
	switch t := PaymentType(raw); t {
	case PaymentFull, PaymentPartial:
		return t, nil
	case "":
		return PaymentFull, nil
	}
	return "", ErrUnknownPaymentType
}

// Quote is the price breakdown of a stay.
type Quote struct {
	Nights      int
	BasePrice   money.Money
	Subtotal    money.Money
	CleaningFee money.Money
	ServiceFee  money.Money
	Total       money.Money
}

// Calculate prices a stay: base price per night plus flat fees.
func Calculate(p properties.Pricing, r daterange.Range) (Quote, error) {
	nights := r.Nights()
	if nights < 1 {
		return Quote{}, ErrNoNights
	}
	base, err := money.New(p.BasePrice, p.Currency)
	if err != nil {
		return Quote{}, err
	}
	cleaning, err := money.New(p.CleaningFee, p.Currency)
	if err != nil {
		return Quote{}, err
	}
	service, err := money.New(p.ServiceFee, p.Currency)
	if err != nil {
		return Quote{}, err
	}
	subtotal := base.Multiply(int64(nights))
	total, err := subtotal.Add(cleaning)
	if err != nil {
		return Quote{}, err
	}
	total, err = total.Add(service)
	if err != nil {
		return Quote{}, err
	}
	return Quote{
		Nights:      nights,
		BasePrice:   base,
		Subtotal:    subtotal,
		CleaningFee: cleaning,
		ServiceFee:  service,
		Total:       total,
	}, nil
}

// AmountDue is what the guest pays now: the total, or half of it rounded up.
func (q Quote) AmountDue(t PaymentType) (money.Money, error) {
	switch t {
	case PaymentFull:
		return q.Total, nil
	case PaymentPartial:
		return q.Total.HalfUp(), nil
	}
	return money.Money{}, ErrUnknownPaymentType
}

// LoyaltyPoints awards one point per PointsDivisor units of the total.
func LoyaltyPoints(total money.Money) int64 {
	if total.Amount <= 0 {
		return 0
	}
	return total.Amount / PointsDivisor
}
