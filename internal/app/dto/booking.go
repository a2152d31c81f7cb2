package dto

import (
	"time"

	domainbooking "staysync/internal/domain/booking"
	domainpricing "staysync/internal/domain/pricing"
	"staysync/internal/domain/shared/daterange"
	"staysync/internal/domain/shared/money"
)

type MoneyDTO struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func MapMoney(m money.Money) MoneyDTO {
	return MoneyDTO{Amount: m.Amount, Currency: m.Currency}
}

type PriceBreakdown struct {
	Nights      int      `json:"nights"`
	BasePrice   MoneyDTO `json:"base_price"`
	Subtotal    MoneyDTO `json:"subtotal"`
	CleaningFee MoneyDTO `json:"cleaning_fee"`
	ServiceFee  MoneyDTO `json:"service_fee"`
	Total       MoneyDTO `json:"total"`
}

func MapQuote(q domainpricing.Quote) PriceBreakdown {
	return PriceBreakdown{
		Nights:      q.Nights,
		BasePrice:   MapMoney(q.BasePrice),
		Subtotal:    MapMoney(q.Subtotal),
		CleaningFee: MapMoney(q.CleaningFee),
		ServiceFee:  MapMoney(q.ServiceFee),
		Total:       MapMoney(q.Total),
	}
}

type Guests struct {
	Adults   int `json:"adults"`
	Children int `json:"children"`
	Pets     int `json:"pets"`
}

type GuestDetails struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Phone           string `json:"phone,omitempty"`
	SpecialRequests string `json:"special_requests,omitempty"`
}

type Payment struct {
	Method        string     `json:"method"`
	Type          string     `json:"type"`
	Status        string     `json:"status"`
	AmountDue     MoneyDTO   `json:"amount_due"`
	AmountPaid    MoneyDTO   `json:"amount_paid"`
	TransactionID string     `json:"transaction_id,omitempty"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
}

type Booking struct {
	ID                string         `json:"id"`
	PropertyID        string         `json:"property_id"`
	GuestID           string         `json:"guest_id"`
	CheckIn           string         `json:"check_in"`
	CheckOut          string         `json:"check_out"`
	Guests            Guests         `json:"guests"`
	GuestDetails      GuestDetails   `json:"guest_details"`
	Price             PriceBreakdown `json:"price"`
	Status            string         `json:"status"`
	Payment           Payment        `json:"payment"`
	Platform          string         `json:"platform"`
	PlatformBookingID string         `json:"platform_booking_id,omitempty"`
	SyncStatus        string         `json:"sync_status"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

func MapBooking(b *domainbooking.Booking) Booking {
	if b == nil {
		return Booking{}
	}
	payment := Payment{
		Method:        b.Payment.Method,
		Type:          string(b.Payment.Type),
		Status:        string(b.Payment.Status),
		AmountDue:     MapMoney(b.Payment.AmountDue),
		AmountPaid:    MapMoney(b.Payment.AmountPaid),
		TransactionID: b.Payment.TransactionID,
	}
	if !b.Payment.PaidAt.IsZero() {
		paidAt := b.Payment.PaidAt
		payment.PaidAt = &paidAt
	}
	return Booking{
		ID:         string(b.ID),
		PropertyID: string(b.PropertyID),
		GuestID:    b.GuestID,
		CheckIn:    b.Range.Start.Format(daterange.Layout),
		CheckOut:   b.Range.End.Format(daterange.Layout),
		Guests:     Guests{Adults: b.Guests.Adults, Children: b.Guests.Children, Pets: b.Guests.Pets},
		GuestDetails: GuestDetails{
			Name:            b.GuestDetails.Name,
			Email:           b.GuestDetails.Email,
			Phone:           b.GuestDetails.Phone,
			SpecialRequests: b.GuestDetails.SpecialRequests,
		},
		Price:             MapQuote(b.Price),
		Status:            string(b.Status),
		Payment:           payment,
		Platform:          string(b.Platform),
		PlatformBookingID: b.PlatformBookingID,
		SyncStatus:        string(b.SyncStatus),
		CreatedAt:         b.CreatedAt,
		UpdatedAt:         b.UpdatedAt,
	}
}

func MapBookings(items []*domainbooking.Booking) []Booking {
	out := make([]Booking, 0, len(items))
	for _, b := range items {
		out = append(out, MapBooking(b))
	}
	return out
}
