package dto

import (
	"time"

	"staysync/internal/domain/properties"
)

type Pricing struct {
	BasePrice   int64  `json:"base_price"`
	CleaningFee int64  `json:"cleaning_fee"`
	ServiceFee  int64  `json:"service_fee"`
	Currency    string `json:"currency"`
}

type Property struct {
	ID          string            `json:"id"`
	HostID      string            `json:"host_id"`
	Title       string            `json:"title"`
	Status      string            `json:"status"`
	Pricing     Pricing           `json:"pricing"`
	Connections map[string]string `json:"connections"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func MapProperty(p *properties.Property) Property {
	if p == nil {
		return Property{}
	}
	conns := make(map[string]string, len(p.Connections))
	for _, platform := range p.Connections.Platforms() {
		id, _ := p.Connections.ID(platform)
		conns[string(platform)] = id
	}
	return Property{
		ID:     string(p.ID),
		HostID: string(p.HostID),
		Title:  p.Title,
		Status: string(p.Status),
		Pricing: Pricing{
			BasePrice:   p.Pricing.BasePrice,
			CleaningFee: p.Pricing.CleaningFee,
			ServiceFee:  p.Pricing.ServiceFee,
			Currency:    p.Pricing.Currency,
		},
		Connections: conns,
		UpdatedAt:   p.UpdatedAt,
	}
}
