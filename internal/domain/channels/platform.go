package channels

import (
	"sort"
	"strings"

	"staysync/internal/domain/shared/fault"
)

// Platform identifies the channel a booking came through.
type Platform string

const (
	Direct     Platform = "direct"
	Airbnb     Platform = "airbnb"
	Agoda      Platform = "agoda"
	BookingCom Platform = "booking"
)

var ErrUnknownPlatform = fault.New("channels", "unknown platform", fault.ErrInvalidInput)

// External lists the platforms the sync engine propagates to, in call order.
func External() []Platform {
	return []Platform{Airbnb, Agoda, BookingCom}
}

// Parse normalizes a platform name.
func Parse(raw string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(raw)))
	switch p {
	case Direct, Airbnb, Agoda, BookingCom:
		return p, nil
	}
	return "", ErrUnknownPlatform
}

// ParseExternal accepts only the external platforms.
func ParseExternal(raw string) (Platform, error) {
	p, err := Parse(raw)
	if err != nil {
		return "", err
	}
	if p == Direct {
		return "", ErrUnknownPlatform
	}
	return p, nil
}

func (p Platform) IsExternal() bool {
	return p == Airbnb || p == Agoda || p == BookingCom
}

func (p Platform) String() string { return string(p) }

// Connections maps an external platform to the property's id on that platform.
// A platform is connected iff it has a non-empty entry.
type Connections map[Platform]string

// ID returns the external id and whether the platform is connected.
func (c Connections) ID(p Platform) (string, bool) {
	id, ok := c[p]
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

func (c Connections) Connected(p Platform) bool {
	_, ok := c.ID(p)
	return ok
}

// With returns a copy with p connected under id.
func (c Connections) With(p Platform, id string) Connections {
	out := c.Clone()
	out[p] = id
	return out
}

// Without returns a copy with p disconnected.
func (c Connections) Without(p Platform) Connections {
	out := c.Clone()
	delete(out, p)
	return out
}

func (c Connections) Clone() Connections {
	out := make(Connections, len(c))
	for k, v := range c {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// Platforms lists connected platforms in a stable order.
func (c Connections) Platforms() []Platform {
	out := make([]Platform, 0, len(c))
	for _, p := range External() {
		if c.Connected(p) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return order(out[i]) < order(out[j]) })
	return out
}

func order(p Platform) int {
	for i, candidate := range External() {
		if candidate == p {
			return i
		}
	}
	return len(External())
}
