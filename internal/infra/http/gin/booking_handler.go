package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"staysync/internal/app/commands"
	"staysync/internal/app/dto"
	bookingapp "staysync/internal/app/handlers/booking"
	"staysync/internal/app/queries"
	"staysync/internal/infra/security"
)

type BookingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type createBookingRequest struct {
	PropertyID    string           `json:"property_id"`
	CheckIn       string           `json:"check_in"`
	CheckOut      string           `json:"check_out"`
	Guests        dto.Guests       `json:"guests"`
	GuestDetails  dto.GuestDetails `json:"guest_details"`
	PaymentMethod string           `json:"payment_method"`
	PaymentType   string           `json:"payment_type"`
}

type confirmPaymentRequest struct {
	BookingID     string `json:"booking_id"`
	TransactionID string `json:"transaction_id"`
	AmountPaid    int64  `json:"amount_paid"`
}

func (h BookingHandler) Create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	// The caller is optional here: the handler rejects anonymous guests itself.
	p, _ := currentPrincipal(c)
	cmd := bookingapp.CreateBookingCommand{
		CommandID:       generateCommandID(),
		GuestID:         p.UserID,
		PropertyID:      strings.TrimSpace(req.PropertyID),
		CheckIn:         req.CheckIn,
		CheckOut:        req.CheckOut,
		Guests:          req.Guests,
		GuestDetails:    req.GuestDetails,
		PaymentMethod:   req.PaymentMethod,
		PaymentType:     req.PaymentType,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[bookingapp.CreateBookingCommand, *bookingapp.CreateBookingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h BookingHandler) Get(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	q := bookingapp.GetBookingQuery{ActorID: p.UserID, BookingID: strings.TrimSpace(c.Param("id"))}
	result, err := queries.Ask[bookingapp.GetBookingQuery, dto.Booking](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ConfirmPayment receives the payment provider's success notification.
// Redeliveries of one transaction replay the first result.
func (h BookingHandler) ConfirmPayment(c *gin.Context) {
	if _, ok := requireRole(c, security.RoleOperator); !ok {
		return
	}
	var req confirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	key := c.GetHeader("Idempotency-Key")
	if key == "" && req.TransactionID != "" {
		key = "payment:" + req.TransactionID
	}
	cmd := bookingapp.ConfirmPaymentCommand{
		BookingID:       strings.TrimSpace(req.BookingID),
		TransactionID:   strings.TrimSpace(req.TransactionID),
		AmountPaid:      req.AmountPaid,
		IdempotencyKeyV: key,
	}
	result, err := commands.Dispatch[bookingapp.ConfirmPaymentCommand, *dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func generateCommandID() string {
	return uuid.NewString()
}

var _ BookingHTTP = BookingHandler{}
