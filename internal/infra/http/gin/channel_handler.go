package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"staysync/internal/app/commands"
	"staysync/internal/app/dto"
	syncapp "staysync/internal/app/handlers/sync"
	"staysync/internal/domain/channels"
	"staysync/internal/infra/security"
)

const channelKeyHeader = "X-Channel-Key"

// ChannelHandler receives reservations pushed by external platforms.
type ChannelHandler struct {
	Commands commands.Bus
	Keys     *security.ChannelKeys
	Logger   *slog.Logger
}

type channelBookingRequest struct {
	PlatformBookingID  string           `json:"platform_booking_id"`
	PlatformPropertyID string           `json:"platform_property_id"`
	CheckIn            string           `json:"check_in"`
	CheckOut           string           `json:"check_out"`
	GuestDetails       dto.GuestDetails `json:"guest_details"`
}

func (h ChannelHandler) Booking(c *gin.Context) {
	platform, err := channels.ParseExternal(c.Param("platform"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if h.Keys == nil || h.Keys.Verify(platform, c.GetHeader(channelKeyHeader)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid channel key"})
		return
	}
	var req channelBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cmd := syncapp.IngestExternalBookingCommand{
		Platform:           string(platform),
		PlatformBookingID:  req.PlatformBookingID,
		PlatformPropertyID: req.PlatformPropertyID,
		CheckIn:            req.CheckIn,
		CheckOut:           req.CheckOut,
		GuestDetails:       req.GuestDetails,
	}

	result, err := commands.Dispatch[syncapp.IngestExternalBookingCommand, *syncapp.IngestResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	switch result.Outcome {
	case syncapp.IngestCreated:
		c.JSON(http.StatusCreated, result)
	case syncapp.IngestRejected:
		c.JSON(http.StatusConflict, result)
	default:
		c.JSON(http.StatusOK, result)
	}
}

var _ ChannelHTTP = ChannelHandler{}
