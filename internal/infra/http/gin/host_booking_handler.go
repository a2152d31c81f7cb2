package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"staysync/internal/app/commands"
	"staysync/internal/app/dto"
	bookingapp "staysync/internal/app/handlers/booking"
	syncapp "staysync/internal/app/handlers/sync"
	"staysync/internal/app/queries"
	"staysync/internal/infra/security"
)

type HostBookingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h HostBookingHandler) UpdateStatus(c *gin.Context) {
	host, ok := requireRole(c, security.RoleHost)
	if !ok {
		return
	}
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cmd := bookingapp.UpdateBookingStatusCommand{
		ActorID:   host.UserID,
		BookingID: strings.TrimSpace(c.Param("id")),
		Status:    strings.TrimSpace(req.Status),
	}
	result, err := commands.Dispatch[bookingapp.UpdateBookingStatusCommand, *dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Resync queues another propagation round; the response does not wait for it.
func (h HostBookingHandler) Resync(c *gin.Context) {
	host, ok := requireRole(c, security.RoleHost)
	if !ok {
		return
	}
	cmd := syncapp.ResyncBookingCommand{ActorID: host.UserID, BookingID: strings.TrimSpace(c.Param("id"))}
	result, err := commands.Dispatch[syncapp.ResyncBookingCommand, *dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusAccepted, result)
}

func (h HostBookingHandler) SyncLog(c *gin.Context) {
	host, ok := requireRole(c, security.RoleHost)
	if !ok {
		return
	}
	q := syncapp.SyncLogQuery{ActorID: host.UserID, BookingID: strings.TrimSpace(c.Param("id"))}
	result, err := queries.Ask[syncapp.SyncLogQuery, dto.SyncLog](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ HostBookingHTTP = HostBookingHandler{}
