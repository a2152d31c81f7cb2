package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"staysync/internal/app/commands"
	"staysync/internal/app/dto"
	availabilityapp "staysync/internal/app/handlers/availability"
	"staysync/internal/app/queries"
	"staysync/internal/infra/security"
)

type AvailabilityHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type blockDatesRequest struct {
	PropertyIDs []string `json:"property_ids"`
	CheckIn     string   `json:"check_in"`
	CheckOut    string   `json:"check_out"`
	Reason      string   `json:"reason"`
}

func (h AvailabilityHandler) Check(c *gin.Context) {
	q := availabilityapp.CheckAvailabilityQuery{
		PropertyID: strings.TrimSpace(c.Param("id")),
		CheckIn:    c.Query("check_in"),
		CheckOut:   c.Query("check_out"),
	}
	result, err := queries.Ask[availabilityapp.CheckAvailabilityQuery, dto.Availability](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AvailabilityHandler) Calendar(c *gin.Context) {
	host, ok := requireRole(c, security.RoleHost)
	if !ok {
		return
	}
	q := availabilityapp.GetCalendarQuery{ActorID: host.UserID, PropertyID: strings.TrimSpace(c.Param("id"))}
	result, err := queries.Ask[availabilityapp.GetCalendarQuery, dto.Calendar](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AvailabilityHandler) Block(c *gin.Context) {
	host, ok := requireRole(c, security.RoleHost)
	if !ok {
		return
	}
	var req blockDatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cmd := availabilityapp.BlockDatesCommand{
		ActorID:     host.UserID,
		PropertyIDs: req.PropertyIDs,
		CheckIn:     req.CheckIn,
		CheckOut:    req.CheckOut,
		Reason:      req.Reason,
	}
	result, err := commands.Dispatch[availabilityapp.BlockDatesCommand, *availabilityapp.BlockDatesResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h AvailabilityHandler) Unblock(c *gin.Context) {
	host, ok := requireRole(c, security.RoleHost)
	if !ok {
		return
	}
	cmd := availabilityapp.UnblockDatesCommand{ActorID: host.UserID, BlockID: strings.TrimSpace(c.Param("id"))}
	result, err := commands.Dispatch[availabilityapp.UnblockDatesCommand, *dto.CalendarBlock](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ AvailabilityHTTP = AvailabilityHandler{}
