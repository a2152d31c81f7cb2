package ginserver

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	gin "github.com/gin-gonic/gin"

	"staysync/internal/app/commands"
	"staysync/internal/app/dto"
	propertiesapp "staysync/internal/app/handlers/properties"
	syncapp "staysync/internal/app/handlers/sync"
	"staysync/internal/app/queries"
	"staysync/internal/infra/security"
)

type PropertyHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type createPropertyRequest struct {
	Title   string      `json:"title"`
	Pricing dto.Pricing `json:"pricing"`
	Status  string      `json:"status"`
}

type connectPlatformRequest struct {
	ExternalID string `json:"external_id"`
}

type setStatusRequest struct {
	Status string `json:"status"`
}

type updatePricingRequest struct {
	BasePrice   int64 `json:"base_price"`
	CleaningFee int64 `json:"cleaning_fee"`
	ServiceFee  int64 `json:"service_fee"`
}

func (h PropertyHandler) Get(c *gin.Context) {
	q := propertiesapp.GetPropertyQuery{PropertyID: strings.TrimSpace(c.Param("id"))}
	result, err := queries.Ask[propertiesapp.GetPropertyQuery, dto.Property](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h PropertyHandler) List(c *gin.Context) {
	host, ok := requireRole(c, security.RoleHost)
	if !ok {
		return
	}
	q := propertiesapp.ListHostPropertiesQuery{HostID: host.UserID}
	result, err := queries.Ask[propertiesapp.ListHostPropertiesQuery, []dto.Property](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": result})
}

func (h PropertyHandler) Create(c *gin.Context) {
	host, ok := requireRole(c, security.RoleHost)
	if !ok {
		return
	}
	var req createPropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cmd := propertiesapp.CreatePropertyCommand{
		HostID:  host.UserID,
		Title:   req.Title,
		Pricing: req.Pricing,
		Status:  strings.TrimSpace(req.Status),
	}
	result, err := commands.Dispatch[propertiesapp.CreatePropertyCommand, *dto.Property](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h PropertyHandler) Delete(c *gin.Context) {
	host, ok := requireRole(c, security.RoleHost)
	if !ok {
		return
	}
	cmd := propertiesapp.DeletePropertyCommand{HostID: host.UserID, PropertyID: strings.TrimSpace(c.Param("id"))}
	if _, err := commands.Dispatch[propertiesapp.DeletePropertyCommand, struct{}](c.Request.Context(), h.Commands, cmd); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h PropertyHandler) Connect(c *gin.Context) {
	host, ok := requireRole(c, security.RoleHost)
	if !ok {
		return
	}
	var req connectPlatformRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cmd := propertiesapp.ConnectPlatformCommand{
		HostID:     host.UserID,
		PropertyID: strings.TrimSpace(c.Param("id")),
		Platform:   c.Param("platform"),
		ExternalID: strings.TrimSpace(req.ExternalID),
	}
	result, err := commands.Dispatch[propertiesapp.ConnectPlatformCommand, *dto.Property](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h PropertyHandler) Disconnect(c *gin.Context) {
	host, ok := requireRole(c, security.RoleHost)
	if !ok {
		return
	}
	cmd := propertiesapp.DisconnectPlatformCommand{
		HostID:     host.UserID,
		PropertyID: strings.TrimSpace(c.Param("id")),
		Platform:   c.Param("platform"),
	}
	result, err := commands.Dispatch[propertiesapp.DisconnectPlatformCommand, *dto.Property](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h PropertyHandler) SetStatus(c *gin.Context) {
	host, ok := requireRole(c, security.RoleHost)
	if !ok {
		return
	}
	var req setStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cmd := propertiesapp.TogglePropertyStatusCommand{
		HostID:     host.UserID,
		PropertyID: strings.TrimSpace(c.Param("id")),
		Status:     req.Status,
	}
	result, err := commands.Dispatch[propertiesapp.TogglePropertyStatusCommand, *dto.Property](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h PropertyHandler) UpdatePricing(c *gin.Context) {
	host, ok := requireRole(c, security.RoleHost)
	if !ok {
		return
	}
	var req updatePricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cmd := propertiesapp.UpdatePricingCommand{
		HostID:      host.UserID,
		PropertyID:  strings.TrimSpace(c.Param("id")),
		BasePrice:   req.BasePrice,
		CleaningFee: req.CleaningFee,
		ServiceFee:  req.ServiceFee,
	}
	result, err := commands.Dispatch[propertiesapp.UpdatePricingCommand, *dto.Property](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h PropertyHandler) Sync(c *gin.Context) {
	host, ok := requireRole(c, security.RoleHost)
	if !ok {
		return
	}
	cmd := syncapp.SyncPropertyCommand{HostID: host.UserID, PropertyID: strings.TrimSpace(c.Param("id"))}
	result, err := commands.Dispatch[syncapp.SyncPropertyCommand, *syncapp.PropertySyncReport](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h PropertyHandler) SyncLog(c *gin.Context) {
	host, ok := requireRole(c, security.RoleHost)
	if !ok {
		return
	}
	q := syncapp.SyncLogQuery{
		ActorID:    host.UserID,
		PropertyID: strings.TrimSpace(c.Param("id")),
		Limit:      parseIntWithDefault(c.Query("limit"), 0),
	}
	result, err := queries.Ask[syncapp.SyncLogQuery, dto.SyncLog](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func parseIntWithDefault(raw string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

var _ PropertyHTTP = PropertyHandler{}
