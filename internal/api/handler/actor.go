package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/booking-service/internal/api/dto"
	"github.com/cuongbtq/booking-service/internal/booking/domain"
)

const (
	// HeaderUserID carries the id of the authenticated user, set by the gateway.
	HeaderUserID = "X-User-ID"

	actorKey = "actor"
)

// ActorMiddleware loads the acting user named by the X-User-ID header.
func ActorMiddleware(service BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.GetHeader(HeaderUserID), 10, 64)
		if err != nil || id <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "missing or invalid " + HeaderUserID})
			return
		}

		user, err := service.GetUser(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "unknown user"})
				return
			}
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
			return
		}

		c.Set(actorKey, user)
		c.Next()
	}
}

// AdminOnly rejects actors without an admin role.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := Actor(c)
		if actor == nil || !actor.Role.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, dto.ErrorResponse{Error: domain.ErrForbidden.Error()})
			return
		}
		c.Next()
	}
}

// Actor returns the user loaded by ActorMiddleware, or nil.
func Actor(c *gin.Context) *domain.User {
	v, ok := c.Get(actorKey)
	if !ok {
		return nil
	}
	user, _ := v.(*domain.User)
	return user
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: name + " must be a positive integer"})
		return 0, false
	}
	return id, true
}
