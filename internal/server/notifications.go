package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *httpHandler) handleListNotifications(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	notifications, err := h.notifications.List(c.Request.Context(), actor.ID, 50)
	if err != nil {
		h.respondError(c, err)
		return
	}
	unread, err := h.notifications.UnreadCount(c.Request.Context(), actor.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	payloads := make([]notificationPayload, 0, len(notifications))
	for _, notification := range notifications {
		payloads = append(payloads, toNotificationPayload(notification))
	}
	c.JSON(http.StatusOK, gin.H{"notifications": payloads, "unread": unread})
}

func (h *httpHandler) handleMarkRead(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	notificationID, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.notifications.MarkRead(c.Request.Context(), actor.ID, notificationID); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleMarkAllRead(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	if err := h.notifications.MarkAllRead(c.Request.Context(), actor.ID); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type subscriptionRequestPayload struct {
	Endpoint  string `json:"endpoint"`
	P256dhKey string `json:"p256dh_key"`
	AuthKey   string `json:"auth_key"`
}

func (h *httpHandler) handleRegisterSubscription(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var request subscriptionRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	created, err := h.notifications.RegisterSubscription(c.Request.Context(), actor.ID, request.Endpoint, request.P256dhKey, request.AuthKey)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toSubscriptionPayload(created))
}

func (h *httpHandler) handleListSubscriptions(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	subscriptions, err := h.notifications.Subscriptions(c.Request.Context(), actor.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	payloads := make([]subscriptionPayload, 0, len(subscriptions))
	for _, subscription := range subscriptions {
		payloads = append(payloads, toSubscriptionPayload(subscription))
	}
	c.JSON(http.StatusOK, payloads)
}

func (h *httpHandler) handleDeleteSubscription(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	subscriptionID, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.notifications.DeleteSubscription(c.Request.Context(), actor.ID, subscriptionID); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
