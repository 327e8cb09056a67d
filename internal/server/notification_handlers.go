package server

import (
	"github.com/gofiber/fiber/v2"
)

// GetNotifications handles GET /api/notifications.
func (s *Server) GetNotifications(c *fiber.Ctx) error {
	list, err := s.engine.Notifications().GetNotifications(c.Context(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(list)
}

// GetNotificationUnreadCount handles GET /api/notifications/unread-count.
func (s *Server) GetNotificationUnreadCount(c *fiber.Ctx) error {
	count, err := s.engine.Notifications().UnreadCount(c.Context(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"unread": count})
}

// MarkNotificationsRead handles POST /api/notifications/read-all.
func (s *Server) MarkNotificationsRead(c *fiber.Ctx) error {
	if err := s.engine.Notifications().MarkAllRead(c.Context(), currentUserID(c)); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
