package server

import (
	"confide/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetConversations handles GET /api/conversations.
func (s *Server) GetConversations(c *fiber.Ctx) error {
	convs, err := s.engine.Chats().GetUserConversations(c.Context(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(convs)
}

// StartConversation handles POST /api/conversations.
func (s *Server) StartConversation(c *fiber.Ctx) error {
	var req struct {
		UserID uint `json:"user_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	conv, err := s.engine.Chats().GetOrCreateConversation(c.Context(), currentUserID(c), req.UserID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(conv)
}

// GetConversation handles GET /api/conversations/:id.
func (s *Server) GetConversation(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	conv, err := s.engine.Chats().GetConversation(c.Context(), currentUserID(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(conv)
}

// GetMessages handles GET /api/conversations/:id/messages.
func (s *Server) GetMessages(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	limit := c.QueryInt("limit", 50)
	offset := c.QueryInt("offset", 0)
	msgs, err := s.engine.Chats().GetConversationMessages(c.Context(), currentUserID(c), id, limit, offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(msgs)
}

// SendMessage handles POST /api/conversations/:id/messages.
func (s *Server) SendMessage(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	msg, err := s.engine.Chats().SendMessage(c.Context(), currentUserID(c), id, req.Content)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// MarkRead handles POST /api/conversations/:id/read.
func (s *Server) MarkRead(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	changed, err := s.engine.Chats().MarkMessagesAsRead(c.Context(), currentUserID(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"marked": changed})
}

// GetUnreadCount handles GET /api/conversations/unread-count.
func (s *Server) GetUnreadCount(c *fiber.Ctx) error {
	count, err := s.engine.Chats().GetUnreadMessageCount(c.Context(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"unread": count})
}
