package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aulaboard/backend/internal/board"
)

type cardRequestPayload struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	DueDate     *string `json:"due_date"`
	Priority    *string `json:"priority"`
	Position    *int    `json:"position"`
	ListID      *uint   `json:"list_id"`
}

func (p cardRequestPayload) toInput(c *gin.Context) (board.CardInput, bool) {
	dueDate, dueDateSet, err := parseDate(p.DueDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "field": "due_date", "reason": "expected YYYY-MM-DD"})
		return board.CardInput{}, false
	}
	input := board.CardInput{
		Title:       p.Title,
		Description: p.Description,
		DueDate:     dueDate,
		DueDateSet:  dueDateSet,
		Position:    p.Position,
		ListID:      p.ListID,
	}
	if p.Priority != nil {
		priority := board.Priority(*p.Priority)
		input.Priority = &priority
	}
	return input, true
}

func (h *httpHandler) handleCreateCard(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	listID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var request cardRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	input, ok := request.toInput(c)
	if !ok {
		return
	}

	created, err := h.boards.CreateCard(c.Request.Context(), actor, listID, input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toCardPayload(created))
}

func (h *httpHandler) handleListCards(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	listID, ok := parseID(c, "id")
	if !ok {
		return
	}
	cards, err := h.boards.Cards(c.Request.Context(), actor, listID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	payloads := make([]cardPayload, 0, len(cards))
	for _, card := range cards {
		payloads = append(payloads, toCardPayload(card))
	}
	c.JSON(http.StatusOK, payloads)
}

func (h *httpHandler) handleGetCard(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	cardID, ok := parseID(c, "id")
	if !ok {
		return
	}
	card, err := h.boards.GetCard(c.Request.Context(), actor, cardID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCardPayload(card))
}

func (h *httpHandler) handleUpdateCard(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	cardID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var request cardRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	input, ok := request.toInput(c)
	if !ok {
		return
	}

	updated, err := h.boards.UpdateCard(c.Request.Context(), actor, cardID, input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCardPayload(updated))
}

func (h *httpHandler) handleDeleteCard(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	cardID, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.boards.DeleteCard(c.Request.Context(), actor, cardID); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleManageAssignees(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	cardID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var request memberActionPayload
	if err := c.ShouldBindJSON(&request); err != nil || request.UserID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "field": "user_id", "reason": "required"})
		return
	}

	var (
		updated board.Card
		err     error
	)
	switch request.Action {
	case "add":
		updated, err = h.boards.AssignCard(c.Request.Context(), actor, cardID, request.UserID)
	case "remove":
		updated, err = h.boards.UnassignCard(c.Request.Context(), actor, cardID, request.UserID)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "field": "action", "reason": "must be add or remove"})
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCardPayload(updated))
}

type commentRequestPayload struct {
	Content string `json:"content"`
}

func (h *httpHandler) handleAddComment(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	cardID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var request commentRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	created, err := h.boards.AddComment(c.Request.Context(), actor, cardID, request.Content)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toCommentPayload(created))
}

func (h *httpHandler) handleCardComments(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	cardID, ok := parseID(c, "id")
	if !ok {
		return
	}
	comments, err := h.boards.Comments(c.Request.Context(), actor, cardID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	payloads := make([]commentPayload, 0, len(comments))
	for _, comment := range comments {
		payloads = append(payloads, toCommentPayload(comment))
	}
	c.JSON(http.StatusOK, payloads)
}

type checklistRequestPayload struct {
	Text     string `json:"text"`
	Position int    `json:"position"`
}

func (h *httpHandler) handleAddChecklistItem(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	cardID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var request checklistRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	created, err := h.boards.AddChecklistItem(c.Request.Context(), actor, cardID, request.Text, request.Position)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toChecklistItemPayload(created))
}

func (h *httpHandler) handleCardChecklist(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	cardID, ok := parseID(c, "id")
	if !ok {
		return
	}
	items, err := h.boards.ChecklistItems(c.Request.Context(), actor, cardID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	payloads := make([]checklistItemPayload, 0, len(items))
	for _, item := range items {
		payloads = append(payloads, toChecklistItemPayload(item))
	}
	c.JSON(http.StatusOK, payloads)
}

type checklistTogglePayload struct {
	Done bool `json:"done"`
}

func (h *httpHandler) handleToggleChecklistItem(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	itemID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var request checklistTogglePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	updated, err := h.boards.ToggleChecklistItem(c.Request.Context(), actor, itemID, request.Done)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toChecklistItemPayload(updated))
}
