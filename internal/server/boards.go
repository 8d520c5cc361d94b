package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aulaboard/backend/internal/board"
)

type boardRequestPayload struct {
	Name    *string `json:"name"`
	Color   *string `json:"color"`
	DueDate *string `json:"due_date"`
}

func (p boardRequestPayload) toInput(c *gin.Context) (board.BoardInput, bool) {
	dueDate, dueDateSet, err := parseDate(p.DueDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "field": "due_date", "reason": "expected YYYY-MM-DD"})
		return board.BoardInput{}, false
	}
	return board.BoardInput{
		Name:       p.Name,
		Color:      p.Color,
		DueDate:    dueDate,
		DueDateSet: dueDateSet,
	}, true
}

func (h *httpHandler) handleCreateBoard(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var request boardRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	input, ok := request.toInput(c)
	if !ok {
		return
	}

	created, err := h.boards.CreateBoard(c.Request.Context(), actor, input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toBoardPayload(created))
}

func (h *httpHandler) handleListBoards(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	boards, err := h.boards.ListBoards(c.Request.Context(), actor)
	if err != nil {
		h.respondError(c, err)
		return
	}
	payloads := make([]boardPayload, 0, len(boards))
	for _, b := range boards {
		payloads = append(payloads, toBoardPayload(b))
	}
	c.JSON(http.StatusOK, payloads)
}

func (h *httpHandler) handleGetBoard(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	boardID, ok := parseID(c, "id")
	if !ok {
		return
	}
	b, err := h.boards.GetBoard(c.Request.Context(), actor, boardID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBoardPayload(b))
}

func (h *httpHandler) handleUpdateBoard(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	boardID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var request boardRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	input, ok := request.toInput(c)
	if !ok {
		return
	}

	updated, err := h.boards.UpdateBoard(c.Request.Context(), actor, boardID, input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBoardPayload(updated))
}

func (h *httpHandler) handleDeleteBoard(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	boardID, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.boards.DeleteBoard(c.Request.Context(), actor, boardID); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type memberActionPayload struct {
	UserID uint   `json:"user_id"`
	Action string `json:"action"`
}

func (h *httpHandler) handleManageMembers(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	boardID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var request memberActionPayload
	if err := c.ShouldBindJSON(&request); err != nil || request.UserID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "field": "user_id", "reason": "required"})
		return
	}

	var (
		updated board.Board
		err     error
	)
	switch request.Action {
	case "add":
		updated, err = h.boards.AddMember(c.Request.Context(), actor, boardID, request.UserID)
	case "remove":
		updated, err = h.boards.RemoveMember(c.Request.Context(), actor, boardID, request.UserID)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "field": "action", "reason": "must be add or remove"})
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBoardPayload(updated))
}

type listRequestPayload struct {
	Title    *string `json:"title"`
	Position *int    `json:"position"`
}

func (h *httpHandler) handleCreateList(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	boardID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var request listRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	created, err := h.boards.CreateList(c.Request.Context(), actor, boardID, board.ListInput{
		Title:    request.Title,
		Position: request.Position,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toListPayload(created))
}

func (h *httpHandler) handleBoardLists(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	boardID, ok := parseID(c, "id")
	if !ok {
		return
	}
	lists, err := h.boards.Lists(c.Request.Context(), actor, boardID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	payloads := make([]listPayload, 0, len(lists))
	for _, list := range lists {
		payloads = append(payloads, toListPayload(list))
	}
	c.JSON(http.StatusOK, payloads)
}

func (h *httpHandler) handleUpdateList(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	listID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var request listRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	updated, err := h.boards.UpdateList(c.Request.Context(), actor, listID, board.ListInput{
		Title:    request.Title,
		Position: request.Position,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toListPayload(updated))
}

func (h *httpHandler) handleDeleteList(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	listID, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.boards.DeleteList(c.Request.Context(), actor, listID); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleBoardActivity(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	boardID, ok := parseID(c, "id")
	if !ok {
		return
	}
	entries, err := h.boards.Activities(c.Request.Context(), actor, boardID, 50)
	if err != nil {
		h.respondError(c, err)
		return
	}
	payloads := make([]activityPayload, 0, len(entries))
	for _, entry := range entries {
		payloads = append(payloads, toActivityPayload(entry))
	}
	c.JSON(http.StatusOK, payloads)
}

type labelRequestPayload struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

func (h *httpHandler) handleCreateLabel(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	boardID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var request labelRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	created, err := h.boards.CreateLabel(c.Request.Context(), actor, boardID, request.Name, request.Color)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toLabelPayload(created))
}

func (h *httpHandler) handleBoardLabels(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	boardID, ok := parseID(c, "id")
	if !ok {
		return
	}
	labels, err := h.boards.Labels(c.Request.Context(), actor, boardID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	payloads := make([]labelPayload, 0, len(labels))
	for _, label := range labels {
		payloads = append(payloads, toLabelPayload(label))
	}
	c.JSON(http.StatusOK, payloads)
}

type labelCardActionPayload struct {
	CardID uint   `json:"card_id"`
	Action string `json:"action"`
}

func (h *httpHandler) handleManageLabelCards(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	labelID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var request labelCardActionPayload
	if err := c.ShouldBindJSON(&request); err != nil || request.CardID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "field": "card_id", "reason": "required"})
		return
	}
	if request.Action != "add" && request.Action != "remove" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "field": "action", "reason": "must be add or remove"})
		return
	}

	if err := h.boards.AttachLabel(c.Request.Context(), actor, labelID, request.CardID, request.Action == "add"); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
