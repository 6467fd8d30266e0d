package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/askbook/askbook/internal/model"
	"github.com/askbook/askbook/internal/pkg/errcode"
	"github.com/askbook/askbook/internal/pkg/response"
	"github.com/askbook/askbook/internal/service"
)

type ChatHandler struct {
	chats *service.ChatService
}

func NewChatHandler(chats *service.ChatService) *ChatHandler {
	return &ChatHandler{chats: chats}
}

func (h *ChatHandler) Chat(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, 400, errcode.ErrInvalid, "invalid request")
		return
	}
	resp, err := h.chats.Chat(c.Request.Context(), getUserID(c), req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, resp)
}

func (h *ChatHandler) History(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))
	messages, err := h.chats.History(c.Request.Context(), getUserID(c), c.Query("conversation_id"), page, perPage)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"messages": messages, "page": page, "per_page": perPage})
}

type reportRequest struct {
	QuestionHash string `json:"question_hash"`
}

func (h *ChatHandler) Report(c *gin.Context) {
	var req reportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, 400, errcode.ErrInvalid, "invalid request")
		return
	}
	if err := h.chats.Report(c.Request.Context(), req.QuestionHash); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"status": "invalidated"})
}
