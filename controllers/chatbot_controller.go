package controllers

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"hermes-backend/services"
)

// TelegramUpdate is the subset of a Telegram webhook update the bot reads.
type TelegramUpdate struct {
	UpdateID int64            `json:"update_id"`
	Message  *TelegramMessage `json:"message"`
}

type TelegramMessage struct {
	MessageID int64        `json:"message_id"`
	From      TelegramUser `json:"from"`
	Chat      TelegramChat `json:"chat"`
	Text      string       `json:"text"`
}

type TelegramUser struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
}

type TelegramChat struct {
	ID int64 `json:"id"`
}

// DisplayName is "@username" when set, otherwise the first name.
func (u TelegramUser) DisplayName() string {
	if u.Username != "" {
		return "@" + u.Username
	}
	return u.FirstName
}

// ChatbotRequest is the plain JSON form of a chat command.
type ChatbotRequest struct {
	ChatIdentity string `json:"chat_identity" binding:"required"`
	Message      string `json:"message" binding:"required"`
}

// ChatbotController feeds chat messages into the command dispatcher.
type ChatbotController struct {
	chatbot       *services.ChatbotService
	webhookSecret string
	log           logrus.FieldLogger
}

func NewChatbotController(chatbot *services.ChatbotService, webhookSecret string, log logrus.FieldLogger) *ChatbotController {
	return &ChatbotController{
		chatbot:       chatbot,
		webhookSecret: webhookSecret,
		log:           log.WithField("component", "chatbot_controller"),
	}
}

// reply runs one command line and renders the answer. An empty reply means
// the message was not a command.
func (h *ChatbotController) reply(c *gin.Context, handle, from, text string) string {
	res, err := h.chatbot.Handle(c.Request.Context(), handle, text)
	if errors.Is(err, services.ErrUnknownCommand) {
		return ""
	}
	if err != nil {
		return ErrorReply(h.chatbot.Variant(), err)
	}
	return ReplyFor(h.chatbot.Variant(), from, res)
}

// Webhook handles POST /chatbot/webhook. The reply is sent back as a
// sendMessage call in the webhook response body.
func (h *ChatbotController) Webhook(c *gin.Context) {
	if h.webhookSecret != "" {
		got := c.GetHeader("X-Telegram-Bot-Api-Secret-Token")
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.webhookSecret)) != 1 {
			h.log.Warn("Secret token webhook tidak cocok")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Secret token tidak valid"})
			return
		}
	}

	var update TelegramUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		h.log.WithError(err).Warn("Update webhook tidak valid")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Permintaan tidak valid"})
		return
	}
	// Telegram retries non-2xx answers, so everything else is acknowledged.
	if update.Message == nil || update.Message.Text == "" || update.Message.From.ID == 0 {
		c.Status(http.StatusOK)
		return
	}

	msg := update.Message
	handle := strconv.FormatInt(msg.From.ID, 10)
	text := h.reply(c, handle, msg.From.DisplayName(), msg.Text)
	if text == "" {
		c.Status(http.StatusOK)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"method":  "sendMessage",
		"chat_id": msg.Chat.ID,
		"text":    text,
	})
}

// Command handles POST /chatbot with {chat_identity, message}.
func (h *ChatbotController) Command(c *gin.Context) {
	var req ChatbotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Permintaan tidak valid"})
		return
	}

	text := h.reply(c, req.ChatIdentity, "", req.Message)
	if text == "" {
		c.JSON(http.StatusOK, gin.H{"handled": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"handled": true, "reply": text})
}
