package chatbot

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sehatsathi/sehatsathi-api/internal/config"
	"github.com/sehatsathi/sehatsathi-api/internal/model"
	"github.com/sehatsathi/sehatsathi-api/internal/service/chatbot"
)

func TestEmbed(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(chatbot.NewService(config.ChatbotConfig{})).RegisterRoutes(r.Group("/api/v1"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/chatbot", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Status string             `json:"status"`
		Data   model.ChatbotEmbed `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "success", body.Status)
	assert.Equal(t, chatbot.DefaultURL, body.Data.URL)
	assert.Equal(t, []string{"microphone"}, body.Data.Permissions)
}
