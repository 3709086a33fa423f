package chatbot

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sehatsathi/sehatsathi-api/internal/config"
)

func TestEmbed_Defaults(t *testing.T) {
	e := NewService(config.ChatbotConfig{}).Embed()
	assert.Equal(t, DefaultURL, e.URL)
	assert.Equal(t, DefaultTitle, e.Title)
	assert.Equal(t, []string{"microphone"}, e.Permissions)
}

func TestEmbed_Configured(t *testing.T) {
	e := NewService(config.ChatbotConfig{URL: " https://bot.example.org/ ", Title: "Helper"}).Embed()
	assert.Equal(t, "https://bot.example.org/", e.URL)
	assert.Equal(t, "Helper", e.Title)

	e.Permissions[0] = "camera"
	assert.Equal(t, []string{"microphone"}, NewService(config.ChatbotConfig{}).Embed().Permissions)
}
