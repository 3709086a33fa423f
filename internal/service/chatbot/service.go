package chatbot

import (
	"strings"

	"github.com/sehatsathi/sehatsathi-api/internal/config"
	"github.com/sehatsathi/sehatsathi-api/internal/model"
)

const (
	DefaultURL   = "https://ruralchatbot.netlify.app/"
	DefaultTitle = "SehatSathi AI Health Assistant"
)

// Permissions the embedding frame must grant.
var framePermissions = []string{"microphone"}

// Service describes the external assistant. Nothing is proxied.
type Service struct {
	url   string
	title string
}

func NewService(cfg config.ChatbotConfig) *Service {
	s := &Service{url: strings.TrimSpace(cfg.URL), title: strings.TrimSpace(cfg.Title)}
	if s.url == "" {
		s.url = DefaultURL
	}
	if s.title == "" {
		s.title = DefaultTitle
	}
	return s
}

func (s *Service) Embed() model.ChatbotEmbed {
	return model.ChatbotEmbed{
		URL:         s.url,
		Title:       s.title,
		Permissions: append([]string{}, framePermissions...),
	}
}
