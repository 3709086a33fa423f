package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/sehatsathi/sehatsathi-api/internal/model"
	"github.com/sehatsathi/sehatsathi-api/pkg/auth"
	apperrors "github.com/sehatsathi/sehatsathi-api/pkg/errors"
	"github.com/sehatsathi/sehatsathi-api/pkg/logger"
)

const (
	DefaultName = "Demo User"
	EmailDomain = "sehatsathi.in"

	ModeLogin    = "login"
	ModeRegister = "register"
)

var (
	ErrInvalidRole   = apperrors.BadRequest("role must be one of patient, doctor, asha, admin", nil)
	ErrUnknownView   = apperrors.BadRequest("unknown view", nil)
	ErrViewForbidden = apperrors.Forbidden("view is not available for this role", nil)
	ErrSessionEnded  = apperrors.Unauthorized(errors.New("session has ended"))
	ErrInvalidToken  = apperrors.Unauthorized(auth.ErrInvalidToken)
)

var roleTitles = map[model.Role]string{
	model.RolePatient: "Patient",
	model.RoleDoctor:  "Doctor",
	model.RoleAsha:    "ASHA Worker",
	model.RoleAdmin:   "Admin",
}

var patientViews = map[model.View]bool{
	model.ViewHome:      true,
	model.ViewBook:      true,
	model.ViewAIChat:    true,
	model.ViewDashboard: true,
	model.ViewRewards:   true,
}

// HomeView is the view a role lands on after login.
func HomeView(role model.Role) model.View {
	switch role {
	case model.RoleDoctor:
		return model.ViewDoctor
	case model.RoleAsha:
		return model.ViewAsha
	case model.RoleAdmin:
		return model.ViewAdmin
	default:
		return model.ViewHome
	}
}

// CanView reports whether role may open view.
func CanView(role model.Role, view model.View) bool {
	if patientViews[view] {
		return role == model.RolePatient
	}
	switch view {
	case model.ViewDoctor, model.ViewAsha, model.ViewAdmin:
		return HomeView(role) == view
	}
	return false
}

// Service holds live sessions in memory. Nothing about a user outlives
// their session.
type Service struct {
	jwt      auth.JWTService
	ttl      time.Duration
	sessions *cache.Cache
	logger   *logger.Logger
	mu       sync.Mutex
}

func NewService(jwtSvc auth.JWTService, ttl time.Duration, log *logger.Logger) *Service {
	expiry := cache.NoExpiration
	cleanup := time.Duration(0)
	if ttl > 0 {
		expiry = ttl
		cleanup = ttl
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		jwt:      jwtSvc,
		ttl:      ttl,
		sessions: cache.New(expiry, cleanup),
		logger:   log,
	}
}

// Login never checks credentials. It replaces the session behind
// previousToken, if any.
func (s *Service) Login(ctx context.Context, req model.LoginRequest, mode, previousToken string) (*model.LoginResponse, error) {
	if !req.Role.Valid() {
		return nil, fmt.Errorf("%q: %w", req.Role, ErrInvalidRole)
	}
	if previousToken != "" {
		s.Logout(ctx, previousToken)
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = DefaultName
	}
	email := strings.TrimSpace(req.Email)
	if email == "" {
		email = fmt.Sprintf("%s@%s", req.Role, EmailDomain)
	}

	sess := model.Session{
		ID: uuid.New().String(),
		User: model.User{
			Name:  name,
			Role:  req.Role,
			Email: email,
			Phone: strings.TrimSpace(req.Phone),
		},
		View:      HomeView(req.Role),
		Tab:       model.ViewHome,
		CreatedAt: time.Now().UTC(),
	}

	token, err := s.jwt.GenerateToken(auth.Claims{
		SessionID: sess.ID,
		Name:      sess.User.Name,
		Role:      string(sess.User.Role),
		Email:     sess.User.Email,
	}, s.ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session token: %w", err)
	}

	s.sessions.Set(sess.ID, sess, cache.DefaultExpiration)

	action := "Logged in"
	if mode == ModeRegister {
		action = "Account created"
	}
	s.logger.WithContext(ctx).Info("session started", "session_id", sess.ID, "role", string(sess.User.Role), "mode", mode)

	return &model.LoginResponse{
		Token:   token,
		Session: &sess,
		Message: fmt.Sprintf("Welcome to SehatSathi! %s as %s", action, roleTitles[req.Role]),
	}, nil
}

// Logout ends the session and returns the reset navigation state. Unknown
// or already ended sessions are not an error.
func (s *Service) Logout(ctx context.Context, token string) *model.Session {
	if claims, err := s.jwt.ValidateToken(token); err == nil {
		s.sessions.Delete(claims.SessionID)
		s.logger.WithContext(ctx).Info("session ended", "session_id", claims.SessionID)
	}
	return &model.Session{View: model.ViewLogin, Tab: model.ViewHome}
}

// Current resolves a token to its live session.
func (s *Service) Current(token string) (*model.Session, error) {
	claims, err := s.jwt.ValidateToken(token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return s.Get(claims.SessionID)
}

func (s *Service) Get(sessionID string) (*model.Session, error) {
	v, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, ErrSessionEnded
	}
	sess := v.(model.Session)
	return &sess, nil
}

// Navigate switches the session's view. Patient views also move the tab.
func (s *Service) Navigate(sessionID string, view model.View) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.Get(sessionID)
	if err != nil {
		return nil, err
	}

	switch view {
	case model.ViewHome, model.ViewBook, model.ViewAIChat, model.ViewDashboard, model.ViewRewards,
		model.ViewDoctor, model.ViewAsha, model.ViewAdmin:
	default:
		return nil, fmt.Errorf("%q: %w", view, ErrUnknownView)
	}
	if !CanView(sess.User.Role, view) {
		return nil, fmt.Errorf("%s cannot open %s: %w", sess.User.Role, view, ErrViewForbidden)
	}

	sess.View = view
	if patientViews[view] {
		sess.Tab = view
	}
	s.sessions.Set(sess.ID, *sess, cache.DefaultExpiration)
	return sess, nil
}

// Count is the number of live sessions.
func (s *Service) Count() int {
	return s.sessions.ItemCount()
}
