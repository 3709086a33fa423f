package emergency

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sehatsathi/sehatsathi-api/internal/model"
	apperrors "github.com/sehatsathi/sehatsathi-api/pkg/errors"
	"github.com/sehatsathi/sehatsathi-api/pkg/logger"
)

var (
	ErrUnknownNumber   = apperrors.BadRequest("not an emergency helpline number", nil)
	ErrInvalidLocation = apperrors.BadRequest("latitude must be within ±90 and longitude within ±180", nil)
)

//go:embed data/emergency.yaml
var emergencyYAML []byte

type Service struct {
	directory  model.EmergencyDirectory
	dispatcher Dispatcher
	logger     *logger.Logger
	now        func() time.Time
}

func NewService(dispatcher Dispatcher, log *logger.Logger) (*Service, error) {
	var dir model.EmergencyDirectory
	if err := yaml.Unmarshal(emergencyYAML, &dir); err != nil {
		return nil, fmt.Errorf("failed to parse emergency directory: %w", err)
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		directory:  dir,
		dispatcher: dispatcher,
		logger:     log.WithFields(map[string]interface{}{"component": "emergency"}),
		now:        time.Now,
	}, nil
}

func (s *Service) Directory() model.EmergencyDirectory {
	return model.EmergencyDirectory{
		Contacts:  append([]model.EmergencyContact{}, s.directory.Contacts...),
		Hospitals: append([]model.Hospital{}, s.directory.Hospitals...),
	}
}

// Call connects the caller to a helpline from the directory.
func (s *Service) Call(ctx context.Context, caller model.User, req model.EmergencyCallRequest) (*model.DispatchResult, error) {
	number := strings.TrimSpace(req.Number)
	contact, ok := s.contact(number)
	if !ok {
		return nil, fmt.Errorf("%q: %w", number, ErrUnknownNumber)
	}
	if err := validLocation(req.Location); err != nil {
		return nil, err
	}

	ref, err := s.dispatcher.Dispatch(ctx, DispatchRequest{
		Kind:     KindCall,
		Service:  contact.Name,
		Number:   contact.Number,
		Caller:   caller,
		Location: req.Location,
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithContext(ctx).Warn("emergency call dispatched", "service", contact.Name, "number", contact.Number, "reference", ref)
	return &model.DispatchResult{
		Reference:   ref,
		Service:     contact.Name,
		Number:      contact.Number,
		Status:      model.DispatchAccepted,
		Message:     fmt.Sprintf("Calling %s - %s", contact.Name, contact.Number),
		Description: "Emergency services will be contacted immediately",
		At:          s.now().UTC(),
	}, nil
}

// ShareLocation sends the caller's position to the emergency contacts.
func (s *Service) ShareLocation(ctx context.Context, caller model.User, req model.ShareLocationRequest) (*model.DispatchResult, error) {
	if err := validLocation(req.Location); err != nil {
		return nil, err
	}

	ref, err := s.dispatcher.Dispatch(ctx, DispatchRequest{
		Kind:     KindLocation,
		Caller:   caller,
		Location: req.Location,
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithContext(ctx).Info("location shared", "reference", ref)
	return &model.DispatchResult{
		Reference:   ref,
		Status:      model.DispatchAccepted,
		Message:     "Location Shared",
		Description: "Your location has been shared with emergency contacts",
		At:          s.now().UTC(),
	}, nil
}

func (s *Service) contact(number string) (model.EmergencyContact, bool) {
	for _, c := range s.directory.Contacts {
		if c.Number == number {
			return c, true
		}
	}
	return model.EmergencyContact{}, false
}

func validLocation(loc *model.Location) error {
	if loc == nil {
		return nil
	}
	if loc.Latitude < -90 || loc.Latitude > 90 || loc.Longitude < -180 || loc.Longitude > 180 {
		return ErrInvalidLocation
	}
	return nil
}
