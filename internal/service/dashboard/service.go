package dashboard

import (
	_ "embed"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sehatsathi/sehatsathi-api/internal/model"
	"github.com/sehatsathi/sehatsathi-api/internal/service/appointment"
	apperrors "github.com/sehatsathi/sehatsathi-api/pkg/errors"
)

// Presentational actions. None of them change stored state.
const (
	ActionApproveUser       = "approve-user"
	ActionRejectUser        = "reject-user"
	ActionDeactivateUser    = "deactivate-user"
	ActionCallPatient       = "call-patient"
	ActionScheduleVisit     = "schedule-visit"
	ActionViewRecords       = "view-records"
	ActionStartConsultation = "start-consultation"
)

var (
	ErrUnknownAction   = apperrors.NotFound("dashboard action", nil)
	ErrUnknownTarget   = apperrors.NotFound("action target", nil)
	ErrActionForbidden = apperrors.Forbidden("action not available for this role", nil)
)

//go:embed data/dashboards.yaml
var dashboardsYAML []byte

type dashboardsFile struct {
	Patient        model.PatientDashboard `yaml:"patient"`
	RecentPatients []model.RecentPatient  `yaml:"recent_patients"`
	Asha           model.AshaDashboard    `yaml:"asha"`
	Admin          model.AdminDashboard   `yaml:"admin"`
}

// DoctorView supplies the live appointment list.
type DoctorView interface {
	List() appointment.View
}

type Service struct {
	data   dashboardsFile
	doctor DoctorView
	now    func() time.Time
}

func NewService(doctor DoctorView) (*Service, error) {
	var data dashboardsFile
	if err := yaml.Unmarshal(dashboardsYAML, &data); err != nil {
		return nil, fmt.Errorf("failed to parse dashboards: %w", err)
	}
	return &Service{data: data, doctor: doctor, now: time.Now}, nil
}

func (s *Service) PatientHome() model.PatientDashboard {
	d := s.data.Patient
	d.Vitals = append([]model.Vital{}, d.Vitals...)
	d.Appointments = append([]model.UpcomingVisit{}, d.Appointments...)
	d.Prescriptions = append([]model.Prescription{}, d.Prescriptions...)
	d.Vaccinations = append([]model.Vaccination{}, d.Vaccinations...)
	d.Timeline = append([]model.TimelineEntry{}, d.Timeline...)
	return d
}

func (s *Service) Doctor() model.DoctorDashboard {
	view := s.doctor.List()
	return model.DoctorDashboard{
		Appointments:   view.Appointments,
		Stats:          appointment.Stats(view.Appointments, s.now()),
		RecentPatients: append([]model.RecentPatient{}, s.data.RecentPatients...),
		Revision:       view.Revision,
	}
}

func (s *Service) Asha() model.AshaDashboard {
	return model.AshaDashboard{
		Patients:   append([]model.AshaPatient{}, s.data.Asha.Patients...),
		Villages:   append([]model.Village{}, s.data.Asha.Villages...),
		Activities: append([]model.Activity{}, s.data.Asha.Activities...),
	}
}

func (s *Service) Admin() model.AdminDashboard {
	return model.AdminDashboard{
		Users:   append([]model.PlatformUser{}, s.data.Admin.Users...),
		Metrics: append([]model.SystemMetric{}, s.data.Admin.Metrics...),
	}
}

// Act acknowledges a dashboard action for role. Targets are user ids for
// admin actions, ASHA patient ids for ASHA actions and free text for
// doctor actions.
func (s *Service) Act(role model.Role, action string, req model.DashboardActionRequest) (*model.ActionResult, error) {
	owner, ok := actionRoles[action]
	if !ok {
		return nil, fmt.Errorf("%q: %w", action, ErrUnknownAction)
	}
	if role != owner {
		return nil, fmt.Errorf("%s by %s: %w", action, role, ErrActionForbidden)
	}

	target := strings.TrimSpace(req.Target)
	result := &model.ActionResult{Action: action, Target: target}

	switch action {
	case ActionApproveUser, ActionRejectUser, ActionDeactivateUser:
		name, err := s.userName(target)
		if err != nil {
			return nil, err
		}
		switch action {
		case ActionApproveUser:
			result.Message = fmt.Sprintf("%s approved! / %s को मंजूरी दी गई!", name, name)
		case ActionRejectUser:
			result.Message = fmt.Sprintf("%s rejected / %s को अस्वीकार किया गया", name, name)
		default:
			result.Message = fmt.Sprintf("%s deactivated / %s को निष्क्रिय किया गया", name, name)
		}

	case ActionCallPatient, ActionScheduleVisit:
		name, err := s.ashaPatientName(target)
		if err != nil {
			return nil, err
		}
		if action == ActionCallPatient {
			result.Message = fmt.Sprintf("Calling %s... / %s को कॉल कर रहे हैं...", name, name)
		} else {
			result.Message = fmt.Sprintf("Visit scheduled for %s / %s के लिए यात्रा निर्धारित", name, name)
		}

	case ActionViewRecords:
		result.Message = fmt.Sprintf("Loading records for %s...", target)
		result.Description = "Patient medical history and previous consultations"

	case ActionStartConsultation:
		kind := req.Type
		if kind == "" {
			kind = string(model.ConsultationVideo)
		}
		result.Message = fmt.Sprintf("Starting %s consultation... / परामर्श शुरू हो रहा है...", kind)
		result.Description = "Connecting to consultation room..."
	}

	return result, nil
}

var actionRoles = map[string]model.Role{
	ActionApproveUser:       model.RoleAdmin,
	ActionRejectUser:        model.RoleAdmin,
	ActionDeactivateUser:    model.RoleAdmin,
	ActionCallPatient:       model.RoleAsha,
	ActionScheduleVisit:     model.RoleAsha,
	ActionViewRecords:       model.RoleDoctor,
	ActionStartConsultation: model.RoleDoctor,
}

func (s *Service) userName(id string) (string, error) {
	for _, u := range s.data.Admin.Users {
		if u.ID == id {
			return u.Name, nil
		}
	}
	return "", fmt.Errorf("user %q: %w", id, ErrUnknownTarget)
}

func (s *Service) ashaPatientName(id string) (string, error) {
	for _, p := range s.data.Asha.Patients {
		if p.ID == id {
			return p.Name, nil
		}
	}
	return "", fmt.Errorf("patient %q: %w", id, ErrUnknownTarget)
}
