package catalog

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sehatsathi/sehatsathi-api/internal/model"
	apperrors "github.com/sehatsathi/sehatsathi-api/pkg/errors"
)

// SpecialtyAll disables the specialty filter.
const SpecialtyAll = "all"

var ErrDoctorNotFound = apperrors.NotFound("doctor", nil)

//go:embed data/doctors.yaml
var catalogYAML []byte

type catalogFile struct {
	Doctors   []model.Doctor `yaml:"doctors"`
	TimeSlots []string       `yaml:"time_slots"`
}

// Service serves the read-only doctor catalog.
type Service struct {
	doctors []model.Doctor
	byID    map[int]model.Doctor
	slots   []string
}

func NewService() (*Service, error) {
	return Parse(catalogYAML)
}

// Parse builds a catalog from YAML with the embedded file's layout.
func Parse(data []byte) (*Service, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse doctor catalog: %w", err)
	}

	byID := make(map[int]model.Doctor, len(f.Doctors))
	for _, d := range f.Doctors {
		if _, dup := byID[d.ID]; dup {
			return nil, fmt.Errorf("duplicate doctor id %d", d.ID)
		}
		byID[d.ID] = d
	}

	return &Service{doctors: f.Doctors, byID: byID, slots: f.TimeSlots}, nil
}

func (s *Service) List() []model.Doctor {
	return s.copyOf(s.doctors)
}

func (s *Service) Get(id int) (*model.Doctor, error) {
	d, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%d: %w", id, ErrDoctorNotFound)
	}
	d.Languages = append([]string(nil), d.Languages...)
	return &d, nil
}

// Search matches term case-insensitively against name, specialty and
// languages. An empty specialty or "all" keeps every specialty; any other
// value must match exactly.
func (s *Service) Search(filters model.DoctorFilters) []model.Doctor {
	term := strings.ToLower(strings.TrimSpace(filters.Search))

	out := make([]model.Doctor, 0, len(s.doctors))
	for _, d := range s.doctors {
		if filters.Specialty != "" && filters.Specialty != SpecialtyAll && d.Specialty != filters.Specialty {
			continue
		}
		if term != "" && !matches(d, term) {
			continue
		}
		out = append(out, d)
	}
	return s.copyOf(out)
}

// Specialties lists the distinct specialties in catalog order.
func (s *Service) Specialties() []string {
	seen := make(map[string]struct{}, len(s.doctors))
	var out []string
	for _, d := range s.doctors {
		if _, ok := seen[d.Specialty]; ok {
			continue
		}
		seen[d.Specialty] = struct{}{}
		out = append(out, d.Specialty)
	}
	return out
}

func (s *Service) TimeSlots() []string {
	return append([]string(nil), s.slots...)
}

func (s *Service) copyOf(list []model.Doctor) []model.Doctor {
	out := make([]model.Doctor, len(list))
	for i, d := range list {
		d.Languages = append([]string(nil), d.Languages...)
		out[i] = d
	}
	return out
}

func matches(d model.Doctor, term string) bool {
	if strings.Contains(strings.ToLower(d.Name), term) || strings.Contains(strings.ToLower(d.Specialty), term) {
		return true
	}
	for _, lang := range d.Languages {
		if strings.Contains(strings.ToLower(lang), term) {
			return true
		}
	}
	return false
}
