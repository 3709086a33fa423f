package model

type Vital struct {
	Month string `json:"month" yaml:"month"`
	BP    int    `json:"bp" yaml:"bp"`
	Sugar int    `json:"sugar" yaml:"sugar"`
}

type UpcomingVisit struct {
	ID        int    `json:"id" yaml:"id"`
	Doctor    string `json:"doctor" yaml:"doctor"`
	Specialty string `json:"specialty" yaml:"specialty"`
	Date      string `json:"date" yaml:"date"`
	Time      string `json:"time" yaml:"time"`
	Status    string `json:"status" yaml:"status"`
}

type Prescription struct {
	ID       int    `json:"id" yaml:"id"`
	Medicine string `json:"medicine" yaml:"medicine"`
	Dosage   string `json:"dosage" yaml:"dosage"`
	Duration string `json:"duration" yaml:"duration"`
	Taken    int    `json:"taken" yaml:"taken"`
	Total    int    `json:"total" yaml:"total"`
}

type Vaccination struct {
	Name   string `json:"name" yaml:"name"`
	Status string `json:"status" yaml:"status"`
	Date   string `json:"date" yaml:"date"`
}

type TimelineEntry struct {
	Date   string `json:"date" yaml:"date"`
	Event  string `json:"event" yaml:"event"`
	Doctor string `json:"doctor" yaml:"doctor"`
	Status string `json:"status" yaml:"status"`
}

type PatientProfile struct {
	Name       string `json:"name" yaml:"name"`
	NameHi     string `json:"name_hi" yaml:"name_hi"`
	Age        int    `json:"age" yaml:"age"`
	BloodGroup string `json:"blood_group" yaml:"blood_group"`
	Village    string `json:"village" yaml:"village"`
}

type PatientDashboard struct {
	Profile       PatientProfile  `json:"profile" yaml:"profile"`
	HealthScore   int             `json:"health_score" yaml:"health_score"`
	Vitals        []Vital         `json:"vitals" yaml:"vitals"`
	Appointments  []UpcomingVisit `json:"appointments" yaml:"appointments"`
	Prescriptions []Prescription  `json:"prescriptions" yaml:"prescriptions"`
	Vaccinations  []Vaccination   `json:"vaccinations" yaml:"vaccinations"`
	Timeline      []TimelineEntry `json:"timeline" yaml:"timeline"`
}

type RecentPatient struct {
	Name        string `json:"name" yaml:"name"`
	NameHi      string `json:"name_hi" yaml:"name_hi"`
	LastVisit   string `json:"last_visit" yaml:"last_visit"`
	Condition   string `json:"condition" yaml:"condition"`
	ConditionHi string `json:"condition_hi" yaml:"condition_hi"`
}

type DoctorDashboard struct {
	Appointments   []Appointment   `json:"appointments"`
	Stats          DoctorStats     `json:"stats"`
	RecentPatients []RecentPatient `json:"recent_patients"`
	Revision       int64           `json:"revision"`
}

type AshaPatient struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	NameHi      string `json:"name_hi" yaml:"name_hi"`
	Village     string `json:"village" yaml:"village"`
	Status      string `json:"status" yaml:"status"`
	LastVisit   string `json:"last_visit" yaml:"last_visit"`
	Condition   string `json:"condition" yaml:"condition"`
	ConditionHi string `json:"condition_hi" yaml:"condition_hi"`
}

type Village struct {
	Name          string `json:"name" yaml:"name"`
	NameHi        string `json:"name_hi" yaml:"name_hi"`
	Families      int    `json:"families" yaml:"families"`
	HealthScore   int    `json:"health_score" yaml:"health_score"`
	Vaccination   int    `json:"vaccination" yaml:"vaccination"`
	CriticalCases int    `json:"critical_cases" yaml:"critical_cases"`
}

type Activity struct {
	Title        string `json:"title" yaml:"title"`
	TitleHi      string `json:"title_hi" yaml:"title_hi"`
	Date         string `json:"date" yaml:"date"`
	Village      string `json:"village" yaml:"village"`
	Participants int    `json:"participants" yaml:"participants"`
}

type AshaDashboard struct {
	Patients   []AshaPatient `json:"patients" yaml:"patients"`
	Villages   []Village     `json:"villages" yaml:"villages"`
	Activities []Activity    `json:"activities" yaml:"activities"`
}

type PlatformUser struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Role     Role   `json:"role" yaml:"role"`
	Email    string `json:"email" yaml:"email"`
	Status   string `json:"status" yaml:"status"`
	JoinDate string `json:"join_date" yaml:"join_date"`
}

type SystemMetric struct {
	Label   string  `json:"label" yaml:"label"`
	LabelHi string  `json:"label_hi" yaml:"label_hi"`
	Value   float64 `json:"value" yaml:"value"`
	Total   float64 `json:"total" yaml:"total"`
	Status  string  `json:"status" yaml:"status"`
}

type AdminDashboard struct {
	Users   []PlatformUser `json:"users" yaml:"users"`
	Metrics []SystemMetric `json:"metrics" yaml:"metrics"`
}

type DashboardActionRequest struct {
	Target string `json:"target" validate:"required"`
	Type   string `json:"type"`
}

// ActionResult is a presentational acknowledgement; nothing is mutated.
type ActionResult struct {
	Action      string `json:"action"`
	Target      string `json:"target"`
	Message     string `json:"message"`
	Description string `json:"description,omitempty"`
}

type ChatbotEmbed struct {
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	Permissions []string `json:"permissions"`
}
