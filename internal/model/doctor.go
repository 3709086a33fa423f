package model

// Doctor is a read-only catalog entry.
type Doctor struct {
	ID            int      `json:"id" yaml:"id"`
	Name          string   `json:"name" yaml:"name"`
	NameHi        string   `json:"name_hi" yaml:"name_hi"`
	Specialty     string   `json:"specialty" yaml:"specialty"`
	SpecialtyHi   string   `json:"specialty_hi" yaml:"specialty_hi"`
	Experience    int      `json:"experience" yaml:"experience"`
	Languages     []string `json:"languages" yaml:"languages"`
	Rating        float64  `json:"rating" yaml:"rating"`
	Reviews       int      `json:"reviews" yaml:"reviews"`
	Fee           float64  `json:"fee" yaml:"fee"`
	NextAvailable string   `json:"available" yaml:"available"`
	Image         string   `json:"image" yaml:"image"`
}

type DoctorFilters struct {
	Search    string `form:"search"`
	Specialty string `form:"specialty"`
}
