package models

// Signal source names. Fallback collectors use their own registered names.
const (
	SourceOverride = "override"
	SourcePrimary  = "primary"
	SourceManual   = "manual"
)

// SignalSet holds the raw profile attributes gathered for one username.
// JSON keys match the field names the classifier's training data was built from.
type SignalSet struct {
	HasProfilePic      bool    `json:"has_profile_pic"`
	BioLength          int     `json:"bio_length"`
	Followers          int64   `json:"followers"`
	Followees          int64   `json:"followees"`
	Posts              int64   `json:"posts"`
	FullnameWords      int     `json:"fullname_words"`
	NameEqualsUsername bool    `json:"name==username"`
	UsernameDigitRatio float64 `json:"nums/length_username"`
	FullnameDigitRatio float64 `json:"nums/length_fullname"`
	ExternalURL        bool    `json:"external_url"`
	IsBusiness         bool    `json:"is_business"`

	Source  string `json:"source,omitempty"`  // "primary" or the fallback collector name
	Partial bool   `json:"partial,omitempty"` // true when produced by a fallback collector
}

// IsEmpty reports whether no profile signal was acquired at all.
// The digit ratios are derived from the username itself and are ignored.
func (s SignalSet) IsEmpty() bool {
	return !s.HasProfilePic &&
		s.BioLength == 0 &&
		s.Followers == 0 &&
		s.Followees == 0 &&
		s.Posts == 0 &&
		s.FullnameWords == 0 &&
		!s.NameEqualsUsername &&
		!s.ExternalURL &&
		!s.IsBusiness
}

// Fields returns the signals keyed by their source field names.
// Booleans are represented as 0 or 1.
func (s SignalSet) Fields() map[string]float64 {
	return map[string]float64{
		"has_profile_pic":      boolToFloat(s.HasProfilePic),
		"nums/length_username": s.UsernameDigitRatio,
		"fullname_words":       float64(s.FullnameWords),
		"nums/length_fullname": s.FullnameDigitRatio,
		"name==username":       boolToFloat(s.NameEqualsUsername),
		"bio_length":           float64(s.BioLength),
		"external_url":         boolToFloat(s.ExternalURL),
		"posts":                float64(s.Posts),
		"followers":            float64(s.Followers),
		"followees":            float64(s.Followees),
		"is_business":          boolToFloat(s.IsBusiness),
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
