package models

type Country struct {
	Country   string   `json:"country" yaml:"country"`
	Languages []string `json:"languages" yaml:"languages"`
}

// Speaks reports whether language appears in the country's language list.
func (c Country) Speaks(language string) bool {
	for _, l := range c.Languages {
		if l == language {
			return true
		}
	}
	return false
}

type LanguageCount struct {
	Language  string `json:"language"`
	Countries int    `json:"countries"`
}

type AnalysisResult struct {
	CountryCount                     int      `json:"country_count"`
	MostPolyglotCountry              string   `json:"most_polyglot_country"`
	MostPolyglotGermanSpeakerCountry string   `json:"most_polyglot_german_speaker_country"`
	OfficialLanguageCount            int      `json:"official_language_count"`
	MostSpokenLanguages              []string `json:"most_spoken_languages"`
}

type AnalysisRequest struct {
	Countries []Country `json:"countries"`
	URL       string    `json:"url"`
}

type AnalysisRecord struct {
	ID          string         `json:"id"`
	Fingerprint string         `json:"fingerprint"`
	Cached      bool           `json:"cached"`
	Countries   []Country      `json:"countries,omitempty"`
	Result      AnalysisResult `json:"result"`
	CreatedAt   string         `json:"created_at,omitempty"`
}
