package services

import (
	"visual-nuts/models"
)

const German = "de"

// Analyze derives the country statistics for one batch. It never fails and
// never modifies countries; an empty batch yields the zero-valued result with
// an empty (non-nil) MostSpokenLanguages.
func Analyze(countries []models.Country) models.AnalysisResult {
	languages := CollectDistinctLanguages(countries)

	result := models.AnalysisResult{
		CountryCount:          len(countries),
		OfficialLanguageCount: len(languages),
		MostSpokenLanguages:   mostCommon(CountCountriesPerLanguage(countries, languages)),
	}

	mp, ok := FindMostPolyglotCountry(countries)
	if !ok {
		return result
	}
	result.MostPolyglotCountry = mp.Country

	if mp.Speaks(German) {
		result.MostPolyglotGermanSpeakerCountry = mp.Country
	} else if gs, ok := FindMostPolyglotCountrySpeaking(countries, German); ok {
		result.MostPolyglotGermanSpeakerCountry = gs.Country
	}

	return result
}

// CollectDistinctLanguages returns the union of all language lists, each
// language once, in order of first appearance.
func CollectDistinctLanguages(countries []models.Country) []string {
	seen := make(map[string]bool)
	languages := make([]string, 0)

	for _, c := range countries {
		for _, l := range c.Languages {
			if seen[l] {
				continue
			}
			seen[l] = true
			languages = append(languages, l)
		}
	}

	return languages
}

// CountCountriesPerLanguage counts, for every language, the countries whose
// list contains it. Repeats inside one country's list count once.
func CountCountriesPerLanguage(countries []models.Country, languages []string) []models.LanguageCount {
	languageCountries := make(map[string]map[int]bool, len(languages))
	for _, l := range languages {
		languageCountries[l] = make(map[int]bool)
	}

	for i, c := range countries {
		for _, l := range c.Languages {
			if set, ok := languageCountries[l]; ok {
				set[i] = true
			}
		}
	}

	result := make([]models.LanguageCount, 0, len(languages))
	for _, l := range languages {
		result = append(result, models.LanguageCount{
			Language:  l,
			Countries: len(languageCountries[l]),
		})
	}

	return result
}

// FindMostPolyglotCountry returns the country with the longest language list.
// Ties go to the earliest entry.
func FindMostPolyglotCountry(countries []models.Country) (models.Country, bool) {
	if len(countries) == 0 {
		return models.Country{}, false
	}

	best := countries[0]
	for _, c := range countries[1:] {
		if len(c.Languages) > len(best.Languages) {
			best = c
		}
	}

	return best, true
}

func FindMostPolyglotCountrySpeaking(countries []models.Country, language string) (models.Country, bool) {
	speakers := make([]models.Country, 0, len(countries))
	for _, c := range countries {
		if c.Speaks(language) {
			speakers = append(speakers, c)
		}
	}
	return FindMostPolyglotCountry(speakers)
}

// FindMostCommonLanguages returns every language spoken in the highest number
// of distinct countries.
func FindMostCommonLanguages(countries []models.Country) []string {
	languages := CollectDistinctLanguages(countries)
	return mostCommon(CountCountriesPerLanguage(countries, languages))
}

func mostCommon(counts []models.LanguageCount) []string {
	top := 0
	for _, lc := range counts {
		if lc.Countries > top {
			top = lc.Countries
		}
	}

	result := make([]string, 0)
	for _, lc := range counts {
		if lc.Countries == top {
			result = append(result, lc.Language)
		}
	}

	return result
}
