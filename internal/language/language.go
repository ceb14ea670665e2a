package language

import (
	"strings"

	xlanguage "golang.org/x/text/language"
)

type entry struct {
	code2   string   // ISO 639-1
	code3   string   // ISO 639-2 primary
	alt3    string   // ISO 639-2 bibliographic variant
	display string
	words   []string
}

var languages = []entry{
	{"en", "eng", "", "English", []string{"english"}},
	{"es", "spa", "", "Spanish", []string{"spanish", "español", "espanol"}},
	{"fr", "fra", "fre", "French", []string{"french", "français", "francais"}},
	{"de", "deu", "ger", "German", []string{"german", "deutsch"}},
	{"it", "ita", "", "Italian", []string{"italian", "italiano"}},
	{"pt", "por", "", "Portuguese", []string{"portuguese", "português", "portugues"}},
	{"ja", "jpn", "", "Japanese", []string{"japanese"}},
	{"ko", "kor", "", "Korean", []string{"korean"}},
	{"zh", "zho", "chi", "Chinese", []string{"chinese"}},
	{"ru", "rus", "", "Russian", []string{"russian"}},
	{"ar", "ara", "", "Arabic", []string{"arabic"}},
	{"id", "ind", "", "Indonesian", []string{"indonesian", "bahasa"}},
	{"vi", "vie", "", "Vietnamese", []string{"vietnamese"}},
	{"th", "tha", "", "Thai", []string{"thai"}},
	{"tr", "tur", "", "Turkish", []string{"turkish"}},
	{"pl", "pol", "", "Polish", []string{"polish"}},
	{"uk", "ukr", "", "Ukrainian", []string{"ukrainian"}},
}

// regional lists the region-qualified codes MangaDex uses, keyed by the
// display name of the variant.
var regional = map[string]string{
	"pt-br": "Brazilian Portuguese",
	"es-la": "Latin American Spanish",
	"zh-hk": "Traditional Chinese",
	"ja-ro": "Romanized Japanese",
	"ko-ro": "Romanized Korean",
	"zh-ro": "Romanized Chinese",
}

var (
	byCode2 map[string]*entry
	byCode3 map[string]*entry
	byWord  map[string]*entry
)

func init() {
	byCode2 = make(map[string]*entry, len(languages))
	byCode3 = make(map[string]*entry, len(languages)*2)
	byWord = make(map[string]*entry, len(languages))
	for i := range languages {
		e := &languages[i]
		byCode2[e.code2] = e
		byCode3[e.code3] = e
		if e.alt3 != "" {
			byCode3[e.alt3] = e
		}
		for _, w := range e.words {
			byWord[w] = e
		}
	}
}

func lookup(code string) *entry {
	if e, ok := byCode2[code]; ok {
		return e
	}
	if e, ok := byCode3[code]; ok {
		return e
	}
	if e, ok := byWord[code]; ok {
		return e
	}
	return nil
}

// Normalize maps value onto a MangaDex language code. It returns "" when
// value is not a recognizable language.
func Normalize(value string) string {
	code := strings.ToLower(strings.TrimSpace(value))
	code = strings.ReplaceAll(code, "_", "-")
	if code == "" {
		return ""
	}
	if _, ok := regional[code]; ok {
		return code
	}
	base, region, hasRegion := strings.Cut(code, "-")
	if e := lookup(base); e != nil {
		base = e.code2
	} else if parsed := parseBase(base); parsed != "" {
		base = parsed
	} else {
		return ""
	}
	if hasRegion && region != "" {
		return base + "-" + region
	}
	return base
}

// parseBase falls back to the BCP 47 parser for codes outside the table.
func parseBase(code string) string {
	tag, err := xlanguage.Parse(code)
	if err != nil {
		return ""
	}
	base, confidence := tag.Base()
	if confidence == xlanguage.No {
		return ""
	}
	name := base.String()
	if name == "und" || len(name) != 2 {
		return ""
	}
	return name
}

// DisplayName returns a human-readable name for a MangaDex language code.
func DisplayName(code string) string {
	code = Normalize(code)
	if code == "" {
		return "Unknown"
	}
	if name, ok := regional[code]; ok {
		return name
	}
	base, region, _ := strings.Cut(code, "-")
	name := strings.ToUpper(base)
	if e := lookup(base); e != nil {
		name = e.display
	}
	if region != "" {
		return name + " (" + strings.ToUpper(region) + ")"
	}
	return name
}
