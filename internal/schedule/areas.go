package schedule

import "strings"

// AreaOther is returned for hotels that match no known area.
const AreaOther = "Other"

type areaRule struct {
	area     string
	keywords []string
}

// areaRules is checked in order; the first keyword hit wins. Keywords are
// matched case-insensitively as substrings of the hotel name.
var areaRules = []areaRule{
	{area: "Maezato", keywords: []string{"ANAインターコンチネンタル", "ana intercontinental", "真栄里", "maezato"}},
	{area: "Fusaki", keywords: []string{"フサキ", "fusaki"}},
	{area: "Arakawa", keywords: []string{"グランヴィリオ", "grandvrio", "新川", "arakawa"}},
	{area: "Okawa", keywords: []string{"アートホテル", "art hotel", "大川", "okawa"}},
	{area: "Misakicho", keywords: []string{"ミヤヒラ", "miyahira", "ベッセル", "vessel", "美崎", "misaki"}},
	{area: "Kabira", keywords: []string{"川平", "kabira"}},
	{area: "Shiraho", keywords: []string{"白保", "shiraho"}},
	{area: "Yonehara", keywords: []string{"米原", "yonehara"}},
	{area: "City center", keywords: []string{"石垣港", "ishigaki port", "ビジネスホテル", "business hotel", "市街地"}},
}

// AreaForHotel maps a hotel name to its pickup area.
func AreaForHotel(hotelName string) string {
	name := strings.ToLower(hotelName)
	for _, rule := range areaRules {
		for _, kw := range rule.keywords {
			if strings.Contains(name, strings.ToLower(kw)) {
				return rule.area
			}
		}
	}
	return AreaOther
}
