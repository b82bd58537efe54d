package search

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Rules decide which search results can be an organization's homepage.
type Rules struct {
	// Exclude lists domains that are never a homepage: search engines,
	// portals, news, encyclopedias, directories.
	Exclude []string `yaml:"exclude"`
	// Social lists domains accepted as a homepage for small organizations.
	Social []string `yaml:"social"`
	// SocialMultiplier scales confidence for a social homepage.
	SocialMultiplier float64 `yaml:"social_multiplier"`
	// SmallOrgKeywords mark a name or category as a small organization.
	SmallOrgKeywords []string `yaml:"small_org_keywords"`
}

// DefaultRules returns the built-in rule set.
func DefaultRules() Rules {
	return Rules{
		Exclude: []string{
			"google.com", "google.co.kr", "bing.com", "yahoo.com", "duckduckgo.com",
			"naver.com", "daum.net", "kakao.com", "nate.com", "zum.com",
			"wikipedia.org", "namu.wiki",
			"chosun.com", "joongang.co.kr", "donga.com", "hani.co.kr", "khan.co.kr",
			"yna.co.kr", "mk.co.kr", "hankyung.com", "newsis.com", "news1.kr",
			"twitter.com", "x.com", "linkedin.com", "tistory.com",
			"saramin.co.kr", "jobkorea.co.kr", "catch.co.kr",
		},
		Social: []string{
			"blog.naver.com", "cafe.naver.com", "m.blog.naver.com", "pf.kakao.com",
			"facebook.com", "instagram.com", "band.us", "youtube.com",
		},
		SocialMultiplier: 0.7,
		SmallOrgKeywords: []string{
			"교회", "성당", "사찰", "학원", "교습소", "의원", "한의원", "치과",
			"어린이집", "유치원", "church", "academy", "clinic", "tutoring",
		},
	}
}

// LoadRules reads rules from a YAML file. Lists present in the file
// replace the defaults; absent lists keep them.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return rules, eris.Wrapf(err, "search: read rules %s", path)
	}
	var file Rules
	if err := yaml.Unmarshal(data, &file); err != nil {
		return rules, eris.Wrap(err, "search: parse rules")
	}

	if len(file.Exclude) > 0 {
		rules.Exclude = file.Exclude
	}
	if len(file.Social) > 0 {
		rules.Social = file.Social
	}
	if len(file.SmallOrgKeywords) > 0 {
		rules.SmallOrgKeywords = file.SmallOrgKeywords
	}
	if file.SocialMultiplier > 0 && file.SocialMultiplier <= 1 {
		rules.SocialMultiplier = file.SocialMultiplier
	}
	return rules, nil
}

// IsSmallOrg reports whether the name or category contains a small
// organization keyword.
func (r Rules) IsSmallOrg(name, category string) bool {
	text := strings.ToLower(name + " " + category)
	for _, kw := range r.SmallOrgKeywords {
		if kw != "" && strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
