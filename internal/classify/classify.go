// Package classify assigns a coarse topic label to an article using URL
// path segments first, then title keywords, then body keywords. It always
// returns a label; the catch-all is "other".
package classify

import "strings"

// Topic labels, in the order they are tried against keyword tables.
var Labels = []string{
	"politics", "economy", "sports", "entertainment", "crime", "education",
	"religion", "international", "tech", "health", "environment", "other",
}

// URL path segments that decide the topic outright. Portals encode section
// names in URLs far more reliably than in page text.
var urlRules = map[string]string{
	"politics":      "politics",
	"election":      "politics",
	"economy":       "economy",
	"economics":     "economy",
	"business":      "economy",
	"trade":         "economy",
	"sports":        "sports",
	"sport":         "sports",
	"cricket":       "sports",
	"football":      "sports",
	"entertainment": "entertainment",
	"culture":       "entertainment",
	"cinema":        "entertainment",
	"crime":         "crime",
	"law-courts":    "crime",
	"education":     "education",
	"campus":        "education",
	"religion":      "religion",
	"islam":         "religion",
	"international": "international",
	"world":         "international",
	"technology":    "tech",
	"tech":          "tech",
	"science":       "tech",
	"health":        "health",
	"lifestyle":     "health",
	"environment":   "environment",
	"climate":       "environment",
}

// Keyword tables for text matching. Bengali terms sit alongside English ones
// because most covered portals publish in Bengali.
var textRules = []struct {
	topic    string
	keywords []string
}{
	{"politics", []string{
		"নির্বাচন", "রাজনীতি", "সংসদ", "মন্ত্রী", "আওয়ামী", "বিএনপি",
		"election", "parliament", "minister", "political",
	}},
	{"economy", []string{
		"অর্থনীতি", "বাজেট", "ব্যাংক", "রেমিট্যান্স", "মূল্যস্ফীতি", "শেয়ারবাজার",
		"economy", "inflation", "budget", "stock market", "remittance",
	}},
	{"sports", []string{
		"ক্রিকেট", "ফুটবল", "খেলা", "টুর্নামেন্ট", "বিশ্বকাপ",
		"cricket", "football", "tournament", "world cup", "match",
	}},
	{"entertainment", []string{
		"সিনেমা", "নাটক", "গান", "অভিনেত্রী", "অভিনেতা", "বিনোদন",
		"movie", "film", "actor", "actress", "music",
	}},
	{"crime", []string{
		"হত্যা", "গ্রেপ্তার", "মামলা", "পুলিশ", "ধর্ষণ", "আদালত",
		"murder", "arrest", "police", "court", "crime",
	}},
	{"education", []string{
		"শিক্ষা", "পরীক্ষা", "বিশ্ববিদ্যালয়", "শিক্ষার্থী", "এসএসসি", "এইচএসসি",
		"education", "exam", "university", "student",
	}},
	{"religion", []string{
		"ইসলাম", "নামাজ", "রোজা", "হজ", "ঈদ", "মসজিদ",
		"islam", "prayer", "mosque", "eid",
	}},
	{"international", []string{
		"যুক্তরাষ্ট্র", "ভারত", "চীন", "আন্তর্জাতিক", "জাতিসংঘ",
		"united states", "india", "china", "united nations", "international",
	}},
	{"tech", []string{
		"প্রযুক্তি", "ইন্টারনেট", "মোবাইল", "সফটওয়্যার",
		"technology", "internet", "software", "smartphone",
	}},
	{"health", []string{
		"স্বাস্থ্য", "হাসপাতাল", "চিকিৎসা", "ডেঙ্গু", "ভ্যাকসিন",
		"health", "hospital", "dengue", "vaccine", "disease",
	}},
	{"environment", []string{
		"পরিবেশ", "জলবায়ু", "বন্যা", "ঘূর্ণিঝড়", "দূষণ",
		"environment", "climate", "flood", "cyclone", "pollution",
	}},
}

// bodyFloor keeps tiny fragments from voting on a topic.
const bodyFloor = 120

// Classify labels one article. The portal id is accepted for future
// per-portal rules but currently unused.
func Classify(portal, url, title, body string) string {
	_ = portal

	lowURL := strings.ToLower(url)
	for _, seg := range strings.FieldsFunc(lowURL, func(r rune) bool {
		return r == '/' || r == '?' || r == '.'
	}) {
		if topic, ok := urlRules[seg]; ok {
			return topic
		}
	}

	if topic, ok := matchText(strings.ToLower(title)); ok {
		return topic
	}
	if len([]rune(body)) >= bodyFloor {
		if topic, ok := matchText(strings.ToLower(body)); ok {
			return topic
		}
	}
	return "other"
}

func matchText(text string) (string, bool) {
	if text == "" {
		return "", false
	}
	for _, rule := range textRules {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				return rule.topic, true
			}
		}
	}
	return "", false
}
