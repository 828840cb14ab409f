package extract

import "go.uber.org/zap"

// DefaultRegistry returns a registry preloaded with extractors for portals
// whose markup we have tuned selectors for. Selector lists are ordered most
// specific first; layout changes usually just demote a candidate.
func DefaultRegistry(logger *zap.Logger) *Registry {
	r := NewRegistry(logger)

	r.Register("risingbd", &SelectorExtractor{
		Strip: ".related-news, .tag-list, .social-share",
		BodyCandidates: []string{
			"div.article-content",
			"div.news-content",
			"article",
		},
	})

	r.Register("deshrupantor", &SelectorExtractor{
		Strip: ".advertisement, .related-post",
		BodyCandidates: []string{
			"div.news-details",
			"div.content-details",
			"article",
		},
	})

	r.Register("ittefaq", &SelectorExtractor{
		Strip: ".also-read, .ads_content, .topic_list",
		BodyCandidates: []string{
			"div[itemprop=articleBody]",
			"div.viewport_jb_dtl_content",
			"article",
		},
	})

	r.Register("samakal", &SelectorExtractor{
		Strip: ".read-more, .dfp-ad",
		BodyCandidates: []string{
			"div.description",
			"div.detail-content",
			"article",
		},
	})

	r.Register("banglatribune", &SelectorExtractor{
		Strip: ".highlighted-content, .advertisement",
		BodyCandidates: []string{
			"div.viewport_jb_dtl_content",
			"div[itemprop=articleBody]",
			"article",
		},
	})

	r.Register("bbc_bangla", &SelectorExtractor{
		Strip: "figure, aside",
		BodyCandidates: []string{
			"main[role=main]",
			"div[dir=ltr]",
			"article",
		},
	})

	r.Register("jagonews24", &SelectorExtractor{
		Strip: ".related-article, .ad-container",
		BodyCandidates: []string{
			"div.content-details",
			"div#contentDetails",
			"article",
		},
	})

	return r
}
