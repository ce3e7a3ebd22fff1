package dedup

import "github.com/yuukiLike/cc-catch-news/internal/domain"

// Articles keeps the first article for every URL fingerprint, preserving order.
func Articles(articles []domain.RawArticle) []domain.RawArticle {
	seen := make(map[string]struct{}, len(articles))
	unique := make([]domain.RawArticle, 0, len(articles))

	for _, article := range articles {
		key := Fingerprint(article.URL)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, article)
	}

	return unique
}
