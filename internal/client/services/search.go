package services

import (
	"iter"
	"strings"

	"github.com/dmitrijs2005/linkstash/internal/client/models"
)

// Filter restricts a search to one item kind, or to none with FilterAll.
type Filter string

const FilterAll Filter = "all"

func ParseFilter(s string) (Filter, error) {
	if s == "" || s == string(FilterAll) {
		return FilterAll, nil
	}
	k, err := models.ParseKind(s)
	if err != nil {
		return "", err
	}
	return Filter(k), nil
}

// Search lazily yields the items of m matching filter whose texts contain
// query, ignoring case. An empty query matches everything.
func Search(m Mirror, query string, filter Filter) iter.Seq[models.Item] {
	q := strings.ToLower(strings.TrimSpace(query))
	return func(yield func(models.Item) bool) {
		for item := range m.All() {
			if filter != FilterAll && Filter(item.ItemKind()) != filter {
				continue
			}
			if q != "" && !contains(item, q) {
				continue
			}
			if !yield(item) {
				return
			}
		}
	}
}

func contains(item models.Item, q string) bool {
	for _, text := range item.SearchText() {
		if strings.Contains(strings.ToLower(text), q) {
			return true
		}
	}
	return false
}
