package catalog

import (
	"encoding/json"
	"fmt"

	"github.com/yourusername/storefront/pkg/model"
)

// categoryObject is the object form of a category entry.
type categoryObject struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// decodeCategories accepts a JSON array whose items are either slugs or
// objects carrying a slug. Empty slugs are skipped and duplicates dropped,
// keeping the first occurrence.
//
// decodeCategories 接受元素为标识字符串或包含slug的对象的JSON数组。
// 跳过空标识并丢弃重复项，保留第一次出现的位置。
func decodeCategories(data []byte) ([]model.Category, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("categories: %w", err)
	}

	seen := make(map[string]struct{}, len(items))
	out := make([]model.Category, 0, len(items))
	for i, raw := range items {
		slug, err := categorySlug(raw)
		if err != nil {
			return nil, fmt.Errorf("categories[%d]: %w", i, err)
		}
		if slug == "" {
			continue
		}
		if _, ok := seen[slug]; ok {
			continue
		}
		seen[slug] = struct{}{}
		out = append(out, slug)
	}
	return out, nil
}

func categorySlug(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var obj categoryObject
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", fmt.Errorf("neither a slug nor a category object: %s", raw)
	}
	return obj.Slug, nil
}
