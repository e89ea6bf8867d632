// Package aggregate groups raw offers from heterogeneous providers
// into canonical product groups with per-group price statistics.
package aggregate

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"pricepulse/internal/domain"
)

const (
	keySeparator = "_"
	minKeyLength = 3
	titleKeyLen  = 50
)

// unknownBrandSentinels are placeholder values that mean "no brand":
// when a provider emits one of these, the brand is recovered from the
// title instead.
var unknownBrandSentinels = map[string]struct{}{
	"":           {},
	"не указан":  {},
	"не указана": {},
	"unknown":    {},
	"n/a":        {},
}

// knownBrands is the fixed brand dictionary used for title-based
// recovery. It is intentionally finite; items from unlisted brands
// keep their provider-supplied brand text, which bounds but does not
// eliminate misgrouping.
var knownBrands = []string{
	"apple", "iphone", "samsung", "xiaomi", "redmi", "huawei", "honor",
	"realme", "oppo", "vivo", "oneplus", "google", "pixel", "nokia",
	"motorola", "sony", "xperia", "tecno", "iqoo", "poco", "nothing",
}

// categoryWords are generic category terms: they prefix brand names in
// marketplace titles ("смартфон apple ...") and are stripped when a
// key has to be derived from the title alone.
var categoryWords = []string{"смартфон", "телефон", "smartphone", "phone"}

// Aggregate groups usable raw items into product groups sorted
// ascending by minimum price. Items sharing a normalized brand+model
// key (or a title-derived fallback key) form one group; the first item
// to introduce a key donates the group's representative fields, and
// each shop contributes at most one price entry per group.
func Aggregate(items []domain.RawItem) []domain.ProductGroup {
	groups := make(map[string]*domain.ProductGroup)
	var order []string

	for _, item := range items {
		if !item.Usable() {
			continue
		}

		key := GroupingKey(item)
		if key == "" {
			continue
		}

		group, exists := groups[key]
		if !exists {
			group = &domain.ProductGroup{
				Key:         key,
				Title:       item.Title,
				Brand:       item.Brand,
				Model:       item.Model,
				Image:       item.Image,
				Description: item.Description,
			}
			groups[key] = group
			order = append(order, key)
		}

		observed := item.ObservedAt
		if observed.IsZero() {
			observed = time.Now().UTC()
		}

		group.AddPrice(domain.PriceEntry{
			ShopName:   item.ShopName,
			Price:      item.Price,
			URL:        item.URL,
			ObservedAt: observed,
		})
	}

	result := make([]domain.ProductGroup, 0, len(order))
	for _, key := range order {
		result = append(result, *groups[key])
	}

	// Stable keeps creation order among equal minimum prices.
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].MinPrice < result[j].MinPrice
	})

	return result
}

// GroupingKey derives the canonical key that decides which group an
// item belongs to: normalized brand+model, with a title-derived
// fallback when brand and model are unusable. Returns "" for items
// that cannot be keyed at all.
func GroupingKey(item domain.RawItem) string {
	brand := normalize(item.Brand)
	model := normalize(item.Model)
	title := normalize(item.Title)

	if _, unknown := unknownBrandSentinels[brand]; unknown {
		brand = recoverBrand(title)
		// A recovered brand without a model still keys the item to a
		// brand-wide bucket; derive the model from the title so the
		// item lands next to properly labelled offers.
		if brand != "" && model == "" {
			model = deriveModel(title, brand)
		}
	}

	key := strings.Trim(brand+keySeparator+model, keySeparator)
	if len([]rune(key)) >= minKeyLength {
		return key
	}

	return titleKey(item.Title)
}

// capacityToken matches storage-size tokens ("256gb", "1тб") that
// title text appends after the model name but labelled offers omit.
var capacityToken = regexp.MustCompile(`^\d+(gb|tb|гб|тб)$`)

// deriveModel takes up to three title tokens following the brand,
// skipping storage-capacity suffixes.
func deriveModel(title, brand string) string {
	idx := strings.Index(title, brand)
	if idx < 0 {
		return ""
	}

	var tokens []string
	for _, token := range strings.Fields(title[idx+len(brand):]) {
		if capacityToken.MatchString(token) {
			continue
		}
		tokens = append(tokens, token)
		if len(tokens) == 3 {
			break
		}
	}
	return strings.Join(tokens, " ")
}

// recoverBrand scans a normalized title for a known brand, either as
// the leading word or following a generic category word.
func recoverBrand(title string) string {
	if title == "" {
		return ""
	}
	for _, brand := range knownBrands {
		if strings.HasPrefix(title, brand) {
			return brand
		}
		for _, category := range categoryWords {
			if strings.Contains(title, category+" "+brand) {
				return brand
			}
		}
	}
	return ""
}

// titleKey builds a fallback key from the first runes of the title
// with generic category words removed.
func titleKey(title string) string {
	t := normalize(title)
	for _, word := range categoryWords {
		t = strings.ReplaceAll(t, word, "")
	}
	t = strings.Join(strings.Fields(t), " ")
	if t == "" {
		return ""
	}

	runes := []rune(t)
	if len(runes) > titleKeyLen {
		runes = runes[:titleKeyLen]
	}
	return strings.TrimSpace(string(runes))
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
