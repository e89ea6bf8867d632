package provider

import (
	"context"
	"regexp"
	"strings"

	"pricepulse/internal/domain"
)

// Provider is a single source of raw product offers. Implementations
// differ only in acquisition technique (structured API, HTML scraping,
// browser automation, static data) and return the same item shape.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, limit int) ([]domain.RawItem, error)
	Popular(ctx context.Context, category string, limit int) ([]domain.RawItem, error)
}

// knownBrands is a fixed dictionary of phone vendors used to recover
// a brand from free-text titles. It is intentionally finite and
// incomplete: unseen brands fall back to first-word heuristics.
var knownBrands = []string{
	"Apple", "iPhone", "Samsung", "Xiaomi", "Redmi", "Huawei", "Honor",
	"Realme", "Oppo", "Vivo", "OnePlus", "Google", "Pixel", "Nokia",
	"Motorola", "Sony", "Xperia", "TECNO", "iQOO", "POCO", "Nothing",
}

// categoryWords are generic product-category prefixes stripped before
// brand detection ("Смартфон Apple iPhone 15" -> "Apple iPhone 15").
var categoryWords = []string{"смартфон", "телефон", "smartphone", "phone"}

// ExtractBrandModel pulls a brand and model out of a free-text title.
// The brand is matched against the known-brand dictionary; the model
// is up to three tokens following the brand token.
func ExtractBrandModel(title string) (brand, model string) {
	cleaned := strings.TrimSpace(title)
	for _, word := range categoryWords {
		cleaned = strings.TrimSpace(trimWordPrefix(cleaned, word))
	}

	parts := strings.Fields(cleaned)
	if len(parts) == 0 {
		return "", ""
	}

	brandIdx := -1
	for i, part := range parts {
		upper := strings.ToUpper(part)
		for _, known := range knownBrands {
			knownUpper := strings.ToUpper(known)
			if strings.Contains(upper, knownUpper) || strings.Contains(knownUpper, upper) {
				brand = known
				brandIdx = i
				break
			}
		}
		if brand != "" {
			break
		}
	}

	if brand == "" {
		brand = parts[0]
		brandIdx = 0
	}

	if brandIdx+1 < len(parts) {
		end := brandIdx + 4
		if end > len(parts) {
			end = len(parts)
		}
		model = strings.Join(parts[brandIdx+1:end], " ")
	}

	return brand, model
}

func trimWordPrefix(s, word string) string {
	if len(s) < len(word) {
		return s
	}
	if strings.EqualFold(s[:len(word)], word) {
		return s[len(word):]
	}
	return s
}

var productIDPattern = regexp.MustCompile(`/product/(\d+)`)

// ExtractProductID pulls the marketplace-local product id out of a
// product URL, or returns "".
func ExtractProductID(rawURL string) string {
	match := productIDPattern.FindStringSubmatch(rawURL)
	if match == nil {
		return ""
	}
	return match[1]
}

// FilterUsable drops items that cannot be grouped (missing title or
// non-positive price) and returns the survivors plus the drop count.
func FilterUsable(items []domain.RawItem) ([]domain.RawItem, int) {
	usable := make([]domain.RawItem, 0, len(items))
	for _, item := range items {
		if item.Usable() {
			usable = append(usable, item)
		}
	}
	return usable, len(items) - len(usable)
}
