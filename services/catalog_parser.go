package services

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/fenilmodi00/deals-backend/models"
	"github.com/fenilmodi00/deals-backend/shared"
)

const (
	// specSentinel is the "no value" token the catalog pads specs with.
	specSentinel = "connectivity:N/A"
	// likeNewSuffix distinguishes refurbished listings in the model slug.
	likeNewSuffix = "-like-new"
	// colorSpecKey is the spec token key extracted into its own field.
	colorSpecKey = "colour"
)

// ParseSpec normalizes a raw underscore-joined spec string, e.g.
// "connectivity:N/A_colour:black_memory:64gb". The sentinel token is
// discarded, the colour token becomes the separate color value, and the
// remaining tokens are joined with single spaces in their original order.
// A token without a key:value separator is a fatal parse error for the
// product it came from, never silently skipped.
func ParseSpec(rawSpec string) (color string, spec string, err error) {
	var specTokens []string

	for _, token := range strings.Split(rawSpec, "_") {
		if token == specSentinel {
			continue
		}

		key, value, found := strings.Cut(token, ":")
		if !found {
			return "", "", shared.NewServiceError(
				shared.ErrorCategoryValidation,
				"MALFORMED_SPEC_TOKEN",
				fmt.Sprintf("spec token %q has no key:value separator", token),
				"CatalogParser",
				"ParseSpec",
				false,
				nil,
			)
		}

		if key == colorSpecKey {
			color = value
			continue
		}

		specTokens = append(specTokens, token)
	}

	return color, strings.Join(specTokens, " "), nil
}

// ParseModelFromLink extracts the canonical model identity from a listing
// link of the form /shop/<brand>/<model-slug>#<fragment>. The like-new
// suffix is stripped so both conditions of the same phone share a model key.
func ParseModelFromLink(link string) string {
	segments := strings.Split(link, "/")
	modelPart := segments[len(segments)-1]
	model, _, _ := strings.Cut(modelPart, "#")
	return strings.TrimSuffix(model, likeNewSuffix)
}

// NormalizeLink rewrites a listing link to point at the variant-detail
// (tariff) page, which carries the variant JSON and is what the report links to.
func NormalizeLink(link string) string {
	return strings.Replace(link, "/shop", "/shop/tariff", 1)
}

// drupalSettings mirrors the JSON blob embedded in the detail page's
// drupal-settings script tag. ProductDetails is itself a JSON document
// encoded as a string.
type drupalSettings struct {
	O2Theme struct {
		ProductDetails string `json:"ProductDetails"`
	} `json:"o2_theme"`
}

type productDetails struct {
	DeviceInfoV2 struct {
		Variants map[string]variantPayload `json:"variants"`
	} `json:"deviceInfoV2"`
}

type variantPayload struct {
	StockInfo struct {
		Stock string `json:"stock"`
	} `json:"stockInfo"`
	CashPrice struct {
		OneOff int64 `json:"oneOff"`
	} `json:"cashPrice"`
	RRP struct {
		OneOff int64 `json:"oneOff"`
	} `json:"rrp"`
}

// ParseProductDetails decodes the double-encoded drupal-settings JSON from a
// product detail page into variant records. Variant map keys are URL-escaped
// spec strings; they are unescaped and normalized through ParseSpec. Keys are
// walked in sorted order so repeated runs see variants in a stable order.
func ParseProductDetails(settingsJSON string) ([]models.Variant, error) {
	var settings drupalSettings
	if err := json.Unmarshal([]byte(settingsJSON), &settings); err != nil {
		return nil, fmt.Errorf("failed to decode drupal settings JSON: %w", err)
	}

	if settings.O2Theme.ProductDetails == "" {
		return nil, shared.NewServiceError(
			shared.ErrorCategoryValidation,
			"MISSING_PRODUCT_DETAILS",
			"drupal settings JSON carries no product details payload",
			"CatalogParser",
			"ParseProductDetails",
			false,
			nil,
		)
	}

	var details productDetails
	if err := json.Unmarshal([]byte(settings.O2Theme.ProductDetails), &details); err != nil {
		return nil, fmt.Errorf("failed to decode product details payload: %w", err)
	}

	rawSpecs := make([]string, 0, len(details.DeviceInfoV2.Variants))
	for rawSpec := range details.DeviceInfoV2.Variants {
		rawSpecs = append(rawSpecs, rawSpec)
	}
	sort.Strings(rawSpecs)

	variants := make([]models.Variant, 0, len(rawSpecs))
	for _, rawSpec := range rawSpecs {
		payload := details.DeviceInfoV2.Variants[rawSpec]

		unescaped, err := url.QueryUnescape(rawSpec)
		if err != nil {
			return nil, fmt.Errorf("failed to unescape spec %q: %w", rawSpec, err)
		}

		color, spec, err := ParseSpec(unescaped)
		if err != nil {
			return nil, err
		}

		variants = append(variants, models.Variant{
			Spec:      spec,
			Color:     color,
			Stock:     models.Stock(payload.StockInfo.Stock),
			CashPrice: payload.CashPrice.OneOff,
			RRP:       payload.RRP.OneOff,
		})
	}

	return variants, nil
}
