package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"github.com/fenilmodi00/deals-backend/config"
	"github.com/fenilmodi00/deals-backend/models"
	"github.com/fenilmodi00/deals-backend/shared"
	"github.com/gocolly/colly/v2"
	"github.com/sirupsen/logrus"
)

const (
	phoneListingPath = "/shop/phones"
	// deviceTileSelector matches the product tiles on the catalog grid. The
	// tile class carries extra modifiers, so match on a class substring.
	deviceTileSelector = `a[class*="device-tile"]`
	// drupalSettingsSelector locates the script tag carrying the variant JSON.
	drupalSettingsSelector = `script[data-drupal-selector="drupal-settings-json"]`
)

// CatalogScraper fetches the phone catalog: the listing grid for product
// identities and the per-product detail pages for variant pricing.
type CatalogScraper struct {
	baseURL           string
	configuration     *config.ScraperConfig
	httpClientFactory *shared.HTTPClientFactory
	httpClient        *http.Client
}

// NewCatalogScraper creates a catalog scraper for the given base URL. A nil
// configuration selects the defaults.
func NewCatalogScraper(baseURL string, configuration *config.ScraperConfig) *CatalogScraper {
	if configuration == nil {
		configuration = config.DefaultScraperConfig()
	}

	httpClientFactory := shared.NewHTTPClientFactory(configuration.RequestTimeout)

	return &CatalogScraper{
		baseURL:           strings.TrimRight(baseURL, "/"),
		configuration:     configuration,
		httpClientFactory: httpClientFactory,
		httpClient:        httpClientFactory.CreateOptimizedHTTPClient(configuration.RequestTimeout),
	}
}

// FetchProducts scrapes the catalog grid and returns one Product per tile.
// The static crawl is tried first; when it yields nothing (the grid is
// occasionally rendered client-side) a headless browser fallback re-fetches
// the page.
func (s *CatalogScraper) FetchProducts(ctx context.Context) ([]models.Product, error) {
	logger := logrus.WithFields(logrus.Fields{
		"component": "CatalogScraper",
		"method":    "FetchProducts",
		"base_url":  s.baseURL,
	})

	listingURL := s.baseURL + phoneListingPath
	logger.Info("Fetching product listing page")

	var products []models.Product

	collector := colly.NewCollector()
	collector.SetRequestTimeout(s.configuration.RequestTimeout)

	collector.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-GB,en;q=0.9")
	})

	collector.OnHTML(deviceTileSelector, func(e *colly.HTMLElement) {
		link := e.Attr("href")
		if link == "" {
			return
		}
		products = append(products, models.Product{
			Brand:     e.Attr("data-qa-device-brand"),
			Model:     ParseModelFromLink(link),
			Condition: e.Attr("data-qa-device-condition"),
			Link:      NormalizeLink(link),
		})
	})

	var visitError error
	collector.OnError(func(r *colly.Response, err error) {
		visitError = err
		logger.WithField("status_code", r.StatusCode).Errorf("Listing page request failed: %v", err)
	})

	if err := collector.Visit(listingURL); err != nil {
		visitError = err
	}

	if len(products) == 0 && s.configuration.HeadlessFallback {
		logger.Warn("Static crawl found no product tiles, falling back to headless browser")
		headlessProducts, headlessError := s.fetchProductsHeadless(ctx, listingURL)
		if headlessError != nil {
			if visitError != nil {
				headlessError = fmt.Errorf("%w (static crawl error: %v)", headlessError, visitError)
			}
			return nil, shared.NewServiceError(
				shared.ErrorCategoryNetwork,
				"LISTING_FETCH_FAILED",
				"Failed to fetch product listing with both static and headless strategies",
				"CatalogScraper",
				"FetchProducts",
				true,
				headlessError,
			)
		}
		products = headlessProducts
	} else if len(products) == 0 && visitError != nil {
		return nil, shared.NewServiceError(
			shared.ErrorCategoryNetwork,
			"LISTING_FETCH_FAILED",
			"Failed to fetch product listing page",
			"CatalogScraper",
			"FetchProducts",
			true,
			visitError,
		)
	}

	logger.WithField("products", len(products)).Info("Fetched product listing")
	return products, nil
}

// fetchProductsHeadless renders the listing page in headless Chrome and
// parses the same tiles out of the rendered DOM.
func (s *CatalogScraper) fetchProductsHeadless(ctx context.Context, listingURL string) ([]models.Product, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
		chromedp.Flag("mute-audio", true),
		chromedp.UserAgent("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, s.configuration.RequestTimeout)
	defer cancel()

	var renderedHTML string
	err := chromedp.Run(browserCtx,
		chromedp.EmulateViewport(1920, 1080),
		chromedp.Navigate(listingURL),
		chromedp.WaitVisible(deviceTileSelector, chromedp.ByQuery),
		chromedp.OuterHTML("html", &renderedHTML, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("headless render of listing page failed: %w", err)
	}

	document, err := goquery.NewDocumentFromReader(strings.NewReader(renderedHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse rendered listing page: %w", err)
	}

	var products []models.Product
	document.Find(deviceTileSelector).Each(func(_ int, tile *goquery.Selection) {
		link, exists := tile.Attr("href")
		if !exists || link == "" {
			return
		}
		products = append(products, models.Product{
			Brand:     tile.AttrOr("data-qa-device-brand", ""),
			Model:     ParseModelFromLink(link),
			Condition: tile.AttrOr("data-qa-device-condition", ""),
			Link:      NormalizeLink(link),
		})
	})

	return products, nil
}

// FetchAllVariants fetches variants for each product in sequence. Every
// product gets a bounded retry; a product whose fetches are exhausted is
// logged and omitted from the run rather than aborting the batch.
func (s *CatalogScraper) FetchAllVariants(ctx context.Context, products []models.Product) []models.ProductVariant {
	logger := logrus.WithFields(logrus.Fields{
		"component": "CatalogScraper",
		"method":    "FetchAllVariants",
	})

	var allVariants []models.ProductVariant
	skippedProducts := 0

	for i, product := range products {
		if ctx.Err() != nil {
			logger.Warnf("Variant fetching cancelled after %d/%d products", i, len(products))
			break
		}

		logger.WithFields(logrus.Fields{
			"product_index":  i + 1,
			"total_products": len(products),
			"link":           product.Link,
		}).Infof("Fetching variants %d/%d: %s %s", i+1, len(products), product.Brand, product.Model)

		var productVariants []models.ProductVariant
		err := shared.Retry("fetch variants of "+product.Link, s.configuration.MaxRetryAttempts, func() error {
			var fetchError error
			productVariants, fetchError = s.fetchVariants(ctx, product)
			return fetchError
		})
		if err != nil {
			skippedProducts++
			shared.NewServiceError(
				shared.ErrorCategoryNetwork,
				"VARIANT_FETCH_EXHAUSTED",
				fmt.Sprintf("Skipping product %s %s after exhausting retries", product.Brand, product.Model),
				"CatalogScraper",
				"FetchAllVariants",
				false,
				err,
			).LogError()
			continue
		}

		allVariants = append(allVariants, productVariants...)

		if i < len(products)-1 {
			time.Sleep(s.configuration.PolitenessDelay)
		}
	}

	logger.WithFields(logrus.Fields{
		"variants":         len(allVariants),
		"skipped_products": skippedProducts,
	}).Info("Completed variant fetching")

	return allVariants
}

// fetchVariants fetches one product's detail page and decodes its variants.
func (s *CatalogScraper) fetchVariants(ctx context.Context, product models.Product) ([]models.ProductVariant, error) {
	detailPageURL := s.baseURL + "/" + strings.TrimLeft(product.Link, "/")

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodGet, detailPageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create detail page request: %w", err)
	}
	shared.SetBrowserLikeHeaders(httpRequest, "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	httpResponse, err := s.httpClient.Do(httpRequest)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch detail page %s: %w", detailPageURL, err)
	}
	defer httpResponse.Body.Close()

	if httpResponse.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("detail page %s returned status %d", detailPageURL, httpResponse.StatusCode)
	}

	document, err := goquery.NewDocumentFromReader(httpResponse.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse detail page %s: %w", detailPageURL, err)
	}

	settingsScript := document.Find(drupalSettingsSelector)
	if settingsScript.Length() == 0 {
		return nil, shared.NewServiceError(
			shared.ErrorCategoryValidation,
			"MISSING_SETTINGS_SCRIPT",
			fmt.Sprintf("detail page %s carries no drupal settings script", detailPageURL),
			"CatalogScraper",
			"fetchVariants",
			true,
			nil,
		)
	}

	variants, err := ParseProductDetails(settingsScript.First().Text())
	if err != nil {
		return nil, err
	}

	productVariants := make([]models.ProductVariant, 0, len(variants))
	for _, variant := range variants {
		productVariants = append(productVariants, models.ProductVariant{
			Brand:     product.Brand,
			Model:     product.Model,
			Spec:      variant.Spec,
			Color:     variant.Color,
			Condition: product.Condition,
			Stock:     variant.Stock,
			CashPrice: variant.CashPrice,
			RRP:       variant.RRP,
			Link:      product.Link,
		})
	}

	return productVariants, nil
}
