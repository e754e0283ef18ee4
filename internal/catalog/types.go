// Package catalog defines the product hierarchy records shared across subsystems.
package catalog

import "time"

// Sentinel values used when a page does not expose the expected structure.
const (
	NotAvailable = "N/A"
	NoDiscount   = "0"

	DefaultFitSlug   = "DEFAULT"
	DefaultFitName   = "Regular"
	DefaultColorSlug = "DEFAULT"
	DefaultColorName = "Default Color"
	UnknownColorName = "Unknown Color"
	DefaultSizeToken = "ONE_SIZE"
	DefaultSizeLabel = "One Size"
)

// ChangeInitial marks the first observation ever persisted for a size.
const ChangeInitial = "INITIAL"

// Product is one listing card from the search page.
type Product struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Category  string `json:"category"`
	URL       string `json:"url"`
	Tag       string `json:"tag"`
}

// FitVariant is one fit option (e.g. "Wide") under a product. Pages without a
// fit picker get a single synthesized default fit.
type FitVariant struct {
	FitID     string `json:"fit_id"`
	ProductID string `json:"product_id"`
	FitSlug   string `json:"fit_slug"`
	FitName   string `json:"fit_name"`
}

// ColorVariant is one colorway under a fit.
type ColorVariant struct {
	ColorID   string `json:"color_id"`
	FitID     string `json:"fit_id"`
	ColorSlug string `json:"color_slug"`
	ColorName string `json:"color_name"`
	ImageURL  string `json:"image_url"`
	DetailURL string `json:"detail_url"`
	Style     string `json:"style"`
	Shown     string `json:"shown"`
}

// SizeVariant is one size cell under a colorway.
type SizeVariant struct {
	SizeID    string `json:"size_id"`
	ColorID   string `json:"color_id"`
	SizeToken string `json:"size_token"`
	SizeLabel string `json:"size_label"`
}

// Pricing holds the price facts extracted once per fit/color context.
// Values are kept as scraped; fields that could not be read carry the
// NotAvailable sentinel rather than failing the extraction.
type Pricing struct {
	Price           string `json:"price"`
	OriginalPrice   string `json:"original_price"`
	DiscountPercent string `json:"discount_percent"`
}

// Snapshot is one point-in-time extraction of price/availability for a size,
// before change tracking decides whether it is worth persisting.
type Snapshot struct {
	SizeID          string `json:"size_id"`
	Available       bool   `json:"available"`
	Price           string `json:"price"`
	OriginalPrice   string `json:"original_price"`
	DiscountPercent string `json:"discount_percent"`
}

// PriceObservation is one append-only history row. Rows are written only when
// the tracked fields differ from the latest persisted state for the size.
type PriceObservation struct {
	SizeID          string    `json:"size_id"`
	CaptureTime     time.Time `json:"capture_time"`
	Available       bool      `json:"available"`
	Price           string    `json:"price"`
	OriginalPrice   string    `json:"original_price"`
	DiscountPercent string    `json:"discount_percent"`
	ChangeType      string    `json:"change_type"`
}

// ObservationState is the latest persisted state per size as read back from
// the store. Numeric fields are nullable because the source values degrade to
// sentinels that the store coerces to NULL.
type ObservationState struct {
	SizeID          string    `json:"size_id"`
	CaptureTime     time.Time `json:"capture_time"`
	Available       *bool     `json:"available"`
	Price           *float64  `json:"price"`
	OriginalPrice   *float64  `json:"original_price"`
	DiscountPercent *int      `json:"discount_percent"`
	ChangeType      string    `json:"change_type"`
}
