// Package extract turns page snapshots into typed catalog records. Every
// extractor degrades to sentinel or synthesized default values when the page
// does not expose the structure it expects; a selector miss never aborts the
// surrounding extraction.
package extract

// Selectors carries the CSS selectors for every extraction level. Container
// selectors may hold comma-separated fallback candidates; ProductCards is an
// ordered list tried until one matches.
type Selectors struct {
	ProductCards     []string `mapstructure:"product_cards"`
	ProductTitle     string   `mapstructure:"product_title"`
	ProductSubtitle  string   `mapstructure:"product_subtitle"`
	ProductLink      string   `mapstructure:"product_link"`
	ProductMessaging string   `mapstructure:"product_messaging"`

	FitContainer string `mapstructure:"fit_container"`
	FitItems     string `mapstructure:"fit_items"`
	FitLabel     string `mapstructure:"fit_label"`

	ColorContainer    string `mapstructure:"color_container"`
	ColorLinks        string `mapstructure:"color_links"`
	ColorImage        string `mapstructure:"color_image"`
	ColorLinkIDAttr   string `mapstructure:"color_link_id_attr"`
	ColorLinkIDPrefix string `mapstructure:"color_link_id_prefix"`
	ShownCaption      string `mapstructure:"shown_caption"`
	StyleCaption      string `mapstructure:"style_caption"`

	SizeGrid  string `mapstructure:"size_grid"`
	SizeItems string `mapstructure:"size_items"`
	SizeLabel string `mapstructure:"size_label"`
	SizeInput string `mapstructure:"size_input"`

	PriceContainer string `mapstructure:"price_container"`
	CurrentPrice   string `mapstructure:"current_price"`
	OriginalPrice  string `mapstructure:"original_price"`
	Discount       string `mapstructure:"discount"`
}

// DefaultSelectors returns the selector set for the default storefront layout.
func DefaultSelectors() Selectors {
	return Selectors{
		ProductCards:     []string{"figure", ".product-card", `[data-testid="product-card"]`},
		ProductTitle:     ".product-card__title",
		ProductSubtitle:  ".product-card__subtitle",
		ProductLink:      "a.product-card__link-overlay",
		ProductMessaging: `[data-testid="product-card__messaging"]`,

		FitContainer: `#fit-picker-container, [data-testid="fit-picker-container"]`,
		FitItems:     ".nds-radio",
		FitLabel:     "label",

		ColorContainer:    `#colorway-picker-container, [data-testid="colorway-picker-container"]`,
		ColorLinks:        `a[data-testid^="colorway-link-"]`,
		ColorImage:        "img",
		ColorLinkIDAttr:   "data-testid",
		ColorLinkIDPrefix: "colorway-link-",
		ShownCaption:      `li[data-testid="product-description-color-description"]`,
		StyleCaption:      `li[data-testid="product-description-style-color"]`,

		SizeGrid:  `[data-testid="pdp-grid-selector-grid"]`,
		SizeItems: `[data-testid="pdp-grid-selector-item"]`,
		SizeLabel: "label",
		SizeInput: "input",

		PriceContainer: `#price-container, [data-testid="price-container"]`,
		CurrentPrice:   `[data-testid="currentPrice-container"]`,
		OriginalPrice:  `[data-testid="initialPrice-container"]`,
		Discount:       `[data-testid="OfferPercentage"]`,
	}
}
