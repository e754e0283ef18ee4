package catalog

import (
	"crypto/md5" //nolint:gosec // identity derivation, not security
	"encoding/hex"
	"fmt"
	"strings"
)

// ProductID derives the stable product key from the canonical listing URL.
// The same URL always yields the same key, so re-crawls upsert in place.
func ProductID(canonicalURL string) string {
	sum := md5.Sum([]byte(canonicalURL)) //nolint:gosec // identity derivation
	return "PROD-" + strings.ToUpper(hex.EncodeToString(sum[:])[:8])
}

// FitID builds the composite fit key under a product.
func FitID(productID, fitSlug string) string {
	return fmt.Sprintf("%s_%s", productID, fitSlug)
}

// ColorID builds the composite color key under a fit.
func ColorID(fitID, colorSlug string) string {
	return fmt.Sprintf("%s_%s", fitID, colorSlug)
}

// SizeID builds the composite size key under a color.
func SizeID(colorID, sizeToken string) string {
	return fmt.Sprintf("%s_%s", colorID, sizeToken)
}

// Slug converts a visible option label into its key segment:
// trimmed, uppercased, spaces replaced with underscores.
func Slug(label string) string {
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(label)), " ", "_")
}
