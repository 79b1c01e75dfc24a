// Package embedded provides access to embedded provider catalog data files.
package embedded

import _ "embed"

// ProviderCatalogData contains the embedded provider registry YAML data.
// The order of entries is the default selection and failover order.
//
//go:embed providers.yaml
var ProviderCatalogData []byte
