package customfield

import "slices"

// EntityName names a core entity that accepts custom fields.
type EntityName string

const (
	Address            EntityName = "Address"
	Administrator      EntityName = "Administrator"
	Asset              EntityName = "Asset"
	Channel            EntityName = "Channel"
	Collection         EntityName = "Collection"
	Customer           EntityName = "Customer"
	CustomerGroup      EntityName = "CustomerGroup"
	Facet              EntityName = "Facet"
	FacetValue         EntityName = "FacetValue"
	Fulfillment        EntityName = "Fulfillment"
	GlobalSettings     EntityName = "GlobalSettings"
	Order              EntityName = "Order"
	OrderLine          EntityName = "OrderLine"
	PaymentMethod      EntityName = "PaymentMethod"
	Product            EntityName = "Product"
	ProductOption      EntityName = "ProductOption"
	ProductOptionGroup EntityName = "ProductOptionGroup"
	ProductVariant     EntityName = "ProductVariant"
	Promotion          EntityName = "Promotion"
	Region             EntityName = "Region"
	Seller             EntityName = "Seller"
	ShippingMethod     EntityName = "ShippingMethod"
	StockLocation      EntityName = "StockLocation"
	TaxCategory        EntityName = "TaxCategory"
	TaxRate            EntityName = "TaxRate"
	User               EntityName = "User"
	Zone               EntityName = "Zone"
)

var customizable = []EntityName{
	Address, Administrator, Asset, Channel, Collection, Customer,
	CustomerGroup, Facet, FacetValue, Fulfillment, GlobalSettings, Order,
	OrderLine, PaymentMethod, Product, ProductOption, ProductOptionGroup,
	ProductVariant, Promotion, Region, Seller, ShippingMethod, StockLocation,
	TaxCategory, TaxRate, User, Zone,
}

// Entities returns every customizable entity, sorted by name.
func Entities() []EntityName {
	return slices.Clone(customizable)
}

// IsCustomizable reports whether e accepts custom fields.
func IsCustomizable(e EntityName) bool {
	return slices.Contains(customizable, e)
}
