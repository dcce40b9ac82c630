package models

import "github.com/shopspring/decimal"

func init() {
	// prices are rendered as JSON numbers, not strings
	decimal.MarshalJSONWithoutQuotes = true
}
