package weighting

import (
	"errors"
	"strings"
)

// Scope is the (product, sub-product) pair every weighting row is partitioned
// by. An empty SubProductID is a valid sub-product of its own.
type Scope struct {
	ProductShortCode string `json:"product_short_code" yaml:"product" validate:"required"`
	SubProductID     string `json:"sub_product_id" yaml:"sub_product"`
}

func NewScope(product, subProduct string) Scope {
	return Scope{
		ProductShortCode: strings.TrimSpace(product),
		SubProductID:     strings.TrimSpace(subProduct),
	}
}

var ErrMissingProduct = errors.New("missing product short code")

func (s Scope) Validate() error {
	if strings.TrimSpace(s.ProductShortCode) == "" {
		return ErrMissingProduct
	}
	return nil
}

func (s Scope) String() string {
	if s.SubProductID == "" {
		return s.ProductShortCode
	}
	return s.ProductShortCode + "/" + s.SubProductID
}

// Owns reports whether a row stamped with product/subProduct belongs to s.
func (s Scope) Owns(product, subProduct string) bool {
	return s.ProductShortCode == product && s.SubProductID == subProduct
}
