package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category string

const (
	CategoryApparel     Category = "Apparel"
	CategoryAccessories Category = "Accessories"
	CategoryBusiness    Category = "Business"
	CategoryGifts       Category = "Gifts"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryApparel, CategoryAccessories, CategoryBusiness, CategoryGifts:
		return true
	}
	return false
}

// Size is the unit-size token chosen for apparel lines. Empty means the
// product has no size.
type Size string

const (
	SizeS   Size = "S"
	SizeM   Size = "M"
	SizeL   Size = "L"
	SizeXL  Size = "XL"
	Size2XL Size = "2XL"
)

func (s Size) Valid() bool {
	switch s {
	case "", SizeS, SizeM, SizeL, SizeXL, Size2XL:
		return true
	}
	return false
}

type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    Category        `json:"category"`
	ImageRef    string          `json:"image_ref"`
	Stock       int             `json:"stock"`
	Featured    bool            `json:"featured"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type DesignCategory string

const (
	DesignCategoryTShirt      DesignCategory = "T-Shirt"
	DesignCategoryCaps        DesignCategory = "Caps"
	DesignCategoryToteBags    DesignCategory = "Tote Bags"
	DesignCategoryPillowCases DesignCategory = "Pillow Cases"
	DesignCategoryMixed       DesignCategory = "Mixed"
)

func (c DesignCategory) Valid() bool {
	switch c {
	case DesignCategoryTShirt, DesignCategoryCaps, DesignCategoryToteBags, DesignCategoryPillowCases, DesignCategoryMixed:
		return true
	}
	return false
}

// DesignAsset is a ready-made design offered in the design hub.
type DesignAsset struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    DesignCategory  `json:"category"`
	ThumbnailID string          `json:"thumbnail_id"`
	CreatedAt   time.Time       `json:"created_at"`
}
