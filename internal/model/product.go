package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ImageSlots is the number of image slots a product carries.
const ImageSlots = 5

type Product struct {
	ID              uuid.UUID       `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	LongDescription *string         `json:"long_description"`
	Slug            string          `json:"slug"`
	Image1          *string         `json:"image1"`
	Image2          *string         `json:"image2"`
	Image3          *string         `json:"image3"`
	Image4          *string         `json:"image4"`
	Image5          *string         `json:"image5"`
	Status          bool            `json:"status"`
	Stock           int             `json:"stock"`
	Price           decimal.Decimal `json:"price"`
	Weight          decimal.Decimal `json:"weight"`
	CategoryID      uuid.UUID       `json:"category_id"`
	ColorID         uuid.UUID       `json:"color_id"`
	Size            *string         `json:"size"`
	SeoKeywords     *string         `json:"seo_keywords"`
	ProductGroupID  *int64          `json:"product_group_id"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Image returns the stored path for the given slot (1-based), or nil.
func (p *Product) Image(slot int) *string {
	switch slot {
	case 1:
		return p.Image1
	case 2:
		return p.Image2
	case 3:
		return p.Image3
	case 4:
		return p.Image4
	case 5:
		return p.Image5
	}
	return nil
}

// SetImage sets the stored path for the given slot (1-based).
func (p *Product) SetImage(slot int, path *string) {
	switch slot {
	case 1:
		p.Image1 = path
	case 2:
		p.Image2 = path
	case 3:
		p.Image3 = path
	case 4:
		p.Image4 = path
	case 5:
		p.Image5 = path
	}
}
