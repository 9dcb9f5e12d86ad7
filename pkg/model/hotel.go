package model

import "time"

type HotelPolicies struct {
	CheckIn      string `json:"check_in" bson:"check_in"`
	CheckOut     string `json:"check_out" bson:"check_out"`
	Cancellation string `json:"cancellation" bson:"cancellation"`
	Pets         string `json:"pets" bson:"pets"`
	Children     string `json:"children" bson:"children"`
}

type Hotel struct {
	ID          string        `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Name        string        `json:"name" bson:"name" validate:"required,min=2,max=200"`
	Location    string        `json:"location" bson:"location" validate:"required,min=2,max=200"`
	Description string        `json:"description" bson:"description" validate:"omitempty,max=5000"`
	Price       float64       `json:"price" bson:"price" validate:"gte=0"`
	Rating      float64       `json:"rating" bson:"rating" validate:"gte=1,lte=5"`
	Image       string        `json:"image" bson:"image" validate:"required,url"`
	Images      []string      `json:"images" bson:"images" validate:"omitempty,dive,url"`
	Amenities   []string      `json:"amenities" bson:"amenities"`
	Policies    HotelPolicies `json:"policies" bson:"policies"`
	CreatedAt   time.Time     `json:"created_at" bson:"created_at" validate:"omitempty"`
}

type HotelUpdate struct {
	Name        string         `json:"name,omitempty" validate:"omitempty,min=2,max=200"`
	Location    string         `json:"location,omitempty" validate:"omitempty,min=2,max=200"`
	Description *string        `json:"description,omitempty" validate:"omitempty,max=5000"`
	Price       *float64       `json:"price,omitempty" validate:"omitempty,gte=0"`
	Rating      *float64       `json:"rating,omitempty" validate:"omitempty,gte=1,lte=5"`
	Image       string         `json:"image,omitempty" validate:"omitempty,url"`
	Images      *[]string      `json:"images,omitempty" validate:"omitempty,dive,url"`
	Amenities   *[]string      `json:"amenities,omitempty"`
	Policies    *HotelPolicies `json:"policies,omitempty"`
}

// HotelFilter narrows the public catalog listing. Zero values mean "no
// constraint" for that field.
type HotelFilter struct {
	Location  string
	PriceMin  *float64
	PriceMax  *float64
	MinRating *float64
	Amenities []string
}

// HotelSummary is a read-only copy of a hotel's display fields embedded in
// booking query results.
type HotelSummary struct {
	ID       string  `json:"id" bson:"_id"`
	Name     string  `json:"name" bson:"name"`
	Location string  `json:"location" bson:"location"`
	Image    string  `json:"image" bson:"image"`
	Rating   float64 `json:"rating" bson:"rating"`
}

type HotelPriceStats struct {
	AvgPrice float64 `json:"avg_price" bson:"avg_price"`
	MinPrice float64 `json:"min_price" bson:"min_price"`
	MaxPrice float64 `json:"max_price" bson:"max_price"`
}

type RatingBucket struct {
	Rating int64 `json:"rating" bson:"_id"`
	Count  int64 `json:"count" bson:"count"`
}

type HotelStats struct {
	TotalHotels int64           `json:"total_hotels"`
	PriceStats  HotelPriceStats `json:"price_stats"`
	RatingStats []RatingBucket  `json:"rating_stats"`
}
