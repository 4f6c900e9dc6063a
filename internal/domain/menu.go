package domain

import "time"

// MenuItem is a dish offered by the canteen.
type MenuItem struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Available   bool      `json:"available"`
	ImageURL    string    `json:"image_url"`
	CreatedAt   time.Time `json:"created_at"`
}

// ItemInput carries the editable fields of a menu item.
type ItemInput struct {
	Name        string  `json:"name" form:"name" validate:"required,max=120"`
	Description string  `json:"description" form:"description" validate:"max=2000"`
	Price       float64 `json:"price" form:"price" validate:"gte=0"`
	Available   bool    `json:"available" form:"available"`
	ImageURL    string  `json:"image_url" form:"image_url" validate:"omitempty,url"`
}

// Upload is an image supplied alongside an item form.
type Upload struct {
	Filename string
	Data     []byte
}
