package domain

// Product is a menu entry. CategoryKind lives here so order items can take
// a snapshot of it instead of re-deriving it from the category name.
type Product struct {
	ID           int64        `json:"id"`
	Name         string       `json:"name"`
	Price        float64      `json:"price"`
	CategoryKind CategoryKind `json:"category_kind"`
	Available    bool         `json:"available"`
}
