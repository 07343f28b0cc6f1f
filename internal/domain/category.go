package domain

// Category is a complaint classification such as roads or sanitation.
type Category struct {
	ID   int32
	Name string
}
