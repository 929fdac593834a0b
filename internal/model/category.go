package model

// Categories is the fixed set of spend categories.
var Categories = []string{
	"food",
	"transport",
	"shopping",
	"entertainment",
	"bills",
	"health",
	"tech",
	"gifts",
}

// ValidCategory reports whether c is one of the fixed categories.
func ValidCategory(c string) bool {
	for _, cat := range Categories {
		if cat == c {
			return true
		}
	}
	return false
}
