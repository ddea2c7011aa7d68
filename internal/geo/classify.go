package geo

// Distance category labels.
const (
	CategoryUnder2KM  = "<2km"
	Category2To5KM    = "2-5km"
	Category5To10KM   = "5-10km"
	CategoryOver10KM  = ">10km"
	CategoryUnmatched = ""
)

// Categories lists the distance categories in ascending order.
var Categories = []string{CategoryUnder2KM, Category2To5KM, Category5To10KM, CategoryOver10KM}

// Bucket lower bounds in kilometers. Each bucket is [lower, next lower).
const (
	nearThreshold = 2.0
	midThreshold  = 5.0
	farThreshold  = 10.0
)

// DistanceCategory buckets a distance in kilometers.
// Rules:
//   - <2km:   [0, 2)
//   - 2-5km:  [2, 5)
//   - 5-10km: [5, 10)
//   - >10km:  [10, ∞)
//
// Negative distances have no category.
func DistanceCategory(km float64) string {
	switch {
	case km < 0:
		return CategoryUnmatched
	case km < nearThreshold:
		return CategoryUnder2KM
	case km < midThreshold:
		return Category2To5KM
	case km < farThreshold:
		return Category5To10KM
	default:
		return CategoryOver10KM
	}
}
