// Package grocery sorts catalog items into store aisles.
package grocery

import "strings"

// Other is the aisle for items no keyword matches.
const Other = "Other"

var aisles = []struct {
	name     string
	keywords []string
}{
	{"Produce", []string{
		"apple", "banana", "orange", "lemon", "lime", "avocado", "tomato", "potato",
		"onion", "garlic", "lettuce", "spinach", "kale", "broccoli", "carrot", "celery",
		"cucumber", "pepper", "mushroom", "corn", "grape", "berry", "strawberry",
		"blueberry", "raspberry", "melon", "watermelon", "pineapple", "mango", "peach",
		"pear", "cilantro", "basil", "parsley", "ginger", "zucchini", "asparagus",
		"green beans", "sweet potato",
	}},
	{"Dairy", []string{
		"milk", "cheese", "butter", "yogurt", "cream", "egg", "sour cream",
		"cream cheese", "cottage cheese", "half and half",
	}},
	{"Meat & Seafood", []string{
		"chicken", "beef", "pork", "turkey", "ham", "bacon", "sausage", "steak",
		"salmon", "tuna", "shrimp", "fish", "lamb", "ground beef", "hot dog",
	}},
	{"Bakery", []string{
		"bread", "bagel", "muffin", "croissant", "tortilla", "bun", "roll", "cake",
		"pie", "baguette",
	}},
	{"Pantry", []string{
		"flour", "sugar", "salt", "rice", "pasta", "noodle", "cereal", "oatmeal",
		"oat", "granola", "honey", "oil", "vinegar", "sauce", "spice", "broth",
		"stock", "soup", "bean", "lentil", "peanut butter", "olive oil",
		"maple syrup", "soy sauce", "baking soda", "baking powder", "yeast",
	}},
	{"Frozen", []string{
		"frozen", "ice cream", "popsicle", "ice",
	}},
	{"Beverages", []string{
		"coffee", "tea", "juice", "soda", "water", "beer", "wine", "drink",
		"sparkling water", "orange juice", "apple juice",
	}},
	{"Snacks", []string{
		"chip", "cracker", "cookie", "popcorn", "pretzel", "candy", "chocolate",
		"snack", "nut", "trail mix", "granola bar",
	}},
	{"Household", []string{
		"paper towel", "toilet paper", "trash bag", "dish soap", "detergent",
		"sponge", "foil", "battery", "soap", "shampoo", "toothpaste",
	}},
}

// phrase is a multi-word keyword. Phrases are tried before single words so
// "ice cream" is Frozen rather than Dairy.
type phrase struct {
	keyword string
	aisle   string
}

var (
	phrases []phrase
	words   = map[string]string{}
)

func init() {
	for _, a := range aisles {
		for _, kw := range a.keywords {
			if strings.Contains(kw, " ") {
				phrases = append(phrases, phrase{kw, a.name})
				continue
			}
			words[kw] = a.name
		}
	}
}

// Aisle returns the aisle for a catalog item name, matching case-insensitively.
// The last recognized word wins, so "chocolate milk" is Dairy.
func Aisle(itemName string) string {
	name := strings.Join(strings.Fields(strings.ToLower(itemName)), " ")
	if name == "" {
		return Other
	}

	fields := strings.Fields(name)
	singulars := make([]string, len(fields))
	for i, f := range fields {
		singulars[i] = singular(f)
	}

	padded := " " + name + " "
	paddedSingular := " " + strings.Join(singulars, " ") + " "
	best, bestLen := "", 0
	for _, p := range phrases {
		kw := " " + p.keyword + " "
		if len(p.keyword) > bestLen && (strings.Contains(padded, kw) || strings.Contains(paddedSingular, kw)) {
			best, bestLen = p.aisle, len(p.keyword)
		}
	}
	if best != "" {
		return best
	}

	for i := len(fields) - 1; i >= 0; i-- {
		if aisle, ok := words[fields[i]]; ok {
			return aisle
		}
		if aisle, ok := words[singulars[i]]; ok {
			return aisle
		}
	}
	return Other
}

// singular strips a regular English plural ending.
func singular(word string) string {
	switch {
	case len(word) <= 3 || strings.HasSuffix(word, "ss"):
		return word
	case strings.HasSuffix(word, "ies"):
		return strings.TrimSuffix(word, "ies") + "y"
	case strings.HasSuffix(word, "oes"), strings.HasSuffix(word, "ches"),
		strings.HasSuffix(word, "shes"), strings.HasSuffix(word, "xes"):
		return strings.TrimSuffix(word, "es")
	case strings.HasSuffix(word, "s"):
		return strings.TrimSuffix(word, "s")
	}
	return word
}
