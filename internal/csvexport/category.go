package csvexport

import (
	"strings"
	"unicode"

	"github.com/SethCurry/stocktag/pkg/stock"
)

// Adobe Stock content categories.
const (
	CategoryAnimals = iota + 1
	CategoryArchitecture
	CategoryBusiness
	CategoryDrinks
	CategoryEnvironment
	CategoryStatesOfMind
	CategoryFood
	CategoryGraphicResources
	CategoryHobbies
	CategoryIndustry
	CategoryLandscapes
	CategoryLifestyle
	CategoryPeople
	CategoryPlants
	CategoryCulture
	CategoryScience
	CategorySocialIssues
	CategorySports
	CategoryTechnology
	CategoryTransport
	CategoryTravel
)

// DefaultCategory is used when nothing in the metadata points anywhere.
const DefaultCategory = CategoryLifestyle

var categoryTerms = map[int][]string{
	CategoryAnimals:          {"animal", "animals", "dog", "cat", "bird", "fox", "horse", "wildlife", "pet", "fish", "insect", "cow", "deer", "lion", "puppy", "kitten"},
	CategoryArchitecture:     {"building", "architecture", "house", "skyscraper", "bridge", "interior", "tower", "church", "facade", "construction"},
	CategoryBusiness:         {"business", "office", "meeting", "finance", "money", "corporate", "work", "teamwork", "startup", "marketing"},
	CategoryDrinks:           {"drink", "coffee", "tea", "wine", "beer", "juice", "cocktail", "water", "beverage", "milk"},
	CategoryEnvironment:      {"environment", "ecology", "climate", "pollution", "recycling", "sustainability", "green", "earth", "renewable"},
	CategoryStatesOfMind:     {"emotion", "happy", "sad", "love", "calm", "stress", "relax", "joy", "fear", "peaceful", "lonely"},
	CategoryFood:             {"food", "meal", "fruit", "vegetable", "cooking", "restaurant", "dessert", "bread", "pizza", "breakfast", "dinner"},
	CategoryGraphicResources: {"background", "texture", "pattern", "abstract", "gradient", "illustration", "vector", "design", "wallpaper", "overlay"},
	CategoryHobbies:          {"hobby", "leisure", "game", "music", "reading", "painting", "gardening", "camping", "fishing", "craft"},
	CategoryIndustry:         {"industry", "factory", "industrial", "machine", "manufacturing", "engineering", "warehouse", "oil", "steel", "mining"},
	CategoryLandscapes:       {"landscape", "mountain", "sea", "ocean", "beach", "forest", "sunset", "sunrise", "lake", "river", "sky", "nature", "snow", "desert", "field"},
	CategoryLifestyle:        {"lifestyle", "home", "family", "fashion", "shopping", "holiday", "party", "everyday"},
	CategoryPeople:           {"people", "person", "man", "woman", "child", "portrait", "girl", "boy", "crowd", "senior", "baby"},
	CategoryPlants:           {"plant", "flower", "tree", "leaf", "garden", "rose", "grass", "botanical", "blossom", "tulip"},
	CategoryCulture:          {"culture", "religion", "tradition", "festival", "temple", "prayer", "ceremony", "heritage", "art", "museum"},
	CategoryScience:          {"science", "laboratory", "research", "microscope", "chemistry", "biology", "space", "planet", "medicine", "dna"},
	CategorySocialIssues:     {"poverty", "protest", "equality", "homeless", "refugee", "charity", "diversity", "war", "justice"},
	CategorySports:           {"sport", "sports", "football", "soccer", "basketball", "tennis", "running", "fitness", "gym", "yoga", "swimming", "cycling"},
	CategoryTechnology:       {"technology", "computer", "phone", "smartphone", "digital", "internet", "robot", "laptop", "data", "network", "ai"},
	CategoryTransport:        {"car", "train", "airplane", "plane", "ship", "boat", "bus", "truck", "transport", "traffic", "road", "bicycle"},
	CategoryTravel:           {"travel", "tourism", "vacation", "city", "landmark", "adventure", "journey", "tourist", "hotel", "destination"},
}

// termCategories inverts categoryTerms.
var termCategories = func() map[string][]int {
	out := map[string][]int{}

	for category, terms := range categoryTerms {
		for _, term := range terms {
			out[term] = append(out[term], category)
		}
	}

	return out
}()

// Categorize returns the result's video category.  A category already set
// on the result wins.  Otherwise every word of the title and keywords votes
// for the categories it belongs to; keywords count twice.  Ties go to the
// lower category number.
func Categorize(r *stock.Result) int {
	if r == nil {
		return DefaultCategory
	}

	if r.Category >= CategoryAnimals && r.Category <= CategoryTravel {
		return r.Category
	}

	scores := map[int]int{}

	vote := func(text string, weight int) {
		for _, word := range words(text) {
			for _, category := range termCategories[word] {
				scores[category] += weight
			}
		}
	}

	vote(r.Title, 1)

	for _, k := range r.UniqueKeywords() {
		vote(k, 2)
	}

	best, bestScore := DefaultCategory, 0

	for category := CategoryAnimals; category <= CategoryTravel; category++ {
		if scores[category] > bestScore {
			best, bestScore = category, scores[category]
		}
	}

	return best
}

func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
