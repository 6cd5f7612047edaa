package types

import "strings"

// Category is the closed enumeration of canonical street-level crime
// categories. Values are the display names used for aggregation and
// colour-coding.
type Category string

const (
	CategoryAntiSocialBehaviour Category = "Anti-social behaviour"
	CategoryBurglary            Category = "Burglary"
	CategoryViolence            Category = "Violence and sexual offences"
	CategoryDrugs               Category = "Drugs"
	CategoryBicycleTheft        Category = "Bicycle theft"
	CategoryCriminalDamage      Category = "Criminal damage and arson"
	CategoryOtherTheft          Category = "Other theft"
	CategoryPossessionOfWeapons Category = "Possession of weapons"
	CategoryPublicOrder         Category = "Public order"
	CategoryShoplifting         Category = "Shoplifting"
	CategoryTheftFromPerson     Category = "Theft from the person"
	CategoryVehicleCrime        Category = "Vehicle crime"
	CategoryOtherCrime          Category = "Other crime"
	CategoryRobbery             Category = "Robbery"
)

// categoryInfo holds the slug the data source uses and the map colour.
type categoryInfo struct {
	slug   string
	colour string
}

var categoryTable = map[Category]categoryInfo{
	CategoryAntiSocialBehaviour: {slug: "anti-social-behaviour", colour: "Orange"},
	CategoryBurglary:            {slug: "burglary", colour: "Red"},
	CategoryViolence:            {slug: "violent-crime", colour: "Magenta"},
	CategoryDrugs:               {slug: "drugs", colour: "Blue"},
	CategoryBicycleTheft:        {slug: "bicycle-theft", colour: "Green"},
	CategoryCriminalDamage:      {slug: "criminal-damage-arson", colour: "light yellow"},
	CategoryOtherTheft:          {slug: "other-theft", colour: "light green"},
	CategoryPossessionOfWeapons: {slug: "possession-of-weapons", colour: "cyan"},
	CategoryPublicOrder:         {slug: "public-order", colour: "white"},
	CategoryShoplifting:         {slug: "shoplifting", colour: "grey"},
	CategoryTheftFromPerson:     {slug: "theft-from-the-person", colour: "light orange"},
	CategoryVehicleCrime:        {slug: "vehicle-crime", colour: "brown"},
	CategoryOtherCrime:          {slug: "other-crime", colour: "light blue"},
	CategoryRobbery:             {slug: "robbery", colour: "Yellow"},
}

// categoryLookup indexes every accepted spelling (slug or display name,
// case-insensitive) to its canonical Category.
var categoryLookup = func() map[string]Category {
	m := make(map[string]Category, len(categoryTable)*2)
	for c, info := range categoryTable {
		m[strings.ToLower(string(c))] = c
		m[info.slug] = c
	}
	return m
}()

// AllCategories returns every known category in a stable order.
func AllCategories() []Category {
	return []Category{
		CategoryAntiSocialBehaviour,
		CategoryBurglary,
		CategoryViolence,
		CategoryDrugs,
		CategoryBicycleTheft,
		CategoryCriminalDamage,
		CategoryOtherTheft,
		CategoryPossessionOfWeapons,
		CategoryPublicOrder,
		CategoryShoplifting,
		CategoryTheftFromPerson,
		CategoryVehicleCrime,
		CategoryOtherCrime,
		CategoryRobbery,
	}
}

// ParseCategory maps a free-text category from the data source onto the
// closed enumeration. It accepts both the API slug ("violent-crime") and the
// display name ("Violence and sexual offences").
func ParseCategory(raw string) (Category, bool) {
	c, ok := categoryLookup[strings.ToLower(strings.TrimSpace(raw))]
	return c, ok
}

// Valid reports whether c is a member of the enumeration.
func (c Category) Valid() bool {
	_, ok := categoryTable[c]
	return ok
}

// Colour returns the display colour for the category, or "" if unknown.
func (c Category) Colour() string {
	return categoryTable[c].colour
}

// Slug returns the data source identifier for the category.
func (c Category) Slug() string {
	return categoryTable[c].slug
}
