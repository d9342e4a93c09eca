// Package diet excludes recipes whose text mentions terms a dietary profile rules out.
package diet

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownDiet is returned when a requested profile name is not in the catalog.
var ErrUnknownDiet = errors.New("unknown diet")

// Built-in profile names.
const (
	Vegetarian = "vegetarian"
	Vegan      = "vegan"
	NoPork     = "no-pork"
	DairyFree  = "dairy-free"
	GlutenFree = "gluten-free"
	NutFree    = "nut-free"
)

var (
	meatTerms = []string{
		"beef", "pork", "bacon", "ham", "chicken", "turkey", "lamb", "mutton", "veal",
		"duck", "goose", "venison", "sausage", "salami", "pepperoni", "prosciutto",
		"chorizo", "pancetta", "lard", "gelatin", "steak", "mince", "meat",
		"fish", "salmon", "tuna", "cod", "anchovy", "anchovies", "sardine", "shrimp",
		"prawn", "crab", "lobster", "clam", "mussel", "oyster", "scallop", "squid",
	}
	animalProductTerms = []string{
		"egg", "milk", "butter", "cheese", "cream", "yogurt", "yoghurt", "honey",
		"ghee", "whey", "mayonnaise",
	}
	porkTerms = []string{
		"pork", "bacon", "ham", "lard", "sausage", "salami", "pepperoni", "prosciutto",
		"chorizo", "pancetta",
	}
	dairyTerms = []string{
		"milk", "butter", "cheese", "cream", "yogurt", "yoghurt", "ghee", "whey",
		"parmesan", "mozzarella", "cheddar",
	}
	glutenTerms = []string{
		"wheat", "flour", "bread", "pasta", "spaghetti", "noodle", "barley", "rye",
		"couscous", "semolina", "breadcrumb", "soy sauce",
	}
	nutTerms = []string{
		"almond", "walnut", "pecan", "cashew", "pistachio", "hazelnut", "peanut",
		"macadamia", "pine nut",
	}
)

// Catalog maps profile names to their excluded terms. It is read-only after construction.
type Catalog struct {
	profiles map[string][]string
}

// DefaultProfiles returns a fresh copy of the built-in profiles.
func DefaultProfiles() map[string][]string {
	return map[string][]string{
		Vegetarian: clone(meatTerms),
		Vegan:      append(clone(meatTerms), animalProductTerms...),
		NoPork:     clone(porkTerms),
		DairyFree:  clone(dairyTerms),
		GlutenFree: clone(glutenTerms),
		NutFree:    clone(nutTerms),
	}
}

// NewCatalog returns the built-in profiles with custom applied on top. A custom entry with
// an existing name replaces the built-in terms.
func NewCatalog(custom map[string][]string) *Catalog {
	profiles := DefaultProfiles()
	for name, terms := range custom {
		profiles[normalizeName(name)] = clone(terms)
	}
	for name, terms := range profiles {
		profiles[name] = normalizeTerms(terms)
	}
	return &Catalog{profiles: profiles}
}

// Names returns the profile names in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.profiles))
	for name := range c.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Profiles returns a copy of every profile.
func (c *Catalog) Profiles() map[string][]string {
	out := make(map[string][]string, len(c.profiles))
	for name, terms := range c.profiles {
		out[name] = clone(terms)
	}
	return out
}

// Terms resolves profile names to the sorted union of their terms.
func (c *Catalog) Terms(names ...string) ([]string, error) {
	set := make(map[string]struct{})
	for _, name := range names {
		terms, ok := c.profiles[normalizeName(name)]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownDiet, name)
		}
		for _, t := range terms {
			set[t] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out, nil
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// normalizeTerms lowercases, drops empty entries and dedups while keeping order.
func normalizeTerms(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func clone(s []string) []string {
	return append([]string(nil), s...)
}
