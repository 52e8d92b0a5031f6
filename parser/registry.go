package parser

import (
	"fmt"
	"sort"
)

// Source binds an auction house to its extractor and results page.
type Source struct {
	Name       string
	Label      string
	ListingURL string
	Extractor  Extractor
}

var sources = map[string]Source{
	"menzies": {
		Name:       "menzies",
		Label:      "Menzies Art Brands",
		ListingURL: "https://www.menziesartbrands.com/auction/results",
		Extractor:  Menzies{},
	},
	"deutscherandhackett": {
		Name:       "deutscherandhackett",
		Label:      "Deutscher and Hackett",
		ListingURL: "https://www.deutscherandhackett.com/auctions/past",
		Extractor:  DeutscherHackett{},
	},
}

// Lookup returns the registered source called name.
func Lookup(name string) (Source, error) {
	src, ok := sources[name]
	if !ok {
		return Source{}, fmt.Errorf("unknown source %q", name)
	}
	return src, nil
}

// Sources lists every registered source ordered by name.
func Sources() []Source {
	out := make([]Source, 0, len(sources))
	for _, src := range sources {
		out = append(out, src)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
