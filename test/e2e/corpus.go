package e2e

import (
	"fmt"
	"image/color"
	"path/filepath"
)

// Family groups images of one dominant color.
type Family struct {
	Name string
	Base color.RGBA
}

// Families are far enough apart in RGB that every member of a family is more
// similar to its siblings than to any other family's members.
var Families = []Family{
	{"red", color.RGBA{R: 255, A: 255}},
	{"green", color.RGBA{G: 255, A: 255}},
	{"blue", color.RGBA{B: 255, A: 255}},
	{"yellow", color.RGBA{R: 255, G: 255, A: 255}},
}

// CorpusImage is one generated image.
type CorpusImage struct {
	Name   string // file name relative to the image root
	Family string
	Color  color.RGBA
	Ext    string
}

// Corpus is a set of generated images plus the queries run against them.
type Corpus struct {
	Images  []CorpusImage
	Queries []QueryTestCase
}

// QueryTestCase expects every returned image to come from Family.
type QueryTestCase struct {
	Query  string
	Family string
	K      int
}

// PerFamily is the number of images generated per family.
const PerFamily = 5

// BuildCorpus returns PerFamily shades for each family, rotating through the
// encodable formats, with one query per family.
func BuildCorpus() *Corpus {
	c := &Corpus{}
	n := 0
	for _, f := range Families {
		for i := 0; i < PerFamily; i++ {
			ext := EncodableExtensions[n%len(EncodableExtensions)]
			n++
			c.Images = append(c.Images, CorpusImage{
				Name:   fmt.Sprintf("%s/%s-%d%s", f.Name, f.Name, i, ext),
				Family: f.Name,
				Color:  vary(f.Base, i),
				Ext:    ext,
			})
		}
		c.Queries = append(c.Queries, QueryTestCase{
			Query:  fmt.Sprintf("%s/%s-0%s", f.Name, f.Name, EncodableExtensions[(n-PerFamily)%len(EncodableExtensions)]),
			Family: f.Name,
			K:      PerFamily - 1,
		})
	}
	return c
}

// vary darkens the saturated channels and lifts the empty ones slightly.
func vary(base color.RGBA, i int) color.RGBA {
	step := uint8(i * 12)
	out := base
	for _, ch := range []*uint8{&out.R, &out.G, &out.B} {
		if *ch == 255 {
			*ch -= step
		} else {
			*ch += step / 2
		}
	}
	return out
}

// FamilyOf returns the family of the image at key, matched by directory name.
func FamilyOf(key string) string {
	return filepath.Base(filepath.Dir(key))
}
