package stage

import "strings"

// Category is a stage category flag. A canonical key carries the set of
// categories whose keywords it contains; Other is the empty set.
type Category uint16

const (
	Other   Category = 0
	Cutting Category = 1 << iota
	Quality
	Packaging
	Ironing
	Sewing
	Shipment
	Production
)

// Has reports whether c includes every flag in other.
func (c Category) Has(other Category) bool {
	return other != Other && c&other == other
}

// Overlaps reports whether c and other share at least one category.
func (c Category) Overlaps(other Category) bool {
	return c&other != 0
}

// String lists the category names, "other" for the empty set.
func (c Category) String() string {
	if c == Other {
		return "other"
	}
	var names []string
	for _, kw := range categoryKeywords {
		if c&kw.cat != 0 {
			names = append(names, kw.name)
		}
	}
	return strings.Join(names, "|")
}

var categoryKeywords = []struct {
	cat      Category
	name     string
	keywords []string
}{
	{Cutting, "cutting", []string{"裁剪", "裁床", "剪裁", "开裁"}},
	{Quality, "quality", []string{"质检", "检验", "品检", "验货"}},
	{Packaging, "packaging", []string{"包装", "后整", "打包", "装箱"}},
	{Ironing, "ironing", []string{"整烫", "熨烫"}},
	{Sewing, "sewing", []string{"车缝", "缝制", "缝纫", "车工"}},
	{Shipment, "shipment", []string{"出货", "发货", "发运"}},
	{Production, "production", []string{"生产"}},
}

// categorize derives the category set of a canonical key.
func categorize(key string) Category {
	if key == "" {
		return Other
	}
	var c Category
	for _, kw := range categoryKeywords {
		for _, w := range kw.keywords {
			if strings.Contains(key, w) {
				c |= kw.cat
				break
			}
		}
	}
	return c
}
