package stage

import (
	"strings"
	"sync"
	"sync/atomic"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Canonical stage keys.
const (
	KeyOrder       = "下单"
	KeyProcurement = "采购"
	KeyCutting     = "裁剪"
	KeyProduction  = "生产"
	KeySewing      = "车缝"
	KeyIroning     = "整烫"
	KeyQuality     = "质检"
	KeyPackaging   = "包装"
	KeyShipment    = "出货"
)

// aliases maps legacy and synonym labels to their canonical key.
var aliases = map[string]string{
	"订单创建":  KeyOrder,
	"创建订单":  KeyOrder,
	"开单":    KeyOrder,
	"制单":    KeyOrder,
	"物料采购":  KeyProcurement,
	"面辅料采购": KeyProcurement,
	"备料":    KeyProcurement,
	"到料":    KeyProcurement,
	"裁床":    KeyCutting,
	"剪裁":    KeyCutting,
	"开裁":    KeyCutting,
	"缝制":    KeySewing,
	"缝纫":    KeySewing,
	"车工":    KeySewing,
	"熨烫":    KeyIroning,
	"检验":    KeyQuality,
	"品检":    KeyQuality,
	"验货":    KeyQuality,
	"后整":    KeyPackaging,
	"打包":    KeyPackaging,
	"装箱":    KeyPackaging,
	"发货":    KeyShipment,
	"发运":    KeyShipment,
}

// Normalize folds compatibility forms (full-width letters, ideographic
// spaces) with NFKC and removes every whitespace rune.
func Normalize(label string) string {
	folded := norm.NFKC.String(label)
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, folded)
}

// Canonicalize returns the canonical key for a label. Unknown labels are
// returned normalized but otherwise unchanged. Empty input yields "".
func Canonicalize(label string) string {
	n := Normalize(label)
	if n == "" {
		return ""
	}
	if key, ok := aliases[n]; ok {
		return key
	}
	return n
}

// Key is a label resolved to its canonical name and categories.
type Key struct {
	Name       string
	Categories Category
}

// Empty reports whether the label carried no text.
func (k Key) Empty() bool {
	return k.Name == ""
}

// maxResolved bounds the memo. Labels past it are still resolved, just not
// remembered.
const maxResolved = 4096

var (
	resolved      sync.Map // normalized label -> Key
	resolvedCount atomic.Int64
)

// Resolve canonicalizes a label and classifies it. Results are memoized per
// normalized label, so spacing and width variants share one entry.
func Resolve(label string) Key {
	n := Normalize(label)
	if v, ok := resolved.Load(n); ok {
		return v.(Key)
	}
	name := n
	if key, ok := aliases[n]; ok {
		name = key
	}
	k := Key{Name: name, Categories: categorize(name)}
	if resolvedCount.Load() < maxResolved {
		if _, loaded := resolved.LoadOrStore(n, k); !loaded {
			resolvedCount.Add(1)
		}
	}
	return k
}

// IsProcurement reports whether the label canonicalizes to procurement.
func IsProcurement(label string) bool {
	return Canonicalize(label) == KeyProcurement
}

// IsShipment reports whether the label names a shipment stage.
func IsShipment(label string) bool {
	return Resolve(label).Categories.Has(Shipment)
}
