package dispatch

import (
	"strings"

	"github.com/kilianp07/octoslots/core/model"
)

var vocabulary = map[string]model.Source{
	"SMART":        model.SourceSmartCharge,
	"SMART_CHARGE": model.SourceSmartCharge,
	"SMARTCHARGE":  model.SourceSmartCharge,
	"BOOST":        model.SourceBumpCharge,
	"BUMP":         model.SourceBumpCharge,
	"BUMP_CHARGE":  model.SourceBumpCharge,
	"BUMPCHARGE":   model.SourceBumpCharge,
	"BOOST_CHARGE": model.SourceBumpCharge,
}

// Classify maps an upstream dispatch type to its canonical source. Matching is
// case-insensitive and treats '-' and ' ' like '_'. Unknown values are not an
// error.
func Classify(rawType string) model.Source {
	key := strings.ToUpper(strings.TrimSpace(rawType))
	key = strings.NewReplacer("-", "_", " ", "_").Replace(key)
	if src, ok := vocabulary[key]; ok {
		return src
	}
	return model.SourceUnknown
}
