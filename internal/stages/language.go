package stages

// Tesseract unicharset normalisation modes.
const (
	normCombined    = 1
	normGraphemes   = 2
	normPureUnicode = 3
)

var rtlLanguages = setOf("ara", "div", "fas", "pus", "snd", "syr", "uig", "urd", "kur_ara", "heb", "yid")

var indicLanguages = setOf("asm", "ben", "bih", "hin", "mar", "nep", "guj", "kan", "mal", "tam", "tel", "pan", "san", "ori", "sin")

var thaiFamilyLanguages = setOf("tha", "lao", "khm", "mya")

type languageParams struct {
	rtl      bool
	normMode int
	leading  int
}

func languageParamsFor(lang string) languageParams {
	p := languageParams{normMode: normCombined, leading: 32}
	_, p.rtl = rtlLanguages[lang]
	if _, ok := indicLanguages[lang]; ok {
		p.normMode = normGraphemes
	}
	if _, ok := thaiFamilyLanguages[lang]; ok {
		p.normMode = normPureUnicode
	}
	return p
}

func setOf(items ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}
