package rag

import "unicode"

const scriptRatioThreshold = 0.3

// DetectLanguage guesses the question language from its script. Hindi is
// recognized by Devanagari runes, Urdu by Arabic-script runes; anything
// else resolves to English. The ratio is taken over word characters so
// Latin punctuation and digits mixed into an otherwise Hindi question do
// not dilute the signal.
func DetectLanguage(text string) string {
	var devanagari, arabic, total int
	for _, r := range text {
		if unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsDigit(r) {
			continue
		}
		total++
		switch {
		case r >= 0x0900 && r <= 0x097F:
			devanagari++
		case (r >= 0x0600 && r <= 0x06FF) || (r >= 0x0750 && r <= 0x077F):
			arabic++
		}
	}
	if total == 0 {
		return "en"
	}
	if float64(devanagari)/float64(total) >= scriptRatioThreshold {
		return "hi"
	}
	if float64(arabic)/float64(total) >= scriptRatioThreshold {
		return "ur"
	}
	return "en"
}
