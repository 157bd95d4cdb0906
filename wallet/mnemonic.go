package wallet

import "github.com/mwc-pay/mwcpayd/errkind"

// wordlist is a reduced stand-in for the 2048-word BIP-39 English wordlist:
// 256 entries so each seed byte maps directly to one word (8 bits per
// word) rather than BIP-39's 11-bits-per-word/checksum scheme. A full
// deployment should substitute the canonical BIP-39 list and its
// checksum word; this list exists so RecoveryPassphrase has a concrete,
// reversible encoding to demonstrate against in tests.
var wordlist = [256]string{
	"able", "acid", "also", "area", "army", "away", "baby", "back",
	"ball", "band", "bank", "base", "bath", "bear", "beat", "bed",
	"been", "bell", "belt", "bend", "best", "bird", "bite", "blue",
	"boat", "body", "bold", "bolt", "bone", "book", "boot", "born",
	"both", "bowl", "box", "boy", "brag", "bred", "brew", "brick",
	"bride", "brief", "bring", "brow", "brush", "buck", "bulb", "bull",
	"burn", "bush", "busy", "cage", "cake", "calm", "camp", "card",
	"care", "cart", "case", "cash", "cast", "cave", "cell", "chat",
	"chef", "chip", "city", "clan", "claw", "clay", "clip", "club",
	"coal", "coat", "coin", "cold", "come", "cook", "cool", "cope",
	"copy", "core", "corn", "cost", "crab", "crew", "crop", "crow",
	"cure", "curl", "cute", "dark", "dash", "dawn", "deal", "debt",
	"deck", "deep", "dent", "dice", "diet", "dig", "dirt", "dish",
	"dock", "does", "done", "door", "dose", "dove", "drag", "draw",
	"drop", "drum", "duck", "dust", "duty", "each", "earn", "ease",
	"east", "easy", "edge", "emit", "epic", "even", "exit", "face",
	"fact", "fade", "fair", "fall", "fame", "farm", "fast", "fate",
	"fear", "feed", "feel", "film", "find", "fine", "fire", "firm",
	"fish", "five", "flag", "flat", "flow", "foam", "foil", "fold",
	"folk", "food", "fool", "foot", "form", "fort", "foul", "four",
	"free", "fuel", "full", "fund", "gain", "game", "gate", "gaze",
	"gear", "gift", "give", "glad", "glow", "goat", "gold", "gone",
	"good", "grab", "gray", "grew", "grey", "grid", "grip", "grow",
	"gulf", "hair", "half", "hall", "hand", "hard", "hawk", "head",
	"heal", "heap", "hear", "heat", "help", "herb", "hero", "hide",
	"high", "hill", "hint", "hold", "holy", "home", "hook", "hope",
	"horn", "host", "hour", "huge", "hunt", "hurt", "idea", "inch",
	"info", "iron", "item", "join", "joke", "july", "june", "jury",
	"just", "keen", "keep", "kept", "kick", "kind", "king", "knee",
	"knew", "know", "lace", "lack", "lady", "lake", "lamp", "land",
	"lane", "last", "late", "lazy", "lead", "leaf", "lean", "left",
	"lend", "less", "life", "lift", "like", "line", "link", "lion",
}

var wordIndex = func() map[string]byte {
	m := make(map[string]byte, len(wordlist))
	for i, w := range wordlist {
		m[w] = byte(i)
	}
	return m
}()

// RecoveryPassphrase renders seed as a space-separated sequence of words,
// one per byte, for mwcpayd's --recovery_passphrase diagnostic
// (SPEC_FULL.md's expansion of spec.md section 4.D).
func RecoveryPassphrase(seed []byte) string {
	out := make([]byte, 0, len(seed)*5)
	for i, b := range seed {
		if i > 0 {
			out = append(out, ' ')
		}
		out = append(out, wordlist[b]...)
	}
	return string(out)
}

// SeedFromRecoveryPassphrase reverses RecoveryPassphrase, failing if any
// word is not in the wordlist.
func SeedFromRecoveryPassphrase(phrase string) ([]byte, error) {
	words := splitWords(phrase)
	seed := make([]byte, len(words))
	for i, w := range words {
		b, ok := wordIndex[w]
		if !ok {
			return nil, errkind.New(errkind.InvalidInput, "unknown recovery word: %s", w)
		}
		seed[i] = b
	}
	return seed, nil
}

func splitWords(phrase string) []string {
	var words []string
	start := -1
	for i, r := range phrase {
		if r == ' ' || r == '\t' || r == '\n' {
			if start >= 0 {
				words = append(words, phrase[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		words = append(words, phrase[start:])
	}
	return words
}
