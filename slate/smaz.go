package slate

import "github.com/mwc-pay/mwcpayd/errkind"

// smazDecompressCodebook is the fixed 254-entry decompression dictionary
// for the SMAZ short-string compression scheme used to pack a slate
// participant's optional message (spec.md section 4.E). Ported from
// the reference implementation's decompress table; only decompression
// is needed here because this daemon only ever reads a sender-supplied
// message, never emits one (the response slate's participant message is
// always absent).
var smazDecompressCodebook = [254]string{
	" ", "the", "e", "t",
	"a", "of", "o", "and",
	"i", "n", "s", "e ",
	"r", " th", " t", "in",
	"he", "th", "h", "he ",
	"to", "\r\n", "l", "s ",
	"d", " a", "an", "er",
	"c", " o", "d ", "on",
	" of", "re", "of ", "t ",
	", ", "is", "u", "at",
	"   ", "n ", "or", "which",
	"f", "m", "as", "it",
	"that", "\n", "was", "en",
	"  ", " w", "es", " an",
	" i", "\r", "f ", "g",
	"p", "nd", " s", "nd ",
	"ed ", "w", "ed", "http://",
	"for", "te", "ing", "y ",
	"The", " c", "ti", "r ",
	"his", "st", " in", "ar",
	"nt", ",", " to", "y",
	"ng", " h", "with", "le",
	"al", "to ", "b", "ou",
	"be", "were", " b", "se",
	"o ", "ent", "ha", "ng ",
	"their", "\"", "hi", "from",
	" f", "in ", "de", "ion",
	"me", "v", ".", "ve",
	"all", "re ", "ri", "ro",
	"is ", "co", "f t", "are",
	"ea", ". ", "her", " m",
	"er ", " p", "es ", "by",
	"they", "di", "ra", "ic",
	"not", "s, ", "d t", "at ",
	"ce", "la", "h ", "ne",
	"as ", "tio", "on ", "n t",
	"io", "we", " a ", "om",
	", a", "s o", "ur", "li",
	"ll", "ch", "had", "this",
	"e t", "g ", "e\r\n", " wh",
	"ere", " co", "e o", "a ",
	"us", " d", "ss", "\n\r\n",
	"\r\n\r", "=\"", " be", " e",
	"s a", "ma", "one", "t t",
	"or ", "but", "el", "so",
	"l ", "e s", "s,", "no",
	"ter", " wa", "iv", "ho",
	"e a", " r", "hat", "s t",
	"ns", "ch ", "wh", "tr",
	"ut", "/", "have", "ly ",
	"ta", " ha", " on", "tha",
	"-", " l", "ati", "en ",
	"pe", " re", "there", "ass",
	"si", " fo", "wa", "ec",
	"our", "who", "its", "z",
	"fo", "rs", ">", "ot",
	"un", "<", "im", "th ",
	"nc", "ate", "><", "ver",
	"ad", " we", "ly", "ee",
	" n", "id", " cl", "ac",
	"il", "</", "rt", " wi",
	"div", "e, ", " it", "whi",
	" ma", "ge", "x", "e c",
	"men", ".com",
}

const (
	smazVerbatimByte   = 254
	smazVerbatimString = 255
)

// smazDecompress expands a SMAZ-compressed byte string back to its
// original text.
func smazDecompress(data []byte) ([]byte, error) {
	var out []byte
	for i := 0; i < len(data); i++ {
		b := data[i]
		switch b {
		case smazVerbatimByte:
			if i >= len(data)-1 {
				return nil, errkind.New(errkind.InvalidInput, "smaz: verbatim byte doesn't exist")
			}
			out = append(out, data[i+1])
			i++
		case smazVerbatimString:
			if i >= len(data)-1 {
				return nil, errkind.New(errkind.InvalidInput, "smaz: verbatim string length doesn't exist")
			}
			n := int(data[i+1]) + 1
			if len(data) < i+2+n {
				return nil, errkind.New(errkind.InvalidInput, "smaz: verbatim string doesn't exist")
			}
			out = append(out, data[i+2:i+2+n]...)
			i += 1 + n
		default:
			out = append(out, smazDecompressCodebook[b]...)
		}
	}
	return out, nil
}
