package normalization

import (
	"strings"
	"unicode"
)

// translitTable таблица транслитерации кириллицы для построения слагов.
var translitTable = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d",
	'е': "e", 'ё': "yo", 'ж': "zh", 'з': "z", 'и': "i",
	'й': "y", 'к': "k", 'л': "l", 'м': "m", 'н': "n",
	'о': "o", 'п': "p", 'р': "r", 'с': "s", 'т': "t",
	'у': "u", 'ф': "f", 'х': "h", 'ц': "ts", 'ч': "ch",
	'ш': "sh", 'щ': "sch", 'ъ': "", 'ы': "y", 'ь': "",
	'э': "e", 'ю': "yu", 'я': "ya",
}

// Transliterate переводит кириллический текст в латиницу.
func Transliterate(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if latin, ok := translitTable[r]; ok {
			b.WriteString(latin)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Slugify строит слаг из произвольного названия: транслитерация,
// нижний регистр, все не-буквенно-цифровые последовательности в один дефис.
func Slugify(text string) string {
	latin := Transliterate(text)

	var b strings.Builder
	b.Grow(len(latin))
	prevDash := true // подавляем ведущий дефис
	for _, r := range latin {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
			prevDash = false
			continue
		}
		if !prevDash {
			b.WriteRune('-')
			prevDash = true
		}
	}

	return strings.Trim(b.String(), "-")
}
