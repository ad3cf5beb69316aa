/*
Package spell generates correction candidates for mistyped Kazakh input and
scores them with a bounded Damerau edit distance.

Two hand-authored tables drive substitution: the keyboard adjacency map
(which keys sit next to which on the Kazakh layout, most likely intended
letter first) and the phonetic equivalence pairs (Kazakh-specific letters
commonly typed as their base Cyrillic look-alikes).
*/
package spell

// keyboardNeighbors lists, per letter, the adjacent keys a typo most likely
// intended, most likely first. Letters absent from the map have no keyboard
// substitution.
var keyboardNeighbors = map[rune][]rune{
	'а': {'ф', 'с'},
	'б': {'и', 'ю'},
	'в': {'ц', 'ф'},
	'г': {'р', 'т'},
	'ғ': {'р', 'т'},
	'д': {'л', 'ш'},
	'е': {'к', 'н'},
	'ж': {'э', 'з'},
	'з': {'ж', 'ъ'},
	'и': {'ш', 'щ'},
	'й': {'ф', 'ы'},
	'к': {'л', 'е'},
	'қ': {'л', 'ш'},
	'л': {'д', 'к'},
	'м': {'ь', 'т'},
	'н': {'т', 'е'},
	'ң': {'т', 'е'},
	'о': {'а', 'л'},
	'ө': {'л', 'д'},
	'п': {'з', 'э'},
	'р': {'к', 'е'},
	'с': {'ы', 'в'},
	'т': {'н', 'м'},
	'у': {'г', 'ш'},
	'ұ': {'г', 'ш'},
	'ү': {'г', 'ш'},
	'ф': {'а', 'в'},
	'х': {'ъ', 'з'},
	'һ': {'ъ', 'з'},
	'ц': {'у', 'к'},
	'ч': {'с', 'м'},
	'ш': {'щ', 'и'},
	'щ': {'ш', 'и'},
	'ъ': {'э', 'ж'},
	'ы': {'ф', 'в'},
	'і': {'ш', 'щ'},
	'ь': {'б', 'ю'},
	'э': {'ъ', 'ж'},
	'ю': {'Ѫ', 'б'},
	'я': {'ф', 'ц'},
}

// phoneticClasses holds the eight bidirectional Kazakh equivalence pairs:
// ә↔а, ң↔н, і↔и, қ↔к, ғ↔г, ү↔у, ө↔о, һ↔х.
var phoneticClasses = map[rune][]rune{
	'ә': {'а'},
	'а': {'ә'},
	'ң': {'н'},
	'н': {'ң'},
	'і': {'и'},
	'и': {'і'},
	'қ': {'к'},
	'к': {'қ'},
	'ғ': {'г'},
	'г': {'ғ'},
	'ү': {'у'},
	'у': {'ү'},
	'ө': {'о'},
	'о': {'ө'},
	'һ': {'х'},
	'х': {'һ'},
}

// KeyboardNeighbors returns the adjacency row for r, or nil.
func KeyboardNeighbors(r rune) []rune {
	return keyboardNeighbors[r]
}

// PhoneticPartners returns the phonetic equivalence row for r, or nil.
func PhoneticPartners(r rune) []rune {
	return phoneticClasses[r]
}
