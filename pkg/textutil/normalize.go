package textutil

// kazakhLower maps every uppercase code unit of the Kazakh Cyrillic alphabet
// to its lowercase form: the basic Cyrillic block plus the nine
// Kazakh-specific letters. Code units outside the table pass through.
var kazakhLower = map[uint16]uint16{
	0x0410: 0x0430, // А
	0x0411: 0x0431, // Б
	0x0412: 0x0432, // В
	0x0413: 0x0433, // Г
	0x0414: 0x0434, // Д
	0x0415: 0x0435, // Е
	0x0416: 0x0436, // Ж
	0x0417: 0x0437, // З
	0x0418: 0x0438, // И
	0x0419: 0x0439, // Й
	0x041A: 0x043A, // К
	0x041B: 0x043B, // Л
	0x041C: 0x043C, // М
	0x041D: 0x043D, // Н
	0x041E: 0x043E, // О
	0x041F: 0x043F, // П
	0x0420: 0x0440, // Р
	0x0421: 0x0441, // С
	0x0422: 0x0442, // Т
	0x0423: 0x0443, // У
	0x0424: 0x0444, // Ф
	0x0425: 0x0445, // Х
	0x0426: 0x0446, // Ц
	0x0427: 0x0447, // Ч
	0x0428: 0x0448, // Ш
	0x0429: 0x0449, // Щ
	0x042A: 0x044A, // Ъ
	0x042B: 0x044B, // Ы
	0x042C: 0x044C, // Ь
	0x042D: 0x044D, // Э
	0x042E: 0x044E, // Ю
	0x042F: 0x044F, // Я
	0x0492: 0x0493, // Ғ
	0x049A: 0x049B, // Қ
	0x04E8: 0x04E9, // Ө
	0x04AE: 0x04AF, // Ү
	0x04D8: 0x04D9, // Ә
	0x0406: 0x0456, // І
	0x04A2: 0x04A3, // Ң
	0x04B0: 0x04B1, // Ұ
	0x04BA: 0x04BB, // Һ
}

// NormalizeUnit lowercases a single UTF-16 code unit by the Kazakh table.
func NormalizeUnit(u uint16) uint16 {
	if lower, ok := kazakhLower[u]; ok {
		return lower
	}
	return u
}

// NormalizeUTF16 lowercases a UTF-16 sequence in a new slice.
func NormalizeUTF16(units []uint16) []uint16 {
	out := make([]uint16, len(units))
	for i, u := range units {
		out[i] = NormalizeUnit(u)
	}
	return out
}

// NormalizeString lowercases a UTF-8 string by way of UTF-16, which is
// where the table is defined. This is the single equality key for all
// user-dictionary lookups.
func NormalizeString(s string) (string, error) {
	units, err := Decode(s)
	if err != nil {
		return "", err
	}
	return Encode(NormalizeUTF16(units))
}
