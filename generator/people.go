package generator

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"bitbucket.org/mmdatafocus/books_synth/models"
	"bitbucket.org/mmdatafocus/books_synth/utils"
)

type namePool struct {
	first []string
	last  []string
}

var namesByCountry = map[string]namePool{
	"NL": {
		first: []string{"Daan", "Sem", "Lucas", "Emma", "Julia", "Mila", "Tess", "Bram", "Sanne", "Lotte"},
		last:  []string{"de Jong", "Jansen", "de Vries", "van den Berg", "Bakker", "Visser", "Smit", "Meijer", "Mulder", "Bos"},
	},
	"DE": {
		first: []string{"Lukas", "Leon", "Finn", "Mia", "Hannah", "Emilia", "Jonas", "Lena", "Felix", "Anna"},
		last:  []string{"Muller", "Schmidt", "Schneider", "Fischer", "Weber", "Meyer", "Wagner", "Becker", "Hoffmann", "Koch"},
	},
	"FR": {
		first: []string{"Gabriel", "Louis", "Jules", "Jade", "Louise", "Alice", "Hugo", "Chloe", "Lea", "Arthur"},
		last:  []string{"Martin", "Bernard", "Dubois", "Thomas", "Robert", "Richard", "Petit", "Durand", "Leroy", "Moreau"},
	},
	"BE": {
		first: []string{"Noah", "Arthur", "Liam", "Olivia", "Louise", "Elena", "Victor", "Marie", "Lucas", "Nina"},
		last:  []string{"Peeters", "Janssens", "Maes", "Jacobs", "Mertens", "Willems", "Claes", "Goossens", "Wouters", "Dubois"},
	},
	"LU": {
		first: []string{"Gabriel", "Leo", "Emma", "Zoe", "Noah", "Lara", "Luca", "Sofia"},
		last:  []string{"Schmit", "Muller", "Weber", "Wagner", "Hoffmann", "Thill", "Kremer", "Faber"},
	},
}

var fallbackNames = namePool{
	first: []string{"Alex", "Sam", "Robin", "Kim", "Charlie", "Jamie", "Noa", "Max"},
	last:  []string{"Andersen", "Novak", "Larsen", "Nowak", "Berg", "Nielsen", "Lind", "Kowalski"},
}

// RandomName returns a first and last name typical for the country.
func RandomName(rng *rand.Rand, countryCode string) (string, string) {
	pool, ok := namesByCountry[countryCode]
	if !ok {
		pool = fallbackNames
	}
	return pick(rng, pool.first), pick(rng, pool.last)
}

// Email builds a unique address from the name and the record's sequence.
func Email(firstName, lastName string, seq int64) string {
	local := strings.ToLower(firstName + "." + strings.ReplaceAll(lastName, " ", ""))
	return fmt.Sprintf("%s%d@example.com", local, seq)
}

// national mobile number patterns; '#' is a random digit.
var phonePatterns = map[string]string{
	"NL": "061#######",
	"DE": "0151########",
	"FR": "0612######",
	"BE": "047#######",
	"LU": "621######",
	"AT": "0664#######",
	"IE": "085#######",
	"DK": "2#######",
	"SE": "070#######",
	"PL": "51#######",
}

// PhoneNumber returns a mobile number for the country in E.164 form.
func PhoneNumber(rng *rand.Rand, countryCode string) (string, error) {
	pattern, ok := phonePatterns[countryCode]
	if !ok {
		code := utils.CallingCode(countryCode)
		if code == 0 {
			return "", fmt.Errorf("%w: %s", models.ErrUnknownCountry, countryCode)
		}
		return "+" + strconv.Itoa(code) + fillDigits(rng, "#########"), nil
	}
	phone, err := utils.NormalizePhoneNumber(fillDigits(rng, pattern), countryCode)
	if err != nil {
		return "", err
	}
	if err := utils.ValidatePhoneNumber(phone, countryCode); err != nil {
		return "", fmt.Errorf("%s number %s: %w", countryCode, phone, err)
	}
	return phone, nil
}

func fillDigits(rng *rand.Rand, pattern string) string {
	var b strings.Builder
	b.Grow(len(pattern))
	for _, r := range pattern {
		if r == '#' {
			b.WriteByte(byte('0' + rng.IntN(10)))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
