package grammar

import "strconv"

var smallNumbers = map[string]int{
	"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4,
	"five": 5, "six": 6, "seven": 7, "eight": 8, "nine": 9,
	"ten": 10, "eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14,
	"fifteen": 15, "sixteen": 16, "seventeen": 17, "eighteen": 18, "nineteen": 19,
}

var tensNumbers = map[string]int{
	"twenty": 20, "thirty": 30, "forty": 40, "fifty": 50,
	"sixty": 60, "seventy": 70, "eighty": 80, "ninety": 90,
}

// maxNumberWords bounds how many words a spoken integer may span ("one hundred and twenty three").
const maxNumberWords = 5

// parseNumberToken reads a single digit token such as "42".
func parseNumberToken(word string) (int, bool) {
	if word == "" {
		return 0, false
	}
	for _, r := range word {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	value, err := strconv.Atoi(word)
	if err != nil {
		return 0, false
	}
	return value, true
}

// parseNumberWords reads spoken integers below one thousand.
func parseNumberWords(words []string) (int, bool) {
	if len(words) == 0 {
		return 0, false
	}

	value := 0
	rest := words
	switch {
	case rest[0] == "hundred":
		value = 100
		rest = rest[1:]
	case len(rest) >= 2 && rest[1] == "hundred":
		unit, ok := smallNumbers[rest[0]]
		if !ok || unit == 0 || unit > 9 {
			return 0, false
		}
		value = unit * 100
		rest = rest[2:]
	}

	if value > 0 {
		if len(rest) > 0 && rest[0] == "and" {
			rest = rest[1:]
			if len(rest) == 0 {
				return 0, false
			}
		}
		if len(rest) == 0 {
			return value, true
		}
	}

	below, ok := parseBelowHundred(rest)
	if !ok {
		return 0, false
	}
	if value > 0 && below == 0 {
		return 0, false
	}
	return value + below, true
}

func parseBelowHundred(words []string) (int, bool) {
	switch len(words) {
	case 1:
		if v, ok := smallNumbers[words[0]]; ok {
			return v, true
		}
		if v, ok := tensNumbers[words[0]]; ok {
			return v, true
		}
	case 2:
		tens, ok := tensNumbers[words[0]]
		if !ok {
			return 0, false
		}
		unit, ok := smallNumbers[words[1]]
		if !ok || unit == 0 || unit > 9 {
			return 0, false
		}
		return tens + unit, true
	}
	return 0, false
}
