package extractor

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const centimetersPerInch = 2.54

// FormatError reports numeric text that does not parse as a decimal.
type FormatError struct {
	Input string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("unparseable number %q", e.Input)
}

// NormalizeNumber parses a decimal written with either '.' or ',' as the
// decimal or grouping separator: "12,34", "12.34" and "1.234,56" all parse.
// Every separator is first canonicalized to ','; with one separator it is
// the decimal point, with two the first groups thousands.
func NormalizeNumber(s string) (float64, error) {
	canon := strings.ReplaceAll(s, ".", ",")

	switch len(strings.Split(canon, ",")) {
	case 2:
		canon = strings.Replace(canon, ",", ".", 1)
	case 3:
		canon = strings.Replace(canon, ",", "", 1)
		canon = strings.Replace(canon, ",", ".", 1)
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(canon), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &FormatError{Input: s}
	}
	return v, nil
}

// CentimetersToInches converts and rounds to two decimal places.
func CentimetersToInches(cm float64) float64 {
	return Round2(cm / centimetersPerInch)
}

// Round2 rounds half away from zero to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
