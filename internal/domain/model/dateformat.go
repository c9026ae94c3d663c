package model

import (
	"fmt"
	"time"
)

// frenchMonths holds the fr-FR long month names, indexed by time.Month-1.
var frenchMonths = [12]string{
	"janvier", "février", "mars", "avril", "mai", "juin",
	"juillet", "août", "septembre", "octobre", "novembre", "décembre",
}

// FormatDate renders t as "DD <mois> YYYY", e.g. "05 mars 2025".
func FormatDate(t time.Time) string {
	return fmt.Sprintf("%02d %s %d", t.Day(), frenchMonths[t.Month()-1], t.Year())
}
