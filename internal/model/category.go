package model

import (
	"fmt"
	"strings"
)

type Category string

const (
	CategoryAction  Category = "ACTION"
	CategoryMeeting Category = "MEETING"
	CategoryInfo    Category = "INFO"
	CategoryNoise   Category = "NOISE"
)

var Categories = []Category{CategoryAction, CategoryMeeting, CategoryInfo, CategoryNoise}

// ParseCategory accepts a known label in any case, surrounded by whitespace.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	if c.Valid() {
		return c, nil
	}
	return "", fmt.Errorf("unknown category %q", s)
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}
