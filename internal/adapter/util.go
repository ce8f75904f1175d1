package adapter

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// cleanText collapses whitespace in text pulled out of the DOM.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// selText returns the collapsed text of the first element matching sel, or
// fallback when nothing matches or the element is empty.
func selText(s *goquery.Selection, sel, fallback string) string {
	if t := cleanText(s.Find(sel).First().Text()); t != "" {
		return t
	}
	return fallback
}

// iconSiblingText reads the label next to an Internshala-style icon, e.g.
// <i class="ic-16-money"></i><span>₹ 10,000 /month</span>.
func iconSiblingText(s *goquery.Selection, iconClass, fallback string) string {
	icon := s.Find("i." + iconClass).First()
	if icon.Length() == 0 {
		return fallback
	}
	if t := cleanText(icon.NextAllFiltered("span").First().Text()); t != "" {
		return t
	}
	return fallback
}
