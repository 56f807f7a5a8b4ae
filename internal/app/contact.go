/**
 * @description
 * Zelle recipient contact validation. A recipient is addressed by an email address or
 * a 10-digit US phone number; anything else is rejected before any balance or
 * velocity lookup happens.
 */

package app

import (
	"regexp"
	"strings"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	// 10-digit US number with optional parentheses around the area code and
	// optional -, ., or space separators between the groups.
	phonePattern = regexp.MustCompile(`^\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}$`)
)

// ValidZelleContact reports whether the contact identifies a Zelle recipient.
func ValidZelleContact(contact string) bool {
	contact = strings.TrimSpace(contact)
	if contact == "" {
		return false
	}
	return emailPattern.MatchString(contact) || phonePattern.MatchString(contact)
}
