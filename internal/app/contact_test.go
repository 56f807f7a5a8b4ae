package app

import "testing"

func TestValidZelleContact(t *testing.T) {
	tests := []struct {
		name    string
		contact string
		want    bool
	}{
		{"plain email", "user@example.com", true},
		{"email with subdomain", "jane.doe@mail.example.co", true},
		{"email with plus tag", "user+tag@example.com", true},
		{"bare phone", "5551234567", true},
		{"formatted phone", "(555) 123-4567", true},
		{"dashed phone", "555-123-4567", true},
		{"dotted phone", "555.123.4567", true},
		{"not an email", "not-an-email", false},
		{"missing domain dot", "user@example", false},
		{"email with spaces", "user name@example.com", false},
		{"too few digits", "12345", false},
		{"too many digits", "55512345678", false},
		{"empty string", "", false},
		{"letters in phone", "555-123-ABCD", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidZelleContact(tt.contact); got != tt.want {
				t.Fatalf("ValidZelleContact(%q) = %t, want %t", tt.contact, got, tt.want)
			}
		})
	}
}
