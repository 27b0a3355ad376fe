package lookup

import (
	"strings"
	"unicode"
)

// Common disposable domains
var disposableDomains = map[string]struct{}{
	"temp-mail.org": {}, "10minutemail.com": {}, "guerrillamail.com": {},
	"mailinator.com": {}, "yopmail.com": {}, "throwawaymail.com": {},
	"tempmail.net": {}, "sharklasers.com": {}, "dispostable.com": {},
}

// MX servers that indicate the domain is inactive/parked
var parkedMXHosts = []string{
	"secureserver.net",  // GoDaddy Parking
	"parking.reg.ru",    // Registrar Parking
	"namecheap.com",     // Namecheap Parking
	"domaincontrol.com", // GoDaddy
}

// Common role-based prefixes
var roleAccounts = map[string]bool{
	"admin": true, "support": true, "info": true, "sales": true,
	"contact": true, "help": true, "office": true, "marketing": true,
	"jobs": true, "billing": true, "abuse": true, "postmaster": true,
	"noreply": true, "no-reply": true, "webmaster": true, "hostmaster": true,
	"hr": true,
}

// Misspellings of popular mailbox domains and what was probably meant.
var typoDomains = map[string]string{
	"gmial.com": "gmail.com", "gmai.com": "gmail.com", "gmail.co": "gmail.com",
	"gamil.com": "gmail.com", "gnail.com": "gmail.com",
	"hotmial.com": "hotmail.com", "hotmal.com": "hotmail.com",
	"yaho.com": "yahoo.com", "yahooo.com": "yahoo.com",
	"outlok.com": "outlook.com", "outloo.com": "outlook.com",
}

// Local-part fragments typical of spam traps and bulk signups.
var spamKeywords = []string{
	"spam", "test", "fake", "asdf", "qwerty", "junk", "trash", "nobody",
}

// Free mailbox domains and the provider behind them.
var freeProviders = map[string]string{
	"gmail.com": "google", "googlemail.com": "google",
	"outlook.com": "microsoft", "hotmail.com": "microsoft", "live.com": "microsoft",
	"yahoo.com": "yahoo", "icloud.com": "apple", "proton.me": "proton",
	"protonmail.com": "proton",
}

// SplitAddress returns the local part and domain of an address, splitting at
// the last '@'.
func SplitAddress(email string) (local, domain string, ok bool) {
	i := strings.LastIndexByte(email, '@')
	if i <= 0 || i == len(email)-1 {
		return "", "", false
	}
	return email[:i], email[i+1:], true
}

// IsDisposableDomain checks if the domain is a known burner provider.
func IsDisposableDomain(domain string) bool {
	_, exists := disposableDomains[strings.ToLower(domain)]
	return exists
}

// IsRoleAccount checks if the user part is a generic function/role.
func IsRoleAccount(email string) bool {
	local, _, ok := SplitAddress(email)
	if !ok {
		return false
	}
	return roleAccounts[strings.ToLower(local)]
}

// IsParkedDomain checks if the MX record points to a known parking service.
func IsParkedDomain(mxHost string) bool {
	host := strings.ToLower(mxHost)
	for _, parked := range parkedMXHosts {
		if strings.Contains(host, parked) {
			return true
		}
	}
	return false
}

// SuggestDomain returns the intended domain when domain is a known typo.
func SuggestDomain(domain string) (string, bool) {
	s, ok := typoDomains[strings.ToLower(domain)]
	return s, ok
}

// HasSpamKeywords reports whether the local part contains a spam marker.
func HasSpamKeywords(local string) bool {
	l := strings.ToLower(local)
	for _, kw := range spamKeywords {
		if strings.Contains(l, kw) {
			return true
		}
	}
	return false
}

// FreeProvider names the provider of a free mailbox domain.
func FreeProvider(domain string) (string, bool) {
	p, ok := freeProviders[strings.ToLower(domain)]
	return p, ok
}

// CalculateEntropy measures the "randomness" of a string.
// High entropy (e.g. "x9f2k1") indicates a bot/burner.
// Returns the ratio of digits to total length.
func CalculateEntropy(s string) float64 {
	if s == "" {
		return 0
	}

	digits := 0.0
	length := float64(len([]rune(s)))

	for _, char := range s {
		if unicode.IsDigit(char) {
			digits++
		}
	}

	// > 0.5 (50% numbers) is suspicious.
	return digits / length
}
