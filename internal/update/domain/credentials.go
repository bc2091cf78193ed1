package domain

import "strings"

// RegistryCredential authenticates requests against one registry. URL is a
// prefix: the longest matching prefix wins when several credentials apply.
type RegistryCredential struct {
	URL      string `json:"url"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// FindCredential returns the credential whose URL prefix matches repoURL,
// preferring the longest match, or nil when none apply. Matching ignores the
// oci:// scheme so one credential covers both spellings of a registry.
func FindCredential(creds []RegistryCredential, repoURL string) *RegistryCredential {
	target := strings.TrimPrefix(repoURL, "oci://")
	var best *RegistryCredential
	for i := range creds {
		prefix := strings.TrimPrefix(creds[i].URL, "oci://")
		if !strings.HasPrefix(target, prefix) {
			continue
		}
		if best == nil || len(prefix) > len(strings.TrimPrefix(best.URL, "oci://")) {
			best = &creds[i]
		}
	}
	return best
}
