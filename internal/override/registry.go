// Package override holds the static table of accounts that are known to be real
// but cannot be read from the extraction environment.
package override

import "sort"

const (
	reasonGeoBlocked = "Verified real account. The profile is geo-restricted in the extraction region, so its signals cannot be collected."
)

// Entry is one known account and the justification for its fixed classification.
type Entry struct {
	Username      string `json:"username"`
	Justification string `json:"justification"`
}

// Registry is an immutable username -> justification table.
type Registry struct {
	entries map[string]string
}

// defaultEntries are the Pakistani public figures whose profiles are blocked in
// India. Keys are lowercase usernames.
var defaultEntries = map[string]string{
	// Actors
	"mahirahkhan":         reasonGeoBlocked,
	"haniaheheofficial":   reasonGeoBlocked,
	"fawadkhan81":         reasonGeoBlocked,
	"ali_zafar":           reasonGeoBlocked,
	"sajalaly":            reasonGeoBlocked,
	"iiqraaziz":           reasonGeoBlocked,
	"sanashaikhofficial":  reasonGeoBlocked,
	"bilalabbas_khan":     reasonGeoBlocked,
	"imranabbas.official": reasonGeoBlocked,
	"mawrellous":          reasonGeoBlocked,

	// Singers
	"atifaslam":             reasonGeoBlocked,
	"mominamustehsan":       reasonGeoBlocked,
	"abidaparveen.official": reasonGeoBlocked,
	"officialrfakworld":     reasonGeoBlocked,

	// Cricketers
	"safridiofficial":  reasonGeoBlocked,
	"babarazam":        reasonGeoBlocked,
	"mrizwanpak":       reasonGeoBlocked,
	"wasimakramlive":   reasonGeoBlocked,
	"ishaheenafridi10": reasonGeoBlocked,
}

// Default returns the compiled-in registry.
func Default() *Registry {
	return New(defaultEntries)
}

// New builds a registry from a username -> justification map. The map is copied.
func New(entries map[string]string) *Registry {
	r := &Registry{entries: make(map[string]string, len(entries))}
	for k, v := range entries {
		r.entries[k] = v
	}
	return r
}

// Lookup returns the justification for a normalized username, if it is listed.
func (r *Registry) Lookup(username string) (string, bool) {
	if r == nil {
		return "", false
	}
	j, ok := r.entries[username]
	return j, ok
}

// Len returns the number of listed accounts.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.entries)
}

// Entries returns a copy of the table sorted by username.
func (r *Registry) Entries() []Entry {
	if r == nil {
		return nil
	}
	out := make([]Entry, 0, len(r.entries))
	for u, j := range r.entries {
		out = append(out, Entry{Username: u, Justification: j})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}
