package proxy

import "strings"

// Allowlist is the set of upstream hostnames the gateway may reach. An empty
// allowlist is disabled and permits every host.
type Allowlist struct {
	hosts map[string]struct{}
	order []string
}

// ParseAllowlist reads a comma-separated hostname list. Entries are trimmed
// and lower-cased; blanks and duplicates are dropped.
func ParseAllowlist(csv string) Allowlist {
	a := Allowlist{hosts: make(map[string]struct{})}
	for _, h := range strings.Split(csv, ",") {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" {
			continue
		}
		if _, dup := a.hosts[h]; dup {
			continue
		}
		a.hosts[h] = struct{}{}
		a.order = append(a.order, h)
	}
	return a
}

func (a Allowlist) Enabled() bool { return len(a.order) > 0 }

// Allows reports whether hostname may be contacted.
func (a Allowlist) Allows(hostname string) bool {
	if !a.Enabled() {
		return true
	}
	_, ok := a.hosts[strings.ToLower(hostname)]
	return ok
}

// Hosts returns the entries in configuration order.
func (a Allowlist) Hosts() []string {
	return append([]string(nil), a.order...)
}
