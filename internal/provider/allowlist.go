package provider

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// HostAllowlist restricts which hosts asset downloads may reach. Entries match
// the host itself, any subdomain of it, and any host sharing its registrable
// domain (eTLD+1). An empty allowlist permits every host.
type HostAllowlist struct {
	hosts   map[string]struct{}
	domains map[string]struct{}
}

// NewHostAllowlist builds an allowlist from configured domain entries.
func NewHostAllowlist(entries []string) *HostAllowlist {
	a := &HostAllowlist{hosts: map[string]struct{}{}, domains: map[string]struct{}{}}
	for _, e := range entries {
		e = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(e)), "*.")
		if e == "" {
			continue
		}
		a.hosts[e] = struct{}{}
		if etld1, err := publicsuffix.EffectiveTLDPlusOne(e); err == nil {
			a.domains[etld1] = struct{}{}
		}
	}
	return a
}

// Empty reports whether the allowlist has no entries.
func (a *HostAllowlist) Empty() bool {
	return a == nil || len(a.hosts) == 0
}

// Check validates rawURL: the scheme must be http or https and, when the
// allowlist is not empty, the host must match an entry.
func (a *HostAllowlist) Check(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse asset url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("asset url scheme %q not allowed", u.Scheme)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return fmt.Errorf("asset url %q has no host", rawURL)
	}
	if a.Empty() {
		return nil
	}
	if _, ok := a.hosts[host]; ok {
		return nil
	}
	for h := range a.hosts {
		if strings.HasSuffix(host, "."+h) {
			return nil
		}
	}
	if etld1, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		if _, ok := a.domains[etld1]; ok {
			return nil
		}
	}
	return fmt.Errorf("asset host %q is not in the allowed domains", host)
}
