package models

// UpstreamSettings are the operator-editable service endpoints shown on the
// console's config page. JSON names match the console.
type UpstreamSettings struct {
	CoreURL   string `json:"coreUrl"`
	DirURL    string `json:"dirUrl"`
	DirToken  string `json:"dirToken"`
	KeysURL   string `json:"keysUrl"`
	LedgerURL string `json:"ledgerUrl"`
	TrustURL  string `json:"trustUrl"`
	UseProxy  bool   `json:"useProxy"`
}

// UpstreamPatch is a partial update; nil fields are left unchanged.
type UpstreamPatch struct {
	CoreURL   *string `json:"coreUrl,omitempty"`
	DirURL    *string `json:"dirUrl,omitempty"`
	DirToken  *string `json:"dirToken,omitempty"`
	KeysURL   *string `json:"keysUrl,omitempty"`
	LedgerURL *string `json:"ledgerUrl,omitempty"`
	TrustURL  *string `json:"trustUrl,omitempty"`
	UseProxy  *bool   `json:"useProxy,omitempty"`
}

// Apply returns s with every non-nil field of p copied over.
func (p UpstreamPatch) Apply(s UpstreamSettings) UpstreamSettings {
	if p.CoreURL != nil {
		s.CoreURL = *p.CoreURL
	}
	if p.DirURL != nil {
		s.DirURL = *p.DirURL
	}
	if p.DirToken != nil {
		s.DirToken = *p.DirToken
	}
	if p.KeysURL != nil {
		s.KeysURL = *p.KeysURL
	}
	if p.LedgerURL != nil {
		s.LedgerURL = *p.LedgerURL
	}
	if p.TrustURL != nil {
		s.TrustURL = *p.TrustURL
	}
	if p.UseProxy != nil {
		s.UseProxy = *p.UseProxy
	}
	return s
}
