package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSigner_SignIsDeterministic(t *testing.T) {
	s := NewSigner("test-secret")
	at := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	data := []byte(`{"action":"config.update"}`)

	sig := s.Sign("config.update", at, data)
	assert.Len(t, sig, 64)
	assert.Equal(t, sig, s.Sign("config.update", at, data))
	assert.Equal(t, sig, s.Sign("config.update", at.In(time.FixedZone("BRT", -3*3600)), data),
		"the same instant in another zone signs the same")
}

func TestSigner_Verify(t *testing.T) {
	s := NewSigner("test-secret")
	at := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	data := []byte(`{"host":"directory.internal"}`)
	sig := s.Sign("proxy.forward", at, data)

	tests := []struct {
		name   string
		signer *Signer
		action string
		at     time.Time
		data   []byte
		sig    string
		want   bool
	}{
		{"valid", s, "proxy.forward", at, data, sig, true},
		{"other action", s, "proxy.denied", at, data, sig, false},
		{"other time", s, "proxy.forward", at.Add(time.Nanosecond), data, sig, false},
		{"tampered data", s, "proxy.forward", at, []byte(`{"host":"evil.example"}`), sig, false},
		{"other key", NewSigner("other"), "proxy.forward", at, data, sig, false},
		{"garbage signature", s, "proxy.forward", at, data, "zz", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.signer.Verify(tt.action, tt.at, tt.data, tt.sig))
		})
	}
}
