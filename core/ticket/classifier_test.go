package ticket

import (
	"os"
	"path/filepath"
	"testing"
)

type nopLogger struct{}

func (nopLogger) Debug(msg string, args ...interface{}) {}
func (nopLogger) Info(msg string, args ...interface{})  {}
func (nopLogger) Warn(msg string, args ...interface{})  {}
func (nopLogger) Error(msg string, args ...interface{}) {}
func (nopLogger) Fatal(msg string, args ...interface{}) {}

func TestClassifier_Classify(t *testing.T) {
	c := NewClassifier(nopLogger{})

	tests := []struct {
		name         string
		subject      string
		description  string
		wantCritical bool
		wantSpam     bool
	}{
		{name: "clean", subject: "Sugerencia de menú", description: "más opciones vegetarianas"},
		{name: "critical in subject", subject: "ROBO en el laboratorio", description: "detalle", wantCritical: true},
		{name: "critical in description", subject: "aviso", description: "vi fuego en el pasillo", wantCritical: true},
		{name: "case-insensitive", subject: "AcOsO", description: "", wantCritical: true},
		{name: "mid-word match", subject: "seguros antirrobo", description: "", wantCritical: true},
		{name: "spam", subject: "GANA DINERO ya", description: "compra ya", wantSpam: true},
		{name: "spam link", subject: "mira esto", description: "entra a https://bit.ly/xyz", wantSpam: true},
		{name: "both", subject: "premio urgente", description: "", wantCritical: true, wantSpam: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := c.Classify(tt.subject, tt.description)
			if res.Critical != tt.wantCritical {
				t.Errorf("Critical = %v; want %v", res.Critical, tt.wantCritical)
			}
			if res.Spam != tt.wantSpam {
				t.Errorf("Spam = %v; want %v", res.Spam, tt.wantSpam)
			}
		})
	}
}

func TestClassifier_WatchFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keywords.yml")
	content := "criticas:\n  - inundacion\nspam:\n  - criptomoneda\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing keywords file: %v", err)
	}

	c := NewClassifier(nopLogger{})
	if err := c.WatchFile(path); err != nil {
		t.Fatalf("WatchFile() failed: %v", err)
	}

	if res := c.Classify("inundacion en el patio", ""); !res.Critical {
		t.Error("expected file-loaded critical term to match")
	}
	if res := c.Classify("invierte en criptomoneda", ""); !res.Spam {
		t.Error("expected file-loaded spam term to match")
	}
	// default terms are replaced by the file's sets
	if res := c.Classify("robo", ""); res.Critical {
		t.Error("default terms should be replaced after loading the file")
	}
}

func TestClassifier_WatchFile_missing(t *testing.T) {
	c := NewClassifier(nopLogger{})
	if err := c.WatchFile(filepath.Join(t.TempDir(), "nope.yml")); err == nil {
		t.Error("expected an error for a missing keywords file")
	}
}
