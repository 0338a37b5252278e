package timeouts

import (
	"testing"
	"time"
)

func TestConfigure_IgnoresZero(t *testing.T) {
	t.Cleanup(Reset)

	Configure(Config{Short: 7 * time.Second})
	if Short() != 7*time.Second {
		t.Errorf("Short: got %v, want 7s", Short())
	}
	if Medium() != DefaultMedium {
		t.Errorf("Medium: got %v, want default", Medium())
	}
}

func TestReset(t *testing.T) {
	Configure(Config{Ping: time.Second, Long: time.Minute})
	Reset()
	if got := Current(); got != (Config{Ping: DefaultPing, Short: DefaultShort, Medium: DefaultMedium, Long: DefaultLong}) {
		t.Errorf("Current after Reset: got %+v", got)
	}
}
